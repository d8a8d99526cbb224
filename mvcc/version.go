// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package mvcc implements the version cell that backs every row in a
// store: timestamps, a CAS latch, the record payload, and a pointer to
// the next version in the chain. The same generic type serves both
// head records and delta records — only the payload type differs.
package mvcc

import (
	"sync/atomic"

	"github.com/kulpreet/libbitcoin-mvcc-database/slot"
	"github.com/kulpreet/libbitcoin-mvcc-database/txn"
)

// NotLatched marks the txnID word as free.
const NotLatched uint64 = 0

// NoneRead marks a version nobody has read yet.
const NoneRead uint64 = 0

// Infinity is the end timestamp of a version that has not yet been
// superseded.
const Infinity uint64 = ^uint64(0)

// Version is one cell of a version chain: either the head of a
// logical row or one of its deltas. Fields besides the data payload
// are plain uint64s manipulated through the atomic package directly
// (rather than atomic.Uint64) so that a freshly constructed Version is
// trivially copyable into block storage by value, matching how a
// store allocates and publishes a new cell before anyone holds a
// pointer to it.
type Version[T any] struct {
	txnID   uint64
	readTS  uint64
	beginTS uint64
	endTS   uint64
	next    uint64
	data    T
}

// New constructs a version latched by ctx, with begin_ts = ctx.ts,
// end_ts = Infinity, no reader yet, and no next version.
func New[T any](ctx *txn.Context, data T) Version[T] {
	ts := ctx.Timestamp()
	return Version[T]{
		txnID:   ts,
		readTS:  NoneRead,
		beginTS: ts,
		endTS:   Infinity,
		next:    uint64(slot.Uninitialized),
		data:    data,
	}
}

// TxnID returns the current latch holder's timestamp, or NotLatched.
func (v *Version[T]) TxnID() uint64 { return atomic.LoadUint64(&v.txnID) }

// ReadTimestamp returns the highest timestamp that has read this version.
func (v *Version[T]) ReadTimestamp() uint64 { return atomic.LoadUint64(&v.readTS) }

// BeginTimestamp returns the timestamp at which this version became visible.
func (v *Version[T]) BeginTimestamp() uint64 { return atomic.LoadUint64(&v.beginTS) }

// EndTimestamp returns the timestamp at which this version was
// superseded, or Infinity if it is still current.
func (v *Version[T]) EndTimestamp() uint64 { return atomic.LoadUint64(&v.endTS) }

// SetEndTimestamp overwrites the end timestamp directly. Used by the
// accessor's abort actions to restore a pre-mutation snapshot; callers
// must hold the latch.
func (v *Version[T]) SetEndTimestamp(ts uint64) { atomic.StoreUint64(&v.endTS, ts) }

// Next returns the slot of the next version in the chain, or
// slot.Uninitialized at the tail.
func (v *Version[T]) Next() slot.Slot { return slot.Slot(atomic.LoadUint64(&v.next)) }

// SetNext overwrites the next pointer. Callers must hold the latch.
func (v *Version[T]) SetNext(s slot.Slot) { atomic.StoreUint64(&v.next, uint64(s)) }

// Data returns a copy of the record payload. Like the source, the
// payload itself carries no atomicity guarantees of its own: callers
// must only read it once they have established visibility/readability,
// and must only write it while holding the latch.
func (v *Version[T]) Data() T { return v.data }

// SetData overwrites the record payload. Callers must hold the latch.
func (v *Version[T]) SetData(data T) { v.data = data }

// LatchForWrite acquires the CAS latch for ctx. Succeeds idempotently
// if ctx already holds it.
func (v *Version[T]) LatchForWrite(ctx *txn.Context) bool {
	ts := ctx.Timestamp()
	if atomic.LoadUint64(&v.txnID) == ts {
		return true
	}
	return atomic.CompareAndSwapUint64(&v.txnID, NotLatched, ts)
}

// ReleaseLatch releases the latch held by ctx. Fails if ctx does not
// hold it.
func (v *Version[T]) ReleaseLatch(ctx *txn.Context) bool {
	return atomic.CompareAndSwapUint64(&v.txnID, ctx.Timestamp(), NotLatched)
}

// IsLatchedBy reports whether ctx currently holds the latch.
func (v *Version[T]) IsLatchedBy(ctx *txn.Context) bool {
	return atomic.LoadUint64(&v.txnID) == ctx.Timestamp()
}

// Install marks a newly latched version ready to commit by setting
// its end timestamp to ctx's own timestamp. It fails if ctx does not
// hold the latch.
func (v *Version[T]) Install(ctx *txn.Context) bool {
	if !v.IsLatchedBy(ctx) {
		return false
	}
	atomic.StoreUint64(&v.endTS, ctx.Timestamp())
	return true
}

// Commit sets the end timestamp to ts and releases the latch held by
// ctx. Pass ctx.Timestamp() to close a superseded version, or Infinity
// to leave the new tail current.
func (v *Version[T]) Commit(ctx *txn.Context, ts uint64) bool {
	if !v.IsLatchedBy(ctx) {
		return false
	}
	atomic.StoreUint64(&v.endTS, ts)
	return v.ReleaseLatch(ctx)
}

// IsVisible reports whether this version is visible to a transaction
// with timestamp ctx.Timestamp(): unlatched or latched by ctx itself,
// and begun at or before ctx's timestamp.
func (v *Version[T]) IsVisible(ctx *txn.Context) bool {
	ts := ctx.Timestamp()
	txnID := atomic.LoadUint64(&v.txnID)
	if txnID != NotLatched && txnID != ts {
		return false
	}
	return ts >= atomic.LoadUint64(&v.beginTS)
}

// CanRead reports whether reading this version at ctx's timestamp
// would invert the order of an already-recorded later read.
func (v *Version[T]) CanRead(ctx *txn.Context) bool {
	return atomic.LoadUint64(&v.readTS) <= ctx.Timestamp()
}

// MarkRead advances the read timestamp to ctx's timestamp if it is
// greater than the current value. Monotonically non-decreasing.
func (v *Version[T]) MarkRead(ctx *txn.Context) {
	ts := ctx.Timestamp()
	for {
		old := atomic.LoadUint64(&v.readTS)
		if old >= ts {
			return
		}
		if atomic.CompareAndSwapUint64(&v.readTS, old, ts) {
			return
		}
	}
}
