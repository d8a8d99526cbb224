// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package mvcc

import (
	"sync/atomic"

	"github.com/kulpreet/libbitcoin-mvcc-database/fault"
	"github.com/kulpreet/libbitcoin-mvcc-database/slot"
	"github.com/kulpreet/libbitcoin-mvcc-database/txn"
)

// ErrEmptyChain distinguishes "this version has no deltas yet" from a
// genuine latch/visibility conflict encountered while walking deltas
// that do exist. The source's find_last_delta conflates both into its
// no_next sentinel; spec.md §9 open question 3 calls this out as a
// distinction implementers may prefer to make explicit.
var ErrEmptyChain = fault.NotFoundError("version chain has no deltas yet")

// InstallNextVersion splices next onto attach's chain: it latches
// attach for ctx, installs next under ctx, then sets attach's end
// timestamp to ctx's own and points attach.next at nextSlot. Releasing
// attach's latch is left to the caller's deferred commit/abort action.
// attach may be a head version (splicing in the first delta) or a
// delta version (extending the chain); next is always a delta.
func InstallNextVersion[T, D any](attach *Version[T], next *Version[D], nextSlot slot.Slot, ctx *txn.Context) bool {
	if !attach.LatchForWrite(ctx) {
		return false
	}
	if !next.Install(ctx) {
		return false
	}
	atomic.StoreUint64(&attach.endTS, ctx.Timestamp())
	attach.SetNext(nextSlot)
	return true
}

// FindLastDelta walks the delta chain starting at start, following
// each delta's next pointer through resolve, while every visited
// delta remains visible and readable by ctx. It returns the last such
// delta on success. If start is already slot.Uninitialized it returns
// ErrEmptyChain: there is nothing to walk, and the caller should
// attach its new delta directly to the head instead. If a visited
// delta fails the visibility or readability check, it returns
// fault.ErrNoReadableVersion: a write from ctx cannot safely attach to
// this chain right now.
func FindLastDelta[D any](start slot.Slot, ctx *txn.Context, resolve func(slot.Slot) *Version[D]) (*Version[D], error) {
	if start.IsUninitialized() {
		return nil, ErrEmptyChain
	}

	var last *Version[D]
	cur := start
	for {
		v := resolve(cur)
		if v == nil || !v.IsVisible(ctx) || !v.CanRead(ctx) {
			return nil, fault.ErrNoReadableVersion
		}
		last = v
		next := v.Next()
		if next.IsUninitialized() {
			return last, nil
		}
		cur = next
	}
}

// ReadRecord materializes the visible composition of a head version
// and every visible, readable delta attached to it: it copies the
// head's payload, then applies each delta's payload over the running
// result via apply, stopping at the first delta that is not visible
// or not readable by ctx. Every version it traverses has its read
// timestamp advanced to ctx's. It returns false if the head itself is
// not visible or not readable.
func ReadRecord[H, D any](head *Version[H], ctx *txn.Context, resolveDelta func(slot.Slot) *Version[D], apply func(*H, D)) (H, bool) {
	var zero H
	if head == nil || !head.IsVisible(ctx) || !head.CanRead(ctx) {
		return zero, false
	}

	result := head.Data()
	head.MarkRead(ctx)

	cur := head.Next()
	for !cur.IsUninitialized() {
		d := resolveDelta(cur)
		if d == nil || !d.IsVisible(ctx) || !d.CanRead(ctx) {
			break
		}
		apply(&result, d.Data())
		d.MarkRead(ctx)
		cur = d.Next()
	}
	return result, true
}
