// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package accessor composes a head store and a delta store into the
// transactional put/update/get surface the rest of the engine is
// built on.
package accessor

import (
	"github.com/kulpreet/libbitcoin-mvcc-database/fault"
	"github.com/kulpreet/libbitcoin-mvcc-database/mvcc"
	"github.com/kulpreet/libbitcoin-mvcc-database/slot"
	"github.com/kulpreet/libbitcoin-mvcc-database/store"
	"github.com/kulpreet/libbitcoin-mvcc-database/txn"
)

// Accessor sequences insert/update/read operations against version
// chains whose heads live in headStore and whose deltas live in
// deltaStore. HP is the head payload type, DP the delta payload type.
type Accessor[HP, DP any] struct {
	headStore  *store.Store[mvcc.Version[HP]]
	deltaStore *store.Store[mvcc.Version[DP]]
}

// New composes an accessor over an already-constructed head store and
// delta store.
func New[HP, DP any](headStore *store.Store[mvcc.Version[HP]], deltaStore *store.Store[mvcc.Version[DP]]) *Accessor[HP, DP] {
	return &Accessor[HP, DP]{headStore: headStore, deltaStore: deltaStore}
}

// resolveDelta adapts deltaStore.Read's (*R, bool) result to the
// single-return resolver mvcc.FindLastDelta and mvcc.ReadRecord expect.
func (a *Accessor[HP, DP]) resolveDelta(sl slot.Slot) *mvcc.Version[DP] {
	v, ok := a.deltaStore.Read(sl)
	if !ok {
		return nil
	}
	return v
}

// Put inserts a new head version of tuple, latched by ctx, and
// registers the commit/abort actions that finalize or unwind it.
func (a *Accessor[HP, DP]) Put(ctx *txn.Context, tuple HP) (slot.Slot, error) {
	head := mvcc.New(ctx, tuple)

	headSlot, err := a.headStore.Insert(head)
	if err != nil {
		return slot.Uninitialized, err
	}

	headPtr, ok := a.headStore.Read(headSlot)
	if !ok {
		return slot.Uninitialized, fault.ErrSlotNotFound
	}

	savedEnd := headPtr.EndTimestamp()
	savedNext := headPtr.Next()

	if !headPtr.Install(ctx) {
		return slot.Uninitialized, fault.ErrNotLatchHolder
	}

	ctx.RegisterCommitAction(func() {
		headPtr.Commit(ctx, ctx.Timestamp())
	})
	ctx.RegisterAbortAction(func() {
		headPtr.SetNext(savedNext)
		headPtr.SetEndTimestamp(savedEnd)
		headPtr.ReleaseLatch(ctx)
	})

	return headSlot, nil
}

// Update appends a delta over the version chain at headSlot. It
// attaches directly to the head if the chain has no deltas yet, or to
// the last delta visible and readable by ctx otherwise. It fails with
// fault.ErrSlotNotFound if headSlot does not address a live head,
// fault.ErrLatchConflict if the attachment point is held by another
// writer, or fault.ErrNoReadableVersion if find_last_delta cannot
// locate a safe attachment point. mvcc.ErrEmptyChain is not returned:
// an empty chain means the delta is spliced onto the head.
func (a *Accessor[HP, DP]) Update(ctx *txn.Context, headSlot slot.Slot, payload DP) (bool, error) {
	headPtr, ok := a.headStore.Read(headSlot)
	if !ok {
		return false, fault.ErrSlotNotFound
	}

	delta := mvcc.New(ctx, payload)
	deltaSlot, err := a.deltaStore.Insert(delta)
	if err != nil {
		return false, err
	}
	deltaPtr, ok := a.deltaStore.Read(deltaSlot)
	if !ok {
		return false, fault.ErrSlotNotFound
	}

	if headPtr.Next().IsUninitialized() {
		return a.spliceOntoHead(ctx, headPtr, deltaPtr, deltaSlot)
	}

	tail, err := mvcc.FindLastDelta(headPtr.Next(), ctx, a.resolveDelta)
	if err != nil {
		if err == mvcc.ErrEmptyChain {
			return a.spliceOntoHead(ctx, headPtr, deltaPtr, deltaSlot)
		}
		return false, err
	}

	return a.spliceOntoDelta(ctx, tail, deltaPtr, deltaSlot)
}

func (a *Accessor[HP, DP]) spliceOntoHead(ctx *txn.Context, head *mvcc.Version[HP], delta *mvcc.Version[DP], deltaSlot slot.Slot) (bool, error) {
	if ctx.Timestamp() < head.ReadTimestamp() {
		return false, fault.ErrWriteReadConflict
	}

	savedEnd := head.EndTimestamp()
	savedNext := head.Next()

	if !mvcc.InstallNextVersion(head, delta, deltaSlot, ctx) {
		return false, fault.ErrLatchConflict
	}

	ctx.RegisterCommitAction(func() { delta.Commit(ctx, mvcc.Infinity) })
	ctx.RegisterCommitAction(func() { head.Commit(ctx, ctx.Timestamp()) })
	ctx.RegisterAbortAction(func() {
		head.SetNext(savedNext)
		head.SetEndTimestamp(savedEnd)
		head.ReleaseLatch(ctx)
	})
	return true, nil
}

func (a *Accessor[HP, DP]) spliceOntoDelta(ctx *txn.Context, tail *mvcc.Version[DP], delta *mvcc.Version[DP], deltaSlot slot.Slot) (bool, error) {
	if ctx.Timestamp() < tail.ReadTimestamp() {
		return false, fault.ErrWriteReadConflict
	}

	savedEnd := tail.EndTimestamp()
	savedNext := tail.Next()

	if !mvcc.InstallNextVersion(tail, delta, deltaSlot, ctx) {
		return false, fault.ErrLatchConflict
	}

	ctx.RegisterCommitAction(func() { delta.Commit(ctx, mvcc.Infinity) })
	ctx.RegisterCommitAction(func() { tail.Commit(ctx, ctx.Timestamp()) })
	ctx.RegisterAbortAction(func() {
		tail.SetNext(savedNext)
		tail.SetEndTimestamp(savedEnd)
		tail.ReleaseLatch(ctx)
	})
	return true, nil
}

// Get materializes the version of the chain at headSlot visible to
// ctx, overlaying every visible and readable delta via apply.
func (a *Accessor[HP, DP]) Get(ctx *txn.Context, headSlot slot.Slot, apply func(*HP, DP)) (HP, bool) {
	headPtr, ok := a.headStore.Read(headSlot)
	if !ok {
		var zero HP
		return zero, false
	}
	return mvcc.ReadRecord(headPtr, ctx, a.resolveDelta, apply)
}
