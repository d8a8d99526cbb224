// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockdb

import (
	"github.com/bitmark-inc/logger"

	"github.com/kulpreet/libbitcoin-mvcc-database/accessor"
	"github.com/kulpreet/libbitcoin-mvcc-database/fault"
	"github.com/kulpreet/libbitcoin-mvcc-database/index"
	"github.com/kulpreet/libbitcoin-mvcc-database/slot"
	"github.com/kulpreet/libbitcoin-mvcc-database/spinlock"
	"github.com/kulpreet/libbitcoin-mvcc-database/txn"
)

// topHeight tracks a high-water mark for Top: the greatest height
// ever promoted into an index. A later demote of that exact height
// leaves the mark stale until the next promote raises it again. The
// core's find_last_delta-style traversal has no cheap "largest key"
// operation over an index.Index, so block_database.cpp's own
// size()-1 (backed by an ordered map) is approximated rather than
// reproduced exactly — acceptable here since the façades are in scope
// only insofar as they exercise the core, not as an indexing
// structure of their own.
type topHeight struct {
	latch spinlock.Lock
	value uint64
	set   bool
}

func (t *topHeight) observe(height uint64) {
	t.latch.Lock()
	defer t.latch.Unlock()
	if !t.set || height > t.value {
		t.value = height
		t.set = true
	}
}

func (t *topHeight) get() (uint64, bool) {
	t.latch.Lock()
	defer t.latch.Unlock()
	return t.value, t.set
}

// BlockDatabase composes an accessor over BlockHeader/BlockPatch with
// the three indexes block_database.cpp maintains: one by block hash
// and one each for the candidate and confirmed height chains.
type BlockDatabase struct {
	accessor *accessor.Accessor[BlockHeader, BlockPatch]

	hashIndex      index.Index
	candidateIndex index.Index
	confirmedIndex index.Index

	candidateTop topHeight
	confirmedTop topHeight

	log *logger.L
}

// New composes a BlockDatabase over an already-constructed accessor
// and its three indexes.
func New(acc *accessor.Accessor[BlockHeader, BlockPatch], hashIndex, candidateIndex, confirmedIndex index.Index) *BlockDatabase {
	return &BlockDatabase{
		accessor:       acc,
		hashIndex:      hashIndex,
		candidateIndex: candidateIndex,
		confirmedIndex: confirmedIndex,
		log:            logger.New("blockdb"),
	}
}

func overlayBlockPatch(h *BlockHeader, d BlockPatch) {
	h.State = d.State
}

// Store inserts a new block header, indexed by its content hash. It
// does not place the block on either the candidate or confirmed
// chain; call Promote for that.
func (b *BlockDatabase) Store(ctx *txn.Context, header BlockHeader) (Hash, error) {
	hash := HeaderHash(header)

	sl, err := b.accessor.Put(ctx, header)
	if err != nil {
		return Hash{}, err
	}

	if err := b.hashIndex.Put(hash[:], sl); err != nil {
		return Hash{}, err
	}
	b.log.Debugf("stored block hash=%x height=%d", hash, header.Height)
	return hash, nil
}

// Get reads a block header by content hash, as visible to ctx.
func (b *BlockDatabase) Get(ctx *txn.Context, hash Hash) (BlockHeader, bool) {
	sl, ok := b.hashIndex.Get(hash[:])
	if !ok {
		return BlockHeader{}, false
	}
	return b.accessor.Get(ctx, sl, overlayBlockPatch)
}

// GetByHeight reads the block header at height on the candidate chain
// (if candidate is true) or the confirmed chain, as visible to ctx.
func (b *BlockDatabase) GetByHeight(ctx *txn.Context, height uint64, candidate bool) (BlockHeader, bool) {
	idx := b.chainIndex(candidate)
	sl, ok := idx.Get(heightKey(height))
	if !ok {
		return BlockHeader{}, false
	}
	return b.accessor.Get(ctx, sl, overlayBlockPatch)
}

// Top reports the highest height known to the candidate or confirmed
// chain, or false if that chain has never had a block promoted onto
// it.
func (b *BlockDatabase) Top(candidate bool) (uint64, bool) {
	if candidate {
		return b.candidateTop.get()
	}
	return b.confirmedTop.get()
}

// Promote moves the block identified by hash onto the candidate or
// confirmed chain at height, following block_database.cpp's promote:
// read the current state, fold in the confirmation transition,
// splice a state-only delta, then index the slot by height.
func (b *BlockDatabase) Promote(ctx *txn.Context, hash Hash, height uint64, candidate bool) (bool, error) {
	ok, err := b.transitionConfirmation(ctx, hash, candidate, true)
	if err != nil || !ok {
		return ok, err
	}

	sl, found := b.hashIndex.Get(hash[:])
	if !found {
		return false, fault.ErrSlotNotFound
	}
	if err := b.chainIndex(candidate).Put(heightKey(height), sl); err != nil {
		return false, err
	}
	if candidate {
		b.candidateTop.observe(height)
	} else {
		b.confirmedTop.observe(height)
	}
	b.log.Infof("promoted block hash=%x height=%d candidate=%v", hash, height, candidate)
	return true, nil
}

// Demote removes the block identified by hash from the candidate or
// confirmed chain at height, the mirror of Promote.
func (b *BlockDatabase) Demote(ctx *txn.Context, hash Hash, height uint64, candidate bool) (bool, error) {
	ok, err := b.transitionConfirmation(ctx, hash, candidate, false)
	if err != nil || !ok {
		return ok, err
	}
	if err := b.chainIndex(candidate).Delete(heightKey(height)); err != nil {
		return false, err
	}
	b.log.Infof("demoted block hash=%x height=%d candidate=%v", hash, height, candidate)
	return true, nil
}

// Validate marks the block identified by hash valid (if passed is
// true) or failed, preserving its confirmation state.
func (b *BlockDatabase) Validate(ctx *txn.Context, hash Hash, passed bool) (bool, error) {
	sl, found := b.hashIndex.Get(hash[:])
	if !found {
		return false, fault.ErrSlotNotFound
	}
	current, ok := b.accessor.Get(ctx, sl, overlayBlockPatch)
	if !ok {
		return false, fault.ErrSlotNotFound
	}
	updated := updateValidationState(current.State, passed)
	ok, err := b.accessor.Update(ctx, sl, BlockPatch{State: updated})
	if err != nil {
		if fault.IsErrConflict(err) {
			b.log.Debugf("validate hash=%x rejected: %v", hash, err)
		}
		return false, err
	}
	b.log.Debugf("validated block hash=%x passed=%v", hash, passed)
	return ok, nil
}

func (b *BlockDatabase) transitionConfirmation(ctx *txn.Context, hash Hash, candidate, positive bool) (bool, error) {
	sl, found := b.hashIndex.Get(hash[:])
	if !found {
		return false, fault.ErrSlotNotFound
	}
	current, ok := b.accessor.Get(ctx, sl, overlayBlockPatch)
	if !ok {
		return false, fault.ErrSlotNotFound
	}
	updated := updateConfirmationState(current.State, positive, candidate)
	return b.accessor.Update(ctx, sl, BlockPatch{State: updated})
}

func (b *BlockDatabase) chainIndex(candidate bool) index.Index {
	if candidate {
		return b.candidateIndex
	}
	return b.confirmedIndex
}

// Slot exposes the slot a stored block's head version lives at, for
// callers (e.g. txndb) that cross-reference a block by hash without
// re-deriving it through BlockHeader.
func (b *BlockDatabase) Slot(hash Hash) (slot.Slot, bool) {
	return b.hashIndex.Get(hash[:])
}
