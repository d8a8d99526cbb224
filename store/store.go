// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package store implements the typed slot allocator that sits between
// a block pool and the MVCC version chains a record type holds.
package store

import (
	"github.com/bitmark-inc/logger"

	"github.com/kulpreet/libbitcoin-mvcc-database/memblock"
	"github.com/kulpreet/libbitcoin-mvcc-database/slot"
	"github.com/kulpreet/libbitcoin-mvcc-database/spinlock"
)

// Store allocates R-typed slots from a shared block pool, holding an
// ordered list of blocks it has claimed and an insertion-head cursor
// pointing at the first block believed to have free space.
type Store[R any] struct {
	pool *memblock.Pool[R]

	blocksLatch spinlock.Lock
	blocks      []*memblock.Block[R]

	headLatch spinlock.Lock
	headIndex int

	log *logger.L
}

// New constructs a store backed by pool, pre-allocated with one block,
// matching the source's "created with one empty block" lifecycle note.
func New[R any](pool *memblock.Pool[R]) (*Store[R], error) {
	s := &Store[R]{
		pool: pool,
		log:  logger.New("store"),
	}
	blk, err := pool.Acquire()
	if err != nil {
		return nil, err
	}
	s.blocks = append(s.blocks, blk)
	s.log.Info("store opened with one block")
	return s, nil
}

// Insert finds the first non-busy, non-full block starting at the
// insertion head, claims a slot in it, and copies record into that
// slot's storage. The returned slot identifies where the copy lives.
func (s *Store[R]) Insert(record R) (slot.Slot, error) {
	for {
		blk, blockIndex, err := s.blockAtHead()
		if err != nil {
			return slot.Uninitialized, err
		}

		if !blk.SetBusy() {
			continue
		}

		offset, ok := blk.AllocateIn()
		if !ok {
			blk.ClearBusy()
			if advanceErr := s.advanceHeadPast(blockIndex); advanceErr != nil {
				return slot.Uninitialized, advanceErr
			}
			continue
		}

		blk.ClearBusy()
		*blk.Cell(offset) = record
		return slot.New(uint32(blockIndex), offset), nil
	}
}

// Read returns a pointer to the record stored at sl, or false if sl
// does not address a live block in this store. Visibility and
// readability are mvcc concerns layered on top of the returned
// pointer, not checked here.
func (s *Store[R]) Read(sl slot.Slot) (*R, bool) {
	s.blocksLatch.Lock()
	idx := int(sl.BlockIndex())
	if idx < 0 || idx >= len(s.blocks) {
		s.blocksLatch.Unlock()
		return nil, false
	}
	blk := s.blocks[idx]
	s.blocksLatch.Unlock()

	if int(sl.Offset()) >= blk.Slots() {
		return nil, false
	}
	return blk.Cell(sl.Offset()), true
}

// SlotsPerBlock exposes the pool's computed record capacity per block.
func (s *Store[R]) SlotsPerBlock() int {
	return s.pool.SlotsPerBlock()
}

// BlockCount reports how many blocks this store currently holds.
func (s *Store[R]) BlockCount() int {
	s.blocksLatch.Lock()
	defer s.blocksLatch.Unlock()
	return len(s.blocks)
}

// Close releases every block this store holds back to its pool. It
// does not wait for in-flight readers; callers must ensure the store
// is otherwise quiescent.
func (s *Store[R]) Close() {
	s.blocksLatch.Lock()
	defer s.blocksLatch.Unlock()
	for _, blk := range s.blocks {
		s.pool.Release(blk)
	}
	s.blocks = nil
	s.log.Info("store closed")
}

// blockAtHead returns the block currently at the insertion head and
// its index in the block list.
func (s *Store[R]) blockAtHead() (*memblock.Block[R], int, error) {
	s.headLatch.Lock()
	defer s.headLatch.Unlock()

	s.blocksLatch.Lock()
	defer s.blocksLatch.Unlock()

	if s.headIndex >= len(s.blocks) {
		blk, err := s.pool.Acquire()
		if err != nil {
			return nil, 0, err
		}
		s.blocks = append(s.blocks, blk)
		s.log.Debugf("block list grew to %d blocks", len(s.blocks))
	}
	return s.blocks[s.headIndex], s.headIndex, nil
}

// advanceHeadPast moves the insertion head forward when the block at
// blockIndex turned out to be full, appending a fresh block from the
// pool if the head has reached the end of the list.
func (s *Store[R]) advanceHeadPast(blockIndex int) error {
	s.headLatch.Lock()
	defer s.headLatch.Unlock()

	if s.headIndex != blockIndex {
		// Another inserter already advanced the head past this block.
		return nil
	}

	s.blocksLatch.Lock()
	defer s.blocksLatch.Unlock()

	s.headIndex++
	if s.headIndex >= len(s.blocks) {
		blk, err := s.pool.Acquire()
		if err != nil {
			return err
		}
		s.blocks = append(s.blocks, blk)
		s.log.Debugf("block list grew to %d blocks", len(s.blocks))
	}
	return nil
}
