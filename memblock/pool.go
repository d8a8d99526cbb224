// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package memblock

import (
	"unsafe"

	"github.com/bitmark-inc/logger"

	"github.com/kulpreet/libbitcoin-mvcc-database/fault"
	"github.com/kulpreet/libbitcoin-mvcc-database/spinlock"
)

// Pool is a process-wide (per-store) cache of recycled blocks,
// grounded on the source's object_pool<T>: a size limit bounding the
// number of live blocks, a reuse limit bounding how many released
// blocks are kept for reuse, protected by a single spin latch.
type Pool[R any] struct {
	latch spinlock.Lock

	sizeLimit     uint64
	reuseLimit    uint64
	currentSize   uint64
	slotsPerBlock int
	freeList      []*Block[R]

	log *logger.L
}

// NewPool constructs a pool with the given limits. slotsPerBlock is
// derived from BlockSize and R's size, matching the source's
// block_size / sizeof(tuple) computation.
func NewPool[R any](sizeLimit, reuseLimit uint64) *Pool[R] {
	var zero R
	recordSize := int(unsafe.Sizeof(zero))
	if recordSize <= 0 {
		recordSize = 1
	}
	slotsPerBlock := BlockSize / recordSize
	if slotsPerBlock < 1 {
		slotsPerBlock = 1
	}
	return &Pool[R]{
		sizeLimit:     sizeLimit,
		reuseLimit:    reuseLimit,
		slotsPerBlock: slotsPerBlock,
		log:           logger.New("memblock"),
	}
}

// SlotsPerBlock reports how many record cells fit in one block.
func (p *Pool[R]) SlotsPerBlock() int {
	return p.slotsPerBlock
}

// Acquire pops a block from the free list, or allocates a fresh one if
// the pool has not reached its size limit, or returns
// fault.ErrNoMoreObjects.
func (p *Pool[R]) Acquire() (*Block[R], error) {
	p.latch.Lock()
	defer p.latch.Unlock()

	if n := len(p.freeList); n > 0 {
		blk := p.freeList[n-1]
		p.freeList = p.freeList[:n-1]
		blk.reset()
		return blk, nil
	}

	if p.currentSize >= p.sizeLimit {
		p.log.Debugf("acquire: size limit %d reached", p.sizeLimit)
		return nil, fault.ErrNoMoreObjects
	}

	blk := NewBlock[R](p.slotsPerBlock)
	p.currentSize++
	return blk, nil
}

// Release returns a block to the free list if there is room under the
// reuse limit, otherwise it is dropped and the live count decremented.
func (p *Pool[R]) Release(blk *Block[R]) {
	p.latch.Lock()
	defer p.latch.Unlock()

	if uint64(len(p.freeList)) < p.reuseLimit {
		p.freeList = append(p.freeList, blk)
		return
	}
	p.currentSize--
}

// SetSizeLimit changes the maximum number of live blocks. It fails if
// the new limit is below the number of blocks already allocated.
func (p *Pool[R]) SetSizeLimit(newLimit uint64) bool {
	p.latch.Lock()
	defer p.latch.Unlock()

	if newLimit < p.currentSize {
		return false
	}
	p.sizeLimit = newLimit
	return true
}

// SetReuseLimit changes how many released blocks are retained for
// reuse. It always succeeds; any surplus over the new limit is
// deallocated immediately.
func (p *Pool[R]) SetReuseLimit(newLimit uint64) {
	p.latch.Lock()
	defer p.latch.Unlock()

	p.reuseLimit = newLimit
	for uint64(len(p.freeList)) > newLimit {
		n := len(p.freeList)
		p.freeList = p.freeList[:n-1]
		p.currentSize--
	}
}

// CurrentSize reports the number of live blocks (free or in use).
func (p *Pool[R]) CurrentSize() uint64 {
	p.latch.Lock()
	defer p.latch.Unlock()
	return p.currentSize
}

// FreeListLen reports the number of blocks currently on the free list.
func (p *Pool[R]) FreeListLen() int {
	p.latch.Lock()
	defer p.latch.Unlock()
	return len(p.freeList)
}
