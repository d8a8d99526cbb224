// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package memblock implements the fixed-size block and the block pool
// that stores allocate their slots from.
package memblock

import (
	"sync/atomic"

	"github.com/kulpreet/libbitcoin-mvcc-database/bitmap"
)

// BlockSize is the amount of tuple storage a single block provides.
// The source requires this to be a power of two so a block's base
// address is cheap to test for alignment; this module arena-indexes
// blocks instead (see package slot), so the constraint is kept only
// because it is the unit the rest of the spec reasons about.
const BlockSize = 1 << 20 // 1 MiB

const busyMask = uint32(1) << 31
const headMask = busyMask - 1

// Block is a fixed-size, record-typed storage area. It holds a slot
// bitmap recording which cells have been allocated and an atomic
// insert word whose high bit is the "busy" flag an allocator holds
// while working inside this block, and whose low 31 bits are the
// insertion head: the index of the next never-yet-allocated cell.
type Block[R any] struct {
	insertWord atomic.Uint32
	bits       *bitmap.Bitmap
	cells      []R
}

// NewBlock allocates a block with room for slots cells, all unallocated.
func NewBlock[R any](slots int) *Block[R] {
	return &Block[R]{
		bits:  bitmap.New(slots),
		cells: make([]R, slots),
	}
}

// reset prepares a reused block as if it were freshly allocated.
func (b *Block[R]) reset() {
	b.insertWord.Store(0)
	b.bits = bitmap.New(len(b.cells))
	var zero R
	for i := range b.cells {
		b.cells[i] = zero
	}
}

// Slots returns the number of cells this block holds.
func (b *Block[R]) Slots() int {
	return len(b.cells)
}

// InsertHead returns the low 31 bits of the insert word: the index of
// the next slot this block has never handed out.
func (b *Block[R]) InsertHead() uint32 {
	return b.insertWord.Load() & headMask
}

// SetBusy attempts to claim the busy bit. It returns false if the bit
// was already set.
func (b *Block[R]) SetBusy() bool {
	for {
		old := b.insertWord.Load()
		if old&busyMask != 0 {
			return false
		}
		if b.insertWord.CompareAndSwap(old, old|busyMask) {
			return true
		}
	}
}

// ClearBusy releases the busy bit, leaving the insert head untouched.
func (b *Block[R]) ClearBusy() {
	for {
		old := b.insertWord.Load()
		if b.insertWord.CompareAndSwap(old, old&^busyMask) {
			return
		}
	}
}

func (b *Block[R]) incrementInsertHead() {
	for {
		old := b.insertWord.Load()
		head := old & headMask
		next := (old &^ headMask) | ((head + 1) & headMask)
		if b.insertWord.CompareAndSwap(old, next) {
			return
		}
	}
}

// AllocateIn claims the next free slot in this block. The caller must
// already hold the busy bit. It fails if the block is full; the
// bitmap.Flip is a redundant correctness check under that invariant,
// not the primary serialization mechanism.
func (b *Block[R]) AllocateIn() (offset uint32, ok bool) {
	head := b.InsertHead()
	if int(head) >= len(b.cells) {
		return 0, false
	}
	if !b.bits.Flip(int(head), false) {
		return 0, false
	}
	b.incrementInsertHead()
	return head, true
}

// Cell returns a pointer to the record storage at offset, so that
// callers can read or write it in place.
func (b *Block[R]) Cell(offset uint32) *R {
	return &b.cells[offset]
}

// AllocatedUpTo reports whether the slot bitmap matches the invariant
// that bit i is set exactly for i in [0, insert_head). Used by tests.
func (b *Block[R]) AllocatedUpTo(head uint32) bool {
	for i := 0; i < len(b.cells); i++ {
		want := i < int(head)
		if b.bits.Test(i) != want {
			return false
		}
	}
	return true
}
