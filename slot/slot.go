// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package slot provides a compact handle identifying the (block,
// offset) location of a record inside a store.
//
// The source (libbitcoin-database's storage/slot.hpp) packs a real,
// block-size-aligned pointer and the offset into one machine word,
// exploiting the fact that an aligned block address has
// log2(block_size) zero low bits. Go gives no safe, portable way to
// request block-aligned heap memory or to stash an offset inside a
// live pointer's low bits, so this packs a 1-based block index
// (assigned by the owning store) and an offset instead — the
// arena-indexed variant spec.md §9 calls out as the idiomatic
// alternative. The zero value remains a single, unambiguous
// "uninitialized, no slot here" sentinel either way.
package slot

const offsetBits = 32

// Slot is a value type; it owns no memory and is safe to copy.
type Slot uint64

// Uninitialized is the all-zero slot. It also stands in for "no next
// delta" in a version chain: both mean "nothing is here".
const Uninitialized Slot = 0

// New packs a block index and an in-block offset into a Slot.
// blockIndex is the store-local position of the block in its block
// list (0-based); Slot stores it as 1-based so that block 0, offset 0
// is distinguishable from Uninitialized.
func New(blockIndex, offset uint32) Slot {
	return Slot(uint64(blockIndex+1)<<offsetBits | uint64(offset))
}

// IsUninitialized reports whether the slot is the zero/sentinel value.
func (s Slot) IsUninitialized() bool {
	return s == Uninitialized
}

// BlockIndex returns the 0-based block-list position this slot points
// into. Calling it on Uninitialized is a programmer error; it returns 0.
func (s Slot) BlockIndex() uint32 {
	if s == Uninitialized {
		return 0
	}
	return uint32(uint64(s)>>offsetBits) - 1
}

// Offset returns the in-block record index this slot points at.
func (s Slot) Offset() uint32 {
	return uint32(uint64(s) & (1<<offsetBits - 1))
}
