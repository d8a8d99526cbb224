// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package index

import (
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/kulpreet/libbitcoin-mvcc-database/slot"
)

// MemoryIndex is a bounded, in-memory Index backed by an LRU. It is
// meant to sit directly in front of the hot working set. When it fronts
// a backing Index (see CachedIndex), entries evicted under pressure are
// still recoverable from the backing, so eviction loses only locality;
// used on its own, an evicted key is gone and Get reports it missing.
type MemoryIndex struct {
	cache *lru.Cache[string, slot.Slot]
}

// NewMemoryIndex constructs a MemoryIndex holding at most size
// entries.
func NewMemoryIndex(size int) (*MemoryIndex, error) {
	cache, err := lru.New[string, slot.Slot](size)
	if err != nil {
		return nil, err
	}
	return &MemoryIndex{cache: cache}, nil
}

func (m *MemoryIndex) Get(key []byte) (slot.Slot, bool) {
	return m.cache.Get(string(key))
}

func (m *MemoryIndex) Put(key []byte, sl slot.Slot) error {
	m.cache.Add(string(key), sl)
	return nil
}

func (m *MemoryIndex) Delete(key []byte) error {
	m.cache.Remove(string(key))
	return nil
}

func (m *MemoryIndex) Close() error {
	m.cache.Purge()
	return nil
}
