// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package index

import (
	"github.com/bitmark-inc/logger"

	"github.com/kulpreet/libbitcoin-mvcc-database/slot"
)

// CachedIndex fronts a durable backing Index with a MemoryIndex,
// replacing the teacher's go-cache-based write-through (storage/cache.go)
// with an LRU that can never diverge from the backing store: every
// write goes through to the backing index before the cache is
// updated, and a cache miss falls through to the backing index and
// repopulates the cache.
type CachedIndex struct {
	front   *MemoryIndex
	backing Index

	log *logger.L
}

// NewCachedIndex composes front as a bounded cache in front of
// backing.
func NewCachedIndex(front *MemoryIndex, backing Index) *CachedIndex {
	return &CachedIndex{front: front, backing: backing, log: logger.New("index-cached")}
}

func (c *CachedIndex) Get(key []byte) (slot.Slot, bool) {
	if sl, ok := c.front.Get(key); ok {
		return sl, true
	}
	sl, ok := c.backing.Get(key)
	if !ok {
		return slot.Uninitialized, false
	}
	c.front.Put(key, sl)
	c.log.Debugf("populated front from backing for key %x", key)
	return sl, true
}

func (c *CachedIndex) Put(key []byte, sl slot.Slot) error {
	if err := c.backing.Put(key, sl); err != nil {
		return err
	}
	return c.front.Put(key, sl)
}

func (c *CachedIndex) Delete(key []byte) error {
	if err := c.backing.Delete(key); err != nil {
		return err
	}
	return c.front.Delete(key)
}

func (c *CachedIndex) Close() error {
	if err := c.front.Close(); err != nil {
		return err
	}
	c.log.Info("closed cached index")
	return c.backing.Close()
}
