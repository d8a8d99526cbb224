// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package index_test

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kulpreet/libbitcoin-mvcc-database/index"
	"github.com/kulpreet/libbitcoin-mvcc-database/slot"
)

func TestMemoryIndexPutGetDelete(t *testing.T) {
	idx, err := index.NewMemoryIndex(4)
	require.NoError(t, err)

	key := []byte("block-hash-1")
	sl := slot.New(0, 3)

	_, ok := idx.Get(key)
	require.False(t, ok, "expected miss before any put")

	require.NoError(t, idx.Put(key, sl))

	got, ok := idx.Get(key)
	require.True(t, ok)
	require.Equal(t, sl, got)

	require.NoError(t, idx.Delete(key))

	_, ok = idx.Get(key)
	require.False(t, ok, "expected miss after delete")
}

func TestMemoryIndexEvictsUnderPressure(t *testing.T) {
	idx, err := index.NewMemoryIndex(2)
	require.NoError(t, err)

	require.NoError(t, idx.Put([]byte("a"), slot.New(0, 0)))
	require.NoError(t, idx.Put([]byte("b"), slot.New(0, 1)))
	require.NoError(t, idx.Put([]byte("c"), slot.New(0, 2)))

	_, ok := idx.Get([]byte("a"))
	require.False(t, ok, "expected the least recently used entry to have been evicted")

	_, ok = idx.Get([]byte("c"))
	require.True(t, ok, "expected the most recently added entry to still be present")
}

func newTestLevelDBIndex(t *testing.T) *index.LevelDBIndex {
	t.Helper()
	dir, err := os.MkdirTemp("", "mvcc-index-test-*")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(dir) })

	idx, err := index.OpenLevelDBIndex(dir)
	require.NoError(t, err)
	t.Cleanup(func() { idx.Close() })
	return idx
}

func TestLevelDBIndexPutGetDelete(t *testing.T) {
	idx := newTestLevelDBIndex(t)

	key := []byte("tx-hash-1")
	sl := slot.New(2, 7)

	require.NoError(t, idx.Put(key, sl))

	got, ok := idx.Get(key)
	require.True(t, ok)
	require.Equal(t, sl, got)

	require.NoError(t, idx.Delete(key))

	_, ok = idx.Get(key)
	require.False(t, ok, "expected miss after delete")
}

func TestCachedIndexPopulatesFrontOnBackingHit(t *testing.T) {
	front, err := index.NewMemoryIndex(4)
	require.NoError(t, err)
	backing := newTestLevelDBIndex(t)
	cached := index.NewCachedIndex(front, backing)

	key := []byte("block-hash-2")
	sl := slot.New(1, 4)

	require.NoError(t, backing.Put(key, sl), "put into backing directly")

	_, ok := front.Get(key)
	require.False(t, ok, "expected front cache to be empty before the first cached Get")

	got, ok := cached.Get(key)
	require.True(t, ok)
	require.Equal(t, sl, got)

	_, ok = front.Get(key)
	require.True(t, ok, "expected the backing hit to populate the front cache")
}

func TestCachedIndexWriteThroughReachesBacking(t *testing.T) {
	front, err := index.NewMemoryIndex(4)
	require.NoError(t, err)
	backing := newTestLevelDBIndex(t)
	cached := index.NewCachedIndex(front, backing)

	key := []byte("block-hash-3")
	sl := slot.New(0, 9)

	require.NoError(t, cached.Put(key, sl))

	got, ok := backing.Get(key)
	require.True(t, ok, "expected write-through to reach the backing index")
	require.Equal(t, sl, got)

	require.NoError(t, cached.Delete(key))

	_, ok = backing.Get(key)
	require.False(t, ok, "expected delete to reach the backing index")
}
