// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/kulpreet/libbitcoin-mvcc-database/config"
	"github.com/kulpreet/libbitcoin-mvcc-database/memblock"
)

func TestWatcherAppliesReloadedLimits(t *testing.T) {
	file := writeTempConfig(t, sampleConfig)

	pool := memblock.NewPool[int](8, 8)
	w, err := config.NewWatcher(file, map[string]config.PoolLimiter{
		"block_headers": pool,
	})
	if err != nil {
		t.Fatalf("new watcher: %v", err)
	}
	defer w.Close()

	if err := w.Start(); err != nil {
		t.Fatalf("start watcher: %v", err)
	}

	updated := `
block_headers {
  size_limit = 128
  reuse_limit = 4
}
`
	if err := os.WriteFile(file, []byte(updated), 0o644); err != nil {
		t.Fatalf("rewrite config: %v", err)
	}

	select {
	case <-w.Changed():
	case <-time.After(5 * time.Second):
		t.Fatalf("timed out waiting for the watcher to apply a reload")
	}

	if got := pool.CurrentSize(); got > 8 {
		t.Fatalf("pool should not report more than its original handed-out size: %d", got)
	}

	// Nine acquisitions only fit once the reloaded size_limit of 128
	// has replaced the original limit of 8.
	for i := 0; i < 9; i++ {
		if _, err := pool.Acquire(); err != nil {
			t.Fatalf("acquire block %d under the reloaded size_limit: %v", i, err)
		}
	}
}

func TestWatcherRejectsSizeLimitDecreaseBelowCurrentSize(t *testing.T) {
	file := writeTempConfig(t, sampleConfig)

	pool := memblock.NewPool[int](8, 8)
	for i := 0; i < 5; i++ {
		if _, err := pool.Acquire(); err != nil {
			t.Fatalf("acquire block %d: %v", i, err)
		}
	}
	if got := pool.CurrentSize(); got != 5 {
		t.Fatalf("expected current size 5 before reload, got %d", got)
	}

	w, err := config.NewWatcher(file, map[string]config.PoolLimiter{
		"block_headers": pool,
	})
	if err != nil {
		t.Fatalf("new watcher: %v", err)
	}
	defer w.Close()

	if err := w.Start(); err != nil {
		t.Fatalf("start watcher: %v", err)
	}

	updated := `
block_headers {
  size_limit = 3
  reuse_limit = 8
}
`
	if err := os.WriteFile(file, []byte(updated), 0o644); err != nil {
		t.Fatalf("rewrite config: %v", err)
	}

	select {
	case <-w.Changed():
	case <-time.After(5 * time.Second):
		t.Fatalf("timed out waiting for the watcher to process the reload")
	}

	for i := 0; i < 3; i++ {
		if _, err := pool.Acquire(); err != nil {
			t.Fatalf("acquire block %d after rejected reload: %v", i, err)
		}
	}
	if got := pool.CurrentSize(); got != 8 {
		t.Fatalf("rejected size_limit decrease should have left the original limit in effect, current size = %d", got)
	}
}

func TestWatcherIgnoresUnrelatedFiles(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "mvcc.conf")
	if err := os.WriteFile(target, []byte(sampleConfig), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	pool := memblock.NewPool[int](8, 8)
	w, err := config.NewWatcher(target, map[string]config.PoolLimiter{"block_headers": pool})
	if err != nil {
		t.Fatalf("new watcher: %v", err)
	}
	defer w.Close()
	if err := w.Start(); err != nil {
		t.Fatalf("start watcher: %v", err)
	}

	other := filepath.Join(dir, "unrelated.conf")
	if err := os.WriteFile(other, []byte("noop"), 0o644); err != nil {
		t.Fatalf("write unrelated file: %v", err)
	}

	select {
	case <-w.Changed():
		t.Fatalf("unrelated file write should not trigger a reload")
	case <-time.After(300 * time.Millisecond):
	}
}
