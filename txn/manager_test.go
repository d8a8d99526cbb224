// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package txn_test

import (
	"testing"

	"github.com/kulpreet/libbitcoin-mvcc-database/txn"
)

func TestTimestampsAreStrictlyIncreasing(t *testing.T) {
	manager := txn.NewManager()

	var last uint64
	for i := 0; i < 10; i++ {
		ctx := manager.BeginTransaction()
		if ctx.Timestamp() <= last {
			t.Fatalf("expected strictly increasing timestamps, got %d after %d", ctx.Timestamp(), last)
		}
		last = ctx.Timestamp()
	}
	if first := uint64(1); last < first {
		t.Fatalf("expected at least one issued timestamp >= 1")
	}
}

func TestFirstTimestampIsOne(t *testing.T) {
	manager := txn.NewManager()
	ctx := manager.BeginTransaction()
	if ctx.Timestamp() != 1 {
		t.Fatalf("expected first issued timestamp to be 1, got %d", ctx.Timestamp())
	}
}

func TestIsActiveConsultsActiveSet(t *testing.T) {
	manager := txn.NewManager()
	ctx := manager.BeginTransaction()

	if !manager.IsActive(ctx) {
		t.Fatalf("expected freshly begun transaction to be active")
	}

	manager.CommitTransaction(ctx)
	if manager.IsActive(ctx) {
		t.Fatalf("expected committed transaction to no longer be active")
	}

	if err := manager.RemoveTransaction(ctx); err != nil {
		t.Fatalf("remove transaction: %v", err)
	}
}

func TestRemoveTransactionRequiresFinishedState(t *testing.T) {
	manager := txn.NewManager()
	ctx := manager.BeginTransaction()

	if err := manager.RemoveTransaction(ctx); err == nil {
		t.Fatalf("expected removing an active transaction to fail")
	}

	manager.CommitTransaction(ctx)
	if err := manager.RemoveTransaction(ctx); err != nil {
		t.Fatalf("remove after commit: %v", err)
	}
}

func TestRecentlyFinishedTracksRemovedTransactions(t *testing.T) {
	manager := txn.NewManager()
	ctx := manager.BeginTransaction()
	ts := ctx.Timestamp()

	manager.CommitTransaction(ctx)
	_ = manager.RemoveTransaction(ctx)

	if !manager.RecentlyFinished(ts) {
		t.Fatalf("expected timestamp %d to be recorded as recently finished", ts)
	}
}

func TestActiveCountTracksConcurrentTransactions(t *testing.T) {
	manager := txn.NewManager()

	ctx1 := manager.BeginTransaction()
	ctx2 := manager.BeginTransaction()

	if got := manager.ActiveCount(); got != 2 {
		t.Fatalf("expected active count 2, got %d", got)
	}

	manager.CommitTransaction(ctx1)
	_ = manager.RemoveTransaction(ctx1)

	if got := manager.ActiveCount(); got != 1 {
		t.Fatalf("expected active count 1 after removing one, got %d", got)
	}

	manager.CommitTransaction(ctx2)
	_ = manager.RemoveTransaction(ctx2)
}
