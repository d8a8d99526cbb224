// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package txn_test

import (
	"testing"

	"github.com/kulpreet/libbitcoin-mvcc-database/txn"
)

func TestCommitRunsActionsLIFO(t *testing.T) {
	manager := txn.NewManager()
	ctx := manager.BeginTransaction()

	var order []int
	ctx.RegisterCommitAction(func() { order = append(order, 1) })
	ctx.RegisterCommitAction(func() { order = append(order, 2) })
	ctx.RegisterCommitAction(func() { order = append(order, 3) })

	ctx.Commit()

	want := []int{3, 2, 1}
	if len(order) != len(want) {
		t.Fatalf("expected %v actions to run, got %v", want, order)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("expected LIFO order %v, got %v", want, order)
		}
	}
	if ctx.State() != txn.Committed {
		t.Fatalf("expected state Committed, got %v", ctx.State())
	}
}

func TestAbortRunsAbortActionsNotCommitActions(t *testing.T) {
	manager := txn.NewManager()
	ctx := manager.BeginTransaction()

	commitRan := false
	abortRan := false
	ctx.RegisterCommitAction(func() { commitRan = true })
	ctx.RegisterAbortAction(func() { abortRan = true })

	ctx.Abort()

	if commitRan {
		t.Fatalf("commit action should not run on abort")
	}
	if !abortRan {
		t.Fatalf("abort action should have run")
	}
	if ctx.State() != txn.Aborted {
		t.Fatalf("expected state Aborted, got %v", ctx.State())
	}
}

func TestCommitIsIdempotent(t *testing.T) {
	manager := txn.NewManager()
	ctx := manager.BeginTransaction()

	count := 0
	ctx.RegisterCommitAction(func() { count++ })

	ctx.Commit()
	ctx.Commit()

	if count != 1 {
		t.Fatalf("expected commit action to run exactly once, ran %d times", count)
	}
}

func TestIsActiveReflectsLocalState(t *testing.T) {
	manager := txn.NewManager()
	ctx := manager.BeginTransaction()

	if !ctx.IsActive() {
		t.Fatalf("expected fresh context to be active")
	}
	ctx.Commit()
	if ctx.IsActive() {
		t.Fatalf("expected committed context to no longer be active")
	}
}
