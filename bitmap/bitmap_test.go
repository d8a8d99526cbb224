// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package bitmap_test

import (
	"sync"
	"testing"

	"github.com/kulpreet/libbitcoin-mvcc-database/bitmap"
)

func TestFlipAndTest(t *testing.T) {
	b := bitmap.New(129)

	if b.Test(5) {
		t.Fatalf("expected bit 5 to start unset")
	}
	if !b.Flip(5, false) {
		t.Fatalf("expected flip 0->1 to succeed")
	}
	if !b.Test(5) {
		t.Fatalf("expected bit 5 to be set")
	}
	if b.Flip(5, false) {
		t.Fatalf("expected second flip 0->1 to fail, bit already set")
	}
	if !b.Flip(5, true) {
		t.Fatalf("expected flip 1->0 to succeed")
	}
	if b.Test(5) {
		t.Fatalf("expected bit 5 to be unset again")
	}
}

// 129 bits, every bit set except the last: first_unset_pos(129, 0) == 128.
func TestFirstUnsetPosScenario(t *testing.T) {
	b := bitmap.New(129)
	for i := 0; i < 128; i++ {
		if !b.Flip(i, false) {
			t.Fatalf("flip %d failed", i)
		}
	}

	pos, ok := b.FirstUnsetPos(0)
	if !ok || pos != 128 {
		t.Fatalf("expected (128, true) actual (%d, %v)", pos, ok)
	}
}

func TestFirstUnsetPosStartAtSize(t *testing.T) {
	b := bitmap.New(64)
	if _, ok := b.FirstUnsetPos(64); ok {
		t.Fatalf("expected no result when start >= size")
	}
	if _, ok := b.FirstUnsetPos(65); ok {
		t.Fatalf("expected no result when start > size")
	}
}

func TestFirstUnsetPosAllSet(t *testing.T) {
	b := bitmap.New(64)
	for i := 0; i < 64; i++ {
		b.Flip(i, false)
	}
	if _, ok := b.FirstUnsetPos(0); ok {
		t.Fatalf("expected no unset position once all bits are set")
	}
}

func TestConcurrentFlipIsExclusive(t *testing.T) {
	b := bitmap.New(1)
	var wg sync.WaitGroup
	successes := 0
	var mu sync.Mutex

	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if b.Flip(0, false) {
				mu.Lock()
				successes++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if successes != 1 {
		t.Fatalf("expected exactly one successful flip, got %d", successes)
	}
}
