// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package spinlock_test

import (
	"sync"
	"testing"

	"github.com/kulpreet/libbitcoin-mvcc-database/spinlock"
)

func TestMutualExclusion(t *testing.T) {
	var l spinlock.Lock
	counter := 0

	var wg sync.WaitGroup
	const goroutines = 64
	const increments = 1000

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < increments; j++ {
				l.Lock()
				counter++
				l.Unlock()
			}
		}()
	}
	wg.Wait()

	if expected := goroutines * increments; counter != expected {
		t.Fatalf("counter: expected %d actual %d", expected, counter)
	}
}

func TestTryLock(t *testing.T) {
	var l spinlock.Lock

	if !l.TryLock() {
		t.Fatalf("expected first TryLock to succeed")
	}
	if l.TryLock() {
		t.Fatalf("expected second TryLock to fail while held")
	}
	l.Unlock()
	if !l.TryLock() {
		t.Fatalf("expected TryLock to succeed after unlock")
	}
	l.Unlock()
}
