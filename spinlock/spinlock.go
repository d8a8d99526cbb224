// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package spinlock provides a busy-spin mutual exclusion primitive for
// hot paths that must never park on a wait queue: the block busy bit,
// a store's block-list and insertion-head cursors, a pool's free list,
// and the transaction manager's active set.
//
// Unlike sync.Mutex, a blocked spinlock.Lock call never parks its
// goroutine; it retries a CAS until it wins, yielding its time slice
// with runtime.Gosched between attempts. Callers must hold it only for
// bounded, allocation-free work.
package spinlock

import (
	"runtime"
	"sync/atomic"
)

// Lock is a spin latch backed by a single CAS word.
type Lock struct {
	held atomic.Bool
}

// Lock spins until the latch is acquired.
func (l *Lock) Lock() {
	for !l.held.CompareAndSwap(false, true) {
		runtime.Gosched()
	}
}

// TryLock attempts to acquire the latch once, returning false if it is
// already held.
func (l *Lock) TryLock() bool {
	return l.held.CompareAndSwap(false, true)
}

// Unlock releases the latch. Calling Unlock without holding the latch
// is a programmer error; it silently clears the bit as the source
// spinlatch does, leaving the caller's invariant checks to catch misuse.
func (l *Lock) Unlock() {
	l.held.Store(false)
}
