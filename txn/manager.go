// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package txn

import (
	"strconv"

	"github.com/bitmark-inc/logger"

	"github.com/kulpreet/libbitcoin-mvcc-database/counter"
	"github.com/kulpreet/libbitcoin-mvcc-database/fault"
	"github.com/kulpreet/libbitcoin-mvcc-database/limitedset"
	"github.com/kulpreet/libbitcoin-mvcc-database/spinlock"
)

// recentHistorySize bounds how many finished transaction timestamps
// Manager keeps around for diagnostics; it is not consulted by any
// correctness path.
const recentHistorySize = 256

// Manager issues monotonically increasing timestamps and tracks the
// set of transactions currently active, grounded on the source's
// transaction_manager: a single spin latch guards both the clock and
// the active set, since both are touched on every begin/remove.
type Manager struct {
	latch spinlock.Lock

	clock  counter.Counter
	active map[uint64]struct{}

	// recent remembers timestamps of transactions that have left the
	// active set, purely for observability (e.g. a metrics dump or a
	// debug endpoint listing "last N finished transactions").
	recent *limitedset.LimitedSet

	log *logger.L
}

// NewManager constructs a manager whose clock starts at zero; the
// first issued timestamp is 1, matching spec's reserved-value layout
// (0 doubles as NotLatched/NoneRead).
func NewManager() *Manager {
	m := &Manager{
		active: make(map[uint64]struct{}),
		recent: limitedset.New(recentHistorySize),
		log:    logger.New("txn"),
	}
	m.log.Info("transaction manager started")
	return m
}

// BeginTransaction issues a fresh timestamp, records it as active, and
// returns a new Active context.
func (m *Manager) BeginTransaction() *Context {
	m.latch.Lock()
	defer m.latch.Unlock()

	ts := m.clock.Increment()
	m.active[ts] = struct{}{}
	m.log.Debugf("begin transaction ts=%d active=%d", ts, len(m.active))
	return newContext(ts)
}

// CommitTransaction fires ctx's commit actions. It does not touch the
// manager's active set; callers remove the context separately via
// RemoveTransaction once they are done with it.
func (m *Manager) CommitTransaction(ctx *Context) {
	ctx.Commit()
}

// RemoveTransaction erases ctx's timestamp from the active set. The
// context must already be Committed or Aborted.
func (m *Manager) RemoveTransaction(ctx *Context) error {
	if ctx.State() == Active {
		return fault.ErrNotCommitted
	}

	m.latch.Lock()
	defer m.latch.Unlock()

	if _, ok := m.active[ctx.ts]; !ok {
		m.log.Criticalf("removing ts=%d which is not a member of the active set", ctx.ts)
	}

	delete(m.active, ctx.ts)
	m.recent.Add(strconv.FormatUint(ctx.ts, 10))
	m.log.Debugf("removed transaction ts=%d active=%d", ctx.ts, len(m.active))
	return nil
}

// IsActive reports whether ctx is both locally Active and still a
// member of the manager's active set.
func (m *Manager) IsActive(ctx *Context) bool {
	if ctx.State() != Active {
		return false
	}

	m.latch.Lock()
	defer m.latch.Unlock()

	_, ok := m.active[ctx.ts]
	return ok
}

// ActiveCount reports the number of transactions currently tracked as
// active, for metrics.
func (m *Manager) ActiveCount() int {
	m.latch.Lock()
	defer m.latch.Unlock()
	return len(m.active)
}

// RecentlyFinished reports whether ts belongs to a transaction that
// has recently left the active set, within the bounded history this
// manager retains.
func (m *Manager) RecentlyFinished(ts uint64) bool {
	return m.recent.Exists(strconv.FormatUint(ts, 10))
}
