// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package txn provides the transaction context and manager that the
// rest of the engine latches and sequences its work against.
package txn

// State is the lifecycle stage of a transaction context.
type State int

const (
	// Active is the only state in which new mutations may register
	// commit/abort actions.
	Active State = iota
	Committed
	Aborted
)

func (s State) String() string {
	switch s {
	case Active:
		return "active"
	case Committed:
		return "committed"
	case Aborted:
		return "aborted"
	default:
		return "unknown"
	}
}

// Action is a zero-argument callback registered to run on commit or
// abort. Callers close over whatever record pointers and snapshotted
// scalars they need at registration time.
type Action func()

// Context tracks one transaction's timestamp, lifecycle state, and the
// deferred commit/abort actions accumulated by every mutation it has
// performed. It is not safe for concurrent use by multiple goroutines;
// a transaction belongs to the thread that began it.
type Context struct {
	ts    uint64
	state State

	commitActions []Action
	abortActions  []Action
}

func newContext(ts uint64) *Context {
	return &Context{ts: ts, state: Active}
}

// Timestamp returns this transaction's issued timestamp.
func (c *Context) Timestamp() uint64 {
	return c.ts
}

// State reports the current lifecycle stage.
func (c *Context) State() State {
	return c.state
}

// IsActive reports whether the context's local state is still Active.
// It does not consult the manager's active set; callers that need the
// stronger guarantee should use Manager.IsActive.
func (c *Context) IsActive() bool {
	return c.state == Active
}

// RegisterCommitAction appends fn to the list run, in LIFO order, when
// Commit is called.
func (c *Context) RegisterCommitAction(fn Action) {
	c.commitActions = append(c.commitActions, fn)
}

// RegisterAbortAction appends fn to the list run, in LIFO order, when
// Abort is called.
func (c *Context) RegisterAbortAction(fn Action) {
	c.abortActions = append(c.abortActions, fn)
}

// Commit transitions the context to Committed and fires every
// registered commit action, most recently registered first. The abort
// list is discarded unrun. Calling Commit more than once is a no-op
// after the first call.
func (c *Context) Commit() {
	if c.state != Active {
		return
	}
	c.state = Committed
	runLIFO(c.commitActions)
	c.commitActions = nil
	c.abortActions = nil
}

// Abort transitions the context to Aborted and fires every registered
// abort action, most recently registered first. The commit list is
// discarded unrun. Calling Abort more than once is a no-op after the
// first call.
func (c *Context) Abort() {
	if c.state != Active {
		return
	}
	c.state = Aborted
	runLIFO(c.abortActions)
	c.commitActions = nil
	c.abortActions = nil
}

func runLIFO(actions []Action) {
	for i := len(actions) - 1; i >= 0; i-- {
		actions[i]()
	}
}
