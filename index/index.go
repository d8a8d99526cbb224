// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package index maps opaque byte-string keys (block hashes,
// transaction hashes) onto the slot.Slot a store.Store needs to reach
// the underlying version chain. The core engine never looks a record
// up by key itself; index sits in front of it as the façades' lookup
// layer.
package index

import (
	"github.com/kulpreet/libbitcoin-mvcc-database/slot"
)

// Index resolves a key to the slot holding its head version, and
// tracks key assignment as records are first inserted.
type Index interface {
	// Get reports the slot assigned to key, or false if none is.
	Get(key []byte) (slot.Slot, bool)

	// Put records that key's head version lives at sl, replacing any
	// previous assignment.
	Put(key []byte, sl slot.Slot) error

	// Delete removes key's assignment, if any.
	Delete(key []byte) error

	// Close releases any resources the index holds open.
	Close() error
}
