// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package txndb

import (
	"sync"

	"github.com/bitmark-inc/logger"

	"github.com/kulpreet/libbitcoin-mvcc-database/accessor"
	"github.com/kulpreet/libbitcoin-mvcc-database/fault"
	"github.com/kulpreet/libbitcoin-mvcc-database/index"
	"github.com/kulpreet/libbitcoin-mvcc-database/txn"
)

// TransactionDatabase composes an accessor over TxRecord/TxPatch with
// the hash index transaction_database.hpp maintains, plus the
// block-height-to-transaction-hashes association it keeps separately
// precisely so moving a transaction from memory to disk never
// requires rewriting that association (per the header's own comment
// on block_hash_index_map).
type TransactionDatabase struct {
	accessor *accessor.Accessor[TxRecord, TxPatch]

	hashIndex index.Index

	blockTxLatch sync.RWMutex
	blockTxIndex map[uint64][]Hash

	log *logger.L
}

// New composes a TransactionDatabase over an already-constructed
// accessor and its hash index.
func New(acc *accessor.Accessor[TxRecord, TxPatch], hashIndex index.Index) *TransactionDatabase {
	return &TransactionDatabase{
		accessor:     acc,
		hashIndex:    hashIndex,
		blockTxIndex: make(map[uint64][]Hash),
		log:          logger.New("txndb"),
	}
}

func overlayTxPatch(r *TxRecord, d TxPatch) {
	r.Candidate = d.Candidate
	r.Position = d.Position
}

// Store inserts a pooled (unconfirmed) transaction, indexed by its
// content hash.
func (t *TransactionDatabase) Store(ctx *txn.Context, record TxRecord) (Hash, error) {
	hash := ContentHash(record)

	sl, err := t.accessor.Put(ctx, record)
	if err != nil {
		return Hash{}, err
	}
	if err := t.hashIndex.Put(hash[:], sl); err != nil {
		return Hash{}, err
	}
	t.log.Debugf("stored transaction hash=%x", hash)
	return hash, nil
}

// Get reads a transaction by content hash, as visible to ctx.
func (t *TransactionDatabase) Get(ctx *txn.Context, hash Hash) (TxRecord, bool) {
	sl, ok := t.hashIndex.Get(hash[:])
	if !ok {
		return TxRecord{}, false
	}
	return t.accessor.Get(ctx, sl, overlayTxPatch)
}

// Candidate marks the transaction identified by hash as belonging to
// the candidate chain, following transaction_database.hpp's
// candidate().
func (t *TransactionDatabase) Candidate(ctx *txn.Context, hash Hash) (bool, error) {
	return t.setCandidate(ctx, hash, true)
}

// Uncandidate is the mirror of Candidate, following uncandidate().
func (t *TransactionDatabase) Uncandidate(ctx *txn.Context, hash Hash) (bool, error) {
	return t.setCandidate(ctx, hash, false)
}

func (t *TransactionDatabase) setCandidate(ctx *txn.Context, hash Hash, candidate bool) (bool, error) {
	sl, found := t.hashIndex.Get(hash[:])
	if !found {
		return false, fault.ErrSlotNotFound
	}
	current, ok := t.accessor.Get(ctx, sl, overlayTxPatch)
	if !ok {
		return false, fault.ErrSlotNotFound
	}
	updated, err := t.accessor.Update(ctx, sl, TxPatch{Candidate: candidate, Position: current.Position})
	if err != nil {
		if fault.IsErrConflict(err) {
			t.log.Debugf("set candidate=%v hash=%x rejected: %v", candidate, hash, err)
		}
		return false, err
	}
	t.log.Debugf("set candidate=%v hash=%x", candidate, hash)
	return updated, nil
}

// Confirm promotes the transaction identified by hash to confirmed at
// height/position, following confirm(hash, height, median_time_past,
// position): it clears the candidate flag (confirmed transactions are
// no longer "candidate", matching block_tuple's own confirmed/
// candidate distinction), records its position, and associates hash
// with height in the block-transactions index.
func (t *TransactionDatabase) Confirm(ctx *txn.Context, hash Hash, height uint64, position uint16) (bool, error) {
	sl, found := t.hashIndex.Get(hash[:])
	if !found {
		return false, fault.ErrSlotNotFound
	}
	if _, ok := t.accessor.Get(ctx, sl, overlayTxPatch); !ok {
		return false, fault.ErrSlotNotFound
	}

	ok, err := t.accessor.Update(ctx, sl, TxPatch{Candidate: false, Position: position})
	if err != nil || !ok {
		return ok, err
	}

	t.blockTxLatch.Lock()
	t.blockTxIndex[height] = append(t.blockTxIndex[height], hash)
	t.blockTxLatch.Unlock()
	t.log.Infof("confirmed transaction hash=%x height=%d position=%d", hash, height, position)
	return true, nil
}

// Unconfirm demotes every transaction associated with height back to
// pooled, the mirror of Confirm (block-granularity, following
// unconfirm(block)).
func (t *TransactionDatabase) Unconfirm(ctx *txn.Context, height uint64) (int, error) {
	t.blockTxLatch.Lock()
	hashes := t.blockTxIndex[height]
	delete(t.blockTxIndex, height)
	t.blockTxLatch.Unlock()

	unconfirmed := 0
	for _, hash := range hashes {
		sl, found := t.hashIndex.Get(hash[:])
		if !found {
			continue
		}
		if _, ok := t.accessor.Get(ctx, sl, overlayTxPatch); !ok {
			continue
		}
		if ok, err := t.accessor.Update(ctx, sl, TxPatch{Candidate: false, Position: 0}); err != nil {
			return unconfirmed, err
		} else if ok {
			unconfirmed++
		}
	}
	t.log.Infof("unconfirmed %d transactions at height=%d", unconfirmed, height)
	return unconfirmed, nil
}

// TransactionsAt reports the transaction hashes confirmed at height.
func (t *TransactionDatabase) TransactionsAt(height uint64) []Hash {
	t.blockTxLatch.RLock()
	defer t.blockTxLatch.RUnlock()
	out := make([]Hash, len(t.blockTxIndex[height]))
	copy(out, t.blockTxIndex[height])
	return out
}
