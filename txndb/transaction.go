// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package txndb is a façade composing accessor.Accessor[TxRecord,
// TxPatch] with a transaction-hash index and a block-height-to-hashes
// index, mirroring transaction_database.hpp's store/candidate/confirm
// surface over the same core.
package txndb

import (
	"bytes"
	"encoding/binary"

	"golang.org/x/crypto/blake2b"
)

// Hash identifies a transaction by content hash.
type Hash [32]byte

// TxRecord is the head tuple, lifted field-for-field from
// transaction_tuple.hpp (attributes "ordered for alignment" there;
// order carries no meaning here beyond matching the source).
type TxRecord struct {
	Height         uint32
	MedianTimePast uint32
	Locktime       uint32
	Version        uint32
	Position       uint16
	Candidate      bool
	WitnessFlag    bool
}

// TxPatch is the delta tuple: transaction_tuple_delta.hpp carries only
// candidate and position, the two fields that change as a pooled
// transaction moves onto and off of the candidate chain.
type TxPatch struct {
	Candidate bool
	Position  uint16
}

// ContentHash content-hashes the fields that identify a transaction
// independent of its chain-membership history, using blake2b-256 in
// place of the teacher's PoW-tuned argon2 digest.
func ContentHash(r TxRecord) Hash {
	var buf bytes.Buffer
	binary.Write(&buf, binary.BigEndian, r.Locktime)
	binary.Write(&buf, binary.BigEndian, r.Version)
	return blake2b.Sum256(buf.Bytes())
}

