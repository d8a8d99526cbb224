// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package blockdb is a façade composing accessor.Accessor[BlockHeader,
// BlockPatch] with height and hash indexes, mirroring the interface
// block_database.cpp exposes over the same core: store/get by hash,
// get by height on either the candidate or confirmed chain, and
// promote/demote/validate/invalidate as state-only deltas.
package blockdb

import (
	"bytes"
	"encoding/binary"

	"golang.org/x/crypto/blake2b"
)

// Hash identifies a block header by content hash.
type Hash [32]byte

// BlockHeader is the head tuple: libbitcoin's block_tuple fields
// (previous_block_hash, merkle_root, version, timestamp, bits, nonce,
// height, median_time_past, checksum, state), lifted verbatim from
// block_database.cpp's store().
type BlockHeader struct {
	PreviousBlockHash Hash
	MerkleRoot        Hash
	Version           uint32
	Timestamp         uint32
	Bits              uint32
	Nonce             uint32

	Height         uint64
	MedianTimePast uint32
	Checksum       uint32
	State          State
}

// BlockPatch is the delta tuple. Every block_database.cpp mutation
// (promote, demote, validate, invalidate) writes only the state byte;
// every other field is set once at store() time and never revised.
type BlockPatch struct {
	State State
}

// HeaderHash content-hashes the six header fields that identify a
// block independent of its confirmation/validation history, using
// blake2b-256 in place of the teacher's PoW-tuned argon2 digest (out
// of scope here — this hash is an index key, not a proof of work).
func HeaderHash(h BlockHeader) Hash {
	var buf bytes.Buffer
	buf.Write(h.PreviousBlockHash[:])
	buf.Write(h.MerkleRoot[:])
	binary.Write(&buf, binary.BigEndian, h.Version)
	binary.Write(&buf, binary.BigEndian, h.Timestamp)
	binary.Write(&buf, binary.BigEndian, h.Bits)
	binary.Write(&buf, binary.BigEndian, h.Nonce)
	return blake2b.Sum256(buf.Bytes())
}

// heightKey encodes a block height as the big-endian byte string an
// index.Index uses as its key, matching the teacher's PoolHandle
// convention of raw byte keys over typed ones.
func heightKey(height uint64) []byte {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, height)
	return key
}
