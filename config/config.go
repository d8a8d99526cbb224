// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package config loads engine configuration from an HCL file, the
// same format and reflect-validated decode the teacher uses in
// configuration/hclreader.go, and watches that file for edits so a
// running pool's size/reuse limits can be adjusted without a
// restart.
package config

import (
	"io/ioutil"
	"os"
	"reflect"

	"github.com/hashicorp/hcl"

	"github.com/kulpreet/libbitcoin-mvcc-database/fault"
)

// PoolConfig describes one memblock.Pool's limits as read from file.
type PoolConfig struct {
	SizeLimit  uint64 `hcl:"size_limit"`
	ReuseLimit uint64 `hcl:"reuse_limit"`
}

// IndexConfig describes one index.Index backend's configuration.
type IndexConfig struct {
	MemorySize  int    `hcl:"memory_size"`
	LevelDBPath string `hcl:"leveldb_path"`
}

// Config is the engine's top-level configuration, decoded from HCL.
type Config struct {
	BlockHeaders  PoolConfig  `hcl:"block_headers"`
	BlockDeltas   PoolConfig  `hcl:"block_deltas"`
	Transactions  PoolConfig  `hcl:"transactions"`
	TxDeltas      PoolConfig  `hcl:"tx_deltas"`
	BlockIndex    IndexConfig `hcl:"block_index"`
	TxIndex       IndexConfig `hcl:"tx_index"`
	MetricsListen string      `hcl:"metrics_listen"`
}

// ParseFile reads fileName and decodes it into config, following the
// teacher's reflect-validate-then-hcl.Unmarshal pattern: config must
// be a non-nil pointer to a struct.
func ParseFile(fileName string, config interface{}) error {
	rv := reflect.ValueOf(config)
	if rv.Kind() != reflect.Ptr || rv.IsNil() {
		return fault.ErrInvalidStructPointer
	}
	if rv.Elem().Kind() != reflect.Struct {
		return fault.ErrInvalidStructPointer
	}

	f, err := os.Open(fileName)
	if err != nil {
		return err
	}
	defer f.Close()

	b, err := ioutil.ReadAll(f)
	if err != nil {
		return err
	}

	return hcl.Unmarshal(b, config)
}
