// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package index

import (
	"encoding/binary"

	"github.com/bitmark-inc/logger"
	"github.com/syndtr/goleveldb/leveldb"
	ldb_opt "github.com/syndtr/goleveldb/leveldb/opt"

	"github.com/kulpreet/libbitcoin-mvcc-database/slot"
)

// LevelDBIndex persists key->slot assignments to a leveldb database,
// following the teacher's PoolHandle: slots are stored as 8-byte
// big-endian values, keys are used as-is (callers already hash
// variable-length inputs down to a fixed key before calling in).
type LevelDBIndex struct {
	db  *leveldb.DB
	log *logger.L
}

// OpenLevelDBIndex opens (creating if absent) a leveldb index at dir.
func OpenLevelDBIndex(dir string) (*LevelDBIndex, error) {
	opt := &ldb_opt.Options{
		ErrorIfMissing: false,
	}
	db, err := leveldb.OpenFile(dir, opt)
	if err != nil {
		return nil, err
	}
	log := logger.New("index-leveldb")
	log.Infof("opened leveldb index at %s", dir)
	return &LevelDBIndex{db: db, log: log}, nil
}

func (l *LevelDBIndex) Get(key []byte) (slot.Slot, bool) {
	value, err := l.db.Get(key, nil)
	if err != nil {
		return slot.Uninitialized, false
	}
	if len(value) < 8 {
		return slot.Uninitialized, false
	}
	return slot.Slot(binary.BigEndian.Uint64(value[:8])), true
}

func (l *LevelDBIndex) Put(key []byte, sl slot.Slot) error {
	value := make([]byte, 8)
	binary.BigEndian.PutUint64(value, uint64(sl))
	if err := l.db.Put(key, value, nil); err != nil {
		l.log.Debugf("put failed: %v", err)
		return err
	}
	return nil
}

func (l *LevelDBIndex) Delete(key []byte) error {
	if err := l.db.Delete(key, nil); err != nil {
		l.log.Debugf("delete failed: %v", err)
		return err
	}
	return nil
}

func (l *LevelDBIndex) Close() error {
	l.log.Info("closing leveldb index")
	return l.db.Close()
}
