// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// storectl is a small CLI demonstrating the engine end to end: it
// wires pools, stores, indexes, and façades together the way a node
// would, then either runs a scripted demo sequence against them or
// serves the resulting metrics over HTTP. It follows the teacher's
// command/bitmark-cli main.go shape: a urfave/cli app with a small
// fixed set of subcommands and an optional config file (--config)
// read by each subcommand before it builds its engine.
package main

import (
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/urfave/cli"

	"github.com/kulpreet/libbitcoin-mvcc-database/accessor"
	"github.com/kulpreet/libbitcoin-mvcc-database/blockdb"
	"github.com/kulpreet/libbitcoin-mvcc-database/config"
	"github.com/kulpreet/libbitcoin-mvcc-database/fault"
	"github.com/kulpreet/libbitcoin-mvcc-database/index"
	"github.com/kulpreet/libbitcoin-mvcc-database/memblock"
	"github.com/kulpreet/libbitcoin-mvcc-database/metrics"
	"github.com/kulpreet/libbitcoin-mvcc-database/mvcc"
	"github.com/kulpreet/libbitcoin-mvcc-database/store"
	"github.com/kulpreet/libbitcoin-mvcc-database/txn"
	"github.com/kulpreet/libbitcoin-mvcc-database/txndb"
)

var version = "zero" // set by the linker: go build -ldflags "-X main.version=M.N" ./...

// poolStats is the slice of memblock.Pool's API refreshMetrics needs;
// every *memblock.Pool[R] satisfies it regardless of R.
type poolStats interface {
	CurrentSize() uint64
	FreeListLen() int
}

// storeStats is the slice of store.Store's API refreshMetrics needs.
type storeStats interface {
	BlockCount() int
}

// instrumentedPool pairs a registered PoolGauges with the live pool it
// reports on and that pool's configured reuse limit (the pool itself
// exposes no getter for it).
type instrumentedPool struct {
	gauges     *metrics.PoolGauges
	pool       poolStats
	reuseLimit uint64
}

type instrumentedStore struct {
	gauges *metrics.StoreGauges
	store  storeStats
}

// engine bundles the façades and metrics a single process wires
// together, matching block_database/transaction_database's own
// "one instance per running node" lifecycle.
type engine struct {
	manager       *txn.Manager
	blocks        *blockdb.BlockDatabase
	txs           *txndb.TransactionDatabase
	blockCounters *metrics.AccessorCounters
	txCounters    *metrics.AccessorCounters

	pools  []instrumentedPool
	stores []instrumentedStore
}

// refreshMetrics copies current pool/store occupancy into the gauges
// registered for them. Callers invoke it after a batch of operations
// that may have grown a pool or allocated a new block.
func (e *engine) refreshMetrics() {
	for _, p := range e.pools {
		p.gauges.CurrentSize.Set(float64(p.pool.CurrentSize()))
		p.gauges.ReuseLimit.Set(float64(p.reuseLimit))
		p.gauges.FreeListLen.Set(float64(p.pool.FreeListLen()))
	}
	for _, s := range e.stores {
		s.gauges.BlockCount.Set(float64(s.store.BlockCount()))
	}
}

func newEngine(cfg config.Config) (*engine, error) {
	blockSize := cfg.BlockHeaders.SizeLimit
	if blockSize == 0 {
		blockSize = 1024
	}
	blockReuse := cfg.BlockHeaders.ReuseLimit
	if blockReuse == 0 {
		blockReuse = 256
	}
	deltaSize := cfg.BlockDeltas.SizeLimit
	if deltaSize == 0 {
		deltaSize = 1024
	}
	deltaReuse := cfg.BlockDeltas.ReuseLimit
	if deltaReuse == 0 {
		deltaReuse = 256
	}

	blockHeadPool := memblock.NewPool[mvcc.Version[blockdb.BlockHeader]](blockSize, blockReuse)
	blockHeadStore, err := store.New(blockHeadPool)
	if err != nil {
		return nil, err
	}
	blockDeltaPool := memblock.NewPool[mvcc.Version[blockdb.BlockPatch]](deltaSize, deltaReuse)
	blockDeltaStore, err := store.New(blockDeltaPool)
	if err != nil {
		return nil, err
	}
	blockAccessor := accessor.New(blockHeadStore, blockDeltaStore)

	txSize := cfg.Transactions.SizeLimit
	if txSize == 0 {
		txSize = 4096
	}
	txReuse := cfg.Transactions.ReuseLimit
	if txReuse == 0 {
		txReuse = 1024
	}
	txDeltaSize := cfg.TxDeltas.SizeLimit
	if txDeltaSize == 0 {
		txDeltaSize = 4096
	}
	txDeltaReuse := cfg.TxDeltas.ReuseLimit
	if txDeltaReuse == 0 {
		txDeltaReuse = 1024
	}

	txHeadPool := memblock.NewPool[mvcc.Version[txndb.TxRecord]](txSize, txReuse)
	txHeadStore, err := store.New(txHeadPool)
	if err != nil {
		return nil, err
	}
	txDeltaPool := memblock.NewPool[mvcc.Version[txndb.TxPatch]](txDeltaSize, txDeltaReuse)
	txDeltaStore, err := store.New(txDeltaPool)
	if err != nil {
		return nil, err
	}
	txAccessor := accessor.New(txHeadStore, txDeltaStore)

	blockIndexSize := cfg.BlockIndex.MemorySize
	if blockIndexSize == 0 {
		blockIndexSize = 4096
	}
	hashIndex, err := index.NewMemoryIndex(blockIndexSize)
	if err != nil {
		return nil, err
	}
	candidateIndex, err := index.NewMemoryIndex(blockIndexSize)
	if err != nil {
		return nil, err
	}
	confirmedIndex, err := index.NewMemoryIndex(blockIndexSize)
	if err != nil {
		return nil, err
	}

	txIndexSize := cfg.TxIndex.MemorySize
	if txIndexSize == 0 {
		txIndexSize = 4096
	}
	txHashIndex, err := index.NewMemoryIndex(txIndexSize)
	if err != nil {
		return nil, err
	}

	e := &engine{
		manager:       txn.NewManager(),
		blocks:        blockdb.New(blockAccessor, hashIndex, candidateIndex, confirmedIndex),
		txs:           txndb.New(txAccessor, txHashIndex),
		blockCounters: metrics.NewAccessorCounters("blocks"),
		txCounters:    metrics.NewAccessorCounters("transactions"),
	}

	e.pools = []instrumentedPool{
		{gauges: metrics.NewPoolGauges("block_heads"), pool: blockHeadPool, reuseLimit: blockReuse},
		{gauges: metrics.NewPoolGauges("block_deltas"), pool: blockDeltaPool, reuseLimit: deltaReuse},
		{gauges: metrics.NewPoolGauges("transactions"), pool: txHeadPool, reuseLimit: txReuse},
		{gauges: metrics.NewPoolGauges("tx_deltas"), pool: txDeltaPool, reuseLimit: txDeltaReuse},
	}
	e.stores = []instrumentedStore{
		{gauges: metrics.NewStoreGauges("block_heads"), store: blockHeadStore},
		{gauges: metrics.NewStoreGauges("block_deltas"), store: blockDeltaStore},
		{gauges: metrics.NewStoreGauges("transactions"), store: txHeadStore},
		{gauges: metrics.NewStoreGauges("tx_deltas"), store: txDeltaStore},
	}
	e.refreshMetrics()

	return e, nil
}

// runDemo exercises the engine the way a node's block/transaction
// acceptance path would: store a block, promote it onto the candidate
// then confirmed chain, store and confirm one transaction in it.
func (e *engine) runDemo(w io.Writer) error {
	ctx1 := e.manager.BeginTransaction()
	hash, err := e.blocks.Store(ctx1, blockdb.BlockHeader{Height: 1, Version: 1, Bits: 0x1d00ffff})
	if err != nil {
		return err
	}
	e.blockCounters.Puts.Inc()
	e.manager.CommitTransaction(ctx1)
	e.blockCounters.Commits.Inc()
	fmt.Fprintf(w, "stored block at height 1, hash=%x\n", hash)

	ctx2 := e.manager.BeginTransaction()
	if ok, err := e.blocks.Promote(ctx2, hash, 1, true); err != nil || !ok {
		return fmt.Errorf("promote to candidate: ok=%v err=%v", ok, err)
	}
	e.blockCounters.Updates.Inc()
	e.manager.CommitTransaction(ctx2)
	e.blockCounters.Commits.Inc()
	fmt.Fprintln(w, "promoted block to candidate chain")

	ctx3 := e.manager.BeginTransaction()
	if ok, err := e.blocks.Promote(ctx3, hash, 1, false); err != nil || !ok {
		return fmt.Errorf("promote to confirmed: ok=%v err=%v", ok, err)
	}
	e.blockCounters.Updates.Inc()
	e.manager.CommitTransaction(ctx3)
	e.blockCounters.Commits.Inc()
	fmt.Fprintln(w, "promoted block to confirmed chain")

	ctx4 := e.manager.BeginTransaction()
	if ok, err := e.blocks.Validate(ctx4, hash, true); err != nil || !ok {
		return fmt.Errorf("validate block: ok=%v err=%v", ok, err)
	}
	e.blockCounters.Updates.Inc()
	e.manager.CommitTransaction(ctx4)
	e.blockCounters.Commits.Inc()
	fmt.Fprintln(w, "validated block")

	// Demonstrate the write-read conflict guarantee: a writer begun
	// before a reader that has already observed the chain must be
	// rejected rather than silently overwrite what the reader saw.
	olderWriter := e.manager.BeginTransaction()
	newerReader := e.manager.BeginTransaction()
	if _, ok := e.blocks.Get(newerReader, hash); !ok {
		return fmt.Errorf("expected newer reader to observe the stored block")
	}
	if ok, err := e.blocks.Validate(olderWriter, hash, false); err == fault.ErrWriteReadConflict {
		e.blockCounters.Conflicts.Inc()
		olderWriter.Abort()
		e.blockCounters.Aborts.Inc()
		fmt.Fprintf(w, "older writer correctly rejected with a write-read conflict: %v\n", err)
	} else {
		return fmt.Errorf("expected older writer to be rejected by the newer reader's mark: ok=%v err=%v", ok, err)
	}

	ctx5 := e.manager.BeginTransaction()
	txHash, err := e.txs.Store(ctx5, txndb.TxRecord{Version: 1})
	if err != nil {
		return err
	}
	e.txCounters.Puts.Inc()
	e.manager.CommitTransaction(ctx5)
	e.txCounters.Commits.Inc()
	fmt.Fprintf(w, "stored transaction, hash=%x\n", txHash)

	ctx6 := e.manager.BeginTransaction()
	if ok, err := e.txs.Confirm(ctx6, txHash, 1, 0); err != nil || !ok {
		return fmt.Errorf("confirm transaction: ok=%v err=%v", ok, err)
	}
	e.txCounters.Updates.Inc()
	e.manager.CommitTransaction(ctx6)
	e.txCounters.Commits.Inc()
	fmt.Fprintln(w, "confirmed transaction into block 1")

	olderTxWriter := e.manager.BeginTransaction()
	newerTxReader := e.manager.BeginTransaction()
	if _, ok := e.txs.Get(newerTxReader, txHash); !ok {
		return fmt.Errorf("expected newer reader to observe the stored transaction")
	}
	if ok, err := e.txs.Candidate(olderTxWriter, txHash); err == fault.ErrWriteReadConflict {
		e.txCounters.Conflicts.Inc()
		olderTxWriter.Abort()
		e.txCounters.Aborts.Inc()
		fmt.Fprintf(w, "older transaction writer correctly rejected with a write-read conflict: %v\n", err)
	} else {
		return fmt.Errorf("expected older tx writer to be rejected by the newer reader's mark: ok=%v err=%v", ok, err)
	}

	ctx7 := e.manager.BeginTransaction()
	header, ok := e.blocks.Get(ctx7, hash)
	if !ok {
		return fmt.Errorf("read back stored block: not found")
	}
	fmt.Fprintf(w, "read back block: height=%d state=%v\n", header.Height, header.State)

	e.refreshMetrics()
	return nil
}

func main() {
	app := cli.NewApp()
	app.Name = "storectl"
	app.Usage = "demonstrate the in-memory MVCC block/transaction store"
	app.Version = version
	app.HideVersion = true
	app.Writer = os.Stdout
	app.ErrWriter = os.Stderr

	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:  "config, c",
			Value: "",
			Usage: "read pool/index limits from `FILE` (HCL); defaults are used if omitted",
		},
	}

	app.Commands = []cli.Command{
		{
			Name:  "demo",
			Usage: "run a scripted block + transaction sequence against a fresh engine",
			Action: func(c *cli.Context) error {
				e, err := buildEngine(c)
				if err != nil {
					return err
				}
				return e.runDemo(c.App.Writer)
			},
		},
		{
			Name:  "serve-metrics",
			Usage: "build a fresh engine, run the demo sequence, then serve /metrics on the given address",
			Flags: []cli.Flag{
				cli.StringFlag{
					Name:  "listen, l",
					Value: "127.0.0.1:9101",
					Usage: "listen `ADDRESS` for the Prometheus metrics endpoint",
				},
			},
			Action: func(c *cli.Context) error {
				e, err := buildEngine(c)
				if err != nil {
					return err
				}
				if err := e.runDemo(c.App.Writer); err != nil {
					return err
				}
				listen := c.String("listen")
				fmt.Fprintf(c.App.Writer, "serving metrics on %s/metrics\n", listen)
				http.Handle("/metrics", promhttp.Handler())
				return http.ListenAndServe(listen, nil)
			},
		},
		{
			Name:  "version",
			Usage: "display storectl version",
			Action: func(c *cli.Context) error {
				fmt.Fprintf(c.App.Writer, "%s\n", version)
				return nil
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(app.ErrWriter, "terminated with error: %s\n", err)
		os.Exit(1)
	}
}

func buildEngine(c *cli.Context) (*engine, error) {
	var cfg config.Config
	if file := c.GlobalString("config"); file != "" {
		if err := config.ParseFile(file, &cfg); err != nil {
			return nil, err
		}
	}
	return newEngine(cfg)
}
