// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package config

import (
	"path"
	"path/filepath"

	"github.com/bitmark-inc/logger"
	"github.com/fsnotify/fsnotify"
)

// PoolLimiter is the subset of memblock.Pool's API the watcher needs
// to apply a reloaded configuration; accepting it as an interface
// keeps this package free of a generic type parameter it would
// otherwise have to thread through just to watch a file.
type PoolLimiter interface {
	SetSizeLimit(newLimit uint64) bool
	SetReuseLimit(newLimit uint64)
}

// Watcher reloads a config file on every write and applies the
// file's pool limits to a fixed set of registered pools. Grounded on
// the teacher's command/recorderd file watcher: one fsnotify.Watcher,
// one goroutine reading its event channel, filtering on base name.
type Watcher struct {
	log      *logger.L
	watcher  *fsnotify.Watcher
	filePath string
	pools    map[string]PoolLimiter
	changed  chan struct{}
}

// NewWatcher constructs a watcher over fileName. pools maps an HCL
// block name (e.g. "block_headers") to the live pool whose limits
// that block configures.
func NewWatcher(fileName string, pools map[string]PoolLimiter) (*Watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	filePath, err := filepath.Abs(filepath.Clean(fileName))
	if err != nil {
		w.Close()
		return nil, err
	}

	return &Watcher{
		log:      logger.New("config"),
		watcher:  w,
		filePath: filePath,
		pools:    pools,
		changed:  make(chan struct{}, 1),
	}, nil
}

// Start begins watching the config file. Every detected write
// triggers a reload and a limit push into the registered pools. A
// reparse failure is logged and leaves every limit untouched; a
// rejected size_limit is logged and leaves that pool's size limit as
// it was, while its reuse_limit is still applied.
func (w *Watcher) Start() error {
	if err := w.watcher.Add(w.filePath); err != nil {
		w.log.Errorf("watcher add error: %v, abort", err)
		return err
	}

	go func() {
		for event := range w.watcher.Events {
			if path.Base(event.Name) != path.Base(w.filePath) {
				continue
			}
			if !fileChanged(event) {
				continue
			}
			w.reload()
		}
	}()

	return nil
}

// Close stops watching the config file.
func (w *Watcher) Close() error {
	return w.watcher.Close()
}

func (w *Watcher) reload() {
	cfg := Config{}
	if err := ParseFile(w.filePath, &cfg); err != nil {
		w.log.Errorf("reload config %s failed: %v", w.filePath, err)
		return
	}

	apply := map[string]PoolConfig{
		"block_headers": cfg.BlockHeaders,
		"block_deltas":  cfg.BlockDeltas,
		"transactions":  cfg.Transactions,
		"tx_deltas":     cfg.TxDeltas,
	}
	for name, limiter := range w.pools {
		poolCfg, ok := apply[name]
		if !ok {
			continue
		}
		if poolCfg.SizeLimit > 0 {
			if !limiter.SetSizeLimit(poolCfg.SizeLimit) {
				w.log.Errorf("reload config %s: pool %q size_limit %d rejected, below current size", w.filePath, name, poolCfg.SizeLimit)
			}
		}
		limiter.SetReuseLimit(poolCfg.ReuseLimit)
	}

	select {
	case w.changed <- struct{}{}:
	default:
		w.log.Info("change notification channel full, discarding")
	}
}

// Changed reports a channel that receives a notification after every
// reload whose file parsed, including one whose size_limit was
// rejected. A reload that fails to parse sends no notification.
func (w *Watcher) Changed() <-chan struct{} {
	return w.changed
}

func fileChanged(event fsnotify.Event) bool {
	return event.Op&fsnotify.Write == fsnotify.Write ||
		event.Op&fsnotify.Chmod == fsnotify.Chmod
}
