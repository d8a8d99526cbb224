// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package metrics instruments the engine for Prometheus scraping:
// pool occupancy, store block counts, and accessor commit/abort/
// conflict rates. The teacher pulls prometheus/client_golang only
// indirectly (nothing in it registers a metric); this package is
// where the engine exercises it directly, using the library's own
// promauto idiom rather than a hand-rolled counter type.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PoolGauges tracks a memblock.Pool's occupancy for one named pool.
type PoolGauges struct {
	CurrentSize prometheus.Gauge
	ReuseLimit  prometheus.Gauge
	FreeListLen prometheus.Gauge
}

// NewPoolGauges registers occupancy gauges for a pool identified by
// name (e.g. "block_heads", "block_deltas").
func NewPoolGauges(name string) *PoolGauges {
	labels := prometheus.Labels{"pool": name}
	return &PoolGauges{
		CurrentSize: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace:   "mvcc",
			Subsystem:   "pool",
			Name:        "current_size",
			Help:        "Live blocks owned by this pool, in use or on its free list.",
			ConstLabels: labels,
		}),
		ReuseLimit: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace:   "mvcc",
			Subsystem:   "pool",
			Name:        "reuse_limit",
			Help:        "Configured reuse limit for this pool.",
			ConstLabels: labels,
		}),
		FreeListLen: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace:   "mvcc",
			Subsystem:   "pool",
			Name:        "free_list_length",
			Help:        "Blocks sitting on this pool's free list.",
			ConstLabels: labels,
		}),
	}
}

// StoreGauges tracks a store.Store's block count for one named store.
type StoreGauges struct {
	BlockCount prometheus.Gauge
}

// NewStoreGauges registers block-count gauges for a store identified
// by name.
func NewStoreGauges(name string) *StoreGauges {
	return &StoreGauges{
		BlockCount: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace:   "mvcc",
			Subsystem:   "store",
			Name:        "block_count",
			Help:        "Blocks currently held by this store.",
			ConstLabels: prometheus.Labels{"store": name},
		}),
	}
}

// AccessorCounters tracks put/update outcomes for one named accessor.
type AccessorCounters struct {
	Puts      prometheus.Counter
	Updates   prometheus.Counter
	Commits   prometheus.Counter
	Aborts    prometheus.Counter
	Conflicts prometheus.Counter
}

// NewAccessorCounters registers commit/abort/conflict counters for an
// accessor identified by name (e.g. "block_headers", "transactions").
func NewAccessorCounters(name string) *AccessorCounters {
	labels := prometheus.Labels{"accessor": name}
	counter := func(sub, help string) prometheus.Counter {
		return promauto.NewCounter(prometheus.CounterOpts{
			Namespace:   "mvcc",
			Subsystem:   "accessor",
			Name:        sub,
			Help:        help,
			ConstLabels: labels,
		})
	}
	return &AccessorCounters{
		Puts:      counter("puts_total", "Head versions inserted."),
		Updates:   counter("updates_total", "Deltas successfully spliced onto a chain."),
		Commits:   counter("commits_total", "Transactions committed."),
		Aborts:    counter("aborts_total", "Transactions aborted."),
		Conflicts: counter("conflicts_total", "Updates rejected for a latch or write-read conflict."),
	}
}
