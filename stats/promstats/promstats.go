// Package promstats mirrors a loadframe.Stats snapshot onto Prometheus
// collectors, registered once by New, with one label series per tag
// created the first time that tag reports.
//
// Grounded in Voskan/arena-cache's pkg/metrics.go metricsSink split.
// This package holds only the label-vectored Prometheus side (labeled
// by loader tag rather than shard); the no-op side is a Loader with no
// StatsSink installed.
package promstats

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/graph-gophers/loadframe"
)

var _ loadframe.StatsSink = (*Sink)(nil)

// Sink is a loadframe.StatsSink backed by Prometheus GaugeVec/CounterVec
// collectors labeled by tag. A single Sink may be shared by every
// Loader in a process; each distinct tag gets its own label series.
type Sink struct {
	loadRequests    *prometheus.CounterVec
	itemsRequested  *prometheus.CounterVec
	cacheHits       *prometheus.CounterVec
	batchExecutions *prometheus.CounterVec
	itemsLoaded     *prometheus.CounterVec
	avgBatchSize    *prometheus.GaugeVec
	minBatchSize    *prometheus.GaugeVec
	maxBatchSize    *prometheus.GaugeVec
	minBatchUnique  *prometheus.GaugeVec
	maxBatchUnique  *prometheus.GaugeVec

	mu       sync.Mutex
	observed map[string]struct{}
}

// New constructs a Sink and registers its collectors with reg.
func New(reg prometheus.Registerer) *Sink {
	label := []string{"tag"}
	s := &Sink{
		loadRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "loadframe", Name: "load_requests_total",
			Help: "Number of Load/LoadMany operations drained by the worker.",
		}, label),
		itemsRequested: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "loadframe", Name: "items_requested_total",
			Help: "Total number of keys across all drained load requests.",
		}, label),
		cacheHits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "loadframe", Name: "cache_hits_total",
			Help: "Number of requested keys found in cache during drain.",
		}, label),
		batchExecutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "loadframe", Name: "batch_executions_total",
			Help: "Number of times the batch function was invoked.",
		}, label),
		itemsLoaded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "loadframe", Name: "items_loaded_total",
			Help: "Total (key, value) pairs returned by the batch function.",
		}, label),
		avgBatchSize: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "loadframe", Name: "batch_size_avg",
			Help: "Running average of non-deduplicated misses per frame.",
		}, label),
		minBatchSize: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "loadframe", Name: "batch_size_min",
			Help: "Minimum non-deduplicated misses seen in a frame.",
		}, label),
		maxBatchSize: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "loadframe", Name: "batch_size_max",
			Help: "Maximum non-deduplicated misses seen in a frame.",
		}, label),
		minBatchUnique: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "loadframe", Name: "batch_size_unique_min",
			Help: "Minimum deduplicated key count passed to the batch function.",
		}, label),
		maxBatchUnique: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "loadframe", Name: "batch_size_unique_max",
			Help: "Maximum deduplicated key count passed to the batch function.",
		}, label),
		observed: make(map[string]struct{}),
	}

	reg.MustRegister(
		s.loadRequests, s.itemsRequested, s.cacheHits, s.batchExecutions,
		s.itemsLoaded, s.avgBatchSize, s.minBatchSize, s.maxBatchSize,
		s.minBatchUnique, s.maxBatchUnique,
	)
	return s
}

// ObserveStats implements loadframe.StatsSink. Loader.Close calls it
// with the final cumulative snapshot; each counter is incremented by
// the snapshot's total and each gauge is set to the snapshot's value,
// so several Loaders sharing a tag add their totals to one series.
func (s *Sink) ObserveStats(tag string, stats loadframe.Stats) {
	s.mu.Lock()
	s.observed[tag] = struct{}{}
	s.mu.Unlock()

	addTo(s.loadRequests.WithLabelValues(tag), float64(stats.LoadRequests))
	addTo(s.itemsRequested.WithLabelValues(tag), float64(stats.ItemsRequested))
	addTo(s.cacheHits.WithLabelValues(tag), float64(stats.CacheHits))
	addTo(s.batchExecutions.WithLabelValues(tag), float64(stats.BatchExecutions))
	addTo(s.itemsLoaded.WithLabelValues(tag), float64(stats.ItemsLoaded))

	s.avgBatchSize.WithLabelValues(tag).Set(stats.AvgBatchSize)
	s.minBatchSize.WithLabelValues(tag).Set(float64(stats.MinBatchSize))
	s.maxBatchSize.WithLabelValues(tag).Set(float64(stats.MaxBatchSize))
	s.minBatchUnique.WithLabelValues(tag).Set(float64(stats.MinBatchUnique))
	s.maxBatchUnique.WithLabelValues(tag).Set(float64(stats.MaxBatchUnique))
}

func addTo(c prometheus.Counter, total float64) {
	c.Add(total)
}
