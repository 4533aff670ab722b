package loadframe

// Stats is the optional statistics collector from spec.md §6.5. It is
// not part of the core contract — a Loader constructed without
// WithStats never touches it — but when enabled the worker updates it
// synchronously on its own goroutine, so no field here needs atomics
// despite the concurrent producer side (spec.md §5: the worker is the
// sole mutator of its own state).
//
// original_source/src/worker_stats.rs is the direct ancestor of this
// type. Its record_load_exec_completed has a bug spec.md's Open
// Questions calls out explicitly: it updates max_batch_size/
// min_batch_size (the non-unique fields) using the unique batch size,
// shadowing the values record_load_exec already wrote. This type
// defines MinBatchUnique/MaxBatchUnique as genuinely separate fields,
// each written only by the statement that's supposed to write it.
type Stats struct {
	// LoadRequests is the number of Load/LoadMany operations the worker
	// has drained, regardless of how they were resolved.
	LoadRequests uint64
	// ItemsRequested is the total number of keys across all drained load
	// requests (a LoadMany of 3 keys counts as 3, not 1).
	ItemsRequested uint64
	// CacheHits is the number of requested keys found in the cache
	// during the drain phase. Hits inside a request that also has misses
	// are counted too, although that request's reply waits for the
	// frame's batch execution.
	CacheHits uint64
	// BatchExecutions is the number of times the batch function was
	// invoked (at most once per frame, spec.md §8 invariant 2).
	BatchExecutions uint64
	// ItemsLoaded is the total number of (key, value) pairs the batch
	// function returned, across all executions.
	ItemsLoaded uint64

	// AvgBatchSize, MinBatchSize, MaxBatchSize summarize the
	// non-deduplicated miss count handed to each frame (i.e. the sum of
	// per-request miss counts, duplicates included).
	AvgBatchSize float64
	MinBatchSize uint32
	MaxBatchSize uint32

	// MinBatchUnique, MaxBatchUnique summarize the deduplicated key
	// count actually passed to the batch function for each frame.
	MinBatchUnique uint32
	MaxBatchUnique uint32
}

func newStats() *Stats {
	return &Stats{MinBatchSize: ^uint32(0), MinBatchUnique: ^uint32(0)}
}

func (s *Stats) recordLoadRequest(itemsRequested int) {
	s.LoadRequests++
	s.ItemsRequested += uint64(itemsRequested)
}

func (s *Stats) recordCacheHits(hits int) {
	s.CacheHits += uint64(hits)
}

func (s *Stats) recordBatchExecution(totalBatchSize, uniqueBatchSize int) {
	s.BatchExecutions++
	n := float64(s.BatchExecutions)
	s.AvgBatchSize += (float64(totalBatchSize) - s.AvgBatchSize) / n

	total := uint32(totalBatchSize)
	if total > s.MaxBatchSize {
		s.MaxBatchSize = total
	}
	if total < s.MinBatchSize {
		s.MinBatchSize = total
	}

	unique := uint32(uniqueBatchSize)
	if unique > s.MaxBatchUnique {
		s.MaxBatchUnique = unique
	}
	if unique < s.MinBatchUnique {
		s.MinBatchUnique = unique
	}
}

func (s *Stats) recordItemsLoaded(n int) {
	s.ItemsLoaded += uint64(n)
}

// snapshot returns a copy safe to hand to a StatsSink or a caller,
// decoupled from further worker mutation.
func (s *Stats) snapshot() Stats {
	if s.MinBatchSize == ^uint32(0) {
		cp := *s
		cp.MinBatchSize = 0
		if cp.MinBatchUnique == ^uint32(0) {
			cp.MinBatchUnique = 0
		}
		return cp
	}
	return *s
}

// StatsSink receives the final Stats snapshot when a Loader shuts down.
// The default Loader has none configured; WithStats installs one.
// stats/promstats.Sink is the Prometheus-backed implementation.
type StatsSink interface {
	ObserveStats(tag string, s Stats)
}

// StatsSinkFunc adapts a plain function to a StatsSink.
type StatsSinkFunc func(tag string, s Stats)

func (f StatsSinkFunc) ObserveStats(tag string, s Stats) { f(tag, s) }
