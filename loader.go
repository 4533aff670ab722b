// Package loadframe batch-coalesces concurrent key lookups behind a
// request-scoped cache, primarily to mitigate GraphQL's N+1 problem.
//
// A Loader exposes Load/LoadMany/Prime/PrimeMany/Clear/ClearMany over a
// user-supplied BatchFunc. Internally every call is converted into an
// operation message and handed to a single worker goroutine, which
// groups whatever arrives within one scheduler turn into an "execution
// frame" and invokes BatchFunc at most once per frame.
package loadframe

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"
)

// ErrLoaderClosed is the reason Load/LoadMany/Prime/etc. panic when
// called after Close. The handle is expected to outlive every
// outstanding call (spec.md §4.1); a send after close is a programmer
// error, not a recoverable runtime condition, so it panics rather than
// threading an error return through every method's signature.
var ErrLoaderClosed = errors.New("loadframe: loader is closed")

// Loader is the public façade described by spec.md §4.1. It owns the
// worker's lifetime: the worker runs until Close is called.
type Loader[K comparable, V any, C any] struct {
	queue  *opQueue[loaderOp[K, V]]
	tracer Tracer[K, V]
	logger *zap.Logger
	tag    string

	stats     *Stats
	statsSink StatsSink

	closeOnce sync.Once
	closed    chan struct{}
	done      chan struct{}
}

// NewLoader constructs a Loader backed by batchFn, sharing userCtx
// across every batch invocation. Unlike a per-call context, userCtx is
// supplied once at construction and is not affected by any individual
// Load's context.
func NewLoader[K comparable, V any, C any](batchFn BatchFunc[K, V, C], userCtx C, opts ...Option[K, V, C]) *Loader[K, V, C] {
	cfg := defaultConfig[K, V, C]()
	for _, opt := range opts {
		opt(cfg)
	}

	queue := newOpQueue[loaderOp[K, V]]()
	w := newWorker[K, V, C](cfg, batchFn, userCtx, queue, cfg.logger)

	l := &Loader[K, V, C]{
		queue:     queue,
		tracer:    cfg.tracer,
		logger:    cfg.logger,
		tag:       cfg.tag,
		stats:     w.stats,
		statsSink: cfg.statsSink,
		closed:    make(chan struct{}),
		done:      make(chan struct{}),
	}

	go func() {
		defer close(l.done)
		w.run()
	}()

	return l
}

func (l *Loader[K, V, C]) checkOpen() {
	select {
	case <-l.closed:
		panic(ErrLoaderClosed)
	default:
	}
}

// Load resolves a single key, waiting on the cache or the next
// execution frame's batch function as needed. If ctx is canceled
// before a reply arrives, Load returns None without waiting for the
// worker — the request remains staged and its reply is simply never
// read.
func (l *Loader[K, V, C]) Load(ctx context.Context, key K) Option[V] {
	l.checkOpen()

	traceCtx, finish := l.tracer.TraceLoad(ctx, key)
	ch := make(chan Option[V], 1)
	l.queue.send(loadOp[K, V]{ctx: traceCtx, request: oneRequest[K, V]{key: key, ch: ch}})

	var result Option[V]
	select {
	case result = <-ch:
	case <-ctx.Done():
	}
	finish(result)
	return result
}

// LoadMany resolves keys, returning one Option per key in input order.
// Duplicate keys are permitted and do not cause duplicate backend
// loads: each position is resolved independently from the cache after
// the underlying key set is deduplicated for the batch function.
func (l *Loader[K, V, C]) LoadMany(ctx context.Context, keys []K) []Option[V] {
	l.checkOpen()

	traceCtx, finish := l.tracer.TraceLoadMany(ctx, keys)
	ch := make(chan []Option[V], 1)
	l.queue.send(loadOp[K, V]{ctx: traceCtx, request: manyRequest[K, V]{keysList: keys, ch: ch}})

	var result []Option[V]
	select {
	case result = <-ch:
	case <-ctx.Done():
		result = make([]Option[V], len(keys))
	}
	finish(result)
	return result
}

// Prime inserts a value into the cache out of band. Fire-and-forget:
// the cache mutation is only observable to subsequent Load calls, not
// to the caller of Prime itself. ctx is accepted for symmetry with
// Load/LoadMany but isn't threaded any further: the mutation carries no
// trace span and can't be canceled once sent (spec.md §4.1 describes
// it as a plain send, not an awaited call).
func (l *Loader[K, V, C]) Prime(ctx context.Context, key K, value V) {
	l.checkOpen()
	l.queue.send(primeOp[K, V]{key: key, value: value})
}

// PrimeMany is the bulk form of Prime.
func (l *Loader[K, V, C]) PrimeMany(ctx context.Context, pairs []KeyValue[K, V]) {
	l.checkOpen()
	l.queue.send(primeManyOp[K, V]{pairs: pairs})
}

// Clear removes a key from the cache. It will be reloaded when next
// requested.
func (l *Loader[K, V, C]) Clear(ctx context.Context, key K) {
	l.checkOpen()
	l.queue.send(clearOp[K, V]{key: key})
}

// ClearMany is the bulk form of Clear.
func (l *Loader[K, V, C]) ClearMany(ctx context.Context, keys []K) {
	l.checkOpen()
	l.queue.send(clearManyOp[K, V]{keys: keys})
}

// Close terminates the worker goroutine once it finishes draining any
// operations already sent, and blocks until it has exited or ctx is
// canceled first. Once Close returns, every other method panics with
// ErrLoaderClosed. If a StatsSink was configured, the final Stats
// snapshot is delivered to it, and an Info line is logged, before
// Close returns.
//
// The reference implementation this worker loop is drawn from has no
// equivalent explicit shutdown — dropping its handle aborts the
// underlying task. A Loader that is garbage collected without a call
// to Close leaks its worker goroutine until the operation queue itself
// is collected; call Close from whatever owns the Loader's lifetime.
func (l *Loader[K, V, C]) Close(ctx context.Context) error {
	l.closeOnce.Do(func() {
		close(l.closed)
		l.queue.close()
	})

	select {
	case <-l.done:
	case <-ctx.Done():
		return ctx.Err()
	}

	if l.stats != nil {
		snap := l.stats.snapshot()
		l.logger.Info("loadframe worker stats",
			zap.String("tag", l.tag),
			zap.Uint64("load_requests", snap.LoadRequests),
			zap.Uint64("items_requested", snap.ItemsRequested),
			zap.Uint64("cache_hits", snap.CacheHits),
			zap.Uint64("batch_executions", snap.BatchExecutions),
			zap.Uint64("items_loaded", snap.ItemsLoaded),
		)
		if l.statsSink != nil {
			l.statsSink.ObserveStats(l.tag, snap)
		}
	}

	return nil
}
