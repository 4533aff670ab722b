package loadframe

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// worker is the LoaderWorker (spec.md §4.3): the single logical
// consumer that drains the operation queue, applies cache mutations
// immediately, accumulates misses across a drain, invokes the batch
// function once per execution frame, and resolves pending replies.
//
// Every method on worker runs exclusively on the goroutine started by
// run; nothing here needs synchronization, including the cache (see
// cache.go's doc comment) and the Stats accumulator.
type worker[K comparable, V any, C any] struct {
	cache   Cache[K, V]
	batchFn BatchFunc[K, V, C]
	ctx     C
	tracer  Tracer[K, V]
	logger  *zap.Logger
	stats   *Stats
	tag     string

	ops *opQueue[loaderOp[K, V]]

	keysToLoad      []K
	pendingRequests []pendingLoad[K, V]
}

// pendingLoad pairs a load request staged in phase 2 with the context
// it arrived with, so phase 3 can start the batch-execution trace span
// as a child of whichever caller's Load triggered this frame.
type pendingLoad[K comparable, V any] struct {
	ctx     context.Context
	request loadRequest[K, V]
}

func newWorker[K comparable, V any, C any](cfg *config[K, V, C], batchFn BatchFunc[K, V, C], ctx C, ops *opQueue[loaderOp[K, V]], logger *zap.Logger) *worker[K, V, C] {
	w := &worker[K, V, C]{
		cache:   cfg.cache,
		batchFn: batchFn,
		ctx:     ctx,
		tracer:  cfg.tracer,
		logger:  logger,
		tag:     cfg.tag,
		ops:     ops,
	}
	if cfg.statsSink != nil {
		w.stats = newStats()
	}
	return w
}

// run is the execution-frame loop (spec.md §4.3). It returns once the
// operation queue has been closed and fully drained.
func (w *worker[K, V, C]) run() {
	w.logger.Debug("loadframe worker starting", zap.String("tag", w.tag))
	defer w.logger.Debug("loadframe worker stopped", zap.String("tag", w.tag))

	for {
		// Phase 1: idle wait.
		op, ok := w.ops.recv()
		if !ok {
			return
		}
		w.apply(op)

		// Phase 2: drain until empty, without suspending. tryRecv pops
		// straight out of the queue's buffer under its mutex, so this
		// observes every op enqueued before this instant regardless of
		// how the pump goroutine (there isn't one) would have been
		// scheduled — unlike a try-receive on a channel fed one item at
		// a time, nothing here can appear empty while ops still sit
		// unseen in the buffer.
		for {
			op, ok := w.ops.tryRecv()
			if !ok {
				break
			}
			w.apply(op)
		}

		// Phase 3: execute, if the drain staged any misses.
		if len(w.pendingRequests) > 0 {
			w.executeFrame()
		}
	}
}

func (w *worker[K, V, C]) apply(op loaderOp[K, V]) {
	switch o := op.(type) {
	case loadOp[K, V]:
		w.applyLoad(o)
	case primeOp[K, V]:
		w.logger.Debug("loadframe: prime", zap.String("tag", w.tag))
		w.cache.Insert(o.key, o.value)
	case primeManyOp[K, V]:
		w.logger.Debug("loadframe: prime many", zap.String("tag", w.tag), zap.Int("count", len(o.pairs)))
		w.cache.InsertMany(o.pairs)
	case clearOp[K, V]:
		w.logger.Debug("loadframe: clear", zap.String("tag", w.tag))
		w.cache.Remove([]K{o.key})
	case clearManyOp[K, V]:
		w.logger.Debug("loadframe: clear many", zap.String("tag", w.tag), zap.Int("count", len(o.keys)))
		w.cache.Remove(o.keys)
	default:
		panic(fmt.Sprintf("loadframe: unknown loaderOp %T", op))
	}
}

func (w *worker[K, V, C]) applyLoad(o loadOp[K, V]) {
	keys := o.request.keys()
	if w.stats != nil {
		w.stats.recordLoadRequest(len(keys))
	}

	cached := w.cache.GetKeyVals(keys)
	keysToLoad := make([]K, 0, len(cached))
	for _, kv := range cached {
		if !kv.Value.Ok {
			keysToLoad = append(keysToLoad, kv.Key)
		}
	}

	if len(keysToLoad) == 0 {
		// Fast path: every requested key was already cached. Reply
		// immediately; this request never reaches phase 3.
		if w.stats != nil {
			w.stats.recordCacheHits(len(keys))
		}
		values := make([]Option[V], len(cached))
		for i, kv := range cached {
			values[i] = kv.Value
		}
		w.replyOrLogDrop(o.ctx, o.request, values)
		return
	}

	if w.stats != nil {
		w.stats.recordCacheHits(len(keys) - len(keysToLoad))
	}
	w.keysToLoad = append(w.keysToLoad, keysToLoad...)
	w.pendingRequests = append(w.pendingRequests, pendingLoad[K, V]{ctx: o.ctx, request: o.request})
}

func (w *worker[K, V, C]) executeFrame() {
	keys := dedupeKeys(w.keysToLoad)

	// The batch spans every request coalesced into this frame; the
	// first one to arrive stands in as the parent trace context, since
	// a single span can't have many parents.
	batchCtx := w.pendingRequests[0].ctx
	if batchCtx == nil {
		batchCtx = context.Background()
	}
	traceCtx, finish := w.tracer.TraceBatch(batchCtx, keys)
	pairs := w.callBatchFn(traceCtx, keys)
	finish(pairs)

	if w.stats != nil {
		w.stats.recordBatchExecution(len(w.keysToLoad), len(keys))
		w.stats.recordItemsLoaded(len(pairs))
	}

	w.cache.InsertMany(pairs)

	for _, pl := range w.pendingRequests {
		values := w.cache.Get(pl.request.keys())
		w.replyOrLogDrop(pl.ctx, pl.request, values)
	}

	w.keysToLoad = w.keysToLoad[:0]
	w.pendingRequests = w.pendingRequests[:0]
}

// replyOrLogDrop sends values on req's reply channel (always
// non-blocking; see op.go's loadRequest doc comment) and logs a
// diagnostic when ctx was already done beforehand, the only way a
// caller in this codebase abandons its receive (spec.md §7: "Reply
// channel's receiver has been dropped" / §5 cancellation). The reply
// is still delivered in that case — the buffered channel absorbs it —
// this only controls whether the drop gets logged.
func (w *worker[K, V, C]) replyOrLogDrop(ctx context.Context, req loadRequest[K, V], values []Option[V]) {
	if ctx != nil && ctx.Err() != nil {
		w.logger.Debug("loadframe: reply receiver dropped", zap.String("tag", w.tag), zap.Error(ctx.Err()))
	}
	req.reply(values)
}

// callBatchFn invokes the user's BatchFunc with panic isolation: a
// panicking batch function fails the current frame (every pending
// request resolves to None for its misses) without taking the worker
// goroutine down with it.
func (w *worker[K, V, C]) callBatchFn(ctx context.Context, keys []K) (pairs []KeyValue[K, V]) {
	defer func() {
		if r := recover(); r != nil {
			w.logger.Error("loadframe: batch function panicked",
				zap.String("tag", w.tag), zap.Any("recovered", r))
			pairs = nil
		}
	}()
	return w.batchFn(ctx, keys, w.ctx)
}

// dedupeKeys returns the unique keys in keys, in first-occurrence
// order. K is only constrained to comparable, not ordered, so this
// plays the role spec.md §4.3's "sort and deduplicate adjacent equals"
// plays in a language with a total order on keys: both produce a
// unique key set in an order fixed entirely by the sequence of
// operations the worker drained, which is what makes backend calls
// reproducible in tests.
func dedupeKeys[K comparable](keys []K) []K {
	if len(keys) == 0 {
		return nil
	}
	seen := make(map[K]struct{}, len(keys))
	out := make([]K, 0, len(keys))
	for _, k := range keys {
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	return out
}
