package loadframe

import "context"

// TraceLoadFinishFunc, TraceLoadManyFinishFunc and TraceBatchFinishFunc
// are called when the traced operation completes, so an implementation
// can close out the span it opened in the matching TraceXxx call.
type TraceLoadFinishFunc[V any] func(Option[V])
type TraceLoadManyFinishFunc[V any] func([]Option[V])
type TraceBatchFinishFunc[K comparable, V any] func([]KeyValue[K, V])

// Tracer is the optional distributed-tracing hook (spec.md §6's
// optional collaborators). A Loader with no tracer configured uses
// NoopTracer, whose calls are free. tracing/opentracing and
// tracing/otel provide real implementations.
type Tracer[K comparable, V any] interface {
	// TraceLoad wraps a single Load call.
	TraceLoad(ctx context.Context, key K) (context.Context, TraceLoadFinishFunc[V])
	// TraceLoadMany wraps a single LoadMany call.
	TraceLoadMany(ctx context.Context, keys []K) (context.Context, TraceLoadManyFinishFunc[V])
	// TraceBatch wraps one execution-frame invocation of the batch
	// function.
	TraceBatch(ctx context.Context, keys []K) (context.Context, TraceBatchFinishFunc[K, V])
}

// NoopTracer is the default Tracer: every call is a no-op.
type NoopTracer[K comparable, V any] struct{}

func (NoopTracer[K, V]) TraceLoad(ctx context.Context, _ K) (context.Context, TraceLoadFinishFunc[V]) {
	return ctx, func(Option[V]) {}
}

func (NoopTracer[K, V]) TraceLoadMany(ctx context.Context, _ []K) (context.Context, TraceLoadManyFinishFunc[V]) {
	return ctx, func([]Option[V]) {}
}

func (NoopTracer[K, V]) TraceBatch(ctx context.Context, _ []K) (context.Context, TraceBatchFinishFunc[K, V]) {
	return ctx, func([]KeyValue[K, V]) {}
}
