// Package opentracing implements loadframe.Tracer using the Open
// Tracing standard, adapted from the teacher's trace/opentracing
// package.
package opentracing

import (
	"context"
	"fmt"

	"github.com/opentracing/opentracing-go"

	"github.com/graph-gophers/loadframe"
)

var _ loadframe.Tracer[string, string] = Tracer[string, string]{}

// Tracer implements loadframe.Tracer with Open Tracing spans.
type Tracer[K comparable, V any] struct{}

// TraceLoad traces a call to Loader.Load.
func (Tracer[K, V]) TraceLoad(ctx context.Context, key K) (context.Context, loadframe.TraceLoadFinishFunc[V]) {
	span, spanCtx := opentracing.StartSpanFromContext(ctx, "loadframe: load")
	span.SetTag("loadframe.key", fmt.Sprintf("%v", key))

	return spanCtx, func(loadframe.Option[V]) {
		span.Finish()
	}
}

// TraceLoadMany traces a call to Loader.LoadMany.
func (Tracer[K, V]) TraceLoadMany(ctx context.Context, keys []K) (context.Context, loadframe.TraceLoadManyFinishFunc[V]) {
	span, spanCtx := opentracing.StartSpanFromContext(ctx, "loadframe: loadmany")
	span.SetTag("loadframe.keys", fmt.Sprintf("%v", keys))

	return spanCtx, func([]loadframe.Option[V]) {
		span.Finish()
	}
}

// TraceBatch traces a single execution-frame batch invocation.
func (Tracer[K, V]) TraceBatch(ctx context.Context, keys []K) (context.Context, loadframe.TraceBatchFinishFunc[K, V]) {
	span, spanCtx := opentracing.StartSpanFromContext(ctx, "loadframe: batch")
	span.SetTag("loadframe.keys", fmt.Sprintf("%v", keys))

	return spanCtx, func([]loadframe.KeyValue[K, V]) {
		span.Finish()
	}
}
