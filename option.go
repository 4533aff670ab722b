package loadframe

import "go.uber.org/zap"

// Option configures a Loader at construction time (functional-options
// pattern). It is generic over the same K, V, C as the Loader it
// configures so that WithTracer and WithCache retain full type safety.
type Option[K comparable, V any, C any] func(*config[K, V, C])

type config[K comparable, V any, C any] struct {
	cache     Cache[K, V]
	tracer    Tracer[K, V]
	logger    *zap.Logger
	statsSink StatsSink
	tag       string
}

func defaultConfig[K comparable, V any, C any]() *config[K, V, C] {
	return &config[K, V, C]{
		cache:  NewMapCache[K, V](),
		tracer: NoopTracer[K, V]{},
		logger: zap.NewNop(),
		tag:    "loadframe",
	}
}

// WithCache installs a Cache other than the default MapCache, e.g. an
// adapter from cachestore/lru or cachestore/ttlcache.
func WithCache[K comparable, V any, C any](c Cache[K, V]) Option[K, V, C] {
	return func(cfg *config[K, V, C]) {
		if c != nil {
			cfg.cache = c
		}
	}
}

// WithTracer installs a Tracer, e.g. tracing/opentracing.Tracer or
// tracing/otel.Tracer. The default is NoopTracer.
func WithTracer[K comparable, V any, C any](t Tracer[K, V]) Option[K, V, C] {
	return func(cfg *config[K, V, C]) {
		if t != nil {
			cfg.tracer = t
		}
	}
}

// WithLogger installs a *zap.Logger the worker and Loader log through.
// Construction-time only, since the worker goroutine is started
// eagerly by NewLoader and needs a logger reference from the start.
// The default is zap.NewNop(), so logging costs nothing when this
// option is omitted.
func WithLogger[K comparable, V any, C any](logger *zap.Logger) Option[K, V, C] {
	return func(cfg *config[K, V, C]) {
		if logger != nil {
			cfg.logger = logger
		}
	}
}

// WithStats installs a StatsSink that receives a Stats snapshot when the
// Loader is closed. Without this option the worker still has nowhere to
// report stats, so it skips collecting them.
func WithStats[K comparable, V any, C any](sink StatsSink) Option[K, V, C] {
	return func(cfg *config[K, V, C]) {
		cfg.statsSink = sink
	}
}

// WithTag sets the tag passed to the StatsSink and used in log lines to
// tell multiple Loaders apart. Defaults to "loadframe".
func WithTag[K comparable, V any, C any](tag string) Option[K, V, C] {
	return func(cfg *config[K, V, C]) {
		if tag != "" {
			cfg.tag = tag
		}
	}
}
