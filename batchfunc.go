package loadframe

import "context"

// BatchFunc is the user-supplied collaborator invoked at most once per
// execution frame (spec.md §4.3, "Batch function interface"). keys is
// the deduplicated set of misses accumulated during the drain phase,
// in first-occurrence order (K is only constrained to comparable, not
// ordered, so there is no total order to sort by — see worker.go's
// dedupeKeys). The shared context c is the value passed to NewLoader,
// not the context of any individual Load call.
//
// The returned pairs may be a subset of keys (omitted keys resolve to
// None), may be in any order, and must not contain duplicates or keys
// outside the input set. BatchFunc owns its own error discipline: a
// failed fetch is reported by simply omitting that key, not by
// returning an error from this function.
type BatchFunc[K comparable, V any, C any] func(ctx context.Context, keys []K, c C) []KeyValue[K, V]
