package loadframe

import "context"

// loaderOp is the tagged union of messages the Loader façade sends down
// the operation queue to the worker (spec.md §3, "LoaderOp"). Go has no
// enum-with-payload construct, so the union is modeled the idiomatic
// way: a marker method plus one concrete type per variant, matched with
// a type switch in worker.apply.
type loaderOp[K comparable, V any] interface {
	isLoaderOp()
}

type loadOp[K comparable, V any] struct {
	ctx     context.Context
	request loadRequest[K, V]
}

// primeOp, primeManyOp, clearOp and clearManyOp carry no context: the
// caller's Prime/Clear is fire-and-forget, and the worker never starts
// a trace span or otherwise needs per-call context for a cache
// mutation it applies immediately and unconditionally.
type primeOp[K comparable, V any] struct {
	key   K
	value V
}

type primeManyOp[K comparable, V any] struct {
	pairs []KeyValue[K, V]
}

type clearOp[K comparable, V any] struct {
	key K
}

type clearManyOp[K comparable, V any] struct {
	keys []K
}

func (loadOp[K, V]) isLoaderOp()      {}
func (primeOp[K, V]) isLoaderOp()     {}
func (primeManyOp[K, V]) isLoaderOp() {}
func (clearOp[K, V]) isLoaderOp()     {}
func (clearManyOp[K, V]) isLoaderOp() {}

// loadRequest is either a single-key or multi-key load (spec.md §3,
// "LoadRequest"). Both variants carry a one-shot reply that the worker
// fires exactly once, either immediately from the drain phase (a full
// cache hit) or at the end of the execution frame that loaded the
// remaining misses.
//
// The reply channel is buffered to capacity 1 so reply is always a
// non-blocking send: Phase 2 must never suspend (spec.md §5), and an
// unbuffered channel would make reply block — or require a racy
// non-blocking select/default that could drop a value the caller was
// a scheduler tick away from receiving. The only way a caller actually
// stops waiting in this codebase is ctx cancellation (loader.go's
// Load/LoadMany select on ctx.Done()), so the worker detects a dropped
// receiver by checking the request's own context, not by inspecting
// whether the send "succeeded" (it always does).
type loadRequest[K comparable, V any] interface {
	// keys returns the request's keys, in the order results must be
	// returned in.
	keys() []K
	// reply sends values (in the same order as keys()) on the request's
	// one-shot reply channel and closes it. Called exactly once.
	reply(values []Option[V])
}

type oneRequest[K comparable, V any] struct {
	key K
	ch  chan Option[V]
}

func (r oneRequest[K, V]) keys() []K { return []K{r.key} }

func (r oneRequest[K, V]) reply(values []Option[V]) {
	var v Option[V]
	if len(values) > 0 {
		v = values[0]
	}
	r.ch <- v
	close(r.ch)
}

type manyRequest[K comparable, V any] struct {
	keysList []K
	ch       chan []Option[V]
}

func (r manyRequest[K, V]) keys() []K { return r.keysList }

func (r manyRequest[K, V]) reply(values []Option[V]) {
	r.ch <- values
	close(r.ch)
}
