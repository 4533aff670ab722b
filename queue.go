package loadframe

import "sync"

// opQueue is an unbounded, multi-producer, single-consumer FIFO
// (spec.md §4.2). Go's channels are all bounded (or fully synchronous
// at capacity zero), so there is no built-in primitive for "send never
// blocks, regardless of how far the consumer has fallen behind." This
// is the idiomatic rendition: a mutex-protected slice buffer with a
// blocking recv (via sync.Cond, for Phase 1's idle wait) and a
// non-blocking tryRecv that pops straight from the same buffer (for
// Phase 2's drain-until-empty, spec.md §5's two required receive
// primitives). Both operate directly on buf; there is no intermediate
// forwarding channel, so tryRecv sees exactly what's been enqueued at
// the instant it's called, regardless of goroutine scheduling.
//
// The unboundedness matters here specifically: the worker is itself
// the only goroutine that ever drains the queue, and it stops draining
// while it awaits the batch function (Phase 3). A bounded queue would
// let producer sends block during that await, which is exactly the
// deadlock spec.md §4.2 calls out avoiding ("bounding the queue would
// risk deadlock when a batch function's transitive dependencies
// re-enter the same loader").
type opQueue[T any] struct {
	mu     sync.Mutex
	cond   *sync.Cond
	buf    []T
	closed bool
}

func newOpQueue[T any]() *opQueue[T] {
	q := &opQueue[T]{}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// send enqueues an item. Never blocks.
func (q *opQueue[T]) send(item T) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.buf = append(q.buf, item)
	q.cond.Signal()
}

// close marks the queue closed. Items already buffered are still
// delivered by recv/tryRecv; a blocking recv only reports closed once
// the buffer is empty.
func (q *opQueue[T]) close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.closed = true
	q.cond.Broadcast()
}

// recv blocks until an item is available or the queue is closed with
// nothing left buffered, in which case ok is false. This is Phase 1's
// idle wait.
func (q *opQueue[T]) recv() (item T, ok bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for len(q.buf) == 0 && !q.closed {
		q.cond.Wait()
	}
	if len(q.buf) == 0 {
		return item, false
	}
	return q.pop(), true
}

// tryRecv pops the next item if one is already buffered, without
// waiting. This is Phase 2's drain-until-empty primitive: it only ever
// reports what's sitting in buf at the instant it's called, so a burst
// of sends that land before the worker's drain loop next checks are
// all observed in the same pass, regardless of GOMAXPROCS or whether
// any other goroutine happened to run in between.
func (q *opQueue[T]) tryRecv() (item T, ok bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.buf) == 0 {
		return item, false
	}
	return q.pop(), true
}

// pop removes and returns the head of buf. Callers must hold q.mu and
// have already checked buf is non-empty.
func (q *opQueue[T]) pop() T {
	item := q.buf[0]
	var zero T
	q.buf[0] = zero
	q.buf = q.buf[1:]
	return item
}
