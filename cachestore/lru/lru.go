// Package lru adapts hashicorp/golang-lru's adaptive replacement cache
// into loadframe.Cache[K,V], demonstrating the substitution point
// described by loadframe.Cache's doc comment: a bounded, eviction-aware
// collaborator in place of the unbounded default.
//
// Adapted from the teacher's example/lru-cache adapter, generalized
// from string keys and *loadframe.Thunk values to arbitrary K/V and
// loadframe's bulk ordered Cache methods.
package lru

import (
	lru "github.com/hashicorp/golang-lru"

	"github.com/graph-gophers/loadframe"
)

var _ loadframe.Cache[string, int] = (*Cache[string, int])(nil)

// Cache wraps a hashicorp/golang-lru ARCCache. ARCCache is already
// internally synchronized, which is unnecessary here (the worker is
// the cache's sole caller) but harmless.
type Cache[K comparable, V any] struct {
	arc *lru.ARCCache
}

// New constructs a Cache holding at most size entries.
func New[K comparable, V any](size int) (*Cache[K, V], error) {
	arc, err := lru.NewARC(size)
	if err != nil {
		return nil, err
	}
	return &Cache[K, V]{arc: arc}, nil
}

func (c *Cache[K, V]) Get(keys []K) []loadframe.Option[V] {
	out := make([]loadframe.Option[V], len(keys))
	for i, k := range keys {
		if v, ok := c.arc.Get(k); ok {
			out[i] = loadframe.Some(v.(V))
		}
	}
	return out
}

func (c *Cache[K, V]) GetKeyVals(keys []K) []loadframe.KeyValue[K, loadframe.Option[V]] {
	out := make([]loadframe.KeyValue[K, loadframe.Option[V]], len(keys))
	for i, k := range keys {
		opt := loadframe.Option[V]{}
		if v, ok := c.arc.Get(k); ok {
			opt = loadframe.Some(v.(V))
		}
		out[i] = loadframe.KeyValue[K, loadframe.Option[V]]{Key: k, Value: opt}
	}
	return out
}

func (c *Cache[K, V]) Insert(key K, value V) {
	c.arc.Add(key, value)
}

func (c *Cache[K, V]) InsertMany(pairs []loadframe.KeyValue[K, V]) {
	for _, kv := range pairs {
		c.arc.Add(kv.Key, kv.Value)
	}
}

func (c *Cache[K, V]) Remove(keys []K) {
	for _, k := range keys {
		c.arc.Remove(k)
	}
}

func (c *Cache[K, V]) Flush() {
	c.arc.Purge()
}
