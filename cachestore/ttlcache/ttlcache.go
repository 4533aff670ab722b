// Package ttlcache adapts patrickmn/go-cache into loadframe.Cache[K,V],
// giving entries a time-based expiry with background janitor cleanup —
// a second substitute for loadframe's default unbounded MapCache.
//
// Adapted from the teacher's example/ttl-cache and example/go-cache
// adapters, generalized to loadframe's bulk ordered Cache methods. Keys
// are stringified with fmt.Sprint since go-cache is a string-keyed
// cache internally; this mirrors the teacher's own Keyer.Key() string
// conversion.
package ttlcache

import (
	"fmt"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/graph-gophers/loadframe"
)

var _ loadframe.Cache[string, int] = (*Cache[string, int])(nil)

// Cache wraps a patrickmn/go-cache instance.
type Cache[K comparable, V any] struct {
	c *gocache.Cache
}

// New constructs a Cache whose entries expire after ttl and are swept
// by a background janitor every cleanupInterval.
func New[K comparable, V any](ttl, cleanupInterval time.Duration) *Cache[K, V] {
	return &Cache[K, V]{c: gocache.New(ttl, cleanupInterval)}
}

func key[K comparable](k K) string {
	return fmt.Sprint(k)
}

func (c *Cache[K, V]) Get(keys []K) []loadframe.Option[V] {
	out := make([]loadframe.Option[V], len(keys))
	for i, k := range keys {
		if v, ok := c.c.Get(key(k)); ok {
			out[i] = loadframe.Some(v.(V))
		}
	}
	return out
}

func (c *Cache[K, V]) GetKeyVals(keys []K) []loadframe.KeyValue[K, loadframe.Option[V]] {
	out := make([]loadframe.KeyValue[K, loadframe.Option[V]], len(keys))
	for i, k := range keys {
		opt := loadframe.Option[V]{}
		if v, ok := c.c.Get(key(k)); ok {
			opt = loadframe.Some(v.(V))
		}
		out[i] = loadframe.KeyValue[K, loadframe.Option[V]]{Key: k, Value: opt}
	}
	return out
}

func (c *Cache[K, V]) Insert(k K, value V) {
	c.c.SetDefault(key(k), value)
}

func (c *Cache[K, V]) InsertMany(pairs []loadframe.KeyValue[K, V]) {
	for _, kv := range pairs {
		c.c.SetDefault(key(kv.Key), kv.Value)
	}
}

func (c *Cache[K, V]) Remove(keys []K) {
	for _, k := range keys {
		c.c.Delete(key(k))
	}
}

func (c *Cache[K, V]) Flush() {
	c.c.Flush()
}
