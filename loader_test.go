package loadframe_test

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/graph-gophers/loadframe"
)

type movie struct {
	Title string
}

func moviesByID(titles map[int64]string) loadframe.BatchFunc[int64, movie, struct{}] {
	return func(_ context.Context, keys []int64, _ struct{}) []loadframe.KeyValue[int64, movie] {
		pairs := make([]loadframe.KeyValue[int64, movie], 0, len(keys))
		for _, k := range keys {
			if title, ok := titles[k]; ok {
				pairs = append(pairs, loadframe.KeyValue[int64, movie]{Key: k, Value: movie{Title: title}})
			}
		}
		return pairs
	}
}

func newTestLoader(t *testing.T, titles map[int64]string, opts ...loadframe.Option[int64, movie, struct{}]) *loadframe.Loader[int64, movie, struct{}] {
	t.Helper()
	l := loadframe.NewLoader[int64, movie, struct{}](moviesByID(titles), struct{}{}, opts...)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = l.Close(ctx)
	})
	return l
}

func TestBasicLoad(t *testing.T) {
	l := newTestLoader(t, map[int64]string{7: "samurai"})

	got := l.Load(context.Background(), 7)
	v, ok := got.Get()
	require.True(t, ok)
	assert.Equal(t, movie{Title: "samurai"}, v)
}

func TestLoadMissingKeyReturnsNone(t *testing.T) {
	l := newTestLoader(t, map[int64]string{7: "samurai"})

	got := l.Load(context.Background(), 15)
	_, ok := got.Get()
	assert.False(t, ok)
}

func TestRepeatedLoadHitsCacheSecondTime(t *testing.T) {
	calls := int32(0)
	l := loadframe.NewLoader[int64, movie, struct{}](
		func(_ context.Context, keys []int64, _ struct{}) []loadframe.KeyValue[int64, movie] {
			atomic.AddInt32(&calls, 1)
			return []loadframe.KeyValue[int64, movie]{{Key: 42, Value: movie{Title: "Foo"}}}
		},
		struct{}{},
	)
	t.Cleanup(func() { _ = l.Close(context.Background()) })

	first := l.Load(context.Background(), 42)
	second := l.Load(context.Background(), 42)

	v1, ok1 := first.Get()
	v2, ok2 := second.Get()
	require.True(t, ok1)
	require.True(t, ok2)
	assert.Equal(t, v1, v2)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestLoadManyPreservesOrderAndDuplicates(t *testing.T) {
	l := newTestLoader(t, map[int64]string{
		42: "one fish",
		12: "two fish",
		5:  "red fish",
		8:  "blue fish",
	})

	got := l.LoadMany(context.Background(), []int64{5, 12, 8, 5})
	require.Len(t, got, 4)

	titles := make([]string, len(got))
	for i, o := range got {
		v, ok := o.Get()
		require.True(t, ok)
		titles[i] = v.Title
	}
	assert.Equal(t, []string{"red fish", "two fish", "blue fish", "red fish"}, titles)
}

// TestConcurrentLoadsDeduplicateWithinEachFrame exercises spec
// §4.2/§4.3: whatever set of loads the worker drains into a single
// execution frame reaches the batch function with duplicates already
// removed, regardless of how many frames the burst happens to split
// across. TestConcurrentBurstCanCoalesceIntoOneFrame below covers the
// companion invariant this one deliberately leaves open: that a burst
// racing into the queue within one scheduler turn CAN in fact land in
// a single frame (spec.md §8/S4).
func TestConcurrentLoadsDeduplicateWithinEachFrame(t *testing.T) {
	var batchedKeys [][]int64
	var mu sync.Mutex

	l := loadframe.NewLoader[int64, movie, struct{}](
		func(_ context.Context, keys []int64, _ struct{}) []loadframe.KeyValue[int64, movie] {
			mu.Lock()
			cp := append([]int64(nil), keys...)
			batchedKeys = append(batchedKeys, cp)
			mu.Unlock()

			pairs := make([]loadframe.KeyValue[int64, movie], len(keys))
			for i, k := range keys {
				pairs[i] = loadframe.KeyValue[int64, movie]{Key: k, Value: movie{Title: "movie"}}
			}
			return pairs
		},
		struct{}{},
	)
	t.Cleanup(func() { _ = l.Close(context.Background()) })

	var eg errgroup.Group
	for _, k := range []int64{1, 2, 3, 2, 1} {
		k := k
		eg.Go(func() error {
			v := l.Load(context.Background(), k)
			if _, ok := v.Get(); !ok {
				t.Errorf("expected a value for key %d", k)
			}
			return nil
		})
	}
	require.NoError(t, eg.Wait())

	mu.Lock()
	defer mu.Unlock()
	require.NotEmpty(t, batchedKeys)
	for _, frame := range batchedKeys {
		assert.Len(t, frame, len(dedupe(frame)), "a frame must never contain a duplicate key")
	}
}

func dedupe(keys []int64) []int64 {
	seen := make(map[int64]struct{}, len(keys))
	out := make([]int64, 0, len(keys))
	for _, k := range keys {
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	return out
}

// TestConcurrentBurstCanCoalesceIntoOneFrame exercises the mandatory
// half of spec.md §8/S4 that TestConcurrentLoadsDeduplicateWithinEachFrame
// deliberately leaves open: a burst of concurrent loads racing into the
// queue must be able to land in a single execution frame, with the
// batch function invoked exactly once for the whole burst. Go's
// goroutine scheduler gives no hard guarantee that every burst lands in
// one frame on every run (unlike a single-threaded cooperative
// executor, there's no crisp "end of this scheduler turn" a test can
// pin to), so this repeats the burst until it observes a single-frame
// outcome, and fails only if it never does across many attempts — which
// is exactly what happened before the opQueue fix, where every op fell
// into its own frame deterministically because the drain's try-receive
// ran over an unbuffered forwarding channel fed one item at a time
// instead of popping directly out of the queue's buffer.
func TestConcurrentBurstCanCoalesceIntoOneFrame(t *testing.T) {
	prevProcs := runtime.GOMAXPROCS(1)
	defer runtime.GOMAXPROCS(prevProcs)

	keys := []int64{5, 12, 8, 5, 99}
	const attempts = 500

	for attempt := 0; attempt < attempts; attempt++ {
		frames, lastFrame := concurrentBurstFrames(t, keys)
		if frames == 1 {
			assert.ElementsMatch(t, []int64{5, 8, 12, 99}, lastFrame)
			return
		}
	}
	t.Fatalf("a concurrent burst of %d callers never coalesced into a single execution frame across %d attempts", len(keys), attempts)
}

// concurrentBurstFrames launches one Load goroutine per key in keys,
// released together off a barrier, and reports how many distinct batch
// executions resulted plus the keys of the last one.
func concurrentBurstFrames(t *testing.T, keys []int64) (frames int, lastFrame []int64) {
	t.Helper()

	var mu sync.Mutex
	var batches [][]int64

	l := loadframe.NewLoader[int64, movie, struct{}](
		func(_ context.Context, ks []int64, _ struct{}) []loadframe.KeyValue[int64, movie] {
			mu.Lock()
			batches = append(batches, append([]int64(nil), ks...))
			mu.Unlock()

			pairs := make([]loadframe.KeyValue[int64, movie], len(ks))
			for i, k := range ks {
				pairs[i] = loadframe.KeyValue[int64, movie]{Key: k, Value: movie{Title: "movie"}}
			}
			return pairs
		},
		struct{}{},
	)
	defer func() { _ = l.Close(context.Background()) }()

	var ready sync.WaitGroup
	start := make(chan struct{})
	var eg errgroup.Group
	ready.Add(len(keys))
	for _, k := range keys {
		k := k
		eg.Go(func() error {
			ready.Done()
			<-start
			v := l.Load(context.Background(), k)
			if _, ok := v.Get(); !ok {
				return fmt.Errorf("expected a value for key %d", k)
			}
			return nil
		})
	}
	ready.Wait()
	close(start)
	require.NoError(t, eg.Wait())

	mu.Lock()
	defer mu.Unlock()
	return len(batches), batches[len(batches)-1]
}

func TestPrimePopulatesCacheWithoutInvokingBatchFn(t *testing.T) {
	called := false
	l := loadframe.NewLoader[int64, movie, struct{}](
		func(_ context.Context, keys []int64, _ struct{}) []loadframe.KeyValue[int64, movie] {
			called = true
			return nil
		},
		struct{}{},
	)
	t.Cleanup(func() { _ = l.Close(context.Background()) })

	// Prime and Load are sent from the same goroutine, so the operation
	// queue's FIFO ordering guarantees Prime is applied before this
	// Load's cache lookup, with no need to wait for it to "land".
	l.Prime(context.Background(), 1, movie{Title: "primed"})

	got := l.Load(context.Background(), 1)
	v, ok := got.Get()
	require.True(t, ok)
	assert.Equal(t, movie{Title: "primed"}, v)
	assert.False(t, called, "a fully primed key must never reach the batch function")
}

func TestClearForcesReload(t *testing.T) {
	version := int32(0)
	l := loadframe.NewLoader[int64, movie, struct{}](
		func(_ context.Context, keys []int64, _ struct{}) []loadframe.KeyValue[int64, movie] {
			v := atomic.AddInt32(&version, 1)
			pairs := make([]loadframe.KeyValue[int64, movie], len(keys))
			for i, k := range keys {
				pairs[i] = loadframe.KeyValue[int64, movie]{Key: k, Value: movie{Title: "v" + string(rune('0'+v))}}
			}
			return pairs
		},
		struct{}{},
	)
	t.Cleanup(func() { _ = l.Close(context.Background()) })

	first := l.Load(context.Background(), 1)
	v1, _ := first.Get()

	l.Clear(context.Background(), 1)
	second := l.Load(context.Background(), 1)
	v2, _ := second.Get()

	assert.NotEqual(t, v1, v2)
}

func TestBatchFunctionPanicIsRecovered(t *testing.T) {
	l := loadframe.NewLoader[int64, movie, struct{}](
		func(_ context.Context, keys []int64, _ struct{}) []loadframe.KeyValue[int64, movie] {
			panic("backend exploded")
		},
		struct{}{},
	)
	t.Cleanup(func() { _ = l.Close(context.Background()) })

	got := l.Load(context.Background(), 1)
	_, ok := got.Get()
	assert.False(t, ok, "a panicking batch function should resolve pending loads to None, not crash the worker")

	// The worker must still be alive after the panic.
	got2 := l.Load(context.Background(), 2)
	_, ok2 := got2.Get()
	assert.False(t, ok2)
}

func TestLoadAfterClosePanics(t *testing.T) {
	l := newTestLoader(t, nil)
	require.NoError(t, l.Close(context.Background()))

	assert.Panics(t, func() {
		l.Load(context.Background(), 1)
	})
}

func TestLoadHonorsContextCancellation(t *testing.T) {
	block := make(chan struct{})
	l := loadframe.NewLoader[int64, movie, struct{}](
		func(_ context.Context, keys []int64, _ struct{}) []loadframe.KeyValue[int64, movie] {
			<-block
			return nil
		},
		struct{}{},
	)
	defer close(block)
	t.Cleanup(func() { _ = l.Close(context.Background()) })

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	got := l.Load(ctx, 1)
	_, ok := got.Get()
	assert.False(t, ok)
}

func TestStatsAreRecorded(t *testing.T) {
	var observed loadframe.Stats
	sink := loadframe.StatsSinkFunc(func(tag string, s loadframe.Stats) {
		observed = s
	})

	l := newTestLoader(t, map[int64]string{1: "a", 2: "b"}, loadframe.WithStats[int64, movie, struct{}](sink))

	l.Load(context.Background(), 1)
	l.LoadMany(context.Background(), []int64{1, 2})

	require.NoError(t, l.Close(context.Background()))

	assert.Equal(t, uint64(2), observed.LoadRequests)
	// Load(1) and LoadMany([1,2]) are sequential, synchronous calls from
	// the same goroutine: Load(1) runs its own frame to completion
	// (batch exec #1, caching key 1) before LoadMany is even invoked.
	// LoadMany then hits key 1 from cache but misses key 2, staging a
	// second frame (batch exec #2) for that miss alone.
	assert.Equal(t, uint64(2), observed.BatchExecutions)
}
