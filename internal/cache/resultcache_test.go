package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"molevo/internal/model"
	"molevo/internal/storage"
)

func newTestCache(t *testing.T, cfg Config) (*ResultCache, storage.Store) {
	t.Helper()
	store := storage.NewMemoryStore()
	require.NoError(t, store.Init(context.Background()))
	if cfg.Collection == "" {
		cfg.Collection = "test"
	}
	c, err := New(store, cfg)
	require.NoError(t, err)
	return c, store
}

func recordFor(key string, fitness float64) model.CacheRecord {
	return model.CacheRecord{
		VersionedRecord: model.VersionedRecord{
			SchemaVersion: storage.CurrentSchemaVersion,
			CodecVersion:  storage.CurrentCodecVersion,
		},
		Fingerprint: key,
		Fitness:     fitness,
		Objective:   "test",
	}
}

func TestGetOrComputeIdempotent(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestCache(t, Config{})

	var calls atomic.Int64
	compute := func(context.Context) (model.CacheRecord, error) {
		calls.Add(1)
		return recordFor("k", 7), nil
	}

	first, hit, err := c.GetOrCompute(ctx, "k", compute)
	require.NoError(t, err)
	assert.False(t, hit, "first call must compute")
	second, hit, err := c.GetOrCompute(ctx, "k", compute)
	require.NoError(t, err)
	assert.True(t, hit, "second call must be served from cache")

	assert.Equal(t, int64(1), calls.Load(), "compute must run at most once across both calls")
	assert.Equal(t, first, second)
	assert.Equal(t, 7.0, first.Fitness)
}

func TestGetOrComputeConcurrentCallersShareOneComputation(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestCache(t, Config{})

	var calls atomic.Int64
	compute := func(context.Context) (model.CacheRecord, error) {
		calls.Add(1)
		time.Sleep(30 * time.Millisecond)
		return recordFor("K", 7), nil
	}

	const callers = 8
	results := make([]model.CacheRecord, callers)
	errs := make([]error, callers)
	var wg sync.WaitGroup
	wg.Add(callers)
	for i := 0; i < callers; i++ {
		go func(i int) {
			defer wg.Done()
			results[i], _, errs[i] = c.GetOrCompute(ctx, "K", compute)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int64(1), calls.Load(), "fitness function must execute exactly once")
	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, 7.0, results[i].Fitness)
	}
}

func TestFailuresAreNotCached(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestCache(t, Config{})

	boom := errors.New("fitness exploded")
	var calls atomic.Int64

	_, _, err := c.GetOrCompute(ctx, "k", func(context.Context) (model.CacheRecord, error) {
		calls.Add(1)
		return model.CacheRecord{}, boom
	})
	require.ErrorIs(t, err, boom)

	record, _, err := c.GetOrCompute(ctx, "k", func(context.Context) (model.CacheRecord, error) {
		calls.Add(1)
		return recordFor("k", 3), nil
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), calls.Load(), "failed computation must be retried")
	assert.Equal(t, 3.0, record.Fitness)

	_, ok, err := c.Peek(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPeekNeverComputes(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestCache(t, Config{})

	_, ok, err := c.Peek(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)

	_, _, err = c.GetOrCompute(ctx, "k", func(context.Context) (model.CacheRecord, error) {
		return recordFor("k", 1), nil
	})
	require.NoError(t, err)

	record, ok, err := c.Peek(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 1.0, record.Fitness)
}

func TestSharedStoreAcrossCaches(t *testing.T) {
	// Two caches over the same store and collection model two concurrent
	// evaluator processes sharing one backing database.
	ctx := context.Background()
	store := storage.NewMemoryStore()
	require.NoError(t, store.Init(ctx))

	first, err := New(store, Config{Collection: "shared"})
	require.NoError(t, err)
	second, err := New(store, Config{Collection: "shared"})
	require.NoError(t, err)

	var calls atomic.Int64
	compute := func(context.Context) (model.CacheRecord, error) {
		calls.Add(1)
		return recordFor("k", 5), nil
	}

	_, _, err = first.GetOrCompute(ctx, "k", compute)
	require.NoError(t, err)
	record, hit, err := second.GetOrCompute(ctx, "k", compute)
	require.NoError(t, err)

	assert.Equal(t, int64(1), calls.Load(), "second cache must observe the first cache's record")
	assert.True(t, hit)
	assert.Equal(t, 5.0, record.Fitness)
	assert.Equal(t, int64(1), second.Stats().Hits)
}

type failingStore struct {
	storage.Store
	err error
}

func (s failingStore) GetCacheRecord(context.Context, string, string) (model.CacheRecord, bool, error) {
	return model.CacheRecord{}, false, s.err
}

func TestStoreFailureWrapsUnavailable(t *testing.T) {
	ctx := context.Background()
	backing := storage.NewMemoryStore()
	require.NoError(t, backing.Init(ctx))

	c, err := New(failingStore{Store: backing, err: errors.New("connection refused")}, Config{Collection: "x"})
	require.NoError(t, err)

	_, _, err = c.GetOrCompute(ctx, "k", func(context.Context) (model.CacheRecord, error) {
		t.Fatal("compute must not run when the store is unavailable")
		return model.CacheRecord{}, nil
	})
	require.ErrorIs(t, err, ErrUnavailable)
}

type countingStore struct {
	storage.Store
	gets atomic.Int64
}

func (s *countingStore) GetCacheRecord(ctx context.Context, collection, key string) (model.CacheRecord, bool, error) {
	s.gets.Add(1)
	return s.Store.GetCacheRecord(ctx, collection, key)
}

func TestLRUFrontAbsorbsRepeatLookups(t *testing.T) {
	ctx := context.Background()
	backing := storage.NewMemoryStore()
	require.NoError(t, backing.Init(ctx))
	counting := &countingStore{Store: backing}

	c, err := New(counting, Config{Collection: "x", GetLRUSize: 8, PutLRUSize: 8})
	require.NoError(t, err)

	_, _, err = c.GetOrCompute(ctx, "k", func(context.Context) (model.CacheRecord, error) {
		return recordFor("k", 2), nil
	})
	require.NoError(t, err)

	before := counting.gets.Load()
	for i := 0; i < 5; i++ {
		record, hit, err := c.GetOrCompute(ctx, "k", nil)
		require.NoError(t, err)
		assert.True(t, hit)
		assert.Equal(t, 2.0, record.Fitness)
	}
	assert.Equal(t, before, counting.gets.Load(), "repeat lookups must be served by the LRU front")
	assert.Equal(t, int64(5), c.Stats().Hits)
}

func TestStatsCounters(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestCache(t, Config{})

	_, _, err := c.GetOrCompute(ctx, "a", func(context.Context) (model.CacheRecord, error) {
		return recordFor("a", 1), nil
	})
	require.NoError(t, err)
	_, _, err = c.GetOrCompute(ctx, "a", nil)
	require.NoError(t, err)

	stats := c.Stats()
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
	assert.Equal(t, int64(1), stats.Computes)

	count, err := c.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestLRUEviction(t *testing.T) {
	lru := newLRUCache(2)
	lru.put("a", recordFor("a", 1))
	lru.put("b", recordFor("b", 2))
	lru.put("c", recordFor("c", 3))

	assert.Equal(t, 2, lru.len())
	_, ok := lru.get("a")
	assert.False(t, ok, "oldest entry must be evicted")
	_, ok = lru.get("c")
	assert.True(t, ok)
}
