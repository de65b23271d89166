package cache

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"golang.org/x/sync/singleflight"

	"molevo/internal/model"
	"molevo/internal/storage"
)

// ErrUnavailable wraps persistent store failures. Callers treat it as fatal
// to the run: evaluation must not proceed uncached, since that would break
// the at-most-one-computation guarantee.
var ErrUnavailable = errors.New("result cache store unavailable")

// ComputeFunc produces the record for an uncached key. Failures are never
// persisted, so a later call with the same key retries the computation.
type ComputeFunc func(ctx context.Context) (model.CacheRecord, error)

// Config tunes a ResultCache. Collection namespaces records in the shared
// store, so runs scoring different objectives never observe each other's
// fitness values. LRU sizes of zero disable the in-process fronts.
type Config struct {
	Collection string
	GetLRUSize int
	PutLRUSize int
}

// ResultCache deduplicates expensive fitness computations per fingerprint.
// Concurrent callers of the same uncached key block on a single in-flight
// computation and share its result; the persistent write is first-write-wins
// so the cache stays coherent across processes sharing one backing store.
type ResultCache struct {
	store      storage.Store
	collection string
	group      singleflight.Group

	getLRU *lruCache
	putLRU *lruCache

	hits     atomic.Int64
	misses   atomic.Int64
	computes atomic.Int64
}

// Stats is a point-in-time snapshot of cache counters.
type Stats struct {
	Hits     int64
	Misses   int64
	Computes int64
}

func New(store storage.Store, cfg Config) (*ResultCache, error) {
	if store == nil {
		return nil, errors.New("store is required")
	}
	if cfg.Collection == "" {
		return nil, errors.New("collection is required")
	}
	return &ResultCache{
		store:      store,
		collection: cfg.Collection,
		getLRU:     newLRUCache(cfg.GetLRUSize),
		putLRU:     newLRUCache(cfg.PutLRUSize),
	}, nil
}

// Collection returns the namespace this cache reads and writes.
func (c *ResultCache) Collection() string {
	return c.collection
}

// GetOrCompute returns the cached record for key, computing and persisting
// it when absent. At most one computation runs per key at a time; duplicate
// concurrent callers share the winner's record or its failure.
//
// The returned bool reports whether the record came from the cache rather
// than from this caller's own computation. Callers joining another caller's
// in-flight computation count as hits, which keeps per-generation hit counts
// independent of worker scheduling.
func (c *ResultCache) GetOrCompute(ctx context.Context, key string, compute ComputeFunc) (model.CacheRecord, bool, error) {
	if record, ok := c.frontGet(key); ok {
		c.hits.Add(1)
		return record, true, nil
	}

	record, ok, err := c.store.GetCacheRecord(ctx, c.collection, key)
	if err != nil {
		return model.CacheRecord{}, false, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if ok {
		c.hits.Add(1)
		c.getLRU.put(key, record)
		return record, true, nil
	}
	c.misses.Add(1)

	// Only the caller whose closure actually runs the computation sets this;
	// flight joiners never execute their closure.
	computedHere := false
	value, err, _ := c.group.Do(key, func() (any, error) {
		// A concurrent caller or another process may have committed the
		// record while we were queued behind the flight.
		existing, ok, err := c.store.GetCacheRecord(ctx, c.collection, key)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		if ok {
			return existing, nil
		}

		computedHere = true
		c.computes.Add(1)
		computed, err := compute(ctx)
		if err != nil {
			return nil, err
		}
		if err := c.store.PutCacheRecord(ctx, c.collection, key, computed); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		// Read back so every caller observes the committed record even if
		// a writer in another process won the first-write race.
		committed, ok, err := c.store.GetCacheRecord(ctx, c.collection, key)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		if !ok {
			return computed, nil
		}
		return committed, nil
	})
	if err != nil {
		return model.CacheRecord{}, false, err
	}
	if !computedHere {
		c.hits.Add(1)
	}

	record = value.(model.CacheRecord)
	c.putLRU.put(key, record)
	return record, !computedHere, nil
}

// Peek is a non-blocking read-only lookup used for hit-rate diagnostics.
// It never triggers a computation.
func (c *ResultCache) Peek(ctx context.Context, key string) (model.CacheRecord, bool, error) {
	if record, ok := c.frontGet(key); ok {
		return record, true, nil
	}
	record, ok, err := c.store.GetCacheRecord(ctx, c.collection, key)
	if err != nil {
		return model.CacheRecord{}, false, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return record, ok, nil
}

// Count reports how many records the backing collection holds.
func (c *ResultCache) Count(ctx context.Context) (int64, error) {
	count, err := c.store.CountCacheRecords(ctx, c.collection)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return count, nil
}

// All returns every record in the collection, for diagnostics and export.
func (c *ResultCache) All(ctx context.Context) ([]model.CacheRecord, error) {
	records, err := c.store.AllCacheRecords(ctx, c.collection)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return records, nil
}

func (c *ResultCache) Stats() Stats {
	return Stats{
		Hits:     c.hits.Load(),
		Misses:   c.misses.Load(),
		Computes: c.computes.Load(),
	}
}

func (c *ResultCache) frontGet(key string) (model.CacheRecord, bool) {
	if record, ok := c.getLRU.get(key); ok {
		return record, true
	}
	return c.putLRU.get(key)
}
