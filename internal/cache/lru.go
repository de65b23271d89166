package cache

import (
	"container/list"
	"sync"

	"molevo/internal/model"
)

// lruCache is a small thread-safe LRU front for the persistent store, used
// to absorb repeated lookups of hot fingerprints within a process. A size of
// zero disables it.
type lruCache struct {
	mu      sync.Mutex
	size    int
	order   *list.List
	entries map[string]*list.Element
}

type lruEntry struct {
	key    string
	record model.CacheRecord
}

func newLRUCache(size int) *lruCache {
	if size <= 0 {
		return nil
	}
	return &lruCache{
		size:    size,
		order:   list.New(),
		entries: make(map[string]*list.Element, size),
	}
}

func (c *lruCache) get(key string) (model.CacheRecord, bool) {
	if c == nil {
		return model.CacheRecord{}, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	element, ok := c.entries[key]
	if !ok {
		return model.CacheRecord{}, false
	}
	c.order.MoveToFront(element)
	return element.Value.(lruEntry).record, true
}

func (c *lruCache) put(key string, record model.CacheRecord) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if element, ok := c.entries[key]; ok {
		c.order.MoveToFront(element)
		element.Value = lruEntry{key: key, record: record}
		return
	}
	c.entries[key] = c.order.PushFront(lruEntry{key: key, record: record})
	if c.order.Len() > c.size {
		oldest := c.order.Back()
		c.order.Remove(oldest)
		delete(c.entries, oldest.Value.(lruEntry).key)
	}
}

func (c *lruCache) len() int {
	if c == nil {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}
