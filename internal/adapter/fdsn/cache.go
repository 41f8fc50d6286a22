package fdsn

import (
	"context"
	"sync"

	"github.com/couchcryptid/quake-data-etl/internal/observability"
)

// CachedClient wraps a CatalogFetcher with an in-memory LRU cache keyed by
// the request window. Only successful documents are cached.
type CachedClient struct {
	inner   CatalogFetcher
	cache   *lruCache
	metrics *observability.Metrics
}

// NewCachedClient creates a cache decorator around a fetcher. metrics may be nil.
func NewCachedClient(inner CatalogFetcher, maxEntries int, metrics *observability.Metrics) *CachedClient {
	return &CachedClient{
		inner:   inner,
		cache:   newLRUCache(maxEntries),
		metrics: metrics,
	}
}

func (c *CachedClient) FetchCatalog(ctx context.Context, req CatalogRequest) (string, error) {
	key := req.cacheKey()
	if doc, ok := c.cache.get(key); ok {
		c.count("hit")
		return doc, nil
	}
	c.count("miss")
	doc, err := c.inner.FetchCatalog(ctx, req)
	if err != nil {
		return "", err
	}
	c.cache.put(key, doc)
	return doc, nil
}

func (c *CachedClient) count(result string) {
	if c.metrics != nil {
		c.metrics.FDSNCache.WithLabelValues(result).Inc()
	}
}

// lruCache is a simple thread-safe LRU cache of QuakeML documents.
type lruCache struct {
	maxEntries int
	mu         sync.Mutex
	entries    map[string]*entry
	head       *entry // most recently used
	tail       *entry // least recently used
}

type entry struct {
	key   string
	value string
	prev  *entry
	next  *entry
}

func newLRUCache(maxEntries int) *lruCache {
	return &lruCache{
		maxEntries: maxEntries,
		entries:    make(map[string]*entry),
	}
}

func (c *lruCache) get(key string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return "", false
	}
	c.moveToFront(e)
	return e.value, true
}

func (c *lruCache) put(key, value string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok {
		e.value = value
		c.moveToFront(e)
		return
	}

	e := &entry{key: key, value: value}
	c.entries[key] = e
	c.addToFront(e)

	if len(c.entries) > c.maxEntries {
		c.evictTail()
	}
}

func (c *lruCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *lruCache) moveToFront(e *entry) {
	if e == c.head {
		return
	}
	c.unlink(e)
	c.addToFront(e)
}

func (c *lruCache) addToFront(e *entry) {
	e.next = c.head
	e.prev = nil
	if c.head != nil {
		c.head.prev = e
	}
	c.head = e
	if c.tail == nil {
		c.tail = e
	}
}

func (c *lruCache) unlink(e *entry) {
	if e.prev != nil {
		e.prev.next = e.next
	} else {
		c.head = e.next
	}
	if e.next != nil {
		e.next.prev = e.prev
	} else {
		c.tail = e.prev
	}
}

func (c *lruCache) evictTail() {
	if c.tail == nil {
		return
	}
	delete(c.entries, c.tail.key)
	c.unlink(c.tail)
}
