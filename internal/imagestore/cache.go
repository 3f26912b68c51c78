package imagestore

import (
	"context"
	"sync"

	"github.com/couchcryptid/storm-plots-service/internal/domain"
	"github.com/couchcryptid/storm-plots-service/internal/observability"
)

// Cached wraps a Store with an in-memory LRU of image bytes. Every hit is
// revalidated against the inner store's Version, so images rewritten by
// another process are never served stale. Listings and Ping go straight to
// the inner store.
type Cached struct {
	inner   Store
	cache   *lruCache
	metrics *observability.Metrics
}

// NewCached creates a cache decorator holding up to maxEntries images.
func NewCached(inner Store, maxEntries int, metrics *observability.Metrics) *Cached {
	return &Cached{
		inner:   inner,
		cache:   newLRUCache(maxEntries),
		metrics: metrics,
	}
}

func (c *Cached) Get(ctx context.Context, key Key) ([]byte, error) {
	k := key.Path()
	version, err := c.inner.Version(ctx, key)
	if err != nil {
		c.cache.delete(k)
		return nil, err
	}
	if data, ok := c.cache.get(k, version); ok {
		c.metrics.ImageCache.WithLabelValues("hit").Inc()
		return data, nil
	}
	c.metrics.ImageCache.WithLabelValues("miss").Inc()
	data, err := c.inner.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	c.cache.put(k, version, data)
	return data, nil
}

func (c *Cached) Version(ctx context.Context, key Key) (string, error) {
	return c.inner.Version(ctx, key)
}

// Put writes through and drops any cached copy of the key.
func (c *Cached) Put(ctx context.Context, key Key, data []byte) error {
	if err := c.inner.Put(ctx, key, data); err != nil {
		return err
	}
	c.cache.delete(key.Path())
	return nil
}

func (c *Cached) Dates(ctx context.Context) ([]string, error) {
	return c.inner.Dates(ctx)
}

func (c *Cached) Storms(ctx context.Context, date string) ([]string, error) {
	return c.inner.Storms(ctx, date)
}

func (c *Cached) Kinds(ctx context.Context, date, stormID string) ([]domain.PlotKind, error) {
	return c.inner.Kinds(ctx, date, stormID)
}

func (c *Cached) Ping(ctx context.Context) error {
	return c.inner.Ping(ctx)
}

// lruCache is a simple thread-safe LRU cache of image bytes.
type lruCache struct {
	maxEntries int
	mu         sync.Mutex
	entries    map[string]*entry
	head       *entry // most recently used
	tail       *entry // least recently used
}

type entry struct {
	key     string
	version string
	value   []byte
	prev    *entry
	next    *entry
}

func newLRUCache(maxEntries int) *lruCache {
	return &lruCache{
		maxEntries: maxEntries,
		entries:    make(map[string]*entry),
	}
}

// get returns the cached bytes only when they were stored at version.
func (c *lruCache) get(key, version string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok || e.version != version {
		return nil, false
	}
	c.moveToFront(e)
	return e.value, true
}

func (c *lruCache) put(key, version string, value []byte) {
	if c.maxEntries <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok {
		e.version = version
		e.value = value
		c.moveToFront(e)
		return
	}

	e := &entry{key: key, version: version, value: value}
	c.entries[key] = e
	c.addToFront(e)

	if len(c.entries) > c.maxEntries {
		c.evictTail()
	}
}

func (c *lruCache) delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok {
		delete(c.entries, key)
		c.remove(e)
	}
}

func (c *lruCache) moveToFront(e *entry) {
	if e == c.head {
		return
	}
	c.remove(e)
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

func (c *lruCache) remove(e *entry) {
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
	c.remove(c.tail)
}
