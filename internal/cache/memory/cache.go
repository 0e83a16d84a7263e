// Package memory provides an in-process response cache with TTL and LRU
// eviction.
package memory

import (
	"container/list"
	"context"
	"sync"
	"time"

	"github.com/shoplens/extractor/internal/product"
)

const defaultMaxEntries = 512

// Cache stores responses keyed by normalized URL. Expiry is checked lazily
// on read; LRU pressure evicts the least recently used entry on insert.
type Cache struct {
	mu         sync.Mutex
	maxEntries int
	now        func() time.Time
	entries    map[string]*list.Element
	order      *list.List
}

type entry struct {
	key      string
	response product.CachedResponse
}

// Option customizes a Cache.
type Option func(*Cache)

// WithMaxEntries bounds the number of cached responses.
func WithMaxEntries(n int) Option {
	return func(c *Cache) {
		if n > 0 {
			c.maxEntries = n
		}
	}
}

// WithClock injects a time source for deterministic expiry tests.
func WithClock(clock product.Clock) Option {
	return func(c *Cache) {
		c.now = clock.Now
	}
}

// New creates a Cache.
func New(opts ...Option) *Cache {
	c := &Cache{
		maxEntries: defaultMaxEntries,
		now:        time.Now,
		entries:    make(map[string]*list.Element),
		order:      list.New(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the cached response for key, if present and unexpired.
// Expired entries are removed on the spot.
func (c *Cache) Get(_ context.Context, key string) (product.CachedResponse, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.entries[key]
	if !ok {
		return product.CachedResponse{}, false
	}
	ent := el.Value.(*entry)
	if ent.response.Expired(c.now()) {
		c.removeLocked(el)
		return product.CachedResponse{}, false
	}
	c.order.MoveToFront(el)
	return ent.response, true
}

// Set inserts or replaces the response for key.
func (c *Cache) Set(_ context.Context, key string, response product.CachedResponse) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.entries[key]; ok {
		el.Value.(*entry).response = response
		c.order.MoveToFront(el)
		return
	}

	el := c.order.PushFront(&entry{key: key, response: response})
	c.entries[key] = el

	if c.order.Len() > c.maxEntries {
		if oldest := c.order.Back(); oldest != nil {
			c.removeLocked(oldest)
		}
	}
}

// Len returns the number of entries currently held, expired or not.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

func (c *Cache) removeLocked(el *list.Element) {
	c.order.Remove(el)
	delete(c.entries, el.Value.(*entry).key)
}
