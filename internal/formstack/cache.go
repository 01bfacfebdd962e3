package formstack

import (
	"sync"

	"github.com/golang/groupcache/lru"
)

// DefaultCacheEntries bounds a SearchCache built with a non-positive size.
const DefaultCacheEntries = 256

// SearchCache is a bounded LRU for dropdown search results. It is injected
// where needed; Clear drops every entry.
type SearchCache[V any] struct {
	mu    sync.Mutex
	cache *lru.Cache
}

// NewSearchCache builds a cache holding at most maxEntries keys.
func NewSearchCache[V any](maxEntries int) *SearchCache[V] {
	if maxEntries <= 0 {
		maxEntries = DefaultCacheEntries
	}
	return &SearchCache[V]{cache: lru.New(maxEntries)}
}

// Get returns the cached value for key.
func (c *SearchCache[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var zero V
	v, ok := c.cache.Get(key)
	if !ok {
		return zero, false
	}
	out, ok := v.(V)
	if !ok {
		return zero, false
	}
	return out, true
}

// Set stores value under key, evicting the least recently used entry when full.
func (c *SearchCache[V]) Set(key string, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cache.Add(key, value)
}

// Clear drops every entry.
func (c *SearchCache[V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cache.Clear()
}

// Len returns the number of cached keys.
func (c *SearchCache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cache.Len()
}
