// Package cache provides a small typed in-process cache on top of ristretto.
package cache

import (
	"time"

	"github.com/dgraph-io/ristretto/v2"
)

// Cache is a TTL cache of values of type V keyed by string
type Cache[V any] struct {
	c   *ristretto.Cache[string, V]
	ttl time.Duration
}

// New creates a cache bounded by maxCost, where every entry costs cost units.
func New[V any](maxCost int64, ttl time.Duration) (*Cache[V], error) {
	counters := maxCost * 10
	if counters < 100 {
		counters = 100
	}
	c, err := ristretto.NewCache(&ristretto.Config[string, V]{
		NumCounters: counters,
		MaxCost:     maxCost,
		BufferItems: 64,
	})
	if err != nil {
		return nil, err
	}
	return &Cache[V]{c: c, ttl: ttl}, nil
}

// Get returns the cached value for key
func (c *Cache[V]) Get(key string) (V, bool) {
	return c.c.Get(key)
}

// Set stores value under key with the cache TTL. The write is visible to the
// next Get once Set returns.
func (c *Cache[V]) Set(key string, value V) {
	c.c.SetWithTTL(key, value, 1, c.ttl)
	c.c.Wait()
}

// Delete evicts key
func (c *Cache[V]) Delete(key string) {
	c.c.Del(key)
}

// Clear evicts everything
func (c *Cache[V]) Clear() {
	c.c.Clear()
}

// Close shuts down the cache and releases resources
func (c *Cache[V]) Close() {
	c.c.Close()
}
