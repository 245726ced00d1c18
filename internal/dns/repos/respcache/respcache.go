// Package respcache stores fully encoded DNS responses keyed by the queried
// name. Entries live until evicted by capacity pressure; the TTL inside a
// cached response is informational only and never drives invalidation.
package respcache

import (
	lru "github.com/hashicorp/golang-lru/v2"
)

// Cache is a bounded LRU map from queried name to encoded response bytes.
// Keys are the exact name as queried, with no case or trailing-dot
// normalization. The backing store serializes access internally; both
// operations hold its lock only for the O(1) map update.
type Cache struct {
	lru *lru.Cache[string, []byte]
}

// New returns a Cache holding at most size entries.
func New(size int) (*Cache, error) {
	backing, err := lru.New[string, []byte](size)
	if err != nil {
		return nil, err
	}
	return &Cache{lru: backing}, nil
}

// Get returns the cached response for name, refreshing its recency on a hit.
func (c *Cache) Get(name string) ([]byte, bool) {
	return c.lru.Get(name)
}

// Set stores the encoded response for name, evicting the least-recently-used
// entry first when the cache is at capacity.
func (c *Cache) Set(name string, response []byte) {
	c.lru.Add(name, response)
}

// Len returns the number of entries currently stored.
func (c *Cache) Len() int {
	return c.lru.Len()
}

// Keys returns the current cache keys, oldest to newest.
func (c *Cache) Keys() []string {
	return c.lru.Keys()
}
