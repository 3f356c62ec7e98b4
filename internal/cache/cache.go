// Package cache wraps go-cache with a typed, explicitly constructed TTL store.
// Entries are an optimization only; callers must tolerate a miss at any time.
package cache

import (
	"time"

	gocache "github.com/patrickmn/go-cache"
)

type TTL[V any] struct {
	items *gocache.Cache
}

func New[V any](ttl, cleanupInterval time.Duration) *TTL[V] {
	return &TTL[V]{
		items: gocache.New(ttl, cleanupInterval),
	}
}

func (c *TTL[V]) Get(key string) (V, bool) {
	var zero V
	raw, found := c.items.Get(key)
	if !found {
		return zero, false
	}
	v, ok := raw.(V)
	if !ok {
		return zero, false
	}
	return v, true
}

// Set stores value under key with the store's TTL, replacing any previous entry.
func (c *TTL[V]) Set(key string, value V) {
	c.items.Set(key, value, gocache.DefaultExpiration)
}

func (c *TTL[V]) Len() int {
	return c.items.ItemCount()
}
