package cache

import (
	"sync"
	"time"
)

// Store memoizes values by key. A zero or negative ttl means "do not store".
type Store[V any] interface {
	Get(key string) (V, bool)
	Put(key string, value V, ttl time.Duration)
}

type entry[V any] struct {
	value     V
	expiresAt time.Time
}

// TTL is an in-memory Store with lazy expiry.
type TTL[V any] struct {
	mu    sync.RWMutex
	items map[string]entry[V]
	clone func(V) V
	now   func() time.Time
}

// NewTTL builds an expiring map. clone, when set, is applied on both Put and
// Get so callers never share state with the cache.
func NewTTL[V any](clone func(V) V) *TTL[V] {
	return &TTL[V]{
		items: make(map[string]entry[V]),
		clone: clone,
		now:   time.Now,
	}
}

func (c *TTL[V]) Get(key string) (V, bool) {
	c.mu.RLock()
	e, ok := c.items[key]
	c.mu.RUnlock()

	var zero V
	if !ok {
		return zero, false
	}
	if !c.now().Before(e.expiresAt) {
		c.mu.Lock()
		if cur, still := c.items[key]; still && !c.now().Before(cur.expiresAt) {
			delete(c.items, key)
		}
		c.mu.Unlock()
		return zero, false
	}
	return c.copy(e.value), true
}

func (c *TTL[V]) Put(key string, value V, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	c.mu.Lock()
	c.items[key] = entry[V]{value: c.copy(value), expiresAt: c.now().Add(ttl)}
	c.mu.Unlock()
}

// Purge drops expired entries and returns how many were removed.
func (c *TTL[V]) Purge() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	now := c.now()
	for k, e := range c.items {
		if !now.Before(e.expiresAt) {
			delete(c.items, k)
			n++
		}
	}
	return n
}

func (c *TTL[V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

func (c *TTL[V]) copy(v V) V {
	if c.clone == nil {
		return v
	}
	return c.clone(v)
}

// Noop never stores anything.
type Noop[V any] struct{}

func (Noop[V]) Get(string) (V, bool) {
	var zero V
	return zero, false
}

func (Noop[V]) Put(string, V, time.Duration) {}
