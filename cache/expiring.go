// Package cache holds small in-process caches used by the API layer.
package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// Entry is a cached value and the time it was fetched.
type Entry[V any] struct {
	Value     V
	FetchedAt time.Time
}

// Expiring is a read-through cache whose entries expire after TTL.
// A zero or negative TTL disables caching: every GetOrFetch calls fetch.
type Expiring[K comparable, V any] struct {
	ttl     time.Duration
	now     func() time.Time
	mu      sync.RWMutex
	entries map[K]Entry[V]

	// gens counts invalidations per key so a fetch that started before
	// Invalidate doesn't store its stale result.
	gens   map[K]uint64
	flight singleflight.Group
}

// NewExpiring returns an empty cache. now may be nil (time.Now).
func NewExpiring[K comparable, V any](ttl time.Duration, now func() time.Time) *Expiring[K, V] {
	if now == nil {
		now = time.Now
	}
	return &Expiring[K, V]{
		ttl:     ttl,
		now:     now,
		entries: make(map[K]Entry[V]),
		gens:    make(map[K]uint64),
	}
}

func (c *Expiring[K, V]) fresh(e Entry[V]) bool {
	return c.ttl > 0 && c.now().Sub(e.FetchedAt) < c.ttl
}

// Get returns the cached value for key if it has not expired.
func (c *Expiring[K, V]) Get(key K) (V, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[key]
	if !ok || !c.fresh(e) {
		var zero V
		return zero, false
	}
	return e.Value, true
}

// Set stores value under key.
func (c *Expiring[K, V]) Set(key K, value V) {
	if c.ttl <= 0 {
		return
	}
	c.mu.Lock()
	c.entries[key] = Entry[V]{Value: value, FetchedAt: c.now()}
	c.mu.Unlock()
}

// Invalidate drops key. A fetch already in flight for key won't store its
// result.
func (c *Expiring[K, V]) Invalidate(key K) {
	c.mu.Lock()
	delete(c.entries, key)
	c.gens[key]++
	c.mu.Unlock()
	c.flight.Forget(flightKey(key))
}

// Len counts entries, expired ones included.
func (c *Expiring[K, V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// GetOrFetch returns the cached value or calls fetch and caches the
// result. Errors are returned as is and never cached.
//
// Concurrent misses on the same key share one fetch; other keys are not
// blocked. The shared fetch is not cancelled when one caller's ctx is, but
// each caller stops waiting when its own ctx is done.
func (c *Expiring[K, V]) GetOrFetch(ctx context.Context, key K, fetch func(context.Context, K) (V, error)) (V, error) {
	if v, ok := c.Get(key); ok {
		return v, nil
	}

	ch := c.flight.DoChan(flightKey(key), func() (interface{}, error) {
		// another flight may have filled it between Get and DoChan
		c.mu.RLock()
		e, ok := c.entries[key]
		gen := c.gens[key]
		c.mu.RUnlock()
		if ok && c.fresh(e) {
			return e.Value, nil
		}

		v, err := fetch(context.WithoutCancel(ctx), key)
		if err != nil {
			return nil, err
		}
		if c.ttl > 0 {
			c.mu.Lock()
			if c.gens[key] == gen {
				c.entries[key] = Entry[V]{Value: v, FetchedAt: c.now()}
			}
			c.mu.Unlock()
		}
		return v, nil
	})

	var zero V
	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return zero, res.Err
		}
		v, _ := res.Val.(V)
		return v, nil
	}
}

func flightKey[K comparable](key K) string {
	return fmt.Sprintf("%#v", key)
}
