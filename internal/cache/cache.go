// Package cache holds derived values for a fixed time-to-live.
package cache

import (
	"context"
	"time"
)

// Clock supplies the current time.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function to Clock.
type ClockFunc func() time.Time

func (f ClockFunc) Now() time.Time { return f() }

// SystemClock reads the wall clock.
var SystemClock Clock = ClockFunc(time.Now)

// Entry is a cached value and the moment it was stored.
type Entry[V any] struct {
	Data      V         `json:"data"`
	Timestamp time.Time `json:"timestamp"`
}

// IsExpired reports whether more than ttl has passed since the entry was stored.
func (e Entry[V]) IsExpired(now time.Time, ttl time.Duration) bool {
	return now.Sub(e.Timestamp) > ttl
}

// Store is the backing table for a Cache. Get reports false on a miss.
type Store[V any] interface {
	Get(ctx context.Context, key string) (Entry[V], bool, error)
	Set(ctx context.Context, key string, entry Entry[V]) error
	Clear(ctx context.Context) error
	Close() error
}

// Cache applies a single TTL to every entry of a Store.
type Cache[V any] struct {
	store Store[V]
	ttl   time.Duration
	clock Clock
}

// New creates a Cache. A nil clock means SystemClock.
func New[V any](store Store[V], ttl time.Duration, clock Clock) *Cache[V] {
	if clock == nil {
		clock = SystemClock
	}
	return &Cache[V]{store: store, ttl: ttl, clock: clock}
}

// Get returns the value for key when present and not expired.
func (c *Cache[V]) Get(ctx context.Context, key string) (V, bool, error) {
	var zero V
	entry, ok, err := c.store.Get(ctx, key)
	if err != nil || !ok {
		return zero, false, err
	}
	if c.IsExpired(entry) {
		return zero, false, nil
	}
	return entry.Data, true, nil
}

// Set stores value under key, stamped with the current time.
func (c *Cache[V]) Set(ctx context.Context, key string, value V) error {
	return c.store.Set(ctx, key, Entry[V]{Data: value, Timestamp: c.clock.Now()})
}

// Clear evicts every entry.
func (c *Cache[V]) Clear(ctx context.Context) error {
	return c.store.Clear(ctx)
}

// IsExpired checks e against the cache TTL.
func (c *Cache[V]) IsExpired(e Entry[V]) bool {
	return e.IsExpired(c.clock.Now(), c.ttl)
}

// TTL is the lifetime applied to entries.
func (c *Cache[V]) TTL() time.Duration {
	return c.ttl
}

// Close releases the backing store.
func (c *Cache[V]) Close() error {
	return c.store.Close()
}
