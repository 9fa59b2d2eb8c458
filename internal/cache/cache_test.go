//go:build unit

package cache

import (
	"context"
	"testing"
	"time"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

type payload struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// newTestStores returns every Store implementation for table tests.
func newTestStores(t *testing.T) map[string]Store[payload] {
	t.Helper()
	sqlite, err := NewSQLite[payload](":memory:")
	if err != nil {
		t.Fatalf("failed to create sqlite cache: %v", err)
	}
	t.Cleanup(func() { sqlite.Close() })
	return map[string]Store[payload]{
		"memory": NewMemory[payload](),
		"sqlite": sqlite,
	}
}

func TestCache_HitMissAndExpiry(t *testing.T) {
	for name, store := range newTestStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			clock := &fakeClock{now: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
			c := New[payload](store, time.Hour, clock)

			if _, ok, err := c.Get(ctx, "config-en"); ok || err != nil {
				t.Fatalf("expected miss, got ok=%v err=%v", ok, err)
			}

			if err := c.Set(ctx, "config-en", payload{Name: "en", Count: 2}); err != nil {
				t.Fatalf("Set failed: %v", err)
			}

			clock.now = clock.now.Add(time.Hour)
			got, ok, err := c.Get(ctx, "config-en")
			if err != nil || !ok {
				t.Fatalf("expected hit at exactly ttl, got ok=%v err=%v", ok, err)
			}
			if got != (payload{Name: "en", Count: 2}) {
				t.Errorf("unexpected value %+v", got)
			}

			clock.now = clock.now.Add(time.Second)
			if _, ok, _ := c.Get(ctx, "config-en"); ok {
				t.Error("expected entry to be expired after ttl")
			}
		})
	}
}

func TestCache_Clear(t *testing.T) {
	for name, store := range newTestStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			c := New[payload](store, time.Hour, nil)

			for _, key := range []string{"config-en", "config-de", "config-default"} {
				if err := c.Set(ctx, key, payload{Name: key}); err != nil {
					t.Fatalf("Set failed: %v", err)
				}
			}
			if err := c.Clear(ctx); err != nil {
				t.Fatalf("Clear failed: %v", err)
			}
			for _, key := range []string{"config-en", "config-de", "config-default"} {
				if _, ok, _ := c.Get(ctx, key); ok {
					t.Errorf("expected %s to be evicted", key)
				}
			}
		})
	}
}

func TestEntry_IsExpired(t *testing.T) {
	stored := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	e := Entry[int]{Data: 1, Timestamp: stored}

	if e.IsExpired(stored.Add(time.Minute), time.Minute) {
		t.Error("entry at exactly ttl should not be expired")
	}
	if !e.IsExpired(stored.Add(time.Minute+time.Nanosecond), time.Minute) {
		t.Error("entry past ttl should be expired")
	}
}
