package cache

import (
	"context"
	"sync"
)

// Memory is a process-local Store. Concurrent writers may race to refill the
// same key; the last write wins.
type Memory[V any] struct {
	mu      sync.RWMutex
	entries map[string]Entry[V]
}

// NewMemory creates an empty Memory store.
func NewMemory[V any]() *Memory[V] {
	return &Memory[V]{entries: make(map[string]Entry[V])}
}

func (m *Memory[V]) Get(ctx context.Context, key string) (Entry[V], bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.entries[key]
	return e, ok, nil
}

func (m *Memory[V]) Set(ctx context.Context, key string, entry Entry[V]) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = entry
	return nil
}

func (m *Memory[V]) Clear(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = make(map[string]Entry[V])
	return nil
}

func (m *Memory[V]) Close() error {
	return nil
}
