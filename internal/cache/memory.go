package cache

import (
	"context"
	"sync"
	"time"
)

// Memory is an in-process Store
type Memory struct {
	mu      sync.RWMutex
	entries map[string]Entry
	now     func() time.Time
}

// NewMemory creates an empty in-memory store
func NewMemory() *Memory {
	return &Memory{entries: make(map[string]Entry), now: time.Now}
}

// Get implements Store
func (m *Memory) Get(_ context.Context, key string) (*Entry, error) {
	m.mu.RLock()
	e, ok := m.entries[key]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	e.Value = append([]byte(nil), e.Value...)
	return &e, nil
}

// Put implements Store
func (m *Memory) Put(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	m.entries[key] = Entry{Key: key, Value: append([]byte(nil), value...), StoredAt: m.now()}
	m.mu.Unlock()
	return nil
}

// Delete implements Store
func (m *Memory) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	delete(m.entries, key)
	m.mu.Unlock()
	return nil
}

// Len returns the number of entries
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// Close implements Store
func (m *Memory) Close() error { return nil }
