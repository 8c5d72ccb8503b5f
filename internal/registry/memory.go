package registry

import (
	"context"
	"sync"
)

// Memory is an in-memory registry for tests and local development.
type Memory struct {
	mu  sync.RWMutex
	ids map[int64]struct{}
}

// NewMemory builds a Memory registry seeded with the given IDs.
func NewMemory(ids ...int64) *Memory {
	m := &Memory{ids: make(map[int64]struct{}, len(ids))}
	for _, id := range ids {
		m.ids[id] = struct{}{}
	}
	return m
}

// Add marks an ID as processed.
func (m *Memory) Add(id int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ids[id] = struct{}{}
}

// Contains reports whether the ID has been processed.
func (m *Memory) Contains(_ context.Context, id int64) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.ids[id]
	return ok, nil
}

// HighestOwned returns the largest processed ID, or 0 when empty.
func (m *Memory) HighestOwned(_ context.Context) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var highest int64
	for id := range m.ids {
		if id > highest {
			highest = id
		}
	}
	return highest, nil
}
