package runstore

import (
	"context"
	"slices"
	"sync"
)

// MemoryStore is an in-memory run store for tests and short-lived
// processes. Data is lost when the process exits.
type MemoryStore struct {
	mu     sync.RWMutex
	runs   map[string]Record
	closed bool
}

// NewMemoryStore creates a new in-memory run store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{runs: make(map[string]Record)}
}

// Save implements Store.
func (m *MemoryStore) Save(_ context.Context, rec Record) error {
	if rec.RunID == "" {
		return ErrMissingRunID
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrStoreClosed
	}

	// Copy data to avoid retaining caller's slice
	rec.Data = slices.Clone(rec.Data)
	m.runs[rec.RunID] = rec
	return nil
}

// Load implements Store.
func (m *MemoryStore) Load(_ context.Context, runID string) (Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return Record{}, ErrStoreClosed
	}

	rec, ok := m.runs[runID]
	if !ok {
		return Record{}, ErrNotFound
	}
	rec.Data = slices.Clone(rec.Data)
	return rec, nil
}

// List implements Store.
func (m *MemoryStore) List(_ context.Context, f Filter) ([]Info, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, ErrStoreClosed
	}

	infos := []Info{}
	for _, rec := range m.runs {
		if f.matches(rec) {
			infos = append(infos, rec.info())
		}
	}
	slices.SortFunc(infos, func(a, b Info) int {
		if c := b.StartedAt.Compare(a.StartedAt); c != 0 {
			return c
		}
		if a.RunID < b.RunID {
			return -1
		}
		if a.RunID > b.RunID {
			return 1
		}
		return 0
	})
	if f.Limit > 0 && len(infos) > f.Limit {
		infos = infos[:f.Limit]
	}
	return infos, nil
}

// Delete implements Store.
func (m *MemoryStore) Delete(_ context.Context, runID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrStoreClosed
	}
	delete(m.runs, runID)
	return nil
}

// Close implements Store.
func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	m.runs = nil
	return nil
}
