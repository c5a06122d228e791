package store

import (
	"context"
	"sync"

	"github.com/gamercodedev-jpg/smartpos-inventory/models"
)

type memoryEntry struct {
	payload string
	rev     int64
}

// MemoryStore is the in-process substrate used by tests and
// single-terminal deployments.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string]memoryEntry
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string]memoryEntry)}
}

func (m *MemoryStore) Get(ctx context.Context, key string) (string, int64, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	entry, ok := m.data[key]
	if !ok {
		return "", 0, false, nil
	}
	return entry.payload, entry.rev, true, nil
}

func (m *MemoryStore) Put(ctx context.Context, key string, payload string, expectRev int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	current := m.data[key].rev
	if current != expectRev {
		return 0, &models.ConflictError{Key: key}
	}
	next := current + 1
	m.data[key] = memoryEntry{payload: payload, rev: next}
	return next, nil
}

func (m *MemoryStore) Del(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}
