package checkpoint

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is an in-memory checkpoint store for testing.
// Data is lost when the process exits.
type MemoryStore struct {
	mu     sync.RWMutex
	data   map[string][]storedVersion // sessionID -> versions, oldest first
	closed bool
}

// storedVersion holds one version with metadata for List().
type storedVersion struct {
	data      []byte
	timestamp time.Time
}

// NewMemoryStore creates a new in-memory checkpoint store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		data: make(map[string][]storedVersion),
	}
}

// Save implements Store.
func (m *MemoryStore) Save(_ context.Context, sessionID string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrStoreClosed
	}

	// Copy data to avoid retaining caller's slice
	stored := make([]byte, len(data))
	copy(stored, data)

	m.data[sessionID] = append(m.data[sessionID], storedVersion{
		data:      stored,
		timestamp: time.Now().UTC(),
	})
	return nil
}

// Load implements Store.
func (m *MemoryStore) Load(_ context.Context, sessionID string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrStoreClosed
	}

	versions := m.data[sessionID]
	if len(versions) == 0 {
		return nil, ErrNotFound
	}

	// Return a copy to prevent modification
	latest := versions[len(versions)-1].data
	result := make([]byte, len(latest))
	copy(result, latest)
	return result, nil
}

// List implements Store.
func (m *MemoryStore) List(_ context.Context, sessionID string) ([]Info, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrStoreClosed
	}

	versions := m.data[sessionID]
	infos := make([]Info, 0, len(versions))
	for i, v := range versions {
		infos = append(infos, Info{
			SessionID: sessionID,
			Sequence:  i + 1,
			Timestamp: v.timestamp,
			Size:      int64(len(v.data)),
		})
	}
	return infos, nil
}

// Delete implements Store.
func (m *MemoryStore) Delete(_ context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrStoreClosed
	}

	delete(m.data, sessionID)
	return nil
}

// Close implements Store.
func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closed = true
	m.data = nil
	return nil
}

// Len returns the total number of versions across all sessions.
// Useful for testing.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	count := 0
	for _, versions := range m.data {
		count += len(versions)
	}
	return count
}
