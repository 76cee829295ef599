package docstore

import (
	"context"
	"sync"

	"github.com/upb/retrieval-plane/models"
)

// MemoryStore keeps a collection in process memory.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]models.StoredEntry
}

// NewMemoryStore creates a store seeded with a copy of entries.
func NewMemoryStore(entries map[string]models.StoredEntry) *MemoryStore {
	return &MemoryStore{entries: cloneEntries(entries)}
}

// Load returns a snapshot; later writes do not show through it.
func (s *MemoryStore) Load(ctx context.Context) (map[string]models.StoredEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneEntries(s.entries), nil
}

func (s *MemoryStore) Keys(ctx context.Context) (map[string]struct{}, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make(map[string]struct{}, len(s.entries))
	for id := range s.entries {
		keys[id] = struct{}{}
	}
	return keys, nil
}

func (s *MemoryStore) Put(ctx context.Context, entries map[string]models.StoredEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, entry := range entries {
		s.entries[id] = entry
	}
	return nil
}
