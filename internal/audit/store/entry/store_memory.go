package entry

import (
	"context"
	"sort"
	"sync"

	"github.com/sr13dr31/belyispisok/internal/audit"
)

// MemoryStore is the in-memory audit sink for tests and local development.
type MemoryStore struct {
	mu      sync.RWMutex
	entries []audit.Entry
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Append(_ context.Context, entry audit.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, entry)
	return nil
}

func (s *MemoryStore) ListRecent(_ context.Context, limit, offset int) ([]audit.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sorted := make([]audit.Entry, len(s.entries))
	copy(sorted, s.entries)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].CreatedAt.After(sorted[j].CreatedAt)
	})

	if offset >= len(sorted) {
		return nil, nil
	}
	sorted = sorted[offset:]
	if limit > 0 && len(sorted) > limit {
		sorted = sorted[:limit]
	}
	return sorted, nil
}

func (s *MemoryStore) ListByEntity(_ context.Context, entityType, entityID string, limit int) ([]audit.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []audit.Entry
	for i := len(s.entries) - 1; i >= 0; i-- {
		e := s.entries[i]
		if e.EntityType != entityType || e.EntityID != entityID {
			continue
		}
		out = append(out, e)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}
