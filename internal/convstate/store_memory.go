package convstate

import (
	"context"
	"sync"
	"time"

	id "github.com/sr13dr31/belyispisok/pkg/domain"
	"github.com/sr13dr31/belyispisok/pkg/platform/sentinel"
)

// MemoryStore keeps pending states in process memory.
type MemoryStore struct {
	mu   sync.Mutex
	rows map[id.ActorID]State
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{rows: make(map[id.ActorID]State)}
}

func (s *MemoryStore) Set(_ context.Context, state State) error {
	if !state.Action.Valid() {
		return sentinel.ErrInvalidState
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows[state.Actor] = state
	return nil
}

func (s *MemoryStore) Get(_ context.Context, actor id.ActorID) (*State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	state, ok := s.rows[actor]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &state, nil
}

func (s *MemoryStore) Pop(_ context.Context, actor id.ActorID) (*State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	state, ok := s.rows[actor]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	delete(s.rows, actor)
	return &state, nil
}

func (s *MemoryStore) Clear(_ context.Context, actor id.ActorID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.rows, actor)
	return nil
}

func (s *MemoryStore) ExpireOlderThan(_ context.Context, cutoff time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for actor, state := range s.rows {
		if state.UpdatedAt.Before(cutoff) {
			delete(s.rows, actor)
			removed++
		}
	}
	return removed, nil
}
