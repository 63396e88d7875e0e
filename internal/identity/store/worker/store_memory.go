// Package worker provides the worker-row persistence implementations.
package worker

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/sr13dr31/belyispisok/internal/identity/models"
	"github.com/sr13dr31/belyispisok/internal/identity/service"
	id "github.com/sr13dr31/belyispisok/pkg/domain"
	"github.com/sr13dr31/belyispisok/pkg/platform/sentinel"
)

// MemoryStore keeps worker rows in process memory. Used by unit tests and
// local development.
type MemoryStore struct {
	mu       sync.RWMutex
	byID     map[id.WorkerID]*models.Worker
	byOwner  map[id.ActorID]id.WorkerID
	byPublic map[id.PublicID]id.WorkerID
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byID:     make(map[id.WorkerID]*models.Worker),
		byOwner:  make(map[id.ActorID]id.WorkerID),
		byPublic: make(map[id.PublicID]id.WorkerID),
	}
}

func (s *MemoryStore) Create(_ context.Context, worker *models.Worker) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.byOwner[worker.OwnerID]; exists {
		return sentinel.ErrConflict
	}
	if _, exists := s.byPublic[worker.PublicID]; exists {
		return sentinel.ErrConflict
	}
	clone := *worker
	s.byID[worker.ID] = &clone
	s.byOwner[worker.OwnerID] = worker.ID
	s.byPublic[worker.PublicID] = worker.ID
	return nil
}

func (s *MemoryStore) FindByID(_ context.Context, workerID id.WorkerID) (*models.Worker, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.get(workerID)
}

func (s *MemoryStore) FindByOwner(_ context.Context, owner id.ActorID) (*models.Worker, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	workerID, ok := s.byOwner[owner]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return s.get(workerID)
}

func (s *MemoryStore) FindByPublicID(_ context.Context, publicID id.PublicID) (*models.Worker, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	workerID, ok := s.byPublic[publicID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return s.get(workerID)
}

func (s *MemoryStore) Update(_ context.Context, worker *models.Worker) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[worker.ID]; !ok {
		return sentinel.ErrNotFound
	}
	clone := *worker
	s.byID[worker.ID] = &clone
	return nil
}

func (s *MemoryStore) SetPassport(_ context.Context, workerID id.WorkerID, encrypted string) error {
	return s.mutate(workerID, func(w *models.Worker) { w.Passport = encrypted })
}

func (s *MemoryStore) SetPassportLocked(_ context.Context, workerID id.WorkerID, locked bool) error {
	return s.mutate(workerID, func(w *models.Worker) { w.PassportLocked = locked })
}

func (s *MemoryStore) SetBlocked(_ context.Context, workerID id.WorkerID, blocked bool) error {
	return s.mutate(workerID, func(w *models.Worker) { w.Blocked = blocked })
}

func (s *MemoryStore) SetNotes(_ context.Context, workerID id.WorkerID, notes string) error {
	return s.mutate(workerID, func(w *models.Worker) { w.Notes = notes })
}

func (s *MemoryStore) List(_ context.Context, filter service.ListFilter) ([]models.Worker, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	search := strings.ToLower(strings.TrimSpace(filter.Search))
	var out []models.Worker
	for _, w := range s.byID {
		if search != "" &&
			!strings.Contains(strings.ToLower(w.FullName), search) &&
			!strings.Contains(strings.ToLower(string(w.PublicID)), search) {
			continue
		}
		out = append(out, *w)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })

	if filter.Offset >= len(out) {
		return nil, nil
	}
	out = out[filter.Offset:]
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (s *MemoryStore) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID), nil
}

func (s *MemoryStore) CountCreatedSince(_ context.Context, since time.Time) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	count := 0
	for _, w := range s.byID {
		if !w.CreatedAt.Before(since) {
			count++
		}
	}
	return count, nil
}

func (s *MemoryStore) PublicIDTaken(_ context.Context, publicID id.PublicID) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, taken := s.byPublic[publicID]
	return taken, nil
}

func (s *MemoryStore) get(workerID id.WorkerID) (*models.Worker, error) {
	w, ok := s.byID[workerID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	clone := *w
	return &clone, nil
}

func (s *MemoryStore) mutate(workerID id.WorkerID, fn func(*models.Worker)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.byID[workerID]
	if !ok {
		return sentinel.ErrNotFound
	}
	fn(w)
	return nil
}
