// Package adminuser provides the administrator-account persistence
// implementations.
package adminuser

import (
	"context"
	"sort"
	"sync"

	"github.com/sr13dr31/belyispisok/internal/admin/models"
	id "github.com/sr13dr31/belyispisok/pkg/domain"
	"github.com/sr13dr31/belyispisok/pkg/platform/sentinel"
)

// MemoryStore keeps admin accounts in process memory.
type MemoryStore struct {
	mu         sync.RWMutex
	byID       map[id.AdminID]*models.AdminUser
	byUsername map[string]id.AdminID
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byID:       make(map[id.AdminID]*models.AdminUser),
		byUsername: make(map[string]id.AdminID),
	}
}

func (s *MemoryStore) Create(_ context.Context, user *models.AdminUser) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, taken := s.byUsername[user.Username]; taken {
		return sentinel.ErrConflict
	}
	clone := *user
	s.byID[user.ID] = &clone
	s.byUsername[user.Username] = user.ID
	return nil
}

func (s *MemoryStore) FindByID(_ context.Context, adminID id.AdminID) (*models.AdminUser, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	user, ok := s.byID[adminID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	clone := *user
	return &clone, nil
}

func (s *MemoryStore) FindByUsername(_ context.Context, username string) (*models.AdminUser, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	adminID, ok := s.byUsername[username]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	clone := *s.byID[adminID]
	return &clone, nil
}

func (s *MemoryStore) SetActive(_ context.Context, adminID id.AdminID, active bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.byID[adminID]
	if !ok {
		return sentinel.ErrNotFound
	}
	user.Active = active
	return nil
}

func (s *MemoryStore) List(_ context.Context) ([]models.AdminUser, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.AdminUser, 0, len(s.byID))
	for _, user := range s.byID {
		out = append(out, *user)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out, nil
}
