// Package company provides the company-row persistence implementations.
package company

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

// MemoryStore keeps company rows in process memory. Used by unit tests and
// local development.
type MemoryStore struct {
	mu       sync.RWMutex
	byID     map[id.CompanyID]*models.Company
	byOwner  map[id.ActorID]id.CompanyID
	byPublic map[id.PublicID]id.CompanyID
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byID:     make(map[id.CompanyID]*models.Company),
		byOwner:  make(map[id.ActorID]id.CompanyID),
		byPublic: make(map[id.PublicID]id.CompanyID),
	}
}

func (s *MemoryStore) Create(_ context.Context, company *models.Company) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.byOwner[company.OwnerID]; exists {
		return sentinel.ErrConflict
	}
	if _, exists := s.byPublic[company.PublicID]; exists {
		return sentinel.ErrConflict
	}
	clone := cloneCompany(company)
	s.byID[company.ID] = clone
	s.byOwner[company.OwnerID] = company.ID
	s.byPublic[company.PublicID] = company.ID
	return nil
}

func (s *MemoryStore) FindByID(_ context.Context, companyID id.CompanyID) (*models.Company, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.get(companyID)
}

func (s *MemoryStore) FindByOwner(_ context.Context, owner id.ActorID) (*models.Company, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	companyID, ok := s.byOwner[owner]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return s.get(companyID)
}

func (s *MemoryStore) FindByPublicID(_ context.Context, publicID id.PublicID) (*models.Company, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	companyID, ok := s.byPublic[publicID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return s.get(companyID)
}

func (s *MemoryStore) Update(_ context.Context, company *models.Company) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[company.ID]; !ok {
		return sentinel.ErrNotFound
	}
	s.byID[company.ID] = cloneCompany(company)
	return nil
}

func (s *MemoryStore) SetBlocked(_ context.Context, companyID id.CompanyID, blocked bool) error {
	return s.mutate(companyID, func(c *models.Company) { c.Blocked = blocked })
}

func (s *MemoryStore) SetKYCStatus(_ context.Context, companyID id.CompanyID, status models.KYCStatus) error {
	return s.mutate(companyID, func(c *models.Company) { c.KYCStatus = status })
}

func (s *MemoryStore) SetSubscription(_ context.Context, companyID id.CompanyID, level string, until *time.Time) error {
	return s.mutate(companyID, func(c *models.Company) {
		c.SubscriptionLevel = level
		if until != nil {
			u := *until
			c.SubscriptionUntil = &u
		} else {
			c.SubscriptionUntil = nil
		}
	})
}

func (s *MemoryStore) List(_ context.Context, filter service.ListFilter) ([]models.Company, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	search := strings.ToLower(strings.TrimSpace(filter.Search))
	var out []models.Company
	for _, c := range s.byID {
		if search != "" &&
			!strings.Contains(strings.ToLower(c.Name), search) &&
			!strings.Contains(strings.ToLower(string(c.PublicID)), search) {
			continue
		}
		out = append(out, *cloneCompany(c))
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
	for _, c := range s.byID {
		if !c.CreatedAt.Before(since) {
			count++
		}
	}
	return count, nil
}

func (s *MemoryStore) CountActiveSubscriptions(_ context.Context, now time.Time) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	count := 0
	for _, c := range s.byID {
		if c.SubscriptionActive(now) {
			count++
		}
	}
	return count, nil
}

func (s *MemoryStore) CountLapsedSubscriptions(_ context.Context, now time.Time) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	count := 0
	for _, c := range s.byID {
		if c.SubscriptionUntil != nil && !c.SubscriptionUntil.After(now) {
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

func (s *MemoryStore) get(companyID id.CompanyID) (*models.Company, error) {
	c, ok := s.byID[companyID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return cloneCompany(c), nil
}

func (s *MemoryStore) mutate(companyID id.CompanyID, fn func(*models.Company)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.byID[companyID]
	if !ok {
		return sentinel.ErrNotFound
	}
	fn(c)
	return nil
}

func cloneCompany(c *models.Company) *models.Company {
	clone := *c
	if c.SubscriptionUntil != nil {
		u := *c.SubscriptionUntil
		clone.SubscriptionUntil = &u
	}
	return &clone
}
