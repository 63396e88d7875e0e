// Package employment provides the employment-row persistence implementations.
package employment

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/sr13dr31/belyispisok/internal/employment/models"
	id "github.com/sr13dr31/belyispisok/pkg/domain"
	"github.com/sr13dr31/belyispisok/pkg/platform/sentinel"
)

// MemoryStore keeps employment rows in process memory with the same
// conditional-transition semantics as the postgres store.
type MemoryStore struct {
	mu   sync.RWMutex
	rows map[id.EmploymentID]*models.Employment
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{rows: make(map[id.EmploymentID]*models.Employment)}
}

func (s *MemoryStore) Create(_ context.Context, employment *models.Employment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.rows {
		if e.WorkerID == employment.WorkerID && e.IsOpen() {
			return sentinel.ErrConflict
		}
	}
	clone := cloneEmployment(employment)
	s.rows[employment.ID] = clone
	return nil
}

func (s *MemoryStore) FindByID(_ context.Context, employmentID id.EmploymentID) (*models.Employment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.rows[employmentID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return cloneEmployment(e), nil
}

func (s *MemoryStore) FindOpenByWorker(_ context.Context, workerID id.WorkerID) (*models.Employment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, e := range s.rows {
		if e.WorkerID == workerID && e.IsOpen() {
			return cloneEmployment(e), nil
		}
	}
	return nil, sentinel.ErrNotFound
}

func (s *MemoryStore) Accept(_ context.Context, employmentID id.EmploymentID, now time.Time) error {
	return s.transition(employmentID, []models.Status{models.StatusPendingConfirm}, func(e *models.Employment) {
		e.Status = models.StatusAccepted
		if e.StartedAt == nil {
			t := now
			e.StartedAt = &t
		}
	})
}

func (s *MemoryStore) Reject(_ context.Context, employmentID id.EmploymentID) error {
	return s.transition(employmentID, []models.Status{models.StatusPendingConfirm}, func(e *models.Employment) {
		e.Status = models.StatusRejected
	})
}

func (s *MemoryStore) RequestLeave(_ context.Context, employmentID id.EmploymentID, now time.Time) error {
	return s.transition(employmentID, []models.Status{models.StatusAccepted}, func(e *models.Employment) {
		e.Status = models.StatusLeaveRequested
		t := now
		e.LeaveRequestedAt = &t
	})
}

func (s *MemoryStore) CancelLeave(_ context.Context, employmentID id.EmploymentID) error {
	return s.transition(employmentID, []models.Status{models.StatusLeaveRequested}, func(e *models.Employment) {
		e.Status = models.StatusAccepted
		e.LeaveRequestedAt = nil
	})
}

func (s *MemoryStore) ConfirmLeave(_ context.Context, employmentID id.EmploymentID, now time.Time) error {
	return s.transition(employmentID, []models.Status{models.StatusLeaveRequested}, func(e *models.Employment) {
		e.Status = models.StatusEnded
		t := now
		e.EndedAt = &t
	})
}

func (s *MemoryStore) End(_ context.Context, employmentID id.EmploymentID, now time.Time) error {
	return s.transition(employmentID, []models.Status{models.StatusAccepted, models.StatusLeaveRequested}, func(e *models.Employment) {
		e.Status = models.StatusEnded
		t := now
		e.EndedAt = &t
	})
}

func (s *MemoryStore) CloseStaleLeave(_ context.Context, cutoff, now time.Time) ([]models.Employment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var closed []models.Employment
	for _, e := range s.rows {
		if e.Status != models.StatusLeaveRequested || e.EndedAt != nil {
			continue
		}
		if e.LeaveRequestedAt == nil || e.LeaveRequestedAt.After(cutoff) {
			continue
		}
		e.Status = models.StatusEnded
		t := now
		e.EndedAt = &t
		closed = append(closed, *cloneEmployment(e))
	}
	return closed, nil
}

func (s *MemoryStore) HasRelationship(_ context.Context, workerID id.WorkerID, companyID id.CompanyID) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, e := range s.rows {
		if e.WorkerID != workerID || e.CompanyID != companyID {
			continue
		}
		switch e.Status {
		case models.StatusAccepted, models.StatusLeaveRequested, models.StatusEnded:
			return true, nil
		}
	}
	return false, nil
}

func (s *MemoryStore) ListByCompany(_ context.Context, companyID id.CompanyID, statuses []models.Status, limit, offset int) ([]models.Employment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Employment
	for _, e := range s.rows {
		if e.CompanyID != companyID {
			continue
		}
		if len(statuses) > 0 && !slices.Contains(statuses, e.Status) {
			continue
		}
		out = append(out, *cloneEmployment(e))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return paginate(out, limit, offset), nil
}

func (s *MemoryStore) ListByWorker(_ context.Context, workerID id.WorkerID) ([]models.Employment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Employment
	for _, e := range s.rows {
		if e.WorkerID == workerID {
			out = append(out, *cloneEmployment(e))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *MemoryStore) CountPendingByCompany(_ context.Context, companyID id.CompanyID) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	count := 0
	for _, e := range s.rows {
		if e.CompanyID == companyID && e.Status == models.StatusPendingConfirm {
			count++
		}
	}
	return count, nil
}

func (s *MemoryStore) CountOpen(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	count := 0
	for _, e := range s.rows {
		if e.IsOpen() {
			count++
		}
	}
	return count, nil
}

func (s *MemoryStore) CountEnded(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	count := 0
	for _, e := range s.rows {
		if e.Status == models.StatusEnded {
			count++
		}
	}
	return count, nil
}

func (s *MemoryStore) transition(employmentID id.EmploymentID, from []models.Status, apply func(*models.Employment)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.rows[employmentID]
	if !ok {
		return sentinel.ErrInvalidState
	}
	if !slices.Contains(from, e.Status) {
		return sentinel.ErrInvalidState
	}
	apply(e)
	return nil
}

func paginate(rows []models.Employment, limit, offset int) []models.Employment {
	if offset >= len(rows) {
		return nil
	}
	rows = rows[offset:]
	if limit > 0 && len(rows) > limit {
		rows = rows[:limit]
	}
	return rows
}

func cloneEmployment(e *models.Employment) *models.Employment {
	clone := *e
	if e.StartedAt != nil {
		t := *e.StartedAt
		clone.StartedAt = &t
	}
	if e.EndedAt != nil {
		t := *e.EndedAt
		clone.EndedAt = &t
	}
	if e.LeaveRequestedAt != nil {
		t := *e.LeaveRequestedAt
		clone.LeaveRequestedAt = &t
	}
	return &clone
}
