// Package appeal provides the review-appeal persistence implementations.
package appeal

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/sr13dr31/belyispisok/internal/appeal/models"
	id "github.com/sr13dr31/belyispisok/pkg/domain"
	"github.com/sr13dr31/belyispisok/pkg/platform/sentinel"
)

// MemoryStore keeps appeal rows in process memory with the same
// conditional-transition semantics as the postgres store.
type MemoryStore struct {
	mu   sync.RWMutex
	rows map[id.AppealID]*models.Appeal
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{rows: make(map[id.AppealID]*models.Appeal)}
}

func (s *MemoryStore) Create(_ context.Context, appeal *models.Appeal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.rows {
		if a.ReviewID == appeal.ReviewID && a.WorkerID == appeal.WorkerID && !a.Status.IsTerminal() {
			return sentinel.ErrConflict
		}
	}
	s.rows[appeal.ID] = cloneAppeal(appeal)
	return nil
}

func (s *MemoryStore) FindByID(_ context.Context, appealID id.AppealID) (*models.Appeal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.rows[appealID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return cloneAppeal(a), nil
}

func (s *MemoryStore) FindActive(_ context.Context, reviewID id.ReviewID, workerID id.WorkerID) (*models.Appeal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, a := range s.rows {
		if a.ReviewID == reviewID && a.WorkerID == workerID && !a.Status.IsTerminal() {
			return cloneAppeal(a), nil
		}
	}
	return nil, sentinel.ErrNotFound
}

func (s *MemoryStore) MaxAttempts(_ context.Context, reviewID id.ReviewID, workerID id.WorkerID) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	max := 0
	for _, a := range s.rows {
		if a.ReviewID == reviewID && a.WorkerID == workerID && a.AttemptsCount > max {
			max = a.AttemptsCount
		}
	}
	return max, nil
}

func (s *MemoryStore) MarkCompanyResponded(_ context.Context, appealID id.AppealID, comment, evidenceRef string, now time.Time) error {
	return s.transition(appealID, []models.Status{models.StatusPendingCompanyResponse}, func(a *models.Appeal) {
		a.Status = models.StatusPendingAdminReview
		a.CompanyComment = comment
		a.CompanyEvidenceRef = evidenceRef
		a.UpdatedAt = now
	})
}

func (s *MemoryStore) Decide(_ context.Context, appealID id.AppealID, status models.Status, comment string, now time.Time) error {
	from := []models.Status{models.StatusPendingCompanyResponse, models.StatusPendingAdminReview}
	return s.transition(appealID, from, func(a *models.Appeal) {
		a.Status = status
		a.AdminComment = comment
		t := now
		a.FinalDecisionAt = &t
		a.UpdatedAt = now
	})
}

// SetAdminComment is the one write valid in any status: a moderator note on a
// resolved appeal stays attachable.
func (s *MemoryStore) SetAdminComment(_ context.Context, appealID id.AppealID, comment string, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.rows[appealID]
	if !ok {
		return sentinel.ErrNotFound
	}
	a.AdminComment = comment
	a.UpdatedAt = now
	return nil
}

func (s *MemoryStore) MarkReminderSent(_ context.Context, appealID id.AppealID, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.rows[appealID]
	if !ok || a.Status != models.StatusPendingCompanyResponse || a.ReminderSentAt != nil {
		return sentinel.ErrInvalidState
	}
	t := now
	a.ReminderSentAt = &t
	a.UpdatedAt = now
	return nil
}

func (s *MemoryStore) AutoRemove(_ context.Context, appealID id.AppealID, now time.Time) error {
	return s.transition(appealID, []models.Status{models.StatusPendingCompanyResponse}, func(a *models.Appeal) {
		a.Status = models.StatusAutoRemovedReview
		t := now
		a.FinalDecisionAt = &t
		a.UpdatedAt = now
	})
}

func (s *MemoryStore) ListPendingCompanyResponse(_ context.Context) ([]models.Appeal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Appeal
	for _, a := range s.rows {
		if a.Status == models.StatusPendingCompanyResponse {
			out = append(out, *cloneAppeal(a))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *MemoryStore) ListByCompany(_ context.Context, companyID id.CompanyID, status models.Status) ([]models.Appeal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Appeal
	for _, a := range s.rows {
		if a.CompanyID == companyID && a.Status == status {
			out = append(out, *cloneAppeal(a))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *MemoryStore) ListByStatus(_ context.Context, status models.Status, limit, offset int) ([]models.Appeal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Appeal
	for _, a := range s.rows {
		if a.Status == status {
			out = append(out, *cloneAppeal(a))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return paginate(out, limit, offset), nil
}

func (s *MemoryStore) CountOpen(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	count := 0
	for _, a := range s.rows {
		if !a.Status.IsTerminal() {
			count++
		}
	}
	return count, nil
}

func (s *MemoryStore) CountOpenOlderThan(_ context.Context, cutoff time.Time) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	count := 0
	for _, a := range s.rows {
		if !a.Status.IsTerminal() && a.CreatedAt.Before(cutoff) {
			count++
		}
	}
	return count, nil
}

func (s *MemoryStore) transition(appealID id.AppealID, from []models.Status, apply func(*models.Appeal)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.rows[appealID]
	if !ok {
		return sentinel.ErrInvalidState
	}
	if !slices.Contains(from, a.Status) {
		return sentinel.ErrInvalidState
	}
	apply(a)
	return nil
}

func paginate(rows []models.Appeal, limit, offset int) []models.Appeal {
	if offset >= len(rows) {
		return nil
	}
	rows = rows[offset:]
	if limit > 0 && len(rows) > limit {
		rows = rows[:limit]
	}
	return rows
}

func cloneAppeal(a *models.Appeal) *models.Appeal {
	clone := *a
	clone.EvidenceRefs = slices.Clone(a.EvidenceRefs)
	if a.ReminderSentAt != nil {
		t := *a.ReminderSentAt
		clone.ReminderSentAt = &t
	}
	if a.FinalDecisionAt != nil {
		t := *a.FinalDecisionAt
		clone.FinalDecisionAt = &t
	}
	return &clone
}
