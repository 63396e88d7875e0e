// Package review provides the review-row persistence implementations.
package review

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/sr13dr31/belyispisok/internal/review/models"
	id "github.com/sr13dr31/belyispisok/pkg/domain"
	"github.com/sr13dr31/belyispisok/pkg/platform/sentinel"
)

// MemoryStore keeps review rows in process memory.
type MemoryStore struct {
	mu   sync.RWMutex
	rows map[id.ReviewID]*models.Review
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{rows: make(map[id.ReviewID]*models.Review)}
}

func (s *MemoryStore) Create(_ context.Context, review *models.Review) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows[review.ID] = cloneReview(review)
	return nil
}

func (s *MemoryStore) FindByID(_ context.Context, reviewID id.ReviewID) (*models.Review, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.rows[reviewID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return cloneReview(r), nil
}

func (s *MemoryStore) Delete(_ context.Context, reviewID id.ReviewID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rows[reviewID]; !ok {
		return sentinel.ErrNotFound
	}
	delete(s.rows, reviewID)
	return nil
}

func (s *MemoryStore) ListByWorker(_ context.Context, workerID id.WorkerID, limit, offset int) ([]models.Review, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Review
	for _, r := range s.rows {
		if r.WorkerID == workerID {
			out = append(out, *cloneReview(r))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryStore) ListByEmployment(_ context.Context, employmentID id.EmploymentID) ([]models.Review, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Review
	for _, r := range s.rows {
		if r.EmploymentID != nil && *r.EmploymentID == employmentID {
			out = append(out, *cloneReview(r))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *MemoryStore) Aggregate(_ context.Context, workerID id.WorkerID) (models.AggregateRating, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var sum, count int
	for _, r := range s.rows {
		if r.WorkerID == workerID && r.Rating != nil {
			sum += *r.Rating
			count++
		}
	}
	if count == 0 {
		return models.AggregateRating{}, nil
	}
	avg := float64(sum) / float64(count)
	return models.AggregateRating{Average: &avg, Count: count}, nil
}

func (s *MemoryStore) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rows), nil
}

func (s *MemoryStore) CountCreatedSince(_ context.Context, since time.Time) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	count := 0
	for _, r := range s.rows {
		if !r.CreatedAt.Before(since) {
			count++
		}
	}
	return count, nil
}

func cloneReview(r *models.Review) *models.Review {
	clone := *r
	if r.EmploymentID != nil {
		e := *r.EmploymentID
		clone.EmploymentID = &e
	}
	if r.Rating != nil {
		v := *r.Rating
		clone.Rating = &v
	}
	return &clone
}
