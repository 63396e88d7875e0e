// Package service implements the append-only review ledger and the
// compute-on-read rating aggregate.
package service

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"strings"
	"time"

	identitymodels "github.com/sr13dr31/belyispisok/internal/identity/models"
	"github.com/sr13dr31/belyispisok/internal/notify"
	"github.com/sr13dr31/belyispisok/internal/platform/metrics"
	"github.com/sr13dr31/belyispisok/internal/review/models"
	id "github.com/sr13dr31/belyispisok/pkg/domain"
	dErrors "github.com/sr13dr31/belyispisok/pkg/domain-errors"
	"github.com/sr13dr31/belyispisok/pkg/platform/sentinel"
	"github.com/sr13dr31/belyispisok/pkg/requestcontext"
)

// Store is the persistence port for review rows.
type Store interface {
	Create(ctx context.Context, review *models.Review) error
	FindByID(ctx context.Context, reviewID id.ReviewID) (*models.Review, error)
	Delete(ctx context.Context, reviewID id.ReviewID) error
	ListByWorker(ctx context.Context, workerID id.WorkerID, limit, offset int) ([]models.Review, error)
	ListByEmployment(ctx context.Context, employmentID id.EmploymentID) ([]models.Review, error)
	Aggregate(ctx context.Context, workerID id.WorkerID) (models.AggregateRating, error)
	Count(ctx context.Context) (int, error)
	CountCreatedSince(ctx context.Context, since time.Time) (int, error)
}

// RelationshipChecker gates review creation on an employment having existed
// between the parties.
type RelationshipChecker interface {
	RelationshipExists(ctx context.Context, workerID id.WorkerID, companyID id.CompanyID) (bool, error)
}

// WorkerDirectory resolves the reviewed worker for the notification.
type WorkerDirectory interface {
	WorkerByID(ctx context.Context, workerID id.WorkerID) (*identitymodels.Worker, error)
}

// Service owns review reads and writes.
type Service struct {
	store       Store
	employments RelationshipChecker
	workers     WorkerDirectory
	notifier    notify.Notifier
	metrics     *metrics.Metrics
	logger      *slog.Logger
}

func New(store Store, employments RelationshipChecker, workers WorkerDirectory, notifier notify.Notifier, m *metrics.Metrics, logger *slog.Logger) *Service {
	return &Service{
		store:       store,
		employments: employments,
		workers:     workers,
		notifier:    notifier,
		metrics:     m,
		logger:      logger,
	}
}

// CreateReviewInput carries the review fields. EmploymentID is optional.
type CreateReviewInput struct {
	CompanyID    id.CompanyID
	WorkerID     id.WorkerID
	EmploymentID *id.EmploymentID
	Text         string
	Rating       *int
}

// CreateReview appends a review. Only a company that holds or held an
// accepted employment with the worker may review them.
func (s *Service) CreateReview(ctx context.Context, input CreateReviewInput) (*models.Review, error) {
	review := &models.Review{
		ID:           id.NewReviewID(),
		CompanyID:    input.CompanyID,
		WorkerID:     input.WorkerID,
		EmploymentID: input.EmploymentID,
		Text:         strings.TrimSpace(input.Text),
		Rating:       input.Rating,
		CreatedAt:    requestcontext.Now(ctx),
	}
	if err := review.Validate(); err != nil {
		return nil, err
	}

	related, err := s.employments.RelationshipExists(ctx, input.WorkerID, input.CompanyID)
	if err != nil {
		return nil, err
	}
	if !related {
		return nil, dErrors.New(dErrors.CodeForbidden, "no employment with this worker")
	}

	if err := s.store.Create(ctx, review); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "create review")
	}

	s.metrics.IncReviewsCreated()
	s.logger.Info("review created", "review_id", review.ID, "worker_id", input.WorkerID, "company_id", input.CompanyID)

	if worker, err := s.workers.WorkerByID(ctx, input.WorkerID); err == nil {
		params := map[string]string{}
		if review.Rating != nil {
			params["rating"] = strings.Repeat("★", *review.Rating)
		}
		if err := s.notifier.Notify(ctx, notify.Message{
			Recipient: worker.OwnerID,
			Kind:      notify.KindReviewReceived,
			Params:    params,
		}); err != nil {
			s.logger.Warn("notification failed", "kind", notify.KindReviewReceived, "error", err)
		}
	}
	return review, nil
}

// ReviewByID loads one review.
func (s *Service) ReviewByID(ctx context.Context, reviewID id.ReviewID) (*models.Review, error) {
	review, err := s.store.FindByID(ctx, reviewID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "review not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "load review")
	}
	return review, nil
}

// DeleteReview hard-deletes a review. Reachable only through the appeal
// workflow's resolution paths; companies have no direct delete.
func (s *Service) DeleteReview(ctx context.Context, reviewID id.ReviewID) error {
	if err := s.store.Delete(ctx, reviewID); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "review not found")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "delete review")
	}
	s.logger.Info("review deleted", "review_id", reviewID)
	return nil
}

// ListByWorker returns a worker's reviews, newest first.
func (s *Service) ListByWorker(ctx context.Context, workerID id.WorkerID, limit, offset int) ([]models.Review, error) {
	reviews, err := s.store.ListByWorker(ctx, workerID, limit, offset)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "list reviews")
	}
	return reviews, nil
}

// ListByEmployment returns the reviews tied to one employment.
func (s *Service) ListByEmployment(ctx context.Context, employmentID id.EmploymentID) ([]models.Review, error) {
	reviews, err := s.store.ListByEmployment(ctx, employmentID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "list reviews by employment")
	}
	return reviews, nil
}

// AggregateRating averages the worker's non-null ratings, rounded to two
// decimals. Zero rated reviews yields a nil average (neutral risk).
func (s *Service) AggregateRating(ctx context.Context, workerID id.WorkerID) (models.AggregateRating, error) {
	agg, err := s.store.Aggregate(ctx, workerID)
	if err != nil {
		return models.AggregateRating{}, dErrors.Wrap(err, dErrors.CodeInternal, "aggregate rating")
	}
	if agg.Average != nil {
		rounded := math.Round(*agg.Average*100) / 100
		agg.Average = &rounded
	}
	return agg, nil
}

// Count reports the total review volume.
func (s *Service) Count(ctx context.Context) (int, error) {
	count, err := s.store.Count(ctx)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "count reviews")
	}
	return count, nil
}

// CountCreatedSince powers the dashboard's review-signal window.
func (s *Service) CountCreatedSince(ctx context.Context, since time.Time) (int, error) {
	count, err := s.store.CountCreatedSince(ctx, since)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "count reviews since")
	}
	return count, nil
}
