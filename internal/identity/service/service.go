// Package service implements the identity registry: worker and company
// lifecycle, public-id allocation, document encryption at the storage
// boundary, and the blocking/KYC/subscription flags administrators manage.
package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/sr13dr31/belyispisok/internal/cipher"
	"github.com/sr13dr31/belyispisok/internal/identity/models"
	"github.com/sr13dr31/belyispisok/internal/platform/metrics"
	id "github.com/sr13dr31/belyispisok/pkg/domain"
)

// WorkerStore is the persistence port for worker rows. Implementations
// return sentinel errors; the service translates them to domain errors.
type WorkerStore interface {
	Create(ctx context.Context, worker *models.Worker) error
	FindByID(ctx context.Context, workerID id.WorkerID) (*models.Worker, error)
	FindByOwner(ctx context.Context, owner id.ActorID) (*models.Worker, error)
	FindByPublicID(ctx context.Context, publicID id.PublicID) (*models.Worker, error)
	Update(ctx context.Context, worker *models.Worker) error
	SetPassport(ctx context.Context, workerID id.WorkerID, encrypted string) error
	SetPassportLocked(ctx context.Context, workerID id.WorkerID, locked bool) error
	SetBlocked(ctx context.Context, workerID id.WorkerID, blocked bool) error
	SetNotes(ctx context.Context, workerID id.WorkerID, notes string) error
	List(ctx context.Context, filter ListFilter) ([]models.Worker, error)
	Count(ctx context.Context) (int, error)
	CountCreatedSince(ctx context.Context, since time.Time) (int, error)
	PublicIDTaken(ctx context.Context, publicID id.PublicID) (bool, error)
}

// CompanyStore is the persistence port for company rows.
type CompanyStore interface {
	Create(ctx context.Context, company *models.Company) error
	FindByID(ctx context.Context, companyID id.CompanyID) (*models.Company, error)
	FindByOwner(ctx context.Context, owner id.ActorID) (*models.Company, error)
	FindByPublicID(ctx context.Context, publicID id.PublicID) (*models.Company, error)
	Update(ctx context.Context, company *models.Company) error
	SetBlocked(ctx context.Context, companyID id.CompanyID, blocked bool) error
	SetKYCStatus(ctx context.Context, companyID id.CompanyID, status models.KYCStatus) error
	SetSubscription(ctx context.Context, companyID id.CompanyID, level string, until *time.Time) error
	List(ctx context.Context, filter ListFilter) ([]models.Company, error)
	Count(ctx context.Context) (int, error)
	CountCreatedSince(ctx context.Context, since time.Time) (int, error)
	CountActiveSubscriptions(ctx context.Context, now time.Time) (int, error)
	CountLapsedSubscriptions(ctx context.Context, now time.Time) (int, error)
	PublicIDTaken(ctx context.Context, publicID id.PublicID) (bool, error)
}

// ListFilter narrows admin listings. Search matches name or public id.
type ListFilter struct {
	Search string
	Limit  int
	Offset int
}

// Service owns identity reads and writes. Every passport value crosses the
// cipher exactly once per direction: encrypted before any store write,
// decrypted (with self-healing re-encryption) after any store read.
type Service struct {
	workers   WorkerStore
	companies CompanyStore
	cipher    *cipher.Cipher
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

func New(workers WorkerStore, companies CompanyStore, c *cipher.Cipher, m *metrics.Metrics, logger *slog.Logger) *Service {
	return &Service{
		workers:   workers,
		companies: companies,
		cipher:    c,
		metrics:   m,
		logger:    logger,
	}
}

// RegistrationCounts reports total rows and rows created since the cutoff for
// one population, for the reporting dashboard.
type RegistrationCounts struct {
	Total  int
	Recent int
}

// WorkerCounts aggregates worker registration figures.
func (s *Service) WorkerCounts(ctx context.Context, since time.Time) (RegistrationCounts, error) {
	total, err := s.workers.Count(ctx)
	if err != nil {
		return RegistrationCounts{}, translateWorkerErr(err)
	}
	recent, err := s.workers.CountCreatedSince(ctx, since)
	if err != nil {
		return RegistrationCounts{}, translateWorkerErr(err)
	}
	return RegistrationCounts{Total: total, Recent: recent}, nil
}

// CompanyCounts aggregates company registration figures.
func (s *Service) CompanyCounts(ctx context.Context, since time.Time) (RegistrationCounts, error) {
	total, err := s.companies.Count(ctx)
	if err != nil {
		return RegistrationCounts{}, translateCompanyErr(err)
	}
	recent, err := s.companies.CountCreatedSince(ctx, since)
	if err != nil {
		return RegistrationCounts{}, translateCompanyErr(err)
	}
	return RegistrationCounts{Total: total, Recent: recent}, nil
}
