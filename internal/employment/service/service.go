// Package service implements the employment lifecycle: the attach / confirm /
// reject / leave / end state machine enforcing single active employment per
// worker.
//
// Every transition write is conditional on the current stored status, so a
// user action racing a maintenance sweep (or another user) degrades to an
// "already processed" outcome instead of corrupting state.
package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/sr13dr31/belyispisok/internal/employment/models"
	identitymodels "github.com/sr13dr31/belyispisok/internal/identity/models"
	"github.com/sr13dr31/belyispisok/internal/notify"
	"github.com/sr13dr31/belyispisok/internal/platform/metrics"
	id "github.com/sr13dr31/belyispisok/pkg/domain"
)

// leaveAutoCloseAfter is how long a company may sit on a leave request before
// the sweep closes the employment on its behalf. A silent company cannot trap
// a worker in limbo.
const leaveAutoCloseAfter = 48 * time.Hour

// Store is the persistence port for employment rows. Transition methods are
// conditional: they return sentinel.ErrInvalidState when the row was not in
// the expected source status at write time.
type Store interface {
	Create(ctx context.Context, employment *models.Employment) error
	FindByID(ctx context.Context, employmentID id.EmploymentID) (*models.Employment, error)
	FindOpenByWorker(ctx context.Context, workerID id.WorkerID) (*models.Employment, error)
	Accept(ctx context.Context, employmentID id.EmploymentID, now time.Time) error
	Reject(ctx context.Context, employmentID id.EmploymentID) error
	RequestLeave(ctx context.Context, employmentID id.EmploymentID, now time.Time) error
	CancelLeave(ctx context.Context, employmentID id.EmploymentID) error
	ConfirmLeave(ctx context.Context, employmentID id.EmploymentID, now time.Time) error
	End(ctx context.Context, employmentID id.EmploymentID, now time.Time) error
	CloseStaleLeave(ctx context.Context, cutoff, now time.Time) ([]models.Employment, error)
	HasRelationship(ctx context.Context, workerID id.WorkerID, companyID id.CompanyID) (bool, error)
	ListByCompany(ctx context.Context, companyID id.CompanyID, statuses []models.Status, limit, offset int) ([]models.Employment, error)
	ListByWorker(ctx context.Context, workerID id.WorkerID) ([]models.Employment, error)
	CountPendingByCompany(ctx context.Context, companyID id.CompanyID) (int, error)
	CountOpen(ctx context.Context) (int, error)
	CountEnded(ctx context.Context) (int, error)
}

// WorkerDirectory is the slice of the identity registry this service needs.
type WorkerDirectory interface {
	WorkerByID(ctx context.Context, workerID id.WorkerID) (*identitymodels.Worker, error)
	LockPassport(ctx context.Context, workerID id.WorkerID) error
}

// CompanyDirectory resolves companies for ownership checks and notifications.
type CompanyDirectory interface {
	CompanyByID(ctx context.Context, companyID id.CompanyID) (*identitymodels.Company, error)
}

// TxRunner wraps multi-statement invariant checks in a transaction.
type TxRunner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Service orchestrates employment transitions.
type Service struct {
	store     Store
	workers   WorkerDirectory
	companies CompanyDirectory
	txRunner  TxRunner
	notifier  notify.Notifier
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

func New(store Store, workers WorkerDirectory, companies CompanyDirectory, txRunner TxRunner, notifier notify.Notifier, m *metrics.Metrics, logger *slog.Logger) *Service {
	return &Service{
		store:     store,
		workers:   workers,
		companies: companies,
		txRunner:  txRunner,
		notifier:  notifier,
		metrics:   m,
		logger:    logger,
	}
}

// send delivers a notification best-effort: failures are logged and never
// propagate into the domain mutation that triggered them.
func (s *Service) send(ctx context.Context, msg notify.Message) {
	if msg.Recipient.IsZero() {
		return
	}
	if err := s.notifier.Notify(ctx, msg); err != nil {
		s.logger.Warn("notification failed", "kind", msg.Kind, "recipient", msg.Recipient, "error", err)
	}
}
