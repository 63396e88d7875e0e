// Package service implements the appeal resolution workflow: the
// worker → company → administrator dispute process with time-boxed
// auto-escalation.
//
// The two-stage timeout is the core fairness guarantee of the registry: a
// reminder nudges the company at three days, and at five days the disputed
// review is removed outright. A company's silence cannot preserve a disputed
// review, and a worker's appeal cannot sit unresolved forever.
package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/sr13dr31/belyispisok/internal/appeal/models"
	identitymodels "github.com/sr13dr31/belyispisok/internal/identity/models"
	"github.com/sr13dr31/belyispisok/internal/notify"
	"github.com/sr13dr31/belyispisok/internal/platform/metrics"
	reviewmodels "github.com/sr13dr31/belyispisok/internal/review/models"
	id "github.com/sr13dr31/belyispisok/pkg/domain"
)

const (
	// appealWindow is how long after a review's creation it stays
	// disputable. Filed at exactly the boundary is still accepted.
	appealWindow = 14 * 24 * time.Hour
	// reminderAfter nudges a silent company, once per appeal.
	reminderAfter = 3 * 24 * time.Hour
	// autoRemoveAfter resolves the appeal against a still-silent company.
	autoRemoveAfter = 5 * 24 * time.Hour
)

// Store is the persistence port for appeal rows. Transition methods are
// conditional on the current status and return sentinel.ErrInvalidState on a
// lost race.
type Store interface {
	Create(ctx context.Context, appeal *models.Appeal) error
	FindByID(ctx context.Context, appealID id.AppealID) (*models.Appeal, error)
	FindActive(ctx context.Context, reviewID id.ReviewID, workerID id.WorkerID) (*models.Appeal, error)
	MaxAttempts(ctx context.Context, reviewID id.ReviewID, workerID id.WorkerID) (int, error)
	MarkCompanyResponded(ctx context.Context, appealID id.AppealID, comment, evidenceRef string, now time.Time) error
	Decide(ctx context.Context, appealID id.AppealID, status models.Status, comment string, now time.Time) error
	SetAdminComment(ctx context.Context, appealID id.AppealID, comment string, now time.Time) error
	MarkReminderSent(ctx context.Context, appealID id.AppealID, now time.Time) error
	AutoRemove(ctx context.Context, appealID id.AppealID, now time.Time) error
	ListPendingCompanyResponse(ctx context.Context) ([]models.Appeal, error)
	ListByCompany(ctx context.Context, companyID id.CompanyID, status models.Status) ([]models.Appeal, error)
	ListByStatus(ctx context.Context, status models.Status, limit, offset int) ([]models.Appeal, error)
	CountOpen(ctx context.Context) (int, error)
	CountOpenOlderThan(ctx context.Context, cutoff time.Time) (int, error)
}

// ReviewLedger is the slice of the review service the workflow needs: load
// the disputed review and delete it on resolution.
type ReviewLedger interface {
	ReviewByID(ctx context.Context, reviewID id.ReviewID) (*reviewmodels.Review, error)
	DeleteReview(ctx context.Context, reviewID id.ReviewID) error
}

// WorkerDirectory resolves workers for ownership checks and notifications.
type WorkerDirectory interface {
	WorkerByID(ctx context.Context, workerID id.WorkerID) (*identitymodels.Worker, error)
}

// CompanyDirectory resolves companies for notifications.
type CompanyDirectory interface {
	CompanyByID(ctx context.Context, companyID id.CompanyID) (*identitymodels.Company, error)
}

// TxRunner wraps the file-appeal precondition checks and insert atomically.
type TxRunner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Service orchestrates the appeal workflow.
type Service struct {
	store       Store
	reviews     ReviewLedger
	workers     WorkerDirectory
	companies   CompanyDirectory
	txRunner    TxRunner
	notifier    notify.Notifier
	adminActors []id.ActorID
	metrics     *metrics.Metrics
	logger      *slog.Logger
}

func New(store Store, reviews ReviewLedger, workers WorkerDirectory, companies CompanyDirectory, txRunner TxRunner, notifier notify.Notifier, adminActors []id.ActorID, m *metrics.Metrics, logger *slog.Logger) *Service {
	return &Service{
		store:       store,
		reviews:     reviews,
		workers:     workers,
		companies:   companies,
		txRunner:    txRunner,
		notifier:    notifier,
		adminActors: adminActors,
		metrics:     m,
		logger:      logger,
	}
}

// send delivers best-effort: failures are logged, never propagated.
func (s *Service) send(ctx context.Context, msg notify.Message) {
	if msg.Recipient.IsZero() {
		return
	}
	if err := s.notifier.Notify(ctx, msg); err != nil {
		s.logger.Warn("notification failed", "kind", msg.Kind, "recipient", msg.Recipient, "error", err)
	}
}

// broadcastAdmins fans a message out to every configured administrator.
func (s *Service) broadcastAdmins(ctx context.Context, kind notify.Kind, params map[string]string) {
	for _, actor := range s.adminActors {
		s.send(ctx, notify.Message{Recipient: actor, Kind: kind, Params: params})
	}
}

func (s *Service) notifyWorker(ctx context.Context, workerID id.WorkerID, kind notify.Kind, params map[string]string) {
	worker, err := s.workers.WorkerByID(ctx, workerID)
	if err != nil {
		s.logger.Warn("notification recipient lookup failed", "worker_id", workerID, "error", err)
		return
	}
	s.send(ctx, notify.Message{Recipient: worker.OwnerID, Kind: kind, Params: params})
}

func (s *Service) notifyCompany(ctx context.Context, companyID id.CompanyID, kind notify.Kind, params map[string]string) {
	company, err := s.companies.CompanyByID(ctx, companyID)
	if err != nil {
		s.logger.Warn("notification recipient lookup failed", "company_id", companyID, "error", err)
		return
	}
	s.send(ctx, notify.Message{Recipient: company.OwnerID, Kind: kind, Params: params})
}
