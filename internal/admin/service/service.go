// Package service implements the back-office surface: administrator accounts,
// the moderation mutations (every one audited), and the reporting dashboard.
package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/sr13dr31/belyispisok/internal/admin/models"
	appealmodels "github.com/sr13dr31/belyispisok/internal/appeal/models"
	"github.com/sr13dr31/belyispisok/internal/audit"
	identitymodels "github.com/sr13dr31/belyispisok/internal/identity/models"
	identityservice "github.com/sr13dr31/belyispisok/internal/identity/service"
	"github.com/sr13dr31/belyispisok/internal/notify"
	id "github.com/sr13dr31/belyispisok/pkg/domain"
)

// UserStore is the persistence port for administrator accounts.
type UserStore interface {
	Create(ctx context.Context, user *models.AdminUser) error
	FindByID(ctx context.Context, adminID id.AdminID) (*models.AdminUser, error)
	FindByUsername(ctx context.Context, username string) (*models.AdminUser, error)
	SetActive(ctx context.Context, adminID id.AdminID, active bool) error
	List(ctx context.Context) ([]models.AdminUser, error)
}

// Identity is the slice of the identity registry the back office drives.
type Identity interface {
	WorkerByID(ctx context.Context, workerID id.WorkerID) (*identitymodels.Worker, error)
	WorkerByPublicID(ctx context.Context, raw string) (*identitymodels.Worker, error)
	CompanyByID(ctx context.Context, companyID id.CompanyID) (*identitymodels.Company, error)
	CompanyByPublicID(ctx context.Context, raw string) (*identitymodels.Company, error)
	ListWorkers(ctx context.Context, filter identityservice.ListFilter) ([]identitymodels.Worker, error)
	ListCompanies(ctx context.Context, filter identityservice.ListFilter) ([]identitymodels.Company, error)
	SetWorkerBlocked(ctx context.Context, workerID id.WorkerID, blocked bool) error
	SetWorkerNotes(ctx context.Context, workerID id.WorkerID, notes string) error
	SetWorkerPassport(ctx context.Context, workerID id.WorkerID, passport string, byCompany bool) error
	UnlockPassport(ctx context.Context, workerID id.WorkerID) error
	SetCompanyBlocked(ctx context.Context, companyID id.CompanyID, blocked bool) error
	SetKYCStatus(ctx context.Context, companyID id.CompanyID, raw string) error
	GrantSubscription(ctx context.Context, companyID id.CompanyID, months int, level string) (*identitymodels.Company, error)
	WorkerCounts(ctx context.Context, since time.Time) (identityservice.RegistrationCounts, error)
	CompanyCounts(ctx context.Context, since time.Time) (identityservice.RegistrationCounts, error)
	SubscriptionCounts(ctx context.Context, now time.Time) (active, lapsed int, err error)
}

// Employments exposes the lifecycle figures the dashboard shows.
type Employments interface {
	Counts(ctx context.Context) (open, ended int, err error)
}

// Reviews is the slice of the review ledger the back office needs.
type Reviews interface {
	DeleteReview(ctx context.Context, reviewID id.ReviewID) error
	Count(ctx context.Context) (int, error)
	CountCreatedSince(ctx context.Context, since time.Time) (int, error)
}

// Appeals is the slice of the appeal workflow the back office drives.
type Appeals interface {
	AdminDecide(ctx context.Context, appealID id.AppealID, decision appealmodels.Decision, comment string) (*appealmodels.Appeal, error)
	AdminComment(ctx context.Context, appealID id.AppealID, comment string) error
	AppealByID(ctx context.Context, appealID id.AppealID) (*appealmodels.Appeal, error)
	ByStatus(ctx context.Context, status appealmodels.Status, limit, offset int) ([]appealmodels.Appeal, error)
	CountOpen(ctx context.Context) (int, error)
	CountOpenOlderThan(ctx context.Context, cutoff time.Time) (int, error)
}

// TxRunner binds a moderation mutation and its audit entry into one commit.
type TxRunner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Service is the back-office facade. Every mutation it performs lands exactly
// one audit entry in the same transaction.
type Service struct {
	users       UserStore
	identity    Identity
	employments Employments
	reviews     Reviews
	appeals     Appeals
	auditor     *audit.Publisher
	txRunner    TxRunner
	notifier    notify.Notifier
	tokens      *TokenIssuer
	logger      *slog.Logger
}

func New(users UserStore, identity Identity, employments Employments, reviews Reviews, appeals Appeals,
	auditor *audit.Publisher, txRunner TxRunner, notifier notify.Notifier, tokens *TokenIssuer, logger *slog.Logger) *Service {
	return &Service{
		users:       users,
		identity:    identity,
		employments: employments,
		reviews:     reviews,
		appeals:     appeals,
		auditor:     auditor,
		txRunner:    txRunner,
		notifier:    notifier,
		tokens:      tokens,
		logger:      logger,
	}
}

// notifyActor delivers a moderation notice best-effort; a failed channel never
// rolls back the moderation itself.
func (s *Service) notifyActor(ctx context.Context, recipient id.ActorID, kind notify.Kind, params map[string]string) {
	if recipient.IsZero() {
		return
	}
	msg := notify.Message{Recipient: recipient, Kind: kind, Params: params}
	if err := s.notifier.Notify(ctx, msg); err != nil {
		s.logger.Warn("moderation notification failed", "kind", kind, "recipient", recipient, "error", err)
	}
}

// AuditTrail exposes the action log for the back-office views.
func (s *Service) AuditTrail(ctx context.Context, limit, offset int) ([]audit.Entry, error) {
	return s.auditor.ListRecent(ctx, limit, offset)
}

// AuditTrailFor lists the actions taken against one entity.
func (s *Service) AuditTrailFor(ctx context.Context, entityType, entityID string, limit int) ([]audit.Entry, error) {
	return s.auditor.ListByEntity(ctx, entityType, entityID, limit)
}
