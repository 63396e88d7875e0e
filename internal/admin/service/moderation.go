package service

import (
	"context"
	"strconv"
	"time"

	appealmodels "github.com/sr13dr31/belyispisok/internal/appeal/models"
	"github.com/sr13dr31/belyispisok/internal/audit"
	identitymodels "github.com/sr13dr31/belyispisok/internal/identity/models"
	identityservice "github.com/sr13dr31/belyispisok/internal/identity/service"
	"github.com/sr13dr31/belyispisok/internal/notify"
	id "github.com/sr13dr31/belyispisok/pkg/domain"
)

// Moderation mutations. Each wraps the domain call and its audit entry in one
// transaction so the action log never diverges from what actually happened.

func (s *Service) SetWorkerBlocked(ctx context.Context, workerID id.WorkerID, blocked bool) error {
	action := audit.ActionBlockWorker
	if !blocked {
		action = audit.ActionUnblockWorker
	}
	err := s.txRunner.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.identity.SetWorkerBlocked(ctx, workerID, blocked); err != nil {
			return err
		}
		return s.auditor.Record(ctx, action, "worker", workerID.String(), nil)
	})
	if err != nil {
		return err
	}
	if worker, err := s.identity.WorkerByID(ctx, workerID); err == nil {
		s.notifyActor(ctx, worker.OwnerID, blockKind(blocked), nil)
	}
	return nil
}

func (s *Service) SetCompanyBlocked(ctx context.Context, companyID id.CompanyID, blocked bool) error {
	action := audit.ActionBlockCompany
	if !blocked {
		action = audit.ActionUnblockCompany
	}
	err := s.txRunner.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.identity.SetCompanyBlocked(ctx, companyID, blocked); err != nil {
			return err
		}
		return s.auditor.Record(ctx, action, "company", companyID.String(), nil)
	})
	if err != nil {
		return err
	}
	if company, err := s.identity.CompanyByID(ctx, companyID); err == nil {
		s.notifyActor(ctx, company.OwnerID, blockKind(blocked), nil)
	}
	return nil
}

func blockKind(blocked bool) notify.Kind {
	if blocked {
		return notify.KindAccountBlocked
	}
	return notify.KindAccountUnblocked
}

func (s *Service) SetWorkerNotes(ctx context.Context, workerID id.WorkerID, notes string) error {
	return s.txRunner.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.identity.SetWorkerNotes(ctx, workerID, notes); err != nil {
			return err
		}
		return s.auditor.Record(ctx, audit.ActionSetWorkerNotes, "worker", workerID.String(), nil)
	})
}

// UnlockPassport re-opens a locked passport for correction. The lock re-arms
// on the next accepted employment.
func (s *Service) UnlockPassport(ctx context.Context, workerID id.WorkerID) error {
	return s.txRunner.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.identity.UnlockPassport(ctx, workerID); err != nil {
			return err
		}
		return s.auditor.Record(ctx, audit.ActionUnlockPassport, "worker", workerID.String(), nil)
	})
}

// SetWorkerPassport corrects a passport on the worker's behalf, bypassing the
// lock the way the company path does.
func (s *Service) SetWorkerPassport(ctx context.Context, workerID id.WorkerID, passport string) error {
	return s.txRunner.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.identity.SetWorkerPassport(ctx, workerID, passport, true); err != nil {
			return err
		}
		return s.auditor.Record(ctx, audit.ActionSetWorkerPassport, "worker", workerID.String(), nil)
	})
}

func (s *Service) SetKYCStatus(ctx context.Context, companyID id.CompanyID, status string) error {
	return s.txRunner.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.identity.SetKYCStatus(ctx, companyID, status); err != nil {
			return err
		}
		return s.auditor.Record(ctx, audit.ActionSetKYCStatus, "company", companyID.String(),
			map[string]any{"status": status})
	})
}

// GrantSubscription extends or clears a company subscription.
func (s *Service) GrantSubscription(ctx context.Context, companyID id.CompanyID, months int, level string) (*identitymodels.Company, error) {
	var company *identitymodels.Company
	err := s.txRunner.RunInTx(ctx, func(ctx context.Context) error {
		var err error
		company, err = s.identity.GrantSubscription(ctx, companyID, months, level)
		if err != nil {
			return err
		}
		action := audit.ActionGrantSubscription
		if months <= 0 {
			action = audit.ActionClearSubscription
		}
		return s.auditor.Record(ctx, action, "company", companyID.String(),
			map[string]any{"months": months, "level": level})
	})
	if err != nil {
		return nil, err
	}

	params := map[string]string{"months": strconv.Itoa(months), "level": level}
	if company.SubscriptionUntil != nil {
		params["until"] = company.SubscriptionUntil.Format(time.RFC3339)
	}
	s.notifyActor(ctx, company.OwnerID, notify.KindSubscriptionSet, params)
	return company, nil
}

// DeleteReview removes a review outside the appeal flow (support escalation).
func (s *Service) DeleteReview(ctx context.Context, reviewID id.ReviewID) error {
	return s.txRunner.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.reviews.DeleteReview(ctx, reviewID); err != nil {
			return err
		}
		return s.auditor.Record(ctx, audit.ActionDeleteReview, "review", reviewID.String(), nil)
	})
}

// DecideAppeal records the verdict on an appeal.
func (s *Service) DecideAppeal(ctx context.Context, appealID id.AppealID, decision appealmodels.Decision, comment string) (*appealmodels.Appeal, error) {
	var appeal *appealmodels.Appeal
	err := s.txRunner.RunInTx(ctx, func(ctx context.Context) error {
		var err error
		appeal, err = s.appeals.AdminDecide(ctx, appealID, decision, comment)
		if err != nil {
			return err
		}
		return s.auditor.Record(ctx, audit.ActionAppealDecision, "appeal", appealID.String(),
			map[string]any{"decision": string(decision)})
	})
	if err != nil {
		return nil, err
	}
	return appeal, nil
}

// CommentAppeal relays a moderator note to both parties of an appeal.
func (s *Service) CommentAppeal(ctx context.Context, appealID id.AppealID, comment string) error {
	return s.txRunner.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.appeals.AdminComment(ctx, appealID, comment); err != nil {
			return err
		}
		return s.auditor.Record(ctx, audit.ActionAppealComment, "appeal", appealID.String(), nil)
	})
}

// Listings (read-only pass-throughs).

func (s *Service) Workers(ctx context.Context, filter identityservice.ListFilter) ([]identitymodels.Worker, error) {
	return s.identity.ListWorkers(ctx, filter)
}

func (s *Service) Companies(ctx context.Context, filter identityservice.ListFilter) ([]identitymodels.Company, error) {
	return s.identity.ListCompanies(ctx, filter)
}

func (s *Service) AppealsByStatus(ctx context.Context, status appealmodels.Status, limit, offset int) ([]appealmodels.Appeal, error) {
	return s.appeals.ByStatus(ctx, status, limit, offset)
}
