package service

import (
	"context"
	"errors"
	"strings"

	"github.com/sr13dr31/belyispisok/internal/employment/models"
	"github.com/sr13dr31/belyispisok/internal/notify"
	id "github.com/sr13dr31/belyispisok/pkg/domain"
	dErrors "github.com/sr13dr31/belyispisok/pkg/domain-errors"
	"github.com/sr13dr31/belyispisok/pkg/platform/sentinel"
	"github.com/sr13dr31/belyispisok/pkg/requestcontext"
)

// RequestAttach creates a pending employment link. A worker may hold at most
// one open employment globally, and may not re-request a company while a
// non-terminal link with that company exists. Both checks plus the insert run
// in one transaction; the partial unique index is the backstop.
func (s *Service) RequestAttach(ctx context.Context, workerID id.WorkerID, companyID id.CompanyID, position string) (*models.Employment, error) {
	worker, err := s.workers.WorkerByID(ctx, workerID)
	if err != nil {
		return nil, err
	}
	if worker.Blocked {
		return nil, dErrors.New(dErrors.CodeForbidden, "account is blocked")
	}
	company, err := s.companies.CompanyByID(ctx, companyID)
	if err != nil {
		return nil, err
	}
	if company.Blocked {
		return nil, dErrors.New(dErrors.CodeNotFound, "company not found")
	}

	employment := &models.Employment{
		ID:        id.NewEmploymentID(),
		WorkerID:  workerID,
		CompanyID: companyID,
		Position:  strings.TrimSpace(position),
		Status:    models.StatusPendingConfirm,
		CreatedAt: requestcontext.Now(ctx),
	}

	err = s.txRunner.RunInTx(ctx, func(ctx context.Context) error {
		open, err := s.store.FindOpenByWorker(ctx, workerID)
		switch {
		case err == nil:
			if open.CompanyID == companyID {
				return dErrors.New(dErrors.CodeConflict, "a request with this company already exists")
			}
			return dErrors.New(dErrors.CodeConflict, "already employed with another company")
		case errors.Is(err, sentinel.ErrNotFound):
			// free to attach
		default:
			return dErrors.Wrap(err, dErrors.CodeInternal, "check open employment")
		}

		if err := s.store.Create(ctx, employment); err != nil {
			if errors.Is(err, sentinel.ErrConflict) {
				// Lost the race to a concurrent attach; same outcome as the check.
				return dErrors.New(dErrors.CodeConflict, "already employed with another company")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "create employment")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncEmploymentsCreated()
	s.logger.Info("attach requested", "employment_id", employment.ID, "worker_id", workerID, "company_id", companyID)
	s.send(ctx, notify.Message{
		Recipient: company.OwnerID,
		Kind:      notify.KindAttachRequested,
		Params: map[string]string{
			"worker_name":      worker.FullName,
			"worker_public_id": worker.PublicID.String(),
			"position":         employment.Position,
		},
	})
	return employment, nil
}

// CompanyAccept confirms a pending link. Side effect: the worker's passport
// locks, one way. Accepting an already-accepted employment reports "already
// processed" without touching started-at or lock state.
func (s *Service) CompanyAccept(ctx context.Context, companyID id.CompanyID, employmentID id.EmploymentID) (*models.Employment, error) {
	employment, err := s.owned(ctx, companyID, employmentID)
	if err != nil {
		return nil, err
	}

	if err := s.store.Accept(ctx, employmentID, requestcontext.Now(ctx)); err != nil {
		return nil, translateTransitionErr(err)
	}

	if err := s.workers.LockPassport(ctx, employment.WorkerID); err != nil {
		s.logger.Error("passport lock failed after accept", "employment_id", employmentID, "error", err)
	}

	updated, err := s.store.FindByID(ctx, employmentID)
	if err != nil {
		return nil, translateTransitionErr(err)
	}
	s.logger.Info("employment accepted", "employment_id", employmentID)
	s.notifyWorker(ctx, employment.WorkerID, notify.KindAttachAccepted, nil)
	return updated, nil
}

// CompanyReject declines a pending link. The reason travels to the worker in
// the notification and is not persisted.
func (s *Service) CompanyReject(ctx context.Context, companyID id.CompanyID, employmentID id.EmploymentID, reason string) error {
	employment, err := s.owned(ctx, companyID, employmentID)
	if err != nil {
		return err
	}
	if err := s.store.Reject(ctx, employmentID); err != nil {
		return translateTransitionErr(err)
	}
	s.logger.Info("employment rejected", "employment_id", employmentID)
	s.notifyWorker(ctx, employment.WorkerID, notify.KindAttachRejected, map[string]string{"reason": reason})
	return nil
}

// WorkerRequestLeave asks to end an accepted employment. Idempotent: a second
// call while already in leave_requested re-returns the current row.
func (s *Service) WorkerRequestLeave(ctx context.Context, workerID id.WorkerID, employmentID id.EmploymentID) (*models.Employment, error) {
	employment, err := s.ownedByWorker(ctx, workerID, employmentID)
	if err != nil {
		return nil, err
	}
	if employment.Status == models.StatusLeaveRequested {
		return employment, nil
	}

	if err := s.store.RequestLeave(ctx, employmentID, requestcontext.Now(ctx)); err != nil {
		return nil, translateTransitionErr(err)
	}

	updated, err := s.store.FindByID(ctx, employmentID)
	if err != nil {
		return nil, translateTransitionErr(err)
	}
	s.logger.Info("leave requested", "employment_id", employmentID)
	s.notifyCompany(ctx, employment.CompanyID, notify.KindLeaveRequested, nil)
	return updated, nil
}

// WorkerCancelLeave withdraws a leave request. Strictly conditional: if the
// status moved on concurrently the call fails soft, without mutation.
func (s *Service) WorkerCancelLeave(ctx context.Context, workerID id.WorkerID, employmentID id.EmploymentID) error {
	employment, err := s.ownedByWorker(ctx, workerID, employmentID)
	if err != nil {
		return err
	}
	if err := s.store.CancelLeave(ctx, employmentID); err != nil {
		return translateTransitionErr(err)
	}
	s.logger.Info("leave cancelled", "employment_id", employmentID)
	s.notifyCompany(ctx, employment.CompanyID, notify.KindLeaveCancelled, nil)
	return nil
}

// CompanyConfirmLeave grants a pending leave request, ending the employment.
func (s *Service) CompanyConfirmLeave(ctx context.Context, companyID id.CompanyID, employmentID id.EmploymentID) error {
	employment, err := s.owned(ctx, companyID, employmentID)
	if err != nil {
		return err
	}
	if err := s.store.ConfirmLeave(ctx, employmentID, requestcontext.Now(ctx)); err != nil {
		return translateTransitionErr(err)
	}
	s.metrics.IncEmploymentsEnded()
	s.logger.Info("leave confirmed", "employment_id", employmentID)
	s.notifyWorker(ctx, employment.WorkerID, notify.KindLeaveConfirmed, nil)
	return nil
}

// CompanyEnd terminates an accepted or leave-requested employment directly.
func (s *Service) CompanyEnd(ctx context.Context, companyID id.CompanyID, employmentID id.EmploymentID) error {
	employment, err := s.owned(ctx, companyID, employmentID)
	if err != nil {
		return err
	}
	if err := s.store.End(ctx, employmentID, requestcontext.Now(ctx)); err != nil {
		return translateTransitionErr(err)
	}
	s.metrics.IncEmploymentsEnded()
	s.logger.Info("employment ended", "employment_id", employmentID)
	s.notifyWorker(ctx, employment.WorkerID, notify.KindEmploymentEnded, nil)
	return nil
}

// owned loads an employment and hides it when the company is not the owner.
// Ownership mismatches look exactly like missing rows so existence never
// leaks across tenants.
func (s *Service) owned(ctx context.Context, companyID id.CompanyID, employmentID id.EmploymentID) (*models.Employment, error) {
	employment, err := s.store.FindByID(ctx, employmentID)
	if err != nil {
		return nil, translateTransitionErr(err)
	}
	if employment.CompanyID != companyID {
		return nil, dErrors.New(dErrors.CodeNotFound, "employment not found")
	}
	return employment, nil
}

func (s *Service) ownedByWorker(ctx context.Context, workerID id.WorkerID, employmentID id.EmploymentID) (*models.Employment, error) {
	employment, err := s.store.FindByID(ctx, employmentID)
	if err != nil {
		return nil, translateTransitionErr(err)
	}
	if employment.WorkerID != workerID {
		return nil, dErrors.New(dErrors.CodeNotFound, "employment not found")
	}
	return employment, nil
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

func translateTransitionErr(err error) error {
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "employment not found")
	case errors.Is(err, sentinel.ErrInvalidState):
		return dErrors.New(dErrors.CodeConflict, "request not found or already processed")
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, "employment store")
	}
}
