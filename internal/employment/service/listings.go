package service

import (
	"context"

	"github.com/sr13dr31/belyispisok/internal/employment/models"
	id "github.com/sr13dr31/belyispisok/pkg/domain"
	dErrors "github.com/sr13dr31/belyispisok/pkg/domain-errors"
)

// OpenByWorker returns the worker's single open employment, or NotFound.
func (s *Service) OpenByWorker(ctx context.Context, workerID id.WorkerID) (*models.Employment, error) {
	employment, err := s.store.FindOpenByWorker(ctx, workerID)
	if err != nil {
		return nil, translateTransitionErr(err)
	}
	return employment, nil
}

// PendingByCompany lists attach requests awaiting the company's decision.
func (s *Service) PendingByCompany(ctx context.Context, companyID id.CompanyID, limit, offset int) ([]models.Employment, error) {
	return s.listByCompany(ctx, companyID, []models.Status{models.StatusPendingConfirm}, limit, offset)
}

// RosterByCompany lists the company's current workers, including those with a
// pending leave request.
func (s *Service) RosterByCompany(ctx context.Context, companyID id.CompanyID, limit, offset int) ([]models.Employment, error) {
	return s.listByCompany(ctx, companyID, []models.Status{models.StatusAccepted, models.StatusLeaveRequested}, limit, offset)
}

// EndedByCompany lists the company's past employments.
func (s *Service) EndedByCompany(ctx context.Context, companyID id.CompanyID, limit, offset int) ([]models.Employment, error) {
	return s.listByCompany(ctx, companyID, []models.Status{models.StatusEnded}, limit, offset)
}

func (s *Service) listByCompany(ctx context.Context, companyID id.CompanyID, statuses []models.Status, limit, offset int) ([]models.Employment, error) {
	employments, err := s.store.ListByCompany(ctx, companyID, statuses, limit, offset)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "list employments")
	}
	return employments, nil
}

// HistoryByWorker lists every employment the worker has held, newest first.
// Used by the public lookup and the worker's own profile.
func (s *Service) HistoryByWorker(ctx context.Context, workerID id.WorkerID) ([]models.Employment, error) {
	employments, err := s.store.ListByWorker(ctx, workerID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "list worker employments")
	}
	return employments, nil
}

// RelationshipExists reports whether the company holds or ever held an
// accepted employment with the worker. Gates review creation.
func (s *Service) RelationshipExists(ctx context.Context, workerID id.WorkerID, companyID id.CompanyID) (bool, error) {
	ok, err := s.store.HasRelationship(ctx, workerID, companyID)
	if err != nil {
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "check employment relationship")
	}
	return ok, nil
}

// CountPendingByCompany powers the company's badge counter.
func (s *Service) CountPendingByCompany(ctx context.Context, companyID id.CompanyID) (int, error) {
	count, err := s.store.CountPendingByCompany(ctx, companyID)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "count pending employments")
	}
	return count, nil
}

// Counts reports open and ended employment totals for the dashboard.
func (s *Service) Counts(ctx context.Context) (open, ended int, err error) {
	if open, err = s.store.CountOpen(ctx); err != nil {
		return 0, 0, dErrors.Wrap(err, dErrors.CodeInternal, "count open employments")
	}
	if ended, err = s.store.CountEnded(ctx); err != nil {
		return 0, 0, dErrors.Wrap(err, dErrors.CodeInternal, "count ended employments")
	}
	return open, ended, nil
}
