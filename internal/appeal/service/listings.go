package service

import (
	"context"
	"time"

	"github.com/sr13dr31/belyispisok/internal/appeal/models"
	id "github.com/sr13dr31/belyispisok/pkg/domain"
)

// AppealByID loads an appeal without ownership filtering; callers that serve
// tenants go through the owned accessors instead.
func (s *Service) AppealByID(ctx context.Context, appealID id.AppealID) (*models.Appeal, error) {
	appeal, err := s.store.FindByID(ctx, appealID)
	if err != nil {
		return nil, translateAppealErr(err)
	}
	return appeal, nil
}

// CompanyAppealByID loads an appeal on behalf of the appealed company.
func (s *Service) CompanyAppealByID(ctx context.Context, companyID id.CompanyID, appealID id.AppealID) (*models.Appeal, error) {
	return s.ownedByCompany(ctx, companyID, appealID)
}

// AwaitingCompany lists the company's unanswered appeals, oldest first.
func (s *Service) AwaitingCompany(ctx context.Context, companyID id.CompanyID) ([]models.Appeal, error) {
	appeals, err := s.store.ListByCompany(ctx, companyID, models.StatusPendingCompanyResponse)
	if err != nil {
		return nil, translateAppealErr(err)
	}
	return appeals, nil
}

// ByStatus pages through appeals in one lifecycle state, for the moderation
// queue.
func (s *Service) ByStatus(ctx context.Context, status models.Status, limit, offset int) ([]models.Appeal, error) {
	appeals, err := s.store.ListByStatus(ctx, status, limit, offset)
	if err != nil {
		return nil, translateAppealErr(err)
	}
	return appeals, nil
}

// CountOpen reports appeals in either pending state.
func (s *Service) CountOpen(ctx context.Context) (int, error) {
	return s.store.CountOpen(ctx)
}

// CountOpenOlderThan reports open appeals filed before the cutoff, the
// resolution-lag signal on the operations dashboard.
func (s *Service) CountOpenOlderThan(ctx context.Context, cutoff time.Time) (int, error) {
	return s.store.CountOpenOlderThan(ctx, cutoff)
}
