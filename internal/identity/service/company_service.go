package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/sr13dr31/belyispisok/internal/identity/models"
	id "github.com/sr13dr31/belyispisok/pkg/domain"
	dErrors "github.com/sr13dr31/belyispisok/pkg/domain-errors"
	"github.com/sr13dr31/belyispisok/pkg/platform/sentinel"
	"github.com/sr13dr31/belyispisok/pkg/requestcontext"
)

// RegisterCompanyInput carries pre-validated company registration fields.
type RegisterCompanyInput struct {
	Owner            id.ActorID
	Name             string
	City             string
	ResponsiblePhone string
}

// RegisterCompany creates a company row with a fresh public id. KYC starts
// pending; subscription starts empty.
func (s *Service) RegisterCompany(ctx context.Context, input RegisterCompanyInput) (*models.Company, error) {
	company := &models.Company{
		ID:               id.NewCompanyID(),
		OwnerID:          input.Owner,
		Name:             strings.TrimSpace(input.Name),
		City:             strings.TrimSpace(input.City),
		ResponsiblePhone: strings.TrimSpace(input.ResponsiblePhone),
		KYCStatus:        models.KYCPending,
		CreatedAt:        requestcontext.Now(ctx),
	}
	if err := company.Validate(); err != nil {
		return nil, err
	}

	publicID, err := s.allocatePublicID(ctx, id.PublicPrefixCompany)
	if err != nil {
		return nil, err
	}
	company.PublicID = publicID

	if err := s.companies.Create(ctx, company); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.New(dErrors.CodeConflict, "company already registered for this account")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "create company")
	}

	s.metrics.IncCompaniesRegistered()
	s.logger.Info("company registered", "company_id", company.ID, "public_id", company.PublicID)
	return company, nil
}

// CompanyByOwner resolves the company owned by a platform actor.
func (s *Service) CompanyByOwner(ctx context.Context, owner id.ActorID) (*models.Company, error) {
	company, err := s.companies.FindByOwner(ctx, owner)
	if err != nil {
		return nil, translateCompanyErr(err)
	}
	return company, nil
}

// CompanyByID resolves a company by internal id.
func (s *Service) CompanyByID(ctx context.Context, companyID id.CompanyID) (*models.Company, error) {
	company, err := s.companies.FindByID(ctx, companyID)
	if err != nil {
		return nil, translateCompanyErr(err)
	}
	return company, nil
}

// CompanyByPublicID resolves a company from the shareable C-###### id.
func (s *Service) CompanyByPublicID(ctx context.Context, raw string) (*models.Company, error) {
	publicID, err := id.ParsePublicID(strings.ToUpper(strings.TrimSpace(raw)))
	if err != nil {
		return nil, err
	}
	if !publicID.IsCompany() {
		return nil, dErrors.New(dErrors.CodeNotFound, "company not found")
	}
	company, err := s.companies.FindByPublicID(ctx, publicID)
	if err != nil {
		return nil, translateCompanyErr(err)
	}
	return company, nil
}

// CompanyProfilePatch updates only the supplied fields.
type CompanyProfilePatch struct {
	Name             *string
	City             *string
	ResponsiblePhone *string
}

// UpdateCompanyProfile applies a partial self-service edit.
func (s *Service) UpdateCompanyProfile(ctx context.Context, companyID id.CompanyID, patch CompanyProfilePatch) (*models.Company, error) {
	company, err := s.companies.FindByID(ctx, companyID)
	if err != nil {
		return nil, translateCompanyErr(err)
	}
	if err := company.CanEditProfile(); err != nil {
		return nil, err
	}
	if patch.Name != nil {
		if strings.TrimSpace(*patch.Name) == "" {
			return nil, dErrors.New(dErrors.CodeValidation, "company name is required")
		}
		company.Name = strings.TrimSpace(*patch.Name)
	}
	if patch.City != nil {
		company.City = strings.TrimSpace(*patch.City)
	}
	if patch.ResponsiblePhone != nil {
		company.ResponsiblePhone = strings.TrimSpace(*patch.ResponsiblePhone)
	}
	if err := s.companies.Update(ctx, company); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "update company")
	}
	return company, nil
}

// SetCompanyBlocked flips the moderation flag. A blocked company fails all
// subscription checks regardless of remaining paid time.
func (s *Service) SetCompanyBlocked(ctx context.Context, companyID id.CompanyID, blocked bool) error {
	if err := s.companies.SetBlocked(ctx, companyID, blocked); err != nil {
		return translateCompanyErr(err)
	}
	return nil
}

// SetKYCStatus records the verification outcome for a company.
func (s *Service) SetKYCStatus(ctx context.Context, companyID id.CompanyID, raw string) error {
	status, err := models.ParseKYCStatus(raw)
	if err != nil {
		return err
	}
	if err := s.companies.SetKYCStatus(ctx, companyID, status); err != nil {
		return translateCompanyErr(err)
	}
	return nil
}

// GrantSubscription extends a company's subscription by whole months under
// the additive rule (remaining paid time is never shortened). Non-positive
// months clears the subscription. Returns the updated company.
func (s *Service) GrantSubscription(ctx context.Context, companyID id.CompanyID, months int, level string) (*models.Company, error) {
	company, err := s.companies.FindByID(ctx, companyID)
	if err != nil {
		return nil, translateCompanyErr(err)
	}
	company.ExtendSubscription(requestcontext.Now(ctx), months, level)
	if err := s.companies.SetSubscription(ctx, companyID, company.SubscriptionLevel, company.SubscriptionUntil); err != nil {
		return nil, translateCompanyErr(err)
	}
	s.logger.Info("subscription updated",
		"company_id", companyID,
		"months", months,
		"until", company.SubscriptionUntil,
	)
	return company, nil
}

// HasActiveSubscription reports whether the company may use paid features now.
func (s *Service) HasActiveSubscription(ctx context.Context, companyID id.CompanyID) (bool, error) {
	company, err := s.companies.FindByID(ctx, companyID)
	if err != nil {
		return false, translateCompanyErr(err)
	}
	return company.SubscriptionActive(requestcontext.Now(ctx)), nil
}

// ListCompanies serves admin listings.
func (s *Service) ListCompanies(ctx context.Context, filter ListFilter) ([]models.Company, error) {
	companies, err := s.companies.List(ctx, filter)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "list companies")
	}
	return companies, nil
}

// SubscriptionCounts reports active and lapsed subscription totals for the
// dashboard.
func (s *Service) SubscriptionCounts(ctx context.Context, now time.Time) (active, lapsed int, err error) {
	if active, err = s.companies.CountActiveSubscriptions(ctx, now); err != nil {
		return 0, 0, dErrors.Wrap(err, dErrors.CodeInternal, "count active subscriptions")
	}
	if lapsed, err = s.companies.CountLapsedSubscriptions(ctx, now); err != nil {
		return 0, 0, dErrors.Wrap(err, dErrors.CodeInternal, "count lapsed subscriptions")
	}
	return active, lapsed, nil
}

func translateCompanyErr(err error) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeNotFound, "company not found")
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, "company store")
}
