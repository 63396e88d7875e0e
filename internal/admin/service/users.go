package service

import (
	"context"
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/sr13dr31/belyispisok/internal/admin/models"
	"github.com/sr13dr31/belyispisok/internal/audit"
	id "github.com/sr13dr31/belyispisok/pkg/domain"
	dErrors "github.com/sr13dr31/belyispisok/pkg/domain-errors"
	"github.com/sr13dr31/belyispisok/pkg/platform/sentinel"
	"github.com/sr13dr31/belyispisok/pkg/requestcontext"
)

// Login verifies credentials and issues a bearer token. Unknown usernames and
// wrong passwords fail identically.
func (s *Service) Login(ctx context.Context, username, password string) (string, *models.AdminUser, error) {
	user, err := s.users.FindByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return "", nil, dErrors.New(dErrors.CodeUnauthorized, "invalid credentials")
		}
		return "", nil, dErrors.Wrap(err, dErrors.CodeInternal, "load admin user")
	}
	if !user.Active {
		return "", nil, dErrors.New(dErrors.CodeUnauthorized, "invalid credentials")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", nil, dErrors.New(dErrors.CodeUnauthorized, "invalid credentials")
	}

	token, err := s.tokens.Issue(user, requestcontext.Now(ctx))
	if err != nil {
		return "", nil, dErrors.Wrap(err, dErrors.CodeInternal, "issue admin token")
	}
	s.logger.Info("admin logged in", "admin_id", user.ID, "username", user.Username)
	return token, user, nil
}

// VerifyToken resolves a bearer token to a live administrator account.
// Deactivated accounts are rejected even while their tokens are unexpired.
func (s *Service) VerifyToken(ctx context.Context, token string) (*models.AdminUser, error) {
	adminID, _, err := s.tokens.Validate(token)
	if err != nil {
		return nil, err
	}
	user, err := s.users.FindByID(ctx, adminID)
	if err != nil {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}
	if !user.Active {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "account is deactivated")
	}
	return user, nil
}

// CreateAdminInput carries a new back-office account. Super-admin only.
type CreateAdminInput struct {
	Username string
	Password string
	Role     models.Role
}

// CreateAdmin provisions an account with a bcrypt-hashed password.
func (s *Service) CreateAdmin(ctx context.Context, in CreateAdminInput) (*models.AdminUser, error) {
	if len(in.Password) < 8 {
		return nil, dErrors.New(dErrors.CodeValidation, "password must be at least 8 characters")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "hash password")
	}

	user := &models.AdminUser{
		ID:           id.NewAdminID(),
		Username:     strings.TrimSpace(in.Username),
		PasswordHash: string(hash),
		Role:         in.Role,
		Active:       true,
		CreatedAt:    requestcontext.Now(ctx),
	}
	if err := user.Validate(); err != nil {
		return nil, err
	}

	err = s.txRunner.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.users.Create(ctx, user); err != nil {
			if errors.Is(err, sentinel.ErrConflict) {
				return dErrors.New(dErrors.CodeConflict, "username is already taken")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "create admin user")
		}
		return s.auditor.Record(ctx, audit.ActionCreateAdmin, "admin_user", user.ID.String(),
			map[string]any{"username": user.Username, "role": string(user.Role)})
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("admin user created", "admin_id", user.ID, "role", user.Role)
	return user, nil
}

// DeactivateAdmin disables an account; its tokens stop working immediately
// because VerifyToken re-reads the row.
func (s *Service) DeactivateAdmin(ctx context.Context, adminID id.AdminID) error {
	if adminID == requestcontext.Admin(ctx) {
		return dErrors.New(dErrors.CodeConflict, "cannot deactivate your own account")
	}
	err := s.txRunner.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.users.SetActive(ctx, adminID, false); err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return dErrors.New(dErrors.CodeNotFound, "admin user not found")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "deactivate admin user")
		}
		return s.auditor.Record(ctx, audit.ActionDeactivateAdmin, "admin_user", adminID.String(), nil)
	})
	if err != nil {
		return err
	}
	s.logger.Info("admin user deactivated", "admin_id", adminID)
	return nil
}

// ListAdmins returns all back-office accounts.
func (s *Service) ListAdmins(ctx context.Context) ([]models.AdminUser, error) {
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "list admin users")
	}
	return users, nil
}
