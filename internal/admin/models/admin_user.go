// Package models defines administrator accounts for the moderation surface.
package models

import (
	"strings"
	"time"

	id "github.com/sr13dr31/belyispisok/pkg/domain"
	dErrors "github.com/sr13dr31/belyispisok/pkg/domain-errors"
)

// Role scopes what an administrator may do. Moderators handle the day-to-day
// queue; only super-admins manage other administrators and subscriptions.
type Role string

const (
	RoleSuperAdmin Role = "superadmin"
	RoleModerator  Role = "moderator"
)

// ParseRole validates the role vocabulary at trust boundaries.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleSuperAdmin, RoleModerator:
		return Role(s), nil
	}
	return "", dErrors.Newf(dErrors.CodeInvalidInput, "unknown admin role %q", s)
}

// AdminUser is one back-office account. PasswordHash is a bcrypt digest; the
// plaintext never leaves the login path.
type AdminUser struct {
	ID           id.AdminID
	Username     string
	PasswordHash string
	Role         Role
	Active       bool
	CreatedAt    time.Time
}

// Validate checks the fields a new account must carry.
func (u *AdminUser) Validate() error {
	if strings.TrimSpace(u.Username) == "" {
		return dErrors.New(dErrors.CodeValidation, "username is required")
	}
	if u.PasswordHash == "" {
		return dErrors.New(dErrors.CodeValidation, "password hash is required")
	}
	if _, err := ParseRole(string(u.Role)); err != nil {
		return err
	}
	return nil
}
