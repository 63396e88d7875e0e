package models

import (
	"strings"
	"time"

	id "github.com/sr13dr31/belyispisok/pkg/domain"
	dErrors "github.com/sr13dr31/belyispisok/pkg/domain-errors"
)

// KYCStatus tracks a company's identity verification.
type KYCStatus string

const (
	KYCPending  KYCStatus = "pending"
	KYCVerified KYCStatus = "verified"
	KYCRejected KYCStatus = "rejected"
)

// ParseKYCStatus validates the closed status vocabulary at trust boundaries.
func ParseKYCStatus(s string) (KYCStatus, error) {
	switch KYCStatus(s) {
	case KYCPending, KYCVerified, KYCRejected:
		return KYCStatus(s), nil
	}
	return "", dErrors.Newf(dErrors.CodeInvalidInput, "unknown kyc status %q", s)
}

// Company is a hiring entity that attaches workers and issues reviews.
type Company struct {
	ID                id.CompanyID
	OwnerID           id.ActorID
	Name              string
	City              string
	ResponsiblePhone  string
	PublicID          id.PublicID
	Blocked           bool
	KYCStatus         KYCStatus
	SubscriptionLevel string
	SubscriptionUntil *time.Time
	CreatedAt         time.Time
}

// Validate checks the structural invariants required before a company row may
// be created.
func (c *Company) Validate() error {
	if c.OwnerID.IsZero() {
		return dErrors.New(dErrors.CodeValidation, "company owner is required")
	}
	if strings.TrimSpace(c.Name) == "" {
		return dErrors.New(dErrors.CodeValidation, "company name is required")
	}
	return nil
}

// CanEditProfile gates self-service profile edits.
func (c *Company) CanEditProfile() error {
	if c.Blocked {
		return dErrors.New(dErrors.CodeForbidden, "account is blocked")
	}
	return nil
}

// SubscriptionActive reports whether the company holds a paid subscription at
// the given instant. A blocked company is never active regardless of expiry.
func (c *Company) SubscriptionActive(now time.Time) bool {
	if c.Blocked {
		return false
	}
	return c.SubscriptionUntil != nil && c.SubscriptionUntil.After(now)
}

// ExtendSubscription applies the additive renewal rule: the new expiry is
// months added on top of whichever is later, now or the current expiry, so a
// renewal never shortens remaining paid time. Non-positive months clears the
// subscription entirely.
func (c *Company) ExtendSubscription(now time.Time, months int, level string) {
	if months <= 0 {
		c.SubscriptionLevel = ""
		c.SubscriptionUntil = nil
		return
	}
	base := now
	if c.SubscriptionUntil != nil && c.SubscriptionUntil.After(now) {
		base = *c.SubscriptionUntil
	}
	until := AddMonths(base, months)
	c.SubscriptionUntil = &until
	if level != "" {
		c.SubscriptionLevel = level
	}
}
