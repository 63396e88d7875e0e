// Package models defines review appeals and their status machine.
package models

import (
	"time"

	id "github.com/sr13dr31/belyispisok/pkg/domain"
	dErrors "github.com/sr13dr31/belyispisok/pkg/domain-errors"
)

// Status is the appeal lifecycle state.
//
//	pending_company_response → pending_admin_review → kept_review | deleted_review
//	pending_company_response → auto_removed_review   (company stayed silent)
type Status string

const (
	StatusPendingCompanyResponse Status = "pending_company_response"
	StatusPendingAdminReview     Status = "pending_admin_review"
	StatusKeptReview             Status = "kept_review"
	StatusDeletedReview          Status = "deleted_review"
	StatusAutoRemovedReview      Status = "auto_removed_review"
)

// IsTerminal reports whether the appeal is resolved.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusKeptReview, StatusDeletedReview, StatusAutoRemovedReview:
		return true
	}
	return false
}

// ParseStatus validates the closed status vocabulary at trust boundaries.
func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusPendingCompanyResponse, StatusPendingAdminReview,
		StatusKeptReview, StatusDeletedReview, StatusAutoRemovedReview:
		return Status(s), nil
	}
	return "", dErrors.Newf(dErrors.CodeInvalidInput, "unknown appeal status %q", s)
}

// Decision is the administrator's verdict.
type Decision string

const (
	DecisionKeep   Decision = "keep"
	DecisionDelete Decision = "delete"
)

// ParseDecision validates the verdict vocabulary.
func ParseDecision(s string) (Decision, error) {
	switch Decision(s) {
	case DecisionKeep, DecisionDelete:
		return Decision(s), nil
	}
	return "", dErrors.Newf(dErrors.CodeInvalidInput, "unknown appeal decision %q", s)
}

// Appeal limits.
const (
	// MaxAttempts is the lifetime cap per (review, worker) pair.
	MaxAttempts = 3
	// MaxEvidenceRefs bounds the attachments collected with an appeal.
	MaxEvidenceRefs = 5
)

// Appeal is one worker's formal dispute of one review. AttemptsCount is a
// monotonic ordinal: each new appeal stores max(previous)+1, so the cap holds
// even if earlier rows were resolved long ago.
type Appeal struct {
	ID                 id.AppealID
	ReviewID           id.ReviewID
	WorkerID           id.WorkerID
	CompanyID          id.CompanyID
	Status             Status
	Reason             string
	EvidenceRefs       []string
	CompanyComment     string
	CompanyEvidenceRef string
	AdminComment       string
	ReminderSentAt     *time.Time
	FinalDecisionAt    *time.Time
	AttemptsCount      int
	CreatedAt          time.Time
	UpdatedAt          time.Time
}
