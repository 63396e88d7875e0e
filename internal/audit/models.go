// Package audit records administrative actions. Every mutation performed
// through the admin surface lands here as an append-only entry, so moderation
// decisions stay reconstructable after the fact.
package audit

import (
	"context"
	"time"

	id "github.com/sr13dr31/belyispisok/pkg/domain"
)

// Action names the administrative operation performed.
type Action string

const (
	ActionBlockWorker       Action = "block_worker"
	ActionUnblockWorker     Action = "unblock_worker"
	ActionBlockCompany      Action = "block_company"
	ActionUnblockCompany    Action = "unblock_company"
	ActionSetWorkerNotes    Action = "set_worker_notes"
	ActionSetWorkerPassport Action = "set_worker_passport"
	ActionUnlockPassport    Action = "unlock_passport"
	ActionSetKYCStatus      Action = "set_kyc_status"
	ActionGrantSubscription Action = "grant_subscription"
	ActionClearSubscription Action = "clear_subscription"
	ActionDeleteReview      Action = "delete_review"
	ActionAppealDecision    Action = "appeal_decision"
	ActionAppealComment     Action = "appeal_comment"
	ActionCreateAdmin       Action = "create_admin"
	ActionDeactivateAdmin   Action = "deactivate_admin"
	ActionEndEmployment     Action = "end_employment"
)

// Entry is one recorded administrative action. EntityType and EntityID point
// at the object acted upon; Meta carries action-specific values such as the
// previous status or the number of months granted.
type Entry struct {
	ID         id.AuditEntryID
	ActorID    id.AdminID
	Action     Action
	EntityType string
	EntityID   string
	Meta       map[string]any
	CreatedAt  time.Time
}

// Store is the persistence port for audit entries. Append-only by contract:
// nothing updates or deletes an entry once written.
type Store interface {
	Append(ctx context.Context, entry Entry) error
	ListRecent(ctx context.Context, limit, offset int) ([]Entry, error)
	ListByEntity(ctx context.Context, entityType, entityID string, limit int) ([]Entry, error)
}
