// Package convstate tracks what a conversational front-end is waiting for
// from each actor: one pending prompt per actor, with the context collected so
// far. Abandoned conversations expire after a day.
package convstate

import (
	"context"
	"time"

	id "github.com/sr13dr31/belyispisok/pkg/domain"
	dErrors "github.com/sr13dr31/belyispisok/pkg/domain-errors"
)

// TTL is how long an untouched pending state survives before the expiry
// sweep removes it.
const TTL = 24 * time.Hour

// Action names the prompt an actor is expected to answer next. Closed
// vocabulary; unknown values are rejected at the trust boundary.
type Action string

const (
	ActionWorkerRegisterName     Action = "worker_register_name"
	ActionWorkerRegisterPhone    Action = "worker_register_phone"
	ActionWorkerRegisterPassport Action = "worker_register_passport"
	ActionWorkerEditName         Action = "worker_edit_name"
	ActionWorkerEditPhone        Action = "worker_edit_phone"
	ActionWorkerEditPassport     Action = "worker_edit_passport"
	ActionWorkerEnterPosition    Action = "worker_enter_position"
	ActionWorkerLinkCompany      Action = "worker_link_company"
	ActionWorkerRequestLeave     Action = "worker_request_leave"
	ActionWorkerAppealReason     Action = "worker_appeal_reason"
	ActionWorkerAppealEvidence   Action = "worker_appeal_evidence"

	ActionCompanyEnterName      Action = "company_enter_name"
	ActionCompanyEnterCity      Action = "company_enter_city"
	ActionCompanyEnterPhone     Action = "company_enter_phone"
	ActionCompanyEditName       Action = "company_edit_name"
	ActionCompanyRejectReason   Action = "company_reject_reason"
	ActionCompanyReviewRating   Action = "company_review_rating"
	ActionCompanyReviewText     Action = "company_review_text"
	ActionCompanyAppealRespond  Action = "company_appeal_respond"
	ActionCompanyLookupWorker   Action = "company_lookup_worker"
	ActionCompanySetPassport    Action = "company_set_passport"
	ActionCompanyPaymentProof   Action = "company_payment_proof"

	ActionViewerEnterPhone   Action = "viewer_enter_phone"
	ActionViewerLookupWorker Action = "viewer_lookup_worker"

	ActionAdminAppealComment     Action = "admin_appeal_comment"
	ActionAdminSubscriptionGrant Action = "admin_subscription_grant"
)

var knownActions = map[Action]struct{}{
	ActionWorkerRegisterName: {}, ActionWorkerRegisterPhone: {}, ActionWorkerRegisterPassport: {},
	ActionWorkerEditName: {}, ActionWorkerEditPhone: {}, ActionWorkerEditPassport: {},
	ActionWorkerEnterPosition: {}, ActionWorkerLinkCompany: {}, ActionWorkerRequestLeave: {},
	ActionWorkerAppealReason: {}, ActionWorkerAppealEvidence: {},
	ActionCompanyEnterName: {}, ActionCompanyEnterCity: {}, ActionCompanyEnterPhone: {},
	ActionCompanyEditName: {}, ActionCompanyRejectReason: {}, ActionCompanyReviewRating: {},
	ActionCompanyReviewText: {}, ActionCompanyAppealRespond: {}, ActionCompanyLookupWorker: {},
	ActionCompanySetPassport: {}, ActionCompanyPaymentProof: {},
	ActionViewerEnterPhone: {}, ActionViewerLookupWorker: {},
	ActionAdminAppealComment: {}, ActionAdminSubscriptionGrant: {},
}

// Valid reports whether the action belongs to the closed vocabulary.
func (a Action) Valid() bool {
	_, ok := knownActions[a]
	return ok
}

// ParseAction validates an action arriving as a string.
func ParseAction(s string) (Action, error) {
	a := Action(s)
	if !a.Valid() {
		return "", dErrors.Newf(dErrors.CodeInvalidInput, "unknown conversation action %q", s)
	}
	return a, nil
}

// Context is the structured payload accumulated across a multi-step
// conversation. Entity references travel as their string form; free-text
// fields hold intermediate answers until the final step commits them.
type Context struct {
	WorkerID     string   `json:"worker_id,omitempty"`
	CompanyID    string   `json:"company_id,omitempty"`
	EmploymentID string   `json:"employment_id,omitempty"`
	ReviewID     string   `json:"review_id,omitempty"`
	AppealID     string   `json:"appeal_id,omitempty"`
	FullName     string   `json:"full_name,omitempty"`
	Phone        string   `json:"phone,omitempty"`
	Name         string   `json:"name,omitempty"`
	City         string   `json:"city,omitempty"`
	Position     string   `json:"position,omitempty"`
	Reason       string   `json:"reason,omitempty"`
	Rating       int      `json:"rating,omitempty"`
	Months       int      `json:"months,omitempty"`
	EvidenceRefs []string `json:"evidence_refs,omitempty"`
}

// State is the single pending prompt for one actor.
type State struct {
	Actor     id.ActorID `json:"actor"`
	Action    Action     `json:"action"`
	Context   Context    `json:"context"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// Store holds at most one State per actor. Set replaces any previous state
// wholesale; Pop is the read-and-consume path the front-end uses when an
// answer arrives.
type Store interface {
	Set(ctx context.Context, state State) error
	Get(ctx context.Context, actor id.ActorID) (*State, error)
	Pop(ctx context.Context, actor id.ActorID) (*State, error)
	Clear(ctx context.Context, actor id.ActorID) error
	ExpireOlderThan(ctx context.Context, cutoff time.Time) (int, error)
}
