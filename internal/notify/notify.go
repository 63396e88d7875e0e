// Package notify defines the outbound notification port.
//
// Domain services decide WHAT must be communicated and to WHOM; the delivery
// channel (a messenger bot, an email relay) lives outside this process and
// consumes the published messages. Delivery is best effort: callers log
// failures and continue, a lost notification never rolls back a state change.
package notify

import (
	"context"

	id "github.com/sr13dr31/belyispisok/pkg/domain"
)

// Kind identifies the event a message describes. Consumers key their
// templates off it; Params carries the per-event values.
type Kind string

const (
	KindAttachRequested   Kind = "attach_requested"
	KindAttachAccepted    Kind = "attach_accepted"
	KindAttachRejected    Kind = "attach_rejected"
	KindLeaveRequested    Kind = "leave_requested"
	KindLeaveCancelled    Kind = "leave_cancelled"
	KindLeaveConfirmed    Kind = "leave_confirmed"
	KindLeaveAutoClosed   Kind = "leave_auto_closed"
	KindEmploymentEnded   Kind = "employment_ended"
	KindReviewReceived    Kind = "review_received"
	KindAppealFiled       Kind = "appeal_filed"
	KindAppealResponse    Kind = "appeal_company_response"
	KindAppealDecided     Kind = "appeal_decided"
	KindAppealComment     Kind = "appeal_admin_comment"
	KindAppealReminder    Kind = "appeal_reminder"
	KindAppealAutoRemoved Kind = "appeal_auto_removed"
	KindAccountBlocked    Kind = "account_blocked"
	KindAccountUnblocked  Kind = "account_unblocked"
	KindSubscriptionSet   Kind = "subscription_updated"
)

// Message is one notification addressed to a single platform actor.
type Message struct {
	Recipient id.ActorID        `json:"recipient"`
	Kind      Kind              `json:"kind"`
	Params    map[string]string `json:"params,omitempty"`
}

//go:generate mockgen -source=notify.go -destination=mocks/mocks.go -package=mocks Notifier

// Notifier publishes messages for out-of-process delivery.
type Notifier interface {
	Notify(ctx context.Context, msg Message) error
}
