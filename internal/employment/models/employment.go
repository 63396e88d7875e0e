// Package models defines the employment link between one worker and one
// company and its status machine.
package models

import (
	"time"

	id "github.com/sr13dr31/belyispisok/pkg/domain"
)

// Status is the employment lifecycle state.
//
//	pending_confirm → accepted → leave_requested → ended
//	pending_confirm → rejected            (terminal branch)
//	leave_requested → accepted            (worker cancels the leave request)
//	accepted | leave_requested → ended    (company ends directly)
type Status string

const (
	StatusPendingConfirm Status = "pending_confirm"
	StatusAccepted       Status = "accepted"
	StatusLeaveRequested Status = "leave_requested"
	StatusEnded          Status = "ended"
	StatusRejected       Status = "rejected"
)

// IsTerminal reports whether no further transition is possible.
func (s Status) IsTerminal() bool {
	return s == StatusEnded || s == StatusRejected
}

// OpenStatuses are the states that count against the single-active-employment
// invariant: a worker holding an employment in any of these cannot request a
// new attach anywhere.
func OpenStatuses() []Status {
	return []Status{StatusPendingConfirm, StatusAccepted, StatusLeaveRequested}
}

// Employment links exactly one worker to exactly one company.
type Employment struct {
	ID               id.EmploymentID
	WorkerID         id.WorkerID
	CompanyID        id.CompanyID
	Position         string
	Status           Status
	StartedAt        *time.Time
	EndedAt          *time.Time
	LeaveRequestedAt *time.Time
	CreatedAt        time.Time
}

// IsOpen reports whether the row counts against the single-active invariant.
func (e *Employment) IsOpen() bool {
	return !e.Status.IsTerminal() && e.EndedAt == nil
}
