package domain

import (
	"github.com/google/uuid"

	dErrors "github.com/sr13dr31/belyispisok/pkg/domain-errors"
)

// Typed entity IDs. Distinct types prevent cross-entity assignment at compile
// time: a WorkerID can never be passed where a CompanyID is expected.
type (
	WorkerID     uuid.UUID
	CompanyID    uuid.UUID
	EmploymentID uuid.UUID
	ReviewID     uuid.UUID
	AppealID     uuid.UUID
	AdminID      uuid.UUID
	AuditEntryID uuid.UUID
)

// ActorID identifies a participant on the conversational platform. The
// front-end hands it to us as an opaque numeric identifier; it is one-to-one
// with at most one Worker or Company row.
type ActorID int64

func (a ActorID) IsZero() bool { return a == 0 }

func NewWorkerID() WorkerID         { return WorkerID(uuid.New()) }
func NewCompanyID() CompanyID       { return CompanyID(uuid.New()) }
func NewEmploymentID() EmploymentID { return EmploymentID(uuid.New()) }
func NewReviewID() ReviewID         { return ReviewID(uuid.New()) }
func NewAppealID() AppealID         { return AppealID(uuid.New()) }
func NewAdminID() AdminID           { return AdminID(uuid.New()) }
func NewAuditEntryID() AuditEntryID { return AuditEntryID(uuid.New()) }

func (id WorkerID) IsNil() bool     { return uuid.UUID(id) == uuid.Nil }
func (id CompanyID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }
func (id EmploymentID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id ReviewID) IsNil() bool     { return uuid.UUID(id) == uuid.Nil }
func (id AppealID) IsNil() bool     { return uuid.UUID(id) == uuid.Nil }
func (id AdminID) IsNil() bool      { return uuid.UUID(id) == uuid.Nil }

func (id WorkerID) String() string     { return uuid.UUID(id).String() }
func (id CompanyID) String() string    { return uuid.UUID(id).String() }
func (id EmploymentID) String() string { return uuid.UUID(id).String() }
func (id ReviewID) String() string     { return uuid.UUID(id).String() }
func (id AppealID) String() string     { return uuid.UUID(id).String() }
func (id AdminID) String() string      { return uuid.UUID(id).String() }
func (id AuditEntryID) String() string { return uuid.UUID(id).String() }

// parseUUID enforces the trust-boundary invariant: IDs arriving as strings
// must be valid, non-nil UUIDs.
func parseUUID(s string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "id is required")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "id is not a valid UUID")
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "id must not be the nil UUID")
	}
	return u, nil
}

func ParseWorkerID(s string) (WorkerID, error) {
	u, err := parseUUID(s)
	return WorkerID(u), err
}

func ParseCompanyID(s string) (CompanyID, error) {
	u, err := parseUUID(s)
	return CompanyID(u), err
}

func ParseEmploymentID(s string) (EmploymentID, error) {
	u, err := parseUUID(s)
	return EmploymentID(u), err
}

func ParseReviewID(s string) (ReviewID, error) {
	u, err := parseUUID(s)
	return ReviewID(u), err
}

func ParseAppealID(s string) (AppealID, error) {
	u, err := parseUUID(s)
	return AppealID(u), err
}

func ParseAdminID(s string) (AdminID, error) {
	u, err := parseUUID(s)
	return AdminID(u), err
}
