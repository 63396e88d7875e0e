// Package models holds the identity domain entities and their transition
// rules. Services orchestrate; the rules about what a row may become live
// here, next to the data.
package models

import (
	"strings"
	"time"

	id "github.com/sr13dr31/belyispisok/pkg/domain"
	dErrors "github.com/sr13dr31/belyispisok/pkg/domain-errors"
)

// Worker is an independent contractor tracked by the registry.
//
// Passport holds the plaintext document value while the struct is in memory;
// stores persist the encrypted form and the service layer converts at the
// boundary. PassportLocked is one-way under normal operation: it is set when
// a company accepts the worker and only an administrator may clear it.
type Worker struct {
	ID             id.WorkerID
	OwnerID        id.ActorID
	FullName       string
	Phone          string
	Passport       string
	PublicID       id.PublicID
	Blocked        bool
	PassportLocked bool
	Notes          string
	CreatedAt      time.Time
}

// Validate checks the structural invariants required before a worker row may
// be created.
func (w *Worker) Validate() error {
	if w.OwnerID.IsZero() {
		return dErrors.New(dErrors.CodeValidation, "worker owner is required")
	}
	if strings.TrimSpace(w.FullName) == "" {
		return dErrors.New(dErrors.CodeValidation, "worker full name is required")
	}
	return nil
}

// CanEditProfile gates self-service profile edits.
func (w *Worker) CanEditProfile() error {
	if w.Blocked {
		return dErrors.New(dErrors.CodeForbidden, "account is blocked")
	}
	return nil
}

// CanEditPassport gates self-service passport edits. Once an employment is
// accepted the passport is locked and only the linked company or an
// administrator may change it.
func (w *Worker) CanEditPassport() error {
	if err := w.CanEditProfile(); err != nil {
		return err
	}
	if w.PassportLocked {
		return dErrors.New(dErrors.CodeForbidden, "passport is locked by an employment")
	}
	return nil
}
