package service

import (
	"context"
	"errors"
	"strings"

	"github.com/sr13dr31/belyispisok/internal/identity/models"
	id "github.com/sr13dr31/belyispisok/pkg/domain"
	dErrors "github.com/sr13dr31/belyispisok/pkg/domain-errors"
	"github.com/sr13dr31/belyispisok/pkg/platform/sentinel"
	"github.com/sr13dr31/belyispisok/pkg/requestcontext"
)

// RegisterWorkerInput carries pre-validated registration fields. Syntax
// validation (phone/passport shape) happens before the core; structural
// invariants are still re-checked here.
type RegisterWorkerInput struct {
	Owner    id.ActorID
	FullName string
	Phone    string
	Passport string
}

// RegisterWorker creates a worker row with a freshly allocated public id and
// the passport sealed under the primary key. One worker per owning actor.
func (s *Service) RegisterWorker(ctx context.Context, input RegisterWorkerInput) (*models.Worker, error) {
	worker := &models.Worker{
		ID:        id.NewWorkerID(),
		OwnerID:   input.Owner,
		FullName:  strings.TrimSpace(input.FullName),
		Phone:     strings.TrimSpace(input.Phone),
		Passport:  input.Passport,
		CreatedAt: requestcontext.Now(ctx),
	}
	if err := worker.Validate(); err != nil {
		return nil, err
	}

	publicID, err := s.allocatePublicID(ctx, id.PublicPrefixWorker)
	if err != nil {
		return nil, err
	}
	worker.PublicID = publicID

	encrypted, err := s.cipher.Encrypt(input.Passport)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "encrypt passport")
	}

	stored := *worker
	stored.Passport = encrypted
	if err := s.workers.Create(ctx, &stored); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.New(dErrors.CodeConflict, "worker already registered for this account")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "create worker")
	}

	s.metrics.IncWorkersRegistered()
	s.logger.Info("worker registered", "worker_id", worker.ID, "public_id", worker.PublicID)
	return worker, nil
}

// WorkerByOwner resolves the worker owned by a platform actor.
func (s *Service) WorkerByOwner(ctx context.Context, owner id.ActorID) (*models.Worker, error) {
	worker, err := s.workers.FindByOwner(ctx, owner)
	if err != nil {
		return nil, translateWorkerErr(err)
	}
	return s.revealPassport(ctx, worker), nil
}

// WorkerByID resolves a worker by internal id.
func (s *Service) WorkerByID(ctx context.Context, workerID id.WorkerID) (*models.Worker, error) {
	worker, err := s.workers.FindByID(ctx, workerID)
	if err != nil {
		return nil, translateWorkerErr(err)
	}
	return s.revealPassport(ctx, worker), nil
}

// WorkerByPublicID resolves a worker from the shareable M-###### id. The
// format is re-checked here because public ids arrive as raw lookup strings.
func (s *Service) WorkerByPublicID(ctx context.Context, raw string) (*models.Worker, error) {
	publicID, err := id.ParsePublicID(strings.ToUpper(strings.TrimSpace(raw)))
	if err != nil {
		return nil, err
	}
	if !publicID.IsWorker() {
		return nil, dErrors.New(dErrors.CodeNotFound, "worker not found")
	}
	worker, err := s.workers.FindByPublicID(ctx, publicID)
	if err != nil {
		return nil, translateWorkerErr(err)
	}
	return s.revealPassport(ctx, worker), nil
}

// WorkerProfilePatch updates only the supplied fields.
type WorkerProfilePatch struct {
	FullName *string
	Phone    *string
}

// UpdateWorkerProfile applies a partial self-service edit. Blocked workers
// cannot edit; passport changes go through SetWorkerPassport instead.
func (s *Service) UpdateWorkerProfile(ctx context.Context, workerID id.WorkerID, patch WorkerProfilePatch) (*models.Worker, error) {
	worker, err := s.workers.FindByID(ctx, workerID)
	if err != nil {
		return nil, translateWorkerErr(err)
	}
	if err := worker.CanEditProfile(); err != nil {
		return nil, err
	}
	if patch.FullName != nil {
		if strings.TrimSpace(*patch.FullName) == "" {
			return nil, dErrors.New(dErrors.CodeValidation, "worker full name is required")
		}
		worker.FullName = strings.TrimSpace(*patch.FullName)
	}
	if patch.Phone != nil {
		worker.Phone = strings.TrimSpace(*patch.Phone)
	}
	if err := s.workers.Update(ctx, worker); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "update worker")
	}
	return s.revealPassport(ctx, worker), nil
}

// SetWorkerPassport re-encrypts and stores a new passport value. Self-service
// edits are refused once the passport is locked; the linked company and
// administrators pass byCompany=true to bypass the lock.
func (s *Service) SetWorkerPassport(ctx context.Context, workerID id.WorkerID, passport string, byCompany bool) error {
	worker, err := s.workers.FindByID(ctx, workerID)
	if err != nil {
		return translateWorkerErr(err)
	}
	if !byCompany {
		if err := worker.CanEditPassport(); err != nil {
			return err
		}
	}
	encrypted, err := s.cipher.Encrypt(passport)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "encrypt passport")
	}
	if err := s.workers.SetPassport(ctx, workerID, encrypted); err != nil {
		return translateWorkerErr(err)
	}
	return nil
}

// LockPassport is the employment-accept side effect: one-way, idempotent.
func (s *Service) LockPassport(ctx context.Context, workerID id.WorkerID) error {
	if err := s.workers.SetPassportLocked(ctx, workerID, true); err != nil {
		return translateWorkerErr(err)
	}
	return nil
}

// UnlockPassport clears the lock. Admin-only path.
func (s *Service) UnlockPassport(ctx context.Context, workerID id.WorkerID) error {
	if err := s.workers.SetPassportLocked(ctx, workerID, false); err != nil {
		return translateWorkerErr(err)
	}
	return nil
}

// SetWorkerBlocked flips the moderation flag.
func (s *Service) SetWorkerBlocked(ctx context.Context, workerID id.WorkerID, blocked bool) error {
	if err := s.workers.SetBlocked(ctx, workerID, blocked); err != nil {
		return translateWorkerErr(err)
	}
	return nil
}

// SetWorkerNotes replaces the free-text admin notes.
func (s *Service) SetWorkerNotes(ctx context.Context, workerID id.WorkerID, notes string) error {
	if err := s.workers.SetNotes(ctx, workerID, notes); err != nil {
		return translateWorkerErr(err)
	}
	return nil
}

// ListWorkers serves admin listings. Passports are NOT revealed in bulk
// listings; rows come back with the stored ciphertext blanked.
func (s *Service) ListWorkers(ctx context.Context, filter ListFilter) ([]models.Worker, error) {
	workers, err := s.workers.List(ctx, filter)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "list workers")
	}
	for i := range workers {
		workers[i].Passport = ""
	}
	return workers, nil
}

// revealPassport decrypts the stored value and, when the cipher had to fall
// back to the legacy key, rewrites the row under the primary key so the
// stored population migrates as it is read. The rewrite is best effort: a
// failed self-heal never fails the read.
func (s *Service) revealPassport(ctx context.Context, worker *models.Worker) *models.Worker {
	plain, wasLegacy := s.cipher.Decrypt(worker.Passport)
	if wasLegacy {
		if reencrypted, err := s.cipher.Encrypt(plain); err == nil {
			if err := s.workers.SetPassport(ctx, worker.ID, reencrypted); err != nil {
				s.logger.Warn("passport re-encryption failed", "worker_id", worker.ID, "error", err)
			} else {
				s.metrics.IncPassportsMigrated()
				s.logger.Info("passport migrated to primary key", "worker_id", worker.ID)
			}
		}
	}
	worker.Passport = plain
	return worker
}

func translateWorkerErr(err error) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeNotFound, "worker not found")
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, "worker store")
}
