package worker

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/sr13dr31/belyispisok/internal/identity/models"
	"github.com/sr13dr31/belyispisok/internal/identity/service"
	"github.com/sr13dr31/belyispisok/internal/platform/postgres"
	id "github.com/sr13dr31/belyispisok/pkg/domain"
	"github.com/sr13dr31/belyispisok/pkg/platform/sentinel"
	"github.com/sr13dr31/belyispisok/pkg/platform/tx"
)

const workerColumns = `id, owner_id, full_name, phone, passport, public_id, blocked, passport_locked, notes, created_at`

// PostgresStore persists worker rows. Passport values arrive already
// encrypted; this layer never touches the cipher.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Create(ctx context.Context, worker *models.Worker) error {
	query := `
		INSERT INTO workers (` + workerColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := tx.Q(ctx, s.db).ExecContext(ctx, query,
		uuid.UUID(worker.ID), int64(worker.OwnerID), worker.FullName, worker.Phone,
		worker.Passport, string(worker.PublicID), worker.Blocked, worker.PassportLocked,
		worker.Notes, worker.CreatedAt)
	if err != nil {
		if postgres.IsUniqueViolation(err) {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert worker: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, workerID id.WorkerID) (*models.Worker, error) {
	return s.findBy(ctx, "id = $1", uuid.UUID(workerID))
}

func (s *PostgresStore) FindByOwner(ctx context.Context, owner id.ActorID) (*models.Worker, error) {
	return s.findBy(ctx, "owner_id = $1", int64(owner))
}

func (s *PostgresStore) FindByPublicID(ctx context.Context, publicID id.PublicID) (*models.Worker, error) {
	return s.findBy(ctx, "public_id = $1", string(publicID))
}

func (s *PostgresStore) Update(ctx context.Context, worker *models.Worker) error {
	query := `
		UPDATE workers
		SET full_name = $2, phone = $3, notes = $4
		WHERE id = $1
	`
	res, err := tx.Q(ctx, s.db).ExecContext(ctx, query,
		uuid.UUID(worker.ID), worker.FullName, worker.Phone, worker.Notes)
	if err != nil {
		return fmt.Errorf("update worker: %w", err)
	}
	return postgres.RequireRow(res)
}

func (s *PostgresStore) SetPassport(ctx context.Context, workerID id.WorkerID, encrypted string) error {
	return s.set(ctx, workerID, "passport = $2", encrypted)
}

func (s *PostgresStore) SetPassportLocked(ctx context.Context, workerID id.WorkerID, locked bool) error {
	return s.set(ctx, workerID, "passport_locked = $2", locked)
}

func (s *PostgresStore) SetBlocked(ctx context.Context, workerID id.WorkerID, blocked bool) error {
	return s.set(ctx, workerID, "blocked = $2", blocked)
}

func (s *PostgresStore) SetNotes(ctx context.Context, workerID id.WorkerID, notes string) error {
	return s.set(ctx, workerID, "notes = $2", notes)
}

func (s *PostgresStore) List(ctx context.Context, filter service.ListFilter) ([]models.Worker, error) {
	query := `
		SELECT ` + workerColumns + `
		FROM workers
		WHERE ($1 = '' OR full_name ILIKE '%' || $1 || '%' OR public_id ILIKE '%' || $1 || '%')
		ORDER BY created_at DESC, id
		LIMIT $2 OFFSET $3
	`
	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	rows, err := tx.Q(ctx, s.db).QueryContext(ctx, query, filter.Search, limit, filter.Offset)
	if err != nil {
		return nil, fmt.Errorf("list workers: %w", err)
	}
	defer rows.Close()

	var out []models.Worker
	for rows.Next() {
		w, err := scanWorker(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate workers: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) Count(ctx context.Context) (int, error) {
	var count int
	err := tx.Q(ctx, s.db).QueryRowContext(ctx, `SELECT COUNT(*) FROM workers`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count workers: %w", err)
	}
	return count, nil
}

func (s *PostgresStore) CountCreatedSince(ctx context.Context, since time.Time) (int, error) {
	var count int
	err := tx.Q(ctx, s.db).QueryRowContext(ctx,
		`SELECT COUNT(*) FROM workers WHERE created_at >= $1`, since).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count workers since: %w", err)
	}
	return count, nil
}

func (s *PostgresStore) PublicIDTaken(ctx context.Context, publicID id.PublicID) (bool, error) {
	var taken bool
	err := tx.Q(ctx, s.db).QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM workers WHERE public_id = $1)`, string(publicID)).Scan(&taken)
	if err != nil {
		return false, fmt.Errorf("check worker public id: %w", err)
	}
	return taken, nil
}

func (s *PostgresStore) findBy(ctx context.Context, where string, arg any) (*models.Worker, error) {
	query := `SELECT ` + workerColumns + ` FROM workers WHERE ` + where
	row := tx.Q(ctx, s.db).QueryRowContext(ctx, query, arg)
	w, err := scanWorker(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, err
	}
	return w, nil
}

func (s *PostgresStore) set(ctx context.Context, workerID id.WorkerID, assignment string, value any) error {
	query := `UPDATE workers SET ` + assignment + ` WHERE id = $1`
	res, err := tx.Q(ctx, s.db).ExecContext(ctx, query, uuid.UUID(workerID), value)
	if err != nil {
		return fmt.Errorf("update worker field: %w", err)
	}
	return postgres.RequireRow(res)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanWorker(row rowScanner) (*models.Worker, error) {
	var (
		w        models.Worker
		workerID uuid.UUID
		owner    int64
		publicID string
	)
	err := row.Scan(&workerID, &owner, &w.FullName, &w.Phone, &w.Passport,
		&publicID, &w.Blocked, &w.PassportLocked, &w.Notes, &w.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan worker: %w", err)
	}
	w.ID = id.WorkerID(workerID)
	w.OwnerID = id.ActorID(owner)
	w.PublicID = id.PublicID(publicID)
	return &w, nil
}

