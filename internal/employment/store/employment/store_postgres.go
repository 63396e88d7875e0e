package employment

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/sr13dr31/belyispisok/internal/employment/models"
	"github.com/sr13dr31/belyispisok/internal/platform/postgres"
	id "github.com/sr13dr31/belyispisok/pkg/domain"
	"github.com/sr13dr31/belyispisok/pkg/platform/sentinel"
	"github.com/sr13dr31/belyispisok/pkg/platform/tx"
)

const employmentColumns = `id, worker_id, company_id, position, status, started_at, ended_at, leave_requested_at, created_at`

// PostgresStore persists employment rows. Transition methods are conditional
// UPDATEs; a lost race surfaces as sentinel.ErrInvalidState. The partial
// unique index on open rows backs the single-active-employment invariant.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Create(ctx context.Context, employment *models.Employment) error {
	query := `
		INSERT INTO employments (` + employmentColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := tx.Q(ctx, s.db).ExecContext(ctx, query,
		uuid.UUID(employment.ID), uuid.UUID(employment.WorkerID), uuid.UUID(employment.CompanyID),
		employment.Position, string(employment.Status), employment.StartedAt,
		employment.EndedAt, employment.LeaveRequestedAt, employment.CreatedAt)
	if err != nil {
		if postgres.IsUniqueViolation(err) {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert employment: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, employmentID id.EmploymentID) (*models.Employment, error) {
	query := `SELECT ` + employmentColumns + ` FROM employments WHERE id = $1`
	e, err := scanEmployment(tx.Q(ctx, s.db).QueryRowContext(ctx, query, uuid.UUID(employmentID)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, err
	}
	return e, nil
}

func (s *PostgresStore) FindOpenByWorker(ctx context.Context, workerID id.WorkerID) (*models.Employment, error) {
	query := `
		SELECT ` + employmentColumns + `
		FROM employments
		WHERE worker_id = $1
		  AND status IN ('pending_confirm', 'accepted', 'leave_requested')
		  AND ended_at IS NULL
	`
	e, err := scanEmployment(tx.Q(ctx, s.db).QueryRowContext(ctx, query, uuid.UUID(workerID)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, err
	}
	return e, nil
}

func (s *PostgresStore) Accept(ctx context.Context, employmentID id.EmploymentID, now time.Time) error {
	query := `
		UPDATE employments
		SET status = 'accepted', started_at = COALESCE(started_at, $2)
		WHERE id = $1 AND status = 'pending_confirm'
	`
	res, err := tx.Q(ctx, s.db).ExecContext(ctx, query, uuid.UUID(employmentID), now)
	if err != nil {
		return fmt.Errorf("accept employment: %w", err)
	}
	return postgres.RequireState(res)
}

func (s *PostgresStore) Reject(ctx context.Context, employmentID id.EmploymentID) error {
	query := `
		UPDATE employments
		SET status = 'rejected'
		WHERE id = $1 AND status = 'pending_confirm'
	`
	res, err := tx.Q(ctx, s.db).ExecContext(ctx, query, uuid.UUID(employmentID))
	if err != nil {
		return fmt.Errorf("reject employment: %w", err)
	}
	return postgres.RequireState(res)
}

func (s *PostgresStore) RequestLeave(ctx context.Context, employmentID id.EmploymentID, now time.Time) error {
	query := `
		UPDATE employments
		SET status = 'leave_requested', leave_requested_at = $2
		WHERE id = $1 AND status = 'accepted'
	`
	res, err := tx.Q(ctx, s.db).ExecContext(ctx, query, uuid.UUID(employmentID), now)
	if err != nil {
		return fmt.Errorf("request leave: %w", err)
	}
	return postgres.RequireState(res)
}

func (s *PostgresStore) CancelLeave(ctx context.Context, employmentID id.EmploymentID) error {
	query := `
		UPDATE employments
		SET status = 'accepted', leave_requested_at = NULL
		WHERE id = $1 AND status = 'leave_requested'
	`
	res, err := tx.Q(ctx, s.db).ExecContext(ctx, query, uuid.UUID(employmentID))
	if err != nil {
		return fmt.Errorf("cancel leave: %w", err)
	}
	return postgres.RequireState(res)
}

func (s *PostgresStore) ConfirmLeave(ctx context.Context, employmentID id.EmploymentID, now time.Time) error {
	query := `
		UPDATE employments
		SET status = 'ended', ended_at = $2
		WHERE id = $1 AND status = 'leave_requested'
	`
	res, err := tx.Q(ctx, s.db).ExecContext(ctx, query, uuid.UUID(employmentID), now)
	if err != nil {
		return fmt.Errorf("confirm leave: %w", err)
	}
	return postgres.RequireState(res)
}

func (s *PostgresStore) End(ctx context.Context, employmentID id.EmploymentID, now time.Time) error {
	query := `
		UPDATE employments
		SET status = 'ended', ended_at = $2
		WHERE id = $1 AND status IN ('accepted', 'leave_requested')
	`
	res, err := tx.Q(ctx, s.db).ExecContext(ctx, query, uuid.UUID(employmentID), now)
	if err != nil {
		return fmt.Errorf("end employment: %w", err)
	}
	return postgres.RequireState(res)
}

func (s *PostgresStore) CloseStaleLeave(ctx context.Context, cutoff, now time.Time) ([]models.Employment, error) {
	query := `
		UPDATE employments
		SET status = 'ended', ended_at = $2
		WHERE status = 'leave_requested'
		  AND ended_at IS NULL
		  AND leave_requested_at <= $1
		RETURNING ` + employmentColumns + `
	`
	rows, err := tx.Q(ctx, s.db).QueryContext(ctx, query, cutoff, now)
	if err != nil {
		return nil, fmt.Errorf("close stale leave requests: %w", err)
	}
	defer rows.Close()
	return collectEmployments(rows)
}

func (s *PostgresStore) HasRelationship(ctx context.Context, workerID id.WorkerID, companyID id.CompanyID) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM employments
			WHERE worker_id = $1 AND company_id = $2
			  AND status IN ('accepted', 'leave_requested', 'ended')
		)
	`
	var exists bool
	err := tx.Q(ctx, s.db).QueryRowContext(ctx, query, uuid.UUID(workerID), uuid.UUID(companyID)).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check employment relationship: %w", err)
	}
	return exists, nil
}

func (s *PostgresStore) ListByCompany(ctx context.Context, companyID id.CompanyID, statuses []models.Status, limit, offset int) ([]models.Employment, error) {
	query := `
		SELECT ` + employmentColumns + `
		FROM employments
		WHERE company_id = $1
		  AND (cardinality($2::text[]) = 0 OR status = ANY($2))
		ORDER BY created_at DESC, id
		LIMIT $3 OFFSET $4
	`
	if limit <= 0 {
		limit = 50
	}
	values := make([]string, len(statuses))
	for i, status := range statuses {
		values[i] = string(status)
	}
	rows, err := tx.Q(ctx, s.db).QueryContext(ctx, query, uuid.UUID(companyID), pq.Array(values), limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list employments by company: %w", err)
	}
	defer rows.Close()
	return collectEmployments(rows)
}

func (s *PostgresStore) ListByWorker(ctx context.Context, workerID id.WorkerID) ([]models.Employment, error) {
	query := `
		SELECT ` + employmentColumns + `
		FROM employments
		WHERE worker_id = $1
		ORDER BY created_at DESC, id
	`
	rows, err := tx.Q(ctx, s.db).QueryContext(ctx, query, uuid.UUID(workerID))
	if err != nil {
		return nil, fmt.Errorf("list employments by worker: %w", err)
	}
	defer rows.Close()
	return collectEmployments(rows)
}

func (s *PostgresStore) CountPendingByCompany(ctx context.Context, companyID id.CompanyID) (int, error) {
	var count int
	err := tx.Q(ctx, s.db).QueryRowContext(ctx,
		`SELECT COUNT(*) FROM employments WHERE company_id = $1 AND status = 'pending_confirm'`,
		uuid.UUID(companyID)).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count pending employments: %w", err)
	}
	return count, nil
}

func (s *PostgresStore) CountOpen(ctx context.Context) (int, error) {
	var count int
	err := tx.Q(ctx, s.db).QueryRowContext(ctx,
		`SELECT COUNT(*) FROM employments WHERE status IN ('pending_confirm', 'accepted', 'leave_requested') AND ended_at IS NULL`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count open employments: %w", err)
	}
	return count, nil
}

func (s *PostgresStore) CountEnded(ctx context.Context) (int, error) {
	var count int
	err := tx.Q(ctx, s.db).QueryRowContext(ctx,
		`SELECT COUNT(*) FROM employments WHERE status = 'ended'`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count ended employments: %w", err)
	}
	return count, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEmployment(row rowScanner) (*models.Employment, error) {
	var (
		e            models.Employment
		employmentID uuid.UUID
		workerID     uuid.UUID
		companyID    uuid.UUID
		status       string
		started      sql.NullTime
		ended        sql.NullTime
		leave        sql.NullTime
	)
	err := row.Scan(&employmentID, &workerID, &companyID, &e.Position, &status,
		&started, &ended, &leave, &e.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan employment: %w", err)
	}
	e.ID = id.EmploymentID(employmentID)
	e.WorkerID = id.WorkerID(workerID)
	e.CompanyID = id.CompanyID(companyID)
	e.Status = models.Status(status)
	if started.Valid {
		t := started.Time
		e.StartedAt = &t
	}
	if ended.Valid {
		t := ended.Time
		e.EndedAt = &t
	}
	if leave.Valid {
		t := leave.Time
		e.LeaveRequestedAt = &t
	}
	return &e, nil
}

func collectEmployments(rows *sql.Rows) ([]models.Employment, error) {
	var out []models.Employment
	for rows.Next() {
		e, err := scanEmployment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate employments: %w", err)
	}
	return out, nil
}
