package appeal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/sr13dr31/belyispisok/internal/appeal/models"
	"github.com/sr13dr31/belyispisok/internal/platform/postgres"
	id "github.com/sr13dr31/belyispisok/pkg/domain"
	"github.com/sr13dr31/belyispisok/pkg/platform/sentinel"
	"github.com/sr13dr31/belyispisok/pkg/platform/tx"
)

const appealColumns = `id, review_id, worker_id, company_id, status, reason, evidence_refs,
	company_comment, company_evidence_ref, admin_comment,
	reminder_sent_at, final_decision_at, attempts_count, created_at, updated_at`

// PostgresStore persists appeal rows. Transition methods are conditional
// UPDATEs; a lost race surfaces as sentinel.ErrInvalidState. The partial
// unique index on non-terminal (review_id, worker_id) rows backs the
// one-active-appeal invariant.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Create(ctx context.Context, appeal *models.Appeal) error {
	query := `
		INSERT INTO review_appeals (` + appealColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`
	_, err := tx.Q(ctx, s.db).ExecContext(ctx, query,
		uuid.UUID(appeal.ID), uuid.UUID(appeal.ReviewID), uuid.UUID(appeal.WorkerID), uuid.UUID(appeal.CompanyID),
		string(appeal.Status), appeal.Reason, pq.Array(appeal.EvidenceRefs),
		appeal.CompanyComment, appeal.CompanyEvidenceRef, appeal.AdminComment,
		appeal.ReminderSentAt, appeal.FinalDecisionAt, appeal.AttemptsCount,
		appeal.CreatedAt, appeal.UpdatedAt)
	if err != nil {
		if postgres.IsUniqueViolation(err) {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert appeal: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, appealID id.AppealID) (*models.Appeal, error) {
	query := `SELECT ` + appealColumns + ` FROM review_appeals WHERE id = $1`
	a, err := scanAppeal(tx.Q(ctx, s.db).QueryRowContext(ctx, query, uuid.UUID(appealID)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, err
	}
	return a, nil
}

func (s *PostgresStore) FindActive(ctx context.Context, reviewID id.ReviewID, workerID id.WorkerID) (*models.Appeal, error) {
	query := `
		SELECT ` + appealColumns + `
		FROM review_appeals
		WHERE review_id = $1 AND worker_id = $2
		  AND status IN ('pending_company_response', 'pending_admin_review')
	`
	a, err := scanAppeal(tx.Q(ctx, s.db).QueryRowContext(ctx, query, uuid.UUID(reviewID), uuid.UUID(workerID)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, err
	}
	return a, nil
}

func (s *PostgresStore) MaxAttempts(ctx context.Context, reviewID id.ReviewID, workerID id.WorkerID) (int, error) {
	query := `
		SELECT COALESCE(MAX(attempts_count), 0)
		FROM review_appeals
		WHERE review_id = $1 AND worker_id = $2
	`
	var max int
	err := tx.Q(ctx, s.db).QueryRowContext(ctx, query, uuid.UUID(reviewID), uuid.UUID(workerID)).Scan(&max)
	if err != nil {
		return 0, fmt.Errorf("max appeal attempts: %w", err)
	}
	return max, nil
}

func (s *PostgresStore) MarkCompanyResponded(ctx context.Context, appealID id.AppealID, comment, evidenceRef string, now time.Time) error {
	query := `
		UPDATE review_appeals
		SET status = 'pending_admin_review', company_comment = $2, company_evidence_ref = $3, updated_at = $4
		WHERE id = $1 AND status = 'pending_company_response'
	`
	res, err := tx.Q(ctx, s.db).ExecContext(ctx, query, uuid.UUID(appealID), comment, evidenceRef, now)
	if err != nil {
		return fmt.Errorf("mark appeal responded: %w", err)
	}
	return postgres.RequireState(res)
}

func (s *PostgresStore) Decide(ctx context.Context, appealID id.AppealID, status models.Status, comment string, now time.Time) error {
	query := `
		UPDATE review_appeals
		SET status = $2, admin_comment = $3, final_decision_at = $4, updated_at = $4
		WHERE id = $1 AND status IN ('pending_company_response', 'pending_admin_review')
	`
	res, err := tx.Q(ctx, s.db).ExecContext(ctx, query, uuid.UUID(appealID), string(status), comment, now)
	if err != nil {
		return fmt.Errorf("decide appeal: %w", err)
	}
	return postgres.RequireState(res)
}

// SetAdminComment is the one write valid in any status: a moderator note on a
// resolved appeal stays attachable.
func (s *PostgresStore) SetAdminComment(ctx context.Context, appealID id.AppealID, comment string, now time.Time) error {
	query := `
		UPDATE review_appeals
		SET admin_comment = $2, updated_at = $3
		WHERE id = $1
	`
	res, err := tx.Q(ctx, s.db).ExecContext(ctx, query, uuid.UUID(appealID), comment, now)
	if err != nil {
		return fmt.Errorf("set appeal comment: %w", err)
	}
	return postgres.RequireRow(res)
}

func (s *PostgresStore) MarkReminderSent(ctx context.Context, appealID id.AppealID, now time.Time) error {
	query := `
		UPDATE review_appeals
		SET reminder_sent_at = $2, updated_at = $2
		WHERE id = $1 AND status = 'pending_company_response' AND reminder_sent_at IS NULL
	`
	res, err := tx.Q(ctx, s.db).ExecContext(ctx, query, uuid.UUID(appealID), now)
	if err != nil {
		return fmt.Errorf("mark appeal reminder: %w", err)
	}
	return postgres.RequireState(res)
}

func (s *PostgresStore) AutoRemove(ctx context.Context, appealID id.AppealID, now time.Time) error {
	query := `
		UPDATE review_appeals
		SET status = 'auto_removed_review', final_decision_at = $2, updated_at = $2
		WHERE id = $1 AND status = 'pending_company_response'
	`
	res, err := tx.Q(ctx, s.db).ExecContext(ctx, query, uuid.UUID(appealID), now)
	if err != nil {
		return fmt.Errorf("auto-remove appeal: %w", err)
	}
	return postgres.RequireState(res)
}

func (s *PostgresStore) ListPendingCompanyResponse(ctx context.Context) ([]models.Appeal, error) {
	query := `
		SELECT ` + appealColumns + `
		FROM review_appeals
		WHERE status = 'pending_company_response'
		ORDER BY created_at, id
	`
	rows, err := tx.Q(ctx, s.db).QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list pending appeals: %w", err)
	}
	defer rows.Close()
	return collectAppeals(rows)
}

func (s *PostgresStore) ListByCompany(ctx context.Context, companyID id.CompanyID, status models.Status) ([]models.Appeal, error) {
	query := `
		SELECT ` + appealColumns + `
		FROM review_appeals
		WHERE company_id = $1 AND status = $2
		ORDER BY created_at, id
	`
	rows, err := tx.Q(ctx, s.db).QueryContext(ctx, query, uuid.UUID(companyID), string(status))
	if err != nil {
		return nil, fmt.Errorf("list appeals by company: %w", err)
	}
	defer rows.Close()
	return collectAppeals(rows)
}

func (s *PostgresStore) ListByStatus(ctx context.Context, status models.Status, limit, offset int) ([]models.Appeal, error) {
	query := `
		SELECT ` + appealColumns + `
		FROM review_appeals
		WHERE status = $1
		ORDER BY created_at, id
		LIMIT $2 OFFSET $3
	`
	if limit <= 0 {
		limit = 50
	}
	rows, err := tx.Q(ctx, s.db).QueryContext(ctx, query, string(status), limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list appeals by status: %w", err)
	}
	defer rows.Close()
	return collectAppeals(rows)
}

func (s *PostgresStore) CountOpen(ctx context.Context) (int, error) {
	var count int
	err := tx.Q(ctx, s.db).QueryRowContext(ctx,
		`SELECT COUNT(*) FROM review_appeals WHERE status IN ('pending_company_response', 'pending_admin_review')`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count open appeals: %w", err)
	}
	return count, nil
}

func (s *PostgresStore) CountOpenOlderThan(ctx context.Context, cutoff time.Time) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM review_appeals
		WHERE status IN ('pending_company_response', 'pending_admin_review')
		  AND created_at < $1
	`
	var count int
	err := tx.Q(ctx, s.db).QueryRowContext(ctx, query, cutoff).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count stale appeals: %w", err)
	}
	return count, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAppeal(row rowScanner) (*models.Appeal, error) {
	var (
		a          models.Appeal
		appealID   uuid.UUID
		reviewID   uuid.UUID
		workerID   uuid.UUID
		companyID  uuid.UUID
		status     string
		evidence   pq.StringArray
		reminderAt sql.NullTime
		decidedAt  sql.NullTime
	)
	err := row.Scan(&appealID, &reviewID, &workerID, &companyID, &status, &a.Reason, &evidence,
		&a.CompanyComment, &a.CompanyEvidenceRef, &a.AdminComment,
		&reminderAt, &decidedAt, &a.AttemptsCount, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan appeal: %w", err)
	}
	a.ID = id.AppealID(appealID)
	a.ReviewID = id.ReviewID(reviewID)
	a.WorkerID = id.WorkerID(workerID)
	a.CompanyID = id.CompanyID(companyID)
	a.Status = models.Status(status)
	a.EvidenceRefs = []string(evidence)
	if reminderAt.Valid {
		t := reminderAt.Time
		a.ReminderSentAt = &t
	}
	if decidedAt.Valid {
		t := decidedAt.Time
		a.FinalDecisionAt = &t
	}
	return &a, nil
}

func collectAppeals(rows *sql.Rows) ([]models.Appeal, error) {
	var out []models.Appeal
	for rows.Next() {
		a, err := scanAppeal(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate appeals: %w", err)
	}
	return out, nil
}
