package review

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/sr13dr31/belyispisok/internal/platform/postgres"
	"github.com/sr13dr31/belyispisok/internal/review/models"
	id "github.com/sr13dr31/belyispisok/pkg/domain"
	"github.com/sr13dr31/belyispisok/pkg/platform/sentinel"
	"github.com/sr13dr31/belyispisok/pkg/platform/tx"
)

const reviewColumns = `id, company_id, worker_id, employment_id, body, rating, created_at`

// PostgresStore persists review rows.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Create(ctx context.Context, review *models.Review) error {
	query := `
		INSERT INTO reviews (` + reviewColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	var employmentID any
	if review.EmploymentID != nil {
		employmentID = uuid.UUID(*review.EmploymentID)
	}
	_, err := tx.Q(ctx, s.db).ExecContext(ctx, query,
		uuid.UUID(review.ID), uuid.UUID(review.CompanyID), uuid.UUID(review.WorkerID),
		employmentID, review.Text, review.Rating, review.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert review: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, reviewID id.ReviewID) (*models.Review, error) {
	query := `SELECT ` + reviewColumns + ` FROM reviews WHERE id = $1`
	r, err := scanReview(tx.Q(ctx, s.db).QueryRowContext(ctx, query, uuid.UUID(reviewID)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, err
	}
	return r, nil
}

func (s *PostgresStore) Delete(ctx context.Context, reviewID id.ReviewID) error {
	res, err := tx.Q(ctx, s.db).ExecContext(ctx, `DELETE FROM reviews WHERE id = $1`, uuid.UUID(reviewID))
	if err != nil {
		return fmt.Errorf("delete review: %w", err)
	}
	return postgres.RequireRow(res)
}

func (s *PostgresStore) ListByWorker(ctx context.Context, workerID id.WorkerID, limit, offset int) ([]models.Review, error) {
	query := `
		SELECT ` + reviewColumns + `
		FROM reviews
		WHERE worker_id = $1
		ORDER BY created_at DESC, id
		LIMIT $2 OFFSET $3
	`
	if limit <= 0 {
		limit = 50
	}
	rows, err := tx.Q(ctx, s.db).QueryContext(ctx, query, uuid.UUID(workerID), limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list reviews by worker: %w", err)
	}
	defer rows.Close()
	return collectReviews(rows)
}

func (s *PostgresStore) ListByEmployment(ctx context.Context, employmentID id.EmploymentID) ([]models.Review, error) {
	query := `
		SELECT ` + reviewColumns + `
		FROM reviews
		WHERE employment_id = $1
		ORDER BY created_at DESC, id
	`
	rows, err := tx.Q(ctx, s.db).QueryContext(ctx, query, uuid.UUID(employmentID))
	if err != nil {
		return nil, fmt.Errorf("list reviews by employment: %w", err)
	}
	defer rows.Close()
	return collectReviews(rows)
}

func (s *PostgresStore) Aggregate(ctx context.Context, workerID id.WorkerID) (models.AggregateRating, error) {
	query := `
		SELECT AVG(rating), COUNT(rating)
		FROM reviews
		WHERE worker_id = $1 AND rating IS NOT NULL
	`
	var (
		avg   sql.NullFloat64
		count int
	)
	err := tx.Q(ctx, s.db).QueryRowContext(ctx, query, uuid.UUID(workerID)).Scan(&avg, &count)
	if err != nil {
		return models.AggregateRating{}, fmt.Errorf("aggregate rating: %w", err)
	}
	agg := models.AggregateRating{Count: count}
	if avg.Valid {
		v := avg.Float64
		agg.Average = &v
	}
	return agg, nil
}

func (s *PostgresStore) Count(ctx context.Context) (int, error) {
	var count int
	err := tx.Q(ctx, s.db).QueryRowContext(ctx, `SELECT COUNT(*) FROM reviews`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count reviews: %w", err)
	}
	return count, nil
}

func (s *PostgresStore) CountCreatedSince(ctx context.Context, since time.Time) (int, error) {
	var count int
	err := tx.Q(ctx, s.db).QueryRowContext(ctx,
		`SELECT COUNT(*) FROM reviews WHERE created_at >= $1`, since).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count reviews since: %w", err)
	}
	return count, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanReview(row rowScanner) (*models.Review, error) {
	var (
		r            models.Review
		reviewID     uuid.UUID
		companyID    uuid.UUID
		workerID     uuid.UUID
		employmentID uuid.NullUUID
		rating       sql.NullInt64
	)
	err := row.Scan(&reviewID, &companyID, &workerID, &employmentID, &r.Text, &rating, &r.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan review: %w", err)
	}
	r.ID = id.ReviewID(reviewID)
	r.CompanyID = id.CompanyID(companyID)
	r.WorkerID = id.WorkerID(workerID)
	if employmentID.Valid {
		e := id.EmploymentID(employmentID.UUID)
		r.EmploymentID = &e
	}
	if rating.Valid {
		v := int(rating.Int64)
		r.Rating = &v
	}
	return &r, nil
}

func collectReviews(rows *sql.Rows) ([]models.Review, error) {
	var out []models.Review
	for rows.Next() {
		r, err := scanReview(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate reviews: %w", err)
	}
	return out, nil
}
