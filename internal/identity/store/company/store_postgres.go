package company

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

const companyColumns = `id, owner_id, name, city, responsible_phone, public_id, blocked, kyc_status, subscription_level, subscription_until, created_at`

// PostgresStore persists company rows.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Create(ctx context.Context, company *models.Company) error {
	query := `
		INSERT INTO companies (` + companyColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err := tx.Q(ctx, s.db).ExecContext(ctx, query,
		uuid.UUID(company.ID), int64(company.OwnerID), company.Name, company.City,
		company.ResponsiblePhone, string(company.PublicID), company.Blocked,
		string(company.KYCStatus), company.SubscriptionLevel, company.SubscriptionUntil,
		company.CreatedAt)
	if err != nil {
		if postgres.IsUniqueViolation(err) {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert company: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, companyID id.CompanyID) (*models.Company, error) {
	return s.findBy(ctx, "id = $1", uuid.UUID(companyID))
}

func (s *PostgresStore) FindByOwner(ctx context.Context, owner id.ActorID) (*models.Company, error) {
	return s.findBy(ctx, "owner_id = $1", int64(owner))
}

func (s *PostgresStore) FindByPublicID(ctx context.Context, publicID id.PublicID) (*models.Company, error) {
	return s.findBy(ctx, "public_id = $1", string(publicID))
}

func (s *PostgresStore) Update(ctx context.Context, company *models.Company) error {
	query := `
		UPDATE companies
		SET name = $2, city = $3, responsible_phone = $4
		WHERE id = $1
	`
	res, err := tx.Q(ctx, s.db).ExecContext(ctx, query,
		uuid.UUID(company.ID), company.Name, company.City, company.ResponsiblePhone)
	if err != nil {
		return fmt.Errorf("update company: %w", err)
	}
	return postgres.RequireRow(res)
}

func (s *PostgresStore) SetBlocked(ctx context.Context, companyID id.CompanyID, blocked bool) error {
	return s.set(ctx, companyID, "blocked = $2", blocked)
}

func (s *PostgresStore) SetKYCStatus(ctx context.Context, companyID id.CompanyID, status models.KYCStatus) error {
	return s.set(ctx, companyID, "kyc_status = $2", string(status))
}

func (s *PostgresStore) SetSubscription(ctx context.Context, companyID id.CompanyID, level string, until *time.Time) error {
	query := `
		UPDATE companies
		SET subscription_level = $2, subscription_until = $3
		WHERE id = $1
	`
	res, err := tx.Q(ctx, s.db).ExecContext(ctx, query, uuid.UUID(companyID), level, until)
	if err != nil {
		return fmt.Errorf("update company subscription: %w", err)
	}
	return postgres.RequireRow(res)
}

func (s *PostgresStore) List(ctx context.Context, filter service.ListFilter) ([]models.Company, error) {
	query := `
		SELECT ` + companyColumns + `
		FROM companies
		WHERE ($1 = '' OR name ILIKE '%' || $1 || '%' OR public_id ILIKE '%' || $1 || '%')
		ORDER BY created_at DESC, id
		LIMIT $2 OFFSET $3
	`
	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	rows, err := tx.Q(ctx, s.db).QueryContext(ctx, query, filter.Search, limit, filter.Offset)
	if err != nil {
		return nil, fmt.Errorf("list companies: %w", err)
	}
	defer rows.Close()

	var out []models.Company
	for rows.Next() {
		c, err := scanCompany(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate companies: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) Count(ctx context.Context) (int, error) {
	var count int
	err := tx.Q(ctx, s.db).QueryRowContext(ctx, `SELECT COUNT(*) FROM companies`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count companies: %w", err)
	}
	return count, nil
}

func (s *PostgresStore) CountCreatedSince(ctx context.Context, since time.Time) (int, error) {
	var count int
	err := tx.Q(ctx, s.db).QueryRowContext(ctx,
		`SELECT COUNT(*) FROM companies WHERE created_at >= $1`, since).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count companies since: %w", err)
	}
	return count, nil
}

func (s *PostgresStore) CountActiveSubscriptions(ctx context.Context, now time.Time) (int, error) {
	var count int
	err := tx.Q(ctx, s.db).QueryRowContext(ctx,
		`SELECT COUNT(*) FROM companies WHERE NOT blocked AND subscription_until > $1`, now).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count active subscriptions: %w", err)
	}
	return count, nil
}

func (s *PostgresStore) CountLapsedSubscriptions(ctx context.Context, now time.Time) (int, error) {
	var count int
	err := tx.Q(ctx, s.db).QueryRowContext(ctx,
		`SELECT COUNT(*) FROM companies WHERE subscription_until IS NOT NULL AND subscription_until <= $1`, now).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count lapsed subscriptions: %w", err)
	}
	return count, nil
}

func (s *PostgresStore) PublicIDTaken(ctx context.Context, publicID id.PublicID) (bool, error) {
	var taken bool
	err := tx.Q(ctx, s.db).QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM companies WHERE public_id = $1)`, string(publicID)).Scan(&taken)
	if err != nil {
		return false, fmt.Errorf("check company public id: %w", err)
	}
	return taken, nil
}

func (s *PostgresStore) findBy(ctx context.Context, where string, arg any) (*models.Company, error) {
	query := `SELECT ` + companyColumns + ` FROM companies WHERE ` + where
	row := tx.Q(ctx, s.db).QueryRowContext(ctx, query, arg)
	c, err := scanCompany(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, err
	}
	return c, nil
}

func (s *PostgresStore) set(ctx context.Context, companyID id.CompanyID, assignment string, value any) error {
	query := `UPDATE companies SET ` + assignment + ` WHERE id = $1`
	res, err := tx.Q(ctx, s.db).ExecContext(ctx, query, uuid.UUID(companyID), value)
	if err != nil {
		return fmt.Errorf("update company field: %w", err)
	}
	return postgres.RequireRow(res)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCompany(row rowScanner) (*models.Company, error) {
	var (
		c         models.Company
		companyID uuid.UUID
		owner     int64
		publicID  string
		kyc       string
		until     sql.NullTime
	)
	err := row.Scan(&companyID, &owner, &c.Name, &c.City, &c.ResponsiblePhone,
		&publicID, &c.Blocked, &kyc, &c.SubscriptionLevel, &until, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan company: %w", err)
	}
	c.ID = id.CompanyID(companyID)
	c.OwnerID = id.ActorID(owner)
	c.PublicID = id.PublicID(publicID)
	c.KYCStatus = models.KYCStatus(kyc)
	if until.Valid {
		u := until.Time
		c.SubscriptionUntil = &u
	}
	return &c, nil
}
