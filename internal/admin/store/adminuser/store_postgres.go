package adminuser

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/sr13dr31/belyispisok/internal/admin/models"
	"github.com/sr13dr31/belyispisok/internal/platform/postgres"
	id "github.com/sr13dr31/belyispisok/pkg/domain"
	"github.com/sr13dr31/belyispisok/pkg/platform/sentinel"
	"github.com/sr13dr31/belyispisok/pkg/platform/tx"
)

const adminColumns = `id, username, password_hash, role, active, created_at`

// PostgresStore persists administrator accounts.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Create(ctx context.Context, user *models.AdminUser) error {
	query := `
		INSERT INTO admin_users (` + adminColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := tx.Q(ctx, s.db).ExecContext(ctx, query,
		uuid.UUID(user.ID), user.Username, user.PasswordHash,
		string(user.Role), user.Active, user.CreatedAt)
	if err != nil {
		if postgres.IsUniqueViolation(err) {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert admin user: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, adminID id.AdminID) (*models.AdminUser, error) {
	query := `SELECT ` + adminColumns + ` FROM admin_users WHERE id = $1`
	return s.findOne(ctx, query, uuid.UUID(adminID))
}

func (s *PostgresStore) FindByUsername(ctx context.Context, username string) (*models.AdminUser, error) {
	query := `SELECT ` + adminColumns + ` FROM admin_users WHERE username = $1`
	return s.findOne(ctx, query, username)
}

func (s *PostgresStore) findOne(ctx context.Context, query string, arg any) (*models.AdminUser, error) {
	var (
		user    models.AdminUser
		adminID uuid.UUID
		role    string
	)
	err := tx.Q(ctx, s.db).QueryRowContext(ctx, query, arg).Scan(
		&adminID, &user.Username, &user.PasswordHash, &role, &user.Active, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("scan admin user: %w", err)
	}
	user.ID = id.AdminID(adminID)
	user.Role = models.Role(role)
	return &user, nil
}

func (s *PostgresStore) SetActive(ctx context.Context, adminID id.AdminID, active bool) error {
	res, err := tx.Q(ctx, s.db).ExecContext(ctx,
		`UPDATE admin_users SET active = $2 WHERE id = $1`, uuid.UUID(adminID), active)
	if err != nil {
		return fmt.Errorf("set admin active: %w", err)
	}
	return postgres.RequireRow(res)
}

func (s *PostgresStore) List(ctx context.Context) ([]models.AdminUser, error) {
	query := `SELECT ` + adminColumns + ` FROM admin_users ORDER BY username`
	rows, err := tx.Q(ctx, s.db).QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list admin users: %w", err)
	}
	defer rows.Close()

	var out []models.AdminUser
	for rows.Next() {
		var (
			user    models.AdminUser
			adminID uuid.UUID
			role    string
		)
		if err := rows.Scan(&adminID, &user.Username, &user.PasswordHash, &role, &user.Active, &user.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan admin user: %w", err)
		}
		user.ID = id.AdminID(adminID)
		user.Role = models.Role(role)
		out = append(out, user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate admin users: %w", err)
	}
	return out, nil
}
