package entry

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/sr13dr31/belyispisok/internal/audit"
	id "github.com/sr13dr31/belyispisok/pkg/domain"
	"github.com/sr13dr31/belyispisok/pkg/platform/tx"
)

// PostgresStore persists audit entries in the admin_audit_log table.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Append(ctx context.Context, entry audit.Entry) error {
	meta, err := json.Marshal(entry.Meta)
	if err != nil {
		return fmt.Errorf("marshal audit meta: %w", err)
	}
	query := `
		INSERT INTO admin_audit_log (id, actor_id, action, entity_type, entity_id, meta, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	var actor any
	if !entry.ActorID.IsNil() {
		actor = uuid.UUID(entry.ActorID)
	}
	_, err = tx.Q(ctx, s.db).ExecContext(ctx, query,
		uuid.UUID(entry.ID), actor, entry.Action, entry.EntityType, entry.EntityID, meta, entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("append audit entry: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListRecent(ctx context.Context, limit, offset int) ([]audit.Entry, error) {
	query := `
		SELECT id, actor_id, action, entity_type, entity_id, meta, created_at
		FROM admin_audit_log
		ORDER BY created_at DESC, id
		LIMIT $1 OFFSET $2
	`
	rows, err := tx.Q(ctx, s.db).QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list audit entries: %w", err)
	}
	defer rows.Close()
	return scanEntries(rows)
}

func (s *PostgresStore) ListByEntity(ctx context.Context, entityType, entityID string, limit int) ([]audit.Entry, error) {
	query := `
		SELECT id, actor_id, action, entity_type, entity_id, meta, created_at
		FROM admin_audit_log
		WHERE entity_type = $1 AND entity_id = $2
		ORDER BY created_at DESC, id
		LIMIT $3
	`
	rows, err := tx.Q(ctx, s.db).QueryContext(ctx, query, entityType, entityID, limit)
	if err != nil {
		return nil, fmt.Errorf("list audit entries by entity: %w", err)
	}
	defer rows.Close()
	return scanEntries(rows)
}

func scanEntries(rows *sql.Rows) ([]audit.Entry, error) {
	var out []audit.Entry
	for rows.Next() {
		var (
			e       audit.Entry
			entryID uuid.UUID
			actorID uuid.NullUUID
			meta    []byte
		)
		if err := rows.Scan(&entryID, &actorID, &e.Action, &e.EntityType, &e.EntityID, &meta, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}
		e.ID = id.AuditEntryID(entryID)
		if actorID.Valid {
			e.ActorID = id.AdminID(actorID.UUID)
		}
		if len(meta) > 0 {
			if err := json.Unmarshal(meta, &e.Meta); err != nil {
				return nil, fmt.Errorf("unmarshal audit meta: %w", err)
			}
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit entries: %w", err)
	}
	return out, nil
}
