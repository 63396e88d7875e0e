package audit

import (
	"context"

	id "github.com/sr13dr31/belyispisok/pkg/domain"
	"github.com/sr13dr31/belyispisok/pkg/requestcontext"
)

// Publisher captures administrative actions. It fills the envelope fields
// from the request context so call sites only name the action and its target.
type Publisher struct {
	store Store
}

func NewPublisher(store Store) *Publisher {
	return &Publisher{store: store}
}

// Emit persists one entry. Actor and timestamp come from the request context
// when not already set on the entry.
func (p *Publisher) Emit(ctx context.Context, entry Entry) error {
	if entry.ID == (id.AuditEntryID{}) {
		entry.ID = id.NewAuditEntryID()
	}
	if entry.ActorID == (id.AdminID{}) {
		entry.ActorID = requestcontext.Admin(ctx)
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = requestcontext.Now(ctx)
	}
	return p.store.Append(ctx, entry)
}

// Record is the common-case shorthand for Emit.
func (p *Publisher) Record(ctx context.Context, action Action, entityType, entityID string, meta map[string]any) error {
	return p.Emit(ctx, Entry{
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		Meta:       meta,
	})
}

func (p *Publisher) ListRecent(ctx context.Context, limit, offset int) ([]Entry, error) {
	return p.store.ListRecent(ctx, limit, offset)
}

func (p *Publisher) ListByEntity(ctx context.Context, entityType, entityID string, limit int) ([]Entry, error) {
	return p.store.ListByEntity(ctx, entityType, entityID, limit)
}
