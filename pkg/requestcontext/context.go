// Package requestcontext provides transport-independent context accessors for
// request-scoped values.
//
// Values are set by the HTTP middleware chain or by the conversational
// front-end adapter and consumed by services. Keeping this package free of
// net/http lets domain packages import only what they need.
//
// Usage in services (read values):
//
//	actor := requestcontext.Actor(ctx)
//	now := requestcontext.Now(ctx)
//
// Usage in tests (inject values):
//
//	ctx = requestcontext.WithTime(ctx, fixedTime)
//	ctx = requestcontext.WithActor(ctx, 42)
package requestcontext

import (
	"context"
	"time"

	id "github.com/sr13dr31/belyispisok/pkg/domain"
)

type (
	actorKey       struct{}
	adminKey       struct{}
	requestIDKey   struct{}
	requestTimeKey struct{}
)

// Actor retrieves the acting platform participant from the context.
// Returns the zero ActorID if not set.
func Actor(ctx context.Context) id.ActorID {
	if a, ok := ctx.Value(actorKey{}).(id.ActorID); ok {
		return a
	}
	return 0
}

// WithActor injects the acting participant into the context.
func WithActor(ctx context.Context, actor id.ActorID) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

// Admin retrieves the authenticated administrator from the context.
// Returns the zero AdminID if not set.
func Admin(ctx context.Context) id.AdminID {
	if a, ok := ctx.Value(adminKey{}).(id.AdminID); ok {
		return a
	}
	return id.AdminID{}
}

// WithAdmin injects an authenticated administrator into the context.
func WithAdmin(ctx context.Context, admin id.AdminID) context.Context {
	return context.WithValue(ctx, adminKey{}, admin)
}

// RequestID retrieves the correlation id from the context.
func RequestID(ctx context.Context) string {
	if r, ok := ctx.Value(requestIDKey{}).(string); ok {
		return r
	}
	return ""
}

// WithRequestID injects a correlation id into the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

// Now retrieves the request-scoped time from context.
// Falls back to time.Now() for non-request contexts (workers, CLI).
// All temporal invariants go through this accessor so tests can pin the clock.
func Now(ctx context.Context) time.Time {
	if t, ok := ctx.Value(requestTimeKey{}).(time.Time); ok {
		return t
	}
	return time.Now()
}

// WithTime injects a specific time into a context. Used by the request-time
// middleware, by the maintenance worker to keep one "now" per sweep, and by
// tests that exercise time-driven transitions.
func WithTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, requestTimeKey{}, t)
}
