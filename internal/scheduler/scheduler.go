// Package scheduler runs the periodic maintenance sweep: leave-request
// timeouts, appeal reminders and auto-removal, and conversation-state expiry.
package scheduler

import (
	"context"
	"log/slog"
	"time"

	appealservice "github.com/sr13dr31/belyispisok/internal/appeal/service"
	"github.com/sr13dr31/belyispisok/internal/convstate"
	employmentservice "github.com/sr13dr31/belyispisok/internal/employment/service"
	"github.com/sr13dr31/belyispisok/internal/platform/metrics"
	"github.com/sr13dr31/belyispisok/pkg/requestcontext"
)

// Employments is the slice of the employment service the sweep drives.
type Employments interface {
	AutoCloseLeaveRequests(ctx context.Context) ([]employmentservice.ClosedLeave, error)
}

// Appeals is the slice of the appeal service the sweep drives.
type Appeals interface {
	RunMaintenance(ctx context.Context) (appealservice.MaintenanceResult, error)
}

// Worker drives all time-based transitions from a single goroutine, so each
// sweep sees one consistent "now" and the sweeps never race each other.
type Worker struct {
	interval    time.Duration
	employments Employments
	appeals     Appeals
	states      convstate.Store
	metrics     *metrics.Metrics
	logger      *slog.Logger
}

func New(interval time.Duration, employments Employments, appeals Appeals, states convstate.Store, m *metrics.Metrics, logger *slog.Logger) *Worker {
	if interval <= 0 {
		interval = time.Hour
	}
	return &Worker{
		interval:    interval,
		employments: employments,
		appeals:     appeals,
		states:      states,
		metrics:     m,
		logger:      logger,
	}
}

// Run sweeps once immediately, then on every tick until the context ends.
func (w *Worker) Run(ctx context.Context) error {
	w.sweep(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			w.sweep(ctx)
		}
	}
}

// Sweep runs one maintenance pass. Exported for operational triggers.
func (w *Worker) Sweep(ctx context.Context) {
	w.sweep(ctx)
}

func (w *Worker) sweep(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			w.logger.Error("maintenance sweep panicked", "panic", r)
		}
	}()

	now := time.Now()
	ctx = requestcontext.WithTime(ctx, now)

	closed, err := w.employments.AutoCloseLeaveRequests(ctx)
	if err != nil {
		w.logger.Error("auto-close leave requests failed", "error", err)
	} else if len(closed) > 0 {
		w.logger.Info("leave requests auto-closed", "count", len(closed))
	}

	result, err := w.appeals.RunMaintenance(ctx)
	if err != nil {
		w.logger.Error("appeal maintenance failed", "error", err)
	} else if result.RemindersSent > 0 || result.AutoRemoved > 0 {
		w.logger.Info("appeal maintenance done",
			"reminders_sent", result.RemindersSent, "auto_removed", result.AutoRemoved)
	}

	expired, err := w.states.ExpireOlderThan(ctx, now.Add(-convstate.TTL))
	if err != nil {
		w.logger.Error("conversation state expiry failed", "error", err)
	} else if expired > 0 {
		w.metrics.AddStatesExpired(expired)
		w.logger.Info("conversation states expired", "count", expired)
	}
}
