package service

import (
	"context"
	"errors"

	"github.com/sr13dr31/belyispisok/internal/appeal/models"
	"github.com/sr13dr31/belyispisok/internal/notify"
	dErrors "github.com/sr13dr31/belyispisok/pkg/domain-errors"
	"github.com/sr13dr31/belyispisok/pkg/platform/sentinel"
	"github.com/sr13dr31/belyispisok/pkg/requestcontext"
)

// MaintenanceResult summarizes one sweep over silent companies.
type MaintenanceResult struct {
	RemindersSent int
	AutoRemoved   int
}

// RunMaintenance walks every appeal still awaiting a company response and
// applies the two-stage timeout: a single reminder once the appeal is three
// days old, removal of the disputed review at five. Both markers are
// conditional updates, so overlapping sweeps cannot double-fire.
func (s *Service) RunMaintenance(ctx context.Context) (MaintenanceResult, error) {
	var result MaintenanceResult

	pending, err := s.store.ListPendingCompanyResponse(ctx)
	if err != nil {
		return result, dErrors.Wrap(err, dErrors.CodeInternal, "list pending appeals")
	}

	now := requestcontext.Now(ctx)
	for _, appeal := range pending {
		age := now.Sub(appeal.CreatedAt)
		switch {
		case age >= autoRemoveAfter:
			if s.autoRemove(ctx, appeal) {
				result.AutoRemoved++
			}
		case age >= reminderAfter && appeal.ReminderSentAt == nil:
			if s.remind(ctx, appeal) {
				result.RemindersSent++
			}
		}
	}

	if result.RemindersSent > 0 || result.AutoRemoved > 0 {
		s.logger.Info("appeal maintenance sweep",
			"reminders_sent", result.RemindersSent, "auto_removed", result.AutoRemoved)
	}
	return result, nil
}

func (s *Service) remind(ctx context.Context, appeal models.Appeal) bool {
	err := s.store.MarkReminderSent(ctx, appeal.ID, requestcontext.Now(ctx))
	if err != nil {
		if !errors.Is(err, sentinel.ErrInvalidState) {
			s.logger.Error("mark appeal reminder failed", "appeal_id", appeal.ID, "error", err)
		}
		return false
	}
	s.metrics.IncAppealReminders()
	s.notifyCompany(ctx, appeal.CompanyID, notify.KindAppealReminder, map[string]string{
		"appeal_id": appeal.ID.String(),
	})
	return true
}

func (s *Service) autoRemove(ctx context.Context, appeal models.Appeal) bool {
	err := s.store.AutoRemove(ctx, appeal.ID, requestcontext.Now(ctx))
	if err != nil {
		if !errors.Is(err, sentinel.ErrInvalidState) {
			s.logger.Error("auto-remove appeal failed", "appeal_id", appeal.ID, "error", err)
		}
		return false
	}

	if err := s.reviews.DeleteReview(ctx, appeal.ReviewID); err != nil && !dErrors.HasCode(err, dErrors.CodeNotFound) {
		s.logger.Error("review deletion on appeal timeout failed",
			"appeal_id", appeal.ID, "review_id", appeal.ReviewID, "error", err)
	}

	s.metrics.IncAppealsAutoRemoved()
	s.logger.Info("appeal auto-removed for company silence", "appeal_id", appeal.ID, "review_id", appeal.ReviewID)
	params := map[string]string{"appeal_id": appeal.ID.String()}
	s.notifyWorker(ctx, appeal.WorkerID, notify.KindAppealAutoRemoved, params)
	s.notifyCompany(ctx, appeal.CompanyID, notify.KindAppealAutoRemoved, params)
	return true
}
