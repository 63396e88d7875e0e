package service

import (
	"context"

	"github.com/sr13dr31/belyispisok/internal/employment/models"
	"github.com/sr13dr31/belyispisok/internal/notify"
	id "github.com/sr13dr31/belyispisok/pkg/domain"
	dErrors "github.com/sr13dr31/belyispisok/pkg/domain-errors"
	"github.com/sr13dr31/belyispisok/pkg/requestcontext"
)

// ClosedLeave is one auto-closed employment with the display data both
// parties need in their notification.
type ClosedLeave struct {
	Employment      models.Employment
	WorkerName      string
	WorkerPublicID  id.PublicID
	CompanyName     string
	CompanyPublicID id.PublicID
}

// AutoCloseLeaveRequests ends every employment whose leave request the
// company has ignored for two days, and notifies both parties. Idempotent:
// each run only picks up rows still in leave_requested past the cutoff.
func (s *Service) AutoCloseLeaveRequests(ctx context.Context) ([]ClosedLeave, error) {
	now := requestcontext.Now(ctx)
	cutoff := now.Add(-leaveAutoCloseAfter)

	closed, err := s.store.CloseStaleLeave(ctx, cutoff, now)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "close stale leave requests")
	}
	if len(closed) == 0 {
		return nil, nil
	}

	s.metrics.AddLeaveAutoClosed(len(closed))
	out := make([]ClosedLeave, 0, len(closed))
	for _, employment := range closed {
		item := ClosedLeave{Employment: employment}

		worker, err := s.workers.WorkerByID(ctx, employment.WorkerID)
		if err != nil {
			s.logger.Warn("auto-close worker lookup failed", "employment_id", employment.ID, "error", err)
		} else {
			item.WorkerName = worker.FullName
			item.WorkerPublicID = worker.PublicID
		}
		company, err := s.companies.CompanyByID(ctx, employment.CompanyID)
		if err != nil {
			s.logger.Warn("auto-close company lookup failed", "employment_id", employment.ID, "error", err)
		} else {
			item.CompanyName = company.Name
			item.CompanyPublicID = company.PublicID
		}

		params := map[string]string{
			"worker_name":  item.WorkerName,
			"company_name": item.CompanyName,
		}
		if worker != nil {
			s.send(ctx, notify.Message{Recipient: worker.OwnerID, Kind: notify.KindLeaveAutoClosed, Params: params})
		}
		if company != nil {
			s.send(ctx, notify.Message{Recipient: company.OwnerID, Kind: notify.KindLeaveAutoClosed, Params: params})
		}

		s.logger.Info("leave request auto-closed", "employment_id", employment.ID)
		out = append(out, item)
	}
	return out, nil
}
