package service

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/sr13dr31/belyispisok/internal/appeal/models"
	"github.com/sr13dr31/belyispisok/internal/notify"
	id "github.com/sr13dr31/belyispisok/pkg/domain"
	dErrors "github.com/sr13dr31/belyispisok/pkg/domain-errors"
	"github.com/sr13dr31/belyispisok/pkg/platform/sentinel"
	"github.com/sr13dr31/belyispisok/pkg/requestcontext"
)

// FileAppealInput carries the worker's dispute of a review.
type FileAppealInput struct {
	ReviewID     id.ReviewID
	WorkerID     id.WorkerID
	Reason       string
	EvidenceRefs []string
}

// FileAppeal opens a dispute against a review. Preconditions, checked in
// order: the review exists and targets this worker, it is still inside the
// fourteen-day window, fewer than three attempts have been spent on it, and no
// appeal against it is currently active. The attempt counter and the insert
// run in one transaction so concurrent filings cannot both pass the cap.
func (s *Service) FileAppeal(ctx context.Context, in FileAppealInput) (*models.Appeal, error) {
	in.Reason = strings.TrimSpace(in.Reason)
	if in.Reason == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "appeal reason is required")
	}
	if len(in.EvidenceRefs) > models.MaxEvidenceRefs {
		return nil, dErrors.Newf(dErrors.CodeValidation, "at most %d evidence attachments allowed", models.MaxEvidenceRefs)
	}

	review, err := s.reviews.ReviewByID(ctx, in.ReviewID)
	if err != nil {
		return nil, err
	}
	if review.WorkerID != in.WorkerID {
		// Someone else's review: indistinguishable from a missing one.
		return nil, dErrors.New(dErrors.CodeNotFound, "review not found")
	}

	now := requestcontext.Now(ctx)
	if now.Sub(review.CreatedAt) > appealWindow {
		return nil, dErrors.New(dErrors.CodeValidation, "the appeal window for this review has closed")
	}

	appeal := &models.Appeal{
		ID:           id.NewAppealID(),
		ReviewID:     in.ReviewID,
		WorkerID:     in.WorkerID,
		CompanyID:    review.CompanyID,
		Status:       models.StatusPendingCompanyResponse,
		Reason:       in.Reason,
		EvidenceRefs: in.EvidenceRefs,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	err = s.txRunner.RunInTx(ctx, func(ctx context.Context) error {
		if _, err := s.store.FindActive(ctx, in.ReviewID, in.WorkerID); err == nil {
			return dErrors.New(dErrors.CodeConflict, "an appeal for this review is already in progress")
		} else if !errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.Wrap(err, dErrors.CodeInternal, "check active appeal")
		}

		attempts, err := s.store.MaxAttempts(ctx, in.ReviewID, in.WorkerID)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "count appeal attempts")
		}
		if attempts >= models.MaxAttempts {
			return dErrors.Newf(dErrors.CodeConflict, "the %d appeal attempts for this review are spent", models.MaxAttempts)
		}
		appeal.AttemptsCount = attempts + 1

		if err := s.store.Create(ctx, appeal); err != nil {
			if errors.Is(err, sentinel.ErrConflict) {
				return dErrors.New(dErrors.CodeConflict, "an appeal for this review is already in progress")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "create appeal")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncAppealsFiled()
	s.logger.Info("appeal filed", "appeal_id", appeal.ID, "review_id", in.ReviewID, "attempt", appeal.AttemptsCount)
	params := map[string]string{
		"appeal_id": appeal.ID.String(),
		"reason":    appeal.Reason,
		"attempt":   strconv.Itoa(appeal.AttemptsCount),
	}
	s.notifyCompany(ctx, appeal.CompanyID, notify.KindAppealFiled, params)
	s.broadcastAdmins(ctx, notify.KindAppealFiled, params)
	return appeal, nil
}

// CompanyRespond records the company's side of the dispute and hands the
// appeal to administrators. Only the appealed company may respond, and only
// while the appeal is awaiting it.
func (s *Service) CompanyRespond(ctx context.Context, companyID id.CompanyID, appealID id.AppealID, comment, evidenceRef string) (*models.Appeal, error) {
	appeal, err := s.ownedByCompany(ctx, companyID, appealID)
	if err != nil {
		return nil, err
	}
	comment = strings.TrimSpace(comment)
	if comment == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "a response comment is required")
	}

	if err := s.store.MarkCompanyResponded(ctx, appealID, comment, evidenceRef, requestcontext.Now(ctx)); err != nil {
		return nil, translateAppealErr(err)
	}

	updated, err := s.store.FindByID(ctx, appealID)
	if err != nil {
		return nil, translateAppealErr(err)
	}
	s.logger.Info("appeal answered by company", "appeal_id", appealID)
	params := map[string]string{"appeal_id": appealID.String(), "comment": comment}
	s.notifyWorker(ctx, appeal.WorkerID, notify.KindAppealResponse, params)
	s.broadcastAdmins(ctx, notify.KindAppealResponse, params)
	return updated, nil
}

// AdminDecide closes an appeal with the administrator's verdict. A delete
// verdict removes the disputed review; the appeal row stays as the audit
// trail either way. Works from either pending state, so an appeal the company
// ignored can still be decided before the auto-removal sweep reaches it.
func (s *Service) AdminDecide(ctx context.Context, appealID id.AppealID, decision models.Decision, comment string) (*models.Appeal, error) {
	appeal, err := s.store.FindByID(ctx, appealID)
	if err != nil {
		return nil, translateAppealErr(err)
	}
	if appeal.Status.IsTerminal() {
		return nil, dErrors.New(dErrors.CodeConflict, "appeal is already resolved")
	}

	status := models.StatusKeptReview
	if decision == models.DecisionDelete {
		status = models.StatusDeletedReview
	}

	if err := s.store.Decide(ctx, appealID, status, strings.TrimSpace(comment), requestcontext.Now(ctx)); err != nil {
		return nil, translateAppealErr(err)
	}

	if decision == models.DecisionDelete {
		if err := s.reviews.DeleteReview(ctx, appeal.ReviewID); err != nil && !dErrors.HasCode(err, dErrors.CodeNotFound) {
			s.logger.Error("review deletion after appeal verdict failed", "appeal_id", appealID, "review_id", appeal.ReviewID, "error", err)
		}
	}

	updated, err := s.store.FindByID(ctx, appealID)
	if err != nil {
		return nil, translateAppealErr(err)
	}
	s.logger.Info("appeal decided", "appeal_id", appealID, "decision", decision)
	params := map[string]string{"appeal_id": appealID.String(), "decision": string(decision), "comment": updated.AdminComment}
	s.notifyWorker(ctx, appeal.WorkerID, notify.KindAppealDecided, params)
	s.notifyCompany(ctx, appeal.CompanyID, notify.KindAppealDecided, params)
	return updated, nil
}

// AdminComment attaches a moderator note and tells both parties. Comments are
// allowed in every state, resolved appeals included, and never advance the
// status.
func (s *Service) AdminComment(ctx context.Context, appealID id.AppealID, comment string) error {
	comment = strings.TrimSpace(comment)
	if comment == "" {
		return dErrors.New(dErrors.CodeValidation, "comment is required")
	}
	appeal, err := s.store.FindByID(ctx, appealID)
	if err != nil {
		return translateAppealErr(err)
	}

	if err := s.store.SetAdminComment(ctx, appealID, comment, requestcontext.Now(ctx)); err != nil {
		return translateAppealErr(err)
	}
	s.logger.Info("appeal commented", "appeal_id", appealID)
	params := map[string]string{"appeal_id": appealID.String(), "comment": comment}
	s.notifyWorker(ctx, appeal.WorkerID, notify.KindAppealComment, params)
	s.notifyCompany(ctx, appeal.CompanyID, notify.KindAppealComment, params)
	return nil
}

// ownedByCompany hides appeals belonging to other companies behind NotFound.
func (s *Service) ownedByCompany(ctx context.Context, companyID id.CompanyID, appealID id.AppealID) (*models.Appeal, error) {
	appeal, err := s.store.FindByID(ctx, appealID)
	if err != nil {
		return nil, translateAppealErr(err)
	}
	if appeal.CompanyID != companyID {
		return nil, dErrors.New(dErrors.CodeNotFound, "appeal not found")
	}
	return appeal, nil
}

func translateAppealErr(err error) error {
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "appeal not found")
	case errors.Is(err, sentinel.ErrInvalidState):
		return dErrors.New(dErrors.CodeConflict, "appeal is not awaiting this action")
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, "appeal store")
	}
}
