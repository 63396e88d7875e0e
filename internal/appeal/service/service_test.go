package service_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sr13dr31/belyispisok/internal/appeal/models"
	"github.com/sr13dr31/belyispisok/internal/appeal/service"
	appealstore "github.com/sr13dr31/belyispisok/internal/appeal/store/appeal"
	"github.com/sr13dr31/belyispisok/internal/cipher"
	employmentservice "github.com/sr13dr31/belyispisok/internal/employment/service"
	employmentstore "github.com/sr13dr31/belyispisok/internal/employment/store/employment"
	identityservice "github.com/sr13dr31/belyispisok/internal/identity/service"
	companystore "github.com/sr13dr31/belyispisok/internal/identity/store/company"
	workerstore "github.com/sr13dr31/belyispisok/internal/identity/store/worker"
	"github.com/sr13dr31/belyispisok/internal/notify"
	reviewservice "github.com/sr13dr31/belyispisok/internal/review/service"
	reviewstore "github.com/sr13dr31/belyispisok/internal/review/store/review"
	id "github.com/sr13dr31/belyispisok/pkg/domain"
	dErrors "github.com/sr13dr31/belyispisok/pkg/domain-errors"
	"github.com/sr13dr31/belyispisok/pkg/platform/tx"
	"github.com/sr13dr31/belyispisok/pkg/requestcontext"
)

const adminActor id.ActorID = 900

type fixture struct {
	svc       *service.Service
	reviews   *reviewservice.Service
	notifier  *notify.Recorder
	workerID  id.WorkerID
	companyID id.CompanyID
}

// newFixture sets up a worker employed by a company, ready to receive and
// dispute reviews.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	c, err := cipher.New("test-secret", "")
	require.NoError(t, err)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	notifier := notify.NewRecorder()

	identity := identityservice.New(workerstore.NewMemoryStore(), companystore.NewMemoryStore(), c, nil, logger)
	employments := employmentservice.New(employmentstore.NewMemoryStore(), identity, identity, tx.NoopRunner{}, notifier, nil, logger)
	reviews := reviewservice.New(reviewstore.NewMemoryStore(), employments, identity, notifier, nil, logger)
	svc := service.New(appealstore.NewMemoryStore(), reviews, identity, identity,
		tx.NoopRunner{}, notifier, []id.ActorID{adminActor}, nil, logger)

	worker, err := identity.RegisterWorker(ctx, identityservice.RegisterWorkerInput{Owner: 42, FullName: "Иван Петров"})
	require.NoError(t, err)
	company, err := identity.RegisterCompany(ctx, identityservice.RegisterCompanyInput{Owner: 100, Name: "ООО Ромашка"})
	require.NoError(t, err)

	employment, err := employments.RequestAttach(ctx, worker.ID, company.ID, "")
	require.NoError(t, err)
	_, err = employments.CompanyAccept(ctx, company.ID, employment.ID)
	require.NoError(t, err)

	return &fixture{svc: svc, reviews: reviews, notifier: notifier, workerID: worker.ID, companyID: company.ID}
}

func (f *fixture) review(t *testing.T, ctx context.Context) id.ReviewID {
	t.Helper()
	rating := 2
	review, err := f.reviews.CreateReview(ctx, reviewservice.CreateReviewInput{
		CompanyID: f.companyID, WorkerID: f.workerID, Text: "опаздывает", Rating: &rating,
	})
	require.NoError(t, err)
	return review.ID
}

func at(base time.Time, d time.Duration) context.Context {
	return requestcontext.WithTime(context.Background(), base.Add(d))
}

func TestAppealLifecycle(t *testing.T) {
	// Scenario: worker disputes a review, the company answers, the
	// administrator deletes the review. The appeal row survives as the trail.
	f := newFixture(t)
	ctx := context.Background()
	reviewID := f.review(t, ctx)

	appeal, err := f.svc.FileAppeal(ctx, service.FileAppealInput{
		ReviewID: reviewID, WorkerID: f.workerID,
		Reason:       "отзыв не соответствует действительности",
		EvidenceRefs: []string{"doc-1", "doc-2"},
	})
	require.NoError(t, err)
	assert.Equal(t, models.StatusPendingCompanyResponse, appeal.Status)
	assert.Equal(t, 1, appeal.AttemptsCount)

	// Company and every administrator hear about the filing.
	filed := f.notifier.OfKind(notify.KindAppealFiled)
	require.Len(t, filed, 2)
	recipients := []id.ActorID{filed[0].Recipient, filed[1].Recipient}
	assert.ElementsMatch(t, []id.ActorID{100, adminActor}, recipients)

	responded, err := f.svc.CompanyRespond(ctx, f.companyID, appeal.ID, "работник действительно опаздывал", "photo-1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusPendingAdminReview, responded.Status)
	assert.Equal(t, "работник действительно опаздывал", responded.CompanyComment)

	decided, err := f.svc.AdminDecide(ctx, appeal.ID, models.DecisionDelete, "доказательства работника убедительны")
	require.NoError(t, err)
	assert.Equal(t, models.StatusDeletedReview, decided.Status)
	require.NotNil(t, decided.FinalDecisionAt)

	_, err = f.reviews.ReviewByID(ctx, reviewID)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound), "delete verdict removes the review")

	verdicts := f.notifier.OfKind(notify.KindAppealDecided)
	assert.Len(t, verdicts, 2, "both parties hear the verdict")
}

func TestAdminDecide_Keep(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	reviewID := f.review(t, ctx)

	appeal, err := f.svc.FileAppeal(ctx, service.FileAppealInput{
		ReviewID: reviewID, WorkerID: f.workerID, Reason: "несправедливо",
	})
	require.NoError(t, err)

	// Keep works straight from pending_company_response too.
	decided, err := f.svc.AdminDecide(ctx, appeal.ID, models.DecisionKeep, "отзыв корректен")
	require.NoError(t, err)
	assert.Equal(t, models.StatusKeptReview, decided.Status)

	_, err = f.reviews.ReviewByID(ctx, reviewID)
	require.NoError(t, err, "keep verdict leaves the review in place")

	_, err = f.svc.AdminDecide(ctx, appeal.ID, models.DecisionDelete, "")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeConflict), "resolved appeals are immutable")
}

func TestFileAppeal_WindowBoundary(t *testing.T) {
	f := newFixture(t)
	filed := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	reviewID := f.review(t, requestcontext.WithTime(context.Background(), filed))

	// One second past fourteen days: closed.
	_, err := f.svc.FileAppeal(at(filed, 14*24*time.Hour+time.Second), service.FileAppealInput{
		ReviewID: reviewID, WorkerID: f.workerID, Reason: "поздно",
	})
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))

	// Exactly fourteen days: still open.
	appeal, err := f.svc.FileAppeal(at(filed, 14*24*time.Hour), service.FileAppealInput{
		ReviewID: reviewID, WorkerID: f.workerID, Reason: "успел",
	})
	require.NoError(t, err)
	assert.Equal(t, models.StatusPendingCompanyResponse, appeal.Status)
}

func TestFileAppeal_SingleActivePerReview(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	reviewID := f.review(t, ctx)

	_, err := f.svc.FileAppeal(ctx, service.FileAppealInput{
		ReviewID: reviewID, WorkerID: f.workerID, Reason: "первая",
	})
	require.NoError(t, err)

	_, err = f.svc.FileAppeal(ctx, service.FileAppealInput{
		ReviewID: reviewID, WorkerID: f.workerID, Reason: "вторая",
	})
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeConflict))
}

func TestFileAppeal_AttemptsCap(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	reviewID := f.review(t, ctx)

	for attempt := 1; attempt <= models.MaxAttempts; attempt++ {
		appeal, err := f.svc.FileAppeal(ctx, service.FileAppealInput{
			ReviewID: reviewID, WorkerID: f.workerID, Reason: "несогласен",
		})
		require.NoError(t, err)
		assert.Equal(t, attempt, appeal.AttemptsCount)
		// Resolve so the next filing is not blocked by the active-appeal rule.
		_, err = f.svc.AdminDecide(ctx, appeal.ID, models.DecisionKeep, "")
		require.NoError(t, err)
	}

	_, err := f.svc.FileAppeal(ctx, service.FileAppealInput{
		ReviewID: reviewID, WorkerID: f.workerID, Reason: "четвёртая попытка",
	})
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeConflict), "lifetime cap holds across resolved appeals")
}

func TestFileAppeal_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	reviewID := f.review(t, ctx)

	_, err := f.svc.FileAppeal(ctx, service.FileAppealInput{
		ReviewID: reviewID, WorkerID: f.workerID, Reason: "   ",
	})
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))

	_, err = f.svc.FileAppeal(ctx, service.FileAppealInput{
		ReviewID: reviewID, WorkerID: f.workerID, Reason: "много файлов",
		EvidenceRefs: []string{"1", "2", "3", "4", "5", "6"},
	})
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
}

func TestFileAppeal_SomeoneElsesReview(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	reviewID := f.review(t, ctx)

	_, err := f.svc.FileAppeal(ctx, service.FileAppealInput{
		ReviewID: reviewID, WorkerID: id.NewWorkerID(), Reason: "чужой отзыв",
	})
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound), "no existence leakage")
}

func TestCompanyRespond_OwnershipMismatch(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	reviewID := f.review(t, ctx)

	appeal, err := f.svc.FileAppeal(ctx, service.FileAppealInput{
		ReviewID: reviewID, WorkerID: f.workerID, Reason: "несогласен",
	})
	require.NoError(t, err)

	_, err = f.svc.CompanyRespond(ctx, id.NewCompanyID(), appeal.ID, "не наш спор", "")
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
}

func TestMaintenance_ReminderFiresOnce(t *testing.T) {
	f := newFixture(t)
	start := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	ctx := requestcontext.WithTime(context.Background(), start)
	reviewID := f.review(t, ctx)

	_, err := f.svc.FileAppeal(ctx, service.FileAppealInput{
		ReviewID: reviewID, WorkerID: f.workerID, Reason: "несогласен",
	})
	require.NoError(t, err)

	// An hour short of three days: silence.
	result, err := f.svc.RunMaintenance(at(start, 71*time.Hour))
	require.NoError(t, err)
	assert.Zero(t, result.RemindersSent)
	assert.Empty(t, f.notifier.OfKind(notify.KindAppealReminder))

	// At three days the company gets its one reminder.
	result, err = f.svc.RunMaintenance(at(start, 72*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, result.RemindersSent)

	// Re-running never reminds twice.
	result, err = f.svc.RunMaintenance(at(start, 96*time.Hour))
	require.NoError(t, err)
	assert.Zero(t, result.RemindersSent)
	assert.Len(t, f.notifier.OfKind(notify.KindAppealReminder), 1)
}

func TestMaintenance_AutoRemoveAtFiveDays(t *testing.T) {
	// Scenario: the company ignores the appeal entirely. At five days the
	// review disappears and the appeal resolves in the worker's favor.
	f := newFixture(t)
	start := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	ctx := requestcontext.WithTime(context.Background(), start)
	reviewID := f.review(t, ctx)

	appeal, err := f.svc.FileAppeal(ctx, service.FileAppealInput{
		ReviewID: reviewID, WorkerID: f.workerID, Reason: "несогласен",
	})
	require.NoError(t, err)

	result, err := f.svc.RunMaintenance(at(start, 5*24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, result.AutoRemoved)

	resolved, err := f.svc.AppealByID(context.Background(), appeal.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusAutoRemovedReview, resolved.Status)
	require.NotNil(t, resolved.FinalDecisionAt)

	_, err = f.reviews.ReviewByID(context.Background(), reviewID)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound), "silence costs the company the review")

	notices := f.notifier.OfKind(notify.KindAppealAutoRemoved)
	require.Len(t, notices, 2)
	recipients := []id.ActorID{notices[0].Recipient, notices[1].Recipient}
	assert.ElementsMatch(t, []id.ActorID{42, 100}, recipients)

	// Re-running finds nothing left to do.
	result, err = f.svc.RunMaintenance(at(start, 6*24*time.Hour))
	require.NoError(t, err)
	assert.Zero(t, result.AutoRemoved)
}

func TestMaintenance_CompanyResponseStopsTheClock(t *testing.T) {
	f := newFixture(t)
	start := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	ctx := requestcontext.WithTime(context.Background(), start)
	reviewID := f.review(t, ctx)

	appeal, err := f.svc.FileAppeal(ctx, service.FileAppealInput{
		ReviewID: reviewID, WorkerID: f.workerID, Reason: "несогласен",
	})
	require.NoError(t, err)
	_, err = f.svc.CompanyRespond(ctx, f.companyID, appeal.ID, "наш ответ", "")
	require.NoError(t, err)

	result, err := f.svc.RunMaintenance(at(start, 10*24*time.Hour))
	require.NoError(t, err)
	assert.Zero(t, result.AutoRemoved)
	assert.Zero(t, result.RemindersSent)

	_, err = f.reviews.ReviewByID(context.Background(), reviewID)
	require.NoError(t, err, "answered appeals never time out")
}

func TestAdminComment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	reviewID := f.review(t, ctx)

	appeal, err := f.svc.FileAppeal(ctx, service.FileAppealInput{
		ReviewID: reviewID, WorkerID: f.workerID, Reason: "несогласен",
	})
	require.NoError(t, err)

	require.NoError(t, f.svc.AdminComment(ctx, appeal.ID, "приложите договор"))

	current, err := f.svc.AppealByID(ctx, appeal.ID)
	require.NoError(t, err)
	assert.Equal(t, "приложите договор", current.AdminComment)
	assert.Equal(t, models.StatusPendingCompanyResponse, current.Status, "comment does not advance the status")

	notices := f.notifier.OfKind(notify.KindAppealComment)
	assert.Len(t, notices, 2)
}

func TestAdminComment_OnResolvedAppeal(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	reviewID := f.review(t, ctx)

	appeal, err := f.svc.FileAppeal(ctx, service.FileAppealInput{
		ReviewID: reviewID, WorkerID: f.workerID, Reason: "несогласен",
	})
	require.NoError(t, err)
	_, err = f.svc.AdminDecide(ctx, appeal.ID, models.DecisionKeep, "отзыв корректен")
	require.NoError(t, err)

	// A note stays attachable after the verdict and changes nothing else.
	require.NoError(t, f.svc.AdminComment(ctx, appeal.ID, "жалоба рассмотрена повторно"))

	current, err := f.svc.AppealByID(ctx, appeal.ID)
	require.NoError(t, err)
	assert.Equal(t, "жалоба рассмотрена повторно", current.AdminComment)
	assert.Equal(t, models.StatusKeptReview, current.Status)
	require.NotNil(t, current.FinalDecisionAt, "the verdict timestamp survives")

	notices := f.notifier.OfKind(notify.KindAppealComment)
	assert.Len(t, notices, 2, "both parties still hear about the note")
}

func TestListings(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	reviewID := f.review(t, ctx)

	appeal, err := f.svc.FileAppeal(ctx, service.FileAppealInput{
		ReviewID: reviewID, WorkerID: f.workerID, Reason: "несогласен",
	})
	require.NoError(t, err)

	awaiting, err := f.svc.AwaitingCompany(ctx, f.companyID)
	require.NoError(t, err)
	require.Len(t, awaiting, 1)
	assert.Equal(t, appeal.ID, awaiting[0].ID)

	open, err := f.svc.CountOpen(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, open)

	queue, err := f.svc.ByStatus(ctx, models.StatusPendingCompanyResponse, 10, 0)
	require.NoError(t, err)
	assert.Len(t, queue, 1)
}
