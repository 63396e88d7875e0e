package service_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sr13dr31/belyispisok/internal/cipher"
	"github.com/sr13dr31/belyispisok/internal/employment/models"
	"github.com/sr13dr31/belyispisok/internal/employment/service"
	employmentstore "github.com/sr13dr31/belyispisok/internal/employment/store/employment"
	identityservice "github.com/sr13dr31/belyispisok/internal/identity/service"
	companystore "github.com/sr13dr31/belyispisok/internal/identity/store/company"
	workerstore "github.com/sr13dr31/belyispisok/internal/identity/store/worker"
	"github.com/sr13dr31/belyispisok/internal/notify"
	id "github.com/sr13dr31/belyispisok/pkg/domain"
	dErrors "github.com/sr13dr31/belyispisok/pkg/domain-errors"
	"github.com/sr13dr31/belyispisok/pkg/platform/tx"
	"github.com/sr13dr31/belyispisok/pkg/requestcontext"
)

type fixture struct {
	svc      *service.Service
	identity *identityservice.Service
	store    *employmentstore.MemoryStore
	notifier *notify.Recorder
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	c, err := cipher.New("test-secret", "")
	require.NoError(t, err)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	identity := identityservice.New(workerstore.NewMemoryStore(), companystore.NewMemoryStore(), c, nil, logger)
	store := employmentstore.NewMemoryStore()
	notifier := notify.NewRecorder()
	svc := service.New(store, identity, identity, tx.NoopRunner{}, notifier, nil, logger)
	return &fixture{svc: svc, identity: identity, store: store, notifier: notifier}
}

func (f *fixture) worker(t *testing.T, owner id.ActorID) id.WorkerID {
	t.Helper()
	w, err := f.identity.RegisterWorker(context.Background(), identityservice.RegisterWorkerInput{
		Owner: owner, FullName: "Иван Петров", Passport: "4509 123456",
	})
	require.NoError(t, err)
	return w.ID
}

func (f *fixture) company(t *testing.T, owner id.ActorID) id.CompanyID {
	t.Helper()
	c, err := f.identity.RegisterCompany(context.Background(), identityservice.RegisterCompanyInput{
		Owner: owner, Name: "ООО Ромашка",
	})
	require.NoError(t, err)
	return c.ID
}

func TestAttachAcceptLocksPassportAndBlocksSecondAttach(t *testing.T) {
	// Scenario: worker links to company C, C accepts, passport locks, and a
	// second attach to company D is refused as already employed.
	f := newFixture(t)
	ctx := context.Background()
	workerID := f.worker(t, 42)
	companyC := f.company(t, 100)
	companyD := f.company(t, 101)

	employment, err := f.svc.RequestAttach(ctx, workerID, companyC, "электрик")
	require.NoError(t, err)
	assert.Equal(t, models.StatusPendingConfirm, employment.Status)
	assert.Len(t, f.notifier.OfKind(notify.KindAttachRequested), 1)

	accepted, err := f.svc.CompanyAccept(ctx, companyC, employment.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusAccepted, accepted.Status)
	require.NotNil(t, accepted.StartedAt)

	worker, err := f.identity.WorkerByID(ctx, workerID)
	require.NoError(t, err)
	assert.True(t, worker.PassportLocked, "accept locks the passport")

	_, err = f.svc.RequestAttach(ctx, workerID, companyD, "электрик")
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeConflict))
}

func TestRequestAttach_SameCompanyTwice(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	workerID := f.worker(t, 42)
	companyID := f.company(t, 100)

	_, err := f.svc.RequestAttach(ctx, workerID, companyID, "")
	require.NoError(t, err)

	_, err = f.svc.RequestAttach(ctx, workerID, companyID, "")
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeConflict))
}

func TestRequestAttach_AllowedAgainAfterEnd(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	workerID := f.worker(t, 42)
	companyID := f.company(t, 100)

	employment, err := f.svc.RequestAttach(ctx, workerID, companyID, "")
	require.NoError(t, err)
	_, err = f.svc.CompanyAccept(ctx, companyID, employment.ID)
	require.NoError(t, err)
	require.NoError(t, f.svc.CompanyEnd(ctx, companyID, employment.ID))

	// Terminal rows no longer count against the invariant.
	_, err = f.svc.RequestAttach(ctx, workerID, companyID, "")
	require.NoError(t, err)
}

func TestCompanyAccept_Idempotence(t *testing.T) {
	f := newFixture(t)
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	ctx := requestcontext.WithTime(context.Background(), now)
	workerID := f.worker(t, 42)
	companyID := f.company(t, 100)

	employment, err := f.svc.RequestAttach(ctx, workerID, companyID, "")
	require.NoError(t, err)
	accepted, err := f.svc.CompanyAccept(ctx, companyID, employment.ID)
	require.NoError(t, err)
	require.NotNil(t, accepted.StartedAt)

	// Second accept reports "already processed" and changes nothing.
	later := requestcontext.WithTime(context.Background(), now.Add(time.Hour))
	_, err = f.svc.CompanyAccept(later, companyID, employment.ID)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeConflict))

	current, err := f.store.FindByID(ctx, employment.ID)
	require.NoError(t, err)
	assert.Equal(t, *accepted.StartedAt, *current.StartedAt, "started-at unchanged")
}

func TestCompanyReject(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	workerID := f.worker(t, 42)
	companyID := f.company(t, 100)

	employment, err := f.svc.RequestAttach(ctx, workerID, companyID, "")
	require.NoError(t, err)
	require.NoError(t, f.svc.CompanyReject(ctx, companyID, employment.ID, "нет вакансий"))

	current, err := f.store.FindByID(ctx, employment.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusRejected, current.Status)

	rejections := f.notifier.OfKind(notify.KindAttachRejected)
	require.Len(t, rejections, 1)
	assert.Equal(t, "нет вакансий", rejections[0].Params["reason"])

	// Rejection is terminal: the worker may request again.
	_, err = f.svc.RequestAttach(ctx, workerID, companyID, "")
	require.NoError(t, err)
}

func TestLeaveFlow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	workerID := f.worker(t, 42)
	companyID := f.company(t, 100)

	employment, err := f.svc.RequestAttach(ctx, workerID, companyID, "")
	require.NoError(t, err)
	_, err = f.svc.CompanyAccept(ctx, companyID, employment.ID)
	require.NoError(t, err)

	requested, err := f.svc.WorkerRequestLeave(ctx, workerID, employment.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusLeaveRequested, requested.Status)
	require.NotNil(t, requested.LeaveRequestedAt)

	// Re-requesting is a no-op that re-returns the current row.
	again, err := f.svc.WorkerRequestLeave(ctx, workerID, employment.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusLeaveRequested, again.Status)
	assert.Len(t, f.notifier.OfKind(notify.KindLeaveRequested), 1, "no duplicate notification")

	require.NoError(t, f.svc.WorkerCancelLeave(ctx, workerID, employment.ID))
	current, err := f.store.FindByID(ctx, employment.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusAccepted, current.Status)
	assert.Nil(t, current.LeaveRequestedAt)

	// Cancelling again fails soft without mutation.
	err = f.svc.WorkerCancelLeave(ctx, workerID, employment.ID)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeConflict))
}

func TestCompanyConfirmLeave(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	workerID := f.worker(t, 42)
	companyID := f.company(t, 100)

	employment, err := f.svc.RequestAttach(ctx, workerID, companyID, "")
	require.NoError(t, err)
	_, err = f.svc.CompanyAccept(ctx, companyID, employment.ID)
	require.NoError(t, err)
	_, err = f.svc.WorkerRequestLeave(ctx, workerID, employment.ID)
	require.NoError(t, err)

	require.NoError(t, f.svc.CompanyConfirmLeave(ctx, companyID, employment.ID))
	current, err := f.store.FindByID(ctx, employment.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusEnded, current.Status)
	require.NotNil(t, current.EndedAt)
}

func TestOwnershipMismatchLooksLikeNotFound(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	workerID := f.worker(t, 42)
	companyID := f.company(t, 100)
	otherCompany := f.company(t, 101)

	employment, err := f.svc.RequestAttach(ctx, workerID, companyID, "")
	require.NoError(t, err)

	_, err = f.svc.CompanyAccept(ctx, otherCompany, employment.ID)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound), "no existence leakage across tenants")

	current, err := f.store.FindByID(ctx, employment.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPendingConfirm, current.Status)
}

func TestAutoCloseLeaveRequests(t *testing.T) {
	// Scenario: worker requests leave at T, the company stays silent, and at
	// T+2d the sweep ends the employment and notifies both parties.
	f := newFixture(t)
	start := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	ctx := requestcontext.WithTime(context.Background(), start)
	workerID := f.worker(t, 42)
	companyID := f.company(t, 100)

	employment, err := f.svc.RequestAttach(ctx, workerID, companyID, "")
	require.NoError(t, err)
	_, err = f.svc.CompanyAccept(ctx, companyID, employment.ID)
	require.NoError(t, err)
	_, err = f.svc.WorkerRequestLeave(ctx, workerID, employment.ID)
	require.NoError(t, err)

	// One hour short of the timeout: nothing happens.
	early := requestcontext.WithTime(context.Background(), start.Add(47*time.Hour))
	closed, err := f.svc.AutoCloseLeaveRequests(early)
	require.NoError(t, err)
	assert.Empty(t, closed)

	// At the timeout the employment ends and both parties hear about it.
	due := requestcontext.WithTime(context.Background(), start.Add(48*time.Hour))
	closed, err = f.svc.AutoCloseLeaveRequests(due)
	require.NoError(t, err)
	require.Len(t, closed, 1)
	assert.Equal(t, "Иван Петров", closed[0].WorkerName)
	assert.Equal(t, "ООО Ромашка", closed[0].CompanyName)

	current, err := f.store.FindByID(ctx, employment.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusEnded, current.Status)

	notices := f.notifier.OfKind(notify.KindLeaveAutoClosed)
	require.Len(t, notices, 2)
	recipients := []id.ActorID{notices[0].Recipient, notices[1].Recipient}
	assert.ElementsMatch(t, []id.ActorID{42, 100}, recipients)

	// Re-running the sweep is a no-op.
	closed, err = f.svc.AutoCloseLeaveRequests(due)
	require.NoError(t, err)
	assert.Empty(t, closed)
}

func TestListings(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	companyID := f.company(t, 100)

	first := f.worker(t, 42)
	second := f.worker(t, 43)

	e1, err := f.svc.RequestAttach(ctx, first, companyID, "электрик")
	require.NoError(t, err)
	_, err = f.svc.RequestAttach(ctx, second, companyID, "маляр")
	require.NoError(t, err)

	pending, err := f.svc.PendingByCompany(ctx, companyID, 10, 0)
	require.NoError(t, err)
	assert.Len(t, pending, 2)

	count, err := f.svc.CountPendingByCompany(ctx, companyID)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	_, err = f.svc.CompanyAccept(ctx, companyID, e1.ID)
	require.NoError(t, err)

	roster, err := f.svc.RosterByCompany(ctx, companyID, 10, 0)
	require.NoError(t, err)
	require.Len(t, roster, 1)
	assert.Equal(t, e1.ID, roster[0].ID)

	history, err := f.svc.HistoryByWorker(ctx, first)
	require.NoError(t, err)
	assert.Len(t, history, 1)

	open, err := f.svc.OpenByWorker(ctx, first)
	require.NoError(t, err)
	assert.Equal(t, e1.ID, open.ID)
}
