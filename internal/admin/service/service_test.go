package service_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	adminmodels "github.com/sr13dr31/belyispisok/internal/admin/models"
	"github.com/sr13dr31/belyispisok/internal/admin/service"
	adminuserstore "github.com/sr13dr31/belyispisok/internal/admin/store/adminuser"
	appealservice "github.com/sr13dr31/belyispisok/internal/appeal/service"
	appealstore "github.com/sr13dr31/belyispisok/internal/appeal/store/appeal"
	"github.com/sr13dr31/belyispisok/internal/audit"
	auditstore "github.com/sr13dr31/belyispisok/internal/audit/store/entry"
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

type fixture struct {
	svc      *service.Service
	identity *identityservice.Service
	reviews  *reviewservice.Service
	appeals  *appealservice.Service
	notifier *notify.Recorder
	adminID  id.AdminID
}

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
	appeals := appealservice.New(appealstore.NewMemoryStore(), reviews, identity, identity,
		tx.NoopRunner{}, notifier, nil, nil, logger)
	auditor := audit.NewPublisher(auditstore.NewMemoryStore())

	tokens := service.NewTokenIssuer("signing-secret", "belyispisok")
	svc := service.New(adminuserstore.NewMemoryStore(), identity, employments, reviews, appeals,
		auditor, tx.NoopRunner{}, notifier, tokens, logger)

	// Bootstrap account, the equivalent of the seed migration.
	root, err := svc.CreateAdmin(ctx, service.CreateAdminInput{
		Username: "root", Password: "correct horse", Role: adminmodels.RoleSuperAdmin,
	})
	require.NoError(t, err)

	return &fixture{svc: svc, identity: identity, reviews: reviews, appeals: appeals, notifier: notifier, adminID: root.ID}
}

func (f *fixture) adminCtx() context.Context {
	return requestcontext.WithAdmin(context.Background(), f.adminID)
}

func TestLoginAndVerify(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	token, user, err := f.svc.Login(ctx, "root", "correct horse")
	require.NoError(t, err)
	assert.Equal(t, adminmodels.RoleSuperAdmin, user.Role)

	verified, err := f.svc.VerifyToken(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, verified.ID)

	_, _, err = f.svc.Login(ctx, "root", "wrong password")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))

	_, _, err = f.svc.Login(ctx, "nobody", "correct horse")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized), "unknown user and bad password are indistinguishable")
}

func TestDeactivationKillsLiveTokens(t *testing.T) {
	f := newFixture(t)
	ctx := f.adminCtx()

	moderator, err := f.svc.CreateAdmin(ctx, service.CreateAdminInput{
		Username: "mod", Password: "long enough", Role: adminmodels.RoleModerator,
	})
	require.NoError(t, err)

	token, _, err := f.svc.Login(ctx, "mod", "long enough")
	require.NoError(t, err)

	require.NoError(t, f.svc.DeactivateAdmin(ctx, moderator.ID))

	_, err = f.svc.VerifyToken(ctx, token)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized), "unexpired token dies with the account")
}

func TestDeactivateAdmin_NotYourself(t *testing.T) {
	f := newFixture(t)
	err := f.svc.DeactivateAdmin(f.adminCtx(), f.adminID)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeConflict))
}

func TestCreateAdmin_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := f.adminCtx()

	_, err := f.svc.CreateAdmin(ctx, service.CreateAdminInput{
		Username: "weak", Password: "short", Role: adminmodels.RoleModerator,
	})
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))

	_, err = f.svc.CreateAdmin(ctx, service.CreateAdminInput{
		Username: "root", Password: "long enough", Role: adminmodels.RoleModerator,
	})
	assert.True(t, dErrors.HasCode(err, dErrors.CodeConflict), "username is unique")
}

func TestModerationIsAudited(t *testing.T) {
	f := newFixture(t)
	ctx := f.adminCtx()

	worker, err := f.identity.RegisterWorker(ctx, identityservice.RegisterWorkerInput{
		Owner: 42, FullName: "Иван Петров",
	})
	require.NoError(t, err)

	require.NoError(t, f.svc.SetWorkerBlocked(ctx, worker.ID, true))

	blocked, err := f.identity.WorkerByID(ctx, worker.ID)
	require.NoError(t, err)
	assert.True(t, blocked.Blocked)

	trail, err := f.svc.AuditTrailFor(ctx, "worker", worker.ID.String(), 10)
	require.NoError(t, err)
	require.Len(t, trail, 1)
	assert.Equal(t, audit.ActionBlockWorker, trail[0].Action)
	assert.Equal(t, f.adminID, trail[0].ActorID, "entry names the acting admin")
}

func TestModerationNotifiesAccount(t *testing.T) {
	f := newFixture(t)
	ctx := f.adminCtx()

	worker, err := f.identity.RegisterWorker(ctx, identityservice.RegisterWorkerInput{
		Owner: 42, FullName: "Иван Петров",
	})
	require.NoError(t, err)
	company, err := f.identity.RegisterCompany(ctx, identityservice.RegisterCompanyInput{
		Owner: 100, Name: "ООО Ромашка",
	})
	require.NoError(t, err)

	require.NoError(t, f.svc.SetWorkerBlocked(ctx, worker.ID, true))
	blocked := f.notifier.OfKind(notify.KindAccountBlocked)
	require.Len(t, blocked, 1)
	assert.Equal(t, id.ActorID(42), blocked[0].Recipient)

	require.NoError(t, f.svc.SetWorkerBlocked(ctx, worker.ID, false))
	unblocked := f.notifier.OfKind(notify.KindAccountUnblocked)
	require.Len(t, unblocked, 1)
	assert.Equal(t, id.ActorID(42), unblocked[0].Recipient)

	_, err = f.svc.GrantSubscription(ctx, company.ID, 3, "standard")
	require.NoError(t, err)
	granted := f.notifier.OfKind(notify.KindSubscriptionSet)
	require.Len(t, granted, 1)
	assert.Equal(t, id.ActorID(100), granted[0].Recipient)
	assert.Equal(t, "3", granted[0].Params["months"])
}

func TestSetWorkerPassportAudited(t *testing.T) {
	f := newFixture(t)
	ctx := f.adminCtx()

	worker, err := f.identity.RegisterWorker(ctx, identityservice.RegisterWorkerInput{
		Owner: 42, FullName: "Иван Петров",
	})
	require.NoError(t, err)

	require.NoError(t, f.svc.SetWorkerPassport(ctx, worker.ID, "4510 123456"))

	trail, err := f.svc.AuditTrailFor(ctx, "worker", worker.ID.String(), 10)
	require.NoError(t, err)
	require.Len(t, trail, 1)
	assert.Equal(t, audit.ActionSetWorkerPassport, trail[0].Action,
		"a passport correction is not filed as a notes edit")
	assert.Empty(t, trail[0].Meta, "the passport value never reaches the trail")
}

func TestGrantSubscriptionAudited(t *testing.T) {
	f := newFixture(t)
	ctx := f.adminCtx()

	company, err := f.identity.RegisterCompany(ctx, identityservice.RegisterCompanyInput{
		Owner: 100, Name: "ООО Ромашка",
	})
	require.NoError(t, err)

	updated, err := f.svc.GrantSubscription(ctx, company.ID, 3, "standard")
	require.NoError(t, err)
	require.NotNil(t, updated.SubscriptionUntil)

	trail, err := f.svc.AuditTrailFor(ctx, "company", company.ID.String(), 10)
	require.NoError(t, err)
	require.Len(t, trail, 1)
	assert.Equal(t, audit.ActionGrantSubscription, trail[0].Action)
	assert.EqualValues(t, 3, trail[0].Meta["months"])
}

func TestDashboard(t *testing.T) {
	f := newFixture(t)
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	ctx := requestcontext.WithTime(f.adminCtx(), now)

	_, err := f.identity.RegisterWorker(ctx, identityservice.RegisterWorkerInput{Owner: 42, FullName: "Иван"})
	require.NoError(t, err)
	_, err = f.identity.RegisterCompany(ctx, identityservice.RegisterCompanyInput{Owner: 100, Name: "ООО Ромашка"})
	require.NoError(t, err)

	d, err := f.svc.BuildDashboard(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, d.WorkersTotal)
	assert.Equal(t, 1, d.WorkersToday)
	assert.Equal(t, 1, d.CompaniesTotal)
	assert.Zero(t, d.AppealsOpen)
}
