package service_test

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sr13dr31/belyispisok/internal/cipher"
	"github.com/sr13dr31/belyispisok/internal/identity/models"
	"github.com/sr13dr31/belyispisok/internal/identity/service"
	companystore "github.com/sr13dr31/belyispisok/internal/identity/store/company"
	workerstore "github.com/sr13dr31/belyispisok/internal/identity/store/worker"
	id "github.com/sr13dr31/belyispisok/pkg/domain"
	dErrors "github.com/sr13dr31/belyispisok/pkg/domain-errors"
	"github.com/sr13dr31/belyispisok/pkg/requestcontext"
)

type fixture struct {
	svc       *service.Service
	workers   *workerstore.MemoryStore
	companies *companystore.MemoryStore
	cipher    *cipher.Cipher
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	c, err := cipher.New("test-secret", "")
	require.NoError(t, err)
	workers := workerstore.NewMemoryStore()
	companies := companystore.NewMemoryStore()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return &fixture{
		svc:       service.New(workers, companies, c, nil, logger),
		workers:   workers,
		companies: companies,
		cipher:    c,
	}
}

func TestRegisterWorker(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	worker, err := f.svc.RegisterWorker(ctx, service.RegisterWorkerInput{
		Owner:    42,
		FullName: "Иван Петров",
		Phone:    "+79001234567",
		Passport: "4509 123456",
	})
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(string(worker.PublicID), "M-"))
	assert.Len(t, string(worker.PublicID), 8)
	assert.False(t, worker.PassportLocked)
	assert.Equal(t, "4509 123456", worker.Passport, "caller sees plaintext")

	// The stored row carries ciphertext, never the raw document.
	stored, err := f.workers.FindByOwner(ctx, 42)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(stored.Passport, "v1:"))
	assert.NotContains(t, stored.Passport, "4509")
}

func TestRegisterWorker_OneRowPerOwner(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.RegisterWorker(ctx, service.RegisterWorkerInput{Owner: 42, FullName: "Иван"})
	require.NoError(t, err)

	_, err = f.svc.RegisterWorker(ctx, service.RegisterWorkerInput{Owner: 42, FullName: "Иван"})
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeConflict))
}

func TestRegisterWorker_RequiresName(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.RegisterWorker(context.Background(), service.RegisterWorkerInput{Owner: 42, FullName: "   "})
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
}

func TestWorkerByOwner_DecryptsPassport(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.RegisterWorker(ctx, service.RegisterWorkerInput{
		Owner: 42, FullName: "Иван", Passport: "4509 123456",
	})
	require.NoError(t, err)

	worker, err := f.svc.WorkerByOwner(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, "4509 123456", worker.Passport)
}

func TestWorkerRead_SelfHealsLegacyCiphertext(t *testing.T) {
	// A row written under a retired secret must come back readable and be
	// rewritten under the current secret as a side effect of the read.
	retired, err := cipher.New("retired-secret", "")
	require.NoError(t, err)
	rotated, err := cipher.New("current-secret", "retired-secret")
	require.NoError(t, err)

	workers := workerstore.NewMemoryStore()
	companies := companystore.NewMemoryStore()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := service.New(workers, companies, rotated, nil, logger)

	ctx := context.Background()
	legacyValue, err := retired.Encrypt("4509 123456")
	require.NoError(t, err)
	require.NoError(t, workers.Create(ctx, &models.Worker{
		ID:       id.NewWorkerID(),
		OwnerID:  42,
		FullName: "Иван",
		Passport: legacyValue,
		PublicID: "M-000001",
	}))

	worker, err := svc.WorkerByOwner(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, "4509 123456", worker.Passport)

	// Stored value now opens under the primary key alone.
	primaryOnly, err := cipher.New("current-secret", "")
	require.NoError(t, err)
	stored, err := workers.FindByOwner(ctx, 42)
	require.NoError(t, err)
	plain, wasLegacy := primaryOnly.Decrypt(stored.Passport)
	assert.Equal(t, "4509 123456", plain)
	assert.False(t, wasLegacy)
}

func TestSetWorkerPassport_LockPolicy(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	worker, err := f.svc.RegisterWorker(ctx, service.RegisterWorkerInput{
		Owner: 42, FullName: "Иван", Passport: "old",
	})
	require.NoError(t, err)

	// Unlocked: self-service edit allowed.
	require.NoError(t, f.svc.SetWorkerPassport(ctx, worker.ID, "new", false))

	require.NoError(t, f.svc.LockPassport(ctx, worker.ID))

	// Locked: self-service edit refused, company path still works.
	err = f.svc.SetWorkerPassport(ctx, worker.ID, "self-edit", false)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeForbidden))
	require.NoError(t, f.svc.SetWorkerPassport(ctx, worker.ID, "company-edit", true))

	got, err := f.svc.WorkerByID(ctx, worker.ID)
	require.NoError(t, err)
	assert.Equal(t, "company-edit", got.Passport)
	assert.True(t, got.PassportLocked)

	// Admin unlock restores self-service edits.
	require.NoError(t, f.svc.UnlockPassport(ctx, worker.ID))
	require.NoError(t, f.svc.SetWorkerPassport(ctx, worker.ID, "self-again", false))
}

func TestWorkerByPublicID(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	worker, err := f.svc.RegisterWorker(ctx, service.RegisterWorkerInput{Owner: 42, FullName: "Иван"})
	require.NoError(t, err)

	got, err := f.svc.WorkerByPublicID(ctx, "  "+strings.ToLower(string(worker.PublicID))+" ")
	require.NoError(t, err)
	assert.Equal(t, worker.ID, got.ID)

	_, err = f.svc.WorkerByPublicID(ctx, "M-999999")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))

	_, err = f.svc.WorkerByPublicID(ctx, "bogus")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))

	// A company id never resolves to a worker.
	_, err = f.svc.WorkerByPublicID(ctx, "C-123456")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
}

func TestRegisterCompany(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	company, err := f.svc.RegisterCompany(ctx, service.RegisterCompanyInput{
		Owner: 100, Name: "ООО Ромашка", City: "Москва", ResponsiblePhone: "+79000000000",
	})
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(string(company.PublicID), "C-"))
	assert.Equal(t, models.KYCPending, company.KYCStatus)
	assert.Nil(t, company.SubscriptionUntil)

	_, err = f.svc.RegisterCompany(ctx, service.RegisterCompanyInput{Owner: 100, Name: "ООО Ромашка"})
	assert.True(t, dErrors.HasCode(err, dErrors.CodeConflict))
}

func TestGrantSubscription_PreservesRemainingTime(t *testing.T) {
	f := newFixture(t)
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	ctx := requestcontext.WithTime(context.Background(), now)

	company, err := f.svc.RegisterCompany(ctx, service.RegisterCompanyInput{Owner: 100, Name: "ООО Ромашка"})
	require.NoError(t, err)

	// Ten days granted first.
	until := now.Add(10 * 24 * time.Hour)
	require.NoError(t, f.companies.SetSubscription(ctx, company.ID, "basic", &until))

	// Three more months stack on top of the remaining ten days.
	updated, err := f.svc.GrantSubscription(ctx, company.ID, 3, "")
	require.NoError(t, err)
	require.NotNil(t, updated.SubscriptionUntil)
	assert.Equal(t, models.AddMonths(until, 3), *updated.SubscriptionUntil)

	active, err := f.svc.HasActiveSubscription(ctx, company.ID)
	require.NoError(t, err)
	assert.True(t, active)

	// Zero months clears the subscription.
	updated, err = f.svc.GrantSubscription(ctx, company.ID, 0, "")
	require.NoError(t, err)
	assert.Nil(t, updated.SubscriptionUntil)

	active, err = f.svc.HasActiveSubscription(ctx, company.ID)
	require.NoError(t, err)
	assert.False(t, active)
}

func TestHasActiveSubscription_BlockedOverrides(t *testing.T) {
	f := newFixture(t)
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	ctx := requestcontext.WithTime(context.Background(), now)

	company, err := f.svc.RegisterCompany(ctx, service.RegisterCompanyInput{Owner: 100, Name: "ООО Ромашка"})
	require.NoError(t, err)
	_, err = f.svc.GrantSubscription(ctx, company.ID, 1, "basic")
	require.NoError(t, err)

	require.NoError(t, f.svc.SetCompanyBlocked(ctx, company.ID, true))
	active, err := f.svc.HasActiveSubscription(ctx, company.ID)
	require.NoError(t, err)
	assert.False(t, active)
}

func TestSetKYCStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	company, err := f.svc.RegisterCompany(ctx, service.RegisterCompanyInput{Owner: 100, Name: "ООО Ромашка"})
	require.NoError(t, err)

	require.NoError(t, f.svc.SetKYCStatus(ctx, company.ID, "verified"))
	got, err := f.svc.CompanyByID(ctx, company.ID)
	require.NoError(t, err)
	assert.Equal(t, models.KYCVerified, got.KYCStatus)

	err = f.svc.SetKYCStatus(ctx, company.ID, "maybe")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
}

func TestListWorkers_BlanksPassports(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.RegisterWorker(ctx, service.RegisterWorkerInput{
		Owner: 42, FullName: "Иван Петров", Passport: "4509 123456",
	})
	require.NoError(t, err)

	workers, err := f.svc.ListWorkers(ctx, service.ListFilter{Search: "петров"})
	require.NoError(t, err)
	require.Len(t, workers, 1)
	assert.Empty(t, workers[0].Passport)
}
