//go:build integration

package employment_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/sr13dr31/belyispisok/internal/employment/models"
	"github.com/sr13dr31/belyispisok/internal/employment/store/employment"
	identitymodels "github.com/sr13dr31/belyispisok/internal/identity/models"
	companystore "github.com/sr13dr31/belyispisok/internal/identity/store/company"
	workerstore "github.com/sr13dr31/belyispisok/internal/identity/store/worker"
	id "github.com/sr13dr31/belyispisok/pkg/domain"
	"github.com/sr13dr31/belyispisok/pkg/platform/sentinel"
	"github.com/sr13dr31/belyispisok/pkg/testutil/containers"
)

type EmploymentStoreSuite struct {
	suite.Suite
	postgres  *containers.PostgresContainer
	store     *employment.PostgresStore
	workerID  id.WorkerID
	companyID id.CompanyID
}

func TestEmploymentStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(EmploymentStoreSuite))
}

func (s *EmploymentStoreSuite) SetupSuite() {
	s.postgres = containers.NewPostgresContainer(s.T())
	s.store = employment.NewPostgresStore(s.postgres.DB)
}

func (s *EmploymentStoreSuite) SetupTest() {
	ctx := context.Background()
	s.Require().NoError(s.postgres.TruncateTables(ctx, "employments", "workers", "companies"))

	s.workerID = id.NewWorkerID()
	s.Require().NoError(workerstore.NewPostgresStore(s.postgres.DB).Create(ctx, &identitymodels.Worker{
		ID: s.workerID, OwnerID: 42, FullName: "Иван Петров",
		PublicID: "M-123456", CreatedAt: time.Now().UTC(),
	}))

	s.companyID = id.NewCompanyID()
	s.Require().NoError(companystore.NewPostgresStore(s.postgres.DB).Create(ctx, &identitymodels.Company{
		ID: s.companyID, OwnerID: 100, Name: "ООО Ромашка",
		PublicID: "C-123456", KYCStatus: identitymodels.KYCPending, CreatedAt: time.Now().UTC(),
	}))
}

func (s *EmploymentStoreSuite) newEmployment() *models.Employment {
	return &models.Employment{
		ID:        id.NewEmploymentID(),
		WorkerID:  s.workerID,
		CompanyID: s.companyID,
		Position:  "электрик",
		Status:    models.StatusPendingConfirm,
		CreatedAt: time.Now().UTC(),
	}
}

func (s *EmploymentStoreSuite) TestSingleOpenEmploymentPerWorker() {
	ctx := context.Background()
	now := time.Now().UTC()

	first := s.newEmployment()
	s.Require().NoError(s.store.Create(ctx, first))

	// The partial unique index rejects a second open row.
	s.ErrorIs(s.store.Create(ctx, s.newEmployment()), sentinel.ErrConflict)

	// Once the first is closed a new one may start.
	s.Require().NoError(s.store.Accept(ctx, first.ID, now))
	s.Require().NoError(s.store.End(ctx, first.ID, now))
	s.NoError(s.store.Create(ctx, s.newEmployment()))
}

func (s *EmploymentStoreSuite) TestConditionalTransitions() {
	ctx := context.Background()
	now := time.Now().UTC()

	e := s.newEmployment()
	s.Require().NoError(s.store.Create(ctx, e))

	s.Require().NoError(s.store.Accept(ctx, e.ID, now))
	s.ErrorIs(s.store.Accept(ctx, e.ID, now), sentinel.ErrInvalidState,
		"a second accept loses the conditional update")

	s.Require().NoError(s.store.RequestLeave(ctx, e.ID, now))
	got, err := s.store.FindByID(ctx, e.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusLeaveRequested, got.Status)
	s.Require().NotNil(got.LeaveRequestedAt)
}

func (s *EmploymentStoreSuite) TestCloseStaleLeave() {
	ctx := context.Background()
	start := time.Now().UTC().Add(-72 * time.Hour)

	e := s.newEmployment()
	s.Require().NoError(s.store.Create(ctx, e))
	s.Require().NoError(s.store.Accept(ctx, e.ID, start))
	s.Require().NoError(s.store.RequestLeave(ctx, e.ID, start))

	now := time.Now().UTC()
	closed, err := s.store.CloseStaleLeave(ctx, now.Add(-48*time.Hour), now)
	s.Require().NoError(err)
	s.Require().Len(closed, 1)
	s.Equal(e.ID, closed[0].ID)
	s.Equal(models.StatusEnded, closed[0].Status)

	// Idempotent: the second sweep finds nothing.
	closed, err = s.store.CloseStaleLeave(ctx, now.Add(-48*time.Hour), now)
	s.Require().NoError(err)
	s.Empty(closed)
}
