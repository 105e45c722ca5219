//go:build integration

package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"rollcall/internal/checkin/models"
	"rollcall/internal/checkin/store"
	eventmodels "rollcall/internal/event/models"
	eventstore "rollcall/internal/event/store"
	regmodels "rollcall/internal/registration/models"
	regstore "rollcall/internal/registration/store"
	"rollcall/pkg/platform/sentinel"
	"rollcall/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *store.Postgres
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.postgres = containers.NewPostgresContainer(s.T())
	s.store = store.NewPostgres(s.postgres.DB)
}

func (s *PostgresStoreSuite) TearDownSuite() {
	_ = s.postgres.DB.Close()
	_ = s.postgres.Container.Terminate(context.Background())
}

func (s *PostgresStoreSuite) SetupTest() {
	ctx := context.Background()
	s.Require().NoError(s.postgres.Truncate(ctx, "checkins", "registrations", "events"))

	start := time.Date(2025, 11, 16, 10, 0, 0, 0, time.UTC)
	event, err := eventmodels.NewEvent("E20251116000001", "org-1", "Morning Run", 10, start, start.Add(2*time.Hour))
	s.Require().NoError(err)
	s.Require().NoError(eventstore.NewPostgres(s.postgres.DB).Create(ctx, event))

	reg, err := regmodels.NewRegistration("R20251116000001", "E20251116000001", "alice", "", start.Add(-time.Hour))
	s.Require().NoError(err)
	s.Require().NoError(regstore.NewPostgres(s.postgres.DB).Create(ctx, reg))
}

func (s *PostgresStoreSuite) newCheckin(id string) *models.Checkin {
	return &models.Checkin{
		ID:             id,
		EventID:        "E20251116000001",
		ParticipantID:  "alice",
		RegistrationID: "R20251116000001",
		Latitude:       52.52,
		Longitude:      13.405,
		DistanceMeters: 42,
		IsLate:         true,
		IsValid:        true,
		CheckinTime:    time.Date(2025, 11, 16, 10, 10, 0, 0, time.UTC),
		Note:           "arrived 10 minutes late",
	}
}

func (s *PostgresStoreSuite) TestCreateAndFind() {
	ctx := context.Background()
	s.Require().NoError(s.store.Create(ctx, s.newCheckin("C20251116000001")))

	found, err := s.store.FindByEventAndParticipant(ctx, "E20251116000001", "alice")
	s.Require().NoError(err)
	s.Equal("C20251116000001", found.ID)
	s.True(found.IsLate)
	s.Equal("arrived 10 minutes late", found.Note)

	_, err = s.store.FindByEventAndParticipant(ctx, "E20251116000001", "bob")
	s.Require().ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestDuplicatePairConflicts() {
	ctx := context.Background()
	s.Require().NoError(s.store.Create(ctx, s.newCheckin("C20251116000001")))

	// Same participant, same event, fresh id: the unique pair still trips.
	s.Require().ErrorIs(s.store.Create(ctx, s.newCheckin("C20251116000002")), sentinel.ErrConflict)
}

func (s *PostgresStoreSuite) TestListByEvent() {
	ctx := context.Background()
	s.Require().NoError(s.store.Create(ctx, s.newCheckin("C20251116000001")))

	checkins, err := s.store.ListByEvent(ctx, "E20251116000001")
	s.Require().NoError(err)
	s.Require().Len(checkins, 1)

	checkins, err = s.store.ListByEvent(ctx, "E20990101000001")
	s.Require().NoError(err)
	s.Empty(checkins)
}
