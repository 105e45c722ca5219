//go:build integration

package sequence_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"
	"golang.org/x/sync/errgroup"

	"rollcall/internal/sequence"
	"rollcall/pkg/platform/sentinel"
	"rollcall/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *sequence.PostgresStore
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.postgres = containers.NewPostgresContainer(s.T())
	s.store = sequence.NewPostgresStore(s.postgres.DB)
}

func (s *PostgresStoreSuite) TearDownSuite() {
	_ = s.postgres.DB.Close()
	_ = s.postgres.Container.Terminate(context.Background())
}

func (s *PostgresStoreSuite) SetupTest() {
	s.Require().NoError(s.postgres.Truncate(context.Background(), "sequence_counters"))
}

func (s *PostgresStoreSuite) TestCounterLifecycle() {
	ctx := context.Background()

	_, err := s.store.Find(ctx, sequence.CategoryRegistration, "20251116")
	s.Require().ErrorIs(err, sentinel.ErrNotFound)

	s.Require().NoError(s.store.Create(ctx, sequence.CategoryRegistration, "20251116"))
	s.Require().ErrorIs(s.store.Create(ctx, sequence.CategoryRegistration, "20251116"), sentinel.ErrConflict)

	value, err := s.store.Find(ctx, sequence.CategoryRegistration, "20251116")
	s.Require().NoError(err)
	s.Equal(0, value)

	s.Require().NoError(s.store.CompareAndSwap(ctx, sequence.CategoryRegistration, "20251116", 0, 1))
	s.Require().ErrorIs(
		s.store.CompareAndSwap(ctx, sequence.CategoryRegistration, "20251116", 0, 2),
		sentinel.ErrStale,
	)

	value, err = s.store.Find(ctx, sequence.CategoryRegistration, "20251116")
	s.Require().NoError(err)
	s.Equal(1, value)
}

func (s *PostgresStoreSuite) TestDeleteBefore() {
	ctx := context.Background()
	s.Require().NoError(s.store.Create(ctx, sequence.CategoryEvent, "20251001"))
	s.Require().NoError(s.store.Create(ctx, sequence.CategoryEvent, "20251116"))

	deleted, err := s.store.DeleteBefore(ctx, "20251101")
	s.Require().NoError(err)
	s.Equal(1, deleted)

	_, err = s.store.Find(ctx, sequence.CategoryEvent, "20251001")
	s.Require().ErrorIs(err, sentinel.ErrNotFound)
	_, err = s.store.Find(ctx, sequence.CategoryEvent, "20251116")
	s.Require().NoError(err)
}

// TestConcurrentAllocation drives the allocator against the real CAS row and
// verifies no identifier is handed out twice.
func (s *PostgresStoreSuite) TestConcurrentAllocation() {
	ctx := context.Background()
	allocator := sequence.NewAllocator(s.store,
		sequence.WithMaxAttempts(1000),
	)

	const workers = 20
	const perWorker = 5

	results := make(chan int, workers*perWorker)
	var g errgroup.Group
	for i := 0; i < workers; i++ {
		g.Go(func() error {
			for j := 0; j < perWorker; j++ {
				n, err := allocator.Next(ctx, sequence.CategoryCheckin, "20251116")
				if err != nil {
					return err
				}
				results <- n
			}
			return nil
		})
	}
	s.Require().NoError(g.Wait())
	close(results)

	seen := make(map[int]bool, workers*perWorker)
	for n := range results {
		s.False(seen[n], "value %d allocated twice", n)
		seen[n] = true
	}
	s.Len(seen, workers*perWorker)
}
