//go:build integration

package sequence_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	"rollcall/internal/sequence"
	"rollcall/pkg/platform/sentinel"
	"rollcall/pkg/testutil/containers"
)

type RedisStoreSuite struct {
	suite.Suite
	redis *containers.RedisContainer
	store *sequence.RedisStore
}

func TestRedisStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RedisStoreSuite))
}

func (s *RedisStoreSuite) SetupSuite() {
	s.redis = containers.NewRedisContainer(s.T())
	s.store = sequence.NewRedisStore(s.redis.Client)
}

func (s *RedisStoreSuite) TearDownSuite() {
	_ = s.redis.Client.Close()
	_ = s.redis.Container.Terminate(context.Background())
}

func (s *RedisStoreSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(context.Background()))
}

func (s *RedisStoreSuite) TestCounterLifecycle() {
	ctx := context.Background()

	_, err := s.store.Find(ctx, sequence.CategoryEvent, "20251116")
	s.Require().ErrorIs(err, sentinel.ErrNotFound)

	s.Require().NoError(s.store.Create(ctx, sequence.CategoryEvent, "20251116"))
	s.Require().ErrorIs(s.store.Create(ctx, sequence.CategoryEvent, "20251116"), sentinel.ErrConflict)

	s.Require().NoError(s.store.CompareAndSwap(ctx, sequence.CategoryEvent, "20251116", 0, 1))
	s.Require().ErrorIs(
		s.store.CompareAndSwap(ctx, sequence.CategoryEvent, "20251116", 0, 5),
		sentinel.ErrStale,
	)

	value, err := s.store.Find(ctx, sequence.CategoryEvent, "20251116")
	s.Require().NoError(err)
	s.Equal(1, value)
}

func (s *RedisStoreSuite) TestDeleteBefore() {
	ctx := context.Background()
	s.Require().NoError(s.store.Create(ctx, sequence.CategoryEvent, "20251001"))
	s.Require().NoError(s.store.Create(ctx, sequence.CategoryRegistration, "20251001"))
	s.Require().NoError(s.store.Create(ctx, sequence.CategoryEvent, "20251116"))

	deleted, err := s.store.DeleteBefore(ctx, "20251101")
	s.Require().NoError(err)
	s.Equal(2, deleted)

	_, err = s.store.Find(ctx, sequence.CategoryEvent, "20251116")
	s.Require().NoError(err)
}

func (s *RedisStoreSuite) TestAllocatorSequence() {
	ctx := context.Background()
	allocator := sequence.NewAllocator(s.store)

	for want := 1; want <= 5; want++ {
		got, err := allocator.Next(ctx, sequence.CategoryCheckin, "20251116")
		s.Require().NoError(err)
		s.Equal(want, got)
	}
}
