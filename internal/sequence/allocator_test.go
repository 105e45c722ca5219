package sequence

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	dErrors "rollcall/pkg/domain-errors"
	"rollcall/pkg/platform/sentinel"
	"rollcall/pkg/requestcontext"
)

func TestFormatID(t *testing.T) {
	t.Run("renders prefix, date key and padded sequence", func(t *testing.T) {
		id, err := FormatID(CategoryRegistration, "20251116", 1)
		require.NoError(t, err)
		assert.Equal(t, "R20251116000001", id)

		id, err = FormatID(CategoryEvent, "20251116", 123456)
		require.NoError(t, err)
		assert.Equal(t, "E20251116123456", id)
	})

	t.Run("rejects unknown category", func(t *testing.T) {
		_, err := FormatID(Category("bogus"), "20251116", 1)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})

	t.Run("rejects malformed date key", func(t *testing.T) {
		_, err := FormatID(CategoryEvent, "2025-11-16", 1)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})

	t.Run("rejects out-of-range sequence", func(t *testing.T) {
		_, err := FormatID(CategoryEvent, "20251116", 0)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))

		_, err = FormatID(CategoryEvent, "20251116", 1_000_000)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})
}

func TestAllocatorNext_Sequential(t *testing.T) {
	alloc := NewAllocator(NewInMemoryStore())
	ctx := context.Background()

	for want := 1; want <= 25; want++ {
		got, err := alloc.Next(ctx, CategoryEvent, "20251116")
		require.NoError(t, err)
		assert.Equal(t, want, got, "sequences must be gap-free when uncontended")
	}
}

func TestAllocatorNext_IndependentCounters(t *testing.T) {
	alloc := NewAllocator(NewInMemoryStore())
	ctx := context.Background()

	first, err := alloc.Next(ctx, CategoryEvent, "20251116")
	require.NoError(t, err)
	second, err := alloc.Next(ctx, CategoryRegistration, "20251116")
	require.NoError(t, err)
	third, err := alloc.Next(ctx, CategoryEvent, "20251117")
	require.NoError(t, err)

	assert.Equal(t, 1, first)
	assert.Equal(t, 1, second, "categories do not share a counter")
	assert.Equal(t, 1, third, "a new day starts at one")
}

func TestAllocatorNext_ConcurrentUnique(t *testing.T) {
	const (
		workers = 50
		perEach = 10
	)

	// Contention this deliberate can exhaust the production attempt bound, so
	// the bound is raised; the property under test is uniqueness, not the
	// retry budget.
	alloc := NewAllocator(NewInMemoryStore(),
		WithMaxAttempts(workers*perEach),
		WithRetryDelay(time.Millisecond),
	)

	var (
		mu   sync.Mutex
		seen = make(map[int]struct{}, workers*perEach)
	)

	g, ctx := errgroup.WithContext(context.Background())
	for range workers {
		g.Go(func() error {
			for range perEach {
				seq, err := alloc.Next(ctx, CategoryCheckin, "20251116")
				if err != nil {
					return err
				}
				mu.Lock()
				if _, dup := seen[seq]; dup {
					mu.Unlock()
					return fmt.Errorf("duplicate sequence %d", seq)
				}
				seen[seq] = struct{}{}
				mu.Unlock()
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())

	require.Len(t, seen, workers*perEach)
	for seq := 1; seq <= workers*perEach; seq++ {
		assert.Contains(t, seen, seq, "successful allocations leave no gaps")
	}
}

func TestAllocatorNext_RetriesExhausted(t *testing.T) {
	alloc := NewAllocator(&staleStore{}, WithRetryDelay(0))

	_, err := alloc.Next(context.Background(), CategoryEvent, "20251116")
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeRetryExhausted))
}

func TestAllocatorNext_ValidatesInput(t *testing.T) {
	alloc := NewAllocator(NewInMemoryStore())

	_, err := alloc.Next(context.Background(), Category("nope"), "20251116")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))

	_, err = alloc.Next(context.Background(), CategoryEvent, "99999999")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
}

func TestAllocatorNextID(t *testing.T) {
	alloc := NewAllocator(NewInMemoryStore())
	at := time.Date(2025, 11, 16, 9, 30, 0, 0, time.UTC)
	ctx := requestcontext.WithTime(context.Background(), at)

	id, err := alloc.NextID(ctx, CategoryRegistration)
	require.NoError(t, err)
	assert.Equal(t, "R20251116000001", id)

	id, err = alloc.NextID(ctx, CategoryRegistration)
	require.NoError(t, err)
	assert.Equal(t, "R20251116000002", id)
}

func TestAllocatorCleanExpired(t *testing.T) {
	store := NewInMemoryStore()
	alloc := NewAllocator(store)
	ctx := requestcontext.WithTime(context.Background(),
		time.Date(2025, 12, 16, 12, 0, 0, 0, time.UTC))

	_, err := alloc.Next(ctx, CategoryEvent, "20251101")
	require.NoError(t, err)
	_, err = alloc.Next(ctx, CategoryEvent, "20251215")
	require.NoError(t, err)

	deleted, err := alloc.CleanExpired(ctx, 30)
	require.NoError(t, err)
	assert.Equal(t, 1, deleted)

	// The surviving counter keeps its value.
	seq, err := alloc.Next(ctx, CategoryEvent, "20251215")
	require.NoError(t, err)
	assert.Equal(t, 2, seq)

	t.Run("rejects non-positive retention", func(t *testing.T) {
		_, err := alloc.CleanExpired(ctx, 0)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})
}

// staleStore loses every compare-and-swap.
type staleStore struct{}

func (s *staleStore) Find(context.Context, Category, string) (int, error) { return 0, nil }

func (s *staleStore) Create(context.Context, Category, string) error { return nil }

func (s *staleStore) CompareAndSwap(context.Context, Category, string, int, int) error {
	return sentinel.ErrStale
}

func (s *staleStore) DeleteBefore(context.Context, string) (int, error) { return 0, nil }
