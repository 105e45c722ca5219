package sequence

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rollcall/pkg/platform/sentinel"
)

func TestInMemoryStore_Contract(t *testing.T) {
	ctx := context.Background()

	t.Run("find missing counter", func(t *testing.T) {
		store := NewInMemoryStore()
		_, err := store.Find(ctx, CategoryEvent, "20251116")
		assert.ErrorIs(t, err, sentinel.ErrNotFound)
	})

	t.Run("create starts at zero and conflicts on repeat", func(t *testing.T) {
		store := NewInMemoryStore()
		require.NoError(t, store.Create(ctx, CategoryEvent, "20251116"))

		cur, err := store.Find(ctx, CategoryEvent, "20251116")
		require.NoError(t, err)
		assert.Equal(t, 0, cur)

		assert.ErrorIs(t, store.Create(ctx, CategoryEvent, "20251116"), sentinel.ErrConflict)
	})

	t.Run("compare and swap is conditional", func(t *testing.T) {
		store := NewInMemoryStore()
		require.NoError(t, store.Create(ctx, CategoryEvent, "20251116"))

		require.NoError(t, store.CompareAndSwap(ctx, CategoryEvent, "20251116", 0, 1))

		err := store.CompareAndSwap(ctx, CategoryEvent, "20251116", 0, 2)
		assert.ErrorIs(t, err, sentinel.ErrStale, "stale expectation must not overwrite")

		cur, err := store.Find(ctx, CategoryEvent, "20251116")
		require.NoError(t, err)
		assert.Equal(t, 1, cur)
	})

	t.Run("compare and swap on missing counter is stale", func(t *testing.T) {
		store := NewInMemoryStore()
		err := store.CompareAndSwap(ctx, CategoryEvent, "20251116", 0, 1)
		assert.ErrorIs(t, err, sentinel.ErrStale)
	})

	t.Run("delete before cutoff", func(t *testing.T) {
		store := NewInMemoryStore()
		require.NoError(t, store.Create(ctx, CategoryEvent, "20251101"))
		require.NoError(t, store.Create(ctx, CategoryCheckin, "20251101"))
		require.NoError(t, store.Create(ctx, CategoryEvent, "20251120"))

		deleted, err := store.DeleteBefore(ctx, "20251110")
		require.NoError(t, err)
		assert.Equal(t, 2, deleted)

		_, err = store.Find(ctx, CategoryEvent, "20251120")
		assert.NoError(t, err)
	})
}
