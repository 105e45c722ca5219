package sequence

import "context"

// Store persists daily counters keyed by (category, dateKey).
//
// Implementations must make CompareAndSwap a single conditional update at the
// storage boundary: it succeeds only when the stored value still equals
// expected. Plain read-modify-write is not acceptable here.
//
// Errors are pkg/platform/sentinel values: Find returns ErrNotFound for a
// missing counter, Create returns ErrConflict when another allocator created
// the row first, and CompareAndSwap returns ErrStale when it lost the race.
type Store interface {
	// Find returns the current value for the counter.
	Find(ctx context.Context, category Category, dateKey string) (int, error)

	// Create inserts the counter with current value 0.
	Create(ctx context.Context, category Category, dateKey string) error

	// CompareAndSwap sets the counter to next only if it still holds expected.
	CompareAndSwap(ctx context.Context, category Category, dateKey string, expected, next int) error

	// DeleteBefore removes counters whose dateKey sorts strictly before
	// cutoff, returning how many were deleted. Used by the retention sweep.
	DeleteBefore(ctx context.Context, cutoff string) (int, error)
}
