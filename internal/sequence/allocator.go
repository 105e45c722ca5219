package sequence

import (
	"context"
	"errors"
	"log/slog"
	"time"

	seqmetrics "rollcall/internal/sequence/metrics"
	dErrors "rollcall/pkg/domain-errors"
	"rollcall/pkg/platform/sentinel"
	"rollcall/pkg/requestcontext"
)

const (
	defaultMaxAttempts = 10
	defaultRetryDelay  = 10 * time.Millisecond
)

// Allocator issues the next sequence for a (category, dateKey) pair using
// optimistic compare-and-swap with a bounded retry loop. A failed attempt
// consumes no value, so gaps only appear when a caller gives up; duplicates
// never appear.
type Allocator struct {
	store       Store
	logger      *slog.Logger
	metrics     *seqmetrics.Metrics
	maxAttempts int
	retryDelay  time.Duration
}

type AllocatorOption func(*Allocator)

func WithLogger(logger *slog.Logger) AllocatorOption {
	return func(a *Allocator) { a.logger = logger }
}

func WithMetrics(m *seqmetrics.Metrics) AllocatorOption {
	return func(a *Allocator) { a.metrics = m }
}

// WithMaxAttempts overrides the retry bound. Tests that deliberately create
// pathological contention raise it; production keeps the default of 10.
func WithMaxAttempts(n int) AllocatorOption {
	return func(a *Allocator) {
		if n > 0 {
			a.maxAttempts = n
		}
	}
}

// WithRetryDelay overrides the sleep between contended attempts.
func WithRetryDelay(d time.Duration) AllocatorOption {
	return func(a *Allocator) {
		if d >= 0 {
			a.retryDelay = d
		}
	}
}

func NewAllocator(store Store, opts ...AllocatorOption) *Allocator {
	a := &Allocator{
		store:       store,
		logger:      slog.Default(),
		maxAttempts: defaultMaxAttempts,
		retryDelay:  defaultRetryDelay,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Next returns the next sequence for the pair, or a retry_exhausted domain
// error after the attempt bound.
func (a *Allocator) Next(ctx context.Context, category Category, dateKey string) (int, error) {
	if !category.Valid() {
		return 0, dErrors.Newf(dErrors.CodeValidation, "unknown category %q", category)
	}
	if !ValidDateKey(dateKey) {
		return 0, dErrors.Newf(dErrors.CodeValidation, "invalid date key %q", dateKey)
	}

	for attempt := 1; attempt <= a.maxAttempts; attempt++ {
		current, err := a.readOrCreate(ctx, category, dateKey)
		if err != nil {
			return 0, err
		}

		candidate := current + 1
		err = a.store.CompareAndSwap(ctx, category, dateKey, current, candidate)
		if err == nil {
			a.countAllocation(category)
			return candidate, nil
		}
		if !errors.Is(err, sentinel.ErrStale) {
			return 0, dErrors.Wrap(err, dErrors.CodeInternal, "sequence update failed")
		}

		// Lost the race; back off briefly before re-reading.
		a.countRetry()
		a.logger.DebugContext(ctx, "sequence contention",
			"category", category,
			"date_key", dateKey,
			"attempt", attempt,
		)
		if attempt < a.maxAttempts {
			select {
			case <-ctx.Done():
				return 0, dErrors.Wrap(ctx.Err(), dErrors.CodeInternal, "sequence allocation cancelled")
			case <-time.After(a.retryDelay):
			}
		}
	}

	a.countExhaustion()
	a.logger.WarnContext(ctx, "sequence retries exhausted",
		"category", category,
		"date_key", dateKey,
		"attempts", a.maxAttempts,
	)
	return 0, dErrors.Newf(dErrors.CodeRetryExhausted,
		"sequence allocation for %s/%s exceeded %d attempts", category, dateKey, a.maxAttempts)
}

// NextID allocates a sequence for the request's day and formats the full
// identifier.
func (a *Allocator) NextID(ctx context.Context, category Category) (string, error) {
	dateKey := DateKeyFor(requestcontext.Now(ctx).UTC())
	seq, err := a.Next(ctx, category, dateKey)
	if err != nil {
		return "", err
	}
	return FormatID(category, dateKey, seq)
}

// CleanExpired removes counters older than retainDays. Counters for past days
// are never read again, so this is purely a retention sweep.
func (a *Allocator) CleanExpired(ctx context.Context, retainDays int) (int, error) {
	if retainDays <= 0 {
		return 0, dErrors.New(dErrors.CodeValidation, "retain days must be positive")
	}
	cutoff := DateKeyFor(requestcontext.Now(ctx).UTC().AddDate(0, 0, -retainDays))
	deleted, err := a.store.DeleteBefore(ctx, cutoff)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "sequence retention sweep failed")
	}
	if deleted > 0 {
		a.logger.InfoContext(ctx, "expired sequence counters removed",
			"cutoff", cutoff,
			"deleted", deleted,
		)
	}
	return deleted, nil
}

// readOrCreate fetches the counter, lazily creating it at zero. A conflict on
// create means another allocator won that race; the fresh read that follows
// picks up its row.
func (a *Allocator) readOrCreate(ctx context.Context, category Category, dateKey string) (int, error) {
	current, err := a.store.Find(ctx, category, dateKey)
	if err == nil {
		return current, nil
	}
	if !errors.Is(err, sentinel.ErrNotFound) {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "sequence read failed")
	}

	if err := a.store.Create(ctx, category, dateKey); err != nil {
		if !errors.Is(err, sentinel.ErrConflict) {
			return 0, dErrors.Wrap(err, dErrors.CodeInternal, "sequence create failed")
		}
		current, err = a.store.Find(ctx, category, dateKey)
		if err != nil {
			return 0, dErrors.Wrap(err, dErrors.CodeInternal, "sequence re-read failed")
		}
		return current, nil
	}
	return 0, nil
}

func (a *Allocator) countAllocation(category Category) {
	if a.metrics != nil {
		a.metrics.Allocations.WithLabelValues(string(category)).Inc()
	}
}

func (a *Allocator) countRetry() {
	if a.metrics != nil {
		a.metrics.Retries.Inc()
	}
}

func (a *Allocator) countExhaustion() {
	if a.metrics != nil {
		a.metrics.Exhaustions.Inc()
	}
}
