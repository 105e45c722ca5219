package service

import (
	"context"
	"log/slog"

	eventmetrics "rollcall/internal/event/metrics"
	"rollcall/internal/event/models"
	dErrors "rollcall/pkg/domain-errors"
	"rollcall/pkg/requestcontext"
)

// Ledger exposes the atomic reserve/release operations the registration
// workflow pairs with status transitions. Each call is a single Execute
// against the event store; callers supply the surrounding transaction via
// context, so the occupancy write commits together with the registration
// write.
type Ledger struct {
	events  Store
	logger  *slog.Logger
	metrics *eventmetrics.Metrics
}

type LedgerOption func(*Ledger)

func WithLedgerLogger(logger *slog.Logger) LedgerOption {
	return func(l *Ledger) { l.logger = logger }
}

func WithLedgerMetrics(m *eventmetrics.Metrics) LedgerOption {
	return func(l *Ledger) { l.metrics = m }
}

func NewLedger(events Store, opts ...LedgerOption) *Ledger {
	l := &Ledger{events: events, logger: slog.Default()}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Reserve grants one seat, failing with capacity_exceeded when the event is
// full. The capacity check and the increment happen under the store's lock,
// so two concurrent reservations cannot both take the last seat.
func (l *Ledger) Reserve(ctx context.Context, eventID, groupID string) (*models.Event, error) {
	groupFound := true
	event, err := l.events.Execute(ctx, eventID,
		func(e *models.Event) error {
			if _, fallback := e.EffectiveCapacity(); fallback {
				l.logger.WarnContext(ctx, "non-positive event capacity, treating as one",
					"event_id", e.ID,
					"capacity_total", e.CapacityTotal,
				)
				if l.metrics != nil {
					l.metrics.CapacityFallbacks.Inc()
				}
			}
			return e.CanReserve()
		},
		func(e *models.Event) {
			groupFound = e.ApplyReserve(groupID, requestcontext.Now(ctx))
		},
	)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeCapacityExceeded) && l.metrics != nil {
			l.metrics.CapacityRejections.Inc()
		}
		return nil, wrapEventErr(err)
	}

	if !groupFound {
		// The group was removed after the registration referenced it; the
		// seat still counts against the event total.
		l.logger.WarnContext(ctx, "reserved seat for unknown group",
			"event_id", eventID,
			"group_id", groupID,
		)
	}
	if l.metrics != nil {
		l.metrics.Reservations.Inc()
	}
	return event, nil
}

// Release returns one seat, clamped at zero occupancy.
func (l *Ledger) Release(ctx context.Context, eventID, groupID string) (*models.Event, error) {
	groupFound := true
	event, err := l.events.Execute(ctx, eventID,
		func(*models.Event) error { return nil },
		func(e *models.Event) {
			groupFound = e.ApplyRelease(groupID, requestcontext.Now(ctx))
		},
	)
	if err != nil {
		return nil, wrapEventErr(err)
	}

	if !groupFound {
		l.logger.WarnContext(ctx, "released seat for unknown group",
			"event_id", eventID,
			"group_id", groupID,
		)
	}
	if l.metrics != nil {
		l.metrics.Releases.Inc()
	}
	return event, nil
}
