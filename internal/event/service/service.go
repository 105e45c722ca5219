// Package service orchestrates the event lifecycle and owns the capacity
// ledger consulted by the registration workflow.
package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"rollcall/internal/audit"
	eventmetrics "rollcall/internal/event/metrics"
	"rollcall/internal/event/models"
	"rollcall/internal/sequence"
	dErrors "rollcall/pkg/domain-errors"
	"rollcall/pkg/platform/sentinel"
	"rollcall/pkg/requestcontext"
)

type Store interface {
	Create(ctx context.Context, event *models.Event) error
	FindByID(ctx context.Context, id string) (*models.Event, error)
	ListByOrganizer(ctx context.Context, organizerID string) ([]*models.Event, error)
	// Execute holds the event exclusively (mutex or FOR UPDATE) across both
	// callbacks, so validate-then-mutate pairs are atomic.
	Execute(ctx context.Context, id string, validate func(*models.Event) error, mutate func(*models.Event)) (*models.Event, error)
}

// IDMinter issues business identifiers; the sequence allocator satisfies it.
type IDMinter interface {
	NextID(ctx context.Context, category sequence.Category) (string, error)
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Service drives event lifecycle transitions. Mutations are organizer-only.
type Service struct {
	events         Store
	ids            IDMinter
	logger         *slog.Logger
	metrics        *eventmetrics.Metrics
	auditPublisher AuditPublisher
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithMetrics(m *eventmetrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(s *Service) { s.auditPublisher = publisher }
}

func New(events Store, ids IDMinter, opts ...Option) *Service {
	s := &Service{events: events, ids: ids, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateEventInput carries the organizer-supplied event definition.
type CreateEventInput struct {
	Title                string
	Capacity             int
	RequiresApproval     bool
	Groups               []models.Group
	Latitude             float64
	Longitude            float64
	CheckinRadiusMeters  float64
	StartTime            time.Time
	EndTime              time.Time
	RegistrationDeadline *time.Time
}

func (s *Service) CreateEvent(ctx context.Context, in CreateEventInput) (*models.Event, error) {
	organizerID := requestcontext.UserID(ctx)
	if organizerID == "" {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "caller identity is required")
	}
	if err := validateGroups(in.Groups, in.Capacity); err != nil {
		return nil, err
	}
	if in.CheckinRadiusMeters < 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "check-in radius cannot be negative")
	}

	id, err := s.ids.NextID(ctx, sequence.CategoryEvent)
	if err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx)
	event, err := models.NewEvent(id, organizerID, strings.TrimSpace(in.Title), in.Capacity, in.StartTime, in.EndTime)
	if err != nil {
		return nil, err
	}
	event.RequiresApproval = in.RequiresApproval
	event.Groups = in.Groups
	event.Latitude = in.Latitude
	event.Longitude = in.Longitude
	event.CheckinRadiusMeters = in.CheckinRadiusMeters
	event.RegistrationDeadline = in.RegistrationDeadline
	event.CreatedAt = now
	event.UpdatedAt = now

	if err := s.events.Create(ctx, event); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.New(dErrors.CodeConflict, "event identifier already in use")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create event")
	}

	s.emitAudit(ctx, audit.Event{
		Action:  audit.ActionEventCreated,
		ActorID: organizerID,
		EventID: event.ID,
	})
	if s.metrics != nil {
		s.metrics.EventsCreated.Inc()
	}
	return event, nil
}

func (s *Service) GetEvent(ctx context.Context, id string) (*models.Event, error) {
	if id == "" {
		return nil, dErrors.New(dErrors.CodeBadRequest, "event id is required")
	}
	event, err := s.events.FindByID(ctx, id)
	if err != nil {
		return nil, wrapEventErr(err)
	}
	return event, nil
}

// ListOwnEvents returns the caller's events.
func (s *Service) ListOwnEvents(ctx context.Context) ([]*models.Event, error) {
	organizerID := requestcontext.UserID(ctx)
	if organizerID == "" {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "caller identity is required")
	}
	events, err := s.events.ListByOrganizer(ctx, organizerID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list events")
	}
	return events, nil
}

func (s *Service) PublishEvent(ctx context.Context, id string) (*models.Event, error) {
	return s.transition(ctx, id, audit.ActionEventPublished,
		(*models.Event).CanPublish, (*models.Event).ApplyPublish)
}

func (s *Service) StartEvent(ctx context.Context, id string) (*models.Event, error) {
	return s.transition(ctx, id, audit.ActionEventStarted,
		(*models.Event).CanStart, (*models.Event).ApplyStart)
}

func (s *Service) FinishEvent(ctx context.Context, id string) (*models.Event, error) {
	return s.transition(ctx, id, audit.ActionEventFinished,
		(*models.Event).CanFinish, (*models.Event).ApplyFinish)
}

func (s *Service) CancelEvent(ctx context.Context, id string) (*models.Event, error) {
	return s.transition(ctx, id, audit.ActionEventCancelled,
		(*models.Event).CanCancel, (*models.Event).ApplyCancel)
}

// transition runs an organizer-guarded lifecycle change through the store's
// Execute so the ownership check, the guard, and the write are one atomic
// unit.
func (s *Service) transition(ctx context.Context, id string, action audit.Action,
	can func(*models.Event) error, apply func(*models.Event, time.Time),
) (*models.Event, error) {
	if id == "" {
		return nil, dErrors.New(dErrors.CodeBadRequest, "event id is required")
	}
	callerID := requestcontext.UserID(ctx)
	if callerID == "" {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "caller identity is required")
	}

	now := requestcontext.Now(ctx)
	event, err := s.events.Execute(ctx, id,
		func(e *models.Event) error {
			if e.OrganizerID != callerID {
				return dErrors.New(dErrors.CodeForbidden, "only the organizer may modify the event")
			}
			if err := can(e); err != nil {
				if dErrors.HasCode(err, dErrors.CodeInvariantViolation) {
					return dErrors.Wrap(err, dErrors.CodeInvalidOperation, "event transition not allowed")
				}
				return err
			}
			return nil
		},
		func(e *models.Event) {
			apply(e, now)
		},
	)
	if err != nil {
		return nil, wrapEventErr(err)
	}

	s.emitAudit(ctx, audit.Event{
		Action:  action,
		ActorID: callerID,
		EventID: event.ID,
	})
	return event, nil
}

func (s *Service) emitAudit(ctx context.Context, event audit.Event) {
	if s.auditPublisher == nil {
		return
	}
	if err := s.auditPublisher.Emit(ctx, event); err != nil {
		s.logger.ErrorContext(ctx, "audit emit failed",
			"action", event.Action,
			"error", err,
		)
	}
}

func validateGroups(groups []models.Group, capacity int) error {
	seen := make(map[string]struct{}, len(groups))
	for _, g := range groups {
		if g.ID == "" {
			return dErrors.New(dErrors.CodeValidation, "group id cannot be empty")
		}
		if _, dup := seen[g.ID]; dup {
			return dErrors.Newf(dErrors.CodeValidation, "duplicate group %q", g.ID)
		}
		seen[g.ID] = struct{}{}
		if g.Capacity <= 0 || g.Capacity > capacity {
			return dErrors.Newf(dErrors.CodeValidation, "group %q capacity out of range", g.ID)
		}
		if g.Occupancy != 0 {
			return dErrors.Newf(dErrors.CodeValidation, "group %q occupancy must start at zero", g.ID)
		}
	}
	return nil
}

func wrapEventErr(err error) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeNotFound, "event not found")
	}
	var domainErr *dErrors.Error
	if errors.As(err, &domainErr) {
		return err
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, "event operation failed")
}
