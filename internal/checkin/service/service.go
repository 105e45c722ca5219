// Package service records check-ins: at most one per (event, participant),
// validated against the event's geofence and time window. A spatial
// violation is recorded as invalid; a temporal violation is refused.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"rollcall/internal/audit"
	"rollcall/internal/checkin/geo"
	"rollcall/internal/checkin/models"
	eventmodels "rollcall/internal/event/models"
	regmodels "rollcall/internal/registration/models"
	"rollcall/internal/sequence"
	dErrors "rollcall/pkg/domain-errors"
	"rollcall/pkg/platform/sentinel"
	"rollcall/pkg/platform/tx"
	"rollcall/pkg/requestcontext"
)

// lateNoteThresholdMinutes bounds which lateness makes it into the note.
// It does not affect the IsLate flag: any check-in after start is late.
const lateNoteThresholdMinutes = 30

type Store interface {
	Create(ctx context.Context, checkin *models.Checkin) error
	FindByEventAndParticipant(ctx context.Context, eventID, participantID string) (*models.Checkin, error)
	ListByEvent(ctx context.Context, eventID string) ([]*models.Checkin, error)
}

type EventStore interface {
	FindByID(ctx context.Context, id string) (*eventmodels.Event, error)
}

// RegistrationStore is the slice of the registration feature the recorder
// needs: the approved registration lookup, and the atomic status update
// that rides the same transaction as the check-in insert.
type RegistrationStore interface {
	FindActiveByEventAndParticipant(ctx context.Context, eventID, participantID string) (*regmodels.Registration, error)
	Execute(ctx context.Context, id string, validate func(*regmodels.Registration) error, mutate func(*regmodels.Registration)) (*regmodels.Registration, error)
}

type IDMinter interface {
	NextID(ctx context.Context, category sequence.Category) (string, error)
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

type Service struct {
	checkins       Store
	events         EventStore
	registrations  RegistrationStore
	ids            IDMinter
	logger         *slog.Logger
	auditPublisher AuditPublisher
	tx             tx.Runner
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(s *Service) { s.auditPublisher = publisher }
}

func WithTxRunner(runner tx.Runner) Option {
	return func(s *Service) { s.tx = runner }
}

func New(checkins Store, events EventStore, registrations RegistrationStore, ids IDMinter, opts ...Option) *Service {
	s := &Service{
		checkins:      checkins,
		events:        events,
		registrations: registrations,
		ids:           ids,
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.tx == nil {
		s.tx = tx.NewMemoryRunner()
	}
	return s
}

// CreateCheckin records the calling participant's presence at the event.
// The check-in insert and the registration's check-in status update commit
// as one unit.
func (s *Service) CreateCheckin(ctx context.Context, eventID string, lat, lon float64, address string) (*models.Checkin, error) {
	participantID := requestcontext.UserID(ctx)
	if participantID == "" {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "caller identity is required")
	}
	if eventID == "" {
		return nil, dErrors.New(dErrors.CodeBadRequest, "event id is required")
	}

	id, err := s.ids.NextID(ctx, sequence.CategoryCheckin)
	if err != nil {
		return nil, err
	}

	var checkin *models.Checkin
	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		event, err := s.events.FindByID(txCtx, eventID)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return dErrors.New(dErrors.CodeNotFound, "event not found")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "event lookup failed")
		}

		now := requestcontext.Now(txCtx)
		if !geo.InWindow(now, event.StartTime, event.EndTime) {
			return dErrors.New(dErrors.CodeInvalidOperation, "outside the check-in window")
		}

		reg, err := s.registrations.FindActiveByEventAndParticipant(txCtx, eventID, participantID)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return dErrors.New(dErrors.CodeInvalidOperation, "no approved registration for this event")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "registration lookup failed")
		}
		if err := reg.CanRecordCheckin(); err != nil {
			return err
		}
		if _, err := s.checkins.FindByEventAndParticipant(txCtx, eventID, participantID); err == nil {
			return dErrors.New(dErrors.CodeConflict, "participant has already checked in")
		} else if !errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.Wrap(err, dErrors.CodeInternal, "checkin lookup failed")
		}

		distance := geo.Distance(lat, lon, event.Latitude, event.Longitude)
		inRange := distance <= event.CheckinRadiusMeters
		late, minutesLate := geo.Lateness(now, event.StartTime)

		c := &models.Checkin{
			ID:             id,
			EventID:        eventID,
			ParticipantID:  participantID,
			RegistrationID: reg.ID,
			Latitude:       lat,
			Longitude:      lon,
			DistanceMeters: distance,
			IsLate:         late,
			IsValid:        inRange,
			CheckinTime:    now,
			Address:        address,
			Note:           buildNote(distance, event.CheckinRadiusMeters, inRange, minutesLate),
		}
		if err := s.checkins.Create(txCtx, c); err != nil {
			if errors.Is(err, sentinel.ErrConflict) {
				return dErrors.New(dErrors.CodeConflict, "participant has already checked in")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to create checkin")
		}

		if _, err := s.registrations.Execute(txCtx, reg.ID,
			(*regmodels.Registration).CanRecordCheckin,
			func(r *regmodels.Registration) { r.ApplyCheckin(late, now) },
		); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to update registration checkin status")
		}

		decision := "valid"
		if !inRange {
			decision = "invalid"
			s.logger.WarnContext(txCtx, "checkin outside geofence",
				"event_id", eventID,
				"participant_id", participantID,
				"distance_m", distance,
				"radius_m", event.CheckinRadiusMeters,
			)
		}
		s.emitAudit(txCtx, audit.Event{
			Action:         audit.ActionCheckinRecorded,
			ActorID:        participantID,
			EventID:        eventID,
			RegistrationID: reg.ID,
			CheckinID:      c.ID,
			Decision:       decision,
			Reason:         c.Note,
		})
		checkin = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return checkin, nil
}

// GetOwnCheckin returns the caller's check-in for an event.
func (s *Service) GetOwnCheckin(ctx context.Context, eventID string) (*models.Checkin, error) {
	participantID := requestcontext.UserID(ctx)
	if participantID == "" {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "caller identity is required")
	}
	checkin, err := s.checkins.FindByEventAndParticipant(ctx, eventID, participantID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "checkin not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "checkin lookup failed")
	}
	return checkin, nil
}

// ListForEvent returns an event's check-ins to its organizer.
func (s *Service) ListForEvent(ctx context.Context, eventID string) ([]*models.Checkin, error) {
	callerID := requestcontext.UserID(ctx)
	if callerID == "" {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "caller identity is required")
	}
	event, err := s.events.FindByID(ctx, eventID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "event not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "event lookup failed")
	}
	if event.OrganizerID != callerID {
		return nil, dErrors.New(dErrors.CodeForbidden, "only the organizer may list checkins")
	}
	checkins, err := s.checkins.ListByEvent(ctx, eventID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list checkins")
	}
	return checkins, nil
}

func buildNote(distance, radius float64, inRange bool, minutesLate int) string {
	var parts []string
	if !inRange {
		parts = append(parts, fmt.Sprintf("outside geofence: %.0fm away, %.0fm allowed", distance, radius))
	}
	if minutesLate > lateNoteThresholdMinutes {
		parts = append(parts, fmt.Sprintf("arrived %d minutes late", minutesLate))
	}
	return strings.Join(parts, "; ")
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
