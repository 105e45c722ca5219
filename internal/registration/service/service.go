// Package service drives registrations through their approval workflow.
// Every transition that grants or returns a seat runs inside one transaction
// together with the capacity ledger mutation: if the reservation fails the
// status does not change, and vice versa.
package service

import (
	"context"
	"errors"
	"log/slog"

	"rollcall/internal/audit"
	eventmodels "rollcall/internal/event/models"
	"rollcall/internal/registration/models"
	"rollcall/internal/sequence"
	dErrors "rollcall/pkg/domain-errors"
	"rollcall/pkg/platform/sentinel"
	"rollcall/pkg/platform/tx"
	"rollcall/pkg/requestcontext"
)

type Store interface {
	Create(ctx context.Context, reg *models.Registration) error
	FindByID(ctx context.Context, id string) (*models.Registration, error)
	FindActiveByEventAndParticipant(ctx context.Context, eventID, participantID string) (*models.Registration, error)
	ListByEvent(ctx context.Context, eventID string) ([]*models.Registration, error)
	ListByParticipant(ctx context.Context, participantID string) ([]*models.Registration, error)
	Execute(ctx context.Context, id string, validate func(*models.Registration) error, mutate func(*models.Registration)) (*models.Registration, error)
}

type EventStore interface {
	FindByID(ctx context.Context, id string) (*eventmodels.Event, error)
}

// Ledger is the capacity reserve/release surface of the event feature.
type Ledger interface {
	Reserve(ctx context.Context, eventID, groupID string) (*eventmodels.Event, error)
	Release(ctx context.Context, eventID, groupID string) (*eventmodels.Event, error)
}

type IDMinter interface {
	NextID(ctx context.Context, category sequence.Category) (string, error)
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

type Service struct {
	registrations  Store
	events         EventStore
	ledger         Ledger
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

// WithTxRunner sets the transaction boundary shared with the event store.
// Defaults to an in-process mutex runner.
func WithTxRunner(runner tx.Runner) Option {
	return func(s *Service) { s.tx = runner }
}

func New(registrations Store, events EventStore, ledger Ledger, ids IDMinter, opts ...Option) *Service {
	s := &Service{
		registrations: registrations,
		events:        events,
		ledger:        ledger,
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

// Register creates a registration for the calling participant. When the
// event does not require approval the seat is reserved inline and the
// registration is created already approved; a failed reservation fails the
// whole creation.
func (s *Service) Register(ctx context.Context, eventID, groupID string) (*models.Registration, error) {
	participantID := requestcontext.UserID(ctx)
	if participantID == "" {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "caller identity is required")
	}
	if eventID == "" {
		return nil, dErrors.New(dErrors.CodeBadRequest, "event id is required")
	}

	id, err := s.ids.NextID(ctx, sequence.CategoryRegistration)
	if err != nil {
		return nil, err
	}

	var reg *models.Registration
	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		event, err := s.events.FindByID(txCtx, eventID)
		if err != nil {
			return wrapRegistrationErr(err, "event not found")
		}

		now := requestcontext.Now(txCtx)
		if err := event.RegistrationOpen(now); err != nil {
			return err
		}
		if groupID != "" && !event.HasGroup(groupID) {
			return dErrors.Newf(dErrors.CodeValidation, "event has no group %q", groupID)
		}
		if _, err := s.registrations.FindActiveByEventAndParticipant(txCtx, eventID, participantID); err == nil {
			return dErrors.New(dErrors.CodeConflict, "participant already registered for this event")
		} else if !errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.Wrap(err, dErrors.CodeInternal, "registration lookup failed")
		}

		r, err := models.NewRegistration(id, eventID, participantID, groupID, now)
		if err != nil {
			return err
		}
		if !event.RequiresApproval {
			if _, err := s.ledger.Reserve(txCtx, eventID, groupID); err != nil {
				return err
			}
			r.ApplyApprove(now)
		}

		if err := s.registrations.Create(txCtx, r); err != nil {
			if errors.Is(err, sentinel.ErrConflict) {
				return dErrors.New(dErrors.CodeConflict, "participant already registered for this event")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to create registration")
		}

		s.emitAudit(txCtx, audit.Event{
			Action:         audit.ActionRegistrationCreated,
			ActorID:        participantID,
			EventID:        eventID,
			RegistrationID: r.ID,
			Decision:       string(r.Status),
		})
		reg = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	return reg, nil
}

// Approve grants a pending registration its seat. Only the event organizer
// may call it. The reservation happens before the status write, so a full
// event leaves the registration pending.
func (s *Service) Approve(ctx context.Context, registrationID string) (*models.Registration, error) {
	return s.decide(ctx, registrationID, true)
}

// Reject turns down a pending registration without touching capacity.
func (s *Service) Reject(ctx context.Context, registrationID string) (*models.Registration, error) {
	return s.decide(ctx, registrationID, false)
}

func (s *Service) decide(ctx context.Context, registrationID string, approve bool) (*models.Registration, error) {
	callerID := requestcontext.UserID(ctx)
	if callerID == "" {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "caller identity is required")
	}
	if registrationID == "" {
		return nil, dErrors.New(dErrors.CodeBadRequest, "registration id is required")
	}

	var reg *models.Registration
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		current, err := s.registrations.FindByID(txCtx, registrationID)
		if err != nil {
			return wrapRegistrationErr(err, "registration not found")
		}
		event, err := s.events.FindByID(txCtx, current.EventID)
		if err != nil {
			return wrapRegistrationErr(err, "event not found")
		}
		if event.OrganizerID != callerID {
			return dErrors.New(dErrors.CodeForbidden, "only the organizer may decide registrations")
		}

		now := requestcontext.Now(txCtx)
		if approve {
			if err := current.CanApprove(); err != nil {
				return err
			}
			if _, err := s.ledger.Reserve(txCtx, current.EventID, current.GroupID); err != nil {
				return err
			}
			reg, err = s.registrations.Execute(txCtx, registrationID,
				(*models.Registration).CanApprove,
				func(r *models.Registration) { r.ApplyApprove(now) },
			)
		} else {
			reg, err = s.registrations.Execute(txCtx, registrationID,
				(*models.Registration).CanReject,
				func(r *models.Registration) { r.ApplyReject(now) },
			)
		}
		if err != nil {
			return wrapRegistrationErr(err, "registration transition failed")
		}

		action := audit.ActionRegistrationRejected
		if approve {
			action = audit.ActionRegistrationApproved
		}
		s.emitAudit(txCtx, audit.Event{
			Action:         action,
			ActorID:        callerID,
			EventID:        reg.EventID,
			RegistrationID: reg.ID,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return reg, nil
}

// Cancel withdraws a registration. The participant may cancel their own;
// the organizer may cancel any. Cancelling an approved registration
// releases its seat in the same transaction. Registrations on a finished
// event cannot be cancelled.
func (s *Service) Cancel(ctx context.Context, registrationID string) (*models.Registration, error) {
	callerID := requestcontext.UserID(ctx)
	if callerID == "" {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "caller identity is required")
	}
	if registrationID == "" {
		return nil, dErrors.New(dErrors.CodeBadRequest, "registration id is required")
	}

	var reg *models.Registration
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		current, err := s.registrations.FindByID(txCtx, registrationID)
		if err != nil {
			return wrapRegistrationErr(err, "registration not found")
		}
		event, err := s.events.FindByID(txCtx, current.EventID)
		if err != nil {
			return wrapRegistrationErr(err, "event not found")
		}
		if callerID != current.ParticipantID && callerID != event.OrganizerID {
			return dErrors.New(dErrors.CodeForbidden, "not allowed to cancel this registration")
		}
		if event.Status == eventmodels.StatusFinished {
			return dErrors.New(dErrors.CodeInvalidOperation, "cannot cancel a registration on a finished event")
		}
		if err := current.CanCancel(); err != nil {
			return err
		}

		if current.Status == models.StatusApproved {
			if _, err := s.ledger.Release(txCtx, current.EventID, current.GroupID); err != nil {
				return err
			}
		}

		now := requestcontext.Now(txCtx)
		reg, err = s.registrations.Execute(txCtx, registrationID,
			(*models.Registration).CanCancel,
			func(r *models.Registration) { r.ApplyCancel(now) },
		)
		if err != nil {
			return wrapRegistrationErr(err, "registration transition failed")
		}

		s.emitAudit(txCtx, audit.Event{
			Action:         audit.ActionRegistrationCancelled,
			ActorID:        callerID,
			EventID:        reg.EventID,
			RegistrationID: reg.ID,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return reg, nil
}

// GetRegistration returns one registration to its participant or the event
// organizer.
func (s *Service) GetRegistration(ctx context.Context, registrationID string) (*models.Registration, error) {
	callerID := requestcontext.UserID(ctx)
	if callerID == "" {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "caller identity is required")
	}
	reg, err := s.registrations.FindByID(ctx, registrationID)
	if err != nil {
		return nil, wrapRegistrationErr(err, "registration not found")
	}
	if callerID != reg.ParticipantID {
		event, err := s.events.FindByID(ctx, reg.EventID)
		if err != nil {
			return nil, wrapRegistrationErr(err, "event not found")
		}
		if callerID != event.OrganizerID {
			return nil, dErrors.New(dErrors.CodeForbidden, "not allowed to view this registration")
		}
	}
	return reg, nil
}

// ListForEvent returns an event's registrations to its organizer.
func (s *Service) ListForEvent(ctx context.Context, eventID string) ([]*models.Registration, error) {
	callerID := requestcontext.UserID(ctx)
	if callerID == "" {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "caller identity is required")
	}
	event, err := s.events.FindByID(ctx, eventID)
	if err != nil {
		return nil, wrapRegistrationErr(err, "event not found")
	}
	if event.OrganizerID != callerID {
		return nil, dErrors.New(dErrors.CodeForbidden, "only the organizer may list registrations")
	}
	regs, err := s.registrations.ListByEvent(ctx, eventID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list registrations")
	}
	return regs, nil
}

// ListOwn returns the caller's registrations across events.
func (s *Service) ListOwn(ctx context.Context) ([]*models.Registration, error) {
	callerID := requestcontext.UserID(ctx)
	if callerID == "" {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "caller identity is required")
	}
	regs, err := s.registrations.ListByParticipant(ctx, callerID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list registrations")
	}
	return regs, nil
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

func wrapRegistrationErr(err error, notFoundMsg string) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeNotFound, notFoundMsg)
	}
	var domainErr *dErrors.Error
	if errors.As(err, &domainErr) {
		return err
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, "registration operation failed")
}
