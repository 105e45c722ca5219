// Package models holds the event aggregate: lifecycle status, the capacity
// counters that back the registration workflow, and the geofence/time-window
// attributes consulted at check-in.
package models

import (
	"time"

	dErrors "rollcall/pkg/domain-errors"
)

// Group is a named sub-pool of an event's capacity. Groups are embedded in
// the event record and mutated under the same lock as the parent counters.
type Group struct {
	ID        string `json:"id"`
	Capacity  int    `json:"capacity"`
	Occupancy int    `json:"occupancy"`
}

// Event is the aggregate root for a registrable activity.
//
// Invariants:
//   - Occupancy is a cached counter kept equal to the number of approved
//     registrations; it is updated in the same transaction as each
//     registration status transition, never recomputed from a live query.
//   - Occupancy never exceeds EffectiveCapacity and never goes below zero.
//   - Status transitions follow statusTransitions; finished and cancelled
//     are terminal.
//   - Only the organizer may mutate the event.
type Event struct {
	ID                   string     `json:"id"`
	OrganizerID          string     `json:"organizer_id"`
	Title                string     `json:"title"`
	Status               Status     `json:"status"`
	CapacityTotal        int        `json:"capacity_total"`
	Occupancy            int        `json:"occupancy"`
	RequiresApproval     bool       `json:"requires_approval"`
	Groups               []Group    `json:"groups,omitempty"`
	Latitude             float64    `json:"latitude"`
	Longitude            float64    `json:"longitude"`
	CheckinRadiusMeters  float64    `json:"checkin_radius_meters"`
	StartTime            time.Time  `json:"start_time"`
	EndTime              time.Time  `json:"end_time"`
	RegistrationDeadline *time.Time `json:"registration_deadline,omitempty"`
	CreatedAt            time.Time  `json:"created_at"`
	UpdatedAt            time.Time  `json:"updated_at"`
}

// NewEvent constructs a draft event. Creation rejects a non-positive
// capacity outright; the EffectiveCapacity fallback exists only for rows
// that were corrupted after the fact.
func NewEvent(id, organizerID, title string, capacity int, start, end time.Time) (*Event, error) {
	if organizerID == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "event organizer is required")
	}
	if title == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "event title cannot be empty")
	}
	if capacity <= 0 {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "event capacity must be positive")
	}
	if !end.After(start) {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "event end time must be after start time")
	}
	return &Event{
		ID:            id,
		OrganizerID:   organizerID,
		Title:         title,
		Status:        StatusDraft,
		CapacityTotal: capacity,
		StartTime:     start,
		EndTime:       end,
	}, nil
}

// EffectiveCapacity returns the capacity bound used for reservations. A
// non-positive stored capacity is treated as 1 so corrupted data neither
// grants unlimited seats nor reads as permanently full; the second return
// reports whether the fallback fired so the caller can log it.
func (e *Event) EffectiveCapacity() (int, bool) {
	if e.CapacityTotal <= 0 {
		return 1, true
	}
	return e.CapacityTotal, false
}

// CanReserve checks whether one more seat may be granted.
func (e *Event) CanReserve() error {
	capacity, _ := e.EffectiveCapacity()
	if e.Occupancy >= capacity {
		return dErrors.New(dErrors.CodeCapacityExceeded, "event is at capacity")
	}
	return nil
}

// ApplyReserve increments occupancy and, when groupID is set, the matching
// group's sub-occupancy. It reports whether the group was found; a missing
// group is tolerated because groups can be removed after registrations
// reference them. Call CanReserve first.
func (e *Event) ApplyReserve(groupID string, now time.Time) bool {
	e.Occupancy++
	e.UpdatedAt = now
	if groupID == "" {
		return true
	}
	for i := range e.Groups {
		if e.Groups[i].ID == groupID {
			e.Groups[i].Occupancy++
			return true
		}
	}
	return false
}

// ApplyRelease decrements occupancy (and the group's sub-occupancy), both
// clamped at zero. It reports whether the group was found.
func (e *Event) ApplyRelease(groupID string, now time.Time) bool {
	if e.Occupancy > 0 {
		e.Occupancy--
	}
	e.UpdatedAt = now
	if groupID == "" {
		return true
	}
	for i := range e.Groups {
		if e.Groups[i].ID == groupID {
			if e.Groups[i].Occupancy > 0 {
				e.Groups[i].Occupancy--
			}
			return true
		}
	}
	return false
}

// HasGroup reports whether the event defines the given group.
func (e *Event) HasGroup(groupID string) bool {
	for _, g := range e.Groups {
		if g.ID == groupID {
			return true
		}
	}
	return false
}

func (e *Event) CanPublish() error {
	if !e.Status.CanTransitionTo(StatusPublished) {
		return dErrors.Newf(dErrors.CodeInvariantViolation, "cannot publish a %s event", e.Status)
	}
	return nil
}

func (e *Event) ApplyPublish(now time.Time) {
	e.Status = StatusPublished
	e.UpdatedAt = now
}

func (e *Event) CanStart() error {
	if !e.Status.CanTransitionTo(StatusOngoing) {
		return dErrors.Newf(dErrors.CodeInvariantViolation, "cannot start a %s event", e.Status)
	}
	return nil
}

func (e *Event) ApplyStart(now time.Time) {
	e.Status = StatusOngoing
	e.UpdatedAt = now
}

func (e *Event) CanFinish() error {
	if !e.Status.CanTransitionTo(StatusFinished) {
		return dErrors.Newf(dErrors.CodeInvariantViolation, "cannot finish a %s event", e.Status)
	}
	return nil
}

func (e *Event) ApplyFinish(now time.Time) {
	e.Status = StatusFinished
	e.UpdatedAt = now
}

func (e *Event) CanCancel() error {
	if !e.Status.CanTransitionTo(StatusCancelled) {
		return dErrors.Newf(dErrors.CodeInvariantViolation, "cannot cancel a %s event", e.Status)
	}
	return nil
}

func (e *Event) ApplyCancel(now time.Time) {
	e.Status = StatusCancelled
	e.UpdatedAt = now
}

// RegistrationOpen reports whether a new registration may be created at now:
// the event accepts registrations and the deadline, when set, has not
// passed.
func (e *Event) RegistrationOpen(now time.Time) error {
	if !e.Status.AcceptsRegistrations() {
		return dErrors.Newf(dErrors.CodeInvalidOperation, "event is %s", e.Status)
	}
	if e.RegistrationDeadline != nil && !now.Before(*e.RegistrationDeadline) {
		return dErrors.New(dErrors.CodeInvalidOperation, "registration deadline has passed")
	}
	return nil
}
