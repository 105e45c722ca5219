// Package models holds the registration aggregate: a participant's claim on
// one unit of an event's capacity, with an approval workflow.
package models

import (
	"time"

	dErrors "rollcall/pkg/domain-errors"
)

// Registration is never physically deleted; cancellation is a status.
//
// Invariants:
//   - At most one non-cancelled registration per (event, participant),
//     enforced by the store.
//   - Status changes that grant or return a seat are paired with the
//     capacity ledger mutation in one transaction.
type Registration struct {
	ID            string        `json:"id"`
	EventID       string        `json:"event_id"`
	ParticipantID string        `json:"participant_id"`
	GroupID       string        `json:"group_id,omitempty"`
	Status        Status        `json:"status"`
	CheckinStatus CheckinStatus `json:"checkin_status"`
	RegisteredAt  time.Time     `json:"registered_at"`
	ApprovedAt    *time.Time    `json:"approved_at,omitempty"`
	CheckinTime   *time.Time    `json:"checkin_time,omitempty"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

func NewRegistration(id, eventID, participantID, groupID string, now time.Time) (*Registration, error) {
	if eventID == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "registration event is required")
	}
	if participantID == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "registration participant is required")
	}
	return &Registration{
		ID:            id,
		EventID:       eventID,
		ParticipantID: participantID,
		GroupID:       groupID,
		Status:        StatusPending,
		CheckinStatus: CheckinPending,
		RegisteredAt:  now,
		UpdatedAt:     now,
	}, nil
}

func (r *Registration) CanApprove() error {
	if !r.Status.CanTransitionTo(StatusApproved) {
		return dErrors.Newf(dErrors.CodeInvalidOperation, "cannot approve a %s registration", r.Status)
	}
	return nil
}

func (r *Registration) ApplyApprove(now time.Time) {
	r.Status = StatusApproved
	r.ApprovedAt = &now
	r.UpdatedAt = now
}

func (r *Registration) CanReject() error {
	if !r.Status.CanTransitionTo(StatusRejected) {
		return dErrors.Newf(dErrors.CodeInvalidOperation, "cannot reject a %s registration", r.Status)
	}
	return nil
}

func (r *Registration) ApplyReject(now time.Time) {
	r.Status = StatusRejected
	r.UpdatedAt = now
}

func (r *Registration) CanCancel() error {
	if !r.Status.CanTransitionTo(StatusCancelled) {
		return dErrors.Newf(dErrors.CodeInvalidOperation, "cannot cancel a %s registration", r.Status)
	}
	return nil
}

func (r *Registration) ApplyCancel(now time.Time) {
	r.Status = StatusCancelled
	r.UpdatedAt = now
}

// CanRecordCheckin guards the check-in path: only an approved registration
// that has not yet checked in qualifies.
func (r *Registration) CanRecordCheckin() error {
	if r.Status != StatusApproved {
		return dErrors.Newf(dErrors.CodeInvalidOperation, "registration is %s, not approved", r.Status)
	}
	if r.CheckinStatus != CheckinPending {
		return dErrors.New(dErrors.CodeConflict, "participant has already checked in")
	}
	return nil
}

// ApplyCheckin marks the registration checked or late.
func (r *Registration) ApplyCheckin(late bool, now time.Time) {
	if late {
		r.CheckinStatus = CheckinLate
	} else {
		r.CheckinStatus = CheckinChecked
	}
	r.CheckinTime = &now
	r.UpdatedAt = now
}
