// Package audit captures domain actions as append-only events. Services emit
// through a Publisher; sinks fan out to memory, postgres, or Kafka.
package audit

import "time"

// Action names the domain transition an event records.
type Action string

const (
	ActionEventCreated   Action = "event_created"
	ActionEventPublished Action = "event_published"
	ActionEventStarted   Action = "event_started"
	ActionEventFinished  Action = "event_finished"
	ActionEventCancelled Action = "event_cancelled"

	ActionRegistrationCreated   Action = "registration_created"
	ActionRegistrationApproved  Action = "registration_approved"
	ActionRegistrationRejected  Action = "registration_rejected"
	ActionRegistrationCancelled Action = "registration_cancelled"

	ActionCheckinRecorded Action = "checkin_recorded"
)

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	Timestamp time.Time `json:"timestamp"`
	Action    Action    `json:"action"`
	// ActorID is the authenticated user who performed the action.
	ActorID string `json:"actor_id,omitempty"`
	// EventID is the event the action concerns, when any.
	EventID        string `json:"event_id,omitempty"`
	RegistrationID string `json:"registration_id,omitempty"`
	CheckinID      string `json:"checkin_id,omitempty"`
	// Decision records the outcome for actions that can go either way,
	// for example an out-of-range check-in that was stored as invalid.
	Decision  string `json:"decision,omitempty"`
	Reason    string `json:"reason,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}
