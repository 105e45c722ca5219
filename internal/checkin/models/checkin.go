// Package models holds the check-in record: a one-time proof of presence
// tied to GPS coordinates and the event's time window.
package models

import "time"

// Checkin is written once and never mutated. At most one exists per
// (event, participant).
//
// IsValid records the geofence outcome: an out-of-range check-in is stored
// with IsValid=false rather than rejected. Only the time window is a hard
// refusal, so that asymmetry lives in the service, not here.
type Checkin struct {
	ID             string    `json:"id"`
	EventID        string    `json:"event_id"`
	ParticipantID  string    `json:"participant_id"`
	RegistrationID string    `json:"registration_id"`
	Latitude       float64   `json:"latitude"`
	Longitude      float64   `json:"longitude"`
	DistanceMeters float64   `json:"distance_meters"`
	IsLate         bool      `json:"is_late"`
	IsValid        bool      `json:"is_valid"`
	CheckinTime    time.Time `json:"checkin_time"`
	Address        string    `json:"address,omitempty"`
	Note           string    `json:"note,omitempty"`
}
