package models

// Status is the approval state of a registration. rejected and cancelled
// are terminal; approved can still be cancelled.
type Status string

const (
	StatusPending   Status = "pending"
	StatusApproved  Status = "approved"
	StatusRejected  Status = "rejected"
	StatusCancelled Status = "cancelled"
)

var statusTransitions = map[Status][]Status{
	StatusPending:   {StatusApproved, StatusRejected, StatusCancelled},
	StatusApproved:  {StatusCancelled},
	StatusRejected:  {},
	StatusCancelled: {},
}

func (s Status) Valid() bool {
	_, ok := statusTransitions[s]
	return ok
}

func (s Status) CanTransitionTo(target Status) bool {
	for _, allowed := range statusTransitions[s] {
		if allowed == target {
			return true
		}
	}
	return false
}

// Active reports whether the registration still claims, or may come to
// claim, a seat. The (event, participant) uniqueness rule counts only
// active registrations.
func (s Status) Active() bool {
	return s == StatusPending || s == StatusApproved
}

// CheckinStatus tracks whether the participant has checked in.
type CheckinStatus string

const (
	CheckinPending CheckinStatus = "pending"
	CheckinChecked CheckinStatus = "checked"
	CheckinLate    CheckinStatus = "late"
)
