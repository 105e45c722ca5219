package models

// Status is the lifecycle state of an event.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusPublished Status = "published"
	StatusOngoing   Status = "ongoing"
	StatusFinished  Status = "finished"
	StatusCancelled Status = "cancelled"
)

var statusTransitions = map[Status][]Status{
	StatusDraft:     {StatusPublished, StatusCancelled},
	StatusPublished: {StatusOngoing, StatusFinished, StatusCancelled},
	StatusOngoing:   {StatusFinished, StatusCancelled},
	StatusFinished:  {},
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

// AcceptsRegistrations reports whether participants may register in this
// state.
func (s Status) AcceptsRegistrations() bool {
	return s == StatusPublished || s == StatusOngoing
}
