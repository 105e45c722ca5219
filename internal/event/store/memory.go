// Package store provides event persistence. Both implementations guarantee
// that Execute holds the event exclusively across validation and mutation:
// the memory store with its mutex, the postgres store with SELECT FOR
// UPDATE.
package store

import (
	"context"
	"sort"
	"sync"

	"rollcall/internal/event/models"
	"rollcall/pkg/platform/sentinel"
)

// InMemory stores events in a map guarded by a mutex.
type InMemory struct {
	mu     sync.Mutex
	events map[string]*models.Event
}

func NewInMemory() *InMemory {
	return &InMemory{events: make(map[string]*models.Event)}
}

func (s *InMemory) Create(_ context.Context, event *models.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.events[event.ID]; ok {
		return sentinel.ErrConflict
	}
	s.events[event.ID] = clone(event)
	return nil
}

func (s *InMemory) FindByID(_ context.Context, id string) (*models.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	event, ok := s.events[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return clone(event), nil
}

func (s *InMemory) ListByOrganizer(_ context.Context, organizerID string) ([]*models.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.Event
	for _, event := range s.events {
		if event.OrganizerID == organizerID {
			out = append(out, clone(event))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Execute loads the event, runs validate, and persists the result of mutate,
// all under the store lock. Callbacks see a copy, so a validation failure
// leaves the stored event untouched.
func (s *InMemory) Execute(_ context.Context, id string, validate func(*models.Event) error, mutate func(*models.Event)) (*models.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.events[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	working := clone(stored)
	if err := validate(working); err != nil {
		return nil, err
	}
	mutate(working)
	s.events[id] = working
	return clone(working), nil
}

func clone(e *models.Event) *models.Event {
	copied := *e
	if e.Groups != nil {
		copied.Groups = make([]models.Group, len(e.Groups))
		copy(copied.Groups, e.Groups)
	}
	if e.RegistrationDeadline != nil {
		deadline := *e.RegistrationDeadline
		copied.RegistrationDeadline = &deadline
	}
	return &copied
}
