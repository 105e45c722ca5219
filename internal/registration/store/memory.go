// Package store provides registration persistence. The (event, participant)
// uniqueness rule counts only non-cancelled registrations: the memory store
// keeps an active index, the postgres store a partial unique index.
package store

import (
	"context"
	"sort"
	"sync"

	"rollcall/internal/registration/models"
	"rollcall/pkg/platform/sentinel"
)

type activeKey struct {
	eventID       string
	participantID string
}

// InMemory stores registrations in a map guarded by a mutex.
type InMemory struct {
	mu            sync.Mutex
	registrations map[string]*models.Registration
	active        map[activeKey]string
}

func NewInMemory() *InMemory {
	return &InMemory{
		registrations: make(map[string]*models.Registration),
		active:        make(map[activeKey]string),
	}
}

func (s *InMemory) Create(_ context.Context, reg *models.Registration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.registrations[reg.ID]; ok {
		return sentinel.ErrConflict
	}
	key := activeKey{reg.EventID, reg.ParticipantID}
	if reg.Status.Active() {
		if _, ok := s.active[key]; ok {
			return sentinel.ErrConflict
		}
		s.active[key] = reg.ID
	}
	s.registrations[reg.ID] = cloneRegistration(reg)
	return nil
}

func (s *InMemory) FindByID(_ context.Context, id string) (*models.Registration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	reg, ok := s.registrations[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return cloneRegistration(reg), nil
}

func (s *InMemory) FindActiveByEventAndParticipant(_ context.Context, eventID, participantID string) (*models.Registration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.active[activeKey{eventID, participantID}]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return cloneRegistration(s.registrations[id]), nil
}

func (s *InMemory) ListByEvent(_ context.Context, eventID string) ([]*models.Registration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.Registration
	for _, reg := range s.registrations {
		if reg.EventID == eventID {
			out = append(out, cloneRegistration(reg))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *InMemory) ListByParticipant(_ context.Context, participantID string) ([]*models.Registration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.Registration
	for _, reg := range s.registrations {
		if reg.ParticipantID == participantID {
			out = append(out, cloneRegistration(reg))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Execute loads the registration, runs validate, and persists the result of
// mutate under the store lock, keeping the active index in step with status
// changes.
func (s *InMemory) Execute(_ context.Context, id string, validate func(*models.Registration) error, mutate func(*models.Registration)) (*models.Registration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.registrations[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	working := cloneRegistration(stored)
	if err := validate(working); err != nil {
		return nil, err
	}
	mutate(working)

	key := activeKey{working.EventID, working.ParticipantID}
	if stored.Status.Active() && !working.Status.Active() {
		delete(s.active, key)
	}
	s.registrations[id] = working
	return cloneRegistration(working), nil
}

func cloneRegistration(r *models.Registration) *models.Registration {
	copied := *r
	if r.ApprovedAt != nil {
		at := *r.ApprovedAt
		copied.ApprovedAt = &at
	}
	if r.CheckinTime != nil {
		at := *r.CheckinTime
		copied.CheckinTime = &at
	}
	return &copied
}
