// Package store provides check-in persistence. Both implementations enforce
// at most one check-in per (event, participant): the memory store with a
// keyed map, the postgres store with a unique index.
package store

import (
	"context"
	"sort"
	"sync"

	"rollcall/internal/checkin/models"
	"rollcall/pkg/platform/sentinel"
)

type checkinKey struct {
	eventID       string
	participantID string
}

type InMemory struct {
	mu       sync.Mutex
	byID     map[string]*models.Checkin
	byTarget map[checkinKey]string
}

func NewInMemory() *InMemory {
	return &InMemory{
		byID:     make(map[string]*models.Checkin),
		byTarget: make(map[checkinKey]string),
	}
}

func (s *InMemory) Create(_ context.Context, checkin *models.Checkin) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := checkinKey{checkin.EventID, checkin.ParticipantID}
	if _, ok := s.byTarget[key]; ok {
		return sentinel.ErrConflict
	}
	if _, ok := s.byID[checkin.ID]; ok {
		return sentinel.ErrConflict
	}
	copied := *checkin
	s.byID[checkin.ID] = &copied
	s.byTarget[key] = checkin.ID
	return nil
}

func (s *InMemory) FindByEventAndParticipant(_ context.Context, eventID, participantID string) (*models.Checkin, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.byTarget[checkinKey{eventID, participantID}]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	copied := *s.byID[id]
	return &copied, nil
}

func (s *InMemory) ListByEvent(_ context.Context, eventID string) ([]*models.Checkin, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.Checkin
	for _, checkin := range s.byID {
		if checkin.EventID == eventID {
			copied := *checkin
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
