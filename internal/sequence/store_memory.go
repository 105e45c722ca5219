package sequence

import (
	"context"
	"sync"

	"rollcall/pkg/platform/sentinel"
)

type counterKey struct {
	category Category
	dateKey  string
}

// InMemoryStore keeps counters in a map. The mutex makes each individual
// operation atomic; races between operations surface as ErrConflict/ErrStale
// exactly like the SQL implementation, so the allocator's retry loop gets
// exercised for real in tests.
type InMemoryStore struct {
	mu       sync.Mutex
	counters map[counterKey]int
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{counters: make(map[counterKey]int)}
}

func (s *InMemoryStore) Find(_ context.Context, category Category, dateKey string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	value, ok := s.counters[counterKey{category, dateKey}]
	if !ok {
		return 0, sentinel.ErrNotFound
	}
	return value, nil
}

func (s *InMemoryStore) Create(_ context.Context, category Category, dateKey string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := counterKey{category, dateKey}
	if _, ok := s.counters[key]; ok {
		return sentinel.ErrConflict
	}
	s.counters[key] = 0
	return nil
}

func (s *InMemoryStore) CompareAndSwap(_ context.Context, category Category, dateKey string, expected, next int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := counterKey{category, dateKey}
	value, ok := s.counters[key]
	if !ok || value != expected {
		return sentinel.ErrStale
	}
	s.counters[key] = next
	return nil
}

func (s *InMemoryStore) DeleteBefore(_ context.Context, cutoff string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	deleted := 0
	for key := range s.counters {
		if key.dateKey < cutoff {
			delete(s.counters, key)
			deleted++
		}
	}
	return deleted, nil
}
