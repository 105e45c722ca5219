package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "rollcall/pkg/domain-errors"
)

func validEvent(t *testing.T) *Event {
	t.Helper()
	start := time.Date(2025, 11, 16, 10, 0, 0, 0, time.UTC)
	event, err := NewEvent("E20251116000001", "org-1", "Morning Run", 3, start, start.Add(2*time.Hour))
	require.NoError(t, err)
	return event
}

func TestNewEvent_Validation(t *testing.T) {
	start := time.Date(2025, 11, 16, 10, 0, 0, 0, time.UTC)
	end := start.Add(time.Hour)

	cases := []struct {
		name      string
		organizer string
		title     string
		capacity  int
		end       time.Time
	}{
		{"missing organizer", "", "Run", 1, end},
		{"empty title", "org-1", "", 1, end},
		{"zero capacity", "org-1", "Run", 0, end},
		{"negative capacity", "org-1", "Run", -5, end},
		{"end before start", "org-1", "Run", 1, start.Add(-time.Hour)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewEvent("E20251116000001", tc.organizer, tc.title, tc.capacity, start, tc.end)
			assert.True(t, dErrors.HasCode(err, dErrors.CodeInvariantViolation))
		})
	}
}

func TestEffectiveCapacity_FallsBackToOne(t *testing.T) {
	event := validEvent(t)

	capacity, fallback := event.EffectiveCapacity()
	assert.Equal(t, 3, capacity)
	assert.False(t, fallback)

	event.CapacityTotal = 0
	capacity, fallback = event.EffectiveCapacity()
	assert.Equal(t, 1, capacity)
	assert.True(t, fallback)

	event.CapacityTotal = -7
	capacity, fallback = event.EffectiveCapacity()
	assert.Equal(t, 1, capacity)
	assert.True(t, fallback)
}

func TestReserveRelease(t *testing.T) {
	now := time.Date(2025, 11, 16, 9, 0, 0, 0, time.UTC)

	t.Run("reserve fails at capacity", func(t *testing.T) {
		event := validEvent(t)
		for range 3 {
			require.NoError(t, event.CanReserve())
			event.ApplyReserve("", now)
		}
		err := event.CanReserve()
		assert.True(t, dErrors.HasCode(err, dErrors.CodeCapacityExceeded))
		assert.Equal(t, 3, event.Occupancy)
	})

	t.Run("group sub-occupancy tracks reservations", func(t *testing.T) {
		event := validEvent(t)
		event.Groups = []Group{{ID: "beginners", Capacity: 2}}

		found := event.ApplyReserve("beginners", now)
		assert.True(t, found)
		assert.Equal(t, 1, event.Occupancy)
		assert.Equal(t, 1, event.Groups[0].Occupancy)

		found = event.ApplyRelease("beginners", now)
		assert.True(t, found)
		assert.Equal(t, 0, event.Occupancy)
		assert.Equal(t, 0, event.Groups[0].Occupancy)
	})

	t.Run("missing group is tolerated", func(t *testing.T) {
		event := validEvent(t)
		found := event.ApplyReserve("gone", now)
		assert.False(t, found)
		assert.Equal(t, 1, event.Occupancy, "seat still counts against the event total")
	})

	t.Run("release clamps at zero", func(t *testing.T) {
		event := validEvent(t)
		event.Groups = []Group{{ID: "g", Capacity: 1}}
		event.ApplyRelease("g", now)
		assert.Equal(t, 0, event.Occupancy)
		assert.Equal(t, 0, event.Groups[0].Occupancy)
	})
}

func TestStatusTransitions(t *testing.T) {
	now := time.Date(2025, 11, 16, 9, 0, 0, 0, time.UTC)

	t.Run("full lifecycle", func(t *testing.T) {
		event := validEvent(t)
		require.NoError(t, event.CanPublish())
		event.ApplyPublish(now)
		require.NoError(t, event.CanStart())
		event.ApplyStart(now)
		require.NoError(t, event.CanFinish())
		event.ApplyFinish(now)
		assert.Equal(t, StatusFinished, event.Status)
	})

	t.Run("terminal states refuse transitions", func(t *testing.T) {
		event := validEvent(t)
		event.Status = StatusFinished
		assert.Error(t, event.CanPublish())
		assert.Error(t, event.CanCancel())

		event.Status = StatusCancelled
		assert.Error(t, event.CanFinish())
	})

	t.Run("draft cannot start or finish", func(t *testing.T) {
		event := validEvent(t)
		assert.Error(t, event.CanStart())
		assert.Error(t, event.CanFinish())
	})
}

func TestRegistrationOpen(t *testing.T) {
	now := time.Date(2025, 11, 16, 9, 0, 0, 0, time.UTC)

	t.Run("draft event refuses registration", func(t *testing.T) {
		event := validEvent(t)
		err := event.RegistrationOpen(now)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidOperation))
	})

	t.Run("published event accepts registration", func(t *testing.T) {
		event := validEvent(t)
		event.Status = StatusPublished
		assert.NoError(t, event.RegistrationOpen(now))
	})

	t.Run("deadline closes registration", func(t *testing.T) {
		event := validEvent(t)
		event.Status = StatusPublished
		deadline := now.Add(-time.Minute)
		event.RegistrationDeadline = &deadline

		err := event.RegistrationOpen(now)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidOperation))
	})
}
