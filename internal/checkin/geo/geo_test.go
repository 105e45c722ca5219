package geo

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDistance(t *testing.T) {
	t.Run("identical points", func(t *testing.T) {
		assert.Zero(t, Distance(0, 0, 0, 0))
		assert.Zero(t, Distance(52.52, 13.405, 52.52, 13.405))
	})

	t.Run("symmetric", func(t *testing.T) {
		forward := Distance(52.52, 13.405, 48.8566, 2.3522)
		backward := Distance(48.8566, 2.3522, 52.52, 13.405)
		assert.InDelta(t, forward, backward, 1e-9)
	})

	t.Run("known separation", func(t *testing.T) {
		// 0.009 degrees of latitude is very close to 1000m.
		got := Distance(0, 0, 0.009, 0)
		assert.InEpsilon(t, 1000.0, got, 0.01)
	})

	t.Run("hemisphere crossing", func(t *testing.T) {
		got := Distance(-0.0045, 0, 0.0045, 0)
		assert.InEpsilon(t, 1000.0, got, 0.01)
	})
}

func TestInWindow(t *testing.T) {
	start := time.Date(2025, 11, 16, 10, 0, 0, 0, time.UTC)
	end := start.Add(2 * time.Hour)

	cases := []struct {
		name string
		now  time.Time
		want bool
	}{
		{"too early", start.Add(-40 * time.Minute), false},
		{"window opens", start.Add(-30 * time.Minute), true},
		{"just before start", start.Add(-time.Minute), true},
		{"at start", start, true},
		{"mid event", start.Add(time.Hour), true},
		{"at end", end, true},
		{"after end", end.Add(time.Second), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, InWindow(tc.now, start, end))
		})
	}
}

func TestLateness(t *testing.T) {
	start := time.Date(2025, 11, 16, 10, 0, 0, 0, time.UTC)

	t.Run("before start is on time", func(t *testing.T) {
		late, minutes := Lateness(start.Add(-10*time.Minute), start)
		assert.False(t, late)
		assert.Zero(t, minutes)
	})

	t.Run("exactly at start is on time", func(t *testing.T) {
		late, _ := Lateness(start, start)
		assert.False(t, late)
	})

	t.Run("any instant after start is late", func(t *testing.T) {
		late, minutes := Lateness(start.Add(time.Second), start)
		assert.True(t, late)
		assert.Zero(t, minutes)

		late, minutes = Lateness(start.Add(90*time.Minute), start)
		assert.True(t, late)
		assert.Equal(t, 90, minutes)
	})
}
