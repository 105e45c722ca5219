// Package geo holds the pure computations behind check-in validation:
// great-circle distance, the check-in time window, and lateness.
package geo

import (
	"math"
	"time"
)

const earthRadiusMeters = 6_371_000

// EarlyWindow is how long before an event's start check-ins are accepted.
const EarlyWindow = 30 * time.Minute

// Distance returns the great-circle distance in meters between two points
// given in decimal degrees, using the haversine formula.
func Distance(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := radians(lat2 - lat1)
	dLon := radians(lon2 - lon1)

	sinLat := math.Sin(dLat / 2)
	sinLon := math.Sin(dLon / 2)
	a := sinLat*sinLat + math.Cos(radians(lat1))*math.Cos(radians(lat2))*sinLon*sinLon
	return 2 * earthRadiusMeters * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

// InWindow reports whether now falls within [start − EarlyWindow, end].
// Outside this window a check-in is refused outright, unlike a geofence
// violation which is recorded as invalid.
func InWindow(now, start, end time.Time) bool {
	return !now.Before(start.Add(-EarlyWindow)) && !now.After(end)
}

// Lateness reports whether a check-in at now counts as late, and by how
// many whole minutes. Any instant after start is late; the minute count
// only feeds the note text, it does not change the flag.
func Lateness(now, start time.Time) (bool, int) {
	if !now.After(start) {
		return false, 0
	}
	return true, int(now.Sub(start) / time.Minute)
}

func radians(deg float64) float64 {
	return deg * math.Pi / 180
}
