// Package metrics exposes Prometheus counters for the event capacity ledger.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	EventsCreated      prometheus.Counter
	Reservations       prometheus.Counter
	Releases           prometheus.Counter
	CapacityRejections prometheus.Counter
	CapacityFallbacks  prometheus.Counter
}

func New() *Metrics {
	return &Metrics{
		EventsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "rollcall_events_created_total",
			Help: "Events created.",
		}),
		Reservations: promauto.NewCounter(prometheus.CounterOpts{
			Name: "rollcall_capacity_reservations_total",
			Help: "Successful seat reservations.",
		}),
		Releases: promauto.NewCounter(prometheus.CounterOpts{
			Name: "rollcall_capacity_releases_total",
			Help: "Seat releases.",
		}),
		CapacityRejections: promauto.NewCounter(prometheus.CounterOpts{
			Name: "rollcall_capacity_rejections_total",
			Help: "Reservations denied because the event was full.",
		}),
		CapacityFallbacks: promauto.NewCounter(prometheus.CounterOpts{
			Name: "rollcall_capacity_fallbacks_total",
			Help: "Times a non-positive stored capacity was treated as one.",
		}),
	}
}
