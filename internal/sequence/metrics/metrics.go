package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics tracks allocator behavior. Retries are the early-warning signal for
// counter contention; exhaustions mean callers saw hard failures.
type Metrics struct {
	Allocations *prometheus.CounterVec
	Retries     prometheus.Counter
	Exhaustions prometheus.Counter
}

// New creates and registers the sequence metrics.
func New() *Metrics {
	return &Metrics{
		Allocations: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "rollcall_sequence_allocations_total",
			Help: "Sequences successfully allocated, by category.",
		}, []string{"category"}),
		Retries: promauto.NewCounter(prometheus.CounterOpts{
			Name: "rollcall_sequence_cas_retries_total",
			Help: "Compare-and-swap attempts that lost the race and retried.",
		}),
		Exhaustions: promauto.NewCounter(prometheus.CounterOpts{
			Name: "rollcall_sequence_retry_exhaustions_total",
			Help: "Allocations that failed after the retry bound.",
		}),
	}
}
