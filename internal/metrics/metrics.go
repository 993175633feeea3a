package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	reservationsCreated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "slotnik",
			Name:      "reservations_created_total",
			Help:      "Reservations successfully created.",
		},
	)

	slotConflicts = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "slotnik",
			Name:      "slot_conflicts_total",
			Help:      "Booking attempts rejected as unavailable, including lost insert races.",
		},
	)

	transitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "slotnik",
			Name:      "transitions_total",
			Help:      "Reservation transitions by action and outcome.",
		},
		[]string{"action", "outcome"},
	)

	paymentFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "slotnik",
			Name:      "payment_failures_total",
			Help:      "Failed payment collaborator calls by operation.",
		},
		[]string{"op"},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "slotnik",
			Name:      "http_requests_total",
			Help:      "HTTP requests by endpoint.",
		},
		[]string{"endpoint"},
	)
)

// Register registers Prometheus metrics. Safe to call multiple times.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(reservationsCreated, slotConflicts, transitions, paymentFailures, httpRequests)
	})
}

func IncReservationCreated() {
	reservationsCreated.Inc()
}

func IncConflict() {
	slotConflicts.Inc()
}

func IncTransition(action, outcome string) {
	transitions.WithLabelValues(action, outcome).Inc()
}

func IncPaymentFailure(op string) {
	paymentFailures.WithLabelValues(op).Inc()
}

// IncHTTP increments the counter for an endpoint label.
func IncHTTP(endpoint string) {
	httpRequests.WithLabelValues(endpoint).Inc()
}
