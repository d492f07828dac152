package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	bookingTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fixam",
			Name:      "booking_transitions_total",
			Help:      "Booking lifecycle transitions by action and outcome.",
		},
		[]string{"action", "outcome"},
	)

	notificationsDispatched = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fixam",
			Name:      "notifications_dispatched_total",
			Help:      "Notifications persisted by type.",
		},
		[]string{"type"},
	)

	cacheRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fixam",
			Name:      "cache_requests_total",
			Help:      "Cache router lookups by partition and result.",
		},
		[]string{"partition", "result"},
	)

	outboxReplays = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fixam",
			Name:      "outbox_replays_total",
			Help:      "Outbox replay attempts by result.",
		},
		[]string{"result"},
	)

	outboxDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "fixam",
			Name:      "outbox_depth",
			Help:      "Entries currently queued in the outbox.",
		},
	)
)

// Register registers Prometheus metrics. Safe to call multiple times.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(
			bookingTransitions,
			notificationsDispatched,
			cacheRequests,
			outboxReplays,
			outboxDepth,
		)
	})
}

// IncTransition counts a booking transition attempt.
func IncTransition(action, outcome string) {
	bookingTransitions.WithLabelValues(action, outcome).Inc()
}

// IncNotification counts a dispatched notification.
func IncNotification(typ string) {
	notificationsDispatched.WithLabelValues(typ).Inc()
}

// IncCache counts a cache router lookup.
func IncCache(partition, result string) {
	cacheRequests.WithLabelValues(partition, result).Inc()
}

// IncReplay counts an outbox replay result (sent, dropped, retained).
func IncReplay(result string) {
	outboxReplays.WithLabelValues(result).Inc()
}

// SetOutboxDepth records the current queue depth.
func SetOutboxDepth(n int) {
	outboxDepth.Set(float64(n))
}
