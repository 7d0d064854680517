// Package metrics provides Prometheus metrics for rota operations.
//
// All recording methods are safe to call on a nil *Manager, so callers that run
// without metrics can pass nil.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager owns the rota metrics
type Manager struct {
	namespace        string
	histogramBuckets []float64
	registry         prometheus.Registerer

	confirmations    prometheus.Counter
	unconfirmations  prometheus.Counter
	cancellations    *prometheus.CounterVec
	promotions       *prometheus.CounterVec
	understaffed     *prometheus.CounterVec
	degradedRankings prometheus.Counter
	notifications    *prometheus.CounterVec
	reminders        prometheus.Counter
	operationLatency *prometheus.HistogramVec
}

// Option applies a configuration option to the Manager
type Option func(*Manager)

// WithNamespace sets the namespace for all metrics
func WithNamespace(namespace string) Option {
	return func(m *Manager) {
		if namespace != "" {
			m.namespace = namespace
		}
	}
}

// WithHistogramBuckets sets custom buckets for the latency histogram
func WithHistogramBuckets(buckets []float64) Option {
	return func(m *Manager) {
		if len(buckets) > 0 {
			m.histogramBuckets = buckets
		}
	}
}

// WithRegistry registers the metrics on the given registerer instead of the default one
func WithRegistry(registry prometheus.Registerer) Option {
	return func(m *Manager) {
		if registry != nil {
			m.registry = registry
		}
	}
}

// NewManager creates a metrics manager and registers its collectors
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "ride_rota",
		histogramBuckets: prometheus.DefBuckets,
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)

	m.confirmations = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "confirmations_total",
		Help:      "Total number of event confirmations written",
	})
	m.unconfirmations = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "unconfirmations_total",
		Help:      "Total number of events whose selections were reset",
	})
	m.cancellations = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "cancellations_total",
		Help:      "Total number of confirmed people removed from a role",
	}, []string{"role"})
	m.promotions = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "promotions_total",
		Help:      "Total number of people promoted into a vacated slot",
	}, []string{"role", "source"})
	m.understaffed = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "understaffed_total",
		Help:      "Total number of cancellations that left a role below capacity",
	}, []string{"role"})
	m.degradedRankings = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "degraded_rankings_total",
		Help:      "Total number of rankings computed without participation history",
	})
	m.notifications = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "notifications_total",
		Help:      "Total number of notifications delivered",
	}, []string{"kind", "channel"})
	m.reminders = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "reminders_total",
		Help:      "Total number of reminder notifications created",
	})
	m.operationLatency = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Name:      "operation_duration_seconds",
		Help:      "Duration of rota operations",
		Buckets:   m.histogramBuckets,
	}, []string{"operation"})
}

// RecordConfirmation counts a confirmation write
func (m *Manager) RecordConfirmation() {
	if m == nil {
		return
	}
	m.confirmations.Inc()
}

// RecordUnconfirmation counts a selection reset
func (m *Manager) RecordUnconfirmation() {
	if m == nil {
		return
	}
	m.unconfirmations.Inc()
}

// RecordCancellation counts a cancelled confirmation
func (m *Manager) RecordCancellation(role string) {
	if m == nil {
		return
	}
	m.cancellations.WithLabelValues(role).Inc()
}

// RecordPromotion counts a promoted person. Source is "ranked" or "fallback".
func (m *Manager) RecordPromotion(role, source string) {
	if m == nil {
		return
	}
	m.promotions.WithLabelValues(role, source).Inc()
}

// RecordUnderstaffed counts a role left below capacity after promotion
func (m *Manager) RecordUnderstaffed(role string) {
	if m == nil {
		return
	}
	m.understaffed.WithLabelValues(role).Inc()
}

// RecordDegradedRanking counts a ranking that fell back to application order
func (m *Manager) RecordDegradedRanking() {
	if m == nil {
		return
	}
	m.degradedRankings.Inc()
}

// RecordNotification counts a delivered notification
func (m *Manager) RecordNotification(kind, channel string) {
	if m == nil {
		return
	}
	m.notifications.WithLabelValues(kind, channel).Inc()
}

// RecordReminder counts a created reminder
func (m *Manager) RecordReminder() {
	if m == nil {
		return
	}
	m.reminders.Inc()
}

// ObserveOperation records the time elapsed since start for an operation
func (m *Manager) ObserveOperation(operation string, start time.Time) {
	if m == nil {
		return
	}
	m.operationLatency.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}
