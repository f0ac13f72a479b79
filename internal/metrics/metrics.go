// Package metrics exposes ledger activity as prometheus counters.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hray3182/ledgerline/internal/models"
)

const namespace = "ledgerline"

// Metrics implements finance.Metrics on its own registry.
type Metrics struct {
	registry *prometheus.Registry

	transactionsPosted *prometheus.CounterVec
	obligations        *prometheus.CounterVec
	pendingResolved    *prometheus.CounterVec
	pendingExpired     prometheus.Counter
	detectionFailures  prometheus.Counter
	detectionRuns      prometheus.Counter
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		transactionsPosted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transactions_posted_total",
			Help:      "Transactions written to the ledger, by source.",
		}, []string{"source"}),
		obligations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "obligations_detected_total",
			Help:      "Obligations found due by the daily pass, by kind and outcome.",
		}, []string{"kind", "outcome"}),
		pendingResolved: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pending_payments_resolved_total",
			Help:      "Pending payments approved or rejected by the user.",
		}, []string{"status"}),
		pendingExpired: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pending_payments_expired_total",
			Help:      "Pending payments rejected automatically for being too old.",
		}),
		detectionFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "detection_failures_total",
			Help:      "Daily obligation passes that ended with an error.",
		}),
		detectionRuns: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "detection_runs_total",
			Help:      "Daily obligation passes started by the scheduler.",
		}),
	}
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.transactionsPosted,
		m.obligations,
		m.pendingResolved,
		m.pendingExpired,
		m.detectionFailures,
		m.detectionRuns,
	)
	return m
}

// Handler serves the registry in the prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) TransactionPosted(source string) {
	m.transactionsPosted.WithLabelValues(source).Inc()
}

func (m *Metrics) ObligationsDetected(kind models.PendingKind, pending, executed int) {
	m.obligations.WithLabelValues(string(kind), "pending").Add(float64(pending))
	m.obligations.WithLabelValues(string(kind), "executed").Add(float64(executed))
}

func (m *Metrics) PendingResolved(status models.PendingStatus) {
	m.pendingResolved.WithLabelValues(string(status)).Inc()
}

func (m *Metrics) PendingExpired(count int) {
	m.pendingExpired.Add(float64(count))
}

func (m *Metrics) DetectionFailed() {
	m.detectionFailures.Inc()
}

// DetectionStarted counts scheduler runs.
func (m *Metrics) DetectionStarted() {
	m.detectionRuns.Inc()
}
