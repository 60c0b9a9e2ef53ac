package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// Reconciliation metrics
	Reconciliations     *prometheus.CounterVec
	ReconcileRunSeconds prometheus.Histogram
	ReconcileRunOwners  prometheus.Histogram

	// Statement metrics
	StatementsGenerated    prometheus.Counter
	StatementDuration      prometheus.Histogram
	StatementStageFailures *prometheus.CounterVec

	// API metrics
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec

	// Outbox metrics
	EventsPublished *prometheus.CounterVec

	// Audit metrics
	AuditRecords *prometheus.CounterVec
}

// New creates and registers all Prometheus metrics on the default registerer.
func New() *Metrics {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

// NewWithRegisterer creates all Prometheus metrics on reg.
func NewWithRegisterer(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		// Reconciliation metrics
		Reconciliations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ledgerrecon_reconciliations_total",
				Help: "Owners reconciled by outcome",
			},
			[]string{"outcome"},
		),
		ReconcileRunSeconds: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "ledgerrecon_reconcile_run_duration_seconds",
			Help:    "Duration of batch reconciliation runs",
			Buckets: []float64{0.1, 0.5, 1, 5, 15, 60, 300, 900},
		}),
		ReconcileRunOwners: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "ledgerrecon_reconcile_run_owners",
			Help:    "Owners visited per batch reconciliation run",
			Buckets: prometheus.ExponentialBuckets(1, 10, 7),
		}),

		// Statement metrics
		StatementsGenerated: factory.NewCounter(prometheus.CounterOpts{
			Name: "ledgerrecon_statements_generated_total",
			Help: "Total number of statements generated",
		}),
		StatementDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "ledgerrecon_statement_duration_seconds",
			Help:    "Duration of statement generation",
			Buckets: prometheus.DefBuckets,
		}),
		StatementStageFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ledgerrecon_statement_stage_failures_total",
				Help: "Statement stage failures by stage",
			},
			[]string{"stage"},
		),

		// API metrics
		HTTPRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ledgerrecon_http_requests_total",
				Help: "Total HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "ledgerrecon_http_duration_seconds",
				Help:    "HTTP request duration",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),

		// Outbox metrics
		EventsPublished: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ledgerrecon_events_published_total",
				Help: "Outbox events published by type and status",
			},
			[]string{"event_type", "status"},
		),

		// Audit metrics
		AuditRecords: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ledgerrecon_audit_records_total",
				Help: "Audit records written by action and status",
			},
			[]string{"action", "status"},
		),
	}
}

// RecordOutcome counts one reconciled owner.
func (m *Metrics) RecordOutcome(outcome string) {
	m.Reconciliations.WithLabelValues(outcome).Inc()
}

// RecordBatch observes a finished batch run.
func (m *Metrics) RecordBatch(duration time.Duration, total int) {
	m.ReconcileRunSeconds.Observe(duration.Seconds())
	m.ReconcileRunOwners.Observe(float64(total))
}

// RecordGeneration observes a generated statement.
func (m *Metrics) RecordGeneration(duration time.Duration) {
	m.StatementsGenerated.Inc()
	m.StatementDuration.Observe(duration.Seconds())
}

// RecordStageFailure counts a failed or degraded statement stage.
func (m *Metrics) RecordStageFailure(stage string) {
	m.StatementStageFailures.WithLabelValues(stage).Inc()
}

// RecordHTTP counts and times one HTTP request.
func (m *Metrics) RecordHTTP(method, path string, status int, duration time.Duration) {
	m.HTTPRequests.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	m.HTTPDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordPublish counts one outbox publish attempt.
func (m *Metrics) RecordPublish(eventType string, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	m.EventsPublished.WithLabelValues(eventType, status).Inc()
}

// RecordAudit counts one audit write.
func (m *Metrics) RecordAudit(action string, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	m.AuditRecords.WithLabelValues(action, status).Inc()
}
