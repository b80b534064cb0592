package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	AuditRunCompleted = "completed"
	AuditRunAborted   = "aborted"
)

// AuditMetrics tracks partner audit outcomes.
type AuditMetrics struct {
	outcomes             *prometheus.CounterVec
	lookupFailures       prometheus.Counter
	notificationFailures *prometheus.CounterVec
	runs                 *prometheus.CounterVec
	runDuration          prometheus.Histogram
	lastRun              prometheus.Gauge
}

var (
	auditMetricsOnce sync.Once
	auditMetrics     *AuditMetrics
)

// AuditWithConfig returns the singleton audit metrics registry using config labels.
func AuditWithConfig(cfg Config) *AuditMetrics {
	auditMetricsOnce.Do(func() {
		auditMetrics = NewAuditMetrics(prometheus.DefaultRegisterer, cfg)
	})
	return auditMetrics
}

// ResetAuditMetricsForTest resets the audit metrics singleton for tests.
func ResetAuditMetricsForTest() {
	auditMetricsOnce = sync.Once{}
	auditMetrics = nil
}

// NewAuditMetrics registers audit collectors against registerer.
func NewAuditMetrics(registerer prometheus.Registerer, cfg Config) *AuditMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	labels := constLabels(cfg)

	outcomes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "partnerbot_audit_partner_outcomes_total",
		Help:        "Per-partner audit outcomes.",
		ConstLabels: labels,
	}, []string{"outcome"})
	lookupFailures := prometheus.NewCounter(prometheus.CounterOpts{
		Name:        "partnerbot_audit_lookup_failures_total",
		Help:        "Invite lookups that could not be resolved.",
		ConstLabels: labels,
	})
	notificationFailures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "partnerbot_audit_notification_failures_total",
		Help:        "Best-effort audit side effects that failed.",
		ConstLabels: labels,
	}, []string{"kind"})
	runs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "partnerbot_audit_runs_total",
		Help:        "Audit runs by result.",
		ConstLabels: labels,
	}, []string{"result"})
	runDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:        "partnerbot_audit_run_duration_seconds",
		Help:        "Wall time of a full audit run.",
		Buckets:     []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800, 3600},
		ConstLabels: labels,
	})
	lastRun := prometheus.NewGauge(prometheus.GaugeOpts{
		Name:        "partnerbot_audit_last_completed_timestamp_seconds",
		Help:        "Unix time of the last completed audit run.",
		ConstLabels: labels,
	})

	registerer.MustRegister(outcomes, lookupFailures, notificationFailures, runs, runDuration, lastRun)

	return &AuditMetrics{
		outcomes:             outcomes,
		lookupFailures:       lookupFailures,
		notificationFailures: notificationFailures,
		runs:                 runs,
		runDuration:          runDuration,
		lastRun:              lastRun,
	}
}

func (m *AuditMetrics) IncOutcome(outcome string) {
	if m == nil {
		return
	}
	m.outcomes.WithLabelValues(outcome).Inc()
}

func (m *AuditMetrics) IncLookupFailure() {
	if m == nil {
		return
	}
	m.lookupFailures.Inc()
}

func (m *AuditMetrics) IncNotificationFailure(kind string) {
	if m == nil {
		return
	}
	m.notificationFailures.WithLabelValues(kind).Inc()
}

// ObserveRun records a finished run; completedAt is only used for completed runs.
func (m *AuditMetrics) ObserveRun(result string, duration time.Duration, completedAt time.Time) {
	if m == nil {
		return
	}
	m.runs.WithLabelValues(result).Inc()
	m.runDuration.Observe(duration.Seconds())
	if result == AuditRunCompleted {
		m.lastRun.Set(float64(completedAt.Unix()))
	}
}
