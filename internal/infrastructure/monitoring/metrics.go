package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus instruments for the admission pipeline.
type Metrics struct {
	AdmissionDecisions *prometheus.CounterVec
	AdmissionLatency   *prometheus.HistogramVec
	RateLimitDenials   *prometheus.CounterVec
	KeyValidations     *prometheus.CounterVec
	KeysIssued         prometheus.Counter
	KeysRevoked        prometheus.Counter
	StoreErrors        *prometheus.CounterVec
}

// NewMetrics creates and registers the instruments on the default registry.
func NewMetrics() *Metrics {
	return &Metrics{
		AdmissionDecisions: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gateward_admission_decisions_total",
				Help: "Admission decisions by outcome.",
			},
			[]string{"outcome"},
		),
		AdmissionLatency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "gateward_admission_latency_seconds",
				Help:    "Latency of the admission pipeline.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"outcome"},
		),
		RateLimitDenials: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gateward_rate_limit_denials_total",
				Help: "Requests denied by the rate limiter, by key scope.",
			},
			[]string{"scope"},
		),
		KeyValidations: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gateward_key_validations_total",
				Help: "API key validations by result.",
			},
			[]string{"result"},
		),
		KeysIssued: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "gateward_keys_issued_total",
				Help: "API keys issued.",
			},
		),
		KeysRevoked: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "gateward_keys_revoked_total",
				Help: "API keys revoked.",
			},
		),
		StoreErrors: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gateward_counter_store_errors_total",
				Help: "Durable counter store failures, by operation.",
			},
			[]string{"operation"},
		),
	}
}

// RecordAdmission records one admission decision and its latency.
func (m *Metrics) RecordAdmission(outcome string, duration time.Duration) {
	m.AdmissionDecisions.WithLabelValues(outcome).Inc()
	m.AdmissionLatency.WithLabelValues(outcome).Observe(duration.Seconds())
}

// RecordRateLimitDenial records a denial for a key or IP scoped limit.
func (m *Metrics) RecordRateLimitDenial(scope string) {
	m.RateLimitDenials.WithLabelValues(scope).Inc()
}

// RecordKeyValidation records one credential validation attempt.
func (m *Metrics) RecordKeyValidation(result string) {
	m.KeyValidations.WithLabelValues(result).Inc()
}

// RecordKeyIssued records a successful issuance.
func (m *Metrics) RecordKeyIssued() {
	m.KeysIssued.Inc()
}

// RecordKeyRevoked records a revocation.
func (m *Metrics) RecordKeyRevoked() {
	m.KeysRevoked.Inc()
}

// RecordStoreError records a durable store failure.
func (m *Metrics) RecordStoreError(operation string) {
	m.StoreErrors.WithLabelValues(operation).Inc()
}
