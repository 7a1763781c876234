// Package metrics provides a Prometheus-based implementation of
// ports.MetricsReporter.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/btps-org/btps-core/internal/core/ports"
)

var (
	retryAttemptCounter = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "btps_connector_retry_attempts_total",
		Help: "Total number of connect/send retry attempts, by failure reason",
	}, []string{"reason"})

	sendCounter = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "btps_artifacts_sent_total",
		Help: "Total number of artifacts handed to the transport, by type and outcome",
	}, []string{"artifact_type", "result"}) // result: ok, failed

	trustStoreFlushCounter = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "btps_trust_store_flush_total",
		Help: "Total number of trust store flush-to-disk operations, by outcome",
	}, []string{"result"}) // result: ok, failed
)

// PrometheusMetrics implements ports.MetricsReporter using Prometheus.
type PrometheusMetrics struct{}

// NewPrometheusMetrics returns a ports.MetricsReporter backed by the
// default Prometheus registry.
func NewPrometheusMetrics() ports.MetricsReporter {
	return &PrometheusMetrics{}
}

// RecordRetryAttempt records one retry attempt, labeled by reason so
// operators can see which failure classes dominate retries.
func (m *PrometheusMetrics) RecordRetryAttempt(reason string) {
	retryAttemptCounter.WithLabelValues(reason).Inc()
}

// RecordSend records an outbound artifact attempt.
func (m *PrometheusMetrics) RecordSend(artifactType string, ok bool) {
	result := "failed"
	if ok {
		result = "ok"
	}
	sendCounter.WithLabelValues(artifactType, result).Inc()
}

// RecordTrustStoreFlush records a trust store flush-to-disk attempt.
func (m *PrometheusMetrics) RecordTrustStoreFlush(ok bool) {
	result := "failed"
	if ok {
		result = "ok"
	}
	trustStoreFlushCounter.WithLabelValues(result).Inc()
}
