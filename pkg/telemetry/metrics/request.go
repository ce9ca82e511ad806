package metrics

import (
	"time"

	"mercator-hq/vaultgate/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// ProxyMetrics tracks forwarded requests.
//
// Metrics:
//   - vaultgate_proxy_requests_total: requests by service, method, outcome
//   - vaultgate_proxy_request_duration_seconds: forward duration by service
//   - vaultgate_upstream_errors_total: failed upstream exchanges by service
//   - vaultgate_secret_resolution_failures_total: missing secret keys by service
type ProxyMetrics struct {
	requestsTotal      *prometheus.CounterVec
	requestDuration    *prometheus.HistogramVec
	upstreamErrors     *prometheus.CounterVec
	resolutionFailures *prometheus.CounterVec
}

// NewProxyMetrics creates and registers proxy metrics with the provided registry.
func NewProxyMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *ProxyMetrics {
	pm := &ProxyMetrics{
		requestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: "proxy",
				Name:      "requests_total",
				Help:      "Total number of proxied requests",
			},
			[]string{"service", "method", "outcome"},
		),

		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: "proxy",
				Name:      "request_duration_seconds",
				Help:      "Duration of proxied requests in seconds, upstream time included",
				Buckets:   cfg.RequestDurationBuckets,
			},
			[]string{"service"},
		),

		upstreamErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "upstream_errors_total",
				Help:      "Total number of failed upstream calls",
			},
			[]string{"service"},
		),

		resolutionFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "secret_resolution_failures_total",
				Help:      "Total number of requests referencing a missing secret key",
			},
			[]string{"service"},
		),
	}

	registry.MustRegister(
		pm.requestsTotal,
		pm.requestDuration,
		pm.upstreamErrors,
		pm.resolutionFailures,
	)

	return pm
}

// RecordRequest records a completed forward.
func (pm *ProxyMetrics) RecordRequest(service, method, outcome string, duration time.Duration) {
	pm.requestsTotal.WithLabelValues(service, method, outcome).Inc()
	pm.requestDuration.WithLabelValues(service).Observe(duration.Seconds())
}

// RecordUpstreamError records a failed upstream exchange.
func (pm *ProxyMetrics) RecordUpstreamError(service string) {
	pm.upstreamErrors.WithLabelValues(service).Inc()
}

// RecordResolutionFailure records a reference to a missing secret key.
func (pm *ProxyMetrics) RecordResolutionFailure(service string) {
	pm.resolutionFailures.WithLabelValues(service).Inc()
}
