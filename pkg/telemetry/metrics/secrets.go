package metrics

import (
	"time"

	"mercator-hq/vaultgate/pkg/config"
	"mercator-hq/vaultgate/pkg/secrets"

	"github.com/prometheus/client_golang/prometheus"
)

// SecretsMetrics tracks the secrets file.
//
// Metrics:
//   - vaultgate_secrets_reloads_total: reload attempts by result (loaded, unchanged, failed)
//   - vaultgate_secrets_services: services in the published snapshot
//   - vaultgate_secrets_last_reload_timestamp_seconds: when the published snapshot was loaded
type SecretsMetrics struct {
	reloadsTotal *prometheus.CounterVec
	services     prometheus.Gauge
	lastReload   prometheus.Gauge
}

// NewSecretsMetrics creates and registers secrets metrics with the provided registry.
func NewSecretsMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *SecretsMetrics {
	sm := &SecretsMetrics{
		reloadsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: "secrets",
				Name:      "reloads_total",
				Help:      "Total number of secrets file reload attempts",
			},
			[]string{"result"},
		),

		services: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: cfg.Namespace,
				Subsystem: "secrets",
				Name:      "services",
				Help:      "Number of services in the published secrets snapshot",
			},
		),

		lastReload: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: cfg.Namespace,
				Subsystem: "secrets",
				Name:      "last_reload_timestamp_seconds",
				Help:      "Unix time at which the published secrets snapshot was loaded",
			},
		),
	}

	// Pre-create result series so rate() works from the first scrape.
	for _, result := range []string{secrets.ResultLoaded, secrets.ResultUnchanged, secrets.ResultFailed} {
		sm.reloadsTotal.WithLabelValues(result)
	}

	registry.MustRegister(
		sm.reloadsTotal,
		sm.services,
		sm.lastReload,
	)

	return sm
}

// RecordReload counts one reload attempt.
func (sm *SecretsMetrics) RecordReload(result string) {
	sm.reloadsTotal.WithLabelValues(result).Inc()
}

// SetLoaded records a newly published snapshot.
func (sm *SecretsMetrics) SetLoaded(services int, loadedAt time.Time) {
	sm.services.Set(float64(services))
	if !loadedAt.IsZero() {
		sm.lastReload.Set(float64(loadedAt.UnixNano()) / 1e9)
	}
}
