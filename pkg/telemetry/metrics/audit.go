package metrics

import (
	"sync"

	"mercator-hq/vaultgate/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// AuditSource reports the audit recorder's running totals.
type AuditSource interface {
	Written() uint64
	Dropped() uint64
	Failed() uint64
}

// AuditMetrics exposes the audit recorder's counters. The counters are read
// at scrape time, so the recorder keeps no reference to the collector.
//
// Metrics:
//   - vaultgate_audit_records_written_total
//   - vaultgate_audit_dropped_total: records dropped because the queue was full
//   - vaultgate_audit_write_errors_total
type AuditMetrics struct {
	cfg      *config.MetricsConfig
	registry *prometheus.Registry
	once     sync.Once
}

// NewAuditMetrics prepares audit metrics. Nothing is registered until a
// source is attached.
func NewAuditMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *AuditMetrics {
	return &AuditMetrics{cfg: cfg, registry: registry}
}

// Register attaches the source. Only the first source is registered.
func (am *AuditMetrics) Register(src AuditSource) {
	am.once.Do(func() {
		am.registry.MustRegister(
			prometheus.NewCounterFunc(
				prometheus.CounterOpts{
					Namespace: am.cfg.Namespace,
					Subsystem: "audit",
					Name:      "records_written_total",
					Help:      "Total number of audit records persisted",
				},
				func() float64 { return float64(src.Written()) },
			),
			prometheus.NewCounterFunc(
				prometheus.CounterOpts{
					Namespace: am.cfg.Namespace,
					Name:      "audit_dropped_total",
					Help:      "Total number of audit records dropped because the queue was full",
				},
				func() float64 { return float64(src.Dropped()) },
			),
			prometheus.NewCounterFunc(
				prometheus.CounterOpts{
					Namespace: am.cfg.Namespace,
					Subsystem: "audit",
					Name:      "write_errors_total",
					Help:      "Total number of audit records that failed to persist",
				},
				func() float64 { return float64(src.Failed()) },
			),
		)
	})
}
