package metrics

import (
	"context"
	"net/http"
	"sync"

	"mercator-hq/vaultgate/pkg/config"
	"mercator-hq/vaultgate/pkg/proxy"
	"mercator-hq/vaultgate/pkg/secrets"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// OtherLabel replaces label values past the cardinality limit.
const OtherLabel = "other"

// Collector owns every Prometheus metric of the proxy. It observes forwards
// through proxy.Observer and reloads through secrets.ReloadHook.
//
// Service names come from the query string, so the service label is capped:
// past MaxServices distinct names, new ones are reported as "other".
type Collector struct {
	config   *config.MetricsConfig
	registry *prometheus.Registry

	proxyMetrics   *ProxyMetrics
	secretsMetrics *SecretsMetrics
	auditMetrics   *AuditMetrics

	services *CardinalityLimiter
}

// NewCollector creates a collector and registers its metrics. If registry
// is nil, a new registry with the Go runtime and process collectors is
// created.
//
// Example:
//
//	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, nil)
//	forwarder := proxy.NewForwarder(store, cfg.Upstream, proxy.WithObserver(collector))
//	store.OnReload(collector.ObserveReload)
func NewCollector(cfg *config.MetricsConfig, registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}

	if cfg.Namespace == "" {
		cfg.Namespace = config.DefaultMetricsNamespace
	}
	if len(cfg.RequestDurationBuckets) == 0 {
		cfg.RequestDurationBuckets = append([]float64(nil), config.DefaultRequestDurationBuckets...)
	}
	maxServices := cfg.MaxServices
	if maxServices <= 0 {
		maxServices = config.DefaultMetricsMaxServices
	}

	return &Collector{
		config:         cfg,
		registry:       registry,
		proxyMetrics:   NewProxyMetrics(cfg, registry),
		secretsMetrics: NewSecretsMetrics(cfg, registry),
		auditMetrics:   NewAuditMetrics(cfg, registry),
		services:       NewCardinalityLimiter(maxServices),
	}
}

// ObserveForward implements proxy.Observer.
func (c *Collector) ObserveForward(_ context.Context, ev proxy.ForwardEvent) {
	if !c.config.Enabled {
		return
	}

	service := c.serviceLabel(ev.Service)
	c.proxyMetrics.RecordRequest(service, methodLabel(ev.Method), ev.Outcome, ev.Duration)

	switch ev.Outcome {
	case proxy.OutcomeUpstreamError:
		c.proxyMetrics.RecordUpstreamError(service)
	case proxy.OutcomeSecretNotFound:
		c.proxyMetrics.RecordResolutionFailure(service)
	}
}

// ObserveReload records a secrets reload. It has the secrets.ReloadHook
// signature.
func (c *Collector) ObserveReload(ev secrets.ReloadEvent) {
	if !c.config.Enabled {
		return
	}

	c.secretsMetrics.RecordReload(ev.Result)
	if ev.Result == secrets.ResultLoaded && ev.Snapshot != nil {
		c.secretsMetrics.SetLoaded(ev.Snapshot.Len(), ev.Snapshot.LoadedAt())
	}
}

// RegisterAuditSource exposes the audit recorder's counters.
func (c *Collector) RegisterAuditSource(src AuditSource) {
	c.auditMetrics.Register(src)
}

// Registry returns the Prometheus registry used by this collector.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

func (c *Collector) serviceLabel(service string) string {
	if service == "" {
		return "none"
	}
	if !c.services.Allow(service) {
		return OtherLabel
	}
	return service
}

// knownMethods bounds the method label.
var knownMethods = map[string]struct{}{
	http.MethodGet:     {},
	http.MethodPost:    {},
	http.MethodPut:     {},
	http.MethodDelete:  {},
	http.MethodPatch:   {},
	http.MethodOptions: {},
	http.MethodHead:    {},
}

func methodLabel(method string) string {
	if _, ok := knownMethods[method]; ok {
		return method
	}
	return "OTHER"
}

// CardinalityLimiter prevents metric cardinality explosion by limiting
// the number of unique label values.
type CardinalityLimiter struct {
	maxCardinality int
	current        map[string]struct{}
	mu             sync.RWMutex
}

// NewCardinalityLimiter creates a new cardinality limiter with the specified
// maximum cardinality.
func NewCardinalityLimiter(maxCardinality int) *CardinalityLimiter {
	return &CardinalityLimiter{
		maxCardinality: maxCardinality,
		current:        make(map[string]struct{}),
	}
}

// Allow checks if a label value is allowed. Returns true if it was already
// seen or if the limit has not been reached yet.
func (cl *CardinalityLimiter) Allow(labelSet string) bool {
	cl.mu.RLock()
	if _, exists := cl.current[labelSet]; exists {
		cl.mu.RUnlock()
		return true
	}
	cl.mu.RUnlock()

	cl.mu.Lock()
	defer cl.mu.Unlock()

	// Double-check after acquiring write lock
	if _, exists := cl.current[labelSet]; exists {
		return true
	}

	if len(cl.current) >= cl.maxCardinality {
		return false
	}

	cl.current[labelSet] = struct{}{}
	return true
}

// Count returns the current cardinality.
func (cl *CardinalityLimiter) Count() int {
	cl.mu.RLock()
	defer cl.mu.RUnlock()
	return len(cl.current)
}
