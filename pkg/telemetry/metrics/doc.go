// Package metrics provides Prometheus metrics for vaultgate.
//
// # Metrics
//
//   - Proxy: requests by service, method and outcome; forward duration;
//     upstream errors; references to missing secret keys
//   - Secrets: reloads by result, services loaded, last reload time
//   - Audit: records written, dropped and failed, read from the recorder
//     at scrape time
//
// # Usage
//
//	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, nil)
//	forwarder := proxy.NewForwarder(store, cfg.Upstream, proxy.WithObserver(collector))
//	store.OnReload(collector.ObserveReload)
//	router.Handle(cfg.Telemetry.Metrics.Path, collector.Handler())
//
// # Cardinality
//
// The service label comes from client input. The collector keeps at most
// MaxServices distinct values and reports the rest as "other". Methods
// outside the standard set are reported as "OTHER".
//
// No metric carries a secret value, a header value or a query string.
package metrics
