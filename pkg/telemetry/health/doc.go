// Package health provides the liveness, readiness and version endpoints.
//
//   - /health: the process is up; always 200
//   - /ready: every registered check passes; 200, or 503 with the failing
//     checks and their messages
//   - /version: version, commit, build time and Go version
//
// vaultgate registers two readiness checks: "secrets", which passes once the
// secrets file has been loaded, and "watcher", which passes while the file
// watcher is running. A proxy that has never loaded its secrets stays alive
// but reports not ready.
//
//	checker := health.New(cfg.Telemetry.Health.CheckTimeout)
//	checker.Register(health.CheckSecrets, health.SecretsLoaded(store))
//	checker.Register(health.CheckWatcher, health.WatcherRunning(watcher))
//	router.Get("/ready", checker.ReadinessHandler())
package health
