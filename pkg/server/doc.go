// Package server provides the vaultgate HTTP server.
//
// This package ties together the proxy components (secrets store and
// watcher, forwarder, handlers, middleware) with the optional metrics,
// tracing and audit trail, and manages their lifecycle.
//
// # Routes
//
//   - /api-proxy and /api-proxy/ accept GET, POST, PUT, DELETE, PATCH and
//     OPTIONS; other methods get 405
//   - the liveness, readiness and version paths from telemetry.health
//   - the metrics path from telemetry.metrics, when metrics are enabled
//
// Every route runs behind recovery, request ID, trace extraction, access
// logging and, when enabled, CORS, in that order.
//
// # Basic Usage
//
//	cfg := config.GetConfig()
//
//	srv, err := server.New(cfg, server.Options{Logger: logger})
//	if err != nil {
//	    return err
//	}
//
//	ctx, stop := cli.SetupSignalHandler(context.Background())
//	defer stop()
//	if err := srv.Start(ctx); err != nil {
//	    return err
//	}
//
// Start performs the initial secrets load synchronously before accepting
// connections. A missing or invalid secrets file is logged and the server
// starts with an empty configuration: every proxied request then fails with
// 404 until a valid file appears, and readiness reports not_ready.
//
// # TLS
//
// With security.tls.enabled the listener serves HTTPS. The certificate is
// read through a security/tls CertificateReloader, so a renewed pair on disk
// is served from the next handshake on. Start fails if the initial pair
// cannot be loaded.
//
// # Shutdown
//
// Cancelling the context passed to Start triggers Shutdown. It drains
// in-flight requests within proxy.shutdown_timeout and stops the watcher,
// the certificate reloader and the retention scheduler. Queued audit
// records are flushed before the audit storage and the tracer are closed.
package server
