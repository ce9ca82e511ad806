// Package telemetry groups the observability packages of vaultgate.
//
// # Components
//
//   - logging: slog logger with resolved-secret redaction
//   - metrics: Prometheus collectors for forwarding, secrets reloads and audit
//   - tracing: OpenTelemetry spans for inbound and upstream requests
//   - health: liveness, readiness and version endpoints
//
// The server wires them together; each can be disabled in the telemetry
// section of the configuration without affecting request handling.
//
// # Secret Redaction
//
// Every secret value loaded from the secrets file is registered with the
// logging redactor on each reload. String attributes containing a loaded
// value have it replaced with secrets.Redacted before they are written.
// Attributes named like credentials, such as authorization or api_key, are
// replaced outright.
package telemetry
