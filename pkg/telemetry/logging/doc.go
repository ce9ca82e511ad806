// Package logging provides structured logging that never leaks secrets.
//
// # Overview
//
// The package wraps log/slog:
//   - JSON or text output, optionally mirrored to a rotated file
//   - request-scoped fields (request_id, service, trace_id, span_id) read
//     from the context
//   - redaction of sensitive attribute keys and of every secret value in the
//     currently loaded snapshot
//
// # Usage
//
//	logger, err := logging.New(logging.Config{
//	    Level:         "info",
//	    Format:        "json",
//	    RedactSecrets: true,
//	})
//	store.OnReload(logger.Redactor().ObserveReload)
//	slog.SetDefault(logger.Logger)
//
//	ctx = logging.WithRequestID(ctx, id)
//	slog.InfoContext(ctx, "forwarded", "status", 200) // carries request_id
//
// # Redaction
//
// Attributes named authorization, cookie, password, token, api_key and the
// like are replaced by [REDACTED]. Any other string attribute, error text
// and the message itself have loaded secret values and Bearer/Basic
// credentials scrubbed.
package logging
