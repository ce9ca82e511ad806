// Package middleware provides HTTP middleware for cross-cutting concerns:
// request IDs, access logging, CORS and panic recovery.
//
// # Middleware Chain
//
// The server installs the middleware in this order, outermost first:
//
//	Recovery -> RequestID -> Logging -> CORS -> router
//
// Recovery wraps everything so a panic anywhere still produces a JSON 500.
// RequestID runs before Logging so the access log line carries the ID.
// CORS sits closest to the routes so preflights are logged too.
//
// # Middleware Types
//
// Request tracking:
//   - RequestIDMiddleware: keep or generate X-Request-ID, store it in the logging context
//   - LoggingMiddleware: one access log line per request, query string never logged
//
// Security and resilience:
//   - CORSMiddleware: answer preflights, add CORS headers to other responses
//   - RecoveryMiddleware: recover from panics, return 500
package middleware
