// Package handlers provides the HTTP handlers of the proxy endpoint.
//
// # Handler Types
//
//   - ProxyHandler: /api-proxy/?service=<name>&url=<target>
//   - MethodNotAllowed: JSON 405 for methods outside GET, POST, PUT, DELETE, PATCH, OPTIONS
//   - NotFound: JSON 404 for unknown routes
//
// # Request Flow
//
//  1. Parse the query parameters and read the body (422 or 413 on failure)
//  2. Forward through the Forwarder
//  3. Map errors with proxy.HandleError, or relay the upstream response
//
// Status codes:
//
//	404  service unknown
//	400  service has no secrets
//	422  missing parameter, invalid url, or missing secret key
//	413  request body too large
//	500  upstream call failed
//
// Health, readiness and version endpoints live in pkg/telemetry/health.
package handlers
