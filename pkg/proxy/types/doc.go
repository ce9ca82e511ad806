// Package types defines the values that cross the proxy boundary.
//
// Request types:
//   - Request: an inbound call after query parsing, ready to forward
//
// Response types:
//   - Response: a fully read upstream response, relayed to the caller
//
// Error types:
//   - ErrorResponse: the JSON failure body returned by the proxy endpoint
//
// A failure body is a flat JSON object:
//
//	{"detail": "Service 'crm' not found", "type": "not_found", "code": "service_not_found", "param": "service"}
//
// Keys are always present; param is empty when no single input is at fault.
package types
