// Package tracing provides OpenTelemetry tracing for the proxy.
//
// When enabled, New exports spans over OTLP/gRPC and installs the W3C
// Trace Context and Baggage propagators globally. Inbound requests are
// joined to the caller's trace by HTTPMiddleware; every upstream call gets
// a client span ("proxy.forward") and the trace context is injected into
// the outbound headers.
//
// Spans never carry secret material: attributes are limited to the service
// name, method, upstream host, path and scheme, status code and outcome.
//
// Configuration:
//
//	telemetry:
//	  tracing:
//	    enabled: true
//	    sampler: ratio
//	    sample_ratio: 0.1
//	    endpoint: otel-collector:4317
//	    otlp:
//	      insecure: true
//
// When tracing is disabled the tracer is a noop and the global provider is
// left untouched.
package tracing
