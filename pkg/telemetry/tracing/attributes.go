package tracing

import (
	"net/url"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Attribute keys for proxy spans. HTTP keys follow the OpenTelemetry
// semantic conventions; the rest live under the vaultgate namespace.
const (
	AttrService        = "vaultgate.service"
	AttrOutcome        = "vaultgate.outcome"
	AttrMethod         = "http.request.method"
	AttrServerAddress  = "server.address"
	AttrURLPath        = "url.path"
	AttrURLScheme      = "url.scheme"
	AttrResponseStatus = "http.response.status_code"
)

// SetForwardAttributes records what a forward span is about. The query
// string is left out: it may carry credentials of its own.
func SetForwardAttributes(span trace.Span, service, method string, target *url.URL) {
	attrs := []attribute.KeyValue{
		attribute.String(AttrService, service),
		attribute.String(AttrMethod, method),
	}
	if target != nil {
		attrs = append(attrs,
			attribute.String(AttrServerAddress, target.Host),
			attribute.String(AttrURLPath, target.Path),
			attribute.String(AttrURLScheme, target.Scheme),
		)
	}
	span.SetAttributes(attrs...)
}

// SetResponseAttributes records the upstream status code.
func SetResponseAttributes(span trace.Span, statusCode int) {
	span.SetAttributes(attribute.Int(AttrResponseStatus, statusCode))
}

// SetOutcomeAttribute records how a forward ended.
func SetOutcomeAttribute(span trace.Span, outcome string) {
	span.SetAttributes(attribute.String(AttrOutcome, outcome))
}
