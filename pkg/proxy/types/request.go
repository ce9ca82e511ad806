package types

import (
	"net/http"
	"net/url"
)

// Request is an inbound proxy call once the service and target have been
// extracted from the query string.
type Request struct {
	// Method is the inbound HTTP method, forwarded unchanged.
	Method string

	// Target is the absolute upstream URL.
	Target *url.URL

	// Header holds the inbound headers, possibly carrying secret references.
	Header http.Header

	// Body is the raw inbound body. Empty means no body is sent.
	Body []byte
}

// TargetString returns the upstream URL, or "" when unset.
func (r *Request) TargetString() string {
	if r.Target == nil {
		return ""
	}
	return r.Target.String()
}
