package proxy

import (
	"net/http"
	"strings"
)

// excludedRequestHeaders are never forwarded upstream. Keys are lower-case.
var excludedRequestHeaders = map[string]struct{}{
	"host":                      {},
	"connection":                {},
	"origin":                    {},
	"referer":                   {},
	"upgrade-insecure-requests": {},
	"pragma":                    {},
	"cache-control":             {},

	// Hop-by-hop headers (RFC 7230 section 6.1).
	"keep-alive":          {},
	"proxy-connection":    {},
	"te":                  {},
	"trailer":             {},
	"transfer-encoding":   {},
	"upgrade":             {},
	"proxy-authorization": {},
}

// excludedRequestPrefixes drop whole header families.
var excludedRequestPrefixes = []string{"sec-fetch-"}

// excludedResponseHeaders are stripped from the relayed response; the body
// is re-framed by the proxy's own server.
var excludedResponseHeaders = map[string]struct{}{
	"content-length":    {},
	"transfer-encoding": {},
	"content-encoding":  {},
	"connection":        {},
}

// HeaderFilter removes request headers that must not reach the upstream.
type HeaderFilter struct {
	extra map[string]struct{}
}

// NewHeaderFilter creates a filter dropping the built-in set plus extra
// names, matched case-insensitively.
func NewHeaderFilter(extra []string) *HeaderFilter {
	f := &HeaderFilter{extra: make(map[string]struct{}, len(extra))}
	for _, name := range extra {
		name = strings.ToLower(strings.TrimSpace(name))
		if name != "" {
			f.extra[name] = struct{}{}
		}
	}
	return f
}

// Excluded reports whether a header name is dropped regardless of the
// request's Connection header.
func (f *HeaderFilter) Excluded(name string) bool {
	lower := strings.ToLower(name)
	if _, ok := excludedRequestHeaders[lower]; ok {
		return true
	}
	if _, ok := f.extra[lower]; ok {
		return true
	}
	for _, prefix := range excludedRequestPrefixes {
		if strings.HasPrefix(lower, prefix) {
			return true
		}
	}
	return false
}

// Filter returns a copy of h without excluded headers and without any
// header listed in Connection.
func (f *HeaderFilter) Filter(h http.Header) http.Header {
	named := connectionTokens(h)

	out := make(http.Header, len(h))
	for name, values := range h {
		if f.Excluded(name) {
			continue
		}
		if _, ok := named[strings.ToLower(name)]; ok {
			continue
		}
		out[name] = append([]string(nil), values...)
	}
	return out
}

// connectionTokens collects the header names listed in every Connection
// header, whatever the key's casing.
func connectionTokens(h http.Header) map[string]struct{} {
	tokens := make(map[string]struct{})
	for name, values := range h {
		if !strings.EqualFold(name, "Connection") {
			continue
		}
		for _, v := range values {
			for _, tok := range strings.Split(v, ",") {
				if tok = strings.ToLower(strings.TrimSpace(tok)); tok != "" {
					tokens[tok] = struct{}{}
				}
			}
		}
	}
	return tokens
}

// FilterResponseHeaders returns a copy of the upstream response headers with
// framing headers removed and Access-Control-Allow-Origin forced to "*".
func FilterResponseHeaders(h http.Header) http.Header {
	out := make(http.Header, len(h)+1)
	for name, values := range h {
		if _, ok := excludedResponseHeaders[strings.ToLower(name)]; ok {
			continue
		}
		if strings.EqualFold(name, "Access-Control-Allow-Origin") {
			continue
		}
		out[name] = append([]string(nil), values...)
	}
	out.Set("Access-Control-Allow-Origin", "*")
	return out
}

// HeaderNames returns the names in h, for debug logging. Values are never
// included.
func HeaderNames(h http.Header) []string {
	names := make([]string, 0, len(h))
	for name := range h {
		names = append(names, name)
	}
	return names
}
