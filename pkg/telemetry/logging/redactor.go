package logging

import (
	"log/slog"
	"regexp"
	"strings"

	"go.uber.org/atomic"

	"mercator-hq/vaultgate/pkg/secrets"
)

// Redactor removes secret material from log output. Attributes whose key
// names sensitive data are replaced outright; every other string has the
// currently loaded secret values and a few credential patterns scrubbed.
type Redactor struct {
	values   atomic.Pointer[[]string]
	patterns []redactPattern
}

// redactPattern contains a compiled regex and replacement string.
type redactPattern struct {
	name        string
	regex       *regexp.Regexp
	replacement string
}

// sensitiveKeys are attribute keys whose values are never logged. A key also
// matches when it ends in "_" followed by one of these.
var sensitiveKeys = map[string]bool{
	"authorization":       true,
	"proxy_authorization": true,
	"cookie":              true,
	"set_cookie":          true,
	"password":            true,
	"passwd":              true,
	"secret":              true,
	"secret_value":        true,
	"token":               true,
	"api_key":             true,
	"apikey":              true,
	"private_key":         true,
}

// NewRedactor creates a Redactor with no secret values loaded.
func NewRedactor() *Redactor {
	r := &Redactor{
		patterns: []redactPattern{
			{
				name:        "bearer_token",
				regex:       regexp.MustCompile(`Bearer\s+[a-zA-Z0-9\-._~+/]+=*`),
				replacement: "Bearer " + secrets.Redacted,
			},
			{
				name:        "basic_credentials",
				regex:       regexp.MustCompile(`Basic\s+[a-zA-Z0-9+/]+=*`),
				replacement: "Basic " + secrets.Redacted,
			},
		},
	}
	empty := []string{}
	r.values.Store(&empty)
	return r
}

// SetSecrets replaces the set of secret values scrubbed from strings.
func (r *Redactor) SetSecrets(values []string) {
	cp := append([]string(nil), values...)
	r.values.Store(&cp)
}

// ObserveReload refreshes the secret set whenever a new snapshot is
// published. It is registered as a secrets.ReloadHook.
func (r *Redactor) ObserveReload(ev secrets.ReloadEvent) {
	if ev.Result != secrets.ResultLoaded || ev.Snapshot == nil {
		return
	}
	r.SetSecrets(ev.Snapshot.SecretValues())
}

// RedactString scrubs loaded secrets and credential patterns from s.
func (r *Redactor) RedactString(s string) string {
	if s == "" {
		return s
	}
	s = secrets.Scrub(s, *r.values.Load())
	for _, p := range r.patterns {
		s = p.regex.ReplaceAllString(s, p.replacement)
	}
	return s
}

// RedactAttr returns a if it carries nothing sensitive, or a redacted copy.
// Groups are walked recursively; error and Stringer values are rendered and
// scrubbed as strings.
func (r *Redactor) RedactAttr(a slog.Attr) slog.Attr {
	if isSensitiveKey(a.Key) {
		return slog.String(a.Key, secrets.Redacted)
	}

	v := a.Value.Resolve()
	switch v.Kind() {
	case slog.KindString:
		return slog.String(a.Key, r.RedactString(v.String()))
	case slog.KindGroup:
		group := v.Group()
		out := make([]slog.Attr, len(group))
		for i, ga := range group {
			out[i] = r.RedactAttr(ga)
		}
		return slog.Attr{Key: a.Key, Value: slog.GroupValue(out...)}
	case slog.KindAny:
		switch x := v.Any().(type) {
		case error:
			return slog.String(a.Key, r.RedactString(x.Error()))
		case interface{ String() string }:
			return slog.String(a.Key, r.RedactString(x.String()))
		case []string:
			out := make([]string, len(x))
			for i, s := range x {
				out[i] = r.RedactString(s)
			}
			return slog.Any(a.Key, out)
		}
	}
	return slog.Attr{Key: a.Key, Value: v}
}

// isSensitiveKey checks if a key name indicates secret data.
func isSensitiveKey(key string) bool {
	k := strings.ReplaceAll(strings.ToLower(key), "-", "_")
	if sensitiveKeys[k] {
		return true
	}
	if i := strings.LastIndexByte(k, '_'); i >= 0 {
		return sensitiveKeys[k[i+1:]]
	}
	return false
}
