package resolver

import (
	"net/http"
	"sort"
	"strings"
)

// AuthorizationHeader is the only header that gets the Basic-auth branch.
const AuthorizationHeader = "Authorization"

// Table is a case-insensitive secret lookup. Lookup reports false for keys
// that are absent or have an empty value.
type Table interface {
	Lookup(key string) (string, bool)
}

// MapTable is a Table backed by a map with lower-case keys.
type MapTable map[string]string

// Lookup implements Table.
func (m MapTable) Lookup(key string) (string, bool) {
	v, ok := m[strings.ToLower(key)]
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

// Resolve substitutes every placeholder in value with its secret. When
// isAuthorization is set, a Basic credential wrapping a placeholder is
// resolved as well. Values without placeholders are returned unchanged.
func Resolve(value string, table Table, isAuthorization bool) (string, error) {
	resolved, err := substitute(value, table)
	if err != nil {
		return "", err
	}

	if isAuthorization {
		return resolveBasic(resolved, table)
	}
	return resolved, nil
}

func substitute(value string, table Table) (string, error) {
	tokens := scan(value)
	if len(tokens) == 0 {
		return value, nil
	}

	var b strings.Builder
	b.Grow(len(value))

	last := 0
	for _, tok := range tokens {
		secret, ok := table.Lookup(tok.key)
		if !ok {
			return "", &SecretNotFoundError{Key: tok.key}
		}
		b.WriteString(value[last:tok.start])
		b.WriteString(secret)
		last = tok.end
	}
	b.WriteString(value[last:])

	return b.String(), nil
}

// References returns the distinct keys value refers to, in order of first
// appearance. It never looks anything up.
func References(value string, isAuthorization bool) []string {
	seen := make(map[string]struct{})
	var keys []string
	add := func(k string) {
		if _, dup := seen[k]; dup {
			return
		}
		seen[k] = struct{}{}
		keys = append(keys, k)
	}

	for _, tok := range scan(value) {
		add(tok.key)
	}
	if isAuthorization {
		if k, ok := basicKey(value); ok {
			add(k)
		}
	}

	return keys
}

// IsAuthorization reports whether name is the Authorization header.
func IsAuthorization(name string) bool {
	return strings.EqualFold(name, AuthorizationHeader)
}

// ResolveHeaders resolves every value of every header and returns a new
// header set. The input is not modified. Headers are visited in name order
// and the first missing key fails the whole set.
func ResolveHeaders(h http.Header, table Table) (http.Header, error) {
	names := make([]string, 0, len(h))
	for name := range h {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make(http.Header, len(h))
	for _, name := range names {
		values := h[name]
		auth := IsAuthorization(name)
		resolved := make([]string, len(values))
		for i, v := range values {
			r, err := Resolve(v, table, auth)
			if err != nil {
				return nil, err
			}
			resolved[i] = r
		}
		out[name] = resolved
	}

	return out, nil
}

// HeaderReferences returns the sorted distinct keys referenced anywhere in h.
func HeaderReferences(h http.Header) []string {
	set := make(map[string]struct{})
	for name, values := range h {
		auth := IsAuthorization(name)
		for _, v := range values {
			for _, k := range References(v, auth) {
				set[k] = struct{}{}
			}
		}
	}

	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
