package secrets

import (
	"sort"
	"strings"
)

// Redacted replaces secret material wherever it is scrubbed.
const Redacted = "[REDACTED]"

// Scrub replaces every occurrence of each non-empty value in s with Redacted.
// Longer values are replaced first so a secret that contains another secret
// is not left half-visible.
func Scrub(s string, values []string) string {
	if s == "" || len(values) == 0 {
		return s
	}

	ordered := make([]string, 0, len(values))
	for _, v := range values {
		if v != "" {
			ordered = append(ordered, v)
		}
	}
	sort.Slice(ordered, func(i, j int) bool {
		return len(ordered[i]) > len(ordered[j])
	})

	for _, v := range ordered {
		if strings.Contains(s, v) {
			s = strings.ReplaceAll(s, v, Redacted)
		}
	}
	return s
}
