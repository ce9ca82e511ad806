package secrets

import (
	"sort"
	"strings"
	"time"
)

// Table holds the secret key/value pairs belonging to one service.
// Keys are case-folded on construction and lookups are case-insensitive.
// A Table is never modified after it is built.
type Table struct {
	entries map[string]string
}

// NewTable builds a Table from a key/value map. Keys are lower-cased;
// when two keys fold to the same value the last one in iteration order wins,
// so callers that care about determinism should pass an already folded map.
func NewTable(entries map[string]string) Table {
	folded := make(map[string]string, len(entries))
	for k, v := range entries {
		folded[strings.ToLower(k)] = v
	}
	return Table{entries: folded}
}

// Lookup returns the secret stored under key. Empty values are reported as
// missing.
func (t Table) Lookup(key string) (string, bool) {
	v, ok := t.entries[strings.ToLower(key)]
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

// Len returns the number of keys in the table.
func (t Table) Len() int {
	return len(t.entries)
}

// Keys returns the sorted key names. Values are never exposed through Keys.
func (t Table) Keys() []string {
	keys := make([]string, 0, len(t.entries))
	for k := range t.entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Snapshot is an immutable, point-in-time view of the whole secrets file:
// service name to Table, plus metadata about the load that produced it.
type Snapshot struct {
	services map[string]Table
	source   string
	loadedAt time.Time
	digest   string
}

// NewSnapshot creates a Snapshot. The services map is owned by the snapshot
// afterwards and must not be modified by the caller.
func NewSnapshot(services map[string]Table, source string, loadedAt time.Time, digest string) *Snapshot {
	if services == nil {
		services = make(map[string]Table)
	}
	return &Snapshot{
		services: services,
		source:   source,
		loadedAt: loadedAt,
		digest:   digest,
	}
}

// EmptySnapshot returns a snapshot with no services. Every lookup against it
// fails, which keeps the proxy closed until a real file has been loaded.
func EmptySnapshot(source string) *Snapshot {
	return NewSnapshot(nil, source, time.Time{}, "")
}

// Service returns the Table for the named service. Service names are
// case-sensitive.
func (s *Snapshot) Service(name string) (Table, bool) {
	t, ok := s.services[name]
	return t, ok
}

// Services returns the sorted service names.
func (s *Snapshot) Services() []string {
	names := make([]string, 0, len(s.services))
	for name := range s.services {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of services.
func (s *Snapshot) Len() int {
	return len(s.services)
}

// Source is the path the snapshot was loaded from.
func (s *Snapshot) Source() string {
	return s.source
}

// LoadedAt is the time the snapshot was published. Zero for the empty
// startup snapshot.
func (s *Snapshot) LoadedAt() time.Time {
	return s.loadedAt
}

// Digest is the hex SHA-256 of the file content the snapshot was parsed from.
func (s *Snapshot) Digest() string {
	return s.digest
}

// SecretValues returns every non-empty secret value across all services.
// It exists for scrubbing log output and error text.
func (s *Snapshot) SecretValues() []string {
	seen := make(map[string]struct{})
	var values []string
	for _, t := range s.services {
		for _, v := range t.entries {
			if v == "" {
				continue
			}
			if _, ok := seen[v]; ok {
				continue
			}
			seen[v] = struct{}{}
			values = append(values, v)
		}
	}
	return values
}
