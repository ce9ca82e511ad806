package audit

import (
	"context"
	"io"
	"time"
)

// Record is one forwarded request. It never holds a secret value, a header
// value or a query string: only the names of the secret keys that were
// referenced.
type Record struct {
	ID           string    `json:"id"`
	RequestID    string    `json:"request_id"`
	Timestamp    time.Time `json:"timestamp"`
	Service      string    `json:"service"`
	Method       string    `json:"method"`
	UpstreamHost string    `json:"upstream_host"`
	UpstreamPath string    `json:"upstream_path"`
	Status       int       `json:"status"`
	DurationMS   int64     `json:"duration_ms"`
	SecretKeys   []string  `json:"secret_keys"`
	Outcome      string    `json:"outcome"`

	// Error is the scrubbed error message, empty on success.
	Error string `json:"error,omitempty"`
}

// Query filters records. Zero fields match everything.
type Query struct {
	Service string     `json:"service,omitempty"`
	Outcome string     `json:"outcome,omitempty"`
	Since   *time.Time `json:"since,omitempty"` // inclusive
	Until   *time.Time `json:"until,omitempty"` // exclusive

	// Limit caps the result. 0 means the backend default.
	Limit  int `json:"limit,omitempty"`
	Offset int `json:"offset,omitempty"`
}

// Storage persists audit records. Implementations must be safe for
// concurrent use. Query returns the newest records first.
type Storage interface {
	Store(ctx context.Context, record *Record) error
	Query(ctx context.Context, query *Query) ([]*Record, error)
	Count(ctx context.Context, query *Query) (int64, error)

	// DeleteOlderThan removes records with a timestamp before cutoff and
	// returns how many were removed.
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)

	Close() error
}

// Exporter writes records in some output format.
type Exporter interface {
	Export(ctx context.Context, records []*Record, w io.Writer) error
}
