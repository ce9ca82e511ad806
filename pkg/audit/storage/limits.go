package storage

import "mercator-hq/vaultgate/pkg/config"

// Limits bounds the number of records a query returns.
type Limits struct {
	// Default applies when a query sets no limit.
	Default int
	// Max caps any query.
	Max int
}

// DefaultLimits returns the configured default query limits.
func DefaultLimits() Limits {
	return Limits{
		Default: config.DefaultAuditQueryDefaultLimit,
		Max:     config.DefaultAuditQueryMaxLimit,
	}
}

// apply returns the effective limit for a requested one.
func (l Limits) apply(requested int) int {
	limit := requested
	if limit <= 0 {
		limit = l.Default
	}
	if l.Max > 0 && limit > l.Max {
		limit = l.Max
	}
	return limit
}
