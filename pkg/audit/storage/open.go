package storage

import (
	"fmt"

	"mercator-hq/vaultgate/pkg/audit"
	"mercator-hq/vaultgate/pkg/config"
)

// Backend names accepted in AuditConfig.Backend.
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
)

// New opens the backend selected by cfg.
func New(cfg *config.AuditConfig) (audit.Storage, error) {
	limits := Limits{Default: cfg.Query.DefaultLimit, Max: cfg.Query.MaxLimit}

	switch cfg.Backend {
	case "", BackendMemory:
		return NewMemoryStorage(limits), nil
	case BackendSQLite:
		return NewSQLiteStorage(cfg.SQLite, limits)
	default:
		return nil, audit.NewStorageError(cfg.Backend, "open", fmt.Errorf("unknown audit backend %q", cfg.Backend))
	}
}
