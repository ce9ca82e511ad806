package secrets

import (
	"errors"
	"fmt"
)

// ErrWatcherRunning is returned by Watcher.Start when the watcher is already running.
var ErrWatcherRunning = errors.New("secrets watcher already running")

// ConfigLoadError reports a failed reload. The store keeps serving the
// previous snapshot when one is returned; it is never surfaced to proxy
// callers.
type ConfigLoadError struct {
	// Path is the secrets file that failed to load.
	Path string

	// Op is the failed stage: "read" or "parse".
	Op string

	// Err is the underlying error.
	Err error
}

func (e *ConfigLoadError) Error() string {
	return fmt.Sprintf("load secrets %s: %s: %v", e.Path, e.Op, e.Err)
}

func (e *ConfigLoadError) Unwrap() error {
	return e.Err
}
