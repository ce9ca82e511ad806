package health

import (
	"context"
	"errors"
)

// Readiness check names.
const (
	CheckSecrets = "secrets"
	CheckWatcher = "watcher"
)

var (
	errSecretsNotLoaded  = errors.New("secrets file has not been loaded")
	errWatcherNotRunning = errors.New("secrets watcher is not running")
)

// SecretsLoaded fails until the store has published a snapshot parsed from
// the secrets file.
func SecretsLoaded(store interface{ Loaded() bool }) CheckFunc {
	return func(context.Context) error {
		if !store.Loaded() {
			return errSecretsNotLoaded
		}
		return nil
	}
}

// WatcherRunning fails while the secrets watcher is stopped.
func WatcherRunning(watcher interface{ Running() bool }) CheckFunc {
	return func(context.Context) error {
		if !watcher.Running() {
			return errWatcherNotRunning
		}
		return nil
	}
}
