package secrets

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"os"
	"sync"
	"time"

	"go.uber.org/atomic"
)

// Reload outcomes reported to hooks.
const (
	ResultLoaded    = "loaded"
	ResultUnchanged = "unchanged"
	ResultFailed    = "failed"
)

// ReloadEvent describes one completed reload attempt.
type ReloadEvent struct {
	// Result is ResultLoaded, ResultUnchanged or ResultFailed.
	Result string

	// Snapshot is the snapshot being served after the attempt.
	Snapshot *Snapshot

	// Err is set when Result is ResultFailed.
	Err error

	// Duration is how long the attempt took, read and parse included.
	Duration time.Duration
}

// ReloadHook is called after every reload attempt, in reload order.
// Hooks run while the writer lock is held and must not call Reload.
type ReloadHook func(ReloadEvent)

// Store owns the published secrets snapshot. Readers load it through an
// atomic pointer and never block. Reloads run one at a time, so a read of
// the file is never published after a newer one.
type Store struct {
	path   string
	logger *slog.Logger
	now    func() time.Time

	current atomic.Pointer[Snapshot]
	loaded  atomic.Bool

	// reloadMu spans a whole Reload; mu guards hooks and publishing.
	reloadMu sync.Mutex
	mu       sync.Mutex
	hooks    []ReloadHook
}

// NewStore creates a store for the secrets file at path. Until the first
// successful Reload the store serves an empty snapshot, so every service
// lookup fails.
func NewStore(path string, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Store{
		path:   path,
		logger: logger.With("component", "secrets.store"),
		now:    time.Now,
	}
	s.current.Store(EmptySnapshot(path))
	return s
}

// Path returns the secrets file path.
func (s *Store) Path() string {
	return s.path
}

// OnReload registers a hook that observes every reload attempt.
func (s *Store) OnReload(hook ReloadHook) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hooks = append(s.hooks, hook)
}

// Snapshot returns the currently published snapshot. It never returns nil.
func (s *Store) Snapshot() *Snapshot {
	return s.current.Load()
}

// Loaded reports whether a secrets file has been loaded successfully at
// least once.
func (s *Store) Loaded() bool {
	return s.loaded.Load()
}

// Reload reads and parses the secrets file and publishes the result as a new
// snapshot. On failure the previous snapshot stays in place and a
// *ConfigLoadError is returned. Content identical to the current snapshot is
// not republished.
func (s *Store) Reload(ctx context.Context) error {
	s.reloadMu.Lock()
	defer s.reloadMu.Unlock()

	start := s.now()

	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		return s.fail(start, &ConfigLoadError{Path: s.path, Op: "read", Err: err})
	}

	services, err := Parse(data)
	if err != nil {
		return s.fail(start, &ConfigLoadError{Path: s.path, Op: "parse", Err: err})
	}

	sum := sha256.Sum256(data)
	digest := hex.EncodeToString(sum[:])

	s.mu.Lock()
	defer s.mu.Unlock()

	if cur := s.current.Load(); s.loaded.Load() && cur.Digest() == digest {
		s.emit(ReloadEvent{Result: ResultUnchanged, Snapshot: cur, Duration: s.now().Sub(start)})
		return nil
	}

	snap := NewSnapshot(services, s.path, s.now(), digest)
	s.current.Store(snap)
	s.loaded.Store(true)

	s.logger.Info("secrets loaded",
		"path", s.path,
		"services", snap.Len(),
		"digest", digest[:12],
	)

	s.emit(ReloadEvent{Result: ResultLoaded, Snapshot: snap, Duration: s.now().Sub(start)})
	return nil
}

func (s *Store) fail(start time.Time, err *ConfigLoadError) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.emit(ReloadEvent{
		Result:   ResultFailed,
		Snapshot: s.current.Load(),
		Err:      err,
		Duration: s.now().Sub(start),
	})
	return err
}

// emit must be called with s.mu held.
func (s *Store) emit(ev ReloadEvent) {
	for _, hook := range s.hooks {
		hook(ev)
	}
}
