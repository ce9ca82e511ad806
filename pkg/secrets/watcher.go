package secrets

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/fsnotify/fsnotify"
	"go.uber.org/atomic"
)

// Watch modes.
const (
	// ModeNotify subscribes to filesystem events on the file's directory and
	// also polls, for filesystems where events are not delivered.
	ModeNotify = "fsnotify"

	// ModePoll only polls the file's modification time and size.
	ModePoll = "poll"
)

// Reloader is the part of Store the watcher drives.
type Reloader interface {
	Reload(ctx context.Context) error
	Path() string
}

// WatcherConfig contains configuration for the secrets file watcher.
type WatcherConfig struct {
	// Mode is ModeNotify or ModePoll (default: ModeNotify)
	Mode string

	// PollInterval is how often the file is stat'ed (default: 2s)
	PollInterval time.Duration

	// DebounceInterval is the quiet period after the last event before a
	// reload runs (default: 100ms)
	DebounceInterval time.Duration

	// RestartInitial is the first delay before re-establishing a failed
	// fsnotify watch (default: 500ms)
	RestartInitial time.Duration

	// RestartMax caps the restart delay (default: 30s)
	RestartMax time.Duration
}

// DefaultWatcherConfig returns the default watcher configuration.
func DefaultWatcherConfig() WatcherConfig {
	return WatcherConfig{
		Mode:             ModeNotify,
		PollInterval:     2 * time.Second,
		DebounceInterval: 100 * time.Millisecond,
		RestartInitial:   500 * time.Millisecond,
		RestartMax:       30 * time.Second,
	}
}

func (c *WatcherConfig) applyDefaults() {
	d := DefaultWatcherConfig()
	if c.Mode == "" {
		c.Mode = d.Mode
	}
	if c.PollInterval <= 0 {
		c.PollInterval = d.PollInterval
	}
	if c.DebounceInterval <= 0 {
		c.DebounceInterval = d.DebounceInterval
	}
	if c.RestartInitial <= 0 {
		c.RestartInitial = d.RestartInitial
	}
	if c.RestartMax <= 0 {
		c.RestartMax = d.RestartMax
	}
}

// Watcher keeps a Store in sync with its file. It performs one synchronous
// reload on Start, then reloads in the background whenever the file is
// created or written. Reload failures are logged and the last good snapshot
// keeps being served.
type Watcher struct {
	store    Reloader
	path     string
	config   WatcherConfig
	logger   *slog.Logger
	debounce *Debouncer

	running  atomic.Bool
	restarts atomic.Int64

	mu       sync.Mutex
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	stopOnce sync.Once
}

// NewWatcher creates a watcher for the store's file.
func NewWatcher(store Reloader, config WatcherConfig, logger *slog.Logger) *Watcher {
	config.applyDefaults()
	if logger == nil {
		logger = slog.Default()
	}

	return &Watcher{
		store:    store,
		path:     filepath.Clean(store.Path()),
		config:   config,
		logger:   logger.With("component", "secrets.watcher"),
		debounce: NewDebouncer(config.DebounceInterval),
	}
}

// Start loads the file once, synchronously, then starts the background
// watch. A failed initial load is logged, not returned: the store keeps its
// empty snapshot and the watcher picks the file up when it appears.
//
// The poll baseline and the fsnotify subscription are both in place before
// the initial load, so a write that lands right after Start returns is never
// missed.
func (w *Watcher) Start(ctx context.Context) error {
	if !w.running.CompareAndSwap(false, true) {
		return ErrWatcherRunning
	}

	baseline := statFile(w.path)

	var sub *subscription
	if w.config.Mode == ModeNotify {
		var err error
		sub, err = w.subscribe()
		if err != nil {
			// The supervisor retries with backoff and resyncs once it is up.
			w.logger.Warn("secrets watch unavailable, relying on polling",
				"path", w.path,
				"error", err,
			)
		}
	}

	if err := w.store.Reload(ctx); err != nil {
		w.logger.Warn("initial secrets load failed, serving empty config",
			"path", w.path,
			"error", err,
		)
	}

	ctx, cancel := context.WithCancel(ctx)
	w.mu.Lock()
	w.cancel = cancel
	w.mu.Unlock()

	w.wg.Add(1)
	go w.pollLoop(ctx, baseline)

	if w.config.Mode == ModeNotify {
		w.wg.Add(1)
		go w.supervise(ctx, sub)
	}

	w.logger.Info("secrets watcher started",
		"path", w.path,
		"mode", w.config.Mode,
		"poll_interval", w.config.PollInterval.String(),
		"debounce_ms", w.config.DebounceInterval.Milliseconds(),
	)
	return nil
}

// Stop stops the background watch and waits for all of its goroutines,
// including a reload that is already running. A stopped Watcher cannot be
// started again.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		w.mu.Lock()
		cancel := w.cancel
		w.mu.Unlock()

		if cancel != nil {
			cancel()
		}
		w.wg.Wait()
		w.debounce.Stop()
		w.running.Store(false)

		w.logger.Info("secrets watcher stopped", "path", w.path)
	})
}

// Running reports whether the background watch is active.
func (w *Watcher) Running() bool {
	return w.running.Load()
}

// Restarts returns how many times the fsnotify watch has been re-established
// after a failure.
func (w *Watcher) Restarts() int64 {
	return w.restarts.Load()
}

// trigger schedules a debounced reload.
func (w *Watcher) trigger(ctx context.Context, source string) {
	w.debounce.Trigger(func() {
		if ctx.Err() != nil {
			return
		}
		if err := w.store.Reload(ctx); err != nil {
			w.logger.Warn("secrets reload failed, keeping last good snapshot",
				"source", source,
				"error", err,
			)
		}
	})
}

// supervise runs the fsnotify watch and re-establishes it with exponential
// backoff whenever it fails. Polling keeps running in the meantime. sub is
// the subscription opened by Start, nil if that attempt failed.
func (w *Watcher) supervise(ctx context.Context, sub *subscription) {
	defer w.wg.Done()

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = w.config.RestartInitial
	bo.MaxInterval = w.config.RestartMax

	for {
		started := time.Now()

		// Only the subscription from Start predates the initial load. Events
		// may have been missed before any later one was up.
		resync := sub == nil
		var err error
		if sub == nil {
			sub, err = w.subscribe()
		}
		if err == nil {
			err = w.watch(ctx, sub, resync)
			sub = nil
		}
		if ctx.Err() != nil {
			return
		}

		// A watch that stayed healthy for a while starts over at the
		// initial delay.
		if time.Since(started) > w.config.RestartMax {
			bo.Reset()
		}

		delay := bo.NextBackOff()
		if delay == backoff.Stop {
			delay = w.config.RestartMax
		}

		w.restarts.Inc()
		w.logger.Warn("secrets watch failed, restarting",
			"error", err,
			"retry_in", delay.String(),
		)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}

// subscription is an fsnotify watch on the secrets file's directory.
type subscription struct {
	fw      *fsnotify.Watcher
	symlink bool
}

// subscribe watches the file's directory. Watching the directory rather than
// the file keeps the watch alive across rename-into-place updates.
func (w *Watcher) subscribe() (*subscription, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create fsnotify watcher: %w", err)
	}

	dir := filepath.Dir(w.path)
	if err := fw.Add(dir); err != nil {
		fw.Close()
		return nil, fmt.Errorf("watch %s: %w", dir, err)
	}

	// Mounted secrets are usually a symlink swapped through a hidden
	// directory; any change in the directory may then change the target.
	symlink := false
	if info, err := os.Lstat(w.path); err == nil && info.Mode()&os.ModeSymlink != 0 {
		symlink = true
	}

	w.logger.Debug("watching secrets directory", "dir", dir, "symlink", symlink)
	return &subscription{fw: fw, symlink: symlink}, nil
}

// watch dispatches events from sub until ctx is done or the subscription
// fails. It closes sub on return.
func (w *Watcher) watch(ctx context.Context, sub *subscription, resync bool) error {
	defer sub.fw.Close()

	if resync {
		w.trigger(ctx, "resync")
	}

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-sub.fw.Events:
			if !ok {
				return errors.New("fsnotify events channel closed")
			}
			if !w.relevant(event, sub.symlink) {
				continue
			}
			w.logger.Debug("secrets file event",
				"path", event.Name,
				"op", event.Op.String(),
			)
			w.trigger(ctx, "fsnotify")

		case err, ok := <-sub.fw.Errors:
			if !ok {
				return errors.New("fsnotify errors channel closed")
			}
			return fmt.Errorf("fsnotify: %w", err)
		}
	}
}

// relevant reports whether an event may have changed the secrets file.
func (w *Watcher) relevant(event fsnotify.Event, symlink bool) bool {
	if symlink {
		return event.Op != fsnotify.Chmod
	}
	if filepath.Clean(event.Name) != w.path {
		return false
	}
	return event.Has(fsnotify.Create) || event.Has(fsnotify.Write)
}

// fileState is what polling compares between ticks.
type fileState struct {
	exists  bool
	size    int64
	modTime time.Time
}

func (s fileState) same(o fileState) bool {
	return s.exists == o.exists && s.size == o.size && s.modTime.Equal(o.modTime)
}

func statFile(path string) fileState {
	info, err := os.Stat(path)
	if err != nil {
		return fileState{}
	}
	return fileState{exists: true, size: info.Size(), modTime: info.ModTime()}
}

// pollLoop reloads when the file's size or modification time changes.
// last is the state observed before the initial load.
func (w *Watcher) pollLoop(ctx context.Context, last fileState) {
	defer w.wg.Done()

	ticker := time.NewTicker(w.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			cur := statFile(w.path)
			if cur.same(last) {
				continue
			}
			last = cur
			if !cur.exists {
				w.logger.Debug("secrets file missing, keeping last good snapshot", "path", w.path)
				continue
			}
			w.trigger(ctx, "poll")
		}
	}
}
