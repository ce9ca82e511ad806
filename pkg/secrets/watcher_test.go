package secrets

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func fastWatcherConfig(mode string) WatcherConfig {
	return WatcherConfig{
		Mode:             mode,
		PollInterval:     20 * time.Millisecond,
		DebounceInterval: 10 * time.Millisecond,
		RestartInitial:   10 * time.Millisecond,
		RestartMax:       50 * time.Millisecond,
	}
}

func lookup(store *Store, service, key string) string {
	table, ok := store.Snapshot().Service(service)
	if !ok {
		return ""
	}
	v, _ := table.Lookup(key)
	return v
}

func TestWatcher_InitialLoadIsSynchronous(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	store, _ := newTestStore(t, "svc1:\n  apikey: XYZ\n")
	w := NewWatcher(store, fastWatcherConfig(ModePoll), nil)

	require.NoError(t, w.Start(context.Background()))
	defer w.Stop()

	assert.Equal(t, "XYZ", lookup(store, "svc1", "apikey"))
	assert.True(t, w.Running())
}

func TestWatcher_ReloadsOnChange(t *testing.T) {
	for _, mode := range []string{ModeNotify, ModePoll} {
		t.Run(mode, func(t *testing.T) {
			defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

			store, path := newTestStore(t, "svc1:\n  apikey: old\n")
			w := NewWatcher(store, fastWatcherConfig(mode), nil)
			require.NoError(t, w.Start(context.Background()))
			defer w.Stop()

			// Different size so polling notices even with coarse mtimes.
			writeFile(t, path, "svc1:\n  apikey: rotated\n")

			assert.Eventually(t, func() bool {
				return lookup(store, "svc1", "apikey") == "rotated"
			}, 2*time.Second, 10*time.Millisecond)
		})
	}
}

// rotatingReloader rewrites the file as soon as the first load has read it,
// the way a deploy can land while the proxy is still starting.
type rotatingReloader struct {
	*Store
	t       *testing.T
	content string
	once    bool
}

func (r *rotatingReloader) Reload(ctx context.Context) error {
	err := r.Store.Reload(ctx)
	if !r.once {
		r.once = true
		writeFile(r.t, r.Path(), r.content)
	}
	return err
}

func TestWatcher_WriteDuringStartup(t *testing.T) {
	for _, mode := range []string{ModeNotify, ModePoll} {
		t.Run(mode, func(t *testing.T) {
			defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

			store, _ := newTestStore(t, "svc1:\n  apikey: old\n")
			r := &rotatingReloader{Store: store, t: t, content: "svc1:\n  apikey: rotated\n"}

			w := NewWatcher(r, fastWatcherConfig(mode), nil)
			require.NoError(t, w.Start(context.Background()))
			defer w.Stop()

			assert.Eventually(t, func() bool {
				return lookup(store, "svc1", "apikey") == "rotated"
			}, time.Second, 10*time.Millisecond)
		})
	}
}

func TestWatcher_PicksUpFileCreatedLater(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	store, path := newTestStore(t, "")
	w := NewWatcher(store, fastWatcherConfig(ModeNotify), nil)
	require.NoError(t, w.Start(context.Background()))
	defer w.Stop()

	assert.False(t, store.Loaded())

	writeFile(t, path, "svc1:\n  apikey: XYZ\n")
	assert.Eventually(t, store.Loaded, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, "XYZ", lookup(store, "svc1", "apikey"))
}

func TestWatcher_InvalidEditKeepsLastGood(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	store, path := newTestStore(t, "svc1:\n  apikey: XYZ\n")

	failed := make(chan struct{}, 16)
	store.OnReload(func(ev ReloadEvent) {
		if ev.Result == ResultFailed {
			failed <- struct{}{}
		}
	})

	w := NewWatcher(store, fastWatcherConfig(ModeNotify), nil)
	require.NoError(t, w.Start(context.Background()))
	defer w.Stop()

	writeFile(t, path, "svc1: [this is not valid\n")

	select {
	case <-failed:
	case <-time.After(2 * time.Second):
		t.Fatal("reload of invalid file was never attempted")
	}
	assert.Equal(t, "XYZ", lookup(store, "svc1", "apikey"))
}

func TestWatcher_RenameIntoPlace(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	store, path := newTestStore(t, "svc1:\n  apikey: old\n")
	w := NewWatcher(store, fastWatcherConfig(ModeNotify), nil)
	require.NoError(t, w.Start(context.Background()))
	defer w.Stop()

	tmp := filepath.Join(filepath.Dir(path), ".config_secret.yml.tmp")
	writeFile(t, tmp, "svc1:\n  apikey: swapped\n")
	require.NoError(t, os.Rename(tmp, path))

	assert.Eventually(t, func() bool {
		return lookup(store, "svc1", "apikey") == "swapped"
	}, 2*time.Second, 10*time.Millisecond)
}

func TestWatcher_StartTwice(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	store, _ := newTestStore(t, "svc1:\n  apikey: XYZ\n")
	w := NewWatcher(store, fastWatcherConfig(ModePoll), nil)
	require.NoError(t, w.Start(context.Background()))
	defer w.Stop()

	assert.ErrorIs(t, w.Start(context.Background()), ErrWatcherRunning)
}

func TestWatcher_StopIsIdempotent(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	store, _ := newTestStore(t, "svc1:\n  apikey: XYZ\n")
	w := NewWatcher(store, fastWatcherConfig(ModeNotify), nil)
	require.NoError(t, w.Start(context.Background()))

	w.Stop()
	w.Stop()
	assert.False(t, w.Running())
}

func TestWatcher_ContextCancelStopsLoops(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	store, _ := newTestStore(t, "svc1:\n  apikey: XYZ\n")
	w := NewWatcher(store, fastWatcherConfig(ModeNotify), nil)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, w.Start(ctx))
	cancel()
	w.Stop()
}

func TestWatcher_Relevant(t *testing.T) {
	store, path := newTestStore(t, "")
	w := NewWatcher(store, DefaultWatcherConfig(), nil)
	other := filepath.Join(filepath.Dir(path), "other.yml")

	tests := []struct {
		name    string
		event   fsnotify.Event
		symlink bool
		want    bool
	}{
		{"write target", fsnotify.Event{Name: path, Op: fsnotify.Write}, false, true},
		{"create target", fsnotify.Event{Name: path, Op: fsnotify.Create}, false, true},
		{"chmod target", fsnotify.Event{Name: path, Op: fsnotify.Chmod}, false, false},
		{"remove target", fsnotify.Event{Name: path, Op: fsnotify.Remove}, false, false},
		{"write other file", fsnotify.Event{Name: other, Op: fsnotify.Write}, false, false},
		{"symlink any create", fsnotify.Event{Name: other, Op: fsnotify.Create}, true, true},
		{"symlink chmod", fsnotify.Event{Name: other, Op: fsnotify.Chmod}, true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, w.relevant(tt.event, tt.symlink))
		})
	}
}

func TestFileState(t *testing.T) {
	path := filepath.Join(t.TempDir(), "f")
	assert.False(t, statFile(path).exists)

	writeFile(t, path, "a")
	a := statFile(path)
	assert.True(t, a.exists)
	assert.True(t, a.same(statFile(path)))

	writeFile(t, path, "abc")
	assert.False(t, a.same(statFile(path)))
}
