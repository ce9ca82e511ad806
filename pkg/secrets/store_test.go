package secrets

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testTime = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

func newTestStore(t *testing.T, content string) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config_secret.yml")
	if content != "" {
		writeFile(t, path, content)
	}
	return NewStore(path, nil), path
}

func TestStore_EmptyUntilLoaded(t *testing.T) {
	store, _ := newTestStore(t, "")

	snap := store.Snapshot()
	require.NotNil(t, snap)
	assert.Zero(t, snap.Len())
	assert.False(t, store.Loaded())
}

func TestStore_Reload(t *testing.T) {
	store, path := newTestStore(t, "svc1:\n  apikey: XYZ\n")

	require.NoError(t, store.Reload(context.Background()))
	assert.True(t, store.Loaded())

	table, ok := store.Snapshot().Service("svc1")
	require.True(t, ok)
	v, ok := table.Lookup("apikey")
	require.True(t, ok)
	assert.Equal(t, "XYZ", v)
	assert.Equal(t, path, store.Snapshot().Source())
	assert.NotEmpty(t, store.Snapshot().Digest())
}

func TestStore_InvalidReloadKeepsPrevious(t *testing.T) {
	store, path := newTestStore(t, "svc1:\n  apikey: XYZ\n")
	require.NoError(t, store.Reload(context.Background()))
	before := store.Snapshot()

	writeFile(t, path, "svc1:\n  apikey: [broken\n")
	err := store.Reload(context.Background())

	var loadErr *ConfigLoadError
	require.ErrorAs(t, err, &loadErr)
	assert.Equal(t, "parse", loadErr.Op)
	assert.Same(t, before, store.Snapshot())
}

func TestStore_MissingFileKeepsPrevious(t *testing.T) {
	store, path := newTestStore(t, "svc1:\n  apikey: XYZ\n")
	require.NoError(t, store.Reload(context.Background()))
	before := store.Snapshot()

	require.NoError(t, os.Remove(path))
	err := store.Reload(context.Background())

	require.Error(t, err)
	assert.True(t, errors.Is(err, fs.ErrNotExist))
	assert.Same(t, before, store.Snapshot())
}

func TestStore_MissingFileAtStartupServesEmpty(t *testing.T) {
	store, _ := newTestStore(t, "")

	err := store.Reload(context.Background())
	require.Error(t, err)
	assert.Zero(t, store.Snapshot().Len())
	assert.False(t, store.Loaded())
}

func TestStore_UnchangedContentIsNotRepublished(t *testing.T) {
	store, path := newTestStore(t, "svc1:\n  apikey: XYZ\n")
	require.NoError(t, store.Reload(context.Background()))
	before := store.Snapshot()

	// Rewrite identical bytes; only the mtime changes.
	writeFile(t, path, "svc1:\n  apikey: XYZ\n")
	require.NoError(t, store.Reload(context.Background()))
	assert.Same(t, before, store.Snapshot())
}

func TestStore_CancelledContext(t *testing.T) {
	store, _ := newTestStore(t, "svc1:\n  apikey: XYZ\n")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, store.Reload(ctx), context.Canceled)
	assert.False(t, store.Loaded())
}

func TestStore_Hooks(t *testing.T) {
	store, path := newTestStore(t, "svc1:\n  apikey: XYZ\n")

	var results []string
	store.OnReload(func(ev ReloadEvent) {
		results = append(results, ev.Result)
		require.NotNil(t, ev.Snapshot)
		if ev.Result == ResultFailed {
			assert.Error(t, ev.Err)
		}
	})

	ctx := context.Background()
	require.NoError(t, store.Reload(ctx))
	require.NoError(t, store.Reload(ctx))
	writeFile(t, path, "not: [valid\n")
	require.Error(t, store.Reload(ctx))

	assert.Equal(t, []string{ResultLoaded, ResultUnchanged, ResultFailed}, results)
}

// Readers racing a stream of reloads must only ever see one of the complete
// configurations: every service carries the same generation marker.
func TestStore_SnapshotIsolation(t *testing.T) {
	store, path := newTestStore(t, generation("g0"))
	require.NoError(t, store.Reload(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for ctx.Err() == nil {
				snap := store.Snapshot()
				var seen string
				for _, name := range snap.Services() {
					table, _ := snap.Service(name)
					v, _ := table.Lookup("gen")
					if seen == "" {
						seen = v
					}
					if v != seen {
						t.Errorf("mixed snapshot: %s has %s, expected %s", name, v, seen)
						return
					}
				}
			}
		}()
	}

	for i := 1; i <= 50; i++ {
		gen := "g" + strconv.Itoa(i)
		require.NoError(t, os.WriteFile(path, []byte(generation(gen)), 0o600))
		require.NoError(t, store.Reload(ctx))
	}

	cancel()
	wg.Wait()
}

func generation(gen string) string {
	return "a:\n  gen: " + gen + "\nb:\n  gen: " + gen + "\nc:\n  gen: " + gen + "\n"
}

// Concurrent reloads must never publish an older read of the file after a
// newer one: once every writer has reloaded, the last write is served.
func TestStore_ConcurrentReloadsPublishLatest(t *testing.T) {
	store, path := newTestStore(t, generation("g0"))
	tmp := path + ".tmp"

	var (
		wmu  sync.Mutex
		last string
		wg   sync.WaitGroup
	)
	for i := 1; i <= 20; i++ {
		wg.Add(1)
		go func(gen string) {
			defer wg.Done()

			wmu.Lock()
			// Rename keeps readers from seeing a truncated file.
			if err := os.WriteFile(tmp, []byte(generation(gen)), 0o600); err == nil {
				if err := os.Rename(tmp, path); err == nil {
					last = gen
				}
			}
			wmu.Unlock()

			assert.NoError(t, store.Reload(context.Background()))
		}("g" + strconv.Itoa(i))
	}
	wg.Wait()

	table, ok := store.Snapshot().Service("a")
	require.True(t, ok)
	v, _ := table.Lookup("gen")
	assert.Equal(t, last, v)
}
