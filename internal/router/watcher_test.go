package router

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProfileWatcherReloads(t *testing.T) {
	base := builtinYAML(t, ProfileModes)
	path := filepath.Join(t.TempDir(), "profile.yaml")
	// write runs inside Eventually's goroutine, so it reports nothing.
	write := func(name string) error {
		src := strings.Replace(base, "name: modes", "name: "+name, 1)
		return os.WriteFile(path, []byte(src), 0o600)
	}
	require.NoError(t, write("first"))

	cfg := DefaultConfig()
	cfg.ProfilePath = path
	r, err := New(cfg)
	require.NoError(t, err)

	var (
		mu       sync.Mutex
		failures int
	)
	w, err := NewProfileWatcher(path, r,
		WithDebounce(10*time.Millisecond),
		OnReload(func(_ *Profile, err error) {
			if err != nil {
				mu.Lock()
				failures++
				mu.Unlock()
			}
		}),
	)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Watch(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	d := r.Classify(context.Background(), "explain backpropagation", nil)
	require.Equal(t, "first", d.Profile)

	require.Eventually(t, func() bool {
		_ = write("second")
		return r.Profile().Name == "second"
	}, 5*time.Second, 50*time.Millisecond)

	// Cached decisions survive a reload.
	d = r.Classify(context.Background(), "explain backpropagation", nil)
	assert.True(t, d.Cached)
	assert.Equal(t, "first", d.Profile)

	require.Eventually(t, func() bool {
		_ = os.WriteFile(path, []byte("version: v9.0.0"), 0o600)
		mu.Lock()
		defer mu.Unlock()
		return failures > 0
	}, 5*time.Second, 50*time.Millisecond)
	assert.Equal(t, "second", r.Profile().Name, "an invalid file keeps the active profile")
}

func TestNewProfileWatcherNeedsPath(t *testing.T) {
	r, err := New(DefaultConfig())
	require.NoError(t, err)
	_, err = NewProfileWatcher("", r)
	assert.Error(t, err)
}
