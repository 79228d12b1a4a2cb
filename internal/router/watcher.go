package router

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/abhisek/tutorpilot/internal/logging"
)

// ProfileWatcher reloads a profile file into a Router when it changes. An
// invalid file is logged and the active profile is kept.
type ProfileWatcher struct {
	path     string
	router   *Router
	watcher  *fsnotify.Watcher
	debounce time.Duration
	logger   *slog.Logger
	onReload func(*Profile, error)

	mu      sync.Mutex
	running bool
}

// WatcherOption configures a ProfileWatcher.
type WatcherOption func(*ProfileWatcher)

// WithDebounce sets how long to wait after the last change before
// reloading.
func WithDebounce(d time.Duration) WatcherOption {
	return func(w *ProfileWatcher) { w.debounce = d }
}

// WithWatchLogger sets the logger. Nil discards.
func WithWatchLogger(l *slog.Logger) WatcherOption {
	return func(w *ProfileWatcher) { w.logger = logging.OrDiscard(l) }
}

// OnReload registers a callback run after each reload attempt.
func OnReload(fn func(*Profile, error)) WatcherOption {
	return func(w *ProfileWatcher) { w.onReload = fn }
}

// NewProfileWatcher creates a watcher for path. The directory is watched
// so editors that replace the file are handled.
func NewProfileWatcher(path string, r *Router, opts ...WatcherOption) (*ProfileWatcher, error) {
	if path == "" {
		return nil, errors.New("profile path is required for watching")
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create fsnotify watcher: %w", err)
	}
	w := &ProfileWatcher{
		path:     filepath.Clean(path),
		router:   r,
		watcher:  fsw,
		debounce: 250 * time.Millisecond,
		logger:   logging.Discard(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Watch blocks until ctx is done, reloading the profile after changes.
func (w *ProfileWatcher) Watch(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return errors.New("profile watcher is already running")
	}
	w.running = true
	w.mu.Unlock()
	defer w.watcher.Close()

	if err := w.watcher.Add(filepath.Dir(w.path)); err != nil {
		return fmt.Errorf("watch %s: %w", w.path, err)
	}

	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case ev, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != w.path || (!ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create)) {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(w.debounce, w.reload)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("profile watcher error", "path", w.path, "error", err)
		}
	}
}

func (w *ProfileWatcher) reload() {
	p, err := LoadProfileFile(w.path)
	if err == nil {
		err = w.router.SetProfile(p)
	}
	if err != nil {
		w.logger.Warn("profile reload failed; keeping active profile", "path", w.path, "error", err)
	} else {
		w.logger.Info("profile reloaded", "path", w.path, "profile", p.Name, "version", p.Version)
	}
	if w.onReload != nil {
		w.onReload(p, err)
	}
}
