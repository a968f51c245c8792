package config

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// ManagedWatcher reloads the managed-config and MDM-profile layers
// whenever either file changes on disk, grounded on the teacher's
// skills.Manager file watcher (internal/skills/manager.go:
// StartWatching/watchLoop): one fsnotify.Watcher, a debounce timer
// coalescing bursts of filesystem events, and a callback invoked with the
// freshly reloaded Config.
type ManagedWatcher struct {
	layers   Layers
	onReload func(*Config, error)
	logger   *slog.Logger
	debounce time.Duration

	mu      sync.Mutex
	watcher *fsnotify.Watcher
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewManagedWatcher constructs a watcher over the managed/MDM layers of l.
// onReload is invoked on the watch goroutine every time one of those files
// changes; callers needing session-thread safety must re-dispatch to their
// own synchronization.
func NewManagedWatcher(l Layers, onReload func(*Config, error), logger *slog.Logger) *ManagedWatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &ManagedWatcher{layers: l, onReload: onReload, logger: logger, debounce: reloadDebounce}
}

// Start begins watching. It is a no-op if neither ManagedConfigPath nor
// MDMProfilePath is set, or if already started.
func (w *ManagedWatcher) Start(ctx context.Context) error {
	if w.layers.ManagedConfigPath == "" && w.layers.MDMProfilePath == "" {
		return nil
	}

	w.mu.Lock()
	if w.watcher != nil {
		w.mu.Unlock()
		return nil
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		w.mu.Unlock()
		return err
	}
	w.watcher = watcher
	watchCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	w.mu.Unlock()

	for _, path := range []string{w.layers.ManagedConfigPath, w.layers.MDMProfilePath} {
		if path == "" {
			continue
		}
		if err := watcher.Add(path); err != nil {
			w.logger.Warn("config watch add failed", "path", path, "error", err)
		}
	}

	w.wg.Add(1)
	go w.watchLoop(watchCtx)
	return nil
}

// Close stops the watcher and waits for its goroutine to exit.
func (w *ManagedWatcher) Close() error {
	w.mu.Lock()
	if w.cancel != nil {
		w.cancel()
		w.cancel = nil
	}
	watcher := w.watcher
	w.watcher = nil
	w.mu.Unlock()

	if watcher != nil {
		_ = watcher.Close()
	}
	w.wg.Wait()
	return nil
}

func (w *ManagedWatcher) watchLoop(ctx context.Context) {
	defer w.wg.Done()
	w.mu.Lock()
	watcher := w.watcher
	w.mu.Unlock()
	if watcher == nil {
		return
	}

	var mu sync.Mutex
	var timer *time.Timer
	scheduleReload := func() {
		mu.Lock()
		defer mu.Unlock()
		if timer != nil {
			timer.Stop()
		}
		timer = time.AfterFunc(w.debounce, func() {
			cfg, err := Load(w.layers)
			w.onReload(cfg, err)
		})
	}

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
				scheduleReload()
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("config watch error", "error", err)
		}
	}
}
