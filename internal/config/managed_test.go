package config

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func TestManagedWatcher_ReloadsOnManagedFileChange(t *testing.T) {
	dir := t.TempDir()
	managedPath := filepath.Join(dir, "managed.yaml")
	if err := os.WriteFile(managedPath, []byte("model: v1\n"), 0o644); err != nil {
		t.Fatalf("write managed: %v", err)
	}

	var mu sync.Mutex
	var lastModel string
	reloaded := make(chan struct{}, 4)

	w := NewManagedWatcher(Layers{ManagedConfigPath: managedPath}, func(cfg *Config, err error) {
		if err != nil {
			t.Errorf("reload error: %v", err)
			return
		}
		mu.Lock()
		lastModel = cfg.Model
		mu.Unlock()
		reloaded <- struct{}{}
	}, nil)
	w.debounce = 10 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer w.Close()

	if err := os.WriteFile(managedPath, []byte("model: v2\n"), 0o644); err != nil {
		t.Fatalf("rewrite managed: %v", err)
	}

	select {
	case <-reloaded:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for reload callback")
	}

	mu.Lock()
	defer mu.Unlock()
	if lastModel != "v2" {
		t.Errorf("lastModel = %q, want v2", lastModel)
	}
}

func TestManagedWatcher_NoOpWithoutManagedOrMDMPath(t *testing.T) {
	w := NewManagedWatcher(Layers{}, func(*Config, error) {}, nil)
	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer w.Close()
	// No assertion beyond "does not hang or error": Start is documented as
	// a no-op when neither managed nor MDM path is configured.
}
