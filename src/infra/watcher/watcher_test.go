package watcher

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestFileWatcherReportsSettledChange(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pew.toml")
	other := filepath.Join(dir, "other.toml")
	os.WriteFile(path, []byte("a"), 0o644)

	w, err := NewFileWatcher(path, 50*time.Millisecond, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("new watcher: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer w.Stop()

	os.WriteFile(other, []byte("x"), 0o644)
	select {
	case ev := <-w.Events():
		t.Fatalf("unrelated file reported: %+v", ev)
	case <-time.After(200 * time.Millisecond):
	}

	for i := 0; i < 5; i++ {
		os.WriteFile(path, []byte{byte('b' + i)}, 0o644)
		time.Sleep(5 * time.Millisecond)
	}
	select {
	case ev := <-w.Events():
		if ev.Path != path {
			t.Errorf("expected %s, got %s", path, ev.Path)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("expected a change event")
	}

	select {
	case ev := <-w.Events():
		t.Fatalf("burst should produce a single event, got another: %+v", ev)
	case <-time.After(200 * time.Millisecond):
	}
}

func TestFileWatcherStopIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pew.toml")
	w, err := NewFileWatcher(path, 0, nil)
	if err != nil {
		t.Fatalf("new watcher: %v", err)
	}
	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	w.Stop()
	w.Stop()
}
