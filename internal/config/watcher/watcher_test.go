package watcher

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func waitEvent(t *testing.T, ch <-chan Event) Event {
	t.Helper()
	select {
	case ev := <-ch:
		return ev
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for event")
		return Event{}
	}
}

func newTestWatcher(t *testing.T, opts ...Option) (*Watcher, <-chan Event) {
	t.Helper()
	w, err := New(opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { w.Close() })

	ch := make(chan Event, 16)
	w.OnChange(func(ev Event) { ch <- ev })
	return w, ch
}

func TestOperationString(t *testing.T) {
	tests := []struct {
		op   Operation
		want string
	}{
		{OpWrite, "write"},
		{OpCreate, "create"},
		{OpRemove, "remove"},
		{OpRename, "rename"},
		{Operation(42), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.op.String(); got != tt.want {
			t.Errorf("%d.String() = %q, want %q", tt.op, got, tt.want)
		}
	}
}

func TestWatchFileWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "keys.toml")
	if err := os.WriteFile(path, []byte("a"), 0o644); err != nil {
		t.Fatal(err)
	}

	w, ch := newTestWatcher(t, WithDebounce(20*time.Millisecond))
	if err := w.Watch(path); err != nil {
		t.Fatalf("Watch: %v", err)
	}

	if err := os.WriteFile(path, []byte("b"), 0o644); err != nil {
		t.Fatal(err)
	}
	ev := waitEvent(t, ch)
	if ev.Path != path {
		t.Errorf("Path = %q, want %q", ev.Path, path)
	}
}

func TestWatchIgnoresSiblings(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "keys.toml")
	os.WriteFile(path, []byte("a"), 0o644)

	w, ch := newTestWatcher(t, WithDebounce(0))
	w.Watch(path)

	os.WriteFile(filepath.Join(dir, "other.toml"), []byte("x"), 0o644)
	os.WriteFile(path, []byte("b"), 0o644)

	ev := waitEvent(t, ch)
	if ev.Path != path {
		t.Errorf("sibling file reported: %q", ev.Path)
	}
}

func TestWatchMissingFileCreate(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "later.yaml")

	w, ch := newTestWatcher(t, WithDebounce(20*time.Millisecond))
	if err := w.Watch(path); err != nil {
		t.Fatalf("Watch: %v", err)
	}

	os.WriteFile(path, []byte("bindings: []"), 0o644)
	ev := waitEvent(t, ch)
	if ev.Path != path {
		t.Errorf("Path = %q", ev.Path)
	}
}

func TestWatchDirFilter(t *testing.T) {
	dir := t.TempDir()

	w, ch := newTestWatcher(t,
		WithDebounce(20*time.Millisecond),
		WithFilter(func(p string) bool { return strings.HasSuffix(p, ".toml") }),
	)
	if err := w.Watch(dir); err != nil {
		t.Fatalf("Watch(dir): %v", err)
	}

	os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644)
	os.WriteFile(filepath.Join(dir, "user.toml"), []byte("x"), 0o644)

	ev := waitEvent(t, ch)
	if filepath.Base(ev.Path) != "user.toml" {
		t.Errorf("Path = %q, want user.toml", ev.Path)
	}
}

func TestDebounceCoalesces(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "keys.json")
	os.WriteFile(path, []byte("{}"), 0o644)

	w, ch := newTestWatcher(t, WithDebounce(200*time.Millisecond))
	w.Watch(path)

	for i := 0; i < 5; i++ {
		os.WriteFile(path, []byte(strings.Repeat("x", i+1)), 0o644)
	}
	waitEvent(t, ch)

	select {
	case ev := <-ch:
		t.Errorf("burst produced a second event: %+v", ev)
	case <-time.After(400 * time.Millisecond):
	}
}

func TestUnwatch(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "keys.toml")
	os.WriteFile(path, []byte("a"), 0o644)

	w, _ := newTestWatcher(t)
	w.Watch(path)
	if got := w.WatchedPaths(); len(got) != 1 || got[0] != path {
		t.Errorf("WatchedPaths = %v", got)
	}

	if err := w.Unwatch(path); err != nil {
		t.Fatalf("Unwatch: %v", err)
	}
	if err := w.Unwatch(path); !errors.Is(err, ErrNotWatching) {
		t.Errorf("second Unwatch = %v, want ErrNotWatching", err)
	}
	if len(w.WatchedPaths()) != 0 {
		t.Error("path still listed")
	}
}

func TestClosed(t *testing.T) {
	w, err := New()
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
	if err := w.Watch(filepath.Join(t.TempDir(), "x.toml")); !errors.Is(err, ErrClosed) {
		t.Errorf("Watch after Close = %v, want ErrClosed", err)
	}
}
