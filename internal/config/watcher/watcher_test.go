package watcher

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"
)

func newWatcher(t *testing.T, opts ...Option) *Watcher {
	t.Helper()
	w, err := New(opts...)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { _ = w.Close() })
	return w
}

// start runs w until the test ends and returns the delivered batches.
func start(t *testing.T, w *Watcher) <-chan []Event {
	t.Helper()
	batches := make(chan []Event, 16)
	w.OnChange(func(events []Event) { batches <- events })

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		if err := <-done; err != nil {
			t.Errorf("Run() error = %v", err)
		}
	})

	deadline := time.Now().Add(time.Second)
	for !w.IsRunning() && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	return batches
}

func next(t *testing.T, batches <-chan []Event) []Event {
	t.Helper()
	select {
	case events := <-batches:
		return events
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for change batch")
		return nil
	}
}

func write(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestNew(t *testing.T) {
	w := newWatcher(t)
	if w.debounce != DefaultDebounce {
		t.Errorf("default debounce = %v, want %v", w.debounce, DefaultDebounce)
	}

	w = newWatcher(t, WithDebounce(50*time.Millisecond), WithDebounce(-1))
	if w.debounce != 50*time.Millisecond {
		t.Errorf("debounce = %v, want 50ms", w.debounce)
	}
}

func TestOperation_String(t *testing.T) {
	tests := []struct {
		op   Operation
		want string
	}{
		{OpWrite, "write"},
		{OpCreate, "create"},
		{OpRemove, "remove"},
		{OpRename, "rename"},
		{Operation(99), "unknown"},
	}

	for _, tt := range tests {
		if got := tt.op.String(); got != tt.want {
			t.Errorf("%d.String() = %q, want %q", tt.op, got, tt.want)
		}
	}
}

func TestWatcher_Watch(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "config.toml")
	write(t, file, "a = 1")

	w := newWatcher(t)
	if err := w.Watch(file); err != nil {
		t.Fatalf("Watch() error = %v", err)
	}
	if err := w.Watch(file); err != nil {
		t.Errorf("second Watch() error = %v", err)
	}

	// Watching for creation
	if err := w.Watch(filepath.Join(dir, "later.toml")); err != nil {
		t.Errorf("Watch() for missing file error = %v", err)
	}
	if err := w.Watch(filepath.Join(dir, "missing", "x.toml")); err == nil {
		t.Error("Watch() with missing parent succeeded")
	}

	sub := filepath.Join(dir, "conf.d")
	if err := os.Mkdir(sub, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := w.Watch(sub); err != nil {
		t.Errorf("Watch() for directory error = %v", err)
	}

	want := []string{sub, file, filepath.Join(dir, "later.toml")}
	got := w.WatchedFiles()
	if len(got) != 3 || got[0] != want[0] || got[1] != want[1] || got[2] != want[2] {
		t.Errorf("WatchedFiles() = %q, want %q", got, want)
	}
}

func TestWatcher_Unwatch(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.toml")
	b := filepath.Join(dir, "b.toml")

	w := newWatcher(t)
	_ = w.Watch(a)
	_ = w.Watch(b)

	if err := w.Unwatch(a); err != nil {
		t.Errorf("Unwatch() error = %v", err)
	}
	if w.dirs[dir] != 1 {
		t.Errorf("dir refcount = %d, want 1", w.dirs[dir])
	}
	_ = w.Unwatch(b)
	if len(w.WatchedFiles()) != 0 || len(w.dirs) != 0 {
		t.Errorf("watch list not empty: %q", w.WatchedFiles())
	}

	// Unknown paths are ignored
	if err := w.Unwatch(filepath.Join(dir, "nope")); err != nil {
		t.Errorf("Unwatch() unknown error = %v", err)
	}
}

func TestWatcher_Closed(t *testing.T) {
	w := newWatcher(t)
	if err := w.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := w.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
	if err := w.Watch(t.TempDir()); !errors.Is(err, ErrClosed) {
		t.Errorf("Watch() after Close = %v, want ErrClosed", err)
	}
	if err := w.Run(context.Background()); !errors.Is(err, ErrClosed) {
		t.Errorf("Run() after Close = %v, want ErrClosed", err)
	}
}

func TestWatcher_RunTwice(t *testing.T) {
	w := newWatcher(t)
	start(t, w)
	if err := w.Run(context.Background()); !errors.Is(err, ErrRunning) {
		t.Errorf("second Run() = %v, want ErrRunning", err)
	}
}

func TestWatcher_DetectsFileModification(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "config.toml")
	write(t, file, "initial")

	w := newWatcher(t, WithDebounce(20*time.Millisecond))
	_ = w.Watch(file)
	batches := start(t, w)

	write(t, file, "modified")

	events := next(t, batches)
	if len(events) != 1 || events[0].Path != file || events[0].Op != OpWrite {
		t.Errorf("events = %+v, want one write of %s", events, file)
	}
}

func TestWatcher_DetectsFileCreation(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "new.toml")

	w := newWatcher(t, WithDebounce(20*time.Millisecond))
	_ = w.Watch(file)
	batches := start(t, w)

	write(t, file, "created")

	events := next(t, batches)
	if len(events) != 1 || events[0].Op != OpCreate {
		t.Errorf("events = %+v, want one create", events)
	}
}

func TestWatcher_DetectsFileDeletion(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "delete.toml")
	write(t, file, "initial")

	w := newWatcher(t, WithDebounce(20*time.Millisecond))
	_ = w.Watch(file)
	batches := start(t, w)

	if err := os.Remove(file); err != nil {
		t.Fatal(err)
	}

	events := next(t, batches)
	if len(events) != 1 || events[0].Op != OpRemove {
		t.Errorf("events = %+v, want one remove", events)
	}
}

func TestWatcher_IgnoresSiblings(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "config.toml")
	write(t, file, "initial")

	w := newWatcher(t, WithDebounce(20*time.Millisecond))
	_ = w.Watch(file)
	batches := start(t, w)

	write(t, filepath.Join(dir, "other.toml"), "x")
	write(t, file, "modified")

	events := next(t, batches)
	for _, e := range events {
		if e.Path != file {
			t.Errorf("unexpected event for %s", e.Path)
		}
	}
}

func TestWatcher_Directory(t *testing.T) {
	dir := t.TempDir()

	w := newWatcher(t, WithDebounce(50*time.Millisecond))
	_ = w.Watch(dir)
	batches := start(t, w)

	write(t, filepath.Join(dir, "b.toml"), "b")
	write(t, filepath.Join(dir, "a.yaml"), "a")

	events := next(t, batches)
	if len(events) != 2 {
		t.Fatalf("events = %+v, want 2", events)
	}
	if filepath.Base(events[0].Path) != "a.yaml" || filepath.Base(events[1].Path) != "b.toml" {
		t.Errorf("events not sorted by path: %+v", events)
	}
}

func TestWatcher_Debounce(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "debounce.toml")
	write(t, file, "initial")

	w := newWatcher(t, WithDebounce(100*time.Millisecond))
	_ = w.Watch(file)

	var batchCount atomic.Int32
	w.OnChange(func([]Event) { batchCount.Add(1) })
	batches := start(t, w)

	for i := 0; i < 5; i++ {
		write(t, file, "modified")
		time.Sleep(10 * time.Millisecond)
	}

	next(t, batches)
	time.Sleep(200 * time.Millisecond)

	if got := batchCount.Load(); got != 1 {
		t.Errorf("received %d batches, want 1", got)
	}
}

func TestWatcher_HandlerPanic(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "config.toml")
	write(t, file, "initial")

	w := newWatcher(t, WithDebounce(20*time.Millisecond))
	_ = w.Watch(file)
	w.OnChange(func([]Event) { panic("boom") })
	batches := start(t, w)

	write(t, file, "modified")
	next(t, batches)
}

func TestQueueEvent(t *testing.T) {
	tests := []struct {
		name string
		ops  []Operation
		want Operation
	}{
		{"single", []Operation{OpWrite}, OpWrite},
		{"create then write", []Operation{OpCreate, OpWrite}, OpCreate},
		{"write then write", []Operation{OpWrite, OpWrite}, OpWrite},
		{"write then remove", []Operation{OpWrite, OpRemove}, OpRemove},
		{"remove then create", []Operation{OpRemove, OpCreate}, OpCreate},
		{"rename then write", []Operation{OpRename, OpWrite}, OpRename},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pending := make(map[string]Event)
			for _, op := range tt.ops {
				queueEvent(pending, Event{Path: "/x", Op: op})
			}
			if got := pending["/x"].Op; got != tt.want {
				t.Errorf("Op = %v, want %v", got, tt.want)
			}
		})
	}
}
