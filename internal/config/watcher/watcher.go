// Package watcher provides file watching for configuration live reload.
//
// The watcher monitors configuration files and directories through
// fsnotify and hands each debounced burst of changes to its handlers as
// a single batch. Files are watched through their parent directory so
// that editors which replace a file atomically, and files that do not
// exist yet, are still observed.
package watcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is the quiet period that ends a burst of changes.
const DefaultDebounce = 100 * time.Millisecond

var (
	// ErrClosed is returned by operations on a closed watcher.
	ErrClosed = errors.New("watcher: closed")

	// ErrRunning is returned when Run is called on a running watcher.
	ErrRunning = errors.New("watcher: already running")
)

// Event represents a file change event.
type Event struct {
	// Path is the absolute path to the changed file.
	Path string

	// Op is the operation that triggered the event.
	Op Operation

	// Time is when the last event for Path in the burst occurred.
	Time time.Time
}

// Operation represents the type of file operation.
type Operation int

const (
	// OpWrite indicates the file was modified.
	OpWrite Operation = iota

	// OpCreate indicates a new file was created.
	OpCreate

	// OpRemove indicates the file was deleted.
	OpRemove

	// OpRename indicates the file was renamed.
	OpRename
)

// String returns the operation name.
func (op Operation) String() string {
	switch op {
	case OpWrite:
		return "write"
	case OpCreate:
		return "create"
	case OpRemove:
		return "remove"
	case OpRename:
		return "rename"
	default:
		return "unknown"
	}
}

// Handler is called with the coalesced events of one burst, sorted by
// path.
type Handler func(events []Event)

// Watcher monitors files and directories for changes.
type Watcher struct {
	mu sync.RWMutex

	fsw *fsnotify.Watcher

	// Watched files, keyed by absolute path
	files map[string]bool

	// Directories whose every entry is watched
	trees map[string]bool

	// Directories registered with fsnotify, with reference counts
	dirs map[string]int

	handlers []Handler

	debounce time.Duration
	logger   *slog.Logger

	running bool
	closed  bool
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounce sets the quiet period that ends a burst. Zero delivers
// every event on its own.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d >= 0 {
			w.debounce = d
		}
	}
}

// WithLogger sets the logger used for watch errors and handler panics.
func WithLogger(logger *slog.Logger) Option {
	return func(w *Watcher) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// New creates a new file watcher.
func New(opts ...Option) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watcher: %w", err)
	}

	w := &Watcher{
		fsw:      fsw,
		files:    make(map[string]bool),
		trees:    make(map[string]bool),
		dirs:     make(map[string]int),
		debounce: DefaultDebounce,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w, nil
}

// Watch adds a file or directory to the watch list. A file that does
// not exist yet is watched for creation; its parent directory must
// exist. A directory reports changes to any entry directly inside it.
func (w *Watcher) Watch(path string) error {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return ErrClosed
	}

	info, err := os.Stat(absPath)
	switch {
	case err == nil && info.IsDir():
		if w.trees[absPath] {
			return nil
		}
		if err := w.addDir(absPath); err != nil {
			return err
		}
		w.trees[absPath] = true
		return nil
	case err != nil && !errors.Is(err, os.ErrNotExist):
		return err
	}

	if w.files[absPath] {
		return nil
	}
	if err := w.addDir(filepath.Dir(absPath)); err != nil {
		return err
	}
	w.files[absPath] = true
	return nil
}

// Unwatch removes a file or directory from the watch list.
func (w *Watcher) Unwatch(path string) error {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return ErrClosed
	}

	switch {
	case w.trees[absPath]:
		delete(w.trees, absPath)
		w.removeDir(absPath)
	case w.files[absPath]:
		delete(w.files, absPath)
		w.removeDir(filepath.Dir(absPath))
	}
	return nil
}

func (w *Watcher) addDir(dir string) error {
	if w.dirs[dir] == 0 {
		if err := w.fsw.Add(dir); err != nil {
			return fmt.Errorf("watch %s: %w", dir, err)
		}
	}
	w.dirs[dir]++
	return nil
}

func (w *Watcher) removeDir(dir string) {
	w.dirs[dir]--
	if w.dirs[dir] > 0 {
		return
	}
	delete(w.dirs, dir)
	if err := w.fsw.Remove(dir); err != nil {
		w.logger.Debug("unwatch directory", "dir", dir, "err", err)
	}
}

// WatchedFiles returns the watched files and directories, sorted.
func (w *Watcher) WatchedFiles() []string {
	w.mu.RLock()
	defer w.mu.RUnlock()

	files := make([]string, 0, len(w.files)+len(w.trees))
	for path := range w.files {
		files = append(files, path)
	}
	for path := range w.trees {
		files = append(files, path)
	}
	sort.Strings(files)
	return files
}

// OnChange registers a handler for change batches.
func (w *Watcher) OnChange(handler Handler) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.handlers = append(w.handlers, handler)
}

// IsRunning returns whether Run is active.
func (w *Watcher) IsRunning() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.running
}

// Run delivers change batches until ctx is done or the watcher is
// closed. Pending events are flushed before Run returns.
func (w *Watcher) Run(ctx context.Context) error {
	w.mu.Lock()
	switch {
	case w.closed:
		w.mu.Unlock()
		return ErrClosed
	case w.running:
		w.mu.Unlock()
		return ErrRunning
	}
	w.running = true
	w.mu.Unlock()

	defer func() {
		w.mu.Lock()
		w.running = false
		w.mu.Unlock()
	}()

	pending := make(map[string]Event)
	var timer *time.Timer
	var fire <-chan time.Time
	defer func() {
		if timer != nil {
			timer.Stop()
		}
		w.flush(pending)
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			event, ok := w.convert(ev)
			if !ok {
				continue
			}
			queueEvent(pending, event)
			if w.debounce == 0 {
				w.flush(pending)
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			fire = timer.C

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watch error", "err", err)

		case <-fire:
			fire = nil
			w.flush(pending)
		}
	}
}

// Close stops watching. It is safe to call Close multiple times.
func (w *Watcher) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	w.mu.Unlock()

	return w.fsw.Close()
}

// convert maps an fsnotify event to a watched-path event.
func (w *Watcher) convert(ev fsnotify.Event) (Event, bool) {
	var op Operation
	switch {
	case ev.Op.Has(fsnotify.Remove):
		op = OpRemove
	case ev.Op.Has(fsnotify.Rename):
		op = OpRename
	case ev.Op.Has(fsnotify.Create):
		op = OpCreate
	case ev.Op.Has(fsnotify.Write):
		op = OpWrite
	default:
		return Event{}, false
	}

	path := filepath.Clean(ev.Name)
	w.mu.RLock()
	watched := w.files[path] || w.trees[filepath.Dir(path)]
	w.mu.RUnlock()
	if !watched {
		return Event{}, false
	}
	return Event{Path: path, Op: op, Time: time.Now()}, true
}

// queueEvent coalesces event into pending:
// - create + write => create
// - write + write => write (latest time)
// - any + remove => remove
func queueEvent(pending map[string]Event, event Event) {
	existing, ok := pending[event.Path]
	if ok {
		event.Op = coalesce(existing.Op, event.Op)
	}
	pending[event.Path] = event
}

func coalesce(existing, next Operation) Operation {
	switch next {
	case OpRemove, OpCreate:
		return next
	case OpWrite:
		return existing
	default:
		return next
	}
}

// flush delivers and clears pending.
func (w *Watcher) flush(pending map[string]Event) {
	if len(pending) == 0 {
		return
	}
	events := make([]Event, 0, len(pending))
	for path, event := range pending {
		events = append(events, event)
		delete(pending, path)
	}
	sort.Slice(events, func(i, j int) bool { return events[i].Path < events[j].Path })

	w.mu.RLock()
	handlers := make([]Handler, len(w.handlers))
	copy(handlers, w.handlers)
	w.mu.RUnlock()

	for _, handler := range handlers {
		w.safeCallHandler(handler, events)
	}
}

// safeCallHandler calls a handler with panic recovery.
func (w *Watcher) safeCallHandler(handler Handler, events []Event) {
	defer func() {
		if r := recover(); r != nil {
			w.logger.Error("watch handler panicked", "panic", r)
		}
	}()
	handler(events)
}
