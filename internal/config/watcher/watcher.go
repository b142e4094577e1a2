// Package watcher reports changes to keymap and config files.
//
// Files are watched through their parent directory so editors that save by
// writing a temp file and renaming it over the original are still seen.
// Bursts of events for one path are coalesced into a single callback.
package watcher

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Errors returned by the watcher.
var (
	ErrClosed        = errors.New("watcher closed")
	ErrNotWatching   = errors.New("path not watched")
	ErrNotADirectory = errors.New("not a directory")
)

// Operation represents the type of file operation.
type Operation int

const (
	// OpWrite indicates the file was modified.
	OpWrite Operation = iota

	// OpCreate indicates a new file was created.
	OpCreate

	// OpRemove indicates the file was deleted.
	OpRemove

	// OpRename indicates the file was renamed away.
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

// Event represents a file change.
type Event struct {
	// Path is the absolute path to the changed file.
	Path string

	// Op is the last operation seen for the path within the debounce window.
	Op Operation

	// Time is when the event was delivered.
	Time time.Time
}

// Handler is called when a file change is detected.
type Handler func(event Event)

// Filter decides whether a file inside a watched directory is of interest.
type Filter func(path string) bool

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounce sets the window used to coalesce rapid changes.
// Zero delivers every event immediately.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d >= 0 {
			w.debounce = d
		}
	}
}

// WithFilter limits directory watches to files accepted by f.
func WithFilter(f Filter) Option {
	return func(w *Watcher) {
		w.filter = f
	}
}

// WithLogger sets the logger for watch errors.
func WithLogger(l *slog.Logger) Option {
	return func(w *Watcher) {
		if l != nil {
			w.log = l
		}
	}
}

type pendingEvent struct {
	op    Operation
	timer *time.Timer
	gen   uint64
}

// Watcher monitors files and directories for changes.
type Watcher struct {
	mu sync.Mutex

	fs       *fsnotify.Watcher
	debounce time.Duration
	filter   Filter
	log      *slog.Logger

	// files are individually watched files; dirs are watched directories
	// whose every (filtered) file is reported. refs counts the reasons a
	// directory is registered with fsnotify.
	files map[string]bool
	dirs  map[string]bool
	refs  map[string]int

	handlers []Handler
	pending  map[string]*pendingEvent
	gen      uint64

	closed  bool
	closeCh chan struct{}
	wg      sync.WaitGroup
}

// New creates a watcher and starts its event loop.
func New(opts ...Option) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating watcher: %w", err)
	}

	w := &Watcher{
		fs:       fsw,
		debounce: 100 * time.Millisecond,
		log:      slog.Default(),
		files:    make(map[string]bool),
		dirs:     make(map[string]bool),
		refs:     make(map[string]int),
		pending:  make(map[string]*pendingEvent),
		closeCh:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}

	w.wg.Add(1)
	go w.loop()
	return w, nil
}

// Watch adds a file, or a directory when path names one.
// A file that does not exist yet is reported once it is created.
func (w *Watcher) Watch(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}

	if info, err := os.Stat(abs); err == nil && info.IsDir() {
		return w.WatchDir(abs)
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return ErrClosed
	}
	if w.files[abs] {
		return nil
	}
	if err := w.addRefLocked(filepath.Dir(abs)); err != nil {
		return err
	}
	w.files[abs] = true
	return nil
}

// WatchDir reports changes to every file in dir accepted by the filter.
// Subdirectories are not watched.
func (w *Watcher) WatchDir(dir string) error {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: %s", ErrNotADirectory, abs)
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return ErrClosed
	}
	if w.dirs[abs] {
		return nil
	}
	if err := w.addRefLocked(abs); err != nil {
		return err
	}
	w.dirs[abs] = true
	return nil
}

// Unwatch removes a file or directory.
func (w *Watcher) Unwatch(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return ErrClosed
	}
	switch {
	case w.files[abs]:
		delete(w.files, abs)
		return w.dropRefLocked(filepath.Dir(abs))
	case w.dirs[abs]:
		delete(w.dirs, abs)
		return w.dropRefLocked(abs)
	}
	return fmt.Errorf("%w: %s", ErrNotWatching, abs)
}

func (w *Watcher) addRefLocked(dir string) error {
	if w.refs[dir] == 0 {
		if err := w.fs.Add(dir); err != nil {
			return fmt.Errorf("watching %s: %w", dir, err)
		}
	}
	w.refs[dir]++
	return nil
}

func (w *Watcher) dropRefLocked(dir string) error {
	w.refs[dir]--
	if w.refs[dir] > 0 {
		return nil
	}
	delete(w.refs, dir)
	return w.fs.Remove(dir)
}

// OnChange registers a handler for file change events.
// Handlers run on the watcher's goroutine or a debounce timer.
func (w *Watcher) OnChange(h Handler) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.handlers = append(w.handlers, h)
}

// WatchedPaths returns watched files and directories, sorted.
func (w *Watcher) WatchedPaths() []string {
	w.mu.Lock()
	defer w.mu.Unlock()

	paths := make([]string, 0, len(w.files)+len(w.dirs))
	for p := range w.files {
		paths = append(paths, p)
	}
	for p := range w.dirs {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// Close stops the watcher and cancels pending events.
func (w *Watcher) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	close(w.closeCh)
	for path, p := range w.pending {
		p.timer.Stop()
		delete(w.pending, path)
	}
	w.mu.Unlock()

	err := w.fs.Close()
	w.wg.Wait()
	return err
}

func (w *Watcher) loop() {
	defer w.wg.Done()

	for {
		select {
		case <-w.closeCh:
			return

		case ev, ok := <-w.fs.Events:
			if !ok {
				return
			}
			w.handle(ev)

		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			w.log.Warn("[watcher] watch error", "error", err)
		}
	}
}

func (w *Watcher) handle(ev fsnotify.Event) {
	op, ok := convertOp(ev.Op)
	if !ok {
		return
	}
	path := filepath.Clean(ev.Name)

	w.mu.Lock()
	if w.closed || !w.interestedLocked(path) {
		w.mu.Unlock()
		return
	}

	if w.debounce == 0 {
		w.mu.Unlock()
		w.emit(Event{Path: path, Op: op, Time: time.Now()})
		return
	}

	w.gen++
	gen := w.gen
	if p, ok := w.pending[path]; ok {
		p.timer.Stop()
	}
	p := &pendingEvent{op: op, gen: gen}
	p.timer = time.AfterFunc(w.debounce, func() { w.flush(path, gen) })
	w.pending[path] = p
	w.mu.Unlock()
}

func (w *Watcher) interestedLocked(path string) bool {
	if w.files[path] {
		return true
	}
	if !w.dirs[filepath.Dir(path)] {
		return false
	}
	return w.filter == nil || w.filter(path)
}

// flush delivers a debounced event unless a newer one replaced it.
func (w *Watcher) flush(path string, gen uint64) {
	w.mu.Lock()
	p, ok := w.pending[path]
	if !ok || p.gen != gen || w.closed {
		w.mu.Unlock()
		return
	}
	delete(w.pending, path)
	w.mu.Unlock()

	w.emit(Event{Path: path, Op: p.op, Time: time.Now()})
}

func (w *Watcher) emit(ev Event) {
	w.mu.Lock()
	handlers := append([]Handler(nil), w.handlers...)
	w.mu.Unlock()

	for _, h := range handlers {
		h(ev)
	}
}

func convertOp(op fsnotify.Op) (Operation, bool) {
	switch {
	case op.Has(fsnotify.Remove):
		return OpRemove, true
	case op.Has(fsnotify.Rename):
		return OpRename, true
	case op.Has(fsnotify.Create):
		return OpCreate, true
	case op.Has(fsnotify.Write):
		return OpWrite, true
	}
	return 0, false
}
