// Package app wires keyroute together: configuration, the shortcut
// manager, keymap files, scripts, live reload and the event host.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"

	"github.com/gdamore/tcell/v2"

	"github.com/dshills/keyroute/internal/config"
	"github.com/dshills/keyroute/internal/config/watcher"
	"github.com/dshills/keyroute/internal/host/feed"
	"github.com/dshills/keyroute/internal/host/terminal"
	"github.com/dshills/keyroute/internal/input"
	"github.com/dshills/keyroute/internal/input/keymap"
	"github.com/dshills/keyroute/internal/input/source"
	script "github.com/dshills/keyroute/internal/plugin/lua"
)

// Host names accepted by Options.Host.
const (
	HostTTY   = "tty"
	HostStdin = "stdin"
)

// Options configures the application.
type Options struct {
	// ConfigPath is the configuration file. Empty uses the defaults.
	ConfigPath string

	// KeymapPaths are added to the configured keymap paths.
	KeymapPaths []string

	// ScriptPaths are added to the configured script paths.
	ScriptPaths []string

	// Host selects the event source: "tty" or "stdin". Default: stdin.
	Host string

	// LogLevel overrides the configured log level when set.
	LogLevel string

	// Lookup reads environment overrides. Default: os.LookupEnv.
	Lookup config.LookupFunc

	// Stdin, Stdout and Stderr default to the process streams.
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer

	// Screen replaces the terminal screen for the tty host.
	Screen tcell.Screen
}

// Application owns every keyroute component.
type Application struct {
	mu sync.Mutex

	opts Options
	cfg  *config.Config
	log  *slog.Logger

	emitter *source.Emitter
	manager *input.Manager
	loader  *keymap.Loader
	actions keymap.Actions
	watcher *watcher.Watcher
	feed    *feed.Feed

	// keymapFiles are the absolute paths of loaded keymap files.
	keymapFiles map[string]bool

	// scripts are the loaded scripts by absolute path.
	scripts map[string]*script.Script

	running atomic.Bool
	closed  atomic.Bool
	cancel  context.CancelFunc
}

// New creates an application and loads everything the configuration names.
func New(opts Options) (*Application, error) {
	if opts.Stdin == nil {
		opts.Stdin = os.Stdin
	}
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}
	if opts.Host == "" {
		opts.Host = HostStdin
	}
	if opts.Host != HostTTY && opts.Host != HostStdin {
		return nil, fmt.Errorf("%w: %q", ErrUnknownHost, opts.Host)
	}

	a := &Application{
		opts:        opts,
		emitter:     source.NewEmitter(),
		loader:      keymap.NewLoader(),
		keymapFiles: make(map[string]bool),
		scripts:     make(map[string]*script.Script),
	}
	if err := newBootstrapper(a).bootstrap(); err != nil {
		return nil, err
	}
	return a, nil
}

// Config returns the effective configuration.
func (a *Application) Config() *config.Config {
	return a.cfg
}

// Manager returns the shortcut manager.
func (a *Application) Manager() *input.Manager {
	return a.manager
}

// Logger returns the application logger.
func (a *Application) Logger() *slog.Logger {
	return a.log
}

// IsRunning returns true while Run is active.
func (a *Application) IsRunning() bool {
	return a.running.Load()
}

// Run drives the configured host until it ends, ctx is cancelled, or the
// quit action fires.
func (a *Application) Run(ctx context.Context) error {
	if a.closed.Load() {
		return ErrClosed
	}
	if !a.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer a.running.Store(false)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	a.mu.Lock()
	a.cancel = cancel
	a.mu.Unlock()

	a.log.Info("[keyroute] running", "host", a.opts.Host, "bindings", a.manager.GetStats().BindingCount)

	var err error
	switch a.opts.Host {
	case HostTTY:
		err = a.runTerminal(ctx)
	default:
		err = a.runFeed(ctx)
	}
	if errors.Is(err, context.Canceled) {
		err = nil
	}
	return err
}

func (a *Application) runFeed(ctx context.Context) error {
	a.mu.Lock()
	a.feed = feed.New(a.emitter, a.opts.Stdout,
		feed.WithLogger(a.log),
		feed.WithKeyOptions(a.manager.Config().KeyOptions()),
	)
	f := a.feed
	a.mu.Unlock()

	detach := f.Attach(a.manager)
	defer detach()
	return f.Run(ctx, a.opts.Stdin)
}

func (a *Application) runTerminal(ctx context.Context) error {
	screen := a.opts.Screen
	if screen == nil {
		s, err := terminal.NewScreen()
		if err != nil {
			return NewComponentError("terminal", "open screen", err)
		}
		screen = s
	}
	return terminal.New(screen, a.emitter, terminal.WithLogger(a.log)).Run(ctx)
}

// Quit stops Run.
func (a *Application) Quit() {
	a.mu.Lock()
	cancel := a.cancel
	a.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// Close stops the watcher, unloads scripts and destroys the manager.
// It is safe to call more than once.
func (a *Application) Close() error {
	if !a.closed.CompareAndSwap(false, true) {
		return nil
	}
	a.Quit()

	var err error
	if a.watcher != nil {
		err = a.watcher.Close()
	}

	a.mu.Lock()
	for path, s := range a.scripts {
		s.Close()
		delete(a.scripts, path)
	}
	a.mu.Unlock()

	if a.manager != nil {
		a.manager.Destroy()
	}
	a.log.Debug("[keyroute] closed")
	return err
}
