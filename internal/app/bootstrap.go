package app

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/dshills/keyroute/internal/config"
	"github.com/dshills/keyroute/internal/config/watcher"
	"github.com/dshills/keyroute/internal/input"
	"github.com/dshills/keyroute/internal/input/keymap"
	script "github.com/dshills/keyroute/internal/plugin/lua"
)

// bootstrapper handles component initialization with cleanup on failure.
type bootstrapper struct {
	app       *Application
	initOrder []string
}

func newBootstrapper(app *Application) *bootstrapper {
	return &bootstrapper{
		app:       app,
		initOrder: make([]string, 0, 6),
	}
}

// bootstrap initializes all components in dependency order.
// On failure, it cleans up already-initialized components.
func (b *bootstrapper) bootstrap() error {
	steps := []struct {
		name string
		fn   func() error
	}{
		{"config", b.initConfig},
		{"manager", b.initManager},
		{"keymaps", b.initKeymaps},
		{"scripts", b.initScripts},
		{"watcher", b.initWatcher},
	}
	for _, step := range steps {
		if err := step.fn(); err != nil {
			b.cleanup()
			return err
		}
		b.initOrder = append(b.initOrder, step.name)
	}
	return nil
}

// initConfig loads the config file, applies the environment and the
// command line, and builds the logger.
func (b *bootstrapper) initConfig() error {
	a := b.app
	opts := a.opts

	cfg := config.Default()
	if opts.ConfigPath != "" {
		loaded, err := config.Load(opts.ConfigPath)
		if err != nil {
			return NewComponentError("config", "load", err)
		}
		cfg = loaded
	}
	if err := cfg.ApplyEnv(opts.Lookup); err != nil {
		return NewComponentError("config", "environment", err)
	}

	cfg.Keymaps.Paths = append(cfg.Keymaps.Paths, opts.KeymapPaths...)
	cfg.Scripts.Paths = append(cfg.Scripts.Paths, opts.ScriptPaths...)
	if opts.LogLevel != "" {
		cfg.Log.Level = opts.LogLevel
	}
	if err := cfg.Validate(); err != nil {
		return NewComponentError("config", "validate", err)
	}

	a.cfg = cfg
	a.log = NewLogger(opts.Stderr, cfg.LogLevel(), cfg.Log.Format)
	a.log.Debug("[keyroute] config loaded", "path", cfg.Path,
		"keymaps", len(cfg.Keymaps.Paths), "scripts", len(cfg.Scripts.Paths))
	return nil
}

func (b *bootstrapper) initManager() error {
	a := b.app
	a.manager = input.New(a.cfg.EngineConfig(a.log), a.emitter)
	a.actions = a.builtinActions()

	if a.cfg.LogLevel() <= slog.LevelDebug {
		a.manager.Hooks().RegisterWithOptions(input.LoggingHook{Logger: a.log}, "log", input.HookPriorityHighest)
	}
	return nil
}

// initKeymaps binds the app keymap, the default keymap when enabled, and
// every configured keymap file. Files that fail to load are logged and
// skipped.
func (b *bootstrapper) initKeymaps() error {
	a := b.app

	if _, err := a.manager.LoadKeymap(appKeymap(), a.actions); err != nil {
		return NewComponentError("keymap", "app bindings", err)
	}
	if a.cfg.Input.LoadDefaults {
		if _, err := a.manager.LoadKeymap(keymap.DefaultKeymap(), a.actions); err != nil {
			return NewComponentError("keymap", "default bindings", err)
		}
	}

	for _, path := range a.expandKeymapPaths() {
		if err := a.loadKeymapFile(path); err != nil {
			a.log.Warn("[keyroute] keymap not loaded", "path", path, "error", err)
		}
	}
	return nil
}

// initScripts runs every configured script. A script that fails is logged
// and left unloaded.
func (b *bootstrapper) initScripts() error {
	a := b.app
	for _, path := range absPaths(a.cfg.Scripts.Paths) {
		if err := a.loadScript(path); err != nil {
			a.log.Warn("[keyroute] script not loaded", "path", path, "error", err)
		}
	}
	return nil
}

// initWatcher watches keymap and script paths when reload is enabled.
func (b *bootstrapper) initWatcher() error {
	a := b.app
	if !a.cfg.Keymaps.Watch {
		return nil
	}

	w, err := watcher.New(
		watcher.WithDebounce(a.cfg.KeymapDebounce()),
		watcher.WithLogger(a.log),
		watcher.WithFilter(isWatchedFile),
	)
	if err != nil {
		return NewComponentError("watcher", "create", err)
	}

	paths := append(absPaths(a.cfg.Keymaps.Paths), absPaths(a.cfg.Scripts.Paths)...)
	for _, path := range paths {
		if err := w.Watch(path); err != nil {
			a.log.Warn("[keyroute] path not watched", "path", path, "error", err)
		}
	}

	w.OnChange(a.handleFileChange)
	a.watcher = w
	a.log.Info("[keyroute] watching for changes", "paths", len(w.WatchedPaths()))
	return nil
}

// cleanup performs cleanup in reverse initialization order.
func (b *bootstrapper) cleanup() {
	a := b.app
	for i := len(b.initOrder) - 1; i >= 0; i-- {
		switch b.initOrder[i] {
		case "watcher":
			if a.watcher != nil {
				a.watcher.Close()
				a.watcher = nil
			}
		case "scripts":
			for path, s := range a.scripts {
				s.Close()
				delete(a.scripts, path)
			}
		case "manager":
			if a.manager != nil {
				a.manager.Destroy()
			}
		}
	}
}

// expandKeymapPaths expands the configured keymap paths. Directories
// contribute every keymap file they contain.
func (a *Application) expandKeymapPaths() []string {
	var files []string
	for _, path := range absPaths(a.cfg.Keymaps.Paths) {
		info, err := os.Stat(path)
		if err != nil {
			a.log.Warn("[keyroute] keymap path unavailable", "path", path, "error", err)
			continue
		}
		if !info.IsDir() {
			files = append(files, path)
			continue
		}
		a.loader.AddSearchPath(path)
	}
	return append(files, a.loader.Files()...)
}

// loadKeymapFile loads one keymap file, replacing whatever it bound before.
func (a *Application) loadKeymapFile(path string) error {
	km, err := a.loader.LoadFile(path)
	if err != nil {
		return err
	}
	n, err := a.manager.LoadKeymap(km, a.actions)
	if err != nil {
		return err
	}

	a.mu.Lock()
	a.keymapFiles[path] = true
	a.mu.Unlock()

	a.log.Info("[keyroute] keymap loaded", "path", path, "entries", n)
	return nil
}

// loadScript runs a script, replacing a previous load of the same path.
func (a *Application) loadScript(path string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if old, ok := a.scripts[path]; ok {
		old.Close()
		delete(a.scripts, path)
	}
	s, err := script.LoadFile(a.manager, path, a.cfg.ScriptTimeout(), a.log)
	if err != nil {
		return err
	}
	a.scripts[path] = s
	return nil
}

func isWatchedFile(path string) bool {
	return isKeymapFile(path) || isScriptFile(path)
}

func isKeymapFile(path string) bool {
	_, err := keymap.FormatFromPath(path)
	return err == nil
}

func isScriptFile(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".lua")
}

func absPaths(paths []string) []string {
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		if abs, err := filepath.Abs(expandHome(p)); err == nil {
			out = append(out, abs)
		}
	}
	return out
}

// expandHome replaces a leading "~/" with the user's home directory.
func expandHome(path string) string {
	if len(path) < 2 || path[:2] != "~/" {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[2:])
}
