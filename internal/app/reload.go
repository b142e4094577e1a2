package app

import (
	"errors"
	"sort"

	"github.com/dshills/keyroute/internal/config/watcher"
	"github.com/dshills/keyroute/internal/input/keymap"
)

// handleFileChange reloads a keymap file or script after it changes on
// disk. A file that no longer parses keeps its previous bindings.
func (a *Application) handleFileChange(ev watcher.Event) {
	if a.closed.Load() {
		return
	}
	removed := ev.Op == watcher.OpRemove || ev.Op == watcher.OpRename

	switch {
	case isScriptFile(ev.Path):
		if removed {
			a.unloadScript(ev.Path)
			return
		}
		if err := a.loadScript(ev.Path); err != nil {
			a.log.Warn("[keyroute] script reload failed", "path", ev.Path, "error", err)
		}

	case isKeymapFile(ev.Path):
		if removed {
			a.unloadKeymapFile(ev.Path)
			return
		}
		if err := a.loadKeymapFile(ev.Path); err != nil {
			a.log.Warn("[keyroute] keymap reload failed, keeping previous bindings",
				"path", ev.Path, "error", err)
		}
	}
}

func (a *Application) unloadKeymapFile(path string) {
	a.mu.Lock()
	delete(a.keymapFiles, path)
	a.mu.Unlock()

	n := a.manager.RemoveSource(path)
	a.log.Info("[keyroute] keymap unloaded", "path", path, "removed", n)
}

func (a *Application) unloadScript(path string) {
	a.mu.Lock()
	s, ok := a.scripts[path]
	delete(a.scripts, path)
	a.mu.Unlock()

	if ok {
		s.Close()
		a.log.Info("[keyroute] script unloaded", "path", path)
	}
}

// reloadKeymaps binds the built-in keymaps again and reloads every keymap
// file loaded so far.
func (a *Application) reloadKeymaps() error {
	var errs []error
	if _, err := a.manager.LoadKeymap(appKeymap(), a.actions); err != nil {
		errs = append(errs, err)
	}
	if a.cfg.Input.LoadDefaults {
		if _, err := a.manager.LoadKeymap(keymap.DefaultKeymap(), a.actions); err != nil {
			errs = append(errs, err)
		}
	}

	for _, path := range a.loadedKeymapFiles() {
		if err := a.loadKeymapFile(path); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (a *Application) loadedKeymapFiles() []string {
	a.mu.Lock()
	defer a.mu.Unlock()

	paths := make([]string, 0, len(a.keymapFiles))
	for p := range a.keymapFiles {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}
