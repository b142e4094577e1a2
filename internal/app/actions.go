package app

import (
	"github.com/dshills/keyroute/internal/input/key"
	"github.com/dshills/keyroute/internal/input/keymap"
)

// ActionQuit stops the application.
const ActionQuit = "app.quit"

// appKeymap holds the bindings keyroute always carries.
func appKeymap() *keymap.Keymap {
	return keymap.NewKeymap("app").
		WithSource("app").
		AddEntry(keymap.Entry{
			Keys:          "Ctrl+Q",
			Action:        ActionQuit,
			Description:   "Quit keyroute",
			AllowInInputs: true,
		})
}

// builtinActions returns the action table keymap files bind against.
// Every default keymap action reports itself to the host; a few also
// change engine state.
func (a *Application) builtinActions() keymap.Actions {
	names := []string{
		keymap.ActionSidebarToggle,
		keymap.ActionSidebarFocus,
		keymap.ActionPlaylistSave,
		keymap.ActionHelpShow,
		keymap.ActionSearchFocus,
		keymap.ActionScrollTop,
		keymap.ActionScrollBottom,
		keymap.ActionScrollDown,
		keymap.ActionScrollUp,
		keymap.ActionVideoNext,
		keymap.ActionVideoPrevious,
		keymap.ActionVideoBookmark,
		keymap.ActionSettingsOpen,
	}

	actions := make(keymap.Actions, len(names)+4)
	for _, name := range names {
		actions[name] = a.reportAction(name)
	}

	actions[keymap.ActionPlaylistOpen] = func(ev *key.Event) error {
		a.report(keymap.ActionPlaylistOpen, ev)
		a.manager.ActivateContext(keymap.ContextDialog)
		return nil
	}
	actions[keymap.ActionDialogClose] = func(ev *key.Event) error {
		a.report(keymap.ActionDialogClose, ev)
		a.manager.DeactivateContext(keymap.ContextDialog)
		return nil
	}
	actions[keymap.ActionShortcutsReset] = func(ev *key.Event) error {
		a.report(keymap.ActionShortcutsReset, ev)
		return a.reloadKeymaps()
	}
	actions[ActionQuit] = func(ev *key.Event) error {
		a.report(ActionQuit, ev)
		a.Quit()
		return nil
	}
	return actions
}

func (a *Application) reportAction(name string) keymap.Handler {
	return func(ev *key.Event) error {
		a.report(name, ev)
		return nil
	}
}

// report tells the host which action ran. Without a feed the action is
// only logged.
func (a *Application) report(action string, ev *key.Event) {
	a.mu.Lock()
	f := a.feed
	a.mu.Unlock()

	if f != nil {
		f.ReportAction(action, ev)
	}

	attrs := []any{"action", action}
	if ev != nil {
		attrs = append(attrs, "key", ev.Key)
	}
	a.log.Info("[keyroute] action", attrs...)
}
