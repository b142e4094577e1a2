package input

import (
	"errors"
	"fmt"

	"github.com/dshills/keyroute/internal/input/keymap"
	"github.com/dshills/keyroute/internal/input/scope"
)

// LoadKeymap binds every entry of km to the handler its action names in
// actions. Contexts the keymap declares are created or updated first.
// Entries previously loaded from the same source are replaced, so loading a
// file again after it changes is safe. Entries naming unknown actions are
// skipped with a warning. Returns the number of entries bound.
func (m *Manager) LoadKeymap(km *keymap.Keymap, actions keymap.Actions) (int, error) {
	if km == nil {
		return 0, errors.New("load keymap: nil keymap")
	}
	if m.IsDestroyed() {
		return 0, ErrDestroyed
	}
	if err := km.Validate(m.opts); err != nil {
		return 0, fmt.Errorf("load keymap %q: %w", km.Name, err)
	}
	if err := validateContexts(km); err != nil {
		return 0, fmt.Errorf("load keymap %q: %w", km.Name, err)
	}

	src := km.Source
	if src == "" {
		src = "keymap:" + km.Name
	}

	for _, decl := range km.Contexts {
		h, err := m.CreateContext(decl.Name, ContextOptions{
			Priority:  decl.Priority,
			Exclusive: decl.Exclusive,
			Element:   decl.Element,
		})
		if err != nil {
			return 0, fmt.Errorf("load keymap %q: %w", km.Name, err)
		}
		if decl.Active {
			h.Activate()
		}
	}

	if n := m.RemoveSource(src); n > 0 {
		m.log.Debug("[keyroute] keymap reloaded", "keymap", km.Name, "replaced", n)
	}

	bound := 0
	for _, e := range km.Entries {
		h, err := actions.Lookup(e.Action)
		if err != nil {
			m.log.Warn("[keyroute] keymap entry skipped", "keymap", km.Name, "keys", e.Keys, "error", err)
			continue
		}
		timeout, _ := e.TimeoutDuration()

		opts := []Option{
			InContext(e.Context),
			WithDescription(e.Description),
			WithAction(e.Action),
			WithSource(src),
			WithPriority(e.Priority),
			WithPreventDefault(e.PreventsDefault()),
			WithTimeout(timeout),
		}
		if e.AllowInInputs {
			opts = append(opts, AllowInInputs())
		}
		if e.Disabled {
			opts = append(opts, Disabled())
		}

		if e.IsSequence() {
			_, err = m.RegisterSequence(e.Keys, keymap.SequenceAdapter(h), opts...)
		} else {
			_, err = m.Register(e.Keys, h, opts...)
		}
		if err != nil {
			return bound, fmt.Errorf("load keymap %q: %w", km.Name, err)
		}
		bound++
	}

	m.log.Debug("[keyroute] keymap loaded", "keymap", km.Name, "source", src, "bound", bound)
	return bound, nil
}

// validateContexts checks every context the keymap names, so a bad name
// fails the load before the previous bindings of its source are removed.
func validateContexts(km *keymap.Keymap) error {
	for _, decl := range km.Contexts {
		if err := scope.ValidateName(decl.Name); err != nil {
			return err
		}
	}
	for i, e := range km.Entries {
		if e.Context == "" {
			continue
		}
		if err := scope.ValidateName(e.Context); err != nil {
			return fmt.Errorf("binding %d (%s): %w", i, e.Keys, err)
		}
	}
	return nil
}
