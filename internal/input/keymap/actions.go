package keymap

import (
	"errors"
	"fmt"
	"sort"
)

// ErrUnknownAction is returned when a keymap names an action nobody provides.
var ErrUnknownAction = errors.New("unknown action")

// Actions maps action names used in keymap files to handlers.
type Actions map[string]Handler

// Lookup returns the handler for name.
func (a Actions) Lookup(name string) (Handler, error) {
	h, ok := a[name]
	if !ok || h == nil {
		return nil, fmt.Errorf("%w: %q", ErrUnknownAction, name)
	}
	return h, nil
}

// Names returns the registered action names, sorted.
func (a Actions) Names() []string {
	names := make([]string, 0, len(a))
	for name := range a {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Merge returns a new table with other's entries layered over a's.
func (a Actions) Merge(other Actions) Actions {
	merged := make(Actions, len(a)+len(other))
	for name, h := range a {
		merged[name] = h
	}
	for name, h := range other {
		merged[name] = h
	}
	return merged
}

// SequenceAdapter lets an action handler serve a sequence.
func SequenceAdapter(h Handler) SequenceHandler {
	return func(m SequenceTrigger) error {
		return h(m.Event)
	}
}
