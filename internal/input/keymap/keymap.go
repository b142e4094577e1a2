package keymap

import (
	"fmt"
	"strings"
	"time"

	"github.com/dshills/keyroute/internal/input/key"
)

// Keymap is a named collection of context declarations and entries, usually
// loaded from a file.
type Keymap struct {
	// Name is the keymap identifier.
	Name string `json:"name" toml:"name" yaml:"name"`

	// Source indicates where this keymap was defined.
	// Examples: "default", "/home/me/.config/keyroute/keys.toml", "script:init.lua"
	Source string `json:"-" toml:"-" yaml:"-"`

	// Contexts are created (or updated) before entries are bound.
	Contexts []ContextDecl `json:"contexts,omitempty" toml:"contexts,omitempty" yaml:"contexts,omitempty"`

	// Entries are the key-to-action mappings.
	Entries []Entry `json:"bindings" toml:"bindings" yaml:"bindings"`
}

// ContextDecl declares a context in a keymap file.
type ContextDecl struct {
	Name      string `json:"name" toml:"name" yaml:"name"`
	Priority  int    `json:"priority,omitempty" toml:"priority,omitempty" yaml:"priority,omitempty"`
	Exclusive bool   `json:"exclusive,omitempty" toml:"exclusive,omitempty" yaml:"exclusive,omitempty"`
	Element   string `json:"element,omitempty" toml:"element,omitempty" yaml:"element,omitempty"`
	Active    bool   `json:"active,omitempty" toml:"active,omitempty" yaml:"active,omitempty"`
}

// Entry binds key text to a named action.
type Entry struct {
	// Keys is a shortcut ("Ctrl+Shift+S") or a whitespace separated
	// sequence ("g g").
	Keys string `json:"keys" toml:"keys" yaml:"keys"`

	// Action is the name looked up in the Actions table.
	Action string `json:"action" toml:"action" yaml:"action"`

	// Context is the owning context. Empty means global.
	Context string `json:"context,omitempty" toml:"context,omitempty" yaml:"context,omitempty"`

	// Description provides documentation for the entry.
	Description string `json:"description,omitempty" toml:"description,omitempty" yaml:"description,omitempty"`

	// Sequence forces sequence interpretation for single-token keys.
	Sequence bool `json:"sequence,omitempty" toml:"sequence,omitempty" yaml:"sequence,omitempty"`

	// Timeout overrides the sequence timeout, e.g. "750ms".
	Timeout string `json:"timeout,omitempty" toml:"timeout,omitempty" yaml:"timeout,omitempty"`

	// PreventDefault overrides the default (true) when set.
	PreventDefault *bool `json:"preventDefault,omitempty" toml:"preventDefault,omitempty" yaml:"preventDefault,omitempty"`

	// AllowInInputs lets the binding fire in editable elements.
	AllowInInputs bool `json:"allowInInputs,omitempty" toml:"allowInInputs,omitempty" yaml:"allowInInputs,omitempty"`

	// Priority is recorded for display.
	Priority int `json:"priority,omitempty" toml:"priority,omitempty" yaml:"priority,omitempty"`

	// Disabled registers the entry in the disabled state.
	Disabled bool `json:"disabled,omitempty" toml:"disabled,omitempty" yaml:"disabled,omitempty"`
}

// IsSequence reports whether the entry describes a multi-key sequence.
func (e Entry) IsSequence() bool {
	return e.Sequence || len(strings.Fields(e.Keys)) > 1
}

// ContextName returns the entry's context, defaulting to global.
func (e Entry) ContextName() string {
	if e.Context == "" {
		return GlobalContext
	}
	return e.Context
}

// TimeoutDuration parses Timeout. Returns 0 when unset.
func (e Entry) TimeoutDuration() (time.Duration, error) {
	if e.Timeout == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(e.Timeout)
	if err != nil {
		return 0, fmt.Errorf("timeout %q: %w", e.Timeout, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("timeout %q: must be positive", e.Timeout)
	}
	return d, nil
}

// PreventsDefault returns the effective preventDefault option.
func (e Entry) PreventsDefault() bool {
	if e.PreventDefault == nil {
		return true
	}
	return *e.PreventDefault
}

// NewKeymap creates a new keymap with the given name.
func NewKeymap(name string) *Keymap {
	return &Keymap{
		Name:    name,
		Entries: make([]Entry, 0),
	}
}

// WithSource sets the source for this keymap.
func (k *Keymap) WithSource(source string) *Keymap {
	k.Source = source
	return k
}

// DeclareContext adds a context declaration.
func (k *Keymap) DeclareContext(decl ContextDecl) *Keymap {
	k.Contexts = append(k.Contexts, decl)
	return k
}

// Add adds a global entry.
func (k *Keymap) Add(keys, action string) *Keymap {
	k.Entries = append(k.Entries, Entry{
		Keys:   keys,
		Action: action,
	})
	return k
}

// AddEntry adds a fully configured entry.
func (k *Keymap) AddEntry(e Entry) *Keymap {
	k.Entries = append(k.Entries, e)
	return k
}

// Validate checks that every entry parses under opts.
func (k *Keymap) Validate(opts key.Options) error {
	for i, c := range k.Contexts {
		if strings.TrimSpace(c.Name) == "" {
			return fmt.Errorf("context %d: empty name", i)
		}
	}
	for i, e := range k.Entries {
		if strings.TrimSpace(e.Keys) == "" {
			return fmt.Errorf("binding %d: empty keys", i)
		}
		if e.Action == "" {
			return fmt.Errorf("binding %d (%s): empty action", i, e.Keys)
		}
		if e.IsSequence() {
			if _, err := key.ParseSequence(e.Keys, opts); err != nil {
				return fmt.Errorf("binding %d (%s): %w", i, e.Keys, err)
			}
		} else if _, err := key.ParseShortcut(e.Keys, opts); err != nil {
			return fmt.Errorf("binding %d (%s): %w", i, e.Keys, err)
		}
		if _, err := e.TimeoutDuration(); err != nil {
			return fmt.Errorf("binding %d (%s): %w", i, e.Keys, err)
		}
	}
	return nil
}

// Clone returns a deep copy of the keymap.
func (k *Keymap) Clone() *Keymap {
	c := &Keymap{
		Name:     k.Name,
		Source:   k.Source,
		Contexts: append([]ContextDecl(nil), k.Contexts...),
		Entries:  append([]Entry(nil), k.Entries...),
	}
	return c
}
