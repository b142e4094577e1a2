package key

import "strings"

// Modifier represents keyboard modifier keys.
type Modifier uint8

// ModNone indicates no modifiers.
const ModNone Modifier = 0

const (
	// ModCtrl indicates the Control key.
	ModCtrl Modifier = 1 << iota

	// ModAlt indicates the Alt key (Option on macOS).
	ModAlt

	// ModShift indicates the Shift key.
	ModShift

	// ModMeta indicates the Meta key (Cmd on macOS, Win on Windows).
	ModMeta
)

// modifierOrder is the canonical order modifiers appear in shortcut strings.
var modifierOrder = []struct {
	mod  Modifier
	name string
}{
	{ModCtrl, "ctrl"},
	{ModAlt, "alt"},
	{ModShift, "shift"},
	{ModMeta, "meta"},
}

// Has returns true if m contains the specified modifier.
func (m Modifier) Has(mod Modifier) bool {
	return m&mod != 0
}

// HasCtrl returns true if Control is pressed.
func (m Modifier) HasCtrl() bool {
	return m.Has(ModCtrl)
}

// HasAlt returns true if Alt is pressed.
func (m Modifier) HasAlt() bool {
	return m.Has(ModAlt)
}

// HasShift returns true if Shift is pressed.
func (m Modifier) HasShift() bool {
	return m.Has(ModShift)
}

// HasMeta returns true if Meta is pressed.
func (m Modifier) HasMeta() bool {
	return m.Has(ModMeta)
}

// With returns a new Modifier with the specified modifier added.
func (m Modifier) With(mod Modifier) Modifier {
	return m | mod
}

// Without returns a new Modifier with the specified modifier removed.
func (m Modifier) Without(mod Modifier) Modifier {
	return m &^ mod
}

// IsEmpty returns true if no modifiers are set.
func (m Modifier) IsEmpty() bool {
	return m == ModNone
}

// Names returns the canonical modifier names in canonical order.
func (m Modifier) Names() []string {
	names := make([]string, 0, len(modifierOrder))
	for _, entry := range modifierOrder {
		if m.Has(entry.mod) {
			names = append(names, entry.name)
		}
	}
	return names
}

// String returns the canonical representation like "ctrl+alt".
func (m Modifier) String() string {
	return strings.Join(m.Names(), "+")
}

// modifierNameMap maps modifier aliases (lowercase) accepted in shortcut
// text to Modifier values.
var modifierNameMap = map[string]Modifier{
	"ctrl":    ModCtrl,
	"control": ModCtrl,
	"alt":     ModAlt,
	"option":  ModAlt,
	"opt":     ModAlt,
	"shift":   ModShift,
	"meta":    ModMeta,
	"cmd":     ModMeta,
	"command": ModMeta,
	"super":   ModMeta,
	"win":     ModMeta,
}

// modifierKeyNames maps the key names a host reports when a modifier key
// itself is pressed.
var modifierKeyNames = map[string]Modifier{
	"control":  ModCtrl,
	"alt":      ModAlt,
	"altgraph": ModAlt,
	"shift":    ModShift,
	"meta":     ModMeta,
	"os":       ModMeta,
	"super":    ModMeta,
}

// ModifierFromName returns the Modifier for a given alias (case-insensitive).
// Returns ModNone if the name is not recognized.
func ModifierFromName(name string) Modifier {
	if m, ok := modifierNameMap[strings.ToLower(strings.TrimSpace(name))]; ok {
		return m
	}
	return ModNone
}

// IsModifierKey reports whether a host key name is a modifier key itself,
// such as "Control" or "AltGraph".
func IsModifierKey(name string) bool {
	_, ok := modifierKeyNames[strings.ToLower(name)]
	return ok
}

// ModifiersFromFlags builds a Modifier from individual modifier flags.
func ModifiersFromFlags(ctrl, alt, shift, meta bool) Modifier {
	var m Modifier
	if ctrl {
		m = m.With(ModCtrl)
	}
	if alt {
		m = m.With(ModAlt)
	}
	if shift {
		m = m.With(ModShift)
	}
	if meta {
		m = m.With(ModMeta)
	}
	return m
}
