// Package key turns keyboard input into canonical shortcut strings.
//
// Two paths produce canonical strings and they always agree for the same
// logical shortcut:
//
//   - Normalize converts a live key event (key name plus modifier flags)
//   - ParseShortcut / Canonicalize convert a human-typed shortcut such as
//     "Ctrl+Shift+S" at registration time
//
// # Canonical Form
//
// Modifiers come first in the fixed order ctrl, alt, shift, meta, followed by
// the primary key, all joined with "+":
//
//	"ctrl+s"        "Ctrl+S", "s+ctrl", "control+s"
//	"ctrl+shift+s"  "Shift+Ctrl+S", "ctrl+shift+shift+s"
//	"alt+up"        "Option+ArrowUp"
//	"esc"           "Escape"
//	"ctrl+plus"     "Ctrl++"
//
// Named keys go through a fixed alias table (escape -> esc, delete -> del,
// insert -> ins, arrow keys -> up/down/left/right, ...). Everything else is
// case folded unless case-sensitive mode is requested, in which case single
// character keys keep their case.
//
// # Sequences
//
// Multi-key sequences like "g g" or "ctrl+k ctrl+c" are whitespace separated
// shortcuts. ParseSequence returns their canonical tokens in order.
package key
