package key

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"
)

// keyAliases maps key names (lowercase) to their canonical name.
// Names from live events ("ArrowUp", " ") and from typed shortcuts
// ("Up", "Space") land on the same entry.
var keyAliases = map[string]string{
	" ":          "space",
	"space":      "space",
	"spacebar":   "space",
	"enter":      "enter",
	"return":     "enter",
	"escape":     "esc",
	"esc":        "esc",
	"backspace":  "backspace",
	"delete":     "del",
	"del":        "del",
	"tab":        "tab",
	"arrowup":    "up",
	"up":         "up",
	"arrowdown":  "down",
	"down":       "down",
	"arrowleft":  "left",
	"left":       "left",
	"arrowright": "right",
	"right":      "right",
	"home":       "home",
	"end":        "end",
	"pageup":     "pageup",
	"pgup":       "pageup",
	"page_up":    "pageup",
	"pagedown":   "pagedown",
	"pgdn":       "pagedown",
	"page_down":  "pagedown",
	"insert":     "ins",
	"ins":        "ins",
	"+":          "plus",
	"plus":       "plus",
}

// CanonicalKeyName maps a primary key name to its canonical form.
//
// Aliased names always resolve through the alias table. Single characters
// are case folded unless caseSensitive is set; longer names ("F5",
// "MediaPlayPause") are always folded so live and typed forms agree.
func CanonicalKeyName(name string, caseSensitive bool) string {
	if name == "" {
		return ""
	}
	if alias, ok := keyAliases[strings.ToLower(name)]; ok {
		return alias
	}
	if utf8.RuneCountInString(name) == 1 && caseSensitive {
		return name
	}
	return fold(name)
}

// IsNamedKey reports whether name is in the alias table.
func IsNamedKey(name string) bool {
	_, ok := keyAliases[strings.ToLower(name)]
	return ok
}

// fold applies Unicode case folding. A Caser is stateful, so one is built
// per call.
func fold(s string) string {
	return cases.Fold().String(s)
}
