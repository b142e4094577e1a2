package key

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
)

// Parse errors
var (
	ErrInvalidShortcut = errors.New("invalid shortcut")
	ErrEmptySequence   = errors.New("empty key sequence")
)

// Options controls canonicalization.
// The zero value is strict and case-insensitive.
type Options struct {
	// CaseSensitive keeps the case of single character keys.
	CaseSensitive bool

	// Lenient accepts malformed shortcut text the way older releases did:
	// unknown extra tokens replace the key (last wins) and modifier-only
	// shortcuts are allowed.
	Lenient bool
}

// Shortcut is a parsed shortcut: a modifier set plus one primary key.
type Shortcut struct {
	// Modifiers contains the required modifier keys.
	Modifiers Modifier

	// Key is the canonical primary key name. Empty only for modifier-only
	// shortcuts in lenient mode.
	Key string

	// Text is the original text the shortcut was parsed from.
	Text string
}

// String returns the canonical shortcut string like "ctrl+shift+s".
func (s Shortcut) String() string {
	return join(s.Modifiers, s.Key)
}

// join builds a canonical string from modifiers and a canonical key name.
func join(mods Modifier, name string) string {
	parts := mods.Names()
	if name != "" {
		parts = append(parts, name)
	}
	return strings.Join(parts, "+")
}

// Normalize converts a live key event into its canonical shortcut string.
//
// When the pressed key is itself a modifier (Control, Shift, AltGraph, ...)
// it folds into the modifier set, so holding Control alone yields "ctrl".
func Normalize(ev Event, opts Options) string {
	mods := ev.Modifiers
	name := ev.Key
	if m, ok := modifierKeyNames[strings.ToLower(name)]; ok {
		mods = mods.With(m)
		name = ""
	}
	return join(mods, CanonicalKeyName(name, opts.CaseSensitive))
}

// ParseShortcut parses human-typed shortcut text such as "Ctrl+Shift+S".
//
// Tokens are separated by "+". A trailing "++" (or the text "+") names the
// plus key. Modifier aliases may appear in any order and repeat; the
// result always lists them in canonical order.
func ParseShortcut(text string, opts Options) (Shortcut, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return Shortcut{}, fmt.Errorf("%w: empty text", ErrInvalidShortcut)
	}

	var mods Modifier
	var keyName string
	for _, tok := range splitTokens(trimmed) {
		tok = strings.TrimSpace(tok)
		if tok == "" {
			if opts.Lenient {
				continue
			}
			return Shortcut{}, fmt.Errorf("%w: empty token in %q", ErrInvalidShortcut, text)
		}
		if strings.IndexFunc(tok, unicode.IsSpace) >= 0 && !opts.Lenient {
			return Shortcut{}, fmt.Errorf("%w: whitespace in token %q", ErrInvalidShortcut, tok)
		}

		if m := modifierToken(tok); m != ModNone {
			mods = mods.With(m)
			continue
		}
		if keyName != "" && !opts.Lenient {
			return Shortcut{}, fmt.Errorf("%w: more than one key in %q", ErrInvalidShortcut, text)
		}
		keyName = tok
	}

	if keyName == "" && !opts.Lenient {
		return Shortcut{}, fmt.Errorf("%w: no key in %q", ErrInvalidShortcut, text)
	}
	if keyName == "" && mods.IsEmpty() {
		return Shortcut{}, fmt.Errorf("%w: no key in %q", ErrInvalidShortcut, text)
	}

	return Shortcut{
		Modifiers: mods,
		Key:       CanonicalKeyName(keyName, opts.CaseSensitive),
		Text:      text,
	}, nil
}

// Canonicalize returns the canonical string for shortcut text.
// Canonicalize(Canonicalize(x)) == Canonicalize(x).
func Canonicalize(text string, opts Options) (string, error) {
	sc, err := ParseShortcut(text, opts)
	if err != nil {
		return "", err
	}
	return sc.String(), nil
}

// MustCanonicalize is like Canonicalize but panics on error.
// Intended for shortcut literals in tables and tests.
func MustCanonicalize(text string) string {
	s, err := Canonicalize(text, Options{})
	if err != nil {
		panic(err)
	}
	return s
}

// splitTokens splits on "+" while keeping a literal plus key intact.
func splitTokens(text string) []string {
	if text == "+" {
		return []string{"+"}
	}
	if strings.HasSuffix(text, "++") {
		head := strings.TrimSuffix(text, "++")
		if head == "" {
			return []string{"+"}
		}
		return append(strings.Split(head, "+"), "+")
	}
	return strings.Split(text, "+")
}

// modifierToken returns the modifier a typed token names, if any.
func modifierToken(tok string) Modifier {
	lower := strings.ToLower(tok)
	if m, ok := modifierNameMap[lower]; ok {
		return m
	}
	return modifierKeyNames[lower]
}
