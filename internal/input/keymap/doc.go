// Package keymap stores shortcut bindings and multi-key sequences.
//
// The Registry is pure storage and lookup. It never invokes handlers; the
// input manager reads snapshots out of it and calls handlers itself.
//
// # Keys
//
// Every binding is stored under "<context>:<canonical shortcut>" and every
// sequence under "<context>:<token token ...>". The two live in separate
// indexes, so a binding and a sequence with the same text never collide.
// At most one entry exists per key; putting a second one replaces the first.
//
//	keymap.Key("global", "ctrl+s")                      // "global:ctrl+s"
//	keymap.SequenceKey("youtube", []string{"g", "g"})    // "youtube:g g"
//
// # Sequence Lookup
//
// Sequences are indexed in a prefix tree keyed by canonical tokens.
// MatchSequence walks the contexts in resolution order and reports the
// first exact enabled match, or whether the buffered tokens are a strict
// prefix of a longer enabled sequence:
//
//	m := registry.MatchSequence([]string{"g"}, []string{"youtube", "global"})
//	if m.Exact != nil {
//	    // fire m.Exact.Handler
//	} else if m.Prefix {
//	    // wait up to m.Timeout for the next key
//	}
//
// # Keymap Files
//
// Keymap files (JSON, TOML or YAML) declare contexts and entries that name
// actions. An Actions table maps those names to handlers supplied by the
// host. DefaultKeymap returns the built-in set.
package keymap
