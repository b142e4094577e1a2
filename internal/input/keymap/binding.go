package keymap

import (
	"strings"
	"time"

	"github.com/dshills/keyroute/internal/input/key"
)

// GlobalContext is the context that is always active.
const GlobalContext = "global"

// DefaultSequenceTimeout is how long a partial sequence waits for its next key.
const DefaultSequenceTimeout = 1000 * time.Millisecond

// Handler is invoked when a single shortcut fires.
type Handler func(ev *key.Event) error

// SequenceHandler is invoked when a multi-key sequence completes.
type SequenceHandler func(m SequenceTrigger) error

// SequenceTrigger describes a completed sequence.
type SequenceTrigger struct {
	// Sequence is a snapshot of the matched sequence.
	Sequence Sequence

	// Event is the keydown that completed the sequence.
	Event *key.Event
}

// Binding maps one canonical shortcut in one context to a handler.
type Binding struct {
	// Key is the registry key, "<context>:<shortcut>".
	Key string

	// Context is the owning context name.
	Context string

	// Shortcut is the canonical shortcut string.
	Shortcut string

	// Text is the shortcut as originally written.
	Text string

	// Handler is called when the binding fires.
	Handler Handler

	// Enabled bindings participate in dispatch.
	Enabled bool

	// PreventDefault cancels the host event before the handler runs.
	PreventDefault bool

	// AllowInInputs lets the binding fire while an editable element has focus.
	AllowInInputs bool

	// Description is shown in shortcut listings.
	Description string

	// Priority is recorded for display. Dispatch order comes from contexts.
	Priority int

	// Action names the keymap action the binding was created from.
	Action string

	// Source identifies the keymap the binding was loaded from, if any.
	Source string

	// LastTriggered is when the binding last fired.
	LastTriggered time.Time
}

// Sequence maps an ordered list of canonical tokens in one context to a handler.
type Sequence struct {
	// Key is the registry key, "<context>:<tok tok ...>".
	Key string

	// Context is the owning context name.
	Context string

	// Tokens are the canonical shortcuts in order.
	Tokens []string

	// Text is the sequence as originally written.
	Text string

	// Handler is called when the sequence completes.
	Handler SequenceHandler

	// Timeout is the maximum gap between consecutive keys.
	Timeout time.Duration

	// Enabled sequences participate in matching.
	Enabled bool

	// Description is shown in shortcut listings.
	Description string

	// Action names the keymap action the sequence was created from.
	Action string

	// Source identifies the keymap the sequence was loaded from, if any.
	Source string

	// LastTriggered is when the sequence last completed.
	LastTriggered time.Time
}

// String returns the canonical sequence text like "g g".
func (s *Sequence) String() string {
	return key.JoinSequence(s.Tokens)
}

// clone returns a copy that does not share the token slice.
func (s *Sequence) clone() Sequence {
	c := *s
	c.Tokens = append([]string(nil), s.Tokens...)
	return c
}

// Key builds the registry key for a binding.
func Key(context, shortcut string) string {
	return context + ":" + shortcut
}

// SequenceKey builds the registry key for a sequence.
func SequenceKey(context string, tokens []string) string {
	return context + ":" + key.JoinSequence(tokens)
}

// SplitKey splits a registry key into context and shortcut.
// Returns ok=false if the string is not a registry key.
func SplitKey(k string) (context, rest string, ok bool) {
	i := strings.Index(k, ":")
	if i <= 0 {
		return "", "", false
	}
	return k[:i], k[i+1:], true
}
