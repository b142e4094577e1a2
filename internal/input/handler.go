package input

import (
	"fmt"
	"runtime/debug"
	"time"

	"github.com/dshills/keyroute/internal/input/key"
	"github.com/dshills/keyroute/internal/input/keymap"
)

// Dispatch describes what one keydown did.
type Dispatch struct {
	// Shortcut is the canonical token of the event.
	Shortcut string

	// Contexts is the resolution order used.
	Contexts []string

	// Binding is the key of the binding that fired, if any.
	Binding string

	// Sequence is the key of the sequence that completed, if any.
	Sequence string

	// Pending is true when the sequence detector is waiting for more keys.
	Pending bool

	// SkippedInInput is true when a binding matched but was suppressed
	// because an editable element had focus.
	SkippedInInput bool

	// DefaultPrevented mirrors the event after dispatch.
	DefaultPrevented bool
}

// Fired reports whether any handler ran.
func (d Dispatch) Fired() bool {
	return d.Binding != "" || d.Sequence != ""
}

// PanicError wraps a value recovered from a handler panic.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("handler panic: %v", e.Value)
}

// HandleKeyDown dispatches a keydown event.
func (m *Manager) HandleKeyDown(ev *key.Event) {
	if ev == nil {
		return
	}
	start := time.Now()

	if m.hooks.RunPreKeyDown(ev) {
		m.metrics.RecordHookConsumption()
		return
	}

	m.mu.Lock()
	if m.destroyed {
		m.mu.Unlock()
		return
	}

	now := ev.Timestamp
	if now.IsZero() {
		now = m.clock.Now()
	}
	m.held[ev.HeldKey()] = struct{}{}
	m.lastKey = now

	// A bare modifier press is only tracked; feeding it to the detector
	// would break sequences like "g shift+g".
	if key.IsModifierKey(ev.Key) {
		m.mu.Unlock()
		m.metrics.RecordKeyEvent(time.Since(start))
		return
	}

	d := Dispatch{
		Shortcut: key.Normalize(*ev, m.opts),
		Contexts: m.scopes.Resolve(),
	}
	blocked := ev.Target.Editable() && !m.config.AllowInInputs

	var seq *keymap.Sequence
	if !blocked {
		contexts := d.Contexts
		res := m.detector.Feed(d.Shortcut, func(tokens []string) keymap.SequenceMatch {
			return m.registry.MatchSequence(tokens, contexts)
		})
		d.Pending = res.Pending
		if res.Match != nil {
			seq = res.Match
			d.Sequence = seq.Key
			m.registry.TouchSequence(seq.Key, now)
		}
	}

	b, found := m.registry.LookupFirst(d.Shortcut, d.Contexts)
	if found && blocked && !b.AllowInInputs {
		found = false
		d.SkippedInInput = true
	}
	if found {
		d.Binding = b.Key
		m.registry.Touch(b.Key, now)
	}
	if blocked && !found {
		m.metrics.RecordSkippedInInput()
	}
	m.mu.Unlock()

	if found && b.PreventDefault {
		ev.PreventDefault()
		ev.StopPropagation()
	}
	if seq != nil {
		m.metrics.RecordSequenceMatch()
		m.runSequence(*seq, ev)
	}
	if found {
		m.runBinding(b, ev)
	}

	d.DefaultPrevented = ev.DefaultPrevented()
	m.metrics.RecordKeyEvent(time.Since(start))
	m.hooks.RunPostKeyDown(ev, d)
}

// HandleKeyUp releases a held key.
func (m *Manager) HandleKeyUp(ev *key.Event) {
	if ev == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.held, ev.HeldKey())
}

// HandleBlur clears held keys and abandons any pending sequence.
func (m *Manager) HandleBlur() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.destroyed {
		return
	}
	m.held = make(map[string]struct{})
	m.detector.Reset()
	m.log.Debug("[keyroute] blur: state reset")
}

func (m *Manager) runBinding(b keymap.Binding, ev *key.Event) {
	start := time.Now()
	err := safeCall(func() error { return b.Handler(ev) })
	m.metrics.RecordAction(time.Since(start))
	if err != nil {
		m.handlerFailed(err, "key", b.Key, "shortcut", b.Text)
	}
}

func (m *Manager) runSequence(s keymap.Sequence, ev *key.Event) {
	start := time.Now()
	err := safeCall(func() error {
		return s.Handler(keymap.SequenceTrigger{Sequence: s, Event: ev})
	})
	m.metrics.RecordAction(time.Since(start))
	if err != nil {
		m.handlerFailed(err, "key", s.Key, "sequence", s.Text)
	}
}

func (m *Manager) handlerFailed(err error, attrs ...any) {
	m.metrics.RecordHandlerError()

	if pe, ok := err.(*PanicError); ok {
		m.log.Error("[keyroute] handler panicked",
			append(attrs, "panic", pe.Value, "stack", string(pe.Stack))...)
		return
	}
	m.log.Error("[keyroute] handler failed", append(attrs, "error", err)...)
}

// safeCall runs fn and converts a panic into a *PanicError.
func safeCall(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Value: r, Stack: debug.Stack()}
		}
	}()
	return fn()
}
