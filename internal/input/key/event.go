package key

import (
	"fmt"
	"strings"
	"time"
)

// Controller is implemented by hosts whose native events can be cancelled.
type Controller interface {
	PreventDefault()
	StopPropagation()
}

// Target describes the element that had focus when a key event fired.
type Target struct {
	// TagName is the element tag, e.g. "INPUT", "div".
	TagName string

	// ContentEditable is true for contenteditable elements.
	ContentEditable bool
}

// Editable returns true if the target accepts text input.
func (t Target) Editable() bool {
	switch strings.ToLower(t.TagName) {
	case "input", "textarea", "select":
		return true
	}
	return t.ContentEditable
}

// Event represents a single raw key event delivered by a host.
type Event struct {
	// Key is the host key name ("s", "S", "ArrowUp", " ", "Escape").
	Key string

	// Code is the physical key code ("KeyS"), when the host provides one.
	Code string

	// Modifiers contains the active modifier keys.
	Modifiers Modifier

	// Target is the focused element.
	Target Target

	// Repeat is true for auto-repeat keydowns.
	Repeat bool

	// Timestamp is when the event occurred.
	Timestamp time.Time

	// Controller receives PreventDefault/StopPropagation calls. May be nil.
	Controller Controller

	defaultPrevented   bool
	propagationStopped bool
}

// NewEvent creates a key event with the current timestamp.
func NewEvent(name string, mods Modifier) *Event {
	return &Event{
		Key:       name,
		Modifiers: mods,
		Timestamp: time.Now(),
	}
}

// InTarget returns the event with its target set.
func (e *Event) InTarget(t Target) *Event {
	e.Target = t
	return e
}

// PreventDefault marks the event handled and forwards to the host.
func (e *Event) PreventDefault() {
	e.defaultPrevented = true
	if e.Controller != nil {
		e.Controller.PreventDefault()
	}
}

// StopPropagation stops the event bubbling and forwards to the host.
func (e *Event) StopPropagation() {
	e.propagationStopped = true
	if e.Controller != nil {
		e.Controller.StopPropagation()
	}
}

// DefaultPrevented reports whether PreventDefault was called.
func (e *Event) DefaultPrevented() bool {
	return e.defaultPrevented
}

// PropagationStopped reports whether StopPropagation was called.
func (e *Event) PropagationStopped() bool {
	return e.propagationStopped
}

// HeldKey returns the identity used to track the key as held down.
// The physical code is preferred so shifted characters release cleanly.
func (e *Event) HeldKey() string {
	if e.Code != "" {
		return e.Code
	}
	return CanonicalKeyName(e.Key, false)
}

// GoString implements fmt.GoStringer for debugging.
func (e Event) GoString() string {
	return fmt.Sprintf("Event{Key: %q, Code: %q, Modifiers: %s, Target: %q}",
		e.Key, e.Code, e.Modifiers.String(), e.Target.TagName)
}
