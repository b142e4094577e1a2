package input

import (
	"fmt"

	"github.com/dshills/keyroute/internal/input/keymap"
	"github.com/dshills/keyroute/internal/input/scope"
)

// ContextOptions configures a context.
type ContextOptions struct {
	// Priority orders contexts; higher is consulted first.
	Priority int

	// Exclusive hides lower-ranked contexts while this one is active.
	Exclusive bool

	// Element is an opaque host selector the context belongs to.
	Element string
}

// ContextHandle forwards calls to its manager with a context name bound in.
// It is a value type and safe to copy.
type ContextHandle struct {
	m    *Manager
	name string
}

// Name returns the context name.
func (h ContextHandle) Name() string {
	return h.name
}

// Register registers a shortcut in this context.
func (h ContextHandle) Register(text string, fn keymap.Handler, opts ...Option) (string, error) {
	return h.m.Register(text, fn, append(opts, InContext(h.name))...)
}

// RegisterSequence registers a sequence in this context.
func (h ContextHandle) RegisterSequence(text string, fn keymap.SequenceHandler, opts ...Option) (string, error) {
	return h.m.RegisterSequence(text, fn, append(opts, InContext(h.name))...)
}

// Unregister removes a binding or sequence from this context.
func (h ContextHandle) Unregister(keyOrText string) bool {
	return h.m.Unregister(keyOrText, h.name)
}

// SetEnabled toggles a binding or sequence in this context.
func (h ContextHandle) SetEnabled(keyOrText string, enabled bool) bool {
	return h.m.SetEnabled(keyOrText, enabled, h.name)
}

// Activate activates the context.
func (h ContextHandle) Activate() bool {
	return h.m.ActivateContext(h.name)
}

// Deactivate deactivates the context.
func (h ContextHandle) Deactivate() bool {
	return h.m.DeactivateContext(h.name)
}

// IsActive reports whether the context is active.
func (h ContextHandle) IsActive() bool {
	return h.m.scopes.IsActive(h.name)
}

// GetShortcuts lists the bindings in this context.
func (h ContextHandle) GetShortcuts() []ShortcutInfo {
	return h.m.GetShortcuts(h.name)
}

// CreateContext creates a context, or updates the options of an existing
// one, and returns a handle to it.
func (m *Manager) CreateContext(name string, opts ContextOptions) (ContextHandle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.destroyed {
		return ContextHandle{}, ErrDestroyed
	}

	ctx, created, err := m.scopes.Create(name, scope.Options(opts))
	if err != nil {
		return ContextHandle{}, fmt.Errorf("create context: %w", err)
	}
	if !created {
		m.log.Debug("[keyroute] context updated", "context", ctx.Name, "priority", ctx.Priority)
	}
	return ContextHandle{m: m, name: ctx.Name}, nil
}

// Context returns a handle to an existing context.
func (m *Manager) Context(name string) (ContextHandle, bool) {
	if _, ok := m.scopes.Get(name); !ok {
		return ContextHandle{}, false
	}
	return ContextHandle{m: m, name: name}, true
}

// DestroyContext removes a context and everything registered in it.
// The global context cannot be destroyed.
func (m *Manager) DestroyContext(name string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.destroyed {
		return false
	}

	if _, ok := m.scopes.Remove(name); !ok {
		m.log.Debug("[keyroute] destroy context: unknown or global", "context", name)
		return false
	}
	removed := m.registry.RemoveContext(name)
	m.detector.Reset()
	m.log.Debug("[keyroute] context destroyed", "context", name, "removed", len(removed))
	return true
}

// ActivateContext activates a context. Unknown names are ignored.
func (m *Manager) ActivateContext(name string) bool {
	if m.IsDestroyed() {
		return false
	}
	if !m.scopes.Activate(name) {
		m.log.Debug("[keyroute] activate: unknown context", "context", name)
		return false
	}
	return true
}

// DeactivateContext deactivates a context. Unknown names are ignored and
// global stays active.
func (m *Manager) DeactivateContext(name string) bool {
	if m.IsDestroyed() {
		return false
	}
	if !m.scopes.Deactivate(name) {
		m.log.Debug("[keyroute] deactivate: unknown context", "context", name)
		return false
	}
	return true
}

// Contexts returns snapshots of every context in creation order.
func (m *Manager) Contexts() []scope.Context {
	names := m.scopes.Names()
	result := make([]scope.Context, 0, len(names))
	for _, name := range names {
		if c, ok := m.scopes.Get(name); ok {
			result = append(result, c)
		}
	}
	return result
}

// ResolvedContexts returns the contexts dispatch currently consults, in order.
func (m *Manager) ResolvedContexts() []string {
	return m.scopes.Resolve()
}

// RemoveSource removes every binding and sequence tagged with src through
// WithSource. Returns the number removed.
func (m *Manager) RemoveSource(src string) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.destroyed {
		return 0
	}

	removed := m.registry.RemoveSource(src)
	for _, k := range removed {
		if ctx, _, ok := keymap.SplitKey(k); ok {
			m.scopes.Disown(ctx, k)
		}
	}
	return len(removed)
}
