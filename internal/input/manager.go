package input

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dshills/keyroute/internal/input/key"
	"github.com/dshills/keyroute/internal/input/keymap"
	"github.com/dshills/keyroute/internal/input/scope"
	"github.com/dshills/keyroute/internal/input/sequence"
	"github.com/dshills/keyroute/internal/input/source"
)

// Manager errors.
var (
	ErrDestroyed  = errors.New("shortcut manager destroyed")
	ErrNilHandler = errors.New("nil handler")
)

// EventSource is the host event boundary a Manager subscribes to.
type EventSource = source.Source

// Listener receives host events.
type Listener = source.Listener

// Manager is the shortcut engine: registration surface plus dispatcher.
type Manager struct {
	mu sync.Mutex

	id     string
	config Config
	opts   key.Options
	log    *slog.Logger
	clock  sequence.Clock

	registry *keymap.Registry
	scopes   *scope.Stack
	detector *sequence.Detector
	hooks    *HookManager
	metrics  *Metrics

	// held is the set of keys currently down, by Event.HeldKey.
	held    map[string]struct{}
	lastKey time.Time

	unsubscribe func()
	destroyed   bool
}

// New creates a manager and subscribes it to src. src may be nil when the
// host calls HandleKeyDown and friends directly.
func New(cfg Config, src EventSource) *Manager {
	cfg = cfg.withDefaults()
	id := uuid.NewString()

	m := &Manager{
		id:       id,
		config:   cfg,
		opts:     cfg.KeyOptions(),
		log:      cfg.Logger.With("manager", id[:8]),
		clock:    cfg.Clock,
		registry: keymap.NewRegistry(),
		scopes:   scope.NewStack(),
		hooks:    NewHookManager(),
		metrics:  NewMetrics(),
		held:     make(map[string]struct{}),
	}
	m.detector = sequence.New(
		sequence.WithClock(cfg.Clock),
		sequence.WithTimeoutCallback(m.onSequenceTimeout),
	)
	m.hooks.onFailure = m.handlerFailed
	m.scopes.OnChange(func(name string, active bool) {
		m.log.Debug("[keyroute] context changed", "context", name, "active", active)
	})

	if src != nil {
		m.unsubscribe = src.Subscribe(listener{m})
	}
	return m
}

// ID returns the manager's instance identifier.
func (m *Manager) ID() string {
	return m.id
}

// Config returns the effective configuration.
func (m *Manager) Config() Config {
	return m.config
}

// Hooks returns the manager's hook chain.
func (m *Manager) Hooks() *HookManager {
	return m.hooks
}

// Metrics returns the manager's metrics tracker.
func (m *Manager) Metrics() *Metrics {
	return m.metrics
}

// Register binds shortcut text to a handler and returns the binding key.
// Registering the same canonical shortcut twice in one context replaces the
// earlier binding.
func (m *Manager) Register(text string, h keymap.Handler, opts ...Option) (string, error) {
	if h == nil {
		return "", ErrNilHandler
	}
	o := newRegOptions(opts)

	sc, err := key.ParseShortcut(text, m.opts)
	if err != nil {
		return "", fmt.Errorf("register %q: %w", text, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.destroyed {
		return "", ErrDestroyed
	}

	ctx, err := m.ensureContextLocked(o.context)
	if err != nil {
		return "", fmt.Errorf("register %q: %w", text, err)
	}

	b := keymap.Binding{
		Context:        ctx,
		Shortcut:       sc.String(),
		Text:           text,
		Handler:        h,
		Enabled:        o.enabled,
		PreventDefault: o.preventDefault,
		AllowInInputs:  o.allowInInputs,
		Description:    o.description,
		Priority:       o.priority,
		Action:         o.action,
		Source:         o.source,
	}
	k := keymap.Key(b.Context, b.Shortcut)
	if m.registry.Put(b) {
		m.log.Warn("[keyroute] shortcut replaced", "key", k, "text", text)
	}
	m.scopes.Own(ctx, k)
	return k, nil
}

// RegisterSequence binds whitespace separated shortcut text ("g g") to a
// handler and returns the sequence key.
func (m *Manager) RegisterSequence(text string, h keymap.SequenceHandler, opts ...Option) (string, error) {
	if h == nil {
		return "", ErrNilHandler
	}
	o := newRegOptions(opts)

	tokens, err := key.ParseSequence(text, m.opts)
	if err != nil {
		return "", fmt.Errorf("register sequence %q: %w", text, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.destroyed {
		return "", ErrDestroyed
	}

	ctx, err := m.ensureContextLocked(o.context)
	if err != nil {
		return "", fmt.Errorf("register sequence %q: %w", text, err)
	}

	timeout := o.timeout
	if timeout <= 0 {
		timeout = m.config.SequenceTimeout
	}

	s := keymap.Sequence{
		Context:     ctx,
		Tokens:      tokens,
		Text:        text,
		Handler:     h,
		Timeout:     timeout,
		Enabled:     o.enabled,
		Description: o.description,
		Action:      o.action,
		Source:      o.source,
	}
	k := keymap.SequenceKey(ctx, tokens)
	if m.registry.PutSequence(s) {
		m.log.Warn("[keyroute] sequence replaced", "key", k, "text", text)
	}
	m.scopes.Own(ctx, k)
	return k, nil
}

// Unregister removes a binding or sequence. keyOrText is either a key
// returned by Register/RegisterSequence or shortcut text resolved in
// context ("" means global).
func (m *Manager) Unregister(keyOrText, context string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.destroyed {
		return false
	}

	k, isSeq, ok := m.resolveKeyLocked(keyOrText, context)
	if !ok {
		m.log.Debug("[keyroute] unregister: no match", "shortcut", keyOrText, "context", context)
		return false
	}

	var ctx string
	if isSeq {
		s, removed := m.registry.RemoveSequence(k)
		if !removed {
			return false
		}
		ctx = s.Context
	} else {
		b, removed := m.registry.Remove(k)
		if !removed {
			return false
		}
		ctx = b.Context
	}
	m.scopes.Disown(ctx, k)
	return true
}

// SetEnabled toggles a binding or sequence without removing it.
func (m *Manager) SetEnabled(keyOrText string, enabled bool, context string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.destroyed {
		return false
	}

	k, isSeq, ok := m.resolveKeyLocked(keyOrText, context)
	if !ok {
		return false
	}
	if isSeq {
		return m.registry.SetSequenceEnabled(k, enabled)
	}
	return m.registry.SetEnabled(k, enabled)
}

// resolveKeyLocked maps a registry key or shortcut text to an existing
// registry key.
func (m *Manager) resolveKeyLocked(keyOrText, context string) (k string, isSeq bool, ok bool) {
	if _, found := m.registry.Get(keyOrText); found {
		return keyOrText, false, true
	}
	if _, found := m.registry.GetSequence(keyOrText); found {
		return keyOrText, true, true
	}

	if context == "" {
		context = scope.Global
	}
	if len(strings.Fields(keyOrText)) > 1 {
		tokens, err := key.ParseSequence(keyOrText, m.opts)
		if err != nil {
			return "", false, false
		}
		k = keymap.SequenceKey(context, tokens)
		_, found := m.registry.GetSequence(k)
		return k, true, found
	}

	canon, err := key.Canonicalize(keyOrText, m.opts)
	if err != nil {
		return "", false, false
	}
	k = keymap.Key(context, canon)
	if _, found := m.registry.Get(k); found {
		return k, false, true
	}
	// A single-token sequence shares its text with a binding.
	if _, found := m.registry.GetSequence(k); found {
		return k, true, true
	}
	return "", false, false
}

// ensureContextLocked returns the context name to register into, creating
// unknown contexts inactive at priority 0.
func (m *Manager) ensureContextLocked(name string) (string, error) {
	if name == "" {
		return scope.Global, nil
	}
	if _, ok := m.scopes.Get(name); ok {
		return name, nil
	}
	ctx, _, err := m.scopes.Create(name, scope.Options{})
	if err != nil {
		return "", err
	}
	m.log.Debug("[keyroute] created context on registration", "context", ctx.Name)
	return ctx.Name, nil
}

// Destroy detaches from the event source, cancels the sequence timer and
// clears all state. Further registrations fail with ErrDestroyed.
func (m *Manager) Destroy() {
	m.mu.Lock()
	if m.destroyed {
		m.mu.Unlock()
		return
	}
	m.destroyed = true
	unsubscribe := m.unsubscribe
	m.unsubscribe = nil

	m.detector.Stop()
	m.registry.Clear()
	m.scopes.Clear()
	m.held = make(map[string]struct{})
	m.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
	m.hooks.Clear()
	m.log.Debug("[keyroute] manager destroyed")
}

// IsDestroyed reports whether Destroy has been called.
func (m *Manager) IsDestroyed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.destroyed
}

func (m *Manager) onSequenceTimeout(buffer []string) {
	m.metrics.RecordSequenceTimeout()
	m.log.Debug("[keyroute] sequence timed out", "pending", key.JoinSequence(buffer))
}

// listener adapts the manager to source.Listener.
type listener struct {
	m *Manager
}

func (l listener) KeyDown(ev *key.Event) { l.m.HandleKeyDown(ev) }
func (l listener) KeyUp(ev *key.Event)   { l.m.HandleKeyUp(ev) }
func (l listener) Blur()                 { l.m.HandleBlur() }
