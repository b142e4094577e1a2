package input

import (
	"log/slog"
	"sort"
	"sync"

	"github.com/dshills/keyroute/internal/input/key"
)

// Hook observes dispatch. PreKeyDown runs before the event reaches the
// dispatcher and may consume it; PostKeyDown sees the outcome.
type Hook interface {
	PreKeyDown(ev *key.Event) bool
	PostKeyDown(ev *key.Event, d Dispatch)
}

// HookPriority defines the execution order for hooks.
// Lower values execute first.
type HookPriority int

const (
	// HookPriorityHighest runs before all other hooks.
	HookPriorityHighest HookPriority = -1000
	// HookPriorityHigh runs early in the hook chain.
	HookPriorityHigh HookPriority = -100
	// HookPriorityNormal is the default priority.
	HookPriorityNormal HookPriority = 0
	// HookPriorityLow runs late in the hook chain.
	HookPriorityLow HookPriority = 100
	// HookPriorityLowest runs after all other hooks.
	HookPriorityLowest HookPriority = 1000
)

// HookID uniquely identifies a registered hook.
type HookID uint64

// HookRegistration holds metadata about a registered hook.
type HookRegistration struct {
	ID       HookID
	Name     string
	Priority HookPriority
	Hook     Hook
}

// HookManager keeps hooks ordered by priority, then registration order.
type HookManager struct {
	mu      sync.RWMutex
	hooks   []HookRegistration
	nextID  HookID
	sorted  bool
	enabled bool

	// onFailure receives hook panics. Default: logged via slog.Default.
	onFailure func(err error, attrs ...any)
}

// NewHookManager creates an empty, enabled hook manager.
func NewHookManager() *HookManager {
	return &HookManager{
		sorted:  true,
		enabled: true,
	}
}

// Register adds a hook with default priority.
func (m *HookManager) Register(hook Hook) HookID {
	return m.RegisterWithOptions(hook, "", HookPriorityNormal)
}

// RegisterWithOptions adds a hook with a name and priority. A hook with the
// same non-empty name is replaced.
func (m *HookManager) RegisterWithOptions(hook Hook, name string, priority HookPriority) HookID {
	m.mu.Lock()
	defer m.mu.Unlock()

	if name != "" {
		m.removeLocked(func(r HookRegistration) bool { return r.Name == name })
	}

	m.nextID++
	m.hooks = append(m.hooks, HookRegistration{
		ID:       m.nextID,
		Name:     name,
		Priority: priority,
		Hook:     hook,
	})
	m.sorted = false
	return m.nextID
}

// Unregister removes a hook by ID.
func (m *HookManager) Unregister(id HookID) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.removeLocked(func(r HookRegistration) bool { return r.ID == id })
}

// UnregisterByName removes a hook by name.
func (m *HookManager) UnregisterByName(name string) bool {
	if name == "" {
		return false
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.removeLocked(func(r HookRegistration) bool { return r.Name == name })
}

func (m *HookManager) removeLocked(match func(HookRegistration) bool) bool {
	for i := range m.hooks {
		if match(m.hooks[i]) {
			m.hooks = append(m.hooks[:i:i], m.hooks[i+1:]...)
			return true
		}
	}
	return false
}

// SetEnabled enables or disables all hooks.
func (m *HookManager) SetEnabled(enabled bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.enabled = enabled
}

// IsEnabled returns whether hooks are enabled.
func (m *HookManager) IsEnabled() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.enabled
}

// Count returns the number of registered hooks.
func (m *HookManager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.hooks)
}

// List returns all hook registrations in execution order.
func (m *HookManager) List() []HookRegistration {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.ensureSorted()
	result := make([]HookRegistration, len(m.hooks))
	copy(result, m.hooks)
	return result
}

func (m *HookManager) ensureSorted() {
	if m.sorted {
		return
	}
	sort.SliceStable(m.hooks, func(i, j int) bool {
		return m.hooks[i].Priority < m.hooks[j].Priority
	})
	m.sorted = true
}

// snapshot copies the hooks for iteration outside the lock.
func (m *HookManager) snapshot() []Hook {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.enabled || len(m.hooks) == 0 {
		return nil
	}
	m.ensureSorted()
	hooks := make([]Hook, len(m.hooks))
	for i := range m.hooks {
		hooks[i] = m.hooks[i].Hook
	}
	return hooks
}

// RunPreKeyDown runs PreKeyDown hooks in order.
// Returns true if any hook consumed the event. A hook that panics is
// reported and treated as not consuming.
func (m *HookManager) RunPreKeyDown(ev *key.Event) bool {
	for _, h := range m.snapshot() {
		var consumed bool
		err := safeCall(func() error {
			consumed = h.PreKeyDown(ev)
			return nil
		})
		if err != nil {
			m.failed(err, "hook", "pre_keydown")
			continue
		}
		if consumed {
			return true
		}
	}
	return false
}

// RunPostKeyDown runs PostKeyDown hooks in order. A hook that panics is
// reported and the remaining hooks still run.
func (m *HookManager) RunPostKeyDown(ev *key.Event, d Dispatch) {
	for _, h := range m.snapshot() {
		err := safeCall(func() error {
			h.PostKeyDown(ev, d)
			return nil
		})
		if err != nil {
			m.failed(err, "hook", "post_keydown")
		}
	}
}

func (m *HookManager) failed(err error, attrs ...any) {
	m.mu.RLock()
	fn := m.onFailure
	m.mu.RUnlock()

	if fn != nil {
		fn(err, attrs...)
		return
	}
	slog.Error("[keyroute] hook failed", append(attrs, "error", err)...)
}

// Clear removes all hooks.
func (m *HookManager) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.hooks = nil
	m.sorted = true
}

// BaseHook is a no-op Hook. Embed it to implement only what you need.
type BaseHook struct{}

// PreKeyDown does not consume events.
func (BaseHook) PreKeyDown(*key.Event) bool { return false }

// PostKeyDown is a no-op.
func (BaseHook) PostKeyDown(*key.Event, Dispatch) {}

// FuncHook wraps functions into a Hook.
type FuncHook struct {
	PreKeyDownFunc  func(*key.Event) bool
	PostKeyDownFunc func(*key.Event, Dispatch)
}

// PreKeyDown calls PreKeyDownFunc if set.
func (h FuncHook) PreKeyDown(ev *key.Event) bool {
	if h.PreKeyDownFunc != nil {
		return h.PreKeyDownFunc(ev)
	}
	return false
}

// PostKeyDown calls PostKeyDownFunc if set.
func (h FuncHook) PostKeyDown(ev *key.Event, d Dispatch) {
	if h.PostKeyDownFunc != nil {
		h.PostKeyDownFunc(ev, d)
	}
}

// LoggingHook logs every dispatch at debug level.
type LoggingHook struct {
	BaseHook
	Logger *slog.Logger
}

// PostKeyDown logs the dispatch outcome.
func (h LoggingHook) PostKeyDown(ev *key.Event, d Dispatch) {
	log := h.Logger
	if log == nil {
		log = slog.Default()
	}
	log.Debug("[keyroute] keydown",
		"shortcut", d.Shortcut,
		"binding", d.Binding,
		"sequence", d.Sequence,
		"pending", d.Pending,
		"skipped_in_input", d.SkippedInInput,
		"repeat", ev.Repeat,
	)
}

// FilterHook consumes events matching a predicate.
type FilterHook struct {
	BaseHook

	// Filter returns true to consume the event.
	Filter func(*key.Event) bool
}

// PreKeyDown applies the filter.
func (h FilterHook) PreKeyDown(ev *key.Event) bool {
	if h.Filter != nil {
		return h.Filter(ev)
	}
	return false
}
