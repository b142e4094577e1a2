// Package scope tracks named, prioritized shortcut contexts and decides the
// order in which they are consulted.
//
// The "global" context always exists and always resolves. Other contexts
// resolve only while active. Resolution order is priority descending, then
// creation order, so equal priorities never depend on map iteration. An
// exclusive context hides every context that resolves after it.
package scope

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Global is the always-active context.
const Global = "global"

// Errors returned by Create.
var (
	ErrEmptyName   = errors.New("context name is empty")
	ErrInvalidName = errors.New("invalid context name")
)

// Options configures a context.
type Options struct {
	// Priority orders contexts; higher is consulted first.
	Priority int

	// Exclusive hides lower-ranked contexts while this one resolves.
	Exclusive bool

	// Element is an opaque host selector the context is bound to.
	Element string
}

// Context is a snapshot of one context's state.
type Context struct {
	Name      string
	Priority  int
	Exclusive bool
	Element   string
	Active    bool

	// Order is the creation ordinal, used to break priority ties.
	Order uint64

	// Owned are the registry keys of entries registered in the context.
	Owned []string
}

type entry struct {
	Context
	owned map[string]struct{}
}

func (e *entry) snapshot() Context {
	c := e.Context
	c.Owned = make([]string, 0, len(e.owned))
	for k := range e.owned {
		c.Owned = append(c.Owned, k)
	}
	sort.Strings(c.Owned)
	return c
}

// ChangeCallback is called after a context is activated or deactivated.
type ChangeCallback func(name string, active bool)

// Stack holds all contexts.
type Stack struct {
	mu sync.RWMutex

	contexts map[string]*entry
	next     uint64

	callbacks []ChangeCallback
}

// NewStack creates a stack containing only the global context.
func NewStack() *Stack {
	s := &Stack{
		contexts: make(map[string]*entry),
	}
	s.addGlobalLocked()
	return s
}

func (s *Stack) addGlobalLocked() {
	s.contexts[Global] = &entry{
		Context: Context{Name: Global, Active: true, Order: s.next},
		owned:   make(map[string]struct{}),
	}
	s.next++
}

// OnChange registers a callback for activation changes.
func (s *Stack) OnChange(cb ChangeCallback) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.callbacks = append(s.callbacks, cb)
}

// ValidateName reports whether name can be used for a context. Names may
// not be empty or contain ':' or whitespace.
func ValidateName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrEmptyName
	}
	if strings.ContainsAny(name, ": \t\n") {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}

// Create adds a context or updates an existing one's options.
// An existing context keeps its activation state and creation order.
func (s *Stack) Create(name string, opts Options) (ctx Context, created bool, err error) {
	name = strings.TrimSpace(name)
	if err := ValidateName(name); err != nil {
		return Context{}, false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.contexts[name]
	if !ok {
		e = &entry{
			Context: Context{Name: name, Order: s.next},
			owned:   make(map[string]struct{}),
		}
		s.next++
		s.contexts[name] = e
		created = true
	}
	e.Priority = opts.Priority
	e.Exclusive = opts.Exclusive
	e.Element = opts.Element
	if name == Global {
		e.Active = true
	}
	return e.snapshot(), created, nil
}

// Activate marks a context active. Returns false for unknown names.
func (s *Stack) Activate(name string) bool {
	return s.setActive(name, true)
}

// Deactivate marks a context inactive. Returns false for unknown names.
// The global context stays active.
func (s *Stack) Deactivate(name string) bool {
	return s.setActive(name, false)
}

func (s *Stack) setActive(name string, active bool) bool {
	s.mu.Lock()
	e, ok := s.contexts[name]
	if !ok {
		s.mu.Unlock()
		return false
	}
	if name == Global {
		s.mu.Unlock()
		return true
	}
	changed := e.Active != active
	e.Active = active
	callbacks := append([]ChangeCallback(nil), s.callbacks...)
	s.mu.Unlock()

	if changed {
		for _, cb := range callbacks {
			cb(name, active)
		}
	}
	return true
}

// IsActive reports whether a context exists and is active.
func (s *Stack) IsActive(name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.contexts[name]
	return ok && e.Active
}

// Resolve returns the names of the contexts to consult, in order.
func (s *Stack) Resolve() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	resolved := make([]*entry, 0, len(s.contexts))
	for _, e := range s.contexts {
		if e.Active || e.Name == Global {
			resolved = append(resolved, e)
		}
	}

	sort.Slice(resolved, func(i, j int) bool {
		if resolved[i].Priority != resolved[j].Priority {
			return resolved[i].Priority > resolved[j].Priority
		}
		return resolved[i].Order < resolved[j].Order
	})

	names := make([]string, 0, len(resolved))
	for _, e := range resolved {
		names = append(names, e.Name)
		if e.Exclusive {
			break
		}
	}
	return names
}

// Own records that key belongs to context name.
// Returns false for unknown names.
func (s *Stack) Own(name, key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.contexts[name]
	if !ok {
		return false
	}
	e.owned[key] = struct{}{}
	return true
}

// Disown removes key from context name.
func (s *Stack) Disown(name, key string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e, ok := s.contexts[name]; ok {
		delete(e.owned, key)
	}
}

// Owned returns the keys owned by a context, sorted.
func (s *Stack) Owned(name string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.contexts[name]
	if !ok {
		return nil
	}
	return e.snapshot().Owned
}

// Remove deletes a context and returns the keys it owned.
// The global context cannot be removed.
func (s *Stack) Remove(name string) ([]string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.contexts[name]
	if !ok || name == Global {
		return nil, false
	}
	delete(s.contexts, name)
	return e.snapshot().Owned, true
}

// Get returns a snapshot of a context.
func (s *Stack) Get(name string) (Context, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.contexts[name]
	if !ok {
		return Context{}, false
	}
	return e.snapshot(), true
}

// Names returns every context name in creation order.
func (s *Stack) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := make([]*entry, 0, len(s.contexts))
	for _, e := range s.contexts {
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Order < entries[j].Order
	})

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name)
	}
	return names
}

// Len returns the number of contexts, global included.
func (s *Stack) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.contexts)
}

// ActiveLen returns the number of active contexts, global included.
func (s *Stack) ActiveLen() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, e := range s.contexts {
		if e.Active {
			n++
		}
	}
	return n
}

// Clear removes every context and recreates global.
func (s *Stack) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.contexts = make(map[string]*entry)
	s.next = 0
	s.addGlobalLocked()
}
