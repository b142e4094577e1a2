// Package source defines the host event boundary and an in-memory emitter.
//
// Hosts (a terminal, a JSON feed, tests) push raw key events into an
// Emitter; the input manager subscribes to it as a Listener.
package source

import (
	"sync"

	"github.com/google/uuid"

	"github.com/dshills/keyroute/internal/input/key"
)

// Listener receives raw events from a host.
type Listener interface {
	KeyDown(ev *key.Event)
	KeyUp(ev *key.Event)
	Blur()
}

// Source is anything a Listener can subscribe to.
type Source interface {
	// Subscribe attaches l and returns a function that detaches it.
	Subscribe(l Listener) (cancel func())
}

// Funcs adapts plain functions to a Listener. Nil fields are ignored.
type Funcs struct {
	OnKeyDown func(ev *key.Event)
	OnKeyUp   func(ev *key.Event)
	OnBlur    func()
}

// KeyDown implements Listener.
func (f Funcs) KeyDown(ev *key.Event) {
	if f.OnKeyDown != nil {
		f.OnKeyDown(ev)
	}
}

// KeyUp implements Listener.
func (f Funcs) KeyUp(ev *key.Event) {
	if f.OnKeyUp != nil {
		f.OnKeyUp(ev)
	}
}

// Blur implements Listener.
func (f Funcs) Blur() {
	if f.OnBlur != nil {
		f.OnBlur()
	}
}

type subscription struct {
	id       string
	listener Listener
}

// Emitter fans host events out to subscribed listeners in subscription order.
type Emitter struct {
	mu   sync.RWMutex
	subs []subscription
}

// NewEmitter creates an emitter with no listeners.
func NewEmitter() *Emitter {
	return &Emitter{}
}

// Subscribe implements Source.
func (e *Emitter) Subscribe(l Listener) (cancel func()) {
	id := uuid.NewString()

	e.mu.Lock()
	e.subs = append(e.subs, subscription{id: id, listener: l})
	e.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { e.unsubscribe(id) })
	}
}

func (e *Emitter) unsubscribe(id string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	for i, s := range e.subs {
		if s.id == id {
			e.subs = append(e.subs[:i:i], e.subs[i+1:]...)
			return
		}
	}
}

func (e *Emitter) snapshot() []Listener {
	e.mu.RLock()
	defer e.mu.RUnlock()

	ls := make([]Listener, len(e.subs))
	for i, s := range e.subs {
		ls[i] = s.listener
	}
	return ls
}

// KeyDown delivers a keydown to every listener.
func (e *Emitter) KeyDown(ev *key.Event) {
	for _, l := range e.snapshot() {
		l.KeyDown(ev)
	}
}

// KeyUp delivers a keyup to every listener.
func (e *Emitter) KeyUp(ev *key.Event) {
	for _, l := range e.snapshot() {
		l.KeyUp(ev)
	}
}

// Blur tells every listener the host lost focus.
func (e *Emitter) Blur() {
	for _, l := range e.snapshot() {
		l.Blur()
	}
}

// Len returns the number of subscribed listeners.
func (e *Emitter) Len() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.subs)
}
