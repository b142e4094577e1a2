package lua

import (
	"fmt"
	"log/slog"
	"time"

	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/keyroute/internal/input"
	"github.com/dshills/keyroute/internal/input/key"
	"github.com/dshills/keyroute/internal/input/keymap"
)

// ModuleName is the global the keyroute API is installed under.
const ModuleName = "keyroute"

// SourcePrefix tags every registration a script makes, followed by the
// script name, so a script can be unloaded with Manager.RemoveSource.
const SourcePrefix = "script:"

// Script is a Lua state bound to a manager.
type Script struct {
	state   *State
	manager *input.Manager
	source  string
	keyOpts key.Options
	log     *slog.Logger
}

// NewScript creates a state with the keyroute module installed.
func NewScript(m *input.Manager, opts ...StateOption) *Script {
	st := NewState(opts...)
	s := &Script{
		state:   st,
		manager: m,
		source:  SourcePrefix + st.Name(),
		keyOpts: m.Config().KeyOptions(),
		log:     st.log,
	}
	s.install()
	return s
}

// LoadFile creates a script named after path and runs it.
// On error the script's registrations are removed and its state closed.
func LoadFile(m *input.Manager, path string, timeout time.Duration, logger *slog.Logger) (*Script, error) {
	s := NewScript(m, WithName(path), WithExecutionTimeout(timeout), WithLogger(logger))
	if err := s.state.DoFile(path); err != nil {
		s.Close()
		return nil, fmt.Errorf("script %s: %w", path, err)
	}
	s.log.Info("[keyroute] script loaded", "script", path, "bindings", len(s.Shortcuts()))
	return s, nil
}

// State returns the underlying Lua state.
func (s *Script) State() *State {
	return s.state
}

// Source returns the tag carried by the script's registrations.
func (s *Script) Source() string {
	return s.source
}

// DoString runs a chunk in the script's state.
func (s *Script) DoString(code string) error {
	return s.state.DoString(code)
}

// Shortcuts lists the bindings this script registered.
func (s *Script) Shortcuts() []input.ShortcutInfo {
	var out []input.ShortcutInfo
	for _, info := range s.manager.GetShortcuts("") {
		if info.Source == s.source {
			out = append(out, info)
		}
	}
	return out
}

// Close removes everything the script registered and closes its state.
func (s *Script) Close() error {
	s.manager.RemoveSource(s.source)
	return s.state.Close()
}

func (s *Script) install() {
	L := s.state.L
	mod := L.SetFuncs(L.NewTable(), map[string]lua.LGFunction{
		"register":          s.luaRegister,
		"register_sequence": s.luaRegisterSequence,
		"unregister":        s.luaUnregister,
		"set_enabled":       s.luaSetEnabled,
		"create_context":    s.luaCreateContext,
		"activate":          s.luaActivate,
		"deactivate":        s.luaDeactivate,
		"shortcuts":         s.luaShortcuts,
		"sequences":         s.luaSequences,
	})
	L.SetGlobal(ModuleName, mod)
}

// keyroute.register(keys, fn [, opts]) -> id | nil, err
func (s *Script) luaRegister(L *lua.LState) int {
	text := L.CheckString(1)
	fn := L.CheckFunction(2)
	opts := checkOpts(L, 3).registerOptions()

	id, err := s.manager.Register(text, s.bindingHandler(text, fn), append(opts, input.WithSource(s.source))...)
	return pushResult(L, id, err)
}

// keyroute.register_sequence(keys, fn [, opts]) -> id | nil, err
func (s *Script) luaRegisterSequence(L *lua.LState) int {
	text := L.CheckString(1)
	fn := L.CheckFunction(2)
	opts := checkOpts(L, 3).registerOptions()

	id, err := s.manager.RegisterSequence(text, s.sequenceHandler(text, fn), append(opts, input.WithSource(s.source))...)
	return pushResult(L, id, err)
}

// keyroute.unregister(id_or_keys [, context]) -> bool
func (s *Script) luaUnregister(L *lua.LState) int {
	L.Push(lua.LBool(s.manager.Unregister(L.CheckString(1), L.OptString(2, ""))))
	return 1
}

// keyroute.set_enabled(id_or_keys, enabled [, context]) -> bool
func (s *Script) luaSetEnabled(L *lua.LState) int {
	ok := s.manager.SetEnabled(L.CheckString(1), L.CheckBool(2), L.OptString(3, ""))
	L.Push(lua.LBool(ok))
	return 1
}

// keyroute.create_context(name [, {priority=, exclusive=, active=}]) -> name | nil, err
func (s *Script) luaCreateContext(L *lua.LState) int {
	name := L.CheckString(1)
	o := checkOpts(L, 2)

	var opts input.ContextOptions
	if v, ok := o.number("priority"); ok {
		opts.Priority = int(v)
	}
	if v, ok := o.boolean("exclusive"); ok {
		opts.Exclusive = v
	}
	if v, ok := o.str("element"); ok {
		opts.Element = v
	}

	h, err := s.manager.CreateContext(name, opts)
	if err != nil {
		return pushResult(L, "", err)
	}
	if v, ok := o.boolean("active"); ok && v {
		h.Activate()
	}
	L.Push(lua.LString(h.Name()))
	return 1
}

// keyroute.activate(name) -> bool
func (s *Script) luaActivate(L *lua.LState) int {
	L.Push(lua.LBool(s.manager.ActivateContext(L.CheckString(1))))
	return 1
}

// keyroute.deactivate(name) -> bool
func (s *Script) luaDeactivate(L *lua.LState) int {
	L.Push(lua.LBool(s.manager.DeactivateContext(L.CheckString(1))))
	return 1
}

// keyroute.shortcuts([context]) -> {{id=, shortcut=, ...}, ...}
func (s *Script) luaShortcuts(L *lua.LState) int {
	t := L.NewTable()
	for _, info := range s.manager.GetShortcuts(L.OptString(1, "")) {
		t.Append(shortcutTable(L, info))
	}
	L.Push(t)
	return 1
}

// keyroute.sequences([context]) -> {{id=, sequence=, ...}, ...}
func (s *Script) luaSequences(L *lua.LState) int {
	t := L.NewTable()
	for _, info := range s.manager.GetSequences(L.OptString(1, "")) {
		t.Append(sequenceTable(L, info))
	}
	L.Push(t)
	return 1
}

// pushResult returns id on success or nil plus the error text.
func pushResult(L *lua.LState, id string, err error) int {
	if err != nil {
		L.Push(lua.LNil)
		L.Push(lua.LString(err.Error()))
		return 2
	}
	L.Push(lua.LString(id))
	return 1
}

// bindingHandler wraps a Lua function as a binding handler. A Lua error or
// a false return becomes the handler's error.
func (s *Script) bindingHandler(text string, fn *lua.LFunction) keymap.Handler {
	return func(ev *key.Event) error {
		ret, err := s.state.CallFunction(fn, func(L *lua.LState) []lua.LValue {
			return []lua.LValue{eventTable(L, ev, s.keyOpts)}
		})
		return s.handlerResult(text, ret, err)
	}
}

func (s *Script) sequenceHandler(text string, fn *lua.LFunction) keymap.SequenceHandler {
	return func(tr keymap.SequenceTrigger) error {
		ret, err := s.state.CallFunction(fn, func(L *lua.LState) []lua.LValue {
			return []lua.LValue{triggerTable(L, tr, s.keyOpts)}
		})
		return s.handlerResult(text, ret, err)
	}
}

func (s *Script) handlerResult(text string, ret lua.LValue, err error) error {
	if err != nil {
		return fmt.Errorf("script %s: handler %q: %w", s.state.Name(), text, err)
	}
	if ret == lua.LFalse {
		return fmt.Errorf("script %s: handler %q returned false", s.state.Name(), text)
	}
	return nil
}
