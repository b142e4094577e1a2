package lua

import (
	"time"

	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/keyroute/internal/input"
	"github.com/dshills/keyroute/internal/input/key"
	"github.com/dshills/keyroute/internal/input/keymap"
)

// eventTable converts a key event into the table passed to handlers:
//
//	{key="s", code="KeyS", shortcut="ctrl+s", ctrl=true, alt=false,
//	 shift=false, meta=false, ["repeat"]=false,
//	 target={tag="INPUT", editable=true}}
func eventTable(L *lua.LState, ev *key.Event, opts key.Options) *lua.LTable {
	t := L.NewTable()
	if ev == nil {
		return t
	}
	t.RawSetString("key", lua.LString(ev.Key))
	t.RawSetString("code", lua.LString(ev.Code))
	t.RawSetString("shortcut", lua.LString(key.Normalize(*ev, opts)))
	t.RawSetString("ctrl", lua.LBool(ev.Modifiers.HasCtrl()))
	t.RawSetString("alt", lua.LBool(ev.Modifiers.HasAlt()))
	t.RawSetString("shift", lua.LBool(ev.Modifiers.HasShift()))
	t.RawSetString("meta", lua.LBool(ev.Modifiers.HasMeta()))
	t.RawSetString("repeat", lua.LBool(ev.Repeat))

	target := L.NewTable()
	target.RawSetString("tag", lua.LString(ev.Target.TagName))
	target.RawSetString("editable", lua.LBool(ev.Target.Editable()))
	t.RawSetString("target", target)
	return t
}

// triggerTable converts a completed sequence into a handler argument.
func triggerTable(L *lua.LState, tr keymap.SequenceTrigger, opts key.Options) *lua.LTable {
	t := eventTable(L, tr.Event, opts)
	t.RawSetString("sequence", lua.LString(tr.Sequence.String()))
	t.RawSetString("context", lua.LString(tr.Sequence.Context))
	return t
}

// shortcutTable converts a listing entry into a table.
func shortcutTable(L *lua.LState, info input.ShortcutInfo) *lua.LTable {
	t := L.NewTable()
	t.RawSetString("id", lua.LString(info.Key))
	t.RawSetString("context", lua.LString(info.Context))
	t.RawSetString("shortcut", lua.LString(info.Shortcut))
	t.RawSetString("text", lua.LString(info.ShortcutText))
	t.RawSetString("description", lua.LString(info.Description))
	t.RawSetString("action", lua.LString(info.Action))
	t.RawSetString("enabled", lua.LBool(info.Enabled))
	return t
}

// sequenceTable converts a sequence listing entry into a table.
func sequenceTable(L *lua.LState, info input.SequenceInfo) *lua.LTable {
	t := L.NewTable()
	t.RawSetString("id", lua.LString(info.Key))
	t.RawSetString("context", lua.LString(info.Context))
	t.RawSetString("sequence", lua.LString(info.Sequence))
	t.RawSetString("text", lua.LString(info.SequenceText))
	t.RawSetString("description", lua.LString(info.Description))
	t.RawSetString("action", lua.LString(info.Action))
	t.RawSetString("enabled", lua.LBool(info.Enabled))
	t.RawSetString("timeout", lua.LNumber(info.Timeout.Milliseconds()))
	return t
}

// optTable reads an optional options table argument.
type optTable struct {
	t *lua.LTable
}

func checkOpts(L *lua.LState, n int) optTable {
	if L.GetTop() < n || L.Get(n) == lua.LNil {
		return optTable{}
	}
	return optTable{t: L.CheckTable(n)}
}

func (o optTable) get(name string) lua.LValue {
	if o.t == nil {
		return lua.LNil
	}
	return o.t.RawGetString(name)
}

func (o optTable) str(name string) (string, bool) {
	if s, ok := o.get(name).(lua.LString); ok {
		return string(s), true
	}
	return "", false
}

func (o optTable) boolean(name string) (bool, bool) {
	if b, ok := o.get(name).(lua.LBool); ok {
		return bool(b), true
	}
	return false, false
}

func (o optTable) number(name string) (float64, bool) {
	if n, ok := o.get(name).(lua.LNumber); ok {
		return float64(n), true
	}
	return 0, false
}

// registerOptions maps a Lua options table onto registration options.
// Timeouts are given in milliseconds.
func (o optTable) registerOptions() []input.Option {
	var opts []input.Option
	if v, ok := o.str("context"); ok {
		opts = append(opts, input.InContext(v))
	}
	if v, ok := o.str("description"); ok {
		opts = append(opts, input.WithDescription(v))
	}
	if v, ok := o.boolean("preventDefault"); ok {
		opts = append(opts, input.WithPreventDefault(v))
	}
	if v, ok := o.boolean("allowInInputs"); ok && v {
		opts = append(opts, input.AllowInInputs())
	}
	if v, ok := o.boolean("enabled"); ok && !v {
		opts = append(opts, input.Disabled())
	}
	if v, ok := o.number("priority"); ok {
		opts = append(opts, input.WithPriority(int(v)))
	}
	if v, ok := o.number("timeout"); ok {
		opts = append(opts, input.WithTimeout(time.Duration(v*float64(time.Millisecond))))
	}
	return opts
}
