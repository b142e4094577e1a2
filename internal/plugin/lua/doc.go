// Package lua runs shortcut scripts in a sandboxed gopher-lua state.
//
// Each script gets its own State with only the base, table, string and math
// libraries. Loading code from disk or strings is disabled and print goes to
// the logger. A global keyroute table exposes the manager:
//
//	local id = keyroute.register("Ctrl+S", function(ev)
//	    print("save", ev.shortcut)
//	end, { description = "Save", context = "editor" })
//
//	keyroute.register_sequence("g g", function(ev)
//	    print("top")
//	end, { timeout = 800 })
//
//	keyroute.create_context("editor", { priority = 5, active = true })
//	keyroute.deactivate("editor")
//	keyroute.set_enabled(id, false)
//	keyroute.unregister(id)
//
//	for _, s in ipairs(keyroute.shortcuts()) do
//	    print(s.shortcut, s.description)
//	end
//
// Everything a script registers is tagged with "script:<name>", so Close
// removes it from the manager again. Handlers run with the state locked and
// bounded by the execution timeout; a Lua error or a false return is
// reported as a handler error.
package lua
