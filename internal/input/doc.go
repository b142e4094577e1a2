// Package input is the keyboard-shortcut engine.
//
// A Manager owns a registry of bindings and sequences, a stack of
// prioritized contexts, a sequence detector and the set of held keys. Hosts
// feed it raw key events through a source.Source; components register
// shortcuts through the Manager or through a ContextHandle.
//
// # Dispatch
//
// For each keydown the manager:
//
//  1. Normalizes the event into a canonical token ("ctrl+shift+s").
//  2. Feeds the token to the sequence detector, unless the focused element
//     is editable and the manager does not allow inputs.
//  3. Walks the resolved contexts (priority descending, creation order on
//     ties) and picks the first enabled binding for the token.
//  4. Calls PreventDefault and StopPropagation if the binding asks for it.
//  5. Runs the matched sequence handler and then the binding handler.
//
// Handlers run after the manager's lock is released, so a handler may
// register, unregister or toggle shortcuts. Handler errors and panics are
// logged and counted; they never reach the host.
//
// # Usage
//
//	src := source.NewEmitter()
//	m := input.New(input.DefaultConfig(), src)
//	defer m.Destroy()
//
//	m.Register("Ctrl+Shift+S", func(ev *key.Event) error {
//	    return sidebar.Toggle()
//	})
//
//	video, _ := m.CreateContext("video", input.ContextOptions{Priority: 1})
//	video.Register("s", skipAd)
//	video.Activate()
//
//	m.RegisterSequence("g g", func(keymap.SequenceTrigger) error {
//	    return page.ScrollTop()
//	})
package input
