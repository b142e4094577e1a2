package terminal

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/gdamore/tcell/v2"

	"github.com/dshills/keyroute/internal/input/key"
	"github.com/dshills/keyroute/internal/input/source"
)

func TestConvertKey(t *testing.T) {
	tests := []struct {
		name string
		ev   *tcell.EventKey
		want string
	}{
		{"rune", tcell.NewEventKey(tcell.KeyRune, 's', tcell.ModNone), "s"},
		{"ctrl rune", tcell.NewEventKey(tcell.KeyRune, 's', tcell.ModCtrl), "ctrl+s"},
		{"ctrl key", tcell.NewEventKey(tcell.KeyCtrlK, 0, tcell.ModCtrl), "ctrl+k"},
		{"upper rune", tcell.NewEventKey(tcell.KeyRune, 'S', tcell.ModNone), "shift+s"},
		{"alt arrow", tcell.NewEventKey(tcell.KeyUp, 0, tcell.ModAlt), "alt+up"},
		{"function", tcell.NewEventKey(tcell.KeyF5, 0, tcell.ModNone), "f5"},
		{"escape", tcell.NewEventKey(tcell.KeyEscape, 0, tcell.ModNone), "esc"},
		{"backtab", tcell.NewEventKey(tcell.KeyBacktab, 0, tcell.ModNone), "shift+tab"},
		{"plus", tcell.NewEventKey(tcell.KeyRune, '+', tcell.ModNone), "plus"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev, ok := ConvertKey(tt.ev)
			if !ok {
				t.Fatal("ConvertKey returned false")
			}
			if got := key.Normalize(*ev, key.Options{}); got != tt.want {
				t.Errorf("Normalize = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestConvertKeyUnknown(t *testing.T) {
	if _, ok := ConvertKey(tcell.NewEventKey(tcell.KeyPrint, 0, tcell.ModNone)); ok {
		t.Error("KeyPrint converted")
	}
}

type recorder struct {
	downs []string
	ups   int
	blurs int
}

func (r *recorder) listener() source.Funcs {
	return source.Funcs{
		OnKeyDown: func(ev *key.Event) { r.downs = append(r.downs, key.Normalize(*ev, key.Options{})) },
		OnKeyUp:   func(*key.Event) { r.ups++ },
		OnBlur:    func() { r.blurs++ },
	}
}

func TestHandleEmits(t *testing.T) {
	em := source.NewEmitter()
	rec := &recorder{}
	em.Subscribe(rec.listener())

	term := New(tcell.NewSimulationScreen("UTF-8"), em, WithTarget(key.Target{TagName: "INPUT"}))

	var target key.Target
	em.Subscribe(source.Funcs{OnKeyDown: func(ev *key.Event) { target = ev.Target }})

	term.handle(tcell.NewEventKey(tcell.KeyRune, 'g', tcell.ModNone))
	term.handle(tcell.NewEventKey(tcell.KeyCtrlS, 0, tcell.ModCtrl))
	term.handle(tcell.NewEventFocus(true))
	term.handle(tcell.NewEventFocus(false))
	term.handle(tcell.NewEventKey(tcell.KeyPrint, 0, tcell.ModNone))

	if len(rec.downs) != 2 || rec.downs[0] != "g" || rec.downs[1] != "ctrl+s" {
		t.Errorf("downs = %v", rec.downs)
	}
	if rec.ups != 2 {
		t.Errorf("ups = %d, want 2", rec.ups)
	}
	if rec.blurs != 1 {
		t.Errorf("blurs = %d, want 1", rec.blurs)
	}
	if !target.Editable() {
		t.Errorf("target = %+v, want editable INPUT", target)
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	term := New(tcell.NewSimulationScreen("UTF-8"), source.NewEmitter())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- term.Run(ctx) }()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Run = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
