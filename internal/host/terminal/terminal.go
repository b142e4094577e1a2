// Package terminal feeds keystrokes from a tcell screen into a key event
// source.
//
// Terminals report presses only, so every keydown is followed by a keyup
// for the same key. Losing focus is reported as a blur when the terminal
// supports focus reporting.
package terminal

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"unicode"

	"github.com/gdamore/tcell/v2"

	"github.com/dshills/keyroute/internal/input/key"
	"github.com/dshills/keyroute/internal/input/source"
)

// ErrRunning is returned when Run is called twice.
var ErrRunning = errors.New("terminal host already running")

// Option configures a Terminal.
type Option func(*Terminal)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(t *Terminal) {
		if l != nil {
			t.log = l
		}
	}
}

// WithTarget sets the target reported on every event. The default is an
// empty target, which is never editable.
func WithTarget(target key.Target) Option {
	return func(t *Terminal) {
		t.target = target
	}
}

// Terminal reads events from a tcell screen and emits them.
type Terminal struct {
	screen  tcell.Screen
	emitter *source.Emitter
	log     *slog.Logger
	target  key.Target

	mu      sync.Mutex
	running bool
}

// NewScreen creates the screen for the controlling terminal.
func NewScreen() (tcell.Screen, error) {
	return tcell.NewScreen()
}

// New creates a terminal host. The screen must not be initialized yet.
func New(screen tcell.Screen, em *source.Emitter, opts ...Option) *Terminal {
	t := &Terminal{
		screen:  screen,
		emitter: em,
		log:     slog.Default(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Run initializes the screen and emits key events until ctx is cancelled.
// The screen is finalized before Run returns.
func (t *Terminal) Run(ctx context.Context) error {
	t.mu.Lock()
	if t.running {
		t.mu.Unlock()
		return ErrRunning
	}
	t.running = true
	t.mu.Unlock()

	defer func() {
		t.mu.Lock()
		t.running = false
		t.mu.Unlock()
	}()

	if err := t.screen.Init(); err != nil {
		return err
	}
	t.screen.EnableFocus()
	defer t.screen.Fini()

	stop := context.AfterFunc(ctx, func() {
		// best-effort; wakes PollEvent
		_ = t.screen.PostEvent(tcell.NewEventInterrupt(nil))
	})
	defer stop()

	t.log.Debug("[keyroute] terminal host started")
	for {
		ev := t.screen.PollEvent()
		if ev == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		t.handle(ev)
	}
}

func (t *Terminal) handle(ev tcell.Event) {
	switch e := ev.(type) {
	case *tcell.EventKey:
		kev, ok := ConvertKey(e)
		if !ok {
			t.log.Debug("[keyroute] terminal key ignored", "name", e.Name())
			return
		}
		kev.Target = t.target
		t.emitter.KeyDown(kev)
		t.emitter.KeyUp(kev)

	case *tcell.EventFocus:
		if !e.Focused {
			t.emitter.Blur()
		}

	case *tcell.EventResize:
		t.screen.Sync()
	}
}

// ConvertKey converts a tcell key event into a key event. Keys with no
// shortcut meaning return false.
func ConvertKey(e *tcell.EventKey) (*key.Event, bool) {
	mods := convertMod(e.Modifiers())

	var name string
	switch k := e.Key(); {
	case k == tcell.KeyRune:
		r := e.Rune()
		if unicode.IsUpper(r) {
			mods = mods.With(key.ModShift)
		}
		name = string(r)

	case k >= tcell.KeyCtrlA && k <= tcell.KeyCtrlZ:
		name = string(rune('a' + (k - tcell.KeyCtrlA)))
		mods = mods.With(key.ModCtrl)

	case k == tcell.KeyCtrlSpace:
		name = " "
		mods = mods.With(key.ModCtrl)

	case k == tcell.KeyBacktab:
		name = "Tab"
		mods = mods.With(key.ModShift)

	default:
		n, ok := namedKeys[k]
		if !ok {
			return nil, false
		}
		name = n
	}

	ev := key.NewEvent(name, mods)
	ev.Timestamp = e.When()
	return ev, true
}

// namedKeys maps tcell keys to the names browsers report for them.
var namedKeys = map[tcell.Key]string{
	tcell.KeyEscape:    "Escape",
	tcell.KeyEnter:     "Enter",
	tcell.KeyTab:       "Tab",
	tcell.KeyBackspace: "Backspace",
	tcell.KeyDelete:    "Delete",
	tcell.KeyInsert:    "Insert",
	tcell.KeyHome:      "Home",
	tcell.KeyEnd:       "End",
	tcell.KeyPgUp:      "PageUp",
	tcell.KeyPgDn:      "PageDown",
	tcell.KeyUp:        "ArrowUp",
	tcell.KeyDown:      "ArrowDown",
	tcell.KeyLeft:      "ArrowLeft",
	tcell.KeyRight:     "ArrowRight",
	tcell.KeyF1:        "F1",
	tcell.KeyF2:        "F2",
	tcell.KeyF3:        "F3",
	tcell.KeyF4:        "F4",
	tcell.KeyF5:        "F5",
	tcell.KeyF6:        "F6",
	tcell.KeyF7:        "F7",
	tcell.KeyF8:        "F8",
	tcell.KeyF9:        "F9",
	tcell.KeyF10:       "F10",
	tcell.KeyF11:       "F11",
	tcell.KeyF12:       "F12",
}

func convertMod(m tcell.ModMask) key.Modifier {
	return key.ModifiersFromFlags(
		m&tcell.ModCtrl != 0,
		m&tcell.ModAlt != 0,
		m&tcell.ModShift != 0,
		m&tcell.ModMeta != 0,
	)
}
