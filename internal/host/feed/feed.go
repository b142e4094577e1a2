// Package feed drives a key event source from JSON lines, one event per
// line, and writes one JSON line back per result.
//
// Input mirrors the DOM KeyboardEvent fields:
//
//	{"type":"keydown","key":"S","code":"KeyS","ctrlKey":true,"target":{"tagName":"INPUT"}}
//	{"type":"keyup","key":"S"}
//	{"type":"blur"}
//
// Every keydown is answered with a result line describing the dispatch:
//
//	{"type":"result","shortcut":"ctrl+s","fired":true,"binding":"global:ctrl+s","defaultPrevented":true,...}
//
// An "id" field on an input line is copied to its result. An optional
// "epochMs" field (milliseconds since the Unix epoch) stamps the event;
// the DOM "timeStamp" is ignored. Lines that cannot
// be decoded are answered with {"type":"error",...}.
package feed

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/dshills/keyroute/internal/input"
	"github.com/dshills/keyroute/internal/input/key"
	"github.com/dshills/keyroute/internal/input/source"
)

// Message types.
const (
	TypeKeyDown = "keydown"
	TypeKeyUp   = "keyup"
	TypeBlur    = "blur"
	TypeResult  = "result"
	TypeAction  = "action"
	TypeError   = "error"
)

// ErrInvalidMessage is returned for lines that are not a known event.
var ErrInvalidMessage = errors.New("invalid feed message")

// MaxLineSize bounds a single input line.
const MaxLineSize = 64 * 1024

// Message is one decoded input line.
type Message struct {
	Type  string
	ID    string
	Event *key.Event
}

// Decode parses one input line.
func Decode(line []byte) (Message, error) {
	if !gjson.ValidBytes(line) {
		return Message{}, fmt.Errorf("%w: not JSON", ErrInvalidMessage)
	}
	root := gjson.ParseBytes(line)
	if !root.IsObject() {
		return Message{}, fmt.Errorf("%w: not an object", ErrInvalidMessage)
	}

	msg := Message{
		Type: root.Get("type").String(),
		ID:   root.Get("id").String(),
	}
	switch msg.Type {
	case TypeBlur:
		return msg, nil
	case TypeKeyDown, TypeKeyUp:
	default:
		return Message{}, fmt.Errorf("%w: unknown type %q", ErrInvalidMessage, msg.Type)
	}

	name := root.Get("key").String()
	if name == "" {
		return Message{}, fmt.Errorf("%w: %s without key", ErrInvalidMessage, msg.Type)
	}

	ev := key.NewEvent(name, key.ModifiersFromFlags(
		root.Get("ctrlKey").Bool(),
		root.Get("altKey").Bool(),
		root.Get("shiftKey").Bool(),
		root.Get("metaKey").Bool(),
	))
	ev.Code = root.Get("code").String()
	ev.Repeat = root.Get("repeat").Bool()
	ev.Target = key.Target{
		TagName:         root.Get("target.tagName").String(),
		ContentEditable: root.Get("target.isContentEditable").Bool() || root.Get("target.contentEditable").Bool(),
	}
	// timeStamp is relative to the page's time origin, so only an
	// explicit wall-clock epochMs (Date.now()) is used. Without it the
	// manager's clock stamps the event.
	if ts := root.Get("epochMs"); ts.Exists() && ts.Int() > 0 {
		ev.Timestamp = time.UnixMilli(ts.Int())
	}
	msg.Event = ev
	return msg, nil
}

// Option configures a Feed.
type Option func(*Feed)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(f *Feed) {
		if l != nil {
			f.log = l
		}
	}
}

// WithKeyOptions sets the options used to name keys that were never
// dispatched, such as keydowns a hook consumed.
func WithKeyOptions(opts key.Options) Option {
	return func(f *Feed) {
		f.keyOpts = opts
	}
}

// Feed reads events from JSON lines and writes results as JSON lines.
// It is also a hook: attach it to the manager so results carry the
// dispatch outcome.
type Feed struct {
	input.BaseHook

	emitter *source.Emitter
	log     *slog.Logger
	keyOpts key.Options

	outMu sync.Mutex
	out   io.Writer

	// results holds dispatches for keydowns this feed emitted and has not
	// answered yet. Keydowns from other sources are not recorded.
	mu      sync.Mutex
	results map[*key.Event]*input.Dispatch
}

// New creates a feed emitting into em and writing results to out.
func New(em *source.Emitter, out io.Writer, opts ...Option) *Feed {
	f := &Feed{
		emitter: em,
		out:     out,
		log:     slog.Default(),
		results: make(map[*key.Event]*input.Dispatch),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Attach registers the feed as a hook on m. It returns a function that
// detaches it.
func (f *Feed) Attach(m *input.Manager) func() {
	id := m.Hooks().RegisterWithOptions(f, "feed", input.HookPriorityLowest)
	return func() { m.Hooks().Unregister(id) }
}

// PostKeyDown records the dispatch for the result line.
func (f *Feed) PostKeyDown(ev *key.Event, d input.Dispatch) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.results[ev]; ok {
		f.results[ev] = &d
	}
}

func (f *Feed) expect(ev *key.Event) {
	f.mu.Lock()
	f.results[ev] = nil
	f.mu.Unlock()
}

func (f *Feed) takeResult(ev *key.Event) (input.Dispatch, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	d := f.results[ev]
	delete(f.results, ev)
	if d == nil {
		return input.Dispatch{}, false
	}
	return *d, true
}

// Run handles lines from r until EOF or ctx is cancelled. Cancellation is
// noticed between lines.
func (f *Feed) Run(ctx context.Context, r io.Reader) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 4096), MaxLineSize)

	line := 0
	for sc.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		line++
		raw := sc.Bytes()
		if len(raw) == 0 {
			continue
		}
		if err := f.HandleLine(raw); err != nil {
			f.log.Warn("[keyroute] feed line rejected", "line", line, "error", err)
			f.writeError(line, err)
		}
	}
	return sc.Err()
}

// HandleLine decodes one line and delivers it to the emitter.
func (f *Feed) HandleLine(raw []byte) error {
	msg, err := Decode(raw)
	if err != nil {
		return err
	}

	switch msg.Type {
	case TypeKeyDown:
		f.expect(msg.Event)
		f.emitter.KeyDown(msg.Event)
		f.writeResult(msg)
	case TypeKeyUp:
		f.emitter.KeyUp(msg.Event)
	case TypeBlur:
		f.emitter.Blur()
	}
	return nil
}

func (f *Feed) writeResult(msg Message) {
	ev := msg.Event
	d, ok := f.takeResult(ev)
	if !ok {
		d.Shortcut = key.Normalize(*ev, f.keyOpts)
	}

	out := []byte(`{}`)
	out, _ = sjson.SetBytes(out, "type", TypeResult)
	if msg.ID != "" {
		out, _ = sjson.SetBytes(out, "id", msg.ID)
	}
	out, _ = sjson.SetBytes(out, "shortcut", d.Shortcut)
	out, _ = sjson.SetBytes(out, "fired", d.Fired())
	if d.Binding != "" {
		out, _ = sjson.SetBytes(out, "binding", d.Binding)
	}
	if d.Sequence != "" {
		out, _ = sjson.SetBytes(out, "sequence", d.Sequence)
	}
	out, _ = sjson.SetBytes(out, "pending", d.Pending)
	out, _ = sjson.SetBytes(out, "skippedInInput", d.SkippedInInput)
	out, _ = sjson.SetBytes(out, "defaultPrevented", ev.DefaultPrevented())
	out, _ = sjson.SetBytes(out, "propagationStopped", ev.PropagationStopped())
	if len(d.Contexts) > 0 {
		out, _ = sjson.SetBytes(out, "contexts", d.Contexts)
	}
	f.writeLine(out)
}

// ReportAction writes an action line, used by action handlers to tell the
// host what ran.
func (f *Feed) ReportAction(action string, ev *key.Event) {
	out := []byte(`{}`)
	out, _ = sjson.SetBytes(out, "type", TypeAction)
	out, _ = sjson.SetBytes(out, "action", action)
	if ev != nil {
		out, _ = sjson.SetBytes(out, "key", ev.Key)
		out, _ = sjson.SetBytes(out, "shortcut", key.Normalize(*ev, f.keyOpts))
	}
	f.writeLine(out)
}

func (f *Feed) writeError(line int, err error) {
	out := []byte(`{}`)
	out, _ = sjson.SetBytes(out, "type", TypeError)
	out, _ = sjson.SetBytes(out, "line", line)
	out, _ = sjson.SetBytes(out, "error", err.Error())
	f.writeLine(out)
}

func (f *Feed) writeLine(b []byte) {
	f.outMu.Lock()
	defer f.outMu.Unlock()

	if _, err := f.out.Write(append(b, '\n')); err != nil {
		f.log.Error("[keyroute] feed write failed", "error", err)
	}
}
