// Package sequence detects multi-key sequences such as "g g" or
// "ctrl+k ctrl+c".
//
// A Detector buffers canonical tokens while they form a prefix of some
// registered sequence. Each accepted token re-arms a timer; if the timer
// fires first the buffer is discarded. The detector never calls handlers.
// It returns the matched sequence and the caller decides what to run.
package sequence

import (
	"sync"
	"time"

	"github.com/dshills/keyroute/internal/input/keymap"
)

// State is the detector state.
type State uint8

const (
	// StateIdle means the buffer is empty.
	StateIdle State = iota

	// StatePending means the buffer is a strict prefix of a sequence.
	StatePending
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePending:
		return "pending"
	default:
		return "unknown"
	}
}

// Matcher matches buffered tokens against registered sequences.
type Matcher func(tokens []string) keymap.SequenceMatch

// Result describes what happened to a fed token.
type Result struct {
	// Match is the completed sequence, or nil.
	Match *keymap.Sequence

	// Pending is true when the detector is waiting for more keys.
	Pending bool

	// Dropped is true when the token matched nothing and the buffer was reset.
	Dropped bool
}

// Option configures a Detector.
type Option func(*Detector)

// WithClock sets the clock used for timeouts.
func WithClock(c Clock) Option {
	return func(d *Detector) {
		d.clock = c
	}
}

// WithTimeoutCallback sets a function called with the discarded buffer
// whenever a pending sequence times out.
func WithTimeoutCallback(cb func(buffer []string)) Option {
	return func(d *Detector) {
		d.onTimeout = cb
	}
}

// Detector is the sequence state machine.
type Detector struct {
	mu sync.Mutex

	clock  Clock
	buffer []string
	state  State
	timer  Timer

	// gen invalidates timer callbacks that lost a race with Reset or re-arm.
	gen uint64

	stopped   bool
	onTimeout func(buffer []string)
}

// New creates an idle detector.
func New(opts ...Option) *Detector {
	d := &Detector{
		clock: RealClock(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Feed appends a token and advances the state machine.
func (d *Detector) Feed(token string, match Matcher) Result {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped || token == "" {
		return Result{}
	}

	d.buffer = append(d.buffer, token)
	m := match(append([]string(nil), d.buffer...))

	switch {
	case m.Exact != nil:
		d.resetLocked()
		return Result{Match: m.Exact}

	case m.Prefix:
		d.state = StatePending
		timeout := m.Timeout
		if timeout <= 0 {
			timeout = keymap.DefaultSequenceTimeout
		}
		d.armLocked(timeout)
		return Result{Pending: true}

	default:
		d.resetLocked()
		return Result{Dropped: true}
	}
}

func (d *Detector) armLocked(timeout time.Duration) {
	if d.timer != nil {
		d.timer.Stop()
	}
	d.gen++
	gen := d.gen
	d.timer = d.clock.AfterFunc(timeout, func() {
		d.expire(gen)
	})
}

func (d *Detector) expire(gen uint64) {
	d.mu.Lock()
	if gen != d.gen || d.state != StatePending {
		d.mu.Unlock()
		return
	}
	discarded := d.buffer
	d.timer = nil
	d.resetLocked()
	cb := d.onTimeout
	d.mu.Unlock()

	if cb != nil {
		cb(discarded)
	}
}

// resetLocked clears the buffer and cancels the timer.
func (d *Detector) resetLocked() {
	d.buffer = nil
	d.state = StateIdle
	d.gen++
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}

// Reset forces the detector idle.
func (d *Detector) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.resetLocked()
}

// Stop resets the detector and ignores all further input.
func (d *Detector) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.resetLocked()
	d.stopped = true
}

// State returns the current state.
func (d *Detector) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// Pending returns a copy of the buffered tokens.
func (d *Detector) Pending() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.buffer...)
}

// Len returns the number of buffered tokens.
func (d *Detector) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.buffer)
}

// Now returns the detector clock's time.
func (d *Detector) Now() time.Time {
	return d.clock.Now()
}
