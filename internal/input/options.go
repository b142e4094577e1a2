package input

import "time"

// Option configures a Register or RegisterSequence call.
type Option func(*regOptions)

type regOptions struct {
	context        string
	priority       int
	enabled        bool
	preventDefault bool
	allowInInputs  bool
	description    string
	timeout        time.Duration
	action         string
	source         string
}

func newRegOptions(opts []Option) regOptions {
	o := regOptions{
		enabled:        true,
		preventDefault: true,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// InContext registers into the named context instead of global.
func InContext(name string) Option {
	return func(o *regOptions) {
		o.context = name
	}
}

// WithPriority records a display priority on the binding.
func WithPriority(p int) Option {
	return func(o *regOptions) {
		o.priority = p
	}
}

// Disabled registers the entry in the disabled state.
func Disabled() Option {
	return func(o *regOptions) {
		o.enabled = false
	}
}

// WithPreventDefault controls whether a firing binding cancels the host
// event. Default: true.
func WithPreventDefault(prevent bool) Option {
	return func(o *regOptions) {
		o.preventDefault = prevent
	}
}

// AllowInInputs lets the binding fire while an editable element has focus.
func AllowInInputs() Option {
	return func(o *regOptions) {
		o.allowInInputs = true
	}
}

// WithDescription sets the description shown in listings.
func WithDescription(desc string) Option {
	return func(o *regOptions) {
		o.description = desc
	}
}

// WithTimeout sets a sequence's inter-key timeout.
func WithTimeout(d time.Duration) Option {
	return func(o *regOptions) {
		o.timeout = d
	}
}

// WithAction records the action name the entry was bound from.
func WithAction(name string) Option {
	return func(o *regOptions) {
		o.action = name
	}
}

// WithSource tags the entry with where it came from (a keymap file, a
// script). Entries sharing a source can be replaced together.
func WithSource(src string) Option {
	return func(o *regOptions) {
		o.source = src
	}
}
