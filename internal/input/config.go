package input

import (
	"log/slog"
	"time"

	"github.com/dshills/keyroute/internal/input/key"
	"github.com/dshills/keyroute/internal/input/keymap"
	"github.com/dshills/keyroute/internal/input/sequence"
)

// Config configures a Manager.
type Config struct {
	// SequenceTimeout is the default gap allowed between sequence keys.
	// Default: 1000ms
	SequenceTimeout time.Duration

	// AllowInInputs lets every binding fire while an editable element has
	// focus. When false only bindings registered with AllowInInputs do.
	AllowInInputs bool

	// CaseSensitive keeps the case of single character keys.
	CaseSensitive bool

	// LenientShortcuts accepts malformed shortcut text at registration:
	// unknown tokens become the literal key. The zero value rejects it.
	LenientShortcuts bool

	// Logger receives diagnostics. Default: slog.Default().
	Logger *slog.Logger

	// Clock drives sequence timeouts and timestamps. Default: real time.
	Clock sequence.Clock
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() Config {
	return Config{
		SequenceTimeout: keymap.DefaultSequenceTimeout,
	}
}

func (c Config) withDefaults() Config {
	if c.SequenceTimeout <= 0 {
		c.SequenceTimeout = keymap.DefaultSequenceTimeout
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	if c.Clock == nil {
		c.Clock = sequence.RealClock()
	}
	return c
}

// KeyOptions returns the canonicalization options the config implies.
func (c Config) KeyOptions() key.Options {
	return key.Options{
		CaseSensitive: c.CaseSensitive,
		Lenient:       c.LenientShortcuts,
	}
}
