// Package config loads keyroute settings from TOML or YAML files and the
// environment.
//
// A file only needs the settings it changes; everything else keeps the
// value from Default:
//
//	[input]
//	sequenceTimeout = "750ms"
//	allowInInputs = false
//
//	[keymaps]
//	paths = ["~/.config/keyroute/keymaps"]
//	watch = true
//
//	[log]
//	level = "debug"
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/dshills/keyroute/internal/input"
)

// Config holds every keyroute setting.
type Config struct {
	Input   InputConfig   `toml:"input" yaml:"input"`
	Keymaps KeymapsConfig `toml:"keymaps" yaml:"keymaps"`
	Scripts ScriptsConfig `toml:"scripts" yaml:"scripts"`
	Log     LogConfig     `toml:"log" yaml:"log"`

	// Path is the file the config was loaded from, if any.
	Path string `toml:"-" yaml:"-"`
}

// InputConfig configures the shortcut engine.
type InputConfig struct {
	// SequenceTimeout is the default gap allowed between sequence keys.
	SequenceTimeout string `toml:"sequenceTimeout" yaml:"sequenceTimeout"`

	// AllowInInputs lets every shortcut fire in editable elements.
	AllowInInputs bool `toml:"allowInInputs" yaml:"allowInInputs"`

	// CaseSensitive keeps the case of single character keys.
	CaseSensitive bool `toml:"caseSensitive" yaml:"caseSensitive"`

	// StrictShortcuts rejects malformed shortcut text.
	StrictShortcuts bool `toml:"strictShortcuts" yaml:"strictShortcuts"`

	// LoadDefaults binds the built-in keymap at startup.
	LoadDefaults bool `toml:"loadDefaults" yaml:"loadDefaults"`
}

// KeymapsConfig configures keymap files.
type KeymapsConfig struct {
	// Paths are keymap files or directories of keymap files.
	Paths []string `toml:"paths" yaml:"paths"`

	// Watch reloads keymap files when they change.
	Watch bool `toml:"watch" yaml:"watch"`

	// Debounce coalesces bursts of file events.
	Debounce string `toml:"debounce" yaml:"debounce"`
}

// ScriptsConfig configures Lua scripts.
type ScriptsConfig struct {
	// Paths are Lua files run at startup.
	Paths []string `toml:"paths" yaml:"paths"`

	// Timeout bounds each script run and each script handler call.
	Timeout string `toml:"timeout" yaml:"timeout"`
}

// LogConfig configures logging.
type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `toml:"level" yaml:"level"`

	// Format is text or json.
	Format string `toml:"format" yaml:"format"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Input: InputConfig{
			SequenceTimeout: "1000ms",
			StrictShortcuts: true,
			LoadDefaults:    true,
		},
		Keymaps: KeymapsConfig{
			Debounce: "100ms",
		},
		Scripts: ScriptsConfig{
			Timeout: "2s",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads path over the defaults. The format follows the extension:
// .toml, .yaml or .yml.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrFileNotFound, path)
		}
		return nil, fmt.Errorf("reading config file %s: %w", path, err)
	}

	cfg := Default()
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		err = toml.Unmarshal(data, cfg)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, cfg)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}
	if err != nil {
		return nil, newParseError(path, err)
	}

	cfg.Path = path
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

func newParseError(path string, err error) *ParseError {
	pe := &ParseError{Path: path, Message: err.Error(), Err: err}

	var derr *toml.DecodeError
	if errors.As(err, &derr) {
		pe.Line, pe.Column = derr.Position()
	}
	return pe
}

// Validate checks every setting and returns all problems joined.
func (c *Config) Validate() error {
	var errs []error

	checkDuration := func(path, value string) {
		d, err := time.ParseDuration(value)
		if err != nil {
			errs = append(errs, &ValidationError{Path: path, Message: "invalid duration", Value: value})
			return
		}
		if d <= 0 {
			errs = append(errs, &ValidationError{Path: path, Message: "must be positive", Value: value})
		}
	}
	checkDuration("input.sequenceTimeout", c.Input.SequenceTimeout)
	checkDuration("scripts.timeout", c.Scripts.Timeout)
	if c.Keymaps.Debounce != "" {
		if d, err := time.ParseDuration(c.Keymaps.Debounce); err != nil || d < 0 {
			errs = append(errs, &ValidationError{Path: "keymaps.debounce", Message: "invalid duration", Value: c.Keymaps.Debounce})
		}
	}

	if _, err := ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, &ValidationError{Path: "log.level", Message: "must be debug, info, warn or error", Value: c.Log.Level})
	}
	switch c.Log.Format {
	case "", "text", "json":
	default:
		errs = append(errs, &ValidationError{Path: "log.format", Message: "must be text or json", Value: c.Log.Format})
	}

	for i, p := range c.Keymaps.Paths {
		if strings.TrimSpace(p) == "" {
			errs = append(errs, &ValidationError{Path: fmt.Sprintf("keymaps.paths[%d]", i), Message: "empty path", Value: p})
		}
	}
	for i, p := range c.Scripts.Paths {
		if strings.TrimSpace(p) == "" {
			errs = append(errs, &ValidationError{Path: fmt.Sprintf("scripts.paths[%d]", i), Message: "empty path", Value: p})
		}
	}

	return errors.Join(errs...)
}

// ParseLevel maps a level name to a slog.Level.
func ParseLevel(name string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(name)); err != nil {
		return slog.LevelInfo, err
	}
	return level, nil
}

// SequenceTimeout returns the parsed sequence timeout.
func (c *Config) SequenceTimeout() time.Duration {
	return parseDurationOr(c.Input.SequenceTimeout, time.Second)
}

// ScriptTimeout returns the parsed script timeout.
func (c *Config) ScriptTimeout() time.Duration {
	return parseDurationOr(c.Scripts.Timeout, 2*time.Second)
}

// KeymapDebounce returns the parsed keymap reload debounce.
func (c *Config) KeymapDebounce() time.Duration {
	if c.Keymaps.Debounce == "" {
		return 0
	}
	return parseDurationOr(c.Keymaps.Debounce, 100*time.Millisecond)
}

// LogLevel returns the parsed log level.
func (c *Config) LogLevel() slog.Level {
	level, _ := ParseLevel(c.Log.Level)
	return level
}

func parseDurationOr(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

// EngineConfig maps the input section onto the engine's configuration.
func (c *Config) EngineConfig(logger *slog.Logger) input.Config {
	cfg := input.DefaultConfig()
	cfg.SequenceTimeout = c.SequenceTimeout()
	cfg.AllowInInputs = c.Input.AllowInInputs
	cfg.CaseSensitive = c.Input.CaseSensitive
	cfg.LenientShortcuts = !c.Input.StrictShortcuts
	cfg.Logger = logger
	return cfg
}
