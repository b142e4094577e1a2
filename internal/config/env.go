package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "KEYROUTE_"

// LookupFunc reads an environment variable. os.LookupEnv satisfies it.
type LookupFunc func(key string) (string, bool)

type envSetting struct {
	name string
	path string
	set  func(c *Config, value string) error
}

func envSettings() []envSetting {
	str := func(dst func(*Config) *string) func(*Config, string) error {
		return func(c *Config, v string) error {
			*dst(c) = v
			return nil
		}
	}
	flag := func(dst func(*Config) *bool) func(*Config, string) error {
		return func(c *Config, v string) error {
			b, err := parseBool(v)
			if err != nil {
				return err
			}
			*dst(c) = b
			return nil
		}
	}
	list := func(dst func(*Config) *[]string) func(*Config, string) error {
		return func(c *Config, v string) error {
			*dst(c) = filepath.SplitList(v)
			return nil
		}
	}

	return []envSetting{
		{"LOG_LEVEL", "log.level", str(func(c *Config) *string { return &c.Log.Level })},
		{"LOG_FORMAT", "log.format", str(func(c *Config) *string { return &c.Log.Format })},
		{"SEQUENCE_TIMEOUT", "input.sequenceTimeout", str(func(c *Config) *string { return &c.Input.SequenceTimeout })},
		{"ALLOW_IN_INPUTS", "input.allowInInputs", flag(func(c *Config) *bool { return &c.Input.AllowInInputs })},
		{"CASE_SENSITIVE", "input.caseSensitive", flag(func(c *Config) *bool { return &c.Input.CaseSensitive })},
		{"STRICT_SHORTCUTS", "input.strictShortcuts", flag(func(c *Config) *bool { return &c.Input.StrictShortcuts })},
		{"LOAD_DEFAULTS", "input.loadDefaults", flag(func(c *Config) *bool { return &c.Input.LoadDefaults })},
		{"KEYMAP_PATHS", "keymaps.paths", list(func(c *Config) *[]string { return &c.Keymaps.Paths })},
		{"KEYMAP_WATCH", "keymaps.watch", flag(func(c *Config) *bool { return &c.Keymaps.Watch })},
		{"SCRIPT_PATHS", "scripts.paths", list(func(c *Config) *[]string { return &c.Scripts.Paths })},
		{"SCRIPT_TIMEOUT", "scripts.timeout", str(func(c *Config) *string { return &c.Scripts.Timeout })},
	}
}

// ApplyEnv overrides settings from KEYROUTE_* variables, e.g.
// KEYROUTE_LOG_LEVEL=debug or KEYROUTE_KEYMAP_PATHS=a.toml:b.yaml.
// Empty values are treated as set. The result is validated.
func (c *Config) ApplyEnv(lookup LookupFunc) error {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	for _, s := range envSettings() {
		v, ok := lookup(EnvPrefix + s.name)
		if !ok {
			continue
		}
		if err := s.set(c, v); err != nil {
			return &ValidationError{Path: s.path, Message: fmt.Sprintf("%s%s: %v", EnvPrefix, s.name, err), Value: v}
		}
	}
	return c.Validate()
}

func parseBool(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "yes", "on", "1":
		return true, nil
	case "false", "no", "off", "0", "":
		return false, nil
	}
	return false, fmt.Errorf("not a boolean: %q", s)
}
