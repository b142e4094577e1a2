package config

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Default().Validate() = %v", err)
	}
	if cfg.SequenceTimeout() != time.Second {
		t.Errorf("SequenceTimeout = %v, want 1s", cfg.SequenceTimeout())
	}
	if !cfg.Input.StrictShortcuts || !cfg.Input.LoadDefaults {
		t.Error("strict shortcuts and default keymap should be on by default")
	}
}

func TestLoadTOML(t *testing.T) {
	path := writeFile(t, "keyroute.toml", `
[input]
sequenceTimeout = "750ms"
allowInInputs = true

[keymaps]
paths = ["a.toml", "b.yaml"]
watch = true

[log]
level = "debug"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.SequenceTimeout() != 750*time.Millisecond {
		t.Errorf("SequenceTimeout = %v", cfg.SequenceTimeout())
	}
	if !cfg.Input.AllowInInputs {
		t.Error("AllowInInputs not loaded")
	}
	if !cfg.Input.StrictShortcuts {
		t.Error("unset StrictShortcuts should keep its default")
	}
	if len(cfg.Keymaps.Paths) != 2 || !cfg.Keymaps.Watch {
		t.Errorf("Keymaps = %+v", cfg.Keymaps)
	}
	if cfg.LogLevel() != slog.LevelDebug {
		t.Errorf("LogLevel = %v", cfg.LogLevel())
	}
	if cfg.Path != path {
		t.Errorf("Path = %q", cfg.Path)
	}
}

func TestLoadYAML(t *testing.T) {
	path := writeFile(t, "keyroute.yaml", `
input:
  caseSensitive: true
  loadDefaults: false
scripts:
  paths: [init.lua]
  timeout: 500ms
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !cfg.Input.CaseSensitive || cfg.Input.LoadDefaults {
		t.Errorf("Input = %+v", cfg.Input)
	}
	if cfg.ScriptTimeout() != 500*time.Millisecond {
		t.Errorf("ScriptTimeout = %v", cfg.ScriptTimeout())
	}
	if len(cfg.Scripts.Paths) != 1 || cfg.Scripts.Paths[0] != "init.lua" {
		t.Errorf("Scripts.Paths = %v", cfg.Scripts.Paths)
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
		want    error
	}{
		{"unsupported", "keyroute.ini", "x=1", ErrUnsupportedFormat},
		{"invalid timeout", "keyroute.toml", "[input]\nsequenceTimeout = \"soon\"\n", ErrValidationFailed},
		{"negative timeout", "keyroute.yaml", "scripts:\n  timeout: -1s\n", ErrValidationFailed},
		{"bad level", "keyroute.toml", "[log]\nlevel = \"loud\"\n", ErrValidationFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeFile(t, tt.file, tt.content))
			if !errors.Is(err, tt.want) {
				t.Errorf("Load error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	if !errors.Is(err, ErrFileNotFound) {
		t.Errorf("error = %v, want ErrFileNotFound", err)
	}
}

func TestLoadParseError(t *testing.T) {
	path := writeFile(t, "broken.toml", "[input\nsequenceTimeout = 1\n")

	_, err := Load(path)
	var pe *ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("error = %v, want *ParseError", err)
	}
	if pe.Path != path || pe.Line == 0 {
		t.Errorf("ParseError = %+v", pe)
	}
}

func TestValidateCollectsAll(t *testing.T) {
	cfg := Default()
	cfg.Input.SequenceTimeout = "0s"
	cfg.Log.Format = "xml"
	cfg.Keymaps.Paths = []string{" "}

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, path := range []string{"input.sequenceTimeout", "log.format", "keymaps.paths[0]"} {
		found := false
		for _, e := range err.(interface{ Unwrap() []error }).Unwrap() {
			var ve *ValidationError
			if errors.As(e, &ve) && ve.Path == path {
				found = true
			}
		}
		if !found {
			t.Errorf("missing validation error for %s in %v", path, err)
		}
	}
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		"KEYROUTE_LOG_LEVEL":        "warn",
		"KEYROUTE_ALLOW_IN_INPUTS":  "yes",
		"KEYROUTE_STRICT_SHORTCUTS": "off",
		"KEYROUTE_KEYMAP_PATHS":     "a.toml" + string(os.PathListSeparator) + "b.toml",
		"KEYROUTE_SEQUENCE_TIMEOUT": "2s",
	}
	lookup := func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}

	cfg := Default()
	if err := cfg.ApplyEnv(lookup); err != nil {
		t.Fatalf("ApplyEnv: %v", err)
	}
	if cfg.LogLevel() != slog.LevelWarn {
		t.Errorf("LogLevel = %v", cfg.LogLevel())
	}
	if !cfg.Input.AllowInInputs || cfg.Input.StrictShortcuts {
		t.Errorf("Input = %+v", cfg.Input)
	}
	if len(cfg.Keymaps.Paths) != 2 {
		t.Errorf("Keymaps.Paths = %v", cfg.Keymaps.Paths)
	}
	if cfg.SequenceTimeout() != 2*time.Second {
		t.Errorf("SequenceTimeout = %v", cfg.SequenceTimeout())
	}
}

func TestApplyEnvInvalid(t *testing.T) {
	cfg := Default()
	err := cfg.ApplyEnv(func(k string) (string, bool) {
		if k == "KEYROUTE_KEYMAP_WATCH" {
			return "maybe", true
		}
		return "", false
	})
	if !errors.Is(err, ErrValidationFailed) {
		t.Errorf("error = %v, want ErrValidationFailed", err)
	}
}

func TestEngineConfig(t *testing.T) {
	cfg := Default()
	cfg.Input.SequenceTimeout = "300ms"
	cfg.Input.CaseSensitive = true

	ec := cfg.EngineConfig(slog.Default())
	if ec.SequenceTimeout != 300*time.Millisecond {
		t.Errorf("SequenceTimeout = %v", ec.SequenceTimeout)
	}
	if !ec.CaseSensitive || ec.LenientShortcuts {
		t.Errorf("EngineConfig = %+v", ec)
	}
	if ec.Logger == nil {
		t.Error("Logger not set")
	}
}
