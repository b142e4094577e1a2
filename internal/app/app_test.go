package app

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/tidwall/gjson"

	"github.com/dshills/keyroute/internal/config/watcher"
	"github.com/dshills/keyroute/internal/input"
	"github.com/dshills/keyroute/internal/input/keymap"
)

func env(vars map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := vars[k]
		return v, ok
	}
}

func newTestApp(t *testing.T, opts Options) (*Application, *bytes.Buffer) {
	t.Helper()
	out := &bytes.Buffer{}
	if opts.Stdout == nil {
		opts.Stdout = out
	}
	if opts.Stderr == nil {
		opts.Stderr = &bytes.Buffer{}
	}
	if opts.Lookup == nil {
		opts.Lookup = env(nil)
	}
	a, err := New(opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { a.Close() })
	return a, out
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func findShortcut(m *input.Manager, k string) (input.ShortcutInfo, bool) {
	for _, s := range m.GetShortcuts("") {
		if s.Key == k {
			return s, true
		}
	}
	return input.ShortcutInfo{}, false
}

func TestRunStdin(t *testing.T) {
	in := strings.Join([]string{
		`{"type":"keydown","id":"1","key":"P","ctrlKey":true,"shiftKey":true}`,
		`{"type":"keydown","id":"2","key":"Escape"}`,
		`{"type":"keydown","id":"3","key":"q","ctrlKey":true}`,
		`{"type":"keydown","id":"4","key":"j"}`,
	}, "\n") + "\n"

	a, out := newTestApp(t, Options{Stdin: strings.NewReader(in)})
	if err := a.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	var actions, ids []string
	for _, l := range strings.Split(strings.TrimSpace(out.String()), "\n") {
		r := gjson.Parse(l)
		switch r.Get("type").String() {
		case "action":
			actions = append(actions, r.Get("action").String())
		case "result":
			ids = append(ids, r.Get("id").String())
		}
	}

	want := []string{"playlist.open", "dialog.close", ActionQuit}
	if strings.Join(actions, ",") != strings.Join(want, ",") {
		t.Errorf("actions = %v, want %v", actions, want)
	}
	if strings.Join(ids, ",") != "1,2,3" {
		t.Errorf("result ids = %v, want 1,2,3 (quit stops the feed)", ids)
	}
	if a.IsRunning() {
		t.Error("IsRunning after Run returned")
	}
}

func TestRunAfterClose(t *testing.T) {
	a, _ := newTestApp(t, Options{Stdin: strings.NewReader("")})
	if err := a.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := a.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
	if err := a.Run(context.Background()); !errors.Is(err, ErrClosed) {
		t.Errorf("Run = %v, want ErrClosed", err)
	}
	if !a.Manager().IsDestroyed() {
		t.Error("manager should be destroyed")
	}
}

func TestRunTerminalCancelled(t *testing.T) {
	screen := tcell.NewSimulationScreen("UTF-8")
	a, _ := newTestApp(t, Options{Host: HostTTY, Screen: screen})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run = %v, want nil", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestUnknownHost(t *testing.T) {
	_, err := New(Options{Host: "x11", Lookup: env(nil), Stderr: &bytes.Buffer{}})
	if !errors.Is(err, ErrUnknownHost) {
		t.Errorf("New = %v, want ErrUnknownHost", err)
	}
}

func TestBadConfig(t *testing.T) {
	_, err := New(Options{
		ConfigPath: filepath.Join(t.TempDir(), "missing.toml"),
		Lookup:     env(nil),
		Stderr:     &bytes.Buffer{},
	})
	var ce *ComponentError
	if !errors.As(err, &ce) || ce.Component != "config" {
		t.Errorf("New = %v, want config ComponentError", err)
	}

	_, err = New(Options{
		Lookup: env(map[string]string{"KEYROUTE_LOG_LEVEL": "loud"}),
		Stderr: &bytes.Buffer{},
	})
	if err == nil {
		t.Error("New with invalid KEYROUTE_LOG_LEVEL should fail")
	}
}

func TestLoadDefaultsDisabled(t *testing.T) {
	a, _ := newTestApp(t, Options{
		Stdin:  strings.NewReader(""),
		Lookup: env(map[string]string{"KEYROUTE_LOAD_DEFAULTS": "false"}),
	})
	got := a.Manager().GetShortcuts("")
	if len(got) != 1 || got[0].Action != ActionQuit {
		t.Errorf("shortcuts = %+v, want only the quit binding", got)
	}
}

func TestKeymapFileReload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "keys.toml")
	writeFile(t, path, "[[bindings]]\nkeys = \"Alt+X\"\naction = \"help.show\"\n")

	logs := &bytes.Buffer{}
	a, _ := newTestApp(t, Options{
		KeymapPaths: []string{path},
		Stderr:      logs,
		Lookup:      env(map[string]string{"KEYROUTE_LOAD_DEFAULTS": "false"}),
	})
	m := a.Manager()

	s, ok := findShortcut(m, "global:alt+x")
	if !ok {
		t.Fatal("alt+x not bound from keymap file")
	}
	if s.Source != path || s.Action != "help.show" {
		t.Errorf("binding = %+v", s)
	}

	writeFile(t, path, "[[bindings]]\nkeys = \"Alt+Y\"\naction = \"help.show\"\n")
	a.handleFileChange(watcher.Event{Path: path, Op: watcher.OpWrite})
	if _, ok := findShortcut(m, "global:alt+x"); ok {
		t.Error("alt+x should be replaced after reload")
	}
	if _, ok := findShortcut(m, "global:alt+y"); !ok {
		t.Error("alt+y should be bound after reload")
	}

	writeFile(t, path, "[[bindings]\nkeys = ")
	a.handleFileChange(watcher.Event{Path: path, Op: watcher.OpWrite})
	if _, ok := findShortcut(m, "global:alt+y"); !ok {
		t.Error("a broken file should keep the previous bindings")
	}
	if !strings.Contains(logs.String(), "keymap reload failed") {
		t.Errorf("reload failure not logged: %s", logs.String())
	}

	a.handleFileChange(watcher.Event{Path: path, Op: watcher.OpRemove})
	if _, ok := findShortcut(m, "global:alt+y"); ok {
		t.Error("removing the file should drop its bindings")
	}
}

func TestKeymapDirectory(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.toml"), "[[bindings]]\nkeys = \"Alt+A\"\naction = \"help.show\"\n")
	writeFile(t, filepath.Join(dir, "b.yaml"), "bindings:\n  - keys: Alt+B\n    action: search.focus\n")
	writeFile(t, filepath.Join(dir, "notes.txt"), "ignored")

	a, _ := newTestApp(t, Options{
		KeymapPaths: []string{dir},
		Lookup:      env(map[string]string{"KEYROUTE_LOAD_DEFAULTS": "false"}),
	})
	for _, k := range []string{"global:alt+a", "global:alt+b"} {
		if _, ok := findShortcut(a.Manager(), k); !ok {
			t.Errorf("%s not bound from directory", k)
		}
	}
}

func TestUnknownActionSkipped(t *testing.T) {
	path := filepath.Join(t.TempDir(), "keys.toml")
	writeFile(t, path, "[[bindings]]\nkeys = \"Alt+Z\"\naction = \"no.such.action\"\n")

	a, _ := newTestApp(t, Options{
		KeymapPaths: []string{path},
		Lookup:      env(map[string]string{"KEYROUTE_LOAD_DEFAULTS": "false"}),
	})
	if _, ok := findShortcut(a.Manager(), "global:alt+z"); ok {
		t.Error("entry with unknown action should be skipped")
	}
}

func TestScriptLoadAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "init.lua")
	writeFile(t, path, `keyroute.register("Ctrl+J", function(ev) end, {description = "Jump"})`)

	a, _ := newTestApp(t, Options{
		ScriptPaths: []string{path},
		Lookup:      env(map[string]string{"KEYROUTE_LOAD_DEFAULTS": "false"}),
	})
	m := a.Manager()

	s, ok := findShortcut(m, "global:ctrl+j")
	if !ok {
		t.Fatal("script binding missing")
	}
	if s.Description != "Jump" || s.Source != "script:"+path {
		t.Errorf("binding = %+v", s)
	}

	writeFile(t, path, `keyroute.register("Ctrl+L", function(ev) end)`)
	a.handleFileChange(watcher.Event{Path: path, Op: watcher.OpWrite})
	if _, ok := findShortcut(m, "global:ctrl+j"); ok {
		t.Error("old script binding should be removed on reload")
	}
	if _, ok := findShortcut(m, "global:ctrl+l"); !ok {
		t.Error("new script binding missing")
	}

	a.handleFileChange(watcher.Event{Path: path, Op: watcher.OpRemove})
	if _, ok := findShortcut(m, "global:ctrl+l"); ok {
		t.Error("removing the script should drop its bindings")
	}
}

func TestBrokenScriptSkipped(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.lua")
	writeFile(t, path, `this is not lua`)

	logs := &bytes.Buffer{}
	a, _ := newTestApp(t, Options{ScriptPaths: []string{path}, Stderr: logs})
	if a.Manager() == nil {
		t.Fatal("manager missing")
	}
	if !strings.Contains(logs.String(), "script not loaded") {
		t.Errorf("script failure not logged: %s", logs.String())
	}
}

func TestShortcutsReset(t *testing.T) {
	a, _ := newTestApp(t, Options{Stdin: strings.NewReader("")})
	m := a.Manager()

	if !m.Unregister("Ctrl+Shift+S", "") {
		t.Fatal("Unregister default binding failed")
	}
	if err := a.actions[keymap.ActionShortcutsReset](nil); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if _, ok := findShortcut(m, "global:ctrl+shift+s"); !ok {
		t.Error("reset should restore the default binding")
	}
}

func TestWriteShortcuts(t *testing.T) {
	a, _ := newTestApp(t, Options{Stdin: strings.NewReader("")})

	var buf bytes.Buffer
	if err := a.WriteShortcuts(&buf); err != nil {
		t.Fatalf("WriteShortcuts: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"CONTEXT", "ctrl+q", ActionQuit, "g g", "dialog"} {
		if !strings.Contains(out, want) {
			t.Errorf("listing missing %q:\n%s", want, out)
		}
	}
}
