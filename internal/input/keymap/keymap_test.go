package keymap

import (
	"errors"
	"testing"
	"time"

	"github.com/dshills/keyroute/internal/input/key"
)

func TestNewKeymap(t *testing.T) {
	km := NewKeymap("test").
		WithSource("test-source").
		DeclareContext(ContextDecl{Name: "video", Priority: 1}).
		Add("j", "scroll.down").
		AddEntry(Entry{Keys: "g g", Action: "scroll.top", Context: "video"})

	if km.Name != "test" {
		t.Errorf("Name = %q, want %q", km.Name, "test")
	}
	if km.Source != "test-source" {
		t.Errorf("Source = %q, want %q", km.Source, "test-source")
	}
	if len(km.Contexts) != 1 {
		t.Errorf("len(Contexts) = %d, want 1", len(km.Contexts))
	}
	if len(km.Entries) != 2 {
		t.Errorf("len(Entries) = %d, want 2", len(km.Entries))
	}
}

func TestKeymapValidate(t *testing.T) {
	tests := []struct {
		name    string
		keymap  *Keymap
		wantErr bool
	}{
		{
			name:   "valid keymap",
			keymap: NewKeymap("ok").Add("j", "scroll.down").Add("Ctrl+K Ctrl+C", "comment"),
		},
		{
			name:    "empty keys",
			keymap:  NewKeymap("bad").Add("", "scroll.down"),
			wantErr: true,
		},
		{
			name:    "empty action",
			keymap:  NewKeymap("bad").Add("j", ""),
			wantErr: true,
		},
		{
			name:    "invalid shortcut",
			keymap:  NewKeymap("bad").Add("ctrl+a+b", "x"),
			wantErr: true,
		},
		{
			name:    "invalid sequence step",
			keymap:  NewKeymap("bad").Add("g ctrl+", "x"),
			wantErr: true,
		},
		{
			name:    "bad timeout",
			keymap:  NewKeymap("bad").AddEntry(Entry{Keys: "g g", Action: "x", Timeout: "soon"}),
			wantErr: true,
		},
		{
			name:    "unnamed context",
			keymap:  NewKeymap("bad").DeclareContext(ContextDecl{Name: " "}),
			wantErr: true,
		},
	}

	for _, tt := range tests {
		err := tt.keymap.Validate(key.Options{})
		if (err != nil) != tt.wantErr {
			t.Errorf("%s: Validate() error = %v, wantErr %v", tt.name, err, tt.wantErr)
		}
	}
}

func TestKeymapValidateWrapsShortcutError(t *testing.T) {
	err := NewKeymap("bad").Add("ctrl+", "x").Validate(key.Options{})
	if !errors.Is(err, key.ErrInvalidShortcut) {
		t.Errorf("Validate() error = %v, want ErrInvalidShortcut", err)
	}
	if err := NewKeymap("lenient").Add("ctrl+", "x").Validate(key.Options{Lenient: true}); err != nil {
		t.Errorf("Validate(lenient) error = %v", err)
	}
}

func TestEntryHelpers(t *testing.T) {
	e := Entry{Keys: "g g"}
	if !e.IsSequence() {
		t.Error("IsSequence(g g) = false")
	}
	if (Entry{Keys: "g"}).IsSequence() {
		t.Error("IsSequence(g) = true")
	}
	if !(Entry{Keys: "g", Sequence: true}).IsSequence() {
		t.Error("IsSequence with Sequence flag = false")
	}
	if e.ContextName() != GlobalContext {
		t.Errorf("ContextName() = %q, want global", e.ContextName())
	}
	if !e.PreventsDefault() {
		t.Error("PreventsDefault() default should be true")
	}
	off := false
	if (Entry{PreventDefault: &off}).PreventsDefault() {
		t.Error("PreventsDefault() = true with explicit false")
	}

	d, err := Entry{Timeout: "750ms"}.TimeoutDuration()
	if err != nil || d != 750*time.Millisecond {
		t.Errorf("TimeoutDuration() = %v, %v", d, err)
	}
	if _, err := (Entry{Timeout: "-1s"}).TimeoutDuration(); err == nil {
		t.Error("negative timeout should fail")
	}
}

func TestDefaultKeymapValid(t *testing.T) {
	km := DefaultKeymap()
	if err := km.Validate(key.Options{}); err != nil {
		t.Fatalf("DefaultKeymap().Validate() error = %v", err)
	}

	seen := make(map[string]bool)
	for _, e := range km.Entries {
		var k string
		if e.IsSequence() {
			tokens, _ := key.ParseSequence(e.Keys, key.Options{})
			k = SequenceKey(e.ContextName(), tokens)
		} else {
			k = Key(e.ContextName(), key.MustCanonicalize(e.Keys))
		}
		if seen[k] {
			t.Errorf("duplicate default entry %q", k)
		}
		seen[k] = true
	}
}

func TestKeymapClone(t *testing.T) {
	km := DefaultKeymap()
	c := km.Clone()
	c.Entries[0].Keys = "changed"
	if km.Entries[0].Keys == "changed" {
		t.Error("Clone shares entries")
	}
}

func TestActions(t *testing.T) {
	called := 0
	actions := Actions{
		"b": func(*key.Event) error { called++; return nil },
		"a": func(*key.Event) error { return nil },
	}

	h, err := actions.Lookup("b")
	if err != nil {
		t.Fatalf("Lookup(b) error = %v", err)
	}
	_ = h(nil)
	if called != 1 {
		t.Errorf("called = %d, want 1", called)
	}

	if _, err := actions.Lookup("missing"); !errors.Is(err, ErrUnknownAction) {
		t.Errorf("Lookup(missing) error = %v, want ErrUnknownAction", err)
	}

	names := actions.Merge(Actions{"c": func(*key.Event) error { return nil }}).Names()
	if len(names) != 3 || names[0] != "a" || names[2] != "c" {
		t.Errorf("Names() = %v", names)
	}

	seq := SequenceAdapter(actions["b"])
	_ = seq(SequenceTrigger{Event: key.NewEvent("g", key.ModNone)})
	if called != 2 {
		t.Errorf("SequenceAdapter did not call handler, called = %d", called)
	}
}
