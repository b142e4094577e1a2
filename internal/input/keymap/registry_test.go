package keymap

import (
	"reflect"
	"testing"
	"time"
)

func testSequence(context string, tokens ...string) Sequence {
	return Sequence{
		Context: context,
		Tokens:  tokens,
		Enabled: true,
		Handler: func(SequenceTrigger) error { return nil },
	}
}

func TestRegistryPutAndLookup(t *testing.T) {
	r := NewRegistry()

	replaced := r.Put(Binding{Context: "global", Shortcut: "ctrl+s", Text: "Ctrl+S", Enabled: true})
	if replaced {
		t.Error("first Put should not replace")
	}

	b, ok := r.Lookup("global", "ctrl+s")
	if !ok {
		t.Fatal("Lookup(global, ctrl+s) not found")
	}
	if b.Key != "global:ctrl+s" {
		t.Errorf("Key = %q, want %q", b.Key, "global:ctrl+s")
	}
	if b.Text != "Ctrl+S" {
		t.Errorf("Text = %q, want %q", b.Text, "Ctrl+S")
	}

	if !r.Put(Binding{Context: "global", Shortcut: "ctrl+s", Text: "control+s", Enabled: true}) {
		t.Error("second Put should replace")
	}
	if r.Len() != 1 {
		t.Errorf("Len() = %d, want 1", r.Len())
	}
	b, _ = r.Get("global:ctrl+s")
	if b.Text != "control+s" {
		t.Errorf("Text after replace = %q, want %q", b.Text, "control+s")
	}
}

func TestRegistryGetReturnsCopy(t *testing.T) {
	r := NewRegistry()
	r.Put(Binding{Context: "global", Shortcut: "a", Enabled: true})

	b, _ := r.Get("global:a")
	b.Enabled = false

	b2, _ := r.Get("global:a")
	if !b2.Enabled {
		t.Error("mutating a returned binding changed the registry")
	}
}

func TestRegistryLookupFirst(t *testing.T) {
	r := NewRegistry()
	r.Put(Binding{Context: "global", Shortcut: "s", Enabled: true, Description: "global"})
	r.Put(Binding{Context: "video", Shortcut: "s", Enabled: true, Description: "video"})
	r.Put(Binding{Context: "dialog", Shortcut: "s", Enabled: false, Description: "dialog"})

	b, ok := r.LookupFirst("s", []string{"dialog", "video", "global"})
	if !ok || b.Description != "video" {
		t.Errorf("LookupFirst = %q, %v, want video", b.Description, ok)
	}

	b, ok = r.LookupFirst("s", []string{"global", "video"})
	if !ok || b.Description != "global" {
		t.Errorf("LookupFirst = %q, %v, want global", b.Description, ok)
	}

	if _, ok := r.LookupFirst("x", []string{"global"}); ok {
		t.Error("LookupFirst(x) should not match")
	}
}

func TestRegistryRemoveAndSetEnabled(t *testing.T) {
	r := NewRegistry()
	r.Put(Binding{Context: "global", Shortcut: "a", Enabled: true})

	if !r.SetEnabled("global:a", false) {
		t.Error("SetEnabled existing = false")
	}
	if r.SetEnabled("global:missing", false) {
		t.Error("SetEnabled missing = true")
	}
	b, _ := r.Get("global:a")
	if b.Enabled {
		t.Error("binding still enabled")
	}

	now := time.Unix(100, 0)
	r.Touch("global:a", now)
	b, _ = r.Get("global:a")
	if !b.LastTriggered.Equal(now) {
		t.Errorf("LastTriggered = %v, want %v", b.LastTriggered, now)
	}

	if _, ok := r.Remove("global:a"); !ok {
		t.Error("Remove existing = false")
	}
	if _, ok := r.Remove("global:a"); ok {
		t.Error("Remove twice = true")
	}
	if r.Len() != 0 {
		t.Errorf("Len() = %d, want 0", r.Len())
	}
}

func TestRegistryBindingsSorted(t *testing.T) {
	r := NewRegistry()
	r.Put(Binding{Context: "video", Shortcut: "s"})
	r.Put(Binding{Context: "global", Shortcut: "s"})
	r.Put(Binding{Context: "global", Shortcut: "ctrl+s"})
	r.Put(Binding{Context: "global", Shortcut: "a"})

	var got []string
	for _, b := range r.Bindings("") {
		got = append(got, b.Key)
	}
	want := []string{"global:a", "global:ctrl+s", "global:s", "video:s"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Bindings() = %v, want %v", got, want)
	}

	if n := len(r.Bindings("video")); n != 1 {
		t.Errorf("len(Bindings(video)) = %d, want 1", n)
	}
}

func TestRegistrySequences(t *testing.T) {
	r := NewRegistry()

	if r.PutSequence(testSequence("global", "g", "g")) {
		t.Error("first PutSequence should not replace")
	}
	s, ok := r.GetSequence("global:g g")
	if !ok {
		t.Fatal("GetSequence(global:g g) not found")
	}
	if s.Timeout != DefaultSequenceTimeout {
		t.Errorf("Timeout = %v, want default %v", s.Timeout, DefaultSequenceTimeout)
	}
	if s.String() != "g g" {
		t.Errorf("String() = %q, want %q", s.String(), "g g")
	}

	if !r.PutSequence(testSequence("global", "g", "g")) {
		t.Error("second PutSequence should replace")
	}
	if r.SequenceLen() != 1 {
		t.Errorf("SequenceLen() = %d, want 1", r.SequenceLen())
	}

	// Binding and sequence with the same text do not collide.
	r.Put(Binding{Context: "global", Shortcut: "g", Enabled: true})
	if r.Len() != 1 || r.SequenceLen() != 1 {
		t.Errorf("Len/SequenceLen = %d/%d, want 1/1", r.Len(), r.SequenceLen())
	}

	if _, ok := r.RemoveSequence("global:g g"); !ok {
		t.Error("RemoveSequence = false")
	}
	if m := r.MatchSequence([]string{"g"}, []string{"global"}); m.Prefix || m.Exact != nil {
		t.Errorf("MatchSequence after remove = %+v, want none", m)
	}
}

func TestRegistryMatchSequence(t *testing.T) {
	r := NewRegistry()
	gg := testSequence("global", "g", "g")
	r.PutSequence(gg)
	gi := testSequence("video", "g", "i")
	gi.Timeout = 2 * time.Second
	r.PutSequence(gi)
	r.PutSequence(testSequence("video", "g", "g"))

	tests := []struct {
		name      string
		tokens    []string
		contexts  []string
		wantExact string
		wantPref  bool
		wantTO    time.Duration
	}{
		{"prefix global only", []string{"g"}, []string{"global"}, "", true, DefaultSequenceTimeout},
		{"prefix uses longest timeout", []string{"g"}, []string{"video", "global"}, "", true, 2 * time.Second},
		{"exact first context wins", []string{"g", "g"}, []string{"video", "global"}, "video:g g", false, 0},
		{"exact lower context", []string{"g", "g"}, []string{"global"}, "global:g g", false, 0},
		{"inactive context ignored", []string{"g", "i"}, []string{"global"}, "", false, 0},
		{"no match", []string{"x"}, []string{"global"}, "", false, 0},
		{"empty buffer", nil, []string{"global"}, "", false, 0},
	}

	for _, tt := range tests {
		m := r.MatchSequence(tt.tokens, tt.contexts)
		gotExact := ""
		if m.Exact != nil {
			gotExact = m.Exact.Key
		}
		if gotExact != tt.wantExact {
			t.Errorf("%s: Exact = %q, want %q", tt.name, gotExact, tt.wantExact)
		}
		if m.Prefix != tt.wantPref {
			t.Errorf("%s: Prefix = %v, want %v", tt.name, m.Prefix, tt.wantPref)
		}
		if m.Timeout != tt.wantTO {
			t.Errorf("%s: Timeout = %v, want %v", tt.name, m.Timeout, tt.wantTO)
		}
	}
}

func TestRegistryMatchSequenceSkipsDisabled(t *testing.T) {
	r := NewRegistry()
	r.PutSequence(testSequence("video", "g", "g"))
	r.PutSequence(testSequence("global", "g", "g"))
	r.SetSequenceEnabled("video:g g", false)

	m := r.MatchSequence([]string{"g", "g"}, []string{"video", "global"})
	if m.Exact == nil || m.Exact.Key != "global:g g" {
		t.Errorf("MatchSequence = %+v, want global:g g", m.Exact)
	}

	r.SetSequenceEnabled("global:g g", false)
	m = r.MatchSequence([]string{"g"}, []string{"video", "global"})
	if m.Prefix {
		t.Error("disabled sequences should not count as prefixes")
	}
}

func TestRegistryRemoveContextAndSource(t *testing.T) {
	r := NewRegistry()
	r.Put(Binding{Context: "video", Shortcut: "s"})
	r.Put(Binding{Context: "global", Shortcut: "s", Source: "keys.toml"})
	r.Put(Binding{Context: "global", Shortcut: "a"})
	r.PutSequence(testSequence("video", "g", "g"))

	removed := r.RemoveContext("video")
	want := []string{"video:g g", "video:s"}
	if !reflect.DeepEqual(removed, want) {
		t.Errorf("RemoveContext = %v, want %v", removed, want)
	}
	if r.SequenceLen() != 0 {
		t.Errorf("SequenceLen() = %d, want 0", r.SequenceLen())
	}

	removed = r.RemoveSource("keys.toml")
	if !reflect.DeepEqual(removed, []string{"global:s"}) {
		t.Errorf("RemoveSource = %v", removed)
	}
	if r.RemoveSource("") != nil {
		t.Error("RemoveSource(\"\") should be a no-op")
	}

	r.Clear()
	if r.Len() != 0 {
		t.Errorf("Len() after Clear = %d", r.Len())
	}
}

func TestPrefixTreePrune(t *testing.T) {
	tree := NewPrefixTree()
	s := testSequence("global", "a", "b", "c")
	s.Key = SequenceKey(s.Context, s.Tokens)
	tree.Insert(&s)

	if !tree.HasPrefix([]string{"a", "b"}) {
		t.Error("HasPrefix(a b) = false")
	}
	if got := tree.Lookup([]string{"a", "b", "c"}); len(got) != 1 {
		t.Errorf("Lookup = %d entries, want 1", len(got))
	}

	tree.Remove(&s)
	if tree.HasPrefix([]string{"a"}) {
		t.Error("tree not pruned after Remove")
	}
	if len(tree.root.children) != 0 {
		t.Errorf("root children = %d, want 0", len(tree.root.children))
	}
}

func TestSplitKey(t *testing.T) {
	ctx, rest, ok := SplitKey("global:shift+:")
	if !ok || ctx != "global" || rest != "shift+:" {
		t.Errorf("SplitKey = %q, %q, %v", ctx, rest, ok)
	}
	if _, _, ok := SplitKey("ctrl+s"); ok {
		t.Error("SplitKey(ctrl+s) ok = true")
	}
}
