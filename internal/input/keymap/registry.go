package keymap

import (
	"sort"
	"sync"
	"time"
)

// Registry stores bindings and sequences keyed by context and canonical form.
type Registry struct {
	mu sync.RWMutex

	// bindings holds single-shortcut bindings by registry key.
	bindings map[string]*Binding

	// sequences holds multi-key sequences by registry key.
	sequences map[string]*Sequence

	// prefixTree indexes sequences by token path.
	prefixTree *PrefixTree
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		bindings:   make(map[string]*Binding),
		sequences:  make(map[string]*Sequence),
		prefixTree: NewPrefixTree(),
	}
}

// Put stores a binding under Key(b.Context, b.Shortcut).
// Returns true if an existing binding was replaced.
func (r *Registry) Put(b Binding) (replaced bool) {
	b.Key = Key(b.Context, b.Shortcut)

	r.mu.Lock()
	defer r.mu.Unlock()

	_, replaced = r.bindings[b.Key]
	r.bindings[b.Key] = &b
	return replaced
}

// Remove deletes a binding and returns it.
func (r *Registry) Remove(k string) (Binding, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	b, ok := r.bindings[k]
	if !ok {
		return Binding{}, false
	}
	delete(r.bindings, k)
	return *b, true
}

// Get returns a copy of the binding stored under k.
func (r *Registry) Get(k string) (Binding, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	b, ok := r.bindings[k]
	if !ok {
		return Binding{}, false
	}
	return *b, true
}

// Lookup returns the binding for a canonical shortcut in a context.
func (r *Registry) Lookup(context, shortcut string) (Binding, bool) {
	return r.Get(Key(context, shortcut))
}

// LookupFirst walks contexts in order and returns the first binding for
// shortcut that is enabled. Disabled bindings are skipped, not terminal.
func (r *Registry) LookupFirst(shortcut string, contexts []string) (Binding, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, ctx := range contexts {
		if b, ok := r.bindings[Key(ctx, shortcut)]; ok && b.Enabled {
			return *b, true
		}
	}
	return Binding{}, false
}

// SetEnabled toggles a binding. Returns false if it does not exist.
func (r *Registry) SetEnabled(k string, enabled bool) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	b, ok := r.bindings[k]
	if !ok {
		return false
	}
	b.Enabled = enabled
	return true
}

// Touch records that a binding fired at t.
func (r *Registry) Touch(k string, t time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if b, ok := r.bindings[k]; ok {
		b.LastTriggered = t
	}
}

// Bindings returns copies of all bindings, or only those in context when it
// is non-empty, sorted by shortcut then context.
func (r *Registry) Bindings(context string) []Binding {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Binding, 0, len(r.bindings))
	for _, b := range r.bindings {
		if context != "" && b.Context != context {
			continue
		}
		result = append(result, *b)
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].Shortcut != result[j].Shortcut {
			return result[i].Shortcut < result[j].Shortcut
		}
		return result[i].Context < result[j].Context
	})
	return result
}

// Len returns the number of bindings.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.bindings)
}

// PutSequence stores a sequence under SequenceKey(s.Context, s.Tokens).
// Returns true if an existing sequence was replaced.
func (r *Registry) PutSequence(s Sequence) (replaced bool) {
	s.Tokens = append([]string(nil), s.Tokens...)
	s.Key = SequenceKey(s.Context, s.Tokens)
	if s.Timeout <= 0 {
		s.Timeout = DefaultSequenceTimeout
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if old, ok := r.sequences[s.Key]; ok {
		r.prefixTree.Remove(old)
		replaced = true
	}
	r.sequences[s.Key] = &s
	r.prefixTree.Insert(&s)
	return replaced
}

// RemoveSequence deletes a sequence and returns it.
func (r *Registry) RemoveSequence(k string) (Sequence, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sequences[k]
	if !ok {
		return Sequence{}, false
	}
	r.prefixTree.Remove(s)
	delete(r.sequences, k)
	return s.clone(), true
}

// GetSequence returns a copy of the sequence stored under k.
func (r *Registry) GetSequence(k string) (Sequence, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.sequences[k]
	if !ok {
		return Sequence{}, false
	}
	return s.clone(), true
}

// SetSequenceEnabled toggles a sequence. Returns false if it does not exist.
func (r *Registry) SetSequenceEnabled(k string, enabled bool) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sequences[k]
	if !ok {
		return false
	}
	s.Enabled = enabled
	return true
}

// TouchSequence records that a sequence completed at t.
func (r *Registry) TouchSequence(k string, t time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if s, ok := r.sequences[k]; ok {
		s.LastTriggered = t
	}
}

// Sequences returns copies of all sequences, or only those in context when
// it is non-empty, sorted by sequence text then context.
func (r *Registry) Sequences(context string) []Sequence {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Sequence, 0, len(r.sequences))
	for _, s := range r.sequences {
		if context != "" && s.Context != context {
			continue
		}
		result = append(result, s.clone())
	}

	sort.Slice(result, func(i, j int) bool {
		si, sj := result[i].String(), result[j].String()
		if si != sj {
			return si < sj
		}
		return result[i].Context < result[j].Context
	})
	return result
}

// SequenceLen returns the number of sequences.
func (r *Registry) SequenceLen() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sequences)
}

// SequenceMatch is the result of matching buffered tokens.
type SequenceMatch struct {
	// Exact is the first enabled sequence equal to the buffer, or nil.
	Exact *Sequence

	// Prefix is true when the buffer is a strict prefix of at least one
	// enabled sequence in the searched contexts.
	Prefix bool

	// Timeout is the longest timeout among the sequences the buffer is a
	// prefix of. Zero when Prefix is false.
	Timeout time.Duration
}

// MatchSequence matches buffered tokens against sequences in contexts,
// consulted in the given order.
func (r *Registry) MatchSequence(tokens []string, contexts []string) SequenceMatch {
	var m SequenceMatch
	if len(tokens) == 0 {
		return m
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	node := r.prefixTree.find(tokens)
	if node == nil {
		return m
	}

	for _, ctx := range contexts {
		for _, s := range node.entries {
			if s.Context == ctx && s.Enabled {
				c := s.clone()
				m.Exact = &c
				return m
			}
		}
	}

	allowed := make(map[string]bool, len(contexts))
	for _, ctx := range contexts {
		allowed[ctx] = true
	}
	for _, child := range node.children {
		child.walk(func(s *Sequence) {
			if !s.Enabled || !allowed[s.Context] {
				return
			}
			m.Prefix = true
			if s.Timeout > m.Timeout {
				m.Timeout = s.Timeout
			}
		})
	}
	return m
}

// RemoveContext deletes every binding and sequence owned by context.
// Returns the removed registry keys.
func (r *Registry) RemoveContext(context string) []string {
	return r.removeWhere(func(ctx, _ string) bool { return ctx == context })
}

// RemoveSource deletes every binding and sequence loaded from source.
// Returns the removed registry keys.
func (r *Registry) RemoveSource(source string) []string {
	if source == "" {
		return nil
	}
	return r.removeWhere(func(_, src string) bool { return src == source })
}

func (r *Registry) removeWhere(match func(context, source string) bool) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	var removed []string
	for k, b := range r.bindings {
		if match(b.Context, b.Source) {
			delete(r.bindings, k)
			removed = append(removed, k)
		}
	}
	for k, s := range r.sequences {
		if match(s.Context, s.Source) {
			r.prefixTree.Remove(s)
			delete(r.sequences, k)
			removed = append(removed, k)
		}
	}
	sort.Strings(removed)
	return removed
}

// Clear removes everything.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.bindings = make(map[string]*Binding)
	r.sequences = make(map[string]*Sequence)
	r.prefixTree = NewPrefixTree()
}

// PrefixTree indexes sequences by their token path.
type PrefixTree struct {
	root *prefixNode
}

type prefixNode struct {
	children map[string]*prefixNode
	entries  []*Sequence
}

// NewPrefixTree creates a new prefix tree.
func NewPrefixTree() *PrefixTree {
	return &PrefixTree{
		root: &prefixNode{
			children: make(map[string]*prefixNode),
		},
	}
}

// Insert adds a sequence at the node for its tokens.
func (t *PrefixTree) Insert(s *Sequence) {
	node := t.root

	// Navigate/create path for each token
	for _, tok := range s.Tokens {
		child, ok := node.children[tok]
		if !ok {
			child = &prefixNode{
				children: make(map[string]*prefixNode),
			}
			node.children[tok] = child
		}
		node = child
	}

	node.entries = append(node.entries, s)
}

// Remove removes the entry with the same registry key as s.
func (t *PrefixTree) Remove(s *Sequence) {
	if s == nil || len(s.Tokens) == 0 {
		return
	}

	// Track path for pruning
	path := make([]*prefixNode, 0, len(s.Tokens)+1)
	path = append(path, t.root)

	node := t.root
	for _, tok := range s.Tokens {
		child, ok := node.children[tok]
		if !ok {
			return
		}
		path = append(path, child)
		node = child
	}

	filtered := node.entries[:0]
	for _, entry := range node.entries {
		if entry.Key != s.Key {
			filtered = append(filtered, entry)
		}
	}
	node.entries = filtered

	// Prune empty nodes from leaf to root
	for i := len(path) - 1; i > 0; i-- {
		current := path[i]
		if len(current.entries) != 0 || len(current.children) != 0 {
			break
		}
		delete(path[i-1].children, s.Tokens[i-1])
	}
}

// Lookup returns the sequences stored exactly at tokens.
func (t *PrefixTree) Lookup(tokens []string) []*Sequence {
	node := t.find(tokens)
	if node == nil {
		return nil
	}
	return append([]*Sequence(nil), node.entries...)
}

// HasPrefix reports whether any sequence is strictly longer than tokens and
// starts with them.
func (t *PrefixTree) HasPrefix(tokens []string) bool {
	node := t.find(tokens)
	return node != nil && len(node.children) > 0
}

func (t *PrefixTree) find(tokens []string) *prefixNode {
	node := t.root
	for _, tok := range tokens {
		child, ok := node.children[tok]
		if !ok {
			return nil
		}
		node = child
	}
	return node
}

func (n *prefixNode) walk(fn func(*Sequence)) {
	for _, s := range n.entries {
		fn(s)
	}
	for _, child := range n.children {
		child.walk(fn)
	}
}
