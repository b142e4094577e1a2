package input

import (
	"time"

	"github.com/dshills/keyroute/internal/input/keymap"
)

// ShortcutInfo describes a registered binding for listings.
type ShortcutInfo struct {
	Key             string
	Context         string
	Shortcut        string
	ShortcutText    string
	Description     string
	Action          string
	Enabled         bool
	PreventDefault  bool
	AllowInInputs   bool
	Source          string
	LastTriggeredAt time.Time
}

// SequenceInfo describes a registered sequence for listings.
type SequenceInfo struct {
	Key             string
	Context         string
	Sequence        string
	SequenceText    string
	Description     string
	Action          string
	Enabled         bool
	Timeout         time.Duration
	Source          string
	LastTriggeredAt time.Time
}

// Stats is a snapshot of engine state plus dispatch counters.
type Stats struct {
	BindingCount          int
	SequenceCount         int
	ContextCount          int
	ActiveContextCount    int
	HeldKeyCount          int
	PendingSequenceBuffer []string
	LastKeyTimestamp      time.Time

	KeyEvents        uint64
	Dispatched       uint64
	SequenceMatches  uint64
	SequenceTimeouts uint64
	HandlerErrors    uint64
	SkippedInInputs  uint64
}

func shortcutInfo(b keymap.Binding) ShortcutInfo {
	return ShortcutInfo{
		Key:             b.Key,
		Context:         b.Context,
		Shortcut:        b.Shortcut,
		ShortcutText:    b.Text,
		Description:     b.Description,
		Action:          b.Action,
		Enabled:         b.Enabled,
		PreventDefault:  b.PreventDefault,
		AllowInInputs:   b.AllowInInputs,
		Source:          b.Source,
		LastTriggeredAt: b.LastTriggered,
	}
}

// GetShortcuts lists bindings sorted by canonical shortcut. An empty
// context lists every context, including inactive ones.
func (m *Manager) GetShortcuts(context string) []ShortcutInfo {
	bindings := m.registry.Bindings(context)
	result := make([]ShortcutInfo, 0, len(bindings))
	for _, b := range bindings {
		result = append(result, shortcutInfo(b))
	}
	return result
}

// GetSequences lists sequences sorted by canonical text.
func (m *Manager) GetSequences(context string) []SequenceInfo {
	seqs := m.registry.Sequences(context)
	result := make([]SequenceInfo, 0, len(seqs))
	for i := range seqs {
		s := &seqs[i]
		result = append(result, SequenceInfo{
			Key:             s.Key,
			Context:         s.Context,
			Sequence:        s.String(),
			SequenceText:    s.Text,
			Description:     s.Description,
			Action:          s.Action,
			Enabled:         s.Enabled,
			Timeout:         s.Timeout,
			Source:          s.Source,
			LastTriggeredAt: s.LastTriggered,
		})
	}
	return result
}

// GetStats returns a snapshot of engine state.
func (m *Manager) GetStats() Stats {
	m.mu.Lock()
	st := Stats{
		BindingCount:          m.registry.Len(),
		SequenceCount:         m.registry.SequenceLen(),
		ContextCount:          m.scopes.Len(),
		ActiveContextCount:    m.scopes.ActiveLen(),
		HeldKeyCount:          len(m.held),
		PendingSequenceBuffer: m.detector.Pending(),
		LastKeyTimestamp:      m.lastKey,
	}
	m.mu.Unlock()

	snap := m.metrics.Snapshot()
	st.KeyEvents = snap.KeyEvents
	st.Dispatched = snap.Dispatched
	st.SequenceMatches = snap.SequenceMatches
	st.SequenceTimeouts = snap.SequenceTimeouts
	st.HandlerErrors = snap.HandlerErrors
	st.SkippedInInputs = snap.SkippedInInputs
	return st
}
