package input

import (
	"sort"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"
)

// FindShortcuts fuzzy-matches query against each binding's shortcut,
// description and action. Results are ordered best match first. An empty
// query returns every binding.
func (m *Manager) FindShortcuts(query string) []ShortcutInfo {
	all := m.GetShortcuts("")
	query = strings.TrimSpace(query)
	if query == "" {
		return all
	}

	targets := make([]string, len(all))
	for i, info := range all {
		targets[i] = searchText(info)
	}

	ranks := fuzzy.RankFindFold(query, targets)
	sort.Stable(ranks)

	result := make([]ShortcutInfo, 0, len(ranks))
	for _, r := range ranks {
		result = append(result, all[r.OriginalIndex])
	}
	return result
}

func searchText(info ShortcutInfo) string {
	parts := []string{info.Shortcut}
	if info.ShortcutText != "" && info.ShortcutText != info.Shortcut {
		parts = append(parts, info.ShortcutText)
	}
	if info.Description != "" {
		parts = append(parts, info.Description)
	}
	if info.Action != "" {
		parts = append(parts, info.Action)
	}
	return strings.Join(parts, " ")
}
