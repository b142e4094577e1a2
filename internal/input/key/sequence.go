package key

import (
	"fmt"
	"strings"
)

// ParseSequence parses whitespace separated shortcuts like "g g" or
// "Ctrl+K Ctrl+C" into canonical tokens.
func ParseSequence(text string, opts Options) ([]string, error) {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return nil, ErrEmptySequence
	}

	tokens := make([]string, 0, len(fields))
	for i, f := range fields {
		tok, err := Canonicalize(f, opts)
		if err != nil {
			return nil, fmt.Errorf("sequence step %d: %w", i+1, err)
		}
		tokens = append(tokens, tok)
	}
	return tokens, nil
}

// JoinSequence renders canonical tokens as sequence text.
func JoinSequence(tokens []string) string {
	return strings.Join(tokens, " ")
}

// HasPrefix reports whether seq starts with prefix.
func HasPrefix(seq, prefix []string) bool {
	if len(prefix) > len(seq) {
		return false
	}
	for i := range prefix {
		if seq[i] != prefix[i] {
			return false
		}
	}
	return true
}
