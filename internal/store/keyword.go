package store

import "strings"

// Keyword tokenization limits. Longer tokens are more selective, so the cap
// keeps the longest ones.
const (
	maxKeywords   = 8
	minKeywordLen = 3
)

// KeywordTokens turns free query text into full-text search tokens:
// whitespace split, short tokens dropped, capped at maxKeywords keeping the
// longest. How tokens combine (OR vs AND) is the store's policy choice.
func KeywordTokens(query string) []string {
	words := strings.Fields(query)
	var tokens []string
	for _, w := range words {
		w = strings.Trim(w, `.,;:!?"'()[]{}`)
		if len(w) >= minKeywordLen {
			tokens = append(tokens, w)
		}
	}
	// Longest first.
	for i := 0; i < len(tokens); i++ {
		for j := i + 1; j < len(tokens); j++ {
			if len(tokens[j]) > len(tokens[i]) {
				tokens[i], tokens[j] = tokens[j], tokens[i]
			}
		}
	}
	if len(tokens) > maxKeywords {
		tokens = tokens[:maxKeywords]
	}
	return tokens
}
