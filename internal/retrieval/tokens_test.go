package retrieval

import (
	"strings"
	"testing"
)

func TestHeuristicTokens(t *testing.T) {
	tests := []struct {
		text string
		want int
	}{
		{"", 0},
		{"abc", 1},
		{"abcd", 1},
		{"abcde", 2},
		{strings.Repeat("x", 400), 100},
	}
	for _, tt := range tests {
		if got := heuristicTokens(tt.text); got != tt.want {
			t.Errorf("heuristicTokens(%d chars) = %d, want %d", len(tt.text), got, tt.want)
		}
	}
}

func TestPassageTokensPrefersStoredCount(t *testing.T) {
	if got := passageTokens("whatever content", 42); got != 42 {
		t.Errorf("got %d, want the stored count 42", got)
	}
	if got := passageTokens("abcdefgh", 0); got != 2 {
		t.Errorf("fallback = %d, want the 8-char estimate 2", got)
	}
}

func TestEstimateTokens(t *testing.T) {
	if got := EstimateTokens(""); got != 0 {
		t.Errorf("empty text = %d tokens, want 0", got)
	}
	// Exact counts depend on whether the BPE data is reachable; either path
	// must produce something positive for real text.
	if got := EstimateTokens("the quick brown fox jumps over the lazy dog"); got <= 0 {
		t.Errorf("got %d tokens, want > 0", got)
	}
}
