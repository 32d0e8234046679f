package retrieval

import (
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

// charsPerToken is the uniform heuristic used whenever an exact token count
// is unavailable: ceil(len/4).
const charsPerToken = 4

var (
	encOnce sync.Once
	enc     *tiktoken.Tiktoken
)

// EstimateTokens returns a token count for text: the cl100k_base encoding
// when the tokenizer data is available, else the ceil(len/4) heuristic.
// The heuristic is the authoritative fallback and stays deterministic.
func EstimateTokens(text string) int {
	if text == "" {
		return 0
	}
	encOnce.Do(func() {
		// Offline environments have no BPE data; enc stays nil and the
		// heuristic takes over.
		enc, _ = tiktoken.GetEncoding(tiktoken.MODEL_CL100K_BASE)
	})
	if enc != nil {
		return len(enc.Encode(text, nil, nil))
	}
	return heuristicTokens(text)
}

func heuristicTokens(text string) int {
	return (len(text) + charsPerToken - 1) / charsPerToken
}

// passageTokens returns the stored token count when present, else the
// uniform estimate over the content.
func passageTokens(content string, stored int) int {
	if stored > 0 {
		return stored
	}
	return heuristicTokens(content)
}
