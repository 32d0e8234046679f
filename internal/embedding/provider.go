// Package embedding converts text to vectors. The retrieval core only sees
// the Provider interface; implementations are the OpenAI client (openai.go),
// the deterministic mock (mock.go), and cache/ratelimit decorators.
package embedding

import "context"

// Mode distinguishes document-side from query-side embedding. Some models
// want an instruction prefix that differs between the two.
type Mode string

const (
	ModeDocument Mode = "document"
	ModeQuery    Mode = "query"
)

// Provider generates vector embeddings for text.
type Provider interface {
	Name() string
	Model() string
	Dimensions() int
	Embed(ctx context.Context, texts []string, mode Mode) ([][]float32, error)
}
