package embedding

import (
	"context"
	"crypto/sha256"
	"math"
)

// MockProvider is a deterministic embedder for tests: the vector is derived
// from a hash of the text, so equal texts get equal (unit-length) vectors
// and different texts almost surely don't collide.
type MockProvider struct {
	Dims int
	// Fail, when set, makes every Embed call return this error.
	Fail error
}

func NewMock(dims int) *MockProvider {
	if dims <= 0 {
		dims = 16
	}
	return &MockProvider{Dims: dims}
}

func (m *MockProvider) Name() string    { return "mock" }
func (m *MockProvider) Model() string   { return "mock-deterministic" }
func (m *MockProvider) Dimensions() int { return m.Dims }

func (m *MockProvider) Embed(ctx context.Context, texts []string, mode Mode) ([][]float32, error) {
	if m.Fail != nil {
		return nil, m.Fail
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = m.vector(t)
	}
	return out, nil
}

func (m *MockProvider) vector(text string) []float32 {
	h := sha256.Sum256([]byte(text))
	v := make([]float32, m.Dims)
	var norm float64
	for i := range v {
		b := h[(i*7)%len(h)]
		v[i] = float32(int(b)-128) / 128
		norm += float64(v[i]) * float64(v[i])
	}
	if norm == 0 {
		return v
	}
	n := float32(math.Sqrt(norm))
	for i := range v {
		v[i] /= n
	}
	return v
}
