package embedding

import (
	"context"
	"crypto/sha256"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultCacheSize bounds the in-process embedding cache. Entries are
// ~6 KB each at 1536 dims, so the default costs a few MB at worst.
const DefaultCacheSize = 4096

// ContentHash returns the cache key for a text: truncated SHA-256, prefixed
// with the embedding mode since query and document vectors may differ.
func ContentHash(text string, mode Mode) string {
	h := sha256.Sum256([]byte(text))
	return fmt.Sprintf("%s:%x", mode, h[:16])
}

// CachedProvider wraps a Provider with an LRU cache keyed by content hash.
// Repeated queries and re-ingested passages skip the API entirely.
type CachedProvider struct {
	inner Provider
	cache *lru.Cache[string, []float32]
}

// NewCached wraps inner with a cache of the given size (DefaultCacheSize
// when size <= 0).
func NewCached(inner Provider, size int) (*CachedProvider, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	c, err := lru.New[string, []float32](size)
	if err != nil {
		return nil, fmt.Errorf("init embedding cache: %w", err)
	}
	return &CachedProvider{inner: inner, cache: c}, nil
}

func (p *CachedProvider) Name() string    { return p.inner.Name() }
func (p *CachedProvider) Model() string   { return p.inner.Model() }
func (p *CachedProvider) Dimensions() int { return p.inner.Dimensions() }

// Embed serves hits from the cache and batches only the misses through the
// wrapped provider.
func (p *CachedProvider) Embed(ctx context.Context, texts []string, mode Mode) ([][]float32, error) {
	result := make([][]float32, len(texts))
	var missTexts []string
	var missIdx []int

	for i, t := range texts {
		if v, ok := p.cache.Get(ContentHash(t, mode)); ok {
			result[i] = v
			continue
		}
		missTexts = append(missTexts, t)
		missIdx = append(missIdx, i)
	}

	if len(missTexts) > 0 {
		vecs, err := p.inner.Embed(ctx, missTexts, mode)
		if err != nil {
			return nil, err
		}
		for j, v := range vecs {
			i := missIdx[j]
			result[i] = v
			p.cache.Add(ContentHash(texts[i], mode), v)
		}
	}
	return result, nil
}
