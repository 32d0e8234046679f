package embedding

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// redisTTL bounds how long shared cache entries live. Embeddings are
// immutable for a given model, so the TTL only caps storage growth.
const redisTTL = 30 * 24 * time.Hour

// RedisCachedProvider wraps a Provider with a Redis-backed cache so several
// assistant processes can share one embedding cache. Cache failures are
// logged and ignored; Redis being down must not block retrieval.
type RedisCachedProvider struct {
	inner  Provider
	client *redis.Client
	prefix string
}

// NewRedisCached wraps inner with the given Redis client.
func NewRedisCached(inner Provider, client *redis.Client) *RedisCachedProvider {
	return &RedisCachedProvider{
		inner:  inner,
		client: client,
		prefix: "mnemo:emb:" + inner.Model() + ":",
	}
}

func (p *RedisCachedProvider) Name() string    { return p.inner.Name() }
func (p *RedisCachedProvider) Model() string   { return p.inner.Model() }
func (p *RedisCachedProvider) Dimensions() int { return p.inner.Dimensions() }

func (p *RedisCachedProvider) Embed(ctx context.Context, texts []string, mode Mode) ([][]float32, error) {
	result := make([][]float32, len(texts))
	var missTexts []string
	var missIdx []int

	for i, t := range texts {
		key := p.prefix + ContentHash(t, mode)
		raw, err := p.client.Get(ctx, key).Bytes()
		if err == nil {
			var v []float32
			if json.Unmarshal(raw, &v) == nil && len(v) > 0 {
				result[i] = v
				continue
			}
		} else if err != redis.Nil {
			slog.Warn("embedding cache read failed", "err", err)
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
			if raw, err := json.Marshal(v); err == nil {
				key := p.prefix + ContentHash(texts[i], mode)
				if err := p.client.Set(ctx, key, raw, redisTTL).Err(); err != nil {
					slog.Warn("embedding cache write failed", "err", err)
				}
			}
		}
	}
	return result, nil
}
