package retrieval

import (
	"context"
	"fmt"

	"github.com/dgraph-io/ristretto"
	"golang.org/x/sync/singleflight"

	"github.com/nickybot/nicky-go/core"
)

// Embedder converts text to vector embeddings.
// Implementations: mock (testing), onnx (local, build-tagged), or any
// API-backed embedder the host application supplies.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Dimensions() int
}

// CachedEmbedder wraps an Embedder with a ristretto cache keyed by the
// canonical form of the text. Chat turns re-embed near-identical
// queries constantly; singleflight collapses concurrent duplicates so
// the backend sees each text once.
type CachedEmbedder struct {
	inner Embedder
	cache *ristretto.Cache
	group singleflight.Group
}

// NewCachedEmbedder wraps inner with a cache of roughly maxEntries
// embeddings.
func NewCachedEmbedder(inner Embedder, maxEntries int64) (*CachedEmbedder, error) {
	if maxEntries <= 0 {
		maxEntries = 4096
	}
	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: maxEntries * 10,
		MaxCost:     maxEntries,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("create embedding cache: %w", err)
	}
	return &CachedEmbedder{inner: inner, cache: cache}, nil
}

// Embed returns a cached embedding when available, otherwise delegates
// to the wrapped embedder. Errors are not cached.
func (c *CachedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	key := core.CanonicalKey(text)

	if v, ok := c.cache.Get(key); ok {
		if emb, ok := v.([]float32); ok {
			return emb, nil
		}
	}

	v, err, _ := c.group.Do(key, func() (interface{}, error) {
		emb, err := c.inner.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		c.cache.Set(key, emb, 1)
		return emb, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]float32), nil
}

// Dimensions returns the wrapped embedder's vector size.
func (c *CachedEmbedder) Dimensions() int {
	return c.inner.Dimensions()
}
