// Package mock provides a deterministic embedder for tests and local
// development without model files. Embeddings are derived from token
// hashes, so identical texts embed identically and overlapping texts
// land near each other, which is enough for exercising the pipeline.
package mock

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
)

// Embedder implements retrieval.Embedder without a model.
type Embedder struct {
	dims int
}

// New creates a mock embedder with the given dimensionality.
func New(dims int) *Embedder {
	if dims <= 0 {
		dims = 384
	}
	return &Embedder{dims: dims}
}

// Embed hashes each whitespace token into a bucket and normalizes the
// resulting vector.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vec := make([]float32, e.dims)
	for _, tok := range strings.Fields(strings.ToLower(text)) {
		h := fnv.New32a()
		h.Write([]byte(tok))
		vec[int(h.Sum32())%e.dims] += 1
	}

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm > 0 {
		n := float32(math.Sqrt(norm))
		for i := range vec {
			vec[i] /= n
		}
	}
	return vec, nil
}

// Dimensions returns the vector size.
func (e *Embedder) Dimensions() int {
	return e.dims
}
