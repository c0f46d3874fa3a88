package retrieval

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nickybot/nicky-go/retrieval/embedder/mock"
)

type countingEmbedder struct {
	inner *mock.Embedder
	calls atomic.Int64
}

func (c *countingEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	c.calls.Add(1)
	return c.inner.Embed(ctx, text)
}

func (c *countingEmbedder) Dimensions() int { return c.inner.Dimensions() }

func TestCachedEmbedderDelegates(t *testing.T) {
	inner := &countingEmbedder{inner: mock.New(64)}
	cached, err := NewCachedEmbedder(inner, 16)
	require.NoError(t, err)

	v1, err := cached.Embed(context.Background(), "pizza in brooklyn")
	require.NoError(t, err)
	assert.Len(t, v1, 64)
	assert.Equal(t, 64, cached.Dimensions())

	v2, err := cached.Embed(context.Background(), "pizza in brooklyn")
	require.NoError(t, err)
	assert.Equal(t, v1, v2, "same text embeds identically")
}

func TestCachedEmbedderCanonicalizesKey(t *testing.T) {
	inner := &countingEmbedder{inner: mock.New(64)}
	cached, err := NewCachedEmbedder(inner, 16)
	require.NoError(t, err)

	// Punctuation variants share a canonical key, so concurrent
	// duplicates collapse onto one backend call at most per variant.
	_, err = cached.Embed(context.Background(), "Pizza, in Brooklyn!")
	require.NoError(t, err)
	_, err = cached.Embed(context.Background(), "pizza in brooklyn")
	require.NoError(t, err)

	assert.LessOrEqual(t, inner.calls.Load(), int64(2))
}

func TestMockEmbedderDeterministic(t *testing.T) {
	m := mock.New(0)
	assert.Equal(t, 384, m.Dimensions())

	a, err := m.Embed(context.Background(), "the pizza oven story")
	require.NoError(t, err)
	b, err := m.Embed(context.Background(), "the pizza oven story")
	require.NoError(t, err)
	assert.Equal(t, a, b)

	var norm float64
	for _, v := range a {
		norm += float64(v) * float64(v)
	}
	assert.InDelta(t, 1.0, norm, 1e-5, "vectors are unit length")
}
