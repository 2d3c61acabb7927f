package hash

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/sentinel-rag/pkg/llm"
)

func cosine(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

func TestDeterministic(t *testing.T) {
	p := NewProvider(64)
	ctx := context.Background()

	a, err := p.EmbedSingle(ctx, "Kubernetes is a container orchestration platform.")
	require.NoError(t, err)
	b, err := p.EmbedSingle(ctx, "Kubernetes is a container orchestration platform.")
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.Len(t, a, 64)
	assert.InDelta(t, 1.0, cosine(a, a), 1e-6)
}

func TestSimilarity(t *testing.T) {
	p := NewProvider(DefaultDimension)
	vecs, err := p.Embed(context.Background(), []string{
		"What is Kubernetes?",
		"Kubernetes is a container orchestration platform.",
		"Bananas are rich in potassium.",
	})
	require.NoError(t, err)

	assert.Greater(t, cosine(vecs[0], vecs[1]), cosine(vecs[0], vecs[2]))
}

func TestStopwordsOnly(t *testing.T) {
	p := NewProvider(16)
	v, err := p.EmbedSingle(context.Background(), "what is the")
	require.NoError(t, err)
	assert.Equal(t, make([]float32, 16), v)
}

func TestCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewProvider(8).Embed(ctx, []string{"x"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRegistered(t *testing.T) {
	e, err := llm.NewEmbeddingProvider(ProviderName, map[string]any{"dimension": 32})
	require.NoError(t, err)
	v, err := e.EmbedSingle(context.Background(), "milvus")
	require.NoError(t, err)
	assert.Len(t, v, 32)
}
