package resilience

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/sentinel-rag/pkg/llm"
	"github.com/kart-io/sentinel-rag/pkg/utils/httpclient"
)

type flakyEmbedder struct {
	failures int
	calls    int
}

func (f *flakyEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	f.calls++
	if f.calls <= f.failures {
		return nil, &httpclient.StatusError{StatusCode: http.StatusServiceUnavailable, Body: "overloaded"}
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{1}
	}
	return out, nil
}

func (f *flakyEmbedder) EmbedSingle(ctx context.Context, text string) ([]float32, error) {
	v, err := f.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return v[0], nil
}

func (f *flakyEmbedder) Name() string { return "flaky" }

type failingGenerator struct {
	calls int
	err   error
}

func (f *failingGenerator) Generate(context.Context, string, string) (*llm.GenerateResponse, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &llm.GenerateResponse{Content: "ok"}, nil
}

func (f *failingGenerator) Name() string { return "failing" }

func TestResilientEmbeddingProviderRetries(t *testing.T) {
	inner := &flakyEmbedder{failures: 2}
	p := NewResilientEmbeddingProvider(inner, fastRetry(3), nil)

	v, err := p.EmbedSingle(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, []float32{1}, v)
	assert.Equal(t, 3, inner.calls)
	assert.Equal(t, "flaky", p.Name())
	assert.Equal(t, "embedding", p.Breaker().Name())
	assert.Equal(t, StateClosed, p.Breaker().State())
}

func TestResilientEmbeddingProviderStopsWhenOpen(t *testing.T) {
	inner := &flakyEmbedder{failures: 100}
	p := NewResilientEmbeddingProvider(inner, fastRetry(5), &BreakerConfig{MaxFailures: 2, Cooldown: time.Minute})

	_, err := p.Embed(context.Background(), []string{"a"})
	assert.ErrorIs(t, err, ErrBreakerOpen)
	assert.Equal(t, 2, inner.calls)
}

func TestGuardedGenerationProviderNoRetry(t *testing.T) {
	inner := &failingGenerator{err: &httpclient.StatusError{StatusCode: http.StatusInternalServerError}}
	g := NewGuardedGenerationProvider(inner, &BreakerConfig{MaxFailures: 2, Cooldown: time.Minute})

	_, err := g.Generate(context.Background(), "p", "")
	require.Error(t, err)
	assert.Equal(t, 1, inner.calls)

	_, _ = g.Generate(context.Background(), "p", "")
	assert.Equal(t, StateOpen, g.Breaker().State())

	_, err = g.Generate(context.Background(), "p", "")
	assert.ErrorIs(t, err, ErrBreakerOpen)
	assert.Equal(t, 2, inner.calls)
	assert.NoError(t, g.Ping(context.Background()))
}

func TestBreakerOfAndChecker(t *testing.T) {
	g := NewGuardedGenerationProvider(&failingGenerator{err: errTransient}, &BreakerConfig{MaxFailures: 1, Cooldown: time.Minute})
	b := BreakerOf(g)
	require.NotNil(t, b)
	assert.Nil(t, BreakerOf(&failingGenerator{}))

	check := b.Checker()
	assert.NoError(t, check(context.Background()))

	_, _ = g.Generate(context.Background(), "p", "")
	assert.ErrorIs(t, check(context.Background()), ErrBreakerOpen)
}
