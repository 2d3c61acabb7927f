package ragsvc

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/sentinel-rag/internal/rag/biz"
	"github.com/kart-io/sentinel-rag/internal/rag/store"
	"github.com/kart-io/sentinel-rag/pkg/infra/middleware"
	"github.com/kart-io/sentinel-rag/pkg/infra/server"
	"github.com/kart-io/sentinel-rag/pkg/infra/tracing"
	"github.com/kart-io/sentinel-rag/pkg/llm"
	"github.com/kart-io/sentinel-rag/pkg/llm/hash"
	cacheopts "github.com/kart-io/sentinel-rag/pkg/options/cache"
	llmopts "github.com/kart-io/sentinel-rag/pkg/options/llm"
	logopts "github.com/kart-io/sentinel-rag/pkg/options/logger"
	middlewareopts "github.com/kart-io/sentinel-rag/pkg/options/middleware"
	milvusopts "github.com/kart-io/sentinel-rag/pkg/options/milvus"
	ragopts "github.com/kart-io/sentinel-rag/pkg/options/rag"
	sqliteopts "github.com/kart-io/sentinel-rag/pkg/options/sqlite"
)

// fakeOllama 模拟 /api/tags 与 /api/generate。
func fakeOllama(t *testing.T, answer string) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/api/tags", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"models":[{"name":"tinyllama"}]}`))
	})
	mux.HandleFunc("/api/generate", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"model":"tinyllama","response":"` + answer + `","done":true}`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestConfig(t *testing.T, generationHost string) *Config {
	t.Helper()

	embedding := llmopts.NewEmbeddingOptions()
	embedding.Provider = hash.ProviderName
	embedding.Dimension = 64

	generation := llmopts.NewGenerationOptions()
	generation.Host = generationHost

	rag := ragopts.NewOptions()
	rag.Store = ragopts.StoreMemory
	rag.EmbeddingDim = 64

	return &Config{
		ServerOptions:     server.NewOptions(),
		MiddlewareOptions: middlewareopts.NewOptions(),
		LogOptions:        logopts.NewOptions(),
		TracingOptions:    tracing.NewOptions(),
		MilvusOptions:     milvusopts.NewOptions(),
		SQLiteOptions:     sqliteopts.NewOptions(),
		CacheOptions:      cacheopts.NewOptions(),
		EmbeddingOptions:  embedding,
		GenerationOptions: generation,
		RAGOptions:        rag,
	}
}

func newTestService(t *testing.T) *biz.RAGService {
	t.Helper()
	s := store.NewMemoryStore(hash.NewProvider(64))
	return biz.NewRAGService(s, &stubGenerator{answer: "ok"}, nil, nil, &biz.ServiceConfig{Backend: "memory"})
}

type stubGenerator struct {
	answer string
	err    error
}

func (g *stubGenerator) Name() string { return "stub" }

func (g *stubGenerator) Generate(context.Context, string, string) (*llm.GenerateResponse, error) {
	if g.err != nil {
		return nil, g.err
	}
	return &llm.GenerateResponse{Content: g.answer}, nil
}

func TestNewComponents(t *testing.T) {
	ctx := context.Background()
	backend := fakeOllama(t, "Kubernetes orchestrates containers.")
	cfg := newTestConfig(t, backend.URL)

	comps, err := newComponents(ctx, cfg)
	require.NoError(t, err)
	defer func() { assert.NoError(t, comps.close(ctx)) }()

	assert.Equal(t, hash.ProviderName, comps.embedder.Name())
	assert.Nil(t, comps.redis)

	added, err := comps.service.AddKnowledge(ctx, "Kubernetes is a container orchestration platform.")
	require.NoError(t, err)
	assert.NotEmpty(t, added.ID)

	res, err := comps.service.Query(ctx, "What is Kubernetes?")
	require.NoError(t, err)
	assert.Equal(t, "Kubernetes orchestrates containers.", res.Answer)

	// RAG 指标注册在共享的 registry 上
	families, err := comps.registry.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)
}

func TestNewComponentsUnknownProvider(t *testing.T) {
	cfg := newTestConfig(t, "localhost:1")
	cfg.GenerationOptions.Provider = "unknown"

	_, err := newComponents(context.Background(), cfg)
	assert.ErrorContains(t, err, "generation provider")
}

func TestRegisterHealthCheckers(t *testing.T) {
	ctx := context.Background()
	cfg := newTestConfig(t, "localhost:1")

	comps, err := newComponents(ctx, cfg)
	require.NoError(t, err)
	defer comps.close(ctx)

	h := middleware.NewHealthManager("test")
	comps.registerHealthCheckers(h)

	resp := h.Check(ctx)
	assert.Equal(t, middleware.HealthStatusUp, resp.Status)
	assert.Contains(t, resp.Checks, "store")
	assert.Contains(t, resp.Checks, "generation")
	assert.NotContains(t, resp.Checks, "embedding")
}

func TestComponentsCloseAggregatesErrors(t *testing.T) {
	var order []int
	c := &components{closers: []func(context.Context) error{
		func(context.Context) error { order = append(order, 1); return errors.New("first") },
		func(context.Context) error { order = append(order, 2); return nil },
		func(context.Context) error { order = append(order, 3); return errors.New("third") },
	}}

	err := c.close(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "first")
	assert.Contains(t, err.Error(), "third")
	assert.Equal(t, []int{3, 2, 1}, order)
	assert.NoError(t, c.close(context.Background()))
}

func TestCheck(t *testing.T) {
	ctx := context.Background()

	t.Run("all ok", func(t *testing.T) {
		backend := fakeOllama(t, "Hello there, how can I help you today?")
		var out bytes.Buffer
		require.NoError(t, newTestConfig(t, backend.URL).RunCheck(ctx, &out))
		assert.Contains(t, out.String(), "Generation: ✓ OK")
		assert.Contains(t, out.String(), "Store has 0 documents")
		assert.Contains(t, out.String(), "App:        ✓ OK")
	})

	t.Run("backend down", func(t *testing.T) {
		backend := fakeOllama(t, "unused")
		backend.Close()

		var out bytes.Buffer
		err := newTestConfig(t, backend.URL).RunCheck(ctx, &out)
		require.Error(t, err)
		assert.Contains(t, out.String(), "Generation: ✗ FAILED")
		assert.Contains(t, out.String(), "Store:      ✓ OK")
		assert.Contains(t, out.String(), "App:        ✗ FAILED")
	})
}

func TestCheckGeneration(t *testing.T) {
	var out bytes.Buffer
	assert.True(t, checkGeneration(context.Background(), &stubGenerator{answer: "hi"}, &out))
	assert.Contains(t, out.String(), "Sample response: hi...")

	out.Reset()
	assert.False(t, checkGeneration(context.Background(), &stubGenerator{err: errors.New("refused")}, &out))
	assert.Contains(t, out.String(), "refused")
}

func TestCheckRoundTrip(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	var out bytes.Buffer
	require.True(t, checkRoundTrip(ctx, svc, &out))
	assert.Contains(t, out.String(), "Query endpoint working")
	assert.Contains(t, out.String(), "Answer: ok...")

	// 重复执行不会累积文档
	require.True(t, checkRoundTrip(ctx, svc, &out))
	stats, err := svc.Stats(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, stats["document_count"])

	failing := biz.NewRAGService(store.NewMemoryStore(hash.NewProvider(64)),
		&stubGenerator{err: errors.New("model not loaded")}, nil, nil, nil)
	out.Reset()
	assert.False(t, checkRoundTrip(ctx, failing, &out))
	assert.Contains(t, out.String(), "Query failed")
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", truncate("abc", 5))
	assert.Equal(t, "知识", truncate("知识库", 2))
}
