package biz

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/sentinel-rag/internal/rag/metrics"
	"github.com/kart-io/sentinel-rag/internal/rag/store"
	"github.com/kart-io/sentinel-rag/pkg/id"
	"github.com/kart-io/sentinel-rag/pkg/infra/pool"
	"github.com/kart-io/sentinel-rag/pkg/llm"
	"github.com/kart-io/sentinel-rag/pkg/llm/hash"
	apierrors "github.com/kart-io/sentinel-rag/pkg/utils/errors"
)

func newTestService(t *testing.T, gen *recordingGenerator) (*RAGService, store.DocumentStore) {
	t.Helper()
	s := store.NewMemoryStore(hash.NewProvider(256))
	svc := NewRAGService(s, gen, nil, metrics.New("test", prometheus.NewRegistry()), &ServiceConfig{
		Backend:           "memory",
		EmbeddingProvider: "hash",
	})
	return svc, s
}

func TestAddKnowledgeThenQuery(t *testing.T) {
	ctx := context.Background()
	gen := &recordingGenerator{answer: "stubbed answer"}
	svc, _ := newTestService(t, gen)

	added, err := svc.AddKnowledge(ctx, "Kubernetes is a container orchestration platform.")
	require.NoError(t, err)
	assert.True(t, id.IsValidUUID(added.ID))

	res, err := svc.Query(ctx, "What is Kubernetes?")
	require.NoError(t, err)
	assert.Equal(t, "stubbed answer", res.Answer)
	assert.Equal(t, added.ID, res.DocumentID)

	require.Len(t, gen.calls(), 1)
	assert.Equal(t,
		"Context:\nKubernetes is a container orchestration platform.\n\nQuestion: What is Kubernetes?\n\nAnswer clearly and concisely:",
		gen.calls()[0],
	)
}

func TestQueryEmptyStoreNeverCallsComposer(t *testing.T) {
	gen := &recordingGenerator{answer: "should not be used"}
	svc, _ := newTestService(t, gen)

	_, err := svc.Query(context.Background(), "anything")
	require.Error(t, err)
	assert.True(t, apierrors.IsNotFound(err))
	assert.Empty(t, gen.calls())
}

func TestAddKnowledgeRejectsBlank(t *testing.T) {
	ctx := context.Background()
	svc, s := newTestService(t, &recordingGenerator{})

	for _, text := range []string{"", "   "} {
		_, err := svc.AddKnowledge(ctx, text)
		assert.True(t, apierrors.IsValidation(err))
	}

	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestQueryRejectsBlank(t *testing.T) {
	gen := &recordingGenerator{}
	svc, _ := newTestService(t, gen)

	_, err := svc.Query(context.Background(), " \t")
	assert.True(t, apierrors.IsValidation(err))
	assert.Empty(t, gen.calls())
}

func TestQueryGenerationError(t *testing.T) {
	ctx := context.Background()
	gen := &recordingGenerator{err: assert.AnError}
	svc, _ := newTestService(t, gen)

	_, err := svc.AddKnowledge(ctx, "Redis is an in-memory data store.")
	require.NoError(t, err)

	_, err = svc.Query(ctx, "What is Redis?")
	assert.True(t, apierrors.IsGeneration(err))

	stats, err := svc.Stats(ctx)
	require.NoError(t, err)
	queries := stats["metrics"].(map[string]interface{})["queries"].(map[string]interface{})
	assert.Equal(t, uint64(1), queries["errors"])
}

func TestQueryStoreUnavailable(t *testing.T) {
	s := &stubStore{err: apierrors.ErrRAGStoreUnavailable.WithCause(assert.AnError)}
	svc := NewRAGService(s, &recordingGenerator{}, nil, nil, nil)

	_, err := svc.Query(context.Background(), "question")
	assert.True(t, apierrors.IsStoreUnavailable(err))
}

func TestQueryCallerDeadline(t *testing.T) {
	s := &stubStore{err: apierrors.ErrRAGStoreUnavailable.WithCause(context.DeadlineExceeded)}
	svc := NewRAGService(s, &recordingGenerator{}, nil, nil, nil)

	ctx, cancel := context.WithTimeout(context.Background(), time.Nanosecond)
	defer cancel()
	<-ctx.Done()

	_, err := svc.Query(ctx, "question")
	assert.True(t, apierrors.Is(err, apierrors.ErrRAGQueryTimeout))
	assert.True(t, apierrors.IsStoreUnavailable(err), "cause stays in the chain")
}

func TestQueryMinScoreThreshold(t *testing.T) {
	gen := &recordingGenerator{answer: "unused"}
	s := &stubStore{matches: []store.Match{match("a", "weak match", 0.1)}}
	svc := NewRAGService(s, gen, nil, nil, &ServiceConfig{
		RetrieverConfig: RetrieverConfig{MinScore: 0.3},
	})

	_, err := svc.Query(context.Background(), "question")
	assert.True(t, apierrors.IsNotFound(err))
	assert.Empty(t, gen.calls())
}

func TestQueryRecordsTokenUsage(t *testing.T) {
	ctx := context.Background()
	gen := &recordingGenerator{
		answer: "ok",
		usage:  &llm.TokenUsage{PromptTokens: 12, CompletionTokens: 3, TotalTokens: 15},
	}
	svc, _ := newTestService(t, gen)

	_, err := svc.AddKnowledge(ctx, "Milvus stores vectors.")
	require.NoError(t, err)
	_, err = svc.Query(ctx, "Where are vectors stored?")
	require.NoError(t, err)

	stats, err := svc.Stats(ctx)
	require.NoError(t, err)
	gstats := stats["metrics"].(map[string]interface{})["generation"].(map[string]interface{})
	assert.Equal(t, uint64(12), gstats["tokens_prompt"])
	assert.Equal(t, uint64(3), gstats["tokens_completion"])
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestIngestFile(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	svc, s := newTestService(t, &recordingGenerator{})

	path := writeFile(t, dir, "k8s.txt", "Kubernetes is a container orchestration platform.")

	res, err := svc.IngestFile(ctx, path, "")
	require.NoError(t, err)
	assert.Equal(t, "k8s", res.ID)

	res, err = svc.IngestFile(ctx, path, "custom")
	require.NoError(t, err)
	assert.Equal(t, "custom", res.ID)

	// 同名文件重复导入覆盖, 不新增
	_, err = svc.IngestFile(ctx, path, "")
	require.NoError(t, err)
	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

func TestIngestFileErrors(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	svc, _ := newTestService(t, &recordingGenerator{})

	_, err := svc.IngestFile(ctx, filepath.Join(dir, "missing.txt"), "")
	assert.True(t, apierrors.Is(err, apierrors.ErrRAGFileNotFound))

	empty := writeFile(t, dir, "empty.txt", " \n ")
	_, err = svc.IngestFile(ctx, empty, "")
	assert.True(t, apierrors.IsValidation(err))
	assert.ErrorContains(t, err, "is empty")
}

func TestIngestFiles(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	workers, err := pool.NewPool("ingest", pool.IngestPoolConfig(2))
	require.NoError(t, err)
	defer workers.Release()

	s := store.NewMemoryStore(hash.NewProvider(128))
	svc := NewRAGService(s, &recordingGenerator{}, workers, nil, &ServiceConfig{Backend: "memory"})

	paths := []string{
		writeFile(t, dir, "a.txt", "alpha document"),
		writeFile(t, dir, "b.md", "beta document"),
		filepath.Join(dir, "missing.txt"),
		writeFile(t, dir, "c.txt", "gamma document"),
	}

	results, err := svc.IngestFiles(ctx, paths)
	require.Error(t, err)
	require.Len(t, results, 4)

	assert.Equal(t, "a", results[0].ID)
	assert.Equal(t, "b", results[1].ID)
	assert.Error(t, results[2].Err)
	assert.Equal(t, "c", results[3].ID)

	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	stats, err := svc.Stats(ctx)
	require.NoError(t, err)
	assert.Contains(t, stats, "ingest_pool")
}

func TestIngestFilesAllSucceed(t *testing.T) {
	dir := t.TempDir()
	svc, _ := newTestService(t, &recordingGenerator{})

	results, err := svc.IngestFiles(context.Background(), []string{
		writeFile(t, dir, "one.txt", "first"),
		writeFile(t, dir, "two.txt", "second"),
	})
	require.NoError(t, err)
	assert.Equal(t, "one", results[0].ID)
	assert.Equal(t, "two", results[1].ID)
}

func TestDocumentIDFromPath(t *testing.T) {
	assert.Equal(t, "k8s", DocumentIDFromPath("k8s.txt"))
	assert.Equal(t, "notes.v2", DocumentIDFromPath("/data/notes.v2.md"))
	assert.Equal(t, "README", DocumentIDFromPath("README"))
}

func TestStats(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t, &recordingGenerator{})

	_, err := svc.AddKnowledge(ctx, "one document")
	require.NoError(t, err)

	stats, err := svc.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, "memory", stats["store"])
	assert.Equal(t, int64(1), stats["document_count"])
	assert.Equal(t, "hash", stats["embedding_provider"])
	assert.Equal(t, "recording", stats["generation_provider"])
}

func TestStatsUnavailable(t *testing.T) {
	svc := NewRAGService(&stubStore{err: assert.AnError}, &recordingGenerator{}, nil, nil, nil)
	_, err := svc.Stats(context.Background())
	assert.True(t, apierrors.Is(err, apierrors.ErrRAGStatsUnavailable))
}
