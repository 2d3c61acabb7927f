package store

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/sentinel-rag/pkg/component/sqlite"
	"github.com/kart-io/sentinel-rag/pkg/id"
	"github.com/kart-io/sentinel-rag/pkg/llm/hash"
	sqliteopts "github.com/kart-io/sentinel-rag/pkg/options/sqlite"
	apierrors "github.com/kart-io/sentinel-rag/pkg/utils/errors"
)

// failingEmbedder 模拟不可用的 Embedding 服务。
type failingEmbedder struct{}

func (failingEmbedder) Name() string { return "failing" }

func (failingEmbedder) Embed(context.Context, []string) ([][]float32, error) {
	return nil, errors.New("connection refused")
}

func (failingEmbedder) EmbedSingle(context.Context, string) ([]float32, error) {
	return nil, errors.New("connection refused")
}

type storeFactory func(t *testing.T) DocumentStore

func backends() map[string]storeFactory {
	return map[string]storeFactory{
		"memory": func(t *testing.T) DocumentStore {
			return NewMemoryStore(hash.NewProvider(256))
		},
		"sqlite": func(t *testing.T) DocumentStore {
			opts := sqliteopts.NewOptions()
			opts.Path = filepath.Join(t.TempDir(), "rag.db")
			opts.LogLevel = 1

			client, err := sqlite.New(context.Background(), opts)
			require.NoError(t, err)

			s, err := NewSQLiteStore(context.Background(), client, hash.NewProvider(256), "documents")
			require.NoError(t, err)
			t.Cleanup(func() { _ = s.Close(context.Background()) })
			return s
		},
	}
}

func TestInsertThenNearestNeighbor(t *testing.T) {
	texts := []string{
		"Kubernetes is a container orchestration platform.",
		"Redis is an in-memory key value store.",
		"Milvus is a vector database built for similarity search.",
	}

	for name, newStore := range backends() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := newStore(t)

			ids := make(map[string]string)
			for _, text := range texts {
				docID, err := s.Insert(ctx, text, "")
				require.NoError(t, err)
				assert.True(t, id.IsValidUUID(docID))
				ids[text] = docID
			}

			for _, text := range texts {
				matches, err := s.NearestNeighbor(ctx, text, 1)
				require.NoError(t, err)
				require.Len(t, matches, 1)
				assert.Equal(t, ids[text], matches[0].ID)
				assert.Equal(t, text, matches[0].Text)
			}

			n, err := s.Count(ctx)
			require.NoError(t, err)
			assert.Equal(t, int64(len(texts)), n)
		})
	}
}

func TestInsertRejectsBlankText(t *testing.T) {
	for name, newStore := range backends() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := newStore(t)

			for _, text := range []string{"", "   ", "\n\t"} {
				_, err := s.Insert(ctx, text, "")
				require.Error(t, err)
				assert.True(t, apierrors.IsValidation(err), "text %q", text)
			}

			_, err := s.NearestNeighbor(ctx, " ", 1)
			assert.True(t, apierrors.IsValidation(err))

			n, err := s.Count(ctx)
			require.NoError(t, err)
			assert.Zero(t, n)
		})
	}
}

func TestInsertRejectsLongID(t *testing.T) {
	s := NewMemoryStore(hash.NewProvider(64))
	_, err := s.Insert(context.Background(), "text", strings.Repeat("x", MaxIDLength+1))
	assert.True(t, apierrors.IsValidation(err))
}

func TestEmptyStore(t *testing.T) {
	for name, newStore := range backends() {
		t.Run(name, func(t *testing.T) {
			matches, err := newStore(t).NearestNeighbor(context.Background(), "anything", 1)
			require.NoError(t, err)
			assert.NotNil(t, matches)
			assert.Empty(t, matches)
		})
	}
}

func TestCallerIDLastWriteWins(t *testing.T) {
	for name, newStore := range backends() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := newStore(t)

			docID, err := s.Insert(ctx, "first version about kubernetes", "k8s")
			require.NoError(t, err)
			assert.Equal(t, "k8s", docID)

			_, err = s.Insert(ctx, "second version about kubernetes", "k8s")
			require.NoError(t, err)

			n, err := s.Count(ctx)
			require.NoError(t, err)
			assert.Equal(t, int64(1), n)

			matches, err := s.NearestNeighbor(ctx, "kubernetes", 1)
			require.NoError(t, err)
			require.Len(t, matches, 1)
			assert.Equal(t, "second version about kubernetes", matches[0].Text)
		})
	}
}

func TestNearestNeighborDeterministic(t *testing.T) {
	for name, newStore := range backends() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := newStore(t)

			for _, text := range []string{"alpha beta", "beta gamma", "gamma delta", "delta alpha"} {
				_, err := s.Insert(ctx, text, "")
				require.NoError(t, err)
			}

			first, err := s.NearestNeighbor(ctx, "beta", 1)
			require.NoError(t, err)
			require.Len(t, first, 1)

			for i := 0; i < 10; i++ {
				again, err := s.NearestNeighbor(ctx, "beta", 1)
				require.NoError(t, err)
				assert.Equal(t, first[0].ID, again[0].ID)
			}
		})
	}
}

func TestNearestNeighborOrdering(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(hash.NewProvider(256))

	for _, text := range []string{"redis cache", "kubernetes pods", "kubernetes pods scheduling nodes"} {
		_, err := s.Insert(ctx, text, "")
		require.NoError(t, err)
	}

	matches, err := s.NearestNeighbor(ctx, "kubernetes pods", 3)
	require.NoError(t, err)
	require.Len(t, matches, 3)
	assert.Equal(t, "kubernetes pods", matches[0].Text)
	for i := 1; i < len(matches); i++ {
		assert.GreaterOrEqual(t, matches[i-1].Score, matches[i].Score)
	}

	// k <= 0 按 1 处理
	matches, err = s.NearestNeighbor(ctx, "kubernetes pods", 0)
	require.NoError(t, err)
	assert.Len(t, matches, 1)
}

func TestEmbedderFailure(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(failingEmbedder{})

	_, err := s.Insert(ctx, "some text", "")
	require.Error(t, err)
	assert.True(t, apierrors.IsStoreUnavailable(err))

	s.entries["seed"] = memoryEntry{doc: Document{ID: "seed", Text: "seed"}, vector: []float32{1}}
	_, err = s.NearestNeighbor(ctx, "question", 1)
	assert.True(t, apierrors.IsStoreUnavailable(err))
}

func TestConcurrentInsert(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(hash.NewProvider(64))

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.Insert(ctx, "concurrent document", "")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(20), n)
}

func TestNewUnsupportedBackend(t *testing.T) {
	_, err := New(context.Background(), Config{Backend: "faiss"}, hash.NewProvider(8))
	assert.Error(t, err)

	_, err = New(context.Background(), Config{Backend: "memory"}, nil)
	assert.Error(t, err)
}

func TestNewMemoryBackend(t *testing.T) {
	s, err := New(context.Background(), Config{Backend: "memory"}, hash.NewProvider(8))
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, s)
}

func TestCosine(t *testing.T) {
	assert.InDelta(t, 1.0, cosine([]float32{1, 0}, []float32{2, 0}), 1e-6)
	assert.InDelta(t, 0.0, cosine([]float32{1, 0}, []float32{0, 1}), 1e-6)
	assert.Zero(t, cosine([]float32{1}, []float32{1, 2}))
	assert.Zero(t, cosine([]float32{0, 0}, []float32{1, 1}))
}
