package store

import (
	"context"
	"fmt"

	"github.com/kart-io/sentinel-rag/pkg/component/milvus"
	"github.com/kart-io/sentinel-rag/pkg/llm"
)

// MilvusStore 基于 Milvus 的文档存储。
type MilvusStore struct {
	client     *milvus.Client
	embedder   llm.EmbeddingProvider
	collection string
	dimension  int
}

// MilvusConfig Milvus 存储配置。
type MilvusConfig struct {
	Collection       string
	Dimension        int
	MaxContentLength int
}

// NewMilvusStore 创建 Milvus 存储, 集合不存在时自动创建。
func NewMilvusStore(ctx context.Context, client *milvus.Client, embedder llm.EmbeddingProvider, cfg MilvusConfig) (*MilvusStore, error) {
	if cfg.Dimension <= 0 {
		return nil, fmt.Errorf("invalid embedding dimension %d", cfg.Dimension)
	}

	err := client.EnsureCollection(ctx, &milvus.CollectionSchema{
		Name:             cfg.Collection,
		Description:      "RAG knowledge base",
		Dimension:        cfg.Dimension,
		MaxIDLength:      MaxIDLength,
		MaxContentLength: cfg.MaxContentLength,
	})
	if err != nil {
		return nil, err
	}

	return &MilvusStore{
		client:     client,
		embedder:   embedder,
		collection: cfg.Collection,
		dimension:  cfg.Dimension,
	}, nil
}

func (s *MilvusStore) embed(ctx context.Context, text string) ([]float32, error) {
	vec, err := s.embedder.EmbedSingle(ctx, text)
	if err != nil {
		return nil, unavailable(err)
	}
	if len(vec) != s.dimension {
		return nil, unavailable(fmt.Errorf("embedding dimension mismatch: got %d, want %d", len(vec), s.dimension))
	}
	return vec, nil
}

// Insert 写入文档, Upsert 后 Flush, 返回时即可检索。
func (s *MilvusStore) Insert(ctx context.Context, text, docID string) (string, error) {
	if err := ValidateText(text); err != nil {
		return "", err
	}
	if err := ValidateID(docID); err != nil {
		return "", err
	}

	vec, err := s.embed(ctx, text)
	if err != nil {
		return "", err
	}

	docID = resolveID(docID)
	if err := s.client.Upsert(ctx, s.collection, []string{docID}, []string{text}, [][]float32{vec}); err != nil {
		return "", unavailable(err)
	}
	return docID, nil
}

// NearestNeighbor 返回最相似的 k 条文档。
func (s *MilvusStore) NearestNeighbor(ctx context.Context, question string, k int) ([]Match, error) {
	if err := ValidateQuestion(question); err != nil {
		return nil, err
	}

	vec, err := s.embed(ctx, question)
	if err != nil {
		return nil, err
	}

	hits, err := s.client.Search(ctx, s.collection, vec, normalizeK(k))
	if err != nil {
		return nil, unavailable(err)
	}

	matches := make([]Match, 0, len(hits))
	for _, h := range hits {
		matches = append(matches, Match{
			Document: Document{ID: h.ID, Text: h.Content},
			Score:    h.Score,
		})
	}
	return rank(matches, normalizeK(k)), nil
}

// Count 返回集合中的文档数量。
func (s *MilvusStore) Count(ctx context.Context) (int64, error) {
	n, err := s.client.Count(ctx, s.collection)
	if err != nil {
		return 0, unavailable(err)
	}
	return n, nil
}

// Close 关闭 Milvus 连接。
func (s *MilvusStore) Close(ctx context.Context) error {
	return s.client.Close(ctx)
}

var _ DocumentStore = (*MilvusStore)(nil)
