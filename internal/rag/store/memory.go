package store

import (
	"context"
	"sync"

	"github.com/kart-io/sentinel-rag/pkg/llm"
)

type memoryEntry struct {
	doc    Document
	vector []float32
}

// MemoryStore 基于内存的文档存储, 进程退出后数据丢失。
type MemoryStore struct {
	embedder llm.EmbeddingProvider

	mu      sync.RWMutex
	entries map[string]memoryEntry
}

// NewMemoryStore 创建内存存储。
func NewMemoryStore(embedder llm.EmbeddingProvider) *MemoryStore {
	return &MemoryStore{
		embedder: embedder,
		entries:  make(map[string]memoryEntry),
	}
}

// Insert 写入文档。
func (s *MemoryStore) Insert(ctx context.Context, text, docID string) (string, error) {
	if err := ValidateText(text); err != nil {
		return "", err
	}
	if err := ValidateID(docID); err != nil {
		return "", err
	}

	vec, err := s.embedder.EmbedSingle(ctx, text)
	if err != nil {
		return "", unavailable(err)
	}

	docID = resolveID(docID)

	s.mu.Lock()
	s.entries[docID] = memoryEntry{
		doc:    Document{ID: docID, Text: text},
		vector: vec,
	}
	s.mu.Unlock()

	return docID, nil
}

// NearestNeighbor 暴力计算余弦相似度。
func (s *MemoryStore) NearestNeighbor(ctx context.Context, question string, k int) ([]Match, error) {
	if err := ValidateQuestion(question); err != nil {
		return nil, err
	}

	s.mu.RLock()
	empty := len(s.entries) == 0
	s.mu.RUnlock()
	if empty {
		return []Match{}, nil
	}

	qv, err := s.embedder.EmbedSingle(ctx, question)
	if err != nil {
		return nil, unavailable(err)
	}

	s.mu.RLock()
	matches := make([]Match, 0, len(s.entries))
	for _, e := range s.entries {
		matches = append(matches, Match{
			Document: e.doc,
			Score:    cosine(qv, e.vector),
		})
	}
	s.mu.RUnlock()

	return rank(matches, normalizeK(k)), nil
}

// Count 返回文档数量。
func (s *MemoryStore) Count(context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.entries)), nil
}

// Close 无需释放资源。
func (s *MemoryStore) Close(context.Context) error {
	return nil
}

var _ DocumentStore = (*MemoryStore)(nil)
