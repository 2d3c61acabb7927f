package biz

import (
	"context"

	"github.com/kart-io/logger"

	"github.com/kart-io/sentinel-rag/internal/rag/store"
)

// RetrieverConfig 检索器配置。
type RetrieverConfig struct {
	// MinScore 最低相似度, 0 表示不设阈值, 任意 top-1 结果都会被采用。
	MinScore float32
}

// RetrievalResult 表示一次检索的结论, 只有 Found 和 NotFound 两种状态。
type RetrievalResult struct {
	found   bool
	context string

	// DocumentID 命中文档 ID, NotFound 时为空。
	DocumentID string
	// Score 命中文档的相似度。
	Score float32
}

// Found 构造命中结果。
func Found(context, documentID string, score float32) *RetrievalResult {
	return &RetrievalResult{
		found:      true,
		context:    context,
		DocumentID: documentID,
		Score:      score,
	}
}

// NotFound 构造未命中结果。
func NotFound() *RetrievalResult {
	return &RetrievalResult{}
}

// Found 返回是否检索到可用上下文。
func (r *RetrievalResult) Found() bool { return r.found }

// Context 返回检索到的文档内容, NotFound 时为空串。
func (r *RetrievalResult) Context() string { return r.context }

// Retriever 负责文档检索。
type Retriever struct {
	store  store.DocumentStore
	config RetrieverConfig
}

// NewRetriever 创建检索器实例。
func NewRetriever(documentStore store.DocumentStore, config RetrieverConfig) *Retriever {
	return &Retriever{
		store:  documentStore,
		config: config,
	}
}

// Retrieve 执行检索。问题为空时直接返回校验错误, 不访问存储。
func (r *Retriever) Retrieve(ctx context.Context, question string) (*RetrievalResult, error) {
	if err := store.ValidateQuestion(question); err != nil {
		return nil, err
	}

	matches, err := r.store.NearestNeighbor(ctx, question, 1)
	if err != nil {
		return nil, err
	}
	return r.decide(matches), nil
}

func (r *Retriever) decide(matches []store.Match) *RetrievalResult {
	if len(matches) == 0 {
		return NotFound()
	}

	top := matches[0]
	if isBlank(top.Text) {
		logger.Warnw("Top document has empty text", "document_id", top.ID)
		return NotFound()
	}

	if r.config.MinScore > 0 && top.Score < r.config.MinScore {
		logger.Debugw("Top document below similarity threshold",
			"document_id", top.ID,
			"score", top.Score,
			"min_score", r.config.MinScore,
		)
		return NotFound()
	}

	return Found(top.Text, top.ID, top.Score)
}
