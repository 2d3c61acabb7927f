package biz

import (
	"context"
	stderrors "errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	utilerrors "k8s.io/apimachinery/pkg/util/errors"

	"github.com/kart-io/sentinel-rag/internal/rag/metrics"
	"github.com/kart-io/sentinel-rag/internal/rag/store"
	infralog "github.com/kart-io/sentinel-rag/pkg/infra/logger"
	"github.com/kart-io/sentinel-rag/pkg/infra/pool"
	"github.com/kart-io/sentinel-rag/pkg/infra/tracing"
	"github.com/kart-io/sentinel-rag/pkg/llm"
	"github.com/kart-io/sentinel-rag/pkg/utils/errors"
)

// Service 定义 RAG 服务接口。
type Service interface {
	// AddKnowledge 写入一段知识, ID 自动生成。
	AddKnowledge(ctx context.Context, text string) (*AddResult, error)
	// AddDocument 以指定 ID 写入文档, 同 ID 覆盖。
	AddDocument(ctx context.Context, text, id string) (*AddResult, error)
	// Query 检索上下文并生成答案。
	Query(ctx context.Context, question string) (*QueryResult, error)
	// IngestFile 导入单个文本文件。
	IngestFile(ctx context.Context, path, id string) (*IngestResult, error)
	// IngestFiles 并发导入多个文件。
	IngestFiles(ctx context.Context, paths []string) ([]*IngestResult, error)
	// Stats 获取知识库统计信息。
	Stats(ctx context.Context) (map[string]any, error)
}

// AddResult 写入结果。
type AddResult struct {
	ID string `json:"id"`
}

// QueryResult 问答结果。
type QueryResult struct {
	Answer     string  `json:"answer"`
	DocumentID string  `json:"document_id,omitempty"`
	Score      float32 `json:"score"`
}

// IngestResult 单个文件的导入结果。
type IngestResult struct {
	Path string `json:"path"`
	ID   string `json:"id,omitempty"`
	Err  error  `json:"-"`
}

// ServiceConfig RAG 服务配置。
type ServiceConfig struct {
	// Backend 存储后端名称, 仅用于统计展示。
	Backend string
	// EmbeddingProvider Embedding 供应商名称, 仅用于统计展示。
	EmbeddingProvider string
	// RetrieverConfig 检索配置。
	RetrieverConfig RetrieverConfig
}

// RAGService 组合 Retriever 和 Composer 提供完整的 RAG 服务。
type RAGService struct {
	store     store.DocumentStore
	retriever *Retriever
	composer  *Composer
	generator llm.GenerationProvider
	workers   *pool.Pool
	metrics   *metrics.RAGMetrics
	config    *ServiceConfig
}

// NewRAGService 创建 RAG 服务实例。
// workers 为 nil 时批量导入顺序执行; m 为 nil 时指标只在内存中统计。
func NewRAGService(
	documentStore store.DocumentStore,
	generator llm.GenerationProvider,
	workers *pool.Pool,
	m *metrics.RAGMetrics,
	config *ServiceConfig,
) *RAGService {
	if config == nil {
		config = &ServiceConfig{}
	}
	if m == nil {
		m = metrics.New("", nil)
	}
	return &RAGService{
		store:     documentStore,
		retriever: NewRetriever(documentStore, config.RetrieverConfig),
		composer:  NewComposer(generator),
		generator: generator,
		workers:   workers,
		metrics:   m,
		config:    config,
	}
}

// AddKnowledge 写入一段知识, ID 自动生成。
func (s *RAGService) AddKnowledge(ctx context.Context, text string) (*AddResult, error) {
	return s.insert(ctx, text, "", metrics.SourceAPI)
}

// AddDocument 以指定 ID 写入文档。
func (s *RAGService) AddDocument(ctx context.Context, text, id string) (*AddResult, error) {
	return s.insert(ctx, text, id, metrics.SourceIngest)
}

func (s *RAGService) insert(ctx context.Context, text, id, source string) (*AddResult, error) {
	ctx, span := tracing.StartSpan(ctx, "rag.insert")
	defer span.End()

	docID, err := s.store.Insert(ctx, text, id)
	if err != nil {
		if !errors.IsValidation(err) {
			s.metrics.RecordInsert(source, err)
			tracing.RecordError(ctx, err)
			infralog.LogError(ctx, "Failed to insert document", err, "origin", source)
		}
		return nil, err
	}

	s.metrics.RecordInsert(source, nil)
	span.SetAttributes(tracing.String(tracing.RAGDocumentID, docID))
	infralog.LogInfo(ctx, "Document stored", "id", docID, "origin", source, "length", len(text))
	return &AddResult{ID: docID}, nil
}

// Query 执行 RAG 查询。未检索到上下文时返回 ErrRAGNoContext, 不调用生成后端。
func (s *RAGService) Query(ctx context.Context, question string) (*QueryResult, error) {
	ctx, span := tracing.StartSpan(ctx, "rag.query")
	defer span.End()

	if err := store.ValidateQuestion(question); err != nil {
		s.metrics.RecordQuery(metrics.OutcomeInvalid)
		return nil, err
	}

	// 1. 检索
	retrievalStart := time.Now()
	retrieval, err := s.retriever.Retrieve(ctx, question)
	s.metrics.RecordRetrieval(time.Since(retrievalStart), err)
	if err != nil {
		s.metrics.RecordQuery(metrics.OutcomeError)
		tracing.RecordError(ctx, err)
		infralog.LogError(ctx, "Retrieval failed", err)
		return nil, deadlineError(ctx, err)
	}

	span.SetAttributes(tracing.Bool(tracing.RAGFound, retrieval.Found()))
	if !retrieval.Found() {
		s.metrics.RecordQuery(metrics.OutcomeNotFound)
		return nil, errors.ErrRAGNoContext
	}
	span.SetAttributes(
		tracing.String(tracing.RAGDocumentID, retrieval.DocumentID),
		tracing.Float64(tracing.RAGScore, float64(retrieval.Score)),
	)

	// 2. 生成
	genStart := time.Now()
	resp, err := s.composer.Generate(ctx, question, retrieval.Context())
	promptTokens, completionTokens := 0, 0
	if resp != nil && resp.TokenUsage != nil {
		promptTokens = resp.TokenUsage.PromptTokens
		completionTokens = resp.TokenUsage.CompletionTokens
	}
	s.metrics.RecordGeneration(time.Since(genStart), promptTokens, completionTokens, err)
	if err != nil {
		s.metrics.RecordQuery(metrics.OutcomeError)
		tracing.RecordError(ctx, err)
		return nil, deadlineError(ctx, err)
	}

	s.metrics.RecordQuery(metrics.OutcomeAnswered)
	tracing.SetSpanOK(ctx)

	return &QueryResult{
		Answer:     resp.Content,
		DocumentID: retrieval.DocumentID,
		Score:      retrieval.Score,
	}, nil
}

// deadlineError 调用方的 deadline 已过时返回 ErrRAGQueryTimeout, 其余错误原样返回。
// 后端自身的超时不受影响, 仍按存储或生成错误处理。
func deadlineError(ctx context.Context, err error) error {
	if stderrors.Is(ctx.Err(), context.DeadlineExceeded) {
		return errors.ErrRAGQueryTimeout.WithCause(err)
	}
	return err
}

// IngestFile 导入单个文本文件, id 为空时取文件名（不含扩展名）。
func (s *RAGService) IngestFile(ctx context.Context, path, id string) (*IngestResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if stderrors.Is(err, fs.ErrNotExist) {
			return nil, errors.ErrRAGFileNotFound.WithMessagef("File not found: %s", path)
		}
		return nil, errors.ErrInternal.WithCause(err)
	}

	text := string(data)
	if strings.TrimSpace(text) == "" {
		return nil, errors.ErrRAGValidation.WithMessagef("File %s is empty", path)
	}

	if id == "" {
		id = DocumentIDFromPath(path)
	}

	res, err := s.AddDocument(ctx, text, id)
	if err != nil {
		return nil, err
	}
	return &IngestResult{Path: path, ID: res.ID}, nil
}

// IngestFiles 并发导入多个文件, 返回逐个文件的结果和聚合错误。
func (s *RAGService) IngestFiles(ctx context.Context, paths []string) ([]*IngestResult, error) {
	results := make([]*IngestResult, len(paths))
	tasks := make([]func(context.Context) error, len(paths))
	for i, path := range paths {
		i, path := i, path
		results[i] = &IngestResult{Path: path}
		tasks[i] = func(ctx context.Context) error {
			res, err := s.IngestFile(ctx, path, "")
			if err != nil {
				return err
			}
			results[i].ID = res.ID
			return nil
		}
	}

	var errs []error
	if s.workers != nil {
		errs = s.workers.RunAll(ctx, tasks)
	} else {
		errs = make([]error, len(tasks))
		for i, task := range tasks {
			errs[i] = task(ctx)
		}
	}

	var failed []error
	for i, err := range errs {
		if err != nil {
			results[i].Err = err
			failed = append(failed, err)
		}
	}
	return results, utilerrors.NewAggregate(failed)
}

// DocumentIDFromPath 返回不含扩展名的文件名。
func DocumentIDFromPath(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// Stats 获取知识库统计信息。
func (s *RAGService) Stats(ctx context.Context) (map[string]any, error) {
	count, err := s.store.Count(ctx)
	if err != nil {
		return nil, errors.ErrRAGStatsUnavailable.WithCause(err)
	}

	stats := map[string]any{
		"store":               s.config.Backend,
		"document_count":      count,
		"embedding_provider":  s.config.EmbeddingProvider,
		"generation_provider": s.generator.Name(),
		"min_score":           s.config.RetrieverConfig.MinScore,
		"metrics":             s.metrics.Stats(),
	}
	if s.workers != nil {
		stats["ingest_pool"] = s.workers.Stats()
	}
	return stats, nil
}

var _ Service = (*RAGService)(nil)
