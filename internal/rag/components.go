package ragsvc

import (
	"context"
	"fmt"

	"github.com/kart-io/logger"
	"github.com/prometheus/client_golang/prometheus"
	utilerrors "k8s.io/apimachinery/pkg/util/errors"

	"github.com/kart-io/sentinel-rag/internal/rag/biz"
	"github.com/kart-io/sentinel-rag/internal/rag/metrics"
	"github.com/kart-io/sentinel-rag/internal/rag/store"
	"github.com/kart-io/sentinel-rag/pkg/component/redis"
	"github.com/kart-io/sentinel-rag/pkg/infra/middleware"
	"github.com/kart-io/sentinel-rag/pkg/infra/pool"
	"github.com/kart-io/sentinel-rag/pkg/llm"
	"github.com/kart-io/sentinel-rag/pkg/llm/hash"
	// 导入 LLM 供应商以自动注册
	_ "github.com/kart-io/sentinel-rag/pkg/llm/ollama"
	"github.com/kart-io/sentinel-rag/pkg/llm/resilience"
)

// components 进程内共享的单例, 按依赖顺序构建, 逆序释放。
type components struct {
	embedder  llm.EmbeddingProvider
	generator llm.GenerationProvider
	store     store.DocumentStore
	workers   *pool.Pool
	service   *biz.RAGService
	registry  *prometheus.Registry
	redis     *redis.Client
	breakers  []*resilience.Breaker

	closers []func(context.Context) error
}

// newComponents 构建 embedding -> store -> generation -> service。
// 任一步失败时释放已创建的资源。
func newComponents(ctx context.Context, cfg *Config) (_ *components, err error) {
	c := &components{registry: prometheus.NewRegistry()}
	defer func() {
		if err != nil {
			_ = c.close(ctx)
		}
	}()

	// 1. Embedding 供应商
	if c.embedder, err = c.newEmbedder(ctx, cfg); err != nil {
		return nil, err
	}
	logger.Infow("Embedding provider initialized",
		"provider", cfg.EmbeddingOptions.Provider,
		"model", cfg.EmbeddingOptions.Model,
	)

	// 2. 文档存储
	c.store, err = store.New(ctx, store.Config{
		Backend:   cfg.RAGOptions.Store,
		Dimension: cfg.RAGOptions.EmbeddingDim,
		Milvus:    cfg.MilvusOptions,
		SQLite:    cfg.SQLiteOptions,
	}, c.embedder)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize document store: %w", err)
	}
	c.closers = append(c.closers, c.store.Close)

	// 3. 生成供应商, 只加熔断不重试
	generator, err := llm.NewGenerationProvider(cfg.GenerationOptions.Provider, cfg.GenerationOptions.ToConfigMap())
	if err != nil {
		return nil, fmt.Errorf("failed to initialize generation provider: %w", err)
	}
	guarded := resilience.NewGuardedGenerationProvider(generator, resilience.DefaultBreakerConfig())
	c.generator = guarded
	c.breakers = append(c.breakers, guarded.Breaker())
	logger.Infow("Generation provider initialized",
		"provider", cfg.GenerationOptions.Provider,
		"model", cfg.GenerationOptions.Model,
	)

	// 4. 批量导入协程池
	if c.workers, err = pool.NewPool("ingest", pool.IngestPoolConfig(cfg.RAGOptions.IngestWorkers)); err != nil {
		return nil, fmt.Errorf("failed to create ingest pool: %w", err)
	}
	c.closers = append(c.closers, func(context.Context) error {
		c.workers.Release()
		return nil
	})

	// 5. 业务层
	m := metrics.New(cfg.MiddlewareOptions.Metrics.Namespace, c.registry)
	c.service = biz.NewRAGService(c.store, c.generator, c.workers, m, &biz.ServiceConfig{
		Backend:           cfg.RAGOptions.Store,
		EmbeddingProvider: c.embedder.Name(),
		RetrieverConfig: biz.RetrieverConfig{
			MinScore: cfg.RAGOptions.MinScore,
		},
	})
	logger.Infow("RAG service initialized",
		"store", cfg.RAGOptions.Store,
		"min_score", cfg.RAGOptions.MinScore,
		"cache.enabled", c.redis != nil,
	)

	return c, nil
}

// newEmbedder 创建 Embedding 供应商。远程供应商包装重试与熔断, 启用缓存时再包一层 Redis 缓存。
func (c *components) newEmbedder(ctx context.Context, cfg *Config) (llm.EmbeddingProvider, error) {
	remote := cfg.EmbeddingOptions.Provider != hash.ProviderName

	// 远程供应商的重试由 resilience 负责, HTTP 层只发送一次
	configMap := cfg.EmbeddingOptions.ToConfigMap()
	if remote {
		configMap["max_retries"] = 0
	}
	base, err := llm.NewEmbeddingProvider(cfg.EmbeddingOptions.Provider, configMap)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize embedding provider: %w", err)
	}

	embedder := base
	if remote {
		retry := resilience.DefaultRetryConfig()
		retry.MaxAttempts = cfg.EmbeddingOptions.MaxRetries + 1
		resilient := resilience.NewResilientEmbeddingProvider(base, retry, resilience.DefaultBreakerConfig())
		c.breakers = append(c.breakers, resilient.Breaker())
		embedder = resilient
	}

	if cfg.CacheOptions == nil || !cfg.CacheOptions.Enabled {
		logger.Info("Embedding cache is disabled")
		return embedder, nil
	}

	client, err := redis.New(ctx, cfg.CacheOptions.Redis)
	if err != nil {
		logger.Warnw("failed to connect to redis, embedding cache will be disabled", "error", err.Error())
		return embedder, nil
	}
	c.redis = client
	c.closers = append(c.closers, func(context.Context) error { return client.Close() })

	logger.Infow("Redis embedding cache initialized",
		"addr", cfg.CacheOptions.Redis.Addr(),
		"ttl", cfg.CacheOptions.TTL,
	)
	return llm.NewCachedEmbeddingProvider(embedder, client.Client(), &llm.EmbeddingCacheConfig{
		TTL:       cfg.CacheOptions.TTL,
		KeyPrefix: cfg.CacheOptions.KeyPrefix,
		Namespace: cfg.EmbeddingOptions.CacheNamespace(),
	}), nil
}

// registerHealthCheckers 注册存储、缓存与熔断器的健康检查。
func (c *components) registerHealthCheckers(h *middleware.HealthManager) {
	h.RegisterChecker("store", func(ctx context.Context) error {
		_, err := c.store.Count(ctx)
		return err
	})
	if c.redis != nil {
		h.RegisterChecker("cache", c.redis.Ping)
	}
	for _, b := range c.breakers {
		h.RegisterChecker(b.Name(), b.Checker())
	}
}

// close 逆序释放资源。
func (c *components) close(ctx context.Context) error {
	var errs []error
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	c.closers = nil
	return utilerrors.NewAggregate(errs)
}
