package resilience

import (
	"context"

	"github.com/kart-io/sentinel-rag/pkg/llm"
)

// ResilientEmbeddingProvider 为 Embedding 调用加上重试与熔断。
// 每次重试都经过熔断器, 熔断打开后立即停止重试。
type ResilientEmbeddingProvider struct {
	provider llm.EmbeddingProvider
	retry    *RetryConfig
	breaker  *Breaker
}

// NewResilientEmbeddingProvider 创建带重试与熔断的 Embedding Provider。
func NewResilientEmbeddingProvider(provider llm.EmbeddingProvider, retry *RetryConfig, breaker *BreakerConfig) *ResilientEmbeddingProvider {
	if retry == nil {
		retry = DefaultRetryConfig()
	}
	return &ResilientEmbeddingProvider{
		provider: provider,
		retry:    retry,
		breaker:  NewBreaker("embedding", breaker),
	}
}

// Embed 为多个文本生成向量嵌入。
func (r *ResilientEmbeddingProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	var out [][]float32
	err := Retry(ctx, r.retry, func() error {
		return r.breaker.Do(func() (err error) {
			out, err = r.provider.Embed(ctx, texts)
			return err
		})
	})
	return out, err
}

// EmbedSingle 为单个文本生成向量嵌入。
func (r *ResilientEmbeddingProvider) EmbedSingle(ctx context.Context, text string) ([]float32, error) {
	var out []float32
	err := Retry(ctx, r.retry, func() error {
		return r.breaker.Do(func() (err error) {
			out, err = r.provider.EmbedSingle(ctx, text)
			return err
		})
	})
	return out, err
}

func (r *ResilientEmbeddingProvider) Name() string { return r.provider.Name() }

// Breaker 返回熔断器, 用于健康检查。
func (r *ResilientEmbeddingProvider) Breaker() *Breaker { return r.breaker }

// GuardedGenerationProvider 只加熔断的生成 Provider。
// 后端持续故障时快速失败, 单次失败直接返回给调用方。
type GuardedGenerationProvider struct {
	provider llm.GenerationProvider
	breaker  *Breaker
}

// NewGuardedGenerationProvider 创建带熔断的生成 Provider。
func NewGuardedGenerationProvider(provider llm.GenerationProvider, breaker *BreakerConfig) *GuardedGenerationProvider {
	return &GuardedGenerationProvider{
		provider: provider,
		breaker:  NewBreaker("generation", breaker),
	}
}

// Generate 调用底层 Provider 一次, 不重试。
func (g *GuardedGenerationProvider) Generate(ctx context.Context, prompt, systemPrompt string) (*llm.GenerateResponse, error) {
	var resp *llm.GenerateResponse
	err := g.breaker.Do(func() (err error) {
		resp, err = g.provider.Generate(ctx, prompt, systemPrompt)
		return err
	})
	return resp, err
}

func (g *GuardedGenerationProvider) Name() string { return g.provider.Name() }

// Ping 透传到底层供应商。
func (g *GuardedGenerationProvider) Ping(ctx context.Context) error {
	if p, ok := g.provider.(llm.Pinger); ok {
		return p.Ping(ctx)
	}
	return nil
}

// Breaker 返回熔断器, 用于健康检查。
func (g *GuardedGenerationProvider) Breaker() *Breaker { return g.breaker }

// BreakerOf 返回包装器上的熔断器, 未包装时返回 nil。
func BreakerOf(provider any) *Breaker {
	if p, ok := provider.(interface{ Breaker() *Breaker }); ok {
		return p.Breaker()
	}
	return nil
}

// Checker 返回健康检查函数, 熔断打开时报告 ErrBreakerOpen。
func (b *Breaker) Checker() func(context.Context) error {
	return func(context.Context) error {
		if b.State() == StateOpen {
			return ErrBreakerOpen
		}
		return nil
	}
}
