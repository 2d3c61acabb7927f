// Package llm 提供统一的 LLM 供应商抽象层。
// Embedding 与文本生成可以使用不同供应商的模型。
package llm

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
)

// ErrEmptyResponse 表示生成后端返回的响应缺少必需的文本字段。
var ErrEmptyResponse = errors.New("llm: generation response missing text field")

// EmbeddingProvider 定义 Embedding 供应商接口。
type EmbeddingProvider interface {
	// Embed 为多个文本生成向量嵌入。
	Embed(ctx context.Context, texts []string) ([][]float32, error)

	// EmbedSingle 为单个文本生成向量嵌入。
	EmbedSingle(ctx context.Context, text string) ([]float32, error)

	// Name 返回供应商名称。
	Name() string
}

// GenerationProvider 定义文本生成供应商接口。
type GenerationProvider interface {
	// Generate 根据提示生成文本（单轮）。模型由供应商配置决定。
	Generate(ctx context.Context, prompt string, systemPrompt string) (*GenerateResponse, error)

	// Name 返回供应商名称。
	Name() string
}

// Pinger 由支持连通性检查的供应商实现。
type Pinger interface {
	Ping(ctx context.Context) error
}

// GenerateResponse 生成结果。
type GenerateResponse struct {
	// Content 生成的文本, 原样返回给调用方。
	Content string `json:"content"`
	// Model 实际使用的模型。
	Model string `json:"model,omitempty"`
	// TokenUsage 后端上报的 token 用量, 可能为空。
	TokenUsage *TokenUsage `json:"token_usage,omitempty"`
}

// TokenUsage token 用量统计。
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Provider 同时支持 Embedding 和生成的完整供应商。
type Provider interface {
	EmbeddingProvider
	GenerationProvider
}

// ProviderFactory 供应商工厂函数类型。
type ProviderFactory func(config map[string]any) (Provider, error)

// EmbeddingProviderFactory Embedding 供应商工厂函数类型。
type EmbeddingProviderFactory func(config map[string]any) (EmbeddingProvider, error)

// GenerationProviderFactory 生成供应商工厂函数类型。
type GenerationProviderFactory func(config map[string]any) (GenerationProvider, error)

// registry 供应商注册表。
var registry = &providerRegistry{
	providers:           make(map[string]ProviderFactory),
	embeddingProviders:  make(map[string]EmbeddingProviderFactory),
	generationProviders: make(map[string]GenerationProviderFactory),
}

type providerRegistry struct {
	mu                  sync.RWMutex
	providers           map[string]ProviderFactory
	embeddingProviders  map[string]EmbeddingProviderFactory
	generationProviders map[string]GenerationProviderFactory
}

// RegisterProvider 注册完整供应商工厂。
func RegisterProvider(name string, factory ProviderFactory) {
	registry.mu.Lock()
	defer registry.mu.Unlock()
	registry.providers[name] = factory
}

// RegisterEmbeddingProvider 注册 Embedding 供应商工厂。
func RegisterEmbeddingProvider(name string, factory EmbeddingProviderFactory) {
	registry.mu.Lock()
	defer registry.mu.Unlock()
	registry.embeddingProviders[name] = factory
}

// RegisterGenerationProvider 注册生成供应商工厂。
func RegisterGenerationProvider(name string, factory GenerationProviderFactory) {
	registry.mu.Lock()
	defer registry.mu.Unlock()
	registry.generationProviders[name] = factory
}

// NewEmbeddingProvider 根据名称创建 Embedding 供应商实例。
// 优先查找专用 Embedding 工厂，其次查找完整供应商工厂。
func NewEmbeddingProvider(name string, config map[string]any) (EmbeddingProvider, error) {
	registry.mu.RLock()
	defer registry.mu.RUnlock()

	if factory, ok := registry.embeddingProviders[name]; ok {
		return factory(config)
	}
	if factory, ok := registry.providers[name]; ok {
		return factory(config)
	}

	return nil, fmt.Errorf("unknown embedding provider: %s", name)
}

// NewGenerationProvider 根据名称创建生成供应商实例。
// 优先查找专用生成工厂，其次查找完整供应商工厂。
func NewGenerationProvider(name string, config map[string]any) (GenerationProvider, error) {
	registry.mu.RLock()
	defer registry.mu.RUnlock()

	if factory, ok := registry.generationProviders[name]; ok {
		return factory(config)
	}
	if factory, ok := registry.providers[name]; ok {
		return factory(config)
	}

	return nil, fmt.Errorf("unknown generation provider: %s", name)
}

// ListProviders 列出所有已注册的供应商名称, 按字母排序。
func ListProviders() []string {
	registry.mu.RLock()
	defer registry.mu.RUnlock()

	seen := make(map[string]struct{})
	for name := range registry.providers {
		seen[name] = struct{}{}
	}
	for name := range registry.embeddingProviders {
		seen[name] = struct{}{}
	}
	for name := range registry.generationProviders {
		seen[name] = struct{}{}
	}

	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
