// Package ollama 提供 Ollama LLM 供应商实现。
package ollama

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/kart-io/sentinel-rag/pkg/llm"
	"github.com/kart-io/sentinel-rag/pkg/utils/httpclient"
)

const (
	// ProviderName 供应商注册名。
	ProviderName = "ollama"

	// EnvHost Ollama 默认读取的主机环境变量。
	EnvHost = "OLLAMA_HOST"

	// DefaultHost 未配置时使用的主机地址。
	DefaultHost = "localhost:11434"
)

func init() {
	llm.RegisterProvider(ProviderName, NewProvider)
}

// Config Ollama 供应商配置。
type Config struct {
	// Host 主机地址, 支持 host:port 或带协议的 URL 形式。
	Host       string        `json:"host" mapstructure:"host"`
	EmbedModel string        `json:"embed_model" mapstructure:"embed_model"`
	ChatModel  string        `json:"chat_model" mapstructure:"chat_model"`
	Timeout    time.Duration `json:"timeout" mapstructure:"timeout"`
	// MaxRetries 仅作用于 Embedding 请求, 生成请求从不重试。
	MaxRetries int `json:"max_retries" mapstructure:"max_retries"`
}

// DefaultConfig 返回默认配置。
func DefaultConfig() *Config {
	return &Config{
		Host:       DefaultHostFromEnv(),
		EmbedModel: "nomic-embed-text",
		ChatModel:  "tinyllama",
		Timeout:    120 * time.Second,
		MaxRetries: 3,
	}
}

// DefaultHostFromEnv 返回 OLLAMA_HOST 环境变量的值, 未设置时返回 DefaultHost。
func DefaultHostFromEnv() string {
	if v := strings.TrimSpace(os.Getenv(EnvHost)); v != "" {
		return v
	}
	return DefaultHost
}

// NormalizeHost 去掉 http:// 或 https:// 前缀以及末尾的斜杠, 返回裸 host:port。
func NormalizeHost(host string) string {
	h := strings.TrimSpace(host)
	h = strings.TrimPrefix(h, "http://")
	h = strings.TrimPrefix(h, "https://")
	return strings.TrimRight(h, "/")
}

// Provider Ollama 供应商实现。
type Provider struct {
	config  *Config
	baseURL string
	// embedClient 按 MaxRetries 重试, generateClient 只发送一次。
	embedClient    *httpclient.Client
	generateClient *httpclient.Client
}

// NewProvider 从配置 map 创建 Ollama 供应商。
func NewProvider(configMap map[string]any) (llm.Provider, error) {
	cfg := DefaultConfig()

	if v, ok := configMap["host"].(string); ok && v != "" {
		cfg.Host = v
	}
	if v, ok := configMap["embed_model"].(string); ok && v != "" {
		cfg.EmbedModel = v
	}
	if v, ok := configMap["chat_model"].(string); ok && v != "" {
		cfg.ChatModel = v
	}
	if v, ok := configMap["timeout"].(time.Duration); ok && v > 0 {
		cfg.Timeout = v
	}
	if v, ok := configMap["max_retries"].(int); ok && v >= 0 {
		cfg.MaxRetries = v
	}

	if NormalizeHost(cfg.Host) == "" {
		return nil, fmt.Errorf("ollama host 不能为空")
	}

	return NewProviderWithConfig(cfg), nil
}

// NewProviderWithConfig 使用结构化配置创建 Ollama 供应商。
func NewProviderWithConfig(cfg *Config) *Provider {
	return &Provider{
		config:         cfg,
		baseURL:        "http://" + NormalizeHost(cfg.Host),
		embedClient:    httpclient.NewClient(cfg.Timeout, cfg.MaxRetries),
		generateClient: httpclient.NewClient(cfg.Timeout, 0),
	}
}

// Name 返回供应商名称。
func (p *Provider) Name() string {
	return ProviderName
}

// BaseURL 返回规范化后的服务地址。
func (p *Provider) BaseURL() string {
	return p.baseURL
}

// embedRequest Ollama embed API 请求体。
type embedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

// embedResponse Ollama embed API 响应体。
type embedResponse struct {
	Model      string      `json:"model"`
	Embeddings [][]float32 `json:"embeddings"`
}

// Embed 为多个文本生成向量嵌入。
func (p *Provider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	req := embedRequest{
		Model: p.config.EmbedModel,
		Input: texts,
	}

	var embedResp embedResponse
	if err := p.embedClient.PostJSON(ctx, p.baseURL+"/api/embed", req, &embedResp); err != nil {
		return nil, err
	}

	if len(embedResp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("向量数量不匹配: 期望 %d, 实际 %d", len(texts), len(embedResp.Embeddings))
	}

	return embedResp.Embeddings, nil
}

// EmbedSingle 为单个文本生成向量嵌入。
func (p *Provider) EmbedSingle(ctx context.Context, text string) ([]float32, error) {
	embeddings, err := p.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(embeddings) == 0 {
		return nil, fmt.Errorf("未返回向量嵌入")
	}
	return embeddings[0], nil
}

// generateRequest Ollama generate API 请求体。
type generateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
	System string `json:"system,omitempty"`
}

// generateResponse Ollama generate API 响应体。
// Response 为必需字段, 使用指针区分缺失与空字符串。
type generateResponse struct {
	Model           string  `json:"model"`
	Response        *string `json:"response"`
	Done            bool    `json:"done"`
	PromptEvalCount int     `json:"prompt_eval_count"`
	EvalCount       int     `json:"eval_count"`
}

// Generate 根据提示生成文本, 不做重试。
func (p *Provider) Generate(ctx context.Context, prompt string, systemPrompt string) (*llm.GenerateResponse, error) {
	req := generateRequest{
		Model:  p.config.ChatModel,
		Prompt: prompt,
		Stream: false,
		System: systemPrompt,
	}

	var genResp generateResponse
	if err := p.generateClient.PostJSON(ctx, p.baseURL+"/api/generate", req, &genResp); err != nil {
		return nil, err
	}

	if genResp.Response == nil {
		return nil, llm.ErrEmptyResponse
	}

	model := genResp.Model
	if model == "" {
		model = p.config.ChatModel
	}

	return &llm.GenerateResponse{
		Content: *genResp.Response,
		Model:   model,
		TokenUsage: &llm.TokenUsage{
			PromptTokens:     genResp.PromptEvalCount,
			CompletionTokens: genResp.EvalCount,
			TotalTokens:      genResp.PromptEvalCount + genResp.EvalCount,
		},
	}, nil
}

// Ping 检查 Ollama 服务是否可用。
func (p *Provider) Ping(ctx context.Context) error {
	_, err := p.ListModels(ctx)
	return err
}

// ListModels 列出可用模型。
func (p *Provider) ListModels(ctx context.Context) ([]string, error) {
	var result struct {
		Models []struct {
			Name string `json:"name"`
		} `json:"models"`
	}
	if err := p.generateClient.GetJSON(ctx, p.baseURL+"/api/tags", &result); err != nil {
		return nil, fmt.Errorf("服务不可用: %w", err)
	}

	models := make([]string, len(result.Models))
	for i, m := range result.Models {
		models[i] = m.Name
	}

	return models, nil
}
