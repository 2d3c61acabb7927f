// Package llm provides LLM provider configuration options.
package llm

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/pflag"

	"github.com/kart-io/sentinel-rag/pkg/options"
)

var _ options.IOptions = (*ProviderOptions)(nil)

// DefaultOllamaHost 未设置 OLLAMA_HOST 时使用的地址。
const DefaultOllamaHost = "localhost:11434"

// ProviderOptions 定义 LLM 供应商配置。
type ProviderOptions struct {
	// Provider 供应商名称（ollama, hash）。
	Provider string `json:"provider" mapstructure:"provider"`

	// Host 服务地址, 接受 host:port 或带协议的 URL。
	Host string `json:"host" mapstructure:"host"`

	// Model 使用的模型名称, 启动后固定不变。
	Model string `json:"model" mapstructure:"model"`

	// Timeout 请求超时时间。
	Timeout time.Duration `json:"timeout" mapstructure:"timeout"`

	// MaxRetries 最大重试次数, 生成请求忽略此项。
	MaxRetries int `json:"max-retries" mapstructure:"max-retries"`

	// Dimension 本地 hash 供应商的向量维度。
	Dimension int `json:"dimension" mapstructure:"dimension"`
}

func defaultHost() string {
	if v := strings.TrimSpace(os.Getenv("OLLAMA_HOST")); v != "" {
		return v
	}
	return DefaultOllamaHost
}

// NewProviderOptions 创建默认 LLM 供应商配置。
func NewProviderOptions() *ProviderOptions {
	return &ProviderOptions{
		Provider:   "ollama",
		Host:       defaultHost(),
		Timeout:    120 * time.Second,
		MaxRetries: 3,
		Dimension:  768,
	}
}

// NewEmbeddingOptions 创建默认 Embedding 供应商配置。
func NewEmbeddingOptions() *ProviderOptions {
	opts := NewProviderOptions()
	opts.Model = "nomic-embed-text"
	return opts
}

// NewGenerationOptions 创建默认生成供应商配置。
func NewGenerationOptions() *ProviderOptions {
	opts := NewProviderOptions()
	opts.Model = "tinyllama"
	opts.MaxRetries = 0
	return opts
}

// CacheNamespace 返回区分向量空间的缓存命名空间。
// hash 供应商没有模型, 以维度区分。
func (o *ProviderOptions) CacheNamespace() string {
	if o.Provider == "hash" {
		return fmt.Sprintf("%s:%d", o.Provider, o.Dimension)
	}
	return o.Provider + ":" + o.Model
}

// ToConfigMap 转换为配置 map，用于供应商工厂。
func (o *ProviderOptions) ToConfigMap() map[string]any {
	return map[string]any{
		"host":        o.Host,
		"embed_model": o.Model,
		"chat_model":  o.Model,
		"timeout":     o.Timeout,
		"max_retries": o.MaxRetries,
		"dimension":   o.Dimension,
	}
}

// AddFlags adds flags for LLM provider options to the specified FlagSet.
// prefixes 区分 embedding 与 generation 两组配置。
func (o *ProviderOptions) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	p := options.Join(prefixes...)
	fs.StringVar(&o.Provider, p+"provider", o.Provider, "Provider name (ollama, hash).")
	fs.StringVar(&o.Host, p+"host", o.Host, "Provider host, host:port or URL; defaults to $OLLAMA_HOST.")
	fs.StringVar(&o.Model, p+"model", o.Model, "Model name.")
	fs.DurationVar(&o.Timeout, p+"timeout", o.Timeout, "Request timeout.")
	fs.IntVar(&o.MaxRetries, p+"max-retries", o.MaxRetries, "Maximum number of retries.")
	fs.IntVar(&o.Dimension, p+"dimension", o.Dimension, "Vector dimension for the hash provider.")
}

// Validate validates the LLM provider options.
func (o *ProviderOptions) Validate() []error {
	if o == nil {
		return nil
	}

	var errs []error
	if o.Provider == "" {
		errs = append(errs, fmt.Errorf("provider is required"))
	}
	if o.Provider == "ollama" {
		if o.Host == "" {
			errs = append(errs, fmt.Errorf("host is required"))
		}
		if o.Model == "" {
			errs = append(errs, fmt.Errorf("model is required"))
		}
	}
	if o.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("timeout must be positive"))
	}
	if o.MaxRetries < 0 {
		errs = append(errs, fmt.Errorf("max-retries must be non-negative"))
	}
	if o.Dimension <= 0 {
		errs = append(errs, fmt.Errorf("dimension must be positive"))
	}
	return errs
}

// Complete completes the LLM provider options with defaults.
func (o *ProviderOptions) Complete() error {
	if o.Host == "" {
		o.Host = defaultHost()
	}
	return nil
}
