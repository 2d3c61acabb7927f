// Package cache provides embedding cache configuration options.
package cache

import (
	"errors"
	"time"

	"github.com/spf13/pflag"

	"github.com/kart-io/sentinel-rag/pkg/options"
	redisopts "github.com/kart-io/sentinel-rag/pkg/options/redis"
)

var _ options.IOptions = (*Options)(nil)

// Options Embedding 缓存配置。
type Options struct {
	Enabled   bool               `json:"enabled" mapstructure:"enabled"`
	TTL       time.Duration      `json:"ttl" mapstructure:"ttl"`
	KeyPrefix string             `json:"key-prefix" mapstructure:"key-prefix"`
	Redis     *redisopts.Options `json:"redis" mapstructure:"redis"`
}

// NewOptions 创建默认缓存配置, 默认关闭。
func NewOptions() *Options {
	return &Options{
		Enabled:   false,
		TTL:       24 * time.Hour,
		KeyPrefix: "rag:emb:",
		Redis:     redisopts.NewOptions(),
	}
}

// AddFlags adds flags for cache options to the specified FlagSet.
// Redis 参数挂在 cache 前缀下, 例如 --cache.redis.host。
func (o *Options) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	p := options.Join(prefixes...) + "cache."
	fs.BoolVar(&o.Enabled, p+"enabled", o.Enabled, "Cache query embeddings in Redis.")
	fs.DurationVar(&o.TTL, p+"ttl", o.TTL, "Lifetime of a cached embedding.")
	fs.StringVar(&o.KeyPrefix, p+"key-prefix", o.KeyPrefix, "Prefix of cache keys; the embedding namespace and a text hash follow it.")

	if o.Redis == nil {
		o.Redis = redisopts.NewOptions()
	}
	o.Redis.AddFlags(fs, append(prefixes, "cache")...)
}

// Complete 补全 Redis 配置。未启用缓存时不读取 Redis 密码环境变量。
func (o *Options) Complete() error {
	if o.Redis == nil {
		o.Redis = redisopts.NewOptions()
	}
	if !o.Enabled {
		return nil
	}
	return o.Redis.Complete()
}

// Validate 只在启用时校验。
func (o *Options) Validate() []error {
	if o == nil || !o.Enabled {
		return nil
	}

	var errs []error
	if o.TTL <= 0 {
		errs = append(errs, errors.New("cache.ttl must be positive"))
	}
	if o.KeyPrefix == "" {
		errs = append(errs, errors.New("cache.key-prefix is required"))
	}
	return append(errs, o.Redis.Validate()...)
}
