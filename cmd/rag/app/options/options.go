// Package options contains flags and options for initializing the RAG server.
package options

import (
	"fmt"

	utilerrors "k8s.io/apimachinery/pkg/util/errors"

	ragsvc "github.com/kart-io/sentinel-rag/internal/rag"
	"github.com/kart-io/sentinel-rag/pkg/app/cliflag"
	"github.com/kart-io/sentinel-rag/pkg/infra/server"
	"github.com/kart-io/sentinel-rag/pkg/infra/tracing"
	"github.com/kart-io/sentinel-rag/pkg/llm/hash"
	"github.com/kart-io/sentinel-rag/pkg/options"
	cacheopts "github.com/kart-io/sentinel-rag/pkg/options/cache"
	llmopts "github.com/kart-io/sentinel-rag/pkg/options/llm"
	logopts "github.com/kart-io/sentinel-rag/pkg/options/logger"
	middlewareopts "github.com/kart-io/sentinel-rag/pkg/options/middleware"
	milvusopts "github.com/kart-io/sentinel-rag/pkg/options/milvus"
	ragopts "github.com/kart-io/sentinel-rag/pkg/options/rag"
	sqliteopts "github.com/kart-io/sentinel-rag/pkg/options/sqlite"
)

// ServerOptions contains the configuration options for the server.
type ServerOptions struct {
	// ServerOptions contains HTTP server and shutdown configuration.
	ServerOptions *server.Options `json:"server" mapstructure:"server"`

	// MiddlewareOptions contains HTTP middleware configuration.
	MiddlewareOptions *middlewareopts.Options `json:"middleware" mapstructure:"middleware"`

	// LogOptions contains logger configuration.
	LogOptions *logopts.Options `json:"log" mapstructure:"log"`

	// TracingOptions contains OpenTelemetry configuration.
	TracingOptions *tracing.Options `json:"tracing" mapstructure:"tracing"`

	// MilvusOptions contains Milvus database configuration.
	MilvusOptions *milvusopts.Options `json:"milvus" mapstructure:"milvus"`

	// SQLiteOptions contains the embedded document store configuration.
	SQLiteOptions *sqliteopts.Options `json:"sqlite" mapstructure:"sqlite"`

	// CacheOptions contains embedding cache configuration.
	CacheOptions *cacheopts.Options `json:"cache" mapstructure:"cache"`

	// EmbeddingOptions contains embedding provider configuration.
	EmbeddingOptions *llmopts.ProviderOptions `json:"embedding" mapstructure:"embedding"`

	// GenerationOptions contains generation provider configuration.
	GenerationOptions *llmopts.ProviderOptions `json:"generation" mapstructure:"generation"`

	// RAGOptions contains RAG-specific configuration.
	RAGOptions *ragopts.Options `json:"rag" mapstructure:"rag"`
}

// NewServerOptions creates a ServerOptions instance with default values.
func NewServerOptions() *ServerOptions {
	serverOpts := server.NewOptions()
	serverOpts.HTTP.Addr = ":8000"

	return &ServerOptions{
		ServerOptions:     serverOpts,
		MiddlewareOptions: middlewareopts.NewOptions(),
		LogOptions:        logopts.NewOptions(),
		TracingOptions:    tracing.NewOptions(),
		MilvusOptions:     milvusopts.NewOptions(),
		SQLiteOptions:     sqliteopts.NewOptions(),
		CacheOptions:      cacheopts.NewOptions(),
		EmbeddingOptions:  llmopts.NewEmbeddingOptions(),
		GenerationOptions: llmopts.NewGenerationOptions(),
		RAGOptions:        ragopts.NewOptions(),
	}
}

// Flags returns flags for a specific server by section name.
func (o *ServerOptions) Flags() (fss cliflag.NamedFlagSets) {
	o.ServerOptions.AddFlags(fss.FlagSet("server"))
	o.MiddlewareOptions.AddFlags(fss.FlagSet("middleware"))
	o.LogOptions.AddFlags(fss.FlagSet("log"))
	o.TracingOptions.AddFlags(fss.FlagSet("tracing"))
	o.RAGOptions.AddFlags(fss.FlagSet("rag"))
	o.MilvusOptions.AddFlags(fss.FlagSet("milvus"))
	o.SQLiteOptions.AddFlags(fss.FlagSet("sqlite"))
	o.CacheOptions.AddFlags(fss.FlagSet("cache"))
	o.EmbeddingOptions.AddFlags(fss.FlagSet("embedding"), "embedding")
	o.GenerationOptions.AddFlags(fss.FlagSet("generation"), "generation")

	return fss
}

// Complete 补全所有配置。存储后端的配置只在被选中时才补全和校验。
func (o *ServerOptions) Complete() error {
	if err := options.Complete(
		o.ServerOptions,
		o.MiddlewareOptions,
		o.LogOptions,
		o.TracingOptions,
		o.CacheOptions,
		o.EmbeddingOptions,
		o.GenerationOptions,
		o.RAGOptions,
	); err != nil {
		return err
	}

	if o.RAGOptions.Store == ragopts.StoreMilvus {
		return o.MilvusOptions.Complete()
	}
	return nil
}

// Validate checks whether the options in ServerOptions are valid.
func (o *ServerOptions) Validate() error {
	errs := options.ValidateAll(
		o.ServerOptions,
		o.MiddlewareOptions,
		o.LogOptions,
		o.TracingOptions,
		o.RAGOptions,
		o.CacheOptions,
		o.EmbeddingOptions,
		o.GenerationOptions,
	)

	switch o.RAGOptions.Store {
	case ragopts.StoreMilvus:
		errs = append(errs, o.MilvusOptions.Validate()...)
	case ragopts.StoreSQLite:
		errs = append(errs, o.SQLiteOptions.Validate()...)
	}

	if o.GenerationOptions.Provider == hash.ProviderName {
		errs = append(errs, fmt.Errorf("generation.provider %q only supports embeddings", hash.ProviderName))
	}
	if o.EmbeddingOptions.Provider == hash.ProviderName && o.EmbeddingOptions.Dimension != o.RAGOptions.EmbeddingDim {
		errs = append(errs, fmt.Errorf("embedding.dimension (%d) must match rag.embedding-dim (%d)",
			o.EmbeddingOptions.Dimension, o.RAGOptions.EmbeddingDim))
	}

	return utilerrors.NewAggregate(errs)
}

// Config builds a ragsvc.Config based on ServerOptions.
func (o *ServerOptions) Config() (*ragsvc.Config, error) {
	return &ragsvc.Config{
		ServerOptions:     o.ServerOptions,
		MiddlewareOptions: o.MiddlewareOptions,
		LogOptions:        o.LogOptions,
		TracingOptions:    o.TracingOptions,
		MilvusOptions:     o.MilvusOptions,
		SQLiteOptions:     o.SQLiteOptions,
		CacheOptions:      o.CacheOptions,
		EmbeddingOptions:  o.EmbeddingOptions,
		GenerationOptions: o.GenerationOptions,
		RAGOptions:        o.RAGOptions,
	}, nil
}
