// Package ragsvc wires the RAG service: options, dependencies and the commands
// that run on top of them.
package ragsvc

import (
	"github.com/kart-io/sentinel-rag/pkg/infra/server"
	"github.com/kart-io/sentinel-rag/pkg/infra/tracing"
	cacheopts "github.com/kart-io/sentinel-rag/pkg/options/cache"
	llmopts "github.com/kart-io/sentinel-rag/pkg/options/llm"
	logopts "github.com/kart-io/sentinel-rag/pkg/options/logger"
	middlewareopts "github.com/kart-io/sentinel-rag/pkg/options/middleware"
	milvusopts "github.com/kart-io/sentinel-rag/pkg/options/milvus"
	ragopts "github.com/kart-io/sentinel-rag/pkg/options/rag"
	sqliteopts "github.com/kart-io/sentinel-rag/pkg/options/sqlite"
)

// Name is the name of the application.
const Name = "sentinel-rag"

// Config contains application-related configurations.
type Config struct {
	ServerOptions     *server.Options
	MiddlewareOptions *middlewareopts.Options
	LogOptions        *logopts.Options
	TracingOptions    *tracing.Options
	MilvusOptions     *milvusopts.Options
	SQLiteOptions     *sqliteopts.Options
	CacheOptions      *cacheopts.Options
	EmbeddingOptions  *llmopts.ProviderOptions
	GenerationOptions *llmopts.ProviderOptions
	RAGOptions        *ragopts.Options
}
