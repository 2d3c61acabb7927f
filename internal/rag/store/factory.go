package store

import (
	"context"
	"fmt"

	"github.com/kart-io/logger"

	"github.com/kart-io/sentinel-rag/pkg/component/milvus"
	"github.com/kart-io/sentinel-rag/pkg/component/sqlite"
	"github.com/kart-io/sentinel-rag/pkg/llm"
	milvusopts "github.com/kart-io/sentinel-rag/pkg/options/milvus"
	ragopts "github.com/kart-io/sentinel-rag/pkg/options/rag"
	sqliteopts "github.com/kart-io/sentinel-rag/pkg/options/sqlite"
)

// Config 创建 DocumentStore 所需的配置。
type Config struct {
	Backend   string
	Dimension int
	Milvus    *milvusopts.Options
	SQLite    *sqliteopts.Options
}

// New 按 Backend 创建 DocumentStore。
func New(ctx context.Context, cfg Config, embedder llm.EmbeddingProvider) (DocumentStore, error) {
	if embedder == nil {
		return nil, fmt.Errorf("embedding provider is required")
	}

	switch cfg.Backend {
	case ragopts.StoreMemory:
		logger.Warnw("Using in-memory document store, data will not survive restarts")
		return NewMemoryStore(embedder), nil

	case ragopts.StoreSQLite:
		client, err := sqlite.New(ctx, cfg.SQLite)
		if err != nil {
			return nil, err
		}
		s, err := NewSQLiteStore(ctx, client, embedder, "documents")
		if err != nil {
			_ = client.Close()
			return nil, err
		}
		logger.Infow("SQLite document store ready", "path", cfg.SQLite.Path)
		return s, nil

	case ragopts.StoreMilvus:
		client, err := milvus.New(ctx, cfg.Milvus)
		if err != nil {
			return nil, err
		}
		s, err := NewMilvusStore(ctx, client, embedder, MilvusConfig{
			Collection:       cfg.Milvus.Collection,
			Dimension:        cfg.Dimension,
			MaxContentLength: cfg.Milvus.MaxContentLength,
		})
		if err != nil {
			_ = client.Close(ctx)
			return nil, err
		}
		logger.Infow("Milvus document store ready",
			"address", cfg.Milvus.Address,
			"collection", cfg.Milvus.Collection,
		)
		return s, nil

	default:
		return nil, fmt.Errorf("unsupported document store backend %q", cfg.Backend)
	}
}
