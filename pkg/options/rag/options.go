// Package rag provides RAG pipeline configuration options.
package rag

import (
	"fmt"

	"github.com/spf13/pflag"

	"github.com/kart-io/sentinel-rag/pkg/options"
)

var _ options.IOptions = (*Options)(nil)

// 支持的文档存储后端。
const (
	StoreMilvus = "milvus"
	StoreSQLite = "sqlite"
	StoreMemory = "memory"
)

// Options contains RAG-specific configuration.
type Options struct {
	// Store 文档存储后端: milvus, sqlite, memory。
	Store string `json:"store" mapstructure:"store"`

	// EmbeddingDim is the dimension of embedding vectors.
	EmbeddingDim int `json:"embedding-dim" mapstructure:"embedding-dim"`

	// MinScore 最低相似度, 0 表示接受任意 top-1 结果。
	MinScore float32 `json:"min-score" mapstructure:"min-score"`

	// IngestWorkers 批量导入的并发数。
	IngestWorkers int `json:"ingest-workers" mapstructure:"ingest-workers"`

	// DefaultFile ingest 未指定文件时导入的文件。
	DefaultFile string `json:"default-file" mapstructure:"default-file"`
}

// NewOptions creates new Options with defaults.
func NewOptions() *Options {
	return &Options{
		Store:         StoreSQLite,
		EmbeddingDim:  768,
		MinScore:      0,
		IngestWorkers: 4,
		DefaultFile:   "k8s.txt",
	}
}

// AddFlags adds flags for RAG options to the specified FlagSet.
func (o *Options) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	p := options.Join(prefixes...) + "rag."
	fs.StringVar(&o.Store, p+"store", o.Store, "Document store backend (milvus, sqlite, memory).")
	fs.IntVar(&o.EmbeddingDim, p+"embedding-dim", o.EmbeddingDim, "Embedding vector dimension.")
	fs.Float32Var(&o.MinScore, p+"min-score", o.MinScore, "Minimum similarity for the top match; 0 disables the threshold.")
	fs.IntVar(&o.IngestWorkers, p+"ingest-workers", o.IngestWorkers, "Concurrent workers for batch ingestion.")
	fs.StringVar(&o.DefaultFile, p+"default-file", o.DefaultFile, "File ingested when no path is given.")
}

// Validate validates the RAG options.
func (o *Options) Validate() []error {
	if o == nil {
		return nil
	}

	var errs []error
	switch o.Store {
	case StoreMilvus, StoreSQLite, StoreMemory:
	default:
		errs = append(errs, fmt.Errorf("unsupported rag.store %q", o.Store))
	}
	if o.EmbeddingDim <= 0 {
		errs = append(errs, fmt.Errorf("embedding-dim must be positive"))
	}
	if o.MinScore < 0 || o.MinScore > 1 {
		errs = append(errs, fmt.Errorf("min-score must be within [0, 1]"))
	}
	if o.IngestWorkers <= 0 {
		errs = append(errs, fmt.Errorf("ingest-workers must be positive"))
	}
	return errs
}

// Complete completes the RAG options with defaults.
func (o *Options) Complete() error {
	return nil
}
