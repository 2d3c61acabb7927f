// Package milvus 封装 Milvus SDK, 提供文档集合的建表、写入与相似度检索。
package milvus

import (
	"context"
	"fmt"

	"github.com/milvus-io/milvus/client/v2/column"
	"github.com/milvus-io/milvus/client/v2/entity"
	"github.com/milvus-io/milvus/client/v2/index"
	"github.com/milvus-io/milvus/client/v2/milvusclient"

	milvusopts "github.com/kart-io/sentinel-rag/pkg/options/milvus"
)

// 文档集合字段名。
const (
	FieldID        = "id"
	FieldContent   = "content"
	FieldEmbedding = "embedding"
)

// Client wraps the Milvus SDK client.
type Client struct {
	client *milvusclient.Client
	opts   *milvusopts.Options
}

// New creates a new Milvus client.
func New(ctx context.Context, opts *milvusopts.Options) (*Client, error) {
	if opts == nil {
		return nil, fmt.Errorf("milvus options is nil")
	}

	ctx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()

	c, err := milvusclient.New(ctx, &milvusclient.ClientConfig{
		Address:  opts.Address,
		Username: opts.Username,
		Password: opts.Password,
		DBName:   opts.Database,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to milvus: %w", err)
	}

	return &Client{
		client: c,
		opts:   opts,
	}, nil
}

// Close closes the Milvus client connection.
func (c *Client) Close(ctx context.Context) error {
	return c.client.Close(ctx)
}

// CollectionSchema defines a document collection.
type CollectionSchema struct {
	Name        string
	Description string
	Dimension   int
	// MaxIDLength VarChar 主键的最大长度。
	MaxIDLength int
	// MaxContentLength 文档内容的最大长度。
	MaxContentLength int
}

// EnsureCollection creates the collection and its COSINE index when missing, then loads it.
func (c *Client) EnsureCollection(ctx context.Context, schema *CollectionSchema) error {
	exists, err := c.client.HasCollection(ctx, milvusclient.NewHasCollectionOption(schema.Name))
	if err != nil {
		return fmt.Errorf("failed to check collection existence: %w", err)
	}

	if !exists {
		if err := c.createCollection(ctx, schema); err != nil {
			return err
		}
	}

	loadTask, err := c.client.LoadCollection(ctx, milvusclient.NewLoadCollectionOption(schema.Name))
	if err != nil {
		return fmt.Errorf("failed to load collection: %w", err)
	}
	if err := loadTask.Await(ctx); err != nil {
		return fmt.Errorf("failed to wait for collection loading: %w", err)
	}
	return nil
}

func (c *Client) createCollection(ctx context.Context, schema *CollectionSchema) error {
	// 主键由调用方提供, 同 ID 写入即覆盖
	collSchema := entity.NewSchema().
		WithName(schema.Name).
		WithDescription(schema.Description).
		WithAutoID(false).
		WithField(entity.NewField().
			WithName(FieldID).
			WithDataType(entity.FieldTypeVarChar).
			WithIsPrimaryKey(true).
			WithMaxLength(int64(schema.MaxIDLength))).
		WithField(entity.NewField().
			WithName(FieldContent).
			WithDataType(entity.FieldTypeVarChar).
			WithMaxLength(int64(schema.MaxContentLength))).
		WithField(entity.NewField().
			WithName(FieldEmbedding).
			WithDataType(entity.FieldTypeFloatVector).
			WithDim(int64(schema.Dimension)))

	if err := c.client.CreateCollection(ctx, milvusclient.NewCreateCollectionOption(schema.Name, collSchema)); err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}

	idx := index.NewIvfFlatIndex(entity.COSINE, 128)
	createIdxTask, err := c.client.CreateIndex(ctx, milvusclient.NewCreateIndexOption(schema.Name, FieldEmbedding, idx))
	if err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}
	if err := createIdxTask.Await(ctx); err != nil {
		return fmt.Errorf("failed to wait for index creation: %w", err)
	}
	return nil
}

// Upsert writes documents and flushes so they are searchable on return.
func (c *Client) Upsert(ctx context.Context, collectionName string, ids, contents []string, embeddings [][]float32) error {
	if len(ids) == 0 {
		return nil
	}
	if len(ids) != len(contents) || len(ids) != len(embeddings) {
		return fmt.Errorf("column length mismatch: ids=%d contents=%d embeddings=%d", len(ids), len(contents), len(embeddings))
	}

	_, err := c.client.Upsert(ctx, milvusclient.NewColumnBasedInsertOption(collectionName,
		column.NewColumnVarChar(FieldID, ids),
		column.NewColumnVarChar(FieldContent, contents),
		column.NewColumnFloatVector(FieldEmbedding, len(embeddings[0]), embeddings),
	))
	if err != nil {
		return fmt.Errorf("failed to upsert data: %w", err)
	}

	flushTask, err := c.client.Flush(ctx, milvusclient.NewFlushOption(collectionName))
	if err != nil {
		return fmt.Errorf("failed to flush collection: %w", err)
	}
	if err := flushTask.Await(ctx); err != nil {
		return fmt.Errorf("failed to wait for flush: %w", err)
	}
	return nil
}

// Hit is a single search hit.
type Hit struct {
	ID      string
	Content string
	Score   float32
}

// Search performs a COSINE similarity search and returns hits best-first.
func (c *Client) Search(ctx context.Context, collectionName string, vector []float32, topK int) ([]Hit, error) {
	results, err := c.client.Search(ctx, milvusclient.NewSearchOption(
		collectionName,
		topK,
		[]entity.Vector{entity.FloatVector(vector)},
	).WithANNSField(FieldEmbedding).
		WithSearchParam("nprobe", "16").
		WithConsistencyLevel(entity.ClStrong).
		WithOutputFields(FieldContent))
	if err != nil {
		return nil, fmt.Errorf("failed to search: %w", err)
	}

	if len(results) == 0 {
		return []Hit{}, nil
	}

	rs := results[0]
	hits := make([]Hit, 0, rs.ResultCount)
	for i := 0; i < rs.ResultCount; i++ {
		hit := Hit{Score: rs.Scores[i]}
		if idCol, ok := rs.IDs.(*column.ColumnVarChar); ok {
			hit.ID = idCol.Data()[i]
		}
		for _, field := range rs.Fields {
			if col, ok := field.(*column.ColumnVarChar); ok && col.Name() == FieldContent {
				hit.Content = col.Data()[i]
			}
		}
		hits = append(hits, hit)
	}

	return hits, nil
}

// Count returns the number of live entities in a collection.
func (c *Client) Count(ctx context.Context, collectionName string) (int64, error) {
	rs, err := c.client.Query(ctx, milvusclient.NewQueryOption(collectionName).
		WithOutputFields("count(*)").
		WithConsistencyLevel(entity.ClStrong))
	if err != nil {
		return 0, fmt.Errorf("failed to count entities: %w", err)
	}

	col := rs.GetColumn("count(*)")
	if col == nil || col.Len() == 0 {
		return 0, nil
	}
	return col.GetAsInt64(0)
}

// DropCollection drops a collection.
func (c *Client) DropCollection(ctx context.Context, collectionName string) error {
	if err := c.client.DropCollection(ctx, milvusclient.NewDropCollectionOption(collectionName)); err != nil {
		return fmt.Errorf("failed to drop collection: %w", err)
	}
	return nil
}
