package store

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/kart-io/sentinel-rag/pkg/component/sqlite"
	"github.com/kart-io/sentinel-rag/pkg/llm"
	"github.com/kart-io/sentinel-rag/pkg/utils/json"
)

// documentModel SQLite 中的文档表结构, 向量以 JSON 文本保存。
type documentModel struct {
	ID        string `gorm:"primaryKey;size:64"`
	Content   string `gorm:"type:text;not null"`
	Embedding string `gorm:"type:text;not null"`
	Dimension int    `gorm:"not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// SQLiteStore 基于 SQLite 的文档存储, 检索时全表计算余弦相似度。
type SQLiteStore struct {
	client   *sqlite.Client
	embedder llm.EmbeddingProvider
	table    string
}

// NewSQLiteStore 创建 SQLite 存储并迁移表结构。
func NewSQLiteStore(ctx context.Context, client *sqlite.Client, embedder llm.EmbeddingProvider, table string) (*SQLiteStore, error) {
	if table == "" {
		table = "documents"
	}
	s := &SQLiteStore{
		client:   client,
		embedder: embedder,
		table:    table,
	}
	if err := s.db(ctx).AutoMigrate(&documentModel{}); err != nil {
		return nil, fmt.Errorf("failed to migrate table %s: %w", table, err)
	}
	return s, nil
}

func (s *SQLiteStore) db(ctx context.Context) *gorm.DB {
	return s.client.DB().WithContext(ctx).Table(s.table)
}

// Insert 写入文档, 相同 ID 覆盖旧内容。
func (s *SQLiteStore) Insert(ctx context.Context, text, docID string) (string, error) {
	if err := ValidateText(text); err != nil {
		return "", err
	}
	if err := ValidateID(docID); err != nil {
		return "", err
	}

	vec, err := s.embedder.EmbedSingle(ctx, text)
	if err != nil {
		return "", unavailable(err)
	}
	encoded, err := json.MarshalVector(vec)
	if err != nil {
		return "", unavailable(err)
	}

	docID = resolveID(docID)
	row := documentModel{
		ID:        docID,
		Content:   text,
		Embedding: encoded,
		Dimension: len(vec),
	}

	err = s.db(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"content", "embedding", "dimension", "updated_at"}),
	}).Create(&row).Error
	if err != nil {
		return "", unavailable(err)
	}
	return docID, nil
}

// NearestNeighbor 返回最相似的 k 条文档。
func (s *SQLiteStore) NearestNeighbor(ctx context.Context, question string, k int) ([]Match, error) {
	if err := ValidateQuestion(question); err != nil {
		return nil, err
	}

	n, err := s.Count(ctx)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return []Match{}, nil
	}

	qv, err := s.embedder.EmbedSingle(ctx, question)
	if err != nil {
		return nil, unavailable(err)
	}

	var rows []documentModel
	if err := s.db(ctx).Where("dimension = ?", len(qv)).Find(&rows).Error; err != nil {
		return nil, unavailable(err)
	}

	matches := make([]Match, 0, len(rows))
	for _, row := range rows {
		vec, err := json.UnmarshalVector(row.Embedding)
		if err != nil {
			return nil, unavailable(fmt.Errorf("document %s: %w", row.ID, err))
		}
		matches = append(matches, Match{
			Document: Document{ID: row.ID, Text: row.Content},
			Score:    cosine(qv, vec),
		})
	}

	return rank(matches, normalizeK(k)), nil
}

// Count 返回文档数量。
func (s *SQLiteStore) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db(ctx).Count(&n).Error; err != nil {
		return 0, unavailable(err)
	}
	return n, nil
}

// Close 关闭数据库连接。
func (s *SQLiteStore) Close(context.Context) error {
	return s.client.Close()
}

var _ DocumentStore = (*SQLiteStore)(nil)
