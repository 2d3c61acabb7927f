package store

import (
	"context"
	"math"
	"sort"
	"strings"

	"github.com/kart-io/sentinel-rag/pkg/id"
	"github.com/kart-io/sentinel-rag/pkg/utils/errors"
)

// Document 表示一条已存储的知识。
type Document struct {
	// ID 文档 ID, 未指定时自动生成 UUID。
	ID string `json:"id"`
	// Text 文档内容, 去除空白后不能为空。
	Text string `json:"text"`
}

// Match 表示一条检索命中。
type Match struct {
	Document
	// Score 相似度分数, 越大越相似。
	Score float32 `json:"score"`
}

// DocumentStore 定义文档存储接口。
type DocumentStore interface {
	// Insert 写入文档并返回使用的 ID。id 为空时自动生成, 相同 ID 后写覆盖先写。
	// 返回时索引已经更新, 后续检索可见。
	Insert(ctx context.Context, text, id string) (string, error)

	// NearestNeighbor 返回与 question 最相似的至多 k 条文档, 按相似度降序排列。
	// 存储为空时返回空切片。
	NearestNeighbor(ctx context.Context, question string, k int) ([]Match, error)

	// Count 返回文档数量。
	Count(ctx context.Context) (int64, error)

	// Close 释放底层资源。
	Close(ctx context.Context) error
}

// ValidateText 校验待写入文本。
func ValidateText(text string) error {
	if strings.TrimSpace(text) == "" {
		return errors.ErrRAGValidation.WithMessage("Text cannot be empty")
	}
	return nil
}

// ValidateQuestion 校验检索问题。
func ValidateQuestion(question string) error {
	if strings.TrimSpace(question) == "" {
		return errors.ErrRAGValidation.WithMessage("Query cannot be empty")
	}
	return nil
}

// MaxIDLength 文档 ID 的最大长度。
const MaxIDLength = 64

// ValidateID 校验调用方指定的文档 ID。
func ValidateID(docID string) error {
	if len(docID) > MaxIDLength {
		return errors.ErrRAGValidation.WithMessagef("ID exceeds %d characters", MaxIDLength)
	}
	return nil
}

func resolveID(docID string) string {
	if docID == "" {
		return id.NewUUID()
	}
	return docID
}

func unavailable(err error) error {
	return errors.ErrRAGStoreUnavailable.WithCause(err)
}

// rank 按分数降序、ID 升序排序并截取前 k 条, 保证相同输入得到相同顺序。
func rank(matches []Match, k int) []Match {
	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		return matches[i].ID < matches[j].ID
	})
	if len(matches) > k {
		matches = matches[:k]
	}
	return matches
}

func normalizeK(k int) int {
	if k <= 0 {
		return 1
	}
	return k
}

// cosine 计算余弦相似度, 维度不一致或零向量返回 0。
func cosine(a, b []float32) float32 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(na) * math.Sqrt(nb)))
}
