// Package hash 提供基于特征哈希的本地 Embedding 供应商。
//
// 不依赖任何外部服务, 同一文本总是得到同一向量, 适合离线运行和测试。
// 词项经小写化、去停用词后通过 FNV-1a 映射到固定维度, 结果做 L2 归一化。
package hash

import (
	"context"
	"hash/fnv"
	"math"
	"regexp"
	"strings"

	"github.com/kart-io/sentinel-rag/pkg/llm"
)

// ProviderName 供应商注册名。
const ProviderName = "hash"

// DefaultDimension 默认向量维度。
const DefaultDimension = 768

func init() {
	llm.RegisterEmbeddingProvider(ProviderName, func(config map[string]any) (llm.EmbeddingProvider, error) {
		dim := DefaultDimension
		if v, ok := config["dimension"].(int); ok && v > 0 {
			dim = v
		}
		return NewProvider(dim), nil
	})
}

var tokenPattern = regexp.MustCompile(`[\p{L}\p{N}]+`)

// Provider 特征哈希 Embedding 供应商。
type Provider struct {
	dimension int
	stopwords map[string]struct{}
}

// NewProvider 创建指定维度的供应商。
func NewProvider(dimension int) *Provider {
	if dimension <= 0 {
		dimension = DefaultDimension
	}
	return &Provider{
		dimension: dimension,
		stopwords: defaultStopwords(),
	}
}

// Name 返回供应商名称。
func (p *Provider) Name() string { return ProviderName }

// Dimension 返回向量维度。
func (p *Provider) Dimension() int { return p.dimension }

// Embed 为多个文本生成向量嵌入。
func (p *Provider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out[i] = p.vector(text)
	}
	return out, nil
}

// EmbedSingle 为单个文本生成向量嵌入。
func (p *Provider) EmbedSingle(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return p.vector(text), nil
}

func (p *Provider) vector(text string) []float32 {
	vec := make([]float64, p.dimension)
	for _, tok := range p.tokenize(text) {
		h := fnv.New64a()
		_, _ = h.Write([]byte(tok))
		sum := h.Sum64()
		idx := int(sum % uint64(p.dimension))
		// 最高位决定符号, 降低哈希碰撞带来的偏差
		if sum>>63 == 1 {
			vec[idx]--
		} else {
			vec[idx]++
		}
	}

	norm := 0.0
	for _, v := range vec {
		norm += v * v
	}
	norm = math.Sqrt(norm)

	out := make([]float32, p.dimension)
	if norm == 0 {
		return out
	}
	for i, v := range vec {
		out[i] = float32(v / norm)
	}
	return out
}

func (p *Provider) tokenize(text string) []string {
	raw := tokenPattern.FindAllString(strings.ToLower(text), -1)
	out := raw[:0]
	for _, t := range raw {
		if _, stop := p.stopwords[t]; stop {
			continue
		}
		out = append(out, t)
	}
	return out
}

func defaultStopwords() map[string]struct{} {
	words := []string{
		"a", "an", "the", "and", "or", "but", "if", "then", "for", "to", "of", "in", "on", "at", "by",
		"with", "as", "is", "are", "was", "were", "be", "been", "it", "this", "that", "these", "those",
		"from", "what", "which", "who", "how", "why", "when", "where", "do", "does", "did",
	}
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}
