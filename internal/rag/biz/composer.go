package biz

import (
	"context"
	"strings"

	"github.com/kart-io/logger"

	infralog "github.com/kart-io/sentinel-rag/pkg/infra/logger"
	"github.com/kart-io/sentinel-rag/pkg/llm"
	"github.com/kart-io/sentinel-rag/pkg/utils/errors"
)

// BuildPrompt 组装生成提示词。
// 生成后端按此格式调优, 字段原样插入, 不做截断或转义。
func BuildPrompt(question, context string) string {
	var b strings.Builder
	b.Grow(len(context) + len(question) + 64)
	b.WriteString("Context:\n")
	b.WriteString(context)
	b.WriteString("\n\nQuestion: ")
	b.WriteString(question)
	b.WriteString("\n\nAnswer clearly and concisely:")
	return b.String()
}

// Composer 负责答案生成。
type Composer struct {
	generator llm.GenerationProvider
}

// NewComposer 创建 Composer, 模型由 generator 的配置确定。
func NewComposer(generator llm.GenerationProvider) *Composer {
	return &Composer{generator: generator}
}

// Answer 根据上下文回答问题, 返回后端生成的原始文本。失败不重试。
func (c *Composer) Answer(ctx context.Context, question, context string) (string, error) {
	resp, err := c.Generate(ctx, question, context)
	if err != nil {
		return "", err
	}
	return resp.Content, nil
}

// Generate 与 Answer 相同, 但返回完整响应以便读取 token 用量。
func (c *Composer) Generate(ctx context.Context, question, context string) (*llm.GenerateResponse, error) {
	if isBlank(question) {
		return nil, errors.ErrRAGValidation.WithMessage("Query cannot be empty")
	}
	if isBlank(context) {
		return nil, errors.ErrRAGValidation.WithMessage("Context cannot be empty")
	}

	resp, err := c.generator.Generate(ctx, BuildPrompt(question, context), "")
	if err != nil {
		infralog.LogError(ctx, "Answer generation failed", err, "provider", c.generator.Name())
		return nil, errors.ErrRAGGeneration.WithCause(err)
	}

	if resp.TokenUsage != nil {
		logger.Debugw("Answer generated",
			"length", len(resp.Content),
			"tokens", resp.TokenUsage.TotalTokens,
		)
	}
	return resp, nil
}

func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}
