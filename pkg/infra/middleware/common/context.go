// Package common 保存中间件子包与 response 包共用的请求上下文工具,
// 避免它们之间互相引用。
package common

import (
	"context"
	"strings"

	"github.com/kart-io/sentinel-rag/pkg/id"
)

const (
	HeaderXRequestID = "X-Request-ID"
	HeaderTraceID    = "X-Trace-ID"
)

// RequestIDKey 请求 ID 在 context 中的键。
type RequestIDKey struct{}

// GetRequestID 返回 ctx 中的请求 ID, 不存在时返回空串。
func GetRequestID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	requestID, _ := ctx.Value(RequestIDKey{}).(string)
	return requestID
}

func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey{}, requestID)
}

// GenerateRequestID 返回 32 位十六进制请求 ID (去掉连字符的 UUID v4)。
func GenerateRequestID() string {
	return strings.ReplaceAll(id.NewUUID(), "-", "")
}

// GenerateULIDRequestID 返回可按时间排序的 26 位 ULID。
func GenerateULIDRequestID() string {
	return id.NewULID()
}
