// Package middleware provides gin middleware and endpoints shared by HTTP servers.
package middleware

import (
	"github.com/gin-gonic/gin"

	infralog "github.com/kart-io/sentinel-rag/pkg/infra/logger"
	"github.com/kart-io/sentinel-rag/pkg/infra/middleware/common"
	mwopts "github.com/kart-io/sentinel-rag/pkg/options/middleware"
)

// HeaderXRequestID is re-exported from common.
const HeaderXRequestID = common.HeaderXRequestID

// GetRequestID returns the request ID stored in the context.
var GetRequestID = common.GetRequestID

// RequestID returns a middleware that adds a unique request ID to each request.
func RequestID() gin.HandlerFunc {
	return RequestIDWithOptions(*mwopts.NewRequestIDOptions(), nil)
}

// RequestIDWithOptions 返回一个请求 ID 中间件。
// generator 为 nil 时按 opts.GeneratorType 选择生成器。
// 已携带请求 ID 的请求沿用原值, ID 同时写入响应头与请求上下文。
func RequestIDWithOptions(opts mwopts.RequestIDOptions, generator func() string) gin.HandlerFunc {
	header := opts.Header
	if header == "" {
		header = HeaderXRequestID
	}
	if generator == nil {
		generator = generatorFor(opts.GeneratorType)
	}

	return func(c *gin.Context) {
		requestID := c.GetHeader(header)
		if requestID == "" {
			requestID = generator()
		}

		c.Header(header, requestID)
		c.Set("request_id", requestID)
		ctx := common.WithRequestID(c.Request.Context(), requestID)
		c.Request = c.Request.WithContext(infralog.WithRequestID(ctx, requestID))

		c.Next()
	}
}

func generatorFor(kind string) func() string {
	if kind == mwopts.GeneratorULID {
		return common.GenerateULIDRequestID
	}
	return common.GenerateRequestID
}
