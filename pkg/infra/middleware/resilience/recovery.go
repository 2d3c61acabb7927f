// Package resilience provides middleware that keeps a server answering under faults.
package resilience

import (
	"fmt"
	"os"
	"runtime/debug"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/kart-io/logger"

	"github.com/kart-io/sentinel-rag/pkg/infra/middleware/common"
	mwopts "github.com/kart-io/sentinel-rag/pkg/options/middleware"
	"github.com/kart-io/sentinel-rag/pkg/utils/errors"
	"github.com/kart-io/sentinel-rag/pkg/utils/response"
)

// PanicHandler 定义 panic 处理器类型。
type PanicHandler func(c *gin.Context, err interface{}, stack []byte)

// Recovery returns a middleware that recovers from panics with default options.
func Recovery() gin.HandlerFunc {
	return RecoveryWithOptions(*mwopts.NewRecoveryOptions(), nil)
}

// RecoveryWithOptions 返回 Recovery 中间件。
// 完整堆栈总是写入日志; 仅在非生产环境且开启 EnableStackTrace 时返回给客户端。
// onPanic 可选, 用于告警等附加处理。
func RecoveryWithOptions(opts mwopts.RecoveryOptions, onPanic PanicHandler) gin.HandlerFunc {
	includeStack := opts.EnableStackTrace
	if includeStack && isProductionEnvironment() {
		logger.Warn("Stack trace is enabled but running in production environment; " +
			"stack traces will only be logged.")
		includeStack = false
	}

	return func(c *gin.Context) {
		defer func() {
			r := recover()
			if r == nil {
				return
			}
			stack := debug.Stack()

			logger.Errorw("panic recovered",
				"panic", r,
				"stack_trace", string(stack),
				"path", c.Request.URL.Path,
				"method", c.Request.Method,
				"request_id", common.GetRequestID(c.Request.Context()),
			)

			if onPanic != nil {
				onPanic(c, r, stack)
			}

			msg := fmt.Sprintf("panic: %v", r)
			if includeStack {
				msg = msg + "\n" + string(stack)
			}
			response.Fail(c, errors.ErrPanic.WithMessage(msg))
			c.Abort()
		}()
		c.Next()
	}
}

// isProductionEnvironment checks APP_ENV, falling back to GO_ENV.
func isProductionEnvironment() bool {
	env := os.Getenv("APP_ENV")
	if env == "" {
		env = os.Getenv("GO_ENV")
	}
	switch strings.ToLower(env) {
	case "production", "prod":
		return true
	default:
		return false
	}
}
