// Package logger provides structured logging utilities with context propagation.
//
// 请求链路上的中间件把 request_id、trace_id 等字段写入 context,
// 业务代码通过 LogInfo / LogError 等函数输出时自动携带这些字段。
package logger

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/trace"

	"github.com/kart-io/logger"
	"github.com/kart-io/logger/core"
	"github.com/kart-io/logger/fields"
)

type contextKey int

const loggerFieldsKey contextKey = iota

// loggerFields 不可变, 写入时复制。
type loggerFields struct {
	keys   []string
	values map[string]any
}

func (lf *loggerFields) with(key string, value any) *loggerFields {
	n := &loggerFields{values: make(map[string]any, len(lf.keys)+1)}
	for _, k := range lf.keys {
		n.keys = append(n.keys, k)
		n.values[k] = lf.values[k]
	}
	if _, ok := n.values[key]; !ok {
		n.keys = append(n.keys, key)
	}
	n.values[key] = value
	return n
}

func (lf *loggerFields) toSlice() []any {
	if len(lf.keys) == 0 {
		return nil
	}
	out := make([]any, 0, len(lf.keys)*2)
	for _, k := range lf.keys {
		out = append(out, k, lf.values[k])
	}
	return out
}

func fieldsFrom(ctx context.Context) *loggerFields {
	if lf, ok := ctx.Value(loggerFieldsKey).(*loggerFields); ok {
		return lf
	}
	return &loggerFields{}
}

func withField(ctx context.Context, key string, value any) context.Context {
	return context.WithValue(ctx, loggerFieldsKey, fieldsFrom(ctx).with(key, value))
}

// WithRequestID adds request_id to the context logger fields.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	if requestID == "" {
		return ctx
	}
	return withField(ctx, "request_id", requestID)
}

// WithFields adds custom key-value pairs to the context.
// 奇数个参数时忽略最后一个, 非字符串 key 被跳过。
func WithFields(ctx context.Context, keysAndValues ...any) context.Context {
	if len(keysAndValues)%2 != 0 {
		keysAndValues = keysAndValues[:len(keysAndValues)-1]
	}
	if len(keysAndValues) == 0 {
		return ctx
	}

	lf := fieldsFrom(ctx)
	for i := 0; i < len(keysAndValues); i += 2 {
		if key, ok := keysAndValues[i].(string); ok {
			lf = lf.with(key, keysAndValues[i+1])
		}
	}
	return context.WithValue(ctx, loggerFieldsKey, lf)
}

// ExtractOpenTelemetryFields 把当前 span 的 trace_id 与 span_id 写入日志字段。
func ExtractOpenTelemetryFields(ctx context.Context) context.Context {
	sc := trace.SpanFromContext(ctx).SpanContext()
	if !sc.IsValid() {
		return ctx
	}
	return WithFields(ctx,
		"trace_id", sc.TraceID().String(),
		"span_id", sc.SpanID().String(),
	)
}

// GetContextFields retrieves all logger fields from context in insertion order.
func GetContextFields(ctx context.Context) []any {
	return fieldsFrom(ctx).toSlice()
}

// GetLogger 返回携带 context 字段的全局 logger。
func GetLogger(ctx context.Context) core.Logger {
	base := logger.Global()
	if fields := GetContextFields(ctx); len(fields) > 0 {
		return base.With(fields...)
	}
	return base
}

// coreKeys 会被日志引擎映射为 timestamp、caller 等核心字段的 key。
var coreKeys = fields.NewFieldMapper().MapCoreFields()

// escapeCoreKeys 给与核心字段冲突的业务 key 加上 "field_" 前缀,
// 例如 "source" 会被 slog 引擎当成 caller 输出。
func escapeCoreKeys(keysAndValues []any) []any {
	out := keysAndValues
	copied := false
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		key, ok := keysAndValues[i].(string)
		if !ok {
			continue
		}
		if _, reserved := coreKeys[key]; !reserved {
			continue
		}
		if !copied {
			out = append([]any(nil), keysAndValues...)
			copied = true
		}
		out[i] = "field_" + key
	}
	return out
}

// LogInfo logs an info message with context fields.
func LogInfo(ctx context.Context, msg string, keysAndValues ...any) {
	GetLogger(ctx).Infow(msg, escapeCoreKeys(keysAndValues)...)
}

// LogWarn logs a warning message with context fields.
func LogWarn(ctx context.Context, msg string, keysAndValues ...any) {
	GetLogger(ctx).Warnw(msg, escapeCoreKeys(keysAndValues)...)
}

// LogError logs err together with its unwrapped chain and the context fields.
func LogError(ctx context.Context, msg string, err error, keysAndValues ...any) {
	fields := append([]any{
		"error_message", err.Error(),
		"error_type", fmt.Sprintf("%T", err),
	}, escapeCoreKeys(keysAndValues)...)
	if chain := UnwrapError(err); len(chain) > 1 {
		fields = append(fields, "error_chain", chain)
	}
	GetLogger(ctx).Errorw(msg, fields...)
}

// UnwrapError returns the messages of every error in a single-unwrap chain.
func UnwrapError(err error) []string {
	var messages []string
	for err != nil {
		messages = append(messages, err.Error())
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			break
		}
		err = u.Unwrap()
	}
	return messages
}
