package observability

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	infralog "github.com/kart-io/sentinel-rag/pkg/infra/logger"
	"github.com/kart-io/sentinel-rag/pkg/infra/middleware/common"
	"github.com/kart-io/sentinel-rag/pkg/infra/tracing"
)

// Tracing 返回为每个请求创建服务端 span 的中间件。
// 从请求头提取 W3C trace context, 并把 trace ID 写回 X-Trace-ID 响应头。
func Tracing(skipPaths ...string) gin.HandlerFunc {
	skip := make(map[string]struct{}, len(skipPaths))
	for _, p := range skipPaths {
		skip[p] = struct{}{}
	}

	return func(c *gin.Context) {
		req := c.Request
		if _, ok := skip[req.URL.Path]; ok {
			c.Next()
			return
		}

		ctx := otel.GetTextMapPropagator().Extract(req.Context(), propagation.HeaderCarrier(req.Header))

		route := c.FullPath()
		if route == "" {
			route = req.URL.Path
		}
		ctx, span := tracing.StartSpan(ctx, fmt.Sprintf("%s %s", req.Method, route),
			trace.WithSpanKind(trace.SpanKindServer))
		defer span.End()

		attrs := []attribute.KeyValue{
			attribute.String(tracing.HTTPMethod, req.Method),
			attribute.String(tracing.HTTPRoute, route),
			attribute.String(tracing.HTTPTarget, req.URL.Path),
			attribute.String(tracing.ServerAddress, req.Host),
		}
		if ua := req.UserAgent(); ua != "" {
			attrs = append(attrs, attribute.String(tracing.UserAgent, ua))
		}
		if requestID := common.GetRequestID(ctx); requestID != "" {
			attrs = append(attrs, attribute.String(tracing.HTTPRequestID, requestID))
		}
		span.SetAttributes(attrs...)

		if sc := span.SpanContext(); sc.HasTraceID() {
			c.Header(common.HeaderTraceID, sc.TraceID().String())
		}

		c.Request = req.WithContext(infralog.ExtractOpenTelemetryFields(ctx))
		c.Next()

		status := c.Writer.Status()
		span.SetAttributes(attribute.Int(tracing.HTTPStatusCode, status))
		switch {
		case status >= 500:
			span.SetStatus(codes.Error, http.StatusText(status))
			span.RecordError(fmt.Errorf("HTTP %d: %s", status, http.StatusText(status)))
		case status >= 400:
			span.SetStatus(codes.Error, http.StatusText(status))
		default:
			span.SetStatus(codes.Ok, "")
		}
	}
}
