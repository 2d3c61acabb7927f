package tracing

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TracerName RAG 服务使用的 tracer 名称。
const TracerName = "github.com/kart-io/sentinel-rag"

// StartSpan starts a new span with the given name and options.
// It returns the new span and a context containing the span.
func StartSpan(ctx context.Context, spanName string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	return otel.Tracer(TracerName).Start(ctx, spanName, opts...)
}

// RecordError records an error on the span in the context.
// It marks the span as failed and adds the error as an event.
func RecordError(ctx context.Context, err error) {
	if err == nil {
		return
	}
	span := trace.SpanFromContext(ctx)
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

// SetSpanOK marks the span as successful.
func SetSpanOK(ctx context.Context) {
	trace.SpanFromContext(ctx).SetStatus(codes.Ok, "")
}

// TraceIDFromContext extracts the trace ID from the context.
// Returns an empty string if no trace is active.
func TraceIDFromContext(ctx context.Context) string {
	sc := trace.SpanFromContext(ctx).SpanContext()
	if !sc.IsValid() {
		return ""
	}
	return sc.TraceID().String()
}

// Attribute helpers.
var (
	String  = attribute.String
	Int     = attribute.Int
	Int64   = attribute.Int64
	Float64 = attribute.Float64
	Bool    = attribute.Bool
)

// Common attribute keys.
const (
	HTTPMethod     = "http.method"
	HTTPRoute      = "http.route"
	HTTPStatusCode = "http.status_code"
	HTTPRequestID  = "http.request_id"
	HTTPTarget     = "http.target"
	ServerAddress  = "server.address"
	UserAgent      = "user_agent.original"

	RAGDocumentID = "rag.document_id"
	RAGScore      = "rag.score"
	RAGFound      = "rag.found"
	RAGProvider   = "rag.provider"
)
