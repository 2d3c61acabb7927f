package logger

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

func TestWithRequestID(t *testing.T) {
	ctx := context.Background()
	assert.Nil(t, GetContextFields(WithRequestID(ctx, "")))

	ctx = WithRequestID(ctx, "req-1")
	assert.Equal(t, []any{"request_id", "req-1"}, GetContextFields(ctx))
}

func TestWithFieldsCopyOnWrite(t *testing.T) {
	parent := WithFields(context.Background(), "doc_id", "k8s", "op")
	assert.Equal(t, []any{"doc_id", "k8s"}, GetContextFields(parent))

	child := WithFields(parent, "doc_id", "go", "backend", "memory", 42, "skipped")
	assert.Equal(t, []any{"doc_id", "go", "backend", "memory"}, GetContextFields(child))
	// 父 context 不受影响
	assert.Equal(t, []any{"doc_id", "k8s"}, GetContextFields(parent))
}

func TestExtractOpenTelemetryFields(t *testing.T) {
	ctx := context.Background()
	assert.Nil(t, GetContextFields(ExtractOpenTelemetryFields(ctx)))

	tp := sdktrace.NewTracerProvider()
	defer func() { _ = tp.Shutdown(ctx) }()
	ctx, span := tp.Tracer("test").Start(ctx, "op")
	defer span.End()

	fields := GetContextFields(ExtractOpenTelemetryFields(ctx))
	assert.Equal(t, []any{
		"trace_id", span.SpanContext().TraceID().String(),
		"span_id", span.SpanContext().SpanID().String(),
	}, fields)
}

func TestUnwrapError(t *testing.T) {
	assert.Nil(t, UnwrapError(nil))

	root := errors.New("connection refused")
	err := fmt.Errorf("embed: %w", root)
	assert.Equal(t, []string{"embed: connection refused", "connection refused"}, UnwrapError(err))
}

func TestLogHelpersDoNotPanic(t *testing.T) {
	ctx := WithRequestID(context.Background(), "req-2")
	assert.NotPanics(t, func() {
		LogInfo(ctx, "info", "k", "v")
		LogWarn(ctx, "warn")
		LogError(ctx, "error", fmt.Errorf("wrap: %w", errors.New("boom")), "op", "query")
	})
}

func TestEscapeCoreKeys(t *testing.T) {
	in := []any{"source", "ingest", "id", "doc-1", "caller", "x", 7, "skipped"}
	assert.Equal(t,
		[]any{"field_source", "ingest", "id", "doc-1", "field_caller", "x", 7, "skipped"},
		escapeCoreKeys(in))
	// 入参不被修改
	assert.Equal(t, "source", in[0])

	plain := []any{"origin", "api", "length", 3}
	assert.Equal(t, plain, escapeCoreKeys(plain))
	assert.Nil(t, escapeCoreKeys(nil))
}
