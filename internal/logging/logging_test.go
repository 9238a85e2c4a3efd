package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		" WARN ":  slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for in, want := range cases {
		assert.Equal(t, want, ParseLevel(in), in)
	}
}

func TestStartSpanEnrichesLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, "debug")

	ctx := WithLogger(context.Background(), logger)
	ctx = WithRequestID(ctx, "req-1")

	ctx, span := StartSpan(ctx, "resolve")
	assert.NotEmpty(t, TraceIDFromContext(ctx))
	parent := SpanIDFromContext(ctx)
	require.NotEmpty(t, parent)

	child, childSpan := StartSpan(ctx, "transport")
	assert.NotEqual(t, parent, SpanIDFromContext(child))
	assert.Equal(t, TraceIDFromContext(ctx), TraceIDFromContext(child))
	childSpan.End()
	span.End(slog.String("outcome", "ok"))

	assert.Equal(t, "req-1", RequestIDFromContext(ctx), "request id survives span creation")

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 2)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(lines[0], &entry))
	assert.Equal(t, "transport", entry["span_name"])
	assert.Equal(t, parent, entry["parent_span_id"])
	assert.Equal(t, TraceIDFromContext(ctx), entry["trace_id"])
}

func TestFromContextFallsBackToDefault(t *testing.T) {
	assert.Equal(t, slog.Default(), FromContext(context.Background()))

	var span *Span
	span.End()
	assert.Zero(t, span.Elapsed())
}

func TestWithEnrichesContextLogger(t *testing.T) {
	var buf bytes.Buffer
	ctx := WithLogger(context.Background(), New(&buf, "info"))
	ctx = WithRequestID(ctx, "req-2")

	ctx, logger := With(ctx, "video_url", "https://x.com/a")
	assert.Same(t, logger, FromContext(ctx))
	assert.Equal(t, "req-2", RequestIDFromContext(ctx), "request id survives enrichment")
	FromContext(ctx).Info("resolved")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry))
	assert.Equal(t, "https://x.com/a", entry["video_url"])
}
