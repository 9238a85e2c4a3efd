package logging

import (
	"context"
	"log/slog"
)

type ctxKey int

const (
	loggerKey ctxKey = iota
	idsKey
)

// ids carries the correlation identifiers attached to a request. It is
// copied on every change so derived contexts never alias their parent.
type ids struct {
	request string
	trace   string
	span    string
}

func idsFrom(ctx context.Context) ids {
	if ctx == nil {
		return ids{}
	}
	v, _ := ctx.Value(idsKey).(ids)
	return v
}

func withIDs(ctx context.Context, update func(*ids)) context.Context {
	v := idsFrom(ctx)
	update(&v)
	return context.WithValue(ctx, idsKey, v)
}

// WithLogger stores the provided logger on the context.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	if ctx == nil || logger == nil {
		return ctx
	}
	return context.WithValue(ctx, loggerKey, logger)
}

// FromContext returns the request-scoped logger or falls back to slog.Default().
func FromContext(ctx context.Context) *slog.Logger {
	if ctx == nil {
		return slog.Default()
	}
	if logger, ok := ctx.Value(loggerKey).(*slog.Logger); ok && logger != nil {
		return logger
	}
	return slog.Default()
}

// With enriches the context logger with args and returns both.
func With(ctx context.Context, args ...any) (context.Context, *slog.Logger) {
	if ctx == nil {
		ctx = context.Background()
	}
	logger := FromContext(ctx)
	if len(args) == 0 {
		return ctx, logger
	}
	logger = logger.With(args...)
	return WithLogger(ctx, logger), logger
}

// WithRequestID stores a request identifier on the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	if ctx == nil || requestID == "" {
		return ctx
	}
	return withIDs(ctx, func(v *ids) { v.request = requestID })
}

// RequestIDFromContext retrieves a previously stored request identifier.
func RequestIDFromContext(ctx context.Context) string {
	return idsFrom(ctx).request
}

// WithTraceID stores a trace identifier on the context.
func WithTraceID(ctx context.Context, traceID string) context.Context {
	if ctx == nil || traceID == "" {
		return ctx
	}
	return withIDs(ctx, func(v *ids) { v.trace = traceID })
}

// TraceIDFromContext retrieves the trace identifier from the context.
func TraceIDFromContext(ctx context.Context) string {
	return idsFrom(ctx).trace
}

// WithSpanID stores the current span identifier on the context.
func WithSpanID(ctx context.Context, spanID string) context.Context {
	if ctx == nil || spanID == "" {
		return ctx
	}
	return withIDs(ctx, func(v *ids) { v.span = spanID })
}

// SpanIDFromContext retrieves the span identifier from the context.
func SpanIDFromContext(ctx context.Context) string {
	return idsFrom(ctx).span
}
