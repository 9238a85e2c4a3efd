package logging

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Span represents a logical unit of work tied to a request trace.
type Span struct {
	name   string
	logger *slog.Logger
	start  time.Time
}

// StartSpan derives a child span from ctx. The first span on a context opens
// a trace; later spans log their parent span id.
func StartSpan(ctx context.Context, name string) (context.Context, *Span) {
	if ctx == nil {
		ctx = context.Background()
	}

	parent := idsFrom(ctx)
	spanID := uuid.NewString()

	attrs := []any{slog.String("span_id", spanID), slog.String("span_name", name)}
	ctx = withIDs(ctx, func(v *ids) {
		if v.trace == "" {
			v.trace = uuid.NewString()
			attrs = append(attrs, slog.String("trace_id", v.trace))
		}
		v.span = spanID
	})
	if parent.span != "" {
		attrs = append(attrs, slog.String("parent_span_id", parent.span))
	}

	logger := FromContext(ctx).With(attrs...)
	ctx = WithLogger(ctx, logger)

	return ctx, &Span{name: name, logger: logger, start: time.Now()}
}

// Elapsed reports the time since the span started.
func (s *Span) Elapsed() time.Duration {
	if s == nil {
		return 0
	}
	return time.Since(s.start)
}

// End finalizes the span and emits a completion log entry at debug level;
// resolution outcomes are logged separately at info.
func (s *Span) End(attrs ...slog.Attr) {
	if s == nil {
		return
	}
	args := make([]any, 0, len(attrs)+1)
	args = append(args, slog.Duration("duration", s.Elapsed()))
	for _, a := range attrs {
		args = append(args, a)
	}
	s.logger.Debug("span completed", args...)
}
