package logging

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Span times a multi-step operation such as a cascade delete and logs its
// outcome under the request's trace.
type Span struct {
	logger *slog.Logger
	start  time.Time
	err    error
}

// StartSpan opens a span named name. The first span in a context also starts a
// trace whose id is added to the context logger; nested spans record their parent.
func StartSpan(ctx context.Context, name string) (context.Context, *Span) {
	if ctx == nil {
		ctx = context.Background()
	}

	if _, ok := value[string](ctx, traceIDKey); !ok {
		traceID := uuid.NewString()
		ctx = context.WithValue(ctx, traceIDKey, traceID)
		ctx = With(ctx, slog.String("trace_id", traceID))
	}

	attrs := []any{slog.String("span_name", name)}
	if parent, ok := value[string](ctx, spanIDKey); ok {
		attrs = append(attrs, slog.String("parent_span_id", parent))
	}
	spanID := uuid.NewString()
	attrs = append(attrs, slog.String("span_id", spanID))
	ctx = context.WithValue(ctx, spanIDKey, spanID)

	return ctx, &Span{logger: FromContext(ctx).With(attrs...), start: time.Now()}
}

// RecordError marks the span as failed. The last recorded error is logged by End.
func (s *Span) RecordError(err error) {
	if s == nil || err == nil {
		return
	}
	s.err = err
}

// End logs the span's duration, at error level when it failed.
func (s *Span) End() {
	if s == nil {
		return
	}
	elapsed := slog.Duration("duration", time.Since(s.start))
	if s.err != nil {
		s.logger.Error("span failed", elapsed, slog.Any("error", s.err))
		return
	}
	s.logger.Info("span completed", elapsed)
}
