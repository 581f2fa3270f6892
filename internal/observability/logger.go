package observability

import (
	"context"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Logger is the process logger used by the transport layer. Domain code
// receives its logger through constructors instead of reading this.
var Logger = zap.NewNop()

func InitLogger() error {
	l, err := zap.NewProduction()
	if err != nil {
		return err
	}

	Logger = l
	return nil
}

func SyncLogger() {
	_ = Logger.Sync()
}

// LoggerWithTrace is TraceLogger applied to the process logger.
func LoggerWithTrace(ctx context.Context) *zap.Logger {
	return TraceLogger(ctx, Logger)
}

// TraceLogger returns a child of base enriched with trace_id and span_id
// from the active span in ctx.
//
// ctx itself is attached as zap.Any("context", ctx): the otelzap core picks up
// any field holding a context.Context and emits the OTLP record with it, so
// the exported record carries the native TraceID/SpanID rather than zeros.
// The plain string fields keep stdout JSON greppable.
func TraceLogger(ctx context.Context, base *zap.Logger) *zap.Logger {
	if base == nil {
		base = Logger
	}

	span := trace.SpanContextFromContext(ctx)
	if !span.IsValid() {
		return base
	}

	return base.With(
		zap.Any("context", ctx),
		zap.String("trace_id", span.TraceID().String()),
		zap.String("span_id", span.SpanID().String()),
	)
}
