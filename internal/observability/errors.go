package observability

import (
	"context"
	"net/http"

	"healthcost-actions/internal/handlers"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// RecordError handles a transport-level failure, one where no action
// envelope could be produced at all: it marks the span, bumps counter, logs
// with trace context and writes a JSON error response with status.
func RecordError(ctx context.Context, span trace.Span, logger *zap.Logger, counter metric.Int64Counter, opName, msg string, err error, status int, w http.ResponseWriter) {
	span.RecordError(err)
	span.SetStatus(codes.Error, msg)

	counter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("operation", opName),
		attribute.Int("http.status_code", status),
	))

	requestID := RequestIDFromContext(ctx)
	logger.Error(msg,
		zap.String("operation", opName),
		zap.Int("status", status),
		zap.Error(err),
		zap.String("request_id", requestID),
	)

	if requestID != "" {
		w.Header().Set(RequestIDHeader, requestID)
	}
	handlers.WriteError(w, status, msg)
}
