package action

import (
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

// Metric instruments. They start as no-ops so the dispatcher is usable before
// InitMetrics runs (tests, the CLI).
var (
	invocationCounter metric.Int64Counter     = noop.Int64Counter{}
	durationHistogram metric.Float64Histogram = noop.Float64Histogram{}
	errorCounter      metric.Int64Counter     = noop.Int64Counter{}
	savingsHistogram  metric.Float64Histogram = noop.Float64Histogram{}
)

// InitMetrics registers the action group's OTel instruments. Call it once at
// startup, after observability.InitMetrics.
func InitMetrics() error {
	meter := otel.Meter("action")

	var err error

	invocationCounter, err = meter.Int64Counter("action.invocations.total",
		metric.WithDescription("Action invocations by API path and outcome"),
		metric.WithUnit("{invocation}"),
	)
	if err != nil {
		return fmt.Errorf("creating invocation counter: %w", err)
	}

	durationHistogram, err = meter.Float64Histogram("action.invocation.duration",
		metric.WithDescription("Duration of action invocations in milliseconds"),
		metric.WithUnit("ms"),
		metric.WithExplicitBucketBoundaries(0.01, 0.05, 0.1, 0.5, 1, 5, 10),
	)
	if err != nil {
		return fmt.Errorf("creating duration histogram: %w", err)
	}

	errorCounter, err = meter.Int64Counter("action.errors.total",
		metric.WithDescription("Invocations that ended in a dispatcher or transport error"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return fmt.Errorf("creating error counter: %w", err)
	}

	savingsHistogram, err = meter.Float64Histogram("action.price_comparison.savings_percent",
		metric.WithDescription("Spread between highest and lowest quoted hospital price"),
		metric.WithUnit("%"),
		metric.WithExplicitBucketBoundaries(5, 10, 20, 30, 50, 75),
	)
	if err != nil {
		return fmt.Errorf("creating savings histogram: %w", err)
	}

	return nil
}
