package observability

import (
	"context"
	"os"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

const defaultServiceName = "healthcost-actions"

// TelemetryOptions tunes the OTLP providers. Exporter endpoints and headers
// still come from the standard OTEL_EXPORTER_OTLP_* variables.
type TelemetryOptions struct {
	// ServiceName overrides OTEL_SERVICE_NAME when set.
	ServiceName string
	// SampleRatio is the fraction of root traces kept. Zero or less keeps none,
	// one or more keeps all. Child spans follow their parent's decision.
	SampleRatio float64
	// MetricInterval is the OTLP metric push period; zero uses the SDK default.
	MetricInterval time.Duration
}

func (o TelemetryOptions) serviceName() string {
	if o.ServiceName != "" {
		return o.ServiceName
	}
	return ServiceName()
}

func (o TelemetryOptions) sampler() sdktrace.Sampler {
	switch {
	case o.SampleRatio >= 1:
		return sdktrace.ParentBased(sdktrace.AlwaysSample())
	case o.SampleRatio <= 0:
		return sdktrace.ParentBased(sdktrace.NeverSample())
	}
	return sdktrace.ParentBased(sdktrace.TraceIDRatioBased(o.SampleRatio))
}

func InitTracing(ctx context.Context, opts TelemetryOptions) (func(context.Context) error, error) {
	exporter, err := otlptracehttp.New(ctx)
	if err != nil {
		return nil, err
	}

	res, err := newResource(ctx, opts)
	if err != nil {
		return nil, err
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(opts.sampler()),
	)

	otel.SetTracerProvider(provider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return provider.Shutdown, nil
}

// ServiceName is OTEL_SERVICE_NAME, or healthcost-actions when unset.
func ServiceName() string {
	if name := os.Getenv("OTEL_SERVICE_NAME"); name != "" {
		return name
	}
	return defaultServiceName
}

func newResource(ctx context.Context, opts TelemetryOptions) (*resource.Resource, error) {
	return resource.New(
		ctx,
		resource.WithFromEnv(),
		resource.WithAttributes(
			semconv.ServiceName(opts.serviceName()),
		),
	)
}
