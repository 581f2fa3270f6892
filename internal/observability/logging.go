package observability

import (
	"context"

	"go.opentelemetry.io/contrib/bridges/otelzap"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploghttp"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// InitLogging tees Logger into an OTLP log exporter. Call it after
// InitLogger. Debug entries stay on stdout only.
func InitLogging(ctx context.Context, opts TelemetryOptions) (func(context.Context) error, error) {
	exporter, err := otlploghttp.New(ctx)
	if err != nil {
		return nil, err
	}

	res, err := newResource(ctx, opts)
	if err != nil {
		return nil, err
	}

	provider := sdklog.NewLoggerProvider(
		sdklog.WithResource(res),
		sdklog.WithProcessor(sdklog.NewBatchProcessor(exporter)),
	)

	Logger = teeOTLP(Logger, otelzap.NewCore(opts.serviceName(), otelzap.WithLoggerProvider(provider)))

	return provider.Shutdown, nil
}

func teeOTLP(base *zap.Logger, otelCore zapcore.Core) *zap.Logger {
	exported, err := zapcore.NewIncreaseLevelCore(otelCore, zapcore.InfoLevel)
	if err != nil {
		exported = otelCore
	}
	return base.WithOptions(zap.WrapCore(func(c zapcore.Core) zapcore.Core {
		return zapcore.NewTee(c, exported)
	}))
}
