package main

import (
	"context"
	"errors"

	"healthcost-actions/internal/action"
	"healthcost-actions/internal/config"
	"healthcost-actions/internal/observability"
)

// initTelemetry starts trace, metric and log export and registers the
// action instruments. The returned shutdown flushes every provider.
func initTelemetry(ctx context.Context, cfg config.TelemetryConfig) (func(context.Context) error, error) {
	var shutdowns []func(context.Context) error
	shutdown := func(ctx context.Context) error {
		var errs []error
		for i := len(shutdowns) - 1; i >= 0; i-- {
			errs = append(errs, shutdowns[i](ctx))
		}
		return errors.Join(errs...)
	}

	opts := observability.TelemetryOptions{
		ServiceName:    cfg.ServiceName,
		SampleRatio:    cfg.SampleRatio,
		MetricInterval: cfg.MetricInterval,
	}

	for _, start := range []func(context.Context, observability.TelemetryOptions) (func(context.Context) error, error){
		observability.InitTracing,
		observability.InitMetrics,
		observability.InitLogging,
	} {
		fn, err := start(ctx, opts)
		if err != nil {
			_ = shutdown(ctx)
			return nil, err
		}
		shutdowns = append(shutdowns, fn)
	}

	if err := action.InitMetrics(); err != nil {
		_ = shutdown(ctx)
		return nil, err
	}

	return shutdown, nil
}
