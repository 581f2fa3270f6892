package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"healthcost-actions/internal/action"
	"healthcost-actions/internal/config"
	"healthcost-actions/internal/observability"
	"healthcost-actions/internal/server"

	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", "", "Path to config.yaml (optional)")
	flag.Parse()

	ctx := context.Background()

	if err := config.LoadDotEnv(); err != nil {
		panic(err)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		panic(err)
	}

	// Logger
	err = observability.InitLogger()
	if err != nil {
		panic(err)
	}
	defer observability.SyncLogger()

	// Tracing, metrics, log export
	if cfg.Telemetry.Enabled {
		shutdown, err := initTelemetry(ctx, cfg.Telemetry)
		if err != nil {
			panic(err)
		}
		defer shutdown(ctx)
	}

	dispatcher := action.NewDispatcher(observability.Logger.Named("action"), action.Options{
		VerboseErrors: cfg.Dispatch.VerboseErrors,
		LenientJSON:   cfg.Dispatch.LenientJSON,
	})

	var limiter *observability.RateLimiter
	if cfg.RateLimit.Enabled {
		limiter = observability.NewRateLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst, 0)
	}

	// Router
	router := server.NewRouter(dispatcher, limiter)

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		observability.Logger.Info("server started",
			zap.String("addr", cfg.Server.Addr),
			zap.Bool("telemetry", cfg.Telemetry.Enabled),
			zap.Bool("rate_limit", cfg.RateLimit.Enabled),
		)

		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			panic(err)
		}
	}()

	waitForShutdown(srv, cfg.Server.ShutdownTimeout)
}

func waitForShutdown(srv *http.Server, timeout time.Duration) {
	stop := make(chan os.Signal, 1)

	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		observability.Logger.Error("server shutdown", zap.Error(err))
	}
}
