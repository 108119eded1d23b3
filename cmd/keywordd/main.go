package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sony/gobreaker"

	"github.com/snow-ghost/robotai/pkg/config"
	"github.com/snow-ghost/robotai/pkg/cost"
	"github.com/snow-ghost/robotai/pkg/httpserver"
	"github.com/snow-ghost/robotai/pkg/limiter"
	"github.com/snow-ghost/robotai/pkg/logging"
	"github.com/snow-ghost/robotai/pkg/metrics"
	"github.com/snow-ghost/robotai/pkg/providers"
	"github.com/snow-ghost/robotai/pkg/registry"
	"github.com/snow-ghost/robotai/pkg/tokens"
	"github.com/snow-ghost/robotai/pkg/tracing"
)

func main() {
	if len(os.Args) > 1 && os.Args[1] == "healthcheck" {
		healthcheck()
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("failed to load config:", err)
	}

	logger, err := logging.NewLogger(logging.Config{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
		Output: "stdout",
	})
	if err != nil {
		log.Fatal("failed to create logger:", err)
	}
	defer logger.Sync()

	promRegistry := prometheus.NewRegistry()
	promMetrics := metrics.NewPrometheusMetrics(promRegistry)

	tracer, err := tracing.NewTracer(tracing.Config{
		ServiceName:    "keywordd",
		ServiceVersion: "1.0.0",
		JaegerEndpoint: cfg.JaegerEndpoint,
		Environment:    cfg.Environment,
	})
	if err != nil {
		log.Fatal("failed to create tracer:", err)
	}

	protection := limiter.NewProtectionManager(func(name string, from, to gobreaker.State) {
		logger.LogCircuitBreaker(name, from.String(), to.String())
		promMetrics.RecordCircuitStateChange(name, to.String())
	})

	reg, err := registry.NewLoader(cfg.RegistryPath).LoadRegistry()
	if err != nil {
		log.Fatal("failed to load provider registry:", err)
	}
	costs := cost.NewCalculator(reg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dispatcher, err := providers.BuildDispatcher(ctx, reg, cfg.Providers, providers.Dependencies{
		Logger:            logger,
		Protection:        protection,
		Encoders:          tokens.GetDefaultRegistry(),
		PollInterval:      cfg.AssistantPollInterval,
		PollTimeout:       cfg.AssistantPollTimeout,
		UploadConcurrency: cfg.UploadConcurrency,
	}, providers.DispatcherConfig{
		Logger:  logger,
		Metrics: promMetrics,
		Tracer:  tracer,
		Costs:   costs,
	})
	if err != nil {
		log.Fatal("failed to build providers:", err)
	}

	server := httpserver.NewServer(httpserver.Config{
		Port:           cfg.Port,
		Dispatcher:     dispatcher,
		Registry:       reg,
		Costs:          costs,
		Metrics:        promMetrics,
		Logger:         logger,
		Tracer:         tracer,
		RequestTimeout: cfg.RequestTimeout,
	})

	logger.Info("starting keyword service",
		"port", cfg.Port,
		"log_level", cfg.LogLevel,
		"providers", dispatcher.Providers())

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	select {
	case err := <-errCh:
		if err != nil {
			log.Fatal("failed to start server:", err)
		}
	case <-ctx.Done():
		logger.Info("shutting down keyword service")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("failed to shut down server", "error", err)
	}
	if err := tracer.Shutdown(shutdownCtx); err != nil {
		logger.Error("failed to shut down tracer", "error", err)
	}
}
