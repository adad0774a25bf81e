package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/meepleai/gateway/answercache"
	"github.com/meepleai/gateway/auth"
	"github.com/meepleai/gateway/config"
	"github.com/meepleai/gateway/engine"
	"github.com/meepleai/gateway/health"
	"github.com/meepleai/gateway/httpapi"
	"github.com/meepleai/gateway/observe"
	"github.com/meepleai/gateway/ratelimit"
	"github.com/meepleai/gateway/resilience"
	"github.com/meepleai/gateway/sessioncache"
	"github.com/meepleai/gateway/sessionstore"
	"github.com/meepleai/gateway/stream"
)

const shutdownGrace = 10 * time.Second

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the answer gateway",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx)
		},
	}
}

func serve(ctx context.Context) error {
	cfg, err := config.Load(ctx)
	if err != nil {
		return err
	}

	observer, err := observe.NewObserver(ctx, observe.Config{
		ServiceName: "meepleai-gateway",
		Version:     version,
		Tracing: observe.TracingConfig{
			Enabled:   cfg.TracingExporter != "none",
			Exporter:  cfg.TracingExporter,
			SamplePct: 1.0,
		},
		Metrics: observe.MetricsConfig{
			Enabled:  cfg.MetricsExporter != "none",
			Exporter: cfg.MetricsExporter,
		},
		Logging: observe.LoggingConfig{
			Enabled: true,
			Level:   cfg.LogLevel,
		},
	})
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		_ = observer.Shutdown(shutdownCtx)
	}()

	logger := observer.Logger()
	metrics, err := observe.NewMetrics(observer.Meter())
	if err != nil {
		return fmt.Errorf("init metrics: %w", err)
	}

	sessions, err := sessionstore.OpenSQLite(cfg.SessionDBPath)
	if err != nil {
		return fmt.Errorf("open session store: %w", err)
	}
	defer sessions.Close()

	registry := health.NewRegistry(0)
	registry.Register("sessions", health.PingChecker(sessions))

	var sessionCache sessioncache.Store
	if cfg.RedisAddr != "" {
		redisCache, err := sessioncache.NewRedisStore(ctx, sessioncache.RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err != nil {
			return fmt.Errorf("connect redis: %w", err)
		}
		defer redisCache.Close()
		registry.Register("redis", health.PingChecker(redisCache))
		sessionCache = redisCache
	} else {
		sessionCache = sessioncache.NewMemoryStore()
	}

	validator := sessioncache.NewValidator(sessionCache, sessions, logger)
	codec := auth.NewTokenCodec(auth.TokenCodecConfig{SigningKey: []byte(cfg.SigningKey)})

	engineClient, err := engine.NewClient(engine.ClientConfig{
		BaseURL: cfg.EngineURL,
		Logger:  logger,
	})
	if err != nil {
		return fmt.Errorf("init engine client: %w", err)
	}
	breaker := resilience.NewCircuitBreaker(resilience.BreakerConfig{Logger: logger})
	registry.Register("engine", health.BreakerChecker(func() string {
		return breaker.State().String()
	}))

	limiter := ratelimit.New(cfg.Tiers)
	cache := answercache.New()

	controller, err := stream.NewController(stream.ControllerConfig{
		Limiter:           limiter,
		Cache:             cache,
		Engine:            engine.Guard(engineClient, breaker),
		GenerationTimeout: cfg.GenerationTimeout,
		Logger:            logger,
		Metrics:           metrics,
		Tracer:            observe.NewTracer(observer.Tracer()),
	})
	if err != nil {
		return fmt.Errorf("init controller: %w", err)
	}

	api, err := httpapi.NewServer(httpapi.ServerConfig{
		Controller: controller,
		Limiter:    limiter,
		Cache:      cache,
		Sessions:   validator,
		Codec:      codec,
		Bulkhead:   resilience.NewBulkhead(cfg.MaxStreams),
		Health:     registry,
		Logger:     logger,
	})
	if err != nil {
		return fmt.Errorf("init http api: %w", err)
	}

	server := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           api.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info(ctx, "gateway listening",
			observe.Field{Key: "addr", Value: cfg.ListenAddr},
			observe.Field{Key: "engine_url", Value: cfg.EngineURL})
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		logger.Info(shutdownCtx, "shutting down")
		return server.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
