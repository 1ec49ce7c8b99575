// Package main provides the category-stream consumer process entry point.
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	backoff "github.com/cenkalti/backoff/v4"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/sbditto85/eventide-go/internal/config"
	"github.com/sbditto85/eventide-go/internal/consumer"
	"github.com/sbditto85/eventide-go/internal/messagestore/category"
	"github.com/sbditto85/eventide-go/internal/observability"
	positionstorecategory "github.com/sbditto85/eventide-go/internal/positionstore/category"
	"github.com/sbditto85/eventide-go/internal/runtimeclock"
	"github.com/sbditto85/eventide-go/internal/service/ratelimiter"
	"github.com/sbditto85/eventide-go/internal/telemetry"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", slog.Any("error", err))
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("config validation failed", slog.Any("error", err))
		os.Exit(1)
	}

	logger := observability.SetupLogger(cfg)
	slog.SetDefault(logger)

	observability.InitMetrics()

	shutdownTracer, err := observability.SetupTracing(cfg)
	if err != nil {
		slog.Error("failed to setup tracing", slog.Any("error", err))
	}
	defer func() {
		if shutdownTracer != nil {
			_ = shutdownTracer(context.Background())
		}
	}()

	slog.Info("starting consumer", slog.String("env", cfg.AppEnv), slog.String("category", cfg.Category))

	pool, err := connectPool(context.Background(), cfg)
	if err != nil {
		slog.Error("message store connection failed", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	fanout := telemetry.NewFanout()
	fanout.Register(telemetry.NewPrometheusSink(cfg.Category))
	if len(cfg.KafkaBrokers) > 0 {
		kafkaSink, err := telemetry.NewKafkaSink(cfg.KafkaBrokers, "telemetry-audit")
		if err != nil {
			slog.Error("kafka telemetry sink init failed", slog.Any("error", err))
		} else {
			fanout.Register(kafkaSink)
			defer kafkaSink.Close()
		}
	}

	var limiter *ratelimiter.RedisLuaLimiter
	if cfg.RateLimitEnabled && cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			slog.Error("redis url parse failed", slog.Any("error", err))
			os.Exit(1)
		}
		rdb := redis.NewClient(opts)
		defer func() { _ = rdb.Close() }()

		limiter = ratelimiter.NewRedisLuaLimiter(rdb, nil)
		limiter.SetBucketConfig(cfg.Category, ratelimiter.NewBucketConfigFromPerSecond(cfg.RateLimitPerSecond, cfg.RateLimitBurst))
	}

	breaker := observability.NewCircuitBreaker(5, 30*time.Second, 0.5)

	getterOpts := []category.Option{
		category.WithSink(fanout),
		category.WithCircuitBreaker(breaker),
	}
	if limiter != nil {
		getterOpts = append(getterOpts, category.WithRateLimiter(limiter))
	}
	getter := category.NewGetter(pool, cfg.Category, category.Config{
		BatchSize:           derefOrZero(cfg.BatchSize),
		Correlation:         cfg.Correlation,
		ConsumerGroupMember: cfg.ConsumerGroupMember,
		ConsumerGroupSize:   cfg.ConsumerGroupSize,
		Condition:           cfg.Condition,
	}, getterOpts...)

	positionStore := positionstorecategory.NewStore(pool, cfg.Category, positionstorecategory.WithSink(fanout))

	backOff, err := cfg.BackOff()
	if err != nil {
		slog.Error("back-off configuration failed", slog.Any("error", err))
		os.Exit(1)
	}

	runTime := runtimeclock.NewSystemRunTime()
	runTime.SetRunLimit(cfg.RunLimit)

	builder := consumer.New(cfg.Category, getter, positionStore).
		WithSettings(cfg.ToSettings()).
		WithBackOff(backOff).
		WithRunTime(runTime).
		WithTelemetrySink(fanout)

	registerHandlers(builder)

	handle := builder.Start()

	admin := &observability.AdminServer{
		Handle:       handle,
		Category:     cfg.Category,
		StoreCheck:   func() error { return pool.Ping(context.Background()) },
		LastPosition: positionStore.Get,
	}
	adminServer := &http.Server{
		Addr:              cfg.AdminHTTPAddr,
		Handler:           admin.BuildRouter(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := adminServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("admin http server error", slog.Any("error", err))
		}
	}()

	slog.Info("consumer started, waiting for shutdown signal")
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)

	sig := <-sigCh
	slog.Info("signal received, shutting down", slog.String("signal", sig.String()))

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = adminServer.Shutdown(shutdownCtx)

	if err := handle.Stop(); err != nil {
		slog.Error("consumer exited with error", slog.Any("error", err))
	}
	slog.Info("consumer stopped")
}

// registerHandlers attaches the category's in-process message handlers in
// dispatch order. Business handlers live outside this process boundary in
// a deployment that wires this binary to a concrete domain; this consumer
// ships with none registered by default beyond what operators add here.
func registerHandlers(b *consumer.Builder) {
	_ = b
}

// connectPool establishes the message store connection pool, retrying with
// bounded exponential back-off since the store may not yet be reachable at
// process start (e.g. a cold-started container).
func connectPool(ctx context.Context, cfg config.Config) (*pgxpool.Pool, error) {
	expo := backoff.NewExponentialBackOff()
	expo.InitialInterval = cfg.SessionBackoffInitialInterval
	expo.MaxInterval = cfg.SessionBackoffMaxInterval
	expo.MaxElapsedTime = cfg.SessionBackoffMaxElapsedTime
	expo.Multiplier = cfg.SessionBackoffMultiplier

	var pool *pgxpool.Pool
	op := func() error {
		p, err := pgxpool.New(ctx, cfg.MessageDBURL)
		if err != nil {
			return err
		}
		if err := p.Ping(ctx); err != nil {
			p.Close()
			return err
		}
		pool = p
		return nil
	}

	if err := backoff.Retry(op, backoff.WithContext(expo, ctx)); err != nil {
		return nil, err
	}
	return pool, nil
}

func derefOrZero(v *uint64) uint64 {
	if v == nil {
		return 0
	}
	return *v
}
