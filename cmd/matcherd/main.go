// Command matcherd serves scans over HTTP and, optionally, runs scan jobs
// requested on Kafka. PostgreSQL history, Kafka events, and the Redis-backed
// shared rate limiter are each enabled in configuration.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Adithya-Monish-Kumar-K/textmatcher/internal/api"
	"github.com/Adithya-Monish-Kumar-K/textmatcher/internal/events"
	"github.com/Adithya-Monish-Kumar-K/textmatcher/internal/history"
	"github.com/Adithya-Monish-Kumar-K/textmatcher/internal/jobs"
	"github.com/Adithya-Monish-Kumar-K/textmatcher/internal/ratelimit"
	"github.com/Adithya-Monish-Kumar-K/textmatcher/internal/service"
	"github.com/Adithya-Monish-Kumar-K/textmatcher/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/textmatcher/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/textmatcher/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/textmatcher/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/textmatcher/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/textmatcher/pkg/middleware"
	"github.com/Adithya-Monish-Kumar-K/textmatcher/pkg/postgres"
	pkgredis "github.com/Adithya-Monish-Kumar-K/textmatcher/pkg/redis"
	"github.com/Adithya-Monish-Kumar-K/textmatcher/pkg/resilience"
)

func main() {
	configPath := flag.String("config", "configs/textmatcher.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting scan service",
		"port", cfg.Server.Port,
		"scan_root", cfg.Server.ScanRoot,
		"batch_size", cfg.Scan.BatchSize,
		"workers", cfg.Scan.Workers,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New()
	if cfg.Metrics.Enabled {
		shutdownMetrics := metrics.StartServer(cfg.Metrics.Port)
		defer shutdownMetrics(context.Background())
	}

	checker := health.NewChecker()
	checker.Register("scan_root", func(ctx context.Context) error {
		info, err := os.Stat(cfg.Server.ScanRoot)
		if err != nil {
			return err
		}
		if !info.IsDir() {
			return fmt.Errorf("%s is not a directory", cfg.Server.ScanRoot)
		}
		return nil
	})

	opts := []service.Option{service.WithMetrics(m)}

	var store *history.Store
	if cfg.Postgres.Enabled {
		db, err := postgres.New(cfg.Postgres)
		if err != nil {
			slog.Error("failed to connect to postgres", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		store = history.NewStore(db)
		if err := store.EnsureSchema(ctx); err != nil {
			slog.Error("failed to prepare scan history schema", "error", err)
			os.Exit(1)
		}
		opts = append(opts, service.WithRecorder(store))
		checker.RegisterOptional("postgres", db.Ping)
		slog.Info("scan history enabled", "host", cfg.Postgres.Host, "database", cfg.Postgres.Database)
	} else {
		checker.Disabled("postgres")
	}

	var collector *events.Collector
	if cfg.Kafka.Enabled {
		producer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.ScanEvents)
		defer producer.Close()
		collector = events.NewCollector(producer, cfg.Jobs.EventBuffer, m)
		collector.Start(ctx)
		opts = append(opts, service.WithTracker(collector))
		checker.RegisterOptional("kafka", func(ctx context.Context) error {
			return kafka.Ping(ctx, cfg.Kafka.Brokers)
		})
		slog.Info("scan events enabled", "topic", cfg.Kafka.Topics.ScanEvents)
	} else {
		checker.Disabled("kafka")
	}

	local := ratelimit.NewTokenBucket(cfg.Server.RateLimit, cfg.Server.RateWindow)
	defer local.Close()
	var limiter ratelimit.Limiter = local
	if cfg.Redis.Enabled {
		redisClient, err := pkgredis.NewClient(cfg.Redis)
		if err != nil {
			slog.Warn("redis unavailable, rate limits are per instance", "error", err)
			checker.RegisterOptional("redis", func(context.Context) error { return err })
		} else {
			defer redisClient.Close()
			breaker := resilience.NewCircuitBreaker("redis-ratelimit", resilience.CircuitBreakerConfig{
				FailureThreshold: 5,
				ResetTimeout:     30 * time.Second,
			})
			shared := ratelimit.NewRedisWindow(redisClient, cfg.Server.RateLimit, cfg.Server.RateWindow)
			limiter = ratelimit.NewFallback(shared, local, breaker)
			checker.RegisterOptional("redis", redisClient.Ping)
			slog.Info("shared rate limiting enabled", "addr", cfg.Redis.Addr)
		}
	} else {
		checker.Disabled("redis")
	}

	svc := service.New(cfg.Scan, cfg.Server, opts...)

	jobsDone := make(chan struct{})
	if cfg.Jobs.Enabled && cfg.Kafka.Enabled {
		consumer := kafka.NewConsumer(cfg.Kafka, cfg.Kafka.Topics.ScanRequests, jobs.NewHandler(svc).Handle)
		go func() {
			defer close(jobsDone)
			if err := consumer.Start(ctx); err != nil {
				slog.Error("scan job consumer error", "error", err)
			}
		}()
		slog.Info("scan jobs enabled", "topic", cfg.Kafka.Topics.ScanRequests)
	} else {
		if cfg.Jobs.Enabled {
			slog.Warn("scan jobs need kafka.enabled, jobs disabled")
		}
		close(jobsDone)
	}

	var lister api.HistoryLister
	if store != nil {
		lister = store
	}
	clients, err := middleware.NewClientResolver(cfg.Server.TrustedProxies)
	if err != nil {
		slog.Error("invalid trusted proxies", "error", err)
		os.Exit(1)
	}
	handler := api.NewRouter(api.New(svc, lister, cfg.Server.MaxTextBytes+64<<10), api.RouterConfig{
		Limiter:    limiter,
		Clients:    clients,
		RateWindow: cfg.Server.RateWindow,
		Metrics:    m,
		Health:     checker,
		Timeout:    cfg.Server.WriteTimeout,
	})

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		<-ctx.Done()
		slog.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
	}()

	slog.Info("scan service listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server error", "error", err)
		stop()
		os.Exit(1)
	}

	<-jobsDone
	if collector != nil {
		collector.Close()
	}
	slog.Info("scan service stopped")
}
