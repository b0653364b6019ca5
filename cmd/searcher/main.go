package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	_ "github.com/Adithya-Monish-Kumar-K/textindex/internal/pipeline/english"

	"github.com/Adithya-Monish-Kumar-K/textindex/internal/pipeline"
	"github.com/Adithya-Monish-Kumar-K/textindex/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/textindex/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/textindex/internal/searcher/handler"
	"github.com/Adithya-Monish-Kumar-K/textindex/internal/searcher/reload"
	"github.com/Adithya-Monish-Kumar-K/textindex/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/textindex/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/textindex/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/textindex/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/textindex/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/textindex/pkg/middleware"
	pkgredis "github.com/Adithya-Monish-Kumar-K/textindex/pkg/redis"
)

func main() {
	configPath := flag.String("config", "", "path to config file (defaults and TI_* variables when empty)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger.Setup(logger.Options{Service: "searcher", Level: cfg.Logging.Level, Format: cfg.Logging.Format})
	slog.Info("starting search service", "port", cfg.Server.Port, "data_dir", cfg.Index.DataDir)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New(nil)
	if cfg.Metrics.Enabled {
		metricsServer := metrics.NewServer(cfg.Metrics.Port, nil)
		metricsServer.Start()
		defer metricsServer.Shutdown(5 * time.Second)
	}

	var queryCache *cache.QueryCache
	var redisClient *pkgredis.Client
	if cfg.Redis.Enabled {
		redisClient, err = pkgredis.NewClient(ctx, cfg.Redis)
		if err != nil {
			slog.Warn("redis unavailable, search caching disabled", "error", err)
		} else {
			defer redisClient.Close()
			queryCache = cache.New(redisClient, cfg.Redis.CacheTTL, m)
			slog.Info("search cache enabled", "addr", cfg.Redis.Addr, "ttl", cfg.Redis.CacheTTL)
		}
	}

	holderOpts := []reload.Option{
		reload.WithMetrics(m),
		reload.WithExecutorOptions(
			executor.WithMaxExpansion(cfg.Search.MaxExpansion),
			executor.WithMetrics(m),
		),
	}
	if queryCache != nil {
		holderOpts = append(holderOpts, reload.WithInvalidator(queryCache))
	}
	holder := reload.NewHolder(cfg.Index.DataDir, pipeline.Default, holderOpts...)
	if _, err := holder.LoadLatest(ctx, reload.TriggerStartup); err != nil {
		slog.Warn("no index loaded at startup, waiting for one", "error", err)
	}

	if cfg.Reload.Watch {
		if err := os.MkdirAll(cfg.Index.DataDir, 0o755); err != nil {
			slog.Error("creating data directory failed", "error", err)
			os.Exit(1)
		}
		watcher := reload.NewWatcher(holder, cfg.Reload.Debounce)
		go func() {
			if err := watcher.Run(ctx); err != nil {
				slog.Error("index watcher stopped", "error", err)
			}
		}()
	}
	if cfg.Kafka.Enabled {
		group := cfg.Kafka.ConsumerGroup + "-" + uuid.NewString()
		consumer := kafka.NewConsumer(cfg.Kafka, cfg.Kafka.Topics.IndexPublished, group, reload.HandlePublished(holder))
		listener := reload.NewListener(consumer)
		go func() {
			if err := listener.Start(ctx); err != nil {
				slog.Error("index listener stopped", "error", err)
			}
		}()
	}

	checker := health.NewChecker()
	checker.Register("index", func(ctx context.Context) health.ComponentHealth {
		snap := holder.Current()
		if snap == nil {
			return health.ComponentHealth{Status: health.StatusDown, Message: "no index loaded"}
		}
		return health.ComponentHealth{
			Status:  health.StatusUp,
			Message: fmt.Sprintf("%s, %d documents", snap.Generation, snap.Executor.Index().DocumentCount()),
		}
	})
	if cfg.Redis.Enabled {
		var ping func(context.Context) error
		if redisClient != nil {
			ping = redisClient.Ping
		}
		checker.Register("redis", health.PingCheck(ping, true))
	}

	h := handler.New(holder, queryCache, m, cfg.Search.DefaultLimit, cfg.Search.MaxResults)
	h.SetSearchTimeout(cfg.Search.Timeout)
	mux := http.NewServeMux()
	h.Register(mux)
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())

	var chain http.Handler = mux
	chain = middleware.Timeout(cfg.Server.RequestTimeout)(chain)
	chain = middleware.Metrics(m)(chain)
	chain = middleware.RequestID(chain)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      chain,
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

	slog.Info("search service listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
	slog.Info("search service stopped")
}
