package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/songtrybe/youtube-metadata-cache/internal/app"
	"github.com/songtrybe/youtube-metadata-cache/internal/config"
	"github.com/songtrybe/youtube-metadata-cache/internal/handler"
	"github.com/songtrybe/youtube-metadata-cache/internal/metrics"
	"github.com/songtrybe/youtube-metadata-cache/internal/service"
	"github.com/songtrybe/youtube-metadata-cache/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(cfg.Logging.Level, cfg.Logging.File); err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	if err := run(cfg, logger.L()); err != nil {
		logger.L().Error("Server exited with error", zap.Error(err))
		_ = logger.Sync()
		os.Exit(1)
	}
	_ = logger.Sync()
}

func run(cfg *config.Config, log *zap.Logger) error {
	ctx := context.Background()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	store, closeStore, err := app.OpenStore(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("open cache store: %w", err)
	}
	defer closeStore()

	quotaStore, closeQuota := app.NewQuotaStore(ctx, cfg, log)
	defer closeQuota()

	fetcher, err := app.NewFetcher(ctx, cfg, quotaStore, log, m)
	if err != nil {
		return fmt.Errorf("create YouTube client: %w", err)
	}

	resolver := service.NewResolver(store, fetcher, service.ResolverConfig{
		TTL:         cfg.Cache.TTL,
		MaxIDs:      cfg.Cache.MaxRequestIDs,
		Concurrency: cfg.Cache.ProbeConcurrency,
	}, log, m)

	if cfg.Logging.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	if len(cfg.Server.APIKeys) == 0 {
		log.Warn("No API keys configured (APP_SERVER_APIKEYS), /api routes are unauthenticated")
	}

	router := handler.NewRouter(handler.RouterConfig{
		Videos:      handler.NewVideoHandler(resolver, store, log),
		Health:      handler.NewHealthHandler(store, nil),
		Metrics:     m,
		Logger:      log,
		APIKeys:     cfg.Server.APIKeys,
		RateLimit:   cfg.Server.RateLimit,
		RateBurst:   cfg.Server.RateBurst,
		CORSOrigins: cfg.Server.CORSOrigins,
	})

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	serverErrors := make(chan error, 1)
	go func() {
		log.Info("Server starting",
			zap.Int("port", cfg.Server.Port),
			zap.String("driver", cfg.Database.Driver),
		)
		serverErrors <- server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server error: %w", err)
	case sig := <-shutdown:
		log.Info("Shutdown signal received", zap.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			_ = server.Close()
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}

		log.Info("Server stopped gracefully")
		return nil
	}
}
