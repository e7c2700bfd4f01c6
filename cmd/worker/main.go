package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/songtrybe/youtube-metadata-cache/internal/app"
	"github.com/songtrybe/youtube-metadata-cache/internal/config"
	"github.com/songtrybe/youtube-metadata-cache/internal/events"
	"github.com/songtrybe/youtube-metadata-cache/internal/handler"
	"github.com/songtrybe/youtube-metadata-cache/internal/metrics"
	"github.com/songtrybe/youtube-metadata-cache/internal/queue"
	"github.com/songtrybe/youtube-metadata-cache/internal/service"
	"github.com/songtrybe/youtube-metadata-cache/pkg/logger"
)

func main() {
	var runOnce, enqueue string
	flag.StringVar(&runOnce, "run-once", "", "Run one sweep in-process and exit: refresh or evict")
	flag.StringVar(&enqueue, "enqueue", "", "Queue one sweep for the worker pool and exit: refresh or evict")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(cfg.Logging.Level, cfg.Logging.File); err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	log := logger.L()
	switch {
	case enqueue != "":
		err = enqueueSweep(cfg, log, enqueue)
	default:
		err = run(cfg, log, runOnce)
	}
	if err != nil {
		log.Error("Worker exited with error", zap.Error(err))
		_ = logger.Sync()
		os.Exit(1)
	}
	_ = logger.Sync()
}

func enqueueSweep(cfg *config.Config, log *zap.Logger, sweep string) error {
	redisOpt, err := queue.ParseRedisURL(cfg.Redis.URL)
	if err != nil {
		return err
	}

	client := queue.NewClient(redisOpt, log)
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	id, err := client.EnqueueSweep(ctx, sweep)
	if errors.Is(err, queue.ErrSweepPending) {
		log.Info("Sweep already pending, nothing enqueued", zap.String("sweep", sweep))
		return nil
	}
	if err != nil {
		return err
	}

	log.Info("Sweep enqueued", zap.String("sweep", sweep), zap.String("taskId", id))
	return nil
}

func run(cfg *config.Config, log *zap.Logger, runOnce string) error {
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

	var publisher events.Publisher = events.NoopPublisher{}
	var publisherHealth handler.HealthChecker
	amqpPublisher, err := app.NewPublisher(cfg, log)
	if err != nil {
		return fmt.Errorf("connect event stream: %w", err)
	}
	if amqpPublisher != nil {
		defer amqpPublisher.Close()
		publisher = amqpPublisher
		publisherHealth = amqpPublisher
	}

	refresher := service.NewRefresher(store, fetcher, publisher, service.RefresherConfig{
		RefreshAge: cfg.Cache.RefreshAge(),
		BatchSize:  cfg.Cache.RefreshBatchSize,
	}, log, m)
	evictor := service.NewEvictor(store, publisher, service.EvictorConfig{
		TTL:       cfg.Cache.TTL,
		BatchSize: cfg.Cache.EvictBatchSize,
	}, log, m)

	if runOnce != "" {
		var sweeper queue.Sweeper
		switch runOnce {
		case service.SweepRefresh:
			sweeper = refresher
		case service.SweepEvict:
			sweeper = evictor
		default:
			return fmt.Errorf("unknown sweep %q (expected 'refresh' or 'evict')", runOnce)
		}
		return sweeper.Run(ctx).Err
	}

	redisOpt, err := queue.ParseRedisURL(cfg.Redis.URL)
	if err != nil {
		return err
	}

	scheduler, err := queue.NewScheduler(redisOpt, queue.ScheduleConfig{
		RefreshSchedule: cfg.Worker.RefreshSchedule,
		EvictSchedule:   cfg.Worker.EvictSchedule,
		Timezone:        cfg.Worker.Timezone,
	}, log)
	if err != nil {
		return err
	}
	server := queue.NewServer(redisOpt, cfg.Worker.Concurrency, refresher, evictor, log)

	if cfg.Logging.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	metricsServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Worker.MetricsPort),
		Handler:           handler.NewProbeRouter(handler.NewHealthHandler(store, publisherHealth), m),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errs := make(chan error, 2)
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errs <- fmt.Errorf("metrics server: %w", err)
		}
	}()

	if err := server.Start(); err != nil {
		return fmt.Errorf("start task server: %w", err)
	}
	defer server.Stop()

	if err := scheduler.Start(); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}
	defer scheduler.Stop()

	log.Info("Cache worker started",
		zap.String("refreshSchedule", cfg.Worker.RefreshSchedule),
		zap.String("evictSchedule", cfg.Worker.EvictSchedule),
		zap.String("timezone", cfg.Worker.Timezone),
		zap.Int("metricsPort", cfg.Worker.MetricsPort),
	)

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errs:
		return err
	case sig := <-shutdown:
		log.Info("Shutdown signal received", zap.String("signal", sig.String()))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := metricsServer.Shutdown(ctx); err != nil {
		log.Warn("Metrics server shutdown failed", zap.Error(err))
	}
	return nil
}
