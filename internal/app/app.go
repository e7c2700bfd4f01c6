// Package app assembles the components shared by the server and worker binaries.
package app

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/songtrybe/youtube-metadata-cache/internal/config"
	"github.com/songtrybe/youtube-metadata-cache/internal/db"
	"github.com/songtrybe/youtube-metadata-cache/internal/db/repository"
	"github.com/songtrybe/youtube-metadata-cache/internal/events"
	"github.com/songtrybe/youtube-metadata-cache/internal/metrics"
	"github.com/songtrybe/youtube-metadata-cache/internal/queue"
	"github.com/songtrybe/youtube-metadata-cache/internal/service/quota"
	"github.com/songtrybe/youtube-metadata-cache/internal/service/youtube"
)

const connectTimeout = 10 * time.Second

// OpenStore connects the cache store selected by cfg.Database.Driver. The
// returned func releases it.
func OpenStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (repository.VideoCacheRepository, func(), error) {
	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	switch cfg.Database.Driver {
	case config.DriverPostgres:
		pool, err := db.NewPool(ctx, db.ConfigFrom(cfg.Database))
		if err != nil {
			return nil, nil, err
		}
		logger.Info("Connected to PostgreSQL cache store",
			zap.String("host", cfg.Database.Host),
			zap.String("database", cfg.Database.Name),
		)
		return repository.NewVideoCacheRepository(pool), func() { db.Close(pool) }, nil

	case config.DriverMongo:
		client, err := repository.NewMongoClient(ctx, cfg.Mongo.URI)
		if err != nil {
			return nil, nil, err
		}
		store, err := repository.NewMongoVideoCacheRepository(ctx, client, cfg.Mongo.Database, cfg.Mongo.Collection)
		if err != nil {
			_ = client.Disconnect(context.Background())
			return nil, nil, err
		}
		logger.Info("Connected to MongoDB cache store",
			zap.String("database", cfg.Mongo.Database),
			zap.String("collection", cfg.Mongo.Collection),
		)
		return store, func() { _ = client.Disconnect(context.Background()) }, nil

	case config.DriverMemory:
		logger.Warn("Using in-memory cache store, records are lost on restart")
		return repository.NewMemoryVideoCacheRepository(), func() {}, nil

	default:
		return nil, nil, fmt.Errorf("unsupported database driver %q", cfg.Database.Driver)
	}
}

// NewQuotaStore connects the shared Redis quota counters. When Redis is
// unreachable the counters move to PostgreSQL if that is the cache store,
// otherwise to a per-process counter so the API keeps serving.
func NewQuotaStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (quota.Store, func()) {
	client, err := queue.NewRedisClient(cfg.Redis.URL)
	if err != nil {
		logger.Warn("Invalid Redis URL", zap.Error(err))
		return fallbackQuotaStore(ctx, cfg, logger)
	}

	pingCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		logger.Warn("Redis unreachable", zap.Error(err))
		return fallbackQuotaStore(ctx, cfg, logger)
	}

	return quota.NewRedisStore(client), func() { _ = client.Close() }
}

func fallbackQuotaStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (quota.Store, func()) {
	if cfg.Database.Driver == config.DriverPostgres {
		ctx, cancel := context.WithTimeout(ctx, connectTimeout)
		defer cancel()

		dbCfg := db.ConfigFrom(cfg.Database)
		dbCfg.MaxConns, dbCfg.MinConns = 2, 0
		pool, err := db.NewPool(ctx, dbCfg)
		if err == nil {
			logger.Info("Quota is tracked in PostgreSQL")
			return repository.NewQuotaUsageRepository(pool), func() { db.Close(pool) }
		}
		logger.Warn("PostgreSQL quota counters unavailable", zap.Error(err))
	}

	logger.Warn("Quota is tracked per process")
	return quota.NewMemoryStore(), func() {}
}

// NewFetcher builds the upstream client gated by the daily quota.
func NewFetcher(ctx context.Context, cfg *config.Config, store quota.Store, logger *zap.Logger, m *metrics.Metrics) (*youtube.Client, error) {
	manager := quota.NewManager(store, cfg.YouTube.DailyQuota, cfg.YouTube.QuotaThreshold, logger)

	client, err := youtube.NewClient(ctx, youtube.ClientConfig{
		APIKey:            cfg.YouTube.APIKey,
		BatchSize:         cfg.YouTube.BatchSize,
		Concurrency:       cfg.YouTube.Concurrency,
		RequestsPerSecond: cfg.YouTube.RequestsPerSecond,
	},
		youtube.WithQuota(manager),
		youtube.WithMetrics(m),
		youtube.WithLogger(logger),
	)
	if err != nil {
		return nil, err
	}

	if !client.Configured() {
		logger.Warn("YouTube API key not configured (APP_YOUTUBE_APIKEY), cache misses cannot be fetched")
	}
	return client, nil
}

// NewPublisher connects the event stream. It returns nil when RabbitMQ is
// disabled.
func NewPublisher(cfg *config.Config, logger *zap.Logger) (*events.AMQPPublisher, error) {
	if !cfg.RabbitMQ.Enabled {
		logger.Info("Cache event stream disabled")
		return nil, nil
	}
	return events.NewAMQPPublisher(cfg.RabbitMQ.URL(), cfg.RabbitMQ.Exchange, logger)
}
