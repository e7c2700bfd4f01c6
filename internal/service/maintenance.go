package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/songtrybe/youtube-metadata-cache/internal/db/repository"
	"github.com/songtrybe/youtube-metadata-cache/internal/events"
	"github.com/songtrybe/youtube-metadata-cache/internal/metrics"
	"github.com/songtrybe/youtube-metadata-cache/internal/service/youtube"
)

// Sweep names used in logs, metrics and task payloads.
const (
	SweepRefresh = "refresh"
	SweepEvict   = "evict"
)

// SweepResult summarizes one sweep run.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type SweepResult struct {
	RunID      uuid.UUID
	Sweep      string
	StartedAt  time.Time
	Candidates int
	Refreshed  int
	Deleted    int
	// Skipped records were left untouched because their upstream chunk failed.
	Skipped int
	// WriteFailures counts per-record store writes or deletes that failed.
	WriteFailures int
	// Err is set when the sweep stopped early. Sweeps never return it; it is
	// only reported.
	Err error
}

func newSweepResult(sweep string, now time.Time) *SweepResult {
	return &SweepResult{RunID: uuid.New(), Sweep: sweep, StartedAt: now}
}

// RefresherConfig sizes the refresh sweep.
type RefresherConfig struct {
	// RefreshAge is the record age at which a record is refreshed.
	RefreshAge time.Duration
	BatchSize  int
}

// Refresher re-fetches records approaching expiry so popular videos stay warm.
type Refresher struct {
	store     repository.VideoCacheRepository
	fetcher   MetadataFetcher
	publisher events.Publisher
	cfg       RefresherConfig
	now       func() time.Time
	logger    *zap.Logger
	metrics   *metrics.Metrics
}

// NewRefresher creates a Refresher. Zero config values fall back to a 24 day
// refresh age and 50 records per run.
func NewRefresher(store repository.VideoCacheRepository, fetcher MetadataFetcher, publisher events.Publisher, cfg RefresherConfig, logger *zap.Logger, m *metrics.Metrics) *Refresher {
	if cfg.RefreshAge <= 0 {
		cfg.RefreshAge = 24 * 24 * time.Hour
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = youtube.MaxBatchSize
	}
	if publisher == nil {
		publisher = events.NoopPublisher{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Refresher{
		store:     store,
		fetcher:   fetcher,
		publisher: publisher,
		cfg:       cfg,
		now:       time.Now,
		logger:    logger.With(zap.String("sweep", SweepRefresh)),
		metrics:   m,
	}
}

// Run refreshes one batch of the oldest records past the refresh age.
// Videos confirmed gone upstream are deleted; videos in a failed chunk are
// kept as they are. Failures are logged and reported in the result.
func (r *Refresher) Run(ctx context.Context) *SweepResult {
	now := r.now()
	res := newSweepResult(SweepRefresh, now)
	log := r.logger.With(zap.String("runId", res.RunID.String()))

	recs, err := r.store.QueryOlderThan(ctx, now.Add(-r.cfg.RefreshAge), r.cfg.BatchSize)
	if err != nil {
		return r.fail(log, res, fmt.Errorf("query refresh candidates: %w", err))
	}
	if len(recs) == 0 {
		log.Info("No videos need refresh")
		r.metrics.SweepRun(SweepRefresh, "ok")
		return res
	}

	res.Candidates = len(recs)
	ids := make([]string, len(recs))
	for i, rec := range recs {
		ids[i] = rec.VideoID
	}
	log.Info("Refreshing videos", zap.Int("count", len(ids)))

	result, err := r.fetcher.FetchMany(ctx, ids)
	if err != nil {
		res.Skipped = len(ids)
		if errors.Is(err, youtube.ErrMissingAPIKey) {
			log.Error("YouTube API key not configured, skipping refresh")
		}
		return r.fail(log, res, fmt.Errorf("fetch refresh candidates: %w", err))
	}

	for id, item := range result.Videos {
		if err := r.store.Put(ctx, youtube.NormalizeVideo(item, now)); err != nil {
			log.Warn("Failed to store refreshed video", zap.String("videoId", id), zap.Error(err))
			r.metrics.StoreError("put")
			res.WriteFailures++
			continue
		}
		res.Refreshed++
	}

	var removed []string
	for _, id := range result.Missing {
		if err := r.store.Delete(ctx, id); err != nil {
			log.Warn("Failed to delete unavailable video", zap.String("videoId", id), zap.Error(err))
			r.metrics.StoreError("delete")
			res.WriteFailures++
			continue
		}
		removed = append(removed, id)
	}
	res.Deleted = len(removed)
	res.Skipped = len(result.Failed)

	log.Info("Scheduled refresh completed",
		zap.Int("refreshed", res.Refreshed),
		zap.Int("deleted", res.Deleted),
		zap.Int("skipped", res.Skipped),
		zap.Int("writeFailures", res.WriteFailures),
	)
	r.record(res)

	if len(removed) > 0 {
		ev := events.New(events.TypeVideoRemoved, res.RunID, now)
		ev.VideoIDs = removed
		r.publish(ctx, log, ev)
	}
	r.publish(ctx, log, completedEvent(events.TypeRefreshCompleted, res, now))

	return res
}

func (r *Refresher) fail(log *zap.Logger, res *SweepResult, err error) *SweepResult {
	res.Err = err
	log.Error("Scheduled refresh failed", zap.Error(err))
	r.metrics.SweepRun(SweepRefresh, "error")
	r.metrics.SweepRecords(SweepRefresh, "skipped", res.Skipped)
	return res
}

func (r *Refresher) record(res *SweepResult) {
	r.metrics.SweepRun(SweepRefresh, "ok")
	r.metrics.SweepRecords(SweepRefresh, "refreshed", res.Refreshed)
	r.metrics.SweepRecords(SweepRefresh, "deleted", res.Deleted)
	r.metrics.SweepRecords(SweepRefresh, "skipped", res.Skipped)
	r.metrics.SweepRecords(SweepRefresh, "write_failed", res.WriteFailures)
}

func (r *Refresher) publish(ctx context.Context, log *zap.Logger, ev *events.Event) {
	if err := r.publisher.Publish(ctx, ev); err != nil {
		log.Warn("Failed to publish cache event", zap.String("type", ev.Type), zap.Error(err))
	}
}

// EvictorConfig sizes the eviction sweep.
type EvictorConfig struct {
	TTL       time.Duration
	BatchSize int
}

// Evictor deletes expired records in batches.
type Evictor struct {
	store     repository.VideoCacheRepository
	publisher events.Publisher
	cfg       EvictorConfig
	now       func() time.Time
	logger    *zap.Logger
	metrics   *metrics.Metrics
}

// NewEvictor creates an Evictor. Zero config values fall back to a 29 day TTL
// and 100 records per run.
func NewEvictor(store repository.VideoCacheRepository, publisher events.Publisher, cfg EvictorConfig, logger *zap.Logger, m *metrics.Metrics) *Evictor {
	if cfg.TTL <= 0 {
		cfg.TTL = 29 * 24 * time.Hour
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	if publisher == nil {
		publisher = events.NoopPublisher{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Evictor{
		store:     store,
		publisher: publisher,
		cfg:       cfg,
		now:       time.Now,
		logger:    logger.With(zap.String("sweep", SweepEvict)),
		metrics:   m,
	}
}

// Run deletes one batch of records older than TTL in a single batch delete.
func (e *Evictor) Run(ctx context.Context) *SweepResult {
	now := e.now()
	res := newSweepResult(SweepEvict, now)
	log := e.logger.With(zap.String("runId", res.RunID.String()))

	recs, err := e.store.QueryOlderThan(ctx, now.Add(-e.cfg.TTL), e.cfg.BatchSize)
	if err != nil {
		return e.fail(log, res, fmt.Errorf("query expired records: %w", err))
	}
	if len(recs) == 0 {
		log.Info("No expired cache entries")
		e.metrics.SweepRun(SweepEvict, "ok")
		return res
	}

	res.Candidates = len(recs)
	ids := make([]string, len(recs))
	for i, rec := range recs {
		ids[i] = rec.VideoID
	}

	if err := e.store.DeleteBatch(ctx, ids); err != nil {
		e.metrics.StoreError("delete_batch")
		return e.fail(log, res, fmt.Errorf("delete expired records: %w", err))
	}
	res.Deleted = len(ids)

	log.Info("Deleted expired cache entries", zap.Int("count", res.Deleted))
	e.metrics.SweepRun(SweepEvict, "ok")
	e.metrics.SweepRecords(SweepEvict, "deleted", res.Deleted)

	ev := completedEvent(events.TypeEvictCompleted, res, now)
	ev.VideoIDs = ids
	if err := e.publisher.Publish(ctx, ev); err != nil {
		log.Warn("Failed to publish cache event", zap.String("type", ev.Type), zap.Error(err))
	}

	return res
}

func (e *Evictor) fail(log *zap.Logger, res *SweepResult, err error) *SweepResult {
	res.Err = err
	log.Error("Scheduled eviction failed", zap.Error(err))
	e.metrics.SweepRun(SweepEvict, "error")
	return res
}

func completedEvent(eventType string, res *SweepResult, now time.Time) *events.Event {
	ev := events.New(eventType, res.RunID, now)
	ev.Counts = map[string]int{
		"candidates":    res.Candidates,
		"refreshed":     res.Refreshed,
		"deleted":       res.Deleted,
		"skipped":       res.Skipped,
		"writeFailures": res.WriteFailures,
	}
	return ev
}
