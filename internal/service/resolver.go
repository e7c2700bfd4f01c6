// Package service holds the metadata resolution path and the scheduled cache sweeps.
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/songtrybe/youtube-metadata-cache/internal/db"
	dbmodels "github.com/songtrybe/youtube-metadata-cache/internal/db/models"
	"github.com/songtrybe/youtube-metadata-cache/internal/db/repository"
	"github.com/songtrybe/youtube-metadata-cache/internal/metrics"
	"github.com/songtrybe/youtube-metadata-cache/internal/models"
	"github.com/songtrybe/youtube-metadata-cache/internal/service/youtube"
	"github.com/songtrybe/youtube-metadata-cache/internal/validation"
)

// MetadataFetcher looks up video metadata upstream.
type MetadataFetcher interface {
	FetchMany(ctx context.Context, ids []string) (*youtube.FetchResult, error)
}

// ProbeOutcome classifies a cache lookup for one id.
type ProbeOutcome int

// Probe outcomes. Only ProbeHit is served from the cache.
const (
	ProbeHit ProbeOutcome = iota
	ProbeMiss
	ProbeStale
	ProbeFailed
)

func (o ProbeOutcome) String() string {
	switch o {
	case ProbeHit:
		return metrics.OutcomeHit
	case ProbeMiss:
		return metrics.OutcomeMiss
	case ProbeStale:
		return metrics.OutcomeStale
	default:
		return metrics.OutcomeProbeFailed
	}
}

type probe struct {
	outcome ProbeOutcome
	record  *dbmodels.CachedVideoRecord
}

// ResolverConfig sizes the resolution path.
type ResolverConfig struct {
	TTL         time.Duration
	MaxIDs      int
	Concurrency int
}

// Resolver answers metadata requests from the cache, fetching misses upstream
// in one batched call and writing them back.
type Resolver struct {
	store   repository.VideoCacheRepository
	fetcher MetadataFetcher
	cfg     ResolverConfig
	now     func() time.Time
	logger  *zap.Logger
	metrics *metrics.Metrics
}

// NewResolver creates a Resolver. Zero config values fall back to a 29 day
// TTL, 100 identifiers per call and 16 concurrent store operations.
func NewResolver(store repository.VideoCacheRepository, fetcher MetadataFetcher, cfg ResolverConfig, logger *zap.Logger, m *metrics.Metrics) *Resolver {
	if cfg.TTL <= 0 {
		cfg.TTL = 29 * 24 * time.Hour
	}
	if cfg.MaxIDs <= 0 {
		cfg.MaxIDs = 100
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 16
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Resolver{
		store:   store,
		fetcher: fetcher,
		cfg:     cfg,
		now:     time.Now,
		logger:  logger,
		metrics: m,
	}
}

// Resolve returns one view per requested identifier, keyed exactly as given.
// Identifiers may be bare video IDs or YouTube URLs; blank or malformed
// identifiers get a placeholder view without a lookup. Upstream and store
// failures degrade to placeholder views too; the only errors are
// *ValidationError for an oversized request and *ConfigurationError when no
// upstream credential is configured.
//
// Resolve runs to completion once started: cancellation of ctx is not
// propagated to store writes or upstream calls.
func (r *Resolver) Resolve(ctx context.Context, rawIDs []string) (map[string]models.PublicVideoView, error) {
	start := r.now()
	views, err := r.resolve(context.WithoutCancel(ctx), rawIDs)

	result := "ok"
	var verr *ValidationError
	var cerr *ConfigurationError
	switch {
	case errors.As(err, &verr):
		result = "invalid"
	case errors.As(err, &cerr):
		result = "unconfigured"
	}
	r.metrics.ResolveRequest(result, r.now().Sub(start))

	return views, err
}

func (r *Resolver) resolve(ctx context.Context, rawIDs []string) (map[string]models.PublicVideoView, error) {
	if len(rawIDs) == 0 {
		return map[string]models.PublicVideoView{}, nil
	}

	canonical := make(map[string]string, len(rawIDs)) // raw -> video id
	malformed := make(map[string]struct{})
	var ids []string
	seen := make(map[string]struct{}, len(rawIDs))

	for _, raw := range rawIDs {
		if _, ok := canonical[raw]; ok {
			continue
		}
		if _, ok := malformed[raw]; ok {
			continue
		}

		// blank and malformed identifiers are answered with a placeholder
		id, err := validation.NormalizeVideoID(raw)
		if err != nil {
			malformed[raw] = struct{}{}
			continue
		}

		canonical[raw] = id
		if _, ok := seen[id]; !ok {
			seen[id] = struct{}{}
			ids = append(ids, id)
		}
	}

	if n := len(ids) + len(malformed); n > r.cfg.MaxIDs {
		return nil, &ValidationError{Message: fmt.Sprintf("Maximum %d video IDs allowed, got %d", r.cfg.MaxIDs, n)}
	}

	now := r.now()
	probes := r.probeAll(ctx, ids, now)

	views := make(map[string]models.PublicVideoView, len(ids))
	var toFetch []string
	for _, id := range ids {
		p := probes[id]
		r.metrics.ResolveIDs(p.outcome.String(), 1)
		if p.outcome == ProbeHit {
			views[id] = models.NewPublicVideoView(p.record)
			continue
		}
		toFetch = append(toFetch, id)
	}

	if len(toFetch) > 0 {
		fetched, err := r.fetchAndStore(ctx, toFetch, probes, now)
		if err != nil {
			return nil, err
		}
		for id, v := range fetched {
			views[id] = v
		}
	}

	resp := make(map[string]models.PublicVideoView, len(rawIDs))
	placeholders := 0
	for _, raw := range rawIDs {
		if _, ok := resp[raw]; ok {
			continue
		}
		id, ok := canonical[raw]
		if v, found := views[id]; ok && found {
			resp[raw] = v
			continue
		}
		if !ok {
			id = raw
		}
		resp[raw] = models.NewPlaceholderView(id, now)
		placeholders++
	}
	r.metrics.ResolveIDs(metrics.OutcomePlaceholder, placeholders)

	return resp, nil
}

// probeAll looks every id up concurrently. A failed lookup counts as a miss
// so the id is fetched upstream.
func (r *Resolver) probeAll(ctx context.Context, ids []string, now time.Time) map[string]probe {
	probes := make(map[string]probe, len(ids))
	var mu sync.Mutex
	var g errgroup.Group
	g.SetLimit(r.cfg.Concurrency)

	for _, id := range ids {
		g.Go(func() error {
			p := r.probe(ctx, id, now)
			mu.Lock()
			probes[id] = p
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	return probes
}

func (r *Resolver) probe(ctx context.Context, id string, now time.Time) probe {
	rec, err := r.store.Get(ctx, id)
	switch {
	case db.IsNotFound(err):
		return probe{outcome: ProbeMiss}
	case err != nil:
		r.logger.Warn("Cache probe failed, treating as miss",
			zap.String("videoId", id),
			zap.Error(err),
		)
		r.metrics.StoreError("get")
		return probe{outcome: ProbeFailed}
	case rec.IsFresh(now, r.cfg.TTL):
		return probe{outcome: ProbeHit, record: rec}
	default:
		return probe{outcome: ProbeStale, record: rec}
	}
}

// fetchAndStore fetches ids in one upstream call and writes every returned
// video back to the store.
func (r *Resolver) fetchAndStore(ctx context.Context, ids []string, probes map[string]probe, now time.Time) (map[string]models.PublicVideoView, error) {
	result, err := r.fetcher.FetchMany(ctx, ids)
	if errors.Is(err, youtube.ErrMissingAPIKey) {
		r.logger.Error("YouTube API key not configured", zap.Int("requested", len(ids)))
		return nil, &ConfigurationError{Message: "YouTube API key not configured", Cause: err}
	}
	if err != nil {
		r.logger.Error("Upstream fetch failed", zap.Int("requested", len(ids)), zap.Error(err))
		return map[string]models.PublicVideoView{}, nil
	}

	if len(result.Missing) > 0 || len(result.Failed) > 0 {
		r.logger.Info("Some videos unavailable upstream",
			zap.Strings("missing", result.Missing),
			zap.Strings("failed", result.Failed),
		)
	}

	views := make(map[string]models.PublicVideoView, len(result.Videos))
	var mu sync.Mutex
	var g errgroup.Group
	g.SetLimit(r.cfg.Concurrency)

	for id, item := range result.Videos {
		rec := youtube.NormalizeVideo(item, now)

		view := rec
		if !rec.HasStats() {
			// the store keeps earlier stats; show them too
			if prev := probes[id].record; prev != nil && prev.HasStats() {
				merged := *rec
				merged.Stats, merged.StatsFetchedAt = prev.Stats, prev.StatsFetchedAt
				view = &merged
			}
		}
		views[id] = models.NewPublicVideoView(view)

		g.Go(func() error {
			if err := r.store.Put(ctx, rec); err != nil {
				mu.Lock()
				defer mu.Unlock()
				r.logger.Warn("Cache write failed",
					zap.String("videoId", id),
					zap.Error(err),
				)
				r.metrics.StoreError("put")
			}
			return nil
		})
	}
	_ = g.Wait()

	r.metrics.ResolveIDs(metrics.OutcomeFetched, len(views))
	return views, nil
}
