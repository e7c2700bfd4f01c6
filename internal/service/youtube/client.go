// Package youtube fetches and normalizes video metadata from the YouTube Data API v3.
package youtube

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	ytapi "google.golang.org/api/youtube/v3"

	"github.com/songtrybe/youtube-metadata-cache/internal/metrics"
	"github.com/songtrybe/youtube-metadata-cache/internal/service/quota"
)

// MaxBatchSize is the most ids videos.list accepts in one call.
const MaxBatchSize = 50

// ErrMissingAPIKey is returned by FetchMany when no API key is configured.
var ErrMissingAPIKey = errors.New("youtube API key is not configured")

var videoParts = []string{"snippet", "contentDetails", "statistics"}

// VideoLister issues a single videos.list call.
type VideoLister interface {
	ListVideos(ctx context.Context, ids []string) ([]*ytapi.Video, error)
}

// QuotaGate reserves quota units before a call.
type QuotaGate interface {
	Acquire(ctx context.Context, units int) error
}

// FetchResult is the outcome of FetchMany. Every requested id is in exactly
// one of Videos, Missing or Failed.
type FetchResult struct {
	Videos map[string]*ytapi.Video
	// Missing ids were in a successful chunk but the API returned no item for
	// them: deleted, private or never existed.
	Missing []string
	// Failed ids were in a chunk whose call failed; nothing is known about them.
	Failed []string
}

// ClientConfig configures a Client.
type ClientConfig struct {
	APIKey            string
	BatchSize         int
	Concurrency       int
	RequestsPerSecond float64
	// Endpoint overrides the API base URL.
	Endpoint string
}

// Client batches metadata lookups against videos.list.
type Client struct {
	lister      VideoLister
	apiKey      string
	batchSize   int
	concurrency int
	limiter     *rate.Limiter
	quota       QuotaGate
	metrics     *metrics.Metrics
	logger      *zap.Logger
}

// Option customizes a Client.
type Option func(*Client)

// WithQuota gates every chunk call on q.
func WithQuota(q QuotaGate) Option {
	return func(c *Client) { c.quota = q }
}

// WithLister replaces the API-backed lister.
func WithLister(l VideoLister) Option {
	return func(c *Client) { c.lister = l }
}

// WithMetrics records chunk calls on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

// WithLogger sets the client logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// NewClient creates a Client. An empty API key is accepted: the client is
// then unconfigured and every FetchMany returns ErrMissingAPIKey.
func NewClient(ctx context.Context, cfg ClientConfig, opts ...Option) (*Client, error) {
	c := &Client{
		apiKey:      cfg.APIKey,
		batchSize:   cfg.BatchSize,
		concurrency: cfg.Concurrency,
		logger:      zap.NewNop(),
	}
	if c.batchSize <= 0 || c.batchSize > MaxBatchSize {
		c.batchSize = MaxBatchSize
	}
	if c.concurrency <= 0 {
		c.concurrency = 1
	}
	if cfg.RequestsPerSecond > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), c.concurrency)
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.lister == nil && c.apiKey != "" {
		svcOpts := []option.ClientOption{option.WithAPIKey(c.apiKey)}
		if cfg.Endpoint != "" {
			svcOpts = append(svcOpts, option.WithEndpoint(cfg.Endpoint))
		}
		service, err := ytapi.NewService(ctx, svcOpts...)
		if err != nil {
			return nil, fmt.Errorf("failed to create YouTube service: %w", err)
		}
		c.lister = &serviceLister{service: service}
	}

	return c, nil
}

// Configured reports whether the client has an API key.
func (c *Client) Configured() bool {
	return c.apiKey != ""
}

// FetchMany looks up ids in chunks of at most 50. A failing chunk is logged
// and its ids reported in Failed; the error return is reserved for
// ErrMissingAPIKey.
func (c *Client) FetchMany(ctx context.Context, ids []string) (*FetchResult, error) {
	if !c.Configured() {
		return nil, ErrMissingAPIKey
	}

	ids = dedupe(ids)
	result := &FetchResult{Videos: make(map[string]*ytapi.Video, len(ids))}
	if len(ids) == 0 {
		return result, nil
	}

	chunks := BatchVideoIDs(ids, c.batchSize)
	failed := make(map[string]struct{})

	var mu sync.Mutex
	var g errgroup.Group
	g.SetLimit(c.concurrency)

	for i, chunk := range chunks {
		g.Go(func() error {
			items, err := c.fetchChunk(ctx, chunk)

			mu.Lock()
			defer mu.Unlock()

			if err != nil {
				c.logger.Warn("YouTube chunk fetch failed",
					zap.Int("chunk", i),
					zap.Int("size", len(chunk)),
					zap.Error(err),
				)
				for _, id := range chunk {
					failed[id] = struct{}{}
				}
				return nil
			}

			wanted := make(map[string]struct{}, len(chunk))
			for _, id := range chunk {
				wanted[id] = struct{}{}
			}
			for _, item := range items {
				if item == nil {
					continue
				}
				if _, ok := wanted[item.Id]; ok {
					result.Videos[item.Id] = item
				}
			}
			return nil
		})
	}
	_ = g.Wait()

	for _, id := range ids {
		if _, ok := result.Videos[id]; ok {
			continue
		}
		if _, ok := failed[id]; ok {
			result.Failed = append(result.Failed, id)
		} else {
			result.Missing = append(result.Missing, id)
		}
	}

	return result, nil
}

func (c *Client) fetchChunk(ctx context.Context, ids []string) ([]*ytapi.Video, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			c.metrics.UpstreamCall("rate_limited", 0)
			return nil, fmt.Errorf("rate limiter: %w", err)
		}
	}

	if c.quota != nil {
		if err := c.quota.Acquire(ctx, quota.VideosListCost); err != nil {
			c.metrics.UpstreamCall("quota", 0)
			return nil, err
		}
	}

	start := time.Now()
	items, err := c.lister.ListVideos(ctx, ids)
	elapsed := time.Since(start)
	if err != nil {
		if isQuotaExceeded(err) {
			c.metrics.UpstreamCall("quota", elapsed)
		} else {
			c.metrics.UpstreamCall("error", elapsed)
		}
		return nil, fmt.Errorf("failed to fetch videos from YouTube API: %w", err)
	}

	c.metrics.UpstreamCall("ok", elapsed)
	return items, nil
}

// isQuotaExceeded reports whether err is the API's daily quota rejection.
func isQuotaExceeded(err error) bool {
	var gerr *googleapi.Error
	if !errors.As(err, &gerr) || gerr.Code != 403 {
		return false
	}
	for _, item := range gerr.Errors {
		if item.Reason == "quotaExceeded" || item.Reason == "dailyLimitExceeded" {
			return true
		}
	}
	return false
}

type serviceLister struct {
	service *ytapi.Service
}

func (s *serviceLister) ListVideos(ctx context.Context, ids []string) ([]*ytapi.Video, error) {
	resp, err := s.service.Videos.List(videoParts).Id(ids...).Context(ctx).Do()
	if err != nil {
		return nil, err
	}
	return resp.Items, nil
}

// BatchVideoIDs splits ids into batches of at most batchSize (capped at 50).
func BatchVideoIDs(ids []string, batchSize int) [][]string {
	if batchSize <= 0 || batchSize > MaxBatchSize {
		batchSize = MaxBatchSize
	}

	var batches [][]string
	for i := 0; i < len(ids); i += batchSize {
		end := min(i+batchSize, len(ids))
		batches = append(batches, ids[i:end])
	}
	return batches
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
