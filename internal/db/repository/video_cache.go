package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/songtrybe/youtube-metadata-cache/internal/db"
	"github.com/songtrybe/youtube-metadata-cache/internal/db/models"
)

// VideoCacheRepository is the cache store for video metadata records.
type VideoCacheRepository interface {
	// Get returns the record for videoID, or an error wrapping db.ErrNotFound.
	Get(ctx context.Context, videoID string) (*models.CachedVideoRecord, error)

	// Put inserts or overwrites a record. Stats already stored are kept when rec
	// carries none, and LastFetchedAt never moves backwards.
	Put(ctx context.Context, rec *models.CachedVideoRecord) error

	// QueryOlderThan returns up to limit records fetched strictly before cutoff,
	// oldest first. A limit of zero or less returns no records.
	QueryOlderThan(ctx context.Context, cutoff time.Time, limit int) ([]*models.CachedVideoRecord, error)

	// Delete removes a record. Deleting an absent record is not an error.
	Delete(ctx context.Context, videoID string) error

	// DeleteBatch removes all given records in one atomic operation.
	DeleteBatch(ctx context.Context, videoIDs []string) error

	// ListRecent returns up to limit records, most recently fetched first. A
	// limit of zero or less returns no records.
	ListRecent(ctx context.Context, limit int) ([]*models.CachedVideoRecord, error)

	// Ping checks that the backing store is reachable.
	Ping(ctx context.Context) error
}

const videoCacheColumns = `video_id, title, channel_title, published_at, duration_raw, duration_seconds,
		thumbnail_default_url, thumbnail_medium_url, thumbnail_high_url, thumbnail_maxres_url,
		last_fetched_at, view_count, like_count, stats_fetched_at`

type videoCacheRepository struct {
	pool *pgxpool.Pool
}

// NewVideoCacheRepository creates a PostgreSQL-backed VideoCacheRepository.
func NewVideoCacheRepository(pool *pgxpool.Pool) VideoCacheRepository {
	return &videoCacheRepository{pool: pool}
}

func (r *videoCacheRepository) Get(ctx context.Context, videoID string) (*models.CachedVideoRecord, error) {
	query := `SELECT ` + videoCacheColumns + `
		FROM youtube_video_cache
		WHERE video_id = $1`

	rec, err := scanVideoCache(r.pool.QueryRow(ctx, query, videoID))
	if err != nil {
		return nil, db.WrapError(err, "get cached video")
	}

	return rec, nil
}

func (r *videoCacheRepository) Put(ctx context.Context, rec *models.CachedVideoRecord) error {
	query := `
		INSERT INTO youtube_video_cache (` + videoCacheColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (video_id) DO UPDATE
		SET title = EXCLUDED.title,
		    channel_title = EXCLUDED.channel_title,
		    published_at = EXCLUDED.published_at,
		    duration_raw = EXCLUDED.duration_raw,
		    duration_seconds = EXCLUDED.duration_seconds,
		    thumbnail_default_url = EXCLUDED.thumbnail_default_url,
		    thumbnail_medium_url = EXCLUDED.thumbnail_medium_url,
		    thumbnail_high_url = EXCLUDED.thumbnail_high_url,
		    thumbnail_maxres_url = EXCLUDED.thumbnail_maxres_url,
		    last_fetched_at = GREATEST(youtube_video_cache.last_fetched_at, EXCLUDED.last_fetched_at),
		    view_count = CASE WHEN EXCLUDED.stats_fetched_at IS NULL
		        THEN youtube_video_cache.view_count ELSE EXCLUDED.view_count END,
		    like_count = CASE WHEN EXCLUDED.stats_fetched_at IS NULL
		        THEN youtube_video_cache.like_count ELSE EXCLUDED.like_count END,
		    stats_fetched_at = COALESCE(EXCLUDED.stats_fetched_at, youtube_video_cache.stats_fetched_at)
	`

	var viewCount, likeCount *int64
	var statsFetchedAt *time.Time
	if rec.HasStats() {
		viewCount = &rec.Stats.ViewCount
		likeCount = &rec.Stats.LikeCount
		statsFetchedAt = rec.StatsFetchedAt
	}

	_, err := r.pool.Exec(ctx, query,
		rec.VideoID,
		rec.Title,
		rec.ChannelTitle,
		rec.PublishedAt,
		rec.DurationRaw,
		rec.DurationSeconds,
		rec.Thumbnails.DefaultURL,
		rec.Thumbnails.MediumURL,
		rec.Thumbnails.HighURL,
		rec.Thumbnails.MaxresURL,
		rec.LastFetchedAt,
		viewCount,
		likeCount,
		statsFetchedAt,
	)
	if err != nil {
		return db.WrapError(err, "put cached video")
	}

	return nil
}

func (r *videoCacheRepository) QueryOlderThan(ctx context.Context, cutoff time.Time, limit int) ([]*models.CachedVideoRecord, error) {
	if limit <= 0 {
		return nil, nil
	}

	query := `SELECT ` + videoCacheColumns + `
		FROM youtube_video_cache
		WHERE last_fetched_at < $1
		ORDER BY last_fetched_at ASC
		LIMIT $2`

	rows, err := r.pool.Query(ctx, query, cutoff, limit)
	if err != nil {
		return nil, db.WrapError(err, "query cached videos older than")
	}
	defer rows.Close()

	return scanVideoCaches(rows)
}

func (r *videoCacheRepository) Delete(ctx context.Context, videoID string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM youtube_video_cache WHERE video_id = $1`, videoID)
	if err != nil {
		return db.WrapError(err, "delete cached video")
	}
	return nil
}

func (r *videoCacheRepository) DeleteBatch(ctx context.Context, videoIDs []string) error {
	if len(videoIDs) == 0 {
		return nil
	}

	// a single statement commits or fails as a whole
	_, err := r.pool.Exec(ctx, `DELETE FROM youtube_video_cache WHERE video_id = ANY($1)`, videoIDs)
	if err != nil {
		return db.WrapError(err, "delete cached video batch")
	}
	return nil
}

func (r *videoCacheRepository) ListRecent(ctx context.Context, limit int) ([]*models.CachedVideoRecord, error) {
	if limit <= 0 {
		return nil, nil
	}

	query := `SELECT ` + videoCacheColumns + `
		FROM youtube_video_cache
		ORDER BY last_fetched_at DESC
		LIMIT $1`

	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, db.WrapError(err, "list recent cached videos")
	}
	defer rows.Close()

	return scanVideoCaches(rows)
}

func (r *videoCacheRepository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

func scanVideoCache(row pgx.Row) (*models.CachedVideoRecord, error) {
	rec := &models.CachedVideoRecord{}
	var viewCount, likeCount *int64

	err := row.Scan(
		&rec.VideoID,
		&rec.Title,
		&rec.ChannelTitle,
		&rec.PublishedAt,
		&rec.DurationRaw,
		&rec.DurationSeconds,
		&rec.Thumbnails.DefaultURL,
		&rec.Thumbnails.MediumURL,
		&rec.Thumbnails.HighURL,
		&rec.Thumbnails.MaxresURL,
		&rec.LastFetchedAt,
		&viewCount,
		&likeCount,
		&rec.StatsFetchedAt,
	)
	if err != nil {
		return nil, err
	}

	if viewCount != nil && likeCount != nil && rec.StatsFetchedAt != nil {
		rec.Stats = &models.VideoStats{ViewCount: *viewCount, LikeCount: *likeCount}
	} else {
		rec.StatsFetchedAt = nil
	}

	return rec, nil
}

func scanVideoCaches(rows pgx.Rows) ([]*models.CachedVideoRecord, error) {
	var recs []*models.CachedVideoRecord

	for rows.Next() {
		rec, err := scanVideoCache(rows)
		if err != nil {
			return nil, fmt.Errorf("scan cached video: %w", err)
		}
		recs = append(recs, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate cached videos: %w", err)
	}

	return recs, nil
}
