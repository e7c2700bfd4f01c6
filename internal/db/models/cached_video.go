package models

import (
	"fmt"
	"net/url"
	"time"
)

// DefaultDurationRaw is stored when the upstream omits a duration.
const DefaultDurationRaw = "PT0S"

// ThumbnailQuality names one of the static thumbnail renditions served by img.youtube.com.
type ThumbnailQuality string

// Static thumbnail renditions, smallest first.
const (
	ThumbnailDefault ThumbnailQuality = "default"
	ThumbnailMedium  ThumbnailQuality = "mqdefault"
	ThumbnailHigh    ThumbnailQuality = "hqdefault"
	ThumbnailSD      ThumbnailQuality = "sddefault"
	ThumbnailMaxRes  ThumbnailQuality = "maxresdefault"
)

// ThumbnailURL builds the static thumbnail URL for a video. It does not check
// that the rendition exists; maxres in particular is missing for many uploads.
func ThumbnailURL(videoID string, quality ThumbnailQuality) string {
	return fmt.Sprintf("https://img.youtube.com/vi/%s/%s.jpg", url.PathEscape(videoID), quality)
}

// Thumbnails holds the thumbnail URLs returned by the API. Empty means absent.
type Thumbnails struct {
	DefaultURL string `bson:"default,omitempty"`
	MediumURL  string `bson:"medium,omitempty"`
	HighURL    string `bson:"high,omitempty"`
	MaxresURL  string `bson:"maxres,omitempty"`
}

// Best returns the highest quality thumbnail present, falling back to the
// static hqdefault rendition for videoID.
func (t Thumbnails) Best(videoID string) string {
	for _, u := range []string{t.MaxresURL, t.HighURL, t.MediumURL, t.DefaultURL} {
		if u != "" {
			return u
		}
	}
	return ThumbnailURL(videoID, ThumbnailHigh)
}

// VideoStats are the engagement counters captured at StatsFetchedAt.
type VideoStats struct {
	ViewCount int64 `bson:"viewCount"`
	LikeCount int64 `bson:"likeCount"`
}

// CachedVideoRecord is the persisted metadata for one video.
//
// Stats and StatsFetchedAt are either both set or both nil. DurationSeconds is
// always derived from DurationRaw.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type CachedVideoRecord struct {
	VideoID         string      `db:"video_id" bson:"_id"`
	Title           string      `db:"title" bson:"title"`
	ChannelTitle    string      `db:"channel_title" bson:"channelTitle"`
	PublishedAt     time.Time   `db:"published_at" bson:"publishedAt"`
	DurationRaw     string      `db:"duration_raw" bson:"durationIso"`
	DurationSeconds int         `db:"duration_seconds" bson:"durationSeconds"`
	Thumbnails      Thumbnails  `bson:"thumbnails"`
	LastFetchedAt   time.Time   `db:"last_fetched_at" bson:"lastFetchedAt"`
	Stats           *VideoStats `bson:"stats,omitempty"`
	StatsFetchedAt  *time.Time  `db:"stats_fetched_at" bson:"statsFetchedAt,omitempty"`
}

// HasStats reports whether the record carries a complete stats snapshot.
func (r *CachedVideoRecord) HasStats() bool {
	return r.Stats != nil && r.StatsFetchedAt != nil
}

// Age returns how long ago the record was last fetched.
func (r *CachedVideoRecord) Age(now time.Time) time.Duration {
	return now.Sub(r.LastFetchedAt)
}

// IsFresh reports whether the record is younger than ttl. A record exactly ttl
// old is stale.
func (r *CachedVideoRecord) IsFresh(now time.Time, ttl time.Duration) bool {
	return r.Age(now) < ttl
}
