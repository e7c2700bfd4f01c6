package youtube

import (
	"math"
	"time"

	ytapi "google.golang.org/api/youtube/v3"

	"github.com/songtrybe/youtube-metadata-cache/internal/db/models"
)

// DefaultTitle is stored when the upstream item has no title.
const DefaultTitle = "Untitled Video"

// NormalizeVideo maps a videos.list item onto a cache record fetched at now.
// Stats are set only when the item carried a statistics part.
func NormalizeVideo(item *ytapi.Video, now time.Time) *models.CachedVideoRecord {
	rec := &models.CachedVideoRecord{
		VideoID:       item.Id,
		Title:         DefaultTitle,
		PublishedAt:   now,
		DurationRaw:   models.DefaultDurationRaw,
		LastFetchedAt: now,
	}

	if sn := item.Snippet; sn != nil {
		if sn.Title != "" {
			rec.Title = sn.Title
		}
		rec.ChannelTitle = sn.ChannelTitle
		if t, err := time.Parse(time.RFC3339, sn.PublishedAt); err == nil {
			rec.PublishedAt = t
		}
		rec.Thumbnails = mapThumbnails(sn.Thumbnails)
	}

	if cd := item.ContentDetails; cd != nil && cd.Duration != "" {
		rec.DurationRaw = cd.Duration
	}
	rec.DurationSeconds = ParseDuration(rec.DurationRaw)

	if st := item.Statistics; st != nil {
		fetchedAt := now
		rec.Stats = &models.VideoStats{
			ViewCount: clampCount(st.ViewCount),
			LikeCount: clampCount(st.LikeCount),
		}
		rec.StatsFetchedAt = &fetchedAt
	}

	return rec
}

func mapThumbnails(td *ytapi.ThumbnailDetails) models.Thumbnails {
	var t models.Thumbnails
	if td == nil {
		return t
	}
	if td.Default != nil {
		t.DefaultURL = td.Default.Url
	}
	if td.Medium != nil {
		t.MediumURL = td.Medium.Url
	}
	if td.High != nil {
		t.HighURL = td.High.Url
	}
	if td.Maxres != nil {
		t.MaxresURL = td.Maxres.Url
	}
	return t
}

func clampCount(n uint64) int64 {
	if n > math.MaxInt64 {
		return math.MaxInt64
	}
	return int64(n)
}
