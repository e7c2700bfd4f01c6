// Package models contains the request and response DTOs for the metadata cache API.
package models

import (
	"time"

	dbmodels "github.com/songtrybe/youtube-metadata-cache/internal/db/models"
)

// PlaceholderTitle is shown for videos the upstream could not describe.
const PlaceholderTitle = "Video"

// PublicVideoView is the client-facing projection of a cached video.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type PublicVideoView struct {
	Title            string `json:"title"`
	ChannelTitle     string `json:"channelTitle"`
	PublishedAt      int64  `json:"publishedAt"`
	DurationSeconds  int    `json:"durationSeconds"`
	BestThumbnailURL string `json:"bestThumbnailUrl"`
	ViewCount        *int64 `json:"viewCount,omitempty"`
	LikeCount        *int64 `json:"likeCount,omitempty"`
}

// NewPublicVideoView projects a cache record onto the public view.
func NewPublicVideoView(rec *dbmodels.CachedVideoRecord) PublicVideoView {
	view := PublicVideoView{
		Title:            rec.Title,
		ChannelTitle:     rec.ChannelTitle,
		PublishedAt:      rec.PublishedAt.UnixMilli(),
		DurationSeconds:  rec.DurationSeconds,
		BestThumbnailURL: rec.Thumbnails.Best(rec.VideoID),
	}
	if rec.Stats != nil {
		views, likes := rec.Stats.ViewCount, rec.Stats.LikeCount
		view.ViewCount = &views
		view.LikeCount = &likes
	}
	return view
}

// NewPlaceholderView builds the view returned for a video with no metadata.
func NewPlaceholderView(videoID string, now time.Time) PublicVideoView {
	return PublicVideoView{
		Title:            PlaceholderTitle,
		ChannelTitle:     "",
		PublishedAt:      now.UnixMilli(),
		DurationSeconds:  0,
		BestThumbnailURL: dbmodels.ThumbnailURL(videoID, dbmodels.ThumbnailHigh),
	}
}

// MetadataRequest is the body of POST /api/v1/videos/metadata.
type MetadataRequest struct {
	VideoIDs []string `json:"videoIds" binding:"required"`
}

// RecentVideo is one entry of GET /api/v1/videos/recent.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type RecentVideo struct {
	VideoID       string          `json:"videoId"`
	LastFetchedAt time.Time       `json:"lastFetchedAt"`
	Video         PublicVideoView `json:"video"`
}

// RecentVideosResponse is the body of GET /api/v1/videos/recent.
type RecentVideosResponse struct {
	Videos []RecentVideo `json:"videos"`
	Count  int           `json:"count"`
}

// ErrorResponse represents an error response.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type ErrorResponse struct {
	Timestamp time.Time `json:"timestamp"`
	Status    int       `json:"status"`
	Error     string    `json:"error"`
	Message   string    `json:"message"`
	Path      string    `json:"path"`
}
