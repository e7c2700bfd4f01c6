package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	dbmodels "github.com/songtrybe/youtube-metadata-cache/internal/db/models"
	"github.com/songtrybe/youtube-metadata-cache/internal/models"
	"github.com/songtrybe/youtube-metadata-cache/internal/service"
)

const (
	defaultRecentLimit = 20
	maxRecentLimit     = 100
)

// MetadataResolver resolves video identifiers to public views.
type MetadataResolver interface {
	Resolve(ctx context.Context, rawIDs []string) (map[string]models.PublicVideoView, error)
}

// RecentLister lists the most recently refreshed cache records.
type RecentLister interface {
	ListRecent(ctx context.Context, limit int) ([]*dbmodels.CachedVideoRecord, error)
}

// VideoHandler serves the video metadata endpoints.
type VideoHandler struct {
	resolver MetadataResolver
	recent   RecentLister
	logger   *zap.Logger
}

// NewVideoHandler creates a new VideoHandler instance.
func NewVideoHandler(resolver MetadataResolver, recent RecentLister, logger *zap.Logger) *VideoHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &VideoHandler{
		resolver: resolver,
		recent:   recent,
		logger:   logger,
	}
}

// GetMetadata answers POST /api/v1/videos/metadata with one view per
// requested identifier.
func (h *VideoHandler) GetMetadata(c *gin.Context) {
	var req models.MetadataRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("Invalid request payload",
			zap.Error(err),
			zap.String("path", c.Request.URL.Path),
		)
		writeError(c, http.StatusBadRequest, "Bad Request", "videoIds must be an array of strings")
		return
	}

	views, err := h.resolver.Resolve(c.Request.Context(), req.VideoIDs)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, views)
}

// GetRecent answers GET /api/v1/videos/recent?limit=N.
func (h *VideoHandler) GetRecent(c *gin.Context) {
	limit := defaultRecentLimit
	if s := c.Query("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			writeError(c, http.StatusBadRequest, "Bad Request", "limit must be a positive integer")
			return
		}
		limit = min(n, maxRecentLimit)
	}

	recs, err := h.recent.ListRecent(c.Request.Context(), limit)
	if err != nil {
		h.handleError(c, err)
		return
	}

	resp := models.RecentVideosResponse{Videos: make([]models.RecentVideo, 0, len(recs))}
	for _, rec := range recs {
		resp.Videos = append(resp.Videos, models.RecentVideo{
			VideoID:       rec.VideoID,
			LastFetchedAt: rec.LastFetchedAt,
			Video:         models.NewPublicVideoView(rec),
		})
	}
	resp.Count = len(resp.Videos)

	c.JSON(http.StatusOK, resp)
}

func (h *VideoHandler) handleError(c *gin.Context, err error) {
	var verr *service.ValidationError
	var cerr *service.ConfigurationError

	switch {
	case errors.As(err, &verr):
		h.logger.Warn("Validation error",
			zap.Error(err),
			zap.String("path", c.Request.URL.Path),
		)
		writeError(c, http.StatusBadRequest, "Bad Request", verr.Message)
	case errors.As(err, &cerr):
		h.logger.Error("Configuration error",
			zap.Error(err),
			zap.String("path", c.Request.URL.Path),
		)
		writeError(c, http.StatusServiceUnavailable, "Failed Precondition", cerr.Message)
	default:
		h.logger.Error("Unexpected error",
			zap.Error(err),
			zap.String("path", c.Request.URL.Path),
		)
		writeError(c, http.StatusInternalServerError, "Internal Server Error", "An unexpected error occurred")
	}
}

func writeError(c *gin.Context, status int, title, message string) {
	c.JSON(status, models.ErrorResponse{
		Status:    status,
		Error:     title,
		Message:   message,
		Timestamp: time.Now(),
		Path:      c.Request.URL.Path,
	})
}
