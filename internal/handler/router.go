package handler

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/songtrybe/youtube-metadata-cache/internal/metrics"
	"github.com/songtrybe/youtube-metadata-cache/internal/middleware"
)

// RouterConfig collects the handlers and API guards.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type RouterConfig struct {
	Videos  *VideoHandler
	Health  *HealthHandler
	Metrics *metrics.Metrics
	Logger  *zap.Logger

	// APIKeys enables key auth on /api when non-empty.
	APIKeys []string
	// RateLimit enables per-IP limiting on /api when positive.
	RateLimit float64
	RateBurst int
	// CORSOrigins enables CORS for browser clients when non-empty.
	CORSOrigins []string
}

// NewRouter wires the routes.
func NewRouter(cfg RouterConfig) *gin.Engine {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger(logger, cfg.Metrics))
	if len(cfg.CORSOrigins) > 0 {
		router.Use(cors.New(cors.Config{
			AllowOrigins:  cfg.CORSOrigins,
			AllowMethods:  []string{"GET", "POST", "OPTIONS"},
			AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "Authorization", "X-API-Key"},
			ExposeHeaders: []string{"Content-Length", "Retry-After"},
			MaxAge:        12 * time.Hour,
		}))
	}

	router.GET("/health/live", cfg.Health.LivenessProbe)
	router.GET("/health/ready", cfg.Health.ReadinessProbe)
	router.GET("/metrics", gin.WrapH(cfg.Metrics.Handler()))

	api := router.Group("/api/v1")
	if cfg.RateLimit > 0 {
		api.Use(middleware.NewIPRateLimiter(cfg.RateLimit, cfg.RateBurst, 10*time.Minute, logger).Handler())
	}
	if len(cfg.APIKeys) > 0 {
		api.Use(middleware.NewAPIKeyAuth(cfg.APIKeys, logger).Handler())
	}

	api.POST("/videos/metadata", cfg.Videos.GetMetadata)
	api.GET("/videos/recent", cfg.Videos.GetRecent)

	return router
}

// NewProbeRouter serves only health and metrics, for processes without the API.
func NewProbeRouter(health *HealthHandler, m *metrics.Metrics) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/health/live", health.LivenessProbe)
	router.GET("/health/ready", health.ReadinessProbe)
	router.GET("/metrics", gin.WrapH(m.Handler()))

	return router
}
