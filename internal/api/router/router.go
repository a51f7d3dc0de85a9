package router

import (
	"log/slog"
	"net/http"

	"github.com/cuongbtq/media-gateway/internal/api/handler"
	"github.com/cuongbtq/media-gateway/internal/domain"
	"github.com/cuongbtq/media-gateway/internal/metrics"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
)

// Config holds router level settings
type Config struct {
	AllowedOrigins []string
	TrustedProxies []string
	// RateLimit is applied to /api routes when set
	RateLimit *RateLimitConfig
	Metrics   metrics.GatewayMetrics
	// MetricsHandler is mounted at MetricsPath when set
	MetricsHandler http.Handler
	MetricsPath    string
}

// SetupRouter configures and returns the Gin router with all routes
func SetupRouter(deps *handler.Dependencies, cfg *Config) (*gin.Engine, error) {
	r := gin.New()

	if err := r.SetTrustedProxies(cfg.TrustedProxies); err != nil {
		return nil, err
	}

	gatewayMetrics := cfg.Metrics
	if gatewayMetrics == nil {
		gatewayMetrics = metrics.Noop{}
	}

	// Middleware
	r.Use(gin.Recovery())
	r.Use(LoggerMiddleware(deps.Logger))
	r.Use(MetricsMiddleware(gatewayMetrics))
	r.Use(SecurityHeaders())
	r.Use(CORSMiddleware(cfg.AllowedOrigins))
	r.Use(CompressionMiddleware(cfg.MetricsPath))

	healthHandler := handler.NewHealthHandler(deps)
	r.GET("/health", healthHandler.Health)

	if cfg.MetricsHandler != nil {
		r.GET(cfg.MetricsPath, gin.WrapH(cfg.MetricsHandler))
	}

	downloadHandler := handler.NewDownloadHandler(deps)
	infoHandler := handler.NewInfoHandler(deps)
	jobHandler := handler.NewJobHandler(deps)

	// GET /downloads/:filename - Fetch a finished artifact
	r.GET(domain.DownloadRoute+"/:filename", downloadHandler.ServeFile)

	api := r.Group("/api")
	if cfg.RateLimit != nil {
		api.Use(RateLimitMiddleware(*cfg.RateLimit))
	}
	{
		download := api.Group("/download")
		{
			// POST /api/download/video - Download a video
			download.POST("/video", downloadHandler.DownloadVideo)

			// POST /api/download/audio - Extract audio as mp3
			download.POST("/audio", downloadHandler.DownloadAudio)

			// GET /api/download/status/:id - Check whether an artifact exists
			download.GET("/status/:id", downloadHandler.Status)

			// DELETE /api/download/:id - Delete an artifact
			download.DELETE("/:id", downloadHandler.Delete)
		}

		info := api.Group("/info")
		{
			// POST /api/info/video - Probe metadata and formats
			info.POST("/video", infoHandler.VideoInfo)

			// POST /api/info/validate - Check a URL without downloading
			info.POST("/validate", infoHandler.Validate)
		}

		// GET /api/jobs - Job history with cursor pagination
		api.GET("/jobs", jobHandler.ListJobs)
	}

	return r, nil
}

// CompressionMiddleware gzips responses for clients that accept it.
// Artifact downloads and the metrics endpoint are sent as is.
func CompressionMiddleware(metricsPath string) gin.HandlerFunc {
	excluded := []string{domain.DownloadRoute + "/"}
	if metricsPath != "" {
		excluded = append(excluded, metricsPath)
	}
	return gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths(excluded))
}

// SetupMetricsRouter serves only the metrics endpoint, for binaries that do
// not expose the API.
func SetupMetricsRouter(logger *slog.Logger, path string, h http.Handler) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(LoggerMiddleware(logger))
	r.GET(path, gin.WrapH(h))
	return r
}
