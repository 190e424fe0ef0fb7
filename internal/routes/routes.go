package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/errwatch/errwatch-backend/internal/config"
	"github.com/errwatch/errwatch-backend/internal/handler"
	"github.com/errwatch/errwatch-backend/internal/middleware"
)

// Setup configures all API routes
func Setup(
	router *gin.Engine,
	errorHandler *handler.ErrorHandler,
	analysisHandler *handler.AnalysisHandler,
	wsHandler *handler.WSHandler,
	redisClient *redis.Client,
	cfg *config.Config,
) {
	api := router.Group("/api/v1")

	// Ingest endpoint: API key with ingest scope, rate limited per client IP
	rlConfig := middleware.DefaultRateLimitConfig()
	rlConfig.RequestsPerMinute = cfg.Ingest.RequestsPerMinute

	ingest := api.Group("/errors")
	ingest.POST("",
		middleware.APIKeyAuth(cfg.Ingest.APIKeys, "ingest"),
		middleware.RateLimit(redisClient, rlConfig),
		errorHandler.Capture,
	)

	// Query endpoints (read scope)
	query := api.Group("/errors", middleware.APIKeyAuth(cfg.Ingest.APIKeys, "read"))
	query.GET("/stats", errorHandler.GetStats)
	query.GET("/top", errorHandler.GetTopErrors)
	query.GET("/:fingerprint", errorHandler.GetDetails)

	// Management endpoints (admin scope)
	manage := api.Group("/errors", middleware.APIKeyAuth(cfg.Ingest.APIKeys, "admin"))
	manage.POST("/:fingerprint/resolve", errorHandler.Resolve)
	manage.POST("/:fingerprint/assign", errorHandler.Assign)
	manage.POST("/:fingerprint/notes", errorHandler.AddNote)

	// Analysis report (read scope)
	analysis := api.Group("/analysis", middleware.APIKeyAuth(cfg.Ingest.APIKeys, "read"))
	analysis.GET("/report", analysisHandler.GetReport)

	// Live event feed for dashboard consumers
	api.GET("/ws", wsHandler.Connect)
}
