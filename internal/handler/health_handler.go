package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/errwatch/errwatch-backend/pkg/cache"
)

// HealthHandler reports service liveness and dependency status
type HealthHandler struct {
	cache   cache.Service
	version string
}

// NewHealthHandler creates a new HealthHandler
func NewHealthHandler(cacheService cache.Service, version string) *HealthHandler {
	return &HealthHandler{cache: cacheService, version: version}
}

// Check handles GET /health
func (h *HealthHandler) Check(c *gin.Context) {
	redisStatus := "disabled"
	if h.cache != nil && h.cache.IsAvailable() {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := h.cache.Ping(ctx); err != nil {
			redisStatus = "unreachable"
		} else {
			redisStatus = "ok"
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"version": h.version,
		"redis":   redisStatus,
	})
}
