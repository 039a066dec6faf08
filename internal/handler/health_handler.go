package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/tiibntick/service-expedition/internal/platform/database"
	"gorm.io/gorm"
)

// HealthHandler reports liveness and the reachability of the backing stores.
type HealthHandler struct {
	db      *gorm.DB
	cache   *redis.Client
	service string
}

// NewHealthHandler creates a new HealthHandler. cache may be nil.
func NewHealthHandler(db *gorm.DB, cache *redis.Client, service string) *HealthHandler {
	return &HealthHandler{db: db, cache: cache, service: service}
}

// RegisterRoutes registers /health and /ready.
func (h *HealthHandler) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", h.Health)
	r.GET("/ready", h.Ready)
}

// Health handles GET /health.
func (h *HealthHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "service": h.service})
}

// Ready handles GET /ready.
func (h *HealthHandler) Ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	checks := gin.H{}
	healthy := true

	if err := database.Ping(ctx, h.db); err != nil {
		checks["database"] = err.Error()
		healthy = false
	} else {
		checks["database"] = "ok"
	}

	if h.cache != nil {
		if err := h.cache.Ping(ctx).Err(); err != nil {
			// geocoding falls back to the upstream without its cache
			checks["cache"] = err.Error()
		} else {
			checks["cache"] = "ok"
		}
	}

	status := http.StatusOK
	if !healthy {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, gin.H{"service": h.service, "checks": checks})
}
