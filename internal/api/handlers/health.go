package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/stitts-dev/nfl-roo-sim/internal/storage"
)

// HealthHandler serves liveness and readiness probes
type HealthHandler struct {
	db     *storage.DB
	redis  *redis.Client
	logger *logrus.Logger
	start  time.Time
}

// NewHealthHandler creates the health handler. Nil db or redis clients are
// reported as disabled rather than unhealthy.
func NewHealthHandler(db *storage.DB, redisClient *redis.Client, logger *logrus.Logger) *HealthHandler {
	return &HealthHandler{
		db:     db,
		redis:  redisClient,
		logger: logger,
		start:  time.Now(),
	}
}

// GetHealth handles GET /health
func (h *HealthHandler) GetHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "nfl-roo-sim",
		"uptime":  time.Since(h.start).String(),
	})
}

// GetReady handles GET /ready: the service is ready when every configured
// dependency answers
func (h *HealthHandler) GetReady(c *gin.Context) {
	checks := gin.H{}
	ready := true

	if h.db != nil {
		if sqlDB, err := h.db.DB.DB(); err != nil || sqlDB.Ping() != nil {
			checks["database"] = "unhealthy"
			ready = false
		} else {
			checks["database"] = "healthy"
		}
	} else {
		checks["database"] = "disabled"
	}

	if h.redis != nil {
		if err := h.redis.Ping(c.Request.Context()).Err(); err != nil {
			checks["redis"] = "unhealthy"
			ready = false
		} else {
			checks["redis"] = "healthy"
		}
	} else {
		checks["redis"] = "disabled"
	}

	status := http.StatusOK
	if !ready {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, gin.H{"ready": ready, "checks": checks})
}
