package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Pinger reports whether a backing store is reachable.
type Pinger interface {
	PingContext(ctx context.Context) error
}

type HealthHandler interface {
	Health(c *gin.Context)
}

type healthHandler struct {
	db     Pinger
	logger *zap.Logger
}

func NewHealthHandler(db Pinger, logger *zap.Logger) HealthHandler {
	return &healthHandler{db: db, logger: logger}
}

// Health handles GET /api/health
func (h *healthHandler) Health(c *gin.Context) {
	timestamp := time.Now().UTC().Format(time.RFC3339Nano)

	if h.db != nil {
		if err := h.db.PingContext(c.Request.Context()); err != nil {
			h.logger.Warn("Database ping failed", zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "timestamp": timestamp})
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok", "timestamp": timestamp})
}
