package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"safespace/internal/service"
)

type AnalyticsHandler interface {
	GetWeekly(c *gin.Context)
	GetRange(c *gin.Context)
}

type analyticsHandler struct {
	analytics service.AnalyticsService
	logger    *zap.Logger
}

func NewAnalyticsHandler(analytics service.AnalyticsService, logger *zap.Logger) AnalyticsHandler {
	return &analyticsHandler{
		analytics: analytics,
		logger:    logger,
	}
}

// GetWeekly handles GET /api/analytics/weekly
func (h *analyticsHandler) GetWeekly(c *gin.Context) {
	summary, err := h.analytics.Weekly(c.Request.Context(), time.Now())
	if err != nil {
		h.logger.Error("Failed to fetch weekly analytics", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch analytics"})
		return
	}

	c.JSON(http.StatusOK, summary)
}

// GetRange handles GET /api/analytics?start=YYYY-MM-DD&end=YYYY-MM-DD
func (h *analyticsHandler) GetRange(c *gin.Context) {
	start, end := c.Query("start"), c.Query("end")
	if start == "" || end == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "start and end are required"})
		return
	}

	rows, err := h.analytics.RangeQuery(c.Request.Context(), start, end)
	if err != nil {
		if errors.Is(err, service.ErrInvalidRange) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		h.logger.Error("Failed to fetch analytics range", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch analytics"})
		return
	}

	c.JSON(http.StatusOK, rows)
}
