package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"safespace/internal/classifier"
	"safespace/internal/service"
	"safespace/internal/telemetry"
)

type AnalyzeHandler interface {
	Analyze(c *gin.Context)
	AnalyzeBatch(c *gin.Context)
}

type analyzeHandler struct {
	classifier *classifier.Classifier
	analytics  service.AnalyticsService
	metrics    *telemetry.Metrics
	logger     *zap.Logger
}

func NewAnalyzeHandler(c *classifier.Classifier, analytics service.AnalyticsService, metrics *telemetry.Metrics, logger *zap.Logger) AnalyzeHandler {
	return &analyzeHandler{
		classifier: c,
		analytics:  analytics,
		metrics:    metrics,
		logger:     logger,
	}
}

type analyzeRequest struct {
	Text string `json:"text" binding:"required"`
}

type analyzeBatchRequest struct {
	Texts []string `json:"texts" binding:"required,min=1,max=100"`
}

// Analyze handles POST /api/analyze
func (h *analyzeHandler) Analyze(c *gin.Context) {
	var req analyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Text is required"})
		return
	}

	result := h.classify(req.Text)
	if _, err := h.analytics.RecordResult(c.Request.Context(), time.Now(), result); err != nil {
		h.logger.Error("Failed to record analytics event", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Analysis failed"})
		return
	}

	c.JSON(http.StatusOK, result)
}

// AnalyzeBatch handles POST /api/analyze/batch
func (h *analyzeHandler) AnalyzeBatch(c *gin.Context) {
	var req analyzeBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	now := time.Now()
	results := make([]classifier.Result, 0, len(req.Texts))
	for _, text := range req.Texts {
		result := h.classify(text)
		if _, err := h.analytics.RecordResult(c.Request.Context(), now, result); err != nil {
			h.logger.Error("Failed to record analytics event", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Analysis failed"})
			return
		}
		results = append(results, result)
	}

	c.JSON(http.StatusOK, gin.H{"results": results})
}

func (h *analyzeHandler) classify(text string) classifier.Result {
	start := time.Now()
	result := h.classifier.Classify(text)
	h.metrics.RecordClassification(string(result.Severity), time.Since(start))
	return result
}
