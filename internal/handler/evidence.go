package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"safespace/internal/models"
	"safespace/internal/repository"
	"safespace/internal/telemetry"
)

type EvidenceHandler interface {
	CreateEvidence(c *gin.Context)
	ListEvidence(c *gin.Context)
	DeleteEvidence(c *gin.Context)
	ClearEvidence(c *gin.Context)
}

type evidenceHandler struct {
	repo    repository.EvidenceRepository
	metrics *telemetry.Metrics
	logger  *zap.Logger
}

func NewEvidenceHandler(repo repository.EvidenceRepository, metrics *telemetry.Metrics, logger *zap.Logger) EvidenceHandler {
	return &evidenceHandler{
		repo:    repo,
		metrics: metrics,
		logger:  logger,
	}
}

// CreateEvidence handles POST /api/evidence
func (h *evidenceHandler) CreateEvidence(c *gin.Context) {
	var input models.CreateEvidenceInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	evidence, err := h.repo.Create(c.Request.Context(), &input)
	if err != nil {
		h.logger.Error("Failed to save evidence", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save evidence"})
		return
	}

	h.metrics.RecordEvidence("create")
	c.JSON(http.StatusCreated, evidence)
}

// ListEvidence handles GET /api/evidence
func (h *evidenceHandler) ListEvidence(c *gin.Context) {
	evidence, err := h.repo.List(c.Request.Context())
	if err != nil {
		h.logger.Error("Failed to retrieve evidence", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve evidence"})
		return
	}

	c.JSON(http.StatusOK, evidence)
}

// DeleteEvidence handles DELETE /api/evidence/:id
func (h *evidenceHandler) DeleteEvidence(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid evidence ID"})
		return
	}

	if err := h.repo.Delete(c.Request.Context(), id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Evidence not found"})
			return
		}
		h.logger.Error("Failed to delete evidence", zap.Int64("id", id), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete evidence"})
		return
	}

	h.metrics.RecordEvidence("delete")
	c.Status(http.StatusNoContent)
}

// ClearEvidence handles DELETE /api/evidence
func (h *evidenceHandler) ClearEvidence(c *gin.Context) {
	deleted, err := h.repo.Clear(c.Request.Context())
	if err != nil {
		h.logger.Error("Failed to clear evidence", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to clear evidence"})
		return
	}

	h.metrics.RecordEvidence("clear")
	c.JSON(http.StatusOK, gin.H{"deleted": deleted})
}
