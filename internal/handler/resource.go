package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"safespace/internal/models"
	"safespace/internal/repository"
)

type ResourceHandler interface {
	ListResources(c *gin.Context)
	CreateResource(c *gin.Context)
}

type resourceHandler struct {
	repo   repository.ResourceRepository
	logger *zap.Logger
}

func NewResourceHandler(repo repository.ResourceRepository, logger *zap.Logger) ResourceHandler {
	return &resourceHandler{
		repo:   repo,
		logger: logger,
	}
}

// ListResources handles GET /api/resources?category=
func (h *resourceHandler) ListResources(c *gin.Context) {
	var (
		resources []*models.Resource
		err       error
	)

	switch category := c.Query("category"); category {
	case "":
		resources, err = h.repo.ListAll(c.Request.Context())
	case models.ResourceCategoryEmergency, models.ResourceCategoryEducation, models.ResourceCategorySupport:
		resources, err = h.repo.ListByCategory(c.Request.Context(), category)
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid category"})
		return
	}

	if err != nil {
		h.logger.Error("Failed to fetch resources", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch resources"})
		return
	}

	c.JSON(http.StatusOK, resources)
}

// CreateResource handles POST /api/resources
func (h *resourceHandler) CreateResource(c *gin.Context) {
	var input models.CreateResourceInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	resource, err := h.repo.Create(c.Request.Context(), &input)
	if err != nil {
		h.logger.Error("Failed to create resource", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create resource"})
		return
	}

	c.JSON(http.StatusCreated, resource)
}
