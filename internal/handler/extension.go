package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"safespace/internal/extension"
	"safespace/internal/repository"
)

type ExtensionHandler interface {
	HandleMessage(c *gin.Context)
}

type extensionHandler struct {
	bridge *extension.Bridge
	logger *zap.Logger
}

func NewExtensionHandler(bridge *extension.Bridge, logger *zap.Logger) ExtensionHandler {
	return &extensionHandler{
		bridge: bridge,
		logger: logger,
	}
}

// HandleMessage handles POST /api/extension/messages
func (h *extensionHandler) HandleMessage(c *gin.Context) {
	var msg extension.Message
	if err := c.ShouldBindJSON(&msg); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	resp, err := h.bridge.Dispatch(c.Request.Context(), msg)
	if err != nil {
		switch {
		case errors.Is(err, extension.ErrUnknownMessage):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown message type"})
		case errors.Is(err, extension.ErrInvalidMessage):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, repository.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Evidence not found"})
		default:
			h.logger.Error("Failed to process extension message", zap.String("type", msg.Type), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to process message"})
		}
		return
	}

	c.JSON(http.StatusOK, resp)
}
