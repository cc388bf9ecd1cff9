package server

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/josephsmithvaz777-svg/app-netcodigo-monitor/internal/store"
	"github.com/josephsmithvaz777-svg/app-netcodigo-monitor/pkg/models"
)

type CodeHandler struct {
	store  store.Store
	logger *slog.Logger
}

func NewCodeHandler(st store.Store, logger *slog.Logger) *CodeHandler {
	return &CodeHandler{
		store:  st,
		logger: logger.With("component", "codes_api"),
	}
}

// List handles GET /api/codes, newest first
func (h *CodeHandler) List(c *gin.Context) {
	results, err := h.store.List(c.Request.Context())
	if err != nil {
		h.logger.Error("failed to list results", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list codes"})
		return
	}
	if results == nil {
		results = []*models.ExtractionResult{}
	}

	c.JSON(http.StatusOK, results)
}
