package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mindflow-live/mindflow/pkg/server/dto"
)

// GraphHandler serves session-graph reads. No API key is needed here; the
// graph is materialized straight from the store.
type GraphHandler struct {
	service Coordinator
	logger  *slog.Logger
}

// NewGraphHandler creates a new graph handler
func NewGraphHandler(service Coordinator, logger *slog.Logger) *GraphHandler {
	return &GraphHandler{service: service, logger: logger}
}

// GetGraph handles GET /api/graph?session_id=...
func (h *GraphHandler) GetGraph(c *gin.Context) {
	sessionID := c.Query("session_id")
	if sessionID == "" {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: dto.ErrEmptySessionID.Error()})
		return
	}

	graph, err := h.service.MaterializeGraph(c.Request.Context(), sessionID)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, graph)
}
