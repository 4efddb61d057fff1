package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mindflow-live/mindflow"
	"github.com/mindflow-live/mindflow/pkg/server/dto"
)

// SearchHandler handles fact search requests
type SearchHandler struct {
	service Coordinator
	logger  *slog.Logger
}

// NewSearchHandler creates a new search handler
func NewSearchHandler(service Coordinator, logger *slog.Logger) *SearchHandler {
	return &SearchHandler{service: service, logger: logger}
}

// Search handles POST /api/search
func (h *SearchHandler) Search(c *gin.Context) {
	var req dto.SearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: err.Error()})
		return
	}
	if err := req.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: err.Error()})
		return
	}

	results, err := h.service.Search(c.Request.Context(), mindflow.SearchParams{
		SessionID:   req.SessionID,
		Query:       req.Query,
		Provider:    req.LLMProvider,
		LLMKey:      req.LLMAPIKey,
		EmbedderKey: req.OpenAIAPIKey,
	})
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, dto.SearchResponse{Results: results})
}
