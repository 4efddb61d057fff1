package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mindflow-live/mindflow"
	"github.com/mindflow-live/mindflow/pkg/server/dto"
)

// IngestHandler handles transcript ingestion requests
type IngestHandler struct {
	service Coordinator
	logger  *slog.Logger
}

// NewIngestHandler creates a new ingest handler
func NewIngestHandler(service Coordinator, logger *slog.Logger) *IngestHandler {
	return &IngestHandler{service: service, logger: logger}
}

// Ingest handles POST /api/ingest
func (h *IngestHandler) Ingest(c *gin.Context) {
	var req dto.IngestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: err.Error()})
		return
	}
	if err := req.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: err.Error()})
		return
	}

	result, err := h.service.Ingest(c.Request.Context(), mindflow.IngestParams{
		SessionID:   req.SessionID,
		Text:        req.Text,
		Provider:    req.LLMProvider,
		LLMKey:      req.LLMAPIKey,
		EmbedderKey: req.OpenAIAPIKey,
		Timestamp:   req.Timestamp,
	})
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, result)
}
