package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mindflow-live/mindflow/pkg/server/dto"
)

// HealthHandler reports liveness plus store reachability.
type HealthHandler struct {
	service Coordinator
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(service Coordinator) *HealthHandler {
	return &HealthHandler{service: service}
}

// HealthCheck handles GET /api/health
func (h *HealthHandler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, dto.HealthResponse{
		Status:  "ok",
		GraphDB: h.service.Ping(c.Request.Context()),
	})
}
