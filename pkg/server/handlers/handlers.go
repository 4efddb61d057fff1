// Package handlers contains the gin handlers for the HTTP API.
package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mindflow-live/mindflow"
	"github.com/mindflow-live/mindflow/pkg/server/dto"
)

// Coordinator is the slice of the coordination service the handlers consume.
type Coordinator interface {
	Ingest(ctx context.Context, params mindflow.IngestParams) (*mindflow.IngestResult, error)
	Search(ctx context.Context, params mindflow.SearchParams) ([]mindflow.SearchResult, error)
	MaterializeGraph(ctx context.Context, sessionID string) (*mindflow.KnowledgeGraph, error)
	Ping(ctx context.Context) bool
}

// writeError classifies an error and writes the uniform error body: caller
// faults get a 400, everything else a 500 with the underlying message.
func writeError(c *gin.Context, logger *slog.Logger, err error) {
	status := http.StatusInternalServerError
	if mindflow.IsClientError(err) {
		status = http.StatusBadRequest
	} else {
		logger.Error("request failed", "path", c.FullPath(), "error", err)
	}
	c.JSON(status, dto.ErrorResponse{Error: err.Error()})
}
