package dto

import "github.com/mindflow-live/mindflow"

// HealthResponse reports process and store health.
type HealthResponse struct {
	Status  string `json:"status"`
	GraphDB bool   `json:"graph_db"`
}

// SearchResponse wraps search hits.
type SearchResponse struct {
	Results []mindflow.SearchResult `json:"results"`
}

// ErrorResponse is the uniform error body.
type ErrorResponse struct {
	Error string `json:"error"`
}
