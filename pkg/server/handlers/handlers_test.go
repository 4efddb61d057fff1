package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mindflow-live/mindflow"
)

type stubCoordinator struct {
	ingestResult  *mindflow.IngestResult
	ingestErr     error
	ingestParams  mindflow.IngestParams
	searchResults []mindflow.SearchResult
	searchErr     error
	graph         *mindflow.KnowledgeGraph
	graphErr      error
	graphSession  string
	healthy       bool
}

func (s *stubCoordinator) Ingest(ctx context.Context, params mindflow.IngestParams) (*mindflow.IngestResult, error) {
	s.ingestParams = params
	return s.ingestResult, s.ingestErr
}

func (s *stubCoordinator) Search(ctx context.Context, params mindflow.SearchParams) ([]mindflow.SearchResult, error) {
	return s.searchResults, s.searchErr
}

func (s *stubCoordinator) MaterializeGraph(ctx context.Context, sessionID string) (*mindflow.KnowledgeGraph, error) {
	s.graphSession = sessionID
	return s.graph, s.graphErr
}

func (s *stubCoordinator) Ping(ctx context.Context) bool { return s.healthy }

func testRouter(service Coordinator) *gin.Engine {
	gin.SetMode(gin.TestMode)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	router := gin.New()
	router.GET("/api/health", NewHealthHandler(service).HealthCheck)
	router.POST("/api/ingest", NewIngestHandler(service, logger).Ingest)
	router.GET("/api/graph", NewGraphHandler(service, logger).GetGraph)
	router.POST("/api/search", NewSearchHandler(service, logger).Search)
	return router
}

func postJSON(t *testing.T, router *gin.Engine, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestHealthCheck(t *testing.T) {
	router := testRouter(&stubCoordinator{healthy: true})

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok","graph_db":true}`, w.Body.String())
}

func TestHealthCheckStoreDown(t *testing.T) {
	router := testRouter(&stubCoordinator{healthy: false})

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok","graph_db":false}`, w.Body.String())
}

func TestIngestHandler(t *testing.T) {
	service := &stubCoordinator{
		ingestResult: &mindflow.IngestResult{
			EntitiesAdded:      2,
			RelationshipsAdded: 1,
			Graph:              &mindflow.KnowledgeGraph{Metadata: mindflow.GraphMetadata{SessionID: "s1"}},
		},
	}
	router := testRouter(service)

	w := postJSON(t, router, "/api/ingest", map[string]string{
		"session_id":     "s1",
		"text":           "Alice joined Acme.",
		"llm_provider":   "anthropic",
		"llm_api_key":    "sk-ant",
		"openai_api_key": "sk-embed",
		"timestamp":      "2026-08-15T10:00:00Z",
	})

	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		EntitiesAdded      int             `json:"entities_added"`
		RelationshipsAdded int             `json:"relationships_added"`
		Graph              json.RawMessage `json:"graph"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, 2, body.EntitiesAdded)
	assert.Equal(t, 1, body.RelationshipsAdded)
	assert.NotEmpty(t, body.Graph)

	assert.Equal(t, mindflow.IngestParams{
		SessionID:   "s1",
		Text:        "Alice joined Acme.",
		Provider:    "anthropic",
		LLMKey:      "sk-ant",
		EmbedderKey: "sk-embed",
		Timestamp:   "2026-08-15T10:00:00Z",
	}, service.ingestParams)
}

func TestIngestHandlerValidation(t *testing.T) {
	router := testRouter(&stubCoordinator{})

	tests := []struct {
		name string
		body map[string]string
	}{
		{"empty text", map[string]string{"session_id": "s1", "text": "  ", "llm_api_key": "k"}},
		{"missing key", map[string]string{"session_id": "s1", "text": "hello"}},
		{"missing session", map[string]string{"text": "hello", "llm_api_key": "k"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := postJSON(t, router, "/api/ingest", tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}

func TestIngestHandlerErrorClassification(t *testing.T) {
	t.Run("client error is 400", func(t *testing.T) {
		service := &stubCoordinator{ingestErr: mindflow.NewClientError("no embedding credential available", nil)}
		w := postJSON(t, testRouter(service), "/api/ingest", map[string]string{
			"session_id": "s1", "text": "hello", "llm_api_key": "k",
		})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("server error is 500 with message", func(t *testing.T) {
		service := &stubCoordinator{ingestErr: fmt.Errorf("extraction failed: provider 500")}
		w := postJSON(t, testRouter(service), "/api/ingest", map[string]string{
			"session_id": "s1", "text": "hello", "llm_api_key": "k",
		})
		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Contains(t, w.Body.String(), "extraction failed")
	})
}

func TestGraphHandler(t *testing.T) {
	service := &stubCoordinator{
		graph: &mindflow.KnowledgeGraph{
			Entities:      []mindflow.GraphEntity{{ID: "n1", Name: "Alice", Type: "person"}},
			Relationships: []mindflow.GraphRelationship{},
			Metadata:      mindflow.GraphMetadata{SessionID: "s1", EntityCount: 1},
		},
	}
	router := testRouter(service)

	req := httptest.NewRequest(http.MethodGet, "/api/graph?session_id=s1", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "s1", service.graphSession)

	var graph mindflow.KnowledgeGraph
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &graph))
	require.Len(t, graph.Entities, 1)
	assert.Equal(t, "person", graph.Entities[0].Type)
}

func TestGraphHandlerRequiresSessionID(t *testing.T) {
	router := testRouter(&stubCoordinator{})

	req := httptest.NewRequest(http.MethodGet, "/api/graph", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGraphHandlerStoreFailure(t *testing.T) {
	service := &stubCoordinator{graphErr: fmt.Errorf("failed to connect to graph store")}
	router := testRouter(service)

	req := httptest.NewRequest(http.MethodGet, "/api/graph?session_id=s1", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestSearchHandler(t *testing.T) {
	service := &stubCoordinator{
		searchResults: []mindflow.SearchResult{
			{Fact: "Alice works at Acme.", Source: "n1", Target: "n2"},
		},
	}
	router := testRouter(service)

	w := postJSON(t, router, "/api/search", map[string]string{
		"session_id": "s1", "query": "who works where", "llm_api_key": "k",
	})

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"results":[{"fact":"Alice works at Acme.","source":"n1","target":"n2"}]}`, w.Body.String())
}

func TestSearchHandlerValidation(t *testing.T) {
	router := testRouter(&stubCoordinator{})

	w := postJSON(t, router, "/api/search", map[string]string{
		"session_id": "s1", "query": "   ", "llm_api_key": "k",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = postJSON(t, router, "/api/search", map[string]string{
		"session_id": "s1", "query": "q",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSearchHandlerFailure(t *testing.T) {
	service := &stubCoordinator{searchErr: fmt.Errorf("search failed: vector index unavailable")}
	router := testRouter(service)

	w := postJSON(t, router, "/api/search", map[string]string{
		"session_id": "s1", "query": "q", "llm_api_key": "k",
	})
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}
