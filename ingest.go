package mindflow

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mindflow-live/mindflow/pkg/types"
)

// sourceDescription tags every episode with where the text came from.
const sourceDescription = "Live speech transcript from MindFlow"

// IngestParams carries one ingestion request. Credentials are request-scoped
// and never persisted.
type IngestParams struct {
	SessionID   string
	Text        string
	Provider    string
	LLMKey      string
	EmbedderKey string
	Timestamp   string
}

// IngestResult reports what one episode added plus the full session graph
// after the write.
type IngestResult struct {
	EntitiesAdded      int             `json:"entities_added"`
	RelationshipsAdded int             `json:"relationships_added"`
	Graph              *KnowledgeGraph `json:"graph"`
}

// Ingest runs one episode of text through the extraction engine and returns
// the refreshed session graph. The returned counts come from the engine's
// result, never from diffing graph states.
func (s *Service) Ingest(ctx context.Context, params IngestParams) (*IngestResult, error) {
	if strings.TrimSpace(params.SessionID) == "" {
		return nil, NewClientError("session_id is required", nil)
	}
	if strings.TrimSpace(params.Text) == "" {
		return nil, NewClientError("text must not be empty", nil)
	}

	engine, err := s.buildEngine(ctx, params.Provider, params.LLMKey, params.EmbedderKey)
	if err != nil {
		return nil, err
	}
	defer engine.Close()

	s.indices.ensure(ctx, engine)

	reference := s.parseReferenceTime(params.Timestamp)
	episode := types.Episode{
		Name:              fmt.Sprintf("%s_%d", params.SessionID, reference.Unix()),
		Content:           params.Text,
		SourceDescription: sourceDescription,
		Reference:         reference,
		GroupID:           params.SessionID,
	}

	results, err := engine.AddEpisode(ctx, episode)
	if err != nil {
		return nil, fmt.Errorf("extraction failed: %w", err)
	}

	graph, err := s.MaterializeGraph(ctx, params.SessionID)
	if err != nil {
		return nil, fmt.Errorf("graph materialization failed: %w", err)
	}

	result := &IngestResult{Graph: graph}
	if results != nil {
		result.EntitiesAdded = len(results.Nodes)
		result.RelationshipsAdded = len(results.Edges)
	}
	return result, nil
}

// parseReferenceTime parses the caller's timestamp leniently. An empty or
// unparseable value falls back to the current UTC time rather than failing
// the request.
func (s *Service) parseReferenceTime(timestamp string) time.Time {
	if timestamp == "" {
		return s.now().UTC()
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05", "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, timestamp); err == nil {
			return t.UTC()
		}
	}
	s.logger.Warn("unparseable timestamp, using current time", "timestamp", timestamp)
	return s.now().UTC()
}
