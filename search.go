package mindflow

import (
	"context"
	"fmt"
	"strings"
)

// maxSearchResults is a hard cap on returned facts, trading completeness for
// response latency. It is not a default that grows with demand.
const maxSearchResults = 20

// SearchParams carries one search request.
type SearchParams struct {
	SessionID   string
	Query       string
	Provider    string
	LLMKey      string
	EmbedderKey string
}

// SearchResult is one matched fact with its endpoint node ids. Search answers
// "what facts match", so no degree, type, or temporal fields appear here.
type SearchResult struct {
	Fact   string `json:"fact"`
	Source string `json:"source"`
	Target string `json:"target"`
}

// Search finds the facts in one session most relevant to a query. Unlike
// materialization there is no partial-result degradation: a failed search
// fails the whole call, since a silently truncated result set is misleading.
func (s *Service) Search(ctx context.Context, params SearchParams) ([]SearchResult, error) {
	if strings.TrimSpace(params.SessionID) == "" {
		return nil, NewClientError("session_id is required", nil)
	}
	if strings.TrimSpace(params.Query) == "" {
		return nil, NewClientError("query must not be empty", nil)
	}

	engine, err := s.buildEngine(ctx, params.Provider, params.LLMKey, params.EmbedderKey)
	if err != nil {
		return nil, err
	}
	defer engine.Close()

	edges, err := engine.Search(ctx, params.Query, params.SessionID, maxSearchResults)
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}
	// The engine is asked for at most the cap, but the cap holds even if an
	// engine returns more.
	if len(edges) > maxSearchResults {
		edges = edges[:maxSearchResults]
	}

	results := make([]SearchResult, 0, len(edges))
	for _, edge := range edges {
		results = append(results, SearchResult{
			Fact:   edge.Fact,
			Source: edge.SourceNodeID,
			Target: edge.TargetNodeID,
		})
	}
	return results, nil
}
