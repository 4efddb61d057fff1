package mindflow

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mindflow-live/mindflow/pkg/types"
)

func searchParams() SearchParams {
	return SearchParams{
		SessionID: "s1",
		Query:     "who works where",
		Provider:  "openai",
		LLMKey:    "sk-llm",
	}
}

func TestServiceSearch(t *testing.T) {
	engine := &stubEngine{
		searchEdges: []*types.Edge{
			{Uuid: "e1", SourceNodeID: "n1", TargetNodeID: "n2", Fact: "Alice works at Acme."},
			{Uuid: "e2", SourceNodeID: "n1", TargetNodeID: "n3"},
		},
	}
	s := newTestService(newStubStore(), engine)

	results, err := s.Search(context.Background(), searchParams())
	require.NoError(t, err)

	require.Len(t, results, 2)
	assert.Equal(t, SearchResult{Fact: "Alice works at Acme.", Source: "n1", Target: "n2"}, results[0])
	// Missing facts project to empty strings, never dropped rows.
	assert.Equal(t, SearchResult{Fact: "", Source: "n1", Target: "n3"}, results[1])

	assert.Equal(t, "s1", engine.searchGroup)
	assert.Equal(t, maxSearchResults, engine.searchLimit)
	assert.True(t, engine.closed)
}

func TestServiceSearchCapsOverReturningEngine(t *testing.T) {
	edges := make([]*types.Edge, maxSearchResults+5)
	for i := range edges {
		edges[i] = &types.Edge{Uuid: fmt.Sprintf("e%d", i), SourceNodeID: "n1", TargetNodeID: "n2"}
	}
	engine := &stubEngine{searchEdges: edges}
	s := newTestService(newStubStore(), engine)

	results, err := s.Search(context.Background(), searchParams())
	require.NoError(t, err)
	assert.Len(t, results, maxSearchResults)
}

func TestServiceSearchValidation(t *testing.T) {
	s := newTestService(newStubStore(), &stubEngine{})

	params := searchParams()
	params.Query = "  "
	_, err := s.Search(context.Background(), params)
	require.Error(t, err)
	assert.True(t, IsClientError(err))

	params = searchParams()
	params.SessionID = ""
	_, err = s.Search(context.Background(), params)
	require.Error(t, err)
	assert.True(t, IsClientError(err))

	params = searchParams()
	params.LLMKey = ""
	_, err = s.Search(context.Background(), params)
	require.Error(t, err)
	assert.True(t, IsClientError(err))
}

func TestServiceSearchFailureIsServerError(t *testing.T) {
	engine := &stubEngine{searchErr: fmt.Errorf("vector index unavailable")}
	s := newTestService(newStubStore(), engine)

	_, err := s.Search(context.Background(), searchParams())
	require.Error(t, err)
	assert.False(t, IsClientError(err))
	assert.Contains(t, err.Error(), "search failed")
}

func TestServiceSearchEmptyResults(t *testing.T) {
	s := newTestService(newStubStore(), &stubEngine{})

	results, err := s.Search(context.Background(), searchParams())
	require.NoError(t, err)
	assert.NotNil(t, results)
	assert.Empty(t, results)
}
