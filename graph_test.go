package mindflow

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mindflow-live/mindflow/pkg/types"
)

func sessionFixture(store *stubStore, sessionID string) {
	created := time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC)
	validAt := time.Date(2026, 8, 1, 9, 5, 0, 0, time.UTC)
	store.nodes[sessionID] = []*types.Node{
		{Uuid: "n1", Name: "Alice", GroupID: sessionID, CreatedAt: created, Labels: []string{"Entity", "Person"}, Summary: "A speaker"},
		{Uuid: "n2", Name: "Acme", GroupID: sessionID, Labels: []string{"Entity", "Organization"}},
		{Uuid: "n3", Name: "Budget", GroupID: sessionID, Labels: []string{"Entity"}},
	}
	store.edges[sessionID] = []*types.Edge{
		{Uuid: "e1", SourceNodeID: "n1", TargetNodeID: "n2", GroupID: sessionID, Name: "WORKS_AT", Fact: "Alice works at Acme.", ValidAt: &validAt},
		{Uuid: "e2", SourceNodeID: "n1", TargetNodeID: "n3", GroupID: sessionID, Fact: "Alice discussed the budget."},
	}
}

func TestMaterializeGraph(t *testing.T) {
	store := newStubStore()
	sessionFixture(store, "s1")
	s := newTestService(store, &stubEngine{})

	graph, err := s.MaterializeGraph(context.Background(), "s1")
	require.NoError(t, err)

	require.Len(t, graph.Entities, 3)
	byID := map[string]GraphEntity{}
	for _, entity := range graph.Entities {
		byID[entity.ID] = entity
	}

	assert.Equal(t, "person", byID["n1"].Type)
	assert.Equal(t, "organization", byID["n2"].Type)
	assert.Equal(t, "topic", byID["n3"].Type)

	assert.Equal(t, 2, byID["n1"].Degree)
	assert.Equal(t, 1, byID["n2"].Degree)
	assert.Equal(t, 1, byID["n3"].Degree)

	assert.Equal(t, "2026-08-01T09:00:00Z", byID["n1"].CreatedAt)
	assert.Equal(t, "", byID["n2"].CreatedAt)

	require.Len(t, graph.Relationships, 2)
	rel := map[string]GraphRelationship{}
	for _, r := range graph.Relationships {
		rel[r.ID] = r
	}
	assert.Equal(t, "WORKS_AT", rel["e1"].Type)
	assert.Equal(t, "related_to", rel["e2"].Type)
	require.NotNil(t, rel["e1"].ValidAt)
	assert.Equal(t, "2026-08-01T09:05:00Z", *rel["e1"].ValidAt)
	assert.Nil(t, rel["e1"].InvalidAt)
	assert.Nil(t, rel["e2"].ValidAt)

	assert.Equal(t, "s1", graph.Metadata.SessionID)
	assert.Equal(t, 3, graph.Metadata.EntityCount)
	assert.Equal(t, 2, graph.Metadata.RelationshipCount)
	assert.Equal(t, "2026-08-15T10:30:00Z", graph.Metadata.LastUpdated)
}

func TestMaterializeGraphEmptySession(t *testing.T) {
	s := newTestService(newStubStore(), &stubEngine{})

	graph, err := s.MaterializeGraph(context.Background(), "empty")
	require.NoError(t, err)
	assert.Empty(t, graph.Entities)
	assert.Empty(t, graph.Relationships)
	assert.Equal(t, 0, graph.Metadata.EntityCount)
}

func TestMaterializeGraphSessionIsolation(t *testing.T) {
	store := newStubStore()
	sessionFixture(store, "s1")
	s := newTestService(store, &stubEngine{})

	graph, err := s.MaterializeGraph(context.Background(), "s2")
	require.NoError(t, err)
	assert.Empty(t, graph.Entities)
	assert.Empty(t, graph.Relationships)
}

func TestMaterializeGraphDegradesOnFetchFailure(t *testing.T) {
	stored := newStubStore()
	sessionFixture(stored, "s1")
	stored.nodesErr = fmt.Errorf("node query timeout")
	s := newTestService(stored, &stubEngine{})

	graph, err := s.MaterializeGraph(context.Background(), "s1")
	require.NoError(t, err)
	assert.Empty(t, graph.Entities)
	// Edges survive independently; their dangling endpoints are logged,
	// not dropped.
	assert.Len(t, graph.Relationships, 2)
}

func TestMaterializeGraphStoreUnavailable(t *testing.T) {
	s := newTestService(nil, &stubEngine{})

	_, err := s.MaterializeGraph(context.Background(), "s1")
	require.Error(t, err)
	assert.False(t, IsClientError(err))
}

func TestMaterializeGraphDegreeRecomputed(t *testing.T) {
	store := newStubStore()
	sessionFixture(store, "s1")
	s := newTestService(store, &stubEngine{})

	first, err := s.MaterializeGraph(context.Background(), "s1")
	require.NoError(t, err)

	store.edges["s1"] = store.edges["s1"][:1]
	second, err := s.MaterializeGraph(context.Background(), "s1")
	require.NoError(t, err)

	degreeOf := func(g *KnowledgeGraph, id string) int {
		for _, entity := range g.Entities {
			if entity.ID == id {
				return entity.Degree
			}
		}
		return -1
	}
	assert.Equal(t, 2, degreeOf(first, "n1"))
	assert.Equal(t, 1, degreeOf(second, "n1"))
}

func TestInferEntityType(t *testing.T) {
	tests := []struct {
		labels []string
		want   string
	}{
		{[]string{"Entity", "Person"}, "person"},
		{[]string{"Entity"}, "topic"},
		{[]string{"Node", "entitynode"}, "topic"},
		{nil, "topic"},
		{[]string{"Organization"}, "organization"},
		{[]string{"entity", "Node", "Place"}, "place"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, inferEntityType(tt.labels), "%v", tt.labels)
	}
}
