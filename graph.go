package mindflow

import (
	"context"
	"strings"
	"time"
)

// GraphEntity is the client-facing node projection.
type GraphEntity struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Summary   string `json:"summary"`
	Type      string `json:"type"`
	CreatedAt string `json:"created_at"`
	Degree    int    `json:"degree"`
}

// GraphRelationship is the client-facing edge projection. ValidAt and
// InvalidAt are nullable on purpose; an absent node creation time is an empty
// string instead. The two absence conventions differ and clients rely on it.
type GraphRelationship struct {
	ID        string  `json:"id"`
	SourceID  string  `json:"source_id"`
	TargetID  string  `json:"target_id"`
	Fact      string  `json:"fact"`
	Type      string  `json:"type"`
	ValidAt   *string `json:"valid_at"`
	InvalidAt *string `json:"invalid_at"`
}

// GraphMetadata describes one materialization of a session graph.
type GraphMetadata struct {
	SessionID         string `json:"session_id"`
	EntityCount       int    `json:"entity_count"`
	RelationshipCount int    `json:"relationship_count"`
	LastUpdated       string `json:"last_updated"`
}

// KnowledgeGraph is the full session-graph response.
type KnowledgeGraph struct {
	Entities      []GraphEntity       `json:"entities"`
	Relationships []GraphRelationship `json:"relationships"`
	Metadata      GraphMetadata       `json:"metadata"`
}

// genericLabels are label spellings that mean "this is a node" without
// describing what kind. They never become an entity's type.
var genericLabels = map[string]struct{}{
	"entity":     {},
	"node":       {},
	"entitynode": {},
}

// MaterializeGraph reads everything in one session and projects it into the
// client-facing graph. Node and edge fetches degrade independently: a failed
// fetch logs a warning and contributes an empty collection, so callers get a
// partial graph rather than an error. Only an unobtainable store handle fails
// the call.
func (s *Service) MaterializeGraph(ctx context.Context, sessionID string) (*KnowledgeGraph, error) {
	store, err := s.getStore(ctx)
	if err != nil {
		return nil, err
	}
	session := store.WithGroup(sessionID)

	nodes, err := session.GetEntityNodesByGroup(ctx, sessionID)
	if err != nil {
		s.logger.Warn("node fetch failed, materializing without nodes", "session_id", sessionID, "error", err)
		nodes = nil
	}
	edges, err := session.GetEntityEdgesByGroup(ctx, sessionID)
	if err != nil {
		s.logger.Warn("edge fetch failed, materializing without edges", "session_id", sessionID, "error", err)
		edges = nil
	}

	// Degree is recomputed from the current edge set on every call.
	degrees := make(map[string]int, len(nodes))
	for _, edge := range edges {
		degrees[edge.SourceNodeID]++
		degrees[edge.TargetNodeID]++
	}

	entities := make([]GraphEntity, 0, len(nodes))
	nodeIDs := make(map[string]struct{}, len(nodes))
	for _, node := range nodes {
		nodeIDs[node.Uuid] = struct{}{}
		entities = append(entities, GraphEntity{
			ID:        node.Uuid,
			Name:      node.Name,
			Summary:   node.Summary,
			Type:      inferEntityType(node.Labels),
			CreatedAt: formatNodeTime(node.CreatedAt),
			Degree:    degrees[node.Uuid],
		})
	}

	relationships := make([]GraphRelationship, 0, len(edges))
	for _, edge := range edges {
		if _, ok := nodeIDs[edge.SourceNodeID]; !ok {
			s.logger.Warn("edge references missing source entity", "session_id", sessionID, "edge_id", edge.Uuid, "source_id", edge.SourceNodeID)
		}
		if _, ok := nodeIDs[edge.TargetNodeID]; !ok {
			s.logger.Warn("edge references missing target entity", "session_id", sessionID, "edge_id", edge.Uuid, "target_id", edge.TargetNodeID)
		}
		edgeType := edge.Name
		if edgeType == "" {
			edgeType = "related_to"
		}
		relationships = append(relationships, GraphRelationship{
			ID:        edge.Uuid,
			SourceID:  edge.SourceNodeID,
			TargetID:  edge.TargetNodeID,
			Fact:      edge.Fact,
			Type:      edgeType,
			ValidAt:   formatEdgeTime(edge.ValidAt),
			InvalidAt: formatEdgeTime(edge.InvalidAt),
		})
	}

	return &KnowledgeGraph{
		Entities:      entities,
		Relationships: relationships,
		Metadata: GraphMetadata{
			SessionID:         sessionID,
			EntityCount:       len(entities),
			RelationshipCount: len(relationships),
			LastUpdated:       s.now().UTC().Format(time.RFC3339),
		},
	}, nil
}

// inferEntityType derives the display type from a node's labels: the first
// label that is not a generic entity marker, lower-cased, or "topic" when
// only generic labels are present.
func inferEntityType(labels []string) string {
	for _, label := range labels {
		lower := strings.ToLower(label)
		if _, generic := genericLabels[lower]; !generic && lower != "" {
			return lower
		}
	}
	return "topic"
}

func formatNodeTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func formatEdgeTime(t *time.Time) *string {
	if t == nil {
		return nil
	}
	formatted := t.UTC().Format(time.RFC3339)
	return &formatted
}
