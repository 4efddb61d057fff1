package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mindflow-live/mindflow/pkg/driver"
	"github.com/mindflow-live/mindflow/pkg/types"
)

// AddEpisode runs the full ingestion pipeline for one episode: extract
// entities and relationships with the LLM, resolve entities against the
// group's existing nodes, invalidate superseded edges, embed the new facts,
// and persist everything.
func (c *Client) AddEpisode(ctx context.Context, episode types.Episode) (*types.AddEpisodeResults, error) {
	if err := episode.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidEpisode, err)
	}

	groupDriver := c.driver.WithGroup(episode.GroupID)

	existing, err := groupDriver.GetEntityNodesByGroup(ctx, episode.GroupID)
	if err != nil {
		return nil, fmt.Errorf("failed to load existing nodes: %w", err)
	}
	existingByName := make(map[string]*types.Node, len(existing))
	existingNames := make([]string, 0, len(existing))
	for _, node := range existing {
		existingByName[strings.ToLower(node.Name)] = node
		existingNames = append(existingNames, node.Name)
	}

	payload, err := c.extract(ctx, episode, existingNames)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	newNodes, nodesByName := c.resolveEntities(payload.Entities, existingByName, episode.GroupID, now)
	newEdges := c.buildEdges(payload.edgeList(), nodesByName, episode, now)

	if err := c.invalidateSupersededEdges(ctx, groupDriver, newEdges, episode); err != nil {
		c.logger.Warn("edge invalidation incomplete", "group_id", episode.GroupID, "error", err)
	}

	if err := c.embedFacts(ctx, newEdges); err != nil {
		return nil, err
	}

	if len(newNodes) > 0 {
		if err := groupDriver.UpsertNodes(ctx, newNodes); err != nil {
			return nil, fmt.Errorf("failed to persist nodes: %w", err)
		}
	}
	if len(newEdges) > 0 {
		if err := groupDriver.UpsertEdges(ctx, newEdges); err != nil {
			return nil, fmt.Errorf("failed to persist edges: %w", err)
		}
	}

	c.logger.Info("episode processed",
		"group_id", episode.GroupID,
		"episode", episode.Name,
		"nodes", len(newNodes),
		"edges", len(newEdges))

	return &types.AddEpisodeResults{Nodes: newNodes, Edges: newEdges}, nil
}

func (c *Client) extract(ctx context.Context, episode types.Episode, existingNames []string) (*extractionPayload, error) {
	messages := extractionMessages(episode, existingNames)
	response, err := c.llm.ChatWithStructuredOutput(ctx, messages, json.RawMessage(extractionSchema))
	if err != nil {
		return nil, fmt.Errorf("extraction request failed: %w", err)
	}

	payload, err := parseExtraction(response.Content)
	if err != nil {
		return nil, fmt.Errorf("extraction response invalid: %w", err)
	}
	return payload, nil
}

// resolveEntities matches extracted entities against the group's existing
// nodes by case-insensitive name and mints nodes for the rest. The returned
// map contains both so edge building can reference either.
func (c *Client) resolveEntities(entities []extractedEntity, existingByName map[string]*types.Node, groupID string, now time.Time) ([]*types.Node, map[string]*types.Node) {
	newNodes := make([]*types.Node, 0, len(entities))
	byName := make(map[string]*types.Node, len(existingByName)+len(entities))
	for key, node := range existingByName {
		byName[key] = node
	}

	for _, entity := range entities {
		name := strings.TrimSpace(entity.entityName())
		if name == "" {
			continue
		}
		key := strings.ToLower(name)
		if _, ok := byName[key]; ok {
			continue
		}

		labels := []string{"Entity"}
		if label := strings.TrimSpace(entity.entityLabel()); label != "" {
			labels = append(labels, sanitizeLabel(label))
		}

		node := &types.Node{
			Uuid:      uuid.New().String(),
			Name:      name,
			GroupID:   groupID,
			CreatedAt: now,
			Labels:    labels,
			Summary:   strings.TrimSpace(entity.Summary),
		}
		byName[key] = node
		newNodes = append(newNodes, node)
	}

	return newNodes, byName
}

// buildEdges turns extracted relationships into edges between resolved nodes.
// Relationships naming an unknown entity are dropped with a warning rather
// than failing the episode.
func (c *Client) buildEdges(edges []extractedEdge, nodesByName map[string]*types.Node, episode types.Episode, now time.Time) []*types.Edge {
	result := make([]*types.Edge, 0, len(edges))
	for _, edge := range edges {
		fact := strings.TrimSpace(edge.Fact)
		if fact == "" {
			continue
		}
		source, ok := nodesByName[strings.ToLower(strings.TrimSpace(edge.sourceName()))]
		if !ok {
			c.logger.Warn("relationship references unknown source entity",
				"group_id", episode.GroupID, "source", edge.sourceName())
			continue
		}
		target, ok := nodesByName[strings.ToLower(strings.TrimSpace(edge.targetName()))]
		if !ok {
			c.logger.Warn("relationship references unknown target entity",
				"group_id", episode.GroupID, "target", edge.targetName())
			continue
		}

		name := strings.TrimSpace(edge.relationName())
		if name == "" {
			name = "RELATES_TO"
		}

		validAt := episode.Reference
		result = append(result, &types.Edge{
			Uuid:         uuid.New().String(),
			SourceNodeID: source.Uuid,
			TargetNodeID: target.Uuid,
			GroupID:      episode.GroupID,
			CreatedAt:    now,
			Name:         normalizeRelationName(name),
			Fact:         fact,
			ValidAt:      &validAt,
		})
	}
	return result
}

// invalidateSupersededEdges closes the validity window of existing edges that
// a new edge replaces: same relationship name between the same node pair, not
// already invalidated. The new fact's reference time becomes invalid_at.
func (c *Client) invalidateSupersededEdges(ctx context.Context, groupDriver driver.GraphDriver, newEdges []*types.Edge, episode types.Episode) error {
	invalidAt := episode.Reference.UTC().Format(time.RFC3339)
	var firstErr error
	for _, edge := range newEdges {
		existing, err := groupDriver.GetEdgesBetween(ctx, edge.SourceNodeID, edge.TargetNodeID, episode.GroupID)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		for _, old := range existing {
			if old.Name != edge.Name || old.InvalidAt != nil {
				continue
			}
			if err := groupDriver.InvalidateEdge(ctx, old.Uuid, episode.GroupID, invalidAt); err != nil && firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

// embedFacts attaches fact embeddings to edges in a single batch call.
func (c *Client) embedFacts(ctx context.Context, edges []*types.Edge) error {
	if len(edges) == 0 {
		return nil
	}
	facts := make([]string, len(edges))
	for i, edge := range edges {
		facts[i] = edge.Fact
	}
	embeddings, err := c.embedder.Embed(ctx, facts)
	if err != nil {
		return fmt.Errorf("failed to embed facts: %w", err)
	}
	if len(embeddings) != len(edges) {
		return fmt.Errorf("embedding count mismatch: got %d for %d facts", len(embeddings), len(edges))
	}
	for i, edge := range edges {
		edge.FactEmbedding = embeddings[i]
	}
	return nil
}

// sanitizeLabel reduces a free-form entity type to a node label: first
// letter-leading token, letters and digits only, capitalized. Cypher labels
// cannot start with a digit, so digit-leading tokens are skipped.
func sanitizeLabel(label string) string {
	fields := strings.FieldsFunc(label, func(r rune) bool {
		return !('a' <= r && r <= 'z' || 'A' <= r && r <= 'Z' || '0' <= r && r <= '9')
	})
	for _, field := range fields {
		if field[0] >= '0' && field[0] <= '9' {
			continue
		}
		word := strings.ToLower(field)
		return strings.ToUpper(word[:1]) + word[1:]
	}
	return "Entity"
}

// normalizeRelationName converts a relationship name to SCREAMING_SNAKE_CASE.
func normalizeRelationName(name string) string {
	fields := strings.FieldsFunc(name, func(r rune) bool {
		return !('a' <= r && r <= 'z' || 'A' <= r && r <= 'Z' || '0' <= r && r <= '9')
	})
	if len(fields) == 0 {
		return "RELATES_TO"
	}
	return strings.ToUpper(strings.Join(fields, "_"))
}
