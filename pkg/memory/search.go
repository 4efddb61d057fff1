package memory

import (
	"context"
	"fmt"

	"github.com/mindflow-live/mindflow/pkg/types"
)

// candidateMultiplier widens the vector-similarity candidate set so the
// reranker has room to reorder before truncation.
const candidateMultiplier = 3

// Search embeds the query, retrieves the closest edges by fact embedding,
// reranks them with the cross-encoder, and returns the top limit edges.
func (c *Client) Search(ctx context.Context, query, groupID string, limit int) ([]*types.Edge, error) {
	if query == "" {
		return nil, fmt.Errorf("query must not be empty")
	}
	if groupID == "" {
		return nil, types.ErrEmptyGroupID
	}
	if limit <= 0 {
		return []*types.Edge{}, nil
	}

	queryEmbedding, err := c.embedder.EmbedSingle(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	candidates, err := c.driver.SearchEdgesByEmbedding(ctx, queryEmbedding, groupID, limit*candidateMultiplier)
	if err != nil {
		return nil, fmt.Errorf("edge search failed: %w", err)
	}
	if len(candidates) == 0 {
		return []*types.Edge{}, nil
	}

	reranked, err := c.rerank(ctx, query, candidates)
	if err != nil {
		c.logger.Warn("reranking failed, keeping similarity order", "group_id", groupID, "error", err)
		reranked = candidates
	}

	if len(reranked) > limit {
		reranked = reranked[:limit]
	}
	return reranked, nil
}

// rerank orders candidate edges by cross-encoder relevance of their facts.
// Edges sharing an identical fact keep their similarity order.
func (c *Client) rerank(ctx context.Context, query string, candidates []*types.Edge) ([]*types.Edge, error) {
	facts := make([]string, len(candidates))
	byFact := make(map[string][]*types.Edge, len(candidates))
	for i, edge := range candidates {
		facts[i] = edge.Fact
		byFact[edge.Fact] = append(byFact[edge.Fact], edge)
	}

	ranked, err := c.reranker.Rank(ctx, query, facts)
	if err != nil {
		return nil, err
	}

	ordered := make([]*types.Edge, 0, len(candidates))
	for _, passage := range ranked {
		edges := byFact[passage.Passage]
		if len(edges) == 0 {
			continue
		}
		ordered = append(ordered, edges[0])
		byFact[passage.Passage] = edges[1:]
	}
	return ordered, nil
}
