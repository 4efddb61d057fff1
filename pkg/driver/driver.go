package driver

import (
	"context"

	"github.com/mindflow-live/mindflow/pkg/types"
)

// GraphDriver defines the graph database operations this service relies on.
// Read paths are always scoped by group (one group per session); write paths
// are used exclusively by the extraction engine.
type GraphDriver interface {
	// WithGroup derives a cheap handle bound to a single group. The derived
	// handle shares the underlying connection pool but never transaction
	// state, so concurrent sessions stay isolated.
	WithGroup(groupID string) GraphDriver

	// Group returns the group this handle is bound to, or "" for the root
	// handle.
	Group() string

	// GetEntityNodesByGroup retrieves all entity nodes for a group.
	GetEntityNodesByGroup(ctx context.Context, groupID string) ([]*types.Node, error)

	// GetEntityEdgesByGroup retrieves all entity edges for a group.
	GetEntityEdgesByGroup(ctx context.Context, groupID string) ([]*types.Edge, error)

	// GetEdgesBetween retrieves edges connecting two specific nodes within
	// a group, in either direction.
	GetEdgesBetween(ctx context.Context, sourceID, targetID, groupID string) ([]*types.Edge, error)

	// UpsertNodes creates or updates nodes in bulk.
	UpsertNodes(ctx context.Context, nodes []*types.Node) error

	// UpsertEdges creates or updates edges in bulk.
	UpsertEdges(ctx context.Context, edges []*types.Edge) error

	// InvalidateEdge closes an edge's temporal validity by setting its
	// invalid_at property.
	InvalidateEdge(ctx context.Context, edgeID, groupID string, invalidAt string) error

	// SearchEdgesByEmbedding returns the edges in a group whose fact
	// embeddings are most similar to the given vector.
	SearchEdgesByEmbedding(ctx context.Context, embedding []float32, groupID string, limit int) ([]*types.Edge, error)

	// CreateIndices creates database indices and constraints. The DDL is
	// idempotent, so repeated calls are safe.
	CreateIndices(ctx context.Context) error

	// Ping verifies connectivity to the database.
	Ping(ctx context.Context) error

	// Close releases all resources held by the driver.
	Close() error
}
