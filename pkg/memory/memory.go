// Package memory implements the graph-memory engine: turning episodes of raw
// text into entity nodes and temporally-bounded relationship edges, and
// searching the resulting graph semantically. The coordination layer depends
// only on the Engine interface; Client is the production implementation.
package memory

import (
	"context"
	"errors"
	"log/slog"

	"github.com/mindflow-live/mindflow/pkg/crossencoder"
	"github.com/mindflow-live/mindflow/pkg/driver"
	"github.com/mindflow-live/mindflow/pkg/embedder"
	"github.com/mindflow-live/mindflow/pkg/llm"
	"github.com/mindflow-live/mindflow/pkg/types"
)

// ErrInvalidEpisode is returned when an episode fails validation.
var ErrInvalidEpisode = errors.New("invalid episode")

// Engine is the contract the coordination layer consumes. Implementations
// own entity/relationship extraction, embedding generation, temporal edge
// invalidation, and index setup.
type Engine interface {
	// AddEpisode processes one episode of text into the knowledge graph.
	AddEpisode(ctx context.Context, episode types.Episode) (*types.AddEpisodeResults, error)

	// Search returns the edges in a group whose facts best match the query,
	// at most limit of them.
	Search(ctx context.Context, query, groupID string, limit int) ([]*types.Edge, error)

	// BuildIndices creates database indices and constraints. Safe to call
	// repeatedly.
	BuildIndices(ctx context.Context) error

	// Close releases client resources. The shared graph driver is not
	// closed; its lifecycle belongs to the process.
	Close() error
}

// Client is the production Engine implementation.
type Client struct {
	driver   driver.GraphDriver
	llm      llm.Client
	embedder embedder.Client
	reranker crossencoder.Client
	logger   *slog.Logger
}

// NewClient creates an engine instance over the shared graph driver and the
// per-request model clients.
func NewClient(graphDriver driver.GraphDriver, llmClient llm.Client, embedderClient embedder.Client, rerankerClient crossencoder.Client, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		driver:   graphDriver,
		llm:      llmClient,
		embedder: embedderClient,
		reranker: rerankerClient,
		logger:   logger,
	}
}

// BuildIndices creates database indices and constraints.
func (c *Client) BuildIndices(ctx context.Context) error {
	return c.driver.CreateIndices(ctx)
}

// Close releases the model clients. The graph driver is shared process-wide
// and stays open.
func (c *Client) Close() error {
	var firstErr error
	for _, closer := range []interface{ Close() error }{c.llm, c.embedder, c.reranker} {
		if closer == nil {
			continue
		}
		if err := closer.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
