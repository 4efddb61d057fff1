package mindflow

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/mindflow-live/mindflow/pkg/config"
	"github.com/mindflow-live/mindflow/pkg/crossencoder"
	"github.com/mindflow-live/mindflow/pkg/driver"
	"github.com/mindflow-live/mindflow/pkg/embedder"
	"github.com/mindflow-live/mindflow/pkg/llm"
	"github.com/mindflow-live/mindflow/pkg/memory"
	"github.com/mindflow-live/mindflow/pkg/types"
)

// stubStore implements driver.GraphDriver for coordination tests.
type stubStore struct {
	group    string
	nodes    map[string][]*types.Node
	edges    map[string][]*types.Edge
	nodesErr error
	edgesErr error
	pingErr  error
}

func newStubStore() *stubStore {
	return &stubStore{
		nodes: map[string][]*types.Node{},
		edges: map[string][]*types.Edge{},
	}
}

func (s *stubStore) WithGroup(groupID string) driver.GraphDriver {
	clone := *s
	clone.group = groupID
	return &clone
}

func (s *stubStore) Group() string { return s.group }

func (s *stubStore) GetEntityNodesByGroup(ctx context.Context, groupID string) ([]*types.Node, error) {
	if s.nodesErr != nil {
		return nil, s.nodesErr
	}
	return s.nodes[groupID], nil
}

func (s *stubStore) GetEntityEdgesByGroup(ctx context.Context, groupID string) ([]*types.Edge, error) {
	if s.edgesErr != nil {
		return nil, s.edgesErr
	}
	return s.edges[groupID], nil
}

func (s *stubStore) GetEdgesBetween(ctx context.Context, sourceID, targetID, groupID string) ([]*types.Edge, error) {
	return nil, nil
}

func (s *stubStore) UpsertNodes(ctx context.Context, nodes []*types.Node) error { return nil }
func (s *stubStore) UpsertEdges(ctx context.Context, edges []*types.Edge) error { return nil }

func (s *stubStore) InvalidateEdge(ctx context.Context, edgeID, groupID, invalidAt string) error {
	return nil
}

func (s *stubStore) SearchEdgesByEmbedding(ctx context.Context, embedding []float32, groupID string, limit int) ([]*types.Edge, error) {
	return nil, nil
}

func (s *stubStore) CreateIndices(ctx context.Context) error { return nil }
func (s *stubStore) Ping(ctx context.Context) error          { return s.pingErr }
func (s *stubStore) Close() error                            { return nil }

// stubEngine implements memory.Engine with scripted results.
type stubEngine struct {
	addResults   *types.AddEpisodeResults
	addErr       error
	lastEpisode  types.Episode
	searchEdges  []*types.Edge
	searchErr    error
	searchLimit  int
	searchGroup  string
	indicesCalls int
	indicesErr   error
	closed       bool
}

func (e *stubEngine) AddEpisode(ctx context.Context, episode types.Episode) (*types.AddEpisodeResults, error) {
	e.lastEpisode = episode
	return e.addResults, e.addErr
}

func (e *stubEngine) Search(ctx context.Context, query, groupID string, limit int) ([]*types.Edge, error) {
	e.searchGroup = groupID
	e.searchLimit = limit
	return e.searchEdges, e.searchErr
}

func (e *stubEngine) BuildIndices(ctx context.Context) error {
	e.indicesCalls++
	return e.indicesErr
}

func (e *stubEngine) Close() error {
	e.closed = true
	return nil
}

var fixedNow = time.Date(2026, 8, 15, 10, 30, 0, 0, time.UTC)

// newTestService wires a Service around the given stubs.
func newTestService(store *stubStore, engine *stubEngine) *Service {
	cfg := &config.Config{
		Embedder:       config.EmbedderConfig{APIKey: "sk-server-fallback"},
		CircuitBreaker: config.CircuitBreakerConfig{Enabled: false},
	}
	s := NewService(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	s.now = func() time.Time { return fixedNow }
	s.openStore = func(ctx context.Context) (driver.GraphDriver, error) {
		if store == nil {
			return nil, fmt.Errorf("store unavailable")
		}
		return store, nil
	}
	s.newEngine = func(d driver.GraphDriver, l llm.Client, e embedder.Client, r crossencoder.Client, log *slog.Logger) memory.Engine {
		return engine
	}
	return s
}
