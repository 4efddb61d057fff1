package mindflow

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIndexManagerBuildsOnce(t *testing.T) {
	m := &indexManager{logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	engine := &stubEngine{}

	m.ensure(context.Background(), engine)
	m.ensure(context.Background(), engine)
	m.ensure(context.Background(), engine)

	assert.Equal(t, 1, engine.indicesCalls)
	assert.True(t, m.built)
}

func TestIndexManagerRetriesAfterFailure(t *testing.T) {
	m := &indexManager{logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	engine := &stubEngine{indicesErr: fmt.Errorf("store not ready")}

	m.ensure(context.Background(), engine)
	assert.False(t, m.built)

	engine.indicesErr = nil
	m.ensure(context.Background(), engine)
	assert.True(t, m.built)
	assert.Equal(t, 2, engine.indicesCalls)
}

func TestStartBuildsIndicesWithFallbackKey(t *testing.T) {
	engine := &stubEngine{}
	s := newTestService(newStubStore(), engine)

	s.Start(context.Background())
	assert.Equal(t, 1, engine.indicesCalls)
}

func TestStartSkipsWithoutFallbackKey(t *testing.T) {
	engine := &stubEngine{}
	s := newTestService(newStubStore(), engine)
	s.fallbackEmbedderKey = ""

	s.Start(context.Background())
	assert.Equal(t, 0, engine.indicesCalls)
}

func TestStartSurvivesStoreFailure(t *testing.T) {
	engine := &stubEngine{}
	s := newTestService(nil, engine)

	// Must not panic or fail boot.
	s.Start(context.Background())
	assert.Equal(t, 0, engine.indicesCalls)
}
