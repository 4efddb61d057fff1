package mindflow

import (
	"context"
	"log/slog"

	"github.com/mindflow-live/mindflow/pkg/memory"
)

// indexManager tracks whether the database indices have been built this
// process lifetime. The flag is deliberately unguarded: concurrent first
// requests may both run the build, which is harmless because the DDL is
// idempotent, and a lock here would serialize every request forever after.
type indexManager struct {
	built  bool
	logger *slog.Logger
}

// ensure builds the indices once. A failed build logs a warning and leaves
// the flag unset so a later request retries; it never fails the caller.
func (m *indexManager) ensure(ctx context.Context, engine memory.Engine) {
	if m.built {
		return
	}
	if err := engine.BuildIndices(ctx); err != nil {
		m.logger.Warn("index build failed, will retry on a later request", "error", err)
		return
	}
	m.built = true
	m.logger.Info("graph indices ready")
}
