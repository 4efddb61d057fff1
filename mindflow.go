package mindflow

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/sony/gobreaker"

	"github.com/mindflow-live/mindflow/pkg/config"
	"github.com/mindflow-live/mindflow/pkg/crossencoder"
	"github.com/mindflow-live/mindflow/pkg/driver"
	"github.com/mindflow-live/mindflow/pkg/embedder"
	"github.com/mindflow-live/mindflow/pkg/llm"
	"github.com/mindflow-live/mindflow/pkg/memory"
)

// Service coordinates caller credentials, the shared graph store, and the
// extraction engine. One Service serves the whole process; engines are built
// per request because every request brings its own credentials.
type Service struct {
	logger *slog.Logger

	fallbackEmbedderKey string
	embedderModel       string

	// breakers holds one circuit breaker per provider, shared by every
	// per-request client so failure counts accumulate across requests.
	// Nil when circuit breaking is disabled.
	breakers map[Provider]*gobreaker.CircuitBreaker

	indices *indexManager
	now     func() time.Time

	mu        sync.Mutex
	store     driver.GraphDriver
	openStore func(ctx context.Context) (driver.GraphDriver, error)

	newEngine func(d driver.GraphDriver, l llm.Client, e embedder.Client, r crossencoder.Client, log *slog.Logger) memory.Engine
}

// NewService creates the process-wide coordination service.
func NewService(cfg *config.Config, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	dbCfg := cfg.Database

	var breakers map[Provider]*gobreaker.CircuitBreaker
	if cfg.CircuitBreaker.Enabled {
		settings := llm.BreakerSettings{
			MaxRequests:      cfg.CircuitBreaker.MaxRequests,
			Interval:         time.Duration(cfg.CircuitBreaker.Interval) * time.Second,
			Timeout:          time.Duration(cfg.CircuitBreaker.Timeout) * time.Second,
			ReadyToTripRatio: cfg.CircuitBreaker.ReadyToTripRatio,
		}
		breakers = make(map[Provider]*gobreaker.CircuitBreaker, len(llmFactories))
		for provider := range llmFactories {
			breakers[provider] = llm.NewBreaker(string(provider), settings)
		}
	}

	return &Service{
		logger:              logger,
		fallbackEmbedderKey: cfg.Embedder.APIKey,
		embedderModel:       cfg.Embedder.Model,
		breakers:            breakers,
		indices:             &indexManager{logger: logger},
		now:                 time.Now,
		openStore: func(ctx context.Context) (driver.GraphDriver, error) {
			return driver.NewNeo4jDriver(driver.Options{
				Host:     dbCfg.Host,
				Port:     dbCfg.Port,
				Username: dbCfg.Username,
				Password: dbCfg.Password,
				Database: dbCfg.Database,
			})
		},
		newEngine: func(d driver.GraphDriver, l llm.Client, e embedder.Client, r crossencoder.Client, log *slog.Logger) memory.Engine {
			return memory.NewClient(d, l, e, r, log)
		},
	}
}

// Start performs best-effort startup work: when a fallback embedding key is
// configured, it builds the database indices ahead of the first request.
// Startup never fails on index errors; the first request retries.
func (s *Service) Start(ctx context.Context) {
	if s.fallbackEmbedderKey == "" {
		s.logger.Info("no fallback embedding key configured, skipping startup index build")
		return
	}

	store, err := s.getStore(ctx)
	if err != nil {
		s.logger.Warn("startup index build skipped, store unavailable", "error", err)
		return
	}
	engine := s.newEngine(store, nil, nil, nil, s.logger)
	s.indices.ensure(ctx, engine)
}

// Ping reports whether the graph store is reachable.
func (s *Service) Ping(ctx context.Context) bool {
	store, err := s.getStore(ctx)
	if err != nil {
		return false
	}
	return store.Ping(ctx) == nil
}

// Close releases the shared store handle.
func (s *Service) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.store == nil {
		return nil
	}
	err := s.store.Close()
	s.store = nil
	return err
}

// getStore returns the shared store handle, connecting on first use.
func (s *Service) getStore(ctx context.Context) (driver.GraphDriver, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.store != nil {
		return s.store, nil
	}
	store, err := s.openStore(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to graph store: %w", err)
	}
	s.store = store
	return store, nil
}

// buildEngine resolves the caller's credentials into a ready extraction
// engine over the shared store.
func (s *Service) buildEngine(ctx context.Context, providerName, llmKey, embedderKey string) (memory.Engine, error) {
	clients, err := s.buildClients(providerName, llmKey, embedderKey)
	if err != nil {
		return nil, err
	}
	store, err := s.getStore(ctx)
	if err != nil {
		return nil, err
	}
	return s.newEngine(store, clients.llm, clients.embedder, clients.reranker, s.logger), nil
}
