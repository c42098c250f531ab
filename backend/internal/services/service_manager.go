// Package services opens and closes the components both binaries share:
// the graph backend, the source record store and the engines built on them.
package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"brewgraph/backend/internal/graph"
	"brewgraph/backend/internal/graph/memgraph"
	"brewgraph/backend/internal/maintain"
	"brewgraph/backend/internal/normalize"
	"brewgraph/backend/internal/query"
	"brewgraph/backend/internal/source"
	"brewgraph/backend/internal/taxonomy"
	"brewgraph/backend/pkg/config"
)

// GraphStore is the full store contract shared by the Neo4j repository and
// the in-memory backend
type GraphStore interface {
	maintain.Store
	query.Reader
}

var (
	_ GraphStore = (*graph.Repository)(nil)
	_ GraphStore = (*memgraph.Store)(nil)
)

// Options selects which components Open starts
type Options struct {
	// Source opens the SQLite record store and the maintainer
	Source bool
	// Hydrate rebuilds an in-memory graph from the source records
	Hydrate bool
}

// ServiceManager owns the long-lived components and their shutdown order
type ServiceManager struct {
	logger *zap.Logger
	cfg    *config.Config

	Registry   *taxonomy.Registry
	Classifier *taxonomy.Classifier
	Builder    *normalize.Builder
	Graph      GraphStore
	Source     *source.SQLiteStore
	Maintainer *maintain.Maintainer
	Planner    *query.Planner

	mu      sync.Mutex
	closers []namedCloser
}

type namedCloser struct {
	name  string
	close func() error
}

// Open loads the taxonomy and starts the configured backend. On error every
// component opened so far is closed again.
func Open(ctx context.Context, cfg *config.Config, opts Options, log *zap.Logger) (*ServiceManager, error) {
	sm := &ServiceManager{logger: log, cfg: cfg}

	reg, err := taxonomy.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load taxonomy: %w", err)
	}
	sm.Registry = reg
	sm.Classifier = taxonomy.NewClassifier(reg)
	sm.Builder = normalize.NewBuilder(sm.Classifier)

	if err := sm.openGraph(ctx); err != nil {
		sm.Close()
		return nil, err
	}

	if opts.Source || opts.Hydrate {
		src, err := source.NewSQLiteStore(cfg.SourceDBPath)
		if err != nil {
			sm.Close()
			return nil, fmt.Errorf("failed to open source store: %w", err)
		}
		sm.Source = src
		sm.addCloser("source", src.Close)
		sm.Maintainer = maintain.NewMaintainer(sm.Graph, src, sm.Builder)
	}

	if opts.Hydrate && cfg.GraphBackend == config.BackendMemory {
		if err := sm.hydrate(ctx); err != nil {
			sm.Close()
			return nil, err
		}
	}

	sm.Planner = query.NewPlanner(sm.Graph, sm.Classifier, query.Options{
		DefaultLimit: cfg.QueryDefaultLimit,
		MaxLimit:     cfg.QueryMaxLimit,
		ScanLimit:    cfg.QueryScanLimit,
		Timeout:      cfg.QueryTimeout,
	})

	return sm, nil
}

func (sm *ServiceManager) openGraph(ctx context.Context) error {
	switch sm.cfg.GraphBackend {
	case config.BackendMemory:
		store := memgraph.New()
		if err := store.SeedTaxonomy(ctx, sm.Registry); err != nil {
			return fmt.Errorf("failed to seed taxonomy: %w", err)
		}
		sm.Graph = store
		sm.logger.Info("Using in-memory graph backend")
	case config.BackendNeo4j:
		driver, err := graph.Connect(ctx, sm.cfg.Neo4jURI, sm.cfg.Neo4jUser, sm.cfg.Neo4jPassword, sm.cfg.Neo4jMaxPoolSize)
		if err != nil {
			return err
		}
		repo := graph.NewRepository(driver, sm.cfg.Neo4jDatabase)
		sm.Graph = repo
		sm.addCloser("neo4j", repo.Close)
		sm.logger.Info("Connected to Neo4j",
			zap.String("uri", sm.cfg.Neo4jURI),
			zap.String("database", sm.cfg.Neo4jDatabase))
	default:
		return fmt.Errorf("unknown graph backend %q", sm.cfg.GraphBackend)
	}
	return nil
}

// hydrate derives the in-memory graph from every source record
func (sm *ServiceManager) hydrate(ctx context.Context) error {
	if err := sm.Maintainer.Setup(ctx); err != nil {
		return fmt.Errorf("failed to prepare graph: %w", err)
	}
	report, err := sm.Maintainer.Resync(ctx, maintain.ResyncScope{})
	if err != nil {
		return fmt.Errorf("failed to hydrate graph: %w", err)
	}
	sm.logger.Info("Hydrated in-memory graph from source records",
		zap.Int("products", report.Affected),
		zap.Int("errors", len(report.Errors)))
	return nil
}

func (sm *ServiceManager) addCloser(name string, fn func() error) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	sm.closers = append(sm.closers, namedCloser{name: name, close: fn})
}

// Close shuts components down in reverse opening order. It gives up waiting
// after five seconds.
func (sm *ServiceManager) Close() {
	sm.mu.Lock()
	closers := sm.closers
	sm.closers = nil
	sm.mu.Unlock()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i].close(); err != nil {
				sm.logger.Warn("Failed to close component", zap.String("component", closers[i].name), zap.Error(err))
			}
		}
	}()

	select {
	case <-done:
		sm.logger.Debug("All components closed")
	case <-time.After(5 * time.Second):
		sm.logger.Warn("Components did not close in time")
	}
}

// Backend names the active graph backend
func (sm *ServiceManager) Backend() string {
	return sm.cfg.GraphBackend
}
