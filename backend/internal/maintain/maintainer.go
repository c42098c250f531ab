// Package maintain ingests source records into the graph and runs the
// administrative consistency jobs: full resync, malformed-origin repair,
// core-country backfill and orphan sweep. Every job is idempotent and
// commits one unit of work (one product, one node, one label) at a time, so
// an interrupted run leaves only a resumable remainder.
package maintain

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"brewgraph/backend/internal/graph"
	"brewgraph/backend/internal/normalize"
	"brewgraph/backend/internal/source"
	"brewgraph/backend/internal/taxonomy"
	"brewgraph/backend/pkg/logger"
)

// Store is the write side of the graph
type Store interface {
	EnsureSchema(ctx context.Context) error
	SeedTaxonomy(ctx context.Context, reg *taxonomy.Registry) error
	SyncProduct(ctx context.Context, p *graph.Product) error
	ListProductIDs(ctx context.Context) ([]string, error)
	ListOrigins(ctx context.Context) ([]graph.OriginNode, error)
	MergeOrigin(ctx context.Context, fromID string, to graph.OriginNode) (int, error)
	LinkCoreCountry(ctx context.Context, regionID string, core graph.OriginNode) (int, error)
	DeleteOrphans(ctx context.Context, label string) (int, error)
}

// Source is the canonical record store
type Source interface {
	Upsert(ctx context.Context, rec *normalize.ProductRecord) (source.UpsertResult, error)
	Get(ctx context.Context, id string) (*normalize.ProductRecord, error)
	List(ctx context.Context) ([]*normalize.ProductRecord, error)
	ListByBrand(ctx context.Context, brand string) ([]*normalize.ProductRecord, error)
}

// UnitError is the failure of one unit of work
type UnitError struct {
	Unit  string `json:"unit"`
	Error string `json:"error"`
}

// Report summarises one maintenance run
type Report struct {
	RunID     string         `json:"run_id"`
	Operation string         `json:"operation"`
	StartedAt time.Time      `json:"started_at"`
	Duration  time.Duration  `json:"duration"`
	Processed int            `json:"processed"`
	Affected  int            `json:"affected"`
	Counts    map[string]int `json:"counts,omitempty"`
	Warnings  []string       `json:"warnings,omitempty"`
	Errors    []UnitError    `json:"errors,omitempty"`
}

func newReport(operation string) *Report {
	return &Report{
		RunID:     uuid.New().String(),
		Operation: operation,
		StartedAt: time.Now().UTC(),
		Counts:    make(map[string]int),
	}
}

func (r *Report) fail(unit string, err error) {
	r.Errors = append(r.Errors, UnitError{Unit: unit, Error: err.Error()})
}

// warn records Build warnings for a unit. Dropped regions are also counted
// so records needing a country can be found.
func (r *Report) warn(unit string, warnings []string) {
	for _, w := range warnings {
		r.Warnings = append(r.Warnings, unit+": "+w)
		if normalize.IsUnattachedRegion(w) {
			r.Counts["unattached_regions"]++
		}
	}
}

func (r *Report) finish(log *zap.Logger) *Report {
	r.Duration = time.Since(r.StartedAt)
	log.Info("Maintenance run finished",
		zap.String("run_id", r.RunID),
		zap.String("operation", r.Operation),
		zap.Int("processed", r.Processed),
		zap.Int("affected", r.Affected),
		zap.Int("errors", len(r.Errors)),
		zap.Duration("duration", r.Duration),
	)
	return r
}

// Maintainer runs ingestion and consistency jobs against one graph store
type Maintainer struct {
	store   Store
	source  Source
	builder *normalize.Builder
	logger  *zap.Logger
}

// NewMaintainer creates a maintainer
func NewMaintainer(store Store, src Source, builder *normalize.Builder) *Maintainer {
	return &Maintainer{
		store:   store,
		source:  src,
		builder: builder,
		logger:  logger.Named("maintain"),
	}
}

// Setup ensures the schema and seeds the taxonomy. Safe to repeat.
func (m *Maintainer) Setup(ctx context.Context) error {
	if err := m.store.EnsureSchema(ctx); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	if err := m.store.SeedTaxonomy(ctx, m.builder.Classifier().Registry()); err != nil {
		return fmt.Errorf("seed taxonomy: %w", err)
	}
	return nil
}

// Ingest validates a record, stores it as the new source of truth and
// re-derives the product in the graph
func (m *Maintainer) Ingest(ctx context.Context, rec *normalize.ProductRecord) (source.UpsertResult, []string, error) {
	if err := rec.Validate(); err != nil {
		return "", nil, err
	}
	res, err := m.source.Upsert(ctx, rec)
	if err != nil {
		return "", nil, fmt.Errorf("store record: %w", err)
	}
	warnings, err := m.sync(ctx, rec)
	return res, warnings, err
}

// IngestBatch ingests records one at a time. A failing record is reported
// and skipped; the batch stops early only when ctx is done.
func (m *Maintainer) IngestBatch(ctx context.Context, records []*normalize.ProductRecord) (*Report, error) {
	report := newReport("ingest")
	defer report.finish(m.logger)

	for _, rec := range records {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		report.Processed++
		res, warnings, err := m.Ingest(ctx, rec)
		report.warn(rec.ID, warnings)
		if err != nil {
			report.fail(rec.ID, err)
			continue
		}
		report.Counts[string(res)]++
		report.Affected++
	}
	return report, nil
}

func (m *Maintainer) sync(ctx context.Context, rec *normalize.ProductRecord) ([]string, error) {
	p, warnings := m.builder.Build(rec)
	if err := m.store.SyncProduct(ctx, p); err != nil {
		return warnings, fmt.Errorf("sync product: %w", err)
	}
	if len(warnings) > 0 {
		m.logger.Warn("Product synced with dropped input",
			zap.String("product_id", p.ID),
			zap.Strings("warnings", warnings),
		)
	}
	return warnings, nil
}
