package maintain

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"brewgraph/backend/internal/graph"
	"brewgraph/backend/internal/normalize"
)

// ResyncScope selects the products a resync rebuilds. The zero value means
// every product.
type ResyncScope struct {
	ProductID string
	Brand     string
}

func (s ResyncScope) String() string {
	switch {
	case s.ProductID != "":
		return "product " + s.ProductID
	case s.Brand != "":
		return "brand " + s.Brand
	}
	return "all products"
}

// Resync recomputes products' edges from their source records from scratch.
// Each product commits on its own. A full resync also reports graph
// products that have no source record.
func (m *Maintainer) Resync(ctx context.Context, scope ResyncScope) (*Report, error) {
	report := newReport("resync")
	defer report.finish(m.logger)

	var records []*normalize.ProductRecord
	var err error
	switch {
	case scope.ProductID != "":
		var rec *normalize.ProductRecord
		rec, err = m.source.Get(ctx, scope.ProductID)
		records = []*normalize.ProductRecord{rec}
	case scope.Brand != "":
		records, err = m.source.ListByBrand(ctx, scope.Brand)
	default:
		records, err = m.source.List(ctx)
	}
	if err != nil {
		return report, fmt.Errorf("load records for %s: %w", scope, err)
	}

	m.logger.Info("Resync started", zap.String("run_id", report.RunID), zap.Stringer("scope", scope), zap.Int("records", len(records)))

	known := make(map[string]bool, len(records))
	for _, rec := range records {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		report.Processed++
		err := rec.Validate()
		known[rec.ID] = true
		if err != nil {
			report.fail(rec.ID, err)
			continue
		}
		warnings, err := m.sync(ctx, rec)
		report.warn(rec.ID, warnings)
		if err != nil {
			report.fail(rec.ID, err)
			continue
		}
		report.Affected++
	}

	if scope == (ResyncScope{}) {
		ids, err := m.store.ListProductIDs(ctx)
		if err != nil {
			return report, fmt.Errorf("list graph products: %w", err)
		}
		for _, id := range ids {
			if !known[id] {
				report.Warnings = append(report.Warnings, fmt.Sprintf("%s: product has no source record", id))
				report.Counts["without_source"]++
			}
		}
	}
	return report, nil
}

// RepairMalformedOrigins merges every Origin node whose id is not the
// canonical form of its country/region into the canonical node, re-pointing
// product edges. Nodes already canonical are untouched.
func (m *Maintainer) RepairMalformedOrigins(ctx context.Context) (*Report, error) {
	report := newReport("repair_origins")
	defer report.finish(m.logger)

	origins, err := m.store.ListOrigins(ctx)
	if err != nil {
		return report, fmt.Errorf("list origins: %w", err)
	}

	for _, o := range origins {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		report.Processed++

		canonical := normalize.CanonicalOrigin(o)
		if canonical.ID == "" {
			report.Warnings = append(report.Warnings, fmt.Sprintf("%q: no country can be derived", o.ID))
			continue
		}
		if canonical.ID == o.ID {
			continue
		}

		relinked, err := m.store.MergeOrigin(ctx, o.ID, canonical)
		if err != nil {
			report.fail(o.ID, err)
			continue
		}
		report.Affected++
		report.Counts["relinked_products"] += relinked
		m.logger.Info("Malformed origin repaired",
			zap.String("from", o.ID),
			zap.String("to", canonical.ID),
			zap.Int("relinked", relinked),
		)
	}
	return report, nil
}

// BackfillCoreCountries makes sure every region-qualified origin has its
// core-country sibling and that every product holding the region node also
// holds the core node.
func (m *Maintainer) BackfillCoreCountries(ctx context.Context) (*Report, error) {
	report := newReport("backfill_core_countries")
	defer report.finish(m.logger)

	origins, err := m.store.ListOrigins(ctx)
	if err != nil {
		return report, fmt.Errorf("list origins: %w", err)
	}

	for _, o := range origins {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		canonical := normalize.CanonicalOrigin(o)
		if !canonical.IsRegion() {
			continue
		}
		report.Processed++

		core := normalize.CoreOrigin(canonical.Country)
		linked, err := m.store.LinkCoreCountry(ctx, o.ID, core)
		if err != nil {
			report.fail(o.ID, err)
			continue
		}
		if linked > 0 {
			report.Affected++
			report.Counts["links_created"] += linked
		}
	}
	return report, nil
}

// SweepOrphans deletes Origin, Process, Producer and Variety nodes with no
// remaining product edge. Taxonomy and tasting-note nodes are never touched.
func (m *Maintainer) SweepOrphans(ctx context.Context) (*Report, error) {
	report := newReport("sweep_orphans")
	defer report.finish(m.logger)

	for _, label := range graph.SweepableLabels {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		report.Processed++
		deleted, err := m.store.DeleteOrphans(ctx, label)
		if err != nil {
			report.fail(label, err)
			continue
		}
		report.Counts[label] = deleted
		report.Affected += deleted
	}
	return report, nil
}
