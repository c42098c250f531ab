package graph

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"

	"brewgraph/backend/internal/taxonomy"
	apperrors "brewgraph/backend/pkg/errors"
	"brewgraph/backend/pkg/logger"
)

// Repository handles all Neo4j database operations. Every operation opens
// its own session; every write unit runs in its own managed transaction.
type Repository struct {
	driver   neo4j.DriverWithContext
	database string
	logger   *zap.Logger
}

// NewRepository creates a new graph repository
func NewRepository(driver neo4j.DriverWithContext, database string) *Repository {
	return &Repository{
		driver:   driver,
		database: database,
		logger:   logger.Named("graph"),
	}
}

// Connect opens a driver and verifies connectivity
func Connect(ctx context.Context, uri, user, password string, maxPoolSize int) (neo4j.DriverWithContext, error) {
	driver, err := neo4j.NewDriverWithContext(
		uri,
		neo4j.BasicAuth(user, password, ""),
		func(cfg *neo4j.Config) {
			if maxPoolSize > 0 {
				cfg.MaxConnectionPoolSize = maxPoolSize
			}
			cfg.SocketConnectTimeout = 10 * time.Second
		},
	)
	if err != nil {
		return nil, apperrors.NewGraphConnectionFailed(uri, err)
	}

	verifyCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := driver.VerifyConnectivity(verifyCtx); err != nil {
		_ = driver.Close(ctx)
		return nil, apperrors.NewGraphConnectionFailed(uri, err)
	}
	return driver, nil
}

// Close closes the Neo4j driver connection
func (r *Repository) Close() error {
	return r.driver.Close(context.Background())
}

func (r *Repository) session(ctx context.Context, mode neo4j.AccessMode) neo4j.SessionWithContext {
	return r.driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   mode,
		DatabaseName: r.database,
	})
}

// run executes a statement in an auto-commit session and discards the result
func (r *Repository) run(ctx context.Context, query string, params map[string]any) error {
	session := r.session(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)

	res, err := session.Run(ctx, query, params)
	if err != nil {
		return err
	}
	_, err = res.Consume(ctx)
	return err
}

// EnsureSchema creates the uniqueness constraints and lookup indexes.
// Safe to run repeatedly.
func (r *Repository) EnsureSchema(ctx context.Context) error {
	labels := []string{
		LabelProduct, LabelBrand, LabelRoastLevel, LabelOrigin, LabelProcess, LabelProducer,
		LabelVariety, LabelTastingNote, LabelAttribute, LabelSubcategory, LabelCategory,
	}
	for _, label := range labels {
		stmt := fmt.Sprintf(
			"CREATE CONSTRAINT %s_id_unique IF NOT EXISTS FOR (n:%s) REQUIRE n.id IS UNIQUE",
			strings.ToLower(label), label,
		)
		if err := r.run(ctx, stmt, nil); err != nil {
			return apperrors.NewGraphQueryFailed("ensure_schema", err)
		}
	}

	indexes := []string{
		"CREATE INDEX product_search_name IF NOT EXISTS FOR (p:Product) ON (p.search_name)",
		"CREATE INDEX product_in_stock IF NOT EXISTS FOR (p:Product) ON (p.in_stock)",
	}
	for _, stmt := range indexes {
		if err := r.run(ctx, stmt, nil); err != nil {
			return apperrors.NewGraphQueryFailed("ensure_schema", err)
		}
	}

	r.logger.Info("Schema ensured", zap.Int("constraints", len(labels)), zap.Int("indexes", len(indexes)))
	return nil
}

// SeedTaxonomy merges the fixed category/subcategory/attribute hierarchy.
// Taxonomy nodes are only ever created or updated, never deleted.
func (r *Repository) SeedTaxonomy(ctx context.Context, reg *taxonomy.Registry) error {
	categories := make([]map[string]any, 0, taxonomy.CategoryCount)
	for _, c := range reg.Categories() {
		categories = append(categories, map[string]any{"id": c.ID, "name": c.Name, "index": int64(c.Index)})
	}
	subcategories := make([]map[string]any, 0)
	for _, s := range reg.Subcategories() {
		subcategories = append(subcategories, map[string]any{"id": s.ID, "name": s.Name, "category_id": s.CategoryID})
	}
	attributes := make([]map[string]any, 0)
	for _, a := range reg.Attributes() {
		attributes = append(attributes, map[string]any{
			"id":             a.ID,
			"name":           a.Name,
			"keywords":       a.Keywords,
			"subcategory_id": a.SubcategoryID,
		})
	}

	session := r.session(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		steps := []struct {
			query  string
			params map[string]any
		}{
			{`
				UNWIND $rows AS row
				MERGE (c:SCACategory {id: row.id})
				SET c.name = row.name, c.index = row.index
			`, map[string]any{"rows": categories}},
			{`
				UNWIND $rows AS row
				MERGE (s:Subcategory {id: row.id})
				SET s.name = row.name
				WITH s, row
				MATCH (c:SCACategory {id: row.category_id})
				MERGE (s)-[:IN_CATEGORY]->(c)
			`, map[string]any{"rows": subcategories}},
			{`
				UNWIND $rows AS row
				MERGE (a:Attribute {id: row.id})
				SET a.name = row.name, a.keywords = row.keywords
				WITH a, row
				MATCH (s:Subcategory {id: row.subcategory_id})
				MERGE (a)-[:IN_SUBCATEGORY]->(s)
			`, map[string]any{"rows": attributes}},
		}
		for _, step := range steps {
			res, err := tx.Run(ctx, step.query, step.params)
			if err != nil {
				return nil, err
			}
			if _, err := res.Consume(ctx); err != nil {
				return nil, err
			}
		}
		return nil, nil
	})
	if err != nil {
		return apperrors.NewGraphQueryFailed("seed_taxonomy", err)
	}

	r.logger.Info("Taxonomy seeded",
		zap.Int("categories", len(categories)),
		zap.Int("subcategories", len(subcategories)),
		zap.Int("attributes", len(attributes)),
	)
	return nil
}
