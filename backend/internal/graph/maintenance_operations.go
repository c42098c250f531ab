package graph

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"

	apperrors "brewgraph/backend/pkg/errors"
)

// ============================================================================
// Maintenance Operations
// ============================================================================

// ListOrigins returns every Origin node, ordered by id
func (r *Repository) ListOrigins(ctx context.Context) ([]OriginNode, error) {
	session := r.session(ctx, neo4j.AccessModeRead)
	defer session.Close(ctx)

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, `
			MATCH (o:Origin)
			RETURN o.id AS id, o.name AS name, o.country AS country, o.region AS region
			ORDER BY id
		`, nil)
		if err != nil {
			return nil, err
		}
		origins := make([]OriginNode, 0)
		for res.Next(ctx) {
			rec := res.Record()
			origins = append(origins, OriginNode{
				ID:      getStringFromRecord(rec, "id"),
				Name:    getStringFromRecord(rec, "name"),
				Country: getStringFromRecord(rec, "country"),
				Region:  getStringFromRecord(rec, "region"),
			})
		}
		return origins, res.Err()
	})
	if err != nil {
		return nil, apperrors.NewGraphQueryFailed("list_origins", err)
	}
	return result.([]OriginNode), nil
}

// MergeOrigin folds the origin fromID into the canonical node `to` in one
// transaction: the canonical node is merged (properties are only set when it
// is created), every product linked to the old node is linked to it (at most
// once) and the old node is deleted.
// Returns the number of products re-pointed.
func (r *Repository) MergeOrigin(ctx context.Context, fromID string, to OriginNode) (int, error) {
	if fromID == to.ID {
		return 0, nil
	}

	session := r.session(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)

	result, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, `
			MATCH (m:Origin {id: $from_id})
			MERGE (c:Origin {id: $to_id})
			ON CREATE SET c.name = $to_name, c.country = $to_country, c.region = $to_region
			WITH m, c
			OPTIONAL MATCH (p:Product)-[:FROM_ORIGIN]->(m)
			WITH m, c, collect(DISTINCT p) AS products
			FOREACH (p IN products | MERGE (p)-[:FROM_ORIGIN]->(c))
			DETACH DELETE m
			RETURN size(products) AS relinked
		`, map[string]any{
			"from_id":    fromID,
			"to_id":      to.ID,
			"to_name":    to.Name,
			"to_country": to.Country,
			"to_region":  to.Region,
		})
		if err != nil {
			return nil, err
		}
		if !res.Next(ctx) {
			return 0, res.Err()
		}
		return getIntFromRecord(res.Record(), "relinked"), nil
	})
	if err != nil {
		return 0, apperrors.NewGraphQueryFailed("merge_origin", err)
	}

	relinked := result.(int)
	r.logger.Info("Origin merged",
		zap.String("from", fromID),
		zap.String("to", to.ID),
		zap.Int("relinked", relinked),
	)
	return relinked, nil
}

// LinkCoreCountry makes sure the core-country node exists and that every
// product linked to the region node is also linked to it. Returns the number
// of links created.
func (r *Repository) LinkCoreCountry(ctx context.Context, regionID string, core OriginNode) (int, error) {
	session := r.session(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)

	result, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, `
			MATCH (rg:Origin {id: $region_id})
			MERGE (c:Origin {id: $core_id})
			ON CREATE SET c.name = $core_name, c.country = $core_country, c.region = ''
			WITH rg, c
			OPTIONAL MATCH (p:Product)-[:FROM_ORIGIN]->(rg)
			WHERE NOT (p)-[:FROM_ORIGIN]->(c)
			WITH c, collect(DISTINCT p) AS missing
			FOREACH (p IN missing | MERGE (p)-[:FROM_ORIGIN]->(c))
			RETURN size(missing) AS linked
		`, map[string]any{
			"region_id":    regionID,
			"core_id":      core.ID,
			"core_name":    core.Name,
			"core_country": core.Country,
		})
		if err != nil {
			return nil, err
		}
		if !res.Next(ctx) {
			return 0, res.Err()
		}
		return getIntFromRecord(res.Record(), "linked"), nil
	})
	if err != nil {
		return 0, apperrors.NewGraphQueryFailed("link_core_country", err)
	}
	return result.(int), nil
}

// DeleteOrphans deletes nodes of a sweepable label that no product points
// at. Taxonomy and tasting-note labels are refused.
func (r *Repository) DeleteOrphans(ctx context.Context, label string) (int, error) {
	if !IsSweepable(label) {
		return 0, ErrLabelNotSweepable{Label: label}
	}

	session := r.session(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)

	query := fmt.Sprintf(`
		MATCH (n:%s)
		WHERE NOT (:Product)-->(n)
		DETACH DELETE n
		RETURN count(*) AS deleted
	`, label)

	result, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, query, nil)
		if err != nil {
			return nil, err
		}
		if !res.Next(ctx) {
			return 0, res.Err()
		}
		return getIntFromRecord(res.Record(), "deleted"), nil
	})
	if err != nil {
		return 0, apperrors.NewGraphQueryFailed("delete_orphans", err)
	}
	return result.(int), nil
}
