package graph

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"

	"brewgraph/backend/internal/taxonomy"
	"brewgraph/backend/internal/textfold"
	apperrors "brewgraph/backend/pkg/errors"
)

// ============================================================================
// Product Operations
// ============================================================================

// namedRelation describes one product-centric natural-key relationship
type namedRelation struct {
	label string
	rel   string
	nodes []NamedNode
}

// SyncProduct replaces a product's node properties and its whole outgoing
// edge set in a single transaction: the product is merged, every outgoing
// relationship is deleted, then every target node and edge is merged again.
// Shared target nodes are never deleted here.
func (r *Repository) SyncProduct(ctx context.Context, p *Product) error {
	session := r.session(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)

	named := []namedRelation{
		{LabelBrand, RelMadeBy, optionalNamed(p.Brand)},
		{LabelRoastLevel, RelHasRoastLevel, optionalNamed(p.Roast)},
		{LabelProcess, RelHasProcess, p.Processes},
		{LabelProducer, RelProducedBy, p.Producers},
		{LabelVariety, RelHasVariety, p.Varieties},
	}

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, `
			MERGE (p:Product {id: $id})
			SET p.name = $name,
			    p.search_name = $search_name,
			    p.price = $price,
			    p.currency = $currency,
			    p.in_stock = $in_stock,
			    p.altitude_raw = $altitude_raw,
			    p.altitude_min = $altitude_min,
			    p.altitude_max = $altitude_max,
			    p.flavor_profile = $flavor_profile,
			    p.character_axes = $character_axes,
			    p.synced_at = datetime()
			WITH p
			OPTIONAL MATCH (p)-[rel]->()
			DELETE rel
		`, map[string]any{
			"id":             p.ID,
			"name":           p.Name,
			"search_name":    textfold.Key(p.Name),
			"price":          p.Price,
			"currency":       p.Currency,
			"in_stock":       p.InStock,
			"altitude_raw":   p.Altitude.Raw,
			"altitude_min":   int64(p.Altitude.Min),
			"altitude_max":   int64(p.Altitude.Max),
			"flavor_profile": floatsParam(p.FlavorProfile),
			"character_axes": floatsParam(p.CharacterAxes),
		})
		if err != nil {
			return nil, err
		}
		if _, err := res.Consume(ctx); err != nil {
			return nil, err
		}

		for _, nr := range named {
			if len(nr.nodes) == 0 {
				continue
			}
			query := fmt.Sprintf(`
				MATCH (p:Product {id: $id})
				UNWIND $nodes AS node
				MERGE (n:%s {id: node.id})
				ON CREATE SET n.name = node.name
				MERGE (p)-[:%s]->(n)
			`, nr.label, nr.rel)
			res, err := tx.Run(ctx, query, map[string]any{"id": p.ID, "nodes": namedParams(nr.nodes)})
			if err != nil {
				return nil, err
			}
			if _, err := res.Consume(ctx); err != nil {
				return nil, err
			}
		}

		if len(p.Origins) > 0 {
			res, err := tx.Run(ctx, `
				MATCH (p:Product {id: $id})
				UNWIND $origins AS o
				MERGE (n:Origin {id: o.id})
				SET n.name = o.name, n.country = o.country, n.region = o.region
				MERGE (p)-[:FROM_ORIGIN]->(n)
			`, map[string]any{"id": p.ID, "origins": originParams(p.Origins)})
			if err != nil {
				return nil, err
			}
			if _, err := res.Consume(ctx); err != nil {
				return nil, err
			}
		}

		if len(p.Notes) > 0 {
			res, err := tx.Run(ctx, `
				MATCH (p:Product {id: $id})
				UNWIND $notes AS note
				MERGE (t:TastingNote {id: note.id})
				ON CREATE SET t.text = note.text
				MERGE (p)-[:HAS_NOTE]->(t)
				WITH t, note
				OPTIONAL MATCH (t)-[stale:IS_A]->(old:Attribute)
				WHERE old.id <> note.attribute_id
				DELETE stale
				WITH DISTINCT t, note
				MATCH (a:Attribute {id: note.attribute_id})
				MERGE (t)-[:IS_A]->(a)
			`, map[string]any{"id": p.ID, "notes": noteParams(p.Notes)})
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
		return apperrors.NewGraphQueryFailed("sync_product", err)
	}

	r.logger.Debug("Product synced",
		zap.String("product_id", p.ID),
		zap.Int("origins", len(p.Origins)),
		zap.Int("notes", len(p.Notes)),
	)
	return nil
}

// ListProductIDs returns every product id in the graph, ordered
func (r *Repository) ListProductIDs(ctx context.Context) ([]string, error) {
	session := r.session(ctx, neo4j.AccessModeRead)
	defer session.Close(ctx)

	ids, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, `MATCH (p:Product) RETURN p.id AS id ORDER BY id`, nil)
		if err != nil {
			return nil, err
		}
		var ids []string
		for res.Next(ctx) {
			ids = append(ids, getStringFromRecord(res.Record(), "id"))
		}
		return ids, res.Err()
	})
	if err != nil {
		return nil, apperrors.NewGraphQueryFailed("list_product_ids", err)
	}
	return ids.([]string), nil
}

// productProjection returns a product with every relationship as lists
const productProjection = `
	RETURN p {.*} AS product,
		[(p)-[:MADE_BY]->(b:Brand) | b {.id, .name}] AS brands,
		[(p)-[:HAS_ROAST_LEVEL]->(rl:RoastLevel) | rl {.id, .name}] AS roasts,
		[(p)-[:FROM_ORIGIN]->(o:Origin) | o {.id, .name, .country, .region}] AS origins,
		[(p)-[:HAS_PROCESS]->(pr:Process) | pr {.id, .name}] AS processes,
		[(p)-[:PRODUCED_BY]->(pd:Producer) | pd {.id, .name}] AS producers,
		[(p)-[:HAS_VARIETY]->(v:Variety) | v {.id, .name}] AS varieties,
		[(p)-[:HAS_NOTE]->(t:TastingNote) | {
			id: t.id,
			text: t.text,
			attribute_id: head([(t)-[:IS_A]->(a:Attribute) | a.id]),
			subcategory_id: head([(t)-[:IS_A]->(:Attribute)-[:IN_SUBCATEGORY]->(s:Subcategory) | s.id]),
			category_id: head([(t)-[:IS_A]->(:Attribute)-[:IN_SUBCATEGORY]->(:Subcategory)-[:IN_CATEGORY]->(c:SCACategory) | c.id])
		}] AS notes
`

// GetProduct returns a product with all of its relationships
func (r *Repository) GetProduct(ctx context.Context, productID string) (*Product, error) {
	session := r.session(ctx, neo4j.AccessModeRead)
	defer session.Close(ctx)

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, `MATCH (p:Product {id: $id})`+productProjection, map[string]any{"id": productID})
		if err != nil {
			return nil, err
		}
		if !res.Next(ctx) {
			if err := res.Err(); err != nil {
				return nil, err
			}
			return nil, nil
		}
		return productFromRecord(res.Record()), nil
	})
	if err != nil {
		return nil, apperrors.NewGraphQueryFailed("get_product", err)
	}
	if result == nil {
		return nil, apperrors.NewProductNotFound(productID)
	}
	return result.(*Product), nil
}

// FindProducts returns products matching the criteria ordered by id
func (r *Repository) FindProducts(ctx context.Context, c Criteria) ([]*Product, error) {
	where, params := criteriaClauses(c)

	query := "MATCH (p:Product)\n"
	if len(where) > 0 {
		query += "WHERE " + strings.Join(where, "\n  AND ") + "\n"
	}
	query += "WITH p ORDER BY p.id\n"
	if c.Limit > 0 {
		query += "LIMIT $limit\n"
		params["limit"] = int64(c.Limit)
	}
	query += productProjection

	session := r.session(ctx, neo4j.AccessModeRead)
	defer session.Close(ctx)

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, query, params)
		if err != nil {
			return nil, err
		}
		products := make([]*Product, 0)
		for res.Next(ctx) {
			products = append(products, productFromRecord(res.Record()))
		}
		return products, res.Err()
	})
	if err != nil {
		return nil, apperrors.NewGraphQueryFailed("find_products", err)
	}
	products := result.([]*Product)
	sort.Slice(products, func(i, j int) bool { return products[i].ID < products[j].ID })
	return products, nil
}

func criteriaClauses(c Criteria) ([]string, map[string]any) {
	var where []string
	params := map[string]any{}

	if len(c.IDs) > 0 {
		where = append(where, "p.id IN $ids")
		params["ids"] = c.IDs
	}
	if len(c.ExcludeIDs) > 0 {
		where = append(where, "NOT p.id IN $exclude_ids")
		params["exclude_ids"] = c.ExcludeIDs
	}
	if key := textfold.Key(c.NameContains); key != "" {
		where = append(where, "p.search_name CONTAINS $name")
		params["name"] = key
	}

	related := []struct {
		param string
		ids   []string
		match string
	}{
		{"brand_ids", c.BrandIDs, "(p)-[:MADE_BY]->(n:Brand)"},
		{"origin_ids", c.OriginIDs, "(p)-[:FROM_ORIGIN]->(n:Origin)"},
		{"process_ids", c.ProcessIDs, "(p)-[:HAS_PROCESS]->(n:Process)"},
		{"roast_ids", c.RoastIDs, "(p)-[:HAS_ROAST_LEVEL]->(n:RoastLevel)"},
		{"variety_ids", c.VarietyIDs, "(p)-[:HAS_VARIETY]->(n:Variety)"},
		{"producer_ids", c.ProducerIDs, "(p)-[:PRODUCED_BY]->(n:Producer)"},
	}
	for _, rel := range related {
		if len(rel.ids) == 0 {
			continue
		}
		where = append(where, fmt.Sprintf("EXISTS { MATCH %s WHERE n.id IN $%s }", rel.match, rel.param))
		params[rel.param] = rel.ids
	}

	if len(c.NoteIDs) > 0 || len(c.NoteAttributeIDs) > 0 {
		where = append(where, `EXISTS {
			MATCH (p)-[:HAS_NOTE]->(t:TastingNote)
			WHERE t.id IN $note_ids
			   OR EXISTS { MATCH (t)-[:IS_A]->(a:Attribute) WHERE a.id IN $note_attribute_ids }
		}`)
		params["note_ids"] = stringsParam(c.NoteIDs)
		params["note_attribute_ids"] = stringsParam(c.NoteAttributeIDs)
	}

	if c.InStockOnly {
		where = append(where, "p.in_stock = true")
	}
	if c.MaxPrice > 0 {
		where = append(where, "p.price <= $max_price")
		params["max_price"] = c.MaxPrice
	}

	if d := c.Direction; d != nil {
		field := "flavor_profile"
		if d.Axes {
			field = "character_axes"
		}
		op := "<"
		if d.Above {
			op = ">"
		}
		where = append(where, fmt.Sprintf("coalesce(p.%s[$dir_index], 0.0) %s $dir_value", field, op))
		params["dir_index"] = int64(d.Index)
		params["dir_value"] = d.Value
	}

	return where, params
}

// OverlapCandidates returns products sharing at least one item with the
// reference at the given ladder level, most shared first, ties by id. The
// reserved catch-all attribute and subcategory never count as overlap.
func (r *Repository) OverlapCandidates(ctx context.Context, productID string, level OverlapLevel, scanLimit int) ([]OverlapHit, error) {
	var query string
	switch level {
	case OverlapNotes:
		query = `
			MATCH (ref:Product {id: $id})-[:HAS_NOTE]->(k:TastingNote)<-[:HAS_NOTE]-(c:Product)
			WHERE c.id <> $id`
	case OverlapAttributes:
		query = `
			MATCH (ref:Product {id: $id})-[:HAS_NOTE]->(:TastingNote)-[:IS_A]->(k:Attribute)
			      <-[:IS_A]-(:TastingNote)<-[:HAS_NOTE]-(c:Product)
			WHERE c.id <> $id AND k.id <> $other_attribute`
	case OverlapSubcategories:
		query = `
			MATCH (ref:Product {id: $id})-[:HAS_NOTE]->(:TastingNote)-[:IS_A]->(:Attribute)-[:IN_SUBCATEGORY]->(k:Subcategory)
			      <-[:IN_SUBCATEGORY]-(:Attribute)<-[:IS_A]-(:TastingNote)<-[:HAS_NOTE]-(c:Product)
			WHERE c.id <> $id AND k.id <> $other_subcategory`
	default:
		return nil, apperrors.NewInvalidArgument("overlap_level", string(level), "unknown ladder level")
	}
	query += `
		WITH c, count(DISTINCT k) AS shared
		RETURN c.id AS product_id, shared
		ORDER BY shared DESC, product_id ASC`
	params := map[string]any{
		"id":                productID,
		"other_attribute":   taxonomy.OtherAttributeID,
		"other_subcategory": taxonomy.OtherSubcategoryID,
	}
	if scanLimit > 0 {
		query += "\nLIMIT $limit"
		params["limit"] = int64(scanLimit)
	}

	session := r.session(ctx, neo4j.AccessModeRead)
	defer session.Close(ctx)

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, query, params)
		if err != nil {
			return nil, err
		}
		hits := make([]OverlapHit, 0)
		for res.Next(ctx) {
			rec := res.Record()
			hits = append(hits, OverlapHit{
				ProductID: getStringFromRecord(rec, "product_id"),
				Shared:    getIntFromRecord(rec, "shared"),
			})
		}
		return hits, res.Err()
	})
	if err != nil {
		return nil, apperrors.NewGraphQueryFailed("overlap_candidates", err)
	}
	return result.([]OverlapHit), nil
}
