// Package memgraph is an in-memory implementation of the graph store used
// for development (GRAPH_BACKEND=memory) and as the unit-test backend. It
// mirrors the Neo4j repository's semantics: natural-key nodes, product-centric
// edges, one lock-protected unit of work per write.
package memgraph

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"brewgraph/backend/internal/graph"
	"brewgraph/backend/internal/taxonomy"
	"brewgraph/backend/internal/textfold"
	apperrors "brewgraph/backend/pkg/errors"
	"brewgraph/backend/pkg/logger"
)

// productRow is a product's own properties plus its outgoing edges by target id
type productRow struct {
	props      graph.Product
	searchName string
	brand      string
	roast      string
	origins    []string
	processes  []string
	producers  []string
	varieties  []string
	notes      []string
}

type noteNode struct {
	text        string
	attributeID string
}

// Store is safe for concurrent use
type Store struct {
	mu sync.RWMutex

	registry *taxonomy.Registry
	products map[string]*productRow
	origins  map[string]graph.OriginNode
	named    map[string]map[string]graph.NamedNode // label -> id -> node
	notes    map[string]noteNode

	logger *zap.Logger
}

// New creates an empty store
func New() *Store {
	named := make(map[string]map[string]graph.NamedNode)
	for _, label := range []string{graph.LabelBrand, graph.LabelRoastLevel, graph.LabelProcess, graph.LabelProducer, graph.LabelVariety} {
		named[label] = make(map[string]graph.NamedNode)
	}
	return &Store{
		products: make(map[string]*productRow),
		origins:  make(map[string]graph.OriginNode),
		named:    named,
		notes:    make(map[string]noteNode),
		logger:   logger.Named("memgraph"),
	}
}

// EnsureSchema is a no-op; map keys already enforce id uniqueness
func (s *Store) EnsureSchema(ctx context.Context) error {
	return ctx.Err()
}

// SeedTaxonomy attaches the registry used to resolve note hierarchy on reads
func (s *Store) SeedTaxonomy(ctx context.Context, reg *taxonomy.Registry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.registry = reg
	return nil
}

// SyncProduct replaces the product's properties and outgoing edges
func (s *Store) SyncProduct(ctx context.Context, p *graph.Product) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	row := &productRow{props: *p, searchName: textfold.Key(p.Name)}
	row.props.Brand, row.props.Roast = nil, nil
	row.props.Origins, row.props.Processes, row.props.Producers, row.props.Varieties, row.props.Notes = nil, nil, nil, nil, nil
	row.props.FlavorProfile = append([]float64(nil), p.FlavorProfile...)
	row.props.CharacterAxes = append([]float64(nil), p.CharacterAxes...)
	row.props.SyncedAt = time.Now().UTC()

	if p.Brand != nil && p.Brand.ID != "" {
		row.brand = s.mergeNamed(graph.LabelBrand, *p.Brand)
	}
	if p.Roast != nil && p.Roast.ID != "" {
		row.roast = s.mergeNamed(graph.LabelRoastLevel, *p.Roast)
	}
	for _, o := range p.Origins {
		s.origins[o.ID] = o
		row.origins = appendUnique(row.origins, o.ID)
	}
	for _, n := range p.Processes {
		row.processes = appendUnique(row.processes, s.mergeNamed(graph.LabelProcess, n))
	}
	for _, n := range p.Producers {
		row.producers = appendUnique(row.producers, s.mergeNamed(graph.LabelProducer, n))
	}
	for _, n := range p.Varieties {
		row.varieties = appendUnique(row.varieties, s.mergeNamed(graph.LabelVariety, n))
	}
	for _, n := range p.Notes {
		node, ok := s.notes[n.ID]
		if !ok {
			node.text = n.Text
		}
		node.attributeID = n.AttributeID
		s.notes[n.ID] = node
		row.notes = appendUnique(row.notes, n.ID)
	}

	s.products[p.ID] = row
	return nil
}

func (s *Store) mergeNamed(label string, n graph.NamedNode) string {
	if _, ok := s.named[label][n.ID]; !ok {
		s.named[label][n.ID] = n
	}
	return n.ID
}

func appendUnique(ids []string, id string) []string {
	for _, existing := range ids {
		if existing == id {
			return ids
		}
	}
	return append(ids, id)
}

// ListProductIDs returns every product id, ordered
func (s *Store) ListProductIDs(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sortedIDs(), nil
}

func (s *Store) sortedIDs() []string {
	ids := make([]string, 0, len(s.products))
	for id := range s.products {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// ListOrigins returns every origin node, ordered by id
func (s *Store) ListOrigins(ctx context.Context) ([]graph.OriginNode, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]graph.OriginNode, 0, len(s.origins))
	for _, o := range s.origins {
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// MergeOrigin folds fromID into `to`, re-pointing products at most once
func (s *Store) MergeOrigin(ctx context.Context, fromID string, to graph.OriginNode) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if fromID == to.ID {
		return 0, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.origins[fromID]; !ok {
		return 0, nil
	}
	if _, ok := s.origins[to.ID]; !ok {
		s.origins[to.ID] = to
	}

	relinked := 0
	for _, row := range s.products {
		idx := indexOf(row.origins, fromID)
		if idx < 0 {
			continue
		}
		row.origins = append(row.origins[:idx:idx], row.origins[idx+1:]...)
		row.origins = appendUnique(row.origins, to.ID)
		relinked++
	}
	delete(s.origins, fromID)

	s.logger.Info("Origin merged", zap.String("from", fromID), zap.String("to", to.ID), zap.Int("relinked", relinked))
	return relinked, nil
}

// LinkCoreCountry links every holder of the region node to the core node
func (s *Store) LinkCoreCountry(ctx context.Context, regionID string, core graph.OriginNode) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.origins[regionID]; !ok {
		return 0, nil
	}
	if _, ok := s.origins[core.ID]; !ok {
		s.origins[core.ID] = core
	}

	linked := 0
	for _, row := range s.products {
		if indexOf(row.origins, regionID) < 0 || indexOf(row.origins, core.ID) >= 0 {
			continue
		}
		row.origins = append(row.origins, core.ID)
		linked++
	}
	return linked, nil
}

// DeleteOrphans removes unreferenced nodes of a sweepable label
func (s *Store) DeleteOrphans(ctx context.Context, label string) (int, error) {
	if !graph.IsSweepable(label) {
		return 0, graph.ErrLabelNotSweepable{Label: label}
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	referenced := make(map[string]bool)
	for _, row := range s.products {
		var ids []string
		switch label {
		case graph.LabelOrigin:
			ids = row.origins
		case graph.LabelProcess:
			ids = row.processes
		case graph.LabelProducer:
			ids = row.producers
		case graph.LabelVariety:
			ids = row.varieties
		}
		for _, id := range ids {
			referenced[id] = true
		}
	}

	deleted := 0
	if label == graph.LabelOrigin {
		for id := range s.origins {
			if !referenced[id] {
				delete(s.origins, id)
				deleted++
			}
		}
		return deleted, nil
	}
	for id := range s.named[label] {
		if !referenced[id] {
			delete(s.named[label], id)
			deleted++
		}
	}
	return deleted, nil
}

// NodeCount returns the number of nodes stored under a label
func (s *Store) NodeCount(label string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	switch label {
	case graph.LabelProduct:
		return len(s.products)
	case graph.LabelOrigin:
		return len(s.origins)
	case graph.LabelTastingNote:
		return len(s.notes)
	}
	return len(s.named[label])
}

func indexOf(ids []string, id string) int {
	for i, existing := range ids {
		if existing == id {
			return i
		}
	}
	return -1
}

// GetProduct returns a product with all of its relationships
func (s *Store) GetProduct(ctx context.Context, productID string) (*graph.Product, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	row, ok := s.products[productID]
	if !ok {
		return nil, apperrors.NewProductNotFound(productID)
	}
	return s.assemble(row), nil
}

// FindProducts returns products matching the criteria ordered by id
func (s *Store) FindProducts(ctx context.Context, c graph.Criteria) ([]*graph.Product, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	name := textfold.Key(c.NameContains)
	out := make([]*graph.Product, 0)
	for _, id := range s.sortedIDs() {
		row := s.products[id]
		if !s.matches(row, c, name) {
			continue
		}
		out = append(out, s.assemble(row))
		if c.Limit > 0 && len(out) >= c.Limit {
			break
		}
	}
	return out, nil
}

func (s *Store) matches(row *productRow, c graph.Criteria, name string) bool {
	p := &row.props
	if len(c.IDs) > 0 && indexOf(c.IDs, p.ID) < 0 {
		return false
	}
	if indexOf(c.ExcludeIDs, p.ID) >= 0 {
		return false
	}
	if name != "" && !strings.Contains(row.searchName, name) {
		return false
	}
	if !anyOf(c.BrandIDs, []string{row.brand}) ||
		!anyOf(c.OriginIDs, row.origins) ||
		!anyOf(c.ProcessIDs, row.processes) ||
		!anyOf(c.RoastIDs, []string{row.roast}) ||
		!anyOf(c.VarietyIDs, row.varieties) ||
		!anyOf(c.ProducerIDs, row.producers) {
		return false
	}
	if len(c.NoteIDs) > 0 || len(c.NoteAttributeIDs) > 0 {
		hit := false
		for _, id := range row.notes {
			if indexOf(c.NoteIDs, id) >= 0 || indexOf(c.NoteAttributeIDs, s.notes[id].attributeID) >= 0 {
				hit = true
				break
			}
		}
		if !hit {
			return false
		}
	}
	if c.InStockOnly && !p.InStock {
		return false
	}
	if c.MaxPrice > 0 && p.Price > c.MaxPrice {
		return false
	}
	if c.Direction != nil && !c.Direction.Matches(p) {
		return false
	}
	return true
}

// anyOf reports whether want is empty or shares an id with have
func anyOf(want, have []string) bool {
	if len(want) == 0 {
		return true
	}
	for _, h := range have {
		if h != "" && indexOf(want, h) >= 0 {
			return true
		}
	}
	return false
}

// OverlapCandidates ranks products by distinct items shared with the
// reference at one ladder level
func (s *Store) OverlapCandidates(ctx context.Context, productID string, level graph.OverlapLevel, scanLimit int) ([]graph.OverlapHit, error) {
	switch level {
	case graph.OverlapNotes, graph.OverlapAttributes, graph.OverlapSubcategories:
	default:
		return nil, apperrors.NewInvalidArgument("overlap_level", string(level), "unknown ladder level")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	hits := make([]graph.OverlapHit, 0)
	ref, ok := s.products[productID]
	if !ok {
		return hits, nil
	}
	refKeys := graph.OverlapKeys(s.assemble(ref), level)
	delete(refKeys, "")
	delete(refKeys, taxonomy.OtherAttributeID)
	delete(refKeys, taxonomy.OtherSubcategoryID)
	if len(refKeys) == 0 {
		return hits, nil
	}

	for id, row := range s.products {
		if id == productID {
			continue
		}
		shared := 0
		for k := range graph.OverlapKeys(s.assemble(row), level) {
			if refKeys[k] {
				shared++
			}
		}
		if shared > 0 {
			hits = append(hits, graph.OverlapHit{ProductID: id, Shared: shared})
		}
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Shared != hits[j].Shared {
			return hits[i].Shared > hits[j].Shared
		}
		return hits[i].ProductID < hits[j].ProductID
	})
	if scanLimit > 0 && len(hits) > scanLimit {
		hits = hits[:scanLimit]
	}
	return hits, nil
}

// assemble builds the read shape of a product. Callers hold the lock.
func (s *Store) assemble(row *productRow) *graph.Product {
	p := row.props
	p.FlavorProfile = append([]float64(nil), row.props.FlavorProfile...)
	p.CharacterAxes = append([]float64(nil), row.props.CharacterAxes...)

	if n, ok := s.named[graph.LabelBrand][row.brand]; ok {
		p.Brand = &n
	}
	if n, ok := s.named[graph.LabelRoastLevel][row.roast]; ok {
		p.Roast = &n
	}
	p.Origins = make([]graph.OriginNode, 0, len(row.origins))
	for _, id := range row.origins {
		if o, ok := s.origins[id]; ok {
			p.Origins = append(p.Origins, o)
		}
	}
	sort.Slice(p.Origins, func(i, j int) bool { return p.Origins[i].ID < p.Origins[j].ID })
	p.Processes = s.namedList(graph.LabelProcess, row.processes)
	p.Producers = s.namedList(graph.LabelProducer, row.producers)
	p.Varieties = s.namedList(graph.LabelVariety, row.varieties)

	p.Notes = make([]graph.NoteNode, 0, len(row.notes))
	for _, id := range row.notes {
		n := s.notes[id]
		note := graph.NoteNode{ID: id, Text: n.text, AttributeID: n.attributeID}
		if s.registry != nil {
			if attr, ok := s.registry.Attribute(n.attributeID); ok {
				note.SubcategoryID = attr.SubcategoryID
				note.CategoryID = attr.CategoryID
			}
		}
		p.Notes = append(p.Notes, note)
	}
	sort.Slice(p.Notes, func(i, j int) bool { return p.Notes[i].ID < p.Notes[j].ID })
	return &p
}

func (s *Store) namedList(label string, ids []string) []graph.NamedNode {
	out := make([]graph.NamedNode, 0, len(ids))
	for _, id := range ids {
		if n, ok := s.named[label][id]; ok {
			out = append(out, n)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
