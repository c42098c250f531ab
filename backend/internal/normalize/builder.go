package normalize

import (
	"fmt"
	"strings"

	"brewgraph/backend/internal/graph"
	"brewgraph/backend/internal/profile"
	"brewgraph/backend/internal/taxonomy"
)

// Builder turns validated product records into the graph shape written by
// SyncProduct. It holds only immutable state and may be shared.
type Builder struct {
	classifier *taxonomy.Classifier
}

// NewBuilder creates a builder over a classifier
func NewBuilder(classifier *taxonomy.Classifier) *Builder {
	return &Builder{classifier: classifier}
}

// Classifier returns the classifier used for tasting notes
func (b *Builder) Classifier() *taxonomy.Classifier {
	return b.classifier
}

// Build derives the full product graph from a record, including both
// profile vectors. Warnings describe input that was dropped rather than
// turned into nodes.
func (b *Builder) Build(rec *ProductRecord) (*graph.Product, []string) {
	var warnings []string

	p := &graph.Product{
		ID:        strings.TrimSpace(rec.ID),
		Name:      collapse(rec.Name),
		Price:     rec.Price,
		Currency:  strings.ToUpper(strings.TrimSpace(rec.Currency)),
		InStock:   rec.InStock,
		Altitude:  ParseAltitude(rec.Altitude),
		Processes: namedNodes(rec.Process),
		Producers: namedNodes(rec.Producer),
		Varieties: namedNodes(rec.Variety),
	}

	if id := NodeID(rec.Brand); id != "" {
		p.Brand = &graph.NamedNode{ID: id, Name: collapse(rec.Brand)}
	}

	in := profile.Input{}
	if level, ok := ParseRoast(rec.RoastLevel); ok {
		p.Roast = &graph.NamedNode{ID: string(level), Name: RoastName(level)}
		in.Roast = level
	} else if strings.TrimSpace(rec.RoastLevel) != "" {
		warnings = append(warnings, fmt.Sprintf("unknown roast level %q", rec.RoastLevel))
	}

	origins, originWarnings := ParseOrigins(rec.Origin, rec.Region)
	p.Origins = origins
	warnings = append(warnings, originWarnings...)

	for _, proc := range p.Processes {
		in.Processes = append(in.Processes, ProcessKindOf(proc.Name))
	}

	seen := make(map[string]bool)
	for _, entry := range rec.TastingNotes {
		for _, text := range multiValueSeparators.Split(entry, -1) {
			text = collapse(text)
			key := NoteKey(text)
			if key == "" || seen[key] {
				continue
			}
			seen[key] = true
			c := b.classifier.Classify(text)
			p.Notes = append(p.Notes, graph.NoteNode{
				ID:            key,
				Text:          text,
				AttributeID:   c.AttributeID,
				SubcategoryID: c.SubcategoryID,
				CategoryID:    c.CategoryID,
			})
			in.Notes = append(in.Notes, profile.Note{AttributeID: c.AttributeID, CategoryIndex: c.CategoryIndex})
		}
	}

	derived := profile.Derive(in)
	p.FlavorProfile = derived.FlavorSlice()
	p.CharacterAxes = derived.AxesSlice()

	return p, warnings
}

func namedNodes(field string) []graph.NamedNode {
	values := SplitMulti(field)
	nodes := make([]graph.NamedNode, 0, len(values))
	for _, v := range values {
		nodes = append(nodes, graph.NamedNode{ID: NodeID(v), Name: v})
	}
	return nodes
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
