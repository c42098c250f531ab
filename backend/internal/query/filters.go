package query

import (
	"sort"
	"strings"

	"brewgraph/backend/internal/graph"
	"brewgraph/backend/internal/normalize"
	"brewgraph/backend/internal/taxonomy"
	"brewgraph/backend/internal/textfold"
	apperrors "brewgraph/backend/pkg/errors"
)

// filterSet is the normalized form of Filters
type filterSet struct {
	criteria graph.Criteria
	// selecting is true when at least one relationship or name dimension
	// survived normalization. in_stock_only and max_price only refine.
	selecting bool
}

// compileFilters resolves caller filter values onto graph identities. Values
// that normalize to nothing are dropped; a roast outside the closed
// vocabulary is rejected.
func compileFilters(f Filters, classifier *taxonomy.Classifier) (filterSet, error) {
	var fs filterSet
	c := &fs.criteria

	if key := textfold.Key(f.Name); key != "" {
		c.NameContains = key
	}
	c.BrandIDs = nodeIDs(f.Brands)
	c.ProcessIDs = nodeIDs(f.Processes)
	c.VarietyIDs = nodeIDs(f.Varieties)
	c.ProducerIDs = nodeIDs(f.Producers)

	for _, o := range f.Origins {
		if id := originFilterID(o); id != "" {
			c.OriginIDs = appendUnique(c.OriginIDs, id)
		}
	}

	for _, r := range f.Roasts {
		if strings.TrimSpace(r) == "" {
			continue
		}
		level, ok := normalize.ParseRoast(r)
		if !ok {
			return fs, apperrors.NewInvalidArgument("roast", r, "not a known roast level")
		}
		c.RoastIDs = appendUnique(c.RoastIDs, string(level))
	}

	for _, n := range f.Notes {
		key := normalize.NoteKey(n)
		if key == "" {
			continue
		}
		c.NoteIDs = appendUnique(c.NoteIDs, key)
		if cls := classifier.Classify(n); cls.AttributeID != taxonomy.OtherAttributeID {
			c.NoteAttributeIDs = appendUnique(c.NoteAttributeIDs, cls.AttributeID)
		}
	}

	c.InStockOnly = f.InStockOnly
	if f.MaxPrice > 0 {
		c.MaxPrice = f.MaxPrice
	}

	fs.selecting = c.NameContains != "" ||
		len(c.BrandIDs) > 0 || len(c.OriginIDs) > 0 || len(c.ProcessIDs) > 0 ||
		len(c.RoastIDs) > 0 || len(c.VarietyIDs) > 0 || len(c.ProducerIDs) > 0 ||
		len(c.NoteIDs) > 0
	return fs, nil
}

// originFilterID accepts "Country", "Country - Region" or "Region, Country"
func originFilterID(v string) string {
	v = strings.Join(strings.Fields(v), " ")
	if country, region, ok := strings.Cut(v, " - "); ok {
		return normalize.OriginID(country, region)
	}
	if region, country, ok := strings.Cut(v, ", "); ok {
		return normalize.OriginID(country, region)
	}
	return normalize.OriginID(v, "")
}

func nodeIDs(values []string) []string {
	var out []string
	for _, v := range values {
		if id := normalize.NodeID(v); id != "" {
			out = appendUnique(out, id)
		}
	}
	return out
}

func appendUnique(list []string, v string) []string {
	if contains(list, v) {
		return list
	}
	return append(list, v)
}

// narrow intersects the caller's values for a dimension with the values a
// query type pins it to. A nil result with ok=false means nothing can match.
func narrow(pinned, requested []string) ([]string, bool) {
	if len(requested) == 0 {
		return pinned, len(pinned) > 0
	}
	var out []string
	for _, p := range pinned {
		for _, r := range requested {
			if p == r {
				out = append(out, p)
				break
			}
		}
	}
	return out, len(out) > 0
}

// matchedNotes lists the candidate note texts whose key is in keys, sorted
func matchedNotes(p *graph.Product, level graph.OverlapLevel, keys map[string]bool) []string {
	var out []string
	for _, n := range p.Notes {
		var k string
		switch level {
		case graph.OverlapAttributes:
			k = n.AttributeID
		case graph.OverlapSubcategories:
			k = n.SubcategoryID
		default:
			k = n.ID
		}
		if keys[k] {
			out = append(out, n.Text)
		}
	}
	sort.Strings(out)
	return out
}

// ladderKeys are the reference keys that count toward overlap at a level
func ladderKeys(ref *graph.Product, level graph.OverlapLevel) map[string]bool {
	keys := graph.OverlapKeys(ref, level)
	delete(keys, "")
	delete(keys, taxonomy.OtherAttributeID)
	delete(keys, taxonomy.OtherSubcategoryID)
	return keys
}

// filterMatchedNotes lists the candidate note texts a note filter hit, sorted
func filterMatchedNotes(p *graph.Product, c graph.Criteria) []string {
	var out []string
	for _, n := range p.Notes {
		if contains(c.NoteIDs, n.ID) || contains(c.NoteAttributeIDs, n.AttributeID) {
			out = append(out, n.Text)
		}
	}
	sort.Strings(out)
	return out
}

func contains(list []string, v string) bool {
	for _, have := range list {
		if have == v {
			return true
		}
	}
	return false
}
