package query

import (
	"math"
	"sort"

	"brewgraph/backend/internal/graph"
	"brewgraph/backend/internal/profile"
)

// Hybrid score weights and the value ranges used to normalize a delta
const (
	similarityWeight = 0.7
	deltaWeight      = 0.3

	categoryRange = 1.0
	axisRange     = 2.0
)

// ladderBase is added to the rung's overlap ratio so rungs never interleave
var ladderBase = map[graph.OverlapLevel]float64{
	graph.OverlapNotes:         2,
	graph.OverlapAttributes:    1,
	graph.OverlapSubcategories: 0,
}

type scored struct {
	product *graph.Product
	score   float64
	level   string
	matched []string
}

func vectorOf(p *graph.Product) []float64 {
	return profile.Combined(p.FlavorProfile, p.CharacterAxes)
}

// hybrid combines 13-d similarity with a normalized directional delta
func hybrid(refVec []float64, cand *graph.Product, delta, width float64) float64 {
	sim := profile.Cosine(refVec, vectorOf(cand))
	norm := math.Abs(delta) / width
	if norm > 1 {
		norm = 1
	}
	return similarityWeight*sim + deltaWeight*norm
}

// component reads one vector component, 0 when the vector is short
func component(vec []float64, i int) float64 {
	if i < 0 || i >= len(vec) {
		return 0
	}
	return vec[i]
}

// rank orders by score desc then product id asc and keeps the first limit
func rank(items []scored, limit int) []Result {
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].score != items[j].score {
			return items[i].score > items[j].score
		}
		return items[i].product.ID < items[j].product.ID
	})
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	out := make([]Result, 0, len(items))
	for _, it := range items {
		out = append(out, newResult(it.product, round(it.score), it.level, it.matched))
	}
	return out
}

// round trims float noise so equal scores compare equal across backends
func round(v float64) float64 {
	return math.Round(v*1e6) / 1e6
}

func sharedCount(have []string, ref map[string]bool) int {
	n := 0
	for _, h := range have {
		if ref[h] {
			n++
		}
	}
	return n
}

func idSet(ids []string) map[string]bool {
	out := make(map[string]bool, len(ids))
	for _, id := range ids {
		if id != "" {
			out[id] = true
		}
	}
	return out
}

func originIDs(p *graph.Product) []string {
	out := make([]string, 0, len(p.Origins))
	for _, o := range p.Origins {
		out = append(out, o.ID)
	}
	return out
}

func namedIDs(nodes []graph.NamedNode) []string {
	out := make([]string, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, n.ID)
	}
	return out
}

func noteIDs(p *graph.Product) map[string]bool {
	out := make(map[string]bool, len(p.Notes))
	for _, n := range p.Notes {
		out[n.ID] = true
	}
	return out
}
