package query

import "brewgraph/backend/internal/graph"

// QueryType is the closed set of comparative queries
type QueryType string

const (
	SearchByName             QueryType = "search_by_name"
	SearchByBrand            QueryType = "search_by_brand"
	SameOrigin               QueryType = "same_origin"
	SameRoast                QueryType = "same_roast"
	SameProcess              QueryType = "same_process"
	MoreCategory             QueryType = "more_category"
	LessCategory             QueryType = "less_category"
	SameOriginMoreCategory   QueryType = "same_origin_more_category"
	SameOriginDifferentRoast QueryType = "same_origin_different_roast"
	MoreAxis                 QueryType = "more_axis"
	LessAxis                 QueryType = "less_axis"
	SimilarProfile           QueryType = "similar_profile"
	SimilarFlavor            QueryType = "similar_flavor"
	CustomFilter             QueryType = "custom_filter"
)

// QueryTypes lists every supported type
var QueryTypes = []QueryType{
	SearchByName, SearchByBrand, SameOrigin, SameRoast, SameProcess,
	MoreCategory, LessCategory, SameOriginMoreCategory, SameOriginDifferentRoast,
	MoreAxis, LessAxis, SimilarProfile, SimilarFlavor, CustomFilter,
}

// needsReference reports whether the type is defined relative to a product
func (t QueryType) needsReference() bool {
	switch t {
	case SearchByName, SearchByBrand, CustomFilter:
		return false
	}
	return true
}

// Filters are the caller's filter parameters. List dimensions combine with
// AND across dimensions and OR within one.
type Filters struct {
	Name        string   `json:"name,omitempty"`
	Brands      []string `json:"brands,omitempty"`
	Origins     []string `json:"origins,omitempty"`
	Processes   []string `json:"processes,omitempty"`
	Roasts      []string `json:"roasts,omitempty"`
	Varieties   []string `json:"varieties,omitempty"`
	Producers   []string `json:"producers,omitempty"`
	Notes       []string `json:"notes,omitempty"`
	Category    string   `json:"category,omitempty"`
	Axis        string   `json:"axis,omitempty"`
	InStockOnly bool     `json:"in_stock_only,omitempty"`
	MaxPrice    float64  `json:"max_price,omitempty"`
}

// Request is one structured query
type Request struct {
	Type               QueryType `json:"type"`
	ReferenceProductID string    `json:"reference_product_id,omitempty"`
	Filters            Filters   `json:"filters"`
	Limit              int       `json:"limit,omitempty"`
	TimeoutMS          int       `json:"timeout_ms,omitempty"`
}

// Match levels reported with each result
const (
	MatchName    = "name"
	MatchBrand   = "brand"
	MatchOrigin  = "origin"
	MatchRoast   = "roast"
	MatchProcess = "process"
	MatchOverlap = "overlap"
	MatchVector  = "vector"
	MatchFilter  = "filter"
	MatchNotes   = string(graph.OverlapNotes)
	MatchAttrs   = string(graph.OverlapAttributes)
	MatchSubcats = string(graph.OverlapSubcategories)
)

// Result is one ranked product
type Result struct {
	ProductID    string   `json:"product_id"`
	Name         string   `json:"name"`
	Brand        string   `json:"brand,omitempty"`
	Price        float64  `json:"price"`
	Currency     string   `json:"currency,omitempty"`
	InStock      bool     `json:"in_stock"`
	Origins      []string `json:"origins"`
	Processes    []string `json:"processes"`
	Varieties    []string `json:"varieties"`
	Roast        string   `json:"roast,omitempty"`
	MatchedNotes []string `json:"matched_notes"`
	Score        float64  `json:"score"`
	MatchLevel   string   `json:"match_level"`
}

func newResult(p *graph.Product, score float64, level string, matched []string) Result {
	r := Result{
		ProductID:    p.ID,
		Name:         p.Name,
		Price:        p.Price,
		Currency:     p.Currency,
		InStock:      p.InStock,
		Origins:      make([]string, 0, len(p.Origins)),
		Processes:    make([]string, 0, len(p.Processes)),
		Varieties:    make([]string, 0, len(p.Varieties)),
		MatchedNotes: matched,
		Score:        score,
		MatchLevel:   level,
	}
	if r.MatchedNotes == nil {
		r.MatchedNotes = []string{}
	}
	if p.Brand != nil {
		r.Brand = p.Brand.Name
	}
	if p.Roast != nil {
		r.Roast = p.Roast.Name
	}
	for _, o := range p.Origins {
		r.Origins = append(r.Origins, o.Name)
	}
	for _, n := range p.Processes {
		r.Processes = append(r.Processes, n.Name)
	}
	for _, n := range p.Varieties {
		r.Varieties = append(r.Varieties, n.Name)
	}
	return r
}
