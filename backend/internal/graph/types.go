package graph

import (
	"fmt"
	"time"
)

// ============================================================================
// Node labels and relationship types
// ============================================================================

// Node labels
const (
	LabelProduct     = "Product"
	LabelBrand       = "Brand"
	LabelRoastLevel  = "RoastLevel"
	LabelOrigin      = "Origin"
	LabelProcess     = "Process"
	LabelProducer    = "Producer"
	LabelVariety     = "Variety"
	LabelTastingNote = "TastingNote"
	LabelAttribute   = "Attribute"
	LabelSubcategory = "Subcategory"
	LabelCategory    = "SCACategory"
)

// Relationship types
const (
	RelFromOrigin    = "FROM_ORIGIN"
	RelHasProcess    = "HAS_PROCESS"
	RelProducedBy    = "PRODUCED_BY"
	RelHasVariety    = "HAS_VARIETY"
	RelHasRoastLevel = "HAS_ROAST_LEVEL"
	RelMadeBy        = "MADE_BY"
	RelHasNote       = "HAS_NOTE"
	RelIsA           = "IS_A"
	RelInSubcategory = "IN_SUBCATEGORY"
	RelInCategory    = "IN_CATEGORY"
)

// SweepableLabels are the only labels the orphan sweep may delete from.
// Taxonomy and tasting-note nodes are permanent.
var SweepableLabels = []string{LabelOrigin, LabelProcess, LabelProducer, LabelVariety}

// IsSweepable reports whether label may be passed to DeleteOrphans
func IsSweepable(label string) bool {
	for _, l := range SweepableLabels {
		if l == label {
			return true
		}
	}
	return false
}

// ============================================================================
// Graph Types
// ============================================================================

// NamedNode is a natural-key node (Brand, RoastLevel, Process, Producer, Variety)
type NamedNode struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// OriginNode is a core-country or region-qualified origin
type OriginNode struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Country string `json:"country"`
	Region  string `json:"region,omitempty"`
}

// IsRegion reports whether the node is region-qualified
func (o OriginNode) IsRegion() bool {
	return o.Region != ""
}

// NoteNode is a tier-4 tasting note together with its taxonomy placement
type NoteNode struct {
	ID            string `json:"id"`
	Text          string `json:"text"`
	AttributeID   string `json:"attribute_id"`
	SubcategoryID string `json:"subcategory_id"`
	CategoryID    string `json:"category_id"`
}

// Altitude is the growing altitude as supplied plus any parsed bounds in metres
type Altitude struct {
	Raw string `json:"raw,omitempty"`
	Min int    `json:"min_m,omitempty"`
	Max int    `json:"max_m,omitempty"`
}

// Product is a product node with every relationship it owns. It is both the
// unit written by SyncProduct and the shape returned by reads.
type Product struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Price    float64  `json:"price"`
	Currency string   `json:"currency,omitempty"`
	InStock  bool     `json:"in_stock"`
	Altitude Altitude `json:"altitude"`

	FlavorProfile []float64 `json:"flavor_profile"`
	CharacterAxes []float64 `json:"character_axes"`

	Brand     *NamedNode   `json:"brand,omitempty"`
	Roast     *NamedNode   `json:"roast,omitempty"`
	Origins   []OriginNode `json:"origins"`
	Processes []NamedNode  `json:"processes"`
	Producers []NamedNode  `json:"producers"`
	Varieties []NamedNode  `json:"varieties"`
	Notes     []NoteNode   `json:"notes"`

	SyncedAt time.Time `json:"synced_at"`
}

// BrandID returns the brand id or "" when the product has no brand
func (p *Product) BrandID() string {
	if p.Brand == nil {
		return ""
	}
	return p.Brand.ID
}

// RoastID returns the roast level id or "" when the roast is unknown
func (p *Product) RoastID() string {
	if p.Roast == nil {
		return ""
	}
	return p.Roast.ID
}

// Direction restricts candidates on one component of a product vector
type Direction struct {
	Axes  bool // false: flavor profile, true: character axes
	Index int
	Above bool // strictly greater than Value when true, strictly less otherwise
	Value float64
}

// Matches reports whether the product satisfies the restriction
func (d *Direction) Matches(p *Product) bool {
	vec := p.FlavorProfile
	if d.Axes {
		vec = p.CharacterAxes
	}
	var v float64
	if d.Index >= 0 && d.Index < len(vec) {
		v = vec[d.Index]
	}
	if d.Above {
		return v > d.Value
	}
	return v < d.Value
}

// Criteria selects products. Populated dimensions are combined with AND; the
// values inside one dimension are combined with OR. Results are ordered by
// product id.
type Criteria struct {
	IDs          []string
	NameContains string // matched against the folded product name
	BrandIDs     []string
	OriginIDs    []string
	ProcessIDs   []string
	RoastIDs     []string
	VarietyIDs   []string
	ProducerIDs  []string

	// NoteIDs and NoteAttributeIDs form a single dimension: a product matches
	// when it holds any of the notes or any note classified into the attributes.
	NoteIDs          []string
	NoteAttributeIDs []string

	InStockOnly bool
	MaxPrice    float64 // 0 means no bound
	ExcludeIDs  []string
	Direction   *Direction
	Limit       int // 0 means no limit
}

// OverlapLevel is a rung of the semantic fallback ladder
type OverlapLevel string

const (
	OverlapNotes         OverlapLevel = "notes"
	OverlapAttributes    OverlapLevel = "attributes"
	OverlapSubcategories OverlapLevel = "subcategories"
)

// OverlapLevels is the ladder in broadening order
var OverlapLevels = []OverlapLevel{OverlapNotes, OverlapAttributes, OverlapSubcategories}

// OverlapHit is a candidate sharing Shared distinct items with the reference
// at one ladder level
type OverlapHit struct {
	ProductID string
	Shared    int
}

// OverlapKeys returns the distinct keys a product contributes at a ladder level
func OverlapKeys(p *Product, level OverlapLevel) map[string]bool {
	keys := make(map[string]bool, len(p.Notes))
	for _, n := range p.Notes {
		switch level {
		case OverlapNotes:
			keys[n.ID] = true
		case OverlapAttributes:
			keys[n.AttributeID] = true
		case OverlapSubcategories:
			keys[n.SubcategoryID] = true
		}
	}
	return keys
}

// ============================================================================
// Errors
// ============================================================================

// ErrLabelNotSweepable is returned when DeleteOrphans is asked to touch a
// permanent label
type ErrLabelNotSweepable struct {
	Label string
}

func (e ErrLabelNotSweepable) Error() string {
	return fmt.Sprintf("label %s is exempt from orphan sweep", e.Label)
}
