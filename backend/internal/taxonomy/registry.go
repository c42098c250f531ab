// Package taxonomy loads the fixed four-tier flavor taxonomy
// (category -> subcategory -> attribute, plus raw tasting notes that classify
// into attributes) and exposes it as an immutable, read-only registry.
package taxonomy

import (
	_ "embed"
	"fmt"
	"sort"
	"strings"

	"brewgraph/backend/internal/textfold"

	"gopkg.in/yaml.v3"
)

//go:embed wheel.yaml
var wheelYAML []byte

// CategoryCount is the number of top-tier categories and the length of a
// product flavor profile.
const CategoryCount = 9

// Reserved catch-all identities. Unmatched note text resolves here.
const (
	OtherCategoryID    = "other"
	OtherSubcategoryID = "other.unclassified"
	OtherAttributeID   = "other.unclassified.other"
)

// Category is a tier-1 node
type Category struct {
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	Index         int      `json:"index"` // position in the flavor-profile vector
	Subcategories []string `json:"subcategories"`
}

// Subcategory is a tier-2 node
type Subcategory struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	CategoryID string   `json:"category_id"`
	Attributes []string `json:"attributes"`
}

// Attribute is a tier-3 node
type Attribute struct {
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	SubcategoryID string   `json:"subcategory_id"`
	CategoryID    string   `json:"category_id"`
	Keywords      []string `json:"keywords"`
}

// Registry is the loaded taxonomy. It is never mutated after Load returns and
// is safe to share between goroutines.
type Registry struct {
	categories    []Category
	subcategories []Subcategory
	attributes    []Attribute

	categoryByID    map[string]int
	categoryByKey   map[string]int
	subcategoryByID map[string]int
	attributeByID   map[string]int

	// keywords sorted longest first, registry order within equal length
	keywords []keyword
}

type keyword struct {
	words       []string
	length      int
	attributeID string
	order       int
}

type wheelFile struct {
	Categories []struct {
		ID            string `yaml:"id"`
		Name          string `yaml:"name"`
		Subcategories []struct {
			Name       string `yaml:"name"`
			Attributes []struct {
				Name     string   `yaml:"name"`
				Keywords []string `yaml:"keywords"`
			} `yaml:"attributes"`
		} `yaml:"subcategories"`
	} `yaml:"categories"`
}

// Load builds the registry from the embedded flavor wheel
func Load() (*Registry, error) {
	return Parse(wheelYAML)
}

// Parse builds a registry from wheel YAML and validates its shape
func Parse(data []byte) (*Registry, error) {
	var wf wheelFile
	if err := yaml.Unmarshal(data, &wf); err != nil {
		return nil, fmt.Errorf("failed to parse taxonomy: %w", err)
	}

	if len(wf.Categories) != CategoryCount {
		return nil, fmt.Errorf("taxonomy must define exactly %d categories, got %d", CategoryCount, len(wf.Categories))
	}

	r := &Registry{
		categoryByID:    make(map[string]int),
		categoryByKey:   make(map[string]int),
		subcategoryByID: make(map[string]int),
		attributeByID:   make(map[string]int),
	}
	keywordOwner := make(map[string]string)

	for ci, c := range wf.Categories {
		if c.ID == "" || c.Name == "" {
			return nil, fmt.Errorf("category %d is missing id or name", ci)
		}
		if _, dup := r.categoryByID[c.ID]; dup {
			return nil, fmt.Errorf("duplicate category id %q", c.ID)
		}
		cat := Category{ID: c.ID, Name: c.Name, Index: ci}

		for _, s := range c.Subcategories {
			subID := c.ID + "." + slug(s.Name)
			if _, dup := r.subcategoryByID[subID]; dup {
				return nil, fmt.Errorf("duplicate subcategory id %q", subID)
			}
			if len(s.Attributes) == 0 {
				return nil, fmt.Errorf("subcategory %q has no attributes", subID)
			}
			sub := Subcategory{ID: subID, Name: s.Name, CategoryID: c.ID}

			for _, a := range s.Attributes {
				attrID := subID + "." + slug(a.Name)
				if _, dup := r.attributeByID[attrID]; dup {
					return nil, fmt.Errorf("duplicate attribute id %q", attrID)
				}
				attr := Attribute{
					ID:            attrID,
					Name:          a.Name,
					SubcategoryID: subID,
					CategoryID:    c.ID,
				}
				for _, kw := range append([]string{a.Name}, a.Keywords...) {
					key := textfold.Key(kw)
					if key == "" {
						continue
					}
					if owner, seen := keywordOwner[key]; seen {
						if owner != attrID {
							return nil, fmt.Errorf("keyword %q claimed by both %s and %s", key, owner, attrID)
						}
						continue
					}
					keywordOwner[key] = attrID
					attr.Keywords = append(attr.Keywords, key)
					r.keywords = append(r.keywords, keyword{
						words:       strings.Fields(key),
						length:      len([]rune(key)),
						attributeID: attrID,
						order:       len(r.keywords),
					})
				}
				if len(attr.Keywords) == 0 {
					return nil, fmt.Errorf("attribute %q has no usable keywords", attrID)
				}

				r.attributeByID[attrID] = len(r.attributes)
				r.attributes = append(r.attributes, attr)
				sub.Attributes = append(sub.Attributes, attrID)
			}

			r.subcategoryByID[subID] = len(r.subcategories)
			r.subcategories = append(r.subcategories, sub)
			cat.Subcategories = append(cat.Subcategories, subID)
		}

		r.categoryByID[c.ID] = ci
		r.categoryByKey[textfold.Key(c.Name)] = ci
		r.categoryByKey[textfold.Key(c.ID)] = ci
		r.categories = append(r.categories, cat)
	}

	if _, ok := r.attributeByID[OtherAttributeID]; !ok {
		return nil, fmt.Errorf("taxonomy is missing reserved attribute %q", OtherAttributeID)
	}

	sort.SliceStable(r.keywords, func(i, j int) bool {
		if r.keywords[i].length != r.keywords[j].length {
			return r.keywords[i].length > r.keywords[j].length
		}
		return r.keywords[i].order < r.keywords[j].order
	})

	return r, nil
}

// Categories returns the categories in vector order
func (r *Registry) Categories() []Category {
	out := make([]Category, len(r.categories))
	copy(out, r.categories)
	return out
}

// Subcategories returns all subcategories in registry order
func (r *Registry) Subcategories() []Subcategory {
	out := make([]Subcategory, len(r.subcategories))
	copy(out, r.subcategories)
	return out
}

// Attributes returns all attributes in registry order
func (r *Registry) Attributes() []Attribute {
	out := make([]Attribute, len(r.attributes))
	copy(out, r.attributes)
	return out
}

// Category looks up a category by id
func (r *Registry) Category(id string) (Category, bool) {
	i, ok := r.categoryByID[id]
	if !ok {
		return Category{}, false
	}
	return r.categories[i], true
}

// CategoryByName resolves a category from its display name or id, ignoring
// case, accents and punctuation ("Nutty/Cocoa", "nutty cocoa", "nutty_cocoa").
func (r *Registry) CategoryByName(name string) (Category, bool) {
	i, ok := r.categoryByKey[textfold.Key(name)]
	if !ok {
		return Category{}, false
	}
	return r.categories[i], true
}

// Subcategory looks up a subcategory by id
func (r *Registry) Subcategory(id string) (Subcategory, bool) {
	i, ok := r.subcategoryByID[id]
	if !ok {
		return Subcategory{}, false
	}
	return r.subcategories[i], true
}

// Attribute looks up an attribute by id
func (r *Registry) Attribute(id string) (Attribute, bool) {
	i, ok := r.attributeByID[id]
	if !ok {
		return Attribute{}, false
	}
	return r.attributes[i], true
}

// CategoryIndex returns the flavor-profile index of an attribute's category
func (r *Registry) CategoryIndex(attributeID string) (int, bool) {
	a, ok := r.Attribute(attributeID)
	if !ok {
		return 0, false
	}
	return r.categoryByID[a.CategoryID], true
}

func slug(name string) string {
	return strings.ReplaceAll(textfold.Key(name), " ", "_")
}
