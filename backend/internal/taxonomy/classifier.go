package taxonomy

import (
	"strings"

	"brewgraph/backend/internal/textfold"
)

// Classification is the taxonomy placement of one raw tasting note
type Classification struct {
	AttributeID   string `json:"attribute_id"`
	SubcategoryID string `json:"subcategory_id"`
	CategoryID    string `json:"category_id"`
	CategoryIndex int    `json:"category_index"`
	Keyword       string `json:"keyword,omitempty"` // empty when the note fell through to "other"
}

// Classifier maps raw tasting-note text onto registry attributes. It holds no
// mutable state; one instance can serve every goroutine.
type Classifier struct {
	registry *Registry
	other    Classification
}

// NewClassifier creates a classifier over a loaded registry
func NewClassifier(registry *Registry) *Classifier {
	otherIdx := registry.categoryByID[OtherCategoryID]
	return &Classifier{
		registry: registry,
		other: Classification{
			AttributeID:   OtherAttributeID,
			SubcategoryID: OtherSubcategoryID,
			CategoryID:    OtherCategoryID,
			CategoryIndex: otherIdx,
		},
	}
}

// Registry returns the registry this classifier reads from
func (c *Classifier) Registry() *Registry {
	return c.registry
}

// Classify resolves raw note text to exactly one attribute. Matching is
// case- and accent-insensitive on word boundaries; the longest matching
// keyword wins so "dark chocolate" never collapses into "chocolate".
// Text with no match resolves to the reserved "other" attribute.
func (c *Classifier) Classify(raw string) Classification {
	words := textfold.LowerWords(raw)
	if len(words) == 0 {
		return c.other
	}

	for _, kw := range c.registry.keywords {
		if containsPhrase(words, kw.words) {
			attr := c.registry.attributes[c.registry.attributeByID[kw.attributeID]]
			return Classification{
				AttributeID:   attr.ID,
				SubcategoryID: attr.SubcategoryID,
				CategoryID:    attr.CategoryID,
				CategoryIndex: c.registry.categoryByID[attr.CategoryID],
				Keyword:       strings.Join(kw.words, " "),
			}
		}
	}
	return c.other
}

// containsPhrase reports whether phrase occurs as consecutive words of text.
// The final word may carry a plural suffix ("s", "es", "y" -> "ies").
func containsPhrase(text, phrase []string) bool {
	n := len(phrase)
	if n == 0 || n > len(text) {
		return false
	}
	for i := 0; i+n <= len(text); i++ {
		match := true
		for j := 0; j < n; j++ {
			if !wordMatches(text[i+j], phrase[j], j == n-1) {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}
	return false
}

func wordMatches(word, want string, allowPlural bool) bool {
	if word == want {
		return true
	}
	if !allowPlural {
		return false
	}
	if word == want+"s" || word == want+"es" {
		return true
	}
	return strings.HasSuffix(want, "y") && word == want[:len(want)-1]+"ies"
}
