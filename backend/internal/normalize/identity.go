// Package normalize turns canonical product records into distinct, normalized
// node identities. Everything here is pure: the same record always produces
// the same identities, and no input can produce an empty or degenerate one.
package normalize

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"brewgraph/backend/internal/textfold"
)

// OriginSeparator joins country and region in a region-qualified origin id
const OriginSeparator = "-"

// NodeID derives a natural-key identity from a display string: accents are
// folded, non-alphanumerics removed and the remaining words concatenated with
// their first rune upper-cased ("costa rica" -> "CostaRica"). A word with no
// lower-case letters is lower-cased first so "EL SALVADOR", "Costa RICA" and
// "SL28" agree with "El Salvador", "Costa Rica" and "sl28". Mixed-case words
// keep their case, which is what makes an id parse back to itself.
// Returns "" when s has no alphanumerics. NodeID(NodeID(s)) == NodeID(s).
func NodeID(s string) string {
	var b strings.Builder
	for _, w := range textfold.Words(s) {
		if !hasLower(w) {
			w = strings.ToLower(w)
		}
		b.WriteString(capitalize(w))
	}
	id := b.String()
	// single-letter words ("A B C D") can still concatenate into a shout
	if !hasLower(id) {
		id = capitalize(strings.ToLower(id))
	}
	return id
}

func hasLower(s string) bool {
	for _, r := range s {
		if unicode.IsLower(r) {
			return true
		}
	}
	return false
}

func capitalize(w string) string {
	r, size := utf8.DecodeRuneInString(w)
	if size == 0 {
		return w
	}
	return string(unicode.ToUpper(r)) + w[size:]
}

// OriginID builds the origin identity. A blank country yields "" (no origin
// node at all); a blank region yields the core-country id. The result never
// starts or ends with the separator.
func OriginID(country, region string) string {
	c := NodeID(country)
	if c == "" {
		return ""
	}
	r := NodeID(region)
	if r == "" {
		return c
	}
	return c + OriginSeparator + r
}

// ParseOriginID splits a (possibly malformed legacy) origin id back into its
// components. Empty segments are dropped, so "Brazil-" and "-Brazil" both
// parse to country "Brazil" with no region.
func ParseOriginID(id string) (country, region string) {
	var parts []string
	for _, p := range strings.Split(id, OriginSeparator) {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	switch len(parts) {
	case 0:
		return "", ""
	case 1:
		return parts[0], ""
	default:
		return parts[0], strings.Join(parts[1:], " ")
	}
}

// NoteKey is the identity of a raw tasting note
func NoteKey(raw string) string {
	return textfold.Key(raw)
}

var multiValueSeparators = regexp.MustCompile(`[/,]`)

// SplitMulti splits a delimiter-joined field ("Costa Rica / Ethiopia") into
// trimmed values, dropping blanks and values with no alphanumerics, and
// de-duplicating by NodeID while keeping first-seen order.
func SplitMulti(field string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, part := range multiValueSeparators.Split(field, -1) {
		part = strings.Join(strings.Fields(part), " ")
		id := NodeID(part)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, part)
	}
	return out
}
