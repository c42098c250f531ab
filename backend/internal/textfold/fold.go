// Package textfold holds the text folding shared by identity generation and
// tasting-note classification, so both sides agree on what "the same text" is.
package textfold

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Fold strips diacritics ("Perú" -> "Peru", "crème brûlée" -> "creme brulee").
// A fresh transformer is built per call; transform.Chain is not safe for
// concurrent use.
func Fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// Words splits folded text into alphanumeric words, preserving case.
func Words(s string) []string {
	return strings.FieldsFunc(Fold(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// LowerWords is Words lower-cased.
func LowerWords(s string) []string {
	words := Words(s)
	for i, w := range words {
		words[i] = strings.ToLower(w)
	}
	return words
}

// Key is the canonical comparison form: folded, lower-cased words joined by
// single spaces. Empty when s has no alphanumerics.
func Key(s string) string {
	return strings.Join(LowerWords(s), " ")
}
