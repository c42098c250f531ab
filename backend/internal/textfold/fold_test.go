package textfold

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFold(t *testing.T) {
	assert.Equal(t, "Peru", Fold("Perú"))
	assert.Equal(t, "creme brulee", Fold("crème brûlée"))
	assert.Equal(t, "Tarrazu", Fold("Tarrazú"))
}

func TestKey(t *testing.T) {
	tests := map[string]string{
		"Dark Chocolate":     "dark chocolate",
		"  dark   CHOCOLATE ": "dark chocolate",
		"Crème-Brûlée!":      "creme brulee",
		"baker's chocolate":  "baker s chocolate",
		" / , ":              "",
		"":                   "",
	}
	for in, want := range tests {
		assert.Equal(t, want, Key(in), "Key(%q)", in)
	}
}

func TestKey_Idempotent(t *testing.T) {
	for _, in := range []string{"Yirgacheffe Kochere", "SL-28 / SL34", "Ñuñoa"} {
		once := Key(in)
		assert.Equal(t, once, Key(once))
	}
}
