package normalize

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNodeID(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"costa rica", "CostaRica"},
		{"Costa Rica", "CostaRica"},
		{"  Costa   Rica ", "CostaRica"},
		{"EL SALVADOR", "ElSalvador"},
		{"El Salvador", "ElSalvador"},
		{"Tarrazú", "Tarrazu"},
		{"SL28", "Sl28"},
		{"sl28", "Sl28"},
		{"Costa RICA", "CostaRica"},
		{"KENYA AA", "KenyaAa"},
		{"McDonald", "McDonald"},
		{"CostaRica", "CostaRica"},
		{"Brazil-", "Brazil"},
		{"Guinea-Bissau", "GuineaBissau"},
		{"A B C D", "Abcd"},
		{"", ""},
		{"   ", ""},
		{"-", ""},
		{"/ , -", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NodeID(tt.in), "NodeID(%q)", tt.in)
	}
}

func TestNodeID_Idempotent(t *testing.T) {
	inputs := []string{
		"costa rica", "EL SALVADOR", "Tarrazú", "SL28", "SL 28 / SL 34", "Brazil-", "A B C D",
		"Finca El Paraíso", "KENYA AA", "ruiru 11", "Pacamara", "Sítio São José", "ABCD", "x",
		"1 A", "A1", "Costa RICA", "McDonald", "sl28",
	}
	for _, in := range inputs {
		once := NodeID(in)
		assert.Equal(t, once, NodeID(once), "NodeID not idempotent for %q", in)
	}
}

func TestNodeID_CaseInsensitiveForWholeWords(t *testing.T) {
	groups := [][]string{
		{"SL28", "sl28", "Sl28"},
		{"Costa Rica", "costa rica", "COSTA RICA", "Costa RICA", "costa Rica"},
		{"Ruiru 11", "RUIRU 11", "ruiru 11"},
	}
	for _, g := range groups {
		want := NodeID(g[0])
		for _, in := range g[1:] {
			assert.Equal(t, want, NodeID(in), "NodeID(%q)", in)
		}
	}
}

func TestNodeID_NeverDegenerate(t *testing.T) {
	inputs := []string{"Brazil-", "-Brazil", "Brazil - ", " / ", "Ethiopia,", ",,,", "🙂 Kenya"}
	for _, in := range inputs {
		id := NodeID(in)
		assert.False(t, strings.HasPrefix(id, OriginSeparator), "id %q from %q", id, in)
		assert.False(t, strings.HasSuffix(id, OriginSeparator), "id %q from %q", id, in)
		assert.NotContains(t, id, " ")
	}
}

func TestOriginID(t *testing.T) {
	assert.Equal(t, "Brazil", OriginID("Brazil", ""))
	assert.Equal(t, "Brazil", OriginID("Brazil", "   "))
	assert.Equal(t, "Brazil", OriginID("Brazil", "-"))
	assert.Equal(t, "CostaRica-Tarrazu", OriginID("Costa Rica", "Tarrazú"))
	assert.Equal(t, "", OriginID("", "Cerrado"))
	assert.Equal(t, "", OriginID("  ", ""))
}

func TestParseOriginID(t *testing.T) {
	tests := []struct {
		id, country, region string
	}{
		{"Brazil", "Brazil", ""},
		{"Brazil-", "Brazil", ""},
		{"-Brazil", "Brazil", ""},
		{"CostaRica-Tarrazu", "CostaRica", "Tarrazu"},
		{"", "", ""},
		{"-", "", ""},
	}
	for _, tt := range tests {
		c, r := ParseOriginID(tt.id)
		assert.Equal(t, tt.country, c, "country of %q", tt.id)
		assert.Equal(t, tt.region, r, "region of %q", tt.id)
	}
}

func TestSplitMulti(t *testing.T) {
	assert.Equal(t, []string{"Costa Rica", "Ethiopia"}, SplitMulti("Costa Rica / Ethiopia"))
	assert.Equal(t, []string{"Caturra", "Castillo"}, SplitMulti("Caturra, Castillo,"))
	assert.Equal(t, []string{"Bourbon"}, SplitMulti("Bourbon / bourbon / BOURBON"))
	assert.Empty(t, SplitMulti(""))
	assert.Empty(t, SplitMulti(" / , "))
}

func TestNoteKey(t *testing.T) {
	assert.Equal(t, "creme brulee", NoteKey("  Crème   Brûlée "))
	assert.Equal(t, NoteKey("Blackberry"), NoteKey("blackberry"))
	assert.Equal(t, "", NoteKey("!!"))
}
