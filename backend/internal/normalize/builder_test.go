package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"brewgraph/backend/internal/profile"
	"brewgraph/backend/internal/taxonomy"
	apperrors "brewgraph/backend/pkg/errors"
)

func newTestBuilder(t *testing.T) *Builder {
	t.Helper()
	reg, err := taxonomy.Load()
	require.NoError(t, err)
	return NewBuilder(taxonomy.NewClassifier(reg))
}

func sampleRecord() *ProductRecord {
	return &ProductRecord{
		ID:           "sq-001",
		Name:         "  Finca   La Esperanza ",
		Brand:        "Square Mile",
		Price:        14.5,
		Currency:     "gbp",
		InStock:      true,
		Origin:       "Colombia",
		Region:       "Huila",
		Process:      "Washed / Anaerobic Natural",
		Producer:     "Elias Roa",
		Variety:      "Pink Bourbon, Caturra",
		Altitude:     "1,750 - 1,900 masl",
		TastingNotes: []string{"Blackberry", "jasmine, caramel", "blackberry"},
		RoastLevel:   "Light",
	}
}

func TestBuild(t *testing.T) {
	b := newTestBuilder(t)
	p, warnings := b.Build(sampleRecord())

	assert.Empty(t, warnings)
	assert.Equal(t, "sq-001", p.ID)
	assert.Equal(t, "Finca La Esperanza", p.Name)
	assert.Equal(t, "GBP", p.Currency)
	require.NotNil(t, p.Brand)
	assert.Equal(t, "SquareMile", p.Brand.ID)
	require.NotNil(t, p.Roast)
	assert.Equal(t, "light", p.Roast.ID)
	assert.Equal(t, "Light", p.Roast.Name)

	assert.Equal(t, []string{"Colombia", "Colombia-Huila"}, originIDs(p.Origins))
	assert.Len(t, p.Processes, 2)
	assert.Equal(t, "AnaerobicNatural", p.Processes[1].ID)
	assert.Len(t, p.Varieties, 2)
	assert.Equal(t, 1750, p.Altitude.Min)
	assert.Equal(t, 1900, p.Altitude.Max)

	require.Len(t, p.Notes, 3)
	assert.Equal(t, "blackberry", p.Notes[0].ID)
	assert.Equal(t, "fruity.berry.blackberry", p.Notes[0].AttributeID)
	assert.Equal(t, "floral.floral.jasmine", p.Notes[1].AttributeID)
	assert.Equal(t, "sweet", p.Notes[2].CategoryID)

	require.Len(t, p.FlavorProfile, profile.FlavorDims)
	require.Len(t, p.CharacterAxes, profile.AxisDims)
	assert.InDelta(t, 1.0/3, p.FlavorProfile[0], 1e-9)
}

func TestBuild_Deterministic(t *testing.T) {
	b := newTestBuilder(t)
	p1, _ := b.Build(sampleRecord())
	p2, _ := b.Build(sampleRecord())
	assert.Equal(t, p1, p2)
}

func TestBuild_SparseRecord(t *testing.T) {
	b := newTestBuilder(t)
	p, warnings := b.Build(&ProductRecord{ID: "x", Name: "Mystery Beans", RoastLevel: "surprise"})

	assert.Len(t, warnings, 1)
	assert.Nil(t, p.Brand)
	assert.Nil(t, p.Roast)
	assert.Empty(t, p.Origins)
	assert.Empty(t, p.Notes)
	assert.Equal(t, make([]float64, profile.FlavorDims), p.FlavorProfile)
	assert.Equal(t, make([]float64, profile.AxisDims), p.CharacterAxes)
}

func TestValidate(t *testing.T) {
	assert.NoError(t, sampleRecord().Validate())

	bad := []*ProductRecord{
		{ID: "", Name: "x"},
		{ID: "   ", Name: "x"},
		{ID: "a", Name: " "},
		{ID: "a", Name: "x", Price: -1},
		{ID: "a", Name: "x", Currency: "EURO"},
	}
	for _, rec := range bad {
		err := rec.Validate()
		require.Error(t, err, "%+v", rec)
		assert.True(t, apperrors.IsInvalidArgument(err))
		assert.True(t, apperrors.IsErrorType(err, apperrors.ErrorTypeIngest))
	}
}

func TestValidate_TrimsID(t *testing.T) {
	rec := sampleRecord()
	rec.ID = "  sq-001\n"
	require.NoError(t, rec.Validate())
	assert.Equal(t, "sq-001", rec.ID)
}

func TestParseRoast(t *testing.T) {
	tests := []struct {
		in   string
		want profile.RoastLevel
		ok   bool
	}{
		{"Light", profile.RoastLight, true},
		{"light roast", profile.RoastLight, true},
		{"Medium-Light", profile.RoastMediumLight, true},
		{"medium light", profile.RoastMediumLight, true},
		{"Medium", profile.RoastMedium, true},
		{"Medium Dark", profile.RoastMediumDark, true},
		{"French", profile.RoastDark, true},
		{"DARK", profile.RoastDark, true},
		{"", "", false},
		{"omni", "", false},
	}
	for _, tt := range tests {
		got, ok := ParseRoast(tt.in)
		assert.Equal(t, tt.ok, ok, "ParseRoast(%q)", tt.in)
		assert.Equal(t, tt.want, got, "ParseRoast(%q)", tt.in)
	}
	assert.Equal(t, "Medium-Dark", RoastName(profile.RoastMediumDark))
}

func TestProcessKindOf(t *testing.T) {
	tests := []struct {
		in   string
		want profile.ProcessKind
	}{
		{"Washed", profile.ProcessWashed},
		{"Fully Washed", profile.ProcessWashed},
		{"Natural", profile.ProcessNatural},
		{"Anaerobic Natural", profile.ProcessAnaerobic},
		{"Red Honey", profile.ProcessHoney},
		{"Pulped Natural", profile.ProcessHoney},
		{"Wet-Hulled", profile.ProcessWetHulled},
		{"Giling Basah", profile.ProcessWetHulled},
		{"Experimental", profile.ProcessOther},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ProcessKindOf(tt.in), "ProcessKindOf(%q)", tt.in)
	}
}

func TestParseAltitude(t *testing.T) {
	a := ParseAltitude("1,800 - 2,100 masl")
	assert.Equal(t, 1800, a.Min)
	assert.Equal(t, 2100, a.Max)
	assert.Equal(t, "1,800 - 2,100 masl", a.Raw)

	a = ParseAltitude("1650m")
	assert.Equal(t, 1650, a.Min)
	assert.Equal(t, 1650, a.Max)

	a = ParseAltitude("5000 ft")
	assert.Equal(t, 1524, a.Min)

	a = ParseAltitude("high grown")
	assert.Zero(t, a.Min)
	assert.Zero(t, a.Max)
	assert.Equal(t, "high grown", a.Raw)

	assert.Equal(t, "", ParseAltitude("   ").Raw)
}
