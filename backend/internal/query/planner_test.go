package query

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"brewgraph/backend/internal/graph"
	"brewgraph/backend/internal/graph/memgraph"
	"brewgraph/backend/internal/normalize"
	"brewgraph/backend/internal/profile"
	"brewgraph/backend/internal/taxonomy"
	apperrors "brewgraph/backend/pkg/errors"
)

type fixture struct {
	t          *testing.T
	store      *memgraph.Store
	classifier *taxonomy.Classifier
	planner    *Planner
}

func newFixture(t *testing.T, opts Options) *fixture {
	t.Helper()
	reg, err := taxonomy.Load()
	require.NoError(t, err)
	classifier := taxonomy.NewClassifier(reg)

	store := memgraph.New()
	require.NoError(t, store.SeedTaxonomy(context.Background(), reg))
	return &fixture{t: t, store: store, classifier: classifier, planner: NewPlanner(store, classifier, opts)}
}

// product is a builder for graph products with hand-set vectors
type product struct {
	p *graph.Product
	f *fixture
}

func (f *fixture) product(id string) *product {
	return &product{f: f, p: &graph.Product{
		ID:            id,
		Name:          "Coffee " + id,
		Price:         10,
		Currency:      "EUR",
		InStock:       true,
		FlavorProfile: make([]float64, profile.FlavorDims),
		CharacterAxes: make([]float64, profile.AxisDims),
	}}
}

func (b *product) name(n string) *product { b.p.Name = n; return b }

func (b *product) flavor(i int, v float64) *product { b.p.FlavorProfile[i] = v; return b }

func (b *product) axis(i int, v float64) *product { b.p.CharacterAxes[i] = v; return b }

func (b *product) brand(name string) *product {
	b.p.Brand = &graph.NamedNode{ID: normalize.NodeID(name), Name: name}
	return b
}

func (b *product) roast(level profile.RoastLevel) *product {
	b.p.Roast = &graph.NamedNode{ID: string(level), Name: normalize.RoastName(level)}
	return b
}

func (b *product) origin(country, region string) *product {
	b.p.Origins = append(b.p.Origins, normalize.CoreOrigin(country))
	if region != "" {
		b.p.Origins = append(b.p.Origins, normalize.RegionOrigin(country, region))
	}
	return b
}

func (b *product) process(name string) *product {
	b.p.Processes = append(b.p.Processes, graph.NamedNode{ID: normalize.NodeID(name), Name: name})
	return b
}

func (b *product) notes(texts ...string) *product {
	for _, text := range texts {
		cls := b.f.classifier.Classify(text)
		b.p.Notes = append(b.p.Notes, graph.NoteNode{
			ID:            normalize.NoteKey(text),
			Text:          text,
			AttributeID:   cls.AttributeID,
			SubcategoryID: cls.SubcategoryID,
			CategoryID:    cls.CategoryID,
		})
	}
	return b
}

func (b *product) outOfStock() *product { b.p.InStock = false; return b }

func (b *product) save() {
	b.f.t.Helper()
	require.NoError(b.f.t, b.f.store.SyncProduct(context.Background(), b.p))
}

func ids(results []Result) []string {
	out := make([]string, 0, len(results))
	for _, r := range results {
		out = append(out, r.ProductID)
	}
	return out
}

func TestSimilarFlavor_Ladder(t *testing.T) {
	f := newFixture(t, Options{})
	f.product("a").notes("blackberry", "jasmine").save()
	f.product("b").notes("blackberry", "caramel").save()
	f.product("c").notes("smoky").save()
	f.product("d").notes("raspberry").save()
	f.product("e").notes("blackberries").save()

	results, err := f.planner.Execute(context.Background(), Request{
		Type:               SimilarFlavor,
		ReferenceProductID: "a",
		Limit:              5,
	})
	require.NoError(t, err)

	// b shares a note, e an attribute, d a subcategory; c shares nothing
	require.Equal(t, []string{"b", "e", "d"}, ids(results))
	assert.Equal(t, MatchNotes, results[0].MatchLevel)
	assert.InDelta(t, 2.5, results[0].Score, 1e-9)
	assert.Equal(t, []string{"blackberry"}, results[0].MatchedNotes)
	assert.Equal(t, MatchAttrs, results[1].MatchLevel)
	assert.InDelta(t, 1.5, results[1].Score, 1e-9)
	assert.Equal(t, []string{"blackberries"}, results[1].MatchedNotes)
	assert.Equal(t, MatchSubcats, results[2].MatchLevel)
	assert.InDelta(t, 0.5, results[2].Score, 1e-9)
}

func TestSimilarFlavor_StopsBroadeningAtLimit(t *testing.T) {
	f := newFixture(t, Options{})
	f.product("a").notes("blackberry", "jasmine").save()
	f.product("b").notes("blackberry", "caramel").save()
	f.product("d").notes("raspberry").save()

	results, err := f.planner.Execute(context.Background(), Request{Type: SimilarFlavor, ReferenceProductID: "a", Limit: 1})
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, ids(results))
}

func TestSimilarFlavor_UnclassifiedNotesDoNotBroaden(t *testing.T) {
	f := newFixture(t, Options{})
	f.product("a").notes("unobtainium").save()
	f.product("b").notes("moon dust").save()

	results, err := f.planner.Execute(context.Background(), Request{Type: SimilarFlavor, ReferenceProductID: "a"})
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestMoreCategory_ExcludesAtOrBelowReference(t *testing.T) {
	f := newFixture(t, Options{})
	f.product("ref").flavor(5, 0.2).flavor(0, 0.8).save()
	f.product("equal").flavor(5, 0.2).save()
	f.product("below").flavor(5, 0.1).save()
	f.product("above").flavor(5, 0.5).flavor(0, 0.5).save()
	f.product("far").flavor(5, 0.9).save()

	results, err := f.planner.Execute(context.Background(), Request{
		Type:               MoreCategory,
		ReferenceProductID: "ref",
		Filters:            Filters{Category: "Roasted"},
	})
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"above", "far"}, ids(results))
	for _, r := range results {
		assert.Equal(t, MatchVector, r.MatchLevel)
	}

	refVec := profile.Combined([]float64{0.8, 0, 0, 0, 0, 0.2, 0, 0, 0}, nil)
	aboveVec := profile.Combined([]float64{0.5, 0, 0, 0, 0, 0.5, 0, 0, 0}, nil)
	want := 0.7*profile.Cosine(refVec, aboveVec) + 0.3*0.3
	for _, r := range results {
		if r.ProductID == "above" {
			assert.InDelta(t, want, r.Score, 1e-6)
		}
	}
}

func TestMoreCategory_PrefersNoteOverlap(t *testing.T) {
	f := newFixture(t, Options{})
	f.product("ref").flavor(5, 0.2).notes("smoky").save()
	f.product("sharing").flavor(5, 0.6).notes("smoky").save()
	f.product("stranger").flavor(5, 0.9).save()

	results, err := f.planner.Execute(context.Background(), Request{
		Type:               MoreCategory,
		ReferenceProductID: "ref",
		Filters:            Filters{Category: "roasted"},
	})
	require.NoError(t, err)
	require.Equal(t, []string{"sharing"}, ids(results))
	assert.Equal(t, MatchOverlap, results[0].MatchLevel)
	assert.Equal(t, []string{"smoky"}, results[0].MatchedNotes)
}

func TestMoreCategory_FallsBackWhenOverlapFailsDirection(t *testing.T) {
	f := newFixture(t, Options{})
	f.product("ref").flavor(5, 0.2).notes("smoky").save()
	f.product("sharing").flavor(5, 0.1).notes("smoky").save()
	f.product("stranger").flavor(5, 0.9).save()

	results, err := f.planner.Execute(context.Background(), Request{
		Type:               MoreCategory,
		ReferenceProductID: "ref",
		Filters:            Filters{Category: "roasted"},
	})
	require.NoError(t, err)
	require.Equal(t, []string{"stranger"}, ids(results))
	assert.Equal(t, MatchVector, results[0].MatchLevel)
}

func TestLessAxis(t *testing.T) {
	f := newFixture(t, Options{})
	f.product("ref").axis(profile.AxisBody, 0).save()
	f.product("lighter").axis(profile.AxisBody, -0.5).save()
	f.product("heavier").axis(profile.AxisBody, 0.5).save()

	for _, axis := range []string{"body", "Body", "1"} {
		results, err := f.planner.Execute(context.Background(), Request{
			Type:               LessAxis,
			ReferenceProductID: "ref",
			Filters:            Filters{Axis: axis},
		})
		require.NoError(t, err, axis)
		assert.Equal(t, []string{"lighter"}, ids(results), axis)
	}
}

func TestSameOriginMoreCategory(t *testing.T) {
	f := newFixture(t, Options{})
	f.product("ref").origin("Kenya", "Nyeri").flavor(0, 0.3).save()
	f.product("kenya-fruitier").origin("Kenya", "").flavor(0, 0.6).save()
	f.product("kenya-flatter").origin("Kenya", "").flavor(0, 0.1).save()
	f.product("brazil-fruitier").origin("Brazil", "").flavor(0, 0.9).save()

	results, err := f.planner.Execute(context.Background(), Request{
		Type:               SameOriginMoreCategory,
		ReferenceProductID: "ref",
		Filters:            Filters{Category: "Fruity"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"kenya-fruitier"}, ids(results))
}

func TestSameOrigin_RegionMatchRanksFirst(t *testing.T) {
	f := newFixture(t, Options{})
	f.product("ref").origin("Kenya", "Nyeri").save()
	f.product("a-country").origin("Kenya", "").save()
	f.product("z-region").origin("Kenya", "Nyeri").save()
	f.product("elsewhere").origin("Rwanda", "").save()

	results, err := f.planner.Execute(context.Background(), Request{Type: SameOrigin, ReferenceProductID: "ref"})
	require.NoError(t, err)
	require.Equal(t, []string{"z-region", "a-country"}, ids(results))
	assert.Equal(t, 2.0, results[0].Score)
	assert.Equal(t, 1.0, results[1].Score)
	assert.Equal(t, []string{"Kenya", "Nyeri, Kenya"}, results[0].Origins)

	// a filter on the pinned dimension narrows it
	results, err = f.planner.Execute(context.Background(), Request{
		Type:               SameOrigin,
		ReferenceProductID: "ref",
		Filters:            Filters{Origins: []string{"Kenya - Nyeri"}},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"z-region"}, ids(results))
}

func TestSameRoastAndProcess(t *testing.T) {
	f := newFixture(t, Options{})
	f.product("ref").roast(profile.RoastMedium).process("Washed").process("Honey").flavor(2, 1).save()
	f.product("both").roast(profile.RoastMedium).process("Washed").process("Honey").flavor(2, 1).save()
	f.product("one").roast(profile.RoastDark).process("Honey").save()
	f.product("none").roast(profile.RoastLight).process("Natural").save()

	results, err := f.planner.Execute(context.Background(), Request{Type: SameRoast, ReferenceProductID: "ref"})
	require.NoError(t, err)
	assert.Equal(t, []string{"both"}, ids(results))
	assert.InDelta(t, 1.0, results[0].Score, 1e-9)
	assert.Equal(t, "Medium", results[0].Roast)

	results, err = f.planner.Execute(context.Background(), Request{Type: SameProcess, ReferenceProductID: "ref"})
	require.NoError(t, err)
	assert.Equal(t, []string{"both", "one"}, ids(results))
	assert.Equal(t, MatchProcess, results[0].MatchLevel)
}

func TestSameOriginDifferentRoast(t *testing.T) {
	f := newFixture(t, Options{})
	f.product("ref").origin("Brazil", "").roast(profile.RoastMedium).save()
	f.product("same-roast").origin("Brazil", "").roast(profile.RoastMedium).save()
	f.product("darker").origin("Brazil", "").roast(profile.RoastDark).axis(profile.AxisRoast, 0.8).save()
	f.product("unknown-roast").origin("Brazil", "").save()
	f.product("other-origin").origin("Peru", "").roast(profile.RoastDark).save()

	results, err := f.planner.Execute(context.Background(), Request{Type: SameOriginDifferentRoast, ReferenceProductID: "ref"})
	require.NoError(t, err)
	assert.Equal(t, []string{"darker"}, ids(results))
	assert.InDelta(t, 0.3*0.8/2, results[0].Score, 1e-6)
}

func TestSearchByName(t *testing.T) {
	f := newFixture(t, Options{})
	f.product("1").name("Kenya Nyeri AA").save()
	f.product("2").name("Nyeri").save()
	f.product("3").name("Nyeri Hill").save()
	f.product("4").name("Ethiopia Guji").save()

	results, err := f.planner.Execute(context.Background(), Request{Type: SearchByName, Filters: Filters{Name: "  NYÉRI "}})
	require.NoError(t, err)
	require.Equal(t, []string{"2", "3", "1"}, ids(results))
	assert.Equal(t, []float64{1, 0.9, 0.8}, []float64{results[0].Score, results[1].Score, results[2].Score})
}

func TestSearchByBrand(t *testing.T) {
	f := newFixture(t, Options{})
	f.product("b2").brand("Square Mile").save()
	f.product("b1").brand("Square Mile").outOfStock().save()
	f.product("x").brand("Onyx").save()

	results, err := f.planner.Execute(context.Background(), Request{Type: SearchByBrand, Filters: Filters{Brands: []string{"square mile"}}})
	require.NoError(t, err)
	assert.Equal(t, []string{"b1", "b2"}, ids(results))
	assert.Equal(t, "Square Mile", results[0].Brand)

	results, err = f.planner.Execute(context.Background(), Request{
		Type:    SearchByBrand,
		Filters: Filters{Brands: []string{"SQUARE MILE"}, InStockOnly: true},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"b2"}, ids(results))
}

func TestCustomFilter(t *testing.T) {
	f := newFixture(t, Options{})
	f.product("kn").origin("Kenya", "").process("Natural").notes("blackcurrant jam").save()
	f.product("kw").origin("Kenya", "").process("Washed").notes("grapefruit").save()
	f.product("en").origin("Ethiopia", "").process("Natural").notes("blueberry").save()

	results, err := f.planner.Execute(context.Background(), Request{
		Type:    CustomFilter,
		Filters: Filters{Origins: []string{"kenya", "Ethiopia"}, Processes: []string{"natural"}},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"en", "kn"}, ids(results))
	for _, r := range results {
		assert.Equal(t, 1.0, r.Score)
		assert.Equal(t, MatchFilter, r.MatchLevel)
	}

	// a note filter also matches products whose notes share its attribute
	results, err = f.planner.Execute(context.Background(), Request{
		Type:    CustomFilter,
		Filters: Filters{Notes: []string{"Blueberries"}},
	})
	require.NoError(t, err)
	require.Equal(t, []string{"en"}, ids(results))
	assert.Equal(t, []string{"blueberry"}, results[0].MatchedNotes)
}

func TestEmptyFiltersNeverMatchEverything(t *testing.T) {
	f := newFixture(t, Options{})
	f.product("a").brand("Onyx").save()
	f.product("b").brand("Onyx").save()

	requests := []Request{
		{Type: CustomFilter},
		{Type: CustomFilter, Filters: Filters{InStockOnly: true, MaxPrice: 100}},
		{Type: CustomFilter, Filters: Filters{Brands: []string{"  ", "!!"}}},
		{Type: SearchByName, Filters: Filters{Name: "   "}},
		{Type: SearchByBrand},
	}
	for _, req := range requests {
		results, err := f.planner.Execute(context.Background(), req)
		require.NoError(t, err, "%+v", req)
		assert.NotNil(t, results)
		assert.Empty(t, results, "%+v", req)
	}
}

func TestInvalidRequests(t *testing.T) {
	f := newFixture(t, Options{})
	f.product("ref").save()

	tests := []struct {
		name string
		req  Request
	}{
		{"unknown type", Request{Type: "cheapest", ReferenceProductID: "ref"}},
		{"empty type", Request{ReferenceProductID: "ref"}},
		{"unknown category", Request{Type: MoreCategory, ReferenceProductID: "ref", Filters: Filters{Category: "umami"}}},
		{"missing category", Request{Type: LessCategory, ReferenceProductID: "ref"}},
		{"unknown axis", Request{Type: MoreAxis, ReferenceProductID: "ref", Filters: Filters{Axis: "sweetness"}}},
		{"axis out of range", Request{Type: MoreAxis, ReferenceProductID: "ref", Filters: Filters{Axis: "4"}}},
		{"unknown roast filter", Request{Type: CustomFilter, Filters: Filters{Roasts: []string{"charcoal"}}}},
		{"missing reference", Request{Type: SimilarProfile}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.planner.Execute(context.Background(), tt.req)
			require.Error(t, err)
			assert.True(t, apperrors.IsInvalidArgument(err), "got %v", err)
		})
	}
}

func TestUnknownReferenceIsNotFound(t *testing.T) {
	f := newFixture(t, Options{})

	_, err := f.planner.Execute(context.Background(), Request{Type: SimilarProfile, ReferenceProductID: "ghost"})
	require.Error(t, err)
	assert.True(t, apperrors.IsNotFound(err))

	// custom_filter takes an optional reference, but a named one must exist
	_, err = f.planner.Execute(context.Background(), Request{
		Type:               CustomFilter,
		ReferenceProductID: "ghost",
		Filters:            Filters{Brands: []string{"Onyx"}},
	})
	assert.True(t, apperrors.IsNotFound(err))
}

func TestSimilarProfile_TieBreakAndSelfExclusion(t *testing.T) {
	f := newFixture(t, Options{})
	f.product("m").flavor(0, 1).save()
	for _, id := range []string{"c", "a", "b"} {
		f.product(id).flavor(0, 1).save()
	}
	f.product("orthogonal").flavor(4, 1).save()

	results, err := f.planner.Execute(context.Background(), Request{Type: SimilarProfile, ReferenceProductID: "m"})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c", "orthogonal"}, ids(results))
	assert.InDelta(t, 1.0, results[0].Score, 1e-9)
	assert.Equal(t, 0.0, results[3].Score)

	again, err := f.planner.Execute(context.Background(), Request{Type: SimilarProfile, ReferenceProductID: "m"})
	require.NoError(t, err)
	assert.Equal(t, results, again)
}

func TestLimitClamp(t *testing.T) {
	f := newFixture(t, Options{DefaultLimit: 2, MaxLimit: 3, ScanLimit: 10})
	f.product("ref").save()
	for _, id := range []string{"a", "b", "c", "d", "e"} {
		f.product(id).brand("Onyx").save()
	}

	tests := []struct {
		limit int
		want  int
	}{
		{0, 2},
		{-4, 2},
		{1, 1},
		{3, 3},
		{100, 3},
	}
	for _, tt := range tests {
		results, err := f.planner.Execute(context.Background(), Request{
			Type:    SearchByBrand,
			Filters: Filters{Brands: []string{"Onyx"}},
			Limit:   tt.limit,
		})
		require.NoError(t, err)
		assert.Len(t, results, tt.want, "limit %d", tt.limit)
	}
}

// slowReader blocks every call until the context expires
type slowReader struct{}

func (slowReader) GetProduct(ctx context.Context, _ string) (*graph.Product, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func (slowReader) FindProducts(ctx context.Context, _ graph.Criteria) ([]*graph.Product, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func (slowReader) OverlapCandidates(ctx context.Context, _ string, _ graph.OverlapLevel, _ int) ([]graph.OverlapHit, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestExecute_Timeout(t *testing.T) {
	reg, err := taxonomy.Load()
	require.NoError(t, err)
	planner := NewPlanner(slowReader{}, taxonomy.NewClassifier(reg), Options{Timeout: time.Minute})

	start := time.Now()
	_, err = planner.Execute(context.Background(), Request{Type: SimilarFlavor, ReferenceProductID: "a", TimeoutMS: 20})
	require.Error(t, err)
	assert.True(t, apperrors.IsTimeout(err), "got %v", err)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestExecute_Cancelled(t *testing.T) {
	reg, err := taxonomy.Load()
	require.NoError(t, err)
	planner := NewPlanner(slowReader{}, taxonomy.NewClassifier(reg), Options{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = planner.Execute(ctx, Request{Type: CustomFilter, Filters: Filters{Brands: []string{"Onyx"}}})
	require.Error(t, err)
	assert.False(t, apperrors.IsTimeout(err))
	assert.True(t, apperrors.IsErrorType(err, apperrors.ErrorTypeContext))
}
