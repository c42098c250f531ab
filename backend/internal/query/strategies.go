package query

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"brewgraph/backend/internal/graph"
	"brewgraph/backend/internal/profile"
	"brewgraph/backend/internal/textfold"
)

// Name match scores: exact folded name, prefix, substring
const (
	nameExactScore    = 1.0
	namePrefixScore   = 0.9
	nameContainsScore = 0.8
)

func (p *Planner) searchByName(ctx context.Context, fs filterSet, limit int) ([]Result, error) {
	c := fs.criteria
	if c.NameContains == "" {
		return []Result{}, nil
	}
	c.Limit = p.opts.ScanLimit
	products, err := p.reader.FindProducts(ctx, c)
	if err != nil {
		return nil, err
	}

	items := make([]scored, 0, len(products))
	for _, prod := range products {
		key := textfold.Key(prod.Name)
		score := nameContainsScore
		switch {
		case key == c.NameContains:
			score = nameExactScore
		case strings.HasPrefix(key, c.NameContains):
			score = namePrefixScore
		}
		items = append(items, scored{prod, score, MatchName, filterMatchedNotes(prod, c)})
	}
	return rank(items, limit), nil
}

func (p *Planner) searchByBrand(ctx context.Context, fs filterSet, limit int) ([]Result, error) {
	c := fs.criteria
	if len(c.BrandIDs) == 0 {
		return []Result{}, nil
	}
	c.Limit = p.opts.ScanLimit
	products, err := p.reader.FindProducts(ctx, c)
	if err != nil {
		return nil, err
	}

	items := make([]scored, 0, len(products))
	for _, prod := range products {
		items = append(items, scored{prod, 1, MatchBrand, filterMatchedNotes(prod, c)})
	}
	return rank(items, limit), nil
}

// sameOrigin scores by shared Origin nodes, so a region match outranks a
// country-only match
func (p *Planner) sameOrigin(ctx context.Context, ref *graph.Product, fs filterSet, limit int) ([]Result, error) {
	c := fs.criteria
	refOrigins := originIDs(ref)
	pinned, ok := narrow(refOrigins, c.OriginIDs)
	if !ok {
		return []Result{}, nil
	}
	c.OriginIDs = pinned
	c.Limit = p.opts.ScanLimit
	products, err := p.reader.FindProducts(ctx, c)
	if err != nil {
		return nil, err
	}

	refSet := idSet(refOrigins)
	refNotes := noteIDs(ref)
	items := make([]scored, 0, len(products))
	for _, prod := range products {
		score := float64(sharedCount(originIDs(prod), refSet))
		items = append(items, scored{prod, score, MatchOrigin, matchedNotes(prod, graph.OverlapNotes, refNotes)})
	}
	return rank(items, limit), nil
}

func (p *Planner) sameRoast(ctx context.Context, ref *graph.Product, fs filterSet, limit int) ([]Result, error) {
	c := fs.criteria
	if ref.RoastID() == "" {
		return []Result{}, nil
	}
	pinned, ok := narrow([]string{ref.RoastID()}, c.RoastIDs)
	if !ok {
		return []Result{}, nil
	}
	c.RoastIDs = pinned
	c.Limit = p.opts.ScanLimit
	products, err := p.reader.FindProducts(ctx, c)
	if err != nil {
		return nil, err
	}

	refVec := vectorOf(ref)
	refNotes := noteIDs(ref)
	items := make([]scored, 0, len(products))
	for _, prod := range products {
		score := profile.Cosine(refVec, vectorOf(prod))
		items = append(items, scored{prod, score, MatchRoast, matchedNotes(prod, graph.OverlapNotes, refNotes)})
	}
	return rank(items, limit), nil
}

func (p *Planner) sameProcess(ctx context.Context, ref *graph.Product, fs filterSet, limit int) ([]Result, error) {
	c := fs.criteria
	refProcesses := namedIDs(ref.Processes)
	pinned, ok := narrow(refProcesses, c.ProcessIDs)
	if !ok {
		return []Result{}, nil
	}
	c.ProcessIDs = pinned
	c.Limit = p.opts.ScanLimit
	products, err := p.reader.FindProducts(ctx, c)
	if err != nil {
		return nil, err
	}

	refSet := idSet(refProcesses)
	refNotes := noteIDs(ref)
	items := make([]scored, 0, len(products))
	for _, prod := range products {
		score := float64(sharedCount(namedIDs(prod.Processes), refSet))
		items = append(items, scored{prod, score, MatchProcess, matchedNotes(prod, graph.OverlapNotes, refNotes)})
	}
	return rank(items, limit), nil
}

// directional ranks candidates strictly above or below the reference on one
// dimension. Candidates sharing an exact tasting note with the reference are
// preferred; the unrestricted vector scan runs only when none qualify.
func (p *Planner) directional(ctx context.Context, ref *graph.Product, base graph.Criteria, dir graph.Direction, limit int) ([]Result, error) {
	width := categoryRange
	if dir.Axes {
		width = axisRange
	}

	hits, err := p.reader.OverlapCandidates(ctx, ref.ID, graph.OverlapNotes, p.opts.ScanLimit)
	if err != nil {
		return nil, err
	}

	level := MatchOverlap
	var pool []*graph.Product
	if len(hits) > 0 {
		c := base
		c.IDs = make([]string, 0, len(hits))
		for _, h := range hits {
			c.IDs = append(c.IDs, h.ProductID)
		}
		c.Direction = &dir
		if pool, err = p.reader.FindProducts(ctx, c); err != nil {
			return nil, err
		}
	}
	if len(pool) == 0 {
		level = MatchVector
		c := base
		c.Direction = &dir
		c.Limit = p.opts.ScanLimit
		if pool, err = p.reader.FindProducts(ctx, c); err != nil {
			return nil, err
		}
	}

	refVec := vectorOf(ref)
	refNotes := noteIDs(ref)
	items := make([]scored, 0, len(pool))
	for _, prod := range pool {
		vec := prod.FlavorProfile
		if dir.Axes {
			vec = prod.CharacterAxes
		}
		score := hybrid(refVec, prod, component(vec, dir.Index)-dir.Value, width)
		items = append(items, scored{prod, score, level, matchedNotes(prod, graph.OverlapNotes, refNotes)})
	}
	return rank(items, limit), nil
}

// sameOriginDifferentRoast requires a known reference roast; candidate roasts
// are pinned to every other level of the closed vocabulary
func (p *Planner) sameOriginDifferentRoast(ctx context.Context, ref *graph.Product, fs filterSet, limit int) ([]Result, error) {
	c := fs.criteria
	refRoast := ref.RoastID()
	if refRoast == "" {
		return []Result{}, nil
	}
	origins, ok := narrow(originIDs(ref), c.OriginIDs)
	if !ok {
		return []Result{}, nil
	}
	var others []string
	for _, lvl := range profile.RoastLevels {
		if string(lvl) != refRoast {
			others = append(others, string(lvl))
		}
	}
	roasts, ok := narrow(others, c.RoastIDs)
	if !ok {
		return []Result{}, nil
	}
	c.OriginIDs = origins
	c.RoastIDs = roasts
	c.Limit = p.opts.ScanLimit
	products, err := p.reader.FindProducts(ctx, c)
	if err != nil {
		return nil, err
	}

	refVec := vectorOf(ref)
	refRoastAxis := component(ref.CharacterAxes, profile.AxisRoast)
	refNotes := noteIDs(ref)
	items := make([]scored, 0, len(products))
	for _, prod := range products {
		delta := component(prod.CharacterAxes, profile.AxisRoast) - refRoastAxis
		score := hybrid(refVec, prod, delta, axisRange)
		items = append(items, scored{prod, score, MatchOrigin, matchedNotes(prod, graph.OverlapNotes, refNotes)})
	}
	return rank(items, limit), nil
}

func (p *Planner) similarProfile(ctx context.Context, ref *graph.Product, fs filterSet, limit int) ([]Result, error) {
	c := fs.criteria
	c.Limit = p.opts.ScanLimit
	products, err := p.reader.FindProducts(ctx, c)
	if err != nil {
		return nil, err
	}

	refVec := vectorOf(ref)
	refNotes := noteIDs(ref)
	items := make([]scored, 0, len(products))
	for _, prod := range products {
		score := profile.Cosine(refVec, vectorOf(prod))
		items = append(items, scored{prod, score, MatchVector, matchedNotes(prod, graph.OverlapNotes, refNotes)})
	}
	return rank(items, limit), nil
}

// similarFlavor walks the ladder from exact notes to attributes to
// subcategories, broadening only while fewer than limit products are
// collected. A product keeps the score of the first rung that found it.
func (p *Planner) similarFlavor(ctx context.Context, ref *graph.Product, fs filterSet, limit int) ([]Result, error) {
	collected := make(map[string]bool)
	var items []scored

	for _, level := range graph.OverlapLevels {
		if len(items) >= limit {
			break
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		keys := ladderKeys(ref, level)
		if len(keys) == 0 {
			continue
		}

		hits, err := p.reader.OverlapCandidates(ctx, ref.ID, level, p.opts.ScanLimit)
		if err != nil {
			return nil, err
		}
		shared := make(map[string]int, len(hits))
		ids := make([]string, 0, len(hits))
		for _, h := range hits {
			if collected[h.ProductID] {
				continue
			}
			shared[h.ProductID] = h.Shared
			ids = append(ids, h.ProductID)
		}
		if len(ids) == 0 {
			continue
		}

		c := fs.criteria
		c.IDs = ids
		products, err := p.reader.FindProducts(ctx, c)
		if err != nil {
			return nil, err
		}
		for _, prod := range products {
			collected[prod.ID] = true
			score := ladderBase[level] + float64(shared[prod.ID])/float64(len(keys))
			items = append(items, scored{prod, score, string(level), matchedNotes(prod, level, keys)})
		}
		p.logger.Debug("Ladder rung",
			zap.String("reference", ref.ID),
			zap.String("level", string(level)),
			zap.Int("hits", len(hits)),
			zap.Int("collected", len(items)))
	}
	return rank(items, limit), nil
}

// customFilter never matches everything: without a selecting dimension the
// result is empty
func (p *Planner) customFilter(ctx context.Context, ref *graph.Product, fs filterSet, limit int) ([]Result, error) {
	if !fs.selecting {
		return []Result{}, nil
	}
	c := fs.criteria
	c.Limit = p.opts.ScanLimit
	products, err := p.reader.FindProducts(ctx, c)
	if err != nil {
		return nil, err
	}

	var refVec []float64
	if ref != nil {
		refVec = vectorOf(ref)
	}
	items := make([]scored, 0, len(products))
	for _, prod := range products {
		score := 1.0
		if refVec != nil {
			score = profile.Cosine(refVec, vectorOf(prod))
		}
		items = append(items, scored{prod, score, MatchFilter, filterMatchedNotes(prod, c)})
	}
	return rank(items, limit), nil
}
