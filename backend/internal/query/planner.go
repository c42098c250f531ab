// Package query plans and ranks comparative product queries over the
// knowledge graph. Every query is read-only and carries no state between
// calls.
package query

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"brewgraph/backend/internal/graph"
	"brewgraph/backend/internal/profile"
	"brewgraph/backend/internal/taxonomy"
	apperrors "brewgraph/backend/pkg/errors"
	"brewgraph/backend/pkg/logger"
)

// Reader is the read side of the graph store
type Reader interface {
	GetProduct(ctx context.Context, productID string) (*graph.Product, error)
	FindProducts(ctx context.Context, c graph.Criteria) ([]*graph.Product, error)
	OverlapCandidates(ctx context.Context, productID string, level graph.OverlapLevel, scanLimit int) ([]graph.OverlapHit, error)
}

// Options bound every query
type Options struct {
	DefaultLimit int
	MaxLimit     int
	ScanLimit    int // candidate bound for each broadened or vector scan
	Timeout      time.Duration
}

// DefaultOptions mirrors the config defaults
func DefaultOptions() Options {
	return Options{DefaultLimit: 10, MaxLimit: 50, ScanLimit: 500, Timeout: 5 * time.Second}
}

// Planner maps a request onto an execution strategy and ranks the result
type Planner struct {
	reader     Reader
	classifier *taxonomy.Classifier
	registry   *taxonomy.Registry
	opts       Options
	tracer     trace.Tracer
	logger     *zap.Logger
}

// NewPlanner creates a planner. Zero option fields fall back to defaults.
func NewPlanner(reader Reader, classifier *taxonomy.Classifier, opts Options) *Planner {
	def := DefaultOptions()
	if opts.DefaultLimit <= 0 {
		opts.DefaultLimit = def.DefaultLimit
	}
	if opts.MaxLimit < opts.DefaultLimit {
		opts.MaxLimit = opts.DefaultLimit
	}
	if opts.ScanLimit < opts.MaxLimit {
		opts.ScanLimit = opts.MaxLimit
	}
	if opts.Timeout <= 0 {
		opts.Timeout = def.Timeout
	}
	return &Planner{
		reader:     reader,
		classifier: classifier,
		registry:   classifier.Registry(),
		opts:       opts,
		tracer:     otel.Tracer("brewgraph/query"),
		logger:     logger.Named("query"),
	}
}

// Execute runs one query under its deadline
func (p *Planner) Execute(ctx context.Context, req Request) ([]Result, error) {
	limit := p.clampLimit(req.Limit)
	timeout := p.opts.Timeout
	if req.TimeoutMS > 0 {
		timeout = time.Duration(req.TimeoutMS) * time.Millisecond
	}

	ctx, span := p.tracer.Start(ctx, "query.Execute", trace.WithAttributes(
		attribute.String("query.type", string(req.Type)),
		attribute.String("query.reference", req.ReferenceProductID),
		attribute.Int("query.limit", limit),
	))
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	results, err := p.dispatch(ctx, req, limit)
	if err != nil {
		err = p.contextError(ctx, req, timeout, err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		p.logger.Debug("Query failed",
			zap.String("type", string(req.Type)),
			zap.String("reference", req.ReferenceProductID),
			zap.Error(err))
		return nil, err
	}

	span.SetAttributes(attribute.Int("query.results", len(results)))
	p.logger.Debug("Query executed",
		zap.String("type", string(req.Type)),
		zap.String("reference", req.ReferenceProductID),
		zap.Int("results", len(results)),
		zap.Duration("duration", time.Since(start)))
	return results, nil
}

// contextError maps an expired or cancelled query context onto typed errors
func (p *Planner) contextError(ctx context.Context, req Request, timeout time.Duration, err error) error {
	op := "query " + string(req.Type)
	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.Is(ctx.Err(), context.DeadlineExceeded):
		return apperrors.NewContextTimeout(op, timeout)
	case errors.Is(err, context.Canceled), errors.Is(ctx.Err(), context.Canceled):
		return apperrors.NewContextCancelled(op, err)
	}
	return err
}

func (p *Planner) clampLimit(limit int) int {
	if limit <= 0 {
		return p.opts.DefaultLimit
	}
	if limit > p.opts.MaxLimit {
		return p.opts.MaxLimit
	}
	return limit
}

// dispatch validates every caller value before touching the store
func (p *Planner) dispatch(ctx context.Context, req Request, limit int) ([]Result, error) {
	switch req.Type {
	case SearchByName, SearchByBrand, SameOrigin, SameRoast, SameProcess,
		MoreCategory, LessCategory, SameOriginMoreCategory, SameOriginDifferentRoast,
		MoreAxis, LessAxis, SimilarProfile, SimilarFlavor, CustomFilter:
	default:
		return nil, apperrors.NewInvalidArgument("type", string(req.Type), "unknown query type")
	}

	var dim int
	switch req.Type {
	case MoreCategory, LessCategory, SameOriginMoreCategory:
		cat, ok := p.registry.CategoryByName(req.Filters.Category)
		if !ok {
			return nil, apperrors.NewInvalidArgument("category", req.Filters.Category, "not a flavor wheel category")
		}
		dim = cat.Index
	case MoreAxis, LessAxis:
		idx, ok := parseAxis(req.Filters.Axis)
		if !ok {
			return nil, apperrors.NewInvalidArgument("axis", req.Filters.Axis, "not a character axis")
		}
		dim = idx
	}

	fs, err := compileFilters(req.Filters, p.classifier)
	if err != nil {
		return nil, err
	}

	refID := strings.TrimSpace(req.ReferenceProductID)
	if req.Type.needsReference() && refID == "" {
		return nil, apperrors.NewInvalidArgument("reference_product_id", "", fmt.Sprintf("required for %s", req.Type))
	}
	var ref *graph.Product
	if refID != "" {
		if ref, err = p.reader.GetProduct(ctx, refID); err != nil {
			return nil, err
		}
		fs.criteria.ExcludeIDs = appendUnique(fs.criteria.ExcludeIDs, ref.ID)
	}

	switch req.Type {
	case SearchByName:
		return p.searchByName(ctx, fs, limit)
	case SearchByBrand:
		return p.searchByBrand(ctx, fs, limit)
	case SameOrigin:
		return p.sameOrigin(ctx, ref, fs, limit)
	case SameRoast:
		return p.sameRoast(ctx, ref, fs, limit)
	case SameProcess:
		return p.sameProcess(ctx, ref, fs, limit)
	case MoreCategory, LessCategory:
		dir := graph.Direction{Index: dim, Above: req.Type == MoreCategory, Value: component(ref.FlavorProfile, dim)}
		return p.directional(ctx, ref, fs.criteria, dir, limit)
	case SameOriginMoreCategory:
		base := fs.criteria
		origins, ok := narrow(originIDs(ref), base.OriginIDs)
		if !ok {
			return []Result{}, nil
		}
		base.OriginIDs = origins
		dir := graph.Direction{Index: dim, Above: true, Value: component(ref.FlavorProfile, dim)}
		return p.directional(ctx, ref, base, dir, limit)
	case SameOriginDifferentRoast:
		return p.sameOriginDifferentRoast(ctx, ref, fs, limit)
	case MoreAxis, LessAxis:
		dir := graph.Direction{Axes: true, Index: dim, Above: req.Type == MoreAxis, Value: component(ref.CharacterAxes, dim)}
		return p.directional(ctx, ref, fs.criteria, dir, limit)
	case SimilarProfile:
		return p.similarProfile(ctx, ref, fs, limit)
	case SimilarFlavor:
		return p.similarFlavor(ctx, ref, fs, limit)
	case CustomFilter:
		return p.customFilter(ctx, ref, fs, limit)
	}
	return nil, apperrors.NewInvalidArgument("type", string(req.Type), "unknown query type")
}

// parseAxis accepts an axis name or its fixed index
func parseAxis(v string) (int, bool) {
	v = strings.ToLower(strings.TrimSpace(v))
	if idx, ok := profile.AxisIndex(v); ok {
		return idx, true
	}
	if n, err := strconv.Atoi(v); err == nil && n >= 0 && n < profile.AxisDims {
		return n, true
	}
	return 0, false
}
