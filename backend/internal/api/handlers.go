package api

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"brewgraph/backend/internal/query"
	"brewgraph/backend/internal/taxonomy"
	apperrors "brewgraph/backend/pkg/errors"
)

// MaxBatchSize bounds the number of queries in one batch request
const MaxBatchSize = 100

// Executor runs a single structured query
type Executor interface {
	Execute(ctx context.Context, req query.Request) ([]query.Result, error)
}

// Handler serves the query surface
type Handler struct {
	executor    Executor
	classifier  *taxonomy.Classifier
	backend     string
	concurrency int
	logger      *zap.Logger
}

// NewHandler creates a handler. concurrency bounds batch fan-out.
func NewHandler(executor Executor, classifier *taxonomy.Classifier, backend string, concurrency int, log *zap.Logger) *Handler {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Handler{
		executor:    executor,
		classifier:  classifier,
		backend:     backend,
		concurrency: concurrency,
		logger:      log,
	}
}

// Health reports liveness
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "backend": h.backend})
}

// QueryTypes lists the supported query types
func (h *Handler) QueryTypes(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"types": query.QueryTypes})
}

// Query runs one query
func (h *Handler) Query(c *gin.Context) {
	var req query.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "type": "request"})
		return
	}

	results, err := h.executor.Execute(c.Request.Context(), req)
	if err != nil {
		status, body := h.errorResponse(c, err)
		c.JSON(status, body)
		return
	}

	c.JSON(http.StatusOK, gin.H{"results": results, "count": len(results)})
}

// BatchRequest is the body of a batch query
type BatchRequest struct {
	Queries []query.Request `json:"queries" binding:"required"`
}

// BatchItem is the outcome of one query in a batch; exactly one of Results
// and Error is set
type BatchItem struct {
	Index   int            `json:"index"`
	Results []query.Result `json:"results,omitempty"`
	Status  int            `json:"status"`
	Error   *ErrorBody     `json:"error,omitempty"`
}

// BatchQuery runs the queries concurrently. One failing query never fails
// the batch; its error is reported in place.
func (h *Handler) BatchQuery(c *gin.Context) {
	var req BatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "type": "request"})
		return
	}
	if len(req.Queries) > MaxBatchSize {
		c.JSON(http.StatusBadRequest, gin.H{"error": "too many queries in batch", "type": "request", "max": MaxBatchSize})
		return
	}

	ctx := c.Request.Context()
	items := make([]BatchItem, len(req.Queries))

	var g errgroup.Group
	g.SetLimit(h.concurrency)
	for i, q := range req.Queries {
		i, q := i, q
		g.Go(func() error {
			results, err := h.executor.Execute(ctx, q)
			if err != nil {
				status, body := h.errorResponse(c, err)
				items[i] = BatchItem{Index: i, Status: status, Error: &body}
				return nil
			}
			if results == nil {
				results = []query.Result{}
			}
			items[i] = BatchItem{Index: i, Status: http.StatusOK, Results: results}
			return nil
		})
	}
	_ = g.Wait()

	c.JSON(http.StatusOK, gin.H{"items": items, "count": len(items)})
}

// Categories lists the flavor wheel with its subcategories and attributes
func (h *Handler) Categories(c *gin.Context) {
	reg := h.classifier.Registry()

	type attributeView struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}
	type subcategoryView struct {
		ID         string          `json:"id"`
		Name       string          `json:"name"`
		Attributes []attributeView `json:"attributes"`
	}
	type categoryView struct {
		ID            string            `json:"id"`
		Name          string            `json:"name"`
		Index         int               `json:"index"`
		Subcategories []subcategoryView `json:"subcategories"`
	}

	cats := reg.Categories()
	out := make([]categoryView, 0, len(cats))
	for _, cat := range cats {
		cv := categoryView{ID: cat.ID, Name: cat.Name, Index: cat.Index}
		for _, subID := range cat.Subcategories {
			sub, _ := reg.Subcategory(subID)
			sv := subcategoryView{ID: sub.ID, Name: sub.Name}
			for _, attrID := range sub.Attributes {
				attr, _ := reg.Attribute(attrID)
				sv.Attributes = append(sv.Attributes, attributeView{ID: attr.ID, Name: attr.Name})
			}
			cv.Subcategories = append(cv.Subcategories, sv)
		}
		out = append(out, cv)
	}

	c.JSON(http.StatusOK, gin.H{"categories": out})
}

// Classify resolves a raw note to its taxonomy placement
func (h *Handler) Classify(c *gin.Context) {
	note := strings.TrimSpace(c.Query("note"))
	if note == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "note is required", "type": "request"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"note": note, "classification": h.classifier.Classify(note)})
}

// ErrorBody is the JSON shape of a failed query
type ErrorBody struct {
	Error string `json:"error"`
	Type  string `json:"type"`
	Field string `json:"field,omitempty"`
}

// statusClientClosedRequest is the conventional status for a caller that
// went away before the response was ready
const statusClientClosedRequest = 499

func (h *Handler) errorResponse(c *gin.Context, err error) (int, ErrorBody) {
	body := ErrorBody{Error: err.Error()}

	var inv *apperrors.ErrInvalidArgument
	switch {
	case apperrors.IsInvalidArgument(err):
		body.Type = "invalid_argument"
		if errors.As(err, &inv) {
			body.Field = inv.Field
		}
		return http.StatusBadRequest, body
	case apperrors.IsNotFound(err):
		body.Type = "not_found"
		return http.StatusNotFound, body
	case apperrors.IsTimeout(err):
		body.Type = "timeout"
		return http.StatusGatewayTimeout, body
	case apperrors.IsErrorType(err, apperrors.ErrorTypeContext):
		body.Type = "cancelled"
		return statusClientClosedRequest, body
	}

	h.logger.Error("Query failed",
		zap.String("request_id", c.GetString("request_id")),
		zap.Error(err))
	body.Type = "internal"
	body.Error = "query failed"
	return http.StatusInternalServerError, body
}
