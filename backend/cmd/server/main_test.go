package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"brewgraph/backend/internal/api"
	"brewgraph/backend/internal/services"
	"brewgraph/backend/pkg/config"
)

func newServer(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{
		GraphBackend:      config.BackendMemory,
		SourceDBPath:      filepath.Join(t.TempDir(), "products.db"),
		QueryDefaultLimit: 10,
		QueryMaxLimit:     50,
		QueryScanLimit:    500,
		QueryTimeout:      time.Second,
		BatchConcurrency:  2,
	}
	sm, err := services.Open(context.Background(), cfg, services.Options{Hydrate: true}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(sm.Close)

	handler := api.NewHandler(sm.Planner, sm.Classifier, sm.Backend(), cfg.BatchConcurrency, zap.NewNop())
	return api.NewRouter(handler, zap.NewNop())
}

func TestHealthEndpoint(t *testing.T) {
	router := newServer(t)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/health", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var response map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, "ok", response["status"])
}

func TestQueryEndpoint_InvalidRequest(t *testing.T) {
	router := newServer(t)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/api/query", strings.NewReader(`{"type":"nearest_cafe"}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestQueryEndpoint_EmptyGraph(t *testing.T) {
	router := newServer(t)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/api/query", strings.NewReader(`{"type":"search_by_name","filters":{"name":"nyeri"}}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"results":[],"count":0}`, w.Body.String())
}
