package api_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"coop_economy/internal/api"
	"coop_economy/internal/middleware"
	"coop_economy/internal/randx"
	"coop_economy/internal/sim"
)

func newRouter(co *sim.Coordinator) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(middleware.RedisInjector(nil)) // Caching disabled in tests

	r.POST("/simulation/init", api.InitHandler(co))
	r.POST("/simulation/week", api.ProcessWeekHandler(co))
	r.GET("/simulation/stats", api.StatsHandler(co))
	r.GET("/wealth/:address", api.WealthHandler(co))
	r.POST("/orders", api.CreateOrderHandler(co))
	r.POST("/orders/:id/contribute", api.ContributeHandler(co))
	return r
}

func doJSON(t *testing.T, r *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestInitAndProcessWeek(t *testing.T) {
	co := sim.New(sim.DefaultConfigs(), randx.New(1))
	r := newRouter(co)

	w := doJSON(t, r, http.MethodPost, "/simulation/init", gin.H{
		"addresses":      []string{"a", "b"},
		"initial_wealth": []float64{100, 200},
	})
	assert.Equal(t, http.StatusCreated, w.Code)

	// A second initialization conflicts
	w = doJSON(t, r, http.MethodPost, "/simulation/init", gin.H{"addresses": []string{"c"}})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = doJSON(t, r, http.MethodPost, "/simulation/week", gin.H{
		"week":    1,
		"budgets": map[string]float64{"a": 50},
	})
	require.Equal(t, http.StatusOK, w.Code)

	var report sim.WeekReport
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &report))
	assert.Equal(t, 1, report.Week)
	assert.InDelta(t, 50.0, report.TotalSpent, 1e-6)
}

func TestProcessWeek_BeforeInit(t *testing.T) {
	co := sim.New(sim.DefaultConfigs(), randx.New(1))
	r := newRouter(co)

	w := doJSON(t, r, http.MethodPost, "/simulation/week", gin.H{"week": 1})
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestStatsHandler(t *testing.T) {
	co := sim.New(sim.DefaultConfigs(), randx.New(1))
	require.NoError(t, co.Initialize([]string{"a"}, []float64{100}))
	r := newRouter(co)

	w := doJSON(t, r, http.MethodGet, "/simulation/stats", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Stats  sim.ComprehensiveStats `json:"stats"`
		Cached bool                   `json:"cached"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.Cached)
	assert.Equal(t, 1, resp.Stats.Token.HolderCount)
}

func TestWealthHandler(t *testing.T) {
	co := sim.New(sim.DefaultConfigs(), randx.New(1))
	require.NoError(t, co.Initialize([]string{"a"}, []float64{300}))
	r := newRouter(co)

	w := doJSON(t, r, http.MethodGet, "/wealth/a", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var impact sim.WealthImpact
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &impact))
	assert.InDelta(t, 300.0, impact.StablecoinBalance, 1e-9)
	assert.InDelta(t, 300.0, impact.TotalWealth, 1e-9)
}

func TestOrderEndpoints(t *testing.T) {
	co := sim.New(sim.DefaultConfigs(), randx.New(1))
	require.NoError(t, co.Initialize([]string{"a", "b"}, []float64{500, 500}))
	r := newRouter(co)

	w := doJSON(t, r, http.MethodPost, "/orders", gin.H{
		"creator":       "a",
		"supplier":      "s",
		"target_amount": 600,
		"category":      "groceries",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	// Unknown category is a domain error, not a 500
	w = doJSON(t, r, http.MethodPost, "/orders", gin.H{
		"creator":       "a",
		"supplier":      "s",
		"target_amount": 600,
		"category":      "electronics",
	})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = doJSON(t, r, http.MethodPost, "/orders/1/contribute", gin.H{
		"contributor": "a",
		"amount":      100,
	})
	assert.Equal(t, http.StatusOK, w.Code)

	// Overdrawn contributions map to payment required
	w = doJSON(t, r, http.MethodPost, "/orders/1/contribute", gin.H{
		"contributor": "b",
		"amount":      10_000,
	})
	assert.Equal(t, http.StatusPaymentRequired, w.Code)

	// Missing orders map to not found
	w = doJSON(t, r, http.MethodPost, "/orders/99/contribute", gin.H{
		"contributor": "a",
		"amount":      10,
	})
	assert.Equal(t, http.StatusNotFound, w.Code)

	// Malformed ids are rejected up front
	w = doJSON(t, r, http.MethodPost, "/orders/abc/contribute", gin.H{
		"contributor": "a",
		"amount":      10,
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
