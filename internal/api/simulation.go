package api

import (
	"context"  // Context for Redis operations
	"net/http" // HTTP status codes
	"time"     // Cache TTLs

	"github.com/gin-gonic/gin"   // Gin web framework
	"github.com/sirupsen/logrus" // Logging library

	"coop_economy/internal/middleware" // Redis client extraction
	"coop_economy/internal/sim"        // Coordinator and runner
	"coop_economy/internal/utils"      // Cache helpers
)

// Cache keys for the read endpoints invalidated by mutating actions.
const (
	statsCacheKey  = "sim:stats"
	exportCacheKey = "sim:export"
	cacheTTL       = 60 * time.Second
)

// RunRequest overrides batch run parameters. Zero fields keep the defaults.
type RunRequest struct {
	Description     string  `json:"description"`       // Label for logs
	NumMembers      int     `json:"num_members"`       // Community size
	SimulationWeeks int     `json:"simulation_weeks"`  // Weeks to simulate
	WeeklyBudgetAvg float64 `json:"weekly_budget_avg"` // Mean weekly food budget
	WeeklyIncomeAvg float64 `json:"weekly_income_avg"` // Mean weekly income
	Seed            int64   `json:"seed"`              // Randomness seed
}

// RunSimulationHandler executes a full comparison run with the provided
// parameter overrides and returns the results document.
func RunSimulationHandler(params sim.RunParams, cfgs sim.Configs) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req RunRequest // Bind JSON request to struct
		// An empty body runs the defaults; malformed JSON is rejected
		if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Request must be JSON"})
			return
		}
		run := params // Copy defaults, then apply overrides
		if req.Description != "" {
			run.Description = req.Description
		}
		if req.NumMembers > 0 {
			run.NumMembers = req.NumMembers
		}
		if req.SimulationWeeks > 0 {
			run.SimulationWeeks = req.SimulationWeeks
		}
		if req.WeeklyBudgetAvg > 0 {
			run.WeeklyFoodBudgetAvg = req.WeeklyBudgetAvg
		}
		if req.WeeklyIncomeAvg > 0 {
			run.WeeklyIncomeAvg = req.WeeklyIncomeAvg
		}
		if req.Seed != 0 {
			run.Seed = req.Seed
		}
		result, err := sim.Run(run, cfgs) // Execute the run
		if err != nil {
			// Log the error with context
			logrus.WithFields(logrus.Fields{
				"description": run.Description,
				"error":       err.Error(),
			}).Error("Simulation run failed")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Simulation run failed"})
			return
		}
		c.JSON(http.StatusOK, result) // Return the results document
	}
}

// InitRequest registers the community members on the shared coordinator.
type InitRequest struct {
	Addresses     []string  `json:"addresses" binding:"required"` // Member addresses
	InitialWealth []float64 `json:"initial_wealth"`               // Optional starting FoodUSD
}

// InitHandler registers member addresses and seeds their balances.
func InitHandler(co *sim.Coordinator) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req InitRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
		if err := co.Initialize(req.Addresses, req.InitialWealth); err != nil {
			c.JSON(errStatus(err), gin.H{"error": err.Error()})
			return
		}
		logrus.WithField("members", len(req.Addresses)).Info("Community initialized")
		c.JSON(http.StatusCreated, gin.H{"members": len(req.Addresses)})
	}
}

// ProcessWeekRequest advances the shared coordinator one week.
type ProcessWeekRequest struct {
	Week    int                `json:"week" binding:"required"` // Week to process
	Budgets map[string]float64 `json:"budgets"`                 // Per-household budgets
}

// ProcessWeekHandler advances the coordinator one simulated week.
func ProcessWeekHandler(co *sim.Coordinator) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req ProcessWeekRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
		report, err := co.ProcessWeek(req.Week, req.Budgets)
		if err != nil {
			c.JSON(errStatus(err), gin.H{"error": err.Error()})
			return
		}
		// Log the processed week
		logrus.WithFields(logrus.Fields{
			"week":               report.Week,
			"tokens_distributed": report.TokensDistributed,
			"total_spent":        report.TotalSpent,
			"interest_accrued":   report.InterestAccrued,
		}).Info("Week processed")
		invalidateReadCaches(c) // Stats and export are stale now
		c.JSON(http.StatusOK, report)
	}
}

// StatsHandler returns the aggregated statistics, cached for 60 seconds.
func StatsHandler(co *sim.Coordinator) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := context.Background()     // Context for Redis operations
		rdb := middleware.ClientFrom(c) // May be nil, which disables caching
		var cached sim.ComprehensiveStats
		found, err := utils.GetCache(ctx, rdb, statsCacheKey, &cached)
		if err == nil && found {
			c.JSON(http.StatusOK, gin.H{"stats": cached, "cached": true})
			return
		}
		stats := co.GetComprehensiveStats()
		_ = utils.SetCache(ctx, rdb, statsCacheKey, stats, cacheTTL)
		c.JSON(http.StatusOK, gin.H{"stats": stats, "cached": false})
	}
}

// ExportHandler returns every ledger's snapshot, cached for 60 seconds.
func ExportHandler(co *sim.Coordinator) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := context.Background()
		rdb := middleware.ClientFrom(c)
		var cached sim.AllData
		found, err := utils.GetCache(ctx, rdb, exportCacheKey, &cached)
		if err == nil && found {
			c.JSON(http.StatusOK, gin.H{"data": cached, "cached": true})
			return
		}
		data := co.ExportAllData()
		_ = utils.SetCache(ctx, rdb, exportCacheKey, data, cacheTTL)
		c.JSON(http.StatusOK, gin.H{"data": data, "cached": false})
	}
}

// WealthHandler returns the wealth breakdown for one address.
func WealthHandler(co *sim.Coordinator) gin.HandlerFunc {
	return func(c *gin.Context) {
		address := c.Param("address") // Address from the URL
		if address == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Address required"})
			return
		}
		c.JSON(http.StatusOK, co.CalculateWealthImpact(address))
	}
}

// invalidateReadCaches drops the cached stats and export responses.
func invalidateReadCaches(c *gin.Context) {
	if rdb := middleware.ClientFrom(c); rdb != nil {
		_ = utils.DeleteCache(context.Background(), rdb, statsCacheKey, exportCacheKey)
	}
}
