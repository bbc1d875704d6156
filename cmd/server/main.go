package main

import (
	"context" // context package is needed for Redis operations
	"log"     // log package is needed for logging

	"coop_economy/internal/api"        // Custom package for API handlers
	"coop_economy/internal/config"     // Custom package for configuration
	"coop_economy/internal/events"     // Distribution event sink
	"coop_economy/internal/middleware" // Custom package for middleware
	"coop_economy/internal/randx"      // Seeded randomness
	"coop_economy/internal/sim"        // Simulation coordinator

	"github.com/gin-gonic/gin"     // Gin web framework
	"github.com/redis/go-redis/v9" // Redis client
	"github.com/sirupsen/logrus"   // Logrus for structured logging
)

// Main function to set up and run the server
func main() {
	cfg, err := config.LoadConfig() // Load configuration
	if err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	// Setup logger
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	// Setup Redis client; an empty address runs without response caching
	var redisClient *redis.Client
	if cfg.RedisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr, // Redis server address
			Password: cfg.RedisPass, // Redis password
			DB:       cfg.RedisDB,   // Redis database number
		})

		// Test Redis connection
		if _, err := redisClient.Ping(context.Background()).Result(); err != nil {
			logrus.Fatalf("failed to connect to Redis: %v", err)
		}
	} else {
		logrus.Warn("REDIS_ADDR not set, response caching disabled")
	}

	// Shared coordinator for the interactive endpoints
	coordinator := sim.New(cfg.Ledgers, randx.New(cfg.Seed))
	coordinator.SetSink(&events.LogSink{})

	// Set Mode to Release if in production
	if cfg.IsProd {
		gin.SetMode(gin.ReleaseMode)
	}

	// Setup Gin
	r := gin.Default() // Gin router instance

	// Set trusted proxies for Gin
	if err := r.SetTrustedProxies([]string{"127.0.0.1"}); err != nil {
		logrus.Fatalf("failed to set trusted proxies: %v", err)
	}

	r.Use(middleware.RequestLogger())            // Log every request
	r.Use(middleware.RedisInjector(redisClient)) // Inject Redis client into context

	// Simulation routes
	simGroup := r.Group("/simulation")
	simGroup.POST("/run", api.RunSimulationHandler(cfg.Run, cfg.Ledgers)) // Batch comparison run
	simGroup.POST("/init", api.InitHandler(coordinator))                  // Register members
	simGroup.POST("/week", api.ProcessWeekHandler(coordinator))           // Advance one week
	simGroup.GET("/stats", api.StatsHandler(coordinator))                 // Aggregated statistics
	simGroup.GET("/export", api.ExportHandler(coordinator))               // Full ledger snapshots

	r.GET("/wealth/:address", api.WealthHandler(coordinator)) // Per-member wealth breakdown

	// Group purchase routes
	orderGroup := r.Group("/orders")
	orderGroup.POST("", api.CreateOrderHandler(coordinator))                // Open an order
	orderGroup.POST("/:id/contribute", api.ContributeHandler(coordinator)) // Escrow a contribution
	orderGroup.POST("/:id/execute", api.ExecuteOrderHandler(coordinator))  // Settle an order
	orderGroup.POST("/:id/refund", api.ClaimRefundHandler(coordinator))    // Claim an expired refund

	// Staking routes
	stakingGroup := r.Group("/staking")
	stakingGroup.POST("/lock", api.StakeHandler(coordinator))        // Lock tokens
	stakingGroup.POST("/withdraw", api.WithdrawHandler(coordinator)) // Withdraw an expired lock

	// Governance routes
	govGroup := r.Group("/governance")
	govGroup.POST("/proposals", api.CreateProposalHandler(coordinator))              // Open a proposal
	govGroup.POST("/proposals/:id/votes", api.VoteHandler(coordinator))              // Cast a quadratic vote
	govGroup.POST("/proposals/:id/execute", api.ExecuteProposalHandler(coordinator)) // Close a proposal

	log.Println("Server running on " + cfg.AppPort) // Log server start
	r.Run(":" + cfg.AppPort)                        // Start the server on port cfg.AppPort
}
