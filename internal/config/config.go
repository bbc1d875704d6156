package config

import (
	"fmt"     // Validation errors
	"os"      // For environment variables
	"strconv" // For string to number conversion
	"strings" // Category list parsing

	"github.com/joho/godotenv" // For loading .env files

	"coop_economy/internal/sim"     // Coordinator and run parameters
	"coop_economy/internal/staking" // Compounding frequency constants
)

// Config holds the application configuration: server settings plus every
// simulation parameter, each with a compiled-in default and an env override.
type Config struct {
	AppPort   string        // HTTP server port
	RedisAddr string        // Redis server address; empty disables caching
	RedisPass string        // Redis password
	RedisDB   int           // Redis database number
	IsProd    bool          // Is production environment
	Seed      int64         // Randomness seed for simulation runs
	Ledgers   sim.Configs   // Per-ledger configuration
	Run       sim.RunParams // Batch simulation parameters
}

// LoadConfig loads configuration from environment variables on top of the
// defaults and validates the result.
func LoadConfig() (*Config, error) {
	_ = godotenv.Load() // Load .env file if present
	cfg := &Config{
		AppPort:   envString("APP_PORT", "8080"),
		RedisAddr: envString("REDIS_ADDR", ""),
		RedisPass: envString("REDIS_PASS", ""),
		RedisDB:   envInt("REDIS_DB", 0),
		IsProd:    os.Getenv("IS_PROD") == "true",
		Seed:      int64(envInt("SIM_SEED", 1)),
		Ledgers:   sim.DefaultConfigs(),
		Run:       sim.DefaultRunParams(),
	}

	// Token ledger overrides
	cfg.Ledgers.Token.DistributionMean = envFloat("TOKEN_DISTRIBUTION_MEAN", cfg.Ledgers.Token.DistributionMean)
	cfg.Ledgers.Token.DistributionStd = envFloat("TOKEN_DISTRIBUTION_STD", cfg.Ledgers.Token.DistributionStd)
	cfg.Ledgers.Token.TokenValue = envFloat("TOKEN_VALUE", cfg.Ledgers.Token.TokenValue)
	cfg.Ledgers.Token.ParticipationRate = envFloat("TOKEN_PARTICIPATION_RATE", cfg.Ledgers.Token.ParticipationRate)
	cfg.Ledgers.Token.MinTokensPerDist = envFloat("TOKEN_MIN_PER_DISTRIBUTION", cfg.Ledgers.Token.MinTokensPerDist)
	cfg.Ledgers.Token.MaxTokensPerDist = envFloat("TOKEN_MAX_PER_DISTRIBUTION", cfg.Ledgers.Token.MaxTokensPerDist)
	cfg.Ledgers.Token.TotalSupply = envFloat("TOKEN_TOTAL_SUPPLY", cfg.Ledgers.Token.TotalSupply)
	cfg.Ledgers.Token.TreasuryAddress = envString("TREASURY_ADDRESS", cfg.Ledgers.Token.TreasuryAddress)

	// Stablecoin ledger overrides
	cfg.Ledgers.Stablecoin.PegValue = envFloat("STABLECOIN_PEG_VALUE", cfg.Ledgers.Stablecoin.PegValue)
	cfg.Ledgers.Stablecoin.TreasuryAddress = envString("TREASURY_ADDRESS", cfg.Ledgers.Stablecoin.TreasuryAddress)
	cfg.Ledgers.Stablecoin.FoodCategories = envList("STABLECOIN_FOOD_CATEGORIES", cfg.Ledgers.Stablecoin.FoodCategories)
	cfg.Ledgers.Stablecoin.AllowUserMinting = envBool("STABLECOIN_ALLOW_USER_MINTING", cfg.Ledgers.Stablecoin.AllowUserMinting)
	cfg.Ledgers.Stablecoin.RequireTreasuryApproval = envBool("STABLECOIN_REQUIRE_TREASURY_APPROVAL", cfg.Ledgers.Stablecoin.RequireTreasuryApproval)

	// Group purchase overrides
	cfg.Ledgers.GroupBuy.SavingsRate = envFloat("GROUPBUY_SAVINGS_RATE", cfg.Ledgers.GroupBuy.SavingsRate)
	cfg.Ledgers.GroupBuy.MinimumParticipants = envInt("GROUPBUY_MINIMUM_PARTICIPANTS", cfg.Ledgers.GroupBuy.MinimumParticipants)
	cfg.Ledgers.GroupBuy.OrderDeadlineDays = envInt("GROUPBUY_ORDER_DEADLINE_DAYS", cfg.Ledgers.GroupBuy.OrderDeadlineDays)
	cfg.Ledgers.GroupBuy.Categories = envList("GROUPBUY_CATEGORIES", cfg.Ledgers.GroupBuy.Categories)

	// Staking overrides
	cfg.Ledgers.Staking.BaseInterestRate = envFloat("STAKING_BASE_INTEREST_RATE", cfg.Ledgers.Staking.BaseInterestRate)
	cfg.Ledgers.Staking.LockBonusMultiplier = envFloat("STAKING_LOCK_BONUS_MULTIPLIER", cfg.Ledgers.Staking.LockBonusMultiplier)
	cfg.Ledgers.Staking.MinLockDurationYears = envInt("STAKING_MIN_LOCK_YEARS", cfg.Ledgers.Staking.MinLockDurationYears)
	cfg.Ledgers.Staking.MaxLockDurationYears = envInt("STAKING_MAX_LOCK_YEARS", cfg.Ledgers.Staking.MaxLockDurationYears)
	cfg.Ledgers.Staking.CompoundingFrequency = envString("STAKING_COMPOUNDING_FREQUENCY", cfg.Ledgers.Staking.CompoundingFrequency)

	// Governance overrides
	cfg.Ledgers.Governance.VotingPeriodWeeks = envInt("GOVERNANCE_VOTING_PERIOD_WEEKS", cfg.Ledgers.Governance.VotingPeriodWeeks)
	cfg.Ledgers.Governance.ProposalThreshold = envFloat("GOVERNANCE_PROPOSAL_THRESHOLD", cfg.Ledgers.Governance.ProposalThreshold)
	cfg.Ledgers.Governance.QuorumPercentage = envFloat("GOVERNANCE_QUORUM_PERCENTAGE", cfg.Ledgers.Governance.QuorumPercentage)
	cfg.Ledgers.Governance.Chairperson = envString("GOVERNANCE_CHAIRPERSON", cfg.Ledgers.Governance.Chairperson)

	// Batch run overrides
	cfg.Run.NumMembers = envInt("SIM_NUM_MEMBERS", cfg.Run.NumMembers)
	cfg.Run.SimulationWeeks = envInt("SIM_WEEKS", cfg.Run.SimulationWeeks)
	cfg.Run.WeeklyFoodBudgetAvg = envFloat("SIM_WEEKLY_FOOD_BUDGET_AVG", cfg.Run.WeeklyFoodBudgetAvg)
	cfg.Run.WeeklyIncomeAvg = envFloat("SIM_WEEKLY_INCOME_AVG", cfg.Run.WeeklyIncomeAvg)
	cfg.Run.WeeklyCoopFee = envFloat("SIM_WEEKLY_COOP_FEE", cfg.Run.WeeklyCoopFee)
	cfg.Run.GroupBuySavingsPct = cfg.Ledgers.GroupBuy.SavingsRate
	cfg.Run.Seed = cfg.Seed

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks configuration consistency once at construction.
func (c *Config) Validate() error {
	if c.Ledgers.Token.ParticipationRate < 0 || c.Ledgers.Token.ParticipationRate > 1 {
		return fmt.Errorf("config: participation rate %v outside [0, 1]", c.Ledgers.Token.ParticipationRate)
	}
	if c.Ledgers.Token.MinTokensPerDist > c.Ledgers.Token.MaxTokensPerDist {
		return fmt.Errorf("config: min tokens per distribution exceeds max")
	}
	if len(c.Ledgers.Stablecoin.FoodCategories) == 0 {
		return fmt.Errorf("config: no stablecoin food categories configured")
	}
	if c.Ledgers.GroupBuy.SavingsRate < 0 || c.Ledgers.GroupBuy.SavingsRate >= 1 {
		return fmt.Errorf("config: savings rate %v outside [0, 1)", c.Ledgers.GroupBuy.SavingsRate)
	}
	if c.Ledgers.GroupBuy.MinimumParticipants < 1 {
		return fmt.Errorf("config: minimum participants must be at least 1")
	}
	if c.Ledgers.Staking.MinLockDurationYears < 1 || c.Ledgers.Staking.MinLockDurationYears > c.Ledgers.Staking.MaxLockDurationYears {
		return fmt.Errorf("config: invalid lock duration bounds [%d, %d]",
			c.Ledgers.Staking.MinLockDurationYears, c.Ledgers.Staking.MaxLockDurationYears)
	}
	switch c.Ledgers.Staking.CompoundingFrequency {
	case staking.CompoundWeekly, staking.CompoundMonthly, staking.CompoundYearly:
	default:
		return fmt.Errorf("config: unknown compounding frequency %q", c.Ledgers.Staking.CompoundingFrequency)
	}
	if c.Ledgers.Governance.QuorumPercentage < 0 || c.Ledgers.Governance.QuorumPercentage > 1 {
		return fmt.Errorf("config: quorum percentage %v outside [0, 1]", c.Ledgers.Governance.QuorumPercentage)
	}
	if c.Ledgers.Governance.VotingPeriodWeeks < 1 {
		return fmt.Errorf("config: voting period must be at least 1 week")
	}
	if c.Run.NumMembers < 1 || c.Run.SimulationWeeks < 1 {
		return fmt.Errorf("config: simulation needs at least 1 member and 1 week")
	}
	return nil
}

// envString returns the env value or the fallback when unset.
func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// envInt returns the env value parsed as int, or the fallback.
func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

// envFloat returns the env value parsed as float64, or the fallback.
func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

// envBool returns the env value parsed as bool, or the fallback.
func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		return v == "true" || v == "1"
	}
	return fallback
}

// envList returns the env value split on commas, or the fallback.
func envList(key string, fallback []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				out = append(out, trimmed)
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return fallback
}
