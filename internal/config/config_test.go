package config_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"coop_economy/internal/config"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := config.LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.AppPort)
	assert.InDelta(t, 0.5, cfg.Ledgers.Token.DistributionMean, 1e-9)
	assert.InDelta(t, 2.0, cfg.Ledgers.Token.TokenValue, 1e-9)
	assert.InDelta(t, 0.15, cfg.Ledgers.GroupBuy.SavingsRate, 1e-9)
	assert.Equal(t, 50, cfg.Run.NumMembers)
	assert.Equal(t, 156, cfg.Run.SimulationWeeks)
	// The runner's discount assumption tracks the engine's configured rate
	assert.InDelta(t, cfg.Ledgers.GroupBuy.SavingsRate, cfg.Run.GroupBuySavingsPct, 1e-9)
	assert.Equal(t, cfg.Seed, cfg.Run.Seed)
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	t.Setenv("TOKEN_DISTRIBUTION_MEAN", "0.7")
	t.Setenv("GROUPBUY_MINIMUM_PARTICIPANTS", "5")
	t.Setenv("STAKING_COMPOUNDING_FREQUENCY", "monthly")
	t.Setenv("STABLECOIN_FOOD_CATEGORIES", "groceries, dining")
	t.Setenv("SIM_NUM_MEMBERS", "25")
	t.Setenv("SIM_SEED", "42")

	cfg, err := config.LoadConfig()
	require.NoError(t, err)

	assert.InDelta(t, 0.7, cfg.Ledgers.Token.DistributionMean, 1e-9)
	assert.Equal(t, 5, cfg.Ledgers.GroupBuy.MinimumParticipants)
	assert.Equal(t, "monthly", cfg.Ledgers.Staking.CompoundingFrequency)
	assert.Equal(t, []string{"groceries", "dining"}, cfg.Ledgers.Stablecoin.FoodCategories)
	assert.Equal(t, 25, cfg.Run.NumMembers)
	assert.Equal(t, int64(42), cfg.Run.Seed)
}

func TestLoadConfig_RejectsInvalid(t *testing.T) {
	t.Setenv("TOKEN_PARTICIPATION_RATE", "1.5")
	_, err := config.LoadConfig()
	assert.Error(t, err)
}

func TestLoadConfig_RejectsBadCompounding(t *testing.T) {
	t.Setenv("STAKING_COMPOUNDING_FREQUENCY", "daily")
	_, err := config.LoadConfig()
	assert.Error(t, err)
}

func TestLoadConfig_RejectsBadSavingsRate(t *testing.T) {
	t.Setenv("GROUPBUY_SAVINGS_RATE", "1.0")
	_, err := config.LoadConfig()
	assert.Error(t, err)
}
