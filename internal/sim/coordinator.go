package sim

import (
	"errors"  // Sentinel errors
	"sort"    // Deterministic household iteration
	"strconv" // Metadata formatting
	"sync"    // Mutex guarding the weekly clock

	"coop_economy/internal/events"     // Optional event sink
	"coop_economy/internal/governance" // Quadratic voting
	"coop_economy/internal/groupbuy"   // Pooled orders
	"coop_economy/internal/randx"      // Currency rounding
	"coop_economy/internal/stablecoin" // FoodUSD ledger
	"coop_economy/internal/staking"    // Lock positions
	"coop_economy/internal/token"      // GroToken ledger
)

var (
	// ErrNotInitialized is returned for operations before Initialize.
	ErrNotInitialized = errors.New("sim: coordinator not initialized")
	// ErrAlreadyInitialized is returned for a second Initialize call.
	ErrAlreadyInitialized = errors.New("sim: coordinator already initialized")
	// ErrMismatchedWealth is returned when addresses and wealth lengths differ.
	ErrMismatchedWealth = errors.New("sim: addresses and initial wealth mismatch")
)

// Weekly budget split across the spending categories.
const (
	GroceriesShare    = 0.60
	PreparedFoodShare = 0.25
	DiningShare       = 0.15
)

// Configs bundles the per-ledger configuration the coordinator builds from.
type Configs struct {
	Token      token.Config
	Stablecoin stablecoin.Config
	GroupBuy   groupbuy.Config
	Staking    staking.Config
	Governance governance.Config
}

// DefaultConfigs returns every ledger's defaults.
func DefaultConfigs() Configs {
	return Configs{
		Token:      token.DefaultConfig(),
		Stablecoin: stablecoin.DefaultConfig(),
		GroupBuy:   groupbuy.DefaultConfig(),
		Staking:    staking.DefaultConfig(),
		Governance: governance.DefaultConfig(),
	}
}

// Models exposes the five ledgers to downstream read-only consumers.
type Models struct {
	Tokens     *token.Ledger
	Stablecoin *stablecoin.Ledger
	GroupBuy   *groupbuy.Engine
	Staking    *staking.Vault
	Governance *governance.Engine
}

// WeekReport summarizes one processed simulation week.
type WeekReport struct {
	Week              int                       `json:"week"`               // Processed week
	Distributions     []token.DistributionEvent `json:"distributions"`      // Rewards minted
	TokensDistributed float64                   `json:"tokens_distributed"` // Total tokens minted
	SpendingRecorded  int                       `json:"spending_recorded"`  // Spend transactions booked
	TotalSpent        float64                   `json:"total_spent"`        // FoodUSD spent
	InterestAccrued   float64                   `json:"interest_accrued"`   // Staking interest added
}

// ComprehensiveStats aggregates every ledger's own statistics.
type ComprehensiveStats struct {
	Week       int                   `json:"week"`
	Token      token.Statistics      `json:"token"`
	Stablecoin stablecoin.Statistics `json:"stablecoin"`
	GroupBuy   groupbuy.Statistics   `json:"group_buy"`
	Staking    staking.Statistics    `json:"staking"`
	Governance governance.Statistics `json:"governance"`
}

// AllData aggregates every ledger's exported snapshot.
type AllData struct {
	Week       int                 `json:"week"`
	Token      token.Snapshot      `json:"token"`
	Stablecoin stablecoin.Snapshot `json:"stablecoin"`
	GroupBuy   groupbuy.Snapshot   `json:"group_buy"`
	Staking    staking.Snapshot    `json:"staking"`
	Governance governance.Snapshot `json:"governance"`
}

// WealthImpact breaks down one address's cooperative wealth.
type WealthImpact struct {
	Address           string  `json:"address"`
	StablecoinBalance float64 `json:"stablecoin_balance"` // Liquid FoodUSD
	TokenBalance      float64 `json:"token_balance"`      // Liquid GroTokens
	TokenValueUSD     float64 `json:"token_value_usd"`    // Liquid tokens x token value
	StakedTokens      float64 `json:"staked_tokens"`      // Principal + accrued interest
	StakedValueUSD    float64 `json:"staked_value_usd"`   // Staked tokens x token value
	TotalWealth       float64 `json:"total_wealth"`       // Sum of the USD components
}

// EconomyComparison contrasts cooperative spending with a traditional
// baseline the caller supplies.
type EconomyComparison struct {
	TraditionalSpending float64 `json:"traditional_spending"` // Caller-supplied baseline
	CooperativeSpending float64 `json:"cooperative_spending"` // Categorized spend + executed orders
	GroupBuySavings     float64 `json:"group_buy_savings"`    // Refunds from executed orders
	TokenRewardsUSD     float64 `json:"token_rewards_usd"`    // Distributed tokens x value
	NetBenefit          float64 `json:"net_benefit"`          // Baseline - cooperative + rewards
}

// Coordinator sequences the five ledgers through discrete weekly ticks and
// exposes the uniform action surface. It holds shared references to the
// ledgers and owns none of their internal state. The mutex guards the
// weekly clock and the initialized flag; a shared coordinator behind
// concurrent handlers must not read the clock mid-tick.
type Coordinator struct {
	mu          sync.Mutex
	tokens      *token.Ledger
	stable      *stablecoin.Ledger
	groupBuy    *groupbuy.Engine
	vault       *staking.Vault
	gov         *governance.Engine
	sink        events.Sink
	currentWeek int
	initialized bool
}

// New builds a coordinator and a private set of ledgers from the configs.
// Each simulation instantiates its own coordinator; there is no shared
// process-wide state.
func New(cfgs Configs, rng randx.Source) *Coordinator {
	tokens := token.NewLedger(cfgs.Token, rng)
	stable := stablecoin.NewLedger(cfgs.Stablecoin)
	vault := staking.NewVault(cfgs.Staking, tokens)
	return &Coordinator{
		tokens:   tokens,
		stable:   stable,
		groupBuy: groupbuy.NewEngine(cfgs.GroupBuy, stable),
		vault:    vault,
		gov:      governance.NewEngine(cfgs.Governance, vault),
	}
}

// SetSink attaches an optional event sink. The coordinator functions
// identically with none attached.
func (c *Coordinator) SetSink(sink events.Sink) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sink = sink
}

// Initialize registers the member addresses and seeds their FoodUSD
// balances. It may only be called once.
func (c *Coordinator) Initialize(addresses []string, initialWealth []float64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.initialized {
		return ErrAlreadyInitialized
	}
	if len(initialWealth) != 0 && len(initialWealth) != len(addresses) {
		return ErrMismatchedWealth
	}
	c.tokens.InitializeHolders(addresses)
	for i, addr := range addresses {
		if len(initialWealth) > 0 && initialWealth[i] > 0 {
			c.stable.Mint(addr, randx.Round2(initialWealth[i]))
		}
	}
	c.initialized = true
	return nil
}

// ProcessWeek advances one simulated week in the required order: token
// distribution first, then stablecoin funding and categorized spending,
// then staking interest accrual last.
func (c *Coordinator) ProcessWeek(week int, budgets map[string]float64) (*WeekReport, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.initialized {
		return nil, ErrNotInitialized
	}
	report := &WeekReport{Week: week}

	// (a) Weekly token distribution.
	report.Distributions = c.tokens.DistributeWeekly(week)
	for _, ev := range report.Distributions {
		report.TokensDistributed += ev.Amount
	}
	c.publishDistributions(week, report.Distributions)

	// (b) Fund each household its budget and spend it 60/25/15 across
	// groceries, prepared food and dining.
	for _, addr := range sortedKeys(budgets) {
		budget := budgets[addr]
		if budget <= 0 {
			continue
		}
		c.stable.FundAccount(addr, randx.Round2(budget))
		split := splitBudget(budget)
		for _, tx := range c.stable.ProcessWeeklySpending(week, addr, split) {
			report.SpendingRecorded++
			report.TotalSpent += tx.Amount
		}
	}

	// (c) Interest accrual is always the last step of the tick.
	report.InterestAccrued = c.vault.AccrueInterest(week)

	c.currentWeek = week
	return report, nil
}

// publishDistributions emits a finance-transaction-shaped record per
// distribution event when a sink is attached.
func (c *Coordinator) publishDistributions(week int, distributions []token.DistributionEvent) {
	if c.sink == nil {
		return
	}
	for _, ev := range distributions {
		c.sink.Publish("finance.transaction", ev, "token_ledger", map[string]string{
			"week": strconv.Itoa(week),
			"kind": "distribution",
		})
	}
}

// week snapshots the clock for a pass-through action, failing before
// initialization.
func (c *Coordinator) week() (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.initialized {
		return 0, ErrNotInitialized
	}
	return c.currentWeek, nil
}

// CreateGroupOrder opens a pooled order at the current week.
func (c *Coordinator) CreateGroupOrder(creator, supplier string, targetAmount float64, category string) (*groupbuy.Order, error) {
	week, err := c.week()
	if err != nil {
		return nil, err
	}
	return c.groupBuy.CreateOrder(week, creator, supplier, targetAmount, category)
}

// ContributeToOrder escrows a contribution at the current week.
func (c *Coordinator) ContributeToOrder(orderID uint64, contributor string, amount float64) (*groupbuy.Contribution, error) {
	week, err := c.week()
	if err != nil {
		return nil, err
	}
	return c.groupBuy.Contribute(week, orderID, contributor, amount)
}

// ExecuteGroupOrder settles an order explicitly.
func (c *Coordinator) ExecuteGroupOrder(orderID uint64) (*groupbuy.SavingsResult, error) {
	if _, err := c.week(); err != nil {
		return nil, err
	}
	return c.groupBuy.ExecuteOrder(orderID)
}

// ClaimOrderRefund returns a contribution from an expired unexecuted order.
func (c *Coordinator) ClaimOrderRefund(orderID uint64, participant string) (float64, error) {
	week, err := c.week()
	if err != nil {
		return 0, err
	}
	return c.groupBuy.ClaimRefund(week, orderID, participant)
}

// StakeTokens opens a lock position at the current week.
func (c *Coordinator) StakeTokens(addr string, amount float64, durationYears int) (*staking.Position, error) {
	week, err := c.week()
	if err != nil {
		return nil, err
	}
	return c.vault.CreateLock(week, addr, amount, durationYears)
}

// WithdrawStake closes an expired lock at the current week.
func (c *Coordinator) WithdrawStake(addr string) (float64, error) {
	week, err := c.week()
	if err != nil {
		return 0, err
	}
	return c.vault.Withdraw(week, addr)
}

// CreateProposal opens a governance proposal at the current week.
func (c *Coordinator) CreateProposal(proposer, description, category string) (*governance.Proposal, error) {
	week, err := c.week()
	if err != nil {
		return nil, err
	}
	return c.gov.CreateProposal(week, proposer, description, category)
}

// Vote casts a quadratic vote at the current week.
func (c *Coordinator) Vote(proposalID uint64, voter string, rawVotes float64, support bool) (*governance.Vote, error) {
	week, err := c.week()
	if err != nil {
		return nil, err
	}
	return c.gov.CastVote(week, proposalID, voter, rawVotes, support)
}

// ExecuteProposal closes a proposal at the current week.
func (c *Coordinator) ExecuteProposal(proposalID uint64) (*governance.Result, error) {
	week, err := c.week()
	if err != nil {
		return nil, err
	}
	return c.gov.ExecuteProposal(week, proposalID)
}

// GetCurrentWeek returns the latest processed week.
func (c *Coordinator) GetCurrentWeek() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.currentWeek
}

// GetModels exposes the ledgers for downstream read-only consumers.
func (c *Coordinator) GetModels() Models {
	return Models{
		Tokens:     c.tokens,
		Stablecoin: c.stable,
		GroupBuy:   c.groupBuy,
		Staking:    c.vault,
		Governance: c.gov,
	}
}

// GetComprehensiveStats aggregates every ledger's statistics without
// adding new invariants.
func (c *Coordinator) GetComprehensiveStats() ComprehensiveStats {
	return ComprehensiveStats{
		Week:       c.GetCurrentWeek(),
		Token:      c.tokens.GetStatistics(),
		Stablecoin: c.stable.GetStatistics(),
		GroupBuy:   c.groupBuy.GetStatistics(),
		Staking:    c.vault.GetStatistics(),
		Governance: c.gov.GetStatistics(),
	}
}

// ExportAllData aggregates every ledger's exported snapshot.
func (c *Coordinator) ExportAllData() AllData {
	return AllData{
		Week:       c.GetCurrentWeek(),
		Token:      c.tokens.Export(),
		Stablecoin: c.stable.Export(),
		GroupBuy:   c.groupBuy.Export(),
		Staking:    c.vault.Export(),
		Governance: c.gov.Export(),
	}
}

// CalculateWealthImpact values one address's liquid and staked holdings.
func (c *Coordinator) CalculateWealthImpact(addr string) WealthImpact {
	impact := WealthImpact{
		Address:           addr,
		StablecoinBalance: c.stable.BalanceOf(addr),
		TokenBalance:      c.tokens.BalanceOf(addr),
		StakedTokens:      c.vault.StakedValue(addr),
	}
	impact.TokenValueUSD = impact.TokenBalance * c.tokens.TokenValue()
	impact.StakedValueUSD = impact.StakedTokens * c.tokens.TokenValue()
	impact.TotalWealth = impact.StablecoinBalance + impact.TokenValueUSD + impact.StakedValueUSD
	return impact
}

// CompareEconomies contrasts realized cooperative spending against the
// caller's traditional-spending baseline.
func (c *Coordinator) CompareEconomies(traditionalSpending float64) EconomyComparison {
	stableStats := c.stable.GetStatistics()
	groupStats := c.groupBuy.GetStatistics()
	tokenStats := c.tokens.GetStatistics()
	comparison := EconomyComparison{
		TraditionalSpending: traditionalSpending,
		CooperativeSpending: stableStats.TotalSpent + groupStats.TotalSpent,
		GroupBuySavings:     groupStats.TotalSaved,
		TokenRewardsUSD:     tokenStats.TotalDistributed * c.tokens.TokenValue(),
	}
	comparison.NetBenefit = traditionalSpending - comparison.CooperativeSpending + comparison.TokenRewardsUSD
	return comparison
}

// splitBudget divides a weekly budget 60/25/15, with dining absorbing the
// rounding remainder so the three parts sum to the budget exactly.
func splitBudget(budget float64) map[string]float64 {
	groceries := randx.Round2(budget * GroceriesShare)
	prepared := randx.Round2(budget * PreparedFoodShare)
	dining := randx.Round2(budget - groceries - prepared)
	return map[string]float64{
		"groceries":     groceries,
		"prepared_food": prepared,
		"dining":        dining,
	}
}

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
