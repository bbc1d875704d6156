package groupbuy

import (
	"errors" // Sentinel errors
	"math"   // Deadline rounding
	"sort"   // Deterministic participant iteration
	"sync"   // Mutex guarding the engine

	"coop_economy/internal/randx"      // Currency rounding
	"coop_economy/internal/stablecoin" // Escrowed FoodUSD
)

var (
	// ErrInvalidCategory is returned for an order outside the configured categories.
	ErrInvalidCategory = errors.New("groupbuy: invalid order category")
	// ErrOrderNotFound is returned for an unknown order id.
	ErrOrderNotFound = errors.New("groupbuy: order not found")
	// ErrAlreadyExecuted is returned for actions on an executed order.
	ErrAlreadyExecuted = errors.New("groupbuy: order already executed")
	// ErrDeadlinePassed is returned for contributions after the deadline.
	ErrDeadlinePassed = errors.New("groupbuy: order deadline passed")
	// ErrInsufficientBalance is returned when the contributor cannot cover the amount.
	ErrInsufficientBalance = errors.New("groupbuy: insufficient stablecoin balance")
	// ErrTargetNotReached is returned when executing below the target amount.
	ErrTargetNotReached = errors.New("groupbuy: target amount not reached")
	// ErrMinimumParticipants is returned when executing below the participant minimum.
	ErrMinimumParticipants = errors.New("groupbuy: minimum participants not met")
	// ErrRefundUnavailable is returned for refund claims before the deadline,
	// on executed orders, or by non-participants.
	ErrRefundUnavailable = errors.New("groupbuy: refund unavailable")
)

// EscrowAddress holds contributions between escrow and settlement.
const EscrowAddress = "groupbuy_escrow"

// Config holds the group purchase parameters.
type Config struct {
	SavingsRate         float64  // Bulk discount fraction of the pooled total
	MinimumParticipants int      // Participants required to execute
	OrderDeadlineDays   int      // Contribution window in days
	Categories          []string // Recognized order categories
}

// DefaultConfig returns the engine defaults.
func DefaultConfig() Config {
	return Config{
		SavingsRate:         0.15,
		MinimumParticipants: 3,
		OrderDeadlineDays:   7,
		Categories:          []string{"groceries", "prepared_food", "dining"},
	}
}

// Order is a pooled purchase. Once executed it is immutable.
type Order struct {
	ID               uint64             `json:"id"`                // Monotonic order id
	Creator          string             `json:"creator"`           // Creating address
	Supplier         string             `json:"supplier"`          // Paid on execution
	Category         string             `json:"category"`          // Configured category
	TargetAmount     float64            `json:"target_amount"`     // Pool target
	TotalContributed float64            `json:"total_contributed"` // Sum of participant contributions
	Participants     map[string]float64 `json:"participants"`      // Address -> contribution
	CreatedWeek      int                `json:"created_week"`      // Week the order opened
	DeadlineWeek     int                `json:"deadline_week"`     // Last week contributions are accepted
	Executed         bool               `json:"executed"`          // Terminal once true
}

// Contribution is the result of one successful contribution.
type Contribution struct {
	OrderID     uint64  `json:"order_id"`    // Target order
	Contributor string  `json:"contributor"` // Contributing address
	Amount      float64 `json:"amount"`      // Amount escrowed
	Executed    bool    `json:"executed"`    // Whether this contribution triggered execution
}

// SavingsResult records the settlement of an executed order.
type SavingsResult struct {
	OrderID          uint64  `json:"order_id"`          // Executed order
	TotalSpent       float64 `json:"total_spent"`       // Paid to the supplier
	TotalSaved       float64 `json:"total_saved"`       // Refunded to participants
	ParticipantCount int     `json:"participant_count"` // Participants at execution
}

// Statistics summarizes the engine.
type Statistics struct {
	TotalOrders       int     `json:"total_orders"`       // Orders ever created
	ExecutedOrders    int     `json:"executed_orders"`    // Orders settled
	OpenOrders        int     `json:"open_orders"`        // Orders still accepting contributions
	TotalContributed  float64 `json:"total_contributed"`  // Lifetime contributions
	TotalSpent        float64 `json:"total_spent"`        // Lifetime supplier payments
	TotalSaved        float64 `json:"total_saved"`        // Lifetime refunds
	RealizedSavings   float64 `json:"realized_savings"`   // TotalSaved / (TotalSpent + TotalSaved)
	AssumptionHolds   bool    `json:"assumption_holds"`   // Realized rate within tolerance of configured
	ConfiguredSavings float64 `json:"configured_savings"` // Configured savings rate
}

// Snapshot is the exported view of the engine.
type Snapshot struct {
	Orders     []Order         `json:"orders"`
	Results    []SavingsResult `json:"results"`
	Statistics Statistics      `json:"statistics"`
}

// Engine runs pooled-order escrow over the stablecoin ledger.
type Engine struct {
	mu      sync.Mutex
	cfg     Config
	stable  *stablecoin.Ledger
	orders  map[uint64]*Order
	ids     []uint64 // Order ids in creation order
	nextID  uint64
	results []SavingsResult
}

// NewEngine builds an engine escrowing through the given stablecoin ledger.
func NewEngine(cfg Config, stable *stablecoin.Ledger) *Engine {
	return &Engine{
		cfg:    cfg,
		stable: stable,
		orders: make(map[uint64]*Order),
		nextID: 1,
	}
}

// CreateOrder opens a pooled order. The deadline is the creation week plus
// the configured contribution window rounded up to whole weeks, since the
// simulation clock only ticks weekly.
func (e *Engine) CreateOrder(week int, creator, supplier string, targetAmount float64, category string) (*Order, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.validCategory(category) {
		return nil, ErrInvalidCategory
	}
	order := &Order{
		ID:           e.nextID,
		Creator:      creator,
		Supplier:     supplier,
		Category:     category,
		TargetAmount: targetAmount,
		Participants: make(map[string]float64),
		CreatedWeek:  week,
		DeadlineWeek: week + int(math.Ceil(float64(e.cfg.OrderDeadlineDays)/7)),
	}
	e.orders[order.ID] = order
	e.ids = append(e.ids, order.ID)
	e.nextID++
	copied := *order
	copied.Participants = make(map[string]float64)
	return &copied, nil
}

// Contribute escrows the contributor's stablecoin into the pool. Amounts
// are rounded to the two-decimal precision every ledger stores, so the
// settlement arithmetic stays exact. Reaching the target auto-invokes
// execution; an auto-execution blocked only by the participant minimum is
// a normal outcome, not an error.
func (e *Engine) Contribute(week int, orderID uint64, contributor string, amount float64) (*Contribution, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	order, ok := e.orders[orderID]
	if !ok {
		return nil, ErrOrderNotFound
	}
	if order.Executed {
		return nil, ErrAlreadyExecuted
	}
	if week > order.DeadlineWeek {
		return nil, ErrDeadlinePassed
	}
	amount = randx.Round2(amount)
	if amount <= 0 || !e.stable.Transfer(contributor, EscrowAddress, amount) {
		return nil, ErrInsufficientBalance
	}
	order.Participants[contributor] += amount
	order.TotalContributed += amount
	contribution := &Contribution{OrderID: orderID, Contributor: contributor, Amount: amount}
	if order.TotalContributed >= order.TargetAmount {
		if _, err := e.executeLocked(order); err == nil {
			contribution.Executed = true
		}
	}
	return contribution, nil
}

// ExecuteOrder settles a fully funded order: the supplier receives the
// pool minus savings, and each participant is refunded proportionally.
func (e *Engine) ExecuteOrder(orderID uint64) (*SavingsResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	order, ok := e.orders[orderID]
	if !ok {
		return nil, ErrOrderNotFound
	}
	return e.executeLocked(order)
}

// executeLocked must be called with the lock held.
func (e *Engine) executeLocked(order *Order) (*SavingsResult, error) {
	if order.Executed {
		return nil, ErrAlreadyExecuted
	}
	if order.TotalContributed < order.TargetAmount {
		return nil, ErrTargetNotReached
	}
	if len(order.Participants) < e.cfg.MinimumParticipants {
		return nil, ErrMinimumParticipants
	}
	savings := randx.Round2(order.TotalContributed * e.cfg.SavingsRate)
	finalCost := randx.Round2(order.TotalContributed - savings)
	if !e.stable.Transfer(EscrowAddress, order.Supplier, finalCost) {
		return nil, ErrInsufficientBalance
	}
	// The escrow still holds the savings; burning it and minting the
	// refunds is the double-entry that conserves the total supply. Float
	// accumulation can leave the escrow a hair under the rounded savings,
	// so fall back to burning its exact remainder.
	if !e.stable.Burn(EscrowAddress, savings) {
		if !e.stable.Burn(EscrowAddress, order.TotalContributed-finalCost) {
			return nil, ErrInsufficientBalance
		}
	}
	participants := make([]string, 0, len(order.Participants))
	for addr := range order.Participants {
		participants = append(participants, addr)
	}
	sort.Strings(participants)
	// Refunds never exceed the burned savings: each one is clamped to
	// what remains, and the last participant takes the rounding drift,
	// which may leave them with nothing.
	remaining := savings
	for i, addr := range participants {
		refund := randx.Round2(savings * (order.Participants[addr] / order.TotalContributed))
		if refund > remaining {
			refund = randx.Round2(remaining)
		}
		if i == len(participants)-1 {
			refund = randx.Round2(remaining)
		}
		if refund > 0 {
			e.stable.Mint(addr, refund)
		}
		remaining -= refund
	}
	order.Executed = true
	result := SavingsResult{
		OrderID:          order.ID,
		TotalSpent:       finalCost,
		TotalSaved:       savings,
		ParticipantCount: len(order.Participants),
	}
	e.results = append(e.results, result)
	return &result, nil
}

// ClaimRefund returns a participant's contribution after the deadline of a
// non-executed order and removes them from the pool.
func (e *Engine) ClaimRefund(week int, orderID uint64, participant string) (float64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	order, ok := e.orders[orderID]
	if !ok {
		return 0, ErrOrderNotFound
	}
	if order.Executed || week <= order.DeadlineWeek {
		return 0, ErrRefundUnavailable
	}
	amount, ok := order.Participants[participant]
	if !ok {
		return 0, ErrRefundUnavailable
	}
	e.stable.Transfer(EscrowAddress, participant, amount)
	delete(order.Participants, participant)
	order.TotalContributed -= amount
	return amount, nil
}

// GetOrder returns a copy of the order, or ErrOrderNotFound.
func (e *Engine) GetOrder(orderID uint64) (*Order, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	order, ok := e.orders[orderID]
	if !ok {
		return nil, ErrOrderNotFound
	}
	copied := *order
	copied.Participants = make(map[string]float64, len(order.Participants))
	for k, v := range order.Participants {
		copied.Participants[k] = v
	}
	return &copied, nil
}

// ValidateSavingsAssumption compares the realized average savings rate
// across executed orders to the configured rate within a 2% tolerance.
func (e *Engine) ValidateSavingsAssumption() (float64, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.realizedSavingsLocked()
}

func (e *Engine) realizedSavingsLocked() (float64, bool) {
	var spent, saved float64
	for _, r := range e.results {
		spent += r.TotalSpent
		saved += r.TotalSaved
	}
	if spent+saved == 0 {
		return 0, true // Nothing executed yet; the assumption is vacuously intact
	}
	realized := saved / (spent + saved)
	return realized, math.Abs(realized-e.cfg.SavingsRate) <= 0.02
}

// GetStatistics summarizes order and settlement activity.
func (e *Engine) GetStatistics() Statistics {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.statisticsLocked()
}

func (e *Engine) statisticsLocked() Statistics {
	stats := Statistics{
		TotalOrders:       len(e.orders),
		ConfiguredSavings: e.cfg.SavingsRate,
	}
	for _, id := range e.ids {
		order := e.orders[id]
		stats.TotalContributed += order.TotalContributed
		if order.Executed {
			stats.ExecutedOrders++
		} else {
			stats.OpenOrders++
		}
	}
	for _, r := range e.results {
		stats.TotalSpent += r.TotalSpent
		stats.TotalSaved += r.TotalSaved
	}
	stats.RealizedSavings, stats.AssumptionHolds = e.realizedSavingsLocked()
	return stats
}

// Export returns a copy of the full engine state for downstream consumers.
func (e *Engine) Export() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	snap := Snapshot{
		Orders:     make([]Order, 0, len(e.ids)),
		Results:    append([]SavingsResult(nil), e.results...),
		Statistics: e.statisticsLocked(),
	}
	for _, id := range e.ids {
		order := *e.orders[id]
		order.Participants = make(map[string]float64, len(e.orders[id].Participants))
		for k, v := range e.orders[id].Participants {
			order.Participants[k] = v
		}
		snap.Orders = append(snap.Orders, order)
	}
	return snap
}

func (e *Engine) validCategory(category string) bool {
	for _, c := range e.cfg.Categories {
		if c == category {
			return true
		}
	}
	return false
}
