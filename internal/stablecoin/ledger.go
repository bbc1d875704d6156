package stablecoin

import (
	"errors" // Sentinel errors
	"sync"   // Mutex guarding the ledger
)

var (
	// ErrInsufficientBalance is returned when a spend exceeds the holder balance.
	ErrInsufficientBalance = errors.New("stablecoin: insufficient balance")
	// ErrInvalidCategory is returned for a spend outside the configured categories.
	ErrInvalidCategory = errors.New("stablecoin: invalid spending category")
)

// Config holds the FoodUSD ledger parameters.
//
// AllowUserMinting and RequireTreasuryApproval are policy declarations
// carried through config and exports for operators; the ledger itself does
// not gate Mint on them. Every mint in this system is issued by a trusted
// engine (weekly funding, staking payouts, savings refunds), so there is no
// untrusted caller for the flags to restrain.
type Config struct {
	PegValue                float64  // USD value of one unit (1:1 peg)
	TreasuryAddress         string   // Treasury holder, excluded from statistics
	FoodCategories          []string // Recognized spending categories
	AllowUserMinting        bool     // Declared policy only; not enforced by Mint
	RequireTreasuryApproval bool     // Declared policy only; not enforced by Mint
}

// DefaultConfig returns the ledger defaults.
func DefaultConfig() Config {
	return Config{
		PegValue:        1.0,
		TreasuryAddress: "treasury",
		FoodCategories:  []string{"groceries", "prepared_food", "dining"},
	}
}

// Holder is a FoodUSD account.
type Holder struct {
	Address            string             `json:"address"`              // Account address
	Balance            float64            `json:"balance"`              // Current balance
	TotalMinted        float64            `json:"total_minted"`         // Lifetime mints
	TotalBurned        float64            `json:"total_burned"`         // Lifetime burns
	TotalSpent         float64            `json:"total_spent"`          // Lifetime categorized spending
	SpendingByCategory map[string]float64 `json:"spending_by_category"` // Category -> amount
}

// SpendingTransaction records one categorized spend.
type SpendingTransaction struct {
	Week     int     `json:"week"`     // Simulation week
	Holder   string  `json:"holder"`   // Spending address
	Category string  `json:"category"` // Configured category
	Amount   float64 `json:"amount"`   // Amount spent (burned)
}

// Statistics summarizes the ledger, excluding the treasury holder.
type Statistics struct {
	TotalSupply        float64            `json:"total_supply"`         // Sum of all balances
	TotalMinted        float64            `json:"total_minted"`         // Lifetime mints
	TotalBurned        float64            `json:"total_burned"`         // Lifetime burns
	TotalSpent         float64            `json:"total_spent"`          // Lifetime categorized spending
	HolderCount        int                `json:"holder_count"`         // Accounts excluding treasury
	AverageBalance     float64            `json:"average_balance"`      // Mean non-treasury balance
	SpendingByCategory map[string]float64 `json:"spending_by_category"` // Aggregate per category
}

// Snapshot is the exported view of the ledger.
type Snapshot struct {
	Holders      []Holder              `json:"holders"`
	Transactions []SpendingTransaction `json:"transactions"`
	Statistics   Statistics            `json:"statistics"`
}

// Ledger tracks FoodUSD balances and per-category spending. Burn and
// Transfer return false instead of an error on insufficient balance; the
// group purchase engine's escrow flow depends on that discipline.
type Ledger struct {
	mu           sync.Mutex
	cfg          Config
	holders      map[string]*Holder
	order        []string
	supply       float64
	minted       float64
	burned       float64
	spent        float64
	byCategory   map[string]float64
	transactions []SpendingTransaction
	categories   map[string]bool
}

// NewLedger builds an empty ledger around the given config.
func NewLedger(cfg Config) *Ledger {
	categories := make(map[string]bool, len(cfg.FoodCategories))
	for _, c := range cfg.FoodCategories {
		categories[c] = true
	}
	return &Ledger{
		cfg:        cfg,
		holders:    make(map[string]*Holder),
		byCategory: make(map[string]float64),
		categories: categories,
	}
}

// Mint credits new FoodUSD to a holder, creating the account if needed.
func (l *Ledger) Mint(addr string, amount float64) bool {
	if amount <= 0 {
		return false
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	h := l.getOrCreate(addr)
	h.Balance += amount
	h.TotalMinted += amount
	l.supply += amount
	l.minted += amount
	return true
}

// FundAccount is the mint alias used by the weekly funding path.
func (l *Ledger) FundAccount(addr string, amount float64) bool {
	return l.Mint(addr, amount)
}

// Burn destroys FoodUSD from a holder. Returns false on insufficient balance.
func (l *Ledger) Burn(addr string, amount float64) bool {
	if amount <= 0 {
		return false
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	h, ok := l.holders[addr]
	if !ok || h.Balance < amount {
		return false
	}
	l.burnLocked(h, amount)
	return true
}

// Transfer moves FoodUSD between holders. Returns false on insufficient
// balance or an unknown sender; the recipient is created if missing.
func (l *Ledger) Transfer(from, to string, amount float64) bool {
	if amount <= 0 || from == to {
		return false
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	src, ok := l.holders[from]
	if !ok || src.Balance < amount {
		return false
	}
	src.Balance -= amount
	l.getOrCreate(to).Balance += amount
	return true
}

// RecordSpending burns the amount from the holder and books it against the
// category. The whole call fails with no mutation on a bad category or an
// insufficient balance.
func (l *Ledger) RecordSpending(week int, addr, category string, amount float64) (*SpendingTransaction, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.categories[category] {
		return nil, ErrInvalidCategory
	}
	h, ok := l.holders[addr]
	if !ok || h.Balance < amount {
		return nil, ErrInsufficientBalance
	}
	l.burnLocked(h, amount)
	h.TotalSpent += amount
	h.SpendingByCategory[category] += amount
	l.spent += amount
	l.byCategory[category] += amount
	tx := SpendingTransaction{Week: week, Holder: addr, Category: category, Amount: amount}
	l.transactions = append(l.transactions, tx)
	return &tx, nil
}

// ProcessWeeklySpending records one spend per category, skipping
// non-positive amounts, unknown categories and spends past the balance.
func (l *Ledger) ProcessWeeklySpending(week int, addr string, categoryAmounts map[string]float64) []SpendingTransaction {
	var recorded []SpendingTransaction
	// Iterate configured categories for deterministic ordering.
	for _, category := range l.cfg.FoodCategories {
		amount, ok := categoryAmounts[category]
		if !ok || amount <= 0 {
			continue
		}
		if tx, err := l.RecordSpending(week, addr, category, amount); err == nil {
			recorded = append(recorded, *tx)
		}
	}
	return recorded
}

// BalanceOf returns the holder's balance, 0 for unknown addresses.
func (l *Ledger) BalanceOf(addr string) float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	if h, ok := l.holders[addr]; ok {
		return h.Balance
	}
	return 0
}

// Categories exposes the configured spending categories.
func (l *Ledger) Categories() []string {
	return append([]string(nil), l.cfg.FoodCategories...)
}

// GetStatistics summarizes the ledger, excluding the treasury holder.
func (l *Ledger) GetStatistics() Statistics {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.statisticsLocked()
}

func (l *Ledger) statisticsLocked() Statistics {
	stats := Statistics{
		TotalSupply:        l.supply,
		TotalMinted:        l.minted,
		TotalBurned:        l.burned,
		TotalSpent:         l.spent,
		SpendingByCategory: make(map[string]float64, len(l.byCategory)),
	}
	for k, v := range l.byCategory {
		stats.SpendingByCategory[k] = v
	}
	var nonTreasury float64
	for _, h := range l.holders {
		if h.Address == l.cfg.TreasuryAddress {
			continue
		}
		stats.HolderCount++
		nonTreasury += h.Balance
	}
	if stats.HolderCount > 0 {
		stats.AverageBalance = nonTreasury / float64(stats.HolderCount)
	}
	return stats
}

// Export returns a copy of the full ledger state for downstream consumers.
func (l *Ledger) Export() Snapshot {
	l.mu.Lock()
	defer l.mu.Unlock()
	snap := Snapshot{
		Holders:      make([]Holder, 0, len(l.order)),
		Transactions: append([]SpendingTransaction(nil), l.transactions...),
		Statistics:   l.statisticsLocked(),
	}
	for _, addr := range l.order {
		h := *l.holders[addr]
		h.SpendingByCategory = make(map[string]float64, len(l.holders[addr].SpendingByCategory))
		for k, v := range l.holders[addr].SpendingByCategory {
			h.SpendingByCategory[k] = v
		}
		snap.Holders = append(snap.Holders, h)
	}
	return snap
}

// burnLocked must be called with the lock held and a sufficient balance.
func (l *Ledger) burnLocked(h *Holder, amount float64) {
	h.Balance -= amount
	h.TotalBurned += amount
	l.supply -= amount
	l.burned += amount
}

// getOrCreate must be called with the lock held.
func (l *Ledger) getOrCreate(addr string) *Holder {
	h, ok := l.holders[addr]
	if !ok {
		h = &Holder{Address: addr, SpendingByCategory: make(map[string]float64)}
		l.holders[addr] = h
		l.order = append(l.order, addr)
	}
	return h
}
