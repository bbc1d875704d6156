package token

import (
	"sync" // Mutex guarding the ledger

	"coop_economy/internal/randx" // Injectable randomness
)

// Config holds the GroToken ledger parameters.
type Config struct {
	DistributionMean  float64 // Mean weekly reward per participant
	DistributionStd   float64 // Std deviation of the weekly reward
	TokenValue        float64 // USD value of one token
	ParticipationRate float64 // Fraction of holders sampled as participants
	MinTokensPerDist  float64 // Lower clamp on a single distribution
	MaxTokensPerDist  float64 // Upper clamp on a single distribution
	TotalSupply       float64 // Supply cap for weekly distribution
	TreasuryAddress   string  // Treasury holder address
}

// DefaultConfig returns the ledger defaults.
func DefaultConfig() Config {
	return Config{
		DistributionMean:  0.5,
		DistributionStd:   0.2,
		TokenValue:        2.0,
		ParticipationRate: 0.8,
		MinTokensPerDist:  0.0,
		MaxTokensPerDist:  2.0,
		TotalSupply:       1_000_000,
		TreasuryAddress:   "treasury",
	}
}

// Holder is a GroToken account.
type Holder struct {
	Address              string  `json:"address"`                // Account address
	Balance              float64 `json:"balance"`                // Current balance
	TotalReceived        float64 `json:"total_received"`         // Lifetime distribution total
	Participates         bool    `json:"participates"`           // Fixed at initialization
	LastDistributionWeek int     `json:"last_distribution_week"` // Week of the last reward
}

// DistributionEvent records one minted weekly reward.
type DistributionEvent struct {
	Week        int     `json:"week"`         // Simulation week
	Recipient   string  `json:"recipient"`    // Receiving address
	Amount      float64 `json:"amount"`       // Tokens minted
	DollarValue float64 `json:"dollar_value"` // Amount x configured token value
	Supply      float64 `json:"supply"`       // Running supply after the mint
}

// Statistics summarizes the ledger.
type Statistics struct {
	CurrentSupply    float64 `json:"current_supply"`    // Sum of all balances
	TotalDistributed float64 `json:"total_distributed"` // Lifetime distribution total
	HolderCount      int     `json:"holder_count"`      // Number of accounts
	ParticipantCount int     `json:"participant_count"` // Accounts receiving rewards
	AverageBalance   float64 `json:"average_balance"`   // Mean balance across holders
	TotalUSDValue    float64 `json:"total_usd_value"`   // Supply x token value
}

// Snapshot is the exported view of the ledger.
type Snapshot struct {
	Holders       []Holder            `json:"holders"`
	Distributions []DistributionEvent `json:"distributions"`
	Statistics    Statistics          `json:"statistics"`
}

// Ledger tracks GroToken balances and the weekly randomized distribution.
// All methods take the lock for the full validate-and-mutate sequence.
type Ledger struct {
	mu            sync.Mutex
	cfg           Config
	rng           randx.Source
	holders       map[string]*Holder
	order         []string // Holder addresses in insertion order, for deterministic iteration
	supply        float64
	distributed   float64
	distributions []DistributionEvent
}

// NewLedger builds an empty ledger around the given config and randomness source.
func NewLedger(cfg Config, rng randx.Source) *Ledger {
	return &Ledger{
		cfg:     cfg,
		rng:     rng,
		holders: make(map[string]*Holder),
	}
}

// InitializeHolders registers every address and samples
// floor(N x participationRate) of them as lifetime participants. The
// participant set is fixed here and never re-sampled.
func (l *Ledger) InitializeHolders(addresses []string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, addr := range addresses {
		if _, ok := l.holders[addr]; ok {
			continue
		}
		l.holders[addr] = &Holder{Address: addr, LastDistributionWeek: -1}
		l.order = append(l.order, addr)
	}
	count := int(float64(len(addresses)) * l.cfg.ParticipationRate)
	for _, idx := range l.rng.Perm(len(addresses))[:count] {
		l.holders[addresses[idx]].Participates = true
	}
}

// DistributeWeekly mints a gaussian-sampled reward to every participant.
// A mint that would push the supply past the cap skips that holder only.
func (l *Ledger) DistributeWeekly(week int) []DistributionEvent {
	l.mu.Lock()
	defer l.mu.Unlock()
	var minted []DistributionEvent
	for _, addr := range l.order {
		h := l.holders[addr]
		if !h.Participates {
			continue
		}
		amount := randx.Round2(randx.Clamp(
			randx.Normal(l.rng, l.cfg.DistributionMean, l.cfg.DistributionStd),
			l.cfg.MinTokensPerDist, l.cfg.MaxTokensPerDist))
		if amount <= 0 {
			continue
		}
		if l.supply+amount > l.cfg.TotalSupply {
			continue // Cap reached for this holder; others may still fit
		}
		h.Balance += amount
		h.TotalReceived += amount
		h.LastDistributionWeek = week
		l.supply += amount
		l.distributed += amount
		ev := DistributionEvent{
			Week:        week,
			Recipient:   addr,
			Amount:      amount,
			DollarValue: randx.Round2(amount * l.cfg.TokenValue),
			Supply:      l.supply,
		}
		l.distributions = append(l.distributions, ev)
		minted = append(minted, ev)
	}
	return minted
}

// Mint credits tokens outside the weekly distribution (staking payouts).
// The supply cap gates weekly distribution only, not redemptions.
func (l *Ledger) Mint(addr string, amount float64) bool {
	if amount <= 0 {
		return false
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.getOrCreate(addr).Balance += amount
	l.supply += amount
	return true
}

// Transfer moves tokens between holders. Returns false on insufficient
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

// Burn destroys tokens from a holder. Returns false on insufficient balance.
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
	h.Balance -= amount
	l.supply -= amount
	return true
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

// TokenValue exposes the configured USD value of one token.
func (l *Ledger) TokenValue() float64 { return l.cfg.TokenValue }

// GetStatistics summarizes supply, distribution and holder counts.
func (l *Ledger) GetStatistics() Statistics {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.statisticsLocked()
}

func (l *Ledger) statisticsLocked() Statistics {
	stats := Statistics{
		CurrentSupply:    l.supply,
		TotalDistributed: l.distributed,
		HolderCount:      len(l.holders),
		TotalUSDValue:    l.supply * l.cfg.TokenValue,
	}
	for _, h := range l.holders {
		if h.Participates {
			stats.ParticipantCount++
		}
	}
	if stats.HolderCount > 0 {
		stats.AverageBalance = l.supply / float64(stats.HolderCount)
	}
	return stats
}

// Export returns a copy of the full ledger state for downstream consumers.
// Consumers receive value copies and can never mutate internal maps.
func (l *Ledger) Export() Snapshot {
	l.mu.Lock()
	defer l.mu.Unlock()
	snap := Snapshot{
		Holders:       make([]Holder, 0, len(l.order)),
		Distributions: append([]DistributionEvent(nil), l.distributions...),
		Statistics:    l.statisticsLocked(),
	}
	for _, addr := range l.order {
		snap.Holders = append(snap.Holders, *l.holders[addr])
	}
	return snap
}

// getOrCreate must be called with the lock held.
func (l *Ledger) getOrCreate(addr string) *Holder {
	h, ok := l.holders[addr]
	if !ok {
		h = &Holder{Address: addr, LastDistributionWeek: -1}
		l.holders[addr] = h
		l.order = append(l.order, addr)
	}
	return h
}
