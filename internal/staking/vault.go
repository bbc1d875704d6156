package staking

import (
	"errors" // Sentinel errors
	"math"   // Voting power square root
	"sort"   // Deterministic position iteration
	"sync"   // Mutex guarding the vault

	"coop_economy/internal/token" // Locked GroTokens
)

var (
	// ErrDuplicateLock is returned when an address already has a live lock.
	ErrDuplicateLock = errors.New("staking: address already has a lock")
	// ErrDurationOutOfRange is returned for durations outside the configured bounds.
	ErrDurationOutOfRange = errors.New("staking: lock duration out of range")
	// ErrInsufficientBalance is returned when the token balance cannot cover the lock.
	ErrInsufficientBalance = errors.New("staking: insufficient token balance")
	// ErrNoLockFound is returned for operations on a missing lock.
	ErrNoLockFound = errors.New("staking: no lock found")
	// ErrLockNotExpired is returned for withdrawals before the unlock week.
	ErrLockNotExpired = errors.New("staking: lock not expired")
	// ErrLockExpired is returned for increase/extend on an expired lock.
	ErrLockExpired = errors.New("staking: lock already expired")
)

// Compounding frequencies for interest accrual.
const (
	CompoundWeekly  = "weekly"  // Annual rate / 52, every tick
	CompoundMonthly = "monthly" // Annual rate / 12, when week % 4 == 0
	CompoundYearly  = "yearly"  // Full annual rate, when week % 52 == 0
)

// WeeksPerYear converts lock durations to unlock weeks.
const WeeksPerYear = 52

// Config holds the staking vault parameters.
type Config struct {
	BaseInterestRate     float64 // Annual interest rate before the lock bonus
	LockBonusMultiplier  float64 // Bonus per year of lock beyond the first
	MinLockDurationYears int     // Inclusive lower duration bound
	MaxLockDurationYears int     // Inclusive upper duration bound
	CompoundingFrequency string  // weekly | monthly | yearly
}

// DefaultConfig returns the vault defaults.
func DefaultConfig() Config {
	return Config{
		BaseInterestRate:     0.05,
		LockBonusMultiplier:  0.5,
		MinLockDurationYears: 1,
		MaxLockDurationYears: 4,
		CompoundingFrequency: CompoundWeekly,
	}
}

// Position is a time-locked stake. At most one live position per address.
type Position struct {
	Address         string  `json:"address"`          // Staking address
	Amount          float64 `json:"amount"`           // Locked tokens
	CreatedWeek     int     `json:"created_week"`     // Week the lock opened
	DurationYears   int     `json:"duration_years"`   // Integer years, 1..max
	UnlockWeek      int     `json:"unlock_week"`      // CreatedWeek + years x 52
	InterestAccrued float64 `json:"interest_accrued"` // Compounded interest to date
	VotingPower     float64 `json:"voting_power"`     // sqrt(amount) x (1 + bonus x (years-1))
}

// Event kinds recorded by the vault.
const (
	EventLock     = "lock"
	EventIncrease = "increase"
	EventExtend   = "extend"
	EventWithdraw = "withdraw"
)

// Event records one staking action.
type Event struct {
	Week    int     `json:"week"`    // Simulation week
	Address string  `json:"address"` // Acting address
	Kind    string  `json:"kind"`    // lock | increase | extend | withdraw
	Amount  float64 `json:"amount"`  // Tokens involved
}

// Statistics summarizes the vault.
type Statistics struct {
	ActivePositions   int     `json:"active_positions"`    // Live locks
	TotalStaked       float64 `json:"total_staked"`        // Tokens currently locked
	TotalInterest     float64 `json:"total_interest"`      // Interest accrued on live locks
	TotalInterestPaid float64 `json:"total_interest_paid"` // Interest paid out on withdrawals
	TotalVotingPower  float64 `json:"total_voting_power"`  // Unexpired voting power (current week)
}

// Snapshot is the exported view of the vault.
type Snapshot struct {
	Positions  []Position `json:"positions"`
	Events     []Event    `json:"events"`
	Statistics Statistics `json:"statistics"`
}

// Vault manages time-locked token positions. Locking burns tokens from the
// token ledger; withdrawing mints them back with interest.
type Vault struct {
	mu           sync.Mutex
	cfg          Config
	tokens       *token.Ledger
	positions    map[string]*Position
	events       []Event
	interestPaid float64
	currentWeek  int // Latest week seen, for expiry in statistics
}

// NewVault builds a vault locking tokens from the given ledger.
func NewVault(cfg Config, tokens *token.Ledger) *Vault {
	return &Vault{
		cfg:       cfg,
		tokens:    tokens,
		positions: make(map[string]*Position),
	}
}

// CreateLock burns the amount from the token ledger and opens a position.
func (v *Vault) CreateLock(week int, addr string, amount float64, durationYears int) (*Position, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if _, ok := v.positions[addr]; ok {
		return nil, ErrDuplicateLock
	}
	if durationYears < v.cfg.MinLockDurationYears || durationYears > v.cfg.MaxLockDurationYears {
		return nil, ErrDurationOutOfRange
	}
	if amount <= 0 || !v.tokens.Burn(addr, amount) {
		return nil, ErrInsufficientBalance
	}
	pos := &Position{
		Address:       addr,
		Amount:        amount,
		CreatedWeek:   week,
		DurationYears: durationYears,
		UnlockWeek:    week + durationYears*WeeksPerYear,
	}
	pos.VotingPower = v.votingPower(amount, durationYears)
	v.positions[addr] = pos
	v.record(week, addr, EventLock, amount)
	v.touch(week)
	copied := *pos
	return &copied, nil
}

// IncreaseLock burns additional tokens into an unexpired position and
// recomputes its voting power.
func (v *Vault) IncreaseLock(week int, addr string, amount float64) (*Position, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	pos, ok := v.positions[addr]
	if !ok {
		return nil, ErrNoLockFound
	}
	if week >= pos.UnlockWeek {
		return nil, ErrLockExpired
	}
	if amount <= 0 || !v.tokens.Burn(addr, amount) {
		return nil, ErrInsufficientBalance
	}
	pos.Amount += amount
	pos.VotingPower = v.votingPower(pos.Amount, pos.DurationYears)
	v.record(week, addr, EventIncrease, amount)
	v.touch(week)
	copied := *pos
	return &copied, nil
}

// ExtendLock lengthens an unexpired position to a strictly longer duration
// within the configured maximum and recomputes its voting power.
func (v *Vault) ExtendLock(week int, addr string, durationYears int) (*Position, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	pos, ok := v.positions[addr]
	if !ok {
		return nil, ErrNoLockFound
	}
	if week >= pos.UnlockWeek {
		return nil, ErrLockExpired
	}
	if durationYears <= pos.DurationYears || durationYears > v.cfg.MaxLockDurationYears {
		return nil, ErrDurationOutOfRange
	}
	pos.DurationYears = durationYears
	pos.UnlockWeek = pos.CreatedWeek + durationYears*WeeksPerYear
	pos.VotingPower = v.votingPower(pos.Amount, durationYears)
	v.record(week, addr, EventExtend, pos.Amount)
	v.touch(week)
	copied := *pos
	return &copied, nil
}

// Withdraw closes an expired position, minting principal plus accrued
// interest back to the token ledger.
func (v *Vault) Withdraw(week int, addr string) (float64, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	pos, ok := v.positions[addr]
	if !ok {
		return 0, ErrNoLockFound
	}
	if week < pos.UnlockWeek {
		return 0, ErrLockNotExpired
	}
	payout := pos.Amount + pos.InterestAccrued
	v.tokens.Mint(addr, payout)
	v.interestPaid += pos.InterestAccrued
	delete(v.positions, addr)
	v.record(week, addr, EventWithdraw, payout)
	v.touch(week)
	return payout, nil
}

// AccrueInterest compounds interest on every live position for the week.
// Expired positions stop accruing. Returns the interest added this tick.
func (v *Vault) AccrueInterest(week int) float64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.touch(week)
	var accrued float64
	for _, addr := range v.sortedAddressesLocked() {
		pos := v.positions[addr]
		if week >= pos.UnlockWeek {
			continue
		}
		annual := v.cfg.BaseInterestRate * (1 + v.cfg.LockBonusMultiplier*float64(pos.DurationYears-1))
		var periodic float64
		switch v.cfg.CompoundingFrequency {
		case CompoundMonthly:
			if week%4 != 0 {
				continue
			}
			periodic = annual / 12
		case CompoundYearly:
			if week%52 != 0 {
				continue
			}
			periodic = annual
		default: // weekly
			periodic = annual / 52
		}
		interest := (pos.Amount + pos.InterestAccrued) * periodic
		pos.InterestAccrued += interest
		accrued += interest
	}
	return accrued
}

// GetVotingPower returns the position's voting power at the given week,
// or 0 for a missing or expired lock.
func (v *Vault) GetVotingPower(week int, addr string) float64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	pos, ok := v.positions[addr]
	if !ok || week >= pos.UnlockWeek {
		return 0
	}
	return pos.VotingPower
}

// TotalVotingPower sums the voting power of every unexpired position.
func (v *Vault) TotalVotingPower(week int) float64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	var total float64
	for _, pos := range v.positions {
		if week < pos.UnlockWeek {
			total += pos.VotingPower
		}
	}
	return total
}

// GetPosition returns a copy of the address's position, or ErrNoLockFound.
func (v *Vault) GetPosition(addr string) (*Position, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	pos, ok := v.positions[addr]
	if !ok {
		return nil, ErrNoLockFound
	}
	copied := *pos
	return &copied, nil
}

// StakedValue returns principal plus accrued interest for the address,
// 0 when there is no position.
func (v *Vault) StakedValue(addr string) float64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	if pos, ok := v.positions[addr]; ok {
		return pos.Amount + pos.InterestAccrued
	}
	return 0
}

// GetStatistics summarizes the vault at the latest seen week.
func (v *Vault) GetStatistics() Statistics {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.statisticsLocked()
}

func (v *Vault) statisticsLocked() Statistics {
	stats := Statistics{
		ActivePositions:   len(v.positions),
		TotalInterestPaid: v.interestPaid,
	}
	for _, pos := range v.positions {
		stats.TotalStaked += pos.Amount
		stats.TotalInterest += pos.InterestAccrued
		if v.currentWeek < pos.UnlockWeek {
			stats.TotalVotingPower += pos.VotingPower
		}
	}
	return stats
}

// Export returns a copy of the full vault state for downstream consumers.
func (v *Vault) Export() Snapshot {
	v.mu.Lock()
	defer v.mu.Unlock()
	snap := Snapshot{
		Positions:  make([]Position, 0, len(v.positions)),
		Events:     append([]Event(nil), v.events...),
		Statistics: v.statisticsLocked(),
	}
	for _, addr := range v.sortedAddressesLocked() {
		snap.Positions = append(snap.Positions, *v.positions[addr])
	}
	return snap
}

// votingPower implements sqrt(amount) x (1 + bonus x (years - 1)).
func (v *Vault) votingPower(amount float64, durationYears int) float64 {
	return math.Sqrt(amount) * (1 + v.cfg.LockBonusMultiplier*float64(durationYears-1))
}

// sortedAddressesLocked must be called with the lock held.
func (v *Vault) sortedAddressesLocked() []string {
	addrs := make([]string, 0, len(v.positions))
	for addr := range v.positions {
		addrs = append(addrs, addr)
	}
	sort.Strings(addrs)
	return addrs
}

func (v *Vault) record(week int, addr, kind string, amount float64) {
	v.events = append(v.events, Event{Week: week, Address: addr, Kind: kind, Amount: amount})
}

// touch tracks the latest week seen, used to expire voting power in statistics.
func (v *Vault) touch(week int) {
	if week > v.currentWeek {
		v.currentWeek = week
	}
}
