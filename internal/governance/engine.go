package governance

import (
	"errors" // Sentinel errors
	"fmt"    // Result reasons
	"sync"   // Mutex guarding the engine

	"coop_economy/internal/staking" // Voting power source
)

var (
	// ErrProposalNotFound is returned for an unknown proposal id.
	ErrProposalNotFound = errors.New("governance: proposal not found")
	// ErrVotingNotStarted is returned for votes before the proposal start week.
	ErrVotingNotStarted = errors.New("governance: voting not started")
	// ErrVotingPeriodEnded is returned for votes after the proposal end week.
	ErrVotingPeriodEnded = errors.New("governance: voting period ended")
	// ErrVotingPeriodNotEnded is returned for execution at or before the end week.
	ErrVotingPeriodNotEnded = errors.New("governance: voting period not ended")
	// ErrAlreadyExecuted is returned for a second execution of a proposal.
	ErrAlreadyExecuted = errors.New("governance: proposal already executed")
	// ErrInsufficientVotingPower is returned when the voter's quadratic budget
	// cannot cover the vote, or a proposer has no staking power.
	ErrInsufficientVotingPower = errors.New("governance: insufficient voting power")
	// ErrInvalidVote is returned for non-positive raw vote counts.
	ErrInvalidVote = errors.New("governance: invalid vote count")
)

// Config holds the governance parameters.
//
// Chairperson is informational: it names the chair in exports and reports
// but carries no special authority. Any address with staking power may
// propose, and execution is open to anyone once voting closes.
type Config struct {
	VotingPeriodWeeks int     // Weeks a proposal stays open
	ProposalThreshold float64 // Minimum for-votes for a proposal to pass
	QuorumPercentage  float64 // Fraction of total voting power that must participate
	Chairperson       string  // Reported governance chair; no special authority
}

// DefaultConfig returns the governance defaults.
func DefaultConfig() Config {
	return Config{
		VotingPeriodWeeks: 2,
		ProposalThreshold: 10,
		QuorumPercentage:  0.1,
		Chairperson:       "treasury",
	}
}

// Proposal is a governance item. Active within [StartWeek, EndWeek],
// terminal once executed; the pass/fail outcome lives in the Result the
// caller receives, not on the proposal itself.
type Proposal struct {
	ID           uint64          `json:"id"`            // Monotonic proposal id
	Proposer     string          `json:"proposer"`      // Creating address
	Description  string          `json:"description"`   // Free-form description
	Category     string          `json:"category"`      // Free-form category
	StartWeek    int             `json:"start_week"`    // First voting week
	EndWeek      int             `json:"end_week"`      // Last voting week
	ForVotes     float64         `json:"for_votes"`     // Raw votes in favor
	AgainstVotes float64         `json:"against_votes"` // Raw votes against
	Voters       map[string]bool `json:"voters"`        // Addresses that voted
	Executed     bool            `json:"executed"`      // Terminal once true

	powerSpent map[string]float64 // Quadratic cost spent per voter
}

// Vote records one quadratic vote: casting n raw votes costs n^2 power.
type Vote struct {
	ProposalID      uint64  `json:"proposal_id"`       // Target proposal
	Voter           string  `json:"voter"`             // Voting address
	Support         bool    `json:"support"`           // For or against
	RawVotes        float64 `json:"raw_votes"`         // Votes added to the tally
	VotingPowerUsed float64 `json:"voting_power_used"` // RawVotes squared
}

// Result is the outcome of executing a proposal. Failing quorum or the
// threshold is a normal outcome, never an error.
type Result struct {
	ProposalID       uint64  `json:"proposal_id"`        // Executed proposal
	Passed           bool    `json:"passed"`             // Whether the proposal passed
	QuorumMet        bool    `json:"quorum_met"`         // Whether participation met quorum
	ForVotes         float64 `json:"for_votes"`          // Final for tally
	AgainstVotes     float64 `json:"against_votes"`      // Final against tally
	TotalVotingPower float64 `json:"total_voting_power"` // System power at execution
	Reason           string  `json:"reason"`             // Human-readable outcome
}

// Statistics summarizes governance activity.
type Statistics struct {
	TotalProposals    int     `json:"total_proposals"`    // Proposals ever created
	ActiveProposals   int     `json:"active_proposals"`   // Not yet executed
	ExecutedProposals int     `json:"executed_proposals"` // Terminal proposals
	TotalVotesCast    int     `json:"total_votes_cast"`   // Vote records
	TotalPowerSpent   float64 `json:"total_power_spent"`  // Quadratic cost spent
}

// Snapshot is the exported view of the engine.
type Snapshot struct {
	Proposals  []Proposal `json:"proposals"`
	Votes      []Vote     `json:"votes"`
	Results    []Result   `json:"results"`
	Statistics Statistics `json:"statistics"`
}

// Engine runs the quadratic-voting proposal lifecycle gated by
// staking-derived voting power.
type Engine struct {
	mu        sync.Mutex
	cfg       Config
	vault     *staking.Vault
	proposals map[uint64]*Proposal
	ids       []uint64
	nextID    uint64
	votes     []Vote
	results   []Result
}

// NewEngine builds an engine reading voting power from the given vault.
func NewEngine(cfg Config, vault *staking.Vault) *Engine {
	return &Engine{
		cfg:       cfg,
		vault:     vault,
		proposals: make(map[uint64]*Proposal),
		nextID:    1,
	}
}

// CreateProposal opens a proposal. The proposer must hold nonzero staking
// voting power at the current week.
func (e *Engine) CreateProposal(week int, proposer, description, category string) (*Proposal, error) {
	if e.vault.GetVotingPower(week, proposer) <= 0 {
		return nil, ErrInsufficientVotingPower
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	p := &Proposal{
		ID:          e.nextID,
		Proposer:    proposer,
		Description: description,
		Category:    category,
		StartWeek:   week,
		EndWeek:     week + e.cfg.VotingPeriodWeeks,
		Voters:      make(map[string]bool),
		powerSpent:  make(map[string]float64),
	}
	e.proposals[p.ID] = p
	e.ids = append(e.ids, p.ID)
	e.nextID++
	copied := e.copyProposalLocked(p)
	return &copied, nil
}

// CastVote spends rawVotes^2 voting power to add rawVotes to the tally.
// A voter may vote repeatedly on the same proposal; every vote's cost
// accumulates against the same staking-derived power budget.
func (e *Engine) CastVote(week int, proposalID uint64, voter string, rawVotes float64, support bool) (*Vote, error) {
	if rawVotes <= 0 {
		return nil, ErrInvalidVote
	}
	power := e.vault.GetVotingPower(week, voter)
	e.mu.Lock()
	defer e.mu.Unlock()
	p, ok := e.proposals[proposalID]
	if !ok {
		return nil, ErrProposalNotFound
	}
	if week < p.StartWeek {
		return nil, ErrVotingNotStarted
	}
	if week > p.EndWeek {
		return nil, ErrVotingPeriodEnded
	}
	cost := rawVotes * rawVotes
	if p.powerSpent[voter]+cost > power {
		return nil, ErrInsufficientVotingPower
	}
	p.powerSpent[voter] += cost
	if support {
		p.ForVotes += rawVotes
	} else {
		p.AgainstVotes += rawVotes
	}
	p.Voters[voter] = true
	vote := Vote{ProposalID: proposalID, Voter: voter, Support: support, RawVotes: rawVotes, VotingPowerUsed: cost}
	e.votes = append(e.votes, vote)
	return &vote, nil
}

// ExecuteProposal closes a proposal after its voting period and returns
// the structured outcome.
func (e *Engine) ExecuteProposal(week int, proposalID uint64) (*Result, error) {
	totalPower := e.vault.TotalVotingPower(week)
	e.mu.Lock()
	defer e.mu.Unlock()
	p, ok := e.proposals[proposalID]
	if !ok {
		return nil, ErrProposalNotFound
	}
	if week <= p.EndWeek {
		return nil, ErrVotingPeriodNotEnded
	}
	if p.Executed {
		return nil, ErrAlreadyExecuted
	}
	participation := p.ForVotes + p.AgainstVotes
	quorumMet := participation >= totalPower*e.cfg.QuorumPercentage
	passed := quorumMet && p.ForVotes >= e.cfg.ProposalThreshold && p.ForVotes > p.AgainstVotes
	result := Result{
		ProposalID:       proposalID,
		Passed:           passed,
		QuorumMet:        quorumMet,
		ForVotes:         p.ForVotes,
		AgainstVotes:     p.AgainstVotes,
		TotalVotingPower: totalPower,
	}
	switch {
	case passed:
		result.Reason = "proposal passed"
	case !quorumMet:
		result.Reason = fmt.Sprintf("quorum not met: %.2f of %.2f required", participation, totalPower*e.cfg.QuorumPercentage)
	case p.ForVotes < e.cfg.ProposalThreshold:
		result.Reason = fmt.Sprintf("for votes %.2f below threshold %.2f", p.ForVotes, e.cfg.ProposalThreshold)
	default:
		result.Reason = "for votes did not exceed against votes"
	}
	p.Executed = true
	e.results = append(e.results, result)
	return &result, nil
}

// GetProposal returns a copy of the proposal, or ErrProposalNotFound.
func (e *Engine) GetProposal(proposalID uint64) (*Proposal, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	p, ok := e.proposals[proposalID]
	if !ok {
		return nil, ErrProposalNotFound
	}
	copied := e.copyProposalLocked(p)
	return &copied, nil
}

// GetStatistics summarizes governance activity.
func (e *Engine) GetStatistics() Statistics {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.statisticsLocked()
}

func (e *Engine) statisticsLocked() Statistics {
	stats := Statistics{
		TotalProposals: len(e.proposals),
		TotalVotesCast: len(e.votes),
	}
	for _, p := range e.proposals {
		if p.Executed {
			stats.ExecutedProposals++
		} else {
			stats.ActiveProposals++
		}
	}
	for _, v := range e.votes {
		stats.TotalPowerSpent += v.VotingPowerUsed
	}
	return stats
}

// Export returns a copy of the full engine state for downstream consumers.
func (e *Engine) Export() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	snap := Snapshot{
		Proposals:  make([]Proposal, 0, len(e.ids)),
		Votes:      append([]Vote(nil), e.votes...),
		Results:    append([]Result(nil), e.results...),
		Statistics: e.statisticsLocked(),
	}
	for _, id := range e.ids {
		snap.Proposals = append(snap.Proposals, e.copyProposalLocked(e.proposals[id]))
	}
	return snap
}

// copyProposalLocked must be called with the lock held.
func (e *Engine) copyProposalLocked(p *Proposal) Proposal {
	copied := *p
	copied.Voters = make(map[string]bool, len(p.Voters))
	for k, v := range p.Voters {
		copied.Voters[k] = v
	}
	copied.powerSpent = nil // Internal ledger, not exported
	return copied
}
