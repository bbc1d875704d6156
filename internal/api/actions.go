package api

import (
	"errors"   // Sentinel error matching
	"net/http" // HTTP status codes
	"strconv"  // URL parameter parsing

	"github.com/gin-gonic/gin"   // Gin web framework
	"github.com/sirupsen/logrus" // Logging library

	"coop_economy/internal/governance" // Quadratic voting errors
	"coop_economy/internal/groupbuy"   // Group order errors
	"coop_economy/internal/sim"        // Coordinator
	"coop_economy/internal/staking"    // Staking errors
)

// CreateOrderRequest opens a pooled purchase order.
type CreateOrderRequest struct {
	Creator      string  `json:"creator" binding:"required"`       // Opening member
	Supplier     string  `json:"supplier" binding:"required"`      // Payee on execution
	TargetAmount float64 `json:"target_amount" binding:"required"` // Escrow target
	Category     string  `json:"category" binding:"required"`      // Order category
}

// CreateOrderHandler opens a pooled purchase order.
func CreateOrderHandler(co *sim.Coordinator) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CreateOrderRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
		order, err := co.CreateGroupOrder(req.Creator, req.Supplier, req.TargetAmount, req.Category)
		if err != nil {
			c.JSON(errStatus(err), gin.H{"error": err.Error()})
			return
		}
		// Log the new order
		logrus.WithFields(logrus.Fields{
			"order_id": order.ID,
			"creator":  order.Creator,
			"target":   order.TargetAmount,
			"category": order.Category,
		}).Info("Group order created")
		invalidateReadCaches(c)
		c.JSON(http.StatusCreated, order)
	}
}

// ContributeRequest escrows a contribution into an order.
type ContributeRequest struct {
	Contributor string  `json:"contributor" binding:"required"` // Contributing member
	Amount      float64 `json:"amount" binding:"required"`      // FoodUSD to escrow
}

// ContributeHandler escrows a contribution into an open order.
func ContributeHandler(co *sim.Coordinator) gin.HandlerFunc {
	return func(c *gin.Context) {
		orderID, ok := parseID(c, "id")
		if !ok {
			return
		}
		var req ContributeRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
		contribution, err := co.ContributeToOrder(orderID, req.Contributor, req.Amount)
		if err != nil {
			c.JSON(errStatus(err), gin.H{"error": err.Error()})
			return
		}
		invalidateReadCaches(c)
		c.JSON(http.StatusOK, contribution)
	}
}

// ExecuteOrderHandler settles an order that reached its target.
func ExecuteOrderHandler(co *sim.Coordinator) gin.HandlerFunc {
	return func(c *gin.Context) {
		orderID, ok := parseID(c, "id")
		if !ok {
			return
		}
		result, err := co.ExecuteGroupOrder(orderID)
		if err != nil {
			c.JSON(errStatus(err), gin.H{"error": err.Error()})
			return
		}
		// Log the settlement
		logrus.WithFields(logrus.Fields{
			"order_id":     orderID,
			"total_spent":  result.TotalSpent,
			"total_saved":  result.TotalSaved,
			"participants": result.ParticipantCount,
		}).Info("Group order executed")
		invalidateReadCaches(c)
		c.JSON(http.StatusOK, result)
	}
}

// RefundRequest claims a contribution back from an expired order.
type RefundRequest struct {
	Participant string `json:"participant" binding:"required"` // Claiming member
}

// ClaimRefundHandler returns a contribution from an expired unexecuted order.
func ClaimRefundHandler(co *sim.Coordinator) gin.HandlerFunc {
	return func(c *gin.Context) {
		orderID, ok := parseID(c, "id")
		if !ok {
			return
		}
		var req RefundRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
		amount, err := co.ClaimOrderRefund(orderID, req.Participant)
		if err != nil {
			c.JSON(errStatus(err), gin.H{"error": err.Error()})
			return
		}
		invalidateReadCaches(c)
		c.JSON(http.StatusOK, gin.H{"order_id": orderID, "participant": req.Participant, "refunded": amount})
	}
}

// StakeRequest opens a time-locked staking position.
type StakeRequest struct {
	Address       string  `json:"address" binding:"required"`        // Staking member
	Amount        float64 `json:"amount" binding:"required"`         // Tokens to lock
	DurationYears int     `json:"duration_years" binding:"required"` // Lock duration
}

// StakeHandler locks tokens into a staking position.
func StakeHandler(co *sim.Coordinator) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req StakeRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
		position, err := co.StakeTokens(req.Address, req.Amount, req.DurationYears)
		if err != nil {
			c.JSON(errStatus(err), gin.H{"error": err.Error()})
			return
		}
		// Log the lock
		logrus.WithFields(logrus.Fields{
			"address":        position.Address,
			"amount":         position.Amount,
			"duration_years": position.DurationYears,
			"unlock_week":    position.UnlockWeek,
		}).Info("Tokens staked")
		invalidateReadCaches(c)
		c.JSON(http.StatusCreated, position)
	}
}

// WithdrawRequest closes an expired staking position.
type WithdrawRequest struct {
	Address string `json:"address" binding:"required"` // Withdrawing member
}

// WithdrawHandler returns principal plus interest from an expired lock.
func WithdrawHandler(co *sim.Coordinator) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req WithdrawRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
		amount, err := co.WithdrawStake(req.Address)
		if err != nil {
			c.JSON(errStatus(err), gin.H{"error": err.Error()})
			return
		}
		invalidateReadCaches(c)
		c.JSON(http.StatusOK, gin.H{"address": req.Address, "withdrawn": amount})
	}
}

// ProposalRequest opens a governance proposal.
type ProposalRequest struct {
	Proposer    string `json:"proposer" binding:"required"`    // Proposing member
	Description string `json:"description" binding:"required"` // Proposal text
	Category    string `json:"category" binding:"required"`    // Proposal category
}

// CreateProposalHandler opens a governance proposal.
func CreateProposalHandler(co *sim.Coordinator) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req ProposalRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
		proposal, err := co.CreateProposal(req.Proposer, req.Description, req.Category)
		if err != nil {
			c.JSON(errStatus(err), gin.H{"error": err.Error()})
			return
		}
		invalidateReadCaches(c)
		c.JSON(http.StatusCreated, proposal)
	}
}

// VoteRequest casts a quadratic vote on a proposal.
type VoteRequest struct {
	Voter    string  `json:"voter" binding:"required"`     // Voting member
	RawVotes float64 `json:"raw_votes" binding:"required"` // Votes to cast
	Support  *bool   `json:"support" binding:"required"`   // For or against
}

// VoteHandler casts a quadratic vote at the current week.
func VoteHandler(co *sim.Coordinator) gin.HandlerFunc {
	return func(c *gin.Context) {
		proposalID, ok := parseID(c, "id")
		if !ok {
			return
		}
		var req VoteRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
		vote, err := co.Vote(proposalID, req.Voter, req.RawVotes, *req.Support)
		if err != nil {
			c.JSON(errStatus(err), gin.H{"error": err.Error()})
			return
		}
		invalidateReadCaches(c)
		c.JSON(http.StatusOK, vote)
	}
}

// ExecuteProposalHandler closes a proposal after its voting period.
func ExecuteProposalHandler(co *sim.Coordinator) gin.HandlerFunc {
	return func(c *gin.Context) {
		proposalID, ok := parseID(c, "id")
		if !ok {
			return
		}
		result, err := co.ExecuteProposal(proposalID)
		if err != nil {
			c.JSON(errStatus(err), gin.H{"error": err.Error()})
			return
		}
		// Log the outcome
		logrus.WithFields(logrus.Fields{
			"proposal_id": proposalID,
			"passed":      result.Passed,
			"reason":      result.Reason,
		}).Info("Proposal executed")
		invalidateReadCaches(c)
		c.JSON(http.StatusOK, result)
	}
}

// parseID reads a numeric URL parameter, answering the request itself on
// malformed input.
func parseID(c *gin.Context, name string) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid " + name})
		return 0, false
	}
	return id, true
}

// errStatus maps domain errors to HTTP status codes.
func errStatus(err error) int {
	switch {
	case errors.Is(err, groupbuy.ErrOrderNotFound),
		errors.Is(err, governance.ErrProposalNotFound),
		errors.Is(err, staking.ErrNoLockFound):
		return http.StatusNotFound
	case errors.Is(err, groupbuy.ErrAlreadyExecuted),
		errors.Is(err, governance.ErrAlreadyExecuted),
		errors.Is(err, staking.ErrDuplicateLock),
		errors.Is(err, sim.ErrAlreadyInitialized):
		return http.StatusConflict
	case errors.Is(err, groupbuy.ErrInsufficientBalance),
		errors.Is(err, staking.ErrInsufficientBalance):
		return http.StatusPaymentRequired
	case errors.Is(err, sim.ErrNotInitialized):
		return http.StatusServiceUnavailable
	default:
		return http.StatusUnprocessableEntity
	}
}
