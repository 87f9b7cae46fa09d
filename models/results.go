package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// WagerResult is returned to the player after a wager
type WagerResult struct {
	PlayID         int64           `json:"play_id"`
	Stake          int64           `json:"stake"`
	Payout         int64           `json:"payout"`
	Multiplier     decimal.Decimal `json:"multiplier"`
	IsJackpot      bool            `json:"is_jackpot"`
	Outcome        Outcome         `json:"outcome"`
	Status         PlayStatus      `json:"status"`
	NewBalance     int64           `json:"new_balance"`
	PlaysRemaining int64           `json:"plays_remaining"`
}

// AccountStatus is the read view of an account within a business
type AccountStatus struct {
	Balance           int64     `json:"balance"`
	PlaysRemaining    int64     `json:"plays_remaining"`
	VotesRemaining    int64     `json:"votes_remaining"`
	InsightsRemaining int64     `json:"insights_remaining"`
	PeriodResetAt     time.Time `json:"period_reset_at"`
}

// PurchaseResult is returned after a pack or discount purchase
type PurchaseResult struct {
	Transaction    *Transaction `json:"transaction"`
	NewBalance     int64        `json:"new_balance"`
	AllowanceAdded int64        `json:"allowance_added,omitempty"`
}

// VoteResult is returned after a vote
type VoteResult struct {
	VoteID         int64 `json:"vote_id"`
	Paid           bool  `json:"paid"`
	VotesRemaining int64 `json:"votes_remaining"`
}
