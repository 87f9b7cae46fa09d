package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// RaceState is the race lifecycle: open → settled | cancelled
type RaceState string

const (
	RaceStateOpen      RaceState = "open"
	RaceStateSettled   RaceState = "settled"
	RaceStateCancelled RaceState = "cancelled"
)

// RaceEvent is a scheduled race that accepts bets while open
type RaceEvent struct {
	ID                int64      `db:"id" json:"id"`
	BusinessID        int64      `db:"business_id" json:"business_id"`
	Name              string     `db:"name" json:"name"`
	Weather           string     `db:"weather" json:"weather"`
	TimeOfDay         string     `db:"time_of_day" json:"time_of_day"`
	StartsAt          *time.Time `db:"starts_at" json:"starts_at,omitempty"`
	State             RaceState  `db:"state" json:"state"`
	PrizePool         int64      `db:"prize_pool" json:"prize_pool"`
	HouseAccountID    *int64     `db:"house_account_id" json:"house_account_id,omitempty"`
	PoolTransactionID *int64     `db:"pool_transaction_id" json:"pool_transaction_id,omitempty"`
	WinningEntrantNo  *int       `db:"winning_entrant_no" json:"winning_entrant_no,omitempty"`
	CreatedAt         time.Time  `db:"created_at" json:"created_at"`
	SettledAt         *time.Time `db:"settled_at" json:"settled_at,omitempty"`

	Entrants []*RaceEntrant `db:"-" json:"entrants,omitempty"`
}

// PoolReference is the ledger reference for the race's prize pool movements
func (r *RaceEvent) PoolReference() string {
	return PoolReference(r.ID)
}

// Entrant returns the entrant with the given number, or nil
func (r *RaceEvent) Entrant(no int) *RaceEntrant {
	for _, e := range r.Entrants {
		if e.EntrantNo == no {
			return e
		}
	}
	return nil
}

// RaceEntrant is a priced runner
type RaceEntrant struct {
	RaceID           int64           `db:"race_id" json:"race_id"`
	EntrantNo        int             `db:"entrant_no" json:"entrant_no"`
	Name             string          `db:"name" json:"name"`
	PerformanceScore float64         `db:"performance_score" json:"performance_score"`
	RecentForm       float64         `db:"recent_form" json:"recent_form"`
	PreferredWeather string          `db:"preferred_weather" json:"preferred_weather,omitempty"`
	PreferredTime    string          `db:"preferred_time" json:"preferred_time,omitempty"`
	WinProbability   float64         `db:"win_probability" json:"win_probability"`
	Odds             decimal.Decimal `db:"odds" json:"odds"`
}

// SettleResult summarises a race settlement
type SettleResult struct {
	RaceID           int64 `json:"race_id"`
	WinningEntrantNo int   `json:"winning_entrant_no"`
	Winners          int   `json:"winners"`
	Losers           int   `json:"losers"`
	TotalPaid        int64 `json:"total_paid"`
	PoolReturned     int64 `json:"pool_returned"`
}

// CancelResult summarises a bulk race cancellation
type CancelResult struct {
	RaceID        int64 `json:"race_id"`
	RefundedCount int   `json:"refunded_count"`
	TotalRefunded int64 `json:"total_refunded"`
	PoolReturned  int64 `json:"pool_returned"`
}
