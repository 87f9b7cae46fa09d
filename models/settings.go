package models

import (
	"time"

	"github.com/shopspring/decimal"

	"coinledger/game"
)

// BusinessSettings is a business's stored game configuration
type BusinessSettings struct {
	BusinessID        int64           `db:"business_id"`
	MinBet            int64           `db:"min_bet"`
	MaxBet            int64           `db:"max_bet"`
	DailyPlayLimit    int64           `db:"daily_play_limit"`
	HouseEdge         decimal.Decimal `db:"house_edge"`
	JackpotMultiplier decimal.Decimal `db:"jackpot_multiplier"`
	SpinPackPrice     int64           `db:"spin_pack_price"`
	SpinPackSize      int64           `db:"spin_pack_size"`
	HouseAccountID    *int64          `db:"house_account_id"`
	CreatedAt         time.Time       `db:"created_at"`
	UpdatedAt         time.Time       `db:"updated_at"`
}

// GameSettings is the resolved configuration for one request. It is built
// once from the business row or the platform defaults and passed down.
type GameSettings struct {
	BusinessID        int64
	MinBet            int64
	MaxBet            int64
	DailyPlayLimit    int64
	HouseEdge         float64
	JackpotMultiplier decimal.Decimal
	SpinPackPrice     int64
	SpinPackSize      int64
	HouseAccountID    *int64
	WheelTiers        []game.Tier
}

// StakeAllowed reports whether stake is within the table limits
func (g GameSettings) StakeAllowed(stake int64) bool {
	return stake >= g.MinBet && stake <= g.MaxBet
}

// IsJackpot reports whether multiplier reaches the jackpot threshold
func (g GameSettings) IsJackpot(multiplier decimal.Decimal) bool {
	return g.JackpotMultiplier.IsPositive() && multiplier.GreaterThanOrEqual(g.JackpotMultiplier)
}
