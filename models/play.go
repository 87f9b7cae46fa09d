package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// GameType identifies the table a play was made on
type GameType string

const (
	GameTypeSlot      GameType = "slot"
	GameTypeBlackjack GameType = "blackjack"
	GameTypeRace      GameType = "race"
)

// Valid reports whether g is a playable game type
func (g GameType) Valid() bool {
	return g == GameTypeSlot || g == GameTypeBlackjack || g == GameTypeRace
}

// PlayStatus is the bet state machine: placed → settled_win | settled_loss | refunded
type PlayStatus string

const (
	PlayStatusPlaced      PlayStatus = "placed"
	PlayStatusSettledWin  PlayStatus = "settled_win"
	PlayStatusSettledLoss PlayStatus = "settled_loss"
	PlayStatusRefunded    PlayStatus = "refunded"
)

// Play is one wager. Slot and blackjack plays are written already settled,
// race bets start placed.
type Play struct {
	ID                  int64            `db:"id"`
	RoundID             uuid.UUID        `db:"round_id"`
	AccountID           int64            `db:"account_id"`
	BusinessID          int64            `db:"business_id"`
	GameType            GameType         `db:"game_type"`
	Stake               int64            `db:"stake"`
	Outcome             Outcome          `db:"outcome"`
	Payout              int64            `db:"payout"`
	Multiplier          decimal.Decimal  `db:"multiplier"`
	IsJackpot           bool             `db:"is_jackpot"`
	Status              PlayStatus       `db:"status"`
	RaceID              *int64           `db:"race_id"`
	EntrantNo           *int             `db:"entrant_no"`
	Odds                *decimal.Decimal `db:"odds"`
	DebitTransactionID  int64            `db:"debit_transaction_id"`
	CreditTransactionID *int64           `db:"credit_transaction_id"`
	RefundTransactionID *int64           `db:"refund_transaction_id"`
	PlacedAt            time.Time        `db:"placed_at"`
	SettledAt           *time.Time       `db:"settled_at"`
}

// Reference is the ledger reference written on the play's transactions
func (p *Play) Reference() string {
	return RoundReference(p.RoundID)
}

// RoundReference formats a play round id as a ledger reference
func RoundReference(roundID uuid.UUID) string {
	return "round:" + roundID.String()
}

// IsOpen reports whether the play still awaits settlement
func (p *Play) IsOpen() bool {
	return p.Status == PlayStatusPlaced
}
