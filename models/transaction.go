package models

import (
	"time"
)

// Direction is the sign of a ledger movement
type Direction string

const (
	DirectionEarning  Direction = "earning"
	DirectionSpending Direction = "spending"
)

// Category classifies why coins moved
type Category string

const (
	CategoryVotePackPurchase Category = "vote_pack_purchase"
	CategorySpinPackPurchase Category = "spin_pack_purchase"
	CategoryCasinoBet        Category = "casino_bet"
	CategoryCasinoWin        Category = "casino_win"
	CategoryRaceBet          Category = "race_bet"
	CategoryRacePayout       Category = "race_payout"
	CategoryDiscountPurchase Category = "discount_purchase"
	CategoryLevelUpBonus     Category = "level_up_bonus"
	CategoryRefund           Category = "refund"
	CategoryTerminalSale     Category = "terminal_sale"
)

// Valid reports whether c is a known category
func (c Category) Valid() bool {
	switch c {
	case CategoryVotePackPurchase, CategorySpinPackPurchase, CategoryCasinoBet, CategoryCasinoWin,
		CategoryRaceBet, CategoryRacePayout, CategoryDiscountPurchase, CategoryLevelUpBonus,
		CategoryRefund, CategoryTerminalSale:
		return true
	}
	return false
}

// MaxAmount bounds a single ledger movement
const MaxAmount int64 = 1_000_000_000_000

// Transaction is one immutable ledger row. Amount is always positive, the
// sign is carried by Direction.
type Transaction struct {
	ID           int64          `db:"id" json:"id"`
	AccountID    int64          `db:"account_id" json:"account_id"`
	Direction    Direction      `db:"direction" json:"direction"`
	Category     Category       `db:"category" json:"category"`
	Amount       int64          `db:"amount" json:"amount"`
	BalanceAfter int64          `db:"balance_after" json:"balance_after"`
	Reference    string         `db:"reference" json:"reference,omitempty"`
	Metadata     map[string]any `db:"metadata" json:"metadata,omitempty"`
	CreatedAt    time.Time      `db:"created_at" json:"created_at"`
}

// SignedAmount returns the amount as a balance delta
func (t *Transaction) SignedAmount() int64 {
	if t.Direction == DirectionSpending {
		return -t.Amount
	}
	return t.Amount
}

// Entry is a requested ledger movement, before it is validated and written
type Entry struct {
	AccountID int64
	Direction Direction
	Category  Category
	Amount    int64
	Reference string
	Metadata  map[string]any
}

// Delta returns the signed balance effect of the entry
func (e Entry) Delta() int64 {
	if e.Direction == DirectionSpending {
		return -e.Amount
	}
	return e.Amount
}

// Earn builds an earning entry
func Earn(accountID int64, category Category, amount int64, reference string) Entry {
	return Entry{AccountID: accountID, Direction: DirectionEarning, Category: category, Amount: amount, Reference: reference}
}

// Spend builds a spending entry
func Spend(accountID int64, category Category, amount int64, reference string) Entry {
	return Entry{AccountID: accountID, Direction: DirectionSpending, Category: category, Amount: amount, Reference: reference}
}

// WithMetadata returns a copy of e carrying metadata
func (e Entry) WithMetadata(metadata map[string]any) Entry {
	e.Metadata = metadata
	return e
}

// Checkpoint carries forward the net balance of archived transactions
type Checkpoint struct {
	AccountID            int64     `db:"account_id"`
	Balance              int64     `db:"balance"`
	ThroughTransactionID int64     `db:"through_transaction_id"`
	UpdatedAt            time.Time `db:"updated_at"`
}
