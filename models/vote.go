package models

import "time"

// Vote is a ballot cast for a business
type Vote struct {
	ID         int64     `db:"id"`
	AccountID  int64     `db:"account_id"`
	BusinessID int64     `db:"business_id"`
	Paid       bool      `db:"paid"` // consumed a vote-pack allowance rather than a free weekly vote
	CastAt     time.Time `db:"cast_at"`
}
