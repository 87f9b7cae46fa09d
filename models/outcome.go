package models

import (
	"encoding/json"

	"coinledger/game"
)

// OutcomeKind tags which variant of Outcome is set
type OutcomeKind string

const (
	OutcomeKindSlot      OutcomeKind = "slot"
	OutcomeKindBlackjack OutcomeKind = "blackjack"
	OutcomeKindRace      OutcomeKind = "race"
)

// Outcome is the server-computed result of a play, stored as JSONB.
// Exactly one of Slot, Blackjack or Race is set, matching Kind.
type Outcome struct {
	Kind      OutcomeKind           `json:"kind"`
	Slot      *game.SpinResult      `json:"slot,omitempty"`
	Blackjack *game.BlackjackResult `json:"blackjack,omitempty"`
	Race      *RaceOutcome          `json:"race,omitempty"`
}

// RaceOutcome records the selection on a race bet and, once settled, the winner
type RaceOutcome struct {
	RaceID         int64  `json:"race_id"`
	EntrantNo      int    `json:"entrant_no"`
	EntrantName    string `json:"entrant_name,omitempty"`
	Odds           string `json:"odds"`
	WinningEntrant int    `json:"winning_entrant,omitempty"`
	PrizePoolShare int64  `json:"prize_pool_share,omitempty"`
}

// Bytes returns the JSON encoding, or nil if the outcome cannot be encoded
func (o Outcome) Bytes() []byte {
	b, err := json.Marshal(o)
	if err != nil {
		return nil
	}
	return b
}

// SlotOutcome wraps a wheel spin
func SlotOutcome(r game.SpinResult) Outcome {
	return Outcome{Kind: OutcomeKindSlot, Slot: &r}
}

// BlackjackOutcome wraps a blackjack hand
func BlackjackOutcome(r game.BlackjackResult) Outcome {
	return Outcome{Kind: OutcomeKindBlackjack, Blackjack: &r}
}
