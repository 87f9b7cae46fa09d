package game

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// MaxRarity is the rarest tier a wheel may carry. A tier's weight is
// MaxRarity + 1 - rarity, so rarity 1 is ten times as likely as rarity 10.
const MaxRarity = 10

// Tier is one wheel segment.
type Tier struct {
	Rarity     int             `json:"rarity"`
	Symbol     string          `json:"symbol"`
	Multiplier decimal.Decimal `json:"multiplier"`
	FixedPrize int64           `json:"fixed_prize,omitempty"` // overrides the multiplier when positive
}

// Weight returns the tier's relative selection weight.
func (t Tier) Weight() int {
	return MaxRarity + 1 - t.Rarity
}

// DefaultTiers is the platform wheel. Expected return is 45/55 of the stake.
var DefaultTiers = []Tier{
	{Rarity: 1, Symbol: "lemon", Multiplier: decimal.Zero},
	{Rarity: 2, Symbol: "cherry", Multiplier: decimal.Zero},
	{Rarity: 3, Symbol: "grape", Multiplier: decimal.Zero},
	{Rarity: 4, Symbol: "orange", Multiplier: decimal.Zero},
	{Rarity: 5, Symbol: "plum", Multiplier: decimal.RequireFromString("0.5")},
	{Rarity: 6, Symbol: "bell", Multiplier: decimal.NewFromInt(1)},
	{Rarity: 7, Symbol: "bar", Multiplier: decimal.NewFromInt(2)},
	{Rarity: 8, Symbol: "double_bar", Multiplier: decimal.NewFromInt(3)},
	{Rarity: 9, Symbol: "seven", Multiplier: decimal.NewFromInt(5)},
	{Rarity: 10, Symbol: "jackpot", Multiplier: decimal.NewFromInt(10)},
}

// SpinResult is the landed tier plus the draw that produced it.
type SpinResult struct {
	Tier
	Draw float64 `json:"draw"`
}

// Payout returns the credit owed for stake on this spin.
func (r SpinResult) Payout(stake int64) int64 {
	if r.FixedPrize > 0 {
		return r.FixedPrize
	}
	return PayoutFor(stake, r.Multiplier)
}

// EffectiveMultiplier is the realised payout ratio for stake.
func (r SpinResult) EffectiveMultiplier(stake int64) decimal.Decimal {
	if r.FixedPrize > 0 && stake > 0 {
		return decimal.NewFromInt(r.FixedPrize).Div(decimal.NewFromInt(stake)).Round(4)
	}
	return r.Multiplier
}

// ValidateTiers checks that a wheel can be spun.
func ValidateTiers(tiers []Tier) error {
	if len(tiers) == 0 {
		return fmt.Errorf("%w: wheel has no tiers", ErrInvalidTable)
	}
	for _, t := range tiers {
		if t.Rarity < 1 || t.Rarity > MaxRarity {
			return fmt.Errorf("%w: rarity %d out of range", ErrInvalidTable, t.Rarity)
		}
		if t.Multiplier.IsNegative() || t.FixedPrize < 0 {
			return fmt.Errorf("%w: negative prize on tier %q", ErrInvalidTable, t.Symbol)
		}
	}
	return nil
}

// SpinWheel maps draw onto the cumulative weight ranges of tiers, in the
// order given.
func SpinWheel(tiers []Tier, draw float64) (SpinResult, error) {
	if err := checkDraw(draw); err != nil {
		return SpinResult{}, err
	}
	if err := ValidateTiers(tiers); err != nil {
		return SpinResult{}, err
	}

	total := 0
	for _, t := range tiers {
		total += t.Weight()
	}

	target := draw * float64(total)
	cumulative := 0
	for _, t := range tiers {
		cumulative += t.Weight()
		if target < float64(cumulative) {
			return SpinResult{Tier: t, Draw: draw}, nil
		}
	}

	// Unreachable for draw < 1; guards float rounding on the last edge.
	return SpinResult{Tier: tiers[len(tiers)-1], Draw: draw}, nil
}

// ExpectedMultiplier is the weight-averaged multiplier of a wheel, ignoring
// fixed prizes.
func ExpectedMultiplier(tiers []Tier) decimal.Decimal {
	total := int64(0)
	sum := decimal.Zero
	for _, t := range tiers {
		w := int64(t.Weight())
		total += w
		sum = sum.Add(t.Multiplier.Mul(decimal.NewFromInt(w)))
	}
	if total == 0 {
		return decimal.Zero
	}
	return sum.Div(decimal.NewFromInt(total))
}

// PayoutFor returns floor(stake × multiplier).
func PayoutFor(stake int64, multiplier decimal.Decimal) int64 {
	if stake <= 0 || !multiplier.IsPositive() {
		return 0
	}
	return decimal.NewFromInt(stake).Mul(multiplier).Floor().IntPart()
}
