package game

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Condition modifiers applied to an entrant's strength.
var (
	WeatherBonus   = 1.10
	TimeOfDayBonus = 1.05
	MinOdds        = decimal.RequireFromString("1.01")
)

// MaxPerformanceScore is the largest score the race store can hold.
const MaxPerformanceScore = 9999.0

// Conditions describe the race day.
type Conditions struct {
	Weather   string `json:"weather"`
	TimeOfDay string `json:"time_of_day"`
}

// Entrant is a runner before pricing.
type Entrant struct {
	No               int     `json:"entrant_no"`
	Name             string  `json:"name"`
	PerformanceScore float64 `json:"performance_score"`
	RecentForm       float64 `json:"recent_form"` // 0..1
	PreferredWeather string  `json:"preferred_weather,omitempty"`
	PreferredTime    string  `json:"preferred_time,omitempty"`
}

// PricedEntrant is an entrant with its win probability and offered odds.
type PricedEntrant struct {
	Entrant
	WinProbability float64         `json:"win_probability"`
	Odds           decimal.Decimal `json:"odds"`
}

// Strength is the entrant's unnormalised chance under cond.
func (e Entrant) Strength(cond Conditions) float64 {
	s := e.PerformanceScore * (0.75 + 0.5*e.RecentForm)
	if e.PreferredWeather != "" && e.PreferredWeather == cond.Weather {
		s *= WeatherBonus
	}
	if e.PreferredTime != "" && e.PreferredTime == cond.TimeOfDay {
		s *= TimeOfDayBonus
	}
	return s
}

func validateField(entrants []Entrant) error {
	if len(entrants) < 2 {
		return fmt.Errorf("%w: a race needs at least two entrants", ErrInvalidTable)
	}
	seen := make(map[int]bool, len(entrants))
	for _, e := range entrants {
		if e.No <= 0 {
			return fmt.Errorf("%w: entrant number must be positive", ErrInvalidTable)
		}
		if seen[e.No] {
			return fmt.Errorf("%w: duplicate entrant number %d", ErrInvalidTable, e.No)
		}
		seen[e.No] = true
		if e.PerformanceScore <= 0 || e.PerformanceScore > MaxPerformanceScore {
			return fmt.Errorf("%w: entrant %d score must be in (0, %v]", ErrInvalidTable, e.No, MaxPerformanceScore)
		}
		if e.RecentForm < 0 || e.RecentForm > 1 {
			return fmt.Errorf("%w: entrant %d form must be in [0, 1]", ErrInvalidTable, e.No)
		}
	}
	return nil
}

// PriceRace assigns each entrant its share of total strength as a win
// probability and offers odds of (1/p)·(1 − houseEdge), rounded down to two
// places and never below MinOdds.
func PriceRace(cond Conditions, entrants []Entrant, houseEdge float64) ([]PricedEntrant, error) {
	if err := validateField(entrants); err != nil {
		return nil, err
	}
	if houseEdge < 0 || houseEdge >= 1 {
		return nil, fmt.Errorf("%w: house edge %v out of range", ErrInvalidTable, houseEdge)
	}

	strengths := make([]float64, len(entrants))
	total := 0.0
	for i, e := range entrants {
		strengths[i] = e.Strength(cond)
		total += strengths[i]
	}

	keep := decimal.NewFromInt(1).Sub(decimal.NewFromFloat(houseEdge))
	priced := make([]PricedEntrant, len(entrants))
	for i, e := range entrants {
		p := strengths[i] / total
		odds := decimal.NewFromInt(1).Div(decimal.NewFromFloat(p)).Mul(keep).RoundDown(2)
		if odds.LessThan(MinOdds) {
			odds = MinOdds
		}
		priced[i] = PricedEntrant{Entrant: e, WinProbability: p, Odds: odds}
	}
	return priced, nil
}

// RunRace picks a winner by walking the cumulative win probabilities.
func RunRace(entrants []PricedEntrant, draw float64) (PricedEntrant, error) {
	if err := checkDraw(draw); err != nil {
		return PricedEntrant{}, err
	}
	if len(entrants) == 0 {
		return PricedEntrant{}, fmt.Errorf("%w: race has no entrants", ErrInvalidTable)
	}

	total := 0.0
	for _, e := range entrants {
		total += e.WinProbability
	}
	if total <= 0 {
		return PricedEntrant{}, fmt.Errorf("%w: race has no priced entrants", ErrInvalidTable)
	}

	target := draw * total
	cumulative := 0.0
	for _, e := range entrants {
		cumulative += e.WinProbability
		if target < cumulative {
			return e, nil
		}
	}
	return entrants[len(entrants)-1], nil
}
