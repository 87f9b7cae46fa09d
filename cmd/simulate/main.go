// Command simulate plays many rounds of each table against the system random
// source and reports the observed return to player alongside the expected one.
package main

import (
	"flag"
	"fmt"
	"math"
	"os"

	"coinledger/game"

	"github.com/shopspring/decimal"
)

func main() {
	rounds := flag.Int("rounds", 100000, "rounds to play per table")
	stake := flag.Int64("stake", 100, "stake per round")
	houseEdge := flag.Float64("house-edge", 0.05, "house edge used to price the race field")
	flag.Parse()

	if *rounds <= 0 || *stake <= 0 {
		fmt.Fprintln(os.Stderr, "rounds and stake must be positive")
		os.Exit(2)
	}

	rng := game.SystemSource{}

	fmt.Printf("=== Table return analysis (%d rounds, stake %d) ===\n\n", *rounds, *stake)

	if err := analyzeWheel(rng, *rounds, *stake); err != nil {
		fmt.Fprintln(os.Stderr, "wheel:", err)
		os.Exit(1)
	}
	if err := analyzeBlackjack(rng, *rounds, *stake); err != nil {
		fmt.Fprintln(os.Stderr, "blackjack:", err)
		os.Exit(1)
	}
	if err := analyzeRace(rng, *rounds, *stake, *houseEdge); err != nil {
		fmt.Fprintln(os.Stderr, "race:", err)
		os.Exit(1)
	}
}

// tally accumulates stakes and payouts for one table
type tally struct {
	rounds int
	staked int64
	paid   int64
	wins   int
}

func (t *tally) add(stake, payout int64) {
	t.rounds++
	t.staked += stake
	t.paid += payout
	if payout > stake {
		t.wins++
	}
}

func (t *tally) rtp() float64 {
	if t.staked == 0 {
		return 0
	}
	return float64(t.paid) / float64(t.staked)
}

func (t *tally) print(expected float64) {
	fmt.Printf("  Rounds:        %d\n", t.rounds)
	fmt.Printf("  Win rate:      %.4f%%\n", float64(t.wins)/float64(t.rounds)*100)
	fmt.Printf("  Observed RTP:  %.4f%%\n", t.rtp()*100)
	if expected > 0 {
		fmt.Printf("  Expected RTP:  %.4f%%\n", expected*100)
		fmt.Printf("  Deviation:     %+.4f%%\n", (t.rtp()-expected)*100)
	}
	fmt.Printf("  House edge:    %.4f%%\n\n", (1-t.rtp())*100)
}

func analyzeWheel(rng game.RandomSource, rounds int, stake int64) error {
	fmt.Println("Wheel")

	tiers := game.DefaultTiers
	counts := make(map[string]int, len(tiers))
	var t tally
	for i := 0; i < rounds; i++ {
		spin, err := game.SpinWheel(tiers, rng.Float64())
		if err != nil {
			return err
		}
		counts[spin.Symbol]++
		t.add(stake, spin.Payout(stake))
	}

	expected, _ := game.ExpectedMultiplier(tiers).Float64()
	t.print(expected)

	// Chi-squared against the tier weights
	totalWeight := 0
	for _, tier := range tiers {
		totalWeight += tier.Weight()
	}
	chi := 0.0
	for _, tier := range tiers {
		want := float64(rounds) * float64(tier.Weight()) / float64(totalWeight)
		chi += math.Pow(float64(counts[tier.Symbol])-want, 2) / want
	}
	fmt.Printf("  χ² (tier weights): %.2f with %d df\n\n", chi, len(tiers)-1)
	return nil
}

func analyzeBlackjack(rng game.RandomSource, rounds int, stake int64) error {
	fmt.Println("Blackjack")

	results := make(map[string]int)
	var t tally
	for i := 0; i < rounds; i++ {
		hand, err := game.PlayBlackjack(rng.Float64())
		if err != nil {
			return err
		}
		results[hand.Result]++
		t.add(stake, hand.Payout(stake))
	}

	t.print(0)
	for result, n := range results {
		fmt.Printf("  %-12s %6d (%.2f%%)\n", result, n, float64(n)/float64(rounds)*100)
	}
	fmt.Println()
	return nil
}

func analyzeRace(rng game.RandomSource, rounds int, stake int64, houseEdge float64) error {
	fmt.Println("Race")

	field := []game.Entrant{
		{No: 1, Name: "Comet", PerformanceScore: 80, RecentForm: 0.7, PreferredWeather: "sunny"},
		{No: 2, Name: "Dasher", PerformanceScore: 65, RecentForm: 0.5, PreferredTime: "evening"},
		{No: 3, Name: "Blitzen", PerformanceScore: 50, RecentForm: 0.9},
		{No: 4, Name: "Cupid", PerformanceScore: 30, RecentForm: 0.2},
	}
	priced, err := game.PriceRace(game.Conditions{Weather: "sunny", TimeOfDay: "evening"}, field, houseEdge)
	if err != nil {
		return err
	}

	for _, e := range priced {
		fmt.Printf("  #%d %-8s p=%.4f odds=%s\n", e.No, e.Name, e.WinProbability, e.Odds.StringFixed(2))
	}

	// Back every entrant in turn so each price is exercised equally
	expected := decimal.Zero
	for _, e := range priced {
		expected = expected.Add(decimal.NewFromFloat(e.WinProbability).Mul(e.Odds))
	}
	expectedRTP, _ := expected.Div(decimal.NewFromInt(int64(len(priced)))).Float64()

	var t tally
	for i := 0; i < rounds; i++ {
		backed := priced[i%len(priced)]
		winner, err := game.RunRace(priced, rng.Float64())
		if err != nil {
			return err
		}
		payout := int64(0)
		if winner.No == backed.No {
			payout = game.PayoutFor(stake, backed.Odds)
		}
		t.add(stake, payout)
	}

	t.print(expectedRTP)
	return nil
}
