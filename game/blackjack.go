package game

import (
	"math"
	"math/rand/v2"
	"strconv"

	"github.com/shopspring/decimal"
)

// Blackjack table rules.
const (
	PlayerStandsOn = 17
	DealerStandsOn = 17
	blackjack      = 21
)

// Blackjack results.
const (
	BlackjackNatural = "natural"
	BlackjackWin     = "win"
	BlackjackPush    = "push"
	BlackjackLoss    = "loss"
	BlackjackBust    = "bust"
)

var blackjackMultipliers = map[string]decimal.Decimal{
	BlackjackNatural: decimal.RequireFromString("2.5"),
	BlackjackWin:     decimal.NewFromInt(2),
	BlackjackPush:    decimal.NewFromInt(1),
	BlackjackLoss:    decimal.Zero,
	BlackjackBust:    decimal.Zero,
}

// Card is a rank (1 = ace .. 13 = king) and a suit index (0-3).
type Card struct {
	Rank int
	Suit int
}

var suits = [4]string{"C", "D", "H", "S"}

func (c Card) String() string {
	var r string
	switch c.Rank {
	case 1:
		r = "A"
	case 11:
		r = "J"
	case 12:
		r = "Q"
	case 13:
		r = "K"
	default:
		r = strconv.Itoa(c.Rank)
	}
	return r + suits[c.Suit]
}

func (c Card) value() int {
	if c.Rank > 10 {
		return 10
	}
	return c.Rank
}

// HandTotal returns the best total for a hand, counting one ace as 11 when
// that does not bust.
func HandTotal(cards []Card) int {
	total, aces := 0, 0
	for _, c := range cards {
		total += c.value()
		if c.Rank == 1 {
			aces++
		}
	}
	if aces > 0 && total+10 <= blackjack {
		total += 10
	}
	return total
}

// BlackjackResult is a fully played hand.
type BlackjackResult struct {
	PlayerCards []string        `json:"player_cards"`
	DealerCards []string        `json:"dealer_cards"`
	PlayerTotal int             `json:"player_total"`
	DealerTotal int             `json:"dealer_total"`
	Result      string          `json:"result"`
	Multiplier  decimal.Decimal `json:"multiplier"`
	Draw        float64         `json:"draw"`
}

// Payout returns the credit owed for stake on this hand.
func (r BlackjackResult) Payout(stake int64) int64 {
	return PayoutFor(stake, r.Multiplier)
}

func newDeck(draw float64) []Card {
	deck := make([]Card, 0, 52)
	for suit := 0; suit < 4; suit++ {
		for rank := 1; rank <= 13; rank++ {
			deck = append(deck, Card{Rank: rank, Suit: suit})
		}
	}
	rng := rand.New(rand.NewPCG(math.Float64bits(draw), 0x9e3779b97f4a7c15))
	rng.Shuffle(len(deck), func(i, j int) { deck[i], deck[j] = deck[j], deck[i] })
	return deck
}

func cardStrings(cards []Card) []string {
	out := make([]string, len(cards))
	for i, c := range cards {
		out[i] = c.String()
	}
	return out
}

// PlayBlackjack deals one hand from a deck shuffled by draw. The player
// draws to PlayerStandsOn and the dealer stands on DealerStandsOn.
func PlayBlackjack(draw float64) (BlackjackResult, error) {
	if err := checkDraw(draw); err != nil {
		return BlackjackResult{}, err
	}

	deck := newDeck(draw)
	next := 0
	deal := func() Card {
		c := deck[next]
		next++
		return c
	}

	player := []Card{deal()}
	dealer := []Card{deal()}
	player = append(player, deal())
	dealer = append(dealer, deal())

	result := func(outcome string) (BlackjackResult, error) {
		return BlackjackResult{
			PlayerCards: cardStrings(player),
			DealerCards: cardStrings(dealer),
			PlayerTotal: HandTotal(player),
			DealerTotal: HandTotal(dealer),
			Result:      outcome,
			Multiplier:  blackjackMultipliers[outcome],
			Draw:        draw,
		}, nil
	}

	playerNatural := HandTotal(player) == blackjack
	dealerNatural := HandTotal(dealer) == blackjack
	switch {
	case playerNatural && dealerNatural:
		return result(BlackjackPush)
	case playerNatural:
		return result(BlackjackNatural)
	case dealerNatural:
		return result(BlackjackLoss)
	}

	for HandTotal(player) < PlayerStandsOn {
		player = append(player, deal())
	}
	if HandTotal(player) > blackjack {
		return result(BlackjackBust)
	}

	for HandTotal(dealer) < DealerStandsOn {
		dealer = append(dealer, deal())
	}

	playerTotal, dealerTotal := HandTotal(player), HandTotal(dealer)
	switch {
	case dealerTotal > blackjack, playerTotal > dealerTotal:
		return result(BlackjackWin)
	case playerTotal == dealerTotal:
		return result(BlackjackPush)
	default:
		return result(BlackjackLoss)
	}
}
