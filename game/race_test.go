package game

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testField() []Entrant {
	return []Entrant{
		{No: 1, Name: "Thunder", PerformanceScore: 80, RecentForm: 0.5, PreferredWeather: "rain"},
		{No: 2, Name: "Comet", PerformanceScore: 80, RecentForm: 0.5, PreferredTime: "evening"},
		{No: 3, Name: "Pebble", PerformanceScore: 40, RecentForm: 0.5},
	}
}

func TestPriceRace_ProbabilitiesSumToOne(t *testing.T) {
	priced, err := PriceRace(Conditions{Weather: "sun", TimeOfDay: "noon"}, testField(), 0.05)
	require.NoError(t, err)
	require.Len(t, priced, 3)

	sum := 0.0
	for _, p := range priced {
		sum += p.WinProbability
	}
	assert.InDelta(t, 1.0, sum, 1e-9)

	// No modifiers apply, so strength is proportional to score
	assert.InDelta(t, 0.4, priced[0].WinProbability, 1e-9)
	assert.InDelta(t, 0.2, priced[2].WinProbability, 1e-9)

	// (1/0.4)·0.95 = 2.375 → 2.37
	assert.Equal(t, "2.37", priced[0].Odds.StringFixed(2))
	// (1/0.2)·0.95 = 4.75
	assert.Equal(t, "4.75", priced[2].Odds.StringFixed(2))
}

func TestPriceRace_ConditionModifiers(t *testing.T) {
	priced, err := PriceRace(Conditions{Weather: "rain", TimeOfDay: "evening"}, testField(), 0)
	require.NoError(t, err)

	// Weather bonus beats the time-of-day bonus
	assert.Greater(t, priced[0].WinProbability, priced[1].WinProbability)
	assert.Greater(t, priced[1].WinProbability, priced[2].WinProbability)
}

func TestPriceRace_HouseEdgeLowersOdds(t *testing.T) {
	fair, err := PriceRace(Conditions{}, testField(), 0)
	require.NoError(t, err)
	edged, err := PriceRace(Conditions{}, testField(), 0.10)
	require.NoError(t, err)

	for i := range fair {
		assert.True(t, edged[i].Odds.LessThan(fair[i].Odds))
	}
}

func TestPriceRace_MinimumOdds(t *testing.T) {
	field := []Entrant{
		{No: 1, Name: "Favourite", PerformanceScore: 1000, RecentForm: 1},
		{No: 2, Name: "Longshot", PerformanceScore: 1, RecentForm: 0},
	}
	priced, err := PriceRace(Conditions{}, field, 0.2)
	require.NoError(t, err)
	assert.True(t, priced[0].Odds.Equal(decimal.RequireFromString("1.01")))
}

func TestPriceRace_Validation(t *testing.T) {
	_, err := PriceRace(Conditions{}, testField()[:1], 0.05)
	assert.ErrorIs(t, err, ErrInvalidTable)

	dup := testField()
	dup[1].No = 1
	_, err = PriceRace(Conditions{}, dup, 0.05)
	assert.ErrorIs(t, err, ErrInvalidTable)

	_, err = PriceRace(Conditions{}, testField(), 1)
	assert.ErrorIs(t, err, ErrInvalidTable)
}

func TestPriceRace_ScoreBounds(t *testing.T) {
	field := testField()
	field[0].PerformanceScore = MaxPerformanceScore
	_, err := PriceRace(Conditions{}, field, 0.05)
	require.NoError(t, err)

	field[0].PerformanceScore = 10000
	_, err = PriceRace(Conditions{}, field, 0.05)
	assert.ErrorIs(t, err, ErrInvalidTable)

	field[0].PerformanceScore = 0
	_, err = PriceRace(Conditions{}, field, 0.05)
	assert.ErrorIs(t, err, ErrInvalidTable)
}

func TestRunRace(t *testing.T) {
	priced, err := PriceRace(Conditions{}, testField(), 0.05)
	require.NoError(t, err)

	winner, err := RunRace(priced, 0.1)
	require.NoError(t, err)
	assert.Equal(t, 1, winner.No)

	winner, err = RunRace(priced, 0.5)
	require.NoError(t, err)
	assert.Equal(t, 2, winner.No)

	winner, err = RunRace(priced, 0.95)
	require.NoError(t, err)
	assert.Equal(t, 3, winner.No)

	_, err = RunRace(priced, 1)
	assert.ErrorIs(t, err, ErrInvalidDraw)
}
