package repository

import (
	"context"
	"testing"

	"coinledger/models"
	"coinledger/repository/testutil"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRaceAndPlayRepositories_Integration(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)
	ctx := context.Background()
	races := NewRaceRepository(testDB.DB)
	plays := NewPlayRepository(testDB.DB)

	race := testutil.CreateTestRace(7)
	require.NoError(t, races.Create(ctx, race))
	require.NotZero(t, race.ID)

	t.Run("race round-trips with ordered entrants", func(t *testing.T) {
		got, err := races.GetByID(ctx, race.ID)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, models.RaceStateOpen, got.State)
		require.Len(t, got.Entrants, 2)
		assert.Equal(t, 1, got.Entrants[0].EntrantNo)
		assert.True(t, got.Entrants[0].Odds.Equal(decimal.RequireFromString("1.58")))
		assert.InDelta(t, 0.4, got.Entrants[1].WinProbability, 1e-9)
	})

	t.Run("missing race is nil", func(t *testing.T) {
		got, err := races.GetByID(ctx, race.ID+1000)
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	bets := []*models.Play{
		testutil.CreateTestRaceBet(501, 7, race.ID, 1, 20, "1.58", 11),
		testutil.CreateTestRaceBet(502, 7, race.ID, 2, 10, "2.37", 12),
	}
	for _, bet := range bets {
		require.NoError(t, plays.Create(ctx, bet))
		require.NotZero(t, bet.ID)
	}

	t.Run("open bets are listed by id", func(t *testing.T) {
		open, err := plays.LockOpenByRace(ctx, race.ID)
		require.NoError(t, err)
		require.Len(t, open, 2)
		assert.Equal(t, bets[0].ID, open[0].ID)
		require.NotNil(t, open[0].Odds)
		assert.True(t, open[0].Odds.Equal(decimal.RequireFromString("1.58")))
		require.NotNil(t, open[0].Outcome.Race)
		assert.Equal(t, 1, open[0].Outcome.Race.EntrantNo)
	})

	t.Run("settle and refund move a play once", func(t *testing.T) {
		credit := int64(31)
		win := bets[0]
		win.Status = models.PlayStatusSettledWin
		win.Payout = 31
		win.Multiplier = decimal.RequireFromString("1.58")
		win.CreditTransactionID = &credit

		ok, err := plays.Settle(ctx, win)
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = plays.Settle(ctx, win)
		require.NoError(t, err)
		assert.False(t, ok, "a settled play is no longer placed")

		ok, err = plays.MarkRefunded(ctx, bets[1].ID, 40)
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = plays.MarkRefunded(ctx, win.ID, 41)
		require.NoError(t, err)
		assert.False(t, ok)

		open, err := plays.LockOpenByRace(ctx, race.ID)
		require.NoError(t, err)
		assert.Empty(t, open)

		got, err := plays.GetByID(ctx, win.ID)
		require.NoError(t, err)
		assert.Equal(t, models.PlayStatusSettledWin, got.Status)
		assert.Equal(t, int64(31), got.Payout)
		require.NotNil(t, got.CreditTransactionID)
		assert.Equal(t, credit, *got.CreditTransactionID)

		history, err := plays.GetByAccount(ctx, 502, 10)
		require.NoError(t, err)
		require.Len(t, history, 1)
		assert.Equal(t, models.PlayStatusRefunded, history[0].Status)
	})

	t.Run("close succeeds only while open", func(t *testing.T) {
		winner := 1
		ok, err := races.Close(ctx, race.ID, models.RaceStateSettled, &winner)
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = races.Close(ctx, race.ID, models.RaceStateCancelled, nil)
		require.NoError(t, err)
		assert.False(t, ok)

		require.NoError(t, races.SetPoolTransaction(ctx, race.ID, 99))

		got, err := races.GetByID(ctx, race.ID)
		require.NoError(t, err)
		assert.Equal(t, models.RaceStateSettled, got.State)
		require.NotNil(t, got.WinningEntrantNo)
		assert.Equal(t, 1, *got.WinningEntrantNo)
		require.NotNil(t, got.PoolTransactionID)
		assert.Equal(t, int64(99), *got.PoolTransactionID)
	})
}
