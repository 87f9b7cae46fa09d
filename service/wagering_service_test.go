package service

import (
	"context"
	"errors"
	"testing"

	"coinledger/game"
	"coinledger/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestWageringService_PlaceWager_SlotWin(t *testing.T) {
	ctx := context.Background()
	factory, uow := newMockUoW(ctx)
	periods := testPeriods()
	svc := NewWageringService(factory, testConfig(t), periods, game.NewSequenceSource(0.9))

	key := periods.DailyKey(models.QuotaTypeCasinoPlay, 1, 7)

	noBusinessSettings(uow, 7)
	uow.Quota.On("ConsumeAllowance", ctx, key.Allowance()).Return(false, nil)
	uow.Quota.On("IncrementIfBelow", ctx, key, int64(10)).Return(int64(1), true, nil)
	uow.Ledger.On("GetBalance", ctx, int64(1)).Return(int64(100), nil)
	inserted := expectLedgerWrites(uow, []int64{1}, map[int64]int64{1: 100}, 500)
	uow.Plays.On("Create", ctx, mock.MatchedBy(func(p *models.Play) bool {
		return p.AccountID == 1 &&
			p.Stake == 30 &&
			p.Payout == 90 &&
			p.Status == models.PlayStatusSettledWin &&
			p.DebitTransactionID == 500 &&
			p.CreditTransactionID != nil && *p.CreditTransactionID == 501
	})).Return(nil).Run(func(args mock.Arguments) {
		args.Get(1).(*models.Play).ID = 42
	})
	uow.Quota.On("Count", ctx, key).Return(int64(1), nil)
	uow.Quota.On("Allowance", ctx, key.Allowance()).Return(int64(0), nil)
	uow.On("Commit").Return(nil)

	result, err := svc.PlaceWager(ctx, WagerRequest{
		AccountID:  1,
		BusinessID: 7,
		GameType:   models.GameTypeSlot,
		Stake:      30,
	})

	require.NoError(t, err)
	assert.Equal(t, int64(42), result.PlayID)
	assert.Equal(t, int64(90), result.Payout)
	assert.True(t, result.Multiplier.Equal(decimal.NewFromInt(3)))
	assert.False(t, result.IsJackpot)
	assert.Equal(t, int64(160), result.NewBalance)
	assert.Equal(t, int64(9), result.PlaysRemaining)
	assert.Equal(t, models.OutcomeKindSlot, result.Outcome.Kind)

	require.Len(t, *inserted, 2)
	debit, credit := (*inserted)[0], (*inserted)[1]
	assert.Equal(t, models.CategoryCasinoBet, debit.Category)
	assert.Equal(t, int64(70), debit.BalanceAfter)
	assert.Equal(t, models.CategoryCasinoWin, credit.Category)
	assert.Equal(t, int64(160), credit.BalanceAfter)
	assert.Equal(t, debit.Reference, credit.Reference)
	uow.Ledger.AssertCalled(t, "SetBalance", ctx, int64(1), int64(160))

	factory.AssertExpectations(t)
	uow.AssertRepositoryExpectations(t)
}

func TestWageringService_PlaceWager_InsufficientFundsWritesNothing(t *testing.T) {
	ctx := context.Background()
	factory, uow := newMockUoW(ctx)
	periods := testPeriods()
	svc := NewWageringService(factory, testConfig(t), periods, game.NewSequenceSource(0.9))

	key := periods.DailyKey(models.QuotaTypeCasinoPlay, 1, 7)
	noBusinessSettings(uow, 7)
	uow.Quota.On("ConsumeAllowance", ctx, key.Allowance()).Return(false, nil)
	uow.Quota.On("IncrementIfBelow", ctx, key, int64(10)).Return(int64(1), true, nil)
	uow.Ledger.On("GetBalance", ctx, int64(1)).Return(int64(10), nil)

	result, err := svc.PlaceWager(ctx, WagerRequest{AccountID: 1, BusinessID: 7, GameType: models.GameTypeSlot, Stake: 30})

	assert.Nil(t, result)
	assert.True(t, errors.Is(err, ErrInsufficientFunds))
	uow.Ledger.AssertNotCalled(t, "Insert", mock.Anything, mock.Anything)
	uow.Plays.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	uow.AssertNotCalled(t, "Commit")
	uow.AssertCalled(t, "Rollback")
}

func TestWageringService_PlaceWager_StakeOutsideLimits(t *testing.T) {
	ctx := context.Background()
	factory, uow := newMockUoW(ctx)
	svc := NewWageringService(factory, testConfig(t), testPeriods(), game.NewSequenceSource(0.5))

	uow.Settings.On("GetByBusinessID", ctx, int64(7)).Return(&models.BusinessSettings{
		BusinessID:        7,
		MinBet:            5,
		MaxBet:            50,
		DailyPlayLimit:    3,
		HouseEdge:         decimal.RequireFromString("0.05"),
		JackpotMultiplier: decimal.NewFromInt(10),
	}, nil)

	_, err := svc.PlaceWager(ctx, WagerRequest{AccountID: 1, BusinessID: 7, GameType: models.GameTypeBlackjack, Stake: 51})

	assert.True(t, errors.Is(err, ErrInvalidStake))
	uow.Quota.AssertNotCalled(t, "IncrementIfBelow", mock.Anything, mock.Anything, mock.Anything)
}

func TestWageringService_PlaceWager_QuotaExceeded(t *testing.T) {
	ctx := context.Background()
	factory, uow := newMockUoW(ctx)
	periods := testPeriods()
	svc := NewWageringService(factory, testConfig(t), periods, game.NewSequenceSource(0.5))

	key := periods.DailyKey(models.QuotaTypeCasinoPlay, 1, 7)
	noBusinessSettings(uow, 7)
	uow.Quota.On("ConsumeAllowance", ctx, key.Allowance()).Return(false, nil)
	uow.Quota.On("IncrementIfBelow", ctx, key, int64(10)).Return(int64(10), false, nil)

	_, err := svc.PlaceWager(ctx, WagerRequest{AccountID: 1, BusinessID: 7, GameType: models.GameTypeSlot, Stake: 10})

	assert.True(t, errors.Is(err, ErrQuotaExceeded))
	uow.Ledger.AssertNotCalled(t, "GetBalance", mock.Anything, mock.Anything)
}

func TestWageringService_PlaceWager_UnknownGame(t *testing.T) {
	factory := new(MockUnitOfWorkFactory)
	svc := NewWageringService(factory, testConfig(t), testPeriods(), game.NewSequenceSource(0.5))

	_, err := svc.PlaceWager(context.Background(), WagerRequest{AccountID: 1, GameType: "roulette", Stake: 10})

	assert.True(t, errors.Is(err, ErrInvalidGame))
	factory.AssertNotCalled(t, "Create")
}

func openRace() *models.RaceEvent {
	return &models.RaceEvent{
		ID:         3,
		BusinessID: 7,
		Name:       "Sunday Cup",
		State:      models.RaceStateOpen,
		Entrants: []*models.RaceEntrant{
			{RaceID: 3, EntrantNo: 1, Name: "Comet", WinProbability: 0.6, Odds: decimal.RequireFromString("1.58")},
			{RaceID: 3, EntrantNo: 2, Name: "Dasher", WinProbability: 0.4, Odds: decimal.RequireFromString("2.37")},
		},
	}
}

func TestWageringService_PlaceWager_RaceBetLocksOdds(t *testing.T) {
	ctx := context.Background()
	factory, uow := newMockUoW(ctx)
	periods := testPeriods()
	svc := NewWageringService(factory, testConfig(t), periods, game.NewSequenceSource(0.5))

	key := periods.DailyKey(models.QuotaTypeCasinoPlay, 1, 7)
	noBusinessSettings(uow, 7)
	uow.Races.On("GetForShare", ctx, int64(3)).Return(openRace(), nil)
	uow.Ledger.On("GetBalance", ctx, int64(1)).Return(int64(100), nil)
	inserted := expectLedgerWrites(uow, []int64{1}, map[int64]int64{1: 100}, 10)
	uow.Plays.On("Create", ctx, mock.MatchedBy(func(p *models.Play) bool {
		return p.Status == models.PlayStatusPlaced &&
			p.RaceID != nil && *p.RaceID == 3 &&
			p.EntrantNo != nil && *p.EntrantNo == 2 &&
			p.Odds != nil && p.Odds.String() == "2.37" &&
			p.Payout == 0 &&
			p.CreditTransactionID == nil
	})).Return(nil)
	uow.Quota.On("Count", ctx, key).Return(int64(0), nil)
	uow.Quota.On("Allowance", ctx, key.Allowance()).Return(int64(0), nil)
	uow.On("Commit").Return(nil)

	result, err := svc.PlaceWager(ctx, WagerRequest{
		AccountID:  1,
		BusinessID: 7,
		GameType:   models.GameTypeRace,
		Stake:      20,
		Context:    WagerContext{RaceID: 3, EntrantNo: 2},
	})

	require.NoError(t, err)
	assert.Equal(t, models.PlayStatusPlaced, result.Status)
	assert.Equal(t, int64(80), result.NewBalance)
	require.NotNil(t, result.Outcome.Race)
	assert.Equal(t, "2.37", result.Outcome.Race.Odds)

	require.Len(t, *inserted, 1)
	assert.Equal(t, models.CategoryRaceBet, (*inserted)[0].Category)
	uow.Quota.AssertNotCalled(t, "IncrementIfBelow", mock.Anything, mock.Anything, mock.Anything)
	uow.Bus.AssertNotCalled(t, "Publish", mock.AnythingOfType("events.PlaySettledEvent"))
}

func TestWageringService_PlaceWager_RaceNotOpen(t *testing.T) {
	ctx := context.Background()
	factory, uow := newMockUoW(ctx)
	svc := NewWageringService(factory, testConfig(t), testPeriods(), game.NewSequenceSource(0.5))

	race := openRace()
	race.State = models.RaceStateSettled
	noBusinessSettings(uow, 7)
	uow.Races.On("GetForShare", ctx, int64(3)).Return(race, nil)

	_, err := svc.PlaceWager(ctx, WagerRequest{
		AccountID:  1,
		BusinessID: 7,
		GameType:   models.GameTypeRace,
		Stake:      20,
		Context:    WagerContext{RaceID: 3, EntrantNo: 1},
	})

	assert.True(t, errors.Is(err, ErrRaceNotOpen))
}

func TestWageringService_PlaceWager_StorageFailure(t *testing.T) {
	ctx := context.Background()
	factory, uow := newMockUoW(ctx)
	svc := NewWageringService(factory, testConfig(t), testPeriods(), game.NewSequenceSource(0.5))

	uow.Settings.On("GetByBusinessID", ctx, int64(7)).Return(nil, errors.New("connection reset"))

	_, err := svc.PlaceWager(ctx, WagerRequest{AccountID: 1, BusinessID: 7, GameType: models.GameTypeSlot, Stake: 10})

	assert.True(t, errors.Is(err, ErrStorageUnavailable))
}
