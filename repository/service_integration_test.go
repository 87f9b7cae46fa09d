package repository

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"coinledger/config"
	"coinledger/events"
	"coinledger/game"
	"coinledger/models"
	"coinledger/repository/testutil"
	"coinledger/service"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newIntegrationFactory(t *testing.T) (*testutil.TestDatabase, service.UnitOfWorkFactory) {
	t.Helper()
	testDB := testutil.SetupTestDatabase(t)
	return testDB, NewUnitOfWorkFactory(testDB.DB, events.NewBus())
}

func TestLedger_ConcurrentSpendsNeverOverdraw(t *testing.T) {
	testDB, factory := newIntegrationFactory(t)
	ctx := context.Background()
	ledger := service.NewLedgerService(factory)

	accountID := int64(501)
	_, err := ledger.Append(ctx, models.Earn(accountID, models.CategoryTerminalSale, 100, "ext:terminal_webhook:seed"))
	require.NoError(t, err)

	var succeeded, insufficient atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := ledger.Append(ctx, models.Spend(accountID, models.CategoryDiscountPurchase, 10, fmt.Sprintf("discount:c%d", i)))
			switch {
			case err == nil:
				succeeded.Add(1)
			case errors.Is(err, service.ErrInsufficientFunds):
				insufficient.Add(1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int64(10), succeeded.Load())
	assert.Equal(t, int64(10), insufficient.Load())

	balance, err := ledger.GetBalance(ctx, accountID)
	require.NoError(t, err)
	assert.Zero(t, balance)
	require.NoError(t, ledger.VerifyBalance(ctx, accountID))

	reconciled, err := NewLedgerRepository(testDB.DB).Reconcile(ctx, accountID)
	require.NoError(t, err)
	assert.Zero(t, reconciled)
}

func TestLedger_BatchIsAllOrNothing(t *testing.T) {
	_, factory := newIntegrationFactory(t)
	ctx := context.Background()
	ledger := service.NewLedgerService(factory)

	_, err := ledger.Append(ctx, models.Earn(1, models.CategoryLevelUpBonus, 50, "level:2"))
	require.NoError(t, err)

	_, err = ledger.AppendBatch(ctx, []models.Entry{
		models.Earn(2, models.CategoryRefund, 10, ""),
		models.Spend(1, models.CategoryDiscountPurchase, 60, "discount:big"),
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, service.ErrInsufficientFunds))

	for account, want := range map[int64]int64{1: 50, 2: 0} {
		balance, err := ledger.GetBalance(ctx, account)
		require.NoError(t, err)
		assert.Equal(t, want, balance, "account %d", account)
	}
}

func TestQuota_ConcurrentReservationsStopAtLimit(t *testing.T) {
	_, factory := newIntegrationFactory(t)
	ctx := context.Background()
	quotas := service.NewQuotaService(factory, config.NewTestConfig(), service.NewPeriods(0))

	key := models.QuotaKey{AccountID: 9, BusinessID: 4, Type: models.QuotaTypeCasinoPlay, PeriodKey: "2024-03-09"}

	var granted, exceeded atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := quotas.Reserve(ctx, key, 10)
			switch {
			case err == nil:
				granted.Add(1)
			case errors.Is(err, service.ErrQuotaExceeded):
				exceeded.Add(1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(10), granted.Load())
	assert.Equal(t, int64(40), exceeded.Load())

	remaining, err := quotas.Remaining(ctx, key, 10)
	require.NoError(t, err)
	assert.Zero(t, remaining)
}

func TestIngest_RedeliveryAppliesOnce(t *testing.T) {
	_, factory := newIntegrationFactory(t)
	ctx := context.Background()
	cfg := config.NewTestConfig()
	ingest := service.NewIngestService(factory, cfg)
	ledger := service.NewLedgerService(factory)

	require.NoError(t, ingest.BindTerminal(ctx, "m-1", 77))

	payload := []byte(`{"transaction_id":"tx-42","machine_id":"m-1","amount":40}`)
	req := service.IngestRequest{
		Source:    models.EventSourceTerminalWebhook,
		Payload:   payload,
		Signature: service.SignPayload(cfg.TerminalWebhookSecret, payload),
	}

	var applied, duplicate atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			result, err := ingest.Ingest(ctx, req)
			if err != nil {
				t.Errorf("unexpected error: %v", err)
				return
			}
			switch result.Status {
			case models.IngestStatusApplied:
				applied.Add(1)
			case models.IngestStatusDuplicate:
				duplicate.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(1), applied.Load())
	assert.Equal(t, int64(7), duplicate.Load())

	balance, err := ledger.GetBalance(ctx, 77)
	require.NoError(t, err)
	assert.Equal(t, int64(40), balance)

	history, err := ledger.History(ctx, 77, 10)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "ext:terminal_webhook:tx-42", history[0].Reference)
}

func TestIngest_RejectedEventLeavesLedgerUntouched(t *testing.T) {
	_, factory := newIntegrationFactory(t)
	ctx := context.Background()
	ingest := service.NewIngestService(factory, config.NewTestConfig())
	ledger := service.NewLedgerService(factory)

	require.NoError(t, ingest.BindTerminal(ctx, "m-2", 78))

	result, err := ingest.Ingest(ctx, service.IngestRequest{
		Source:    models.EventSourceTerminalWebhook,
		Payload:   []byte(`{"transaction_id":"tx-43","machine_id":"m-2","amount":40}`),
		Signature: "sha256=deadbeef",
	})
	require.NoError(t, err)
	assert.Equal(t, models.IngestStatusRejected, result.Status)
	assert.Equal(t, models.RejectionInvalidSignature, result.Reason)

	balance, err := ledger.GetBalance(ctx, 78)
	require.NoError(t, err)
	assert.Zero(t, balance)
}

func TestRace_CancelRefundsOnce(t *testing.T) {
	_, factory := newIntegrationFactory(t)
	ctx := context.Background()
	cfg := config.NewTestConfig()
	ledger := service.NewLedgerService(factory)
	races := service.NewRaceService(factory, cfg, game.NewSequenceSource(0.5))
	wagers := service.NewWageringService(factory, cfg, service.NewPeriods(0), game.NewSequenceSource(0.5))

	const house, alice, bob = int64(900), int64(901), int64(902)
	_, err := ledger.AppendBatch(ctx, []models.Entry{
		models.Earn(house, models.CategoryTerminalSale, 1000, "ext:terminal_webhook:house"),
		models.Earn(alice, models.CategoryTerminalSale, 100, "ext:terminal_webhook:alice"),
		models.Earn(bob, models.CategoryTerminalSale, 100, "ext:terminal_webhook:bob"),
	})
	require.NoError(t, err)

	house64 := house
	race, err := races.CreateRace(ctx, service.CreateRaceRequest{
		BusinessID:     7,
		Name:           "Harbour Sprint",
		Weather:        "sunny",
		PrizePool:      100,
		HouseAccountID: &house64,
		Entrants: []service.RaceEntrantSpec{
			{EntrantNo: 1, Name: "Comet", PerformanceScore: 80, RecentForm: 0.5},
			{EntrantNo: 2, Name: "Dasher", PerformanceScore: 40, RecentForm: 0.5},
		},
	})
	require.NoError(t, err)
	require.Len(t, race.Entrants, 2)

	for _, bet := range []struct {
		account int64
		entrant int
	}{{alice, 1}, {bob, 2}} {
		result, err := wagers.PlaceWager(ctx, service.WagerRequest{
			AccountID:  bet.account,
			BusinessID: 7,
			GameType:   models.GameTypeRace,
			Stake:      20,
			Context:    service.WagerContext{RaceID: race.ID, EntrantNo: bet.entrant},
		})
		require.NoError(t, err)
		assert.Equal(t, models.PlayStatusPlaced, result.Status)
		assert.Equal(t, int64(80), result.NewBalance)
	}

	result, err := races.CancelRace(ctx, race.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, result.RefundedCount)
	assert.Equal(t, int64(40), result.TotalRefunded)
	assert.Equal(t, int64(100), result.PoolReturned)

	_, err = races.CancelRace(ctx, race.ID)
	assert.True(t, errors.Is(err, service.ErrRaceNotOpen))

	_, err = races.SettleRace(ctx, race.ID)
	assert.True(t, errors.Is(err, service.ErrRaceNotOpen))

	for account, want := range map[int64]int64{house: 1000, alice: 100, bob: 100} {
		balance, err := ledger.GetBalance(ctx, account)
		require.NoError(t, err)
		assert.Equal(t, want, balance, "account %d", account)
		require.NoError(t, ledger.VerifyBalance(ctx, account))
	}

	_, err = wagers.PlaceWager(ctx, service.WagerRequest{
		AccountID:  alice,
		BusinessID: 7,
		GameType:   models.GameTypeRace,
		Stake:      20,
		Context:    service.WagerContext{RaceID: race.ID, EntrantNo: 1},
	})
	assert.True(t, errors.Is(err, service.ErrRaceNotOpen))
}

func TestRace_SettlePaysFromPool(t *testing.T) {
	_, factory := newIntegrationFactory(t)
	ctx := context.Background()
	cfg := config.NewTestConfig()
	ledger := service.NewLedgerService(factory)
	// Draw 0 always lands on the first entrant
	races := service.NewRaceService(factory, cfg, game.NewSequenceSource(0))
	wagers := service.NewWageringService(factory, cfg, service.NewPeriods(0), game.NewSequenceSource(0))

	const house, alice, bob = int64(910), int64(911), int64(912)
	_, err := ledger.AppendBatch(ctx, []models.Entry{
		models.Earn(house, models.CategoryTerminalSale, 1000, "ext:terminal_webhook:house"),
		models.Earn(alice, models.CategoryTerminalSale, 100, "ext:terminal_webhook:alice"),
		models.Earn(bob, models.CategoryTerminalSale, 100, "ext:terminal_webhook:bob"),
	})
	require.NoError(t, err)

	house64 := house
	race, err := races.CreateRace(ctx, service.CreateRaceRequest{
		BusinessID:     7,
		Name:           "Harbour Sprint",
		PrizePool:      100,
		HouseAccountID: &house64,
		Entrants: []service.RaceEntrantSpec{
			{EntrantNo: 1, Name: "Comet", PerformanceScore: 80, RecentForm: 0.5},
			{EntrantNo: 2, Name: "Dasher", PerformanceScore: 40, RecentForm: 0.5},
		},
	})
	require.NoError(t, err)

	for _, bet := range []struct {
		account int64
		entrant int
	}{{alice, 1}, {bob, 2}} {
		_, err := wagers.PlaceWager(ctx, service.WagerRequest{
			AccountID:  bet.account,
			BusinessID: 7,
			GameType:   models.GameTypeRace,
			Stake:      20,
			Context:    service.WagerContext{RaceID: race.ID, EntrantNo: bet.entrant},
		})
		require.NoError(t, err)
	}

	result, err := races.SettleRace(ctx, race.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, result.WinningEntrantNo)
	assert.Equal(t, 1, result.Winners)
	assert.Equal(t, 1, result.Losers)
	assert.Zero(t, result.PoolReturned)

	odds := race.Entrant(1).Odds
	wantPayout := odds.Mul(decimal.NewFromInt(20)).Floor().IntPart() + 100
	assert.Equal(t, wantPayout, result.TotalPaid)

	aliceBalance, err := ledger.GetBalance(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, 80+wantPayout, aliceBalance)

	bobBalance, err := ledger.GetBalance(ctx, bob)
	require.NoError(t, err)
	assert.Equal(t, int64(80), bobBalance)

	houseBalance, err := ledger.GetBalance(ctx, house)
	require.NoError(t, err)
	assert.Equal(t, int64(900), houseBalance)

	_, err = races.SettleRace(ctx, race.ID)
	assert.True(t, errors.Is(err, service.ErrRaceNotOpen))
}
