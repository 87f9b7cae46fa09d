package service

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"coinledger/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestLedgerService_AppendBatch_AllOrNothing(t *testing.T) {
	ctx := context.Background()
	factory, uow := newMockUoW(ctx)
	svc := NewLedgerService(factory)

	uow.Ledger.On("LockBalances", ctx, []int64{1, 2}).Return(map[int64]int64{1: 100, 2: 5}, nil)

	_, err := svc.AppendBatch(ctx, []models.Entry{
		models.Earn(1, models.CategoryLevelUpBonus, 10, "level:1"),
		models.Spend(2, models.CategoryDiscountPurchase, 6, ""),
	})

	assert.True(t, errors.Is(err, ErrInsufficientFunds))
	uow.Ledger.AssertNotCalled(t, "Insert", mock.Anything, mock.Anything)
	uow.Ledger.AssertNotCalled(t, "SetBalance", mock.Anything, mock.Anything, mock.Anything)
	uow.AssertNotCalled(t, "Commit")
}

func TestLedgerService_Append_RunningBalance(t *testing.T) {
	ctx := context.Background()
	factory, uow := newMockUoW(ctx)
	svc := NewLedgerService(factory)

	inserted := expectLedgerWrites(uow, []int64{1}, map[int64]int64{1: 10}, 1)
	uow.On("Commit").Return(nil)

	txs, err := svc.AppendBatch(ctx, []models.Entry{
		models.Spend(1, models.CategoryCasinoBet, 10, "round:a"),
		models.Earn(1, models.CategoryCasinoWin, 25, "round:a"),
	})

	require.NoError(t, err)
	require.Len(t, txs, 2)
	assert.Equal(t, int64(0), txs[0].BalanceAfter)
	assert.Equal(t, int64(25), txs[1].BalanceAfter)
	assert.Len(t, *inserted, 2)
	uow.Ledger.AssertCalled(t, "SetBalance", mock.Anything, int64(1), int64(25))
	uow.Ledger.AssertNumberOfCalls(t, "SetBalance", 1)
}

func TestLedgerService_Append_ValidatesEntry(t *testing.T) {
	tests := []struct {
		name     string
		entry    models.Entry
		expected error
	}{
		{"zero amount", models.Earn(1, models.CategoryRefund, 0, ""), ErrInvalidAmount},
		{"negative amount", models.Spend(1, models.CategoryRefund, -5, ""), ErrInvalidAmount},
		{"amount above maximum", models.Earn(1, models.CategoryRefund, models.MaxAmount+1, ""), ErrInvalidAmount},
		{"unknown category", models.Earn(1, "gift", 5, ""), ErrInvariantViolation},
		{"missing account", models.Earn(0, models.CategoryRefund, 5, ""), ErrInvalidRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			factory, uow := newMockUoW(ctx)
			svc := NewLedgerService(factory)

			_, err := svc.Append(ctx, tt.entry)

			assert.True(t, errors.Is(err, tt.expected), "got %v", err)
			uow.Ledger.AssertNotCalled(t, "LockBalances", mock.Anything, mock.Anything)
		})
	}
}

func TestLedgerService_Append_RejectsBalanceOverflow(t *testing.T) {
	ctx := context.Background()
	factory, uow := newMockUoW(ctx)
	svc := NewLedgerService(factory)

	uow.Ledger.On("LockBalances", ctx, []int64{1}).Return(map[int64]int64{1: math.MaxInt64 - 10}, nil)

	_, err := svc.Append(ctx, models.Earn(1, models.CategoryRefund, models.MaxAmount, ""))

	assert.True(t, errors.Is(err, ErrInvalidAmount), "got %v", err)
	uow.Ledger.AssertNotCalled(t, "Insert", mock.Anything, mock.Anything)
	uow.Ledger.AssertNotCalled(t, "SetBalance", mock.Anything, mock.Anything, mock.Anything)
	uow.AssertNotCalled(t, "Commit")
}

func TestLedgerService_VerifyBalance(t *testing.T) {
	ctx := context.Background()

	t.Run("matching", func(t *testing.T) {
		factory, uow := newMockUoW(ctx)
		uow.Ledger.On("LockBalances", ctx, []int64{1}).Return(map[int64]int64{1: 160}, nil)
		uow.Ledger.On("Reconcile", ctx, int64(1)).Return(int64(160), nil)

		assert.NoError(t, NewLedgerService(factory).VerifyBalance(ctx, 1))
	})

	t.Run("mismatch", func(t *testing.T) {
		factory, uow := newMockUoW(ctx)
		uow.Ledger.On("LockBalances", ctx, []int64{1}).Return(map[int64]int64{1: 160}, nil)
		uow.Ledger.On("Reconcile", ctx, int64(1)).Return(int64(150), nil)

		err := NewLedgerService(factory).VerifyBalance(ctx, 1)
		assert.True(t, errors.Is(err, ErrInvariantViolation))
	})
}

func TestLedgerService_History_ClampsLimit(t *testing.T) {
	ctx := context.Background()
	factory, uow := newMockUoW(ctx)
	uow.Ledger.On("History", ctx, int64(1), 500).Return([]*models.Transaction{}, nil)

	_, err := NewLedgerService(factory).History(ctx, 1, 10000)
	require.NoError(t, err)
	uow.Ledger.AssertExpectations(t)
}

func TestLedgerService_Archive(t *testing.T) {
	ctx := context.Background()
	factory, uow := newMockUoW(ctx)
	cutoff := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	uow.Ledger.On("ArchiveBefore", ctx, cutoff).Return(int64(12), nil)
	uow.On("Commit").Return(nil)

	moved, err := NewLedgerService(factory).Archive(ctx, cutoff)

	require.NoError(t, err)
	assert.Equal(t, int64(12), moved)
}
