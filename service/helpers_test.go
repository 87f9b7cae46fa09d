package service

import (
	"context"
	"testing"
	"time"

	"coinledger/config"
	"coinledger/models"

	"github.com/stretchr/testify/mock"
)

var fixedNow = time.Date(2024, 3, 9, 15, 0, 0, 0, time.UTC)

func testPeriods() Periods {
	return Periods{ResetHour: 0, Now: func() time.Time { return fixedNow }}
}

// newMockUoW wires a factory returning a unit of work that begins cleanly
// and accepts any published event
func newMockUoW(ctx context.Context) (*MockUnitOfWorkFactory, *MockUnitOfWork) {
	uow := NewMockUnitOfWork()
	factory := new(MockUnitOfWorkFactory)
	factory.On("Create").Return(uow)
	uow.On("Begin", ctx).Return(nil)
	uow.On("Rollback").Return(nil).Maybe()
	uow.Bus.On("Publish", mock.Anything).Return().Maybe()
	return factory, uow
}

// expectLedgerWrites lets appendEntries run against balances. Inserted
// transactions get sequential ids starting at firstID.
func expectLedgerWrites(uow *MockUnitOfWork, accountIDs []int64, balances map[int64]int64, firstID int64) *[]*models.Transaction {
	inserted := &[]*models.Transaction{}
	nextID := firstID
	uow.Ledger.On("LockBalances", mock.Anything, accountIDs).Return(balances, nil)
	uow.Ledger.On("Insert", mock.Anything, mock.AnythingOfType("*models.Transaction")).Return(nil).Run(func(args mock.Arguments) {
		tx := args.Get(1).(*models.Transaction)
		tx.ID = nextID
		nextID++
		*inserted = append(*inserted, tx)
	})
	uow.Ledger.On("SetBalance", mock.Anything, mock.AnythingOfType("int64"), mock.AnythingOfType("int64")).Return(nil)
	return inserted
}

func noBusinessSettings(uow *MockUnitOfWork, businessID int64) {
	uow.Settings.On("GetByBusinessID", mock.Anything, businessID).Return(nil, nil)
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return config.NewTestConfig()
}

func int64Ptr(v int64) *int64 { return &v }

func intPtr(v int) *int { return &v }
