package service

import (
	"context"
	"time"

	"coinledger/events"
	"coinledger/models"

	"github.com/stretchr/testify/mock"
)

// MockLedgerRepository is a mock implementation of LedgerRepository
type MockLedgerRepository struct {
	mock.Mock
}

func (m *MockLedgerRepository) LockBalances(ctx context.Context, accountIDs []int64) (map[int64]int64, error) {
	args := m.Called(ctx, accountIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[int64]int64), args.Error(1)
}

func (m *MockLedgerRepository) GetBalance(ctx context.Context, accountID int64) (int64, error) {
	args := m.Called(ctx, accountID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockLedgerRepository) SetBalance(ctx context.Context, accountID int64, balance int64) error {
	args := m.Called(ctx, accountID, balance)
	return args.Error(0)
}

func (m *MockLedgerRepository) Insert(ctx context.Context, tx *models.Transaction) error {
	args := m.Called(ctx, tx)
	return args.Error(0)
}

func (m *MockLedgerRepository) History(ctx context.Context, accountID int64, limit int) ([]*models.Transaction, error) {
	args := m.Called(ctx, accountID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Transaction), args.Error(1)
}

func (m *MockLedgerRepository) ExistsByReference(ctx context.Context, accountID int64, reference string) (bool, error) {
	args := m.Called(ctx, accountID, reference)
	return args.Bool(0), args.Error(1)
}

func (m *MockLedgerRepository) Reconcile(ctx context.Context, accountID int64) (int64, error) {
	args := m.Called(ctx, accountID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockLedgerRepository) ArchiveBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	args := m.Called(ctx, cutoff)
	return args.Get(0).(int64), args.Error(1)
}

// MockQuotaRepository is a mock implementation of QuotaRepository
type MockQuotaRepository struct {
	mock.Mock
}

func (m *MockQuotaRepository) Count(ctx context.Context, key models.QuotaKey) (int64, error) {
	args := m.Called(ctx, key)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockQuotaRepository) Increment(ctx context.Context, key models.QuotaKey) (int64, error) {
	args := m.Called(ctx, key)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockQuotaRepository) IncrementIfBelow(ctx context.Context, key models.QuotaKey, limit int64) (int64, bool, error) {
	args := m.Called(ctx, key, limit)
	return args.Get(0).(int64), args.Bool(1), args.Error(2)
}

func (m *MockQuotaRepository) Allowance(ctx context.Context, key models.AllowanceKey) (int64, error) {
	args := m.Called(ctx, key)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockQuotaRepository) ConsumeAllowance(ctx context.Context, key models.AllowanceKey) (bool, error) {
	args := m.Called(ctx, key)
	return args.Bool(0), args.Error(1)
}

func (m *MockQuotaRepository) AddAllowance(ctx context.Context, key models.AllowanceKey, n int64) (int64, error) {
	args := m.Called(ctx, key, n)
	return args.Get(0).(int64), args.Error(1)
}

// MockPlayRepository is a mock implementation of PlayRepository
type MockPlayRepository struct {
	mock.Mock
}

func (m *MockPlayRepository) Create(ctx context.Context, play *models.Play) error {
	args := m.Called(ctx, play)
	return args.Error(0)
}

func (m *MockPlayRepository) GetByID(ctx context.Context, id int64) (*models.Play, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Play), args.Error(1)
}

func (m *MockPlayRepository) GetByAccount(ctx context.Context, accountID int64, limit int) ([]*models.Play, error) {
	args := m.Called(ctx, accountID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Play), args.Error(1)
}

func (m *MockPlayRepository) LockOpenByRace(ctx context.Context, raceID int64) ([]*models.Play, error) {
	args := m.Called(ctx, raceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Play), args.Error(1)
}

func (m *MockPlayRepository) Settle(ctx context.Context, play *models.Play) (bool, error) {
	args := m.Called(ctx, play)
	return args.Bool(0), args.Error(1)
}

func (m *MockPlayRepository) MarkRefunded(ctx context.Context, playID int64, refundTransactionID int64) (bool, error) {
	args := m.Called(ctx, playID, refundTransactionID)
	return args.Bool(0), args.Error(1)
}

// MockExternalEventRepository is a mock implementation of ExternalEventRepository
type MockExternalEventRepository struct {
	mock.Mock
}

func (m *MockExternalEventRepository) InsertIfAbsent(ctx context.Context, event *models.ExternalEvent) (bool, error) {
	args := m.Called(ctx, event)
	return args.Bool(0), args.Error(1)
}

func (m *MockExternalEventRepository) GetForUpdate(ctx context.Context, source models.EventSource, externalID string) (*models.ExternalEvent, error) {
	args := m.Called(ctx, source, externalID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ExternalEvent), args.Error(1)
}

func (m *MockExternalEventRepository) MarkProcessed(ctx context.Context, event *models.ExternalEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

// MockTerminalBindingRepository is a mock implementation of TerminalBindingRepository
type MockTerminalBindingRepository struct {
	mock.Mock
}

func (m *MockTerminalBindingRepository) GetAccountForMachine(ctx context.Context, machineID string) (*int64, error) {
	args := m.Called(ctx, machineID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*int64), args.Error(1)
}

func (m *MockTerminalBindingRepository) Bind(ctx context.Context, machineID string, accountID int64) error {
	args := m.Called(ctx, machineID, accountID)
	return args.Error(0)
}

// MockSettingsRepository is a mock implementation of SettingsRepository
type MockSettingsRepository struct {
	mock.Mock
}

func (m *MockSettingsRepository) GetByBusinessID(ctx context.Context, businessID int64) (*models.BusinessSettings, error) {
	args := m.Called(ctx, businessID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.BusinessSettings), args.Error(1)
}

func (m *MockSettingsRepository) Upsert(ctx context.Context, settings *models.BusinessSettings) error {
	args := m.Called(ctx, settings)
	return args.Error(0)
}

// MockRaceRepository is a mock implementation of RaceRepository
type MockRaceRepository struct {
	mock.Mock
}

func (m *MockRaceRepository) Create(ctx context.Context, race *models.RaceEvent) error {
	args := m.Called(ctx, race)
	return args.Error(0)
}

func (m *MockRaceRepository) GetByID(ctx context.Context, id int64) (*models.RaceEvent, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.RaceEvent), args.Error(1)
}

func (m *MockRaceRepository) GetForShare(ctx context.Context, id int64) (*models.RaceEvent, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.RaceEvent), args.Error(1)
}

func (m *MockRaceRepository) GetForUpdate(ctx context.Context, id int64) (*models.RaceEvent, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.RaceEvent), args.Error(1)
}

func (m *MockRaceRepository) Close(ctx context.Context, raceID int64, state models.RaceState, winningEntrantNo *int) (bool, error) {
	args := m.Called(ctx, raceID, state, winningEntrantNo)
	return args.Bool(0), args.Error(1)
}

func (m *MockRaceRepository) SetPoolTransaction(ctx context.Context, raceID int64, transactionID int64) error {
	args := m.Called(ctx, raceID, transactionID)
	return args.Error(0)
}

// MockVoteRepository is a mock implementation of VoteRepository
type MockVoteRepository struct {
	mock.Mock
}

func (m *MockVoteRepository) Create(ctx context.Context, vote *models.Vote) error {
	args := m.Called(ctx, vote)
	return args.Error(0)
}

func (m *MockVoteRepository) CountByBusinessSince(ctx context.Context, businessID int64, since time.Time) (int64, error) {
	args := m.Called(ctx, businessID, since)
	return args.Get(0).(int64), args.Error(1)
}

// MockEventPublisher is a mock implementation of EventPublisher for testing
type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) Publish(event events.Event) {
	m.Called(event)
}

// MockUnitOfWork is a mock implementation of UnitOfWork whose repositories
// are the exported mocks
type MockUnitOfWork struct {
	mock.Mock

	Ledger   *MockLedgerRepository
	Quota    *MockQuotaRepository
	Plays    *MockPlayRepository
	Events   *MockExternalEventRepository
	Bindings *MockTerminalBindingRepository
	Settings *MockSettingsRepository
	Races    *MockRaceRepository
	Votes    *MockVoteRepository
	Bus      *MockEventPublisher
}

// NewMockUnitOfWork returns a unit of work with fresh repository mocks
func NewMockUnitOfWork() *MockUnitOfWork {
	return &MockUnitOfWork{
		Ledger:   new(MockLedgerRepository),
		Quota:    new(MockQuotaRepository),
		Plays:    new(MockPlayRepository),
		Events:   new(MockExternalEventRepository),
		Bindings: new(MockTerminalBindingRepository),
		Settings: new(MockSettingsRepository),
		Races:    new(MockRaceRepository),
		Votes:    new(MockVoteRepository),
		Bus:      new(MockEventPublisher),
	}
}

func (m *MockUnitOfWork) Begin(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockUnitOfWork) Commit() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockUnitOfWork) Rollback() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockUnitOfWork) LedgerRepository() LedgerRepository { return m.Ledger }

func (m *MockUnitOfWork) QuotaRepository() QuotaRepository { return m.Quota }

func (m *MockUnitOfWork) PlayRepository() PlayRepository { return m.Plays }

func (m *MockUnitOfWork) ExternalEventRepository() ExternalEventRepository { return m.Events }

func (m *MockUnitOfWork) TerminalBindingRepository() TerminalBindingRepository { return m.Bindings }

func (m *MockUnitOfWork) SettingsRepository() SettingsRepository { return m.Settings }

func (m *MockUnitOfWork) RaceRepository() RaceRepository { return m.Races }

func (m *MockUnitOfWork) VoteRepository() VoteRepository { return m.Votes }

func (m *MockUnitOfWork) EventBus() EventPublisher { return m.Bus }

// AssertRepositoryExpectations asserts every repository mock
func (m *MockUnitOfWork) AssertRepositoryExpectations(t mock.TestingT) {
	m.AssertExpectations(t)
	m.Ledger.AssertExpectations(t)
	m.Quota.AssertExpectations(t)
	m.Plays.AssertExpectations(t)
	m.Events.AssertExpectations(t)
	m.Bindings.AssertExpectations(t)
	m.Settings.AssertExpectations(t)
	m.Races.AssertExpectations(t)
	m.Votes.AssertExpectations(t)
}

// MockUnitOfWorkFactory is a mock implementation of UnitOfWorkFactory
type MockUnitOfWorkFactory struct {
	mock.Mock
}

func (m *MockUnitOfWorkFactory) Create() UnitOfWork {
	args := m.Called()
	return args.Get(0).(UnitOfWork)
}
