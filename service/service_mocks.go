package service

import (
	"context"
	"time"

	"coinledger/models"

	"github.com/stretchr/testify/mock"
)

// MockLedgerService is a mock implementation of LedgerService
type MockLedgerService struct {
	mock.Mock
}

func (m *MockLedgerService) GetBalance(ctx context.Context, accountID int64) (int64, error) {
	args := m.Called(ctx, accountID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockLedgerService) Append(ctx context.Context, entry models.Entry) (*models.Transaction, error) {
	args := m.Called(ctx, entry)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Transaction), args.Error(1)
}

func (m *MockLedgerService) AppendBatch(ctx context.Context, entries []models.Entry) ([]*models.Transaction, error) {
	args := m.Called(ctx, entries)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Transaction), args.Error(1)
}

func (m *MockLedgerService) History(ctx context.Context, accountID int64, limit int) ([]*models.Transaction, error) {
	args := m.Called(ctx, accountID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Transaction), args.Error(1)
}

func (m *MockLedgerService) VerifyBalance(ctx context.Context, accountID int64) error {
	args := m.Called(ctx, accountID)
	return args.Error(0)
}

func (m *MockLedgerService) Archive(ctx context.Context, before time.Time) (int64, error) {
	args := m.Called(ctx, before)
	return args.Get(0).(int64), args.Error(1)
}

// MockQuotaService is a mock implementation of QuotaService
type MockQuotaService struct {
	mock.Mock
}

func (m *MockQuotaService) CanProceed(ctx context.Context, key models.QuotaKey, limit int64) (bool, error) {
	args := m.Called(ctx, key, limit)
	return args.Bool(0), args.Error(1)
}

func (m *MockQuotaService) Consume(ctx context.Context, key models.QuotaKey) (int64, error) {
	args := m.Called(ctx, key)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockQuotaService) Reserve(ctx context.Context, key models.QuotaKey, limit int64) (*models.QuotaReservation, error) {
	args := m.Called(ctx, key, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.QuotaReservation), args.Error(1)
}

func (m *MockQuotaService) Remaining(ctx context.Context, key models.QuotaKey, limit int64) (int64, error) {
	args := m.Called(ctx, key, limit)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockQuotaService) RemainingToday(ctx context.Context, accountID, businessID int64, quotaType models.QuotaType, limit int64) (int64, error) {
	args := m.Called(ctx, accountID, businessID, quotaType, limit)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockQuotaService) RemainingThisWeek(ctx context.Context, accountID int64, quotaType models.QuotaType, limit int64) (int64, error) {
	args := m.Called(ctx, accountID, quotaType, limit)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockQuotaService) ConsumeInsight(ctx context.Context, accountID, businessID int64) (int64, error) {
	args := m.Called(ctx, accountID, businessID)
	return args.Get(0).(int64), args.Error(1)
}

// MockWageringService is a mock implementation of WageringService
type MockWageringService struct {
	mock.Mock
}

func (m *MockWageringService) PlaceWager(ctx context.Context, req WagerRequest) (*models.WagerResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.WagerResult), args.Error(1)
}

// MockRaceService is a mock implementation of RaceService
type MockRaceService struct {
	mock.Mock
}

func (m *MockRaceService) CreateRace(ctx context.Context, req CreateRaceRequest) (*models.RaceEvent, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.RaceEvent), args.Error(1)
}

func (m *MockRaceService) GetRace(ctx context.Context, raceID int64) (*models.RaceEvent, error) {
	args := m.Called(ctx, raceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.RaceEvent), args.Error(1)
}

func (m *MockRaceService) SettleRace(ctx context.Context, raceID int64) (*models.SettleResult, error) {
	args := m.Called(ctx, raceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.SettleResult), args.Error(1)
}

func (m *MockRaceService) CancelRace(ctx context.Context, raceID int64) (*models.CancelResult, error) {
	args := m.Called(ctx, raceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.CancelResult), args.Error(1)
}

// MockIngestService is a mock implementation of IngestService
type MockIngestService struct {
	mock.Mock
}

func (m *MockIngestService) Ingest(ctx context.Context, req IngestRequest) (*models.IngestResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.IngestResult), args.Error(1)
}

func (m *MockIngestService) BindTerminal(ctx context.Context, machineID string, accountID int64) error {
	args := m.Called(ctx, machineID, accountID)
	return args.Error(0)
}

// MockQueuePoller is a mock implementation of QueuePoller
type MockQueuePoller struct {
	mock.Mock
}

func (m *MockQueuePoller) PollOnce(ctx context.Context) (*models.PollResult, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.PollResult), args.Error(1)
}

// MockPurchaseService is a mock implementation of PurchaseService
type MockPurchaseService struct {
	mock.Mock
}

func (m *MockPurchaseService) BuySpinPack(ctx context.Context, accountID, businessID int64) (*models.PurchaseResult, error) {
	args := m.Called(ctx, accountID, businessID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.PurchaseResult), args.Error(1)
}

func (m *MockPurchaseService) BuyVotePack(ctx context.Context, accountID int64, packs int64) (*models.PurchaseResult, error) {
	args := m.Called(ctx, accountID, packs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.PurchaseResult), args.Error(1)
}

func (m *MockPurchaseService) BuyDiscount(ctx context.Context, accountID, businessID int64, code string, price int64) (*models.PurchaseResult, error) {
	args := m.Called(ctx, accountID, businessID, code, price)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.PurchaseResult), args.Error(1)
}

func (m *MockPurchaseService) GrantLevelUpBonus(ctx context.Context, accountID int64, level int, amount int64) (*models.Transaction, error) {
	args := m.Called(ctx, accountID, level, amount)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Transaction), args.Error(1)
}

// MockVoteService is a mock implementation of VoteService
type MockVoteService struct {
	mock.Mock
}

func (m *MockVoteService) CastVote(ctx context.Context, accountID, businessID int64) (*models.VoteResult, error) {
	args := m.Called(ctx, accountID, businessID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.VoteResult), args.Error(1)
}

// MockStatusService is a mock implementation of StatusService
type MockStatusService struct {
	mock.Mock
}

func (m *MockStatusService) GetStatus(ctx context.Context, accountID, businessID int64) (*models.AccountStatus, error) {
	args := m.Called(ctx, accountID, businessID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.AccountStatus), args.Error(1)
}

// MockMessageSource is a mock implementation of MessageSource
type MockMessageSource struct {
	mock.Mock
}

func (m *MockMessageSource) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockMessageSource) Fetch(ctx context.Context, max int) ([]QueueMessage, error) {
	args := m.Called(ctx, max)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]QueueMessage), args.Error(1)
}

// MockQueueMessage is a mock implementation of QueueMessage
type MockQueueMessage struct {
	mock.Mock
	MessageID string
	Body      []byte
	Sig       string
}

func (m *MockQueueMessage) ID() string        { return m.MessageID }
func (m *MockQueueMessage) Data() []byte      { return m.Body }
func (m *MockQueueMessage) Signature() string { return m.Sig }

func (m *MockQueueMessage) Ack(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockQueueMessage) Nak(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// MockPollMetrics is a mock implementation of PollMetrics
type MockPollMetrics struct {
	mock.Mock
}

func (m *MockPollMetrics) RecordQueuePoll(received, processed int) {
	m.Called(received, processed)
}

func (m *MockPollMetrics) RecordQueueAlert() {
	m.Called()
}
