package service

import (
	"context"
	"time"

	"coinledger/events"
	"coinledger/models"
)

// LedgerRepository defines data access for transactions and cached balances
type LedgerRepository interface {
	// LockBalances creates missing balance rows and locks every row FOR UPDATE
	// in ascending account order, returning the current balances
	LockBalances(ctx context.Context, accountIDs []int64) (map[int64]int64, error)

	// GetBalance returns the cached balance, 0 for an unknown account
	GetBalance(ctx context.Context, accountID int64) (int64, error)

	// SetBalance rewrites the cached balance of a locked row
	SetBalance(ctx context.Context, accountID int64, balance int64) error

	// Insert appends a transaction, setting its ID and CreatedAt
	Insert(ctx context.Context, tx *models.Transaction) error

	// History returns the most recent transactions of an account, newest first
	History(ctx context.Context, accountID int64, limit int) ([]*models.Transaction, error)

	// ExistsByReference reports whether the account has a live or archived
	// transaction with the given reference
	ExistsByReference(ctx context.Context, accountID int64, reference string) (bool, error)

	// Reconcile recomputes checkpoint plus the net of live transactions
	Reconcile(ctx context.Context, accountID int64) (int64, error)

	// ArchiveBefore moves transactions created before cutoff into the archive
	// and folds them into checkpoints, returning the number moved
	ArchiveBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// QuotaRepository defines data access for quota counters and allowances
type QuotaRepository interface {
	// Count returns the counter value, 0 if absent
	Count(ctx context.Context, key models.QuotaKey) (int64, error)

	// Increment adds one unconditionally and returns the new count
	Increment(ctx context.Context, key models.QuotaKey) (int64, error)

	// IncrementIfBelow adds one only while the count is below limit, in a
	// single statement. ok is false when the limit was already reached.
	IncrementIfBelow(ctx context.Context, key models.QuotaKey, limit int64) (count int64, ok bool, err error)

	// Allowance returns the remaining purchased allowance
	Allowance(ctx context.Context, key models.AllowanceKey) (int64, error)

	// ConsumeAllowance takes one unit of allowance if any is left
	ConsumeAllowance(ctx context.Context, key models.AllowanceKey) (bool, error)

	// AddAllowance grants n units and returns the new remaining total
	AddAllowance(ctx context.Context, key models.AllowanceKey, n int64) (int64, error)
}

// PlayRepository defines data access for plays and bets
type PlayRepository interface {
	// Create inserts a play, setting its ID and PlacedAt
	Create(ctx context.Context, play *models.Play) error

	// GetByID retrieves a play by its ID
	GetByID(ctx context.Context, id int64) (*models.Play, error)

	// GetByAccount returns recent plays of an account
	GetByAccount(ctx context.Context, accountID int64, limit int) ([]*models.Play, error)

	// LockOpenByRace locks and returns every placed bet on a race
	LockOpenByRace(ctx context.Context, raceID int64) ([]*models.Play, error)

	// Settle moves a placed play to a settled status. Returns false if the
	// play was no longer placed.
	Settle(ctx context.Context, play *models.Play) (bool, error)

	// MarkRefunded moves a placed play to refunded. Returns false if the play
	// was no longer placed.
	MarkRefunded(ctx context.Context, playID int64, refundTransactionID int64) (bool, error)
}

// ExternalEventRepository defines data access for received terminal events
type ExternalEventRepository interface {
	// InsertIfAbsent records an event as pending unless (source, external_id)
	// already exists. Returns true if a row was created.
	InsertIfAbsent(ctx context.Context, event *models.ExternalEvent) (bool, error)

	// GetForUpdate locks and returns the event row
	GetForUpdate(ctx context.Context, source models.EventSource, externalID string) (*models.ExternalEvent, error)

	// MarkProcessed records the final status of an event
	MarkProcessed(ctx context.Context, event *models.ExternalEvent) error
}

// TerminalBindingRepository maps payment terminals to accounts
type TerminalBindingRepository interface {
	// GetAccountForMachine returns the bound account, nil if unbound
	GetAccountForMachine(ctx context.Context, machineID string) (*int64, error)

	// Bind creates or replaces a binding
	Bind(ctx context.Context, machineID string, accountID int64) error
}

// SettingsRepository defines data access for per-business game settings
type SettingsRepository interface {
	// GetByBusinessID returns the settings row, nil if the business uses defaults
	GetByBusinessID(ctx context.Context, businessID int64) (*models.BusinessSettings, error)

	// Upsert creates or replaces a settings row
	Upsert(ctx context.Context, settings *models.BusinessSettings) error
}

// RaceRepository defines data access for race events and entrants
type RaceRepository interface {
	// Create inserts a race and its entrants, setting IDs
	Create(ctx context.Context, race *models.RaceEvent) error

	// GetByID returns a race with its entrants, nil if absent
	GetByID(ctx context.Context, id int64) (*models.RaceEvent, error)

	// GetForShare returns a race with its entrants, holding a share lock on
	// the race row so it cannot close while a bet is being placed
	GetForShare(ctx context.Context, id int64) (*models.RaceEvent, error)

	// GetForUpdate returns a race with its entrants, locking the race row
	GetForUpdate(ctx context.Context, id int64) (*models.RaceEvent, error)

	// Close moves an open race to state. Returns false if the race was not open.
	Close(ctx context.Context, raceID int64, state models.RaceState, winningEntrantNo *int) (bool, error)

	// SetPoolTransaction records the ledger row that funded the prize pool
	SetPoolTransaction(ctx context.Context, raceID int64, transactionID int64) error
}

// VoteRepository defines data access for votes
type VoteRepository interface {
	// Create records a vote, setting its ID and CastAt
	Create(ctx context.Context, vote *models.Vote) error

	// CountByBusinessSince counts votes cast for a business since a time
	CountByBusinessSince(ctx context.Context, businessID int64, since time.Time) (int64, error)
}

// EventPublisher defines the interface for publishing events
type EventPublisher interface {
	Publish(event events.Event)
}

// UnitOfWork defines the interface for transactional repository operations
type UnitOfWork interface {
	// Begin starts a new transaction
	Begin(ctx context.Context) error

	// Commit commits the transaction
	Commit() error

	// Rollback rolls back the transaction
	Rollback() error

	// Repository getters
	LedgerRepository() LedgerRepository
	QuotaRepository() QuotaRepository
	PlayRepository() PlayRepository
	ExternalEventRepository() ExternalEventRepository
	TerminalBindingRepository() TerminalBindingRepository
	SettingsRepository() SettingsRepository
	RaceRepository() RaceRepository
	VoteRepository() VoteRepository
	EventBus() EventPublisher
}

// UnitOfWorkFactory defines the interface for creating UnitOfWork instances
type UnitOfWorkFactory interface {
	Create() UnitOfWork
}

// LedgerService defines the ledger operations
type LedgerService interface {
	// GetBalance returns the current balance, 0 for an unknown account
	GetBalance(ctx context.Context, accountID int64) (int64, error)

	// Append writes a single entry
	Append(ctx context.Context, entry models.Entry) (*models.Transaction, error)

	// AppendBatch writes all entries or none
	AppendBatch(ctx context.Context, entries []models.Entry) ([]*models.Transaction, error)

	// History returns recent transactions, newest first
	History(ctx context.Context, accountID int64, limit int) ([]*models.Transaction, error)

	// VerifyBalance checks the cached balance against the transaction log
	VerifyBalance(ctx context.Context, accountID int64) error

	// Archive moves transactions older than before into the archive
	Archive(ctx context.Context, before time.Time) (int64, error)
}

// QuotaService defines the rate-limit operations
type QuotaService interface {
	// CanProceed is an advisory check that a use is still available
	CanProceed(ctx context.Context, key models.QuotaKey, limit int64) (bool, error)

	// Consume records a use without checking the limit
	Consume(ctx context.Context, key models.QuotaKey) (int64, error)

	// Reserve atomically takes one use from the allowance or the counter,
	// failing with ErrQuotaExceeded when neither has room
	Reserve(ctx context.Context, key models.QuotaKey, limit int64) (*models.QuotaReservation, error)

	// Remaining returns uses left in the period including allowance
	Remaining(ctx context.Context, key models.QuotaKey, limit int64) (int64, error)

	// RemainingToday returns uses left of a daily quota
	RemainingToday(ctx context.Context, accountID, businessID int64, quotaType models.QuotaType, limit int64) (int64, error)

	// RemainingThisWeek returns uses left of a weekly platform-wide quota
	RemainingThisWeek(ctx context.Context, accountID int64, quotaType models.QuotaType, limit int64) (int64, error)

	// ConsumeInsight reserves one insight refresh and returns how many are left
	ConsumeInsight(ctx context.Context, accountID, businessID int64) (int64, error)
}

// WagerContext carries the player's choice. It never carries a result.
type WagerContext struct {
	RaceID    int64
	EntrantNo int
}

// WagerRequest is a request to play one round
type WagerRequest struct {
	AccountID  int64
	BusinessID int64
	GameType   models.GameType
	Stake      int64
	Context    WagerContext
}

// WageringService places wagers
type WageringService interface {
	PlaceWager(ctx context.Context, req WagerRequest) (*models.WagerResult, error)
}

// CreateRaceRequest describes a new race
type CreateRaceRequest struct {
	BusinessID     int64
	Name           string
	Weather        string
	TimeOfDay      string
	StartsAt       *time.Time
	PrizePool      int64
	HouseAccountID *int64
	Entrants       []RaceEntrantSpec
}

// RaceEntrantSpec is an unpriced runner
type RaceEntrantSpec struct {
	EntrantNo        int
	Name             string
	PerformanceScore float64
	RecentForm       float64
	PreferredWeather string
	PreferredTime    string
}

// RaceService manages race lifecycles
type RaceService interface {
	// CreateRace prices the field and opens the race for bets
	CreateRace(ctx context.Context, req CreateRaceRequest) (*models.RaceEvent, error)

	// GetRace returns a race with its entrants
	GetRace(ctx context.Context, raceID int64) (*models.RaceEvent, error)

	// SettleRace runs the race and pays the winners, exactly once
	SettleRace(ctx context.Context, raceID int64) (*models.SettleResult, error)

	// CancelRace refunds every open bet, exactly once
	CancelRace(ctx context.Context, raceID int64) (*models.CancelResult, error)
}

// IngestRequest is one external event as received
type IngestRequest struct {
	Source     models.EventSource
	ExternalID string
	Payload    []byte
	Signature  string
}

// IngestService applies terminal events to the ledger exactly once
type IngestService interface {
	Ingest(ctx context.Context, req IngestRequest) (*models.IngestResult, error)

	// BindTerminal maps a terminal machine to the account it credits
	BindTerminal(ctx context.Context, machineID string, accountID int64) error
}

// QueueMessage is one message fetched from a queue backend
type QueueMessage interface {
	// ID is the message's dedup id, empty when the backend has none
	ID() string
	Data() []byte
	Signature() string
	Ack(ctx context.Context) error
	Nak(ctx context.Context) error
}

// MessageSource is a pull-based queue backend
type MessageSource interface {
	// Ping checks connectivity
	Ping(ctx context.Context) error

	// Fetch returns up to max messages, waiting until ctx is done.
	// An expired ctx with nothing fetched yields no messages and no error.
	Fetch(ctx context.Context, max int) ([]QueueMessage, error)
}

// PollMetrics receives queue poll counters
type PollMetrics interface {
	RecordQueuePoll(received, processed int)
	RecordQueueAlert()
}

// QueuePoller drains the terminal queue
type QueuePoller interface {
	PollOnce(ctx context.Context) (*models.PollResult, error)
}

// PurchaseService handles non-wagered spends and bonuses
type PurchaseService interface {
	BuySpinPack(ctx context.Context, accountID, businessID int64) (*models.PurchaseResult, error)
	BuyVotePack(ctx context.Context, accountID int64, packs int64) (*models.PurchaseResult, error)
	BuyDiscount(ctx context.Context, accountID, businessID int64, code string, price int64) (*models.PurchaseResult, error)
	GrantLevelUpBonus(ctx context.Context, accountID int64, level int, amount int64) (*models.Transaction, error)
}

// VoteService casts votes against the weekly free-vote quota
type VoteService interface {
	CastVote(ctx context.Context, accountID, businessID int64) (*models.VoteResult, error)
}

// StatusService builds account read views
type StatusService interface {
	GetStatus(ctx context.Context, accountID, businessID int64) (*models.AccountStatus, error)
}
