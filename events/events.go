package events

import (
	"context"
	"sync"

	"coinledger/models"

	log "github.com/sirupsen/logrus"
)

// EventType represents different types of events in the system
type EventType string

const (
	EventTypeBalanceChange          EventType = "balance_change"
	EventTypePlaySettled            EventType = "play_settled"
	EventTypeRaceClosed             EventType = "race_closed"
	EventTypeExternalEventProcessed EventType = "external_event_processed"
)

// Event is the base interface for all events
type Event interface {
	Type() EventType
}

// BalanceChangeEvent is published for every ledger append
type BalanceChangeEvent struct {
	AccountID     int64
	TransactionID int64
	OldBalance    int64
	NewBalance    int64
	Category      models.Category
	Delta         int64
}

func (e BalanceChangeEvent) Type() EventType {
	return EventTypeBalanceChange
}

// PlaySettledEvent is published when a wager reaches a final outcome
type PlaySettledEvent struct {
	PlayID     int64
	AccountID  int64
	BusinessID int64
	GameType   models.GameType
	Stake      int64
	Payout     int64
	Status     models.PlayStatus
	IsJackpot  bool
}

func (e PlaySettledEvent) Type() EventType {
	return EventTypePlaySettled
}

// RaceClosedEvent is published when a race is settled or cancelled
type RaceClosedEvent struct {
	RaceID     int64
	BusinessID int64
	State      models.RaceState
	Bets       int
	TotalPaid  int64
}

func (e RaceClosedEvent) Type() EventType {
	return EventTypeRaceClosed
}

// ExternalEventProcessedEvent is published when a terminal event is applied or rejected
type ExternalEventProcessedEvent struct {
	EventID    int64
	Source     models.EventSource
	ExternalID string
	Status     models.IngestStatus
	Reason     string
}

func (e ExternalEventProcessedEvent) Type() EventType {
	return EventTypeExternalEventProcessed
}

// Handler is a function that handles events
type Handler func(ctx context.Context, event Event)

// Bus manages event subscriptions and dispatching
type Bus struct {
	mu       sync.RWMutex
	handlers map[EventType][]Handler
}

// NewBus creates a new event bus
func NewBus() *Bus {
	return &Bus{
		handlers: make(map[EventType][]Handler),
	}
}

// Subscribe adds a handler for a specific event type
func (b *Bus) Subscribe(eventType EventType, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.handlers[eventType] = append(b.handlers[eventType], handler)

	log.WithFields(log.Fields{
		"eventType":    eventType,
		"handlerCount": len(b.handlers[eventType]),
	}).Debug("Subscribed handler to event type")
}

// Emit publishes an event to all registered handlers. Handlers run on their
// own goroutines and a panicking handler is logged, not propagated.
func (b *Bus) Emit(ctx context.Context, event Event) {
	b.mu.RLock()
	handlers := make([]Handler, len(b.handlers[event.Type()]))
	copy(handlers, b.handlers[event.Type()])
	b.mu.RUnlock()

	for i, handler := range handlers {
		go func(h Handler, handlerIndex int) {
			defer func() {
				if r := recover(); r != nil {
					log.WithFields(log.Fields{
						"eventType":    event.Type(),
						"handlerIndex": handlerIndex,
						"panic":        r,
					}).Error("Event handler panicked")
				}
			}()
			h(ctx, event)
		}(handler, i)
	}
}

// TransactionalBus holds events raised inside a unit of work until the
// database transaction commits.
type TransactionalBus struct {
	real    *Bus
	pending []Event
}

func NewTransactionalBus(real *Bus) *TransactionalBus {
	return &TransactionalBus{real: real}
}

func (b *TransactionalBus) Publish(e Event) {
	b.pending = append(b.pending, e)
}

// Flush emits pending events. Called after a successful commit.
func (b *TransactionalBus) Flush(ctx context.Context) error {
	log.WithField("pendingEventCount", len(b.pending)).Debug("Flushing transactional bus")

	// Handlers outlive the request, so they get a fresh context
	eventCtx := context.WithoutCancel(ctx)
	for _, ev := range b.pending {
		b.real.Emit(eventCtx, ev)
	}
	b.pending = nil
	return nil
}

// Discard drops pending events after a rollback
func (b *TransactionalBus) Discard() {
	b.pending = nil
}

// Pending returns the number of events waiting for Flush
func (b *TransactionalBus) Pending() int {
	return len(b.pending)
}
