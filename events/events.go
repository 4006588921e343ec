package events

import (
	"context"
	"sync"

	"settler/models"

	log "github.com/sirupsen/logrus"
)

// EventType represents different types of events in the system
type EventType string

const (
	EventTypeEventConcluded    EventType = "event_concluded"
	EventTypeWagerSettled      EventType = "wager_settled"
	EventTypeComboWagerSettled EventType = "combo_wager_settled"
	EventTypeBalanceChange     EventType = "balance_change"
)

// Event is the base interface for all events
type Event interface {
	Type() EventType
}

// EventConcludedEvent is emitted once when an event's result is recorded
type EventConcludedEvent struct {
	EventID int64            `json:"eventId"`
	Result  models.Side      `json:"result"`
	Mode    models.EventMode `json:"mode"`
}

func (e EventConcludedEvent) Type() EventType {
	return EventTypeEventConcluded
}

// WagerSettledEvent is emitted when a single wager transitions out of pending
type WagerSettledEvent struct {
	WagerID    int64               `json:"wagerId"`
	EventID    int64               `json:"eventId"`
	UserID     int64               `json:"userId"`
	Outcome    models.WagerOutcome `json:"outcome"`
	PrimaryWon int64               `json:"primaryWon"`
	PremiumWon int64               `json:"premiumWon"`
}

func (e WagerSettledEvent) Type() EventType {
	return EventTypeWagerSettled
}

// ComboWagerSettledEvent is emitted when a combo wager transitions out of pending
type ComboWagerSettledEvent struct {
	ComboWagerID int64               `json:"comboWagerId"`
	UserID       int64               `json:"userId"`
	Outcome      models.WagerOutcome `json:"outcome"`
	PrimaryWon   int64               `json:"primaryWon"`
	PremiumWon   int64               `json:"premiumWon"`
}

func (e ComboWagerSettledEvent) Type() EventType {
	return EventTypeComboWagerSettled
}

// BalanceChangeEvent represents a credit applied to an account
type BalanceChangeEvent struct {
	UserID          int64                  `json:"userId"`
	OldPrimary      int64                  `json:"oldPrimary"`
	NewPrimary      int64                  `json:"newPrimary"`
	OldPremium      int64                  `json:"oldPremium"`
	NewPremium      int64                  `json:"newPremium"`
	TransactionType models.TransactionType `json:"transactionType"`
}

func (e BalanceChangeEvent) Type() EventType {
	return EventTypeBalanceChange
}

// Handler is a function that handles events
type Handler func(ctx context.Context, event Event)

// Bus manages event subscriptions and dispatching
type Bus struct {
	mu       sync.RWMutex
	handlers map[EventType][]Handler
	inflight sync.WaitGroup
	closed   bool
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

// SubscribeAll adds a handler for every known event type
func (b *Bus) SubscribeAll(handler Handler) {
	for _, eventType := range []EventType{
		EventTypeEventConcluded,
		EventTypeWagerSettled,
		EventTypeComboWagerSettled,
		EventTypeBalanceChange,
	} {
		b.Subscribe(eventType, handler)
	}
}

// Emit publishes an event to all registered handlers
func (b *Bus) Emit(ctx context.Context, event Event) {
	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		log.WithField("eventType", event.Type()).Warn("Event bus closed, dropping event")
		return
	}
	handlers := make([]Handler, len(b.handlers[event.Type()]))
	copy(handlers, b.handlers[event.Type()])
	// Added under the read lock so Close cannot start waiting before these handlers are counted
	b.inflight.Add(len(handlers))
	b.mu.RUnlock()

	log.WithFields(log.Fields{
		"eventType":    event.Type(),
		"handlerCount": len(handlers),
	}).Debug("Emitting event to handlers")

	// Handlers run asynchronously so settlement never waits on subscribers
	for i, handler := range handlers {
		go func(h Handler, handlerIndex int) {
			defer b.inflight.Done()
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

// Close stops accepting events and waits for running handlers to return.
// Returns ctx.Err() if they are still running when ctx is done.
func (b *Bus) Close(ctx context.Context) error {
	b.mu.Lock()
	b.closed = true
	b.mu.Unlock()

	done := make(chan struct{})
	go func() {
		b.inflight.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// TransactionalBus holds events raised inside a unit of work until it commits.
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

// Pending returns the number of events waiting for a commit
func (b *TransactionalBus) Pending() int {
	return len(b.pending)
}

// Flush is called after a successful commit
func (b *TransactionalBus) Flush(ctx context.Context) {
	log.WithField("pendingEventCount", len(b.pending)).Debug("Flushing pending events")

	// Detached from the transaction's context so delivery outlives the request
	eventCtx := context.WithoutCancel(ctx)

	if b.real != nil {
		for _, ev := range b.pending {
			b.real.Emit(eventCtx, ev)
		}
	}
	b.pending = nil
}

// Discard is called after a rollback
func (b *TransactionalBus) Discard() {
	b.pending = nil
}
