package service

import (
	"context"
	"time"

	"settler/events"
	"settler/models"
)

// EventRepository defines the interface for event data access
type EventRepository interface {
	// Create inserts a new event
	Create(ctx context.Context, event *models.Event) error

	// GetByID retrieves an event by its ID, returning nil if it does not exist
	GetByID(ctx context.Context, id int64) (*models.Event, error)

	// ClaimConclusion moves a scheduled event to concluded with the given result.
	// Returns false if the event was not scheduled.
	ClaimConclusion(ctx context.Context, id int64, result models.Side) (bool, error)

	// ListDue returns simulated events still scheduled at or before now
	ListDue(ctx context.Context, now time.Time) ([]*models.Event, error)

	// ListConcludedWithPendingWagers returns concluded events that still have pending single
	// wagers or a pending combo whose legs are all concluded
	ListConcludedWithPendingWagers(ctx context.Context) ([]*models.Event, error)
}

// WagerRepository defines the interface for single wager data access
type WagerRepository interface {
	// Create inserts a new pending wager
	Create(ctx context.Context, wager *models.Wager) error

	// GetByID retrieves a wager by its ID, returning nil if it does not exist
	GetByID(ctx context.Context, id int64) (*models.Wager, error)

	// ListPendingByEvent returns every pending wager on an event
	ListPendingByEvent(ctx context.Context, eventID int64) ([]*models.Wager, error)

	// MarkSettled transitions a pending wager to its final outcome.
	// Returns ErrConflict if the wager is no longer pending.
	MarkSettled(ctx context.Context, id int64, outcome models.WagerOutcome, primaryWon, premiumWon int64) error
}

// ComboWagerRepository defines the interface for combo wager data access
type ComboWagerRepository interface {
	// CreateWithLegs inserts a pending combo wager and its legs
	CreateWithLegs(ctx context.Context, combo *models.ComboWager, legs []*models.ComboLeg) error

	// GetByID retrieves a combo wager by its ID, returning nil if it does not exist
	GetByID(ctx context.Context, id int64) (*models.ComboWager, error)

	// ListPendingIDsByEvent returns the distinct pending combos with a leg on the event
	ListPendingIDsByEvent(ctx context.Context, eventID int64) ([]int64, error)

	// GetPendingForUpdate locks and returns the combo if it is still pending, nil otherwise
	GetPendingForUpdate(ctx context.Context, id int64) (*models.ComboWager, error)

	// ListLegsWithEvents returns the combo's legs joined with their events' current state
	ListLegsWithEvents(ctx context.Context, comboID int64) ([]*models.ComboLegWithEvent, error)

	// MarkSettled transitions a pending combo to its final outcome.
	// Returns ErrConflict if the combo is no longer pending.
	MarkSettled(ctx context.Context, id int64, outcome models.WagerOutcome, primaryWon, premiumWon int64) error
}

// AccountRepository defines the interface for account balance access
type AccountRepository interface {
	// Create inserts an account with the given opening balances
	Create(ctx context.Context, userID int64, primaryBalance, premiumBalance int64) (*models.AccountBalance, error)

	// GetByUserID retrieves an account, returning nil if it does not exist
	GetByUserID(ctx context.Context, userID int64) (*models.AccountBalance, error)

	// Credit adds to both balances and increments the wins counter, returning the updated account.
	// Returns ErrNotFound if the account does not exist.
	Credit(ctx context.Context, userID int64, primary, premium int64) (*models.AccountBalance, error)
}

// BalanceHistoryRepository defines the interface for balance history tracking
type BalanceHistoryRepository interface {
	// Record creates a new balance history entry
	Record(ctx context.Context, history *models.BalanceHistory) error

	// GetByRelated returns the entry written for a wager, or nil
	GetByRelated(ctx context.Context, relatedType models.RelatedType, relatedID int64) (*models.BalanceHistory, error)

	// GetByUser returns the most recent entries for a user
	GetByUser(ctx context.Context, userID int64, limit int) ([]*models.BalanceHistory, error)
}

// EventPublisher defines the interface for publishing events
type EventPublisher interface {
	Publish(event events.Event)
}

// UnitOfWork defines the interface for transactional repository operations
type UnitOfWork interface {
	Begin(ctx context.Context) error
	Commit() error
	Rollback() error

	EventRepository() EventRepository
	WagerRepository() WagerRepository
	ComboWagerRepository() ComboWagerRepository
	AccountRepository() AccountRepository
	BalanceHistoryRepository() BalanceHistoryRepository
	EventBus() EventPublisher
}

// UnitOfWorkFactory defines the interface for creating UnitOfWork instances
type UnitOfWorkFactory interface {
	Create() UnitOfWork
}

// Ledger reads balances and applies settlements atomically
type Ledger interface {
	// GetBalances returns a user's balances and wins counter
	GetBalances(ctx context.Context, userID int64) (*models.AccountBalance, error)

	// ApplySettlement transitions a wager and credits its owner in one transaction
	ApplySettlement(ctx context.Context, settlement models.Settlement) error
}

// OutcomeSimulator draws a result for a simulated event from its odds
type OutcomeSimulator interface {
	Simulate(event *models.Event) (models.Side, error)
}

// WagerResolver settles the pending single wagers of a concluded event
type WagerResolver interface {
	ResolveEvent(ctx context.Context, event *models.Event) (*models.WagerResolution, error)
}

// ComboResolver settles one combo wager when all of its legs are decided
type ComboResolver interface {
	SettleCombo(ctx context.Context, comboID int64) (models.ComboOutcome, error)
}

// SettlementService concludes events and cascades settlement to their wagers
type SettlementService interface {
	// SettleEvent records the result of a scheduled event and settles everything depending on it
	SettleEvent(ctx context.Context, eventID int64, result models.Side) (*models.EventSettlement, error)

	// ResumeEvent settles wagers left pending on an already concluded event
	ResumeEvent(ctx context.Context, eventID int64) (*models.EventSettlement, error)
}

// DueEventScanner concludes every simulated event whose scheduled time has passed
type DueEventScanner interface {
	ProcessDueEvents(ctx context.Context, now time.Time) (*models.ScanReport, error)
}
