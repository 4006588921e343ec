package service

import (
	"context"
	"sync"
	"time"

	"settler/events"
	"settler/models"

	"github.com/stretchr/testify/mock"
)

// MockEventRepository is a mock implementation of EventRepository
type MockEventRepository struct {
	mock.Mock
}

func (m *MockEventRepository) Create(ctx context.Context, event *models.Event) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *MockEventRepository) GetByID(ctx context.Context, id int64) (*models.Event, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Event), args.Error(1)
}

func (m *MockEventRepository) ClaimConclusion(ctx context.Context, id int64, result models.Side) (bool, error) {
	args := m.Called(ctx, id, result)
	return args.Bool(0), args.Error(1)
}

func (m *MockEventRepository) ListDue(ctx context.Context, now time.Time) ([]*models.Event, error) {
	args := m.Called(ctx, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Event), args.Error(1)
}

func (m *MockEventRepository) ListConcludedWithPendingWagers(ctx context.Context) ([]*models.Event, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Event), args.Error(1)
}

// MockWagerRepository is a mock implementation of WagerRepository
type MockWagerRepository struct {
	mock.Mock
}

func (m *MockWagerRepository) Create(ctx context.Context, wager *models.Wager) error {
	args := m.Called(ctx, wager)
	return args.Error(0)
}

func (m *MockWagerRepository) GetByID(ctx context.Context, id int64) (*models.Wager, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Wager), args.Error(1)
}

func (m *MockWagerRepository) ListPendingByEvent(ctx context.Context, eventID int64) ([]*models.Wager, error) {
	args := m.Called(ctx, eventID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Wager), args.Error(1)
}

func (m *MockWagerRepository) MarkSettled(ctx context.Context, id int64, outcome models.WagerOutcome, primaryWon, premiumWon int64) error {
	args := m.Called(ctx, id, outcome, primaryWon, premiumWon)
	return args.Error(0)
}

// MockComboWagerRepository is a mock implementation of ComboWagerRepository
type MockComboWagerRepository struct {
	mock.Mock
}

func (m *MockComboWagerRepository) CreateWithLegs(ctx context.Context, combo *models.ComboWager, legs []*models.ComboLeg) error {
	args := m.Called(ctx, combo, legs)
	return args.Error(0)
}

func (m *MockComboWagerRepository) GetByID(ctx context.Context, id int64) (*models.ComboWager, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ComboWager), args.Error(1)
}

func (m *MockComboWagerRepository) ListPendingIDsByEvent(ctx context.Context, eventID int64) ([]int64, error) {
	args := m.Called(ctx, eventID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]int64), args.Error(1)
}

func (m *MockComboWagerRepository) GetPendingForUpdate(ctx context.Context, id int64) (*models.ComboWager, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ComboWager), args.Error(1)
}

func (m *MockComboWagerRepository) ListLegsWithEvents(ctx context.Context, comboID int64) ([]*models.ComboLegWithEvent, error) {
	args := m.Called(ctx, comboID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.ComboLegWithEvent), args.Error(1)
}

func (m *MockComboWagerRepository) MarkSettled(ctx context.Context, id int64, outcome models.WagerOutcome, primaryWon, premiumWon int64) error {
	args := m.Called(ctx, id, outcome, primaryWon, premiumWon)
	return args.Error(0)
}

// MockAccountRepository is a mock implementation of AccountRepository
type MockAccountRepository struct {
	mock.Mock
}

func (m *MockAccountRepository) Create(ctx context.Context, userID int64, primaryBalance, premiumBalance int64) (*models.AccountBalance, error) {
	args := m.Called(ctx, userID, primaryBalance, premiumBalance)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.AccountBalance), args.Error(1)
}

func (m *MockAccountRepository) GetByUserID(ctx context.Context, userID int64) (*models.AccountBalance, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.AccountBalance), args.Error(1)
}

func (m *MockAccountRepository) Credit(ctx context.Context, userID int64, primary, premium int64) (*models.AccountBalance, error) {
	args := m.Called(ctx, userID, primary, premium)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.AccountBalance), args.Error(1)
}

// MockBalanceHistoryRepository is a mock implementation of BalanceHistoryRepository
type MockBalanceHistoryRepository struct {
	mock.Mock
}

func (m *MockBalanceHistoryRepository) Record(ctx context.Context, history *models.BalanceHistory) error {
	args := m.Called(ctx, history)
	return args.Error(0)
}

func (m *MockBalanceHistoryRepository) GetByRelated(ctx context.Context, relatedType models.RelatedType, relatedID int64) (*models.BalanceHistory, error) {
	args := m.Called(ctx, relatedType, relatedID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.BalanceHistory), args.Error(1)
}

func (m *MockBalanceHistoryRepository) GetByUser(ctx context.Context, userID int64, limit int) ([]*models.BalanceHistory, error) {
	args := m.Called(ctx, userID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.BalanceHistory), args.Error(1)
}

// RecordingEventPublisher collects published events for assertions
type RecordingEventPublisher struct {
	mu     sync.Mutex
	Events []events.Event
}

func (p *RecordingEventPublisher) Publish(event events.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Events = append(p.Events, event)
}

// OfType returns the recorded events of one type
func (p *RecordingEventPublisher) OfType(eventType events.EventType) []events.Event {
	p.mu.Lock()
	defer p.mu.Unlock()

	var matched []events.Event
	for _, event := range p.Events {
		if event.Type() == eventType {
			matched = append(matched, event)
		}
	}
	return matched
}

// MockUnitOfWork is a mock implementation of UnitOfWork. Transaction control
// goes through mock expectations; repositories are returned as configured.
type MockUnitOfWork struct {
	mock.Mock
	eventRepo          EventRepository
	wagerRepo          WagerRepository
	comboWagerRepo     ComboWagerRepository
	accountRepo        AccountRepository
	balanceHistoryRepo BalanceHistoryRepository
	eventBus           *RecordingEventPublisher
}

// SetRepositories configures the repositories handed out by the unit of work
func (m *MockUnitOfWork) SetRepositories(
	eventRepo EventRepository,
	wagerRepo WagerRepository,
	comboWagerRepo ComboWagerRepository,
	accountRepo AccountRepository,
	balanceHistoryRepo BalanceHistoryRepository,
) {
	m.eventRepo = eventRepo
	m.wagerRepo = wagerRepo
	m.comboWagerRepo = comboWagerRepo
	m.accountRepo = accountRepo
	m.balanceHistoryRepo = balanceHistoryRepo
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

func (m *MockUnitOfWork) EventRepository() EventRepository {
	return m.eventRepo
}

func (m *MockUnitOfWork) WagerRepository() WagerRepository {
	return m.wagerRepo
}

func (m *MockUnitOfWork) ComboWagerRepository() ComboWagerRepository {
	return m.comboWagerRepo
}

func (m *MockUnitOfWork) AccountRepository() AccountRepository {
	return m.accountRepo
}

func (m *MockUnitOfWork) BalanceHistoryRepository() BalanceHistoryRepository {
	return m.balanceHistoryRepo
}

func (m *MockUnitOfWork) EventBus() EventPublisher {
	if m.eventBus == nil {
		m.eventBus = &RecordingEventPublisher{}
	}
	return m.eventBus
}

// Published returns every event published through this unit of work
func (m *MockUnitOfWork) Published() *RecordingEventPublisher {
	m.EventBus()
	return m.eventBus
}

// MockUnitOfWorkFactory is a mock implementation of UnitOfWorkFactory
type MockUnitOfWorkFactory struct {
	mock.Mock
}

func (m *MockUnitOfWorkFactory) Create() UnitOfWork {
	args := m.Called()
	return args.Get(0).(UnitOfWork)
}

// MockLedger is a mock implementation of Ledger
type MockLedger struct {
	mock.Mock
}

func (m *MockLedger) GetBalances(ctx context.Context, userID int64) (*models.AccountBalance, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.AccountBalance), args.Error(1)
}

func (m *MockLedger) ApplySettlement(ctx context.Context, settlement models.Settlement) error {
	args := m.Called(ctx, settlement)
	return args.Error(0)
}

// MockOutcomeSimulator is a mock implementation of OutcomeSimulator
type MockOutcomeSimulator struct {
	mock.Mock
}

func (m *MockOutcomeSimulator) Simulate(event *models.Event) (models.Side, error) {
	args := m.Called(event)
	return args.Get(0).(models.Side), args.Error(1)
}

// MockWagerResolver is a mock implementation of WagerResolver
type MockWagerResolver struct {
	mock.Mock
}

func (m *MockWagerResolver) ResolveEvent(ctx context.Context, event *models.Event) (*models.WagerResolution, error) {
	args := m.Called(ctx, event)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.WagerResolution), args.Error(1)
}

// MockComboResolver is a mock implementation of ComboResolver
type MockComboResolver struct {
	mock.Mock
}

func (m *MockComboResolver) SettleCombo(ctx context.Context, comboID int64) (models.ComboOutcome, error) {
	args := m.Called(ctx, comboID)
	return args.Get(0).(models.ComboOutcome), args.Error(1)
}

// MockSettlementService is a mock implementation of SettlementService
type MockSettlementService struct {
	mock.Mock
}

func (m *MockSettlementService) SettleEvent(ctx context.Context, eventID int64, result models.Side) (*models.EventSettlement, error) {
	args := m.Called(ctx, eventID, result)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.EventSettlement), args.Error(1)
}

func (m *MockSettlementService) ResumeEvent(ctx context.Context, eventID int64) (*models.EventSettlement, error) {
	args := m.Called(ctx, eventID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.EventSettlement), args.Error(1)
}

// MockDueEventScanner is a mock implementation of DueEventScanner
type MockDueEventScanner struct {
	mock.Mock
}

func (m *MockDueEventScanner) ProcessDueEvents(ctx context.Context, now time.Time) (*models.ScanReport, error) {
	args := m.Called(ctx, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ScanReport), args.Error(1)
}
