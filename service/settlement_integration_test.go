package service_test

import (
	"context"
	"math/rand"
	"sync"
	"testing"
	"time"

	"settler/events"
	"settler/models"
	"settler/repository"
	"settler/repository/testutil"
	"settler/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// settlementStack wires the real services against a migrated test database
type settlementStack struct {
	db         *testutil.TestDatabase
	bus        *events.Bus
	ledger     service.Ledger
	settlement service.SettlementService
	scanner    service.DueEventScanner
}

func newSettlementStack(t *testing.T) *settlementStack {
	testDB := testutil.SetupTestDatabase(t)
	bus := events.NewBus()
	factory := repository.NewUnitOfWorkFactory(testDB.DB, bus)

	payout := service.NewPayoutPolicy(service.DefaultPremiumDivisor)
	ledger := service.NewLedgerService(factory)
	settlement := service.NewSettlementService(factory,
		service.NewWagerResolver(factory, ledger, payout),
		service.NewComboResolver(factory, payout))
	simulator := service.NewOutcomeSimulatorWithSource(rand.New(rand.NewSource(7)))

	return &settlementStack{
		db:         testDB,
		bus:        bus,
		ledger:     ledger,
		settlement: settlement,
		scanner:    service.NewDueEventScanner(factory, simulator, settlement),
	}
}

func (s *settlementStack) wager(t *testing.T, id int64) *models.Wager {
	t.Helper()
	wager, err := repository.NewWagerRepository(s.db.DB).GetByID(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, wager)
	return wager
}

func (s *settlementStack) combo(t *testing.T, id int64) *models.ComboWager {
	t.Helper()
	combo, err := repository.NewComboWagerRepository(s.db.DB).GetByID(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, combo)
	return combo
}

func (s *settlementStack) balances(t *testing.T, userID int64) *models.AccountBalance {
	t.Helper()
	account, err := s.ledger.GetBalances(context.Background(), userID)
	require.NoError(t, err)
	return account
}

func TestSettlement_SingleWagersAreCreditedOnce(t *testing.T) {
	stack := newSettlementStack(t)
	ctx := context.Background()

	testutil.SeedAccount(t, stack.db.DB, 1, 1000, 0)
	testutil.SeedAccount(t, stack.db.DB, 2, 1000, 0)
	event := testutil.SeedEvent(t, stack.db.DB, testutil.CreateTestEventWithOdds(2.5, 3.2, 2.8))
	winner := testutil.SeedWager(t, stack.db.DB, testutil.CreateTestWager(1, event.ID, models.SideA, 100, 2.5))
	loser := testutil.SeedWager(t, stack.db.DB, testutil.CreateTestWager(2, event.ID, models.SideB, 100, 2.8))

	settlement, err := stack.settlement.SettleEvent(ctx, event.ID, models.SideA)
	require.NoError(t, err)
	assert.Equal(t, 2, settlement.Settled)
	assert.Equal(t, 1, settlement.Won)
	assert.Equal(t, 1, settlement.Lost)
	assert.Empty(t, settlement.Failures)

	won := stack.wager(t, winner.ID)
	assert.Equal(t, models.WagerOutcomeWon, won.Outcome)
	assert.Equal(t, int64(250), won.PrimaryWon)
	assert.Equal(t, int64(25), won.PremiumWon)
	assert.NotNil(t, won.SettledAt)

	lost := stack.wager(t, loser.ID)
	assert.Equal(t, models.WagerOutcomeLost, lost.Outcome)
	assert.Zero(t, lost.PrimaryWon)

	account := stack.balances(t, 1)
	assert.Equal(t, int64(1250), account.PrimaryBalance)
	assert.Equal(t, int64(25), account.PremiumBalance)
	assert.Equal(t, int64(1), account.Wins)
	assert.Equal(t, int64(1000), stack.balances(t, 2).PrimaryBalance)

	history, err := repository.NewBalanceHistoryRepository(stack.db.DB).GetByRelated(ctx, models.RelatedTypeWager, winner.ID)
	require.NoError(t, err)
	require.NotNil(t, history)
	assert.Equal(t, int64(1000), history.PrimaryBefore)
	assert.Equal(t, int64(1250), history.PrimaryAfter)

	again, err := stack.settlement.SettleEvent(ctx, event.ID, models.SideB)
	require.NoError(t, err)
	assert.True(t, again.AlreadySettled)
	assert.Equal(t, models.SideA, again.Result)
	assert.Equal(t, int64(1250), stack.balances(t, 1).PrimaryBalance)
}

func TestSettlement_ConcurrentClaimsCreditOnce(t *testing.T) {
	stack := newSettlementStack(t)
	ctx := context.Background()

	testutil.SeedAccount(t, stack.db.DB, 1, 0, 0)
	event := testutil.SeedEvent(t, stack.db.DB, testutil.CreateTestEvent())
	testutil.SeedWager(t, stack.db.DB, testutil.CreateTestWager(1, event.ID, models.SideDraw, 50, 4.0))

	const callers = 5
	var wg sync.WaitGroup
	results := make([]*models.EventSettlement, callers)
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = stack.settlement.SettleEvent(ctx, event.ID, models.SideDraw)
		}(i)
	}
	wg.Wait()

	claimed := 0
	for i := range results {
		require.NoError(t, errs[i])
		if !results[i].AlreadySettled {
			claimed++
		}
	}
	assert.Equal(t, 1, claimed)

	account := stack.balances(t, 1)
	assert.Equal(t, int64(200), account.PrimaryBalance)
	assert.Equal(t, int64(20), account.PremiumBalance)
	assert.Equal(t, int64(1), account.Wins)
}

func TestSettlement_PremiumStakePaysPremiumOnly(t *testing.T) {
	stack := newSettlementStack(t)
	ctx := context.Background()

	testutil.SeedAccount(t, stack.db.DB, 1, 500, 40)
	event := testutil.SeedEvent(t, stack.db.DB, testutil.CreateTestEvent())
	testutil.SeedWager(t, stack.db.DB, testutil.CreateTestPremiumWager(1, event.ID, models.SideA, 40, 2.0))

	_, err := stack.settlement.SettleEvent(ctx, event.ID, models.SideA)
	require.NoError(t, err)

	account := stack.balances(t, 1)
	assert.Equal(t, int64(500), account.PrimaryBalance)
	assert.Equal(t, int64(120), account.PremiumBalance)
}

func TestSettlement_ComboWaitsForEveryLeg(t *testing.T) {
	stack := newSettlementStack(t)
	ctx := context.Background()

	testutil.SeedAccount(t, stack.db.DB, 1, 1000, 0)
	first := testutil.SeedEvent(t, stack.db.DB, testutil.CreateTestEvent())
	second := testutil.SeedEvent(t, stack.db.DB, testutil.CreateTestEvent())
	legs := []*models.ComboLeg{
		testutil.CreateTestLeg(first.ID, models.SideA, 2.0),
		testutil.CreateTestLeg(second.ID, models.SideB, 3.0),
	}
	combo := testutil.SeedComboWager(t, stack.db.DB, testutil.CreateTestComboWager(1, 100, legs...), legs...)

	settlement, err := stack.settlement.SettleEvent(ctx, first.ID, models.SideA)
	require.NoError(t, err)
	assert.Equal(t, 1, settlement.CombosPending)
	assert.Equal(t, 0, settlement.CombosSettled)
	assert.Equal(t, models.WagerOutcomePending, stack.combo(t, combo.ID).Outcome)
	assert.Equal(t, int64(1000), stack.balances(t, 1).PrimaryBalance)

	settlement, err = stack.settlement.SettleEvent(ctx, second.ID, models.SideB)
	require.NoError(t, err)
	assert.Equal(t, 1, settlement.CombosSettled)

	settled := stack.combo(t, combo.ID)
	assert.Equal(t, models.WagerOutcomeWon, settled.Outcome)
	assert.Equal(t, int64(600), settled.PrimaryWon)
	assert.Equal(t, int64(60), settled.PremiumWon)

	account := stack.balances(t, 1)
	assert.Equal(t, int64(1600), account.PrimaryBalance)
	assert.Equal(t, int64(60), account.PremiumBalance)
}

func TestSettlement_ComboLosesOnAnyWrongLeg(t *testing.T) {
	stack := newSettlementStack(t)
	ctx := context.Background()

	testutil.SeedAccount(t, stack.db.DB, 1, 1000, 0)
	var legs []*models.ComboLeg
	var eventIDs []int64
	for i := 0; i < 3; i++ {
		event := testutil.SeedEvent(t, stack.db.DB, testutil.CreateTestEvent())
		eventIDs = append(eventIDs, event.ID)
		legs = append(legs, testutil.CreateTestLeg(event.ID, models.SideA, 2.0))
	}
	combo := testutil.SeedComboWager(t, stack.db.DB, testutil.CreateTestComboWager(1, 100, legs...), legs...)

	results := []models.Side{models.SideA, models.SideA, models.SideB}
	for i, eventID := range eventIDs {
		_, err := stack.settlement.SettleEvent(ctx, eventID, results[i])
		require.NoError(t, err)
	}

	settled := stack.combo(t, combo.ID)
	assert.Equal(t, models.WagerOutcomeLost, settled.Outcome)
	assert.Zero(t, settled.PrimaryWon)
	assert.Equal(t, int64(1000), stack.balances(t, 1).PrimaryBalance)
}

func TestSettlement_MissingAccountIsResumedLater(t *testing.T) {
	stack := newSettlementStack(t)
	ctx := context.Background()

	event := testutil.SeedEvent(t, stack.db.DB, testutil.CreateTestEvent())
	wager := testutil.SeedWager(t, stack.db.DB, testutil.CreateTestWager(99, event.ID, models.SideA, 100, 2.0))

	settlement, err := stack.settlement.SettleEvent(ctx, event.ID, models.SideA)
	require.NoError(t, err)
	require.Len(t, settlement.Failures, 1)
	assert.Equal(t, wager.ID, settlement.Failures[0].WagerID)
	assert.Equal(t, models.WagerOutcomePending, stack.wager(t, wager.ID).Outcome)

	testutil.SeedAccount(t, stack.db.DB, 99, 0, 0)

	report, err := stack.scanner.ProcessDueEvents(ctx, time.Now())
	require.NoError(t, err)
	require.Len(t, report.Results, 1)
	assert.True(t, report.Results[0].Resumed)
	assert.Equal(t, 1, report.Results[0].Settled)

	assert.Equal(t, models.WagerOutcomeWon, stack.wager(t, wager.ID).Outcome)
	assert.Equal(t, int64(200), stack.balances(t, 99).PrimaryBalance)
}

func TestSettlement_StrandedComboIsResumedLater(t *testing.T) {
	stack := newSettlementStack(t)
	ctx := context.Background()

	first := testutil.SeedEvent(t, stack.db.DB, testutil.CreateTestEvent())
	second := testutil.SeedEvent(t, stack.db.DB, testutil.CreateTestEvent())
	legs := []*models.ComboLeg{
		testutil.CreateTestLeg(first.ID, models.SideA, 2.0),
		testutil.CreateTestLeg(second.ID, models.SideA, 2.0),
	}
	combo := testutil.SeedComboWager(t, stack.db.DB, testutil.CreateTestComboWager(42, 50, legs...), legs...)

	_, err := stack.settlement.SettleEvent(ctx, first.ID, models.SideA)
	require.NoError(t, err)
	settlement, err := stack.settlement.SettleEvent(ctx, second.ID, models.SideA)
	require.NoError(t, err)
	require.Len(t, settlement.Failures, 1)
	assert.Equal(t, models.RelatedTypeComboWager, settlement.Failures[0].Kind)
	assert.Equal(t, models.WagerOutcomePending, stack.combo(t, combo.ID).Outcome)

	testutil.SeedAccount(t, stack.db.DB, 42, 0, 0)

	report, err := stack.scanner.ProcessDueEvents(ctx, time.Now())
	require.NoError(t, err)
	require.NotEmpty(t, report.Results)
	for _, entry := range report.Results {
		assert.True(t, entry.Resumed)
		assert.Empty(t, entry.Error)
	}
	assert.Contains(t, report.Results[0].Message, "1 combos settled")

	assert.Equal(t, models.WagerOutcomeWon, stack.combo(t, combo.ID).Outcome)
	account := stack.balances(t, 42)
	assert.Equal(t, int64(200), account.PrimaryBalance)
	assert.Equal(t, int64(20), account.PremiumBalance)

	again, err := stack.scanner.ProcessDueEvents(ctx, time.Now())
	require.NoError(t, err)
	assert.Empty(t, again.Results)
}

func TestScan_NothingDue(t *testing.T) {
	stack := newSettlementStack(t)

	future := testutil.CreateTestEvent()
	future.ScheduledAt = time.Now().Add(time.Hour)
	testutil.SeedEvent(t, stack.db.DB, future)

	reported := testutil.CreateTestEvent()
	reported.Mode = models.EventModeReported
	testutil.SeedEvent(t, stack.db.DB, reported)

	report, err := stack.scanner.ProcessDueEvents(context.Background(), time.Now())
	require.NoError(t, err)
	assert.Empty(t, report.Results)
}

func TestScan_SettlesDueEvents(t *testing.T) {
	stack := newSettlementStack(t)
	ctx := context.Background()

	testutil.SeedAccount(t, stack.db.DB, 1, 0, 0)
	event := testutil.SeedEvent(t, stack.db.DB, testutil.CreateTestEvent())
	wagerA := testutil.SeedWager(t, stack.db.DB, testutil.CreateTestWager(1, event.ID, models.SideA, 10, 2.0))

	report, err := stack.scanner.ProcessDueEvents(ctx, time.Now())
	require.NoError(t, err)
	require.Len(t, report.Results, 1)

	entry := report.Results[0]
	assert.Equal(t, event.ID, entry.EventID)
	assert.True(t, entry.Result.Valid())
	assert.Empty(t, entry.Error)
	assert.Equal(t, 1, entry.Settled)

	settled := stack.wager(t, wagerA.ID)
	if entry.Result == models.SideA {
		assert.Equal(t, models.WagerOutcomeWon, settled.Outcome)
	} else {
		assert.Equal(t, models.WagerOutcomeLost, settled.Outcome)
	}

	second, err := stack.scanner.ProcessDueEvents(ctx, time.Now())
	require.NoError(t, err)
	assert.Empty(t, second.Results)
}
