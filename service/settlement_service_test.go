package service

import (
	"context"
	"errors"
	"testing"

	"settler/events"
	"settler/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type settlementMocks struct {
	*ledgerMocks
	wagerResolver *MockWagerResolver
	comboResolver *MockComboResolver
}

func newSettlementMocks(ctx context.Context) *settlementMocks {
	return &settlementMocks{
		ledgerMocks:   newLedgerMocks(ctx),
		wagerResolver: new(MockWagerResolver),
		comboResolver: new(MockComboResolver),
	}
}

func (m *settlementMocks) service() SettlementService {
	return NewSettlementService(m.factory, m.wagerResolver, m.comboResolver)
}

func TestSettlementService_SettleEvent(t *testing.T) {
	ctx := context.Background()
	m := newSettlementMocks(ctx)
	event := concludedEvent(7, models.SideA)

	m.events.On("ClaimConclusion", ctx, int64(7), models.SideA).Return(true, nil)
	m.events.On("GetByID", ctx, int64(7)).Return(event, nil)
	m.uow.On("Commit").Return(nil).Once()
	m.wagerResolver.On("ResolveEvent", ctx, event).Return(&models.WagerResolution{
		Settled: 2,
		Won:     1,
		Lost:    1,
	}, nil)
	m.combos.On("ListPendingIDsByEvent", ctx, int64(7)).Return([]int64{10, 11, 12}, nil)
	m.comboResolver.On("SettleCombo", ctx, int64(10)).Return(models.ComboWon, nil)
	m.comboResolver.On("SettleCombo", ctx, int64(11)).Return(models.ComboPending, nil)
	m.comboResolver.On("SettleCombo", ctx, int64(12)).Return(models.ComboLost, nil)

	settlement, err := m.service().SettleEvent(ctx, 7, models.SideA)
	require.NoError(t, err)

	assert.Equal(t, int64(7), settlement.EventID)
	assert.Equal(t, models.SideA, settlement.Result)
	assert.False(t, settlement.AlreadySettled)
	assert.Equal(t, 2, settlement.Settled)
	assert.Equal(t, 2, settlement.CombosSettled)
	assert.Equal(t, 1, settlement.CombosPending)
	assert.Equal(t, "2 wagers settled (1 won, 1 lost), 2 combos settled, 1 combos pending", settlement.Message)

	concluded := m.uow.Published().OfType(events.EventTypeEventConcluded)
	require.Len(t, concluded, 1)
	assert.Equal(t, models.SideA, concluded[0].(events.EventConcludedEvent).Result)

	m.assertExpectations(t)
	m.wagerResolver.AssertExpectations(t)
	m.comboResolver.AssertExpectations(t)
}

func TestSettlementService_SettleEvent_AlreadyConcluded(t *testing.T) {
	ctx := context.Background()
	m := newSettlementMocks(ctx)

	m.events.On("ClaimConclusion", ctx, int64(7), models.SideB).Return(false, nil)
	m.events.On("GetByID", ctx, int64(7)).Return(concludedEvent(7, models.SideDraw), nil)

	settlement, err := m.service().SettleEvent(ctx, 7, models.SideB)
	require.NoError(t, err)

	assert.True(t, settlement.AlreadySettled)
	assert.Equal(t, models.SideDraw, settlement.Result)
	assert.Equal(t, "event already concluded", settlement.Message)
	assert.Empty(t, m.uow.Published().Events)

	m.uow.AssertNotCalled(t, "Commit")
	m.wagerResolver.AssertNotCalled(t, "ResolveEvent", mock.Anything, mock.Anything)
}

func TestSettlementService_SettleEvent_UnknownEvent(t *testing.T) {
	ctx := context.Background()
	m := newSettlementMocks(ctx)

	m.events.On("ClaimConclusion", ctx, int64(404), models.SideA).Return(false, nil)
	m.events.On("GetByID", ctx, int64(404)).Return(nil, nil)

	_, err := m.service().SettleEvent(ctx, 404, models.SideA)
	assert.ErrorIs(t, err, ErrNotFound)
	m.uow.AssertNotCalled(t, "Commit")
}

func TestSettlementService_SettleEvent_InvalidResult(t *testing.T) {
	ctx := context.Background()
	m := newSettlementMocks(ctx)

	_, err := m.service().SettleEvent(ctx, 7, models.Side("C"))
	assert.ErrorIs(t, err, ErrInvalidState)
	m.factory.AssertNotCalled(t, "Create")
}

func TestSettlementService_SettleEvent_ComboFailureIsReported(t *testing.T) {
	ctx := context.Background()
	m := newSettlementMocks(ctx)
	event := concludedEvent(7, models.SideA)

	m.events.On("ClaimConclusion", ctx, int64(7), models.SideA).Return(true, nil)
	m.events.On("GetByID", ctx, int64(7)).Return(event, nil)
	m.uow.On("Commit").Return(nil)
	m.wagerResolver.On("ResolveEvent", ctx, event).Return(&models.WagerResolution{}, nil)
	m.combos.On("ListPendingIDsByEvent", ctx, int64(7)).Return([]int64{10, 11}, nil)
	m.comboResolver.On("SettleCombo", ctx, int64(10)).Return(models.ComboOutcome(""), errors.New("account missing"))
	m.comboResolver.On("SettleCombo", ctx, int64(11)).Return(models.ComboWon, nil)

	settlement, err := m.service().SettleEvent(ctx, 7, models.SideA)
	require.NoError(t, err)

	assert.Equal(t, 1, settlement.CombosSettled)
	require.Len(t, settlement.Failures, 1)
	assert.Equal(t, models.RelatedTypeComboWager, settlement.Failures[0].Kind)
	assert.Equal(t, int64(10), settlement.Failures[0].WagerID)
	assert.Contains(t, settlement.Message, ", 1 failed")
}

func TestSettlementService_ResumeEvent(t *testing.T) {
	ctx := context.Background()
	m := newSettlementMocks(ctx)
	event := concludedEvent(9, models.SideB)

	m.events.On("GetByID", ctx, int64(9)).Return(event, nil)
	m.wagerResolver.On("ResolveEvent", ctx, event).Return(&models.WagerResolution{Settled: 1, Lost: 1}, nil)
	m.combos.On("ListPendingIDsByEvent", ctx, int64(9)).Return([]int64{}, nil)

	settlement, err := m.service().ResumeEvent(ctx, 9)
	require.NoError(t, err)

	assert.Equal(t, models.SideB, settlement.Result)
	assert.Equal(t, 1, settlement.Settled)
	assert.Equal(t, 1, settlement.Lost)
	m.events.AssertNotCalled(t, "ClaimConclusion", mock.Anything, mock.Anything, mock.Anything)
	assert.Empty(t, m.uow.Published().Events)
}

func TestSettlementService_ResumeEvent_RequiresConcludedEvent(t *testing.T) {
	ctx := context.Background()
	m := newSettlementMocks(ctx)

	m.events.On("GetByID", ctx, int64(9)).Return(scheduledEvent(2.0, 3.0, 4.0), nil)

	_, err := m.service().ResumeEvent(ctx, 9)
	assert.ErrorIs(t, err, ErrInvalidState)
	m.wagerResolver.AssertNotCalled(t, "ResolveEvent", mock.Anything, mock.Anything)
}

func TestSettlementService_ResolverErrorKeepsPartialCounts(t *testing.T) {
	ctx := context.Background()
	m := newSettlementMocks(ctx)
	event := concludedEvent(9, models.SideA)

	m.events.On("GetByID", ctx, int64(9)).Return(event, nil)
	m.wagerResolver.On("ResolveEvent", ctx, event).
		Return(&models.WagerResolution{Settled: 3, Won: 3}, context.Canceled)

	settlement, err := m.service().ResumeEvent(ctx, 9)
	assert.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, settlement)
	assert.Equal(t, 3, settlement.Settled)
	m.combos.AssertNotCalled(t, "ListPendingIDsByEvent", mock.Anything, mock.Anything)
}
