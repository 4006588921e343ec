package repository

import (
	"context"
	"testing"

	"settler/models"
	"settler/repository/testutil"
	"settler/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComboWagerRepository_CreateWithLegs(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)
	repo := NewComboWagerRepository(testDB.DB)
	ctx := context.Background()

	first := testutil.SeedEvent(t, testDB.DB, testutil.CreateTestEvent())
	second := testutil.SeedEvent(t, testDB.DB, testutil.CreateTestEvent())

	legs := []*models.ComboLeg{
		testutil.CreateTestLeg(first.ID, models.SideA, 2.0),
		testutil.CreateTestLeg(second.ID, models.SideDraw, 3.0),
	}
	combo := testutil.CreateTestComboWager(1, 100, legs...)
	require.NoError(t, repo.CreateWithLegs(ctx, combo, legs))
	require.NotZero(t, combo.ID)
	for _, leg := range legs {
		assert.Equal(t, combo.ID, leg.ComboWagerID)
		assert.NotZero(t, leg.ID)
	}

	got, err := repo.GetByID(ctx, combo.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 6.0, got.TotalOdds)
	assert.Equal(t, models.WagerOutcomePending, got.Outcome)

	t.Run("rejects combo without legs", func(t *testing.T) {
		err := repo.CreateWithLegs(ctx, testutil.CreateTestComboWager(1, 100), nil)
		assert.ErrorIs(t, err, service.ErrInvalidState)
	})
}

func TestComboWagerRepository_ListPendingIDsByEvent(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)
	repo := NewComboWagerRepository(testDB.DB)
	ctx := context.Background()

	event := testutil.SeedEvent(t, testDB.DB, testutil.CreateTestEvent())
	other := testutil.SeedEvent(t, testDB.DB, testutil.CreateTestEvent())

	// Two legs on the same event must still yield the combo once
	doubled := []*models.ComboLeg{
		testutil.CreateTestLeg(event.ID, models.SideA, 2.0),
		testutil.CreateTestLeg(event.ID, models.SideB, 2.0),
	}
	comboA := testutil.SeedComboWager(t, testDB.DB, testutil.CreateTestComboWager(1, 100, doubled...), doubled...)

	single := []*models.ComboLeg{testutil.CreateTestLeg(event.ID, models.SideDraw, 3.0)}
	comboB := testutil.SeedComboWager(t, testDB.DB, testutil.CreateTestComboWager(2, 100, single...), single...)

	unrelated := []*models.ComboLeg{testutil.CreateTestLeg(other.ID, models.SideA, 2.0)}
	testutil.SeedComboWager(t, testDB.DB, testutil.CreateTestComboWager(3, 100, unrelated...), unrelated...)

	ids, err := repo.ListPendingIDsByEvent(ctx, event.ID)
	require.NoError(t, err)
	assert.Equal(t, []int64{comboA.ID, comboB.ID}, ids)

	require.NoError(t, repo.MarkSettled(ctx, comboA.ID, models.WagerOutcomeLost, 0, 0))

	ids, err = repo.ListPendingIDsByEvent(ctx, event.ID)
	require.NoError(t, err)
	assert.Equal(t, []int64{comboB.ID}, ids)
}

func TestComboWagerRepository_GetPendingForUpdate(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)
	repo := NewComboWagerRepository(testDB.DB)
	ctx := context.Background()

	event := testutil.SeedEvent(t, testDB.DB, testutil.CreateTestEvent())
	legs := []*models.ComboLeg{testutil.CreateTestLeg(event.ID, models.SideA, 2.0)}
	combo := testutil.SeedComboWager(t, testDB.DB, testutil.CreateTestComboWager(1, 100, legs...), legs...)

	locked, err := repo.GetPendingForUpdate(ctx, combo.ID)
	require.NoError(t, err)
	require.NotNil(t, locked)
	assert.Equal(t, combo.ID, locked.ID)

	require.NoError(t, repo.MarkSettled(ctx, combo.ID, models.WagerOutcomeWon, 200, 20))

	locked, err = repo.GetPendingForUpdate(ctx, combo.ID)
	require.NoError(t, err)
	assert.Nil(t, locked)

	err = repo.MarkSettled(ctx, combo.ID, models.WagerOutcomeLost, 0, 0)
	assert.ErrorIs(t, err, service.ErrConflict)

	locked, err = repo.GetPendingForUpdate(ctx, 999999)
	require.NoError(t, err)
	assert.Nil(t, locked)
}

func TestComboWagerRepository_ListLegsWithEvents(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)
	repo := NewComboWagerRepository(testDB.DB)
	eventRepo := NewEventRepository(testDB.DB)
	ctx := context.Background()

	first := testutil.SeedEvent(t, testDB.DB, testutil.CreateTestEvent())
	second := testutil.SeedEvent(t, testDB.DB, testutil.CreateTestEvent())
	legs := []*models.ComboLeg{
		testutil.CreateTestLeg(first.ID, models.SideA, 2.0),
		testutil.CreateTestLeg(second.ID, models.SideDraw, 3.0),
	}
	combo := testutil.SeedComboWager(t, testDB.DB, testutil.CreateTestComboWager(1, 100, legs...), legs...)

	claimed, err := eventRepo.ClaimConclusion(ctx, first.ID, models.SideA)
	require.NoError(t, err)
	require.True(t, claimed)

	got, err := repo.ListLegsWithEvents(ctx, combo.ID)
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, first.ID, got[0].EventID)
	assert.True(t, got[0].IsDecided())
	assert.True(t, got[0].IsCorrect())

	assert.Equal(t, second.ID, got[1].EventID)
	assert.Equal(t, models.EventStateScheduled, got[1].EventState)
	assert.Nil(t, got[1].EventResult)
	assert.False(t, got[1].IsDecided())
}
