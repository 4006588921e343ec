package testutil

import (
	"context"
	"math"
	"testing"
	"time"

	"settler/database"
	"settler/models"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/require"
)

// CreateTestEvent creates a simulated event that became due an hour ago
func CreateTestEvent() *models.Event {
	now := time.Now()
	return &models.Event{
		SideAName:   "Home",
		SideBName:   "Away",
		OddsA:       2.0,
		OddsDraw:    4.0,
		OddsB:       4.0,
		State:       models.EventStateScheduled,
		Mode:        models.EventModeSimulated,
		ScheduledAt: now.Add(-time.Hour),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// CreateTestEventWithOdds creates a due simulated event with specific odds
func CreateTestEventWithOdds(oddsA, oddsDraw, oddsB float64) *models.Event {
	event := CreateTestEvent()
	event.OddsA = oddsA
	event.OddsDraw = oddsDraw
	event.OddsB = oddsB
	return event
}

// CreateTestConcludedEvent creates an event that already has a result
func CreateTestConcludedEvent(result models.Side) *models.Event {
	event := CreateTestEvent()
	concludedAt := time.Now()
	event.State = models.EventStateConcluded
	event.Result = &result
	event.ConcludedAt = &concludedAt
	return event
}

// CreateTestWager creates a pending primary-currency wager with stored potentials
func CreateTestWager(userID, eventID int64, choice models.Side, stake int64, odds float64) *models.Wager {
	potentialWin := int64(math.Round(float64(stake) * odds))
	potentialPremium := int64(math.Round(float64(stake) * odds / 10))
	return &models.Wager{
		UserID:           userID,
		EventID:          eventID,
		Stake:            stake,
		Choice:           choice,
		Odds:             odds,
		Currency:         models.CurrencyPrimary,
		PotentialWin:     &potentialWin,
		PotentialPremium: &potentialPremium,
		Outcome:          models.WagerOutcomePending,
		CreatedAt:        time.Now(),
	}
}

// CreateTestPremiumWager creates a pending wager staked in the premium currency
func CreateTestPremiumWager(userID, eventID int64, choice models.Side, stake int64, odds float64) *models.Wager {
	wager := CreateTestWager(userID, eventID, choice, stake, odds)
	wager.Currency = models.CurrencyPremium
	return wager
}

// CreateTestLeg creates a combo leg selection
func CreateTestLeg(eventID int64, choice models.Side, odds float64) *models.ComboLeg {
	return &models.ComboLeg{
		EventID:   eventID,
		Choice:    choice,
		Odds:      odds,
		CreatedAt: time.Now(),
	}
}

// CreateTestComboWager creates a pending combo wager whose total odds are the product of its legs
func CreateTestComboWager(userID int64, stake int64, legs ...*models.ComboLeg) *models.ComboWager {
	totalOdds := 1.0
	for _, leg := range legs {
		totalOdds *= leg.Odds
	}
	potentialWin := int64(math.Round(float64(stake) * totalOdds))
	potentialPremium := int64(math.Round(float64(stake) * totalOdds / 10))
	return &models.ComboWager{
		UserID:           userID,
		Stake:            stake,
		TotalOdds:        totalOdds,
		Currency:         models.CurrencyPrimary,
		PotentialWin:     &potentialWin,
		PotentialPremium: &potentialPremium,
		Outcome:          models.WagerOutcomePending,
		CreatedAt:        time.Now(),
	}
}

// SeedAccount inserts an account row directly
func SeedAccount(t *testing.T, db *database.DB, userID, primaryBalance, premiumBalance int64) {
	t.Helper()
	err := db.WithTransaction(context.Background(), func(tx pgx.Tx) error {
		_, err := tx.Exec(context.Background(),
			`INSERT INTO accounts (user_id, primary_balance, premium_balance) VALUES ($1, $2, $3)`,
			userID, primaryBalance, premiumBalance)
		return err
	})
	require.NoError(t, err)
}

// SeedEvent inserts an event row directly and sets its ID
func SeedEvent(t *testing.T, db *database.DB, event *models.Event) *models.Event {
	t.Helper()
	err := db.WithTransaction(context.Background(), func(tx pgx.Tx) error {
		return tx.QueryRow(context.Background(), `
			INSERT INTO events (side_a, side_b, odds_a, odds_draw, odds_b, state, result, mode, scheduled_at, concluded_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
			RETURNING id`,
			event.SideAName, event.SideBName, event.OddsA, event.OddsDraw, event.OddsB,
			event.State, event.Result, event.Mode, event.ScheduledAt, event.ConcludedAt,
		).Scan(&event.ID)
	})
	require.NoError(t, err)
	return event
}

// SeedWager inserts a wager row directly and sets its ID
func SeedWager(t *testing.T, db *database.DB, wager *models.Wager) *models.Wager {
	t.Helper()
	err := db.WithTransaction(context.Background(), func(tx pgx.Tx) error {
		return tx.QueryRow(context.Background(), `
			INSERT INTO wagers (user_id, event_id, stake, choice, odds, currency, potential_win, potential_premium)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			RETURNING id`,
			wager.UserID, wager.EventID, wager.Stake, wager.Choice, wager.Odds,
			wager.Currency, wager.PotentialWin, wager.PotentialPremium,
		).Scan(&wager.ID)
	})
	require.NoError(t, err)
	return wager
}

// SeedComboWager inserts a combo wager and its legs in one transaction
func SeedComboWager(t *testing.T, db *database.DB, combo *models.ComboWager, legs ...*models.ComboLeg) *models.ComboWager {
	t.Helper()
	ctx := context.Background()
	err := db.WithTransaction(ctx, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `
			INSERT INTO combo_wagers (user_id, stake, total_odds, currency, potential_win, potential_premium)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING id`,
			combo.UserID, combo.Stake, combo.TotalOdds, combo.Currency,
			combo.PotentialWin, combo.PotentialPremium,
		).Scan(&combo.ID)
		if err != nil {
			return err
		}
		for _, leg := range legs {
			leg.ComboWagerID = combo.ID
			err := tx.QueryRow(ctx, `
				INSERT INTO combo_legs (combo_wager_id, event_id, choice, odds)
				VALUES ($1, $2, $3, $4)
				RETURNING id`,
				leg.ComboWagerID, leg.EventID, leg.Choice, leg.Odds,
			).Scan(&leg.ID)
			if err != nil {
				return err
			}
		}
		return nil
	})
	require.NoError(t, err)
	return combo
}
