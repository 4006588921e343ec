package repository

import (
	"context"
	"errors"
	"fmt"

	"settler/database"
	"settler/models"
	"settler/service"

	"github.com/jackc/pgx/v5"
)

// ComboWagerRepository implements the ComboWagerRepository interface
type ComboWagerRepository struct {
	q queryable
}

// NewComboWagerRepository creates a new combo wager repository
func NewComboWagerRepository(db *database.DB) *ComboWagerRepository {
	return &ComboWagerRepository{q: db.Pool}
}

// newComboWagerRepositoryWithTx creates a new combo wager repository with a transaction
func newComboWagerRepositoryWithTx(tx queryable) *ComboWagerRepository {
	return &ComboWagerRepository{q: tx}
}

const comboWagerColumns = `
	id, user_id, stake, total_odds, currency, potential_win, potential_premium,
	outcome, primary_won, premium_won, settled_at, created_at`

func scanComboWager(row pgx.Row) (*models.ComboWager, error) {
	var combo models.ComboWager
	err := row.Scan(
		&combo.ID,
		&combo.UserID,
		&combo.Stake,
		&combo.TotalOdds,
		&combo.Currency,
		&combo.PotentialWin,
		&combo.PotentialPremium,
		&combo.Outcome,
		&combo.PrimaryWon,
		&combo.PremiumWon,
		&combo.SettledAt,
		&combo.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &combo, nil
}

// CreateWithLegs inserts a pending combo wager and its legs. Callers that need
// the two inserts to be atomic run this inside a unit of work.
func (r *ComboWagerRepository) CreateWithLegs(ctx context.Context, combo *models.ComboWager, legs []*models.ComboLeg) error {
	if len(legs) == 0 {
		return fmt.Errorf("combo wager requires at least one leg: %w", service.ErrInvalidState)
	}
	if combo.Currency == "" {
		combo.Currency = models.CurrencyPrimary
	}
	combo.Outcome = models.WagerOutcomePending

	query := `
		INSERT INTO combo_wagers (user_id, stake, total_odds, currency, potential_win, potential_premium)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at
	`

	err := r.q.QueryRow(ctx, query,
		combo.UserID,
		combo.Stake,
		combo.TotalOdds,
		combo.Currency,
		combo.PotentialWin,
		combo.PotentialPremium,
	).Scan(&combo.ID, &combo.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create combo wager for user %d: %w", combo.UserID, service.ClassifyStoreError(err))
	}

	legQuery := `
		INSERT INTO combo_legs (combo_wager_id, event_id, choice, odds)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`

	for _, leg := range legs {
		leg.ComboWagerID = combo.ID
		err := r.q.QueryRow(ctx, legQuery, leg.ComboWagerID, leg.EventID, leg.Choice, leg.Odds).
			Scan(&leg.ID, &leg.CreatedAt)
		if err != nil {
			return fmt.Errorf("failed to create leg on event %d for combo %d: %w", leg.EventID, combo.ID, service.ClassifyStoreError(err))
		}
	}

	return nil
}

// GetByID retrieves a combo wager by its ID
func (r *ComboWagerRepository) GetByID(ctx context.Context, id int64) (*models.ComboWager, error) {
	query := `SELECT ` + comboWagerColumns + ` FROM combo_wagers WHERE id = $1`

	combo, err := scanComboWager(r.q.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get combo wager %d: %w", id, service.ClassifyStoreError(err))
	}

	return combo, nil
}

// ListPendingIDsByEvent returns the distinct pending combos with a leg on the event
func (r *ComboWagerRepository) ListPendingIDsByEvent(ctx context.Context, eventID int64) ([]int64, error) {
	query := `
		SELECT DISTINCT cl.combo_wager_id
		FROM combo_legs cl
		JOIN combo_wagers cw ON cw.id = cl.combo_wager_id
		WHERE cl.event_id = $1 AND cw.outcome = 'pending'
		ORDER BY cl.combo_wager_id ASC
	`

	rows, err := r.q.Query(ctx, query, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to list combos for event %d: %w", eventID, service.ClassifyStoreError(err))
	}

	ids, err := pgx.CollectRows(rows, pgx.RowTo[int64])
	if err != nil {
		return nil, fmt.Errorf("failed to collect combo ids: %w", err)
	}

	return ids, nil
}

// GetPendingForUpdate returns the combo with a row lock held until the transaction ends.
// Returns nil if the combo does not exist or is already settled.
func (r *ComboWagerRepository) GetPendingForUpdate(ctx context.Context, id int64) (*models.ComboWager, error) {
	query := `SELECT ` + comboWagerColumns + `
		FROM combo_wagers
		WHERE id = $1 AND outcome = 'pending'
		FOR UPDATE
	`

	combo, err := scanComboWager(r.q.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock combo wager %d: %w", id, service.ClassifyStoreError(err))
	}

	return combo, nil
}

// ListLegsWithEvents returns the combo's legs joined with their events' current state
func (r *ComboWagerRepository) ListLegsWithEvents(ctx context.Context, comboID int64) ([]*models.ComboLegWithEvent, error) {
	query := `
		SELECT cl.id, cl.combo_wager_id, cl.event_id, cl.choice, cl.odds, cl.created_at,
		       e.state, e.result
		FROM combo_legs cl
		JOIN events e ON e.id = cl.event_id
		WHERE cl.combo_wager_id = $1
		ORDER BY cl.id ASC
	`

	rows, err := r.q.Query(ctx, query, comboID)
	if err != nil {
		return nil, fmt.Errorf("failed to list legs for combo %d: %w", comboID, service.ClassifyStoreError(err))
	}
	defer rows.Close()

	var legs []*models.ComboLegWithEvent
	for rows.Next() {
		var leg models.ComboLegWithEvent
		err := rows.Scan(
			&leg.ID,
			&leg.ComboWagerID,
			&leg.EventID,
			&leg.Choice,
			&leg.Odds,
			&leg.CreatedAt,
			&leg.EventState,
			&leg.EventResult,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan combo leg: %w", err)
		}
		legs = append(legs, &leg)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate combo legs: %w", err)
	}

	return legs, nil
}

// MarkSettled transitions a pending combo to its final outcome
func (r *ComboWagerRepository) MarkSettled(ctx context.Context, id int64, outcome models.WagerOutcome, primaryWon, premiumWon int64) error {
	query := `
		UPDATE combo_wagers
		SET outcome = $2, primary_won = $3, premium_won = $4, settled_at = NOW()
		WHERE id = $1 AND outcome = 'pending'
	`

	tag, err := r.q.Exec(ctx, query, id, outcome, primaryWon, premiumWon)
	if err != nil {
		return fmt.Errorf("failed to settle combo wager %d: %w", id, service.ClassifyStoreError(err))
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("combo wager %d is no longer pending: %w", id, service.ErrConflict)
	}

	return nil
}
