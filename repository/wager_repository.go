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

// WagerRepository implements the WagerRepository interface
type WagerRepository struct {
	q queryable
}

// NewWagerRepository creates a new wager repository
func NewWagerRepository(db *database.DB) *WagerRepository {
	return &WagerRepository{q: db.Pool}
}

// newWagerRepositoryWithTx creates a new wager repository with a transaction
func newWagerRepositoryWithTx(tx queryable) *WagerRepository {
	return &WagerRepository{q: tx}
}

const wagerColumns = `
	id, user_id, event_id, stake, choice, odds, currency, potential_win, potential_premium,
	outcome, primary_won, premium_won, settled_at, created_at`

func scanWager(row pgx.Row) (*models.Wager, error) {
	var wager models.Wager
	err := row.Scan(
		&wager.ID,
		&wager.UserID,
		&wager.EventID,
		&wager.Stake,
		&wager.Choice,
		&wager.Odds,
		&wager.Currency,
		&wager.PotentialWin,
		&wager.PotentialPremium,
		&wager.Outcome,
		&wager.PrimaryWon,
		&wager.PremiumWon,
		&wager.SettledAt,
		&wager.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &wager, nil
}

// Create inserts a new pending wager
func (r *WagerRepository) Create(ctx context.Context, wager *models.Wager) error {
	if wager.Currency == "" {
		wager.Currency = models.CurrencyPrimary
	}
	wager.Outcome = models.WagerOutcomePending

	query := `
		INSERT INTO wagers (user_id, event_id, stake, choice, odds, currency, potential_win, potential_premium)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at
	`

	err := r.q.QueryRow(ctx, query,
		wager.UserID,
		wager.EventID,
		wager.Stake,
		wager.Choice,
		wager.Odds,
		wager.Currency,
		wager.PotentialWin,
		wager.PotentialPremium,
	).Scan(&wager.ID, &wager.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create wager for user %d: %w", wager.UserID, service.ClassifyStoreError(err))
	}

	return nil
}

// GetByID retrieves a wager by its ID
func (r *WagerRepository) GetByID(ctx context.Context, id int64) (*models.Wager, error) {
	query := `SELECT ` + wagerColumns + ` FROM wagers WHERE id = $1`

	wager, err := scanWager(r.q.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get wager %d: %w", id, service.ClassifyStoreError(err))
	}

	return wager, nil
}

// ListPendingByEvent returns every pending wager on an event in placement order
func (r *WagerRepository) ListPendingByEvent(ctx context.Context, eventID int64) ([]*models.Wager, error) {
	query := `SELECT ` + wagerColumns + `
		FROM wagers
		WHERE event_id = $1 AND outcome = 'pending'
		ORDER BY id ASC
	`

	rows, err := r.q.Query(ctx, query, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending wagers for event %d: %w", eventID, service.ClassifyStoreError(err))
	}
	defer rows.Close()

	var wagers []*models.Wager
	for rows.Next() {
		wager, err := scanWager(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan wager: %w", err)
		}
		wagers = append(wagers, wager)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate wagers: %w", err)
	}

	return wagers, nil
}

// MarkSettled transitions a pending wager to its final outcome
func (r *WagerRepository) MarkSettled(ctx context.Context, id int64, outcome models.WagerOutcome, primaryWon, premiumWon int64) error {
	query := `
		UPDATE wagers
		SET outcome = $2, primary_won = $3, premium_won = $4, settled_at = NOW()
		WHERE id = $1 AND outcome = 'pending'
	`

	tag, err := r.q.Exec(ctx, query, id, outcome, primaryWon, premiumWon)
	if err != nil {
		return fmt.Errorf("failed to settle wager %d: %w", id, service.ClassifyStoreError(err))
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("wager %d is no longer pending: %w", id, service.ErrConflict)
	}

	return nil
}
