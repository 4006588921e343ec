package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"settler/database"
	"settler/models"
	"settler/service"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// uniqueViolation is the PostgreSQL error code for a unique constraint failure
const uniqueViolation = "23505"

// BalanceHistoryRepository implements the BalanceHistoryRepository interface
type BalanceHistoryRepository struct {
	q queryable
}

// NewBalanceHistoryRepository creates a new balance history repository
func NewBalanceHistoryRepository(db *database.DB) *BalanceHistoryRepository {
	return &BalanceHistoryRepository{q: db.Pool}
}

// newBalanceHistoryRepositoryWithTx creates a new balance history repository with a transaction
func newBalanceHistoryRepositoryWithTx(tx queryable) *BalanceHistoryRepository {
	return &BalanceHistoryRepository{q: tx}
}

// Record creates a new balance history entry. A second entry for the same
// wager violates the unique constraint and is reported as ErrConflict.
func (r *BalanceHistoryRepository) Record(ctx context.Context, history *models.BalanceHistory) error {
	metadataJSON, err := json.Marshal(history.TransactionMetadata)
	if err != nil {
		return fmt.Errorf("failed to marshal transaction metadata: %w", err)
	}

	query := `
		INSERT INTO balance_history
		(user_id, primary_before, primary_after, premium_before, premium_after,
		 transaction_type, transaction_metadata, related_id, related_type)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at
	`

	err = r.q.QueryRow(ctx, query,
		history.UserID,
		history.PrimaryBefore,
		history.PrimaryAfter,
		history.PremiumBefore,
		history.PremiumAfter,
		history.TransactionType,
		metadataJSON,
		history.RelatedID,
		history.RelatedType,
	).Scan(&history.ID, &history.CreatedAt)

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return fmt.Errorf("%s %d already credited: %w", history.RelatedType, history.RelatedID, service.ErrConflict)
	}
	if err != nil {
		return fmt.Errorf("failed to record balance history for user %d: %w", history.UserID, service.ClassifyStoreError(err))
	}

	return nil
}

// GetByRelated returns the entry written for a wager, or nil if none exists
func (r *BalanceHistoryRepository) GetByRelated(ctx context.Context, relatedType models.RelatedType, relatedID int64) (*models.BalanceHistory, error) {
	query := `
		SELECT id, user_id, primary_before, primary_after, premium_before, premium_after,
		       transaction_type, transaction_metadata, related_id, related_type, created_at
		FROM balance_history
		WHERE related_type = $1 AND related_id = $2
	`

	history, err := scanBalanceHistory(r.q.QueryRow(ctx, query, relatedType, relatedID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get balance history for %s %d: %w", relatedType, relatedID, service.ClassifyStoreError(err))
	}

	return history, nil
}

// GetByUser returns balance history for a specific user, newest first
func (r *BalanceHistoryRepository) GetByUser(ctx context.Context, userID int64, limit int) ([]*models.BalanceHistory, error) {
	query := `
		SELECT id, user_id, primary_before, primary_after, premium_before, premium_after,
		       transaction_type, transaction_metadata, related_id, related_type, created_at
		FROM balance_history
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`

	rows, err := r.q.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get balance history for user %d: %w", userID, service.ClassifyStoreError(err))
	}
	defer rows.Close()

	var histories []*models.BalanceHistory
	for rows.Next() {
		history, err := scanBalanceHistory(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan balance history: %w", err)
		}
		histories = append(histories, history)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate balance history: %w", err)
	}

	return histories, nil
}

func scanBalanceHistory(row pgx.Row) (*models.BalanceHistory, error) {
	var history models.BalanceHistory
	var metadataJSON []byte

	err := row.Scan(
		&history.ID,
		&history.UserID,
		&history.PrimaryBefore,
		&history.PrimaryAfter,
		&history.PremiumBefore,
		&history.PremiumAfter,
		&history.TransactionType,
		&metadataJSON,
		&history.RelatedID,
		&history.RelatedType,
		&history.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(metadataJSON) > 0 {
		if err := json.Unmarshal(metadataJSON, &history.TransactionMetadata); err != nil {
			return nil, fmt.Errorf("failed to unmarshal transaction metadata: %w", err)
		}
	}

	return &history, nil
}
