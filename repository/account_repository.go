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

// AccountRepository implements the AccountRepository interface
type AccountRepository struct {
	q queryable
}

// NewAccountRepository creates a new account repository
func NewAccountRepository(db *database.DB) *AccountRepository {
	return &AccountRepository{q: db.Pool}
}

// newAccountRepositoryWithTx creates a new account repository with a transaction
func newAccountRepositoryWithTx(tx queryable) *AccountRepository {
	return &AccountRepository{q: tx}
}

// Create inserts an account with the given opening balances
func (r *AccountRepository) Create(ctx context.Context, userID int64, primaryBalance, premiumBalance int64) (*models.AccountBalance, error) {
	query := `
		INSERT INTO accounts (user_id, primary_balance, premium_balance)
		VALUES ($1, $2, $3)
		RETURNING user_id, primary_balance, premium_balance, wins, created_at, updated_at
	`

	var account models.AccountBalance
	err := r.q.QueryRow(ctx, query, userID, primaryBalance, premiumBalance).Scan(
		&account.UserID,
		&account.PrimaryBalance,
		&account.PremiumBalance,
		&account.Wins,
		&account.CreatedAt,
		&account.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create account for user %d: %w", userID, service.ClassifyStoreError(err))
	}

	return &account, nil
}

// GetByUserID retrieves an account by user ID
func (r *AccountRepository) GetByUserID(ctx context.Context, userID int64) (*models.AccountBalance, error) {
	query := `
		SELECT user_id, primary_balance, premium_balance, wins, created_at, updated_at
		FROM accounts
		WHERE user_id = $1
	`

	var account models.AccountBalance
	err := r.q.QueryRow(ctx, query, userID).Scan(
		&account.UserID,
		&account.PrimaryBalance,
		&account.PremiumBalance,
		&account.Wins,
		&account.CreatedAt,
		&account.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account for user %d: %w", userID, service.ClassifyStoreError(err))
	}

	return &account, nil
}

// Credit adds to both balances and increments the wins counter in a single statement
func (r *AccountRepository) Credit(ctx context.Context, userID int64, primary, premium int64) (*models.AccountBalance, error) {
	if primary < 0 || premium < 0 {
		return nil, fmt.Errorf("credit amounts must not be negative: %w", service.ErrInvalidState)
	}

	query := `
		UPDATE accounts
		SET primary_balance = primary_balance + $2,
		    premium_balance = premium_balance + $3,
		    wins = wins + 1,
		    updated_at = NOW()
		WHERE user_id = $1
		RETURNING user_id, primary_balance, premium_balance, wins, created_at, updated_at
	`

	var account models.AccountBalance
	err := r.q.QueryRow(ctx, query, userID, primary, premium).Scan(
		&account.UserID,
		&account.PrimaryBalance,
		&account.PremiumBalance,
		&account.Wins,
		&account.CreatedAt,
		&account.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("account for user %d: %w", userID, service.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to credit account for user %d: %w", userID, service.ClassifyStoreError(err))
	}

	return &account, nil
}
