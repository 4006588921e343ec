package service

import (
	"context"
	"fmt"

	"settler/events"
	"settler/models"
)

// RecordBalanceChange records a balance history entry and emits a balance change event.
// This is the single entry point for all balance changes in the system.
func RecordBalanceChange(ctx context.Context, uow UnitOfWork, history *models.BalanceHistory) error {
	if err := uow.BalanceHistoryRepository().Record(ctx, history); err != nil {
		return fmt.Errorf("failed to record balance history: %w", err)
	}

	// Delivered only if the surrounding transaction commits
	uow.EventBus().Publish(events.BalanceChangeEvent{
		UserID:          history.UserID,
		OldPrimary:      history.PrimaryBefore,
		NewPrimary:      history.PrimaryAfter,
		OldPremium:      history.PremiumBefore,
		NewPremium:      history.PremiumAfter,
		TransactionType: history.TransactionType,
	})

	return nil
}
