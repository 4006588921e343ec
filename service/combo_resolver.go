package service

import (
	"context"
	"fmt"

	"settler/models"
)

// comboResolver implements ComboResolver
type comboResolver struct {
	uowFactory UnitOfWorkFactory
	payout     PayoutPolicy
}

// NewComboResolver creates a new combo wager resolver
func NewComboResolver(uowFactory UnitOfWorkFactory, payout PayoutPolicy) ComboResolver {
	return &comboResolver{
		uowFactory: uowFactory,
		payout:     payout,
	}
}

// SettleCombo evaluates one combo wager. The combo row stays locked from the
// pending check until commit so concurrent evaluations serialise on it.
func (r *comboResolver) SettleCombo(ctx context.Context, comboID int64) (models.ComboOutcome, error) {
	uow := r.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	combo, err := uow.ComboWagerRepository().GetPendingForUpdate(ctx, comboID)
	if err != nil {
		return "", fmt.Errorf("failed to load combo wager: %w", err)
	}
	if combo == nil {
		return models.ComboSkipped, nil
	}

	legs, err := uow.ComboWagerRepository().ListLegsWithEvents(ctx, comboID)
	if err != nil {
		return "", fmt.Errorf("failed to load combo legs: %w", err)
	}
	if len(legs) == 0 {
		return "", fmt.Errorf("combo wager %d has no legs: %w", comboID, ErrInvalidState)
	}

	won := true
	for _, leg := range legs {
		if !leg.IsDecided() {
			return models.ComboPending, nil
		}
		if !leg.IsCorrect() {
			won = false
		}
	}

	settlement := r.payout.ComboSettlement(combo, won)
	if err := applySettlement(ctx, uow, settlement); err != nil {
		return "", err
	}

	if err := uow.Commit(); err != nil {
		return "", fmt.Errorf("failed to commit combo settlement: %w", err)
	}

	if won {
		return models.ComboWon, nil
	}
	return models.ComboLost, nil
}
