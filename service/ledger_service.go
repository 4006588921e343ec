package service

import (
	"context"
	"fmt"

	"settler/events"
	"settler/models"
)

// ledgerService implements Ledger on top of a unit of work
type ledgerService struct {
	uowFactory UnitOfWorkFactory
}

// NewLedgerService creates a new ledger
func NewLedgerService(uowFactory UnitOfWorkFactory) Ledger {
	return &ledgerService{uowFactory: uowFactory}
}

// GetBalances returns a user's balances and wins counter
func (s *ledgerService) GetBalances(ctx context.Context, userID int64) (*models.AccountBalance, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	account, err := uow.AccountRepository().GetByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	if account == nil {
		return nil, fmt.Errorf("account for user %d: %w", userID, ErrNotFound)
	}

	return account, nil
}

// ApplySettlement transitions the wager and credits its owner in one transaction.
// Nothing is written unless every step succeeds.
func (s *ledgerService) ApplySettlement(ctx context.Context, settlement models.Settlement) error {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	if err := applySettlement(ctx, uow, settlement); err != nil {
		return err
	}

	if err := uow.Commit(); err != nil {
		return fmt.Errorf("failed to commit settlement: %w", err)
	}

	return nil
}

// applySettlement performs the settlement writes inside an existing unit of work
func applySettlement(ctx context.Context, uow UnitOfWork, settlement models.Settlement) error {
	if settlement.Outcome != models.WagerOutcomeWon && settlement.Outcome != models.WagerOutcomeLost {
		return fmt.Errorf("cannot settle %s %d as %q: %w", settlement.Kind, settlement.WagerID, settlement.Outcome, ErrInvalidState)
	}

	var err error
	switch settlement.Kind {
	case models.RelatedTypeWager:
		err = uow.WagerRepository().MarkSettled(ctx, settlement.WagerID, settlement.Outcome, settlement.PrimaryCredit, settlement.PremiumCredit)
	case models.RelatedTypeComboWager:
		err = uow.ComboWagerRepository().MarkSettled(ctx, settlement.WagerID, settlement.Outcome, settlement.PrimaryCredit, settlement.PremiumCredit)
	default:
		return fmt.Errorf("unknown settlement kind %q: %w", settlement.Kind, ErrInvalidState)
	}
	if err != nil {
		return err
	}

	if settlement.Won() {
		account, err := uow.AccountRepository().Credit(ctx, settlement.UserID, settlement.PrimaryCredit, settlement.PremiumCredit)
		if err != nil {
			return err
		}

		history := &models.BalanceHistory{
			UserID:          settlement.UserID,
			PrimaryBefore:   account.PrimaryBalance - settlement.PrimaryCredit,
			PrimaryAfter:    account.PrimaryBalance,
			PremiumBefore:   account.PremiumBalance - settlement.PremiumCredit,
			PremiumAfter:    account.PremiumBalance,
			TransactionType: settlement.TransactionType(),
			TransactionMetadata: map[string]any{
				"event_id":       settlement.EventID,
				"primary_credit": settlement.PrimaryCredit,
				"premium_credit": settlement.PremiumCredit,
			},
			RelatedID:   settlement.WagerID,
			RelatedType: settlement.Kind,
		}
		if err := RecordBalanceChange(ctx, uow, history); err != nil {
			return err
		}
	}

	if settlement.Kind == models.RelatedTypeComboWager {
		uow.EventBus().Publish(events.ComboWagerSettledEvent{
			ComboWagerID: settlement.WagerID,
			UserID:       settlement.UserID,
			Outcome:      settlement.Outcome,
			PrimaryWon:   settlement.PrimaryCredit,
			PremiumWon:   settlement.PremiumCredit,
		})
	} else {
		uow.EventBus().Publish(events.WagerSettledEvent{
			WagerID:    settlement.WagerID,
			EventID:    settlement.EventID,
			UserID:     settlement.UserID,
			Outcome:    settlement.Outcome,
			PrimaryWon: settlement.PrimaryCredit,
			PremiumWon: settlement.PremiumCredit,
		})
	}

	return nil
}
