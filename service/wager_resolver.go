package service

import (
	"context"
	"errors"
	"fmt"

	"settler/models"

	log "github.com/sirupsen/logrus"
)

// wagerResolver implements WagerResolver
type wagerResolver struct {
	uowFactory UnitOfWorkFactory
	ledger     Ledger
	payout     PayoutPolicy
}

// NewWagerResolver creates a new single-wager resolver
func NewWagerResolver(uowFactory UnitOfWorkFactory, ledger Ledger, payout PayoutPolicy) WagerResolver {
	return &wagerResolver{
		uowFactory: uowFactory,
		ledger:     ledger,
		payout:     payout,
	}
}

// ResolveEvent settles every pending wager on a concluded event, each in its own transaction.
// A wager that fails is recorded and left pending; the rest are still settled.
func (r *wagerResolver) ResolveEvent(ctx context.Context, event *models.Event) (*models.WagerResolution, error) {
	if !event.IsConcluded() {
		return nil, fmt.Errorf("event %d has no result: %w", event.ID, ErrInvalidState)
	}
	result := *event.Result

	wagers, err := r.listPending(ctx, event.ID)
	if err != nil {
		return nil, err
	}

	resolution := &models.WagerResolution{}
	for _, wager := range wagers {
		if err := ctx.Err(); err != nil {
			return resolution, fmt.Errorf("resolution of event %d interrupted: %w", event.ID, err)
		}

		settlement := r.payout.WagerSettlement(wager, result)
		err := r.ledger.ApplySettlement(ctx, settlement)

		switch {
		case errors.Is(err, ErrConflict):
			// Another run settled it first
			resolution.Skipped++
		case err != nil:
			log.WithFields(log.Fields{
				"eventID": event.ID,
				"wagerID": wager.ID,
				"userID":  wager.UserID,
				"error":   err,
			}).Warn("Failed to settle wager")
			resolution.Failures = append(resolution.Failures, models.SettlementFailure{
				Kind:    models.RelatedTypeWager,
				WagerID: wager.ID,
				Error:   err.Error(),
			})
		default:
			resolution.Settled++
			if settlement.Won() {
				resolution.Won++
			} else {
				resolution.Lost++
			}
		}
	}

	return resolution, nil
}

func (r *wagerResolver) listPending(ctx context.Context, eventID int64) ([]*models.Wager, error) {
	uow := r.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	wagers, err := uow.WagerRepository().ListPendingByEvent(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending wagers: %w", err)
	}
	return wagers, nil
}
