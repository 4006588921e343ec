package service

import (
	"context"
	"fmt"

	"settler/events"
	"settler/models"

	log "github.com/sirupsen/logrus"
)

// settlementService implements SettlementService
type settlementService struct {
	uowFactory UnitOfWorkFactory
	wagers     WagerResolver
	combos     ComboResolver
}

// NewSettlementService creates the settlement orchestrator
func NewSettlementService(uowFactory UnitOfWorkFactory, wagers WagerResolver, combos ComboResolver) SettlementService {
	return &settlementService{
		uowFactory: uowFactory,
		wagers:     wagers,
		combos:     combos,
	}
}

// SettleEvent claims a scheduled event with its result, then settles its single
// wagers and every combo with a leg on it. Only the caller that wins the claim
// runs the resolvers; later callers get an AlreadySettled summary.
func (s *settlementService) SettleEvent(ctx context.Context, eventID int64, result models.Side) (*models.EventSettlement, error) {
	if !result.Valid() {
		return nil, fmt.Errorf("unknown result %q: %w", result, ErrInvalidState)
	}

	event, claimed, err := s.claim(ctx, eventID, result)
	if err != nil {
		return nil, err
	}

	if !claimed {
		settlement := &models.EventSettlement{
			EventID:        eventID,
			AlreadySettled: true,
			Message:        "event already concluded",
		}
		if event.Result != nil {
			settlement.Result = *event.Result
		}
		return settlement, nil
	}

	log.WithFields(log.Fields{
		"eventID": eventID,
		"result":  result,
		"mode":    event.Mode,
	}).Info("Event concluded")

	return s.settleDependents(ctx, event)
}

// ResumeEvent settles wagers and combos still pending on an event that is already concluded
func (s *settlementService) ResumeEvent(ctx context.Context, eventID int64) (*models.EventSettlement, error) {
	event, err := s.loadEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if !event.IsConcluded() {
		return nil, fmt.Errorf("event %d is not concluded: %w", eventID, ErrInvalidState)
	}

	return s.settleDependents(ctx, event)
}

func (s *settlementService) loadEvent(ctx context.Context, eventID int64) (*models.Event, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	event, err := uow.EventRepository().GetByID(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to load event: %w", err)
	}
	if event == nil {
		return nil, fmt.Errorf("event %d: %w", eventID, ErrNotFound)
	}
	return event, nil
}

// claim concludes the event in its own transaction. The returned event reflects the
// stored row; claimed is false if another caller concluded it first.
func (s *settlementService) claim(ctx context.Context, eventID int64, result models.Side) (*models.Event, bool, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	claimed, err := uow.EventRepository().ClaimConclusion(ctx, eventID, result)
	if err != nil {
		return nil, false, fmt.Errorf("failed to claim event: %w", err)
	}

	event, err := uow.EventRepository().GetByID(ctx, eventID)
	if err != nil {
		return nil, false, fmt.Errorf("failed to load event: %w", err)
	}
	if event == nil {
		return nil, false, fmt.Errorf("event %d: %w", eventID, ErrNotFound)
	}

	if !claimed {
		return event, false, nil
	}

	uow.EventBus().Publish(events.EventConcludedEvent{
		EventID: eventID,
		Result:  result,
		Mode:    event.Mode,
	})

	if err := uow.Commit(); err != nil {
		return nil, false, fmt.Errorf("failed to commit event conclusion: %w", err)
	}

	return event, true, nil
}

// settleDependents runs the single-wager resolver and then every affected combo
func (s *settlementService) settleDependents(ctx context.Context, event *models.Event) (*models.EventSettlement, error) {
	settlement := &models.EventSettlement{
		EventID: event.ID,
		Result:  *event.Result,
	}

	resolution, err := s.wagers.ResolveEvent(ctx, event)
	if resolution != nil {
		settlement.Settled = resolution.Settled
		settlement.Won = resolution.Won
		settlement.Lost = resolution.Lost
		settlement.Skipped = resolution.Skipped
		settlement.Failures = append(settlement.Failures, resolution.Failures...)
	}
	if err != nil {
		return settlement, fmt.Errorf("failed to resolve wagers for event %d: %w", event.ID, err)
	}

	comboIDs, err := s.listAffectedCombos(ctx, event.ID)
	if err != nil {
		return settlement, err
	}

	for _, comboID := range comboIDs {
		outcome, err := s.combos.SettleCombo(ctx, comboID)
		if err != nil {
			log.WithFields(log.Fields{
				"eventID": event.ID,
				"comboID": comboID,
				"error":   err,
			}).Warn("Failed to settle combo wager")
			settlement.Failures = append(settlement.Failures, models.SettlementFailure{
				Kind:    models.RelatedTypeComboWager,
				WagerID: comboID,
				Error:   err.Error(),
			})
			continue
		}

		switch {
		case outcome.IsSettled():
			settlement.CombosSettled++
		case outcome == models.ComboPending:
			settlement.CombosPending++
		}
	}

	settlement.Message = fmt.Sprintf("%d wagers settled (%d won, %d lost), %d combos settled, %d combos pending",
		settlement.Settled, settlement.Won, settlement.Lost, settlement.CombosSettled, settlement.CombosPending)
	if len(settlement.Failures) > 0 {
		settlement.Message += fmt.Sprintf(", %d failed", len(settlement.Failures))
	}

	log.WithFields(log.Fields{
		"eventID":       event.ID,
		"result":        settlement.Result,
		"settled":       settlement.Settled,
		"won":           settlement.Won,
		"lost":          settlement.Lost,
		"skipped":       settlement.Skipped,
		"combosSettled": settlement.CombosSettled,
		"combosPending": settlement.CombosPending,
		"failures":      len(settlement.Failures),
	}).Info("Event settlement completed")

	return settlement, nil
}

func (s *settlementService) listAffectedCombos(ctx context.Context, eventID int64) ([]int64, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	ids, err := uow.ComboWagerRepository().ListPendingIDsByEvent(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to list affected combos: %w", err)
	}
	return ids, nil
}
