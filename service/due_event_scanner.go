package service

import (
	"context"
	"fmt"
	"time"

	"settler/models"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// dueEventScanner implements DueEventScanner
type dueEventScanner struct {
	uowFactory UnitOfWorkFactory
	simulator  OutcomeSimulator
	settlement SettlementService
}

// NewDueEventScanner creates a new scanner. It holds no state between runs.
func NewDueEventScanner(uowFactory UnitOfWorkFactory, simulator OutcomeSimulator, settlement SettlementService) DueEventScanner {
	return &dueEventScanner{
		uowFactory: uowFactory,
		simulator:  simulator,
		settlement: settlement,
	}
}

// ProcessDueEvents simulates and settles every simulated event due at now, then resumes
// concluded events that still have pending wagers. A failing event is reported and
// never stops the rest of the scan.
func (s *dueEventScanner) ProcessDueEvents(ctx context.Context, now time.Time) (*models.ScanReport, error) {
	report := &models.ScanReport{
		RunID:     uuid.NewString(),
		Results:   []models.ScanEntry{},
		Timestamp: now,
	}
	logger := log.WithField("runID", report.RunID)

	due, err := s.listDue(ctx, now)
	if err != nil {
		return nil, err
	}

	processed := make(map[int64]bool, len(due))
	for _, event := range due {
		if err := ctx.Err(); err != nil {
			return report, fmt.Errorf("scan interrupted: %w", err)
		}
		processed[event.ID] = true
		report.Results = append(report.Results, s.processEvent(ctx, event))
	}

	stranded, err := s.listStranded(ctx)
	if err != nil {
		// The due pass already ran; report it and let the next scan retry recovery
		logger.WithError(err).Warn("Failed to list events with pending wagers")
	}
	for _, event := range stranded {
		if processed[event.ID] {
			continue
		}
		if err := ctx.Err(); err != nil {
			return report, fmt.Errorf("scan interrupted: %w", err)
		}
		report.Results = append(report.Results, s.resumeEvent(ctx, event))
	}

	logger.WithFields(log.Fields{
		"due":      len(due),
		"entries":  len(report.Results),
		"failures": report.Failed(),
	}).Info("Due event scan completed")

	return report, nil
}

func (s *dueEventScanner) processEvent(ctx context.Context, event *models.Event) models.ScanEntry {
	entry := models.ScanEntry{EventID: event.ID}

	result, err := s.simulator.Simulate(event)
	if err != nil {
		entry.Error = err.Error()
		return entry
	}
	entry.Result = result

	settlement, err := s.settlement.SettleEvent(ctx, event.ID, result)
	if settlement != nil {
		entry.Settled = settlement.Settled
		entry.Message = settlement.Message
		entry.Failures = settlement.Failures
		if settlement.AlreadySettled {
			entry.Result = settlement.Result
		}
	}
	if err != nil {
		log.WithFields(log.Fields{
			"eventID": event.ID,
			"error":   err,
		}).Error("Failed to settle due event")
		entry.Message = ""
		entry.Error = err.Error()
	}

	return entry
}

func (s *dueEventScanner) resumeEvent(ctx context.Context, event *models.Event) models.ScanEntry {
	entry := models.ScanEntry{EventID: event.ID, Resumed: true}
	if event.Result != nil {
		entry.Result = *event.Result
	}

	settlement, err := s.settlement.ResumeEvent(ctx, event.ID)
	if settlement != nil {
		entry.Settled = settlement.Settled
		entry.Message = settlement.Message
		entry.Failures = settlement.Failures
	}
	if err != nil {
		log.WithFields(log.Fields{
			"eventID": event.ID,
			"error":   err,
		}).Error("Failed to resume concluded event")
		entry.Message = ""
		entry.Error = err.Error()
	}

	return entry
}

func (s *dueEventScanner) listDue(ctx context.Context, now time.Time) ([]*models.Event, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	due, err := uow.EventRepository().ListDue(ctx, now)
	if err != nil {
		return nil, fmt.Errorf("failed to list due events: %w", err)
	}
	return due, nil
}

func (s *dueEventScanner) listStranded(ctx context.Context) ([]*models.Event, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	return uow.EventRepository().ListConcludedWithPendingWagers(ctx)
}
