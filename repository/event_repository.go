package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"settler/database"
	"settler/models"
	"settler/service"

	"github.com/jackc/pgx/v5"
)

// EventRepository implements the EventRepository interface
type EventRepository struct {
	q queryable
}

// NewEventRepository creates a new event repository
func NewEventRepository(db *database.DB) *EventRepository {
	return &EventRepository{q: db.Pool}
}

// newEventRepositoryWithTx creates a new event repository with a transaction
func newEventRepositoryWithTx(tx queryable) *EventRepository {
	return &EventRepository{q: tx}
}

const eventColumns = `
	id, side_a, side_b, odds_a, odds_draw, odds_b, state, result, mode,
	scheduled_at, concluded_at, created_at, updated_at`

func scanEvent(row pgx.Row) (*models.Event, error) {
	var event models.Event
	err := row.Scan(
		&event.ID,
		&event.SideAName,
		&event.SideBName,
		&event.OddsA,
		&event.OddsDraw,
		&event.OddsB,
		&event.State,
		&event.Result,
		&event.Mode,
		&event.ScheduledAt,
		&event.ConcludedAt,
		&event.CreatedAt,
		&event.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &event, nil
}

func collectEvents(rows pgx.Rows) ([]*models.Event, error) {
	defer rows.Close()

	var events []*models.Event
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		events = append(events, event)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate events: %w", err)
	}

	return events, nil
}

// Create inserts a new event
func (r *EventRepository) Create(ctx context.Context, event *models.Event) error {
	if event.State == "" {
		event.State = models.EventStateScheduled
	}
	if event.Mode == "" {
		event.Mode = models.EventModeSimulated
	}

	query := `
		INSERT INTO events (side_a, side_b, odds_a, odds_draw, odds_b, state, result, mode, scheduled_at, concluded_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, created_at, updated_at
	`

	err := r.q.QueryRow(ctx, query,
		event.SideAName,
		event.SideBName,
		event.OddsA,
		event.OddsDraw,
		event.OddsB,
		event.State,
		event.Result,
		event.Mode,
		event.ScheduledAt,
		event.ConcludedAt,
	).Scan(&event.ID, &event.CreatedAt, &event.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create event: %w", service.ClassifyStoreError(err))
	}

	return nil
}

// GetByID retrieves an event by its ID
func (r *EventRepository) GetByID(ctx context.Context, id int64) (*models.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE id = $1`

	event, err := scanEvent(r.q.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get event %d: %w", id, service.ClassifyStoreError(err))
	}

	return event, nil
}

// ClaimConclusion moves a scheduled event to concluded. Only one caller can win the claim.
func (r *EventRepository) ClaimConclusion(ctx context.Context, id int64, result models.Side) (bool, error) {
	query := `
		UPDATE events
		SET state = 'concluded', result = $2, concluded_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND state = 'scheduled'
	`

	tag, err := r.q.Exec(ctx, query, id, result)
	if err != nil {
		return false, fmt.Errorf("failed to conclude event %d: %w", id, service.ClassifyStoreError(err))
	}

	return tag.RowsAffected() == 1, nil
}

// ListDue returns simulated events still scheduled at or before now, oldest first
func (r *EventRepository) ListDue(ctx context.Context, now time.Time) ([]*models.Event, error) {
	query := `SELECT ` + eventColumns + `
		FROM events
		WHERE state = 'scheduled' AND mode = 'simulated' AND scheduled_at <= $1
		ORDER BY scheduled_at ASC, id ASC
	`

	rows, err := r.q.Query(ctx, query, now)
	if err != nil {
		return nil, fmt.Errorf("failed to list due events: %w", service.ClassifyStoreError(err))
	}

	return collectEvents(rows)
}

// ListConcludedWithPendingWagers returns concluded events that still have pending single wagers
func (r *EventRepository) ListConcludedWithPendingWagers(ctx context.Context) ([]*models.Event, error) {
	query := `SELECT ` + eventColumns + `
		FROM events e
		WHERE e.state = 'concluded'
		  AND (
			EXISTS (SELECT 1 FROM wagers w WHERE w.event_id = e.id AND w.outcome = 'pending')
			OR EXISTS (
				SELECT 1 FROM combo_legs l
				JOIN combo_wagers c ON c.id = l.combo_wager_id
				WHERE l.event_id = e.id AND c.outcome = 'pending'
				  AND NOT EXISTS (
					SELECT 1 FROM combo_legs ol
					JOIN events oe ON oe.id = ol.event_id
					WHERE ol.combo_wager_id = c.id AND oe.state <> 'concluded'
				  )
			)
		  )
		ORDER BY e.concluded_at ASC NULLS FIRST, e.id ASC
	`

	rows, err := r.q.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list concluded events with pending wagers: %w", service.ClassifyStoreError(err))
	}

	return collectEvents(rows)
}
