package models

import "time"

// ComboWager represents a multi-leg wager that wins only if every leg wins
type ComboWager struct {
	ID               int64        `db:"id"`
	UserID           int64        `db:"user_id"`
	Stake            int64        `db:"stake"`
	TotalOdds        float64      `db:"total_odds"` // product of leg odds
	Currency         Currency     `db:"currency"`
	PotentialWin     *int64       `db:"potential_win"`
	PotentialPremium *int64       `db:"potential_premium"`
	Outcome          WagerOutcome `db:"outcome"`
	PrimaryWon       int64        `db:"primary_won"`
	PremiumWon       int64        `db:"premium_won"`
	SettledAt        *time.Time   `db:"settled_at"`
	CreatedAt        time.Time    `db:"created_at"`
}

// IsPending returns true if the combo wager has not been settled
func (c *ComboWager) IsPending() bool {
	return c.Outcome == WagerOutcomePending
}

// ComboLeg is one event selection inside a combo wager
type ComboLeg struct {
	ID           int64     `db:"id"`
	ComboWagerID int64     `db:"combo_wager_id"`
	EventID      int64     `db:"event_id"`
	Choice       Side      `db:"choice"`
	Odds         float64   `db:"odds"`
	CreatedAt    time.Time `db:"created_at"`
}

// ComboLegWithEvent is a leg joined with the current state of its event
type ComboLegWithEvent struct {
	ComboLeg
	EventState  EventState `db:"event_state"`
	EventResult *Side      `db:"event_result"`
}

// IsDecided returns true if the leg's event has concluded
func (l *ComboLegWithEvent) IsDecided() bool {
	return l.EventState == EventStateConcluded && l.EventResult != nil
}

// IsCorrect returns true if the leg's event concluded with the chosen side
func (l *ComboLegWithEvent) IsCorrect() bool {
	return l.IsDecided() && *l.EventResult == l.Choice
}
