package models

import (
	"time"
)

// Currency identifies which balance a wager was staked from
type Currency string

const (
	CurrencyPrimary Currency = "primary"
	CurrencyPremium Currency = "premium"
)

// WagerOutcome represents the settlement outcome of a wager
type WagerOutcome string

const (
	WagerOutcomePending WagerOutcome = "pending"
	WagerOutcomeWon     WagerOutcome = "won"
	WagerOutcomeLost    WagerOutcome = "lost"
)

// Wager represents a single bet on one side of one event
type Wager struct {
	ID               int64        `db:"id"`
	UserID           int64        `db:"user_id"`
	EventID          int64        `db:"event_id"`
	Stake            int64        `db:"stake"`
	Choice           Side         `db:"choice"`
	Odds             float64      `db:"odds"` // snapshot at placement
	Currency         Currency     `db:"currency"`
	PotentialWin     *int64       `db:"potential_win"`     // nil on rows written before potentials were stored
	PotentialPremium *int64       `db:"potential_premium"` // nil on rows written before potentials were stored
	Outcome          WagerOutcome `db:"outcome"`
	PrimaryWon       int64        `db:"primary_won"`
	PremiumWon       int64        `db:"premium_won"`
	SettledAt        *time.Time   `db:"settled_at"`
	CreatedAt        time.Time    `db:"created_at"`
}

// IsPending returns true if the wager has not been settled
func (w *Wager) IsPending() bool {
	return w.Outcome == WagerOutcomePending
}

// WinsOn reports whether the wager wins for the given event result
func (w *Wager) WinsOn(result Side) bool {
	return w.Choice == result
}
