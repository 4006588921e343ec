package models

import (
	"encoding/json"
	"time"
)

// Settlement is a single outcome transition handed to the ledger: the wager's
// new outcome plus the amounts to credit to its owner.
type Settlement struct {
	Kind          RelatedType
	WagerID       int64
	UserID        int64
	EventID       int64 // zero for combo wagers
	Outcome       WagerOutcome
	PrimaryCredit int64
	PremiumCredit int64
}

// Won returns true if the settlement credits the user
func (s *Settlement) Won() bool {
	return s.Outcome == WagerOutcomeWon
}

// TransactionType returns the balance history type recorded for a winning settlement
func (s *Settlement) TransactionType() TransactionType {
	if s.Kind == RelatedTypeComboWager {
		return TransactionTypeComboWagerWin
	}
	return TransactionTypeWagerWin
}

// SettlementFailure records a wager that could not be settled
type SettlementFailure struct {
	Kind    RelatedType `json:"kind"`
	WagerID int64       `json:"wagerId"`
	Error   string      `json:"error"`
}

// ComboOutcome is the result of evaluating one combo wager
type ComboOutcome string

const (
	ComboSkipped ComboOutcome = "skipped" // not pending any more
	ComboPending ComboOutcome = "pending" // some leg's event has not concluded
	ComboWon     ComboOutcome = "won"
	ComboLost    ComboOutcome = "lost"
)

// IsSettled returns true if the evaluation transitioned the combo
func (o ComboOutcome) IsSettled() bool {
	return o == ComboWon || o == ComboLost
}

// WagerResolution summarises settling the single wagers of one event
type WagerResolution struct {
	Settled  int
	Won      int
	Lost     int
	Skipped  int
	Failures []SettlementFailure
}

// EventSettlement summarises settling one event and everything that depends on it
type EventSettlement struct {
	EventID        int64               `json:"eventId"`
	Result         Side                `json:"result"`
	Settled        int                 `json:"settled"`
	Won            int                 `json:"won"`
	Lost           int                 `json:"lost"`
	Skipped        int                 `json:"skipped"`
	CombosSettled  int                 `json:"combosSettled"`
	CombosPending  int                 `json:"combosPending"`
	Failures       []SettlementFailure `json:"failures,omitempty"`
	AlreadySettled bool                `json:"alreadySettled"`
	Message        string              `json:"message"`
}

// ScanEntry is one line of a scan report. Exactly one of Message or Error is set.
type ScanEntry struct {
	EventID  int64               `json:"eventId"`
	Result   Side                `json:"result,omitempty"`
	Settled  int                 `json:"settledCount"`
	Message  string              `json:"message,omitempty"`
	Error    string              `json:"error,omitempty"`
	Resumed  bool                `json:"resumed,omitempty"`
	Failures []SettlementFailure `json:"failures,omitempty"`
}

// MarshalJSON leaves settledCount off error entries that settled nothing,
// so a failed event serializes as {eventId, error}.
func (e ScanEntry) MarshalJSON() ([]byte, error) {
	type entry ScanEntry
	out := struct {
		entry
		Settled *int `json:"settledCount,omitempty"`
	}{entry: entry(e)}
	if e.Error == "" || e.Settled > 0 {
		out.Settled = &e.Settled
	}
	return json.Marshal(out)
}

// ScanReport is the outcome of one pass over due events
type ScanReport struct {
	RunID     string      `json:"runId"`
	Results   []ScanEntry `json:"results"`
	Timestamp time.Time   `json:"timestamp"`
}

// Failed returns the number of entries that carry an error
func (r *ScanReport) Failed() int {
	count := 0
	for _, entry := range r.Results {
		if entry.Error != "" {
			count++
		}
	}
	return count
}
