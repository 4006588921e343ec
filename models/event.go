package models

import "time"

// Side identifies one of the three possible results of an event
type Side string

const (
	SideA    Side = "A"
	SideDraw Side = "Draw"
	SideB    Side = "B"
)

// Valid reports whether s is one of the known sides
func (s Side) Valid() bool {
	switch s {
	case SideA, SideDraw, SideB:
		return true
	}
	return false
}

// EventState represents the lifecycle state of an event
type EventState string

const (
	EventStateScheduled EventState = "scheduled"
	EventStateConcluded EventState = "concluded"
)

// EventMode represents how an event's result is obtained
type EventMode string

const (
	EventModeSimulated EventMode = "simulated"
	EventModeReported  EventMode = "reported"
)

// Event represents a sporting event wagers are placed against
type Event struct {
	ID          int64      `db:"id"`
	SideAName   string     `db:"side_a"`
	SideBName   string     `db:"side_b"`
	OddsA       float64    `db:"odds_a"`
	OddsDraw    float64    `db:"odds_draw"`
	OddsB       float64    `db:"odds_b"`
	State       EventState `db:"state"`
	Result      *Side      `db:"result"` // nil while scheduled
	Mode        EventMode  `db:"mode"`
	ScheduledAt time.Time  `db:"scheduled_at"`
	ConcludedAt *time.Time `db:"concluded_at"`
	CreatedAt   time.Time  `db:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at"`
}

// IsScheduled returns true if the event has not been concluded yet
func (e *Event) IsScheduled() bool {
	return e.State == EventStateScheduled
}

// IsConcluded returns true if the event has a recorded result
func (e *Event) IsConcluded() bool {
	return e.State == EventStateConcluded && e.Result != nil
}

// IsSimulated returns true if the event's result is drawn by the simulator
func (e *Event) IsSimulated() bool {
	return e.Mode == EventModeSimulated
}

// IsDue returns true if a scheduled event's start time has passed
func (e *Event) IsDue(now time.Time) bool {
	return e.IsScheduled() && !e.ScheduledAt.After(now)
}
