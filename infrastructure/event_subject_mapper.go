package infrastructure

import (
	"fmt"

	"settler/events"
)

// SettlementStream is the JetStream stream holding every subject the settler publishes
const SettlementStream = "settlement_events"

// EventSubjectMapper handles mapping between domain events and NATS subjects
type EventSubjectMapper struct{}

// NewEventSubjectMapper creates a new event subject mapper
func NewEventSubjectMapper() *EventSubjectMapper {
	return &EventSubjectMapper{}
}

// MapEventToSubject converts a domain event to its corresponding NATS subject
func (m *EventSubjectMapper) MapEventToSubject(event events.Event) string {
	switch event.Type() {
	case events.EventTypeEventConcluded:
		return "event.concluded"
	case events.EventTypeWagerSettled:
		return "wager.settled"
	case events.EventTypeComboWagerSettled:
		return "combo_wager.settled"
	case events.EventTypeBalanceChange:
		return "balance.changed"
	default:
		return fmt.Sprintf("unknown.%s", event.Type())
	}
}

// GetAllSubjects returns all subjects that this service publishes to
func (m *EventSubjectMapper) GetAllSubjects() []string {
	return []string{
		"event.concluded",
		"wager.settled",
		"combo_wager.settled",
		"balance.changed",
	}
}
