package service

import (
	"fmt"
	"math/rand"

	"settler/models"
)

// RandomSource yields uniform values in [0, 1). *rand.Rand satisfies it.
type RandomSource interface {
	Float64() float64
}

// globalSource draws from the goroutine-safe package-level generator
type globalSource struct{}

func (globalSource) Float64() float64 {
	return rand.Float64()
}

// outcomeSimulator implements OutcomeSimulator
type outcomeSimulator struct {
	random RandomSource
}

// NewOutcomeSimulator creates a simulator backed by the package-level generator
func NewOutcomeSimulator() OutcomeSimulator {
	return &outcomeSimulator{random: globalSource{}}
}

// NewOutcomeSimulatorWithSource creates a simulator backed by the given source
func NewOutcomeSimulatorWithSource(random RandomSource) OutcomeSimulator {
	return &outcomeSimulator{random: random}
}

// Probabilities are the chances of each side implied by an event's odds
type Probabilities struct {
	SideA float64
	Draw  float64
	SideB float64
}

// ImpliedProbabilities weights each side by the opposing side's odds.
// The longer the odds against a side, the likelier that side is.
func ImpliedProbabilities(event *models.Event) (Probabilities, error) {
	if event.OddsA <= 1.0 || event.OddsDraw <= 1.0 || event.OddsB <= 1.0 {
		return Probabilities{}, fmt.Errorf("event %d has odds at or below 1.0: %w", event.ID, ErrInvalidState)
	}

	total := event.OddsA + event.OddsDraw + event.OddsB
	probs := Probabilities{
		SideA: event.OddsB / total,
		Draw:  event.OddsDraw / total,
	}
	probs.SideB = 1 - probs.SideA - probs.Draw

	return probs, nil
}

// Simulate draws a result for a scheduled, simulated event
func (s *outcomeSimulator) Simulate(event *models.Event) (models.Side, error) {
	if !event.IsScheduled() {
		return "", fmt.Errorf("event %d is %s: %w", event.ID, event.State, ErrInvalidState)
	}
	if !event.IsSimulated() {
		return "", fmt.Errorf("event %d is not simulated: %w", event.ID, ErrInvalidState)
	}

	probs, err := ImpliedProbabilities(event)
	if err != nil {
		return "", err
	}

	return pickSide(probs, s.random.Float64()), nil
}

// pickSide maps a uniform value onto cumulative thresholds in the order A, Draw, B
func pickSide(probs Probabilities, value float64) models.Side {
	switch {
	case value < probs.SideA:
		return models.SideA
	case value < probs.SideA+probs.Draw:
		return models.SideDraw
	default:
		return models.SideB
	}
}
