package observability

import (
	"context"
	"testing"
	"time"

	"settler/events"
	"settler/models"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestSettlementMetrics_CountsBusEvents(t *testing.T) {
	metrics := NewSettlementMetrics(prometheus.NewRegistry())
	bus := events.NewBus()
	metrics.Subscribe(bus)

	ctx := context.Background()
	bus.Emit(ctx, events.EventConcludedEvent{EventID: 1, Result: models.SideA, Mode: models.EventModeSimulated})
	bus.Emit(ctx, events.WagerSettledEvent{WagerID: 1, Outcome: models.WagerOutcomeWon})
	bus.Emit(ctx, events.WagerSettledEvent{WagerID: 2, Outcome: models.WagerOutcomeLost})
	bus.Emit(ctx, events.WagerSettledEvent{WagerID: 3, Outcome: models.WagerOutcomeLost})
	bus.Emit(ctx, events.ComboWagerSettledEvent{ComboWagerID: 1, Outcome: models.WagerOutcomeWon})

	assert.Eventually(t, func() bool {
		return testutil.ToFloat64(metrics.wagersSettled.WithLabelValues("wager", "lost")) == 2 &&
			testutil.ToFloat64(metrics.wagersSettled.WithLabelValues("wager", "won")) == 1 &&
			testutil.ToFloat64(metrics.wagersSettled.WithLabelValues("combo_wager", "won")) == 1 &&
			testutil.ToFloat64(metrics.eventsConcluded.WithLabelValues("simulated")) == 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestSettlementMetrics_ObserveScan(t *testing.T) {
	metrics := NewSettlementMetrics(prometheus.NewRegistry())

	report := &models.ScanReport{
		Results: []models.ScanEntry{
			{EventID: 1, Message: "ok"},
			{EventID: 2, Error: "store unavailable"},
			{EventID: 3, Message: "partial", Failures: []models.SettlementFailure{
				{Kind: models.RelatedTypeWager, WagerID: 7, Error: "not found"},
				{Kind: models.RelatedTypeComboWager, WagerID: 8, Error: "not found"},
			}},
		},
	}
	metrics.ObserveScan(report, 1500*time.Millisecond)

	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.settlementFailures.WithLabelValues(StageEvent)))
	assert.Equal(t, float64(2), testutil.ToFloat64(metrics.settlementFailures.WithLabelValues(StageWager)))
	assert.Equal(t, 1, testutil.CollectAndCount(metrics.scanDuration, ScanDurationSeconds))
}

func TestSettlementMetrics_ObserveFailedScan(t *testing.T) {
	metrics := NewSettlementMetrics(prometheus.NewRegistry())

	metrics.ObserveScan(nil, time.Second)

	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.settlementFailures.WithLabelValues(StageEvent)))
}

func TestSettlementMetrics_ObserveSettlement(t *testing.T) {
	metrics := NewSettlementMetrics(prometheus.NewRegistry())

	metrics.ObserveSettlement(&models.EventSettlement{
		Failures: []models.SettlementFailure{{Kind: models.RelatedTypeWager, WagerID: 1, Error: "not found"}},
	}, nil)

	assert.Equal(t, float64(0), testutil.ToFloat64(metrics.settlementFailures.WithLabelValues(StageEvent)))
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.settlementFailures.WithLabelValues(StageWager)))
}
