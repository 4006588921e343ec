package observability

import (
	"context"
	"time"

	"settler/events"
	"settler/models"

	"github.com/prometheus/client_golang/prometheus"
)

// SettlementMetrics records settlement counters and scan timings for Prometheus
type SettlementMetrics struct {
	wagersSettled      *prometheus.CounterVec
	settlementFailures *prometheus.CounterVec
	scanDuration       prometheus.Histogram
	eventsConcluded    *prometheus.CounterVec
}

// NewSettlementMetrics creates the collectors and registers them with reg
func NewSettlementMetrics(reg prometheus.Registerer) *SettlementMetrics {
	m := &SettlementMetrics{
		wagersSettled: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: WagersSettledTotal,
			Help: "Wagers moved out of pending, by wager kind and outcome.",
		}, []string{LabelKind, LabelOutcome}),
		settlementFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: SettlementFailuresTotal,
			Help: "Settlement failures, by the stage that failed.",
		}, []string{LabelStage}),
		scanDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    ScanDurationSeconds,
			Help:    "Duration of due event scans.",
			Buckets: prometheus.DefBuckets,
		}),
		eventsConcluded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: EventsConcludedTotal,
			Help: "Events concluded, by how their result was produced.",
		}, []string{LabelMode}),
	}

	reg.MustRegister(m.wagersSettled, m.settlementFailures, m.scanDuration, m.eventsConcluded)
	return m
}

// Subscribe counts committed settlements as they are emitted on the bus
func (m *SettlementMetrics) Subscribe(bus *events.Bus) {
	bus.Subscribe(events.EventTypeEventConcluded, func(ctx context.Context, event events.Event) {
		if e, ok := event.(events.EventConcludedEvent); ok {
			m.eventsConcluded.WithLabelValues(string(e.Mode)).Inc()
		}
	})
	bus.Subscribe(events.EventTypeWagerSettled, func(ctx context.Context, event events.Event) {
		if e, ok := event.(events.WagerSettledEvent); ok {
			m.wagersSettled.WithLabelValues(string(models.RelatedTypeWager), string(e.Outcome)).Inc()
		}
	})
	bus.Subscribe(events.EventTypeComboWagerSettled, func(ctx context.Context, event events.Event) {
		if e, ok := event.(events.ComboWagerSettledEvent); ok {
			m.wagersSettled.WithLabelValues(string(models.RelatedTypeComboWager), string(e.Outcome)).Inc()
		}
	})
}

// ObserveScan records how long a scan took and how many of its parts failed
func (m *SettlementMetrics) ObserveScan(report *models.ScanReport, elapsed time.Duration) {
	m.scanDuration.Observe(elapsed.Seconds())
	if report == nil {
		m.settlementFailures.WithLabelValues(StageEvent).Inc()
		return
	}

	for _, entry := range report.Results {
		if entry.Error != "" {
			m.settlementFailures.WithLabelValues(StageEvent).Inc()
		}
		if n := len(entry.Failures); n > 0 {
			m.settlementFailures.WithLabelValues(StageWager).Add(float64(n))
		}
	}
}

// ObserveSettlement records the wager failures of a single event settlement
func (m *SettlementMetrics) ObserveSettlement(settlement *models.EventSettlement, err error) {
	if err != nil {
		m.settlementFailures.WithLabelValues(StageEvent).Inc()
	}
	if settlement != nil && len(settlement.Failures) > 0 {
		m.settlementFailures.WithLabelValues(StageWager).Add(float64(len(settlement.Failures)))
	}
}
