package observability

// Metric name prefix
const (
	MetricPrefix = "settler"
)

// Metric names
const (
	WagersSettledTotal      = MetricPrefix + "_wagers_settled_total"
	SettlementFailuresTotal = MetricPrefix + "_settlement_failures_total"
	ScanDurationSeconds     = MetricPrefix + "_scan_duration_seconds"
	EventsConcludedTotal    = MetricPrefix + "_events_concluded_total"
)

// Label keys
const (
	LabelKind    = "kind"
	LabelOutcome = "outcome"
	LabelMode    = "mode"
	LabelStage   = "stage"
)

// Failure stages
const (
	StageEvent = "event" // the event itself could not be simulated or settled
	StageWager = "wager" // one wager or combo under a settled event failed
)
