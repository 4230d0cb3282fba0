package models

// Intervention is a proposed set of parameter reductions/increases at one
// node, with a one-time implementation cost. Reduction percentages are in
// [0,100]; the engine clamps anything beyond.
type Intervention struct {
	NodeID                  string  `json:"node_id" validate:"required"`
	TimeReductionPct        float64 `json:"time_reduction_pct"        validate:"gte=0,lte=100"`
	CostReductionPct        float64 `json:"cost_reduction_pct"        validate:"gte=0,lte=100"`
	ErrorReductionPct       float64 `json:"error_reduction_pct"       validate:"gte=0,lte=100"`
	CapacityIncreasePct     float64 `json:"capacity_increase_pct"     validate:"gte=0"`
	ParallelizationIncrease int     `json:"parallelization_increase"  validate:"gte=0"`
	QueueReductionPct       float64 `json:"queue_reduction_pct"       validate:"gte=0,lte=100"`

	ImplementationCost float64 `json:"implementation_cost" validate:"gte=0"`
}

// MetricDelta is the change in a single tracked metric from baseline to
// optimized.
type MetricDelta struct {
	MetricName        string  `json:"metric_name"`
	BaselineValue     float64 `json:"baseline_value"`
	OptimizedValue    float64 `json:"optimized_value"`
	AbsoluteChange    float64 `json:"absolute_change"`
	RelativeChangePct float64 `json:"relative_change_pct"`
}

// InterventionComparison is the before/after comparison produced by the
// intervention engine. ROIRatio is nil when total implementation cost is
// zero or negative; PaybackMonths is nil when annual savings are not
// positive.
type InterventionComparison struct {
	InterventionsApplied []Intervention `json:"interventions_applied"`
	Deltas               []MetricDelta  `json:"deltas"`

	TimeSavedPct          float64 `json:"time_saved_pct"`
	CostSavedPct          float64 `json:"cost_saved_pct"`
	ThroughputIncreasePct float64 `json:"throughput_increase_pct"`
	ErrorReductionPct     float64 `json:"error_reduction_pct"`

	TotalImplementationCost float64  `json:"total_implementation_cost"`
	AnnualCostSavings       float64  `json:"annual_cost_savings"`
	ROIRatio                *float64 `json:"roi_ratio"`
	PaybackMonths           *float64 `json:"payback_months"`
}

// LeverageRanking is one prioritized (node, parameter) recommendation.
type LeverageRanking struct {
	NodeID         string  `json:"node_id"`
	NodeName       string  `json:"node_name"`
	Parameter      string  `json:"parameter"`
	LeverageScore  float64 `json:"leverage_score"`
	TimeImpactPct  float64 `json:"time_impact_pct"`
	CostImpactPct  float64 `json:"cost_impact_pct"`
	Recommendation string  `json:"recommendation"`
}
