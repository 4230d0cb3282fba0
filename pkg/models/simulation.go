package models

// SimulationMode selects between the two simulation engines.
type SimulationMode string

const (
	ModeDeterministic SimulationMode = "deterministic"
	ModeMonteCarlo    SimulationMode = "monte_carlo"
)

// SimulationConfig is the run configuration shared by both engines.
type SimulationConfig struct {
	Mode            SimulationMode `json:"mode"             validate:"required,oneof=deterministic monte_carlo"`
	NumTransactions int            `json:"num_transactions" validate:"gte=1"`
	Seed            int64          `json:"seed"`
	BatchSize       int            `json:"batch_size,omitempty"`
	VolumePerHour   float64        `json:"volume_per_hour"  validate:"gte=0"`
}

// NodeMetrics carries the aggregated per-node outcome of a simulation run.
type NodeMetrics struct {
	NodeID   string `json:"node_id"`
	NodeName string `json:"node_name"`

	AvgTime               float64 `json:"avg_time"`
	P50Time               float64 `json:"p50_time"`
	P95Time               float64 `json:"p95_time"`
	P99Time               float64 `json:"p99_time"`
	TotalTimeContribution float64 `json:"total_time_contribution"`

	AvgCost   float64 `json:"avg_cost"`
	TotalCost float64 `json:"total_cost"`

	TransactionsProcessed int `json:"transactions_processed"`
	TransactionsErrored   int `json:"transactions_errored"`
	TransactionsDropped   int `json:"transactions_dropped"`
	TransactionsRetried   int `json:"transactions_retried"`

	Utilization float64 `json:"utilization"`
	QueueTime   float64 `json:"queue_time"`

	BottleneckScore float64 `json:"bottleneck_score"`
}

// BottleneckInfo describes one ranked friction point.
type BottleneckInfo struct {
	NodeID              string  `json:"node_id"`
	NodeName            string  `json:"node_name"`
	Score               float64 `json:"score"`
	Reason              string  `json:"reason"`
	Utilization         float64 `json:"utilization"`
	AvgQueueTime        float64 `json:"avg_queue_time"`
	TimeContributionPct float64 `json:"time_contribution_pct"`
}

// SensitivityEntry records the measured impact of one parameter perturbation
// on one system metric.
type SensitivityEntry struct {
	NodeID            string  `json:"node_id"`
	Parameter         string  `json:"parameter"`
	BaselineValue     float64 `json:"baseline_value"`
	PerturbedValue    float64 `json:"perturbed_value"`
	MetricName        string  `json:"metric_name"`
	BaselineMetric    float64 `json:"baseline_metric"`
	PerturbedMetric   float64 `json:"perturbed_metric"`
	AbsoluteImpact    float64 `json:"absolute_impact"`
	RelativeImpactPct float64 `json:"relative_impact_pct"`
}

// SensitivityReport is the full output of a sensitivity analysis.
type SensitivityReport struct {
	Entries         []SensitivityEntry `json:"entries"`
	PerturbationPct float64            `json:"perturbation_pct"`
}

// SimulationResults is the complete outcome of one simulation run.
type SimulationResults struct {
	Config       SimulationConfig `json:"config"`
	WorkflowName string           `json:"workflow_name"`

	TotalTransactions     int `json:"total_transactions"`
	CompletedTransactions int `json:"completed_transactions"`
	FailedTransactions    int `json:"failed_transactions"`
	DroppedTransactions   int `json:"dropped_transactions"`

	AvgTotalTime float64 `json:"avg_total_time"`
	P50TotalTime float64 `json:"p50_total_time"`
	P95TotalTime float64 `json:"p95_total_time"`
	P99TotalTime float64 `json:"p99_total_time"`
	MinTotalTime float64 `json:"min_total_time"`
	MaxTotalTime float64 `json:"max_total_time"`

	AvgTotalCost float64 `json:"avg_total_cost"`
	TotalCost    float64 `json:"total_cost"`

	ThroughputPerHour    float64 `json:"throughput_per_hour"`
	MaxThroughputPerHour float64 `json:"max_throughput_per_hour"`

	NodeMetrics []*NodeMetrics `json:"node_metrics"`

	Bottlenecks []BottleneckInfo `json:"bottlenecks"`

	Sensitivity *SensitivityReport `json:"sensitivity,omitempty"`
}

// GetNodeMetrics returns metrics for a specific node, or nil.
func (r *SimulationResults) GetNodeMetrics(nodeID string) *NodeMetrics {
	for _, nm := range r.NodeMetrics {
		if nm.NodeID == nodeID {
			return nm
		}
	}

	return nil
}
