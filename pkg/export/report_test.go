package export

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/flowlens/flowlens/pkg/models"
)

func sampleResults() *models.SimulationResults {
	return &models.SimulationResults{
		Config:       models.SimulationConfig{Mode: models.ModeDeterministic},
		WorkflowName: "invoices",

		TotalTransactions:     10000,
		CompletedTransactions: 9500,
		FailedTransactions:    400,
		DroppedTransactions:   100,

		AvgTotalTime:      42.5,
		P50TotalTime:      40.0,
		P95TotalTime:      55.25,
		P99TotalTime:      68.0,
		AvgTotalCost:      1.25,
		TotalCost:         11875.0,
		ThroughputPerHour: 84.7,

		NodeMetrics: []*models.NodeMetrics{
			{NodeID: "validate", NodeName: "Validate", AvgTime: 1.5, AvgCost: 0.01, TransactionsProcessed: 10000, BottleneckScore: 0.1},
			{NodeID: "review", NodeName: "Manual Review", AvgTime: 38.0, AvgCost: 1.2, TransactionsProcessed: 9600, TransactionsErrored: 400, Utilization: 0.92, BottleneckScore: 0.85},
			{NodeID: "idle", NodeName: "Idle", TransactionsProcessed: 0},
		},

		Bottlenecks: []models.BottleneckInfo{
			{NodeID: "review", NodeName: "Manual Review", Score: 0.85, Reason: "high utilization", TimeContributionPct: 89.4},
		},
	}
}

func TestFormatSimulationReport(t *testing.T) {
	t.Parallel()

	report := FormatSimulationReport(sampleResults())

	assert.Contains(t, report, "Simulation Summary")
	assert.Contains(t, report, "Time Metrics")
	assert.Contains(t, report, "Cost Metrics")
	assert.Contains(t, report, "Node Metrics")
	assert.Contains(t, report, "Bottlenecks (Top)")

	assert.Contains(t, report, "invoices")
	assert.Contains(t, report, "deterministic")
	assert.Contains(t, report, "10,000")
	assert.Contains(t, report, "9,500")
	assert.Contains(t, report, "42.50s")
	assert.Contains(t, report, "$1.2500")
	assert.Contains(t, report, "84.7 tx/hr")
	assert.Contains(t, report, "high utilization")

	// Unvisited nodes are omitted from the node table.
	assert.NotContains(t, report, "Idle")

	// Highest bottleneck score sorts first in the node table.
	reviewIdx := strings.Index(report, "Manual Review")
	validateIdx := strings.Index(report, "Validate")
	assert.Less(t, reviewIdx, validateIdx)
}

func TestFormatSimulationReportWithoutNodes(t *testing.T) {
	t.Parallel()

	results := sampleResults()
	results.NodeMetrics = nil
	results.Bottlenecks = nil

	report := FormatSimulationReport(results)

	assert.NotContains(t, report, "Node Metrics")
	assert.NotContains(t, report, "Bottlenecks")
}

func TestFormatComparisonReport(t *testing.T) {
	t.Parallel()

	roi := 12.5
	payback := 0.96
	comparison := &models.InterventionComparison{
		Deltas: []models.MetricDelta{
			{MetricName: "avg_total_time", BaselineValue: 42.5, OptimizedValue: 30.0, AbsoluteChange: -12.5, RelativeChangePct: -29.41},
		},
		TimeSavedPct:            29.4,
		CostSavedPct:            10.0,
		ThroughputIncreasePct:   5.5,
		TotalImplementationCost: 5000,
		AnnualCostSavings:       62500,
		ROIRatio:                &roi,
		PaybackMonths:           &payback,
	}

	report := FormatComparisonReport(comparison)

	assert.Contains(t, report, "Baseline vs. Optimized")
	assert.Contains(t, report, "ROI Summary")
	assert.Contains(t, report, "avg_total_time")
	assert.Contains(t, report, "29.4%")
	assert.Contains(t, report, "$5000.00")
	assert.Contains(t, report, "$62500.00")
	assert.Contains(t, report, "12.5x")
	assert.Contains(t, report, "1.0 months")
}

func TestFormatComparisonReportSkipsNilROI(t *testing.T) {
	t.Parallel()

	report := FormatComparisonReport(&models.InterventionComparison{})

	assert.NotContains(t, report, "ROI Ratio")
	assert.NotContains(t, report, "Payback Period")
}

func TestFormatLeverageReport(t *testing.T) {
	t.Parallel()

	rankings := []models.LeverageRanking{
		{NodeID: "review", NodeName: "Manual Review", Parameter: "exec_time_mean", LeverageScore: 1.0, TimeImpactPct: 9.2, CostImpactPct: 0.4, Recommendation: "Reduce processing time"},
		{NodeID: "pay", NodeName: "Payment", Parameter: "cost_per_transaction", LeverageScore: 0.3, CostImpactPct: 4.1, Recommendation: "Reduce per-transaction cost"},
	}

	report := FormatLeverageReport(rankings)

	assert.Contains(t, report, "Highest Marginal Leverage Nodes")
	assert.Contains(t, report, "  1  Manual Review")
	assert.Contains(t, report, "  2  Payment")
	assert.Contains(t, report, "exec_time_mean")
	assert.Contains(t, report, "Reduce processing time")
}

func TestTruncateLongNames(t *testing.T) {
	t.Parallel()

	long := strings.Repeat("x", 40)
	out := truncate(long, 24)

	assert.Len(t, []rune(out), 24)
	assert.True(t, strings.HasSuffix(out, "…"))
}
