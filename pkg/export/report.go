package export

import (
	"fmt"
	"sort"
	"strings"

	"github.com/flowlens/flowlens/pkg/models"
)

const reportWidth = 100

// FormatSimulationReport renders a simulation run as a plain-text report
// suitable for terminals and log files.
func FormatSimulationReport(results *models.SimulationResults) string {
	var b strings.Builder

	section(&b, "Simulation Summary")
	kv(&b, "Workflow", results.WorkflowName)
	kv(&b, "Mode", string(results.Config.Mode))
	kv(&b, "Transactions", formatInt(results.TotalTransactions))
	kv(&b, "Completed", formatInt(results.CompletedTransactions))
	kv(&b, "Failed", formatInt(results.FailedTransactions))
	kv(&b, "Dropped", formatInt(results.DroppedTransactions))

	section(&b, "Time Metrics")
	kv(&b, "Avg Total Time", fmt.Sprintf("%.2fs", results.AvgTotalTime))
	kv(&b, "P50 Time", fmt.Sprintf("%.2fs", results.P50TotalTime))
	kv(&b, "P95 Time", fmt.Sprintf("%.2fs", results.P95TotalTime))
	kv(&b, "P99 Time", fmt.Sprintf("%.2fs", results.P99TotalTime))
	kv(&b, "Throughput", fmt.Sprintf("%.1f tx/hr", results.ThroughputPerHour))

	section(&b, "Cost Metrics")
	kv(&b, "Avg Cost/Transaction", fmt.Sprintf("$%.4f", results.AvgTotalCost))
	kv(&b, "Total Cost", fmt.Sprintf("$%.2f", results.TotalCost))

	if len(results.NodeMetrics) > 0 {
		section(&b, "Node Metrics")
		fmt.Fprintf(&b, "%-28s %10s %10s %10s %8s %8s %10s\n",
			"Node", "Avg Time", "Avg Cost", "Processed", "Errors", "Util", "Bottleneck")

		sorted := make([]*models.NodeMetrics, len(results.NodeMetrics))
		copy(sorted, results.NodeMetrics)
		sort.SliceStable(sorted, func(i, j int) bool {
			return sorted[i].BottleneckScore > sorted[j].BottleneckScore
		})

		for _, nm := range sorted {
			if nm.TransactionsProcessed == 0 {
				continue
			}

			fmt.Fprintf(&b, "%-28s %9.2fs %9.4f$ %10s %8s %7.1f%% %10.3f\n",
				truncate(nm.NodeName, 28),
				nm.AvgTime,
				nm.AvgCost,
				formatInt(nm.TransactionsProcessed),
				formatInt(nm.TransactionsErrored),
				nm.Utilization*100,
				nm.BottleneckScore)
		}
	}

	if len(results.Bottlenecks) > 0 {
		section(&b, "Bottlenecks (Top)")
		fmt.Fprintf(&b, "%-28s %8s %8s  %s\n", "Node", "Score", "Time %", "Reason")

		for _, bn := range results.Bottlenecks {
			fmt.Fprintf(&b, "%-28s %8.4f %7.1f%%  %s\n",
				truncate(bn.NodeName, 28), bn.Score, bn.TimeContributionPct, bn.Reason)
		}
	}

	return b.String()
}

// FormatComparisonReport renders a baseline vs. optimized comparison.
func FormatComparisonReport(comparison *models.InterventionComparison) string {
	var b strings.Builder

	section(&b, "Baseline vs. Optimized")
	fmt.Fprintf(&b, "%-24s %14s %14s %14s %10s\n",
		"Metric", "Baseline", "Optimized", "Change", "Change %")

	for _, d := range comparison.Deltas {
		fmt.Fprintf(&b, "%-24s %14.4f %14.4f %+14.4f %+9.2f%%\n",
			d.MetricName, d.BaselineValue, d.OptimizedValue, d.AbsoluteChange, d.RelativeChangePct)
	}

	section(&b, "ROI Summary")
	kv(&b, "Time Saved", fmt.Sprintf("%.1f%%", comparison.TimeSavedPct))
	kv(&b, "Cost Saved", fmt.Sprintf("%.1f%%", comparison.CostSavedPct))
	kv(&b, "Throughput Increase", fmt.Sprintf("%.1f%%", comparison.ThroughputIncreasePct))
	kv(&b, "Implementation Cost", fmt.Sprintf("$%.2f", comparison.TotalImplementationCost))
	kv(&b, "Annual Savings", fmt.Sprintf("$%.2f", comparison.AnnualCostSavings))

	if comparison.ROIRatio != nil {
		kv(&b, "ROI Ratio", fmt.Sprintf("%.1fx", *comparison.ROIRatio))
	}

	if comparison.PaybackMonths != nil {
		kv(&b, "Payback Period", fmt.Sprintf("%.1f months", *comparison.PaybackMonths))
	}

	return b.String()
}

// FormatLeverageReport renders the leverage rankings table.
func FormatLeverageReport(rankings []models.LeverageRanking) string {
	var b strings.Builder

	section(&b, "Highest Marginal Leverage Nodes")
	fmt.Fprintf(&b, "%3s  %-24s %-24s %8s %10s %10s  %s\n",
		"#", "Node", "Parameter", "Score", "Time", "Cost", "Recommendation")

	for i, r := range rankings {
		fmt.Fprintf(&b, "%3d  %-24s %-24s %8.4f %9.1f%% %9.1f%%  %s\n",
			i+1,
			truncate(r.NodeName, 24),
			r.Parameter,
			r.LeverageScore,
			r.TimeImpactPct,
			r.CostImpactPct,
			r.Recommendation)
	}

	return b.String()
}

func section(b *strings.Builder, title string) {
	if b.Len() > 0 {
		b.WriteString("\n")
	}

	b.WriteString(title + "\n")
	b.WriteString(strings.Repeat("-", min(len(title), reportWidth)) + "\n")
}

func kv(b *strings.Builder, key, value string) {
	fmt.Fprintf(b, "  %-24s %s\n", key, value)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}

	return s[:n-1] + "…"
}

// formatInt renders an integer with thousands separators.
func formatInt(v int) string {
	s := fmt.Sprintf("%d", v)

	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}

	var parts []string
	for len(s) > 3 {
		parts = append([]string{s[len(s)-3:]}, parts...)
		s = s[:len(s)-3]
	}

	parts = append([]string{s}, parts...)

	out := strings.Join(parts, ",")
	if neg {
		out = "-" + out
	}

	return out
}
