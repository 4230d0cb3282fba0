// Package intervention applies what-if modifications to a cloned workflow
// graph, reruns the simulation under baseline conditions, and turns the
// difference into deltas, ROI, and leverage rankings.
package intervention

import (
	"errors"
	"fmt"
	"math"

	"github.com/flowlens/flowlens/pkg/graph"
	"github.com/flowlens/flowlens/pkg/models"
	"github.com/flowlens/flowlens/pkg/simulation"
)

const hoursPerYear = 8760

// ErrNodeNotFound is returned when an intervention targets a node that does
// not exist in the graph.
var ErrNodeNotFound = errors.New("intervention target node not found")

// Apply clones the graph, applies every intervention, and reruns the
// simulation under the same mode, seed, and volume/transaction parameters
// as the baseline so the comparison is apples to apples. The baseline graph
// is never touched.
func Apply(
	g *models.WorkflowGraph,
	interventions []models.Intervention,
	baseline *models.SimulationResults,
	volumePerHour float64,
	numTransactions int,
) (*models.InterventionComparison, error) {
	cfg := baseline.Config

	if volumePerHour > 0 {
		cfg.VolumePerHour = volumePerHour
	}

	if numTransactions > 0 {
		cfg.NumTransactions = numTransactions
	}

	optimized := graph.Clone(g)

	totalCost := 0.0

	for _, iv := range interventions {
		node := optimized.GetNode(iv.NodeID)
		if node == nil {
			return nil, fmt.Errorf("%w: %q", ErrNodeNotFound, iv.NodeID)
		}

		applyToNode(&node.Params, iv)
		totalCost += iv.ImplementationCost
	}

	optimizedResults, err := simulation.Run(optimized, cfg)
	if err != nil {
		return nil, err
	}

	comparison := &models.InterventionComparison{
		InterventionsApplied: interventions,
		Deltas:               computeDeltas(baseline, optimizedResults),

		TimeSavedPct:          pctChange(baseline.AvgTotalTime, optimizedResults.AvgTotalTime),
		CostSavedPct:          pctChange(baseline.AvgTotalCost, optimizedResults.AvgTotalCost),
		ThroughputIncreasePct: -pctChange(baseline.ThroughputPerHour, optimizedResults.ThroughputPerHour),
		ErrorReductionPct:     pctChange(float64(baseline.FailedTransactions), float64(optimizedResults.FailedTransactions)),

		TotalImplementationCost: totalCost,
	}

	// Annual savings scale the per-transaction cost difference from the
	// simulated population to a year of configured volume.
	comparison.AnnualCostSavings = (baseline.AvgTotalCost - optimizedResults.AvgTotalCost) *
		cfg.VolumePerHour * hoursPerYear

	if totalCost > 0 {
		roi := comparison.AnnualCostSavings / totalCost
		comparison.ROIRatio = &roi
	}

	if comparison.AnnualCostSavings > 0 {
		payback := totalCost / (comparison.AnnualCostSavings / 12.0)
		comparison.PaybackMonths = &payback
	}

	return comparison, nil
}

// applyToNode applies one intervention's multiplicative reductions and
// additive increases to a node's parameters.
func applyToNode(p *models.NodeParams, iv models.Intervention) {
	if iv.TimeReductionPct > 0 {
		factor := reductionFactor(iv.TimeReductionPct)
		p.ExecTimeMean *= factor
		p.ExecTimeVariance *= factor * factor
	}

	if iv.CostReductionPct > 0 {
		p.CostPerTransaction *= reductionFactor(iv.CostReductionPct)
	}

	if iv.ErrorReductionPct > 0 {
		p.ErrorRate = math.Min(math.Max(p.ErrorRate*reductionFactor(iv.ErrorReductionPct), 0.0), 1.0)
	}

	if iv.CapacityIncreasePct > 0 && p.CapacityPerHour != nil {
		capacity := *p.CapacityPerHour * (1.0 + iv.CapacityIncreasePct/100.0)
		p.CapacityPerHour = &capacity
	}

	if iv.ParallelizationIncrease > 0 {
		p.ParallelizationFactor = p.Workers() + iv.ParallelizationIncrease
	}

	if iv.QueueReductionPct > 0 {
		factor := reductionFactor(iv.QueueReductionPct)
		p.QueueDelayMean *= factor
		p.QueueDelayVariance *= factor * factor
	}
}

func reductionFactor(pct float64) float64 {
	return math.Max(0.0, 1.0-math.Min(pct, 100.0)/100.0)
}

// trackedMetrics are the metrics reported as deltas, in fixed order.
var trackedMetrics = []struct {
	name string
	get  func(*models.SimulationResults) float64
}{
	{"avg_total_time", func(r *models.SimulationResults) float64 { return r.AvgTotalTime }},
	{"avg_total_cost", func(r *models.SimulationResults) float64 { return r.AvgTotalCost }},
	{"throughput_per_hour", func(r *models.SimulationResults) float64 { return r.ThroughputPerHour }},
	{"completed_transactions", func(r *models.SimulationResults) float64 { return float64(r.CompletedTransactions) }},
	{"failed_transactions", func(r *models.SimulationResults) float64 { return float64(r.FailedTransactions) }},
	{"dropped_transactions", func(r *models.SimulationResults) float64 { return float64(r.DroppedTransactions) }},
}

func computeDeltas(baseline, optimized *models.SimulationResults) []models.MetricDelta {
	deltas := make([]models.MetricDelta, 0, len(trackedMetrics))

	for _, m := range trackedMetrics {
		bv := m.get(baseline)
		ov := m.get(optimized)
		change := ov - bv

		deltas = append(deltas, models.MetricDelta{
			MetricName:        m.name,
			BaselineValue:     bv,
			OptimizedValue:    ov,
			AbsoluteChange:    change,
			RelativeChangePct: change / math.Max(math.Abs(bv), 1e-10) * 100.0,
		})
	}

	return deltas
}

// pctChange reports how much was saved going from old to new: positive
// means the value went down.
func pctChange(old, new float64) float64 {
	if math.Abs(old) < 1e-10 {
		return 0.0
	}

	return (old - new) / math.Abs(old) * 100.0
}
