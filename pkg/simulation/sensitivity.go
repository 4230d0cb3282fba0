package simulation

import (
	"math"
	"runtime"
	"sync"

	"github.com/flowlens/flowlens/pkg/graph"
	"github.com/flowlens/flowlens/pkg/models"
)

// sensitivityParams is the fixed candidate set perturbed per node.
var sensitivityParams = []string{
	"exec_time_mean",
	"cost_per_transaction",
	"error_rate",
	"queue_delay_mean",
	"parallelization_factor",
	"capacity_per_hour",
}

// systemMetrics are the run-level metrics whose movement is recorded.
var systemMetrics = []string{
	"avg_total_time",
	"avg_total_cost",
}

// RunSensitivity measures the marginal impact of each (node, parameter)
// pair: the parameter is increased by perturbationPct percent on a cloned
// graph and the deterministic engine is rerun. The baseline run is computed
// once; perturbed runs share no mutable state and execute in parallel.
func RunSensitivity(g *models.WorkflowGraph, cfg models.SimulationConfig, perturbationPct float64) (*models.SensitivityReport, error) {
	cfg.Mode = models.ModeDeterministic

	baseline, err := RunDeterministic(g, cfg)
	if err != nil {
		return nil, err
	}

	baselineMetrics := map[string]float64{
		"avg_total_time": baseline.AvgTotalTime,
		"avg_total_cost": baseline.AvgTotalCost,
	}

	type job struct {
		nodeID    string
		parameter string
		baseline  float64
		perturbed float64
	}

	var jobs []job

	for _, n := range g.Nodes {
		for _, param := range sensitivityParams {
			baseValue, ok := paramValue(n.Params, param)
			if !ok {
				continue
			}

			perturbed := baseValue * (1.0 + perturbationPct/100.0)

			// Worker counts move in whole steps, and a zero baseline has no
			// meaningful relative perturbation.
			if param == "parallelization_factor" {
				perturbed = baseValue + 1
			} else if baseValue == 0 {
				continue
			}

			jobs = append(jobs, job{nodeID: n.ID, parameter: param, baseline: baseValue, perturbed: perturbed})
		}
	}

	entriesPerJob := make([][]models.SensitivityEntry, len(jobs))
	errs := make([]error, len(jobs))

	sem := make(chan struct{}, runtime.GOMAXPROCS(0))

	var wg sync.WaitGroup

	for i, j := range jobs {
		wg.Add(1)
		sem <- struct{}{}

		go func(i int, j job) {
			defer wg.Done()
			defer func() { <-sem }()

			perturbedGraph := graph.Clone(g)
			setParamValue(&perturbedGraph.GetNode(j.nodeID).Params, j.parameter, j.perturbed)

			results, err := RunDeterministic(perturbedGraph, cfg)
			if err != nil {
				errs[i] = err

				return
			}

			perturbedMetrics := map[string]float64{
				"avg_total_time": results.AvgTotalTime,
				"avg_total_cost": results.AvgTotalCost,
			}

			for _, metric := range systemMetrics {
				absolute := perturbedMetrics[metric] - baselineMetrics[metric]
				relative := absolute / math.Max(math.Abs(baselineMetrics[metric]), 1e-10) * 100.0

				entriesPerJob[i] = append(entriesPerJob[i], models.SensitivityEntry{
					NodeID:            j.nodeID,
					Parameter:         j.parameter,
					BaselineValue:     j.baseline,
					PerturbedValue:    j.perturbed,
					MetricName:        metric,
					BaselineMetric:    baselineMetrics[metric],
					PerturbedMetric:   perturbedMetrics[metric],
					AbsoluteImpact:    absolute,
					RelativeImpactPct: relative,
				})
			}
		}(i, j)
	}

	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}

	report := &models.SensitivityReport{PerturbationPct: perturbationPct}
	for _, entries := range entriesPerJob {
		report.Entries = append(report.Entries, entries...)
	}

	return report, nil
}

// paramValue reads a candidate parameter by wire name. The bool result is
// false for an unset optional capacity.
func paramValue(p models.NodeParams, name string) (float64, bool) {
	switch name {
	case "exec_time_mean":
		return p.ExecTimeMean, true
	case "cost_per_transaction":
		return p.CostPerTransaction, true
	case "error_rate":
		return p.ErrorRate, true
	case "queue_delay_mean":
		return p.QueueDelayMean, true
	case "parallelization_factor":
		return float64(p.Workers()), true
	case "capacity_per_hour":
		if p.CapacityPerHour == nil {
			return 0, false
		}

		return *p.CapacityPerHour, true
	default:
		return 0, false
	}
}

func setParamValue(p *models.NodeParams, name string, value float64) {
	switch name {
	case "exec_time_mean":
		p.ExecTimeMean = value
	case "cost_per_transaction":
		p.CostPerTransaction = value
	case "error_rate":
		p.ErrorRate = math.Min(value, 1.0)
	case "queue_delay_mean":
		p.QueueDelayMean = value
	case "parallelization_factor":
		p.ParallelizationFactor = int(math.Round(value))
	case "capacity_per_hour":
		p.CapacityPerHour = &value
	}
}
