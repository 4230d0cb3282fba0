package intervention

import (
	"fmt"
	"sort"
	"strings"

	"github.com/flowlens/flowlens/pkg/models"
)

// Rank turns a sensitivity report into a prioritized list of (node,
// parameter) pairs. Time and cost impacts are combined with weights that
// favor the dimension the parameter naturally moves, normalized so the
// strongest pair scores 1.0.
func Rank(g *models.WorkflowGraph, report *models.SensitivityReport, topN int) []models.LeverageRanking {
	type impacts struct {
		time float64
		cost float64
	}

	type key struct {
		nodeID    string
		parameter string
	}

	byPair := make(map[key]*impacts)

	var order []key

	for _, entry := range report.Entries {
		k := key{nodeID: entry.NodeID, parameter: entry.Parameter}

		pair, ok := byPair[k]
		if !ok {
			pair = &impacts{}
			byPair[k] = pair
			order = append(order, k)
		}

		switch entry.MetricName {
		case "avg_total_time":
			pair.time = entry.RelativeImpactPct
		case "avg_total_cost":
			pair.cost = entry.RelativeImpactPct
		}
	}

	rankings := make([]models.LeverageRanking, 0, len(order))
	maxScore := 0.0

	for _, k := range order {
		pair := byPair[k]
		timeWeight, costWeight := leverageWeights(k.parameter)
		score := timeWeight*abs(pair.time) + costWeight*abs(pair.cost)

		if score > maxScore {
			maxScore = score
		}

		nodeName := k.nodeID
		if node := g.GetNode(k.nodeID); node != nil && node.Name != "" {
			nodeName = node.Name
		}

		rankings = append(rankings, models.LeverageRanking{
			NodeID:         k.nodeID,
			NodeName:       nodeName,
			Parameter:      k.parameter,
			LeverageScore:  score,
			TimeImpactPct:  pair.time,
			CostImpactPct:  pair.cost,
			Recommendation: recommendation(nodeName, k.parameter, pair.time, pair.cost),
		})
	}

	if maxScore > 0 {
		for i := range rankings {
			rankings[i].LeverageScore /= maxScore
		}
	}

	sort.SliceStable(rankings, func(i, j int) bool {
		return rankings[i].LeverageScore > rankings[j].LeverageScore
	})

	if topN > 0 && len(rankings) > topN {
		rankings = rankings[:topN]
	}

	return rankings
}

// leverageWeights returns the (time, cost) weights for a parameter. Time-like
// parameters weight time movement heavier, cost-like parameters the inverse,
// everything else splits evenly.
func leverageWeights(parameter string) (float64, float64) {
	switch {
	case strings.Contains(parameter, "time") || strings.Contains(parameter, "queue"):
		return 0.7, 0.3
	case strings.Contains(parameter, "cost"):
		return 0.3, 0.7
	default:
		return 0.5, 0.5
	}
}

// recommendation names the action for a parameter and appends which of the
// two aggregate metrics the pair moves hardest.
func recommendation(nodeName, parameter string, timeImpact, costImpact float64) string {
	var action string

	switch parameter {
	case "exec_time_mean":
		action = fmt.Sprintf("Reduce processing time at %q (automation, tooling, or simplification)", nodeName)
	case "cost_per_transaction":
		action = fmt.Sprintf("Reduce per-transaction cost at %q (cheaper resources or batching)", nodeName)
	case "error_rate":
		action = fmt.Sprintf("Reduce the error rate at %q (validation, training, or better inputs)", nodeName)
	case "queue_delay_mean":
		action = fmt.Sprintf("Reduce queueing at %q (staffing, scheduling, or pull-based intake)", nodeName)
	case "parallelization_factor":
		action = fmt.Sprintf("Add workers at %q to process transactions in parallel", nodeName)
	case "capacity_per_hour":
		action = fmt.Sprintf("Raise hourly capacity at %q to relieve the throughput ceiling", nodeName)
	default:
		action = fmt.Sprintf("Tune %s at %q", parameter, nodeName)
	}

	if abs(timeImpact) > abs(costImpact) {
		return fmt.Sprintf("%s (primary impact: %.1f%% on total time)", action, timeImpact)
	}

	return fmt.Sprintf("%s (primary impact: %.1f%% on total cost)", action, costImpact)
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}

	return v
}
