package simulation

import (
	"math"
	"sort"

	"github.com/flowlens/flowlens/pkg/models"
)

// Bottleneck score weights: utilization, time contribution share, and
// normalized queue time.
const (
	weightUtilization = 0.4
	weightTimeShare   = 0.4
	weightQueueTime   = 0.2
	highUtilization   = 0.8
)

// VisitRecord is the raw per-node tally both engines feed into the shared
// aggregator. Counts are fractional population shares in deterministic mode
// and integer visit counts in Monte Carlo mode.
type VisitRecord struct {
	Node *models.Node

	Visits  float64
	Errors  float64
	Drops   float64
	Retries float64

	TotalTime float64
	TotalCost float64

	// Engine-supplied tail estimates for the per-visit time at this node.
	P50Time float64
	P95Time float64
	P99Time float64
}

// BuildNodeMetrics converts raw visit records into the shared NodeMetrics
// schema: utilization against capacity, each node's share of the grand
// total time, and the composite bottleneck score
// 0.4*utilization + 0.4*time_share + 0.2*normalized_queue_time.
func BuildNodeMetrics(records []VisitRecord, cfg models.SimulationConfig) []*models.NodeMetrics {
	population := float64(cfg.NumTransactions)

	grandTotalTime := 0.0
	maxQueue := 0.0

	for _, r := range records {
		grandTotalTime += r.TotalTime

		if q := r.Node.Params.QueueDelayMean; q > maxQueue {
			maxQueue = q
		}
	}

	out := make([]*models.NodeMetrics, 0, len(records))

	for _, r := range records {
		nm := &models.NodeMetrics{
			NodeID:   r.Node.ID,
			NodeName: r.Node.Name,
		}

		if r.Visits > 0 {
			nm.AvgTime = r.TotalTime / r.Visits
			nm.AvgCost = r.TotalCost / r.Visits
		}

		nm.P50Time = r.P50Time
		nm.P95Time = r.P95Time
		nm.P99Time = r.P99Time

		// Expected time this node adds per transaction entering the system.
		nm.TotalTimeContribution = r.TotalTime / population
		nm.TotalCost = r.TotalCost

		nm.TransactionsProcessed = int(math.Round(r.Visits))
		nm.TransactionsErrored = int(math.Round(r.Errors))
		nm.TransactionsDropped = int(math.Round(r.Drops))
		nm.TransactionsRetried = int(math.Round(r.Retries))

		nm.QueueTime = r.Node.Params.QueueDelayMean
		nm.Utilization = utilization(r.Node.Params, cfg.VolumePerHour, r.Visits/population)

		timeShare := 0.0
		if grandTotalTime > 0 {
			timeShare = r.TotalTime / grandTotalTime
		}

		queueShare := 0.0
		if maxQueue > 0 {
			queueShare = nm.QueueTime / maxQueue
		}

		nm.BottleneckScore = weightUtilization*nm.Utilization +
			weightTimeShare*timeShare +
			weightQueueTime*queueShare

		out = append(out, nm)
	}

	return out
}

// utilization is demanded throughput over available capacity. Nodes without
// a capacity limit contribute zero utilization.
func utilization(p models.NodeParams, volumePerHour, visitShare float64) float64 {
	if p.CapacityPerHour == nil || *p.CapacityPerHour <= 0 {
		return 0.0
	}

	demand := volumePerHour * visitShare * p.VolumeMultiplier
	available := *p.CapacityPerHour * float64(p.Workers())

	return math.Min(demand/available, 1.0)
}

// maxThroughput is the minimum effective capacity over visited nodes that
// define one. Unconstrained graphs fall back to the achieved throughput.
func maxThroughput(records []VisitRecord, achieved float64) float64 {
	limit := math.Inf(1)

	for _, r := range records {
		p := r.Node.Params
		if r.Visits <= 0 || p.CapacityPerHour == nil || *p.CapacityPerHour <= 0 {
			continue
		}

		if c := *p.CapacityPerHour * float64(p.Workers()); c < limit {
			limit = c
		}
	}

	if math.IsInf(limit, 1) {
		return achieved
	}

	return limit
}

// percentile computes the p-th percentile of a sorted sample using linear
// interpolation between order statistics.
func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0.0
	}

	if len(sorted) == 1 {
		return sorted[0]
	}

	rank := p / 100.0 * float64(len(sorted)-1)
	lo := int(math.Floor(rank))
	frac := rank - float64(lo)

	if lo+1 >= len(sorted) {
		return sorted[len(sorted)-1]
	}

	return sorted[lo]*(1.0-frac) + sorted[lo+1]*frac
}

// sortedCopy returns an ascending copy of the sample.
func sortedCopy(sample []float64) []float64 {
	out := make([]float64, len(sample))
	copy(out, sample)
	sort.Float64s(out)

	return out
}

// expectedRetries is the expected number of retry attempts for a node with
// per-attempt error probability p and a bounded retry budget: sum of p^k for
// k in [1, maxRetries].
func expectedRetries(p float64, maxRetries int) float64 {
	if p <= 0 || maxRetries <= 0 {
		return 0.0
	}

	if p >= 1 {
		return float64(maxRetries)
	}

	// Geometric partial sum p*(1-p^n)/(1-p).
	return p * (1.0 - math.Pow(p, float64(maxRetries))) / (1.0 - p)
}

// failureProbability is the chance every attempt fails: the first execution
// plus maxRetries retries.
func failureProbability(p float64, maxRetries int) float64 {
	if p <= 0 {
		return 0.0
	}

	return math.Pow(p, float64(maxRetries+1))
}
