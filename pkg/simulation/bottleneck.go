package simulation

import (
	"sort"

	"github.com/flowlens/flowlens/pkg/models"
)

const defaultTopBottlenecks = 5

// Bottleneck reason templates, chosen by the dominant contributing factor.
const (
	reasonHighUtilization = "high utilization"
	reasonQueueingDelay   = "queueing delay"
	reasonTimeContributor = "largest time contributor"
)

// DetectBottlenecks ranks the top-K nodes by bottleneck score, descending.
// Ties keep node insertion order, so identical inputs always produce the
// identical list. Nodes that processed nothing are not bottlenecks.
func DetectBottlenecks(metrics []*models.NodeMetrics, topK int) []models.BottleneckInfo {
	if len(metrics) == 0 || topK <= 0 {
		return nil
	}

	totalContribution := 0.0
	maxQueue := 0.0

	for _, nm := range metrics {
		totalContribution += nm.TotalTimeContribution

		if nm.QueueTime > maxQueue {
			maxQueue = nm.QueueTime
		}
	}

	var ranked []models.BottleneckInfo

	for _, nm := range metrics {
		if nm.TransactionsProcessed == 0 {
			continue
		}

		timeShare := 0.0
		if totalContribution > 0 {
			timeShare = nm.TotalTimeContribution / totalContribution
		}

		queueShare := 0.0
		if maxQueue > 0 {
			queueShare = nm.QueueTime / maxQueue
		}

		ranked = append(ranked, models.BottleneckInfo{
			NodeID:              nm.NodeID,
			NodeName:            nm.NodeName,
			Score:               nm.BottleneckScore,
			Reason:              bottleneckReason(nm.Utilization, timeShare, queueShare),
			Utilization:         nm.Utilization,
			AvgQueueTime:        nm.QueueTime,
			TimeContributionPct: timeShare * 100.0,
		})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})

	if len(ranked) > topK {
		ranked = ranked[:topK]
	}

	return ranked
}

func bottleneckReason(util, timeShare, queueShare float64) string {
	if util >= highUtilization {
		return reasonHighUtilization
	}

	if weightQueueTime*queueShare >= weightTimeShare*timeShare &&
		weightQueueTime*queueShare >= weightUtilization*util {
		return reasonQueueingDelay
	}

	return reasonTimeContributor
}
