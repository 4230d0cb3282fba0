package simulation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowlens/flowlens/pkg/models"
)

func bottleneckMetrics() []*models.NodeMetrics {
	return []*models.NodeMetrics{
		{NodeID: "a", NodeName: "A", TransactionsProcessed: 100, TotalTimeContribution: 10, BottleneckScore: 0.2},
		{NodeID: "b", NodeName: "B", TransactionsProcessed: 100, TotalTimeContribution: 80, Utilization: 0.9, BottleneckScore: 0.8},
		{NodeID: "c", NodeName: "C", TransactionsProcessed: 100, TotalTimeContribution: 10, QueueTime: 30, BottleneckScore: 0.4},
		{NodeID: "idle", NodeName: "Idle", TransactionsProcessed: 0, BottleneckScore: 0.9},
	}
}

func TestDetectBottlenecksRanking(t *testing.T) {
	t.Parallel()

	ranked := DetectBottlenecks(bottleneckMetrics(), 5)
	require.Len(t, ranked, 3)

	assert.Equal(t, "b", ranked[0].NodeID)
	assert.Equal(t, "c", ranked[1].NodeID)
	assert.Equal(t, "a", ranked[2].NodeID)

	// Unvisited nodes are never bottlenecks, whatever their score.
	for _, bn := range ranked {
		assert.NotEqual(t, "idle", bn.NodeID)
	}
}

func TestDetectBottlenecksReasons(t *testing.T) {
	t.Parallel()

	ranked := DetectBottlenecks(bottleneckMetrics(), 5)

	byID := make(map[string]models.BottleneckInfo, len(ranked))
	for _, bn := range ranked {
		byID[bn.NodeID] = bn
	}

	assert.Equal(t, "high utilization", byID["b"].Reason)
	assert.Equal(t, "queueing delay", byID["c"].Reason)
	assert.Equal(t, "largest time contributor", byID["a"].Reason)
}

func TestDetectBottlenecksTopK(t *testing.T) {
	t.Parallel()

	ranked := DetectBottlenecks(bottleneckMetrics(), 1)
	require.Len(t, ranked, 1)
	assert.Equal(t, "b", ranked[0].NodeID)

	assert.Nil(t, DetectBottlenecks(bottleneckMetrics(), 0))
	assert.Nil(t, DetectBottlenecks(nil, 5))
}

func TestDetectBottlenecksStable(t *testing.T) {
	t.Parallel()

	// Equal scores keep insertion order.
	metrics := []*models.NodeMetrics{
		{NodeID: "first", TransactionsProcessed: 10, BottleneckScore: 0.5},
		{NodeID: "second", TransactionsProcessed: 10, BottleneckScore: 0.5},
	}

	for range 5 {
		ranked := DetectBottlenecks(metrics, 2)
		require.Len(t, ranked, 2)
		assert.Equal(t, "first", ranked[0].NodeID)
		assert.Equal(t, "second", ranked[1].NodeID)
	}
}
