package simulation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowlens/flowlens/pkg/graph"
	"github.com/flowlens/flowlens/pkg/models"
)

func mcConfig(numTx int, seed int64) models.SimulationConfig {
	return models.SimulationConfig{
		Mode:            models.ModeMonteCarlo,
		NumTransactions: numTx,
		Seed:            seed,
		VolumePerHour:   100.0,
	}
}

func TestMonteCarloReproducible(t *testing.T) {
	t.Parallel()

	g := chainGraph(models.NodeParams{
		ExecTimeMean:       10.0,
		ExecTimeVariance:   4.0,
		CostPerTransaction: 5.0,
		ErrorRate:          0.05,
		MaxRetries:         1,
	})

	first, err := RunMonteCarlo(g, mcConfig(20000, 42))
	require.NoError(t, err)

	second, err := RunMonteCarlo(g, mcConfig(20000, 42))
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestMonteCarloBatchSizeDoesNotChangeResults(t *testing.T) {
	t.Parallel()

	g := chainGraph(models.NodeParams{
		ExecTimeMean:     10.0,
		ExecTimeVariance: 4.0,
		ErrorRate:        0.05,
	})

	small := mcConfig(20000, 7)
	small.BatchSize = 4096

	large := mcConfig(20000, 7)
	large.BatchSize = 20000

	a, err := RunMonteCarlo(g, small)
	require.NoError(t, err)

	b, err := RunMonteCarlo(g, large)
	require.NoError(t, err)

	assert.Equal(t, a.AvgTotalTime, b.AvgTotalTime)
	assert.Equal(t, a.P95TotalTime, b.P95TotalTime)
	assert.Equal(t, a.TotalCost, b.TotalCost)
	assert.Equal(t, a.CompletedTransactions, b.CompletedTransactions)
	assert.Equal(t, a.FailedTransactions, b.FailedTransactions)
	assert.Equal(t, a.NodeMetrics, b.NodeMetrics)
}

func TestMonteCarloSeedChangesOutcome(t *testing.T) {
	t.Parallel()

	g := chainGraph(models.NodeParams{ExecTimeMean: 10.0, ExecTimeVariance: 9.0})

	a, err := RunMonteCarlo(g, mcConfig(5000, 1))
	require.NoError(t, err)

	b, err := RunMonteCarlo(g, mcConfig(5000, 2))
	require.NoError(t, err)

	assert.NotEqual(t, a.AvgTotalTime, b.AvgTotalTime)
}

func TestMonteCarloZeroVarianceMatchesDeterministic(t *testing.T) {
	t.Parallel()

	g := chainGraph(models.NodeParams{ExecTimeMean: 10.0, CostPerTransaction: 5.0})

	mc, err := RunMonteCarlo(g, mcConfig(1000, 42))
	require.NoError(t, err)

	det, err := RunDeterministic(g, detConfig(1000))
	require.NoError(t, err)

	assert.Equal(t, 1000, mc.CompletedTransactions)
	assert.InDelta(t, det.AvgTotalTime, mc.AvgTotalTime, 1e-9)
	assert.InDelta(t, det.AvgTotalCost, mc.AvgTotalCost, 1e-9)
	assert.InDelta(t, det.ThroughputPerHour, mc.ThroughputPerHour, 1e-9)
}

func TestMonteCarloCertainFailure(t *testing.T) {
	t.Parallel()

	g := chainGraph(models.NodeParams{ExecTimeMean: 1.0, ErrorRate: 1.0})

	results, err := RunMonteCarlo(g, mcConfig(500, 42))
	require.NoError(t, err)

	assert.Equal(t, 0, results.CompletedTransactions)
	assert.Equal(t, 500, results.FailedTransactions)
	assert.Zero(t, results.ThroughputPerHour)
	assert.Zero(t, results.AvgTotalTime)
}

func TestMonteCarloCertainDropOff(t *testing.T) {
	t.Parallel()

	g := chainGraph(models.NodeParams{ExecTimeMean: 1.0, DropOffRate: 1.0})

	results, err := RunMonteCarlo(g, mcConfig(500, 42))
	require.NoError(t, err)

	assert.Equal(t, 500, results.DroppedTransactions)
	assert.Equal(t, 0, results.CompletedTransactions)
}

func TestMonteCarloPercentilesOrdered(t *testing.T) {
	t.Parallel()

	g := chainGraph(models.NodeParams{ExecTimeMean: 10.0, ExecTimeVariance: 25.0})

	results, err := RunMonteCarlo(g, mcConfig(10000, 42))
	require.NoError(t, err)

	assert.LessOrEqual(t, results.MinTotalTime, results.P50TotalTime)
	assert.LessOrEqual(t, results.P50TotalTime, results.P95TotalTime)
	assert.LessOrEqual(t, results.P95TotalTime, results.P99TotalTime)
	assert.LessOrEqual(t, results.P99TotalTime, results.MaxTotalTime)
}

func TestMonteCarloCountsAlwaysSum(t *testing.T) {
	t.Parallel()

	g := chainGraph(models.NodeParams{
		ExecTimeMean: 1.0,
		ErrorRate:    0.2,
		DropOffRate:  0.1,
	})

	results, err := RunMonteCarlo(g, mcConfig(12345, 9))
	require.NoError(t, err)

	total := results.CompletedTransactions + results.FailedTransactions + results.DroppedTransactions
	assert.Equal(t, 12345, total)
}

func TestMonteCarloParallelJoinWaitsForSlowestBranch(t *testing.T) {
	t.Parallel()

	g := &models.WorkflowGraph{
		Name: "parallel",
		Nodes: []*models.Node{
			{ID: "start", NodeType: models.NodeTypeStart},
			{ID: "fork", NodeType: models.NodeTypeParallelGateway},
			{ID: "a", NodeType: models.NodeTypeAPI, Params: models.NodeParams{ExecTimeMean: 10.0, CostPerTransaction: 1.0}},
			{ID: "b", NodeType: models.NodeTypeAPI, Params: models.NodeParams{ExecTimeMean: 20.0, CostPerTransaction: 2.0}},
			{ID: "join", NodeType: models.NodeTypeAPI},
			{ID: "end", NodeType: models.NodeTypeEnd},
		},
		Edges: []*models.Edge{
			{Source: "start", Target: "fork", EdgeType: models.EdgeTypeNormal, Probability: 1.0},
			{Source: "fork", Target: "a", EdgeType: models.EdgeTypeNormal, Probability: 1.0},
			{Source: "fork", Target: "b", EdgeType: models.EdgeTypeNormal, Probability: 1.0},
			{Source: "a", Target: "join", EdgeType: models.EdgeTypeNormal, Probability: 1.0},
			{Source: "b", Target: "join", EdgeType: models.EdgeTypeNormal, Probability: 1.0},
			{Source: "join", Target: "end", EdgeType: models.EdgeTypeNormal, Probability: 1.0},
		},
	}
	graph.ApplyDefaults(g)

	results, err := RunMonteCarlo(g, mcConfig(1000, 42))
	require.NoError(t, err)

	assert.Equal(t, 1000, results.CompletedTransactions)

	// No variance anywhere, so every walk pays exactly the slower branch's
	// time and both branches' costs.
	assert.InDelta(t, 20.0, results.AvgTotalTime, 1e-9)
	assert.InDelta(t, 3.0, results.AvgTotalCost, 1e-9)
}

func TestMonteCarloConvergesOnBranchProbabilities(t *testing.T) {
	t.Parallel()

	g := &models.WorkflowGraph{
		Name: "branch",
		Nodes: []*models.Node{
			{ID: "start", NodeType: models.NodeTypeStart},
			{ID: "route", NodeType: models.NodeTypeDecision},
			{ID: "fast", NodeType: models.NodeTypeAPI, Params: models.NodeParams{ExecTimeMean: 1.0}},
			{ID: "slow", NodeType: models.NodeTypeHuman, Params: models.NodeParams{ExecTimeMean: 100.0}},
			{ID: "end", NodeType: models.NodeTypeEnd},
		},
		Edges: []*models.Edge{
			{Source: "start", Target: "route", EdgeType: models.EdgeTypeNormal, Probability: 1.0},
			{Source: "route", Target: "fast", EdgeType: models.EdgeTypeConditional, Probability: 0.8},
			{Source: "route", Target: "slow", EdgeType: models.EdgeTypeConditional, Probability: 0.2},
			{Source: "fast", Target: "end", EdgeType: models.EdgeTypeNormal, Probability: 1.0},
			{Source: "slow", Target: "end", EdgeType: models.EdgeTypeNormal, Probability: 1.0},
		},
	}
	graph.ApplyDefaults(g)

	results, err := RunMonteCarlo(g, mcConfig(50000, 42))
	require.NoError(t, err)

	det, err := RunDeterministic(g, detConfig(50000))
	require.NoError(t, err)

	// Sampling noise at 50k transactions stays well under 5%.
	assert.InEpsilon(t, det.AvgTotalTime, results.AvgTotalTime, 0.05)
}

func TestValidateConfig(t *testing.T) {
	t.Parallel()

	g := chainGraph(models.NodeParams{ExecTimeMean: 1.0})

	_, err := RunMonteCarlo(g, mcConfig(0, 42))
	require.Error(t, err)
	assert.True(t, IsConfigError(err))
}
