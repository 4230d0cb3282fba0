package simulation

import (
	"math"
	"math/rand/v2"
	"runtime"
	"sync"

	"github.com/flowlens/flowlens/pkg/graph"
	"github.com/flowlens/flowlens/pkg/models"
)

const (
	defaultBatchSize = 10000

	// mcChunkSize is the fixed aggregation unit. Chunk accumulators merge
	// in index order, so neither the requested batch size nor the degree of
	// parallelism changes the final numbers.
	mcChunkSize = 4096

	// maxHopsPerNode bounds a single walk against runaway loop traversal.
	maxHopsPerNode = 10
)

// Normal quantiles used for per-node tail estimates.
const (
	z95 = 1.6449
	z99 = 2.3263
)

type walkOutcome uint8

const (
	outcomeCompleted walkOutcome = iota
	outcomeFailed
	outcomeDropped
)

// RunMonteCarlo simulates num_transactions independent random walks through
// the graph. Each transaction draws from its own random stream derived from
// (seed, transaction index); transactions are processed in fixed-size chunks
// with incremental aggregation so peak retained state stays bounded.
func RunMonteCarlo(g *models.WorkflowGraph, cfg models.SimulationConfig) (*models.SimulationResults, error) {
	cfg.Mode = models.ModeMonteCarlo

	if cfg.BatchSize < 1 {
		cfg.BatchSize = defaultBatchSize
	}

	if err := validateConfig(cfg); err != nil {
		return nil, err
	}

	idx, err := graph.NewIndex(g)
	if err != nil {
		return nil, err
	}

	runner := &mcRunner{
		idx:      idx,
		cfg:      cfg,
		position: make(map[string]int, len(g.Nodes)),
		maxHops:  len(g.Nodes) * maxHopsPerNode,
	}

	for i, n := range g.Nodes {
		runner.position[n.ID] = i
	}

	starts := g.StartNodes()
	runner.startID = starts[0].ID

	return runner.run()
}

type mcRunner struct {
	idx      *graph.Index
	cfg      models.SimulationConfig
	position map[string]int
	startID  string
	maxHops  int
}

// nodeAccum is the per-node, per-chunk tally. Time moments use Welford's
// online algorithm and merge pairwise in chunk order.
type nodeAccum struct {
	visits  int
	errors  int
	drops   int
	retries int

	timeCount float64
	timeMean  float64
	timeM2    float64

	costSum float64
}

func (a *nodeAccum) observeTime(t float64) {
	a.timeCount++
	delta := t - a.timeMean
	a.timeMean += delta / a.timeCount
	a.timeM2 += delta * (t - a.timeMean)
}

func (a *nodeAccum) merge(b *nodeAccum) {
	a.visits += b.visits
	a.errors += b.errors
	a.drops += b.drops
	a.retries += b.retries
	a.costSum += b.costSum

	if b.timeCount == 0 {
		return
	}

	if a.timeCount == 0 {
		a.timeCount, a.timeMean, a.timeM2 = b.timeCount, b.timeMean, b.timeM2

		return
	}

	n := a.timeCount + b.timeCount
	delta := b.timeMean - a.timeMean
	a.timeMean += delta * b.timeCount / n
	a.timeM2 += b.timeM2 + delta*delta*a.timeCount*b.timeCount/n
	a.timeCount = n
}

func (r *mcRunner) run() (*models.SimulationResults, error) {
	numTx := r.cfg.NumTransactions
	numChunks := (numTx + mcChunkSize - 1) / mcChunkSize

	times := make([]float64, numTx)
	costs := make([]float64, numTx)
	outcomes := make([]walkOutcome, numTx)

	chunkAccums := make([][]nodeAccum, numChunks)

	// Bound in-flight chunks by both CPU count and the configured batch
	// size so scratch memory stays within budget on large runs.
	inFlight := runtime.GOMAXPROCS(0)
	if limit := r.cfg.BatchSize / mcChunkSize; limit >= 1 && limit < inFlight {
		inFlight = limit
	}

	sem := make(chan struct{}, inFlight)

	var wg sync.WaitGroup

	for chunk := 0; chunk < numChunks; chunk++ {
		wg.Add(1)
		sem <- struct{}{}

		go func(chunk int) {
			defer wg.Done()
			defer func() { <-sem }()

			accum := make([]nodeAccum, len(r.idx.Graph.Nodes))

			lo := chunk * mcChunkSize
			hi := lo + mcChunkSize
			if hi > numTx {
				hi = numTx
			}

			for i := lo; i < hi; i++ {
				rng := txStream(r.cfg.Seed, i)
				t, c, outcome := r.walk(rng, r.startID, "", accum)
				times[i] = t
				costs[i] = c
				outcomes[i] = outcome
			}

			chunkAccums[chunk] = accum
		}(chunk)
	}

	wg.Wait()

	merged := make([]nodeAccum, len(r.idx.Graph.Nodes))
	for _, accum := range chunkAccums {
		for i := range merged {
			merged[i].merge(&accum[i])
		}
	}

	return r.results(times, costs, outcomes, merged), nil
}

// walk simulates one transaction (or one gateway branch when stopAt is set)
// and reports its total time, total cost, and outcome. Branch walks stop
// when they reach the gateway's join node without processing it.
func (r *mcRunner) walk(rng *rand.Rand, startID, stopAt string, accum []nodeAccum) (float64, float64, walkOutcome) {
	totalTime := 0.0
	totalCost := 0.0

	currentID := startID

	for hops := 0; hops < r.maxHops; hops++ {
		if stopAt != "" && currentID == stopAt {
			return totalTime, totalCost, outcomeCompleted
		}

		node := r.idx.Node(currentID)
		acc := &accum[r.position[currentID]]

		t, c, ok := r.visit(rng, node, acc)
		totalTime += t
		totalCost += c

		if !ok {
			return totalTime, totalCost, outcomeFailed
		}

		if rng.Float64() < node.Params.DropOffRate {
			acc.drops++

			return totalTime, totalCost, outcomeDropped
		}

		if node.NodeType == models.NodeTypeEnd {
			return totalTime, totalCost, outcomeCompleted
		}

		if node.NodeType == models.NodeTypeParallelGateway {
			branchTime, branchCost, outcome := r.fanOutWalk(rng, node, accum)
			totalTime += branchTime
			totalCost += branchCost

			if outcome != outcomeCompleted {
				return totalTime, totalCost, outcome
			}

			join := r.idx.JoinOf(node.ID)
			if join == "" {
				// Branches ran to their separate ends; nothing downstream.
				return totalTime, totalCost, outcomeCompleted
			}

			currentID = join

			continue
		}

		edges := r.idx.Outgoing(currentID)
		if len(edges) == 0 {
			// Dead end that is not an end node.
			return totalTime, totalCost, outcomeDropped
		}

		currentID = pickEdge(rng, edges).Target
	}

	// Loop traversal exceeded the hop budget.
	return totalTime, totalCost, outcomeFailed
}

// visit samples one node execution including retries. Returns false when
// the error budget is exhausted and the transaction fails.
func (r *mcRunner) visit(rng *rand.Rand, node *models.Node, acc *nodeAccum) (float64, float64, bool) {
	p := node.Params
	workers := float64(p.Workers())

	execTime := sampleDuration(rng, p.ExecTimeMean, p.ExecTimeVariance) / workers
	queueTime := sampleDuration(rng, p.QueueDelayMean, p.QueueDelayVariance)

	t := execTime + queueTime
	retriesUsed := 0
	survived := true

	if p.ErrorRate > 0 && rng.Float64() < p.ErrorRate {
		acc.errors++
		survived = false

		for attempt := 0; attempt < p.MaxRetries; attempt++ {
			retriesUsed++
			t += p.RetryDelay + sampleDuration(rng, p.ExecTimeMean, p.ExecTimeVariance)/workers

			if rng.Float64() >= p.ErrorRate {
				survived = true

				break
			}
		}
	}

	cost := p.CostPerTransaction * float64(1+retriesUsed)

	acc.visits++
	acc.retries += retriesUsed
	acc.costSum += cost
	acc.observeTime(t)

	return t, cost, survived
}

// fanOutWalk runs every branch of a parallel gateway to its local
// completion. The resumed walk pays the slowest branch's time and the sum
// of all branch costs; a failed branch fails the transaction, a dropped
// branch drops it.
func (r *mcRunner) fanOutWalk(rng *rand.Rand, node *models.Node, accum []nodeAccum) (float64, float64, walkOutcome) {
	join := r.idx.JoinOf(node.ID)

	slowest := 0.0
	costSum := 0.0
	outcome := outcomeCompleted

	for _, e := range r.idx.ForwardEdges(node.ID) {
		t, c, branchOutcome := r.walk(rng, e.Target, join, accum)

		slowest = math.Max(slowest, t)
		costSum += c

		// Failure outranks drop-off when branches disagree.
		if branchOutcome == outcomeFailed || (branchOutcome == outcomeDropped && outcome != outcomeFailed) {
			outcome = branchOutcome
		}
	}

	return slowest, costSum, outcome
}

// pickEdge samples an outgoing edge from the categorical distribution over
// branch probabilities.
func pickEdge(rng *rand.Rand, edges []*models.Edge) *models.Edge {
	if len(edges) == 1 {
		return edges[0]
	}

	sum := 0.0
	for _, e := range edges {
		sum += e.Probability
	}

	if sum <= 0 {
		return edges[0]
	}

	target := rng.Float64() * sum

	acc := 0.0
	for _, e := range edges {
		acc += e.Probability
		if target < acc {
			return e
		}
	}

	return edges[len(edges)-1]
}

func (r *mcRunner) results(times, costs []float64, outcomes []walkOutcome, merged []nodeAccum) *models.SimulationResults {
	numTx := r.cfg.NumTransactions

	completed, failed, dropped := 0, 0, 0
	completedTimes := make([]float64, 0, numTx)

	completedTimeSum := 0.0
	completedCostSum := 0.0
	totalCost := 0.0

	for i, outcome := range outcomes {
		totalCost += costs[i]

		switch outcome {
		case outcomeCompleted:
			completed++
			completedTimes = append(completedTimes, times[i])
			completedTimeSum += times[i]
			completedCostSum += costs[i]
		case outcomeFailed:
			failed++
		case outcomeDropped:
			dropped++
		}
	}

	avgTime := 0.0
	avgCost := 0.0

	if completed > 0 {
		avgTime = completedTimeSum / float64(completed)
		avgCost = completedCostSum / float64(completed)
	}

	sorted := sortedCopy(completedTimes)

	minTime, maxTime := 0.0, 0.0
	if len(sorted) > 0 {
		minTime = sorted[0]
		maxTime = sorted[len(sorted)-1]
	}

	records := make([]VisitRecord, 0, len(r.idx.Graph.Nodes))

	for i, n := range r.idx.Graph.Nodes {
		a := merged[i]

		std := 0.0
		if a.timeCount > 1 {
			std = math.Sqrt(a.timeM2 / a.timeCount)
		}

		records = append(records, VisitRecord{
			Node:      n,
			Visits:    float64(a.visits),
			Errors:    float64(a.errors),
			Drops:     float64(a.drops),
			Retries:   float64(a.retries),
			TotalTime: a.timeMean * a.timeCount,
			TotalCost: a.costSum,
			P50Time:   a.timeMean,
			P95Time:   math.Max(0.0, a.timeMean+z95*std),
			P99Time:   math.Max(0.0, a.timeMean+z99*std),
		})
	}

	completedFrac := float64(completed) / float64(numTx)
	throughput := r.cfg.VolumePerHour * completedFrac

	nodeMetrics := BuildNodeMetrics(records, r.cfg)

	return &models.SimulationResults{
		Config:       r.cfg,
		WorkflowName: r.idx.Graph.Name,

		TotalTransactions:     numTx,
		CompletedTransactions: completed,
		FailedTransactions:    failed,
		DroppedTransactions:   dropped,

		AvgTotalTime: avgTime,
		P50TotalTime: percentile(sorted, 50),
		P95TotalTime: percentile(sorted, 95),
		P99TotalTime: percentile(sorted, 99),
		MinTotalTime: minTime,
		MaxTotalTime: maxTime,

		AvgTotalCost: avgCost,
		TotalCost:    totalCost,

		ThroughputPerHour:    throughput,
		MaxThroughputPerHour: maxThroughput(records, throughput),

		NodeMetrics: nodeMetrics,
		Bottlenecks: DetectBottlenecks(nodeMetrics, defaultTopBottlenecks),
	}
}
