// Package simulation implements the deterministic and Monte Carlo engines,
// the shared metrics aggregation, bottleneck detection, and sensitivity
// analysis over workflow graphs.
package simulation

import (
	"math"

	"github.com/flowlens/flowlens/pkg/graph"
	"github.com/flowlens/flowlens/pkg/models"
)

// maxLoopIterations bounds the geometric unrolling of loop edges in the
// deterministic engine so traversal always terminates.
const maxLoopIterations = 10

// Deterministic result spreads: without sampled distributions the tails are
// reported as fixed multiples of the expected value.
const (
	detP95Spread = 1.3
	detP99Spread = 1.6
	detMinSpread = 0.7
	detMaxSpread = 2.0
)

const massEpsilon = 1e-12

// pathContribution is the mass a processed node hands to one successor,
// together with the expected elapsed time and accumulated cost at that
// point. The source node lets a join attribute the mass to the gateway
// branch it travelled through.
type pathContribution struct {
	source string
	mass   float64
	time   float64
	cost   float64
}

// RunDeterministic computes expected-value metrics by propagating
// probability mass through the graph in topological order. Loop edges are
// unrolled geometrically up to maxLoopIterations; parallel gateway branches
// rejoin with max-time and summed-cost semantics.
func RunDeterministic(g *models.WorkflowGraph, cfg models.SimulationConfig) (*models.SimulationResults, error) {
	cfg.Mode = models.ModeDeterministic

	if err := validateConfig(cfg); err != nil {
		return nil, err
	}

	idx, err := graph.NewIndex(g)
	if err != nil {
		return nil, err
	}

	st, err := newDetState(idx, cfg)
	if err != nil {
		return nil, err
	}

	for _, id := range idx.Order() {
		st.process(id)
	}

	return st.results(), nil
}

type detState struct {
	idx *graph.Index
	cfg models.SimulationConfig

	repeat   map[string]float64
	pathTime map[string]float64
	pathCost map[string]float64
	outMass  map[string]float64

	contribs map[string][]pathContribution

	// Gateway bookkeeping: which node joins which gateway, which gateway
	// region (if any) a node's losses belong to, and which branch head each
	// region member sits under.
	joinGateway map[string]string
	regionOf    map[string]string
	regionFail  map[string]float64
	regionDrop  map[string]float64
	branchOf    map[string]map[string]string

	failedMass  float64
	droppedMass float64

	completedMass float64
	completedTime float64
	completedCost float64

	records []VisitRecord
	byNode  map[string]*VisitRecord
}

func newDetState(idx *graph.Index, cfg models.SimulationConfig) (*detState, error) {
	st := &detState{
		idx:         idx,
		cfg:         cfg,
		repeat:      make(map[string]float64),
		pathTime:    make(map[string]float64),
		pathCost:    make(map[string]float64),
		outMass:     make(map[string]float64),
		contribs:    make(map[string][]pathContribution),
		joinGateway: make(map[string]string),
		regionOf:    make(map[string]string),
		regionFail:  make(map[string]float64),
		regionDrop:  make(map[string]float64),
		branchOf:    make(map[string]map[string]string),
		records:     make([]VisitRecord, 0, len(idx.Graph.Nodes)),
		byNode:      make(map[string]*VisitRecord, len(idx.Graph.Nodes)),
	}

	for _, n := range idx.Graph.Nodes {
		st.repeat[n.ID] = 1.0
	}

	for _, e := range idx.Graph.Edges {
		if e.EdgeType != models.EdgeTypeLoop {
			continue
		}

		factor := geometricRepeat(e.Probability, maxLoopIterations)
		for id := range idx.LoopBody(e) {
			st.repeat[id] *= factor
		}
	}

	if err := st.mapGatewayRegions(); err != nil {
		return nil, err
	}

	for _, n := range idx.Graph.Nodes {
		st.records = append(st.records, VisitRecord{Node: n})
		st.byNode[n.ID] = &st.records[len(st.records)-1]
	}

	return st, nil
}

// mapGatewayRegions records, in topological order, the join node of every
// gateway and the innermost gateway region each node's losses roll up to.
// A gateway whose branches never reconverge cannot be expressed as expected
// values and is rejected.
func (st *detState) mapGatewayRegions() error {
	for _, id := range st.idx.Order() {
		n := st.idx.Node(id)
		if n.NodeType != models.NodeTypeParallelGateway {
			continue
		}

		if len(st.idx.ForwardEdges(id)) < 2 {
			continue
		}

		join := st.idx.JoinOf(id)
		if join == "" {
			return &graph.StructuralError{NodeID: id, Detail: ErrUnjoinedGateway.Error()}
		}

		// Later gateways overwrite earlier ones, so nested regions map to
		// the innermost gateway.
		st.joinGateway[join] = id

		branches := make(map[string]string)

		for _, branch := range st.idx.ForwardEdges(id) {
			for member := range st.idx.Between(branch.Target, join) {
				if member != join {
					st.regionOf[member] = id
					branches[member] = branch.Target
				}
			}
		}

		st.branchOf[id] = branches
	}

	return nil
}

func (st *detState) process(id string) {
	n := st.idx.Node(id)
	p := n.Params

	mass, entryTime, entryCost := st.entryState(n)

	retries := expectedRetries(p.ErrorRate, p.MaxRetries)
	pFail := failureProbability(p.ErrorRate, p.MaxRetries)

	execTime := p.ExecTimeMean / float64(p.Workers())
	timePerVisit := execTime + p.QueueDelayMean + retries*(p.RetryDelay+execTime)
	costPerVisit := p.CostPerTransaction * (1.0 + retries)

	rf := st.repeat[id]

	st.pathTime[id] = entryTime + timePerVisit*rf
	st.pathCost[id] = entryCost + costPerVisit*rf

	failed := mass * pFail
	dropped := (mass - failed) * p.DropOffRate
	surviving := mass - failed - dropped

	st.recordLoss(id, failed, dropped)
	st.tally(n, mass, rf, timePerVisit, costPerVisit, retries, dropped)

	st.outMass[id] = surviving

	if n.NodeType == models.NodeTypeEnd {
		st.completedMass += surviving
		st.completedTime += st.pathTime[id] * surviving
		st.completedCost += st.pathCost[id] * surviving

		return
	}

	forward := st.idx.ForwardEdges(id)
	if len(forward) == 0 {
		// A dead end that is not an end node sheds its population.
		st.recordLoss(id, 0, surviving)

		return
	}

	st.fanOut(n, forward, surviving)
}

// entryState combines the incoming contributions of a node. Ordinary merges
// take mass-weighted averages; the join node of a parallel gateway takes the
// slowest branch's time, the summed branch costs, and the joint survival
// probability of all branches.
func (st *detState) entryState(n *models.Node) (mass, entryTime, entryCost float64) {
	if n.NodeType == models.NodeTypeStart {
		return 1.0, 0.0, 0.0
	}

	contribs := st.contribs[n.ID]
	if len(contribs) == 0 {
		return 0.0, 0.0, 0.0
	}

	if gw, ok := st.joinGateway[n.ID]; ok {
		return st.joinState(n.ID, gw, contribs)
	}

	for _, c := range contribs {
		mass += c.mass
	}

	if mass <= massEpsilon {
		return 0.0, 0.0, 0.0
	}

	for _, c := range contribs {
		entryTime += c.time * c.mass / mass
		entryCost += c.cost * c.mass / mass
	}

	return mass, entryTime, entryCost
}

// joinState folds the contributions arriving at a gateway's join. Several
// contributions can belong to the same branch when a decision inside it
// fans out; those are alternative paths of one transaction copy, so their
// masses add and their times average before branches multiply as
// independent survivals.
func (st *detState) joinState(joinID, gatewayID string, contribs []pathContribution) (mass, entryTime, entryCost float64) {
	gwMass := st.outMass[gatewayID]
	gwTime := st.pathTime[gatewayID]
	gwCost := st.pathCost[gatewayID]

	if gwMass <= massEpsilon {
		return 0.0, 0.0, 0.0
	}

	type branchAgg struct {
		mass    float64
		timeSum float64
		costSum float64
	}

	members := st.branchOf[gatewayID]
	byBranch := make(map[string]*branchAgg)

	var order []string

	for _, c := range contribs {
		head, ok := members[c.source]
		if !ok {
			head = c.source
		}

		agg, seen := byBranch[head]
		if !seen {
			agg = &branchAgg{}
			byBranch[head] = agg
			order = append(order, head)
		}

		agg.mass += c.mass
		agg.timeSum += c.time * c.mass
		agg.costSum += c.cost * c.mass
	}

	survival := 1.0
	slowest := 0.0
	branchCost := 0.0

	for _, head := range order {
		agg := byBranch[head]
		if agg.mass <= massEpsilon {
			survival = 0.0

			continue
		}

		survival *= math.Min(agg.mass/gwMass, 1.0)
		slowest = math.Max(slowest, agg.timeSum/agg.mass-gwTime)
		branchCost += agg.costSum/agg.mass - gwCost
	}

	mass = gwMass * survival
	entryTime = gwTime + slowest
	entryCost = gwCost + branchCost

	// Branch losses were tallied per copy of the transaction; replace them
	// with the joint loss so population mass stays conserved.
	st.collapseRegionLoss(joinID, gatewayID, gwMass-mass)

	return mass, entryTime, entryCost
}

func (st *detState) collapseRegionLoss(joinID, gatewayID string, jointLoss float64) {
	fail := st.regionFail[gatewayID]
	drop := st.regionDrop[gatewayID]
	st.regionFail[gatewayID] = 0
	st.regionDrop[gatewayID] = 0

	if jointLoss <= massEpsilon {
		return
	}

	scaledFail, scaledDrop := jointLoss, 0.0
	if total := fail + drop; total > massEpsilon {
		scaledFail = jointLoss * fail / total
		scaledDrop = jointLoss * drop / total
	} else {
		scaledFail, scaledDrop = 0.0, jointLoss
	}

	// Losses inside a nested region roll up to the enclosing one.
	if outer, ok := st.regionOf[joinID]; ok {
		st.regionFail[outer] += scaledFail
		st.regionDrop[outer] += scaledDrop

		return
	}

	st.failedMass += scaledFail
	st.droppedMass += scaledDrop
}

func (st *detState) recordLoss(id string, failed, dropped float64) {
	if gw, ok := st.regionOf[id]; ok {
		st.regionFail[gw] += failed
		st.regionDrop[gw] += dropped

		return
	}

	st.failedMass += failed
	st.droppedMass += dropped
}

func (st *detState) tally(n *models.Node, mass, rf, timePerVisit, costPerVisit, retries, dropped float64) {
	population := float64(st.cfg.NumTransactions)
	rec := st.byNode[n.ID]

	rec.Visits += mass * rf * population
	rec.Errors += mass * n.Params.ErrorRate * population
	rec.Drops += dropped * population
	rec.Retries += mass * retries * population
	rec.TotalTime += timePerVisit * rf * mass * population
	rec.TotalCost += costPerVisit * rf * mass * population

	rec.P50Time = timePerVisit
	rec.P95Time = timePerVisit * detP95Spread
	rec.P99Time = timePerVisit * detP99Spread
}

// fanOut distributes surviving mass across forward edges. Parallel gateways
// hand the full mass to every branch; everything else splits proportionally
// to branch probability.
func (st *detState) fanOut(n *models.Node, forward []*models.Edge, surviving float64) {
	if n.NodeType == models.NodeTypeParallelGateway {
		for _, e := range forward {
			st.push(e.Target, n.ID, surviving)
		}

		return
	}

	sum := 0.0
	for _, e := range forward {
		sum += e.Probability
	}

	for _, e := range forward {
		share := 1.0 / float64(len(forward))
		if sum > 0 {
			share = e.Probability / sum
		}

		st.push(e.Target, n.ID, surviving*share)
	}
}

func (st *detState) push(target, source string, mass float64) {
	st.contribs[target] = append(st.contribs[target], pathContribution{
		source: source,
		mass:   mass,
		time:   st.pathTime[source],
		cost:   st.pathCost[source],
	})
}

func (st *detState) results() *models.SimulationResults {
	population := st.cfg.NumTransactions

	completed := int(math.Round(st.completedMass * float64(population)))
	dropped := int(math.Round(st.droppedMass * float64(population)))
	failed := population - completed - dropped

	avgTime := 0.0
	avgCost := 0.0

	if st.completedMass > massEpsilon {
		avgTime = st.completedTime / st.completedMass
		avgCost = st.completedCost / st.completedMass
	}

	totalCost := 0.0
	for _, r := range st.records {
		totalCost += r.TotalCost
	}

	throughput := st.cfg.VolumePerHour * st.completedMass

	nodeMetrics := BuildNodeMetrics(st.records, st.cfg)

	return &models.SimulationResults{
		Config:       st.cfg,
		WorkflowName: st.idx.Graph.Name,

		TotalTransactions:     population,
		CompletedTransactions: completed,
		FailedTransactions:    failed,
		DroppedTransactions:   dropped,

		AvgTotalTime: avgTime,
		P50TotalTime: avgTime,
		P95TotalTime: avgTime * detP95Spread,
		P99TotalTime: avgTime * detP99Spread,
		MinTotalTime: avgTime * detMinSpread,
		MaxTotalTime: avgTime * detMaxSpread,

		AvgTotalCost: avgCost,
		TotalCost:    totalCost,

		ThroughputPerHour:    throughput,
		MaxThroughputPerHour: maxThroughput(st.records, throughput),

		NodeMetrics: nodeMetrics,
		Bottlenecks: DetectBottlenecks(nodeMetrics, defaultTopBottlenecks),
	}
}

// geometricRepeat is the expected number of visits to a loop body when the
// re-entry probability is p and unrolling is capped: sum of p^k for k in
// [0, cap).
func geometricRepeat(p float64, cap int) float64 {
	if p <= 0 {
		return 1.0
	}

	if p >= 1 {
		return float64(cap)
	}

	return (1.0 - math.Pow(p, float64(cap))) / (1.0 - p)
}
