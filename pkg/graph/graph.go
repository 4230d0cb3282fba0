// Package graph provides read-only indexing, structural validation, cloning,
// and (de)serialization for workflow graphs. Simulation engines consume an
// Index rather than walking the raw edge list.
package graph

import (
	"github.com/flowlens/flowlens/pkg/models"
)

// Index is a precomputed view over a workflow graph: node lookup tables,
// adjacency lists, a topological order with loop edges excluded, and the
// join node of every parallel gateway. Building an Index validates the
// graph structurally and fails fast on malformed input.
type Index struct {
	Graph *models.WorkflowGraph

	nodes map[string]*models.Node
	out   map[string][]*models.Edge
	in    map[string][]*models.Edge

	order []string
	joins map[string]string
}

// NewIndex builds an Index for the given graph. It returns a structural
// error when the graph is missing a start or end node, references unknown
// nodes, has branch probabilities that do not sum to one, or contains a
// cycle not tagged with loop edges.
func NewIndex(g *models.WorkflowGraph) (*Index, error) {
	idx := &Index{
		Graph: g,
		nodes: make(map[string]*models.Node, len(g.Nodes)),
		out:   make(map[string][]*models.Edge),
		in:    make(map[string][]*models.Edge),
	}

	for _, n := range g.Nodes {
		idx.nodes[n.ID] = n
	}

	for _, e := range g.Edges {
		idx.out[e.Source] = append(idx.out[e.Source], e)
		idx.in[e.Target] = append(idx.in[e.Target], e)
	}

	if err := validate(g, idx); err != nil {
		return nil, err
	}

	order, err := topologicalOrder(g, idx)
	if err != nil {
		return nil, err
	}

	idx.order = order
	idx.joins = findJoins(g, idx)

	return idx, nil
}

// Node returns the node with the given ID, or nil.
func (idx *Index) Node(id string) *models.Node {
	return idx.nodes[id]
}

// Outgoing returns all outgoing edges of a node in insertion order.
func (idx *Index) Outgoing(id string) []*models.Edge {
	return idx.out[id]
}

// Incoming returns all incoming edges of a node in insertion order.
func (idx *Index) Incoming(id string) []*models.Edge {
	return idx.in[id]
}

// ForwardEdges returns the outgoing edges of a node excluding loop edges.
func (idx *Index) ForwardEdges(id string) []*models.Edge {
	var out []*models.Edge

	for _, e := range idx.out[id] {
		if e.EdgeType != models.EdgeTypeLoop {
			out = append(out, e)
		}
	}

	return out
}

// Order returns the topological order over the graph with loop edges
// excluded. Callers must not mutate the returned slice.
func (idx *Index) Order() []string {
	return idx.order
}

// JoinOf returns the join node of a parallel gateway: the first node in
// topological order reachable from every fan-out branch. Returns "" when
// the branches never reconverge.
func (idx *Index) JoinOf(gatewayID string) string {
	return idx.joins[gatewayID]
}

// topologicalOrder runs Kahn's algorithm over the graph with loop edges
// removed. A residual cycle means an untagged loop and is rejected.
func topologicalOrder(g *models.WorkflowGraph, idx *Index) ([]string, error) {
	indegree := make(map[string]int, len(g.Nodes))
	for _, n := range g.Nodes {
		indegree[n.ID] = 0
	}

	for _, e := range g.Edges {
		if e.EdgeType == models.EdgeTypeLoop {
			continue
		}

		indegree[e.Target]++
	}

	// Seed the queue in node insertion order so the result is stable.
	var queue []string

	for _, n := range g.Nodes {
		if indegree[n.ID] == 0 {
			queue = append(queue, n.ID)
		}
	}

	order := make([]string, 0, len(g.Nodes))

	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		order = append(order, id)

		for _, e := range idx.out[id] {
			if e.EdgeType == models.EdgeTypeLoop {
				continue
			}

			indegree[e.Target]--
			if indegree[e.Target] == 0 {
				queue = append(queue, e.Target)
			}
		}
	}

	if len(order) != len(g.Nodes) {
		return nil, ErrUntaggedCycle
	}

	return order, nil
}

// findJoins locates, for every parallel gateway, the earliest node in
// topological order reachable from all of its fan-out branches.
func findJoins(g *models.WorkflowGraph, idx *Index) map[string]string {
	position := make(map[string]int, len(idx.order))
	for i, id := range idx.order {
		position[id] = i
	}

	joins := make(map[string]string)

	for _, n := range g.Nodes {
		if n.NodeType != models.NodeTypeParallelGateway {
			continue
		}

		branches := idx.ForwardEdges(n.ID)
		if len(branches) < 2 {
			continue
		}

		var common map[string]bool

		for _, e := range branches {
			reach := idx.reachableFrom(e.Target)
			if common == nil {
				common = reach

				continue
			}

			for id := range common {
				if !reach[id] {
					delete(common, id)
				}
			}
		}

		join := ""
		best := len(idx.order)

		for id := range common {
			if position[id] < best {
				best = position[id]
				join = id
			}
		}

		joins[n.ID] = join
	}

	return joins
}

// reachableFrom returns the set of nodes reachable from start (inclusive)
// over non-loop edges.
func (idx *Index) reachableFrom(start string) map[string]bool {
	seen := map[string]bool{start: true}
	stack := []string{start}

	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		for _, e := range idx.out[id] {
			if e.EdgeType == models.EdgeTypeLoop {
				continue
			}

			if !seen[e.Target] {
				seen[e.Target] = true
				stack = append(stack, e.Target)
			}
		}
	}

	return seen
}

// LoopBody returns the node IDs on a forward path from the loop edge's
// target back to its source, both endpoints included. These are the nodes
// revisited on every loop iteration.
func (idx *Index) LoopBody(loop *models.Edge) map[string]bool {
	fromTarget := idx.reachableFrom(loop.Target)

	body := make(map[string]bool)

	for id := range fromTarget {
		if idx.reaches(id, loop.Source) {
			body[id] = true
		}
	}

	return body
}

func (idx *Index) reaches(from, to string) bool {
	return idx.reachableFrom(from)[to]
}

// Between returns the nodes on any forward path from one node to another,
// both endpoints included when they lie on such a path.
func (idx *Index) Between(from, to string) map[string]bool {
	out := make(map[string]bool)

	for id := range idx.reachableFrom(from) {
		if idx.reaches(id, to) {
			out[id] = true
		}
	}

	return out
}
