package graph

import (
	"fmt"
	"math"

	"github.com/flowlens/flowlens/pkg/models"
)

// probabilityTolerance is the allowed deviation from 1.0 when checking that
// branch weights at a node sum to one. Upstream normalization is
// responsible for exact weights; the engine never renormalizes silently.
const probabilityTolerance = 1e-6

func validate(g *models.WorkflowGraph, idx *Index) error {
	if len(g.StartNodes()) == 0 {
		return ErrNoStartNode
	}

	if len(g.EndNodes()) == 0 {
		return ErrNoEndNode
	}

	for _, e := range g.Edges {
		if idx.nodes[e.Source] == nil {
			return &StructuralError{Detail: fmt.Sprintf("edge source %q not found", e.Source)}
		}

		if idx.nodes[e.Target] == nil {
			return &StructuralError{Detail: fmt.Sprintf("edge target %q not found", e.Target)}
		}

		if e.Source == e.Target && e.EdgeType != models.EdgeTypeLoop {
			return &StructuralError{NodeID: e.Source, Detail: "self-loop without loop edge type"}
		}
	}

	for _, n := range g.Nodes {
		if err := validateBranchWeights(n, idx); err != nil {
			return err
		}
	}

	return nil
}

// validateBranchWeights enforces that when a node has more than one
// conditional/default outgoing edge, their probabilities sum to 1.0 within
// tolerance. Parallel gateways fan out with full probability per branch and
// are exempt.
func validateBranchWeights(n *models.Node, idx *Index) error {
	if n.NodeType == models.NodeTypeParallelGateway {
		return nil
	}

	branching := 0
	sum := 0.0

	for _, e := range idx.out[n.ID] {
		if e.EdgeType == models.EdgeTypeConditional || e.EdgeType == models.EdgeTypeDefault {
			branching++
			sum += e.Probability
		}
	}

	if branching > 1 && math.Abs(sum-1.0) > probabilityTolerance {
		return &StructuralError{
			NodeID: n.ID,
			Detail: fmt.Sprintf("outgoing branch probabilities sum to %.6f, expected 1.0", sum),
		}
	}

	return nil
}
