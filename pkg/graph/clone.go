package graph

import "github.com/flowlens/flowlens/pkg/models"

// Clone produces a deep copy of a workflow graph. The intervention and
// sensitivity layers mutate clones only, so a baseline graph can always be
// compared side by side with a modified proposal.
func Clone(g *models.WorkflowGraph) *models.WorkflowGraph {
	out := &models.WorkflowGraph{
		Name:        g.Name,
		Description: g.Description,
		Nodes:       make([]*models.Node, len(g.Nodes)),
		Edges:       make([]*models.Edge, len(g.Edges)),
	}

	for i, n := range g.Nodes {
		node := *n

		if n.Params.CapacityPerHour != nil {
			capacity := *n.Params.CapacityPerHour
			node.Params.CapacityPerHour = &capacity
		}

		out.Nodes[i] = &node
	}

	for i, e := range g.Edges {
		edge := *e
		out.Edges[i] = &edge
	}

	return out
}
