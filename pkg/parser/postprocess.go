package parser

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/kaptinlin/jsonrepair"

	"github.com/flowlens/flowlens/pkg/graph"
	"github.com/flowlens/flowlens/pkg/models"
)

// rawWorkflow mirrors the loose JSON shape the model emits. Node parameters
// are inlined rather than nested, and anything may be missing.
type rawWorkflow struct {
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Nodes       []rawNode `json:"nodes"`
	Edges       []rawEdge `json:"edges"`
}

type rawNode struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	NodeType    string `json:"node_type"`
	Description string `json:"description"`

	ExecTimeMean          *float64 `json:"exec_time_mean"`
	ExecTimeVariance      *float64 `json:"exec_time_variance"`
	CostPerTransaction    *float64 `json:"cost_per_transaction"`
	ErrorRate             *float64 `json:"error_rate"`
	DropOffRate           *float64 `json:"drop_off_rate"`
	QueueDelayMean        *float64 `json:"queue_delay_mean"`
	CapacityPerHour       *float64 `json:"capacity_per_hour"`
	MaxRetries            *int     `json:"max_retries"`
	RetryDelay            *float64 `json:"retry_delay"`
	ParallelizationFactor *int     `json:"parallelization_factor"`
}

type rawEdge struct {
	Source      string   `json:"source"`
	Target      string   `json:"target"`
	EdgeType    string   `json:"edge_type"`
	Probability *float64 `json:"probability"`
	Condition   string   `json:"condition"`
}

// Postprocess converts raw model output into a validated workflow graph.
// Malformed JSON is repaired, edge references are fuzzily matched against
// node ids, a missing edge list is replaced with an inferred linear chain,
// and decision branch probabilities are normalized to sum to one.
func Postprocess(content string) (*models.WorkflowGraph, error) {
	content = stripFences(content)

	var raw rawWorkflow
	if err := json.Unmarshal([]byte(content), &raw); err != nil {
		repaired, repairErr := jsonrepair.JSONRepair(content)
		if repairErr != nil {
			return nil, fmt.Errorf("failed to parse workflow JSON and failed to repair it: parse error: %w, repair error: %v", err, repairErr)
		}

		if err := json.Unmarshal([]byte(repaired), &raw); err != nil {
			return nil, fmt.Errorf("failed to parse repaired workflow JSON: %w", err)
		}
	}

	g := &models.WorkflowGraph{
		Name:        raw.Name,
		Description: raw.Description,
	}

	if g.Name == "" {
		g.Name = "Unnamed Workflow"
	}

	for _, rn := range raw.Nodes {
		if rn.ID == "" {
			continue
		}

		nodeType := models.NodeType(rn.NodeType)

		g.Nodes = append(g.Nodes, &models.Node{
			ID:          rn.ID,
			Name:        rn.Name,
			NodeType:    nodeType,
			Description: rn.Description,
			Params:      nodeParams(rn, nodeType),
		})
	}

	g.Edges = repairEdges(g.Nodes, raw.Edges)

	graph.ApplyDefaults(g)
	normalizeDecisionProbabilities(g)

	// Structural validation runs via the same path the engines use.
	if _, err := graph.NewIndex(g); err != nil {
		return nil, fmt.Errorf("generated workflow is invalid: %w", err)
	}

	return g, nil
}

func nodeParams(rn rawNode, nodeType models.NodeType) models.NodeParams {
	p := models.NodeParams{
		ExecTimeMean:     defaultExecTime(nodeType),
		ExecTimeVariance: 0.1,
	}

	if rn.ExecTimeMean != nil {
		p.ExecTimeMean = *rn.ExecTimeMean
	}

	if rn.ExecTimeVariance != nil {
		p.ExecTimeVariance = *rn.ExecTimeVariance
	}

	if rn.CostPerTransaction != nil {
		p.CostPerTransaction = *rn.CostPerTransaction
	}

	if rn.ErrorRate != nil {
		p.ErrorRate = math.Min(math.Max(*rn.ErrorRate, 0.0), 1.0)
	}

	if rn.DropOffRate != nil {
		p.DropOffRate = math.Min(math.Max(*rn.DropOffRate, 0.0), 1.0)
	}

	if rn.QueueDelayMean != nil {
		p.QueueDelayMean = *rn.QueueDelayMean
	}

	if rn.CapacityPerHour != nil && *rn.CapacityPerHour > 0 {
		p.CapacityPerHour = rn.CapacityPerHour
	}

	if rn.MaxRetries != nil {
		p.MaxRetries = *rn.MaxRetries
	}

	if rn.RetryDelay != nil {
		p.RetryDelay = *rn.RetryDelay
	}

	if rn.ParallelizationFactor != nil {
		p.ParallelizationFactor = *rn.ParallelizationFactor
	}

	return p
}

// defaultExecTime returns a plausible execution time when the model omitted
// one, scaled to the kind of work the node type represents.
func defaultExecTime(nodeType models.NodeType) float64 {
	switch nodeType {
	case models.NodeTypeStart, models.NodeTypeEnd, models.NodeTypeParallelGateway:
		return 0.0
	case models.NodeTypeHuman:
		return 300.0
	case models.NodeTypeAPI:
		return 1.0
	case models.NodeTypeAsync:
		return 5.0
	case models.NodeTypeBatch:
		return 60.0
	case models.NodeTypeDecision:
		return 0.1
	case models.NodeTypeWait:
		return 30.0
	default:
		return 1.0
	}
}

// repairEdges fixes edge references that almost match a node id and infers a
// linear start-to-end chain when the model returned no usable edges.
func repairEdges(nodes []*models.Node, rawEdges []rawEdge) []*models.Edge {
	nodeIDs := make(map[string]struct{}, len(nodes))
	for _, n := range nodes {
		nodeIDs[n.ID] = struct{}{}
	}

	var repaired []*models.Edge

	for _, re := range rawEdges {
		if re.Source == "" || re.Target == "" {
			continue
		}

		src := matchNodeID(re.Source, nodeIDs)
		tgt := matchNodeID(re.Target, nodeIDs)

		if src == "" || tgt == "" {
			continue
		}

		edgeType := models.EdgeType(re.EdgeType)
		if edgeType == "" {
			edgeType = models.EdgeTypeNormal
		}

		probability := 1.0
		if re.Probability != nil {
			probability = *re.Probability
		}

		repaired = append(repaired, &models.Edge{
			Source:      src,
			Target:      tgt,
			EdgeType:    edgeType,
			Probability: probability,
			Condition:   re.Condition,
		})
	}

	if len(repaired) == 0 {
		return inferLinearChain(nodes)
	}

	return repaired
}

// inferLinearChain builds start -> process_1 -> ... -> process_n -> end in
// node declaration order.
func inferLinearChain(nodes []*models.Node) []*models.Edge {
	var start, end string

	var middle []string

	for _, n := range nodes {
		switch n.NodeType {
		case models.NodeTypeStart:
			if start == "" {
				start = n.ID
			}
		case models.NodeTypeEnd:
			if end == "" {
				end = n.ID
			}
		default:
			middle = append(middle, n.ID)
		}
	}

	if start == "" || end == "" {
		return nil
	}

	var edges []*models.Edge

	prev := start
	for _, id := range append(middle, end) {
		edges = append(edges, &models.Edge{
			Source:      prev,
			Target:      id,
			EdgeType:    models.EdgeTypeNormal,
			Probability: 1.0,
		})
		prev = id
	}

	return edges
}

// matchNodeID resolves an edge endpoint against the node set, tolerating
// case and hyphen/underscore mismatches. Returns "" when nothing matches.
func matchNodeID(candidate string, nodeIDs map[string]struct{}) string {
	if _, ok := nodeIDs[candidate]; ok {
		return candidate
	}

	normalized := normalizeID(candidate)
	for id := range nodeIDs {
		if normalizeID(id) == normalized {
			return id
		}
	}

	return ""
}

func normalizeID(s string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_")
}

// normalizeDecisionProbabilities rescales conditional/default branch weights
// at each node so they sum to exactly one. The engines validate and never
// renormalize, so repair happens here at the boundary.
func normalizeDecisionProbabilities(g *models.WorkflowGraph) {
	bySource := make(map[string][]*models.Edge)

	for _, e := range g.Edges {
		if e.EdgeType == models.EdgeTypeConditional || e.EdgeType == models.EdgeTypeDefault {
			bySource[e.Source] = append(bySource[e.Source], e)
		}
	}

	for source, edges := range bySource {
		if len(edges) < 2 {
			continue
		}

		if node := g.GetNode(source); node != nil && node.NodeType == models.NodeTypeParallelGateway {
			continue
		}

		sum := 0.0
		for _, e := range edges {
			sum += e.Probability
		}

		if sum <= 0 {
			equal := 1.0 / float64(len(edges))
			for _, e := range edges {
				e.Probability = equal
			}

			continue
		}

		for _, e := range edges {
			e.Probability /= sum
		}
	}
}

// stripFences removes markdown code fences the model sometimes wraps JSON in.
func stripFences(content string) string {
	content = strings.TrimSpace(content)

	if strings.HasPrefix(content, "```") {
		if idx := strings.Index(content, "\n"); idx != -1 {
			content = content[idx+1:]
		}

		content = strings.TrimSuffix(strings.TrimSpace(content), "```")
	}

	return strings.TrimSpace(content)
}
