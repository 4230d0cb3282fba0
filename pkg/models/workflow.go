// Package models defines the workflow graph and simulation data structures
// shared by the engines, the CLI, and the HTTP API. JSON tags are the wire
// contract consumed by every outer layer.
package models

// NodeType classifies a workflow node.
type NodeType string

const (
	NodeTypeStart           NodeType = "start"
	NodeTypeEnd             NodeType = "end"
	NodeTypeHuman           NodeType = "human"
	NodeTypeAPI             NodeType = "api"
	NodeTypeAsync           NodeType = "async"
	NodeTypeBatch           NodeType = "batch"
	NodeTypeDecision        NodeType = "decision"
	NodeTypeParallelGateway NodeType = "parallel_gateway"
	NodeTypeWait            NodeType = "wait"
)

// EdgeType classifies a workflow edge.
type EdgeType string

const (
	EdgeTypeNormal      EdgeType = "normal"
	EdgeTypeConditional EdgeType = "conditional"
	EdgeTypeDefault     EdgeType = "default"
	EdgeTypeLoop        EdgeType = "loop"
)

// NodeParams holds the timing, cost, error, and capacity attributes of a
// node. Probabilities are in [0,1]; durations and costs are non-negative.
type NodeParams struct {
	ExecTimeMean     float64 `json:"exec_time_mean"     validate:"gte=0"`
	ExecTimeVariance float64 `json:"exec_time_variance" validate:"gte=0"`

	CostPerTransaction float64 `json:"cost_per_transaction" validate:"gte=0"`

	ErrorRate            float64 `json:"error_rate"             validate:"gte=0,lte=1"`
	DropOffRate          float64 `json:"drop_off_rate"          validate:"gte=0,lte=1"`
	SLABreachProbability float64 `json:"sla_breach_probability" validate:"gte=0,lte=1"`
	ConversionRate       float64 `json:"conversion_rate"        validate:"gte=0,lte=1"`

	ParallelizationFactor int      `json:"parallelization_factor" validate:"gte=0"`
	QueueDelayMean        float64  `json:"queue_delay_mean"       validate:"gte=0"`
	QueueDelayVariance    float64  `json:"queue_delay_variance"   validate:"gte=0"`
	CapacityPerHour       *float64 `json:"capacity_per_hour,omitempty"`

	MaxRetries int     `json:"max_retries" validate:"gte=0"`
	RetryDelay float64 `json:"retry_delay" validate:"gte=0"`

	VolumeMultiplier float64 `json:"volume_multiplier" validate:"gte=0"`
}

// Workers returns the parallelization factor clamped to at least one.
func (p NodeParams) Workers() int {
	if p.ParallelizationFactor < 1 {
		return 1
	}

	return p.ParallelizationFactor
}

// Node is a single state transform in the process graph.
type Node struct {
	ID          string     `json:"id"        validate:"required"`
	Name        string     `json:"name"`
	NodeType    NodeType   `json:"node_type" validate:"required,oneof=start end human api async batch decision parallel_gateway wait"`
	Description string     `json:"description,omitempty"`
	Params      NodeParams `json:"params"`
}

// Edge is a directed transition between two nodes. Probability is the branch
// weight for conditional/default edges, pre-normalized per source node.
type Edge struct {
	Source      string   `json:"source"      validate:"required"`
	Target      string   `json:"target"      validate:"required"`
	EdgeType    EdgeType `json:"edge_type"   validate:"required,oneof=normal conditional default loop"`
	Probability float64  `json:"probability" validate:"gte=0,lte=1"`
	Condition   string   `json:"condition,omitempty"`
}

// WorkflowGraph is the complete process graph. Engines treat it as
// immutable; anything that needs a modified graph works on a clone.
type WorkflowGraph struct {
	Name        string  `json:"name" validate:"required"`
	Description string  `json:"description,omitempty"`
	Nodes       []*Node `json:"nodes" validate:"required,min=1,dive"`
	Edges       []*Edge `json:"edges" validate:"dive"`
}

// GetNode returns the node with the given ID, or nil.
func (g *WorkflowGraph) GetNode(id string) *Node {
	for _, n := range g.Nodes {
		if n.ID == id {
			return n
		}
	}

	return nil
}

// StartNodes returns all nodes of type start in insertion order.
func (g *WorkflowGraph) StartNodes() []*Node {
	return g.nodesOfType(NodeTypeStart)
}

// EndNodes returns all nodes of type end in insertion order.
func (g *WorkflowGraph) EndNodes() []*Node {
	return g.nodesOfType(NodeTypeEnd)
}

func (g *WorkflowGraph) nodesOfType(t NodeType) []*Node {
	var out []*Node

	for _, n := range g.Nodes {
		if n.NodeType == t {
			out = append(out, n)
		}
	}

	return out
}
