package export

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowlens/flowlens/pkg/models"
)

func diagramGraph() *models.WorkflowGraph {
	return &models.WorkflowGraph{
		Name: "invoices",
		Nodes: []*models.Node{
			{ID: "start", Name: "Start", NodeType: models.NodeTypeStart},
			{ID: "review", Name: "Manual Review", NodeType: models.NodeTypeHuman},
			{ID: "route", Name: "Valid?", NodeType: models.NodeTypeDecision},
			{ID: "end", Name: "Done", NodeType: models.NodeTypeEnd},
		},
		Edges: []*models.Edge{
			{Source: "start", Target: "review", EdgeType: models.EdgeTypeNormal, Probability: 1.0},
			{Source: "review", Target: "route", EdgeType: models.EdgeTypeNormal, Probability: 1.0},
			{Source: "route", Target: "end", EdgeType: models.EdgeTypeConditional, Probability: 0.8, Condition: "approved"},
			{Source: "route", Target: "review", EdgeType: models.EdgeTypeLoop, Probability: 0.2},
		},
	}
}

func TestGenerateMermaidShapesAndStyles(t *testing.T) {
	t.Parallel()

	diagram := GenerateMermaid(diagramGraph(), nil, false)

	assert.True(t, strings.HasPrefix(diagram, "flowchart LR\n"))
	assert.Contains(t, diagram, `n_start(["Start"])`)
	assert.Contains(t, diagram, `n_review[/"Manual Review"/]`)
	assert.Contains(t, diagram, `n_route{"Valid?"}`)
	assert.Contains(t, diagram, `n_end(["Done"])`)
	assert.Contains(t, diagram, "style n_start fill:#4CAF50,color:#fff")
	assert.Contains(t, diagram, "style n_review fill:#2196F3,color:#fff")
}

func TestGenerateMermaidEdges(t *testing.T) {
	t.Parallel()

	diagram := GenerateMermaid(diagramGraph(), nil, false)

	// Unconditional edges have no label; conditions win over probabilities;
	// loop edges use a dotted arrow.
	assert.Contains(t, diagram, "n_start --> n_review")
	assert.Contains(t, diagram, "n_route -->|approved| n_end")
	assert.Contains(t, diagram, "n_route -.->|20%| n_review")
}

func TestGenerateMermaidSafeIDs(t *testing.T) {
	t.Parallel()

	g := &models.WorkflowGraph{
		Name: "ids",
		Nodes: []*models.Node{
			{ID: "end", Name: "End", NodeType: models.NodeTypeEnd},
			{ID: "check invoice.total", Name: "Check", NodeType: models.NodeTypeAPI},
			{ID: "re-run", Name: "Re-run", NodeType: models.NodeTypeAPI},
		},
	}

	diagram := GenerateMermaid(g, nil, false)

	// "end" is a Mermaid reserved word, and ids must not carry separators.
	assert.Contains(t, diagram, `n_end(["End"])`)
	assert.Contains(t, diagram, `n_check_invoice_total[["Check"]]`)
	assert.Contains(t, diagram, `n_re_run[["Re-run"]]`)
}

func TestGenerateMermaidEscapesLabels(t *testing.T) {
	t.Parallel()

	g := &models.WorkflowGraph{
		Name: "escape",
		Nodes: []*models.Node{
			{ID: "pay", Name: `Pay "rush" orders > $100 #priority`, NodeType: models.NodeTypeAPI},
		},
		Edges: []*models.Edge{
			{Source: "pay", Target: "pay", EdgeType: models.EdgeTypeLoop, Probability: 0.1, Condition: "amount | retry"},
		},
	}

	diagram := GenerateMermaid(g, nil, false)

	assert.Contains(t, diagram, `n_pay[["Pay 'rush' orders > #36;100 #35;priority"]]`)
	assert.Contains(t, diagram, "|amount #124; retry|")
	assert.NotContains(t, diagram, `\n`)
}

func TestGenerateMermaidMetricAnnotations(t *testing.T) {
	t.Parallel()

	g := diagramGraph()
	results := &models.SimulationResults{
		NodeMetrics: []*models.NodeMetrics{
			{NodeID: "review", TransactionsProcessed: 900, AvgTime: 12.34, AvgCost: 2.5},
			{NodeID: "route", TransactionsProcessed: 0},
		},
	}

	diagram := GenerateMermaid(g, results, true)

	require.Contains(t, diagram, `n_review[/"Manual Review<br/>12.3s / #36;2.50"/]`)
	// Nodes with no traffic stay unannotated.
	assert.Contains(t, diagram, `n_route{"Valid?"}`)

	// Metrics off: no annotations at all.
	plain := GenerateMermaid(g, results, false)
	assert.NotContains(t, plain, "<br/>")
}
