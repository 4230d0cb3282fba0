package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowlens/flowlens/pkg/models"
)

const validWorkflowJSON = `{
  "name": "Invoice Processing",
  "nodes": [
    {"id": "start", "name": "Start", "node_type": "start"},
    {"id": "validate", "name": "Validate", "node_type": "api", "exec_time_mean": 2.5, "error_rate": 0.05},
    {"id": "end", "name": "Done", "node_type": "end"}
  ],
  "edges": [
    {"source": "start", "target": "validate"},
    {"source": "validate", "target": "end"}
  ]
}`

func TestPostprocessValidJSON(t *testing.T) {
	t.Parallel()

	g, err := Postprocess(validWorkflowJSON)
	require.NoError(t, err)

	assert.Equal(t, "Invoice Processing", g.Name)
	require.Len(t, g.Nodes, 3)
	require.Len(t, g.Edges, 2)

	validate := g.GetNode("validate")
	require.NotNil(t, validate)
	assert.Equal(t, 2.5, validate.Params.ExecTimeMean)
	assert.Equal(t, 0.05, validate.Params.ErrorRate)

	// Missing edge fields pick up defaults.
	assert.Equal(t, models.EdgeTypeNormal, g.Edges[0].EdgeType)
	assert.Equal(t, 1.0, g.Edges[0].Probability)
}

func TestPostprocessStripsCodeFences(t *testing.T) {
	t.Parallel()

	fenced := "```json\n" + validWorkflowJSON + "\n```"

	g, err := Postprocess(fenced)
	require.NoError(t, err)
	assert.Equal(t, "Invoice Processing", g.Name)
}

func TestPostprocessRepairsMalformedJSON(t *testing.T) {
	t.Parallel()

	// Trailing comma and single quotes, typical model sloppiness.
	malformed := `{
  'name': 'Repaired',
  'nodes': [
    {'id': 'start', 'node_type': 'start'},
    {'id': 'work', 'node_type': 'api'},
    {'id': 'end', 'node_type': 'end'},
  ],
  'edges': [
    {'source': 'start', 'target': 'work'},
    {'source': 'work', 'target': 'end'},
  ],
}`

	g, err := Postprocess(malformed)
	require.NoError(t, err)
	assert.Equal(t, "Repaired", g.Name)
	assert.Len(t, g.Nodes, 3)
}

func TestPostprocessFuzzyEdgeMatch(t *testing.T) {
	t.Parallel()

	content := `{
  "name": "Fuzzy",
  "nodes": [
    {"id": "start", "node_type": "start"},
    {"id": "validate_invoice", "node_type": "api"},
    {"id": "end", "node_type": "end"}
  ],
  "edges": [
    {"source": "start", "target": "Validate-Invoice"},
    {"source": "validate_invoice", "target": "end"}
  ]
}`

	g, err := Postprocess(content)
	require.NoError(t, err)
	assert.Equal(t, "validate_invoice", g.Edges[0].Target)
}

func TestPostprocessInfersLinearChain(t *testing.T) {
	t.Parallel()

	content := `{
  "name": "No Edges",
  "nodes": [
    {"id": "start", "node_type": "start"},
    {"id": "step_one", "node_type": "api"},
    {"id": "step_two", "node_type": "human"},
    {"id": "end", "node_type": "end"}
  ],
  "edges": []
}`

	g, err := Postprocess(content)
	require.NoError(t, err)
	require.Len(t, g.Edges, 3)

	assert.Equal(t, "start", g.Edges[0].Source)
	assert.Equal(t, "step_one", g.Edges[0].Target)
	assert.Equal(t, "step_two", g.Edges[1].Target)
	assert.Equal(t, "end", g.Edges[2].Target)
}

func TestPostprocessNormalizesBranchProbabilities(t *testing.T) {
	t.Parallel()

	content := `{
  "name": "Branchy",
  "nodes": [
    {"id": "start", "node_type": "start"},
    {"id": "route", "node_type": "decision"},
    {"id": "a", "node_type": "api"},
    {"id": "b", "node_type": "api"},
    {"id": "end", "node_type": "end"}
  ],
  "edges": [
    {"source": "start", "target": "route"},
    {"source": "route", "target": "a", "edge_type": "conditional", "probability": 0.6},
    {"source": "route", "target": "b", "edge_type": "conditional", "probability": 0.6},
    {"source": "a", "target": "end"},
    {"source": "b", "target": "end"}
  ]
}`

	g, err := Postprocess(content)
	require.NoError(t, err)

	var sum float64

	for _, e := range g.Edges {
		if e.Source == "route" {
			assert.InDelta(t, 0.5, e.Probability, 1e-9)
			sum += e.Probability
		}
	}

	assert.InDelta(t, 1.0, sum, 1e-9)
}

func TestPostprocessDefaultExecTimes(t *testing.T) {
	t.Parallel()

	content := `{
  "name": "Defaults",
  "nodes": [
    {"id": "start", "node_type": "start"},
    {"id": "approve", "node_type": "human"},
    {"id": "notify", "node_type": "api"},
    {"id": "end", "node_type": "end"}
  ],
  "edges": [
    {"source": "start", "target": "approve"},
    {"source": "approve", "target": "notify"},
    {"source": "notify", "target": "end"}
  ]
}`

	g, err := Postprocess(content)
	require.NoError(t, err)

	assert.Equal(t, 300.0, g.GetNode("approve").Params.ExecTimeMean)
	assert.Equal(t, 1.0, g.GetNode("notify").Params.ExecTimeMean)
	assert.Equal(t, 0.0, g.GetNode("start").Params.ExecTimeMean)
}

func TestPostprocessRejectsStructurallyInvalidGraph(t *testing.T) {
	t.Parallel()

	// Nodes but no start node: no chain can be inferred, validation fails.
	content := `{
  "name": "Broken",
  "nodes": [
    {"id": "work", "node_type": "api"},
    {"id": "end", "node_type": "end"}
  ],
  "edges": []
}`

	_, err := Postprocess(content)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid")
}

func TestPostprocessRejectsGarbage(t *testing.T) {
	t.Parallel()

	_, err := Postprocess("I could not produce a workflow, sorry!")
	require.Error(t, err)
}
