// Package export renders workflow graphs and simulation outcomes as Mermaid
// diagrams, plain-text reports, and structured JSON bundles.
package export

import (
	"fmt"
	"strings"

	"github.com/flowlens/flowlens/pkg/models"
)

// Shape delimiters per node type, BPMN-style, Mermaid v11 compatible.
var nodeShapes = map[models.NodeType][2]string{
	models.NodeTypeStart:           {"([", "])"},
	models.NodeTypeEnd:             {"([", "])"},
	models.NodeTypeHuman:           {"[/", "/]"},
	models.NodeTypeAPI:             {"[[", "]]"},
	models.NodeTypeAsync:           {"[[", "]]"},
	models.NodeTypeBatch:           {"[", "]"},
	models.NodeTypeDecision:        {"{", "}"},
	models.NodeTypeParallelGateway: {"{{", "}}"},
	models.NodeTypeWait:            {"(", ")"},
}

var nodeStyles = map[models.NodeType]string{
	models.NodeTypeStart:           "fill:#4CAF50,color:#fff",
	models.NodeTypeEnd:             "fill:#f44336,color:#fff",
	models.NodeTypeHuman:           "fill:#2196F3,color:#fff",
	models.NodeTypeAPI:             "fill:#FF9800,color:#fff",
	models.NodeTypeAsync:           "fill:#9C27B0,color:#fff",
	models.NodeTypeBatch:           "fill:#607D8B,color:#fff",
	models.NodeTypeDecision:        "fill:#FFC107,color:#000",
	models.NodeTypeParallelGateway: "fill:#00BCD4,color:#fff",
	models.NodeTypeWait:            "fill:#795548,color:#fff",
}

// GenerateMermaid renders the graph as a left-to-right Mermaid flowchart.
// When results are provided and showMetrics is true, visited nodes are
// annotated with their average time and cost.
func GenerateMermaid(workflow *models.WorkflowGraph, results *models.SimulationResults, showMetrics bool) string {
	var b strings.Builder

	b.WriteString("flowchart LR\n")

	for _, node := range workflow.Nodes {
		shape, ok := nodeShapes[node.NodeType]
		if !ok {
			shape = [2]string{"[", "]"}
		}

		label := node.Name

		if showMetrics && results != nil {
			if nm := results.GetNodeMetrics(node.ID); nm != nil && nm.TransactionsProcessed > 0 {
				label += fmt.Sprintf("\n%.1fs / $%.2f", nm.AvgTime, nm.AvgCost)
			}
		}

		fmt.Fprintf(&b, "    %s%s%q%s\n", safeID(node.ID), shape[0], escapeLabel(label), shape[1])
	}

	b.WriteString("\n")

	for _, edge := range workflow.Edges {
		arrow := "-->"
		if edge.EdgeType == models.EdgeTypeLoop {
			arrow = "-.->"
		}

		label := ""
		if edge.Condition != "" {
			label = escapeEdgeLabel(edge.Condition)
		} else if edge.Probability < 1.0 {
			label = fmt.Sprintf("%.0f%%", edge.Probability*100)
		}

		if label != "" {
			fmt.Fprintf(&b, "    %s %s|%s| %s\n", safeID(edge.Source), arrow, label, safeID(edge.Target))
		} else {
			fmt.Fprintf(&b, "    %s %s %s\n", safeID(edge.Source), arrow, safeID(edge.Target))
		}
	}

	b.WriteString("\n")

	for _, node := range workflow.Nodes {
		if style, ok := nodeStyles[node.NodeType]; ok {
			fmt.Fprintf(&b, "    style %s %s\n", safeID(node.ID), style)
		}
	}

	return strings.TrimRight(b.String(), "\n")
}

// safeID prefixes ids with "n_" so they never collide with Mermaid reserved
// words ("end", "graph", "subgraph").
func safeID(nodeID string) string {
	replacer := strings.NewReplacer("-", "_", " ", "_", ".", "_")

	return "n_" + replacer.Replace(nodeID)
}

// escapeLabel escapes the characters Mermaid v11 treats specially inside
// quoted labels. The hash must go first so later entity references survive.
func escapeLabel(text string) string {
	text = strings.ReplaceAll(text, "#", "#35;")
	text = strings.ReplaceAll(text, `"`, "'")
	text = strings.ReplaceAll(text, "$", "#36;") // dollar triggers KaTeX math mode
	text = strings.ReplaceAll(text, "\n", "<br/>")

	return text
}

// escapeEdgeLabel additionally escapes the pipe that delimits edge labels.
func escapeEdgeLabel(text string) string {
	return strings.ReplaceAll(escapeLabel(text), "|", "#124;")
}
