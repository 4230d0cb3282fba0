package graph

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/flowlens/flowlens/pkg/models"
)

// FromJSON decodes a workflow graph from JSON, checks it against the
// embedded schema, and fills parameter defaults. Untrusted input (HTTP,
// CLI files, LLM output) goes through here.
func FromJSON(data []byte) (*models.WorkflowGraph, error) {
	if err := ValidateSchema(data); err != nil {
		return nil, err
	}

	var g models.WorkflowGraph
	if err := json.Unmarshal(data, &g); err != nil {
		return nil, fmt.Errorf("failed to decode workflow graph: %w", err)
	}

	ApplyDefaults(&g)

	return &g, nil
}

// ToJSON encodes a workflow graph as indented JSON.
func ToJSON(g *models.WorkflowGraph) ([]byte, error) {
	data, err := json.MarshalIndent(g, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode workflow graph: %w", err)
	}

	return data, nil
}

// Load reads a workflow graph from a JSON file.
func Load(path string) (*models.WorkflowGraph, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read workflow file %s: %w", path, err)
	}

	return FromJSON(data)
}

// Save writes a workflow graph to a JSON file, creating parent directories
// as needed.
func Save(g *models.WorkflowGraph, path string) error {
	data, err := ToJSON(g)
	if err != nil {
		return err
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write workflow file %s: %w", path, err)
	}

	return nil
}

// ApplyDefaults fills in parameter values that a sparse document may omit:
// at least one worker per node, a unit volume multiplier, and a unit
// probability on edges that carry none.
func ApplyDefaults(g *models.WorkflowGraph) {
	for _, n := range g.Nodes {
		if n.Params.ParallelizationFactor < 1 {
			n.Params.ParallelizationFactor = 1
		}

		if n.Params.VolumeMultiplier <= 0 {
			n.Params.VolumeMultiplier = 1.0
		}

		if n.Name == "" {
			n.Name = n.ID
		}
	}

	for _, e := range g.Edges {
		if e.EdgeType == "" {
			e.EdgeType = models.EdgeTypeNormal
		}

		if e.Probability == 0 && e.EdgeType == models.EdgeTypeNormal {
			e.Probability = 1.0
		}
	}
}
