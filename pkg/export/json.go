package export

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/flowlens/flowlens/pkg/models"
)

// Bundle is the combined export package: the graph plus whatever analysis
// artifacts were produced alongside it.
type Bundle struct {
	Workflow   *models.WorkflowGraph          `json:"workflow"`
	Results    *models.SimulationResults      `json:"simulation_results,omitempty"`
	Comparison *models.InterventionComparison `json:"intervention_comparison,omitempty"`
	Leverage   []models.LeverageRanking       `json:"leverage_rankings,omitempty"`
}

// NewBundle assembles an export bundle. Nil sections are omitted from the
// JSON output.
func NewBundle(workflow *models.WorkflowGraph, results *models.SimulationResults, comparison *models.InterventionComparison) *Bundle {
	return &Bundle{Workflow: workflow, Results: results, Comparison: comparison}
}

// Save writes the bundle as indented JSON, creating parent directories as
// needed.
func (b *Bundle) Save(path string) error {
	data, err := json.MarshalIndent(b, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal export bundle: %w", err)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create export directory %s: %w", dir, err)
		}
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write export file %s: %w", path, err)
	}

	return nil
}
