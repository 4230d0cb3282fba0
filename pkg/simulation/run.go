package simulation

import (
	"fmt"

	"github.com/flowlens/flowlens/pkg/models"
)

// Run dispatches to the engine selected by the config mode.
func Run(g *models.WorkflowGraph, cfg models.SimulationConfig) (*models.SimulationResults, error) {
	switch cfg.Mode {
	case models.ModeDeterministic:
		return RunDeterministic(g, cfg)
	case models.ModeMonteCarlo:
		return RunMonteCarlo(g, cfg)
	default:
		return nil, &ConfigError{Field: "mode", Err: fmt.Errorf("%w: %q", ErrUnknownMode, cfg.Mode)}
	}
}
