// Package web provides HTTP request and response types plus handlers for
// the simulation API.
package web

import (
	"encoding/json"

	"github.com/flowlens/flowlens/pkg/models"
)

// SimulateRequest carries a workflow document and flat run parameters.
// The workflow stays raw so it can go through schema validation before
// decoding. Zero-valued fields keep the server defaults; seed is a pointer
// so an explicit seed of zero is distinguishable from an absent one.
type SimulateRequest struct {
	Workflow        json.RawMessage `json:"workflow" validate:"required"`
	Mode            string          `json:"mode,omitempty"             validate:"omitempty,oneof=deterministic monte_carlo"`
	NumTransactions int             `json:"num_transactions,omitempty" validate:"omitempty,gte=1"`
	VolumePerHour   float64         `json:"volume_per_hour,omitempty"  validate:"omitempty,gte=0"`
	Seed            *int64          `json:"seed,omitempty"`
	BatchSize       int             `json:"batch_size,omitempty"       validate:"omitempty,gte=1"`
}

// SensitivityRequest runs a sensitivity analysis over a workflow.
type SensitivityRequest struct {
	Workflow        json.RawMessage `json:"workflow" validate:"required"`
	VolumePerHour   float64         `json:"volume_per_hour,omitempty"  validate:"omitempty,gte=0"`
	NumTransactions int             `json:"num_transactions,omitempty" validate:"omitempty,gte=1"`
	PerturbationPct float64         `json:"perturbation_pct,omitempty" validate:"omitempty,gt=0,lte=100"`
}

// InterveneRequest applies interventions and compares them against the
// caller's earlier baseline run, so the comparison is against exactly the
// numbers the caller already has.
type InterveneRequest struct {
	Workflow        json.RawMessage           `json:"workflow"         validate:"required"`
	Interventions   []models.Intervention     `json:"interventions"    validate:"required,min=1,dive"`
	BaselineResults *models.SimulationResults `json:"baseline_results" validate:"required"`
	VolumePerHour   float64                   `json:"volume_per_hour,omitempty"  validate:"omitempty,gte=0"`
	NumTransactions int                       `json:"num_transactions,omitempty" validate:"omitempty,gte=1"`
}

// LeverageRequest ranks the highest-leverage (node, parameter) pairs from a
// precomputed sensitivity report.
type LeverageRequest struct {
	Workflow    json.RawMessage           `json:"workflow"    validate:"required"`
	Sensitivity *models.SensitivityReport `json:"sensitivity" validate:"required"`
	TopN        int                       `json:"top_n,omitempty" validate:"omitempty,gte=1,lte=100"`
}

// ValidateRequest checks a workflow document without running anything.
type ValidateRequest struct {
	Workflow json.RawMessage `json:"workflow" validate:"required"`
}

// ValidateResponse reports the outcome of workflow validation.
type ValidateResponse struct {
	Valid  bool     `json:"valid"`
	Issues []string `json:"issues,omitempty"`
}

// MermaidRequest renders a workflow as a Mermaid diagram, optionally
// annotated with metrics from a prior run.
type MermaidRequest struct {
	Workflow    json.RawMessage           `json:"workflow" validate:"required"`
	Results     *models.SimulationResults `json:"results,omitempty"`
	ShowMetrics bool                      `json:"show_metrics,omitempty"`
}

// MermaidResponse wraps the rendered diagram.
type MermaidResponse struct {
	Diagram string `json:"diagram"`
}
