package web

import (
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/flowlens/flowlens/pkg/export"
	"github.com/flowlens/flowlens/pkg/graph"
	"github.com/flowlens/flowlens/pkg/intervention"
	"github.com/flowlens/flowlens/pkg/models"
	"github.com/flowlens/flowlens/pkg/otelhelper"
	"github.com/flowlens/flowlens/pkg/simulation"
)

const (
	defaultPerturbationPct = 10.0
	defaultLeverageTopN    = 10
)

type APIHandlers struct {
	validator  *validator.Validate
	defaultCfg models.SimulationConfig
	tracer     trace.Tracer
}

func NewAPIHandlers(validator *validator.Validate, defaultCfg models.SimulationConfig) *APIHandlers {
	return &APIHandlers{
		validator:  validator,
		defaultCfg: defaultCfg,
		tracer:     otel.Tracer("flowlens/web"),
	}
}

// runSpan opens a span around one engine invocation with the common
// workflow/run attributes attached.
func (h *APIHandlers) runSpan(c fiber.Ctx, name string, g *models.WorkflowGraph, cfg models.SimulationConfig) trace.Span {
	_, span := otelhelper.StartSpan(c.Context(), h.tracer, name,
		attribute.String(otelhelper.WorkflowNameKey, g.Name),
		attribute.String(otelhelper.SimulationModeKey, string(cfg.Mode)),
		attribute.Int64(otelhelper.SimulationSeedKey, cfg.Seed),
		attribute.Int(otelhelper.TransactionsKey, cfg.NumTransactions),
	)

	return span
}

func (h *APIHandlers) Simulate(c fiber.Ctx) error {
	var req SimulateRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	g, err := graph.FromJSON(req.Workflow)
	if err != nil {
		return badRequest(c, err.Error())
	}

	cfg := h.runConfig(runOverrides{
		mode:            req.Mode,
		numTransactions: req.NumTransactions,
		volumePerHour:   req.VolumePerHour,
		seed:            req.Seed,
		batchSize:       req.BatchSize,
	})

	span := h.runSpan(c, "simulation.run", g, cfg)
	defer span.End()

	results, err := simulation.Run(g, cfg)
	if err != nil {
		otelhelper.SetError(span, err)

		return handleEngineError(c, err)
	}

	return c.JSON(results)
}

func (h *APIHandlers) Sensitivity(c fiber.Ctx) error {
	var req SensitivityRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	g, err := graph.FromJSON(req.Workflow)
	if err != nil {
		return badRequest(c, err.Error())
	}

	pct := req.PerturbationPct
	if pct == 0 {
		pct = defaultPerturbationPct
	}

	cfg := h.runConfig(runOverrides{
		numTransactions: req.NumTransactions,
		volumePerHour:   req.VolumePerHour,
	})

	span := h.runSpan(c, "simulation.sensitivity", g, cfg)
	span.SetAttributes(attribute.Float64(otelhelper.PerturbationPctKey, pct))
	defer span.End()

	report, err := simulation.RunSensitivity(g, cfg, pct)
	if err != nil {
		otelhelper.SetError(span, err)

		return handleEngineError(c, err)
	}

	return c.JSON(report)
}

func (h *APIHandlers) Intervene(c fiber.Ctx) error {
	var req InterveneRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	g, err := graph.FromJSON(req.Workflow)
	if err != nil {
		return badRequest(c, err.Error())
	}

	// The optimized rerun reuses the supplied baseline's config, so deltas
	// are against exactly the run the caller already has.
	span := h.runSpan(c, "intervention.apply", g, req.BaselineResults.Config)
	defer span.End()

	comparison, err := intervention.Apply(g, req.Interventions, req.BaselineResults, req.VolumePerHour, req.NumTransactions)
	if err != nil {
		otelhelper.SetError(span, err)

		return handleEngineError(c, err)
	}

	return c.JSON(comparison)
}

func (h *APIHandlers) Leverage(c fiber.Ctx) error {
	var req LeverageRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	g, err := graph.FromJSON(req.Workflow)
	if err != nil {
		return badRequest(c, err.Error())
	}

	topN := req.TopN
	if topN == 0 {
		topN = defaultLeverageTopN
	}

	_, span := otelhelper.StartSpan(c.Context(), h.tracer, "intervention.leverage",
		attribute.String(otelhelper.WorkflowNameKey, g.Name),
		attribute.Float64(otelhelper.PerturbationPctKey, req.Sensitivity.PerturbationPct),
	)
	defer span.End()

	return c.JSON(intervention.Rank(g, req.Sensitivity, topN))
}

func (h *APIHandlers) ValidateWorkflow(c fiber.Ctx) error {
	var req ValidateRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	g, err := graph.FromJSON(req.Workflow)
	if err != nil {
		return c.JSON(ValidateResponse{Valid: false, Issues: []string{err.Error()}})
	}

	if _, err := graph.NewIndex(g); err != nil {
		return c.JSON(ValidateResponse{Valid: false, Issues: []string{err.Error()}})
	}

	return c.JSON(ValidateResponse{Valid: true})
}

func (h *APIHandlers) Mermaid(c fiber.Ctx) error {
	var req MermaidRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	g, err := graph.FromJSON(req.Workflow)
	if err != nil {
		return badRequest(c, err.Error())
	}

	diagram := export.GenerateMermaid(g, req.Results, req.ShowMetrics)

	return c.JSON(MermaidResponse{Diagram: diagram})
}

func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	return c.Status(http.StatusOK).JSON(fiber.Map{
		"status":    "healthy",
		"message":   "Flowlens API is healthy",
		"timestamp": time.Now().UTC(),
	})
}

// runOverrides are the per-request knobs layered over the server defaults.
type runOverrides struct {
	mode            string
	numTransactions int
	volumePerHour   float64
	seed            *int64
	batchSize       int
}

// runConfig merges request overrides over the server defaults. The seed is
// a pointer so that zero stays a usable seed value.
func (h *APIHandlers) runConfig(o runOverrides) models.SimulationConfig {
	cfg := h.defaultCfg

	if o.mode != "" {
		cfg.Mode = models.SimulationMode(o.mode)
	}

	if o.numTransactions > 0 {
		cfg.NumTransactions = o.numTransactions
	}

	if o.seed != nil {
		cfg.Seed = *o.seed
	}

	if o.batchSize > 0 {
		cfg.BatchSize = o.batchSize
	}

	if o.volumePerHour > 0 {
		cfg.VolumePerHour = o.volumePerHour
	}

	return cfg
}
