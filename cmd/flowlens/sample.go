package main

import (
	"context"

	cli "github.com/urfave/cli/v3"

	"github.com/flowlens/flowlens/pkg/graph"
	"github.com/flowlens/flowlens/pkg/log"
	"github.com/flowlens/flowlens/pkg/models"
)

func sampleCommand() *cli.Command {
	return &cli.Command{
		Name:  "sample",
		Usage: "Write a sample invoice-processing workflow to a file",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Output file path",
				Value:   "sample_workflow.json",
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			g := sampleWorkflow()

			output := command.String("output")
			if err := graph.Save(g, output); err != nil {
				return err
			}

			log.WithModule("sample").InfoContext(ctx, "Sample workflow saved",
				"path", output,
				"nodes", len(g.Nodes),
				"edges", len(g.Edges))

			return nil
		},
	}
}

// sampleWorkflow models a small invoice-processing pipeline with a decision
// branch, a retryable API call, and a human approval step.
func sampleWorkflow() *models.WorkflowGraph {
	capacity := 200.0

	g := &models.WorkflowGraph{
		Name:        "Invoice Processing",
		Description: "Invoices are validated automatically, routed by amount, and approved by hand when large.",
		Nodes: []*models.Node{
			{
				ID:       "start",
				Name:     "Invoice Received",
				NodeType: models.NodeTypeStart,
			},
			{
				ID:       "validate",
				Name:     "Validate Invoice",
				NodeType: models.NodeTypeAPI,
				Params: models.NodeParams{
					ExecTimeMean:       2.0,
					ExecTimeVariance:   0.5,
					CostPerTransaction: 0.01,
					ErrorRate:          0.02,
					MaxRetries:         2,
					RetryDelay:         1.0,
				},
			},
			{
				ID:       "route",
				Name:     "Route by Amount",
				NodeType: models.NodeTypeDecision,
				Params: models.NodeParams{
					ExecTimeMean: 0.1,
				},
			},
			{
				ID:       "auto_approve",
				Name:     "Auto Approve",
				NodeType: models.NodeTypeAPI,
				Params: models.NodeParams{
					ExecTimeMean:       1.0,
					ExecTimeVariance:   0.2,
					CostPerTransaction: 0.005,
				},
			},
			{
				ID:       "manual_review",
				Name:     "Manual Review",
				NodeType: models.NodeTypeHuman,
				Params: models.NodeParams{
					ExecTimeMean:          600.0,
					ExecTimeVariance:      14400.0,
					CostPerTransaction:    4.50,
					ErrorRate:             0.01,
					DropOffRate:           0.02,
					QueueDelayMean:        120.0,
					QueueDelayVariance:    3600.0,
					ParallelizationFactor: 3,
					CapacityPerHour:       &capacity,
				},
			},
			{
				ID:       "post_ledger",
				Name:     "Post to Ledger",
				NodeType: models.NodeTypeBatch,
				Params: models.NodeParams{
					ExecTimeMean:       5.0,
					ExecTimeVariance:   1.0,
					CostPerTransaction: 0.02,
				},
			},
			{
				ID:       "end",
				Name:     "Invoice Settled",
				NodeType: models.NodeTypeEnd,
			},
		},
		Edges: []*models.Edge{
			{Source: "start", Target: "validate", EdgeType: models.EdgeTypeNormal, Probability: 1.0},
			{Source: "validate", Target: "route", EdgeType: models.EdgeTypeNormal, Probability: 1.0},
			{Source: "route", Target: "auto_approve", EdgeType: models.EdgeTypeConditional, Probability: 0.8, Condition: "amount < $1000"},
			{Source: "route", Target: "manual_review", EdgeType: models.EdgeTypeConditional, Probability: 0.2, Condition: "amount >= $1000"},
			{Source: "auto_approve", Target: "post_ledger", EdgeType: models.EdgeTypeNormal, Probability: 1.0},
			{Source: "manual_review", Target: "post_ledger", EdgeType: models.EdgeTypeNormal, Probability: 1.0},
			{Source: "post_ledger", Target: "end", EdgeType: models.EdgeTypeNormal, Probability: 1.0},
		},
	}

	graph.ApplyDefaults(g)

	return g
}
