package main

import (
	"context"
	"fmt"

	cli "github.com/urfave/cli/v3"

	"github.com/flowlens/flowlens/pkg/export"
	"github.com/flowlens/flowlens/pkg/graph"
	"github.com/flowlens/flowlens/pkg/intervention"
	"github.com/flowlens/flowlens/pkg/log"
	"github.com/flowlens/flowlens/pkg/models"
	"github.com/flowlens/flowlens/pkg/simulation"
)

func interveneCommand() *cli.Command {
	flags := simulationFlags()
	flags = append(flags,
		&cli.StringFlag{
			Name:     "node",
			Usage:    "Target node ID",
			Required: true,
		},
		&cli.FloatFlag{
			Name:  "time-reduction",
			Usage: "Execution time reduction percentage",
		},
		&cli.FloatFlag{
			Name:  "cost-reduction",
			Usage: "Cost reduction percentage",
		},
		&cli.FloatFlag{
			Name:  "error-reduction",
			Usage: "Error rate reduction percentage",
		},
		&cli.FloatFlag{
			Name:  "capacity-increase",
			Usage: "Capacity increase percentage",
		},
		&cli.IntFlag{
			Name:  "add-workers",
			Usage: "Additional parallel workers",
		},
		&cli.FloatFlag{
			Name:  "queue-reduction",
			Usage: "Queue delay reduction percentage",
		},
		&cli.FloatFlag{
			Name:  "impl-cost",
			Usage: "One-time implementation cost in dollars",
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "Save the comparison bundle to a JSON file",
		},
	)

	return &cli.Command{
		Name:  "intervene",
		Usage: "Apply an intervention to a workflow node and show its impact",
		Flags: flags,
		Action: func(ctx context.Context, command *cli.Command) error {
			logger := log.WithModule("intervene")

			g, err := graph.Load(command.String("workflow"))
			if err != nil {
				return err
			}

			nodeID := command.String("node")

			target := g.GetNode(nodeID)
			if target == nil {
				fmt.Printf("Node %q not found. Available nodes:\n", nodeID)

				for _, n := range g.Nodes {
					fmt.Printf("  - %s: %s\n", n.ID, n.Name)
				}

				return fmt.Errorf("%w: %q", intervention.ErrNodeNotFound, nodeID)
			}

			iv := models.Intervention{
				NodeID:                  nodeID,
				TimeReductionPct:        command.Float("time-reduction"),
				CostReductionPct:        command.Float("cost-reduction"),
				ErrorReductionPct:       command.Float("error-reduction"),
				CapacityIncreasePct:     command.Float("capacity-increase"),
				ParallelizationIncrease: command.Int("add-workers"),
				QueueReductionPct:       command.Float("queue-reduction"),
				ImplementationCost:      command.Float("impl-cost"),
			}

			cfg := configFromCommand(command)

			baseline, err := simulation.Run(g, cfg)
			if err != nil {
				return err
			}

			logger.InfoContext(ctx, "Applying intervention", "node", target.Name)

			comparison, err := intervention.Apply(g, []models.Intervention{iv}, baseline, cfg.VolumePerHour, cfg.NumTransactions)
			if err != nil {
				return err
			}

			fmt.Print(export.FormatComparisonReport(comparison))

			if output := command.String("output"); output != "" {
				bundle := export.NewBundle(g, baseline, comparison)
				if err := bundle.Save(output); err != nil {
					return err
				}

				logger.InfoContext(ctx, "Comparison saved", "path", output)
			}

			return nil
		},
	}
}
