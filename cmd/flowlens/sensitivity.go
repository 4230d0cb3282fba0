package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	cli "github.com/urfave/cli/v3"

	"github.com/flowlens/flowlens/pkg/graph"
	"github.com/flowlens/flowlens/pkg/log"
	"github.com/flowlens/flowlens/pkg/simulation"
)

func sensitivityCommand() *cli.Command {
	flags := simulationFlags()
	flags = append(flags,
		&cli.FloatFlag{
			Name:  "perturbation",
			Usage: "Perturbation percentage applied to each parameter",
			Value: 10.0,
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "Save the report to a JSON file",
		},
	)

	return &cli.Command{
		Name:  "sensitivity",
		Usage: "Measure the marginal impact of every node parameter",
		Flags: flags,
		Action: func(ctx context.Context, command *cli.Command) error {
			logger := log.WithModule("sensitivity")

			g, err := graph.Load(command.String("workflow"))
			if err != nil {
				return err
			}

			cfg := configFromCommand(command)
			pct := command.Float("perturbation")

			logger.InfoContext(ctx, "Running sensitivity analysis",
				"workflow", g.Name,
				"perturbation_pct", pct)

			report, err := simulation.RunSensitivity(g, cfg, pct)
			if err != nil {
				return err
			}

			data, err := json.MarshalIndent(report, "", "  ")
			if err != nil {
				return fmt.Errorf("failed to encode sensitivity report: %w", err)
			}

			if output := command.String("output"); output != "" {
				if err := os.WriteFile(output, data, 0o644); err != nil {
					return fmt.Errorf("failed to write report to %s: %w", output, err)
				}

				logger.InfoContext(ctx, "Report saved", "path", output, "entries", len(report.Entries))

				return nil
			}

			fmt.Println(string(data))

			return nil
		},
	}
}
