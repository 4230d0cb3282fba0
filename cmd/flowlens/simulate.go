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

func simulationFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:     "workflow",
			Aliases:  []string{"w"},
			Usage:    "Path to the workflow JSON file",
			Required: true,
		},
		&cli.StringFlag{
			Name:    "mode",
			Aliases: []string{"m"},
			Usage:   "Simulation mode (deterministic, monte_carlo)",
			Value:   "deterministic",
			Sources: cli.EnvVars("FLOWLENS_MODE"),
		},
		&cli.IntFlag{
			Name:    "transactions",
			Aliases: []string{"n"},
			Usage:   "Number of transactions to simulate",
			Value:   10000,
		},
		&cli.IntFlag{
			Name:  "seed",
			Usage: "Random seed for reproducible Monte Carlo runs",
			Value: 42,
		},
		&cli.FloatFlag{
			Name:  "volume",
			Usage: "Arrival volume in transactions per hour",
			Value: 100.0,
		},
		&cli.IntFlag{
			Name:  "batch-size",
			Usage: "Monte Carlo batch size",
		},
	}
}

func configFromCommand(command *cli.Command) models.SimulationConfig {
	return models.SimulationConfig{
		Mode:            models.SimulationMode(command.String("mode")),
		NumTransactions: command.Int("transactions"),
		Seed:            int64(command.Int("seed")),
		BatchSize:       command.Int("batch-size"),
		VolumePerHour:   command.Float("volume"),
	}
}

func simulateCommand() *cli.Command {
	flags := simulationFlags()
	flags = append(flags,
		&cli.BoolFlag{
			Name:  "sensitivity",
			Usage: "Also run sensitivity analysis and show leverage rankings",
		},
		&cli.FloatFlag{
			Name:  "perturbation",
			Usage: "Sensitivity perturbation percentage",
			Value: 10.0,
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "Save results bundle to a JSON file",
		},
	)

	return &cli.Command{
		Name:    "simulate",
		Aliases: []string{"s"},
		Usage:   "Run a simulation on a workflow graph",
		Flags:   flags,
		Action: func(ctx context.Context, command *cli.Command) error {
			logger := log.WithModule("simulate")

			g, err := graph.Load(command.String("workflow"))
			if err != nil {
				return err
			}

			cfg := configFromCommand(command)

			logger.InfoContext(ctx, "Running simulation",
				"workflow", g.Name,
				"mode", cfg.Mode,
				"transactions", cfg.NumTransactions)

			results, err := simulation.Run(g, cfg)
			if err != nil {
				return err
			}

			if command.Bool("sensitivity") {
				logger.InfoContext(ctx, "Running sensitivity analysis")

				report, err := simulation.RunSensitivity(g, cfg, command.Float("perturbation"))
				if err != nil {
					return err
				}

				results.Sensitivity = report
			}

			fmt.Print(export.FormatSimulationReport(results))

			var rankings []models.LeverageRanking
			if results.Sensitivity != nil {
				rankings = intervention.Rank(g, results.Sensitivity, 10)
				fmt.Print(export.FormatLeverageReport(rankings))
			}

			if output := command.String("output"); output != "" {
				bundle := export.NewBundle(g, results, nil)
				bundle.Leverage = rankings

				if err := bundle.Save(output); err != nil {
					return err
				}

				logger.InfoContext(ctx, "Results saved", "path", output)
			}

			return nil
		},
	}
}
