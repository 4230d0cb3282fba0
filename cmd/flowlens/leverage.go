package main

import (
	"context"
	"fmt"

	cli "github.com/urfave/cli/v3"

	"github.com/flowlens/flowlens/pkg/export"
	"github.com/flowlens/flowlens/pkg/graph"
	"github.com/flowlens/flowlens/pkg/intervention"
	"github.com/flowlens/flowlens/pkg/log"
	"github.com/flowlens/flowlens/pkg/simulation"
)

func leverageCommand() *cli.Command {
	flags := simulationFlags()
	flags = append(flags,
		&cli.FloatFlag{
			Name:  "perturbation",
			Usage: "Perturbation percentage applied to each parameter",
			Value: 10.0,
		},
		&cli.IntFlag{
			Name:  "top",
			Usage: "How many rankings to show",
			Value: 10,
		},
	)

	return &cli.Command{
		Name:  "leverage",
		Usage: "Rank the highest-leverage improvement opportunities",
		Flags: flags,
		Action: func(ctx context.Context, command *cli.Command) error {
			logger := log.WithModule("leverage")

			g, err := graph.Load(command.String("workflow"))
			if err != nil {
				return err
			}

			cfg := configFromCommand(command)

			logger.InfoContext(ctx, "Ranking leverage", "workflow", g.Name)

			report, err := simulation.RunSensitivity(g, cfg, command.Float("perturbation"))
			if err != nil {
				return err
			}

			rankings := intervention.Rank(g, report, command.Int("top"))
			fmt.Print(export.FormatLeverageReport(rankings))

			return nil
		},
	}
}
