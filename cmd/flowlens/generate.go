package main

import (
	"context"
	"errors"
	"fmt"

	cli "github.com/urfave/cli/v3"

	"github.com/flowlens/flowlens/pkg/config"
	"github.com/flowlens/flowlens/pkg/export"
	"github.com/flowlens/flowlens/pkg/graph"
	"github.com/flowlens/flowlens/pkg/log"
	"github.com/flowlens/flowlens/pkg/parser"
)

func generateCommand() *cli.Command {
	return &cli.Command{
		Name:      "generate",
		Usage:     "Generate a workflow graph from a natural language description",
		ArgsUsage: "DESCRIPTION",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Output file path",
				Value:   "workflow.json",
			},
			&cli.StringFlag{
				Name:    "model",
				Aliases: []string{"m"},
				Usage:   "Model to use for generation",
				Sources: cli.EnvVars("FLOWLENS_MODEL"),
			},
			&cli.StringFlag{
				Name:    "config",
				Usage:   "Path to the flowlens config file",
				Value:   "flowlens.yaml",
				Sources: cli.EnvVars("FLOWLENS_CONFIG"),
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			logger := log.WithModule("generate")

			description := command.Args().First()
			if description == "" {
				return errors.New("a process description argument is required")
			}

			cfg := config.LoadOrDefault(command.String("config"))
			if model := command.String("model"); model != "" {
				cfg.Parser.Model = model
			}

			client, err := parser.NewClient(cfg.Parser)
			if err != nil {
				return err
			}

			logger.InfoContext(ctx, "Generating workflow", "description", description, "model", cfg.Parser.Model)

			g, err := client.GenerateWorkflow(ctx, description)
			if err != nil {
				return err
			}

			output := command.String("output")
			if err := graph.Save(g, output); err != nil {
				return err
			}

			logger.InfoContext(ctx, "Workflow saved",
				"path", output,
				"nodes", len(g.Nodes),
				"edges", len(g.Edges))

			fmt.Printf("```mermaid\n%s\n```\n", export.GenerateMermaid(g, nil, false))

			return nil
		},
	}
}
