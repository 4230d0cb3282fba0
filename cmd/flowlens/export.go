package main

import (
	"context"
	"fmt"
	"os"

	cli "github.com/urfave/cli/v3"

	"github.com/flowlens/flowlens/pkg/export"
	"github.com/flowlens/flowlens/pkg/graph"
	"github.com/flowlens/flowlens/pkg/log"
)

func exportCommand() *cli.Command {
	return &cli.Command{
		Name:  "export",
		Usage: "Export a workflow graph as a Mermaid diagram or JSON bundle",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "workflow",
				Aliases:  []string{"w"},
				Usage:    "Path to the workflow JSON file",
				Required: true,
			},
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Usage:   "Export format (mermaid, json)",
				Value:   "mermaid",
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Output file (stdout if not specified)",
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			g, err := graph.Load(command.String("workflow"))
			if err != nil {
				return err
			}

			var result string

			switch format := command.String("format"); format {
			case "mermaid":
				result = export.GenerateMermaid(g, nil, false)
			case "json":
				data, err := graph.ToJSON(g)
				if err != nil {
					return err
				}

				result = string(data)
			default:
				return fmt.Errorf("unknown export format %q", format)
			}

			if output := command.String("output"); output != "" {
				if err := os.WriteFile(output, []byte(result), 0o644); err != nil {
					return fmt.Errorf("failed to write export to %s: %w", output, err)
				}

				log.WithModule("export").InfoContext(ctx, "Exported", "path", output)

				return nil
			}

			fmt.Println(result)

			return nil
		},
	}
}
