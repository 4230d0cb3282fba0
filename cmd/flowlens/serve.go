package main

import (
	"context"
	"fmt"

	cli "github.com/urfave/cli/v3"

	"github.com/flowlens/flowlens/pkg/config"
	"github.com/flowlens/flowlens/pkg/log"
	"github.com/flowlens/flowlens/pkg/otelhelper"
	"github.com/flowlens/flowlens/pkg/web"
)

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the simulation HTTP API server",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Usage:   "Path to the flowlens config file",
				Value:   "flowlens.yaml",
				Sources: cli.EnvVars("FLOWLENS_CONFIG"),
			},
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Port to run the API server on (overrides config)",
				Sources: cli.EnvVars("PORT"),
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			logger := log.WithModule("serve")

			cfg := config.LoadOrDefault(command.String("config"))
			if port := command.Int("port"); port > 0 {
				cfg.Server.Port = port
			}

			if err := config.Validate(cfg); err != nil {
				return err
			}

			log.Setup(cfg.Logging.Level, cfg.Logging.Format)

			if cfg.Tracing.Enabled {
				if _, err := otelhelper.NewTracer(ctx, cfg.Tracing.ServiceName); err != nil {
					logger.WarnContext(ctx, "Failed to initialize tracing", "error", err)
				}
			}

			app := web.NewApp(cfg.DefaultSimulation())

			addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
			logger.InfoContext(ctx, "Starting Flowlens API", "addr", addr)

			return app.Listen(addr)
		},
	}
}
