package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/dukex/flowrun/pkg/cmd"
	"github.com/dukex/flowrun/pkg/log"
	"github.com/dukex/flowrun/pkg/metrics"
	"github.com/dukex/flowrun/pkg/otelhelper"
	"github.com/dukex/flowrun/pkg/scheduler"
	"github.com/prometheus/client_golang/prometheus"
	cli "github.com/urfave/cli/v3"
)

const defaultPort = 9091

func main() {
	command := &cli.Command{
		Name:                  "flowrun-api",
		Usage:                 "Manage workflows and drive their executions over HTTP",
		EnableShellCompletion: true,
		Flags: append(cmd.RuntimeFlags(),
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Port to run the API server on",
				Value:   defaultPort,
				Sources: cli.EnvVars("PORT"),
			},
			&cli.DurationFlag{
				Name:    "wake-interval",
				Usage:   "How often scheduled executions are checked for waking, 0 leaves it to the worker",
				Value:   scheduler.DefaultInterval,
				Sources: cli.EnvVars("WAKE_INTERVAL"),
			},
		),
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"), command.String("log-format"))

			logger := log.WithModule("api")
			logger.InfoContext(ctx, "Initializing flowrun API")

			cfg := cmd.RuntimeConfigFrom(command)
			cfg.Metrics = metrics.NewProm("flowrun", prometheus.DefaultRegisterer)

			if command.Bool("tracing") {
				tracer, shutdownTracer, err := otelhelper.NewTracer(ctx, "flowrun-api")
				if err != nil {
					return err
				}

				defer func() {
					if err := shutdownTracer(context.Background()); err != nil {
						logger.ErrorContext(ctx, "Failed to shut down tracer", "error", err)
					}
				}()

				cfg.Tracer = tracer
			}

			runtime, err := cmd.NewRuntime(ctx, logger, cfg)
			if err != nil {
				return err
			}

			defer func() {
				if err := runtime.Close(context.Background()); err != nil {
					logger.ErrorContext(ctx, "Failed to close runtime", "error", err)
				}
			}()

			api := NewAPI(logger, runtime, command.Duration("wake-interval"))

			return api.Start(ctx, command.Int("port"))
		},
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := command.Run(ctx, os.Args); err != nil {
		log.WithModule("api").Error("flowrun API stopped", "error", err)
		os.Exit(1)
	}
}
