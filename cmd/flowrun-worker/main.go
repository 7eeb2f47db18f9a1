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
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	cli "github.com/urfave/cli/v3"
)

func main() {
	command := &cli.Command{
		Name:                  "flowrun-worker",
		Usage:                 "Advance executions handed over by the API and wake scheduled ones",
		EnableShellCompletion: true,
		Flags: append(cmd.RuntimeFlags(),
			&cli.StringFlag{
				Name:    "worker-id",
				Aliases: []string{"id"},
				Usage:   "Custom worker ID (auto-generated if not provided)",
				Sources: cli.EnvVars("WORKER_ID"),
			},
			&cli.DurationFlag{
				Name:    "wake-interval",
				Usage:   "How often scheduled executions are checked for waking",
				Value:   scheduler.DefaultInterval,
				Sources: cli.EnvVars("WAKE_INTERVAL"),
			},
		),
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"), command.String("log-format"))

			workerID := command.String("worker-id")
			if workerID == "" {
				workerID = "worker-" + uuid.New().String()[:8]
			}

			logger := log.WithModule("flowrun-worker").With("workerId", workerID)
			logger.InfoContext(ctx, "Initializing flowrun worker")

			cfg := cmd.RuntimeConfigFrom(command)
			cfg.Metrics = metrics.NewProm("flowrun", prometheus.DefaultRegisterer)

			if command.Bool("tracing") {
				tracer, shutdownTracer, err := otelhelper.NewTracer(ctx, "flowrun-worker")
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

			return NewWorker(runtime, logger, command.Duration("wake-interval")).Run(ctx)
		},
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := command.Run(ctx, os.Args); err != nil {
		log.WithModule("flowrun-worker").Error("flowrun worker stopped", "error", err)
		os.Exit(1)
	}
}
