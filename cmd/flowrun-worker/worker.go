package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dukex/flowrun/pkg/cmd"
	"github.com/dukex/flowrun/pkg/scheduler"
)

// Worker consumes advance requests from the event bus and wakes scheduled
// executions once they are due.
type Worker struct {
	runtime *cmd.Runtime
	poller  *scheduler.Poller
	logger  *slog.Logger
}

func NewWorker(runtime *cmd.Runtime, logger *slog.Logger, wakeInterval time.Duration) *Worker {
	return &Worker{
		runtime: runtime,
		poller:  scheduler.NewPoller(runtime.Manager, logger, scheduler.WithInterval(wakeInterval)),
		logger:  logger,
	}
}

// Start subscribes to the event bus and starts the wake poller. It does not block.
func (w *Worker) Start(ctx context.Context) error {
	w.logger.InfoContext(ctx, "Starting worker")

	err := w.runtime.Manager.RegisterHandlers(w.runtime.EventBus)
	if err != nil {
		return fmt.Errorf("failed to register handlers: %w", err)
	}

	err = w.runtime.EventBus.Subscribe(ctx)
	if err != nil {
		return fmt.Errorf("failed to subscribe to event bus: %w", err)
	}

	err = w.poller.Start(ctx)
	if err != nil {
		return fmt.Errorf("failed to start wake poller: %w", err)
	}

	return nil
}

// Stop stops waking executions. In-flight handlers end with the subscription context.
func (w *Worker) Stop(ctx context.Context) error {
	w.logger.InfoContext(ctx, "Stopping worker")

	return w.poller.Stop(ctx)
}

// Run starts the worker and blocks until ctx is done.
func (w *Worker) Run(ctx context.Context) error {
	err := w.Start(ctx)
	if err != nil {
		return err
	}

	<-ctx.Done()

	stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return w.Stop(stopCtx)
}
