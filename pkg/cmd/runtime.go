package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/dukex/flowrun/pkg/eventbus"
	"github.com/dukex/flowrun/pkg/metrics"
	"github.com/dukex/flowrun/pkg/persistence"
	"github.com/dukex/flowrun/pkg/protocol"
	"github.com/dukex/flowrun/pkg/registry"
	"github.com/dukex/flowrun/pkg/workflow"
	"go.opentelemetry.io/otel/trace"
)

// RuntimeConfig holds the settings shared by the API and the worker.
type RuntimeConfig struct {
	DatabaseURL  string
	EventBus     string
	KafkaBrokers string
	PluginsPath  string
	NodeTimeout  time.Duration
	AsyncAdvance bool
	MockRun      bool

	// Optional; no-op implementations are used when nil.
	Metrics metrics.Metrics
	Tracer  trace.Tracer
}

// Runtime is the wired execution engine of one process.
type Runtime struct {
	Persistence persistence.Persistence
	Registry    *registry.Registry
	EventBus    eventbus.EventBus
	Executor    *workflow.Executor
	Manager     *workflow.Manager
}

// NewRuntime builds persistence, the action registry, the event bus and the
// execution manager from cfg. Whatever was opened is closed again on error.
func NewRuntime(ctx context.Context, logger *slog.Logger, cfg RuntimeConfig) (*Runtime, error) {
	reg, err := NewRegistry(ctx, logger, cfg.PluginsPath)
	if err != nil {
		return nil, err
	}

	p, err := NewPersistence(ctx, logger, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}

	bus, err := NewEventBus(cfg.EventBus, cfg.KafkaBrokers, logger)
	if err != nil {
		return nil, errors.Join(err, p.Close(ctx))
	}

	executorOpts := []workflow.ExecutorOption{
		workflow.WithNodeTimeout(cfg.NodeTimeout),
		workflow.WithMockRun(cfg.MockRun),
		workflow.WithServices(protocol.Services{
			HTTPClient: &http.Client{Timeout: cfg.NodeTimeout},
			Notifier:   workflow.NewEventNotifier(bus),
		}),
	}

	managerOpts := []workflow.ManagerOption{
		workflow.WithPublisher(bus),
		workflow.WithAsyncAdvance(cfg.AsyncAdvance),
	}

	if cfg.Metrics != nil {
		executorOpts = append(executorOpts, workflow.WithMetrics(cfg.Metrics))
		managerOpts = append(managerOpts, workflow.WithManagerMetrics(cfg.Metrics))
	}

	if cfg.Tracer != nil {
		executorOpts = append(executorOpts, workflow.WithTracer(cfg.Tracer))
	}

	executor := workflow.NewExecutor(reg, p.ExecutionRepository(), logger, executorOpts...)

	return &Runtime{
		Persistence: p,
		Registry:    reg,
		EventBus:    bus,
		Executor:    executor,
		Manager:     workflow.NewManager(p, executor, reg, logger, managerOpts...),
	}, nil
}

// Close releases the event bus and persistence.
func (r *Runtime) Close(ctx context.Context) error {
	var errs []error

	if err := r.EventBus.Close(); err != nil {
		errs = append(errs, fmt.Errorf("failed to close event bus: %w", err))
	}

	if err := r.Persistence.Close(ctx); err != nil {
		errs = append(errs, fmt.Errorf("failed to close persistence: %w", err))
	}

	return errors.Join(errs...)
}
