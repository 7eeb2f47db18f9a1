// Package workflow implements the durable execution runner: it walks a
// workflow graph, dispatches ready nodes, applies branching and interrupt
// outcomes, and persists every step with a version check.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"time"

	"github.com/dukex/flowrun/pkg/graph"
	"github.com/dukex/flowrun/pkg/metrics"
	"github.com/dukex/flowrun/pkg/models"
	"github.com/dukex/flowrun/pkg/otelhelper"
	"github.com/dukex/flowrun/pkg/persistence"
	"github.com/dukex/flowrun/pkg/protocol"
	"github.com/dukex/flowrun/pkg/registry"
	"github.com/dukex/flowrun/pkg/template"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

// DefaultNodeTimeout bounds a single node dispatch.
const DefaultNodeTimeout = 5 * time.Minute

var errResultsDiscarded = errors.New("execution settled while the wave was running")

// Executor advances executions. It keeps no state between calls; everything
// it knows comes from the persisted execution.
type Executor struct {
	registry       *registry.Registry
	executions     persistence.ExecutionRepository
	logger         *slog.Logger
	metrics        metrics.Metrics
	tracer         trace.Tracer
	services       protocol.Services
	now            func() time.Time
	mockRun        bool
	nodeTimeout    time.Duration
	staleAfter     time.Duration
	updateAttempts int
}

type ExecutorOption func(*Executor)

// WithMockRun dispatches nodes through MockRun instead of Run.
func WithMockRun(enabled bool) ExecutorOption {
	return func(e *Executor) { e.mockRun = enabled }
}

func WithNodeTimeout(timeout time.Duration) ExecutorOption {
	return func(e *Executor) {
		if timeout > 0 {
			e.nodeTimeout = timeout
		}
	}
}

// WithStaleAfter sets how long a RUNNING node may go without a result before
// it is dispatched again. Defaults to twice the node timeout.
func WithStaleAfter(d time.Duration) ExecutorOption {
	return func(e *Executor) { e.staleAfter = d }
}

func WithServices(services protocol.Services) ExecutorOption {
	return func(e *Executor) { e.services = services }
}

func WithClock(now func() time.Time) ExecutorOption {
	return func(e *Executor) { e.now = now }
}

func WithMetrics(m metrics.Metrics) ExecutorOption {
	return func(e *Executor) { e.metrics = m }
}

func WithTracer(tracer trace.Tracer) ExecutorOption {
	return func(e *Executor) { e.tracer = tracer }
}

// WithUpdateAttempts bounds how many version conflicts one Advance call absorbs.
func WithUpdateAttempts(attempts int) ExecutorOption {
	return func(e *Executor) {
		if attempts > 0 {
			e.updateAttempts = attempts
		}
	}
}

func NewExecutor(
	registry *registry.Registry,
	executions persistence.ExecutionRepository,
	logger *slog.Logger,
	opts ...ExecutorOption,
) *Executor {
	e := &Executor{
		registry:       registry,
		executions:     executions,
		logger:         logger.With("module", "executor"),
		metrics:        metrics.Noop{},
		tracer:         otelhelper.Tracer("flowrun/workflow"),
		now:            time.Now,
		nodeTimeout:    DefaultNodeTimeout,
		updateAttempts: persistence.DefaultUpdateAttempts,
	}

	for _, opt := range opts {
		opt(e)
	}

	if e.staleAfter <= 0 {
		e.staleAfter = 2 * e.nodeTimeout
	}

	if e.services.Now == nil {
		e.services.Now = e.now
	}

	if e.services.Notifier == nil {
		e.services.Notifier = protocol.NopNotifier{}
	}

	return e
}

func (e *Executor) clock() time.Time {
	return e.now().UTC()
}

// Advance runs waves of ready nodes until the execution completes, pauses or
// fails, persisting each wave with a version check. Executions that are not
// RUNNING are returned unchanged.
//
// A wave is claimed (nodes marked RUNNING and saved) before dispatch, so a
// concurrent Advance on the same execution sees no work for those nodes. A
// lost write makes Advance reload and continue from the persisted state.
func (e *Executor) Advance(ctx context.Context, workflow *models.Workflow, execution *models.Execution) (*models.Execution, error) {
	ctx, span := otelhelper.StartSpan(ctx, e.tracer, "workflow.advance",
		attribute.String(otelhelper.ExecutionIDKey, execution.ID),
		attribute.String(otelhelper.WorkflowIDKey, execution.WorkflowID),
	)
	defer span.End()

	logger := e.logger.With("execution_id", execution.ID, "workflow_id", execution.WorkflowID)

	if execution.Status != models.ExecutionStatusRunning {
		logger.DebugContext(ctx, "Execution is not running, nothing to advance", "status", execution.Status)

		return execution, nil
	}

	current := execution.Clone()

	g, err := graph.New(workflow)
	if err != nil {
		logger.ErrorContext(ctx, "Workflow graph is invalid", "error", err)
		otelhelper.SetError(span, err)

		now := e.clock()
		current.Status = models.ExecutionStatusFailed
		current.ErrorMessage = fmt.Sprintf("%v: %v", ErrInvalidWorkflow, err)
		current.ContinueExecutionAt = nil
		current.CompletedAt = &now

		return e.persist(ctx, current)
	}

	var (
		halted    bool
		conflicts int
	)

	for {
		now := e.clock()

		changed := ensureNodes(g, current)

		if reclaimed := reclaimStale(current, now.Add(-e.staleAfter)); len(reclaimed) > 0 {
			logger.WarnContext(ctx, "Reclaiming stale running nodes", "nodes", reclaimed)

			changed = true
		}

		if completeDueNodes(current, now) {
			changed = true
		}

		f := computeFrontier(g, current)

		if halted || len(f.ready) == 0 {
			if settle(g, current, now) {
				changed = true
			}

			if !changed {
				return current, nil
			}

			err := e.executions.Update(ctx, current)
			if err == nil {
				span.SetAttributes(attribute.String(otelhelper.StatusKey, string(current.Status)))
				logger.InfoContext(ctx, "Execution advanced", "status", current.Status)

				return current, nil
			}

			current, err = e.reload(ctx, current.ID, err, &conflicts)
			if err != nil || current.Status != models.ExecutionStatusRunning {
				return current, err
			}

			continue
		}

		for _, id := range f.ready {
			node, _ := current.Node(id)
			node.ExecutionStatus = models.NodeStatusRunning
			node.StartedAt = &now
			node.CompletedAt = nil
			node.Error = ""
		}

		err := e.executions.Update(ctx, current)
		if err != nil {
			current, err = e.reload(ctx, current.ID, err, &conflicts)
			if err != nil || current.Status != models.ExecutionStatusRunning {
				return current, err
			}

			continue
		}

		logger.DebugContext(ctx, "Dispatching wave", "nodes", f.ready)

		results := e.dispatchWave(ctx, g, current, f.ready)

		if err := ctx.Err(); err != nil {
			// claimed nodes stay RUNNING and are reclaimed once stale
			return current, err
		}

		current, err = e.applyResults(ctx, current, results)
		if errors.Is(err, errResultsDiscarded) {
			logger.WarnContext(ctx, "Execution settled elsewhere, discarding wave results")

			return e.executions.GetByID(ctx, execution.ID)
		}

		if err != nil {
			return nil, err
		}

		for _, result := range results {
			if result.outcome.Status != models.NodeStatusSuccess {
				halted = true
			}
		}
	}
}

// reload fetches the persisted execution after a lost write.
func (e *Executor) reload(ctx context.Context, id string, cause error, conflicts *int) (*models.Execution, error) {
	if !persistence.IsVersionConflict(cause) {
		return nil, cause
	}

	*conflicts++
	if *conflicts > e.updateAttempts {
		return nil, newExecutionError("Advance", id, "", fmt.Errorf("%w: %w", ErrConcurrencyConflict, cause))
	}

	return e.executions.GetByID(ctx, id)
}

func (e *Executor) persist(ctx context.Context, execution *models.Execution) (*models.Execution, error) {
	err := e.executions.Update(ctx, execution)
	if err != nil {
		if persistence.IsVersionConflict(err) {
			return nil, newExecutionError("Advance", execution.ID, "", fmt.Errorf("%w: %w", ErrConcurrencyConflict, err))
		}

		return nil, err
	}

	return execution, nil
}

// applyResults writes a finished wave. When another writer got in between
// claim and apply, the results are re-applied to the fresh copy for nodes that
// are still RUNNING, unless the execution has reached a terminal status.
func (e *Executor) applyResults(ctx context.Context, execution *models.Execution, results []nodeResult) (*models.Execution, error) {
	now := e.clock()

	apply := func(target *models.Execution) {
		for _, result := range results {
			node, ok := target.Node(result.nodeID)
			if !ok || node.ExecutionStatus != models.NodeStatusRunning {
				continue
			}

			result.apply(node, now)
		}
	}

	apply(execution)

	err := e.executions.Update(ctx, execution)
	if err == nil {
		return execution, nil
	}

	if !persistence.IsVersionConflict(err) {
		return nil, err
	}

	updated, err := persistence.UpdateExecution(ctx, e.executions, execution.ID, e.updateAttempts, func(fresh *models.Execution) error {
		if fresh.Status.IsTerminal() {
			return errResultsDiscarded
		}

		apply(fresh)

		return nil
	})
	if err != nil {
		if persistence.IsVersionConflict(err) {
			return nil, newExecutionError("Advance", execution.ID, "", fmt.Errorf("%w: %w", ErrConcurrencyConflict, err))
		}

		return nil, err
	}

	return updated, nil
}

type nodeResult struct {
	nodeID   string
	actionID string
	outcome  Outcome
	err      error
}

func (r nodeResult) apply(node *models.ExecutionNode, now time.Time) {
	if r.err != nil {
		node.ExecutionStatus = models.NodeStatusFailed
		node.Error = r.err.Error()
		node.CompletedAt = &now

		return
	}

	node.ExecutionStatus = r.outcome.Status
	node.Output = r.outcome.Output
	node.ContinueAt = r.outcome.ContinueAt
	node.Error = ""

	if r.outcome.Status == models.NodeStatusSuccess {
		node.CompletedAt = &now
	}
}

// dispatchWave runs every claimed node concurrently against one read-only
// snapshot of the execution. Failures are results, not group errors, so
// siblings always finish.
func (e *Executor) dispatchWave(ctx context.Context, g *graph.Graph, execution *models.Execution, nodeIDs []string) []nodeResult {
	snapshot := execution.Clone()
	data := template.ExecutionData(snapshot, g.Workflow().Variables)
	outputs := snapshot.Outputs()
	results := make([]nodeResult, len(nodeIDs))

	var group errgroup.Group

	for i, id := range nodeIDs {
		group.Go(func() error {
			results[i] = e.dispatch(ctx, g, snapshot, data, maps.Clone(outputs), id)

			return nil
		})
	}

	_ = group.Wait()

	return results
}

func (e *Executor) dispatch(
	ctx context.Context,
	g *graph.Graph,
	execution *models.Execution,
	data map[string]any,
	outputs map[string]any,
	nodeID string,
) (result nodeResult) {
	node, _ := g.Node(nodeID)
	result = nodeResult{nodeID: nodeID, actionID: node.ActionID}

	ctx, span := otelhelper.StartSpan(ctx, e.tracer, "workflow.node",
		attribute.String(otelhelper.ExecutionIDKey, execution.ID),
		attribute.String(otelhelper.NodeIDKey, nodeID),
		attribute.String(otelhelper.ActionIDKey, node.ActionID),
	)
	defer span.End()

	logger := e.logger.With(
		"execution_id", execution.ID,
		"node_id", nodeID,
		"action_id", node.ActionID,
	)

	started := time.Now()

	defer func() {
		if r := recover(); r != nil {
			result.err = protocol.NewRuntimeError(node.ActionID, "action panicked", fmt.Errorf("%v", r))
		}

		status := result.outcome.Status
		if result.err != nil {
			status = models.NodeStatusFailed

			otelhelper.SetError(span, result.err)
			logger.ErrorContext(ctx, "Node failed", "error", result.err)
		} else {
			logger.InfoContext(ctx, "Node dispatched", "status", status)
		}

		e.metrics.IncNodeDispatched(node.ActionID, string(status))
		e.metrics.ObserveNodeDuration(node.ActionID, time.Since(started).Seconds())
	}()

	result.outcome, result.err = e.run(ctx, node, execution, data, outputs, logger)

	return result
}

func (e *Executor) run(
	ctx context.Context,
	node *models.WorkflowNode,
	execution *models.Execution,
	data map[string]any,
	outputs map[string]any,
	logger *slog.Logger,
) (Outcome, error) {
	config, err := template.ResolveConfig(node.Config, data)
	if err != nil {
		return Outcome{}, protocol.NewValidationError(node.ActionID, err.Error())
	}

	action, err := e.registry.CreateAction(ctx, node.ActionID, config)
	if err != nil {
		return Outcome{}, err
	}

	input := protocol.ActionContext{
		ExecutionID: execution.ID,
		WorkflowID:  execution.WorkflowID,
		ProjectID:   execution.ProjectID,
		NodeID:      node.ID,
		Config:      config,
		TriggerData: execution.TriggerData,
		NodeOutputs: outputs,
		Services:    e.services,
		Logger:      logger,
	}

	runCtx, cancel := context.WithTimeout(ctx, e.nodeTimeout)
	defer cancel()

	var result map[string]any

	if e.mockRun {
		result, err = action.MockRun(runCtx, input)
	} else {
		result, err = action.Run(runCtx, input)
	}

	if err != nil {
		return Outcome{}, err
	}

	return Classify(runCtx, action, input, result)
}
