package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/dukex/flowrun/pkg/actions/webhooklistener"
	"github.com/dukex/flowrun/pkg/eventbus"
	"github.com/dukex/flowrun/pkg/events"
	"github.com/dukex/flowrun/pkg/graph"
	"github.com/dukex/flowrun/pkg/metrics"
	"github.com/dukex/flowrun/pkg/models"
	"github.com/dukex/flowrun/pkg/persistence"
	"github.com/dukex/flowrun/pkg/protocol"
	"github.com/dukex/flowrun/pkg/registry"
	"github.com/dukex/flowrun/pkg/template"
	"github.com/google/uuid"
)

// Resume sources, used as metric labels and in resumed events.
const (
	SourceManual       = "manual"
	SourcePathDecision = "path_decision"
	SourceWebhook      = "webhook"
	SourceWake         = "wake"
)

// DefaultWakeBatch caps how many due executions one WakeDue call handles.
const DefaultWakeBatch = 100

var errNotDue = errors.New("execution is not due")

// Manager is the entry point for everything outside the runner: starting
// executions, resuming paused nodes, and waking scheduled executions.
type Manager struct {
	persistence    persistence.Persistence
	executor       *Executor
	registry       *registry.Registry
	publisher      eventbus.EventPublisher
	metrics        metrics.Metrics
	logger         *slog.Logger
	now            func() time.Time
	asyncAdvance   bool
	updateAttempts int
	wakeBatch      int
}

type ManagerOption func(*Manager)

// WithPublisher publishes execution lifecycle events.
func WithPublisher(publisher eventbus.EventPublisher) ManagerOption {
	return func(m *Manager) { m.publisher = publisher }
}

// WithAsyncAdvance hands advancement to workers through an
// execution.advance.requested event instead of advancing in the caller.
// It requires a publisher.
func WithAsyncAdvance(enabled bool) ManagerOption {
	return func(m *Manager) { m.asyncAdvance = enabled }
}

func WithManagerMetrics(m metrics.Metrics) ManagerOption {
	return func(manager *Manager) { manager.metrics = m }
}

func WithManagerClock(now func() time.Time) ManagerOption {
	return func(m *Manager) { m.now = now }
}

func WithWakeBatch(size int) ManagerOption {
	return func(m *Manager) {
		if size > 0 {
			m.wakeBatch = size
		}
	}
}

func NewManager(
	p persistence.Persistence,
	executor *Executor,
	registry *registry.Registry,
	logger *slog.Logger,
	opts ...ManagerOption,
) *Manager {
	m := &Manager{
		persistence:    p,
		executor:       executor,
		registry:       registry,
		metrics:        metrics.Noop{},
		logger:         logger.With("module", "execution_manager"),
		now:            time.Now,
		updateAttempts: persistence.DefaultUpdateAttempts,
		wakeBatch:      DefaultWakeBatch,
	}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

func (m *Manager) clock() time.Time {
	return m.now().UTC()
}

func (m *Manager) executions() persistence.ExecutionRepository {
	return m.persistence.ExecutionRepository()
}

// StartExecution creates an execution of the workflow with inputData as the
// trigger output and advances it.
func (m *Manager) StartExecution(ctx context.Context, workflowID string, inputData map[string]any) (string, error) {
	workflow, err := m.persistence.WorkflowRepository().GetByID(ctx, workflowID)
	if err != nil {
		return "", err
	}

	if _, err := graph.New(workflow); err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidWorkflow, err)
	}

	execution := NewExecution(workflow, uuid.NewString(), inputData, m.clock())

	err = m.executions().Create(ctx, execution)
	if err != nil {
		return "", err
	}

	logger := m.logger.With("execution_id", execution.ID, "workflow_id", workflow.ID)
	logger.InfoContext(ctx, "Execution started")

	m.metrics.IncExecutionsStarted(workflow.ID)
	m.publish(ctx, execution.ID, events.ExecutionStarted{
		BaseEvent:   m.baseEvent(events.ExecutionStartedEvent, execution),
		TriggerData: execution.TriggerData,
	})

	_, err = m.continueExecution(ctx, execution)
	if err != nil {
		return execution.ID, err
	}

	return execution.ID, nil
}

// Advance loads an execution and advances it, retrying from a fresh read when
// a concurrent writer wins.
func (m *Manager) Advance(ctx context.Context, executionID string) (*models.Execution, error) {
	var lastErr error

	for range m.updateAttempts {
		execution, err := m.executions().GetByID(ctx, executionID)
		if err != nil {
			return nil, err
		}

		workflow, err := m.persistence.WorkflowRepository().GetByID(ctx, execution.WorkflowID)
		if err != nil {
			return nil, err
		}

		advanced, err := m.executor.Advance(ctx, workflow, execution)
		if errors.Is(err, ErrConcurrencyConflict) {
			lastErr = err

			continue
		}

		if err != nil {
			return nil, err
		}

		if execution.Status == models.ExecutionStatusRunning && advanced.Status != models.ExecutionStatusRunning {
			m.publishSettled(ctx, advanced)
		}

		return advanced, nil
	}

	return nil, lastErr
}

// GetExecution returns the persisted execution.
func (m *Manager) GetExecution(ctx context.Context, executionID string) (*models.Execution, error) {
	return m.executions().GetByID(ctx, executionID)
}

// ListExecutions returns the executions of a workflow, newest first.
func (m *Manager) ListExecutions(ctx context.Context, workflowID string) ([]*models.Execution, error) {
	return m.executions().ListByWorkflow(ctx, workflowID)
}

// ResumeNode completes a NEEDS_INPUT or SCHEDULED node with inputData and
// advances the execution. A node that was already resumed is left alone and
// the current execution is returned, so racing resumes advance once.
func (m *Manager) ResumeNode(ctx context.Context, executionID, nodeID string, inputData map[string]any) (*models.Execution, error) {
	return m.resume(ctx, executionID, nodeID, inputData, SourceManual)
}

// ResumeWithPaths resumes a node with a path decision. Every path must be an
// outgoing edge of the node.
func (m *Manager) ResumeWithPaths(ctx context.Context, executionID, nodeID string, pathsToTake []string) (*models.Execution, error) {
	execution, workflow, err := m.load(ctx, executionID)
	if err != nil {
		return nil, err
	}

	g, err := graph.New(workflow)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidWorkflow, err)
	}

	node, ok := g.Node(nodeID)
	if !ok {
		return nil, newExecutionError("ResumeWithPaths", execution.ID, nodeID, ErrNodeNotFound)
	}

	outgoing := make([]string, 0)
	for _, edge := range g.OutgoingEdges(nodeID) {
		outgoing = append(outgoing, edge.ID)
	}

	for _, path := range pathsToTake {
		if !slices.Contains(outgoing, path) {
			return nil, protocol.NewValidationError(node.ActionID, fmt.Sprintf("edge '%s' does not leave node '%s'", path, nodeID))
		}
	}

	if pathsToTake == nil {
		pathsToTake = []string{}
	}

	return m.resume(ctx, executionID, nodeID, map[string]any{models.PathsToTakeKey: pathsToTake}, SourcePathDecision)
}

// ResumeWebhook resumes the execution's waiting webhook listener with the
// request payload as {"body": payload}.
func (m *Manager) ResumeWebhook(ctx context.Context, executionID string, payload map[string]any) (*models.Execution, error) {
	execution, workflow, err := m.load(ctx, executionID)
	if err != nil {
		return nil, err
	}

	for _, node := range workflow.Nodes {
		if node.ActionID != webhooklistener.ActionID {
			continue
		}

		executionNode, ok := execution.Node(node.ID)
		if ok && executionNode.ExecutionStatus == models.NodeStatusNeedsInput {
			return m.resume(ctx, executionID, node.ID, map[string]any{"body": payload}, SourceWebhook)
		}
	}

	return nil, newExecutionError("ResumeWebhook", executionID, "", ErrNoWebhookListener)
}

// WakeDue moves every SCHEDULED execution whose wake time is at or before now
// back to RUNNING and advances it. It returns how many executions it woke.
func (m *Manager) WakeDue(ctx context.Context, now time.Time) (int, error) {
	due, err := m.executions().ListDueScheduled(ctx, now, m.wakeBatch)
	if err != nil {
		return 0, fmt.Errorf("failed to list due executions: %w", err)
	}

	woken := 0

	for _, candidate := range due {
		logger := m.logger.With("execution_id", candidate.ID)

		execution, err := persistence.UpdateExecution(ctx, m.executions(), candidate.ID, m.updateAttempts, func(e *models.Execution) error {
			if e.Status != models.ExecutionStatusScheduled || e.ContinueExecutionAt == nil || e.ContinueExecutionAt.After(now) {
				return errNotDue
			}

			e.Status = models.ExecutionStatusRunning
			e.ContinueExecutionAt = nil

			return nil
		})
		if errors.Is(err, errNotDue) {
			continue
		}

		if err != nil {
			logger.ErrorContext(ctx, "Failed to wake execution", "error", err)

			continue
		}

		woken++

		logger.InfoContext(ctx, "Execution woken")
		m.metrics.IncResumes(SourceWake)
		m.publish(ctx, execution.ID, events.ExecutionResumed{
			BaseEvent: m.baseEvent(events.ExecutionResumedEvent, execution),
			Source:    SourceWake,
		})

		_, err = m.continueExecution(ctx, execution)
		if err != nil {
			logger.ErrorContext(ctx, "Failed to advance woken execution", "error", err)
		}
	}

	return woken, nil
}

// RegisterHandlers subscribes the manager to advance requests published by
// managers running with WithAsyncAdvance.
func (m *Manager) RegisterHandlers(subscriber eventbus.EventSubscriber) error {
	return subscriber.Handle(events.ExecutionAdvanceRequestedEvent, func(ctx context.Context, event any) error {
		request, ok := event.(*events.ExecutionAdvanceRequested)
		if !ok {
			return fmt.Errorf("unexpected event %T", event)
		}

		_, err := m.Advance(ctx, request.ExecutionID)
		if persistence.IsExecutionNotFound(err) {
			m.logger.WarnContext(ctx, "Dropping advance request for missing execution", "execution_id", request.ExecutionID)

			return nil
		}

		return err
	})
}

func (m *Manager) resume(ctx context.Context, executionID, nodeID string, data map[string]any, source string) (*models.Execution, error) {
	execution, workflow, err := m.load(ctx, executionID)
	if err != nil {
		return nil, err
	}

	logger := m.logger.With("execution_id", executionID, "node_id", nodeID, "source", source)

	node, ok := workflow.FindNode(nodeID)
	if !ok {
		return nil, newExecutionError("ResumeNode", executionID, nodeID, ErrNodeNotFound)
	}

	if executionNode, ok := execution.Node(nodeID); ok && executionNode.ExecutionStatus.IsPaused() {
		err = m.validateResume(ctx, workflow, execution, node, data)
		if err != nil {
			logger.InfoContext(ctx, "Resume rejected", "error", err)

			return nil, err
		}
	}

	now := m.clock()

	resumed, err := persistence.UpdateExecution(ctx, m.executions(), executionID, m.updateAttempts, func(e *models.Execution) error {
		return ResumeNode(e, nodeID, data, now)
	})

	switch {
	case errors.Is(err, ErrAlreadyResumed):
		logger.InfoContext(ctx, "Node already resumed, nothing to do")

		return m.executions().GetByID(ctx, executionID)
	case persistence.IsVersionConflict(err):
		return nil, newExecutionError("ResumeNode", executionID, nodeID, fmt.Errorf("%w: %w", ErrConcurrencyConflict, err))
	case err != nil:
		return nil, newExecutionError("ResumeNode", executionID, nodeID, err)
	}

	logger.InfoContext(ctx, "Node resumed")
	m.metrics.IncResumes(source)
	m.publish(ctx, resumed.ID, events.ExecutionResumed{
		BaseEvent: m.baseEvent(events.ExecutionResumedEvent, resumed),
		NodeID:    nodeID,
		Source:    source,
	})

	return m.continueExecution(ctx, resumed)
}

// validateResume lets the paused node's action reject resume data before
// anything is written.
func (m *Manager) validateResume(
	ctx context.Context,
	workflow *models.Workflow,
	execution *models.Execution,
	node *models.WorkflowNode,
	data map[string]any,
) error {
	config, err := template.ResolveConfig(node.Config, template.ExecutionData(execution, workflow.Variables))
	if err != nil {
		return protocol.NewValidationError(node.ActionID, err.Error())
	}

	action, err := m.registry.CreateAction(ctx, node.ActionID, config)
	if err != nil {
		return err
	}

	validator, ok := action.(protocol.ResumeValidator)
	if !ok {
		return nil
	}

	return validator.ValidateResume(ctx, data)
}

// continueExecution advances in place, or asks a worker to when async.
func (m *Manager) continueExecution(ctx context.Context, execution *models.Execution) (*models.Execution, error) {
	if m.asyncAdvance && m.publisher != nil {
		err := m.publisher.Publish(ctx, execution.ID, events.ExecutionAdvanceRequested{
			BaseEvent: m.baseEvent(events.ExecutionAdvanceRequestedEvent, execution),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to request advance: %w", err)
		}

		return execution, nil
	}

	return m.Advance(ctx, execution.ID)
}

func (m *Manager) load(ctx context.Context, executionID string) (*models.Execution, *models.Workflow, error) {
	execution, err := m.executions().GetByID(ctx, executionID)
	if err != nil {
		return nil, nil, err
	}

	workflow, err := m.persistence.WorkflowRepository().GetByID(ctx, execution.WorkflowID)
	if err != nil {
		return nil, nil, err
	}

	return execution, workflow, nil
}

func (m *Manager) baseEvent(eventType events.EventType, execution *models.Execution) events.BaseEvent {
	return events.NewBaseEvent(eventType, execution.WorkflowID, execution.ProjectID, execution.ID)
}

func (m *Manager) publishSettled(ctx context.Context, execution *models.Execution) {
	m.metrics.IncExecutionsFinished(string(execution.Status))

	durationMs := m.clock().Sub(execution.CreatedAt).Milliseconds()

	switch execution.Status {
	case models.ExecutionStatusSuccess:
		m.publish(ctx, execution.ID, events.ExecutionCompleted{
			BaseEvent:  m.baseEvent(events.ExecutionCompletedEvent, execution),
			Output:     execution.Output,
			DurationMs: durationMs,
		})
	case models.ExecutionStatusFailed:
		event := events.ExecutionFailed{
			BaseEvent:  m.baseEvent(events.ExecutionFailedEvent, execution),
			Error:      execution.ErrorMessage,
			DurationMs: durationMs,
		}

		if failed := execution.NodesByStatus(models.NodeStatusFailed); len(failed) > 0 {
			event.NodeID = failed[0].ID
		}

		m.publish(ctx, execution.ID, event)
	case models.ExecutionStatusNeedsInput, models.ExecutionStatusScheduled:
		paused := make([]string, 0)
		for _, node := range execution.NodesByStatus(models.NodeStatusNeedsInput, models.NodeStatusScheduled) {
			paused = append(paused, node.ID)
		}

		m.publish(ctx, execution.ID, events.ExecutionPaused{
			BaseEvent:           m.baseEvent(events.ExecutionPausedEvent, execution),
			Status:              string(execution.Status),
			PausedNodes:         paused,
			ContinueExecutionAt: execution.ContinueExecutionAt,
		})
	case models.ExecutionStatusRunning:
	}
}

func (m *Manager) publish(ctx context.Context, executionID string, event eventbus.Event) {
	if m.publisher == nil {
		return
	}

	err := m.publisher.Publish(ctx, executionID, event)
	if err != nil {
		m.logger.WarnContext(ctx, "Failed to publish event", "event_type", event.GetType(), "error", err)
	}
}
