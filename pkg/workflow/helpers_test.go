package workflow

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/dukex/flowrun/pkg/actions/conditionalpaths"
	"github.com/dukex/flowrun/pkg/actions/manualpath"
	"github.com/dukex/flowrun/pkg/actions/output"
	"github.com/dukex/flowrun/pkg/actions/pause"
	"github.com/dukex/flowrun/pkg/actions/schedule"
	"github.com/dukex/flowrun/pkg/actions/transform"
	"github.com/dukex/flowrun/pkg/actions/wait"
	"github.com/dukex/flowrun/pkg/actions/webhooklistener"
	"github.com/dukex/flowrun/pkg/eventbus"
	"github.com/dukex/flowrun/pkg/events"
	"github.com/dukex/flowrun/pkg/models"
	"github.com/dukex/flowrun/pkg/persistence/file"
	"github.com/dukex/flowrun/pkg/protocol"
	"github.com/dukex/flowrun/pkg/registry"
	"github.com/dukex/flowrun/pkg/testutil"
	"github.com/stretchr/testify/require"
)

var testStart = time.Date(2026, 1, 5, 9, 0, 0, 0, time.UTC)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: testStart}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.now
}

func (c *fakeClock) Add(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.now = c.now.Add(d)
}

// recorder counts dispatches per node for the record, fail and panic test actions.
type recorder struct {
	mu   sync.Mutex
	runs map[string]int
}

func newRecorder() *recorder {
	return &recorder{runs: make(map[string]int)}
}

func (r *recorder) record(nodeID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.runs[nodeID]++
}

func (r *recorder) count(nodeID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.runs[nodeID]
}

func (r *recorder) dispatched() map[string]int {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make(map[string]int, len(r.runs))
	for id, n := range r.runs {
		out[id] = n
	}

	return out
}

type testActionFactory struct {
	id       string
	recorder *recorder
}

func (f *testActionFactory) ID() string             { return f.id }
func (f *testActionFactory) Name() string           { return f.id }
func (f *testActionFactory) Description() string    { return "test action " + f.id }
func (f *testActionFactory) Schema() map[string]any { return nil }

func (f *testActionFactory) Create(_ context.Context, config map[string]any) (protocol.Action, error) {
	return &testAction{kind: f.id, config: config, recorder: f.recorder}, nil
}

type testAction struct {
	kind     string
	config   map[string]any
	recorder *recorder
}

func (a *testAction) Run(_ context.Context, input protocol.ActionContext) (map[string]any, error) {
	a.recorder.record(input.NodeID)

	switch a.kind {
	case "fail":
		return nil, protocol.NewRuntimeError("fail", "remote call failed", errors.New("503 service unavailable"))
	case "panic":
		panic("action bug")
	}

	return map[string]any{"node": input.NodeID, "value": a.config["value"]}, nil
}

func (a *testAction) MockRun(ctx context.Context, input protocol.ActionContext) (map[string]any, error) {
	return a.Run(ctx, input)
}

func newTestRegistry(rec *recorder) *registry.Registry {
	r := registry.NewRegistry(testLogger())

	r.RegisterAction(conditionalpaths.NewActionFactory())
	r.RegisterAction(manualpath.NewActionFactory())
	r.RegisterAction(output.NewActionFactory())
	r.RegisterAction(pause.NewActionFactory())
	r.RegisterAction(schedule.NewActionFactory())
	r.RegisterAction(transform.NewActionFactory())
	r.RegisterAction(wait.NewActionFactory())
	r.RegisterAction(webhooklistener.NewActionFactory())

	for _, id := range []string{"record", "fail", "panic"} {
		r.RegisterAction(&testActionFactory{id: id, recorder: rec})
	}

	return r
}

type harness struct {
	persistence *file.Persistence
	recorder    *recorder
	clock       *fakeClock
	registry    *registry.Registry
	executor    *Executor
	manager     *Manager
}

func newHarness(t *testing.T, opts ...ExecutorOption) *harness {
	t.Helper()

	h := &harness{
		persistence: file.NewPersistence(t.TempDir()),
		recorder:    newRecorder(),
		clock:       newFakeClock(),
	}

	h.registry = newTestRegistry(h.recorder)

	opts = append([]ExecutorOption{WithClock(h.clock.Now)}, opts...)
	h.executor = NewExecutor(h.registry, h.persistence.ExecutionRepository(), testLogger(), opts...)
	h.manager = h.newManager()

	return h
}

func (h *harness) newManager(opts ...ManagerOption) *Manager {
	opts = append([]ManagerOption{WithManagerClock(h.clock.Now)}, opts...)

	return NewManager(h.persistence, h.executor, h.registry, testLogger(), opts...)
}

// capturePublisher records published events.
type capturePublisher struct {
	mu     sync.Mutex
	events []eventbus.Event
}

func (p *capturePublisher) Publish(_ context.Context, _ string, event eventbus.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.events = append(p.events, event)

	return nil
}

func (p *capturePublisher) types() []events.EventType {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]events.EventType, 0, len(p.events))
	for _, event := range p.events {
		out = append(out, event.GetType())
	}

	return out
}

func (p *capturePublisher) last(eventType events.EventType) eventbus.Event {
	p.mu.Lock()
	defer p.mu.Unlock()

	for i := len(p.events) - 1; i >= 0; i-- {
		if p.events[i].GetType() == eventType {
			return p.events[i]
		}
	}

	return nil
}

func (h *harness) save(t *testing.T, workflow *models.Workflow) {
	t.Helper()

	require.NoError(t, h.persistence.WorkflowRepository().Save(context.Background(), workflow))
}

func (h *harness) execution(t *testing.T, id string) *models.Execution {
	t.Helper()

	execution, err := h.persistence.ExecutionRepository().GetByID(context.Background(), id)
	require.NoError(t, err)

	return execution
}

func nodeStatus(t *testing.T, execution *models.Execution, id string) models.NodeStatus {
	t.Helper()

	node, ok := execution.Node(id)
	require.True(t, ok, "node %s not tracked", id)

	return node.ExecutionStatus
}

var (
	newWorkflow = testutil.NewWorkflow
	actionNode  = testutil.ActionNode
	edge        = testutil.Edge
)

func recordNode(id string) *models.WorkflowNode {
	return actionNode(id, "record", map[string]any{"value": id})
}
