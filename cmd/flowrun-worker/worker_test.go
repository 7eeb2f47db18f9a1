package main

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/dukex/flowrun/pkg/cmd"
	"github.com/dukex/flowrun/pkg/models"
	"github.com/dukex/flowrun/pkg/testutil"
	"github.com/dukex/flowrun/pkg/workflow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorker_AdvancesHandedOverExecutions(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	runtime, err := cmd.NewRuntime(ctx, logger, cmd.RuntimeConfig{
		DatabaseURL: "file://" + t.TempDir(),
		EventBus:    "gochannel",
	})
	require.NoError(t, err)

	defer func() {
		assert.NoError(t, runtime.Close(context.Background()))
	}()

	require.NoError(t, runtime.Persistence.WorkflowRepository().Save(ctx, testutil.NewWorkflow("orders",
		[]*models.WorkflowNode{
			testutil.ActionNode("result", "output", map[string]any{"value": "{{ .trigger.order }}"}),
		},
		[]*models.Edge{testutil.Edge("t-result", testutil.TriggerNodeID, "result")},
	)))

	worker := NewWorker(runtime, logger, time.Hour)
	require.NoError(t, worker.Start(ctx))

	defer func() {
		assert.NoError(t, worker.Stop(context.Background()))
	}()

	api := workflow.NewManager(
		runtime.Persistence,
		runtime.Executor,
		runtime.Registry,
		logger,
		workflow.WithPublisher(runtime.EventBus),
		workflow.WithAsyncAdvance(true),
	)

	id, err := api.StartExecution(ctx, "orders", map[string]any{"order": "ord-9"})
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		execution, err := api.GetExecution(ctx, id)

		return err == nil && execution.Status == models.ExecutionStatusSuccess
	}, 5*time.Second, 20*time.Millisecond)

	execution, err := api.GetExecution(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "ord-9", execution.Output["value"])
}
