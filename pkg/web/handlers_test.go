package web_test

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dukex/flowrun/pkg/actions/manualpath"
	"github.com/dukex/flowrun/pkg/actions/output"
	"github.com/dukex/flowrun/pkg/actions/pause"
	"github.com/dukex/flowrun/pkg/actions/transform"
	"github.com/dukex/flowrun/pkg/actions/webhooklistener"
	"github.com/dukex/flowrun/pkg/models"
	"github.com/dukex/flowrun/pkg/persistence/file"
	"github.com/dukex/flowrun/pkg/registry"
	"github.com/dukex/flowrun/pkg/services"
	"github.com/dukex/flowrun/pkg/web"
	"github.com/dukex/flowrun/pkg/workflow"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestApp(t *testing.T) *fiber.App {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	persistence := file.NewPersistence(t.TempDir())

	reg := registry.NewRegistry(logger)
	reg.RegisterAction(manualpath.NewActionFactory())
	reg.RegisterAction(output.NewActionFactory())
	reg.RegisterAction(pause.NewActionFactory())
	reg.RegisterAction(transform.NewActionFactory())
	reg.RegisterAction(webhooklistener.NewActionFactory())

	executor := workflow.NewExecutor(reg, persistence.ExecutionRepository(), logger)
	manager := workflow.NewManager(persistence, executor, reg, logger)

	handlers := web.NewAPIHandlers(
		services.NewWorkflow(persistence),
		manager,
		validator.New(validator.WithRequiredStructEnabled()),
		reg,
	)

	app := fiber.New()
	handlers.RegisterRoutes(app)

	return app
}

func doRequest(t *testing.T, app *fiber.App, method, path string, body any) (int, []byte) {
	t.Helper()

	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(b)
	default:
		encoded, err := json.Marshal(b)
		require.NoError(t, err)

		reader = bytes.NewReader(encoded)
	}

	req := httptest.NewRequest(method, path, reader)
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := app.Test(req)
	require.NoError(t, err)

	defer func() {
		if err := resp.Body.Close(); err != nil {
			t.Logf("Failed to close response body: %v", err)
		}
	}()

	respBody, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	return resp.StatusCode, respBody
}

func decode[T any](t *testing.T, body []byte) T {
	t.Helper()

	var out T
	require.NoError(t, json.Unmarshal(body, &out), string(body))

	return out
}

func approvalRequest() web.WorkflowRequest {
	return web.WorkflowRequest{
		ProjectID:     "project-1",
		Name:          "Refund approval",
		TriggerNodeID: "trigger",
		Nodes: []*models.WorkflowNode{
			{ID: "trigger", Type: models.NodeTypeTrigger, TriggerID: "manual"},
			{ID: "approve", Type: models.NodeTypeAction, ActionID: "pause", Config: map[string]any{"message": "refund {{ .trigger.order }}?"}},
			{ID: "result", Type: models.NodeTypeAction, ActionID: "output", Config: map[string]any{"value": "{{ .trigger.order }}"}},
		},
		Edges: []*models.Edge{
			{ID: "t-approve", Source: "trigger", Target: "approve", Type: models.EdgeTypeWorkflow},
			{ID: "approve-result", Source: "approve", Target: "result", Type: models.EdgeTypeWorkflow},
		},
	}
}

func createWorkflow(t *testing.T, app *fiber.App, req web.WorkflowRequest) *models.Workflow {
	t.Helper()

	status, body := doRequest(t, app, http.MethodPost, "/workflows", req)
	require.Equal(t, http.StatusCreated, status, string(body))

	return decode[*models.Workflow](t, body)
}

func startExecution(t *testing.T, app *fiber.App, workflowID string, input map[string]any) *models.Execution {
	t.Helper()

	status, body := doRequest(t, app, http.MethodPost, "/workflows/"+workflowID+"/executions", web.StartExecutionRequest{Input: input})
	require.Equal(t, http.StatusCreated, status, string(body))

	resp := decode[web.StartExecutionResponse](t, body)
	require.NotNil(t, resp.Execution)
	assert.Equal(t, resp.ExecutionID, resp.Execution.ID)

	return resp.Execution
}

func problemType(t *testing.T, body []byte) string {
	t.Helper()

	problem := decode[map[string]any](t, body)
	problemType, _ := problem["type"].(string)

	return problemType
}

func TestAPIHandlers_CreateWorkflow(t *testing.T) {
	tests := []struct {
		name           string
		body           any
		expectedStatus int
	}{
		{name: "successful creation", body: approvalRequest(), expectedStatus: http.StatusCreated},
		{name: "invalid json", body: "{not json", expectedStatus: http.StatusBadRequest},
		{
			name: "missing required fields",
			body: func() web.WorkflowRequest {
				req := approvalRequest()
				req.ProjectID = ""
				req.Name = ""

				return req
			}(),
			expectedStatus: http.StatusBadRequest,
		},
		{
			name: "edge to unknown node",
			body: func() web.WorkflowRequest {
				req := approvalRequest()
				req.Edges = append(req.Edges, &models.Edge{ID: "dangling", Source: "result", Target: "ghost", Type: models.EdgeTypeWorkflow})

				return req
			}(),
			expectedStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := setupTestApp(t)

			status, body := doRequest(t, app, http.MethodPost, "/workflows", tt.body)
			assert.Equal(t, tt.expectedStatus, status, string(body))

			if status == http.StatusCreated {
				created := decode[*models.Workflow](t, body)
				assert.NotEmpty(t, created.ID)
				assert.Equal(t, "Refund approval", created.Name)
			} else {
				assert.Equal(t, "validation_error", problemType(t, body))
			}
		})
	}
}

func TestAPIHandlers_WorkflowLifecycle(t *testing.T) {
	app := setupTestApp(t)
	created := createWorkflow(t, app, approvalRequest())

	status, body := doRequest(t, app, http.MethodGet, "/workflows/"+created.ID, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, created.ID, decode[*models.Workflow](t, body).ID)

	status, body = doRequest(t, app, http.MethodGet, "/workflows?project_id=project-1", nil)
	require.Equal(t, http.StatusOK, status)
	assert.InDelta(t, 1, decode[map[string]any](t, body)["total_count"], 0)

	status, body = doRequest(t, app, http.MethodGet, "/workflows?project_id=other", nil)
	require.Equal(t, http.StatusOK, status)
	assert.InDelta(t, 0, decode[map[string]any](t, body)["total_count"], 0)

	update := approvalRequest()
	update.Name = "Refund approval v2"

	status, body = doRequest(t, app, http.MethodPut, "/workflows/"+created.ID, update)
	require.Equal(t, http.StatusOK, status, string(body))
	assert.Equal(t, "Refund approval v2", decode[*models.Workflow](t, body).Name)

	status, _ = doRequest(t, app, http.MethodDelete, "/workflows/"+created.ID, nil)
	assert.Equal(t, http.StatusNoContent, status)

	status, body = doRequest(t, app, http.MethodGet, "/workflows/"+created.ID, nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "workflow_not_found", problemType(t, body))

	status, _ = doRequest(t, app, http.MethodDelete, "/workflows/"+created.ID, nil)
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = doRequest(t, app, http.MethodPut, "/workflows/missing", update)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestAPIHandlers_PauseAndResume(t *testing.T) {
	app := setupTestApp(t)
	created := createWorkflow(t, app, approvalRequest())

	execution := startExecution(t, app, created.ID, map[string]any{"order": "ord-42"})
	require.Equal(t, models.ExecutionStatusNeedsInput, execution.Status)

	base := "/executions/" + execution.ID

	status, body := doRequest(t, app, http.MethodPost, base+"/nodes/approve/resume",
		web.ResumeNodeRequest{Data: map[string]any{pause.ResumeKey: false}})
	assert.Equal(t, http.StatusBadRequest, status, string(body))

	status, body = doRequest(t, app, http.MethodGet, base, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, models.ExecutionStatusNeedsInput, decode[*models.Execution](t, body).Status)

	status, body = doRequest(t, app, http.MethodPost, base+"/nodes/missing/resume", nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "node_not_found", problemType(t, body))

	status, body = doRequest(t, app, http.MethodPost, base+"/nodes/result/resume", nil)
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "not_resumable", problemType(t, body))

	status, body = doRequest(t, app, http.MethodPost, base+"/nodes/approve/resume",
		web.ResumeNodeRequest{Data: map[string]any{pause.ResumeKey: true}})
	require.Equal(t, http.StatusOK, status, string(body))

	resumed := decode[*models.Execution](t, body)
	assert.Equal(t, models.ExecutionStatusSuccess, resumed.Status)
	assert.Equal(t, "ord-42", resumed.Output["value"])

	status, body = doRequest(t, app, http.MethodPost, base+"/nodes/approve/resume",
		web.ResumeNodeRequest{Data: map[string]any{pause.ResumeKey: true}})
	require.Equal(t, http.StatusOK, status, string(body))
	assert.Equal(t, models.ExecutionStatusSuccess, decode[*models.Execution](t, body).Status)

	status, body = doRequest(t, app, http.MethodGet, base, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, resumed.Version, decode[*models.Execution](t, body).Version)

	status, body = doRequest(t, app, http.MethodGet, "/workflows/"+created.ID+"/executions", nil)
	require.Equal(t, http.StatusOK, status)
	assert.InDelta(t, 1, decode[map[string]any](t, body)["total_count"], 0)
}

func TestAPIHandlers_ResumeWithPaths(t *testing.T) {
	app := setupTestApp(t)

	created := createWorkflow(t, app, web.WorkflowRequest{
		ProjectID:     "project-1",
		Name:          "Triage",
		TriggerNodeID: "trigger",
		Nodes: []*models.WorkflowNode{
			{ID: "trigger", Type: models.NodeTypeTrigger, TriggerID: "manual"},
			{ID: "decide", Type: models.NodeTypeAction, ActionID: "manual_path_decision", Config: map[string]any{"message": "where to?"}},
			{ID: "refund", Type: models.NodeTypeAction, ActionID: "output", Config: map[string]any{"value": "refund"}},
			{ID: "reject", Type: models.NodeTypeAction, ActionID: "output", Config: map[string]any{"value": "reject"}},
		},
		Edges: []*models.Edge{
			{ID: "t-decide", Source: "trigger", Target: "decide", Type: models.EdgeTypeWorkflow},
			{ID: "to-refund", Source: "decide", Target: "refund", Type: models.EdgeTypeWorkflow},
			{ID: "to-reject", Source: "decide", Target: "reject", Type: models.EdgeTypeWorkflow},
		},
	})

	execution := startExecution(t, app, created.ID, nil)
	require.Equal(t, models.ExecutionStatusNeedsInput, execution.Status)

	path := "/executions/" + execution.ID + "/nodes/decide/paths"

	status, body := doRequest(t, app, http.MethodPost, path, map[string]any{})
	assert.Equal(t, http.StatusBadRequest, status, string(body))

	status, body = doRequest(t, app, http.MethodPost, path, web.PathDecisionRequest{PathsToTake: []string{"t-decide"}})
	assert.Equal(t, http.StatusBadRequest, status, string(body))

	status, body = doRequest(t, app, http.MethodPost, path, web.PathDecisionRequest{PathsToTake: []string{"to-reject"}})
	require.Equal(t, http.StatusOK, status, string(body))

	resumed := decode[*models.Execution](t, body)
	assert.Equal(t, models.ExecutionStatusSuccess, resumed.Status)

	nodes := make(map[string]models.NodeStatus)
	for _, node := range resumed.Nodes {
		nodes[node.ID] = node.ExecutionStatus
	}

	assert.Equal(t, models.NodeStatusSuccess, nodes["reject"])
	assert.Equal(t, models.NodeStatusPending, nodes["refund"])
}

func TestAPIHandlers_ResumeWebhook(t *testing.T) {
	app := setupTestApp(t)

	hooked := createWorkflow(t, app, web.WorkflowRequest{
		ProjectID:     "project-1",
		Name:          "Payment callback",
		TriggerNodeID: "trigger",
		Nodes: []*models.WorkflowNode{
			{ID: "trigger", Type: models.NodeTypeTrigger, TriggerID: "manual"},
			{ID: "hook", Type: models.NodeTypeAction, ActionID: "webhook_listener", Config: map[string]any{"description": "payment"}},
			{ID: "result", Type: models.NodeTypeAction, ActionID: "output", Config: map[string]any{"value": "{{ .nodes.hook.body.status }}"}},
		},
		Edges: []*models.Edge{
			{ID: "t-hook", Source: "trigger", Target: "hook", Type: models.EdgeTypeWorkflow},
			{ID: "hook-result", Source: "hook", Target: "result", Type: models.EdgeTypeWorkflow},
		},
	})

	execution := startExecution(t, app, hooked.ID, nil)
	require.Equal(t, models.ExecutionStatusNeedsInput, execution.Status)

	status, body := doRequest(t, app, http.MethodPost, "/webhooks/executions/"+execution.ID, "[1,2]")
	assert.Equal(t, http.StatusBadRequest, status, string(body))

	status, body = doRequest(t, app, http.MethodPost, "/webhooks/executions/"+execution.ID, map[string]any{"status": "paid"})
	require.Equal(t, http.StatusOK, status, string(body))

	resumed := decode[*models.Execution](t, body)
	assert.Equal(t, models.ExecutionStatusSuccess, resumed.Status)
	assert.Equal(t, "paid", resumed.Output["value"])

	status, body = doRequest(t, app, http.MethodPost, "/webhooks/executions/"+execution.ID, map[string]any{"status": "paid"})
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "not_resumable", problemType(t, body))

	status, body = doRequest(t, app, http.MethodPost, "/webhooks/executions/missing", nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "execution_not_found", problemType(t, body))
}

func TestAPIHandlers_StartExecutionUnknownWorkflow(t *testing.T) {
	app := setupTestApp(t)

	status, body := doRequest(t, app, http.MethodPost, "/workflows/missing/executions", nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "workflow_not_found", problemType(t, body))

	status, body = doRequest(t, app, http.MethodGet, "/workflows/missing/executions", nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "workflow_not_found", problemType(t, body))

	status, body = doRequest(t, app, http.MethodGet, "/executions/missing", nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "execution_not_found", problemType(t, body))
}

func TestAPIHandlers_ActionsAndHealth(t *testing.T) {
	app := setupTestApp(t)

	status, body := doRequest(t, app, http.MethodGet, "/actions", nil)
	require.Equal(t, http.StatusOK, status)

	resp := decode[struct {
		Actions []web.ActionResponse `json:"actions"`
	}](t, body)

	ids := make([]string, 0, len(resp.Actions))
	for _, action := range resp.Actions {
		ids = append(ids, action.ID)
	}

	assert.Equal(t, []string{"manual_path_decision", "output", "pause", "transform", "webhook_listener"}, ids)

	status, body = doRequest(t, app, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "healthy", decode[map[string]any](t, body)["status"])
}
