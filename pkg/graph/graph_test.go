package graph

import (
	"testing"

	"github.com/dukex/flowrun/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testWorkflow() *models.Workflow {
	return &models.Workflow{
		ID:            "wf-1",
		ProjectID:     "project-1",
		Name:          "branching",
		TriggerNodeID: "trigger",
		Nodes: []*models.WorkflowNode{
			{ID: "trigger", Type: models.NodeTypeTrigger, TriggerID: "manual"},
			{ID: "paths", Type: models.NodeTypeAction, ActionID: "conditional_paths"},
			{ID: "a", Type: models.NodeTypeAction, ActionID: "log"},
			{ID: "b", Type: models.NodeTypeAction, ActionID: "log"},
			{ID: "end", Type: models.NodeTypeAction, ActionID: "output"},
			{ID: "ph", Type: models.NodeTypePlaceholder},
		},
		Edges: []*models.Edge{
			{ID: "e-trigger", Source: "trigger", Target: "paths", Type: models.EdgeTypeWorkflow},
			{ID: "e-a", Source: "paths", Target: "a", Type: models.EdgeTypeWorkflow},
			{ID: "e-b", Source: "paths", Target: "b"},
			{ID: "e-a-end", Source: "a", Target: "end", Type: models.EdgeTypeWorkflow},
			{ID: "e-ph", Source: "b", Target: "ph", Type: models.EdgeTypePlaceholder},
		},
	}
}

func TestNew_IndexesWorkflowEdgesOnly(t *testing.T) {
	g, err := New(testWorkflow())
	require.NoError(t, err)

	assert.Equal(t, "trigger", g.TriggerNode().ID)

	out := g.OutgoingEdges("paths")
	require.Len(t, out, 2)
	assert.Equal(t, "e-a", out[0].ID)
	assert.Equal(t, "e-b", out[1].ID)

	assert.Empty(t, g.OutgoingEdges("b"), "placeholder edges must be ignored")
	assert.Empty(t, g.IncomingEdges("ph"))

	in := g.IncomingEdges("end")
	require.Len(t, in, 1)
	assert.Equal(t, "a", in[0].Source)

	node, ok := g.Node("a")
	require.True(t, ok)
	assert.Equal(t, "log", node.ActionID)

	_, ok = g.Node("missing")
	assert.False(t, ok)
}

func TestNew_TopologicalOrder(t *testing.T) {
	g, err := New(testWorkflow())
	require.NoError(t, err)

	order := g.TopologicalOrder()
	position := make(map[string]int, len(order))

	for i, id := range order {
		position[id] = i
	}

	assert.Len(t, order, 6)

	for _, edge := range testWorkflow().Edges {
		if !edge.IsWorkflow() {
			continue
		}

		assert.Less(t, position[edge.Source], position[edge.Target], "edge %s", edge.ID)
	}
}

func TestNew_ValidationErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(w *models.Workflow)
		err    error
	}{
		{
			name: "duplicate node",
			mutate: func(w *models.Workflow) {
				w.Nodes = append(w.Nodes, &models.WorkflowNode{ID: "a", Type: models.NodeTypeAction, ActionID: "log"})
			},
			err: ErrDuplicateNode,
		},
		{
			name: "duplicate edge",
			mutate: func(w *models.Workflow) {
				w.Edges = append(w.Edges, &models.Edge{ID: "e-a", Source: "trigger", Target: "a"})
			},
			err: ErrDuplicateEdge,
		},
		{
			name:   "missing trigger",
			mutate: func(w *models.Workflow) { w.TriggerNodeID = "nope" },
			err:    ErrTriggerNotFound,
		},
		{
			name:   "trigger of wrong type",
			mutate: func(w *models.Workflow) { w.TriggerNodeID = "a" },
			err:    ErrTriggerNotTrigger,
		},
		{
			name: "second trigger",
			mutate: func(w *models.Workflow) {
				w.Nodes = append(w.Nodes, &models.WorkflowNode{ID: "trigger-2", Type: models.NodeTypeTrigger, TriggerID: "manual"})
				w.Edges = append(w.Edges, &models.Edge{ID: "e-t2", Source: "trigger-2", Target: "a"})
			},
			err: ErrMultipleTriggers,
		},
		{
			name: "unknown target",
			mutate: func(w *models.Workflow) {
				w.Edges = append(w.Edges, &models.Edge{ID: "e-x", Source: "a", Target: "x"})
			},
			err: ErrUnknownNode,
		},
		{
			name: "edge into trigger",
			mutate: func(w *models.Workflow) {
				w.Edges = append(w.Edges, &models.Edge{ID: "e-back", Source: "end", Target: "trigger"})
			},
			err: ErrTriggerHasIncoming,
		},
		{
			name: "cycle",
			mutate: func(w *models.Workflow) {
				w.Edges = append(w.Edges, &models.Edge{ID: "e-loop", Source: "end", Target: "paths"})
			},
			err: ErrCycle,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := testWorkflow()
			tt.mutate(w)

			_, err := New(w)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.err)
		})
	}
}

func TestNew_NilWorkflow(t *testing.T) {
	_, err := New(nil)
	require.Error(t, err)
}
