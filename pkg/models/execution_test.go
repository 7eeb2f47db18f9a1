package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExecutionStatus(t *testing.T) {
	assert.True(t, ExecutionStatusSuccess.IsTerminal())
	assert.True(t, ExecutionStatusFailed.IsTerminal())
	assert.False(t, ExecutionStatusScheduled.IsTerminal())

	assert.True(t, ExecutionStatusNeedsInput.IsPaused())
	assert.True(t, ExecutionStatusScheduled.IsPaused())
	assert.False(t, ExecutionStatusRunning.IsPaused())

	assert.True(t, NodeStatusScheduled.IsPaused())
	assert.False(t, NodeStatusRunning.IsPaused())
}

func TestExecution_NodeLookups(t *testing.T) {
	execution := &Execution{
		Nodes: []*ExecutionNode{
			{ID: "a", ExecutionStatus: NodeStatusSuccess, Output: map[string]any{"v": 1}},
			{ID: "b", ExecutionStatus: NodeStatusNeedsInput},
			{ID: "c", ExecutionStatus: NodeStatusScheduled},
			{ID: "d", ExecutionStatus: NodeStatusPending},
		},
	}

	node, ok := execution.Node("b")
	require.True(t, ok)
	assert.Equal(t, NodeStatusNeedsInput, node.ExecutionStatus)

	_, ok = execution.Node("missing")
	assert.False(t, ok)

	paused := execution.NodesByStatus(NodeStatusNeedsInput, NodeStatusScheduled)
	require.Len(t, paused, 2)
	assert.Equal(t, "b", paused[0].ID)
	assert.Equal(t, "c", paused[1].ID)

	assert.Equal(t, map[string]any{"a": map[string]any{"v": 1}}, execution.Outputs())
}

func TestExecution_CloneDoesNotShareNodes(t *testing.T) {
	execution := &Execution{
		ID:    "exec-1",
		Nodes: []*ExecutionNode{{ID: "a", ExecutionStatus: NodeStatusPending}},
	}

	clone := execution.Clone()
	clone.Nodes[0].ExecutionStatus = NodeStatusRunning
	clone.Status = ExecutionStatusFailed

	assert.Equal(t, NodeStatusPending, execution.Nodes[0].ExecutionStatus)
	assert.Empty(t, execution.Status)
	assert.Equal(t, "exec-1", clone.ID)
}

func TestExecutionNode_PathsToTake(t *testing.T) {
	tests := []struct {
		name       string
		output     map[string]any
		want       []string
		restricted bool
	}{
		{name: "no output", output: nil, want: nil, restricted: false},
		{name: "field absent", output: map[string]any{"x": 1}, want: nil, restricted: false},
		{name: "null field", output: map[string]any{PathsToTakeKey: nil}, want: nil, restricted: false},
		{name: "string slice", output: map[string]any{PathsToTakeKey: []string{"e1"}}, want: []string{"e1"}, restricted: true},
		{name: "decoded json list", output: map[string]any{PathsToTakeKey: []any{"e1", 7, "e2"}}, want: []string{"e1", "e2"}, restricted: true},
		{name: "single string", output: map[string]any{PathsToTakeKey: "e3"}, want: []string{"e3"}, restricted: true},
		{name: "unusable value", output: map[string]any{PathsToTakeKey: 42}, want: []string{}, restricted: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			paths, restricted := (&ExecutionNode{Output: tt.output}).PathsToTake()

			assert.Equal(t, tt.restricted, restricted)
			assert.Equal(t, tt.want, paths)
		})
	}
}

func TestWorkflow_FindNode(t *testing.T) {
	workflow := &Workflow{
		Nodes: []*WorkflowNode{
			{ID: "trigger", Type: NodeTypeTrigger},
			{ID: "todo", Type: NodeTypePlaceholder},
		},
	}

	node, ok := workflow.FindNode("todo")
	require.True(t, ok)
	assert.True(t, node.IsPlaceholder())
	assert.False(t, node.IsTrigger())

	_, ok = workflow.FindNode("missing")
	assert.False(t, ok)

	assert.True(t, (&Edge{}).IsWorkflow())
	assert.False(t, (&Edge{Type: EdgeTypePlaceholder}).IsWorkflow())
}
