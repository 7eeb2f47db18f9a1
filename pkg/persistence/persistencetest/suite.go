// Package persistencetest holds behaviour tests shared by every persistence backend.
package persistencetest

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/dukex/flowrun/pkg/models"
	"github.com/dukex/flowrun/pkg/persistence"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// NewExecution returns a minimal running execution.
func NewExecution(id, workflowID string) *models.Execution {
	return &models.Execution{
		ID:          id,
		WorkflowID:  workflowID,
		ProjectID:   "project-1",
		Status:      models.ExecutionStatusRunning,
		TriggerData: map[string]any{"source": "test"},
		Nodes: []*models.ExecutionNode{
			{ID: "trigger", ExecutionStatus: models.NodeStatusSuccess, Output: map[string]any{"source": "test"}},
			{ID: "next", ExecutionStatus: models.NodeStatusPending},
		},
	}
}

// NewWorkflow returns a two node workflow.
func NewWorkflow(id, projectID string) *models.Workflow {
	return &models.Workflow{
		ID:            id,
		ProjectID:     projectID,
		Name:          "workflow " + id,
		TriggerNodeID: "trigger",
		Nodes: []*models.WorkflowNode{
			{ID: "trigger", Type: models.NodeTypeTrigger, TriggerID: "manual"},
			{ID: "next", Type: models.NodeTypeAction, ActionID: "log", Config: map[string]any{"message": "hi"}},
		},
		Edges: []*models.Edge{
			{ID: "e1", Source: "trigger", Target: "next", Type: models.EdgeTypeWorkflow},
		},
	}
}

// RunWorkflowRepository exercises a WorkflowRepository.
func RunWorkflowRepository(t *testing.T, repo persistence.WorkflowRepository) {
	t.Helper()

	ctx := context.Background()

	t.Run("save and get", func(t *testing.T) {
		workflow := NewWorkflow("wf-save", "p-1")
		require.NoError(t, repo.Save(ctx, workflow))
		assert.False(t, workflow.CreatedAt.IsZero())

		loaded, err := repo.GetByID(ctx, "wf-save")
		require.NoError(t, err)
		assert.Equal(t, "workflow wf-save", loaded.Name)
		require.Len(t, loaded.Nodes, 2)
		assert.Equal(t, "hi", loaded.Nodes[1].Config["message"])
		require.Len(t, loaded.Edges, 1)
	})

	t.Run("list by project", func(t *testing.T) {
		require.NoError(t, repo.Save(ctx, NewWorkflow("wf-a", "p-list")))
		require.NoError(t, repo.Save(ctx, NewWorkflow("wf-b", "p-list")))
		require.NoError(t, repo.Save(ctx, NewWorkflow("wf-c", "p-other")))

		workflows, err := repo.List(ctx, "p-list")
		require.NoError(t, err)
		assert.Len(t, workflows, 2)
	})

	t.Run("missing workflow", func(t *testing.T) {
		_, err := repo.GetByID(ctx, "nope")
		require.Error(t, err)
		assert.True(t, persistence.IsWorkflowNotFound(err))
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, repo.Save(ctx, NewWorkflow("wf-del", "p-1")))
		require.NoError(t, repo.Delete(ctx, "wf-del"))

		_, err := repo.GetByID(ctx, "wf-del")
		assert.True(t, persistence.IsWorkflowNotFound(err))

		err = repo.Delete(ctx, "wf-del")
		assert.True(t, persistence.IsWorkflowNotFound(err))
	})
}

// RunExecutionRepository exercises an ExecutionRepository, including the version check.
func RunExecutionRepository(t *testing.T, repo persistence.ExecutionRepository) {
	t.Helper()

	ctx := context.Background()

	t.Run("create and get", func(t *testing.T) {
		execution := NewExecution("exec-create", "wf-1")
		require.NoError(t, repo.Create(ctx, execution))
		assert.Equal(t, int64(1), execution.Version)

		loaded, err := repo.GetByID(ctx, "exec-create")
		require.NoError(t, err)
		assert.Equal(t, int64(1), loaded.Version)
		assert.Equal(t, models.ExecutionStatusRunning, loaded.Status)
		require.Len(t, loaded.Nodes, 2)
		assert.Equal(t, "test", loaded.Nodes[0].Output["source"])

		err = repo.Create(ctx, NewExecution("exec-create", "wf-1"))
		assert.ErrorIs(t, err, persistence.ErrExecutionAlreadyExists)
	})

	t.Run("missing execution", func(t *testing.T) {
		_, err := repo.GetByID(ctx, "missing")
		assert.True(t, persistence.IsExecutionNotFound(err))

		err = repo.Update(ctx, NewExecution("missing", "wf-1"))
		assert.True(t, persistence.IsExecutionNotFound(err))
	})

	t.Run("update bumps version and rejects stale writes", func(t *testing.T) {
		require.NoError(t, repo.Create(ctx, NewExecution("exec-cas", "wf-1")))

		first, err := repo.GetByID(ctx, "exec-cas")
		require.NoError(t, err)
		second, err := repo.GetByID(ctx, "exec-cas")
		require.NoError(t, err)

		first.Nodes[1].ExecutionStatus = models.NodeStatusRunning
		require.NoError(t, repo.Update(ctx, first))
		assert.Equal(t, int64(2), first.Version)

		second.Status = models.ExecutionStatusFailed
		err = repo.Update(ctx, second)
		require.Error(t, err)
		assert.True(t, persistence.IsVersionConflict(err))

		loaded, err := repo.GetByID(ctx, "exec-cas")
		require.NoError(t, err)
		assert.Equal(t, int64(2), loaded.Version)
		assert.Equal(t, models.ExecutionStatusRunning, loaded.Status)
		assert.Equal(t, models.NodeStatusRunning, loaded.Nodes[1].ExecutionStatus)
	})

	t.Run("concurrent updates apply once per version", func(t *testing.T) {
		require.NoError(t, repo.Create(ctx, NewExecution("exec-race", "wf-1")))

		const writers = 8

		var (
			wg        sync.WaitGroup
			mu        sync.Mutex
			succeeded int
		)

		for range writers {
			wg.Add(1)

			go func() {
				defer wg.Done()

				execution, err := repo.GetByID(ctx, "exec-race")
				if err != nil {
					return
				}

				if repo.Update(ctx, execution) == nil {
					mu.Lock()
					succeeded++
					mu.Unlock()
				}
			}()
		}

		wg.Wait()

		loaded, err := repo.GetByID(ctx, "exec-race")
		require.NoError(t, err)
		assert.GreaterOrEqual(t, succeeded, 1)
		assert.Equal(t, int64(1+succeeded), loaded.Version)
	})

	t.Run("due scheduled executions", func(t *testing.T) {
		now := time.Date(2030, 1, 1, 12, 0, 0, 0, time.UTC)

		for id, offset := range map[string]time.Duration{
			"exec-due-late":   -time.Minute,
			"exec-due-early":  -time.Hour,
			"exec-due-future": time.Hour,
		} {
			execution := NewExecution(id, "wf-due")
			require.NoError(t, repo.Create(ctx, execution))

			at := now.Add(offset)
			execution.Status = models.ExecutionStatusScheduled
			execution.ContinueExecutionAt = &at
			require.NoError(t, repo.Update(ctx, execution))
		}

		due, err := repo.ListDueScheduled(ctx, now, 10)
		require.NoError(t, err)
		require.Len(t, due, 2)
		assert.Equal(t, "exec-due-early", due[0].ID)
		assert.Equal(t, "exec-due-late", due[1].ID)

		due, err = repo.ListDueScheduled(ctx, now, 1)
		require.NoError(t, err)
		require.Len(t, due, 1)

		woken, err := persistence.UpdateExecution(ctx, repo, "exec-due-early", 0, func(e *models.Execution) error {
			e.Status = models.ExecutionStatusRunning
			e.ContinueExecutionAt = nil

			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, models.ExecutionStatusRunning, woken.Status)

		due, err = repo.ListDueScheduled(ctx, now, 10)
		require.NoError(t, err)
		require.Len(t, due, 1)
		assert.Equal(t, "exec-due-late", due[0].ID)

		byWorkflow, err := repo.ListByWorkflow(ctx, "wf-due")
		require.NoError(t, err)
		assert.Len(t, byWorkflow, 3)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, repo.Create(ctx, NewExecution("exec-del", "wf-1")))
		require.NoError(t, repo.Delete(ctx, "exec-del"))

		_, err := repo.GetByID(ctx, "exec-del")
		assert.True(t, persistence.IsExecutionNotFound(err))
	})
}
