package persistence_test

import (
	"errors"
	"testing"

	"github.com/dukex/flowrun/pkg/persistence"
	"github.com/stretchr/testify/assert"
)

func TestStandardizedErrors(t *testing.T) {
	t.Parallel()

	t.Run("workflow error unwraps and carries context", func(t *testing.T) {
		err := persistence.NewWorkflowError("GetByID", "workflow-123", persistence.ErrWorkflowNotFound)

		assert.True(t, persistence.IsWorkflowNotFound(err))
		assert.True(t, errors.Is(err, persistence.ErrWorkflowNotFound))
		assert.Contains(t, err.Error(), "GetByID")
		assert.Contains(t, err.Error(), "workflow-123")
	})

	t.Run("execution error unwraps", func(t *testing.T) {
		err := persistence.NewExecutionError("GetByID", "exec-1", persistence.ErrExecutionNotFound)

		assert.True(t, persistence.IsExecutionNotFound(err))
		assert.False(t, persistence.IsVersionConflict(err))
		assert.Contains(t, err.Error(), "exec-1")
	})

	t.Run("version conflict names the version", func(t *testing.T) {
		err := persistence.NewVersionConflictError("exec-1", 4)

		assert.True(t, persistence.IsVersionConflict(err))
		assert.Contains(t, err.Error(), "at version 4")
	})
}
