package persistence

import (
	"context"
	"fmt"

	"github.com/dukex/flowrun/pkg/models"
)

// DefaultUpdateAttempts bounds UpdateExecution retries.
const DefaultUpdateAttempts = 5

// UpdateExecution reads the execution, applies mutate and writes it back,
// starting over from a fresh read when another writer got there first.
// An error from mutate aborts without writing.
func UpdateExecution(
	ctx context.Context,
	repo ExecutionRepository,
	id string,
	attempts int,
	mutate func(execution *models.Execution) error,
) (*models.Execution, error) {
	if attempts <= 0 {
		attempts = DefaultUpdateAttempts
	}

	var lastErr error

	for range attempts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		execution, err := repo.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}

		err = mutate(execution)
		if err != nil {
			return nil, err
		}

		err = repo.Update(ctx, execution)
		if err == nil {
			return execution, nil
		}

		if !IsVersionConflict(err) {
			return nil, err
		}

		lastErr = err
	}

	return nil, fmt.Errorf("gave up after %d attempts: %w", attempts, lastErr)
}
