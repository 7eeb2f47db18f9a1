package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dukex/flowrun/pkg/models"
	"github.com/dukex/flowrun/pkg/persistence"
	"github.com/lib/pq"
)

// ExecutionRepository stores executions with an optimistic version column.
type ExecutionRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewExecutionRepository creates a new execution repository.
func NewExecutionRepository(db *sql.DB, logger *slog.Logger) *ExecutionRepository {
	return &ExecutionRepository{db: db, logger: logger}
}

const selectExecution = `
	SELECT
		id
	  , workflow_id
	  , project_id
	  , status
	  , continue_execution_at
	  , output
	  , trigger_data
	  , nodes
	  , error_message
	  , version
	  , created_at
	  , updated_at
	  , completed_at
	FROM executions
`

// uniqueViolation is the PostgreSQL error code for duplicate keys.
const uniqueViolation = "23505"

func (r *ExecutionRepository) Create(ctx context.Context, execution *models.Execution) error {
	now := time.Now().UTC()
	if execution.CreatedAt.IsZero() {
		execution.CreatedAt = now
	}

	execution.UpdatedAt = now

	docs, err := marshalExecution(execution)
	if err != nil {
		return persistence.NewExecutionError("Create", execution.ID, err)
	}

	query := `
		INSERT INTO executions (id, workflow_id, project_id, status, continue_execution_at,
output, trigger_data, nodes, error_message, version, created_at, updated_at, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, 1, $10, $11, $12)
	`

	_, err = r.db.ExecContext(ctx, query,
		execution.ID,
		execution.WorkflowID,
		execution.ProjectID,
		execution.Status,
		execution.ContinueExecutionAt,
		docs.output,
		docs.triggerData,
		docs.nodes,
		execution.ErrorMessage,
		execution.CreatedAt,
		execution.UpdatedAt,
		execution.CompletedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return persistence.NewExecutionError("Create", execution.ID, persistence.ErrExecutionAlreadyExists)
		}

		return persistence.NewExecutionError("Create", execution.ID, err)
	}

	execution.Version = 1

	return nil
}

func (r *ExecutionRepository) GetByID(ctx context.Context, id string) (*models.Execution, error) {
	row := r.db.QueryRowContext(ctx, selectExecution+` WHERE id = $1`, id)

	execution, err := scanExecution(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, persistence.NewExecutionError("GetByID", id, persistence.ErrExecutionNotFound)
	}

	if err != nil {
		return nil, persistence.NewExecutionError("GetByID", id, err)
	}

	return execution, nil
}

// Update is a single conditional UPDATE; zero affected rows means either the
// row is gone or another writer bumped the version.
func (r *ExecutionRepository) Update(ctx context.Context, execution *models.Execution) error {
	docs, err := marshalExecution(execution)
	if err != nil {
		return persistence.NewExecutionError("Update", execution.ID, err)
	}

	updatedAt := time.Now().UTC()

	query := `
		UPDATE executions SET
			status = $1,
			continue_execution_at = $2,
			output = $3,
			trigger_data = $4,
			nodes = $5,
			error_message = $6,
			completed_at = $7,
			updated_at = $8,
			version = version + 1
		WHERE id = $9 AND version = $10
	`

	result, err := r.db.ExecContext(ctx, query,
		execution.Status,
		execution.ContinueExecutionAt,
		docs.output,
		docs.triggerData,
		docs.nodes,
		execution.ErrorMessage,
		execution.CompletedAt,
		updatedAt,
		execution.ID,
		execution.Version,
	)
	if err != nil {
		return persistence.NewExecutionError("Update", execution.ID, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return persistence.NewExecutionError("Update", execution.ID, err)
	}

	if affected == 0 {
		var exists bool

		err = r.db.QueryRowContext(ctx, "SELECT EXISTS (SELECT 1 FROM executions WHERE id = $1)", execution.ID).Scan(&exists)
		if err != nil {
			return persistence.NewExecutionError("Update", execution.ID, err)
		}

		if !exists {
			return persistence.NewExecutionError("Update", execution.ID, persistence.ErrExecutionNotFound)
		}

		return persistence.NewVersionConflictError(execution.ID, execution.Version)
	}

	execution.Version++
	execution.UpdatedAt = updatedAt

	return nil
}

func (r *ExecutionRepository) ListByWorkflow(ctx context.Context, workflowID string) ([]*models.Execution, error) {
	return r.query(ctx, selectExecution+` WHERE workflow_id = $1 ORDER BY created_at DESC`, workflowID)
}

func (r *ExecutionRepository) ListDueScheduled(ctx context.Context, now time.Time, limit int) ([]*models.Execution, error) {
	if limit <= 0 {
		limit = 100
	}

	query := selectExecution + `
		WHERE status = $1 AND continue_execution_at <= $2
		ORDER BY continue_execution_at ASC
		LIMIT $3
	`

	return r.query(ctx, query, models.ExecutionStatusScheduled, now.UTC(), limit)
}

func (r *ExecutionRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM executions WHERE id = $1", id)
	if err != nil {
		return persistence.NewExecutionError("Delete", id, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return persistence.NewExecutionError("Delete", id, err)
	}

	if affected == 0 {
		return persistence.NewExecutionError("Delete", id, persistence.ErrExecutionNotFound)
	}

	return nil
}

func (r *ExecutionRepository) query(ctx context.Context, query string, args ...any) ([]*models.Execution, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query executions: %w", err)
	}

	defer closeRows(ctx, r.logger, rows)

	executions := make([]*models.Execution, 0)

	for rows.Next() {
		execution, err := scanExecution(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan execution: %w", err)
		}

		executions = append(executions, execution)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating executions: %w", err)
	}

	return executions, nil
}

type executionDocs struct {
	output      []byte
	triggerData []byte
	nodes       []byte
}

func marshalExecution(execution *models.Execution) (executionDocs, error) {
	var (
		docs executionDocs
		err  error
	)

	docs.output, err = json.Marshal(execution.Output)
	if err != nil {
		return docs, fmt.Errorf("failed to marshal output: %w", err)
	}

	docs.triggerData, err = json.Marshal(execution.TriggerData)
	if err != nil {
		return docs, fmt.Errorf("failed to marshal trigger data: %w", err)
	}

	docs.nodes, err = json.Marshal(execution.Nodes)
	if err != nil {
		return docs, fmt.Errorf("failed to marshal nodes: %w", err)
	}

	return docs, nil
}

func scanExecution(row scanner) (*models.Execution, error) {
	var (
		execution                              models.Execution
		continueAt, completedAt                sql.NullTime
		outputJSON, triggerDataJSON, nodesJSON []byte
	)

	err := row.Scan(
		&execution.ID,
		&execution.WorkflowID,
		&execution.ProjectID,
		&execution.Status,
		&continueAt,
		&outputJSON,
		&triggerDataJSON,
		&nodesJSON,
		&execution.ErrorMessage,
		&execution.Version,
		&execution.CreatedAt,
		&execution.UpdatedAt,
		&completedAt,
	)
	if err != nil {
		return nil, err
	}

	if continueAt.Valid {
		t := continueAt.Time.UTC()
		execution.ContinueExecutionAt = &t
	}

	if completedAt.Valid {
		t := completedAt.Time.UTC()
		execution.CompletedAt = &t
	}

	for target, raw := range map[*map[string]any][]byte{
		&execution.Output:      outputJSON,
		&execution.TriggerData: triggerDataJSON,
	} {
		if len(raw) == 0 {
			continue
		}

		err = json.Unmarshal(raw, target)
		if err != nil {
			return nil, fmt.Errorf("failed to unmarshal execution document: %w", err)
		}
	}

	err = json.Unmarshal(nodesJSON, &execution.Nodes)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal nodes: %w", err)
	}

	return &execution, nil
}
