package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/atelierhq/easel/pkg/models"
	"github.com/atelierhq/easel/pkg/persistence"
)

type executionRepository struct {
	db *sql.DB
}

func (r *executionRepository) Save(ctx context.Context, execution *models.Execution) error {
	document, err := json.Marshal(execution)
	if err != nil {
		return persistence.NewStoreError("Save", execution.ID, err)
	}

	query := `
		INSERT INTO executions (id, workflow_id, user_id, started_at, document, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		ON CONFLICT (id) DO UPDATE
			SET document = EXCLUDED.document
			  , updated_at = NOW()
	`

	_, err = r.db.ExecContext(ctx, query,
		execution.ID,
		execution.WorkflowID,
		execution.UserID,
		execution.StartedAt,
		document,
	)
	if err != nil {
		return persistence.NewStoreError("Save", execution.ID, err)
	}

	return nil
}

func (r *executionRepository) ByID(ctx context.Context, id string) (*models.Execution, error) {
	var document []byte

	err := r.db.QueryRowContext(ctx, "SELECT document FROM executions WHERE id = $1", id).Scan(&document)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.ErrExecutionNotFound
		}

		return nil, persistence.NewStoreError("ByID", id, err)
	}

	var execution models.Execution
	if err := json.Unmarshal(document, &execution); err != nil {
		return nil, persistence.NewStoreError("ByID", id, err)
	}

	return &execution, nil
}

func (r *executionRepository) ByUser(ctx context.Context, userID string) ([]*models.Execution, error) {
	query := `
		SELECT document
		FROM executions
		WHERE user_id = $1
		ORDER BY started_at DESC
	`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, persistence.NewStoreError("ByUser", userID, err)
	}
	defer rows.Close()

	executions := make([]*models.Execution, 0)

	for rows.Next() {
		var document []byte
		if err := rows.Scan(&document); err != nil {
			return nil, persistence.NewStoreError("ByUser", userID, err)
		}

		var execution models.Execution
		if err := json.Unmarshal(document, &execution); err != nil {
			return nil, persistence.NewStoreError("ByUser", userID, err)
		}

		executions = append(executions, &execution)
	}

	if err := rows.Err(); err != nil {
		return nil, persistence.NewStoreError("ByUser", userID, err)
	}

	return executions, nil
}

func (r *executionRepository) CountByWorkflow(ctx context.Context, workflowID string) (int, error) {
	var count int

	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM executions WHERE workflow_id = $1", workflowID).Scan(&count)
	if err != nil {
		return 0, persistence.NewStoreError("CountByWorkflow", workflowID, err)
	}

	return count, nil
}
