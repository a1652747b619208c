package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/atelierhq/easel/pkg/models"
	"github.com/atelierhq/easel/pkg/persistence"
)

type workflowRepository struct {
	db *sql.DB
}

func (r *workflowRepository) Save(ctx context.Context, workflow *models.Workflow) error {
	document, err := json.Marshal(workflow)
	if err != nil {
		return persistence.NewStoreError("Save", workflow.ID, err)
	}

	query := `
		INSERT INTO workflows (id, owner_id, document, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (id) DO UPDATE
			SET owner_id = EXCLUDED.owner_id
			  , document = EXCLUDED.document
			  , updated_at = NOW()
	`

	if _, err := r.db.ExecContext(ctx, query, workflow.ID, workflow.OwnerID, document); err != nil {
		return persistence.NewStoreError("Save", workflow.ID, err)
	}

	return nil
}

func (r *workflowRepository) ByID(ctx context.Context, id string) (*models.Workflow, error) {
	var document []byte

	err := r.db.QueryRowContext(ctx, "SELECT document FROM workflows WHERE id = $1", id).Scan(&document)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.ErrWorkflowNotFound
		}

		return nil, persistence.NewStoreError("ByID", id, err)
	}

	var workflow models.Workflow
	if err := json.Unmarshal(document, &workflow); err != nil {
		return nil, persistence.NewStoreError("ByID", id, err)
	}

	return &workflow, nil
}

func (r *workflowRepository) ByOwner(ctx context.Context, ownerID string) ([]*models.Workflow, error) {
	query := `
		SELECT document
		FROM workflows
		WHERE owner_id = $1
		ORDER BY updated_at DESC
	`

	rows, err := r.db.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, persistence.NewStoreError("ByOwner", ownerID, err)
	}
	defer rows.Close()

	workflows := make([]*models.Workflow, 0)

	for rows.Next() {
		var document []byte
		if err := rows.Scan(&document); err != nil {
			return nil, persistence.NewStoreError("ByOwner", ownerID, err)
		}

		var workflow models.Workflow
		if err := json.Unmarshal(document, &workflow); err != nil {
			return nil, persistence.NewStoreError("ByOwner", ownerID, err)
		}

		workflows = append(workflows, &workflow)
	}

	if err := rows.Err(); err != nil {
		return nil, persistence.NewStoreError("ByOwner", ownerID, err)
	}

	return workflows, nil
}

func (r *workflowRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM workflows WHERE id = $1", id)
	if err != nil {
		return persistence.NewStoreError("Delete", id, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return persistence.NewStoreError("Delete", id, err)
	}

	if affected == 0 {
		return persistence.ErrWorkflowNotFound
	}

	return nil
}
