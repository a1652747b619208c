package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/atelierhq/easel/pkg/models"
	"github.com/atelierhq/easel/pkg/persistence"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/xeipuuv/gojsonschema"
)

// SchemaSource exposes the configuration schemas of registered node
// types. Node types without a registered schema pass validation untouched
// so workflows can be drafted against types that ship later.
type SchemaSource interface {
	Schema(nodeType string) (map[string]any, bool)
}

type Workflow struct {
	persistence persistence.Persistence
	schemas     SchemaSource
	validator   *validator.Validate
}

func NewWorkflow(persist persistence.Persistence, schemas SchemaSource) *Workflow {
	return &Workflow{
		persistence: persist,
		schemas:     schemas,
		validator:   validator.New(),
	}
}

// HealthCheck checks the health of the persistence layer.
func (w *Workflow) HealthCheck(ctx context.Context) (string, bool) {
	if w.persistence == nil {
		return "Persistence layer not initialized", false
	}

	if err := w.persistence.HealthCheck(ctx); err != nil {
		return "Persistence layer is unhealthy: " + err.Error(), false
	}

	return "Persistence layer is healthy", true
}

// Create validates and stores a new workflow owned by ownerID.
func (w *Workflow) Create(ctx context.Context, ownerID string, workflow *models.Workflow) (*models.Workflow, error) {
	if workflow == nil {
		return nil, ErrWorkflowNil
	}

	now := time.Now().UTC()
	workflow.ID = "wf-" + uuid.New().String()
	workflow.OwnerID = ownerID
	workflow.CreatedAt = now
	workflow.UpdatedAt = now

	if err := w.validate(workflow); err != nil {
		return nil, err
	}

	if err := w.persistence.Workflows().Save(ctx, workflow); err != nil {
		return nil, fmt.Errorf("failed to save workflow: %w", err)
	}

	return workflow, nil
}

// Update replaces the definition of an existing workflow. Workflows with
// at least one execution are frozen so past execution records always
// reference the graph they ran against.
func (w *Workflow) Update(ctx context.Context, ownerID string, workflow *models.Workflow) (*models.Workflow, error) {
	if workflow == nil {
		return nil, ErrWorkflowNil
	}

	existing, err := w.FetchByID(ctx, ownerID, workflow.ID)
	if err != nil {
		return nil, err
	}

	if err := w.ensureUnlocked(ctx, existing.ID); err != nil {
		return nil, err
	}

	workflow.OwnerID = existing.OwnerID
	workflow.CreatedAt = existing.CreatedAt
	workflow.UpdatedAt = time.Now().UTC()

	if err := w.validate(workflow); err != nil {
		return nil, err
	}

	if err := w.persistence.Workflows().Save(ctx, workflow); err != nil {
		return nil, fmt.Errorf("failed to update workflow: %w", err)
	}

	return workflow, nil
}

// Delete removes a workflow. Like Update, it is rejected once the
// workflow has executions.
func (w *Workflow) Delete(ctx context.Context, ownerID, id string) error {
	existing, err := w.FetchByID(ctx, ownerID, id)
	if err != nil {
		return err
	}

	if err := w.ensureUnlocked(ctx, existing.ID); err != nil {
		return err
	}

	return w.persistence.Workflows().Delete(ctx, id)
}

// FetchByID retrieves one workflow, scoped to its owner. Workflows owned
// by other users are reported as not found rather than forbidden.
func (w *Workflow) FetchByID(ctx context.Context, ownerID, id string) (*models.Workflow, error) {
	workflow, err := w.persistence.Workflows().ByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if workflow.OwnerID != ownerID {
		return nil, persistence.ErrWorkflowNotFound
	}

	return workflow, nil
}

// ListByOwner retrieves all workflows owned by ownerID.
func (w *Workflow) ListByOwner(ctx context.Context, ownerID string) ([]*models.Workflow, error) {
	return w.persistence.Workflows().ByOwner(ctx, ownerID)
}

func (w *Workflow) ensureUnlocked(ctx context.Context, workflowID string) error {
	count, err := w.persistence.Executions().CountByWorkflow(ctx, workflowID)
	if err != nil {
		return fmt.Errorf("failed to count executions: %w", err)
	}

	if count > 0 {
		return ErrWorkflowLocked
	}

	return nil
}

func (w *Workflow) validate(workflow *models.Workflow) error {
	if err := w.validator.Struct(workflow); err != nil {
		return NewValidationError("validate", err.Error(), ErrInvalidRequest)
	}

	if len(workflow.Nodes) == 0 {
		return ErrNodesRequired
	}

	known := make(map[string]bool, len(workflow.Nodes))
	for _, node := range workflow.Nodes {
		if known[node.ID] {
			return NewValidationError("validate", "duplicate node id "+node.ID, ErrDuplicateNodeID)
		}

		known[node.ID] = true
	}

	for _, edge := range workflow.Edges {
		if !known[edge.Source] {
			return NewValidationError("validate", "edge "+edge.ID+" source "+edge.Source, ErrDanglingEdge)
		}

		if !known[edge.Target] {
			return NewValidationError("validate", "edge "+edge.ID+" target "+edge.Target, ErrDanglingEdge)
		}
	}

	// Unknown node types are accepted here and fail at execution time;
	// known types must match their registered schema.
	for _, node := range workflow.Nodes {
		if err := w.validateNodeConfig(node); err != nil {
			return err
		}
	}

	return nil
}

func (w *Workflow) validateNodeConfig(node *models.Node) error {
	if w.schemas == nil {
		return nil
	}

	schema, ok := w.schemas.Schema(node.Type)
	if !ok || schema == nil {
		return nil
	}

	config := node.Data
	if config == nil {
		config = map[string]any{}
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewGoLoader(schema),
		gojsonschema.NewGoLoader(config),
	)
	if err != nil {
		return fmt.Errorf("failed to validate node %s config: %w", node.ID, err)
	}

	if !result.Valid() {
		details := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			details = append(details, desc.String())
		}

		return NewValidationError(
			"validateNodeConfig",
			fmt.Sprintf("node %s (%s): %s", node.ID, node.Type, strings.Join(details, "; ")),
			ErrInvalidNodeConfig,
		)
	}

	return nil
}
