// Package testutil provides test data builders shared across package
// tests.
package testutil

import (
	"time"

	"github.com/atelierhq/easel/pkg/models"
	"github.com/google/uuid"
)

// CreateTestWorkflow builds a minimal valid workflow (start -> imagegen
// -> end) with default values that can be overridden.
func CreateTestWorkflow(overrides ...func(*models.Workflow)) *models.Workflow {
	now := time.Now().UTC()

	workflow := &models.Workflow{
		ID:      "wf-" + uuid.New().String(),
		Name:    "Test Workflow",
		OwnerID: "user-test",
		Nodes: []*models.Node{
			{ID: "start-1", Type: "start"},
			{ID: "img-1", Type: "imagegen", Data: map[string]any{"prompt": "a test image"}},
			{ID: "end-1", Type: "end"},
		},
		Edges: []*models.Edge{
			{ID: "e1", Source: "start-1", Target: "img-1"},
			{ID: "e2", Source: "img-1", Target: "end-1"},
		},
		CreatedAt: now,
		UpdatedAt: now,
	}

	for _, override := range overrides {
		override(workflow)
	}

	return workflow
}

// WithOwner sets the workflow owner.
func WithOwner(ownerID string) func(*models.Workflow) {
	return func(w *models.Workflow) {
		w.OwnerID = ownerID
	}
}

// WithName sets the workflow name.
func WithName(name string) func(*models.Workflow) {
	return func(w *models.Workflow) {
		w.Name = name
	}
}

// WithGraph replaces the node and edge sets.
func WithGraph(nodes []*models.Node, edges []*models.Edge) func(*models.Workflow) {
	return func(w *models.Workflow) {
		w.Nodes = nodes
		w.Edges = edges
	}
}

// CreateTestExecution builds a pending execution for the given workflow
// with default values that can be overridden.
func CreateTestExecution(workflowID string, overrides ...func(*models.Execution)) *models.Execution {
	execution := &models.Execution{
		ID:         "exec-" + uuid.New().String(),
		WorkflowID: workflowID,
		UserID:     "user-test",
		Status:     models.ExecutionStatusPending,
		Results:    make(map[string]*models.NodeResult),
		StartedAt:  time.Now().UTC(),
	}

	for _, override := range overrides {
		override(execution)
	}

	return execution
}

// WithUser sets the execution's requesting user.
func WithUser(userID string) func(*models.Execution) {
	return func(e *models.Execution) {
		e.UserID = userID
	}
}

// WithStatus sets the execution status.
func WithStatus(status models.ExecutionStatus) func(*models.Execution) {
	return func(e *models.Execution) {
		e.Status = status
	}
}
