package services

import (
	"context"
	"fmt"
	"time"

	"github.com/atelierhq/easel/pkg/eventbus"
	"github.com/atelierhq/easel/pkg/events"
	"github.com/atelierhq/easel/pkg/models"
	"github.com/atelierhq/easel/pkg/persistence"
	"github.com/google/uuid"
)

// Execution starts workflow runs and serves the execution polling reads.
// Starting is asynchronous: the service records a pending execution and
// publishes a request; the runner picks it up off the bus.
type Execution struct {
	persistence persistence.Persistence
	publisher   eventbus.EventPublisher
}

func NewExecution(persist persistence.Persistence, publisher eventbus.EventPublisher) *Execution {
	return &Execution{
		persistence: persist,
		publisher:   publisher,
	}
}

// Start creates a pending execution for the workflow and enqueues it.
// The returned execution is the record pollers should follow.
func (s *Execution) Start(ctx context.Context, ownerID, workflowID string) (*models.Execution, error) {
	workflow, err := s.persistence.Workflows().ByID(ctx, workflowID)
	if err != nil {
		return nil, err
	}

	if workflow.OwnerID != ownerID {
		return nil, persistence.ErrWorkflowNotFound
	}

	execution := &models.Execution{
		ID:         "exec-" + uuid.New().String(),
		WorkflowID: workflow.ID,
		UserID:     ownerID,
		Status:     models.ExecutionStatusPending,
		Results:    make(map[string]*models.NodeResult),
		StartedAt:  time.Now().UTC(),
	}

	if err := s.persistence.Executions().Save(ctx, execution); err != nil {
		return nil, fmt.Errorf("failed to save execution: %w", err)
	}

	event := events.ExecutionRequested{
		BaseEvent:   events.NewBaseEvent(events.ExecutionRequestedEvent, workflow.ID),
		ExecutionID: execution.ID,
		UserID:      ownerID,
	}

	if err := s.publisher.Publish(ctx, workflow.ID, event); err != nil {
		return nil, fmt.Errorf("failed to enqueue execution: %w", err)
	}

	return execution, nil
}

// FetchByID retrieves one execution, scoped to the requesting user.
func (s *Execution) FetchByID(ctx context.Context, ownerID, id string) (*models.Execution, error) {
	execution, err := s.persistence.Executions().ByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if execution.UserID != ownerID {
		return nil, persistence.ErrExecutionNotFound
	}

	return execution, nil
}

// ListByUser retrieves the user's executions, most recent first.
func (s *Execution) ListByUser(ctx context.Context, ownerID string) ([]*models.Execution, error) {
	return s.persistence.Executions().ByUser(ctx, ownerID)
}
