package workflow

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/atelierhq/easel/pkg/eventbus"
	"github.com/atelierhq/easel/pkg/events"
	"github.com/atelierhq/easel/pkg/persistence"
)

// Runner subscribes to execution requests and drives each one in its own
// goroutine, so API handlers return immediately after enqueueing.
type Runner struct {
	logger      *slog.Logger
	executor    *Executor
	persistence persistence.Persistence
	bus         eventbus.EventBus
}

func NewRunner(
	logger *slog.Logger,
	executor *Executor,
	persist persistence.Persistence,
	bus eventbus.EventBus,
) *Runner {
	return &Runner{
		logger:      logger.With("module", "workflow_runner"),
		executor:    executor,
		persistence: persist,
		bus:         bus,
	}
}

// Start registers the request handler and begins consuming from the bus.
// It returns once the subscription is established; execution work happens
// on background goroutines until ctx is cancelled.
func (r *Runner) Start(ctx context.Context) error {
	r.bus.Handle(events.ExecutionRequestedEvent, func(ctx context.Context, event any) error {
		req, ok := event.(*events.ExecutionRequested)
		if !ok {
			return fmt.Errorf("unexpected event payload %T", event)
		}

		return r.handleRequest(ctx, req)
	})

	if err := r.bus.Subscribe(ctx); err != nil {
		return fmt.Errorf("subscribing to execution requests: %w", err)
	}

	r.logger.InfoContext(ctx, "Workflow runner started")

	return nil
}

func (r *Runner) handleRequest(ctx context.Context, req *events.ExecutionRequested) error {
	logger := r.logger.With(
		"workflow_id", req.WorkflowID,
		"execution_id", req.ExecutionID,
	)

	execution, err := r.persistence.Executions().ByID(ctx, req.ExecutionID)
	if err != nil {
		logger.Error("Requested execution not found", "error", err)

		return err
	}

	wf, err := r.persistence.Workflows().ByID(ctx, req.WorkflowID)
	if err != nil {
		logger.Error("Workflow missing for requested execution", "error", err)

		life := newLifecycle(execution)
		if ferr := life.Fail(ctx, fmt.Sprintf("workflow %s not found", req.WorkflowID)); ferr != nil {
			logger.Error("Failed to fail orphaned execution", "error", ferr)
		}

		if serr := r.persistence.Executions().Save(ctx, execution); serr != nil {
			logger.Error("Failed to persist orphaned execution", "error", serr)
		}

		return err
	}

	go func() {
		if err := r.executor.Run(context.WithoutCancel(ctx), wf, execution); err != nil {
			logger.Error("Execution finished with error", "error", err)
		}
	}()

	return nil
}
