package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/atelierhq/easel/pkg/eventbus"
	"github.com/atelierhq/easel/pkg/events"
	"github.com/atelierhq/easel/pkg/models"
	"github.com/atelierhq/easel/pkg/otelhelper"
	"github.com/atelierhq/easel/pkg/persistence"
	"github.com/atelierhq/easel/pkg/registry"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Executor drives one execution to a terminal state. It is the sole
// writer of the execution record for the duration of the run and persists
// after every node so concurrent pollers observe live progress.
//
// Nodes are scheduled as a task graph: each node waits on a counter of
// unresolved dependencies and independent branches run concurrently.
// Handlers never touch the execution record themselves; all bookkeeping
// happens here under one lock.
type Executor struct {
	logger     *slog.Logger
	registry   *registry.Registry
	executions persistence.ExecutionRepository
	bus        eventbus.EventPublisher
	tracer     trace.Tracer
}

func NewExecutor(
	logger *slog.Logger,
	reg *registry.Registry,
	executions persistence.ExecutionRepository,
	bus eventbus.EventPublisher,
) *Executor {
	return &Executor{
		logger:     logger,
		registry:   reg,
		executions: executions,
		bus:        bus,
		tracer:     otel.Tracer("easel.workflow"),
	}
}

// run is the mutable state of one in-flight execution.
type run struct {
	mu sync.Mutex
	wg sync.WaitGroup

	workflow  *models.Workflow
	execution *models.Execution

	pending    map[string]int      // unresolved dependency count per node
	dependents map[string][]string // downstream node ids per node
	completed  int
	total      int

	failed  bool
	failure error
}

// Run drives the execution's task graph to a terminal state. Node
// failures are translated into the execution's failure path and the
// first failure is returned.
func (e *Executor) Run(ctx context.Context, wf *models.Workflow, execution *models.Execution) error {
	logger := e.logger.With(
		"workflow_id", wf.ID,
		"execution_id", execution.ID,
	)

	ctx, span := e.tracer.Start(ctx, "workflow.execute", trace.WithAttributes(
		attribute.String(otelhelper.WorkflowIDKey, wf.ID),
		attribute.String(otelhelper.ExecutionIDKey, execution.ID),
	))
	defer span.End()

	logger.Info("Starting workflow execution", "nodes", len(wf.Nodes))

	life := newLifecycle(execution)

	// The resolved order proves acyclicity and seeds the dispatchable
	// nodes in submission order.
	order, err := ResolveOrder(wf.Nodes, wf.Edges)
	if err != nil {
		otelhelper.SetError(span, err)
		e.fail(ctx, life, execution, err, logger)

		return err
	}

	if err := life.Start(ctx); err != nil {
		return fmt.Errorf("execution %s cannot start from %s: %w", execution.ID, execution.Status, err)
	}

	e.persist(ctx, execution, logger)
	e.publish(ctx, execution.WorkflowID, events.ExecutionStarted{
		BaseEvent:   events.NewBaseEvent(events.ExecutionStartedEvent, wf.ID),
		ExecutionID: execution.ID,
	})

	r := &run{
		workflow:   wf,
		execution:  execution,
		pending:    make(map[string]int, len(wf.Nodes)),
		dependents: make(map[string][]string, len(wf.Nodes)),
		total:      len(wf.Nodes),
	}

	for _, edge := range wf.Edges {
		r.pending[edge.Target]++
		r.dependents[edge.Source] = append(r.dependents[edge.Source], edge.Target)
	}

	r.mu.Lock()
	for _, nodeID := range order {
		if r.pending[nodeID] == 0 {
			e.dispatch(ctx, r, nodeID, logger)
		}
	}
	r.mu.Unlock()

	r.wg.Wait()

	if r.failure != nil {
		otelhelper.SetError(span, r.failure)
		e.fail(ctx, life, execution, r.failure, logger)

		return r.failure
	}

	if err := life.Complete(ctx); err != nil {
		return fmt.Errorf("execution %s cannot complete: %w", execution.ID, err)
	}

	e.persist(ctx, execution, logger)
	e.publish(ctx, execution.WorkflowID, events.ExecutionCompleted{
		BaseEvent:   events.NewBaseEvent(events.ExecutionCompletedEvent, wf.ID),
		ExecutionID: execution.ID,
		Duration:    time.Since(execution.StartedAt),
	})

	logger.Info("Workflow execution completed")

	return nil
}

// dispatch spawns the worker for one node whose dependencies are all
// resolved. Caller holds r.mu.
func (e *Executor) dispatch(ctx context.Context, r *run, nodeID string, logger *slog.Logger) {
	node, ok := r.workflow.NodeByID(nodeID)
	if !ok {
		// Unreachable for validated workflows.
		r.failed = true
		r.failure = fmt.Errorf("node %s not found in workflow", nodeID)

		return
	}

	r.execution.CurrentNode = nodeID
	r.execution.AppendLog(fmt.Sprintf("node %s started", nodeID))
	e.persist(ctx, r.execution, logger)

	inputs := make(map[string]*models.NodeResult)
	for _, dep := range r.workflow.Dependencies(nodeID) {
		if res, ok := r.execution.Results[dep]; ok {
			inputs[dep] = res
		}
	}

	r.wg.Add(1)

	go func() {
		defer r.wg.Done()

		result, err := e.executeNode(ctx, node, inputs)
		if err != nil {
			e.finishFailed(ctx, r, nodeID, err, logger)

			return
		}

		e.finishSucceeded(ctx, r, nodeID, result, logger)
	}()
}

// executeNode dispatches one node to its handler with the results of its
// direct upstream dependencies. Handler panics are caught here and
// translated into node failures.
func (e *Executor) executeNode(ctx context.Context, node *models.Node, inputs map[string]*models.NodeResult) (result map[string]any, err error) {
	ctx, span := e.tracer.Start(ctx, "node.execute", trace.WithAttributes(
		attribute.String(otelhelper.NodeIDKey, node.ID),
		attribute.String(otelhelper.NodeTypeKey, node.Type),
	))
	defer span.End()

	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("handler panicked: %v", rec)
			otelhelper.SetError(span, err)
		}
	}()

	handler, err := e.registry.CreateHandler(node)
	if err != nil {
		otelhelper.SetError(span, err)

		return nil, err
	}

	result, err = handler.Execute(ctx, inputs)
	if err != nil {
		otelhelper.SetError(span, err)

		return nil, err
	}

	return result, nil
}

func (e *Executor) finishSucceeded(ctx context.Context, r *run, nodeID string, result map[string]any, logger *slog.Logger) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.execution.Results[nodeID] = &models.NodeResult{
		NodeID:     nodeID,
		Status:     models.NodeResultSuccess,
		Data:       result,
		FinishedAt: time.Now().UTC(),
	}
	r.completed++
	r.execution.Progress = 100 * r.completed / r.total
	r.execution.AppendLog(fmt.Sprintf("node %s succeeded", nodeID))

	// The final node's persist is folded into the completion write so
	// pollers never observe progress 100 on a running execution.
	if r.completed < r.total {
		e.persist(ctx, r.execution, logger)
	}

	e.publish(ctx, r.execution.WorkflowID, events.NodeFinished{
		BaseEvent:   events.NewBaseEvent(events.NodeFinishedEvent, r.workflow.ID),
		ExecutionID: r.execution.ID,
		NodeID:      nodeID,
		Status:      string(models.NodeResultSuccess),
	})

	logger.Debug("Node completed", "node_id", nodeID, "progress", r.execution.Progress)

	if r.failed {
		return
	}

	for _, dependent := range r.dependents[nodeID] {
		r.pending[dependent]--
		if r.pending[dependent] == 0 {
			e.dispatch(ctx, r, dependent, logger)
		}
	}
}

// finishFailed records a node failure and stops the run: downstream
// nodes are never dispatched, even those independent of the failure.
func (e *Executor) finishFailed(ctx context.Context, r *run, nodeID string, cause error, logger *slog.Logger) {
	logger.Error("Node execution failed", "node_id", nodeID, "error", cause)

	r.mu.Lock()
	defer r.mu.Unlock()

	r.execution.Results[nodeID] = &models.NodeResult{
		NodeID:     nodeID,
		Status:     models.NodeResultFailure,
		Error:      cause.Error(),
		FinishedAt: time.Now().UTC(),
	}
	r.execution.AppendLog(fmt.Sprintf("node %s failed: %v", nodeID, cause))
	e.persist(ctx, r.execution, logger)

	if !r.failed {
		r.failed = true
		r.failure = cause
	}

	e.publish(ctx, r.execution.WorkflowID, events.NodeFinished{
		BaseEvent:   events.NewBaseEvent(events.NodeFinishedEvent, r.workflow.ID),
		ExecutionID: r.execution.ID,
		NodeID:      nodeID,
		Status:      string(models.NodeResultFailure),
	})
}

func (e *Executor) fail(ctx context.Context, life *lifecycle, execution *models.Execution, cause error, logger *slog.Logger) {
	if err := life.Fail(ctx, cause.Error()); err != nil {
		logger.Error("Failed to transition execution to failed", "error", err)
	}

	e.persist(ctx, execution, logger)
	e.publish(ctx, execution.WorkflowID, events.ExecutionFailed{
		BaseEvent:   events.NewBaseEvent(events.ExecutionFailedEvent, execution.WorkflowID),
		ExecutionID: execution.ID,
		Error:       cause.Error(),
	})
}

func (e *Executor) persist(ctx context.Context, execution *models.Execution, logger *slog.Logger) {
	if err := e.executions.Save(ctx, execution); err != nil {
		logger.Error("Failed to persist execution", "error", err)
	}
}

func (e *Executor) publish(ctx context.Context, key string, event eventbus.Event) {
	if e.bus == nil {
		return
	}

	if err := e.bus.Publish(ctx, key, event); err != nil {
		e.logger.Warn("Failed to publish event", "event_type", event.GetType(), "error", err)
	}
}
