package workflow

import (
	"context"
	"time"

	"github.com/atelierhq/easel/pkg/models"
	"github.com/qmuntal/stateless"
)

const (
	triggerStart    = "start"
	triggerComplete = "complete"
	triggerFail     = "fail"
)

// lifecycle guards the status transitions of one execution:
// pending -> running -> completed | failed, with pending -> failed for
// runs that never step (e.g. cyclic graphs). Entry actions own the
// terminal bookkeeping so no transition can skip it.
type lifecycle struct {
	execution *models.Execution
	machine   *stateless.StateMachine
}

func newLifecycle(execution *models.Execution) *lifecycle {
	l := &lifecycle{execution: execution}

	machine := stateless.NewStateMachine(execution.Status)

	machine.Configure(models.ExecutionStatusPending).
		Permit(triggerStart, models.ExecutionStatusRunning).
		Permit(triggerFail, models.ExecutionStatusFailed)

	machine.Configure(models.ExecutionStatusRunning).
		OnEntry(func(_ context.Context, _ ...any) error {
			l.execution.Status = models.ExecutionStatusRunning

			return nil
		}).
		Permit(triggerComplete, models.ExecutionStatusCompleted).
		Permit(triggerFail, models.ExecutionStatusFailed)

	machine.Configure(models.ExecutionStatusCompleted).
		OnEntry(func(_ context.Context, _ ...any) error {
			now := time.Now().UTC()
			l.execution.Status = models.ExecutionStatusCompleted
			l.execution.Progress = 100
			l.execution.CompletedAt = &now
			l.execution.AppendLog("execution completed")

			return nil
		})

	machine.Configure(models.ExecutionStatusFailed).
		OnEntry(func(_ context.Context, args ...any) error {
			reason := "unknown error"
			if len(args) > 0 {
				if s, ok := args[0].(string); ok {
					reason = s
				}
			}

			now := time.Now().UTC()
			l.execution.Status = models.ExecutionStatusFailed
			l.execution.Error = reason
			l.execution.CompletedAt = &now
			l.execution.AppendLog("execution failed: " + reason)

			return nil
		})

	l.machine = machine

	return l
}

func (l *lifecycle) Start(ctx context.Context) error {
	return l.machine.FireCtx(ctx, triggerStart)
}

func (l *lifecycle) Complete(ctx context.Context) error {
	return l.machine.FireCtx(ctx, triggerComplete)
}

func (l *lifecycle) Fail(ctx context.Context, reason string) error {
	return l.machine.FireCtx(ctx, triggerFail, reason)
}
