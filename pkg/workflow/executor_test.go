package workflow

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/atelierhq/easel/pkg/log"
	"github.com/atelierhq/easel/pkg/models"
	"github.com/atelierhq/easel/pkg/persistence"
	"github.com/atelierhq/easel/pkg/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// snapshotRepo records the observable state of the execution at every
// save, so tests can assert what pollers would have seen mid-run.
type snapshotRepo struct {
	mu        sync.Mutex
	snapshots []executionSnapshot
}

type executionSnapshot struct {
	status   models.ExecutionStatus
	progress int
	logLen   int
	log      []string
}

func (r *snapshotRepo) Save(_ context.Context, execution *models.Execution) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	logCopy := make([]string, len(execution.Log))
	copy(logCopy, execution.Log)

	r.snapshots = append(r.snapshots, executionSnapshot{
		status:   execution.Status,
		progress: execution.Progress,
		logLen:   len(execution.Log),
		log:      logCopy,
	})

	return nil
}

func (r *snapshotRepo) ByID(_ context.Context, _ string) (*models.Execution, error) {
	return nil, persistence.ErrExecutionNotFound
}

func (r *snapshotRepo) ByUser(_ context.Context, _ string) ([]*models.Execution, error) {
	return nil, nil
}

func (r *snapshotRepo) CountByWorkflow(_ context.Context, _ string) (int, error) {
	return 0, nil
}

type stubImagingClient struct {
	err error
}

func (c stubImagingClient) Generate(_ context.Context, _, _ string) ([]byte, error) {
	if c.err != nil {
		return nil, c.err
	}

	return []byte{0x89, 0x50, 0x4e, 0x47}, nil
}

func newTestExecutor(t *testing.T, client stubImagingClient) (*Executor, *snapshotRepo) {
	t.Helper()

	reg := registry.NewRegistry(log.WithModule("test"))
	reg.RegisterDefaultHandlers(client)

	repo := &snapshotRepo{}

	return NewExecutor(log.WithModule("test"), reg, repo, nil), repo
}

func imageWorkflow() *models.Workflow {
	return &models.Workflow{
		ID:      "wf-1",
		Name:    "poster",
		OwnerID: "user-1",
		Nodes: []*models.Node{
			{ID: "start-1", Type: "start"},
			{ID: "img-1", Type: "imagegen", Data: map[string]any{"prompt": "a lighthouse at dusk"}},
			{ID: "end-1", Type: "end"},
		},
		Edges: []*models.Edge{
			{ID: "e1", Source: "start-1", Target: "img-1"},
			{ID: "e2", Source: "img-1", Target: "end-1"},
		},
	}
}

func newExecution(wf *models.Workflow) *models.Execution {
	return &models.Execution{
		ID:         "exec-1",
		WorkflowID: wf.ID,
		UserID:     wf.OwnerID,
		Status:     models.ExecutionStatusPending,
		Results:    make(map[string]*models.NodeResult),
		StartedAt:  time.Now().UTC(),
	}
}

func TestExecutor_Run_Completes(t *testing.T) {
	executor, repo := newTestExecutor(t, stubImagingClient{})
	wf := imageWorkflow()
	execution := newExecution(wf)

	require.NoError(t, executor.Run(context.Background(), wf, execution))

	assert.Equal(t, models.ExecutionStatusCompleted, execution.Status)
	assert.Equal(t, 100, execution.Progress)
	assert.Empty(t, execution.Error)
	require.NotNil(t, execution.CompletedAt)

	require.Len(t, execution.Results, 3)
	for _, nodeID := range []string{"start-1", "img-1", "end-1"} {
		result := execution.Results[nodeID]
		require.NotNil(t, result, nodeID)
		assert.Equal(t, models.NodeResultSuccess, result.Status)
	}

	assert.NotEmpty(t, execution.Results["img-1"].Data["image_base64"])

	assert.Equal(t, []string{
		"node start-1 started",
		"node start-1 succeeded",
		"node img-1 started",
		"node img-1 succeeded",
		"node end-1 started",
		"node end-1 succeeded",
		"execution completed",
	}, execution.Log)

	// Progress 100 must never be visible before the terminal status is.
	for _, snap := range repo.snapshots {
		if snap.progress == 100 {
			assert.Equal(t, models.ExecutionStatusCompleted, snap.status)
		}
	}
}

func TestExecutor_Run_CycleFailsBeforeAnyNode(t *testing.T) {
	executor, _ := newTestExecutor(t, stubImagingClient{})

	wf := &models.Workflow{
		ID:      "wf-cycle",
		Name:    "loop",
		OwnerID: "user-1",
		Nodes: []*models.Node{
			{ID: "a", Type: "log", Data: map[string]any{"message": "hi"}},
			{ID: "b", Type: "log", Data: map[string]any{"message": "ho"}},
		},
		Edges: []*models.Edge{
			{ID: "e1", Source: "a", Target: "b"},
			{ID: "e2", Source: "b", Target: "a"},
		},
	}
	execution := newExecution(wf)

	err := executor.Run(context.Background(), wf, execution)
	require.ErrorIs(t, err, ErrCyclicWorkflow)

	assert.Equal(t, models.ExecutionStatusFailed, execution.Status)
	assert.Empty(t, execution.Results)
	assert.Contains(t, execution.Error, "cycle")
	require.Len(t, execution.Log, 1)
	assert.Contains(t, execution.Log[0], "execution failed")
}

func TestExecutor_Run_NodeFailureStopsExecution(t *testing.T) {
	executor, _ := newTestExecutor(t, stubImagingClient{err: errors.New("provider quota exhausted")})
	wf := imageWorkflow()
	execution := newExecution(wf)

	err := executor.Run(context.Background(), wf, execution)
	require.Error(t, err)

	assert.Equal(t, models.ExecutionStatusFailed, execution.Status)
	assert.Contains(t, execution.Error, "provider quota exhausted")
	require.NotNil(t, execution.CompletedAt)

	// start succeeded, imagegen failed, end never ran.
	require.Len(t, execution.Results, 2)
	assert.Equal(t, models.NodeResultSuccess, execution.Results["start-1"].Status)
	assert.Equal(t, models.NodeResultFailure, execution.Results["img-1"].Status)
	assert.Contains(t, execution.Results["img-1"].Error, "provider quota exhausted")
	assert.NotContains(t, execution.Results, "end-1")

	assert.Less(t, execution.Progress, 100)

	require.NotEmpty(t, execution.Log)
	assert.Contains(t, execution.Log[len(execution.Log)-2], "node img-1 failed:")
	assert.Contains(t, execution.Log[len(execution.Log)-1], "execution failed:")
}

func TestExecutor_Run_UnknownNodeTypeFails(t *testing.T) {
	executor, _ := newTestExecutor(t, stubImagingClient{})

	wf := &models.Workflow{
		ID:      "wf-unknown",
		Name:    "mystery",
		OwnerID: "user-1",
		Nodes: []*models.Node{
			{ID: "start-1", Type: "start"},
			{ID: "warp-1", Type: "teleport"},
		},
		Edges: []*models.Edge{
			{ID: "e1", Source: "start-1", Target: "warp-1"},
		},
	}
	execution := newExecution(wf)

	err := executor.Run(context.Background(), wf, execution)
	require.ErrorIs(t, err, registry.ErrUnknownNodeType)

	assert.Equal(t, models.ExecutionStatusFailed, execution.Status)
	assert.Equal(t, models.NodeResultFailure, execution.Results["warp-1"].Status)
}

func TestExecutor_Run_ProgressAndLogMonotone(t *testing.T) {
	executor, repo := newTestExecutor(t, stubImagingClient{})
	wf := imageWorkflow()
	execution := newExecution(wf)

	require.NoError(t, executor.Run(context.Background(), wf, execution))

	prevProgress := 0
	prevLogLen := 0

	for i, snap := range repo.snapshots {
		assert.GreaterOrEqual(t, snap.progress, prevProgress, "snapshot %d", i)
		assert.GreaterOrEqual(t, snap.logLen, prevLogLen, "snapshot %d", i)

		if prevLogLen > 0 {
			assert.Equal(t, repo.snapshots[i-1].log, snap.log[:prevLogLen], "log must be append-only")
		}

		prevProgress = snap.progress
		prevLogLen = snap.logLen
	}
}

func TestExecutor_Run_EndNodeAggregatesUpstreamOutputs(t *testing.T) {
	executor, _ := newTestExecutor(t, stubImagingClient{})
	wf := imageWorkflow()
	execution := newExecution(wf)

	require.NoError(t, executor.Run(context.Background(), wf, execution))

	endData := execution.Results["end-1"].Data
	outputs, ok := endData["outputs"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, outputs, "img-1")
}

func diamondWorkflow() *models.Workflow {
	return &models.Workflow{
		ID:      "wf-2",
		Name:    "diamond",
		OwnerID: "user-1",
		Nodes: []*models.Node{
			{ID: "start-1", Type: "start"},
			{ID: "img-1", Type: "imagegen", Data: map[string]any{"prompt": "a lighthouse at dusk"}},
			{ID: "log-1", Type: "log", Data: map[string]any{"message": "branch running"}},
			{ID: "end-1", Type: "end"},
		},
		Edges: []*models.Edge{
			{ID: "e1", Source: "start-1", Target: "img-1"},
			{ID: "e2", Source: "start-1", Target: "log-1"},
			{ID: "e3", Source: "img-1", Target: "end-1"},
			{ID: "e4", Source: "log-1", Target: "end-1"},
		},
	}
}

func TestExecutor_Run_IndependentBranchesBothComplete(t *testing.T) {
	executor, _ := newTestExecutor(t, stubImagingClient{})
	wf := diamondWorkflow()
	execution := newExecution(wf)

	require.NoError(t, executor.Run(context.Background(), wf, execution))

	assert.Equal(t, models.ExecutionStatusCompleted, execution.Status)
	assert.Equal(t, 100, execution.Progress)
	require.Len(t, execution.Results, 4)

	outputs, ok := execution.Results["end-1"].Data["outputs"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, outputs, "img-1")
	assert.Contains(t, outputs, "log-1")
}

func TestExecutor_Run_BranchFailureSkipsJoinNode(t *testing.T) {
	executor, _ := newTestExecutor(t, stubImagingClient{err: errors.New("provider quota exhausted")})
	wf := diamondWorkflow()
	execution := newExecution(wf)

	err := executor.Run(context.Background(), wf, execution)
	require.Error(t, err)

	assert.Equal(t, models.ExecutionStatusFailed, execution.Status)
	assert.Equal(t, models.NodeResultFailure, execution.Results["img-1"].Status)
	assert.NotContains(t, execution.Results, "end-1")
	assert.Less(t, execution.Progress, 100)
}
