package models

import "time"

// ExecutionStatus represents the lifecycle state of one execution.
type ExecutionStatus string

const (
	ExecutionStatusPending   ExecutionStatus = "pending"
	ExecutionStatusRunning   ExecutionStatus = "running"
	ExecutionStatusCompleted ExecutionStatus = "completed"
	ExecutionStatusFailed    ExecutionStatus = "failed"
)

// NodeResultStatus defines the per-node outcome states.
type NodeResultStatus string

const (
	NodeResultSuccess NodeResultStatus = "success"
	NodeResultFailure NodeResultStatus = "failure"
)

// NodeResult is the recorded outcome of one node within an execution.
type NodeResult struct {
	NodeID     string           `json:"node_id"`
	Status     NodeResultStatus `json:"status"`
	Data       map[string]any   `json:"data,omitempty"`
	Error      string           `json:"error,omitempty"`
	FinishedAt time.Time        `json:"finished_at"`
}

// Execution is one run of one workflow. The executor is its sole writer
// while the run is live; terminal records are immutable.
type Execution struct {
	ID          string                 `json:"id"`
	WorkflowID  string                 `json:"workflow_id"`
	UserID      string                 `json:"user_id"`
	Status      ExecutionStatus        `json:"status"`
	Progress    int                    `json:"progress"`
	CurrentNode string                 `json:"current_node,omitempty"`
	Results     map[string]*NodeResult `json:"results"`
	Log         []string               `json:"execution_log"`
	Error       string                 `json:"error,omitempty"`
	StartedAt   time.Time              `json:"started_at"`
	CompletedAt *time.Time             `json:"completed_at,omitempty"`
}

// AppendLog adds one trace entry. The log is append-only; entries are
// never rewritten or truncated.
func (e *Execution) AppendLog(entry string) {
	e.Log = append(e.Log, entry)
}

// IsTerminal reports whether the execution reached a final state.
func (e *Execution) IsTerminal() bool {
	return e.Status == ExecutionStatusCompleted || e.Status == ExecutionStatusFailed
}
