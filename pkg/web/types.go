// Package web provides the HTTP handlers and REST endpoints of the API.
package web

import (
	"time"

	"github.com/atelierhq/easel/pkg/models"
)

// RegisterRequest is the body for creating an account.
type RegisterRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Name     string `json:"name"     validate:"required,min=1,max=100"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

// LoginRequest is the body for exchanging credentials for a token.
type LoginRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// AuthResponse carries the issued token and the account it belongs to.
type AuthResponse struct {
	Token string       `json:"token"`
	User  UserResponse `json:"user"`
}

// UserResponse is the public view of an account. The password hash never
// leaves the persistence layer.
type UserResponse struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

// NodeRequest is one node within a workflow definition body.
type NodeRequest struct {
	ID       string          `json:"id"       validate:"required"`
	Type     string          `json:"type"     validate:"required"`
	Position models.Position `json:"position"`
	Data     map[string]any  `json:"data"`
}

// EdgeRequest is one dependency edge within a workflow definition body.
type EdgeRequest struct {
	ID     string `json:"id"`
	Source string `json:"source" validate:"required"`
	Target string `json:"target" validate:"required"`
}

// WorkflowRequest is the body for creating or replacing a workflow.
type WorkflowRequest struct {
	Name  string        `json:"name"  validate:"required,min=3"`
	Nodes []NodeRequest `json:"nodes" validate:"required,min=1,dive"`
	Edges []EdgeRequest `json:"edges" validate:"dive"`
}

// ToModel converts the request body into the domain workflow.
func (r *WorkflowRequest) ToModel() *models.Workflow {
	workflow := &models.Workflow{
		Name:  r.Name,
		Nodes: make([]*models.Node, 0, len(r.Nodes)),
		Edges: make([]*models.Edge, 0, len(r.Edges)),
	}

	for _, node := range r.Nodes {
		workflow.Nodes = append(workflow.Nodes, &models.Node{
			ID:       node.ID,
			Type:     node.Type,
			Position: node.Position,
			Data:     node.Data,
		})
	}

	for _, edge := range r.Edges {
		workflow.Edges = append(workflow.Edges, &models.Edge{
			ID:     edge.ID,
			Source: edge.Source,
			Target: edge.Target,
		})
	}

	return workflow
}

// ExecuteResponse acknowledges an accepted run. Clients follow up on
// the execution endpoints for progress.
type ExecuteResponse struct {
	ExecutionID string                 `json:"execution_id"`
	Status      models.ExecutionStatus `json:"status"`
}

// ExecutionResponse is the polling view of an execution.
type ExecutionResponse struct {
	ID           string                        `json:"id"`
	WorkflowID   string                        `json:"workflow_id"`
	Status       models.ExecutionStatus        `json:"status"`
	Progress     int                           `json:"progress"`
	CurrentNode  string                        `json:"current_node,omitempty"`
	Results      map[string]*models.NodeResult `json:"results"`
	ExecutionLog []string                      `json:"execution_log"`
	Error        string                        `json:"error,omitempty"`
	StartedAt    time.Time                     `json:"started_at"`
	CompletedAt  *time.Time                    `json:"completed_at,omitempty"`
}

// TransformExecutionResponse converts an execution into its API view.
func TransformExecutionResponse(execution *models.Execution) ExecutionResponse {
	results := execution.Results
	if results == nil {
		results = map[string]*models.NodeResult{}
	}

	executionLog := execution.Log
	if executionLog == nil {
		executionLog = []string{}
	}

	return ExecutionResponse{
		ID:           execution.ID,
		WorkflowID:   execution.WorkflowID,
		Status:       execution.Status,
		Progress:     execution.Progress,
		CurrentNode:  execution.CurrentNode,
		Results:      results,
		ExecutionLog: executionLog,
		Error:        execution.Error,
		StartedAt:    execution.StartedAt,
		CompletedAt:  execution.CompletedAt,
	}
}

// TransformUserResponse converts a user into its API view.
func TransformUserResponse(user *models.User) UserResponse {
	return UserResponse{
		ID:    user.ID,
		Email: user.Email,
		Name:  user.Name,
	}
}
