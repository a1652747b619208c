// Package services holds the business operations behind the API surface:
// workflow CRUD, execution start/polling, and account management.
package services

import (
	"errors"
	"fmt"

	"github.com/atelierhq/easel/pkg/persistence"
)

// Validation errors (400 Bad Request).
var (
	ErrInvalidRequest    = errors.New("invalid request")
	ErrWorkflowNil       = errors.New("workflow cannot be nil")
	ErrNodesRequired     = errors.New("workflow must have at least one node")
	ErrDuplicateNodeID   = errors.New("workflow node ids must be unique")
	ErrDanglingEdge      = errors.New("edge references a node that does not exist")
	ErrInvalidNodeConfig = errors.New("node configuration does not match its schema")
)

// Business conflicts (409 Conflict).
var (
	ErrWorkflowLocked = errors.New("workflow has executions and can no longer be modified")
	ErrEmailTaken     = errors.New("email address already registered")
)

// Authentication errors (401 Unauthorized).
var ErrInvalidCredentials = errors.New("invalid email or password")

// Re-exported lookup failures (404 Not Found).
var (
	ErrWorkflowNotFound  = persistence.ErrWorkflowNotFound
	ErrExecutionNotFound = persistence.ErrExecutionNotFound
)

// ServiceError wraps a service-level failure with the operation that
// produced it.
type ServiceError struct {
	Op      string
	Message string
	Err     error
}

func (e *ServiceError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}

	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

func (e *ServiceError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// IsValidationError reports whether err should map to HTTP 400.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidRequest) ||
		errors.Is(err, ErrWorkflowNil) ||
		errors.Is(err, ErrNodesRequired) ||
		errors.Is(err, ErrDuplicateNodeID) ||
		errors.Is(err, ErrDanglingEdge) ||
		errors.Is(err, ErrInvalidNodeConfig)
}

// IsConflictError reports whether err should map to HTTP 409.
func IsConflictError(err error) bool {
	return errors.Is(err, ErrWorkflowLocked) ||
		errors.Is(err, ErrEmailTaken)
}

// IsNotFoundError reports whether err should map to HTTP 404.
func IsNotFoundError(err error) bool {
	return persistence.IsWorkflowNotFound(err) ||
		persistence.IsExecutionNotFound(err) ||
		persistence.IsUserNotFound(err)
}

// NewValidationError attaches operation context to a validation sentinel.
func NewValidationError(op, message string, err error) *ServiceError {
	return &ServiceError{Op: op, Message: message, Err: err}
}
