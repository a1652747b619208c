// Package protocol defines the contracts between the workflow executor and
// node handlers.
package protocol

import (
	"context"

	"github.com/atelierhq/easel/pkg/models"
)

// Handler executes one node instance. Implementations may perform external
// side effects (HTTP calls, image generation) but must not touch shared
// execution state; all bookkeeping is centralized in the executor.
type Handler interface {
	// ID returns the node instance id this handler was created for.
	ID() string

	// Type returns the node type tag.
	Type() string

	// Execute runs the node given the results of its direct upstream
	// dependencies, keyed by node id. It returns the type-specific result
	// payload or an error, which the executor records as a node failure.
	Execute(ctx context.Context, inputs map[string]*models.NodeResult) (map[string]any, error)
}

// HandlerFactory creates handlers for one node type and describes the
// shape of its configuration.
type HandlerFactory interface {
	// Create builds a handler for a single node, validating its config bag.
	Create(id string, config map[string]any) (Handler, error)

	// ID returns the node type tag this factory serves.
	ID() string

	// Name returns the human-readable name for this node type.
	Name() string

	// Schema returns the JSON schema for the node's config bag, or nil if
	// the type takes no configuration.
	Schema() map[string]any
}
