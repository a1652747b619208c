// Package registry maps node type tags to their handler factories.
package registry

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/atelierhq/easel/pkg/models"
	"github.com/atelierhq/easel/pkg/protocol"
)

// ErrUnknownNodeType indicates a node references a type with no registered
// handler factory.
var ErrUnknownNodeType = errors.New("unknown node type")

// Registry is an explicit mapping from node type tag to handler factory,
// built once at process start and passed by reference into the executor.
type Registry struct {
	logger    *slog.Logger
	factories map[string]protocol.HandlerFactory
}

func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{
		logger:    logger,
		factories: make(map[string]protocol.HandlerFactory),
	}
}

// Register adds a handler factory. A later registration for the same type
// tag replaces the earlier one.
func (r *Registry) Register(factory protocol.HandlerFactory) {
	r.factories[factory.ID()] = factory
	r.logger.Debug("Registered node handler", "type", factory.ID())
}

// CreateHandler builds a handler for the given node, or reports
// ErrUnknownNodeType when no factory is registered for its type.
func (r *Registry) CreateHandler(node *models.Node) (protocol.Handler, error) {
	factory, ok := r.factories[node.Type]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownNodeType, node.Type)
	}

	handler, err := factory.Create(node.ID, node.Data)
	if err != nil {
		return nil, fmt.Errorf("failed to create %q handler for node %s: %w", node.Type, node.ID, err)
	}

	return handler, nil
}

// Schema returns the config schema for a node type, if one is registered.
func (r *Registry) Schema(nodeType string) (map[string]any, bool) {
	factory, ok := r.factories[nodeType]
	if !ok {
		return nil, false
	}

	return factory.Schema(), true
}

// IsRegistered reports whether a handler factory exists for the type tag.
func (r *Registry) IsRegistered(nodeType string) bool {
	_, ok := r.factories[nodeType]

	return ok
}

// Types returns the registered node type tags.
func (r *Registry) Types() []string {
	types := make([]string, 0, len(r.factories))
	for t := range r.factories {
		types = append(types, t)
	}

	return types
}

// HealthCheck reports whether the registry is usable.
func (r *Registry) HealthCheck() (string, bool) {
	if len(r.factories) == 0 {
		return "no node handlers registered", false
	}

	return fmt.Sprintf("%d node handlers registered", len(r.factories)), true
}
