// Package start provides the workflow entry-point node.
package start

import (
	"context"

	"github.com/atelierhq/easel/pkg/models"
)

// StartNode marks the entry point of a workflow. It is a no-op
// pass-through: it produces an empty payload for downstream nodes.
type StartNode struct {
	id string
}

func NewStartNode(id string) *StartNode {
	return &StartNode{id: id}
}

func (n *StartNode) ID() string {
	return n.id
}

func (n *StartNode) Type() string {
	return "start"
}

func (n *StartNode) Execute(_ context.Context, _ map[string]*models.NodeResult) (map[string]any, error) {
	return map[string]any{"started": true}, nil
}
