// Package end provides the workflow terminal node.
package end

import (
	"context"

	"github.com/atelierhq/easel/pkg/models"
)

// EndNode terminates a workflow. It aggregates the payloads of every node
// that reached it and returns them as its own result.
type EndNode struct {
	id string
}

func NewEndNode(id string) *EndNode {
	return &EndNode{id: id}
}

func (n *EndNode) ID() string {
	return n.id
}

func (n *EndNode) Type() string {
	return "end"
}

func (n *EndNode) Execute(_ context.Context, inputs map[string]*models.NodeResult) (map[string]any, error) {
	outputs := make(map[string]any, len(inputs))
	for nodeID, result := range inputs {
		outputs[nodeID] = result.Data
	}

	return map[string]any{"outputs": outputs}, nil
}
