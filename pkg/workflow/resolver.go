// Package workflow contains the execution engine: dependency resolution,
// the execution lifecycle, and the node-stepping executor.
package workflow

import (
	"errors"

	"github.com/atelierhq/easel/pkg/models"
)

// ErrCyclicWorkflow indicates the edge set admits no valid execution
// order.
var ErrCyclicWorkflow = errors.New("workflow contains a dependency cycle")

// ResolveOrder computes a total order over node ids in which every node
// appears after all nodes it depends on (its in-edge sources).
//
// Nodes whose dependencies are all resolved are taken in submission
// order, so the result is deterministic and execution logs are
// reproducible. When a pass over the remaining nodes places none of them,
// the remainder forms a cycle.
func ResolveOrder(nodes []*models.Node, edges []*models.Edge) ([]string, error) {
	deps := make(map[string][]string, len(nodes))
	for _, edge := range edges {
		deps[edge.Target] = append(deps[edge.Target], edge.Source)
	}

	ordered := make([]string, 0, len(nodes))
	placed := make(map[string]bool, len(nodes))

	for len(ordered) < len(nodes) {
		progressed := false

		for _, node := range nodes {
			if placed[node.ID] {
				continue
			}

			ready := true

			for _, dep := range deps[node.ID] {
				if !placed[dep] {
					ready = false

					break
				}
			}

			if ready {
				ordered = append(ordered, node.ID)
				placed[node.ID] = true
				progressed = true
			}
		}

		if !progressed {
			return nil, ErrCyclicWorkflow
		}
	}

	return ordered, nil
}
