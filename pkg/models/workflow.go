// Package models defines the core domain models for workflow storage and execution.
package models

import "time"

// Position carries canvas coordinates for a node. Presentation only, no
// semantic weight during execution.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Node is a typed unit of work within a workflow. Data holds the
// type-specific configuration bag (e.g. {prompt, size} for imagegen).
type Node struct {
	ID       string         `json:"id"       validate:"required"`
	Type     string         `json:"type"     validate:"required"`
	Position Position       `json:"position"`
	Data     map[string]any `json:"data"`
}

// Edge is a directed dependency between two nodes: Target depends on the
// output of Source.
type Edge struct {
	ID     string `json:"id"`
	Source string `json:"source" validate:"required"`
	Target string `json:"target" validate:"required"`
}

// Workflow is a named, user-owned directed graph of typed nodes.
type Workflow struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"     validate:"required,min=3"`
	OwnerID   string    `json:"owner_id"`
	Nodes     []*Node   `json:"nodes"`
	Edges     []*Edge   `json:"edges"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NodeByID returns the node with the given id, if present.
func (w *Workflow) NodeByID(id string) (*Node, bool) {
	for _, node := range w.Nodes {
		if node.ID == id {
			return node, true
		}
	}

	return nil, false
}

// Dependencies returns the ids of the nodes the given node depends on,
// in edge submission order.
func (w *Workflow) Dependencies(nodeID string) []string {
	deps := make([]string, 0)

	for _, edge := range w.Edges {
		if edge.Target == nodeID {
			deps = append(deps, edge.Source)
		}
	}

	return deps
}
