// Package project holds the nested project model and the store that owns it.
package project

import "errors"

// Node is a project in nested form. Nodes handed out by a Store are canonical:
// the same project keeps the same pointer across snapshots and reloads, so
// consumers may key derived state off node identity. Consumers must treat
// nodes as read-only and mutate through the Store.
type Node struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Expanded    bool    `json:"expanded"`
	Subprojects []*Node `json:"subprojects"`
}

// HasChildren reports whether the node has at least one subproject.
func (n *Node) HasChildren() bool {
	return len(n.Subprojects) > 0
}

// Identifier names one project in a subtree listing.
type Identifier struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// Patch is a partial update keyed by ID. Nil fields are left unchanged.
type Patch struct {
	ID       string
	Name     *string
	Expanded *bool
}

var (
	// ErrNotFound indicates an ID does not resolve to a known project.
	ErrNotFound = errors.New("project: not found")
	// ErrCycle indicates a move would place a project inside its own subtree.
	ErrCycle = errors.New("project: move would create a cycle")
	// ErrInvalidName indicates a project name that cannot be stored.
	ErrInvalidName = errors.New("project: invalid name")
	// ErrIndexOutOfRange indicates a sibling index outside the parent's children.
	ErrIndexOutOfRange = errors.New("project: index out of range")
)

// walk visits n and its descendants in pre-order.
func walk(n *Node, fn func(*Node)) {
	fn(n)
	for _, c := range n.Subprojects {
		walk(c, fn)
	}
}
