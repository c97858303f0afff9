package tree

import "github.com/smileynet/projtree/internal/project"

// Lookup resolves persisted project records by ID.
type Lookup interface {
	Get(id string) (*project.Node, bool)
}

// Updater is a Lookup that also accepts partial updates.
type Updater interface {
	Lookup
	Update(p project.Patch)
}

// Engine combines the flattener and the view expansion state.
type Engine struct {
	flattener *Flattener
	control   *Control
}

// NewEngine returns an Engine with no data.
func NewEngine() *Engine {
	return &Engine{
		flattener: NewFlattener(),
		control:   NewControl(),
	}
}

// Control returns the view expansion state.
func (e *Engine) Control() *Control {
	return e.control
}

// Identities returns the current identity map generation.
func (e *Engine) Identities() *IdentityMap {
	return e.flattener.Identities()
}

// SetData flattens roots and installs the result as the current sequence.
func (e *Engine) SetData(roots []*project.Node) []*FlatNode {
	nodes := e.flattener.Flatten(roots)
	e.control.SetNodes(nodes)
	return nodes
}

// Find returns the flat node for id in the current sequence.
func (e *Engine) Find(id string) *FlatNode {
	for _, n := range e.control.Nodes() {
		if n.ID == id {
			return n
		}
	}
	return nil
}

// Sync expands every flat node whose persisted record is expanded. Nodes
// whose ID does not resolve are left as they are. It returns the number of
// nodes it expanded.
func (e *Engine) Sync(records Lookup) int {
	expanded := 0
	for _, n := range e.control.Nodes() {
		rec, ok := records.Get(n.ID)
		if !ok || !rec.Expanded {
			continue
		}
		n.Expanded = true
		e.control.Expand(n)
		expanded++
	}
	return expanded
}

// Commit writes the view expansion of n back to its persisted record. It
// reports false when n's ID does not resolve, in which case nothing is sent.
func (e *Engine) Commit(n *FlatNode, store Updater) bool {
	n.Expanded = e.control.IsExpanded(n)
	if _, ok := store.Get(n.ID); !ok {
		return false
	}
	expanded := n.Expanded
	store.Update(project.Patch{ID: n.ID, Expanded: &expanded})
	return true
}
