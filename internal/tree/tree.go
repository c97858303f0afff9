// Package tree projects a nested project tree into a flat, level-annotated
// sequence and keeps view expansion state in step with persisted project flags.
//
// The flat sequence is a pre-order traversal: a node immediately precedes its
// first child and its whole subtree occupies the contiguous run that follows
// it. Consumers rely on that contiguity to find a subtree from one index.
//
// Flatten requires an acyclic input. Stores enforce this on every move, so a
// cycle is a caller bug and is not detected here.
package tree

import "github.com/smileynet/projtree/internal/project"

// FlatNode is the render-ready projection of one project.
type FlatNode struct {
	ID         string
	Name       string
	Level      int
	Expandable bool
	Expanded   bool
}

// IdentityMap associates nested nodes with their flat projections in both
// directions, keyed by pointer identity.
type IdentityMap struct {
	toFlat   map[*project.Node]*FlatNode
	toNested map[*FlatNode]*project.Node
}

// NewIdentityMap returns an empty map.
func NewIdentityMap() *IdentityMap {
	return &IdentityMap{
		toFlat:   make(map[*project.Node]*FlatNode),
		toNested: make(map[*FlatNode]*project.Node),
	}
}

// Flat returns the flat node projected from n.
func (m *IdentityMap) Flat(n *project.Node) (*FlatNode, bool) {
	f, ok := m.toFlat[n]
	return f, ok
}

// Nested returns the nested node f was projected from.
func (m *IdentityMap) Nested(f *FlatNode) (*project.Node, bool) {
	n, ok := m.toNested[f]
	return n, ok
}

// Len returns the number of associations.
func (m *IdentityMap) Len() int {
	return len(m.toFlat)
}

func (m *IdentityMap) set(n *project.Node, f *FlatNode) {
	if prev, ok := m.toFlat[n]; ok && prev != f {
		delete(m.toNested, prev)
	}
	m.toFlat[n] = f
	m.toNested[f] = n
}

// Transform returns the flat node for n at the given level, registering the
// association in m. An existing projection is reused when its name still
// matches, so state keyed on the flat node survives refreshes; its Level and
// Expandable are brought up to date in place. Otherwise a new flat node is
// built from n's current fields.
func (m *IdentityMap) Transform(n *project.Node, level int) *FlatNode {
	return m.transform(m, n, level)
}

// transform looks up reuse candidates in prev and records into m.
func (m *IdentityMap) transform(prev *IdentityMap, n *project.Node, level int) *FlatNode {
	f, ok := prev.toFlat[n]
	if ok && f.Name == n.Name {
		f.Level = level
		f.Expandable = n.HasChildren()
	} else {
		f = &FlatNode{
			ID:         n.ID,
			Name:       n.Name,
			Level:      level,
			Expandable: n.HasChildren(),
			Expanded:   n.Expanded,
		}
	}
	m.set(n, f)
	return f
}

// Flattener turns nested trees into flat sequences. Each call to Flatten
// starts a new generation of the identity map: projections are reused from
// the previous generation, and nodes that left the tree are dropped.
type Flattener struct {
	ids *IdentityMap
}

// NewFlattener returns a Flattener with an empty identity map.
func NewFlattener() *Flattener {
	return &Flattener{ids: NewIdentityMap()}
}

// Identities returns the identity map of the current generation.
func (fl *Flattener) Identities() *IdentityMap {
	return fl.ids
}

// Flatten returns the pre-order projection of roots. Children are visited in
// their stored order.
func (fl *Flattener) Flatten(roots []*project.Node) []*FlatNode {
	prev := fl.ids
	next := NewIdentityMap()
	var out []*FlatNode
	var visit func(n *project.Node, level int)
	visit = func(n *project.Node, level int) {
		out = append(out, next.transform(prev, n, level))
		for _, c := range n.Subprojects {
			visit(c, level+1)
		}
	}
	for _, r := range roots {
		visit(r, 0)
	}
	fl.ids = next
	return out
}
