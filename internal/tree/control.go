package tree

// Control tracks which flat nodes are expanded in the view. State is keyed by
// flat node identity, so it carries over whenever the flattener reuses a node.
// It is not safe for concurrent use.
type Control struct {
	nodes    []*FlatNode
	expanded map[*FlatNode]struct{}
}

// NewControl returns a Control with no nodes.
func NewControl() *Control {
	return &Control{expanded: make(map[*FlatNode]struct{})}
}

// SetNodes replaces the flat sequence. Expansion state of nodes that are no
// longer present is discarded.
func (c *Control) SetNodes(nodes []*FlatNode) {
	present := make(map[*FlatNode]struct{}, len(nodes))
	for _, n := range nodes {
		present[n] = struct{}{}
	}
	for n := range c.expanded {
		if _, ok := present[n]; !ok {
			delete(c.expanded, n)
		}
	}
	c.nodes = nodes
}

// Nodes returns the full flat sequence.
func (c *Control) Nodes() []*FlatNode {
	return c.nodes
}

// IsExpanded reports whether n is expanded in the view.
func (c *Control) IsExpanded(n *FlatNode) bool {
	_, ok := c.expanded[n]
	return ok
}

// Expand marks n expanded.
func (c *Control) Expand(n *FlatNode) {
	c.expanded[n] = struct{}{}
}

// Collapse marks n collapsed.
func (c *Control) Collapse(n *FlatNode) {
	delete(c.expanded, n)
}

// Toggle flips the expansion of n and returns the new state.
func (c *Control) Toggle(n *FlatNode) bool {
	if c.IsExpanded(n) {
		c.Collapse(n)
		return false
	}
	c.Expand(n)
	return true
}

// ExpandAll expands every node in the sequence.
func (c *Control) ExpandAll() {
	for _, n := range c.nodes {
		c.expanded[n] = struct{}{}
	}
}

// CollapseAll collapses every node.
func (c *Control) CollapseAll() {
	clear(c.expanded)
}

// IndexOf returns the position of n in the sequence, or -1.
func (c *Control) IndexOf(n *FlatNode) int {
	for i, x := range c.nodes {
		if x == n {
			return i
		}
	}
	return -1
}

// Descendants returns the contiguous run of nodes below n.
func (c *Control) Descendants(n *FlatNode) []*FlatNode {
	start := c.IndexOf(n)
	if start < 0 {
		return nil
	}
	end := start + 1
	for end < len(c.nodes) && c.nodes[end].Level > n.Level {
		end++
	}
	return c.nodes[start+1 : end]
}

// Parent returns the nearest preceding node one level up, or nil for roots.
func (c *Control) Parent(n *FlatNode) *FlatNode {
	start := c.IndexOf(n)
	for i := start - 1; i >= 0; i-- {
		if c.nodes[i].Level < n.Level {
			return c.nodes[i]
		}
	}
	return nil
}

// Visible returns the nodes whose ancestors are all expanded.
func (c *Control) Visible() []*FlatNode {
	out := make([]*FlatNode, 0, len(c.nodes))
	// hideBelow is the level of the collapsed node being skipped, or -1.
	hideBelow := -1
	for _, n := range c.nodes {
		if hideBelow >= 0 {
			if n.Level > hideBelow {
				continue
			}
			hideBelow = -1
		}
		out = append(out, n)
		if n.Expandable && !c.IsExpanded(n) {
			hideBelow = n.Level
		}
	}
	return out
}
