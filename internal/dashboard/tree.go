package dashboard

import (
	"strings"

	"github.com/charmbracelet/x/ansi"

	"github.com/smileynet/projtree/internal/tree"
)

// Tree row decorations.
const (
	CursorMarker    = "> "
	ExpandedMarker  = "▾ "
	CollapsedMarker = "▸ "
	LeafMarker      = "  "
	ActiveMarker    = " ●"
	CutMarker       = " (cut)"
)

// treeView renders rows of the flattened tree.
type treeView struct {
	padding      int
	unnamedLabel string
}

// row renders one flat node. Indentation is level * padding columns.
func (tv treeView) row(n *tree.FlatNode, expanded, active, cut bool) string {
	var b strings.Builder
	b.WriteString(strings.Repeat(" ", n.Level*tv.padding))
	switch {
	case !n.Expandable:
		b.WriteString(LeafMarker)
	case expanded:
		b.WriteString(ExpandedMarker)
	default:
		b.WriteString(CollapsedMarker)
	}

	switch {
	case n.Name == "":
		b.WriteString(mutedText.Render(tv.unnamedLabel))
	case active:
		b.WriteString(activeText.Render(n.Name))
	default:
		b.WriteString(n.Name)
	}
	if active {
		b.WriteString(activeText.Render(ActiveMarker))
	}
	if cut {
		b.WriteString(mutedText.Render(CutMarker))
	}
	return b.String()
}

// window returns the [start, end) range of rows that fits height lines while
// keeping cursor on screen.
func window(total, cursor, height int) (start, end int) {
	if height <= 0 || total == 0 {
		return 0, 0
	}
	if total <= height {
		return 0, total
	}
	start = cursor - height + 1
	if start < 0 {
		start = 0
	}
	end = start + height
	if end > total {
		end = total
		start = end - height
	}
	return start, end
}

// View renders the visible rows for a pane of the given size.
func (tv treeView) View(m Model, width, height int) string {
	nodes := m.ws.Visible()
	if len(nodes) == 0 {
		return mutedText.Render("No projects. Press N to create one.")
	}

	active := m.ws.ActiveID()
	start, end := window(len(nodes), m.cursor, height)
	var b strings.Builder
	for i := start; i < end; i++ {
		n := nodes[i]
		if i > start {
			b.WriteByte('\n')
		}
		line := tv.row(n, m.ws.IsExpanded(n), n.ID == active, n.ID == m.cut)
		if i == m.cursor {
			b.WriteString(CursorMarker)
		} else {
			b.WriteString("  ")
		}
		if width > 2 {
			line = ansi.Truncate(line, width-2, "…")
		}
		if i == m.cursor && m.focus == PaneLeft {
			line = cursorLine.Render(line)
		}
		b.WriteString(line)
	}
	return b.String()
}
