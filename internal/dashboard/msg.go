// Package dashboard implements the two-pane project tree TUI. The left pane
// renders the flattened tree from a workspace controller, the right pane shows
// the selected project, and modal overlays host delete confirmation and
// project creation.
package dashboard

import (
	"github.com/smileynet/projtree/internal/dialog"
	"github.com/smileynet/projtree/internal/project"
	"github.com/smileynet/projtree/internal/tree"
)

// Mode represents the current dashboard view mode.
type Mode int

const (
	ModeBrowse  Mode = iota // Navigating the tree.
	ModeConfirm             // Delete confirmation overlay is open.
	ModeCreate              // Project creation overlay is open.
)

// Focus represents which pane has keyboard focus.
type Focus int

const (
	PaneLeft  Focus = iota // Tree pane has focus.
	PaneRight              // Detail viewport has focus.
)

// Workspace is the controller the dashboard drives. It is satisfied by
// *workspace.Tree.
type Workspace interface {
	Visible() []*tree.FlatNode
	IsExpanded(n *tree.FlatNode) bool
	ActiveID() string
	Project(id string) (*project.Node, bool)
	ConfirmDialog() *dialog.Handle[dialog.ConfirmOptions, bool]
	CreateDialog() *dialog.Handle[dialog.CreateOptions, dialog.CreateResult]

	Toggle(n *tree.FlatNode)
	Select(id string) error
	SetContextTarget(id string)
	Delete() error
	AnswerConfirm(confirmed bool) error
	NewProject(parentID string)
	SubmitCreate(name string) (string, error)
	CancelCreate()
	Shift(id string, delta int) error
	MoveInto(id, newParent string) error
	Refresh() error
	ExpandAll()
	CollapseAll()
	Focus() error
	AddKnowledgeSource() error
}

// --- tea.Msg types ---

// StoreChangedMsg reports that the workspace file changed on disk.
// Model.Update reloads the store when it arrives.
type StoreChangedMsg struct{}

// WatchErrorMsg reports that file watching stopped.
type WatchErrorMsg struct {
	Err error
}
