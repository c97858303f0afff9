// Package workspace drives the project tree: it subscribes to the project
// store, keeps the flat projection and expansion state current, and runs the
// user flows (toggle, select, create, delete, move) against the store.
//
// A Tree is confined to one goroutine, normally the UI event loop. Store
// listeners fire synchronously on that goroutine.
package workspace

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/smileynet/projtree/internal/dialog"
	"github.com/smileynet/projtree/internal/project"
	"github.com/smileynet/projtree/internal/tree"
)

var (
	// ErrNoTarget indicates a context action without a context target.
	ErrNoTarget = errors.New("workspace: no target project")
	// ErrNotImplemented is returned by placeholder actions.
	ErrNotImplemented = errors.New("workspace: not implemented")
	// ErrNoDialog indicates an answer to a dialog that is not open.
	ErrNoDialog = errors.New("workspace: no open dialog")
)

// Delete confirmation texts.
const (
	DeleteTitle   = "Delete Project?"
	DeleteMessage = "Deleting a project will also delete all of its sub-projects. " +
		"Once you delete a project, you will not be able to recover it or any of its " +
		"associated data. Would you like to continue?"
	DeleteCancel  = "Cancel"
	DeleteConfirm = "Delete Permanently"
	DeleteAction  = "delete"
)

// Store is the project store the Tree reads and writes.
type Store interface {
	tree.Updater
	SubscribeTree(fn func([]*project.Node)) project.Subscription
	SubscribeCurrent(fn func(*project.Node)) project.Subscription
	SubTree(id string) []project.Identifier
	Locate(id string) (parentID string, index int, ok bool)
	Create(parentID, name string) (string, error)
	Delete(id string) error
	SetCurrent(id string) error
	SetAllExpanded(expanded bool)
	Refresh() error
	Transfer(fromParent, toParent string, from, to int) error
}

// Tree is the controller behind the project tree view.
type Tree struct {
	store   Store
	confirm *dialog.Confirm
	create  *dialog.Create
	log     *zap.Logger
	engine  *tree.Engine

	subs          []project.Subscription
	active        *project.Node
	contextTarget string
	flow          uint64
}

// Option configures a Tree.
type Option func(*Tree)

// WithLogger sets the diagnostics logger.
func WithLogger(l *zap.Logger) Option {
	return func(t *Tree) {
		if l != nil {
			t.log = l
		}
	}
}

// WithConfirmDialog sets the confirmation dialog service.
func WithConfirmDialog(c *dialog.Confirm) Option {
	return func(t *Tree) { t.confirm = c }
}

// WithCreateDialog sets the creation dialog service.
func WithCreateDialog(c *dialog.Create) Option {
	return func(t *Tree) { t.create = c }
}

// New returns a Tree over store. Call Start to begin receiving data.
func New(store Store, opts ...Option) *Tree {
	t := &Tree{
		store:   store,
		confirm: dialog.NewConfirm(),
		create:  dialog.NewCreate(),
		log:     zap.NewNop(),
		engine:  tree.NewEngine(),
	}
	for _, o := range opts {
		o(t)
	}
	return t
}

// Start subscribes to the store's tree and current-project streams.
func (t *Tree) Start() {
	if len(t.subs) > 0 {
		return
	}
	t.subs = append(t.subs,
		t.store.SubscribeTree(t.onTree),
		t.store.SubscribeCurrent(t.onCurrent),
	)
}

// Stop tears down the store subscriptions.
func (t *Tree) Stop() {
	for _, s := range t.subs {
		s.Unsubscribe()
	}
	t.subs = nil
}

func (t *Tree) onTree(roots []*project.Node) {
	t.engine.SetData(roots)
	t.engine.Sync(t.store)
}

func (t *Tree) onCurrent(n *project.Node) {
	t.active = n
}

// Nodes returns the full flat projection.
func (t *Tree) Nodes() []*tree.FlatNode {
	return t.engine.Control().Nodes()
}

// Visible returns the flat nodes not hidden by a collapsed ancestor.
func (t *Tree) Visible() []*tree.FlatNode {
	return t.engine.Control().Visible()
}

// Find returns the flat node with the given ID, or nil.
func (t *Tree) Find(id string) *tree.FlatNode {
	return t.engine.Find(id)
}

// IsExpanded reports whether n is expanded in the view.
func (t *Tree) IsExpanded(n *tree.FlatNode) bool {
	return t.engine.Control().IsExpanded(n)
}

// Active returns the current project, or nil.
func (t *Tree) Active() *project.Node {
	return t.active
}

// ActiveID returns the current project's ID, or "".
func (t *Tree) ActiveID() string {
	if t.active == nil {
		return ""
	}
	return t.active.ID
}

// Project resolves a project record by ID.
func (t *Tree) Project(id string) (*project.Node, bool) {
	return t.store.Get(id)
}

// ConfirmDialog returns the open confirmation dialog, or nil.
func (t *Tree) ConfirmDialog() *dialog.Handle[dialog.ConfirmOptions, bool] {
	return t.confirm.Current()
}

// CreateDialog returns the open creation dialog, or nil.
func (t *Tree) CreateDialog() *dialog.Handle[dialog.CreateOptions, dialog.CreateResult] {
	return t.create.Current()
}

// Toggle flips n's view expansion and persists it on the project record.
func (t *Tree) Toggle(n *tree.FlatNode) {
	if n == nil || !n.Expandable {
		return
	}
	t.engine.Control().Toggle(n)
	if !t.engine.Commit(n, t.store) {
		t.log.Error("toggle: project not found", zap.String("id", n.ID))
	}
}

// Select makes id the current project.
func (t *Tree) Select(id string) error {
	if err := t.store.SetCurrent(id); err != nil {
		t.log.Error("select project", zap.String("id", id), zap.Error(err))
		return err
	}
	return nil
}

// SetContextTarget records the project a context action applies to.
func (t *Tree) SetContextTarget(id string) {
	t.contextTarget = id
}

// ContextTarget returns the recorded context target.
func (t *Tree) ContextTarget() string {
	return t.contextTarget
}

// CollectSubtree lists what deleting id would remove: the project itself for
// a leaf, otherwise the store's pre-order listing of the subtree.
func (t *Tree) CollectSubtree(id string) ([]project.Identifier, error) {
	p, ok := t.store.Get(id)
	if !ok {
		return nil, fmt.Errorf("%w: %q", project.ErrNotFound, id)
	}
	if !p.HasChildren() {
		return []project.Identifier{{ID: p.ID, Title: p.Name}}, nil
	}
	return t.store.SubTree(id), nil
}

// Delete asks for confirmation and then deletes the context target together
// with its subtree. The target is consumed. An unresolved target aborts the
// flow before any dialog opens.
func (t *Tree) Delete() error {
	if t.contextTarget == "" {
		return ErrNoTarget
	}
	id := t.contextTarget
	t.contextTarget = ""
	flow := t.beginFlow()

	list, err := t.CollectSubtree(id)
	if err != nil {
		t.log.Error("delete: resolving project", zap.String("id", id), zap.Error(err))
		return err
	}
	t.log.Debug("delete: pending", zap.String("id", id), zap.Int("count", len(list)))

	h := t.confirm.Open(dialog.ConfirmOptions{
		Title:       DeleteTitle,
		Message:     DeleteMessage,
		CancelText:  DeleteCancel,
		ConfirmText: DeleteConfirm,
		List:        list,
		Action:      DeleteAction,
	})
	h.Subscribe(func(confirmed bool, err error) {
		if err != nil {
			t.logDialogError("delete", err)
			if !errors.Is(err, dialog.ErrSuperseded) {
				t.confirm.CloseAll()
			}
			return
		}
		if flow != t.flow {
			t.log.Warn("delete: ignoring stale confirmation", zap.String("id", id))
			return
		}
		if !confirmed {
			return
		}
		if err := t.store.Delete(id); err != nil {
			t.log.Error("delete project", zap.String("id", id), zap.Error(err))
		}
	})
	return nil
}

// AnswerConfirm resolves the open confirmation dialog.
func (t *Tree) AnswerConfirm(confirmed bool) error {
	if t.confirm.Current() == nil {
		return ErrNoDialog
	}
	t.confirm.Resolve(confirmed)
	return nil
}

// NewProject opens the creation dialog. A recorded context target takes
// precedence over parentID and is consumed. When the dialog yields a new
// project, it becomes the current project.
func (t *Tree) NewProject(parentID string) {
	if t.contextTarget != "" {
		parentID = t.contextTarget
		t.contextTarget = ""
	}
	flow := t.beginFlow()

	h := t.create.Open(dialog.CreateOptions{ParentID: parentID})
	h.Subscribe(func(res dialog.CreateResult, err error) {
		if err != nil {
			t.logDialogError("create", err)
			if !errors.Is(err, dialog.ErrSuperseded) {
				t.create.CloseAll()
			}
			return
		}
		t.log.Debug("create: dialog closed", zap.String("id", res.ID))
		if res.ID != "" && flow == t.flow {
			if err := t.store.SetCurrent(res.ID); err != nil {
				t.log.Error("create: selecting new project", zap.String("id", res.ID), zap.Error(err))
			}
		}
		t.create.CloseAll()
	})
}

// SubmitCreate creates a project named name under the open creation
// dialog's parent and resolves the dialog with its ID.
func (t *Tree) SubmitCreate(name string) (string, error) {
	h := t.create.Current()
	if h == nil {
		return "", ErrNoDialog
	}
	id, err := t.store.Create(h.Options().ParentID, name)
	if err != nil {
		t.create.Fail(err)
		return "", err
	}
	t.create.Resolve(dialog.CreateResult{ID: id})
	return id, nil
}

// CancelCreate dismisses the open creation dialog without a result.
func (t *Tree) CancelCreate() {
	if t.create.Current() != nil {
		t.create.Resolve(dialog.CreateResult{})
	}
}

// Drop moves the child at index from under fromParent to index to under
// toParent. Equal parents reorder siblings.
func (t *Tree) Drop(fromParent, toParent string, from, to int) error {
	if err := t.store.Transfer(fromParent, toParent, from, to); err != nil {
		t.log.Error("drop",
			zap.String("from_parent", fromParent),
			zap.String("to_parent", toParent),
			zap.Int("from", from),
			zap.Int("to", to),
			zap.Error(err))
		return err
	}
	return nil
}

// Shift moves project id by delta positions among its siblings.
func (t *Tree) Shift(id string, delta int) error {
	parent, idx, ok := t.store.Locate(id)
	if !ok {
		t.log.Error("shift: project not found", zap.String("id", id))
		return fmt.Errorf("%w: %q", project.ErrNotFound, id)
	}
	to := idx + delta
	if to < 0 {
		to = 0
	}
	return t.Drop(parent, parent, idx, to)
}

// MoveInto moves project id to the end of newParent's children. An empty
// newParent moves it to the top level.
func (t *Tree) MoveInto(id, newParent string) error {
	parent, idx, ok := t.store.Locate(id)
	if !ok {
		t.log.Error("move: project not found", zap.String("id", id))
		return fmt.Errorf("%w: %q", project.ErrNotFound, id)
	}
	end := t.rootCount()
	if newParent != "" {
		p, ok := t.store.Get(newParent)
		if !ok {
			t.log.Error("move: target not found", zap.String("id", newParent))
			return fmt.Errorf("%w: %q", project.ErrNotFound, newParent)
		}
		end = len(p.Subprojects)
	}
	return t.Drop(parent, newParent, idx, end)
}

func (t *Tree) rootCount() int {
	n := 0
	for _, f := range t.Nodes() {
		if f.Level == 0 {
			n++
		}
	}
	return n
}

// Refresh asks the store to reload.
func (t *Tree) Refresh() error {
	if err := t.store.Refresh(); err != nil {
		t.log.Error("refresh", zap.Error(err))
		return err
	}
	return nil
}

// ExpandAll expands every node and persists the flag on every project.
func (t *Tree) ExpandAll() {
	t.engine.Control().ExpandAll()
	t.store.SetAllExpanded(true)
}

// CollapseAll collapses every node and persists the flag on every project.
func (t *Tree) CollapseAll() {
	t.engine.Control().CollapseAll()
	t.store.SetAllExpanded(false)
}

// Focus is a placeholder; it performs no mutation.
func (t *Tree) Focus() error {
	t.log.Error("focus not implemented")
	return ErrNotImplemented
}

// AddKnowledgeSource is a placeholder; it performs no mutation.
func (t *Tree) AddKnowledgeSource() error {
	t.log.Error("add knowledge source not implemented")
	return ErrNotImplemented
}

// beginFlow starts a new delete/create flow, invalidating older ones.
func (t *Tree) beginFlow() uint64 {
	t.flow++
	return t.flow
}

func (t *Tree) logDialogError(flow string, err error) {
	if errors.Is(err, dialog.ErrSuperseded) || errors.Is(err, dialog.ErrClosed) {
		t.log.Debug(flow+": dialog dismissed", zap.Error(err))
		return
	}
	t.log.Error(flow+": dialog failed", zap.Error(err))
}
