package project

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/smileynet/projtree/internal/dragdrop"
)

// fileVersion is the current schema version of the workspace file.
const fileVersion = 1

// workspaceFile is the on-disk form of a Store.
type workspaceFile struct {
	Version  int     `json:"version"`
	Current  string  `json:"current,omitempty"`
	Projects []*Node `json:"projects"`
}

// Subscription is a handle to a registered store listener.
type Subscription interface {
	Unsubscribe()
}

type subscription struct {
	once   sync.Once
	cancel func()
}

func (s *subscription) Unsubscribe() {
	s.once.Do(s.cancel)
}

// Store owns the project tree and persists it as a JSON workspace file.
// An empty path keeps the tree in memory only.
//
// Listeners are invoked synchronously on the goroutine that performed the
// mutation, after the store's lock has been released.
type Store struct {
	mu        sync.Mutex
	path      string
	log       *zap.Logger
	roots     []*Node
	index     map[string]*Node
	parents   map[string]*Node // nil value for roots
	currentID string

	nextSub     uint64
	treeSubs    map[uint64]func([]*Node)
	currentSubs map[uint64]func(*Node)
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger used for persistence diagnostics.
func WithLogger(l *zap.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.log = l
		}
	}
}

// NewStore returns an empty store. Use Open to load a workspace file.
func NewStore(path string, opts ...Option) *Store {
	s := &Store{
		path:        path,
		log:         zap.NewNop(),
		index:       make(map[string]*Node),
		parents:     make(map[string]*Node),
		treeSubs:    make(map[uint64]func([]*Node)),
		currentSubs: make(map[uint64]func(*Node)),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Open creates a store backed by path and loads it. A missing file yields an
// empty workspace.
func Open(path string, opts ...Option) (*Store, error) {
	s := NewStore(path, opts...)
	wf, err := s.read()
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.replace(wf)
	s.mu.Unlock()
	return s, nil
}

// Path returns the backing file path, or "" for an in-memory store.
func (s *Store) Path() string {
	return s.path
}

// SubscribeTree registers fn to receive the root slice now and after every
// change to the tree.
func (s *Store) SubscribeTree(fn func([]*Node)) Subscription {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.treeSubs[id] = fn
	roots := s.roots
	s.mu.Unlock()

	fn(roots)
	return &subscription{cancel: func() {
		s.mu.Lock()
		delete(s.treeSubs, id)
		s.mu.Unlock()
	}}
}

// SubscribeCurrent registers fn to receive the active project whenever it
// changes. If a project is already active, fn receives it immediately. A nil
// node means the active project was removed.
func (s *Store) SubscribeCurrent(fn func(*Node)) Subscription {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.currentSubs[id] = fn
	cur := s.index[s.currentID]
	s.mu.Unlock()

	if cur != nil {
		fn(cur)
	}
	return &subscription{cancel: func() {
		s.mu.Lock()
		delete(s.currentSubs, id)
		s.mu.Unlock()
	}}
}

// Roots returns the top-level projects.
func (s *Store) Roots() []*Node {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.roots
}

// Get returns the project with the given ID.
func (s *Store) Get(id string) (*Node, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.index[id]
	return n, ok
}

// Current returns the active project, or nil if none is set.
func (s *Store) Current() *Node {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.index[s.currentID]
}

// Locate returns the parent ID ("" for roots) and sibling index of a project.
func (s *Store) Locate(id string) (parentID string, index int, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, found := s.index[id]
	if !found {
		return "", 0, false
	}
	siblings := s.roots
	if p := s.parents[id]; p != nil {
		parentID = p.ID
		siblings = p.Subprojects
	}
	for i, c := range siblings {
		if c == n {
			return parentID, i, true
		}
	}
	return "", 0, false
}

// SubTree lists the project and all of its descendants in pre-order.
// It returns nil for an unknown ID.
func (s *Store) SubTree(id string) []Identifier {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.index[id]
	if !ok {
		return nil
	}
	var out []Identifier
	walk(n, func(c *Node) {
		out = append(out, Identifier{ID: c.ID, Title: c.Name})
	})
	return out
}

// Update applies a partial update. It is fire-and-forget: an unknown ID or a
// failed save is logged rather than returned.
func (s *Store) Update(p Patch) {
	s.mu.Lock()
	n, ok := s.index[p.ID]
	if !ok {
		s.mu.Unlock()
		s.log.Warn("update for unknown project", zap.String("id", p.ID))
		return
	}
	if p.Name != nil {
		n.Name = *p.Name
	}
	if p.Expanded != nil {
		n.Expanded = *p.Expanded
	}
	err := s.saveLocked()
	s.mu.Unlock()

	if err != nil {
		s.log.Error("saving project update", zap.String("id", p.ID), zap.Error(err))
	}
	s.emitTree()
}

// Create adds a project under parentID ("" for a new root) and returns its ID.
func (s *Store) Create(parentID, name string) (string, error) {
	name = strings.TrimSpace(name)
	if strings.ContainsAny(name, "\r\n") {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
	}

	s.mu.Lock()
	siblings, parent, err := s.childrenLocked(parentID)
	if err != nil {
		s.mu.Unlock()
		return "", err
	}
	n := &Node{ID: uuid.NewString(), Name: name, Subprojects: []*Node{}}
	*siblings = append(*siblings, n)
	s.index[n.ID] = n
	s.parents[n.ID] = parent
	err = s.saveLocked()
	s.mu.Unlock()

	if err != nil {
		return "", err
	}
	s.emitTree()
	return n.ID, nil
}

// Delete removes a project together with all of its descendants.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	n, ok := s.index[id]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("%w: %q", ErrNotFound, id)
	}
	siblings := &s.roots
	if p := s.parents[id]; p != nil {
		siblings = &p.Subprojects
	}
	for i, c := range *siblings {
		if c == n {
			*siblings = append((*siblings)[:i], (*siblings)[i+1:]...)
			break
		}
	}
	currentRemoved := false
	walk(n, func(c *Node) {
		delete(s.index, c.ID)
		delete(s.parents, c.ID)
		if c.ID == s.currentID {
			s.currentID = ""
			currentRemoved = true
		}
	})
	err := s.saveLocked()
	s.mu.Unlock()

	if err != nil {
		return err
	}
	s.emitTree()
	if currentRemoved {
		s.emitCurrent(nil)
	}
	return nil
}

// SetCurrent makes id the active project.
func (s *Store) SetCurrent(id string) error {
	s.mu.Lock()
	n, ok := s.index[id]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("%w: %q", ErrNotFound, id)
	}
	s.currentID = id
	err := s.saveLocked()
	s.mu.Unlock()

	if err != nil {
		return err
	}
	s.emitCurrent(n)
	return nil
}

// SetAllExpanded sets the persisted expansion flag of every project.
func (s *Store) SetAllExpanded(expanded bool) {
	s.mu.Lock()
	for _, n := range s.index {
		n.Expanded = expanded
	}
	err := s.saveLocked()
	s.mu.Unlock()

	if err != nil {
		s.log.Error("saving expansion state", zap.Bool("expanded", expanded), zap.Error(err))
	}
	s.emitTree()
}

// Refresh reloads the workspace file and re-emits the tree. Projects that
// still exist keep their node identity. An in-memory store only re-emits.
func (s *Store) Refresh() error {
	if s.path == "" {
		s.emitTree()
		return nil
	}
	wf, err := s.read()
	if err != nil {
		return err
	}
	s.mu.Lock()
	prevCurrent := s.currentID
	s.replace(wf)
	cur := s.index[s.currentID]
	changed := prevCurrent != s.currentID
	s.mu.Unlock()

	s.emitTree()
	if changed {
		s.emitCurrent(cur)
	}
	return nil
}

// Reorder moves the child at index from to index to within one parent.
func (s *Store) Reorder(parentID string, from, to int) error {
	return s.Transfer(parentID, parentID, from, to)
}

// Transfer moves the child at index from under fromParent to index to under
// toParent. Equal parents reorder in place.
func (s *Store) Transfer(fromParent, toParent string, from, to int) error {
	s.mu.Lock()
	src, _, err := s.childrenLocked(fromParent)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	dst, dstParent, err := s.childrenLocked(toParent)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	if from < 0 || from >= len(*src) {
		s.mu.Unlock()
		return fmt.Errorf("%w: %d of %d", ErrIndexOutOfRange, from, len(*src))
	}
	moved := (*src)[from]
	if dstParent != nil && s.isWithinLocked(dstParent, moved) {
		s.mu.Unlock()
		return fmt.Errorf("%w: %q into %q", ErrCycle, moved.ID, dstParent.ID)
	}

	dragdrop.Drop(dragdrop.Event[*Node]{
		Previous:      src,
		Current:       dst,
		PreviousIndex: from,
		CurrentIndex:  to,
	})
	s.parents[moved.ID] = dstParent
	err = s.saveLocked()
	s.mu.Unlock()

	if err != nil {
		return err
	}
	s.emitTree()
	return nil
}

// Move places project id under toParent at index.
func (s *Store) Move(id, toParent string, index int) error {
	parentID, from, ok := s.Locate(id)
	if !ok {
		return fmt.Errorf("%w: %q", ErrNotFound, id)
	}
	return s.Transfer(parentID, toParent, from, index)
}

// childrenLocked returns the address of the child slice of parentID and the
// parent node itself (nil for the root list).
func (s *Store) childrenLocked(parentID string) (*[]*Node, *Node, error) {
	if parentID == "" {
		return &s.roots, nil, nil
	}
	p, ok := s.index[parentID]
	if !ok {
		return nil, nil, fmt.Errorf("%w: %q", ErrNotFound, parentID)
	}
	return &p.Subprojects, p, nil
}

// isWithinLocked reports whether n is ancestor itself or one of its descendants.
func (s *Store) isWithinLocked(n, ancestor *Node) bool {
	for cur := n; cur != nil; cur = s.parents[cur.ID] {
		if cur == ancestor {
			return true
		}
	}
	return false
}

// replace installs wf as the store content, reusing existing nodes by ID.
func (s *Store) replace(wf workspaceFile) {
	old := s.index
	s.index = make(map[string]*Node, len(old))
	s.parents = make(map[string]*Node, len(old))
	s.roots = s.reconcile(wf.Projects, nil, old)
	s.currentID = ""
	if _, ok := s.index[wf.Current]; ok {
		s.currentID = wf.Current
	}
}

func (s *Store) reconcile(nodes []*Node, parent *Node, old map[string]*Node) []*Node {
	out := make([]*Node, 0, len(nodes))
	for _, n := range nodes {
		if n == nil || n.ID == "" {
			continue
		}
		if _, dup := s.index[n.ID]; dup {
			s.log.Warn("duplicate project id in workspace file", zap.String("id", n.ID))
			continue
		}
		node := old[n.ID]
		if node == nil {
			node = &Node{ID: n.ID}
		}
		node.Name = n.Name
		node.Expanded = n.Expanded
		s.index[node.ID] = node
		s.parents[node.ID] = parent
		node.Subprojects = s.reconcile(n.Subprojects, node, old)
		out = append(out, node)
	}
	return out
}

func (s *Store) read() (workspaceFile, error) {
	wf := workspaceFile{Version: fileVersion}
	if s.path == "" {
		return wf, nil
	}
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return wf, nil
		}
		return wf, fmt.Errorf("project: reading %s: %w", s.path, err)
	}
	if len(data) == 0 {
		return wf, nil
	}
	if err := json.Unmarshal(data, &wf); err != nil {
		return wf, fmt.Errorf("project: parsing %s: %w", s.path, err)
	}
	if wf.Version > fileVersion {
		return wf, fmt.Errorf("project: %s has unsupported version %d", s.path, wf.Version)
	}
	return wf, nil
}

// saveLocked writes the workspace atomically via a temp file and rename.
func (s *Store) saveLocked() error {
	if s.path == "" {
		return nil
	}
	wf := workspaceFile{Version: fileVersion, Current: s.currentID, Projects: s.roots}
	data, err := json.MarshalIndent(wf, "", "  ")
	if err != nil {
		return fmt.Errorf("project: marshaling: %w", err)
	}
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("project: creating directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".projects-*.json")
	if err != nil {
		return fmt.Errorf("project: creating temp file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("project: writing %s: %w", tmp.Name(), err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("project: closing %s: %w", tmp.Name(), err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("project: writing %s: %w", s.path, err)
	}
	return nil
}

func (s *Store) emitTree() {
	s.mu.Lock()
	roots := s.roots
	subs := make([]func([]*Node), 0, len(s.treeSubs))
	for _, fn := range s.treeSubs {
		subs = append(subs, fn)
	}
	s.mu.Unlock()

	for _, fn := range subs {
		fn(roots)
	}
}

func (s *Store) emitCurrent(n *Node) {
	s.mu.Lock()
	subs := make([]func(*Node), 0, len(s.currentSubs))
	for _, fn := range s.currentSubs {
		subs = append(subs, fn)
	}
	s.mu.Unlock()

	for _, fn := range subs {
		fn(n)
	}
}
