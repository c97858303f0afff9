package dashboard

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/smileynet/projtree/internal/tree"
)

// helpBarHeight is the number of lines reserved for the help bar at the bottom.
const helpBarHeight = 1

// statusBarHeight is the number of lines reserved for the status line.
const statusBarHeight = 1

// borderChrome is the number of lines consumed by top + bottom borders.
const borderChrome = 2

// maxOverlayWidth caps the width of modal dialogs.
const maxOverlayWidth = 72

// Model is the root Bubble Tea model for the dashboard TUI.
// It manages a two-pane layout with mode-based routing and focus management.
type Model struct {
	ws       Workspace
	tv       treeView
	mode     Mode
	focus    Focus
	width    int
	height   int
	cursor   int
	cursorID string
	cut      string // project ID waiting to be pasted

	status    string
	statusErr bool

	confirm  confirmState
	create   createState
	viewport viewport.Model
	help     help.Model
	keys     browseKeys
	dlgKeys  confirmKeys
	newKeys  createKeys
}

// Option configures a Model.
type Option func(*Model)

// WithTreePadding sets the indentation per tree level, in columns.
func WithTreePadding(n int) Option {
	return func(m *Model) {
		if n >= 0 {
			m.tv.padding = n
		}
	}
}

// WithUnnamedLabel sets the placeholder shown for projects without a name.
func WithUnnamedLabel(s string) Option {
	return func(m *Model) {
		if s != "" {
			m.tv.unnamedLabel = s
		}
	}
}

// NewModel creates a dashboard Model in browse mode with left-pane focus.
// ws should already be started so the first frame has data.
func NewModel(ws Workspace, opts ...Option) Model {
	m := Model{
		ws:       ws,
		tv:       treeView{padding: 2, unnamedLabel: "(unnamed)"},
		mode:     ModeBrowse,
		focus:    PaneLeft,
		viewport: viewport.New(0, 0),
		help:     help.New(),
		keys:     BrowseKeyMap(),
		dlgKeys:  ConfirmKeyMap(),
		newKeys:  CreateKeyMap(),
	}
	for _, o := range opts {
		o(&m)
	}
	m.syncCursor()
	return m
}

// Init returns the initial command.
func (m Model) Init() tea.Cmd {
	return nil
}

// Update handles incoming messages with mode-based routing.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		_, rightWidth := PaneWidths(msg.Width)
		vpWidth := rightWidth - borderChrome
		if vpWidth < 0 {
			vpWidth = 0
		}
		m.viewport.Width = vpWidth
		m.viewport.Height = m.contentHeight()
		m.syncCursor()
		return m, nil

	case StoreChangedMsg:
		if err := m.ws.Refresh(); err != nil {
			m.fail(fmt.Errorf("reload: %w", err))
		}
		m.syncCursor()
		return m, nil

	case WatchErrorMsg:
		m.fail(fmt.Errorf("watch: %w", msg.Err))
		return m, nil

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			return m, tea.Quit
		}
		switch m.mode {
		case ModeConfirm:
			return m.handleConfirmKey(msg)
		case ModeCreate:
			return m.handleCreateKey(msg)
		}
		return m.handleKey(msg)
	}

	if m.mode == ModeCreate {
		var cmd tea.Cmd
		m.create.input, cmd = m.create.input.Update(msg)
		return m, cmd
	}
	return m, nil
}

// handleKey processes browse mode keys.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	k := m.keys
	switch {
	case key.Matches(msg, k.Quit):
		return m, tea.Quit
	case key.Matches(msg, k.Tab):
		if m.focus == PaneLeft {
			m.focus = PaneRight
		} else {
			m.focus = PaneLeft
		}
		return m, nil
	}

	if m.focus == PaneRight {
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}

	m.info("")
	sel := m.selected()
	switch {
	case key.Matches(msg, k.Up):
		m.moveCursor(-1)
	case key.Matches(msg, k.Down):
		m.moveCursor(1)
	case key.Matches(msg, k.Select):
		if sel != nil {
			m.report(m.ws.Select(sel.ID))
		}
	case key.Matches(msg, k.Toggle):
		m.ws.Toggle(sel)
	case key.Matches(msg, k.Expand):
		if sel != nil && sel.Expandable && !m.ws.IsExpanded(sel) {
			m.ws.Toggle(sel)
		}
	case key.Matches(msg, k.Collapse):
		if sel != nil && sel.Expandable && m.ws.IsExpanded(sel) {
			m.ws.Toggle(sel)
		} else {
			m.cursorToParent()
		}
	case key.Matches(msg, k.NewChild):
		if sel != nil {
			m.ws.SetContextTarget(sel.ID)
		}
		return m.openCreate()
	case key.Matches(msg, k.NewRoot):
		return m.openCreate()
	case key.Matches(msg, k.Delete):
		if sel != nil {
			m.openConfirm(sel.ID)
		}
	case key.Matches(msg, k.ExpandAll):
		m.ws.ExpandAll()
	case key.Matches(msg, k.CollapseAll):
		m.ws.CollapseAll()
	case key.Matches(msg, k.Refresh):
		m.report(m.ws.Refresh())
	case key.Matches(msg, k.ShiftUp):
		if sel != nil {
			m.report(m.ws.Shift(sel.ID, -1))
		}
	case key.Matches(msg, k.ShiftDown):
		if sel != nil {
			m.report(m.ws.Shift(sel.ID, 1))
		}
	case key.Matches(msg, k.Cut):
		if sel != nil {
			m.cut = sel.ID
			m.info("cut " + m.displayName(sel.Name) + "; p pastes into the selection, P at top level")
		}
	case key.Matches(msg, k.Paste):
		if sel != nil {
			m.paste(sel.ID)
		}
	case key.Matches(msg, k.PasteRoot):
		m.paste("")
	case key.Matches(msg, k.Focus):
		m.report(m.ws.Focus())
	case key.Matches(msg, k.AddSource):
		m.report(m.ws.AddKnowledgeSource())
	}

	m.syncCursor()
	return m, nil
}

// handleConfirmKey processes keys while the confirmation overlay is open.
func (m Model) handleConfirmKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	k := m.dlgKeys
	switch {
	case key.Matches(msg, k.Switch):
		m.confirm.confirm = !m.confirm.confirm
	case key.Matches(msg, k.Accept):
		m.answer(m.confirm.confirm)
	case key.Matches(msg, k.Confirm):
		m.answer(true)
	case key.Matches(msg, k.Cancel):
		m.answer(false)
	}
	return m, nil
}

// handleCreateKey processes keys while the creation overlay is open.
func (m Model) handleCreateKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	k := m.newKeys
	switch {
	case key.Matches(msg, k.Cancel):
		m.ws.CancelCreate()
		m.mode = ModeBrowse
		m.syncCursor()
		return m, nil
	case key.Matches(msg, k.Submit):
		id, err := m.ws.SubmitCreate(m.create.input.Value())
		m.mode = ModeBrowse
		if err != nil {
			m.fail(err)
		} else {
			m.cursorID = id
			m.info("created " + m.displayName(strings.TrimSpace(m.create.input.Value())))
		}
		m.syncCursor()
		return m, nil
	}

	var cmd tea.Cmd
	m.create.input, cmd = m.create.input.Update(msg)
	return m, cmd
}

func (m *Model) openCreate() (tea.Model, tea.Cmd) {
	m.ws.NewProject("")
	h := m.ws.CreateDialog()
	if h == nil {
		return *m, nil
	}
	var parent string
	if id := h.Options().ParentID; id != "" {
		if p, ok := m.ws.Project(id); ok {
			parent = m.displayName(p.Name)
		}
	}
	m.create = createState{input: newCreateInput(), parent: parent}
	m.mode = ModeCreate
	cmd := m.create.input.Focus()
	return *m, cmd
}

func (m *Model) openConfirm(id string) {
	m.ws.SetContextTarget(id)
	if err := m.ws.Delete(); err != nil {
		m.fail(err)
		return
	}
	h := m.ws.ConfirmDialog()
	if h == nil {
		return
	}
	m.confirm = confirmState{opts: h.Options(), unnamed: m.tv.unnamedLabel}
	m.mode = ModeConfirm
}

func (m *Model) answer(confirmed bool) {
	m.mode = ModeBrowse
	if err := m.ws.AnswerConfirm(confirmed); err != nil {
		m.fail(err)
	} else if confirmed {
		m.info(fmt.Sprintf("deleted %d project(s)", len(m.confirm.opts.List)))
	}
	m.syncCursor()
}

func (m *Model) paste(parentID string) {
	if m.cut == "" {
		m.info("nothing to paste")
		return
	}
	if err := m.ws.MoveInto(m.cut, parentID); err != nil {
		m.fail(err)
		return
	}
	m.cut = ""
	m.info("moved")
}

// report shows err on the status line when it is non-nil.
func (m *Model) report(err error) {
	if err != nil {
		m.fail(err)
	}
}

func (m *Model) info(s string) {
	m.status = s
	m.statusErr = false
}

func (m *Model) fail(err error) {
	m.status = err.Error()
	m.statusErr = true
}

func (m Model) displayName(name string) string {
	if name == "" {
		return m.tv.unnamedLabel
	}
	return name
}

// selected returns the flat node under the cursor, or nil.
func (m Model) selected() *tree.FlatNode {
	nodes := m.ws.Visible()
	if m.cursor < 0 || m.cursor >= len(nodes) {
		return nil
	}
	return nodes[m.cursor]
}

// SelectedID returns the project ID under the cursor, or "".
func (m Model) SelectedID() string {
	return m.cursorID
}

// moveCursor moves the cursor by delta rows, wrapping at both ends.
func (m *Model) moveCursor(delta int) {
	nodes := m.ws.Visible()
	if len(nodes) == 0 {
		return
	}
	m.cursor = (m.cursor + delta + len(nodes)) % len(nodes)
	m.cursorID = nodes[m.cursor].ID
}

// cursorToParent moves the cursor to the nearest visible row one level up.
func (m *Model) cursorToParent() {
	nodes := m.ws.Visible()
	if m.cursor <= 0 || m.cursor >= len(nodes) {
		return
	}
	level := nodes[m.cursor].Level
	for i := m.cursor - 1; i >= 0; i-- {
		if nodes[i].Level < level {
			m.cursor = i
			m.cursorID = nodes[i].ID
			return
		}
	}
}

// syncCursor keeps the cursor on the same project across data changes,
// falling back to the nearest row when that project is no longer visible.
func (m *Model) syncCursor() {
	nodes := m.ws.Visible()
	found := false
	for i, n := range nodes {
		if n.ID == m.cursorID {
			m.cursor = i
			found = true
			break
		}
	}
	if !found {
		if m.cursor >= len(nodes) {
			m.cursor = len(nodes) - 1
		}
		if m.cursor < 0 {
			m.cursor = 0
		}
		m.cursorID = ""
		if len(nodes) > 0 {
			m.cursorID = nodes[m.cursor].ID
		}
	}
	m.viewport.SetContent(m.detail())
}

// detail renders the right pane content for the selected project.
func (m Model) detail() string {
	if m.cursorID == "" {
		return mutedText.Render("Select a project")
	}
	p, ok := m.ws.Project(m.cursorID)
	if !ok {
		return mutedText.Render("Project not found")
	}

	var b strings.Builder
	if p.Name == "" {
		b.WriteString(mutedText.Render(m.tv.unnamedLabel))
	} else {
		b.WriteString(titleText.Render(p.Name))
	}
	if p.ID == m.ws.ActiveID() {
		b.WriteString(activeText.Render(ActiveMarker + " active"))
	}
	fmt.Fprintf(&b, "\n\nID:           %s", p.ID)
	fmt.Fprintf(&b, "\nSub-projects: %d", len(p.Subprojects))
	if p.HasChildren() {
		state := "collapsed"
		if p.Expanded {
			state = "expanded"
		}
		fmt.Fprintf(&b, "\nState:        %s", state)
		b.WriteString("\n")
		for _, c := range p.Subprojects {
			fmt.Fprintf(&b, "\n  • %s", m.displayName(c.Name))
		}
	}
	return b.String()
}

// contentHeight returns the usable height for pane content,
// accounting for border chrome, the status line, and the help bar.
func (m Model) contentHeight() int {
	h := m.height - borderChrome - helpBarHeight - statusBarHeight
	if h < 1 {
		return 1
	}
	return h
}

// View renders the two-pane layout, or the open overlay, with help bar.
func (m Model) View() string {
	if m.width == 0 || m.height == 0 {
		return "Initializing..."
	}

	helpView := m.help.View(HelpBindings(m.mode))

	if m.mode != ModeBrowse {
		w := m.width - 4
		if w > maxOverlayWidth {
			w = maxOverlayWidth
		}
		var body string
		if m.mode == ModeConfirm {
			body = m.confirm.View(w)
		} else {
			body = m.create.View()
		}
		box := OverlayBorder().Width(w).Render(body)
		placed := lipgloss.Place(m.width, m.height-helpBarHeight, lipgloss.Center, lipgloss.Center, box)
		return lipgloss.JoinVertical(lipgloss.Left, placed, helpView)
	}

	leftWidth, rightWidth := PaneWidths(m.width)
	contentHeight := m.contentHeight()

	var leftStyle, rightStyle lipgloss.Style
	if m.focus == PaneLeft {
		leftStyle = FocusedBorder()
		rightStyle = UnfocusedBorder()
	} else {
		leftStyle = UnfocusedBorder()
		rightStyle = FocusedBorder()
	}

	leftStyle = leftStyle.
		Width(leftWidth - borderChrome).
		Height(contentHeight)
	rightStyle = rightStyle.
		Width(rightWidth - borderChrome).
		Height(contentHeight)

	leftPane := leftStyle.Render(m.tv.View(m, leftWidth-borderChrome, contentHeight))
	rightPane := rightStyle.Render(m.viewport.View())
	panes := lipgloss.JoinHorizontal(lipgloss.Top, leftPane, rightPane)

	status := m.status
	if m.statusErr {
		status = errorText.Render(status)
	} else {
		status = mutedText.Render(status)
	}

	return lipgloss.JoinVertical(lipgloss.Left, panes, status, helpView)
}
