package dashboard

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/x/exp/teatest"

	"github.com/smileynet/projtree/internal/project"
	"github.com/smileynet/projtree/internal/workspace"
)

func TestNewModel_Defaults(t *testing.T) {
	f := newFixture(t)
	m := NewModel(f.ws)

	if m.mode != ModeBrowse {
		t.Errorf("mode = %d, want ModeBrowse (%d)", m.mode, ModeBrowse)
	}
	if m.focus != PaneLeft {
		t.Errorf("focus = %d, want PaneLeft (%d)", m.focus, PaneLeft)
	}
	if m.SelectedID() != f.alpha {
		t.Errorf("SelectedID() = %q, want first row %q", m.SelectedID(), f.alpha)
	}
}

func TestModel_ViewBeforeSize(t *testing.T) {
	f := newFixture(t)
	m := NewModel(f.ws)
	if got := m.View(); got != "Initializing..." {
		t.Errorf("View() = %q, want Initializing...", got)
	}
}

func TestModel_TabTogglesFocus(t *testing.T) {
	f := newFixture(t)
	m := f.model(90, 30)

	m = press(t, m, tea.KeyMsg{Type: tea.KeyTab})
	if m.focus != PaneRight {
		t.Errorf("after first Tab: focus = %d, want PaneRight", m.focus)
	}
	m = press(t, m, tea.KeyMsg{Type: tea.KeyTab})
	if m.focus != PaneLeft {
		t.Errorf("after second Tab: focus = %d, want PaneLeft", m.focus)
	}
}

func TestModel_Quit(t *testing.T) {
	f := newFixture(t)
	m := f.model(90, 30)

	for _, k := range []tea.KeyMsg{runeKey('q'), {Type: tea.KeyCtrlC}} {
		_, cmd := m.Update(k)
		if cmd == nil {
			t.Fatalf("%s should return a quit command", k)
		}
		if _, ok := cmd().(tea.QuitMsg); !ok {
			t.Errorf("%s produced %T, want tea.QuitMsg", k, cmd())
		}
	}
}

func TestModel_CursorWraps(t *testing.T) {
	// Given: two visible rows (Alpha collapsed, Leaf)
	f := newFixture(t)
	m := f.model(90, 30)

	// When: moving up from the first row
	m = press(t, m, tea.KeyMsg{Type: tea.KeyUp})

	// Then: the cursor wraps to the last row
	if m.SelectedID() != f.leaf {
		t.Errorf("SelectedID() = %q, want %q", m.SelectedID(), f.leaf)
	}
	m = press(t, m, runeKey('j'))
	if m.SelectedID() != f.alpha {
		t.Errorf("SelectedID() = %q, want %q", m.SelectedID(), f.alpha)
	}
}

func TestModel_SpaceTogglesAndPersists(t *testing.T) {
	f := newFixture(t)
	m := f.model(90, 30)

	m = press(t, m, tea.KeyMsg{Type: tea.KeySpace})

	if got := len(f.ws.Visible()); got != 3 {
		t.Errorf("visible rows = %d, want 3 after expanding Alpha", got)
	}
	if p, _ := f.store.Get(f.alpha); !p.Expanded {
		t.Error("Alpha should be persisted as expanded")
	}
	if !containsPlainText(m.View(), ExpandedMarker+"Alpha") {
		t.Errorf("view should show Alpha expanded:\n%s", m.View())
	}
}

func TestModel_LeftCollapsesThenMovesToParent(t *testing.T) {
	// Given: Alpha expanded and the cursor on Beta
	f := newFixture(t)
	m := f.model(90, 30)
	m = press(t, m, tea.KeyMsg{Type: tea.KeyRight}, runeKey('j'))
	if m.SelectedID() != f.beta {
		t.Fatalf("SelectedID() = %q, want Beta", m.SelectedID())
	}

	// When: pressing left on collapsed Beta
	m = press(t, m, tea.KeyMsg{Type: tea.KeyLeft})

	// Then: the cursor moves to Alpha, and a second left collapses Alpha
	if m.SelectedID() != f.alpha {
		t.Errorf("SelectedID() = %q, want Alpha", m.SelectedID())
	}
	m = press(t, m, tea.KeyMsg{Type: tea.KeyLeft})
	if got := len(f.ws.Visible()); got != 2 {
		t.Errorf("visible rows = %d, want 2 after collapsing", got)
	}
}

func TestModel_EnterSelectsProject(t *testing.T) {
	f := newFixture(t)
	m := f.model(90, 30)

	m = press(t, m, runeKey('j'), tea.KeyMsg{Type: tea.KeyEnter})

	if f.ws.ActiveID() != f.leaf {
		t.Errorf("ActiveID() = %q, want Leaf", f.ws.ActiveID())
	}
	if !containsPlainText(m.View(), "Leaf"+ActiveMarker) {
		t.Errorf("active project should be marked:\n%s", m.View())
	}
}

func TestModel_DeleteConfirmed(t *testing.T) {
	// Given: the cursor on Alpha, which has two descendants
	f := newFixture(t)
	m := f.model(100, 30)

	// When: pressing d opens the overlay listing the impact
	m = press(t, m, runeKey('d'))
	if m.mode != ModeConfirm {
		t.Fatalf("mode = %d, want ModeConfirm", m.mode)
	}
	view := m.View()
	for _, want := range []string{workspace.DeleteTitle, "Alpha", "Beta", "Gamma", workspace.DeleteConfirm} {
		if !containsPlainText(view, want) {
			t.Errorf("overlay should contain %q:\n%s", want, view)
		}
	}

	// And: confirming with y
	m = press(t, m, runeKey('y'))

	// Then: the subtree is gone and the cursor lands on Leaf
	if _, ok := f.store.Get(f.gamma); ok {
		t.Error("Gamma should have been deleted with Alpha")
	}
	if m.mode != ModeBrowse {
		t.Errorf("mode = %d, want ModeBrowse", m.mode)
	}
	if m.SelectedID() != f.leaf {
		t.Errorf("SelectedID() = %q, want Leaf", m.SelectedID())
	}
	if !strings.Contains(m.status, "deleted 3") {
		t.Errorf("status = %q, want deleted 3", m.status)
	}
}

func TestModel_DeleteDefaultButtonIsCancel(t *testing.T) {
	f := newFixture(t)
	m := f.model(100, 30)

	m = press(t, m, runeKey('d'), tea.KeyMsg{Type: tea.KeyEnter})

	if _, ok := f.store.Get(f.alpha); !ok {
		t.Error("enter on the default button should cancel")
	}

	// Switching to the confirm button first deletes.
	m = press(t, m, runeKey('d'), tea.KeyMsg{Type: tea.KeyRight}, tea.KeyMsg{Type: tea.KeyEnter})
	if _, ok := f.store.Get(f.alpha); ok {
		t.Error("enter on the confirm button should delete")
	}
}

func TestModel_DeleteEscCancels(t *testing.T) {
	f := newFixture(t)
	m := f.model(100, 30)

	m = press(t, m, runeKey('d'), tea.KeyMsg{Type: tea.KeyEsc})

	if m.mode != ModeBrowse {
		t.Errorf("mode = %d, want ModeBrowse", m.mode)
	}
	if f.ws.ConfirmDialog() != nil {
		t.Error("confirm dialog should be closed")
	}
	if _, ok := f.store.Get(f.alpha); !ok {
		t.Error("Alpha should still exist")
	}
}

func TestModel_NewChild(t *testing.T) {
	// Given: the cursor on Leaf
	f := newFixture(t)
	m := f.model(100, 30)
	m = press(t, m, runeKey('j'))

	// When: creating a sub-project named "Child"
	m = press(t, m, runeKey('n'))
	if m.mode != ModeCreate {
		t.Fatalf("mode = %d, want ModeCreate", m.mode)
	}
	if !containsPlainText(m.View(), "New sub-project of Leaf") {
		t.Errorf("overlay should name the parent:\n%s", m.View())
	}
	m = typeText(t, m, "Child")
	m = press(t, m, tea.KeyMsg{Type: tea.KeyEnter})

	// Then: Leaf has the child and it became the current project
	leaf, _ := f.store.Get(f.leaf)
	if len(leaf.Subprojects) != 1 || leaf.Subprojects[0].Name != "Child" {
		t.Fatalf("Leaf.Subprojects = %v, want [Child]", leaf.Subprojects)
	}
	if f.ws.ActiveID() != leaf.Subprojects[0].ID {
		t.Errorf("ActiveID() = %q, want the new project", f.ws.ActiveID())
	}
	if m.mode != ModeBrowse {
		t.Errorf("mode = %d, want ModeBrowse", m.mode)
	}
}

func TestModel_NewRootCancelled(t *testing.T) {
	f := newFixture(t)
	m := f.model(100, 30)

	m = press(t, m, runeKey('N'))
	if !containsPlainText(m.View(), "New project") {
		t.Errorf("overlay should offer a top-level project:\n%s", m.View())
	}
	m = typeText(t, m, "Nope")
	m = press(t, m, tea.KeyMsg{Type: tea.KeyEsc})

	if got := len(f.store.Roots()); got != 2 {
		t.Errorf("roots = %d, want 2", got)
	}
	if f.ws.CreateDialog() != nil {
		t.Error("create dialog should be closed")
	}
}

func TestModel_ShiftAmongSiblings(t *testing.T) {
	f := newFixture(t)
	m := f.model(90, 30)

	// Move Alpha below Leaf; the cursor follows Alpha.
	m = press(t, m, runeKey('J'))

	roots := f.store.Roots()
	if roots[0].ID != f.leaf || roots[1].ID != f.alpha {
		t.Errorf("roots = [%s %s], want [Leaf Alpha]", roots[0].Name, roots[1].Name)
	}
	if m.SelectedID() != f.alpha {
		t.Errorf("SelectedID() = %q, want Alpha", m.SelectedID())
	}

	m = press(t, m, runeKey('K'))
	if f.store.Roots()[0].ID != f.alpha {
		t.Error("K should move Alpha back to the top")
	}
}

func TestModel_CutAndPaste(t *testing.T) {
	// Given: Leaf cut
	f := newFixture(t)
	m := f.model(90, 30)
	m = press(t, m, runeKey('j'), runeKey('x'))
	if !containsPlainText(m.View(), "Leaf"+CutMarker) {
		t.Errorf("cut project should be marked:\n%s", m.View())
	}

	// When: pasting into Alpha
	m = press(t, m, runeKey('k'), runeKey('p'))

	// Then: Leaf is Alpha's last child
	alpha, _ := f.store.Get(f.alpha)
	if last := alpha.Subprojects[len(alpha.Subprojects)-1]; last.ID != f.leaf {
		t.Errorf("last child = %q, want Leaf", last.Name)
	}
	if m.cut != "" {
		t.Error("paste should clear the cut project")
	}
}

func TestModel_PasteIntoOwnSubtreeFails(t *testing.T) {
	f := newFixture(t)
	m := f.model(90, 30)

	// Cut Alpha, expand it, and paste into Beta.
	m = press(t, m, runeKey('x'), tea.KeyMsg{Type: tea.KeyRight}, runeKey('j'), runeKey('p'))

	if !m.statusErr {
		t.Errorf("status = %q, want an error", m.status)
	}
	if m.cut != f.alpha {
		t.Error("failed paste should keep the cut project")
	}
}

func TestModel_ExpandCollapseAll(t *testing.T) {
	f := newFixture(t)
	m := f.model(90, 30)

	m = press(t, m, runeKey('E'))
	if got := len(f.ws.Visible()); got != 4 {
		t.Errorf("visible rows = %d, want 4", got)
	}
	press(t, m, runeKey('C'))
	if got := len(f.ws.Visible()); got != 2 {
		t.Errorf("visible rows = %d, want 2", got)
	}
}

func TestModel_PlaceholderActionsReportError(t *testing.T) {
	f := newFixture(t)
	m := f.model(90, 30)

	for _, r := range []rune{'f', 'a'} {
		m = press(t, m, runeKey(r))
		if !m.statusErr || !strings.Contains(m.status, "not implemented") {
			t.Errorf("%c: status = %q, want not implemented error", r, m.status)
		}
	}
}

func TestModel_StoreChangedRefreshes(t *testing.T) {
	// Given: a dashboard over a file-backed store
	path := filepath.Join(t.TempDir(), "projects.json")
	s, err := project.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.Create("", "Alpha"); err != nil {
		t.Fatal(err)
	}
	ws := workspace.New(s)
	ws.Start()
	t.Cleanup(ws.Stop)
	updated, _ := NewModel(ws).Update(tea.WindowSizeMsg{Width: 90, Height: 30})
	m := updated.(Model)

	// When: another writer adds a project and the watcher reports it
	other, err := project.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := other.Create("", "Zeta"); err != nil {
		t.Fatal(err)
	}
	updated, _ = m.Update(StoreChangedMsg{})
	m = updated.(Model)

	// Then: the new project is rendered
	if got := len(ws.Visible()); got != 2 {
		t.Errorf("visible rows = %d, want 2", got)
	}
	if !containsPlainText(m.View(), "Zeta") {
		t.Errorf("view should show Zeta:\n%s", m.View())
	}
}

func TestModel_WatchError(t *testing.T) {
	f := newFixture(t)
	m := f.model(90, 30)

	updated, _ := m.Update(WatchErrorMsg{Err: errors.New("too many files")})
	m = updated.(Model)
	if !containsPlainText(m.View(), "watch: too many files") {
		t.Errorf("status line should show the watch error:\n%s", m.View())
	}
}

func TestModel_RightPaneScrollsDetail(t *testing.T) {
	f := newFixture(t)
	m := f.model(90, 30)

	m = press(t, m, tea.KeyMsg{Type: tea.KeyTab}, tea.KeyMsg{Type: tea.KeyDown})

	// Down scrolls the viewport instead of moving the cursor.
	if m.SelectedID() != f.alpha {
		t.Errorf("SelectedID() = %q, want Alpha", m.SelectedID())
	}
	if !containsPlainText(m.View(), "Sub-projects: 1") {
		t.Errorf("detail pane should describe Alpha:\n%s", m.View())
	}
}

// TestModel_Teatest_CreateAndDelete drives a full session through teatest.
func TestModel_Teatest_CreateAndDelete(t *testing.T) {
	f := newFixture(t)
	m := NewModel(f.ws)

	tm := teatest.NewTestModel(t, m, teatest.WithInitialTermSize(100, 30))

	tm.Send(runeKey('N'))
	tm.Type("Omega")
	tm.Send(tea.KeyMsg{Type: tea.KeyEnter})
	tm.Send(runeKey('d'))
	tm.Send(runeKey('y'))
	tm.Send(runeKey('q'))

	tm.WaitFinished(t, teatest.WithFinalTimeout(2*time.Second))

	final := tm.FinalModel(t).(Model)
	if final.mode != ModeBrowse {
		t.Errorf("mode = %d, want ModeBrowse", final.mode)
	}
	roots := f.store.Roots()
	if len(roots) != 2 {
		t.Fatalf("roots = %d, want 2", len(roots))
	}
	for _, r := range roots {
		if r.Name == "Omega" {
			t.Error("Omega should have been created and then deleted")
		}
	}
}
