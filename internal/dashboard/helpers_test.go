package dashboard

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/x/ansi"

	"github.com/smileynet/projtree/internal/project"
	"github.com/smileynet/projtree/internal/workspace"
)

// containsPlainText checks if s contains sub after stripping ANSI escapes.
func containsPlainText(s, sub string) bool {
	return strings.Contains(ansi.Strip(s), sub)
}

type fixture struct {
	store              *project.Store
	ws                 *workspace.Tree
	alpha, beta, gamma string
	leaf               string
}

// newFixture builds Alpha -> (Beta -> Gamma) and a root Leaf in memory.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	s := project.NewStore("")
	f := &fixture{store: s}
	var err error
	if f.alpha, err = s.Create("", "Alpha"); err != nil {
		t.Fatal(err)
	}
	if f.beta, err = s.Create(f.alpha, "Beta"); err != nil {
		t.Fatal(err)
	}
	if f.gamma, err = s.Create(f.beta, "Gamma"); err != nil {
		t.Fatal(err)
	}
	if f.leaf, err = s.Create("", "Leaf"); err != nil {
		t.Fatal(err)
	}
	f.ws = workspace.New(s)
	f.ws.Start()
	t.Cleanup(f.ws.Stop)
	return f
}

func (f *fixture) model(w, h int, opts ...Option) Model {
	m := NewModel(f.ws, opts...)
	updated, _ := m.Update(tea.WindowSizeMsg{Width: w, Height: h})
	return updated.(Model)
}

func runeKey(r rune) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}}
}

// press feeds keys to m in order and returns the resulting model.
func press(t *testing.T, m Model, keys ...tea.KeyMsg) Model {
	t.Helper()
	for _, k := range keys {
		updated, _ := m.Update(k)
		m = updated.(Model)
	}
	return m
}

// typeText feeds s to m one rune at a time.
func typeText(t *testing.T, m Model, s string) Model {
	t.Helper()
	for _, r := range s {
		m = press(t, m, runeKey(r))
	}
	return m
}

func splitLines(s string) []string {
	return strings.Split(s, "\n")
}
