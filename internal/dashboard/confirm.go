package dashboard

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/lipgloss"

	"github.com/smileynet/projtree/internal/dialog"
	"github.com/smileynet/projtree/internal/project"
)

// maxImpactRows caps the impact list before it is summarized.
const maxImpactRows = 10

// confirmState renders a confirmation dialog and tracks the highlighted button.
type confirmState struct {
	opts    dialog.ConfirmOptions
	confirm bool // true when the confirm button is highlighted
	unnamed string
}

// View renders the dialog box content for the given width.
func (cs confirmState) View(width int) string {
	var b strings.Builder
	b.WriteString(titleText.Render(cs.opts.Title))
	b.WriteString("\n\n")
	msgWidth := width - 8
	if msgWidth < 20 {
		msgWidth = 20
	}
	b.WriteString(lipgloss.NewStyle().Width(msgWidth).Render(cs.opts.Message))

	if len(cs.opts.List) > 0 {
		b.WriteString("\n")
		b.WriteString(cs.impactList())
	}

	cancel, ok := button, button
	if cs.confirm {
		ok = dangerButton
	} else {
		cancel = selectedButton
	}
	b.WriteString("\n\n")
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top,
		cancel.Render(cs.opts.CancelText),
		"  ",
		ok.Render(cs.opts.ConfirmText),
	))
	return b.String()
}

func (cs confirmState) impactList() string {
	var b strings.Builder
	for i, item := range cs.opts.List {
		if i == maxImpactRows {
			fmt.Fprintf(&b, "\n  … and %d more", len(cs.opts.List)-maxImpactRows)
			break
		}
		fmt.Fprintf(&b, "\n  • %s", cs.title(item))
	}
	return b.String()
}

func (cs confirmState) title(item project.Identifier) string {
	if item.Title == "" {
		return mutedText.Render(cs.unnamed)
	}
	return item.Title
}

// createState renders the project creation dialog.
type createState struct {
	input  textinput.Model
	parent string // parent project name, "" for a top-level project
}

func newCreateInput() textinput.Model {
	ti := textinput.New()
	ti.Placeholder = "Project name"
	ti.CharLimit = 120
	ti.Prompt = "› "
	return ti
}

// View renders the dialog box content.
func (cs createState) View() string {
	var b strings.Builder
	if cs.parent != "" {
		b.WriteString(titleText.Render("New sub-project of " + cs.parent))
	} else {
		b.WriteString(titleText.Render("New project"))
	}
	b.WriteString("\n\n")
	b.WriteString(cs.input.View())
	b.WriteString("\n\n  [Enter] Create   [Esc] Cancel")
	return b.String()
}
