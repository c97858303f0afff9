package dashboard

import "github.com/charmbracelet/lipgloss"

// MinLeftWidth is the minimum character width for the left pane.
const MinLeftWidth = 28

var (
	accentColor = lipgloss.AdaptiveColor{Light: "4", Dark: "12"}
	dimColor    = lipgloss.AdaptiveColor{Light: "240", Dark: "245"}
	dangerColor = lipgloss.AdaptiveColor{Light: "1", Dark: "9"}

	mutedText  = lipgloss.NewStyle().Foreground(dimColor).Italic(true)
	activeText = lipgloss.NewStyle().Foreground(accentColor).Bold(true)
	cursorLine = lipgloss.NewStyle().Reverse(true)
	errorText  = lipgloss.NewStyle().Foreground(dangerColor)
	titleText  = lipgloss.NewStyle().Bold(true)

	button         = lipgloss.NewStyle().Padding(0, 2).Border(lipgloss.NormalBorder()).BorderForeground(dimColor)
	selectedButton = button.BorderForeground(accentColor).Bold(true)
	dangerButton   = selectedButton.Foreground(dangerColor).BorderForeground(dangerColor)
)

// FocusedBorder returns a lipgloss style with an accent-colored rounded border.
func FocusedBorder() lipgloss.Style {
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(accentColor)
}

// UnfocusedBorder returns a lipgloss style with a dim rounded border.
func UnfocusedBorder() lipgloss.Style {
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.AdaptiveColor{Light: "240", Dark: "240"})
}

// OverlayBorder returns the style of a modal dialog box.
func OverlayBorder() lipgloss.Style {
	return lipgloss.NewStyle().
		Border(lipgloss.DoubleBorder()).
		BorderForeground(accentColor).
		Padding(1, 2)
}

// PaneWidths calculates the left and right pane widths from a total width.
// Left pane gets 1/3 (minimum MinLeftWidth), right pane gets the rest.
func PaneWidths(totalWidth int) (left, right int) {
	if totalWidth <= 0 {
		return 0, 0
	}
	left = totalWidth / 3
	if left < MinLeftWidth {
		left = MinLeftWidth
	}
	right = totalWidth - left
	if right < 0 {
		right = 0
	}
	return left, right
}
