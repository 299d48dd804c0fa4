package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/nhle/taskboard/internal/theme"
)

// Layout splits the terminal into a one-line header, the sidebar and
// board area, and a one-line status bar.
type Layout struct {
	Width   int
	Height  int
	Sidebar int

	// Compact hides the sidebar column; the sidebar is drawn over the
	// board instead.
	Compact bool
}

const chromeHeight = 2

// NewLayout sizes the screen. sidebar is the preferred sidebar width and is
// capped at the terminal width.
func NewLayout(width, height, sidebar int, compact bool) Layout {
	return Layout{
		Width:   max(width, 0),
		Height:  max(height, 0),
		Sidebar: min(sidebar, max(width, 0)),
		Compact: compact,
	}
}

// ContentWidth is the width between the screen edges.
func (l Layout) ContentWidth() int { return l.Width }

// ContentHeight is the height left between header and status bar.
func (l Layout) ContentHeight() int { return max(l.Height-chromeHeight, 0) }

// BoardWidth is the width of the board column.
func (l Layout) BoardWidth() int {
	if l.Compact {
		return l.Width
	}
	return l.Width - l.Sidebar
}

// Header renders the title on the left and the sync status on the right.
// The title gives way when both do not fit.
func (l Layout) Header(title, status string) string {
	inner := l.inner()
	status = Truncate(status, inner)
	room := inner - lipgloss.Width(status) - 1
	title = Truncate(title, max(room, 0))
	return theme.HeaderStyle.Render(spread(title, status, inner))
}

// StatusBar renders a single line of hints or messages.
func (l Layout) StatusBar(line string) string {
	inner := l.inner()
	return theme.StatusBarStyle.Render(spread(Truncate(line, inner), "", inner))
}

// inner is the width inside the bars' one-cell side padding.
func (l Layout) inner() int { return max(l.Width-2, 0) }

// Overlay centers a modal over the content area.
func (l Layout) Overlay(modal string) string {
	return lipgloss.Place(l.ContentWidth(), l.ContentHeight(), lipgloss.Center, lipgloss.Center, modal)
}

// Drawer pins a panel to the left edge of the content area, over the
// board.
func (l Layout) Drawer(panel string) string {
	return lipgloss.Place(l.ContentWidth(), l.ContentHeight(), lipgloss.Left, lipgloss.Top, panel)
}

// Frame stacks header, content and status bar.
func (l Layout) Frame(header, content, statusBar string) string {
	return lipgloss.JoinVertical(lipgloss.Left, header, content, statusBar)
}

// spread pads the gap between left and right so the line is width cells.
func spread(left, right string, width int) string {
	gap := width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 0 {
		gap = 0
	}
	return left + strings.Repeat(" ", gap) + right
}

// Truncate cuts s to at most width cells, marking the cut with an ellipsis.
// Styling escapes in s are kept intact.
func Truncate(s string, width int) string {
	if width <= 0 {
		return ""
	}
	return ansi.Truncate(s, width, "…")
}
