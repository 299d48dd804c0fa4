package help

import (
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/taskboard/internal/keys"
	"github.com/nhle/taskboard/internal/theme"
)

// CloseMsg asks the parent to hide the help overlay.
type CloseMsg struct{}

// Model is the help overlay view.
type Model struct {
	keys   *keys.KeyMap
	help   help.Model
	notes  []string
	width  int
	height int
}

// New creates a new help view model.
func New(keys *keys.KeyMap, width, height int) Model {
	h := help.New()
	h.Width = width
	return Model{
		keys:   keys,
		help:   h,
		width:  width,
		height: height,
	}
}

// Init returns the initial command.
func (m Model) Init() tea.Cmd {
	return nil
}

// Update closes the overlay on the help or back key.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if k, ok := msg.(tea.KeyMsg); ok {
		if key.Matches(k, m.keys.Help) || key.Matches(k, m.keys.Back) {
			return m, func() tea.Msg { return CloseMsg{} }
		}
	}
	return m, nil
}

// SetNotes sets the dimmed lines shown below the key list, such as the
// active theme or the workspace.
func (m *Model) SetNotes(notes ...string) {
	m.notes = notes
}

// View renders the help overlay.
func (m Model) View() string {
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ColorWhite).
		MarginBottom(1)

	title := titleStyle.Render("Keyboard Shortcuts")

	m.help.Width = m.width - 8
	m.help.ShowAll = true
	parts := []string{title, m.help.View(m.keys)}
	if len(m.notes) > 0 {
		parts = append(parts, "")
		for _, n := range m.notes {
			parts = append(parts, theme.DimmedStyle.Render(n))
		}
	}

	return theme.BorderStyle.
		Padding(1, 2).
		Width(m.width - 4).
		Render(lipgloss.JoinVertical(lipgloss.Left, parts...))
}

// SetSize updates the help view dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.help.Width = width - 8
}
