package sidebar

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/taskboard/internal/keys"
	"github.com/nhle/taskboard/internal/model"
	"github.com/nhle/taskboard/internal/theme"
	"github.com/nhle/taskboard/internal/ui"
)

// LoadErrorText is shown in place of the list when projects fail to load.
const LoadErrorText = "Failed to load projects"

// SelectMsg is sent when the user picks a project.
type SelectMsg struct {
	Project model.Project
}

// NewProjectMsg asks the parent to open the create-project form.
type NewProjectMsg struct{}

// DeleteMsg asks the parent to confirm deleting a project.
type DeleteMsg struct {
	Project model.Project
}

// Model is the project list panel.
type Model struct {
	keys       *keys.KeyMap
	spinner    spinner.Model
	projects   []model.Project
	cursor     int
	selectedID string
	loading    bool
	err        error
	focused    bool
	width      int
	height     int
}

// New creates an empty sidebar in the loading state.
func New(k *keys.KeyMap, width, height int) Model {
	return Model{
		keys:    k,
		spinner: spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(theme.DimmedStyle)),
		loading: true,
		width:   width,
		height:  height,
	}
}

// Init starts the loading spinner.
func (m Model) Init() tea.Cmd {
	return m.spinner.Tick
}

// SetProjects replaces the list with a settled load. On error the
// previous list is dropped and the error region is shown. Projects without
// a name are not listed.
func (m *Model) SetProjects(projects []model.Project, err error) {
	m.loading = false
	m.err = err
	if err != nil {
		m.projects = nil
		m.cursor = 0
		return
	}
	m.projects = make([]model.Project, 0, len(projects))
	for _, p := range projects {
		if strings.TrimSpace(p.Name) != "" {
			m.projects = append(m.projects, p)
		}
	}
	if m.cursor >= len(m.projects) {
		m.cursor = max(len(m.projects)-1, 0)
	}
}

// SetLoading shows the spinner until the next SetProjects. A listed
// project set stays visible with the spinner next to the title.
func (m *Model) SetLoading() tea.Cmd {
	m.loading = true
	return m.spinner.Tick
}

// SetSelected highlights the project with id, or nothing when id is "".
func (m *Model) SetSelected(id string) {
	m.selectedID = id
	for i, p := range m.projects {
		if p.ID == id {
			m.cursor = i
			return
		}
	}
}

// SelectedID returns the highlighted project id.
func (m Model) SelectedID() string { return m.selectedID }

// SetFocused toggles the cursor marker.
func (m *Model) SetFocused(focused bool) { m.focused = focused }

// SetSize updates the panel dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
}

// Loading reports whether a project load is outstanding.
func (m Model) Loading() bool { return m.loading }

// Projects returns the projects currently listed.
func (m Model) Projects() []model.Project { return m.projects }

// Update handles keys while the panel has focus and drives the spinner.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case spinner.TickMsg:
		if !m.loading {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Down):
		if len(m.projects) > 0 {
			m.cursor = (m.cursor + 1) % len(m.projects)
		}
		return m, nil

	case key.Matches(msg, m.keys.Up):
		if len(m.projects) > 0 {
			m.cursor--
			if m.cursor < 0 {
				m.cursor = len(m.projects) - 1
			}
		}
		return m, nil

	case key.Matches(msg, m.keys.Select):
		if p, ok := m.current(); ok {
			return m, func() tea.Msg { return SelectMsg{Project: p} }
		}
		return m, nil

	case key.Matches(msg, m.keys.NewProject):
		return m, func() tea.Msg { return NewProjectMsg{} }

	case key.Matches(msg, m.keys.Delete):
		if p, ok := m.current(); ok {
			return m, func() tea.Msg { return DeleteMsg{Project: p} }
		}
		return m, nil
	}
	return m, nil
}

func (m Model) current() (model.Project, bool) {
	if m.cursor < 0 || m.cursor >= len(m.projects) {
		return model.Project{}, false
	}
	return m.projects[m.cursor], true
}

// View renders the panel.
func (m Model) View() string {
	var b strings.Builder

	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(theme.ColorWhite)
	b.WriteString(titleStyle.Render("Projects"))
	if m.loading && len(m.projects) > 0 {
		b.WriteString(" " + m.spinner.View())
	}
	b.WriteString("\n\n")

	inner := m.width - 4
	switch {
	case m.loading && len(m.projects) == 0:
		b.WriteString(m.spinner.View() + " Loading projects...")
	case m.err != nil:
		b.WriteString(theme.ErrorStyle.Render(LoadErrorText))
	case len(m.projects) == 0:
		b.WriteString(theme.DimmedStyle.Italic(true).Render("No projects yet."))
	default:
		for i, p := range m.projects {
			label := renderName(ui.Truncate(p.Name, inner-3))
			cursor := "  "
			if m.focused && i == m.cursor {
				cursor = "› "
			}
			if p.ID == m.selectedID {
				b.WriteString(cursor + theme.SelectedItemStyle.Render(label))
			} else {
				b.WriteString(cursor + theme.ListItemStyle.Render(label))
			}
			b.WriteString("\n")
		}
	}

	b.WriteString("\n\n")
	b.WriteString(theme.HelpStyle.Render("N new project"))

	style := theme.BorderStyle
	if m.focused {
		style = theme.FocusedBorderStyle
	}
	return style.
		Padding(0, 1).
		Width(max(m.width-2, 0)).
		Height(max(m.height-2, 0)).
		Render(b.String())
}

// renderName colors a leading logo icon with its palette color.
func renderName(name string) string {
	for _, l := range model.Logos {
		if rest, ok := strings.CutPrefix(name, l.Icon+" "); ok {
			return theme.LogoStyle(l.Color).Render(l.Icon) + " " + rest
		}
	}
	return name
}
