package board

import (
	"fmt"
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

// Fixed texts of the board's non-data states.
const (
	EmptyText     = "Create or select a project"
	LoadErrorText = "Something went wrong while loading the tasks"
	AddTaskText   = "+ Add task"
	ImageMarker   = "▣ image"
)

// MoveMsg asks the parent to move a task to another column.
type MoveMsg struct {
	ProjectID string
	TaskID    string
	To        model.Status
}

// NewTaskMsg asks the parent to open the create-task form.
type NewTaskMsg struct {
	ProjectID string
}

// EditMsg asks the parent to open the edit form for a task.
type EditMsg struct {
	Task model.Task
}

// DeleteMsg asks the parent to confirm deleting a task.
type DeleteMsg struct {
	Task model.Task
}

// Model is the kanban board: one column per status, cards in source order.
type Model struct {
	keys      *keys.KeyMap
	spinner   spinner.Model
	projectID string
	tasks     []model.Task
	loading   bool
	err       error
	focused   bool
	compact   bool

	col, row int

	// follow is the id of a card the cursor should track across reloads,
	// set when the card is moved to another column.
	follow string

	width  int
	height int
}

// New creates a board with no project selected.
func New(k *keys.KeyMap, width, height int) Model {
	return Model{
		keys:    k,
		spinner: spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(theme.DimmedStyle)),
		width:   width,
		height:  height,
	}
}

// SetProject switches the board to a project and shows the loading state
// until its tasks arrive. An empty id shows the empty-state prompt.
func (m *Model) SetProject(id string) tea.Cmd {
	if id == m.projectID && !m.loading {
		return nil
	}
	m.projectID = id
	m.tasks = nil
	m.err = nil
	m.col, m.row = 0, 0
	m.follow = ""
	if id == "" {
		m.loading = false
		return nil
	}
	m.loading = true
	return m.spinner.Tick
}

// ProjectID returns the project the board shows.
func (m Model) ProjectID() string { return m.projectID }

// SetTasks stores a settled task load. Callers must drop loads for other
// projects before calling it.
func (m *Model) SetTasks(tasks []model.Task, err error) {
	m.loading = false
	m.err = err
	if err != nil {
		m.tasks = nil
		return
	}
	m.tasks = tasks
	if m.follow != "" {
		if m.locate(m.follow) {
			m.follow = ""
		}
	}
	m.clamp()
}

// Tasks returns the tasks on the board.
func (m Model) Tasks() []model.Task { return m.tasks }

// SetFocused toggles the card cursor.
func (m *Model) SetFocused(focused bool) { m.focused = focused }

// SetCompact switches to the single-column layout.
func (m *Model) SetCompact(compact bool) { m.compact = compact }

// SetSize updates the board dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
}

// Selected returns the card under the cursor.
func (m Model) Selected() (model.Task, bool) {
	cards := m.column(m.col)
	if m.row < 0 || m.row >= len(cards) {
		return model.Task{}, false
	}
	return cards[m.row], true
}

// Cursor returns the column and row of the cursor.
func (m Model) Cursor() (col, row int) { return m.col, m.row }

func (m Model) column(i int) []model.Task {
	return model.FilterByStatus(m.tasks, model.Statuses[i])
}

func (m *Model) clamp() {
	n := len(m.column(m.col))
	if m.row >= n {
		m.row = n - 1
	}
	if m.row < 0 {
		m.row = 0
	}
}

// locate moves the cursor onto the card with id.
func (m *Model) locate(id string) bool {
	for c := range model.Statuses {
		for r, t := range m.column(c) {
			if t.ID == id {
				m.col, m.row = c, r
				return true
			}
		}
	}
	return false
}

// Update handles keys while the board has focus and drives the spinner.
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
		if m.projectID == "" || m.loading || m.err != nil {
			return m, nil
		}
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Up):
		if m.row > 0 {
			m.row--
		}
		return m, nil

	case key.Matches(msg, m.keys.Down):
		if m.row < len(m.column(m.col))-1 {
			m.row++
		}
		return m, nil

	case key.Matches(msg, m.keys.Left):
		if m.col > 0 {
			m.col--
			m.clamp()
		}
		return m, nil

	case key.Matches(msg, m.keys.Right):
		if m.col < len(model.Statuses)-1 {
			m.col++
			m.clamp()
		}
		return m, nil

	case key.Matches(msg, m.keys.MoveLeft):
		return m.move(-1)

	case key.Matches(msg, m.keys.MoveRight):
		return m.move(1)

	case key.Matches(msg, m.keys.Select):
		if t, ok := m.Selected(); ok {
			return m, func() tea.Msg { return EditMsg{Task: t} }
		}
		return m, nil

	case key.Matches(msg, m.keys.NewTask):
		pid := m.projectID
		return m, func() tea.Msg { return NewTaskMsg{ProjectID: pid} }

	case key.Matches(msg, m.keys.Delete):
		if t, ok := m.Selected(); ok {
			return m, func() tea.Msg { return DeleteMsg{Task: t} }
		}
		return m, nil
	}
	return m, nil
}

// move drops the selected card onto the neighbouring column.
func (m Model) move(delta int) (Model, tea.Cmd) {
	t, ok := m.Selected()
	if !ok {
		return m, nil
	}
	to := m.col + delta
	if to < 0 || to >= len(model.Statuses) {
		return m, nil
	}
	m.follow = t.ID
	msg := MoveMsg{ProjectID: m.projectID, TaskID: t.ID, To: model.Statuses[to]}
	return m, func() tea.Msg { return msg }
}

// View renders the board.
func (m Model) View() string {
	switch {
	case m.projectID == "":
		return m.center(theme.DimmedStyle.Render(EmptyText))
	case m.err != nil:
		return m.center(theme.ErrorStyle.Render(LoadErrorText))
	case m.loading:
		return m.center(m.spinner.View() + " Loading tasks...")
	}

	if m.compact {
		return m.viewCompact()
	}

	colWidth := max(m.width/len(model.Statuses), 16)
	cols := make([]string, len(model.Statuses))
	for i := range model.Statuses {
		cols[i] = m.renderColumn(i, colWidth)
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, cols...)
}

// viewCompact renders a tab row of column headers and the cursor's column.
func (m Model) viewCompact() string {
	tabs := make([]string, len(model.Statuses))
	for i, st := range model.Statuses {
		h := columnHeader(st, len(m.column(i)))
		if i == m.col {
			tabs[i] = lipgloss.NewStyle().Underline(true).Render(h)
		} else {
			tabs[i] = theme.DimmedStyle.Render(h)
		}
	}
	tabRow := strings.Join(tabs, "  ")
	return lipgloss.JoinVertical(lipgloss.Left, tabRow, m.renderColumn(m.col, m.width))
}

func (m Model) renderColumn(i, width int) string {
	status := model.Statuses[i]
	cards := m.column(i)
	inner := width - 4

	var b strings.Builder
	b.WriteString(columnHeader(status, len(cards)))
	b.WriteString("\n")

	for r, t := range cards {
		selected := m.focused && i == m.col && r == m.row
		b.WriteString(renderCard(t, inner, selected))
		b.WriteString("\n")
	}
	if len(cards) == 0 {
		b.WriteString(theme.DimmedStyle.Render("No tasks"))
		b.WriteString("\n")
	}
	if status == model.StatusBacklog {
		b.WriteString(theme.HelpStyle.Render(AddTaskText + " (n)"))
	}

	style := theme.BorderStyle
	if m.focused && i == m.col {
		style = theme.FocusedBorderStyle
	}
	return style.
		Padding(0, 1).
		Width(max(width-2, 0)).
		Height(max(m.height-2, 0)).
		Render(b.String())
}

// columnHeader renders the status indicator, name and card count.
func columnHeader(status model.Status, n int) string {
	dot := lipgloss.NewStyle().Foreground(theme.StatusColor(status)).Render("●")
	return dot + " " + theme.StatusStyle(status).UnsetPadding().Render(fmt.Sprintf("%s (%d)", status, n))
}

func renderCard(t model.Task, width int, selected bool) string {
	lines := []string{ui.Truncate(t.Name, width-4)}

	if len(t.Tags) > 0 {
		badges := make([]string, len(t.Tags))
		for i, tag := range t.Tags {
			badges[i] = theme.TagStyle(tag.Name).Render(tag.Name)
		}
		lines = append(lines, strings.Join(badges, " "))
	}
	if _, ok := t.Image(); ok {
		lines = append(lines, theme.DimmedStyle.Render(ImageMarker))
	}

	style := theme.CardStyle
	if selected {
		style = theme.SelectedCardStyle
	}
	return style.Width(max(width-2, 0)).Render(strings.Join(lines, "\n"))
}

func (m Model) center(s string) string {
	return lipgloss.Place(max(m.width, 1), max(m.height, 1), lipgloss.Center, lipgloss.Center, s)
}
