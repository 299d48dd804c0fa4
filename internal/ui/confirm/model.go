package confirm

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/taskboard/internal/theme"
)

// ConfirmedMsg is sent when the user accepts the prompt.
type ConfirmedMsg struct{}

// CancelledMsg is sent when the user declines or aborts the prompt.
type CancelledMsg struct{}

type formBindings struct {
	confirm bool
}

// Model is a yes/no delete confirmation.
type Model struct {
	form        *huh.Form
	fb          *formBindings
	title       string
	description string
	pending     bool
	width       int
}

// New creates an idle confirmation model.
func New(width int) Model {
	return Model{fb: &formBindings{}, width: width}
}

// Start shows the prompt. Declining is the default answer.
func (m *Model) Start(title, description string) tea.Cmd {
	m.title = title
	m.description = description
	m.fb.confirm = false
	m.pending = false
	m.form = m.buildForm()
	return m.form.Init()
}

// Pending reports whether the confirmed delete is waiting for its result.
func (m Model) Pending() bool { return m.pending }

// SetPending keeps the prompt up while the confirmed delete runs. Input is
// ignored until Done.
func (m *Model) SetPending() {
	if m.form != nil {
		m.pending = true
	}
}

// Done closes the prompt.
func (m *Model) Done() {
	m.pending = false
	m.form = nil
}

// Update forwards input to the prompt.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if m.form == nil || m.pending {
		return m, nil
	}
	mdl, cmd := m.form.Update(msg)
	if f, ok := mdl.(*huh.Form); ok {
		m.form = f
	}
	if m.form.State == huh.StateCompleted {
		if m.fb.confirm {
			m.pending = true
			return m, func() tea.Msg { return ConfirmedMsg{} }
		}
		return m, func() tea.Msg { return CancelledMsg{} }
	}
	if m.form.State == huh.StateAborted {
		return m, func() tea.Msg { return CancelledMsg{} }
	}
	return m, cmd
}

// View renders the prompt.
func (m Model) View() string {
	if m.form == nil {
		return ""
	}
	parts := []string{m.form.View()}
	if m.pending {
		parts = append(parts, theme.DimmedStyle.Render("Deleting..."))
	}
	return theme.ModalStyle.
		BorderForeground(theme.ColorRed).
		Render(lipgloss.JoinVertical(lipgloss.Left, parts...))
}

// SetSize updates the prompt width.
func (m *Model) SetSize(width int) {
	m.width = width
}

func (m *Model) buildForm() *huh.Form {
	w := m.width - 8
	if w < 30 {
		w = 30
	}
	if w > 60 {
		w = 60
	}
	return huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(m.title).
				Description(m.description).
				Affirmative("Yes, delete").
				Negative("Cancel").
				Value(&m.fb.confirm),
		),
	).WithWidth(w)
}
