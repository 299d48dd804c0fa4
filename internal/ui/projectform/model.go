package projectform

import (
	"errors"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/taskboard/internal/model"
	"github.com/nhle/taskboard/internal/theme"
	"github.com/nhle/taskboard/internal/ui/formerr"
)

// SubmitMsg carries a completed create-project form to the parent.
type SubmitMsg struct {
	Input model.ProjectInput
}

// CancelMsg is sent when the user aborts the form.
type CancelMsg struct{}

// formBindings holds field values on the heap so huh's Value() pointers
// stay valid across Bubble Tea model copies.
type formBindings struct {
	name string
	logo int
}

// Model is the create-project modal.
type Model struct {
	form       *huh.Form
	fb         *formBindings
	submitting bool
	err        error
	width      int
	height     int
}

// New creates an idle form model.
func New(width, height int) Model {
	return Model{fb: &formBindings{}, width: width, height: height}
}

// Start resets the fields and shows an empty form.
func (m *Model) Start() tea.Cmd {
	m.fb.name = ""
	m.fb.logo = 0
	m.submitting = false
	m.err = nil
	m.form = m.buildForm()
	return m.form.Init()
}

// Submitting reports whether a submission is waiting for its result.
func (m Model) Submitting() bool { return m.submitting }

// SetError reopens the form with its values intact and shows err above it.
func (m *Model) SetError(err error) tea.Cmd {
	m.submitting = false
	m.err = err
	m.form = m.buildForm()
	return m.form.Init()
}

// Update forwards input to the form and reports completion.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if m.form == nil || m.submitting {
		return m, nil
	}

	mdl, cmd := m.form.Update(msg)
	if f, ok := mdl.(*huh.Form); ok {
		m.form = f
	}

	if m.form.State == huh.StateCompleted {
		return m.submit()
	}
	if m.form.State == huh.StateAborted {
		return m, func() tea.Msg { return CancelMsg{} }
	}
	return m, cmd
}

func (m Model) submit() (Model, tea.Cmd) {
	in := model.ProjectInput{Name: m.fb.name, LogoIndex: m.fb.logo}
	if err := in.Validate(); err != nil {
		cmd := m.SetError(err)
		return m, cmd
	}
	m.submitting = true
	m.err = nil
	return m, func() tea.Msg { return SubmitMsg{Input: in} }
}

// View renders the form.
func (m Model) View() string {
	if m.form == nil {
		return ""
	}

	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ColorWhite).
		MarginBottom(1)

	parts := []string{titleStyle.Render("New Project")}
	if m.err != nil {
		parts = append(parts, formerr.Render(m.err))
	}
	parts = append(parts, m.form.View())
	if m.submitting {
		parts = append(parts, theme.DimmedStyle.Render("Creating project..."))
	}

	return theme.ModalStyle.Render(lipgloss.JoinVertical(lipgloss.Left, parts...))
}

// SetSize updates the form dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
}

func (m *Model) buildForm() *huh.Form {
	logos := make([]huh.Option[int], len(model.Logos))
	for i, l := range model.Logos {
		logos[i] = huh.NewOption(l.Icon, i)
	}

	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Name").
				Placeholder(fmt.Sprintf("%d to %d characters", model.ProjectNameMin, model.ProjectNameMax)).
				Value(&m.fb.name).
				Validate(validateName),
			huh.NewSelect[int]().
				Title("Logo").
				Options(logos...).
				Inline(true).
				Value(&m.fb.logo),
		),
	).WithWidth(m.formWidth()).WithHeight(m.formHeight())
}

func validateName(s string) error {
	if msg := model.ValidateProjectName(s); msg != "" {
		return errors.New(msg)
	}
	return nil
}

func (m Model) formWidth() int {
	w := m.width - 8
	if w < 40 {
		w = 40
	}
	if w > 80 {
		w = 80
	}
	return w
}

func (m Model) formHeight() int {
	h := m.height - 8
	if h < 8 {
		h = 8
	}
	return h
}
