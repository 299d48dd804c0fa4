package taskform

import (
	"errors"
	"slices"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/taskboard/internal/model"
	"github.com/nhle/taskboard/internal/theme"
	"github.com/nhle/taskboard/internal/ui/formerr"
)

// NoChangesText is shown when an edit is submitted without changes.
const NoChangesText = "Nothing to save"

// SubmitMsg carries a completed form to the parent. Original is the task
// as it was when the edit session started; it is nil when creating.
type SubmitMsg struct {
	ProjectID string
	Original  *model.Task
	Input     model.TaskInput
}

// CancelMsg is sent when the user aborts the form.
type CancelMsg struct{}

// imageErrorMsg reports an image that could not be read at submit time.
type imageErrorMsg struct{ err error }

// formBindings holds field values on the heap so huh's Value() pointers
// stay valid across Bubble Tea model copies.
type formBindings struct {
	name        string
	status      model.Status
	tagIDs      []string
	imagePath   string
	removeImage bool
}

// Model is the create/edit task modal.
type Model struct {
	form       *huh.Form
	fb         *formBindings
	projectID  string
	original   *model.Task
	tags       []model.Tag
	submitting bool
	err        error
	notice     string
	width      int
	height     int
}

// New creates an idle form model.
func New(width, height int) Model {
	return Model{fb: &formBindings{}, width: width, height: height}
}

// SetTags sets the workspace tags offered by the tag selector.
func (m *Model) SetTags(tags []model.Tag) {
	m.tags = tags
}

// StartCreate shows an empty form for a new task in the Backlog.
func (m *Model) StartCreate(projectID string) tea.Cmd {
	m.projectID = projectID
	m.original = nil
	*m.fb = formBindings{status: model.StatusBacklog}
	m.submitting = false
	m.err = nil
	m.notice = ""
	m.form = m.buildForm()
	return m.form.Init()
}

// StartEdit shows the form filled from task.
func (m *Model) StartEdit(projectID string, task model.Task) tea.Cmd {
	m.projectID = projectID
	orig := task
	m.original = &orig
	*m.fb = formBindings{
		name:   task.Name,
		status: task.Status(),
		tagIDs: model.TagIDs(task.Tags),
	}
	if !m.fb.status.Valid() {
		m.fb.status = model.StatusBacklog
	}
	m.submitting = false
	m.err = nil
	m.notice = ""
	m.form = m.buildForm()
	return m.form.Init()
}

// Editing reports whether the form edits an existing task.
func (m Model) Editing() bool { return m.original != nil }

// Submitting reports whether a submission is waiting for its result.
func (m Model) Submitting() bool { return m.submitting }

// SetError reopens the form with its values intact and shows err above it.
func (m *Model) SetError(err error) tea.Cmd {
	m.submitting = false
	m.err = err
	m.notice = ""
	m.form = m.buildForm()
	return m.form.Init()
}

// Update forwards input to the form and reports completion.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if e, ok := msg.(imageErrorMsg); ok {
		cmd := m.SetError(e.err)
		return m, cmd
	}
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

// submit turns the bindings into a TaskInput. The image, when given, is
// read inside the returned command.
func (m Model) submit() (Model, tea.Cmd) {
	in := model.TaskInput{
		Name:        strings.TrimSpace(m.fb.name),
		Status:      m.fb.status,
		TagIDs:      slices.Clone(m.fb.tagIDs),
		RemoveImage: m.fb.removeImage,
	}
	path := strings.TrimSpace(m.fb.imagePath)

	if m.original != nil && path == "" && !in.Changed(*m.original) {
		cmd := m.SetError(nil)
		m.notice = NoChangesText
		return m, cmd
	}

	m.submitting = true
	m.err = nil
	m.notice = ""
	msg := SubmitMsg{ProjectID: m.projectID, Original: m.original, Input: in}
	return m, func() tea.Msg {
		if path != "" {
			img, err := model.LoadImage(path)
			if err != nil {
				return imageErrorMsg{err: model.ValidationError{"image": err.Error()}}
			}
			msg.Input.Image = img
		}
		return msg
	}
}

// View renders the form.
func (m Model) View() string {
	if m.form == nil {
		return ""
	}

	titleText := "New Task"
	if m.Editing() {
		titleText = "Edit Task"
	}
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ColorWhite).
		MarginBottom(1)

	parts := []string{titleStyle.Render(titleText)}
	if m.err != nil {
		parts = append(parts, formerr.Render(m.err))
	}
	if m.notice != "" {
		parts = append(parts, theme.DimmedStyle.Render(m.notice))
	}
	parts = append(parts, m.form.View())
	if m.submitting {
		parts = append(parts, theme.DimmedStyle.Render("Saving..."))
	}

	return theme.ModalStyle.Render(lipgloss.JoinVertical(lipgloss.Left, parts...))
}

// SetSize updates the form dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
}

func (m *Model) buildForm() *huh.Form {
	statuses := make([]huh.Option[model.Status], len(model.Statuses))
	for i, s := range model.Statuses {
		statuses[i] = huh.NewOption(string(s), s)
	}

	fields := []huh.Field{
		huh.NewInput().
			Title("Name").
			Placeholder("What needs to be done?").
			Value(&m.fb.name).
			Validate(validateName),
		huh.NewSelect[model.Status]().
			Title("Status").
			Options(statuses...).
			Value(&m.fb.status),
	}
	if tagField := m.tagField(); tagField != nil {
		fields = append(fields, tagField)
	}
	fields = append(fields,
		huh.NewInput().
			Title("Image").
			Placeholder("Path to an image, 5 MiB max (optional)").
			Value(&m.fb.imagePath).
			Validate(validateImagePath),
	)
	if m.original != nil {
		if _, ok := m.original.Image(); ok {
			fields = append(fields,
				huh.NewConfirm().
					Title("Remove the current image?").
					Affirmative("Remove").
					Negative("Keep").
					Value(&m.fb.removeImage),
			)
		}
	}

	return huh.NewForm(
		huh.NewGroup(fields...),
	).WithWidth(m.formWidth()).WithHeight(m.formHeight())
}

func (m *Model) tagField() huh.Field {
	tags := TagOptions(m.tags, m.original)
	if len(tags) == 0 {
		return nil
	}
	opts := make([]huh.Option[string], len(tags))
	for i, t := range tags {
		opts[i] = huh.NewOption(t.Name, t.ID)
	}
	return huh.NewMultiSelect[string]().
		Title("Tags").
		Options(opts...).
		Value(&m.fb.tagIDs)
}

// TagOptions returns the tags the form offers. When the workspace holds any
// palette tag only palette tags are listed, in palette order; otherwise
// every tag is. Tags already on the edited task are always listed so that
// saving does not drop them.
func TagOptions(all []model.Tag, editing *model.Task) []model.Tag {
	byName := make(map[string]model.Tag, len(all))
	for _, t := range all {
		if _, ok := byName[t.Name]; !ok {
			byName[t.Name] = t
		}
	}

	var out []model.Tag
	for _, name := range theme.PaletteTags {
		if t, ok := byName[name]; ok {
			out = append(out, t)
		}
	}
	if len(out) == 0 {
		out = slices.Clone(all)
	}

	if editing != nil {
		for _, t := range editing.Tags {
			if !slices.ContainsFunc(out, func(o model.Tag) bool { return o.ID == t.ID }) {
				out = append(out, t)
			}
		}
	}
	return out
}

func validateName(s string) error {
	if msg := model.ValidateTaskName(s); msg != "" {
		return errors.New(msg)
	}
	return nil
}

func validateImagePath(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return model.CheckImagePath(s)
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
	if h < 12 {
		h = 12
	}
	return h
}
