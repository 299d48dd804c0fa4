package app

import (
	"context"
	"errors"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhle/taskboard/internal/model"
	"github.com/nhle/taskboard/internal/mutation"
	"github.com/nhle/taskboard/internal/ui/board"
	"github.com/nhle/taskboard/internal/ui/taskform"
	"github.com/nhle/taskboard/internal/viewstate"
)

type taskMovedMsg struct {
	projectID string
	err       error
}

type taskSavedMsg struct {
	projectID string
	created   bool
	err       error
}

type taskDeletedMsg struct {
	projectID string
	name      string
	err       error
}

type projectCreatedMsg struct {
	project model.Project
	err     error
}

type projectDeletedMsg struct {
	id   string
	name string
	err  error
}

func deleteTitle(kind viewstate.DeleteKind, name string) string {
	if kind == viewstate.DeleteProject {
		return fmt.Sprintf("Delete project %q?", name)
	}
	return fmt.Sprintf("Delete task %q?", name)
}

// moveTask returns a command running the optimistic status change. The
// board re-renders from the patched cache entry before the call settles.
func (m Model) moveTask(msg board.MoveMsg) tea.Cmd {
	c := m.coordinator
	timeout := m.opTimeout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		err := c.MoveTask(ctx, msg.ProjectID, msg.TaskID, msg.To)
		return taskMovedMsg{projectID: msg.ProjectID, err: err}
	}
}

func (m Model) saveTask(msg taskform.SubmitMsg) tea.Cmd {
	c := m.coordinator
	timeout := m.opTimeout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		if msg.Original == nil {
			_, err := c.CreateTask(ctx, msg.ProjectID, msg.Input)
			return taskSavedMsg{projectID: msg.ProjectID, created: true, err: err}
		}
		err := c.UpdateTask(ctx, msg.ProjectID, *msg.Original, msg.Input)
		return taskSavedMsg{projectID: msg.ProjectID, err: err}
	}
}

func (m Model) createProject(in model.ProjectInput) tea.Cmd {
	c := m.coordinator
	timeout := m.opTimeout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		p, err := c.CreateProject(ctx, in)
		return projectCreatedMsg{project: p, err: err}
	}
}

func (m Model) deleteTarget(t viewstate.DeleteTarget) tea.Cmd {
	c := m.coordinator
	timeout := m.opTimeout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		if t.Kind == viewstate.DeleteProject {
			err := c.DeleteProject(ctx, t.ID)
			return projectDeletedMsg{id: t.ID, name: t.Name, err: err}
		}
		err := c.DeleteTask(ctx, t.ProjectID, t.ID)
		return taskDeletedMsg{projectID: t.ProjectID, name: t.Name, err: err}
	}
}

// inFlight reports a submission dropped by the double-submit guard. It is
// not an error for the user: the first submission is still running.
func inFlight(err error) bool {
	return errors.Is(err, mutation.ErrInFlight)
}

// reloadTasks reloads the board when it still shows projectID.
func (m Model) reloadTasks(projectID string) tea.Cmd {
	if projectID == "" || projectID != m.vs.SelectedProjectID() {
		return nil
	}
	return m.refresher.LoadTasks(projectID)
}

func (m Model) handleTaskMoved(msg taskMovedMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		m.noteLoadError(msg.err)
		m.setStatus("Could not move the task", true)
	}
	return m, m.reloadTasks(msg.projectID)
}

func (m Model) handleTaskSaved(msg taskSavedMsg) (tea.Model, tea.Cmd) {
	switch {
	case inFlight(msg.err):
		return m, nil
	case msg.err != nil:
		m.noteLoadError(msg.err)
		if m.vs.Modal().Kind == viewstate.ModalCreateTask || m.vs.Modal().Kind == viewstate.ModalEditTask {
			cmd := m.taskForm.SetError(msg.err)
			// Earlier steps of a failed update may have landed.
			return m, tea.Batch(cmd, m.reloadTasks(msg.projectID))
		}
		m.setStatus("Could not save the task", true)
		return m, m.reloadTasks(msg.projectID)
	}

	m.vs.CloseModal()
	if msg.created {
		m.setStatus("Task created", false)
	} else {
		m.setStatus("Task saved", false)
	}
	return m, m.reloadTasks(msg.projectID)
}

func (m Model) handleTaskDeleted(msg taskDeletedMsg) (tea.Model, tea.Cmd) {
	switch {
	case inFlight(msg.err):
		return m, nil
	case msg.err != nil:
		m.confirm.Done()
		m.noteLoadError(msg.err)
		m.setStatus(fmt.Sprintf("Could not delete %q", msg.name), true)
		return m, nil
	}
	m.confirm.Done()
	m.setStatus(fmt.Sprintf("Deleted %q", msg.name), false)
	return m, m.reloadTasks(msg.projectID)
}

func (m Model) handleProjectCreated(msg projectCreatedMsg) (tea.Model, tea.Cmd) {
	switch {
	case inFlight(msg.err):
		return m, nil
	case msg.err != nil && msg.project.ID != "":
		// The project exists but some of its columns could not be created.
		m.noteLoadError(msg.err)
		m.vs.CloseModal()
		m.setStatus(fmt.Sprintf("Created %q, but some columns are missing", msg.project.Name), true)
		return m, m.refresher.LoadProjects()
	case msg.err != nil:
		m.noteLoadError(msg.err)
		if m.vs.Modal().Kind == viewstate.ModalCreateProject {
			cmd := m.projectForm.SetError(msg.err)
			return m, cmd
		}
		m.setStatus("Could not create the project", true)
		return m, nil
	}

	m.vs.CloseModal()
	m.setStatus(fmt.Sprintf("Created %q", msg.project.Name), false)
	return m, m.refresher.LoadProjects()
}

func (m Model) handleProjectDeleted(msg projectDeletedMsg) (tea.Model, tea.Cmd) {
	switch {
	case inFlight(msg.err):
		return m, nil
	case msg.err != nil:
		m.confirm.Done()
		m.noteLoadError(msg.err)
		m.setStatus(fmt.Sprintf("Could not delete %q", msg.name), true)
		return m, nil
	}

	m.confirm.Done()
	m.vs.ProjectDeleted(msg.id)
	selected := m.vs.SelectedProjectID()
	m.sidebar.SetSelected(selected)
	m.board.SetProject(selected)
	m.syncFocus()
	m.setStatus(fmt.Sprintf("Deleted %q", msg.name), false)
	return m, m.refresher.LoadProjects()
}
