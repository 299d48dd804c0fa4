package app

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/nhle/taskboard/internal/cache"
	appsync "github.com/nhle/taskboard/internal/sync"
	"github.com/nhle/taskboard/internal/theme"
	"github.com/nhle/taskboard/internal/viewstate"
)

// authHint replaces the key hints after the API rejected the token.
const authHint = "API token rejected. Run `taskboard auth set-token` and restart."

// View renders the full terminal UI using the layout manager.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	header := m.layout.Header(m.title(), m.syncStatus())
	statusBar := m.layout.StatusBar(m.statusLine())
	return m.layout.Frame(header, m.renderContent(), statusBar)
}

// renderContent returns the board, the sidebar, and whichever overlay is
// open on top of them.
func (m Model) renderContent() string {
	switch kind := m.vs.Modal().Kind; kind {
	case viewstate.ModalCreateTask, viewstate.ModalEditTask:
		return m.layout.Overlay(m.taskForm.View())
	case viewstate.ModalCreateProject:
		return m.layout.Overlay(m.projectForm.View())
	}
	if m.confirmOpen() {
		return m.layout.Overlay(m.confirm.View())
	}
	if m.showHelp {
		return m.layout.Overlay(m.helpView.View())
	}

	if m.vs.SidebarOverlay() {
		return m.layout.Drawer(m.sidebar.View())
	}
	if m.vs.Compact() {
		return m.board.View()
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, m.sidebar.View(), m.board.View())
}

func (m Model) title() string {
	title := "Taskboard"
	id := m.vs.SelectedProjectID()
	for _, p := range m.sidebar.Projects() {
		if p.ID == id {
			return title + " · " + p.Name
		}
	}
	return title
}

// syncStatus summarises the loads backing the screen.
func (m Model) syncStatus() string {
	ws := m.refresher.WorkspaceID()
	keys := []cache.Key{cache.ProjectsKey(ws), cache.TagsKey(ws)}
	if pid := m.vs.SelectedProjectID(); pid != "" {
		keys = append(keys, cache.TasksKey(pid))
	}

	failed := false
	for _, k := range keys {
		switch m.refresher.Status(k).State {
		case appsync.SyncRunning:
			return "syncing..."
		case appsync.SyncError:
			failed = true
		}
	}
	if failed {
		return "⚠ sync failed"
	}
	if last := m.refresher.LastSync(); !last.IsZero() {
		return "synced " + humanize.Time(last)
	}
	return ""
}

// statusLine returns the auth warning, the last status message, or the
// key hints, in that order of priority.
func (m Model) statusLine() string {
	if m.authFailed {
		return theme.ErrorStyle.Render(authHint)
	}
	if m.statusMsg != "" {
		if m.statusErr {
			return theme.ErrorStyle.Render(m.statusMsg)
		}
		return m.statusMsg
	}
	return m.keyHints()
}

// keyHints returns keyboard shortcut hints for the status bar.
func (m Model) keyHints() string {
	switch {
	case m.vs.Modal().Open():
		return "enter next/submit | esc cancel"
	case m.showHelp:
		return "? close help | esc back"
	}
	if m.confirm.Pending() {
		return "deleting | ctrl+c quit"
	}
	if _, ok := m.vs.PendingDelete(); ok {
		return "←/→ choose | enter confirm | esc cancel"
	}
	if m.focus == focusSidebar {
		return "enter open | N new project | d delete | tab board | ? help | q quit"
	}
	if m.vs.Compact() {
		return "h/l column | H/L move | n new | enter edit | d delete | s projects | ? help"
	}
	return "h/l column | H/L move | n new | enter edit | d delete | tab projects | T theme | ? help"
}
