package app

import (
	"context"
	"log/slog"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhle/taskboard/internal/cache"
	"github.com/nhle/taskboard/internal/keys"
	"github.com/nhle/taskboard/internal/model"
	"github.com/nhle/taskboard/internal/mutation"
	"github.com/nhle/taskboard/internal/source"
	appsync "github.com/nhle/taskboard/internal/sync"
	"github.com/nhle/taskboard/internal/ui"
	"github.com/nhle/taskboard/internal/ui/board"
	"github.com/nhle/taskboard/internal/ui/confirm"
	helpview "github.com/nhle/taskboard/internal/ui/help"
	"github.com/nhle/taskboard/internal/ui/projectform"
	"github.com/nhle/taskboard/internal/ui/sidebar"
	"github.com/nhle/taskboard/internal/ui/taskform"
	"github.com/nhle/taskboard/internal/viewstate"
)

// Default layout values, used when the config leaves them unset.
const (
	defaultCompactWidth = 100
	defaultThemePoll    = 5 * time.Second
	defaultOpTimeout    = 2 * time.Minute
	sidebarWidth        = 32
)

// focusArea is the panel receiving navigation keys.
type focusArea int

const (
	focusSidebar focusArea = iota
	focusBoard
)

// Deps are the collaborators of the root model.
type Deps struct {
	Cache       *cache.Cache
	Coordinator *mutation.Coordinator
	Refresher   *appsync.Refresher
	View        *viewstate.Controller
	Logger      *slog.Logger

	// CompactWidth is the terminal width below which the sidebar becomes
	// an overlay.
	CompactWidth int

	// SchemePoll reads the system color scheme. It runs inside a command,
	// never in Update, and must not query the terminal. Nil disables the
	// live theme.
	SchemePoll func(context.Context) (dark, ok bool)

	// ThemePoll is how often SchemePoll runs while the theme follows the
	// system.
	ThemePoll time.Duration

	// OpTimeout bounds one mutation, all of its remote calls included.
	OpTimeout time.Duration
}

// Model is the root Bubble Tea model. It routes input to the focused
// panel or the open overlay and runs mutations through the coordinator.
type Model struct {
	cache       *cache.Cache
	coordinator *mutation.Coordinator
	refresher   *appsync.Refresher
	vs          *viewstate.Controller
	logger      *slog.Logger

	keys   *keys.KeyMap
	layout ui.Layout
	ready  bool
	focus  focusArea

	sidebar     sidebar.Model
	board       board.Model
	taskForm    taskform.Model
	projectForm projectform.Model
	confirm     confirm.Model
	helpView    helpview.Model
	showHelp    bool

	tags []model.Tag

	statusMsg  string
	statusErr  bool
	authFailed bool

	compactWidth int
	themePoll    time.Duration
	schemePoll   func(context.Context) (dark, ok bool)
	opTimeout    time.Duration
}

// New creates the root model.
func New(d Deps) Model {
	k := keys.DefaultKeyMap()
	if d.Logger == nil {
		d.Logger = slog.New(slog.DiscardHandler)
	}
	if d.CompactWidth <= 0 {
		d.CompactWidth = defaultCompactWidth
	}
	if d.ThemePoll <= 0 {
		d.ThemePoll = defaultThemePoll
	}
	if d.OpTimeout <= 0 {
		d.OpTimeout = defaultOpTimeout
	}

	m := Model{
		cache:        d.Cache,
		coordinator:  d.Coordinator,
		refresher:    d.Refresher,
		vs:           d.View,
		logger:       d.Logger,
		keys:         k,
		focus:        focusSidebar,
		sidebar:      sidebar.New(k, sidebarWidth, 24),
		board:        board.New(k, 80, 24),
		taskForm:     taskform.New(80, 24),
		projectForm:  projectform.New(80, 24),
		confirm:      confirm.New(80),
		helpView:     helpview.New(k, 80, 24),
		compactWidth: d.CompactWidth,
		themePoll:    d.ThemePoll,
		schemePoll:   d.SchemePoll,
		opTimeout:    d.OpTimeout,
	}
	m.sidebar.SetFocused(true)
	return m
}

// themeTickMsg triggers a read of the system color scheme.
type themeTickMsg struct{}

// systemSchemeMsg carries the scheme read by readScheme.
type systemSchemeMsg struct {
	dark, ok bool
}

func (m Model) themeTick() tea.Cmd {
	if m.schemePoll == nil {
		return nil
	}
	return tea.Tick(m.themePoll, func(time.Time) tea.Msg { return themeTickMsg{} })
}

// readScheme runs the scheme poll off the event loop.
func (m Model) readScheme() tea.Cmd {
	poll := m.schemePoll
	timeout := m.themePoll
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		dark, ok := poll(ctx)
		return systemSchemeMsg{dark: dark, ok: ok}
	}
}

// Init loads the project and tag lists and starts listening for cache
// changes.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.sidebar.Init(),
		m.refresher.LoadProjects(),
		m.refresher.LoadTags(),
		m.refresher.WaitForChange(),
		m.themeTick(),
	)
}

// Update handles messages and dispatches to the active view.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		m.ready = true
		return m.updateOverlay(msg)

	case spinner.TickMsg:
		var c1, c2 tea.Cmd
		m.sidebar, c1 = m.sidebar.Update(msg)
		m.board, c2 = m.board.Update(msg)
		return m, tea.Batch(c1, c2)

	case themeTickMsg:
		if !m.vs.FollowsSystem() {
			return m, nil
		}
		return m, m.readScheme()

	case systemSchemeMsg:
		if msg.ok && m.vs.ApplySystemScheme(msg.dark) {
			m.logger.Debug("system color scheme changed", "theme", string(m.vs.Theme()))
		}
		return m, m.themeTick()

	case appsync.ProjectsLoadedMsg:
		m.noteLoadError(msg.Err)
		m.sidebar.SetProjects(msg.Projects, msg.Err)
		m.sidebar.SetSelected(m.vs.SelectedProjectID())
		return m, nil

	case appsync.TasksLoadedMsg:
		// A load for a project that is no longer shown is dropped.
		if msg.ProjectID != m.vs.SelectedProjectID() {
			return m, nil
		}
		m.noteLoadError(msg.Err)
		m.board.SetTasks(msg.Tasks, msg.Err)
		return m, nil

	case appsync.TagsLoadedMsg:
		m.noteLoadError(msg.Err)
		if msg.Err == nil {
			m.tags = msg.Tags
			m.taskForm.SetTags(msg.Tags)
		}
		return m, nil

	case appsync.SectionsLoadedMsg:
		return m, nil

	case appsync.CacheChangedMsg:
		wait := m.refresher.WaitForChange()
		if m.displays(msg.Key) && m.refresher.NeedsReload(msg.Key) {
			return m, tea.Batch(m.refresher.Reload(msg.Key), wait)
		}
		return m, wait

	case sidebar.SelectMsg:
		return m.selectProject(msg.Project.ID)

	case sidebar.NewProjectMsg:
		m.vs.OpenCreateModal(viewstate.ModalCreateProject)
		return m, m.projectForm.Start()

	case sidebar.DeleteMsg:
		m.vs.RequestDelete(viewstate.DeleteTarget{
			Kind: viewstate.DeleteProject,
			ID:   msg.Project.ID,
			Name: msg.Project.Name,
		})
		return m, m.confirm.Start(deleteTitle(viewstate.DeleteProject, msg.Project.Name), "This cannot be undone.")

	case board.MoveMsg:
		return m, m.moveTask(msg)

	case board.NewTaskMsg:
		m.vs.OpenCreateModal(viewstate.ModalCreateTask)
		return m, m.taskForm.StartCreate(msg.ProjectID)

	case board.EditMsg:
		m.vs.OpenEditModal(msg.Task)
		return m, m.taskForm.StartEdit(m.board.ProjectID(), msg.Task)

	case board.DeleteMsg:
		m.vs.RequestDelete(viewstate.DeleteTarget{
			Kind:      viewstate.DeleteTask,
			ID:        msg.Task.ID,
			Name:      msg.Task.Name,
			ProjectID: m.board.ProjectID(),
		})
		return m, m.confirm.Start(deleteTitle(viewstate.DeleteTask, msg.Task.Name), "This cannot be undone.")

	case taskform.SubmitMsg:
		return m, m.saveTask(msg)

	case taskform.CancelMsg:
		m.vs.CloseModal()
		return m, nil

	case projectform.SubmitMsg:
		return m, m.createProject(msg.Input)

	case projectform.CancelMsg:
		m.vs.CloseModal()
		return m, nil

	case confirm.ConfirmedMsg:
		target, ok := m.vs.ConfirmDelete()
		if !ok {
			m.confirm.Done()
			return m, nil
		}
		m.confirm.SetPending()
		return m, m.deleteTarget(target)

	case confirm.CancelledMsg:
		m.vs.CancelDelete()
		m.confirm.Done()
		return m, nil

	case helpview.CloseMsg:
		m.showHelp = false
		return m, nil

	case taskMovedMsg:
		return m.handleTaskMoved(msg)

	case taskSavedMsg:
		return m.handleTaskSaved(msg)

	case taskDeletedMsg:
		return m.handleTaskDeleted(msg)

	case projectCreatedMsg:
		return m.handleProjectCreated(msg)

	case projectDeletedMsg:
		return m.handleProjectDeleted(msg)

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m.updateOverlay(msg)
}

// handleKey routes a key press: overlays first, then global keys, then
// the focused panel.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return m, tea.Quit
	}
	if m.overlayOpen() {
		return m.updateOverlay(msg)
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.showHelp = true
		m.helpView.SetNotes(m.helpNotes()...)
		return m, nil

	case key.Matches(msg, m.keys.Theme):
		if err := m.vs.ToggleTheme(context.Background()); err != nil {
			m.setStatus("Theme changed but could not be saved", true)
		} else {
			m.setStatus("Theme: "+string(m.vs.Theme()), false)
		}
		return m, nil

	case key.Matches(msg, m.keys.Sidebar):
		m.vs.ToggleSidebar()
		m.syncFocus()
		if m.vs.SidebarOverlay() {
			m.setFocus(focusSidebar)
		}
		return m, nil

	case key.Matches(msg, m.keys.Focus):
		if m.vs.SidebarVisible() && m.focus == focusBoard {
			m.setFocus(focusSidebar)
		} else {
			m.setFocus(focusBoard)
		}
		return m, nil

	case key.Matches(msg, m.keys.Refresh):
		cmd := m.refresh()
		return m, cmd

	case key.Matches(msg, m.keys.Back):
		if m.vs.SidebarOverlay() {
			m.vs.CloseSidebar()
			m.syncFocus()
		}
		m.statusMsg = ""
		return m, nil
	}

	var cmd tea.Cmd
	if m.focus == focusSidebar {
		m.sidebar, cmd = m.sidebar.Update(msg)
	} else {
		m.board, cmd = m.board.Update(msg)
	}
	return m, cmd
}

// overlayOpen reports whether a modal, the delete prompt or help covers
// the board.
func (m Model) overlayOpen() bool {
	if m.vs.Modal().Open() {
		return true
	}
	if m.confirmOpen() {
		return true
	}
	return m.showHelp
}

// confirmOpen reports whether the delete prompt is up, either waiting for
// an answer or for the confirmed delete to finish.
func (m Model) confirmOpen() bool {
	_, ok := m.vs.PendingDelete()
	return ok || m.confirm.Pending()
}

// updateOverlay forwards msg to the open overlay. Forms receive their own
// internal messages this way too.
func (m Model) updateOverlay(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.vs.Modal().Kind {
	case viewstate.ModalCreateTask, viewstate.ModalEditTask:
		m.taskForm, cmd = m.taskForm.Update(msg)
		return m, cmd
	case viewstate.ModalCreateProject:
		m.projectForm, cmd = m.projectForm.Update(msg)
		return m, cmd
	}
	if m.confirmOpen() {
		m.confirm, cmd = m.confirm.Update(msg)
		return m, cmd
	}
	if m.showHelp {
		m.helpView, cmd = m.helpView.Update(msg)
	}
	return m, cmd
}

func (m *Model) resize(width, height int) {
	m.vs.SetCompact(width < m.compactWidth)
	m.layout = ui.NewLayout(width, height, sidebarWidth, m.vs.Compact())
	m.board.SetCompact(m.vs.Compact())
	m.syncFocus()

	ch := m.layout.ContentHeight()
	m.sidebar.SetSize(m.layout.Sidebar, ch)
	m.board.SetSize(m.layout.BoardWidth(), ch)
	m.taskForm.SetSize(width, ch)
	m.projectForm.SetSize(width, ch)
	m.confirm.SetSize(width)
	m.helpView.SetSize(min(width, 90), ch)
}

func (m *Model) setFocus(f focusArea) {
	m.focus = f
	m.sidebar.SetFocused(f == focusSidebar)
	m.board.SetFocused(f == focusBoard)
}

// syncFocus moves focus off the sidebar when it is hidden.
func (m *Model) syncFocus() {
	if m.focus == focusSidebar && !m.vs.SidebarVisible() {
		m.setFocus(focusBoard)
	}
}

func (m Model) selectProject(id string) (tea.Model, tea.Cmd) {
	m.vs.SelectProject(id)
	m.sidebar.SetSelected(id)
	m.syncFocus()
	spin := m.board.SetProject(id)
	if !m.vs.SidebarOverlay() {
		m.setFocus(focusBoard)
	}
	return m, tea.Batch(spin, m.refresher.LoadTasks(id))
}

// displays reports whether key backs something on screen.
func (m Model) displays(key cache.Key) bool {
	ws := m.refresher.WorkspaceID()
	switch key {
	case cache.ProjectsKey(ws), cache.TagsKey(ws):
		return true
	}
	pid := m.vs.SelectedProjectID()
	return pid != "" && key == cache.TasksKey(pid)
}

// refresh invalidates everything on screen; the change notifications
// reload it.
// refresh drops the cached lists; the change listener reloads whatever
// is on screen.
func (m *Model) refresh() tea.Cmd {
	m.cache.Invalidate(
		cache.ListTag(cache.ResourceProjects),
		cache.ListTag(cache.ResourceTasks),
		cache.ListTag(cache.ResourceTags),
	)
	m.setStatus("Refreshing...", false)
	return m.sidebar.SetLoading()
}

func (m *Model) setStatus(msg string, isErr bool) {
	m.statusMsg = msg
	m.statusErr = isErr
}

// noteLoadError records an authentication failure; other load errors are
// shown by the region that failed.
func (m *Model) noteLoadError(err error) {
	if err == nil {
		return
	}
	if source.IsAuthError(err) {
		m.authFailed = true
	}
}

func (m Model) helpNotes() []string {
	notes := []string{"Theme: " + string(m.vs.Theme())}
	if m.vs.FollowsSystem() {
		notes[0] += " (following the terminal)"
	}
	return append(notes, "Workspace: "+m.refresher.WorkspaceID())
}
