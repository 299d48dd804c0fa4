// Package viewstate tracks UI-only state that no remote resource backs:
// the selected project, sidebar visibility, the open modal, the pending
// delete confirmation and the color theme.
package viewstate

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/nhle/taskboard/internal/model"
)

// Theme is one of the two color themes.
type Theme string

const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
)

// ThemeKey is the preference key the chosen theme is persisted under.
const ThemeKey = "theme"

// Valid reports whether t is a known theme.
func (t Theme) Valid() bool {
	return t == ThemeLight || t == ThemeDark
}

// Toggle returns the other theme.
func (t Theme) Toggle() Theme {
	if t == ThemeDark {
		return ThemeLight
	}
	return ThemeDark
}

// Dark reports whether t is the dark theme.
func (t Theme) Dark() bool { return t == ThemeDark }

// PreferenceStore persists string preferences.
type PreferenceStore interface {
	GetPreference(ctx context.Context, key string) (value string, ok bool, err error)
	SetPreference(ctx context.Context, key, value string) error
}

// SchemeDetector reports whether the terminal's color scheme is dark.
type SchemeDetector func() bool

// Applier makes a theme take effect for rendering.
type Applier func(Theme)

// ModalKind identifies which modal is open.
type ModalKind int

const (
	ModalNone ModalKind = iota
	ModalCreateTask
	ModalEditTask
	ModalCreateProject
)

func (k ModalKind) String() string {
	switch k {
	case ModalCreateTask:
		return "create-task"
	case ModalEditTask:
		return "edit-task"
	case ModalCreateProject:
		return "create-project"
	default:
		return "none"
	}
}

// Modal is the open modal and the task it edits, if any.
type Modal struct {
	Kind ModalKind
	Task *model.Task
}

// Open reports whether any modal is open.
func (m Modal) Open() bool { return m.Kind != ModalNone }

// DeleteKind is the type of entity awaiting delete confirmation.
type DeleteKind int

const (
	DeleteTask DeleteKind = iota + 1
	DeleteProject
)

// DeleteTarget is the entity a delete confirmation is for.
type DeleteTarget struct {
	Kind      DeleteKind
	ID        string
	Name      string
	ProjectID string
}

// Controller holds the UI state. It is owned by the UI event loop and not
// safe for concurrent use.
type Controller struct {
	prefs  PreferenceStore
	detect SchemeDetector
	apply  Applier
	logger *slog.Logger

	selectedProjectID string
	compact           bool
	sidebarOpen       bool
	modal             Modal
	pendingDelete     *DeleteTarget

	theme         Theme
	themeExplicit bool
}

// New creates a controller. detect and apply may be nil.
func New(prefs PreferenceStore, detect SchemeDetector, apply Applier, logger *slog.Logger) *Controller {
	if detect == nil {
		detect = func() bool { return true }
	}
	if apply == nil {
		apply = func(Theme) {}
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Controller{
		prefs:  prefs,
		detect: detect,
		apply:  apply,
		logger: logger,
		theme:  ThemeDark,
	}
}

// LoadTheme applies the persisted theme. Without a persisted value the
// theme follows the terminal's color scheme and is not persisted.
func (c *Controller) LoadTheme(ctx context.Context) Theme {
	if c.prefs != nil {
		v, ok, err := c.prefs.GetPreference(ctx, ThemeKey)
		switch {
		case err != nil:
			c.logger.Warn("reading theme preference", "error", err)
		case ok && Theme(v).Valid():
			c.theme = Theme(v)
			c.themeExplicit = true
			c.apply(c.theme)
			return c.theme
		case ok:
			c.logger.Warn("ignoring unknown theme preference", "value", v)
		}
	}

	c.theme = c.systemTheme()
	c.themeExplicit = false
	c.apply(c.theme)
	return c.theme
}

func (c *Controller) systemTheme() Theme {
	if c.detect() {
		return ThemeDark
	}
	return ThemeLight
}

// Theme returns the current theme.
func (c *Controller) Theme() Theme { return c.theme }

// FollowsSystem reports whether the theme still tracks the terminal's
// color scheme, which stops once the user toggles it.
func (c *Controller) FollowsSystem() bool { return !c.themeExplicit }

// ApplySystemScheme applies a color scheme reported by the system when the
// theme still follows it. It reports whether the theme changed. The scheme
// is read outside the UI loop; the detector given to New is only consulted
// by LoadTheme.
func (c *Controller) ApplySystemScheme(dark bool) bool {
	if c.themeExplicit {
		return false
	}
	next := ThemeLight
	if dark {
		next = ThemeDark
	}
	if next == c.theme {
		return false
	}
	c.theme = next
	c.apply(next)
	return true
}

// ToggleTheme flips the theme and persists the choice. The new theme stays
// in effect even if persisting fails.
func (c *Controller) ToggleTheme(ctx context.Context) error {
	c.theme = c.theme.Toggle()
	c.themeExplicit = true
	c.apply(c.theme)

	if c.prefs == nil {
		return nil
	}
	if err := c.prefs.SetPreference(ctx, ThemeKey, string(c.theme)); err != nil {
		c.logger.Error("persisting theme", "theme", string(c.theme), "error", err)
		return fmt.Errorf("saving theme: %w", err)
	}
	return nil
}

// SelectProject selects a project. In compact layout an open sidebar
// closes.
func (c *Controller) SelectProject(id string) {
	c.selectedProjectID = id
	if c.compact && c.sidebarOpen {
		c.sidebarOpen = false
	}
}

// SelectedProjectID returns the selected project, or "".
func (c *Controller) SelectedProjectID() string { return c.selectedProjectID }

// ProjectDeleted clears the selection if it pointed at id and closes the
// compact sidebar.
func (c *Controller) ProjectDeleted(id string) {
	if c.selectedProjectID == id {
		c.selectedProjectID = ""
	}
	if c.compact {
		c.sidebarOpen = false
	}
}

// SetCompact switches between the wide layout, where the sidebar is always
// shown, and the compact one, where it is an overlay that starts closed.
func (c *Controller) SetCompact(compact bool) {
	if compact == c.compact {
		return
	}
	c.compact = compact
	c.sidebarOpen = false
}

// Compact reports whether the compact layout is active.
func (c *Controller) Compact() bool { return c.compact }

// ToggleSidebar opens or closes the compact sidebar overlay.
func (c *Controller) ToggleSidebar() {
	if c.compact {
		c.sidebarOpen = !c.sidebarOpen
	}
}

// CloseSidebar closes the compact sidebar overlay.
func (c *Controller) CloseSidebar() { c.sidebarOpen = false }

// SidebarVisible reports whether the project list is shown.
func (c *Controller) SidebarVisible() bool { return !c.compact || c.sidebarOpen }

// SidebarOverlay reports whether the sidebar is shown as a compact overlay.
func (c *Controller) SidebarOverlay() bool { return c.compact && c.sidebarOpen }

// OpenCreateModal opens the create-task or create-project modal, replacing
// any open modal.
func (c *Controller) OpenCreateModal(kind ModalKind) {
	if kind != ModalCreateTask && kind != ModalCreateProject {
		return
	}
	c.pendingDelete = nil
	c.modal = Modal{Kind: kind}
}

// OpenEditModal opens the edit modal for a copy of task.
func (c *Controller) OpenEditModal(task model.Task) {
	c.pendingDelete = nil
	c.modal = Modal{Kind: ModalEditTask, Task: &task}
}

// CloseModal closes the open modal and clears its target.
func (c *Controller) CloseModal() { c.modal = Modal{} }

// Modal returns the open modal.
func (c *Controller) Modal() Modal { return c.modal }

// RequestDelete asks for confirmation before deleting target. Any open
// modal closes.
func (c *Controller) RequestDelete(target DeleteTarget) {
	c.modal = Modal{}
	c.pendingDelete = &target
}

// PendingDelete returns the entity awaiting confirmation.
func (c *Controller) PendingDelete() (DeleteTarget, bool) {
	if c.pendingDelete == nil {
		return DeleteTarget{}, false
	}
	return *c.pendingDelete, true
}

// ConfirmDelete closes the gate and returns the entity to delete. It
// returns false when nothing was pending.
func (c *Controller) ConfirmDelete() (DeleteTarget, bool) {
	t, ok := c.PendingDelete()
	c.pendingDelete = nil
	return t, ok
}

// CancelDelete closes the gate without deleting.
func (c *Controller) CancelDelete() { c.pendingDelete = nil }
