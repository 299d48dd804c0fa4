package viewstate

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/taskboard/internal/model"
)

type memPrefs struct {
	values map[string]string
	setErr error
}

func newMemPrefs() *memPrefs { return &memPrefs{values: map[string]string{}} }

func (m *memPrefs) GetPreference(_ context.Context, key string) (string, bool, error) {
	v, ok := m.values[key]
	return v, ok, nil
}

func (m *memPrefs) SetPreference(_ context.Context, key, value string) error {
	if m.setErr != nil {
		return m.setErr
	}
	m.values[key] = value
	return nil
}

func TestThemeFollowsSystemUntilToggled(t *testing.T) {
	prefs := newMemPrefs()
	var applied []Theme
	c := New(prefs, func() bool { return false }, func(th Theme) { applied = append(applied, th) }, nil)

	assert.Equal(t, ThemeLight, c.LoadTheme(context.Background()))
	assert.True(t, c.FollowsSystem())
	assert.Empty(t, prefs.values, "system-derived theme must not be persisted")

	assert.True(t, c.ApplySystemScheme(true))
	assert.Equal(t, ThemeDark, c.Theme())

	require.NoError(t, c.ToggleTheme(context.Background()))
	assert.Equal(t, ThemeLight, c.Theme())
	assert.False(t, c.FollowsSystem())
	assert.Equal(t, "light", prefs.values[ThemeKey])

	// System changes no longer apply.
	assert.False(t, c.ApplySystemScheme(false))
	assert.False(t, c.ApplySystemScheme(true))
	assert.Equal(t, ThemeLight, c.Theme())

	assert.Equal(t, []Theme{ThemeLight, ThemeDark, ThemeLight}, applied)
}

func TestPersistedThemeWinsOverSystem(t *testing.T) {
	prefs := newMemPrefs()

	first := New(prefs, func() bool { return false }, nil, nil)
	first.LoadTheme(context.Background())
	require.Equal(t, ThemeLight, first.Theme())
	require.NoError(t, first.ToggleTheme(context.Background()))
	require.Equal(t, ThemeDark, first.Theme())

	// A fresh controller over the same store is a reload.
	detectorCalled := false
	reloaded := New(prefs, func() bool {
		detectorCalled = true
		return false
	}, nil, nil)

	assert.Equal(t, ThemeDark, reloaded.LoadTheme(context.Background()))
	assert.False(t, detectorCalled)
	assert.False(t, reloaded.FollowsSystem())
}

func TestUnknownPersistedThemeFallsBackToSystem(t *testing.T) {
	prefs := newMemPrefs()
	prefs.values[ThemeKey] = "sepia"

	c := New(prefs, func() bool { return true }, nil, nil)
	assert.Equal(t, ThemeDark, c.LoadTheme(context.Background()))
	assert.True(t, c.FollowsSystem())
}

func TestToggleThemeKeepsThemeWhenSaveFails(t *testing.T) {
	prefs := newMemPrefs()
	prefs.setErr = errors.New("disk full")

	c := New(prefs, func() bool { return true }, nil, nil)
	c.LoadTheme(context.Background())

	err := c.ToggleTheme(context.Background())
	require.Error(t, err)
	assert.Equal(t, ThemeLight, c.Theme())
}

func TestSelectProjectClosesCompactSidebar(t *testing.T) {
	c := New(nil, nil, nil, nil)
	assert.True(t, c.SidebarVisible())

	c.SetCompact(true)
	assert.False(t, c.SidebarVisible())

	c.ToggleSidebar()
	assert.True(t, c.SidebarOverlay())

	c.SelectProject("p1")
	assert.Equal(t, "p1", c.SelectedProjectID())
	assert.False(t, c.SidebarVisible())

	c.SetCompact(false)
	c.SelectProject("p2")
	assert.True(t, c.SidebarVisible())
	assert.Equal(t, "p2", c.SelectedProjectID())
}

func TestProjectDeletedClearsSelection(t *testing.T) {
	c := New(nil, nil, nil, nil)
	c.SetCompact(true)
	c.ToggleSidebar()
	c.SelectProject("p1")
	c.ToggleSidebar()

	c.ProjectDeleted("p2")
	assert.Equal(t, "p1", c.SelectedProjectID())
	assert.False(t, c.SidebarOverlay())

	c.ProjectDeleted("p1")
	assert.Empty(t, c.SelectedProjectID())
}

func TestSingleModalAtATime(t *testing.T) {
	c := New(nil, nil, nil, nil)
	task := model.Task{ID: "t1", Name: "Edit me"}

	c.OpenEditModal(task)
	m := c.Modal()
	require.Equal(t, ModalEditTask, m.Kind)
	require.NotNil(t, m.Task)
	assert.Equal(t, "t1", m.Task.ID)

	c.OpenCreateModal(ModalCreateTask)
	m = c.Modal()
	assert.Equal(t, ModalCreateTask, m.Kind)
	assert.Nil(t, m.Task)

	c.OpenEditModal(task)
	c.CloseModal()
	assert.False(t, c.Modal().Open())
	assert.Nil(t, c.Modal().Task)

	c.OpenCreateModal(ModalEditTask)
	assert.False(t, c.Modal().Open(), "edit modal needs a task")
}

func TestDeleteConfirmationGate(t *testing.T) {
	c := New(nil, nil, nil, nil)

	_, ok := c.ConfirmDelete()
	assert.False(t, ok, "nothing to confirm")

	target := DeleteTarget{Kind: DeleteProject, ID: "p1", Name: "🚀 Launch"}
	c.OpenEditModal(model.Task{ID: "t1"})
	c.RequestDelete(target)
	assert.False(t, c.Modal().Open())

	pending, ok := c.PendingDelete()
	require.True(t, ok)
	assert.Equal(t, target, pending)

	c.CancelDelete()
	_, ok = c.ConfirmDelete()
	assert.False(t, ok)

	c.RequestDelete(target)
	got, ok := c.ConfirmDelete()
	require.True(t, ok)
	assert.Equal(t, target, got)
	_, ok = c.PendingDelete()
	assert.False(t, ok)
}
