package board

import (
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/taskboard/internal/keys"
	"github.com/nhle/taskboard/internal/model"
)

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func card(id, name string, status model.Status) model.Task {
	return model.Task{ID: id, Name: name, Membership: model.Membership{SectionName: string(status)}}
}

func loaded(t *testing.T, tasks ...model.Task) Model {
	t.Helper()
	m := New(keys.DefaultKeyMap(), 160, 30)
	m.SetFocused(true)
	require.NotNil(t, m.SetProject("p1"))
	m.SetTasks(tasks, nil)
	return m
}

func TestEmptyAndErrorStates(t *testing.T) {
	m := New(keys.DefaultKeyMap(), 120, 20)
	assert.Contains(t, m.View(), EmptyText)

	m.SetProject("p1")
	assert.Contains(t, m.View(), "Loading tasks...")

	m.SetTasks(nil, errors.New("boom"))
	assert.Contains(t, m.View(), LoadErrorText)
	assert.NotContains(t, m.View(), "Backlog")
}

func TestColumnsShowCounts(t *testing.T) {
	m := loaded(t,
		card("1", "Write docs", model.StatusBacklog),
		card("2", "Fix login", model.StatusInProgress),
		card("3", "Plan sprint", model.StatusBacklog),
	)
	view := m.View()

	assert.Contains(t, view, "Backlog (2)")
	assert.Contains(t, view, "In Progress (1)")
	assert.Contains(t, view, "In Review (0)")
	assert.Contains(t, view, "Completed (0)")
	assert.Contains(t, view, "Write docs")
	assert.Contains(t, view, "No tasks")
	assert.Contains(t, view, AddTaskText)
}

func TestCardShowsTagsAndImage(t *testing.T) {
	c := card("1", "Design logo", model.StatusInReview)
	c.Tags = []model.Tag{{ID: "t1", Name: "design"}}
	c.Attachments = []model.Attachment{{ID: "a1"}}
	view := loaded(t, c).View()

	assert.Contains(t, view, "design")
	assert.Contains(t, view, ImageMarker)
}

func TestCursorNavigation(t *testing.T) {
	m := loaded(t,
		card("1", "A", model.StatusBacklog),
		card("2", "B", model.StatusBacklog),
		card("3", "C", model.StatusInProgress),
	)

	m, _ = m.Update(runes("j"))
	sel, ok := m.Selected()
	require.True(t, ok)
	assert.Equal(t, "2", sel.ID)

	m, _ = m.Update(runes("l"))
	col, row := m.Cursor()
	assert.Equal(t, 1, col)
	assert.Equal(t, 0, row, "row is clamped to the shorter column")

	m, _ = m.Update(runes("l"))
	_, ok = m.Selected()
	assert.False(t, ok)
}

func TestMoveEmitsMoveMsgAndFollowsCard(t *testing.T) {
	m := loaded(t,
		card("1", "A", model.StatusBacklog),
		card("2", "B", model.StatusInProgress),
	)

	m, cmd := m.Update(runes("L"))
	require.NotNil(t, cmd)
	assert.Equal(t, MoveMsg{ProjectID: "p1", TaskID: "1", To: model.StatusInProgress}, cmd())

	// The patched cache entry comes back with the card in its new column.
	m.SetTasks([]model.Task{
		card("2", "B", model.StatusInProgress),
		card("1", "A", model.StatusInProgress),
	}, nil)
	sel, ok := m.Selected()
	require.True(t, ok)
	assert.Equal(t, "1", sel.ID)
	col, row := m.Cursor()
	assert.Equal(t, 1, col)
	assert.Equal(t, 1, row)
}

func TestMoveStopsAtEdges(t *testing.T) {
	m := loaded(t, card("1", "A", model.StatusBacklog))
	_, cmd := m.Update(runes("H"))
	assert.Nil(t, cmd)
}

func TestSelectNewAndDelete(t *testing.T) {
	m := loaded(t, card("1", "A", model.StatusBacklog))

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	assert.Equal(t, "1", cmd().(EditMsg).Task.ID)

	_, cmd = m.Update(runes("n"))
	require.NotNil(t, cmd)
	assert.Equal(t, NewTaskMsg{ProjectID: "p1"}, cmd())

	_, cmd = m.Update(runes("d"))
	require.NotNil(t, cmd)
	assert.Equal(t, "1", cmd().(DeleteMsg).Task.ID)
}

func TestKeysIgnoredWhileLoading(t *testing.T) {
	m := New(keys.DefaultKeyMap(), 120, 20)
	m.SetProject("p1")
	_, cmd := m.Update(runes("n"))
	assert.Nil(t, cmd)
}

func TestCompactShowsCursorColumnOnly(t *testing.T) {
	m := loaded(t,
		card("1", "Write docs", model.StatusBacklog),
		card("2", "Fix login", model.StatusInProgress),
	)
	m.SetCompact(true)
	m.SetSize(60, 20)

	view := m.View()
	assert.Contains(t, view, "In Progress (1)")
	assert.Contains(t, view, "Write docs")
	assert.NotContains(t, view, "Fix login")
}
