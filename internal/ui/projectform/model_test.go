package projectform

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/taskboard/internal/model"
)

func TestSubmitValidInput(t *testing.T) {
	m := New(80, 24)
	m.Start()
	m.fb.name = "Roadmap"
	m.fb.logo = 3

	m, cmd := m.submit()
	require.NotNil(t, cmd)
	assert.True(t, m.Submitting())
	assert.Equal(t, SubmitMsg{Input: model.ProjectInput{Name: "Roadmap", LogoIndex: 3}}, cmd())
	assert.Contains(t, m.View(), "Creating project...")
}

func TestSubmitInvalidNameKeepsFormOpen(t *testing.T) {
	m := New(80, 24)
	m.Start()
	m.fb.name = "abc"

	m, _ = m.submit()
	assert.False(t, m.Submitting())
	var verr model.ValidationError
	require.ErrorAs(t, m.err, &verr)
	assert.Equal(t, "Project name must be at least 5 characters", verr["projectName"])
	assert.Equal(t, "abc", m.fb.name)
}

func TestStartClearsPreviousAttempt(t *testing.T) {
	m := New(80, 24)
	m.Start()
	m.fb.name = "abc"
	m, _ = m.submit()
	require.Error(t, m.err)

	m.Start()
	assert.NoError(t, m.err)
	assert.Empty(t, m.fb.name)
	assert.NotContains(t, m.View(), "at least 5")
}
