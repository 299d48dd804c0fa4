package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/taskboard/internal/model"
	"github.com/nhle/taskboard/internal/store"
	"github.com/nhle/taskboard/internal/viewstate"
)

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	root := NewRootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func stubTokenStore(t *testing.T) *string {
	t.Helper()
	saved := new(string)
	origSet, origClear := setToken, clearToken
	setToken = func(tok string) error {
		*saved = tok
		return nil
	}
	clearToken = func() error {
		*saved = ""
		return nil
	}
	t.Cleanup(func() {
		setToken, clearToken = origSet, origClear
	})
	return saved
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "", "version")
	require.NoError(t, err)
	assert.Contains(t, out, "taskboard dev")
	assert.Contains(t, out, "commit: none")
}

func TestAuthSetTokenFromArg(t *testing.T) {
	saved := stubTokenStore(t)

	out, err := execute(t, "", "auth", "set-token", "  pat-123 ")
	require.NoError(t, err)
	assert.Equal(t, "pat-123", *saved)
	assert.Contains(t, out, "Token saved.")
}

func TestAuthSetTokenFromStdin(t *testing.T) {
	saved := stubTokenStore(t)

	_, err := execute(t, "pat-456\nignored\n", "auth", "set-token")
	require.NoError(t, err)
	assert.Equal(t, "pat-456", *saved)
}

func TestAuthSetTokenRejectsEmpty(t *testing.T) {
	saved := stubTokenStore(t)

	_, err := execute(t, "\n", "auth", "set-token")
	require.Error(t, err)
	assert.Empty(t, *saved)
}

func TestAuthClear(t *testing.T) {
	saved := stubTokenStore(t)
	*saved = "pat"

	out, err := execute(t, "", "auth", "clear")
	require.NoError(t, err)
	assert.Empty(t, *saved)
	assert.Contains(t, out, "Token removed.")
}

func TestLoadConfigFlagOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("api:\n  workspace_id: \"111\"\nlog:\n  level: info\n"), 0o600))

	cfg, err := loadConfig(&rootOptions{configPath: path, workspace: "222", logLevel: "debug"})
	require.NoError(t, err)
	assert.Equal(t, "222", cfg.API.WorkspaceID)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoadConfigRequiresWorkspace(t *testing.T) {
	t.Setenv("TASKBOARD_API_WORKSPACE_ID", "")
	path := filepath.Join(t.TempDir(), "missing.yaml")

	_, err := loadConfig(&rootOptions{configPath: path})
	require.ErrorIs(t, err, model.ErrNoWorkspace)
	assert.Contains(t, err.Error(), "--workspace")
}

func TestConfigInitWritesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	out, err := execute(t, "", "config", "init", "--config", path, "--workspace", "333")
	require.NoError(t, err)
	assert.Contains(t, out, "Wrote "+path)

	cfg, err := model.LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "333", cfg.API.WorkspaceID)
	assert.Equal(t, model.DefaultBaseURL, cfg.API.BaseURL)
	assert.Equal(t, 5, cfg.Display.ThemePollSec)
}

func TestConfigInitKeepsExistingFile(t *testing.T) {
	t.Setenv("TASKBOARD_API_WORKSPACE_ID", "")
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("api:\n  workspace_id: \"111\"\n"), 0o600))

	_, err := execute(t, "", "config", "init", "--config", path, "--workspace", "222")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--force")

	cfg, err := model.LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "111", cfg.API.WorkspaceID)

	_, err = execute(t, "", "config", "init", "--config", path, "--workspace", "222", "--force")
	require.NoError(t, err)
	cfg, err = model.LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "222", cfg.API.WorkspaceID)
}

func TestConfigResetTheme(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prefs.db")
	orig := prefsPath
	prefsPath = func() string { return path }
	t.Cleanup(func() { prefsPath = orig })

	ctx := context.Background()
	db, err := store.NewSQLiteStore(path)
	require.NoError(t, err)
	require.NoError(t, db.SetPreference(ctx, viewstate.ThemeKey, "dark"))
	require.NoError(t, db.Close())

	out, err := execute(t, "", "config", "reset-theme")
	require.NoError(t, err)
	assert.Contains(t, out, "Theme reset.")

	db, err = store.NewSQLiteStore(path)
	require.NoError(t, err)
	defer db.Close()
	_, ok, err := db.GetPreference(ctx, viewstate.ThemeKey)
	require.NoError(t, err)
	assert.False(t, ok)
}
