package model

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("TASKBOARD_API_WORKSPACE_ID", "")
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, DefaultBaseURL, cfg.API.BaseURL)
	assert.Equal(t, 30, cfg.API.TimeoutSec)
	assert.Equal(t, 3, cfg.API.MaxRetries)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, 100, cfg.Display.CompactWidth)
	assert.Equal(t, 5, cfg.Display.ThemePollSec)
	assert.ErrorIs(t, cfg.Validate(), ErrNoWorkspace)
}

func TestLoadConfigFileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := "api:\n  base_url: https://example.test/api/\n  workspace_id: \"42\"\n  timeout_sec: -1\nlog:\n  level: debug\n"
	require.NoError(t, os.WriteFile(path, []byte(data), 0o600))
	t.Setenv("TASKBOARD_LOG_LEVEL", "warn")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "https://example.test/api", cfg.API.BaseURL)
	assert.Equal(t, "42", cfg.API.WorkspaceID)
	assert.Equal(t, 30, cfg.API.TimeoutSec, "non-positive timeout falls back to the default")
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.NoError(t, cfg.Validate())
}

func TestLoadConfigRejectsMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("api: [unclosed"), 0o600))

	_, err := LoadConfig(path)
	assert.Error(t, err)
}

func TestSaveConfigRoundTrip(t *testing.T) {
	t.Setenv("TASKBOARD_API_WORKSPACE_ID", "")
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := defaultAppConfig()
	cfg.API.WorkspaceID = "7"
	cfg.Display.CompactWidth = 120

	require.NoError(t, SaveConfig(path, cfg))
	got, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "7", got.API.WorkspaceID)
	assert.Equal(t, 120, got.Display.CompactWidth)
}
