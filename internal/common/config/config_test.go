package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 3003, cfg.Terminal.Port)
	assert.Equal(t, "/bin/bash", cfg.Shell.Path)
	assert.Equal(t, 20000, cfg.Shell.MaxOutputChars)
	assert.Equal(t, 800, cfg.Shell.MaxOutputLines)
	assert.Equal(t, 20*time.Second, cfg.Shell.DefaultTimeout())

	assert.True(t, cfg.History.Enabled)
	assert.Equal(t, "termbridge-history.db", cfg.History.Path)

	assert.Equal(t, 3004, cfg.UI.Port)
	assert.Equal(t, "coordinate_map.json", cfg.UI.CoordsFile)

	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("TERMBRIDGE_TERMINAL_PORT", "4500")
	t.Setenv("TERMBRIDGE_SHELL_PATH", "/bin/sh")
	t.Setenv("TERMBRIDGE_SHELL_DEFAULT_TIMEOUT_SEC", "5.5")
	t.Setenv("TERMBRIDGE_HISTORY_ENABLED", "false")
	t.Setenv("TERMBRIDGE_LOGGING_LEVEL", "debug")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 4500, cfg.Terminal.Port)
	assert.Equal(t, "/bin/sh", cfg.Shell.Path)
	assert.Equal(t, 5500*time.Millisecond, cfg.Shell.DefaultTimeout())
	assert.False(t, cfg.History.Enabled)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

// The original deployments configured the servers through P1_*/P4_* variables;
// those names still work.
func TestLoad_LegacyEnvNames(t *testing.T) {
	t.Setenv("P1_MCP_PORT", "3103")
	t.Setenv("P1_SHELL", "/bin/zsh")
	t.Setenv("P1_MAX_OUTPUT_CHARS", "1000")
	t.Setenv("P1_MAX_OUTPUT_LINES", "50")
	t.Setenv("P4_MCP_PORT", "3104")
	t.Setenv("P4_COORDS_FILE", "/etc/termbridge/coords.json")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 3103, cfg.Terminal.Port)
	assert.Equal(t, "/bin/zsh", cfg.Shell.Path)
	assert.Equal(t, 1000, cfg.Shell.MaxOutputChars)
	assert.Equal(t, 50, cfg.Shell.MaxOutputLines)
	assert.Equal(t, 3104, cfg.UI.Port)
	assert.Equal(t, "/etc/termbridge/coords.json", cfg.UI.CoordsFile)
}

func TestLoad_ValidationErrors(t *testing.T) {
	t.Setenv("TERMBRIDGE_TERMINAL_PORT", "-1")
	t.Setenv("TERMBRIDGE_SHELL_DEFAULT_TIMEOUT_SEC", "0")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "terminal.port")
	assert.Contains(t, err.Error(), "shell.defaultTimeoutSec")
}
