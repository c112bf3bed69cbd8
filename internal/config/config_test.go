package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDefaultAppConfig_EnvOverrides(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(EnvBaseDir, dir)
	t.Setenv(EnvFontsDir, filepath.Join(dir, "fonts"))
	t.Setenv(EnvDataDir, filepath.Join(dir, "data"))
	t.Setenv(EnvShell, "sh -e")

	cfg := DefaultAppConfig()

	assert.Equal(t, dir, cfg.BaseDir)
	assert.Equal(t, filepath.Join(dir, "bin", "SystemOps.ps1"), cfg.ScriptPath)
	assert.Equal(t, filepath.Join(dir, "fonts"), cfg.FontsDir)
	assert.Equal(t, "sh", cfg.ScriptShell)
	assert.Equal(t, []string{"-e"}, cfg.ScriptShellArgs)
	assert.Equal(t, filepath.Join(dir, "data", "settings.json"), cfg.SettingsPath())
	assert.Equal(t, filepath.Join(dir, "data", "journal.db"), cfg.JournalPath())
}

func TestDefaultAppConfig_Timeouts(t *testing.T) {
	cfg := DefaultAppConfig()

	assert.Equal(t, 30*time.Second, cfg.ToolTimeout)
	assert.Equal(t, 2*time.Minute, cfg.ScriptTimeout)
	assert.Equal(t, 5*time.Minute, cfg.DownloadTimeout)
	assert.Greater(t, cfg.DownloadTimeout, cfg.ToolTimeout)
	assert.Equal(t, "explorer.exe", cfg.ShellProcess)
}
