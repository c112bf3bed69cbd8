// Package config holds process configuration: adapter paths and timeouts
// (AppConfig) and persisted user settings (Settings store).
package config

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"
)

// Environment variables that override AppConfig defaults.
const (
	EnvBaseDir    = "ULTRAFONT_HOME"
	EnvFontTool   = "ULTRAFONT_FONT_TOOL"
	EnvScript     = "ULTRAFONT_SYSTEM_OPS"
	EnvShell      = "ULTRAFONT_SCRIPT_SHELL"
	EnvFontsDir   = "ULTRAFONT_FONTS_DIR"
	EnvDataDir    = "ULTRAFONT_DATA_DIR"
	EnvTempDir    = "ULTRAFONT_TEMP_DIR"
	EnvLogFile    = "ULTRAFONT_LOG_FILE"
	EnvJournalKey = "ULTRAFONT_JOURNAL_KEY"
	settingsName  = "settings.json"
	journalName   = "journal.db"
)

// AppConfig holds adapter locations and timeouts.
type AppConfig struct {
	BaseDir         string        // Where bin/ with the helper tools lives
	FontToolPath    string        // External font validation/analysis tool
	ScriptPath      string        // System-ops script (register/unregister/restart-explorer)
	ScriptShell     string        // Interpreter running the script
	ScriptShellArgs []string      // Arguments placed before the script path
	FontsDir        string        // OS font directory
	TempDir         string        // Download destination
	DataDir         string        // Settings, journal and logs
	ShellProcess    string        // Desktop shell process name
	ToolTimeout     time.Duration // Per font-tool invocation
	ScriptTimeout   time.Duration // Per script invocation
	DownloadTimeout time.Duration // Per download
	PreValidate     bool          // Validate with the font tool before registering
	JournalKey      string        // Optional encryption key for the journal database
}

// DefaultAppConfig returns configuration for the current platform,
// with ULTRAFONT_* environment overrides applied.
func DefaultAppConfig() AppConfig {
	base := os.Getenv(EnvBaseDir)
	if base == "" {
		base = executableDir()
	}

	cfg := AppConfig{
		BaseDir:         base,
		FontToolPath:    filepath.Join(base, "bin", fontToolName()),
		ScriptPath:      filepath.Join(base, "bin", "SystemOps.ps1"),
		ScriptShell:     "powershell",
		ScriptShellArgs: []string{"-NoProfile", "-ExecutionPolicy", "Bypass", "-File"},
		FontsDir:        DefaultFontsDir(),
		TempDir:         os.TempDir(),
		DataDir:         defaultDataDir(),
		ShellProcess:    "explorer.exe",
		ToolTimeout:     30 * time.Second,
		ScriptTimeout:   2 * time.Minute,
		DownloadTimeout: 5 * time.Minute,
		PreValidate:     true,
	}

	if v := os.Getenv(EnvFontTool); v != "" {
		cfg.FontToolPath = v
	}
	if v := os.Getenv(EnvScript); v != "" {
		cfg.ScriptPath = v
	}
	if v := os.Getenv(EnvShell); v != "" {
		// "sh" or "pwsh -File" style: first field is the interpreter
		fields := strings.Fields(v)
		cfg.ScriptShell = fields[0]
		cfg.ScriptShellArgs = fields[1:]
	}
	if v := os.Getenv(EnvFontsDir); v != "" {
		cfg.FontsDir = v
	}
	if v := os.Getenv(EnvDataDir); v != "" {
		cfg.DataDir = v
	}
	if v := os.Getenv(EnvTempDir); v != "" {
		cfg.TempDir = v
	}
	cfg.JournalKey = os.Getenv(EnvJournalKey)

	return cfg
}

// SettingsPath returns where settings.json lives.
func (c AppConfig) SettingsPath() string {
	return filepath.Join(c.DataDir, settingsName)
}

// JournalPath returns where the install journal database lives.
func (c AppConfig) JournalPath() string {
	return filepath.Join(c.DataDir, journalName)
}

// LogPath returns the log file location.
func (c AppConfig) LogPath() string {
	if v := os.Getenv(EnvLogFile); v != "" {
		return v
	}
	return filepath.Join(c.DataDir, "ultrafont.log")
}

// DefaultFontsDir returns the OS font directory.
// Windows uses %WINDIR%\Fonts; other platforms use the per-user font dir.
func DefaultFontsDir() string {
	switch runtime.GOOS {
	case "windows":
		windir := os.Getenv("WINDIR")
		if windir == "" {
			windir = `C:\Windows`
		}
		return filepath.Join(windir, "Fonts")
	case "darwin":
		home, _ := os.UserHomeDir()
		return filepath.Join(home, "Library", "Fonts")
	default:
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".local", "share", "fonts")
	}
}

func fontToolName() string {
	if runtime.GOOS == "windows" {
		return "font_tool.exe"
	}
	return "font_tool"
}

func executableDir() string {
	exe, err := os.Executable()
	if err != nil {
		return "."
	}
	return filepath.Dir(exe)
}

func defaultDataDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "ultrafont")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".ultrafont")
}
