package domain

import (
	"context"
	"image"
	"image/color"
)

// FontInspector validates and analyzes font files through the external font tool.
// Both calls always return a usable value; the error, when non-nil, is an
// *OpError describing why the value is degraded.
type FontInspector interface {
	// Validate reports whether path is a well-formed font.
	// Without the tool it falls back to an extension allow-list.
	Validate(ctx context.Context, path string) (bool, error)

	// Analyze extracts family/style/version metadata.
	// Name is always populated.
	Analyze(ctx context.Context, path string) (Metadata, error)

	// ToolAvailable reports whether the external tool binary exists.
	ToolAvailable() bool
}

// FontRegistry wraps the OS font store and the system-ops script.
type FontRegistry interface {
	// IsInstalled checks for file-name matches of family in the fonts directory.
	IsInstalled(family string) bool

	// ListInstalled enumerates font files in the fonts directory.
	// On failure it returns an empty slice and the error.
	ListInstalled(ctx context.Context) ([]string, error)

	// Install registers a font file with the OS.
	Install(ctx context.Context, path string) (bool, error)

	// Uninstall unregisters a font by file name.
	Uninstall(ctx context.Context, fileName string) (bool, error)

	// RestartShell asks the script to restart the desktop shell.
	// Fire-and-forget: the script result is not observed.
	RestartShell(ctx context.Context) error

	// Locate resolves a family name to a font file path.
	Locate(family string) (string, bool)

	// FontsDir returns the OS font directory in use.
	FontsDir() string
}

// PreviewRequest describes one sample-text rendering.
type PreviewRequest struct {
	FontPath   string
	Text       string
	PixelSize  float64
	Width      int
	Height     int
	Foreground color.Color
}

// Card preview defaults.
const (
	DefaultPreviewText   = "Aa"
	DefaultPreviewSize   = 40
	DefaultPreviewWidth  = 300
	DefaultPreviewHeight = 64
)

// PreviewForeground returns the text color for a dark or light theme.
func PreviewForeground(dark bool) color.Color {
	if dark {
		return color.White
	}
	return color.Black
}

// DefaultPreviewRequest builds the card preview request for a font file.
func DefaultPreviewRequest(fontPath string, dark bool) PreviewRequest {
	return PreviewRequest{
		FontPath:   fontPath,
		Text:       DefaultPreviewText,
		PixelSize:  DefaultPreviewSize,
		Width:      DefaultPreviewWidth,
		Height:     DefaultPreviewHeight,
		Foreground: PreviewForeground(dark),
	}
}

// PreviewRenderer rasterizes sample text with a font file.
type PreviewRenderer interface {
	// Render returns nil and an error when drawing fails.
	Render(req PreviewRequest) (image.Image, error)
}

// Downloader fetches a remote file to a local destination.
type Downloader interface {
	Download(ctx context.Context, url, destPath string) error
}

// ArchiveExpander unpacks font archives.
type ArchiveExpander interface {
	// Expand extracts archivePath into a fresh directory and returns it.
	Expand(archivePath string) (string, error)
}

// FileSystemManager handles filesystem operations.
type FileSystemManager interface {
	// Exists checks if a path exists.
	Exists(path string) bool

	// IsDir checks if a path is a directory.
	IsDir(path string) bool

	// CollectFonts walks root recursively and returns font files.
	CollectFonts(root string) ([]string, error)

	// ExpandHome expands ~ to the user's home directory.
	ExpandHome(path string) string
}

// ProcessManager handles OS process lookups.
// Implementation: uses gopsutil for cross-platform support.
type ProcessManager interface {
	// FindByName returns PIDs of processes matching the pattern.
	FindByName(pattern string) ([]int, error)

	// IsRunning checks if a PID exists and is running.
	IsRunning(pid int) bool
}

// InstallJournal persists install and uninstall outcomes.
type InstallJournal interface {
	Record(entry JournalEntry) error
	Recent(limit int) ([]JournalEntry, error)
	Close() error
}

// SettingsStore persists Settings.
type SettingsStore interface {
	Load() (Settings, error)
	Save(Settings) error
}

// Catalog lists downloadable fonts.
type Catalog interface {
	All() []CatalogEntry
	Search(query string) []CatalogEntry
	Find(family string) (CatalogEntry, bool)
}
