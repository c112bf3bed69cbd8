// Package domain contains core business entities and interfaces.
// This is the innermost layer - no external dependencies.
package domain

import (
	"image"
	"path/filepath"
	"strings"
	"time"
)

// FontExts are the file types accepted for analysis.
var FontExts = []string{".ttf", ".otf", ".woff", ".ttc"}

// IsFontFile reports whether path has an accepted font extension.
func IsFontFile(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range FontExts {
		if ext == e {
			return true
		}
	}
	return false
}

// IsArchive reports whether path is a .zip archive.
func IsArchive(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".zip")
}

// Metadata describes a font file as reported by the font tool.
// Error is set when analysis failed; the other fields then carry
// whatever could still be derived (usually from the file name).
type Metadata struct {
	Name    string `json:"name"`
	Family  string `json:"family,omitempty"`
	Style   string `json:"style,omitempty"`
	Version string `json:"version,omitempty"`
	Format  string `json:"format,omitempty"`
	Error   string `json:"error,omitempty"`
}

// FontRecord is one font file known to a session.
// Path is the only identity: two records with the same content but
// different paths are distinct.
type FontRecord struct {
	Path      string
	Metadata  Metadata
	Valid     bool
	Installed bool
	Preview   image.Image // nil when rendering failed
}

// DisplayFamily returns the family used for installed checks, falling back
// to the file name when the tool did not report one.
func (r FontRecord) DisplayFamily(fileName string) string {
	if r.Metadata.Family != "" {
		return r.Metadata.Family
	}
	return fileName
}

// InstallOutcome is the per-font result of an installation attempt.
type InstallOutcome struct {
	Path      string
	Succeeded bool
}

// DownloadJob asks for a remote font to be fetched into the temp directory.
type DownloadJob struct {
	URL      string
	Filename string
}

// DownloadResult pairs the requested URL with the local file.
// LocalPath is empty when the download failed.
type DownloadResult struct {
	URL       string
	LocalPath string
}

// CatalogEntry is one downloadable font from the remote catalog.
type CatalogEntry struct {
	Family string `json:"family"`
	URL    string `json:"url"`
}

// JournalAction identifies what was done to a font in the install journal.
type JournalAction string

const (
	ActionInstall   JournalAction = "install"
	ActionUninstall JournalAction = "uninstall"
)

// JournalEntry records one install or uninstall attempt.
type JournalEntry struct {
	ID        int64
	Action    JournalAction
	Path      string
	Succeeded bool
	At        time.Time
}
