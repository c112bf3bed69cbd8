package infra

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/eliteGoblin/ultrafont/internal/domain"
)

// Archive limits. Font packs are far below these.
const (
	maxArchiveEntries = 10000
	maxEntryBytes     = 64 << 20
)

// ZipExpander implements domain.ArchiveExpander for .zip files. The
// directories it creates live until Cleanup.
type ZipExpander struct {
	tempDir    string
	maxEntries int
	maxBytes   int64

	mu   sync.Mutex
	dirs []string
}

// NewZipExpander creates an expander extracting under tempDir
// ("" means the OS temp directory).
func NewZipExpander(tempDir string) *ZipExpander {
	return &ZipExpander{tempDir: tempDir, maxEntries: maxArchiveEntries, maxBytes: maxEntryBytes}
}

// Expand extracts every regular file of archivePath into a fresh directory.
// Entries escaping the target directory are rejected, as are archives over
// the entry count or per-entry size limits.
func (z *ZipExpander) Expand(archivePath string) (string, error) {
	r, err := zip.OpenReader(archivePath)
	if err != nil {
		return "", domain.NewOpError("expand", archivePath, domain.KindIO, fmt.Errorf("failed to open archive: %w", err))
	}
	defer r.Close()

	if len(r.File) > z.maxEntries {
		return "", domain.NewOpError("expand", archivePath, domain.KindIO,
			fmt.Errorf("archive has %d entries, limit is %d", len(r.File), z.maxEntries))
	}

	dest, err := os.MkdirTemp(z.tempDir, "ultrafont-zip-")
	if err != nil {
		return "", domain.NewOpError("expand", archivePath, domain.KindIO, fmt.Errorf("failed to create temp dir: %w", err))
	}

	for _, f := range r.File {
		if err := extractEntry(f, dest, z.maxBytes); err != nil {
			os.RemoveAll(dest)
			return "", domain.NewOpError("expand", archivePath, domain.KindIO, err)
		}
	}

	z.mu.Lock()
	z.dirs = append(z.dirs, dest)
	z.mu.Unlock()
	return dest, nil
}

// Cleanup removes every directory created by Expand.
func (z *ZipExpander) Cleanup() error {
	z.mu.Lock()
	dirs := z.dirs
	z.dirs = nil
	z.mu.Unlock()

	var errs []error
	for _, d := range dirs {
		if err := os.RemoveAll(d); err != nil {
			errs = append(errs, fmt.Errorf("failed to remove %s: %w", d, err))
		}
	}
	return errors.Join(errs...)
}

func extractEntry(f *zip.File, dest string, limit int64) error {
	target := filepath.Join(dest, filepath.FromSlash(f.Name))
	if !strings.HasPrefix(target, filepath.Clean(dest)+string(os.PathSeparator)) {
		return fmt.Errorf("illegal entry path %q", f.Name)
	}

	if f.FileInfo().IsDir() {
		return os.MkdirAll(target, 0755)
	}
	if !f.Mode().IsRegular() {
		return nil
	}

	if f.UncompressedSize64 > uint64(limit) {
		return fmt.Errorf("entry %s is %d bytes, limit is %d", f.Name, f.UncompressedSize64, limit)
	}

	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	rc, err := f.Open()
	if err != nil {
		return fmt.Errorf("failed to open entry %s: %w", f.Name, err)
	}
	defer rc.Close()

	out, err := os.Create(target)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", target, err)
	}
	defer out.Close()

	// the header size can lie; count what is actually inflated
	n, err := io.CopyN(out, rc, limit+1)
	if err != nil && err != io.EOF {
		return fmt.Errorf("failed to extract %s: %w", f.Name, err)
	}
	if n > limit {
		return fmt.Errorf("entry %s exceeds %d bytes", f.Name, limit)
	}
	return nil
}

var _ domain.ArchiveExpander = (*ZipExpander)(nil)
