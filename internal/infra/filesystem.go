package infra

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/eliteGoblin/ultrafont/internal/domain"
)

// FileSystemManagerImpl implements domain.FileSystemManager.
type FileSystemManagerImpl struct {
	homeDir string
}

// NewFileSystemManager creates a new filesystem manager.
func NewFileSystemManager() domain.FileSystemManager {
	home, _ := os.UserHomeDir()
	return &FileSystemManagerImpl{homeDir: home}
}

// NewFileSystemManagerWithHome creates a filesystem manager with custom home (for testing).
func NewFileSystemManagerWithHome(home string) domain.FileSystemManager {
	return &FileSystemManagerImpl{homeDir: home}
}

// Exists checks if a path exists.
func (fm *FileSystemManagerImpl) Exists(path string) bool {
	_, err := os.Stat(fm.ExpandHome(path))
	return err == nil
}

// IsDir checks if a path is a directory.
func (fm *FileSystemManagerImpl) IsDir(path string) bool {
	info, err := os.Stat(fm.ExpandHome(path))
	return err == nil && info.IsDir()
}

// CollectFonts walks root and returns font files in walk order.
// Unreadable subdirectories are skipped.
func (fm *FileSystemManagerImpl) CollectFonts(root string) ([]string, error) {
	root = fm.ExpandHome(root)
	var found []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.IsDir() && domain.IsFontFile(path) {
			found = append(found, path)
		}
		return nil
	})
	return found, err
}

// ExpandHome expands ~ to the user's home directory.
func (fm *FileSystemManagerImpl) ExpandHome(path string) string {
	if strings.HasPrefix(path, "~/") {
		return filepath.Join(fm.homeDir, path[2:])
	}
	if path == "~" {
		return fm.homeDir
	}
	return path
}

// Ensure FileSystemManagerImpl implements domain.FileSystemManager.
var _ domain.FileSystemManager = (*FileSystemManagerImpl)(nil)
