package infra

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/flopp/go-findfont"
	"go.uber.org/zap"

	"github.com/eliteGoblin/ultrafont/internal/domain"
)

// Script verbs and the marker that signals success in their output.
const (
	verbRegister        = "register"
	verbUnregister      = "unregister"
	verbRestartExplorer = "restart-explorer"
	successMarker       = "SUCCESS"
)

// installedExts are the files considered part of the OS font store.
var installedExts = []string{".ttf", ".otf", ".ttc"}

// SystemOpsConfig configures the registry adapter.
type SystemOpsConfig struct {
	FontsDir    string
	Shell       string   // Interpreter running the script (e.g. powershell)
	ShellArgs   []string // Arguments before the script path
	ScriptPath  string
	PreValidate bool // Ask the inspector before registering
}

// SystemOps implements domain.FontRegistry on top of the OS font directory
// and the system-ops script.
type SystemOps struct {
	cfg       SystemOpsConfig
	runner    CommandRunner
	inspector domain.FontInspector
	findFont  func(name string) (string, error)
	logger    *zap.Logger

	mu      sync.Mutex
	located map[string]string
}

// NewSystemOps creates a registry adapter. inspector may be nil, which
// disables pre-validation.
func NewSystemOps(cfg SystemOpsConfig, runner CommandRunner, inspector domain.FontInspector, logger *zap.Logger) *SystemOps {
	return &SystemOps{
		cfg:       cfg,
		runner:    runner,
		inspector: inspector,
		findFont:  findfont.Find,
		logger:    logger,
		located:   make(map[string]string),
	}
}

// FontsDir returns the OS font directory in use.
func (s *SystemOps) FontsDir() string {
	return s.cfg.FontsDir
}

// IsInstalled looks for family, family.ttf, family.otf and the
// space-stripped .ttf/.otf variants in the fonts directory.
func (s *SystemOps) IsInstalled(family string) bool {
	if family == "" {
		return false
	}
	stripped := strings.ReplaceAll(family, " ", "")
	candidates := []string{
		family,
		family + ".ttf",
		family + ".otf",
		stripped + ".ttf",
		stripped + ".otf",
	}
	for _, name := range candidates {
		if _, err := os.Stat(filepath.Join(s.cfg.FontsDir, name)); err == nil {
			return true
		}
	}
	return false
}

// ListInstalled enumerates .ttf/.otf/.ttc files in the fonts directory.
func (s *SystemOps) ListInstalled(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.cfg.FontsDir)
	if err != nil {
		return []string{}, domain.NewOpError("list", s.cfg.FontsDir, domain.KindIO, err)
	}

	paths := make([]string, 0, len(entries))
	for _, e := range entries {
		if ctx.Err() != nil {
			return paths, domain.NewOpError("list", s.cfg.FontsDir, domain.KindCancelled, ctx.Err())
		}
		if e.IsDir() || !hasExt(e.Name(), installedExts) {
			continue
		}
		paths = append(paths, filepath.Join(s.cfg.FontsDir, e.Name()))
	}
	return paths, nil
}

// Install registers path with the OS using its file name as display name.
func (s *SystemOps) Install(ctx context.Context, path string) (bool, error) {
	if s.cfg.PreValidate && s.inspector != nil && s.inspector.ToolAvailable() {
		if valid, err := s.inspector.Validate(ctx, path); !valid {
			return false, domain.NewOpError(verbRegister, path, domain.KindInvalidFont, err)
		}
	}
	return s.runVerb(ctx, path, verbRegister, "-FontPath", path, "-FontName", filepath.Base(path))
}

// Uninstall unregisters a font by file name.
func (s *SystemOps) Uninstall(ctx context.Context, fileName string) (bool, error) {
	return s.runVerb(ctx, fileName, verbUnregister, "-FontPath", fileName)
}

// RestartShell launches the restart verb and returns without waiting.
func (s *SystemOps) RestartShell(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return domain.NewOpError(verbRestartExplorer, "", domain.KindCancelled, err)
	}
	name, args := s.scriptCommand(verbRestartExplorer)
	if err := s.runner.Start(name, args...); err != nil {
		return domain.NewOpError(verbRestartExplorer, "", domain.KindSubprocess, err)
	}
	s.logger.Info("Desktop shell restart requested")
	return nil
}

// Locate resolves a family name to a font file. The fonts directory is
// scanned first (name containment either way), then the system font paths.
// Hits are memoized for the life of the adapter.
func (s *SystemOps) Locate(family string) (string, bool) {
	if family == "" {
		return "", false
	}
	key := strings.ToLower(family)

	s.mu.Lock()
	if p, ok := s.located[key]; ok {
		s.mu.Unlock()
		return p, true
	}
	s.mu.Unlock()

	path, ok := s.scanFontsDir(key)
	if !ok {
		var err error
		path, err = s.findFont(family)
		ok = err == nil && path != ""
	}
	if !ok {
		return "", false
	}

	s.mu.Lock()
	s.located[key] = path
	s.mu.Unlock()
	return path, true
}

func (s *SystemOps) scanFontsDir(key string) (string, bool) {
	entries, err := os.ReadDir(s.cfg.FontsDir)
	if err != nil {
		return "", false
	}
	compact := strings.ReplaceAll(key, " ", "")
	for _, e := range entries {
		if e.IsDir() || !hasExt(e.Name(), installedExts) {
			continue
		}
		stem := strings.ToLower(strings.TrimSuffix(e.Name(), filepath.Ext(e.Name())))
		if stem == "" {
			continue
		}
		if strings.Contains(stem, compact) || strings.Contains(compact, stem) {
			return filepath.Join(s.cfg.FontsDir, e.Name()), true
		}
	}
	return "", false
}

// runVerb invokes the script and checks stdout for the success marker.
func (s *SystemOps) runVerb(ctx context.Context, target, verb string, args ...string) (bool, error) {
	name, cmdArgs := s.scriptCommand(verb, args...)
	res, err := s.runner.Run(ctx, name, cmdArgs...)
	if err != nil {
		return false, domain.NewOpError(verb, target, classifyRunError(err), err)
	}
	if !strings.Contains(res.Stdout, successMarker) {
		detail := strings.TrimSpace(res.Stdout)
		if detail == "" {
			detail = strings.TrimSpace(res.Stderr)
		}
		return false, domain.NewOpError(verb, target, domain.KindMarkerMissing, errors.New(detail))
	}
	return true, nil
}

func (s *SystemOps) scriptCommand(verb string, args ...string) (string, []string) {
	cmdArgs := make([]string, 0, len(s.cfg.ShellArgs)+3+len(args))
	cmdArgs = append(cmdArgs, s.cfg.ShellArgs...)
	cmdArgs = append(cmdArgs, s.cfg.ScriptPath, "-Command", verb)
	cmdArgs = append(cmdArgs, args...)
	return s.cfg.Shell, cmdArgs
}

// String describes the adapter for diagnostics.
func (s *SystemOps) String() string {
	return fmt.Sprintf("systemops(%s, fonts=%s)", s.cfg.ScriptPath, s.cfg.FontsDir)
}

var _ domain.FontRegistry = (*SystemOps)(nil)
