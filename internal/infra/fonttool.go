package infra

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/eliteGoblin/ultrafont/internal/domain"
)

// Verbs understood by the external font tool.
const (
	verbValidate = "validate"
	verbAnalyze  = "analyze"
)

// validatableExts is the allow-list used when the font tool is missing.
var validatableExts = []string{".ttf", ".otf", ".woff"}

// FontTool implements domain.FontInspector by shelling out to font_tool.
// When the binary is absent it degrades to file-name heuristics.
type FontTool struct {
	path   string
	runner CommandRunner
	stat   func(name string) (os.FileInfo, error)
	logger *zap.Logger
}

// NewFontTool creates a font tool adapter with a per-call timeout.
func NewFontTool(path string, timeout time.Duration, logger *zap.Logger) *FontTool {
	return NewFontToolWithRunner(path, NewExecRunner(timeout), logger)
}

// NewFontToolWithRunner creates an adapter with an injected runner (for testing).
func NewFontToolWithRunner(path string, runner CommandRunner, logger *zap.Logger) *FontTool {
	return &FontTool{
		path:   path,
		runner: runner,
		stat:   os.Stat,
		logger: logger,
	}
}

// ToolAvailable reports whether the tool binary exists.
func (t *FontTool) ToolAvailable() bool {
	if t.path == "" {
		return false
	}
	_, err := t.stat(t.path)
	return err == nil
}

// Validate reports whether path is a well-formed font.
// Exit code 0 means valid; any subprocess failure means not valid.
func (t *FontTool) Validate(ctx context.Context, path string) (bool, error) {
	if !t.ToolAvailable() {
		t.logger.Debug("font tool missing, validating by extension", zap.String("path", path))
		return hasExt(path, validatableExts), nil
	}

	res, err := t.runner.Run(ctx, t.path, verbValidate, path)
	if err != nil {
		opErr := domain.NewOpError(verbValidate, path, classifyRunError(err), err)
		if strings.TrimSpace(res.Stderr) != "" {
			opErr.Err = fmt.Errorf("%w: %s", err, strings.TrimSpace(res.Stderr))
		}
		return false, opErr
	}
	return true, nil
}

// Analyze extracts metadata. It never fails outright: on error the returned
// metadata carries Name (the file name) and Error.
func (t *FontTool) Analyze(ctx context.Context, path string) (domain.Metadata, error) {
	base := filepath.Base(path)

	if !t.ToolAvailable() {
		t.logger.Debug("font tool missing, using minimal metadata", zap.String("path", path))
		return domain.Metadata{Name: base, Family: base, Style: "Regular"}, nil
	}

	res, err := t.runner.Run(ctx, t.path, verbAnalyze, path)
	if err != nil {
		kind := classifyRunError(err)
		msg := err.Error()
		if kind == domain.KindExitStatus {
			msg = "Analysis Error"
		}
		return domain.Metadata{Name: base, Error: msg}, domain.NewOpError(verbAnalyze, path, kind, err)
	}

	var meta domain.Metadata
	if err := json.Unmarshal([]byte(strings.TrimSpace(res.Stdout)), &meta); err != nil {
		return domain.Metadata{Name: base, Error: "unparsable analysis output"},
			domain.NewOpError(verbAnalyze, path, domain.KindParse, err)
	}
	if meta.Name == "" {
		meta.Name = base
	}
	return meta, nil
}

// hasExt reports whether path ends with one of exts, case-insensitively.
func hasExt(path string, exts []string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range exts {
		if ext == e {
			return true
		}
	}
	return false
}

var _ domain.FontInspector = (*FontTool)(nil)
