// Package usecase contains the font-processing task pipeline and the
// session that owns the font list.
package usecase

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"path"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/eliteGoblin/ultrafont/internal/domain"
)

var (
	// ErrTaskAlreadyRunning is returned when a task of the same kind
	// (or a download to the same file) is still in flight.
	ErrTaskAlreadyRunning = errors.New("task already running")

	// ErrNoInput is returned when a task is started with nothing to do.
	ErrNoInput = errors.New("no input")
)

// SettingsSource provides the current settings snapshot.
type SettingsSource interface {
	Get() domain.Settings
}

// PipelineDeps are the adapters a Pipeline drives.
type PipelineDeps struct {
	Inspector  domain.FontInspector
	Registry   domain.FontRegistry
	Renderer   domain.PreviewRenderer
	Downloader domain.Downloader
	FS         domain.FileSystemManager
	Journal    domain.InstallJournal // optional
	Settings   SettingsSource        // optional; nil means light previews
	TempDir    string
}

// Pipeline launches background tasks. At most one Analyze, Install and
// LoadLibrary task runs at a time; downloads run concurrently, one per
// destination file.
type Pipeline struct {
	deps   PipelineDeps
	logger *zap.Logger

	mu        sync.Mutex
	running   map[TaskKind]*Task
	downloads map[string]*Task
}

// NewPipeline creates a pipeline.
func NewPipeline(deps PipelineDeps, logger *zap.Logger) *Pipeline {
	return &Pipeline{
		deps:      deps,
		logger:    logger,
		running:   make(map[TaskKind]*Task),
		downloads: make(map[string]*Task),
	}
}

// Running returns the in-flight task of kind, if any.
func (p *Pipeline) Running(kind TaskKind) (*Task, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	t, ok := p.running[kind]
	return t, ok
}

// StartAnalyze validates, analyzes, checks and previews each path.
func (p *Pipeline) StartAnalyze(ctx context.Context, paths []string) (*Task, error) {
	if len(paths) == 0 {
		return nil, ErrNoInput
	}
	paths = append([]string(nil), paths...)

	task, taskCtx, release, err := p.reserve(ctx, KindAnalyze, "")
	if err != nil {
		return nil, err
	}
	go p.run(task, taskCtx, release, func() int { return p.runAnalyze(taskCtx, task, paths) })
	return task, nil
}

// StartInstall installs every record that is valid and not yet installed.
func (p *Pipeline) StartInstall(ctx context.Context, records []domain.FontRecord) (*Task, error) {
	if len(records) == 0 {
		return nil, ErrNoInput
	}
	records = append([]domain.FontRecord(nil), records...)

	task, taskCtx, release, err := p.reserve(ctx, KindInstall, "")
	if err != nil {
		return nil, err
	}
	go p.run(task, taskCtx, release, func() int { return p.runInstall(taskCtx, task, records) })
	return task, nil
}

// StartDownload fetches job.URL into the temp directory. At most one
// download per destination file runs at a time.
func (p *Pipeline) StartDownload(ctx context.Context, job domain.DownloadJob) (*Task, error) {
	if strings.TrimSpace(job.URL) == "" {
		return nil, ErrNoInput
	}

	// Downloads sharing a destination would overwrite each other, so the
	// in-flight key is the local path rather than the URL.
	dest := filepath.Join(p.deps.TempDir, downloadFilename(job))
	task, taskCtx, release, err := p.reserve(ctx, KindDownload, dest)
	if err != nil {
		return nil, err
	}
	go p.run(task, taskCtx, release, func() int { return p.runDownload(taskCtx, task, job, dest) })
	return task, nil
}

// StartLoadLibrary enumerates the OS font directory.
func (p *Pipeline) StartLoadLibrary(ctx context.Context) (*Task, error) {
	task, taskCtx, release, err := p.reserve(ctx, KindLoadLibrary, "")
	if err != nil {
		return nil, err
	}
	go p.run(task, taskCtx, release, func() int { return p.runLoadLibrary(taskCtx, task) })
	return task, nil
}

// reserve applies the in-flight policy and creates the task.
func (p *Pipeline) reserve(ctx context.Context, kind TaskKind, key string) (*Task, context.Context, func(), error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if kind == KindDownload {
		if _, busy := p.downloads[key]; busy {
			return nil, nil, nil, fmt.Errorf("%w: download %s", ErrTaskAlreadyRunning, key)
		}
	} else if _, busy := p.running[kind]; busy {
		return nil, nil, nil, fmt.Errorf("%w: %s", ErrTaskAlreadyRunning, kind)
	}

	taskCtx, cancel := context.WithCancel(ctx)
	task := newTask(taskCtx, kind, cancel)

	var release func()
	if kind == KindDownload {
		p.downloads[key] = task
		release = func() {
			p.mu.Lock()
			delete(p.downloads, key)
			p.mu.Unlock()
		}
	} else {
		p.running[kind] = task
		release = func() {
			p.mu.Lock()
			delete(p.running, kind)
			p.mu.Unlock()
		}
	}
	return task, taskCtx, release, nil
}

func (p *Pipeline) run(task *Task, ctx context.Context, release func(), body func() int) {
	task.setState(StateRunning)
	p.logger.Debug("Task started", zap.String("task", task.ID()), zap.String("kind", string(task.Kind())))

	count := body()

	task.finish(ctx, count, release)
	p.logger.Info("Task finished",
		zap.String("task", task.ID()),
		zap.String("kind", string(task.Kind())),
		zap.String("state", string(task.State())),
		zap.Int("count", count))
}

// runAnalyze emits one EventAnalyzed per path that exists.
func (p *Pipeline) runAnalyze(ctx context.Context, task *Task, paths []string) int {
	emitted := 0
	for _, fontPath := range paths {
		if ctx.Err() != nil {
			break
		}
		if !p.deps.FS.Exists(fontPath) {
			p.logger.Debug("Skipping missing file", zap.String("path", fontPath))
			continue
		}

		record, err := p.analyzeOne(ctx, fontPath)
		task.emit(Event{Type: EventAnalyzed, Record: &record, Err: err})
		emitted++
	}
	return emitted
}

// analyzeOne runs each stage independently; a failing stage leaves its
// field at the negative value and the others still run.
func (p *Pipeline) analyzeOne(ctx context.Context, fontPath string) (domain.FontRecord, error) {
	base := filepath.Base(fontPath)
	record := domain.FontRecord{Path: fontPath}
	var errs []error

	stageErr := guard("analyze", fontPath, func() error {
		meta, err := p.deps.Inspector.Analyze(ctx, fontPath)
		record.Metadata = meta
		return err
	})
	if stageErr != nil {
		if record.Metadata.Error == "" {
			record.Metadata.Error = stageErr.Error()
		}
		errs = append(errs, stageErr)
	}
	if record.Metadata.Name == "" {
		record.Metadata.Name = base
	}

	if err := guard("validate", fontPath, func() error {
		valid, err := p.deps.Inspector.Validate(ctx, fontPath)
		record.Valid = valid
		return err
	}); err != nil {
		record.Valid = false
		errs = append(errs, err)
	}

	if err := guard("installed", fontPath, func() error {
		record.Installed = p.deps.Registry.IsInstalled(record.DisplayFamily(base))
		return nil
	}); err != nil {
		record.Installed = false
		errs = append(errs, err)
	}

	if p.deps.Renderer != nil {
		if err := guard("preview", fontPath, func() error {
			img, err := p.deps.Renderer.Render(domain.DefaultPreviewRequest(fontPath, p.darkPreview()))
			record.Preview = img
			return err
		}); err != nil {
			record.Preview = nil
			errs = append(errs, err)
		}
	}

	err := errors.Join(errs...)
	if err != nil {
		p.logger.Warn("Font analysis degraded", zap.String("path", fontPath), zap.Error(err))
	} else {
		p.logger.Info("Font analyzed",
			zap.String("path", fontPath),
			zap.String("family", record.Metadata.Family),
			zap.Bool("installed", record.Installed))
	}
	return record, err
}

// runInstall emits progress then outcome for each eligible record.
func (p *Pipeline) runInstall(ctx context.Context, task *Task, records []domain.FontRecord) int {
	eligible := make([]domain.FontRecord, 0, len(records))
	for _, r := range records {
		if r.Valid && !r.Installed {
			eligible = append(eligible, r)
		}
	}

	succeeded := 0
	for i, r := range eligible {
		if ctx.Err() != nil {
			break
		}
		task.emit(Event{Type: EventProgress, Progress: &Progress{
			Index:    i,
			Total:    len(eligible),
			FileName: filepath.Base(r.Path),
		}})

		var ok bool
		err := guard("install", r.Path, func() error {
			var err error
			ok, err = p.deps.Registry.Install(ctx, r.Path)
			return err
		})
		if err != nil {
			ok = false
			p.logger.Warn("Font install failed", zap.String("path", r.Path), zap.Error(err))
		} else if ok {
			p.logger.Info("Font installed", zap.String("path", r.Path))
		}

		task.emit(Event{Type: EventOutcome, Outcome: &domain.InstallOutcome{Path: r.Path, Succeeded: ok}, Err: err})
		p.record(domain.ActionInstall, r.Path, ok)
		if ok {
			succeeded++
		}
	}
	return succeeded
}

// runDownload emits (url, localPath) or (url, "").
func (p *Pipeline) runDownload(ctx context.Context, task *Task, job domain.DownloadJob, dest string) int {
	err := guard("download", job.URL, func() error {
		return p.deps.Downloader.Download(ctx, job.URL, dest)
	})
	result := domain.DownloadResult{URL: job.URL, LocalPath: dest}
	if err != nil {
		result.LocalPath = ""
		p.logger.Warn("Download failed", zap.String("url", job.URL), zap.Error(err))
	}

	task.emit(Event{Type: EventDownloaded, Download: &result, Err: err})
	if result.LocalPath == "" {
		return 0
	}
	return 1
}

// runLoadLibrary emits one EventFound per installed font file.
func (p *Pipeline) runLoadLibrary(ctx context.Context, task *Task) int {
	var paths []string
	if err := guard("list", p.deps.Registry.FontsDir(), func() error {
		var err error
		paths, err = p.deps.Registry.ListInstalled(ctx)
		return err
	}); err != nil {
		p.logger.Warn("Font directory enumeration failed", zap.Error(err))
	}

	found := 0
	for _, fp := range paths {
		if ctx.Err() != nil {
			break
		}
		task.emit(Event{Type: EventFound, Path: fp})
		found++
	}
	return found
}

func (p *Pipeline) record(action domain.JournalAction, target string, ok bool) {
	if p.deps.Journal == nil {
		return
	}
	if err := p.deps.Journal.Record(domain.JournalEntry{Action: action, Path: target, Succeeded: ok}); err != nil {
		p.logger.Warn("Failed to write journal", zap.String("path", target), zap.Error(err))
	}
}

func (p *Pipeline) darkPreview() bool {
	if p.deps.Settings == nil {
		return false
	}
	return p.deps.Settings.Get().DarkPreview()
}

// downloadFilename returns the bare file name for job, derived from the
// URL path when none was given.
func downloadFilename(job domain.DownloadJob) string {
	name := job.Filename
	if name == "" {
		if u, err := url.Parse(job.URL); err == nil {
			name = path.Base(u.Path)
		}
	}
	name = filepath.Base(filepath.Clean(name))
	if name == "." || name == "/" || name == `\` || name == "" {
		name = "download.ttf"
	}
	return name
}

// guard runs one stage and converts a panic into an OpError so a single
// item can never take down the batch.
func guard(stage, target string, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = domain.NewOpError(stage, target, domain.KindUnknown, fmt.Errorf("panic: %v", r))
		}
	}()
	return fn()
}
